package rrdata

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/haukened/rec-dns/internal/dns/domain"
)

// TSIG algorithm names (RFC 8945 §6).
const (
	TSIGHMACMD5    = "hmac-md5.sig-alg.reg.int"
	TSIGHMACSHA1   = "hmac-sha1"
	TSIGHMACSHA256 = "hmac-sha256"
	TSIGHMACSHA512 = "hmac-sha512"
)

// TSIG is the parsed form of a transaction signature record (RFC 8945 §4.2).
// TimeSigned is a 48-bit count of seconds since the epoch.
type TSIG struct {
	Algorithm  string
	TimeSigned uint64
	Fudge      uint16
	MAC        []byte
	OriginalID uint16
	Error      domain.RCode
	Other      []byte
}

// ParseTSIG parses normalized TSIG RDATA into its fields.
func ParseTSIG(data []byte) (TSIG, error) {
	r, err := newReader(data, 0, len(data))
	if err != nil {
		return TSIG{}, err
	}
	var ts TSIG
	if ts.Algorithm, err = r.name(); err != nil {
		return TSIG{}, fmt.Errorf("tsig algorithm: %w", err)
	}
	if ts.TimeSigned, err = r.u48(); err != nil {
		return TSIG{}, err
	}
	if ts.Fudge, err = r.u16(); err != nil {
		return TSIG{}, err
	}
	macLen, err := r.u16()
	if err != nil {
		return TSIG{}, err
	}
	if ts.MAC, err = r.bytes(int(macLen)); err != nil {
		return TSIG{}, err
	}
	if ts.OriginalID, err = r.u16(); err != nil {
		return TSIG{}, err
	}
	errCode, err := r.u16()
	if err != nil {
		return TSIG{}, err
	}
	ts.Error = domain.RCode(errCode)
	otherLen, err := r.u16()
	if err != nil {
		return TSIG{}, err
	}
	if ts.Other, err = r.bytes(int(otherLen)); err != nil {
		return TSIG{}, err
	}
	return ts, nil
}

// Encode serializes the TSIG back to normalized RDATA.
func (ts TSIG) Encode() ([]byte, error) {
	data, err := appendName(nil, ts.Algorithm)
	if err != nil {
		return nil, err
	}
	data = appendU48(data, ts.TimeSigned)
	data = appendU16(data, ts.Fudge)
	if len(ts.MAC) > 0xFFFF || len(ts.Other) > 0xFFFF {
		return nil, fmt.Errorf("%w: TSIG field too long", ErrBadRData)
	}
	data = appendU16(data, uint16(len(ts.MAC)))
	data = append(data, ts.MAC...)
	data = appendU16(data, ts.OriginalID)
	data = appendU16(data, uint16(ts.Error))
	data = appendU16(data, uint16(len(ts.Other)))
	return append(data, ts.Other...), nil
}

// VariablesTo appends the TSIG variables block that enters the MAC
// computation: algorithm name in canonical form, time signed, fudge, error,
// and other data (RFC 8945 §4.3.3). The MAC itself and the original ID are
// excluded.
func (ts TSIG) VariablesTo(data []byte) ([]byte, error) {
	data, err := appendName(data, strings.ToLower(ts.Algorithm))
	if err != nil {
		return nil, err
	}
	data = appendU48(data, ts.TimeSigned)
	data = appendU16(data, ts.Fudge)
	data = appendU16(data, uint16(ts.Error))
	data = appendU16(data, uint16(len(ts.Other)))
	return append(data, ts.Other...), nil
}

// decodeTSIGData decodes a TSIG record. The algorithm name must not be
// compressed on the wire, but decoding tolerates it.
func decodeTSIGData(r *reader) ([]byte, string, error) {
	algorithm, err := r.name()
	if err != nil {
		return nil, "", fmt.Errorf("tsig algorithm: %w", err)
	}
	rest := r.rest()
	data, err := appendName(nil, algorithm)
	if err != nil {
		return nil, "", err
	}
	data = append(data, rest...)

	ts, err := ParseTSIG(data)
	if err != nil {
		return nil, "", err
	}
	text := fmt.Sprintf("%s %d %d %s %d %d %s",
		algorithm, ts.TimeSigned, ts.Fudge, b64Field(ts.MAC),
		ts.OriginalID, uint16(ts.Error), b64Field(ts.Other))
	return data, text, nil
}

// encodeTSIGData encodes "algorithm timesigned fudge base64mac originalid
// error base64other" with "-" for empty fields.
func encodeTSIGData(text string) ([]byte, error) {
	parts := strings.Fields(text)
	if len(parts) != 7 {
		return nil, fmt.Errorf("expected 7 fields, got %d", len(parts))
	}
	var ts TSIG
	ts.Algorithm = parts[0]
	timeSigned, err := strconv.ParseUint(parts[1], 10, 48)
	if err != nil {
		return nil, fmt.Errorf("invalid time signed %q: %w", parts[1], err)
	}
	ts.TimeSigned = timeSigned
	fudge, err := strconv.ParseUint(parts[2], 10, 16)
	if err != nil {
		return nil, fmt.Errorf("invalid fudge %q: %w", parts[2], err)
	}
	ts.Fudge = uint16(fudge)
	if ts.MAC, err = b64FieldDecode(parts[3]); err != nil {
		return nil, fmt.Errorf("invalid mac: %w", err)
	}
	origID, err := strconv.ParseUint(parts[4], 10, 16)
	if err != nil {
		return nil, fmt.Errorf("invalid original id %q: %w", parts[4], err)
	}
	ts.OriginalID = uint16(origID)
	errCode, err := strconv.ParseUint(parts[5], 10, 16)
	if err != nil {
		return nil, fmt.Errorf("invalid error %q: %w", parts[5], err)
	}
	ts.Error = domain.RCode(errCode)
	if ts.Other, err = b64FieldDecode(parts[6]); err != nil {
		return nil, fmt.Errorf("invalid other data: %w", err)
	}
	return ts.Encode()
}
