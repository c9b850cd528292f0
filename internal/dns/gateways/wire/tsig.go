package wire

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/binary"
	"errors"
	"fmt"
	"hash"
	"time"

	"github.com/haukened/rec-dns/internal/dns/common/dnsname"
	"github.com/haukened/rec-dns/internal/dns/common/rrdata"
	"github.com/haukened/rec-dns/internal/dns/domain"
)

// TSIG verification failures. Callers map these onto the BADKEY, BADSIG and
// BADTIME response codes (RFC 8945 §5.2).
var (
	ErrTSIGBadKey  = errors.New("tsig: key name or algorithm not recognized")
	ErrTSIGBadSig  = errors.New("tsig: MAC verification failed")
	ErrTSIGBadTime = errors.New("tsig: signature outside time window")
	ErrTSIGMissing = errors.New("tsig: message carries no TSIG record")
)

// TSIGKey is a shared secret bound to a key name and HMAC algorithm.
type TSIGKey struct {
	Name      string
	Algorithm string
	Secret    []byte
}

// hmacNew returns the HMAC for a TSIG algorithm name. Unknown algorithms are
// a verification failure, never a silent pass.
func hmacNew(algorithm string, secret []byte) (hash.Hash, error) {
	switch dnsname.Canonical(algorithm) {
	case rrdata.TSIGHMACMD5:
		return hmac.New(md5.New, secret), nil
	case rrdata.TSIGHMACSHA1:
		return hmac.New(sha1.New, secret), nil
	case rrdata.TSIGHMACSHA256:
		return hmac.New(sha256.New, secret), nil
	case rrdata.TSIGHMACSHA512:
		return hmac.New(sha512.New, secret), nil
	default:
		return nil, fmt.Errorf("%w: algorithm %q", ErrTSIGBadKey, algorithm)
	}
}

// SignMessage appends a TSIG record to an already-encoded message and
// returns the signed wire form. For a response to a signed request, pass the
// request's MAC so it is chained into the digest (RFC 8945 §4.3.2).
func SignMessage(msg []byte, key TSIGKey, now time.Time, fudge uint16, requestMAC []byte) ([]byte, error) {
	if len(msg) < headerLen {
		return nil, fmt.Errorf("message too short to sign")
	}
	ts := rrdata.TSIG{
		Algorithm:  key.Algorithm,
		TimeSigned: uint64(now.UTC().Unix()),
		Fudge:      fudge,
		OriginalID: binary.BigEndian.Uint16(msg[0:2]),
	}
	mac, err := computeMAC(msg, key, ts, requestMAC)
	if err != nil {
		return nil, err
	}
	ts.MAC = mac

	rd, err := ts.Encode()
	if err != nil {
		return nil, err
	}
	signed := make([]byte, len(msg), len(msg)+len(rd)+32)
	copy(signed, msg)
	// TSIG owner and algorithm names are never compressed (RFC 8945 §4.2).
	if signed, err = dnsname.Append(signed, key.Name, nil); err != nil {
		return nil, err
	}
	signed = appendU16(signed, uint16(domain.RRTypeTSIG))
	signed = appendU16(signed, uint16(domain.RRClassANY))
	signed = appendU32(signed, 0)
	signed = appendU16(signed, uint16(len(rd)))
	signed = append(signed, rd...)

	arCount := binary.BigEndian.Uint16(signed[10:12])
	binary.BigEndian.PutUint16(signed[10:12], arCount+1)
	return signed, nil
}

// VerifyMessage checks the trailing TSIG record of an encoded message
// against key. On success it returns the parsed TSIG and the message with
// the record stripped, the original ID restored, and ARCOUNT decremented,
// which is the form the response digest of a follow-up exchange needs.
func VerifyMessage(msg []byte, key TSIGKey, now time.Time, requestMAC []byte) (rrdata.TSIG, []byte, error) {
	start, raw, err := findTrailingTSIG(msg)
	if err != nil {
		return rrdata.TSIG{}, nil, err
	}
	if !dnsname.Equal(raw.name, key.Name) {
		return rrdata.TSIG{}, nil, fmt.Errorf("%w: key %q", ErrTSIGBadKey, raw.name)
	}
	norm, _, err := rrdata.Decode(domain.RRTypeTSIG, msg, raw.rdOff, raw.rdEnd)
	if err != nil {
		return rrdata.TSIG{}, nil, err
	}
	ts, err := rrdata.ParseTSIG(norm)
	if err != nil {
		return rrdata.TSIG{}, nil, err
	}

	stripped := make([]byte, start)
	copy(stripped, msg[:start])
	binary.BigEndian.PutUint16(stripped[0:2], ts.OriginalID)
	arCount := binary.BigEndian.Uint16(stripped[10:12])
	if arCount == 0 {
		return rrdata.TSIG{}, nil, fmt.Errorf("tsig: ARCOUNT already zero")
	}
	binary.BigEndian.PutUint16(stripped[10:12], arCount-1)

	want, err := computeMAC(stripped, key, ts, requestMAC)
	if err != nil {
		return rrdata.TSIG{}, nil, err
	}
	if !hmac.Equal(want, ts.MAC) {
		return rrdata.TSIG{}, nil, ErrTSIGBadSig
	}

	diff := now.UTC().Unix() - int64(ts.TimeSigned)
	if diff < 0 {
		diff = -diff
	}
	if diff > int64(ts.Fudge) {
		return rrdata.TSIG{}, nil, ErrTSIGBadTime
	}
	return ts, stripped, nil
}

// SignContinuation signs a non-first envelope of a multi-message exchange.
// The digest chains from the prior envelope's MAC and covers only the time
// and fudge variables (RFC 8945 §5.3.1).
func SignContinuation(msg []byte, key TSIGKey, now time.Time, fudge uint16, priorMAC []byte) ([]byte, error) {
	if len(msg) < headerLen {
		return nil, fmt.Errorf("message too short to sign")
	}
	ts := rrdata.TSIG{
		Algorithm:  key.Algorithm,
		TimeSigned: uint64(now.UTC().Unix()),
		Fudge:      fudge,
		OriginalID: binary.BigEndian.Uint16(msg[0:2]),
	}
	h, err := hmacNew(key.Algorithm, key.Secret)
	if err != nil {
		return nil, err
	}
	var prefix []byte
	prefix = appendU16(prefix, uint16(len(priorMAC)))
	h.Write(prefix)
	h.Write(priorMAC)
	h.Write(msg)
	var timers []byte
	timers = appendU48(timers, ts.TimeSigned)
	timers = appendU16(timers, ts.Fudge)
	h.Write(timers)
	ts.MAC = h.Sum(nil)

	rd, err := ts.Encode()
	if err != nil {
		return nil, err
	}
	signed := make([]byte, len(msg), len(msg)+len(rd)+32)
	copy(signed, msg)
	if signed, err = dnsname.Append(signed, key.Name, nil); err != nil {
		return nil, err
	}
	signed = appendU16(signed, uint16(domain.RRTypeTSIG))
	signed = appendU16(signed, uint16(domain.RRClassANY))
	signed = appendU32(signed, 0)
	signed = appendU16(signed, uint16(len(rd)))
	signed = append(signed, rd...)

	arCount := binary.BigEndian.Uint16(signed[10:12])
	binary.BigEndian.PutUint16(signed[10:12], arCount+1)
	return signed, nil
}

// VerifyContinuation checks the TSIG on a non-first envelope of a
// multi-message exchange such as a zone transfer. Continuation digests
// cover the prior envelope's MAC, the message, and only the time and fudge
// variables (RFC 8945 §5.3.1).
func VerifyContinuation(msg []byte, key TSIGKey, now time.Time, priorMAC []byte) (rrdata.TSIG, []byte, error) {
	start, raw, err := findTrailingTSIG(msg)
	if err != nil {
		return rrdata.TSIG{}, nil, err
	}
	if !dnsname.Equal(raw.name, key.Name) {
		return rrdata.TSIG{}, nil, fmt.Errorf("%w: key %q", ErrTSIGBadKey, raw.name)
	}
	norm, _, err := rrdata.Decode(domain.RRTypeTSIG, msg, raw.rdOff, raw.rdEnd)
	if err != nil {
		return rrdata.TSIG{}, nil, err
	}
	ts, err := rrdata.ParseTSIG(norm)
	if err != nil {
		return rrdata.TSIG{}, nil, err
	}

	stripped := make([]byte, start)
	copy(stripped, msg[:start])
	binary.BigEndian.PutUint16(stripped[0:2], ts.OriginalID)
	arCount := binary.BigEndian.Uint16(stripped[10:12])
	if arCount == 0 {
		return rrdata.TSIG{}, nil, fmt.Errorf("tsig: ARCOUNT already zero")
	}
	binary.BigEndian.PutUint16(stripped[10:12], arCount-1)

	h, err := hmacNew(key.Algorithm, key.Secret)
	if err != nil {
		return rrdata.TSIG{}, nil, err
	}
	var prefix []byte
	prefix = appendU16(prefix, uint16(len(priorMAC)))
	h.Write(prefix)
	h.Write(priorMAC)
	h.Write(stripped)
	var timers []byte
	timers = appendU48(timers, ts.TimeSigned)
	timers = appendU16(timers, ts.Fudge)
	h.Write(timers)

	if !hmac.Equal(h.Sum(nil), ts.MAC) {
		return rrdata.TSIG{}, nil, ErrTSIGBadSig
	}
	diff := now.UTC().Unix() - int64(ts.TimeSigned)
	if diff < 0 {
		diff = -diff
	}
	if diff > int64(ts.Fudge) {
		return rrdata.TSIG{}, nil, ErrTSIGBadTime
	}
	return ts, stripped, nil
}

// computeMAC digests the optional request MAC, the unsigned message, and the
// TSIG variables block (RFC 8945 §4.3).
func computeMAC(msg []byte, key TSIGKey, ts rrdata.TSIG, requestMAC []byte) ([]byte, error) {
	h, err := hmacNew(key.Algorithm, key.Secret)
	if err != nil {
		return nil, err
	}
	if len(requestMAC) > 0 {
		var prefix []byte
		prefix = appendU16(prefix, uint16(len(requestMAC)))
		h.Write(prefix)
		h.Write(requestMAC)
	}
	h.Write(msg)

	vars, err := dnsname.AppendCanonical(nil, key.Name)
	if err != nil {
		return nil, err
	}
	vars = appendU16(vars, uint16(domain.RRClassANY))
	vars = appendU32(vars, 0)
	if vars, err = ts.VariablesTo(vars); err != nil {
		return nil, err
	}
	h.Write(vars)
	return h.Sum(nil), nil
}

// RequestMAC returns the MAC carried by the trailing TSIG of a signed
// message. A signer keeps it to chain into the verification of the
// response.
func RequestMAC(signed []byte) ([]byte, error) {
	_, raw, err := findTrailingTSIG(signed)
	if err != nil {
		return nil, err
	}
	norm, _, err := rrdata.Decode(domain.RRTypeTSIG, signed, raw.rdOff, raw.rdEnd)
	if err != nil {
		return nil, err
	}
	ts, err := rrdata.ParseTSIG(norm)
	if err != nil {
		return nil, err
	}
	return ts.MAC, nil
}

// findTrailingTSIG walks the message and returns the byte offset and
// envelope of the final additional record, which must be a TSIG.
func findTrailingTSIG(msg []byte) (int, rawRecord, error) {
	if len(msg) < headerLen {
		return 0, rawRecord{}, fmt.Errorf("message too short")
	}
	qdCount := int(binary.BigEndian.Uint16(msg[4:6]))
	rrCount := int(binary.BigEndian.Uint16(msg[6:8])) +
		int(binary.BigEndian.Uint16(msg[8:10]))
	arCount := int(binary.BigEndian.Uint16(msg[10:12]))
	if arCount == 0 {
		return 0, rawRecord{}, ErrTSIGMissing
	}

	off := headerLen
	for i := 0; i < qdCount; i++ {
		_, next, err := decodeQuestion(msg, off)
		if err != nil {
			return 0, rawRecord{}, err
		}
		off = next
	}
	var start int
	var raw rawRecord
	for i := 0; i < rrCount+arCount; i++ {
		start = off
		var err error
		raw, off, err = decodeRawRecord(msg, off)
		if err != nil {
			return 0, rawRecord{}, err
		}
	}
	if raw.rtype != domain.RRTypeTSIG {
		return 0, rawRecord{}, ErrTSIGMissing
	}
	return start, raw, nil
}
