package rrdata

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// DS digest algorithm numbers (RFC 4034, RFC 4509, RFC 5933, RFC 6605).
const (
	DigestSHA1   uint8 = 1
	DigestSHA256 uint8 = 2
	DigestSHA384 uint8 = 4
)

// DS is the parsed form of a delegation signer record.
type DS struct {
	KeyTag     uint16
	Algorithm  uint8
	DigestType uint8
	Digest     []byte
}

// ParseDS parses normalized DS RDATA into its fields.
func ParseDS(data []byte) (DS, error) {
	r, err := newReader(data, 0, len(data))
	if err != nil {
		return DS{}, err
	}
	var ds DS
	if ds.KeyTag, err = r.u16(); err != nil {
		return DS{}, err
	}
	if ds.Algorithm, err = r.u8(); err != nil {
		return DS{}, err
	}
	if ds.DigestType, err = r.u8(); err != nil {
		return DS{}, err
	}
	ds.Digest = r.rest()
	if len(ds.Digest) == 0 {
		return DS{}, fmt.Errorf("%w: DS digest is empty", ErrBadRData)
	}
	return ds, nil
}

// decodeDSData decodes a DS record: key tag, algorithm, digest type, digest.
func decodeDSData(r *reader) ([]byte, string, error) {
	data := r.rest()
	ds, err := ParseDS(data)
	if err != nil {
		return nil, "", err
	}
	text := fmt.Sprintf("%d %d %d %s",
		ds.KeyTag, ds.Algorithm, ds.DigestType, strings.ToUpper(hex.EncodeToString(ds.Digest)))
	return data, text, nil
}

// encodeDSData encodes "keytag algorithm digesttype hexdigest".
func encodeDSData(text string) ([]byte, error) {
	parts := strings.Fields(text)
	if len(parts) < 4 {
		return nil, fmt.Errorf("expected 4 fields, got %d", len(parts))
	}
	tag, err := strconv.ParseUint(parts[0], 10, 16)
	if err != nil {
		return nil, fmt.Errorf("invalid key tag %q: %w", parts[0], err)
	}
	alg, err := strconv.ParseUint(parts[1], 10, 8)
	if err != nil {
		return nil, fmt.Errorf("invalid algorithm %q: %w", parts[1], err)
	}
	dt, err := strconv.ParseUint(parts[2], 10, 8)
	if err != nil {
		return nil, fmt.Errorf("invalid digest type %q: %w", parts[2], err)
	}
	digest, err := hex.DecodeString(strings.Join(parts[3:], ""))
	if err != nil {
		return nil, fmt.Errorf("invalid digest: %w", err)
	}
	data := appendU16(nil, uint16(tag))
	data = append(data, uint8(alg), uint8(dt))
	return append(data, digest...), nil
}
