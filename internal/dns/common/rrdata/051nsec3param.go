package rrdata

import (
	"fmt"
	"strings"
)

// ParseNSEC3PARAM parses normalized NSEC3PARAM RDATA. The result carries no
// hashed owner or type bitmap, only the hashing parameters.
func ParseNSEC3PARAM(data []byte) (NSEC3, error) {
	r, err := newReader(data, 0, len(data))
	if err != nil {
		return NSEC3{}, err
	}
	n, err := parseNSEC3Fields(r, false)
	if err != nil {
		return NSEC3{}, err
	}
	if !r.empty() {
		return NSEC3{}, fmt.Errorf("%w: trailing octets after NSEC3PARAM", ErrBadRData)
	}
	return n, nil
}

// decodeNSEC3PARAMData decodes an NSEC3PARAM record (RFC 5155 §4).
func decodeNSEC3PARAMData(r *reader) ([]byte, string, error) {
	start := r.off
	n, err := parseNSEC3Fields(r, false)
	if err != nil {
		return nil, "", err
	}
	data := make([]byte, r.off-start)
	copy(data, r.msg[start:r.off])
	text := fmt.Sprintf("%d %d %d %s", n.HashAlg, n.Flags, n.Iterations, saltText(n.Salt))
	return data, text, nil
}

// encodeNSEC3PARAMData encodes "alg flags iterations salt".
func encodeNSEC3PARAMData(text string) ([]byte, error) {
	parts := strings.Fields(text)
	if len(parts) != 4 {
		return nil, fmt.Errorf("expected 4 fields, got %d", len(parts))
	}
	return encodeNSEC3Header(parts)
}
