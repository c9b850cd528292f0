package rrdata

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// decodeTLSAData decodes a TLSA record (RFC 6698): usage, selector, matching
// type, certificate association data.
func decodeTLSAData(r *reader) ([]byte, string, error) {
	header, err := r.bytes(3)
	if err != nil {
		return nil, "", err
	}
	assoc := r.rest()
	if len(assoc) == 0 {
		return nil, "", fmt.Errorf("%w: TLSA association data is empty", ErrBadRData)
	}
	data := append(header, assoc...)
	text := fmt.Sprintf("%d %d %d %s",
		header[0], header[1], header[2], strings.ToUpper(hex.EncodeToString(assoc)))
	return data, text, nil
}

// encodeTLSAData encodes "usage selector matchingtype hexdata".
func encodeTLSAData(text string) ([]byte, error) {
	parts := strings.Fields(text)
	if len(parts) < 4 {
		return nil, fmt.Errorf("expected 4 fields, got %d", len(parts))
	}
	var header [3]byte
	for i := 0; i < 3; i++ {
		v, err := strconv.ParseUint(parts[i], 10, 8)
		if err != nil {
			return nil, fmt.Errorf("invalid field %q: %w", parts[i], err)
		}
		header[i] = uint8(v)
	}
	assoc, err := hex.DecodeString(strings.Join(parts[3:], ""))
	if err != nil {
		return nil, fmt.Errorf("invalid association data: %w", err)
	}
	return append(header[:], assoc...), nil
}
