package rrdata

import (
	"fmt"
	"strings"
)

// decodeTXTData decodes a TXT record: one or more character-strings.
func decodeTXTData(r *reader) ([]byte, string, error) {
	if r.empty() {
		return nil, "", fmt.Errorf("%w: TXT rdata must not be empty", ErrBadRData)
	}
	var data []byte
	var parts []string
	for !r.empty() {
		s, err := r.charString()
		if err != nil {
			return nil, "", err
		}
		data, _ = appendCharString(data, s)
		parts = append(parts, quoteText(s))
	}
	return data, strings.Join(parts, " "), nil
}

// encodeTXTData encodes whitespace-separated quoted strings. A single
// unquoted token is accepted as one string.
func encodeTXTData(text string) ([]byte, error) {
	fields, err := splitQuoted(text)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("TXT record must contain at least one string")
	}
	var data []byte
	for _, f := range fields {
		if data, err = appendCharString(data, []byte(f)); err != nil {
			return nil, err
		}
	}
	return data, nil
}
