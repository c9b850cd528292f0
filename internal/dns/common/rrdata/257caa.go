package rrdata

import (
	"fmt"
	"strconv"
	"strings"
)

// decodeCAAData decodes a CAA record (RFC 8659): flags, tag, value.
func decodeCAAData(r *reader) ([]byte, string, error) {
	flags, err := r.u8()
	if err != nil {
		return nil, "", err
	}
	tag, err := r.charString()
	if err != nil {
		return nil, "", fmt.Errorf("caa tag: %w", err)
	}
	if len(tag) == 0 {
		return nil, "", fmt.Errorf("%w: CAA tag is empty", ErrBadRData)
	}
	value := r.rest()

	data := []byte{flags}
	data, _ = appendCharString(data, tag)
	data = append(data, value...)
	text := fmt.Sprintf("%d %s %s", flags, strings.ToLower(string(tag)), quoteText(value))
	return data, text, nil
}

// encodeCAAData encodes `flags tag "value"`.
func encodeCAAData(text string) ([]byte, error) {
	fields, err := splitQuoted(text)
	if err != nil {
		return nil, err
	}
	if len(fields) != 3 {
		return nil, fmt.Errorf("expected 3 fields, got %d", len(fields))
	}
	flags, err := strconv.ParseUint(fields[0], 10, 8)
	if err != nil {
		return nil, fmt.Errorf("invalid flags %q: %w", fields[0], err)
	}
	data := []byte{uint8(flags)}
	if data, err = appendCharString(data, []byte(fields[1])); err != nil {
		return nil, err
	}
	return append(data, fields[2]...), nil
}
