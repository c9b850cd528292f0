package rrdata

import (
	"fmt"
	"strconv"
)

// decodeNAPTRData decodes a NAPTR record (RFC 3403): order, preference,
// three character-strings, and the replacement name.
func decodeNAPTRData(r *reader) ([]byte, string, error) {
	nums, err := r.bytes(4)
	if err != nil {
		return nil, "", err
	}
	flags, err := r.charString()
	if err != nil {
		return nil, "", fmt.Errorf("naptr flags: %w", err)
	}
	services, err := r.charString()
	if err != nil {
		return nil, "", fmt.Errorf("naptr services: %w", err)
	}
	regexp, err := r.charString()
	if err != nil {
		return nil, "", fmt.Errorf("naptr regexp: %w", err)
	}
	replacement, err := r.name()
	if err != nil {
		return nil, "", fmt.Errorf("naptr replacement: %w", err)
	}

	data := nums
	data, _ = appendCharString(data, flags)
	data, _ = appendCharString(data, services)
	data, _ = appendCharString(data, regexp)
	if data, err = appendName(data, replacement); err != nil {
		return nil, "", err
	}

	order := uint16(nums[0])<<8 | uint16(nums[1])
	pref := uint16(nums[2])<<8 | uint16(nums[3])
	repl := replacement
	if repl == "" {
		repl = "."
	}
	text := fmt.Sprintf("%d %d %s %s %s %s",
		order, pref, quoteText(flags), quoteText(services), quoteText(regexp), repl)
	return data, text, nil
}

// encodeNAPTRData encodes `order preference "flags" "services" "regexp" replacement`.
func encodeNAPTRData(text string) ([]byte, error) {
	fields, err := splitQuoted(text)
	if err != nil {
		return nil, err
	}
	if len(fields) != 6 {
		return nil, fmt.Errorf("expected 6 fields, got %d", len(fields))
	}
	var data []byte
	for i := 0; i < 2; i++ {
		v, err := strconv.ParseUint(fields[i], 10, 16)
		if err != nil {
			return nil, fmt.Errorf("invalid field %q: %w", fields[i], err)
		}
		data = appendU16(data, uint16(v))
	}
	for i := 2; i < 5; i++ {
		if data, err = appendCharString(data, []byte(fields[i])); err != nil {
			return nil, err
		}
	}
	return appendName(data, fields[5])
}
