package rrdata

import "fmt"

// decodeHINFOData decodes a HINFO record: two character-strings (CPU, OS).
func decodeHINFOData(r *reader) ([]byte, string, error) {
	cpu, err := r.charString()
	if err != nil {
		return nil, "", fmt.Errorf("hinfo cpu: %w", err)
	}
	os, err := r.charString()
	if err != nil {
		return nil, "", fmt.Errorf("hinfo os: %w", err)
	}
	data, _ := appendCharString(nil, cpu)
	data, _ = appendCharString(data, os)
	return data, quoteText(cpu) + " " + quoteText(os), nil
}

// encodeHINFOData encodes `"cpu" "os"`.
func encodeHINFOData(text string) ([]byte, error) {
	fields, err := splitQuoted(text)
	if err != nil {
		return nil, err
	}
	if len(fields) != 2 {
		return nil, fmt.Errorf("expected 2 fields, got %d", len(fields))
	}
	data, err := appendCharString(nil, []byte(fields[0]))
	if err != nil {
		return nil, err
	}
	return appendCharString(data, []byte(fields[1]))
}
