package rrdata

import (
	"fmt"
	"sort"
	"strings"

	"github.com/haukened/rec-dns/internal/dns/domain"
)

// NSEC is the parsed form of a next-secure record (RFC 4034 §4).
type NSEC struct {
	NextDomain string
	Types      []domain.RRType
}

// Covers reports whether the record's type bitmap asserts existence of t at
// the owner name.
func (n NSEC) Covers(t domain.RRType) bool {
	for _, have := range n.Types {
		if have == t {
			return true
		}
	}
	return false
}

// ParseNSEC parses normalized NSEC RDATA into its fields.
func ParseNSEC(data []byte) (NSEC, error) {
	r, err := newReader(data, 0, len(data))
	if err != nil {
		return NSEC{}, err
	}
	var nsec NSEC
	if nsec.NextDomain, err = r.name(); err != nil {
		return NSEC{}, fmt.Errorf("nsec next domain: %w", err)
	}
	if nsec.Types, err = decodeTypeBitmap(r.rest()); err != nil {
		return NSEC{}, err
	}
	return nsec, nil
}

// decodeNSECData decodes an NSEC record: the next owner name in canonical
// zone order followed by the type bitmap.
func decodeNSECData(r *reader) ([]byte, string, error) {
	next, err := r.name()
	if err != nil {
		return nil, "", fmt.Errorf("nsec next domain: %w", err)
	}
	bitmap := r.rest()
	types, err := decodeTypeBitmap(bitmap)
	if err != nil {
		return nil, "", err
	}

	data, err := appendName(nil, next)
	if err != nil {
		return nil, "", err
	}
	data = append(data, bitmap...)
	return data, typeBitmapText(next, types), nil
}

// encodeNSECData encodes "nextdomain TYPE TYPE ...".
func encodeNSECData(text string) ([]byte, error) {
	parts := strings.Fields(text)
	if len(parts) < 1 {
		return nil, fmt.Errorf("expected at least the next domain name")
	}
	data, err := appendName(nil, parts[0])
	if err != nil {
		return nil, fmt.Errorf("invalid next domain: %w", err)
	}
	types, err := typesFromStrings(parts[1:])
	if err != nil {
		return nil, err
	}
	return append(data, encodeTypeBitmap(types)...), nil
}

// decodeTypeBitmap expands the windowed type bitmap of RFC 4034 §4.1.2.
func decodeTypeBitmap(b []byte) ([]domain.RRType, error) {
	var types []domain.RRType
	for len(b) > 0 {
		if len(b) < 2 {
			return nil, fmt.Errorf("%w: truncated bitmap window header", ErrBadRData)
		}
		window := int(b[0])
		length := int(b[1])
		if length < 1 || length > 32 {
			return nil, fmt.Errorf("%w: bitmap window length %d out of range", ErrBadRData, length)
		}
		if len(b) < 2+length {
			return nil, fmt.Errorf("%w: truncated bitmap window", ErrBadRData)
		}
		for i, octet := range b[2 : 2+length] {
			for bit := 0; bit < 8; bit++ {
				if octet&(0x80>>bit) != 0 {
					types = append(types, domain.RRType(window*256+i*8+bit))
				}
			}
		}
		b = b[2+length:]
	}
	return types, nil
}

// encodeTypeBitmap packs types into windowed bitmap form. Input order does
// not matter; the output windows are ascending with trailing zero octets
// trimmed as the RFC requires.
func encodeTypeBitmap(types []domain.RRType) []byte {
	if len(types) == 0 {
		return nil
	}
	sorted := make([]domain.RRType, len(types))
	copy(sorted, types)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var out []byte
	var window = -1
	var bits [32]byte
	var maxOctet int
	flush := func() {
		if window >= 0 {
			out = append(out, byte(window), byte(maxOctet+1))
			out = append(out, bits[:maxOctet+1]...)
		}
		bits = [32]byte{}
		maxOctet = 0
	}
	for _, t := range sorted {
		w := int(t) / 256
		if w != window {
			flush()
			window = w
		}
		octet := int(t) % 256 / 8
		bits[octet] |= 0x80 >> (uint(t) % 8)
		if octet > maxOctet {
			maxOctet = octet
		}
	}
	flush()
	return out
}

func typeBitmapText(next string, types []domain.RRType) string {
	parts := make([]string, 0, len(types)+1)
	if next == "" {
		next = "."
	}
	parts = append(parts, next)
	for _, t := range types {
		parts = append(parts, t.String())
	}
	return strings.Join(parts, " ")
}

func typesFromStrings(tokens []string) ([]domain.RRType, error) {
	types := make([]domain.RRType, 0, len(tokens))
	for _, tok := range tokens {
		t := domain.RRTypeFromString(tok)
		if t == 0 {
			return nil, fmt.Errorf("unknown record type %q", tok)
		}
		types = append(types, t)
	}
	return types, nil
}
