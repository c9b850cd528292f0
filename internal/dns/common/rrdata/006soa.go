package rrdata

import (
	"fmt"
	"strconv"
	"strings"
)

// SOA is the parsed form of a start-of-authority record. Minimum doubles as
// the negative-caching TTL (RFC 2308).
type SOA struct {
	MName   string
	RName   string
	Serial  uint32
	Refresh uint32
	Retry   uint32
	Expire  uint32
	Minimum uint32
}

// ParseSOA parses normalized SOA RDATA into its fields.
func ParseSOA(data []byte) (SOA, error) {
	r, err := newReader(data, 0, len(data))
	if err != nil {
		return SOA{}, err
	}
	var soa SOA
	if soa.MName, err = r.name(); err != nil {
		return SOA{}, fmt.Errorf("soa mname: %w", err)
	}
	if soa.RName, err = r.name(); err != nil {
		return SOA{}, fmt.Errorf("soa rname: %w", err)
	}
	for _, field := range []*uint32{&soa.Serial, &soa.Refresh, &soa.Retry, &soa.Expire, &soa.Minimum} {
		if *field, err = r.u32(); err != nil {
			return SOA{}, err
		}
	}
	return soa, nil
}

// decodeSOAData decodes an SOA record: two names followed by five uint32s.
func decodeSOAData(r *reader) ([]byte, string, error) {
	mname, err := r.name()
	if err != nil {
		return nil, "", fmt.Errorf("soa mname: %w", err)
	}
	rname, err := r.name()
	if err != nil {
		return nil, "", fmt.Errorf("soa rname: %w", err)
	}
	nums, err := r.bytes(20)
	if err != nil {
		return nil, "", fmt.Errorf("soa counters: %w", err)
	}

	data, err := appendName(nil, mname)
	if err != nil {
		return nil, "", err
	}
	if data, err = appendName(data, rname); err != nil {
		return nil, "", err
	}
	data = append(data, nums...)

	soa, err := ParseSOA(data)
	if err != nil {
		return nil, "", err
	}
	text := fmt.Sprintf("%s %s %d %d %d %d %d",
		mname, rname, soa.Serial, soa.Refresh, soa.Retry, soa.Expire, soa.Minimum)
	return data, text, nil
}

// encodeSOAData encodes "mname rname serial refresh retry expire minimum".
func encodeSOAData(text string) ([]byte, error) {
	parts := strings.Fields(text)
	if len(parts) != 7 {
		return nil, fmt.Errorf("expected 7 fields, got %d", len(parts))
	}
	data, err := appendName(nil, parts[0])
	if err != nil {
		return nil, fmt.Errorf("invalid mname: %w", err)
	}
	if data, err = appendName(data, parts[1]); err != nil {
		return nil, fmt.Errorf("invalid rname: %w", err)
	}
	for i := 2; i < 7; i++ {
		v, err := strconv.ParseUint(parts[i], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid counter %q: %w", parts[i], err)
		}
		data = appendU32(data, uint32(v))
	}
	return data, nil
}
