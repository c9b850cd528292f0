package rrdata

import (
	"fmt"
	"math/rand"
	"sort"
	"strconv"
	"strings"
)

// MX is the parsed form of a mail exchange record.
type MX struct {
	Preference uint16
	Exchange   string
}

// ParseMX parses normalized MX RDATA into its fields.
func ParseMX(data []byte) (MX, error) {
	r, err := newReader(data, 0, len(data))
	if err != nil {
		return MX{}, err
	}
	var mx MX
	if mx.Preference, err = r.u16(); err != nil {
		return MX{}, err
	}
	if mx.Exchange, err = r.name(); err != nil {
		return MX{}, err
	}
	return mx, nil
}

// SortMX orders exchanges by ascending preference, shuffling ties so equal
// servers share the load (RFC 5321 §5.1).
func SortMX(mxs []MX, rng *rand.Rand) {
	rng.Shuffle(len(mxs), func(i, j int) { mxs[i], mxs[j] = mxs[j], mxs[i] })
	sort.SliceStable(mxs, func(i, j int) bool { return mxs[i].Preference < mxs[j].Preference })
}

// decodeMXData decodes an MX record: preference then exchange name.
func decodeMXData(r *reader) ([]byte, string, error) {
	pref, err := r.u16()
	if err != nil {
		return nil, "", err
	}
	exchange, err := r.name()
	if err != nil {
		return nil, "", fmt.Errorf("mx exchange: %w", err)
	}
	data, err := appendName(appendU16(nil, pref), exchange)
	if err != nil {
		return nil, "", err
	}
	return data, fmt.Sprintf("%d %s", pref, exchange), nil
}

// encodeMXData encodes "preference exchange".
func encodeMXData(text string) ([]byte, error) {
	parts := strings.Fields(text)
	if len(parts) != 2 {
		return nil, fmt.Errorf("expected 2 fields, got %d", len(parts))
	}
	pref, err := strconv.ParseUint(parts[0], 10, 16)
	if err != nil {
		return nil, fmt.Errorf("invalid preference %q: %w", parts[0], err)
	}
	return appendName(appendU16(nil, uint16(pref)), parts[1])
}
