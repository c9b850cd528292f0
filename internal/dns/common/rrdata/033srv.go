package rrdata

import (
	"fmt"
	"math/rand"
	"sort"
	"strconv"
	"strings"
)

// SRV is the parsed form of a service locator record (RFC 2782).
type SRV struct {
	Priority uint16
	Weight   uint16
	Port     uint16
	Target   string
}

// ParseSRV parses normalized SRV RDATA into its fields.
func ParseSRV(data []byte) (SRV, error) {
	r, err := newReader(data, 0, len(data))
	if err != nil {
		return SRV{}, err
	}
	var srv SRV
	for _, field := range []*uint16{&srv.Priority, &srv.Weight, &srv.Port} {
		if *field, err = r.u16(); err != nil {
			return SRV{}, err
		}
	}
	if srv.Target, err = r.name(); err != nil {
		return SRV{}, err
	}
	return srv, nil
}

// SortSRV orders targets for connection attempts per RFC 2782: ascending
// priority, and within a priority a weighted random selection where heavier
// targets are proportionally more likely to come first.
func SortSRV(srvs []SRV, rng *rand.Rand) {
	sort.SliceStable(srvs, func(i, j int) bool { return srvs[i].Priority < srvs[j].Priority })
	for lo := 0; lo < len(srvs); {
		hi := lo
		for hi < len(srvs) && srvs[hi].Priority == srvs[lo].Priority {
			hi++
		}
		weightedShuffle(srvs[lo:hi], rng)
		lo = hi
	}
}

func weightedShuffle(group []SRV, rng *rand.Rand) {
	for i := 0; i < len(group)-1; i++ {
		total := 0
		for _, s := range group[i:] {
			total += int(s.Weight)
		}
		if total == 0 {
			rng.Shuffle(len(group)-i, func(a, b int) {
				group[i+a], group[i+b] = group[i+b], group[i+a]
			})
			return
		}
		pick := rng.Intn(total + 1)
		running := 0
		for j := i; j < len(group); j++ {
			running += int(group[j].Weight)
			if running >= pick {
				group[i], group[j] = group[j], group[i]
				break
			}
		}
	}
}

// decodeSRVData decodes an SRV record: priority, weight, port, target name.
func decodeSRVData(r *reader) ([]byte, string, error) {
	nums, err := r.bytes(6)
	if err != nil {
		return nil, "", err
	}
	target, err := r.name()
	if err != nil {
		return nil, "", fmt.Errorf("srv target: %w", err)
	}
	data, err := appendName(nums, target)
	if err != nil {
		return nil, "", err
	}
	srv, err := ParseSRV(data)
	if err != nil {
		return nil, "", err
	}
	return data, fmt.Sprintf("%d %d %d %s", srv.Priority, srv.Weight, srv.Port, target), nil
}

// encodeSRVData encodes "priority weight port target".
func encodeSRVData(text string) ([]byte, error) {
	parts := strings.Fields(text)
	if len(parts) != 4 {
		return nil, fmt.Errorf("expected 4 fields, got %d", len(parts))
	}
	var data []byte
	for i := 0; i < 3; i++ {
		v, err := strconv.ParseUint(parts[i], 10, 16)
		if err != nil {
			return nil, fmt.Errorf("invalid field %q: %w", parts[i], err)
		}
		data = appendU16(data, uint16(v))
	}
	return appendName(data, parts[3])
}
