package domain

import (
	"fmt"
	"time"

	"github.com/haukened/rec-dns/internal/dns/common/dnsname"
)

// ResourceRecord is the envelope shared by every record type: owner name,
// type, class, and TTL, plus the typed payload. Data always holds the
// normalized (uncompressed) wire RDATA so that a record is self-contained
// outside its original message; Text holds the zone-file token form.
type ResourceRecord struct {
	Name      string
	Type      RRType
	Class     RRClass
	ttl       uint32
	expiresAt *time.Time // nil if the record does not age (hints, trust anchors)
	Data      []byte     // normalized wire RDATA
	Text      string     // zone-file token representation
}

// NewStaticResourceRecord constructs a non-expiring ResourceRecord, used for
// root hints and trust anchors that the resolver owns for its lifetime.
func NewStaticResourceRecord(name string, rrtype RRType, class RRClass, ttl uint32, data []byte, text string) (ResourceRecord, error) {
	rr := ResourceRecord{
		Name:      dnsname.Canonical(name),
		Type:      rrtype,
		Class:     class,
		ttl:       ttl,
		expiresAt: nil,
		Data:      data,
		Text:      text,
	}
	if err := rr.Validate(); err != nil {
		return ResourceRecord{}, err
	}
	return rr, nil
}

// NewCachedResourceRecord constructs a ResourceRecord whose TTL starts
// decaying at now. The current time is passed in so TTL arithmetic stays
// clock-injected and testable.
func NewCachedResourceRecord(name string, rrtype RRType, class RRClass, ttl uint32, data []byte, text string, now time.Time) (ResourceRecord, error) {
	exp := now.Add(time.Duration(ttl) * time.Second)
	rr := ResourceRecord{
		Name:      dnsname.Canonical(name),
		Type:      rrtype,
		Class:     class,
		ttl:       ttl,
		expiresAt: &exp,
		Data:      data,
		Text:      text,
	}
	if err := rr.Validate(); err != nil {
		return ResourceRecord{}, err
	}
	return rr, nil
}

// Validate checks whether the ResourceRecord fields are valid.
func (rr ResourceRecord) Validate() error {
	if dnsname.EncodedLen(rr.Name) > dnsname.MaxEncodedLen {
		return fmt.Errorf("record name too long: %q", rr.Name)
	}
	if rr.Type == 0 {
		return fmt.Errorf("record type must not be zero")
	}
	if rr.Class == 0 {
		return fmt.Errorf("record class must not be zero")
	}
	if len(rr.Data) > 0xFFFF {
		return fmt.Errorf("record data too large: %d bytes", len(rr.Data))
	}
	return nil
}

// TTL returns the effective TTL at time now. For aging records this is the
// remaining lifetime, clamped at zero; static records report their original TTL.
func (rr ResourceRecord) TTL(now time.Time) uint32 {
	if rr.expiresAt == nil {
		return rr.ttl
	}
	remaining := rr.expiresAt.Sub(now).Seconds()
	if remaining <= 0 {
		return 0
	}
	return uint32(remaining)
}

// OriginalTTL returns the TTL the record carried on the wire, before decay.
func (rr ResourceRecord) OriginalTTL() uint32 {
	return rr.ttl
}

// IsExpiredAt returns true if the record ages and its lifetime has passed.
func (rr ResourceRecord) IsExpiredAt(now time.Time) bool {
	if rr.expiresAt == nil {
		return false
	}
	return now.After(*rr.expiresAt)
}

// CacheKey returns a cache key string derived from the record's name, type, and class.
func (rr ResourceRecord) CacheKey() string {
	return GenerateCacheKey(rr.Name, rr.Type, rr.Class)
}

// String renders the record in zone-file presentation order.
func (rr ResourceRecord) String() string {
	return fmt.Sprintf("%s. %d %s %s %s", rr.Name, rr.ttl, rr.Class, rr.Type, rr.Text)
}

// GenerateCacheKey returns a consistent cache key derived from a DNS name,
// type, and class. The pipe separator avoids conflicts with colons in IPv6
// addresses embedded in record text.
func GenerateCacheKey(name string, t RRType, c RRClass) string {
	return dnsname.Canonical(name) + "|" + t.String() + "|" + c.String()
}

// MinTTL returns the smallest effective TTL across records at time now; an
// RRset is cached under the minimum of its members' TTLs. Returns 0 for an
// empty set.
func MinTTL(records []ResourceRecord, now time.Time) uint32 {
	if len(records) == 0 {
		return 0
	}
	min := records[0].TTL(now)
	for _, rr := range records[1:] {
		if ttl := rr.TTL(now); ttl < min {
			min = ttl
		}
	}
	return min
}
