// Package rrcache is the TTL-aware answer cache. It stores RRsets together
// with their validation verdict, and negative answers (NXDOMAIN and NODATA)
// under the SOA-derived TTL of RFC 2308.
package rrcache

import (
	"errors"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/haukened/rec-dns/internal/dns/common/clock"
	"github.com/haukened/rec-dns/internal/dns/common/rrdata"
	"github.com/haukened/rec-dns/internal/dns/domain"
	"github.com/haukened/rec-dns/internal/dns/services/resolver"
)

var (
	ErrMultipleKeys = errors.New("multiple records with different keys provided")
)

// entry is one cached answer: either a positive RRset or a negative result
// holding the SOA that authorized it.
type entry struct {
	records   []domain.ResourceRecord
	verdict   domain.Verdict
	negative  bool
	rcode     domain.RCode
	expiresAt time.Time // negative entries only; positive records age themselves
}

// RRCache is an in-memory LRU of answers keyed by name|type|class. Each key
// holds a whole RRset, since an answer usually carries several records.
type RRCache struct {
	lru   *lru.Cache[string, entry]
	clock clock.Clock
}

// New returns an RRCache of the given size. A nil clock uses wall time.
func New(size int, clk clock.Clock) (*RRCache, error) {
	if clk == nil {
		clk = clock.RealClock{}
	}
	cache, err := lru.New[string, entry](size)
	if err != nil {
		return nil, err
	}
	return &RRCache{lru: cache, clock: clk}, nil
}

// Set replaces the cached RRset for the records' shared key. All records must
// carry the same key. Records already expired, or with a zero TTL, are not
// stored; if nothing survives the set is a no-op.
func (c *RRCache) Set(records []domain.ResourceRecord, verdict domain.Verdict) error {
	if len(records) == 0 {
		return nil
	}
	key := records[0].CacheKey()
	for _, record := range records {
		if record.CacheKey() != key {
			return ErrMultipleKeys
		}
	}
	now := c.clock.Now()
	var live []domain.ResourceRecord
	for _, record := range records {
		if record.TTL(now) > 0 {
			live = append(live, record)
		}
	}
	if len(live) == 0 {
		return nil
	}
	c.lru.Add(key, entry{records: live, verdict: verdict})
	return nil
}

// SetNegative caches a negative answer for q. The lifetime is the lesser of
// the SOA's TTL and its MINIMUM field (RFC 2308 §5). soa may be the zero
// record when the response carried none, in which case nothing is cached.
func (c *RRCache) SetNegative(q domain.Question, rcode domain.RCode, soa domain.ResourceRecord, verdict domain.Verdict) error {
	if soa.Type != domain.RRTypeSOA {
		return nil
	}
	parsed, err := rrdata.ParseSOA(soa.Data)
	if err != nil {
		return err
	}
	now := c.clock.Now()
	ttl := soa.TTL(now)
	if parsed.Minimum < ttl {
		ttl = parsed.Minimum
	}
	if ttl == 0 {
		return nil
	}
	c.lru.Add(q.CacheKey(), entry{
		records:   []domain.ResourceRecord{soa},
		verdict:   verdict,
		negative:  true,
		rcode:     rcode,
		expiresAt: now.Add(time.Duration(ttl) * time.Second),
	})
	return nil
}

// Get retrieves the live records for key, dropping any that expired since
// they were stored. The second result reports a hit.
func (c *RRCache) Get(key string) ([]domain.ResourceRecord, domain.Verdict, bool) {
	e, found := c.lru.Get(key)
	if !found || e.negative {
		return nil, domain.VerdictIndeterminate, false
	}
	now := c.clock.Now()
	var live []domain.ResourceRecord
	for _, record := range e.records {
		if !record.IsExpiredAt(now) {
			live = append(live, record)
		}
	}
	if len(live) == 0 {
		c.lru.Remove(key)
		return nil, domain.VerdictIndeterminate, false
	}
	e.records = live
	c.lru.Add(key, e)
	return live, e.verdict, true
}

// GetNegative reports whether a live negative answer is cached for key,
// returning its rcode, the authorizing SOA and the verdict.
func (c *RRCache) GetNegative(key string) (domain.RCode, domain.ResourceRecord, domain.Verdict, bool) {
	e, found := c.lru.Get(key)
	if !found || !e.negative {
		return 0, domain.ResourceRecord{}, domain.VerdictIndeterminate, false
	}
	if c.clock.Now().After(e.expiresAt) {
		c.lru.Remove(key)
		return 0, domain.ResourceRecord{}, domain.VerdictIndeterminate, false
	}
	return e.rcode, e.records[0], e.verdict, true
}

// Delete removes the entry for the given key.
func (c *RRCache) Delete(key string) {
	c.lru.Remove(key)
}

// Purge drops every entry.
func (c *RRCache) Purge() {
	c.lru.Purge()
}

// Len returns the number of keys currently stored. Each key may hold
// multiple records.
func (c *RRCache) Len() int {
	return c.lru.Len()
}

// Keys returns a slice of all current cache keys.
func (c *RRCache) Keys() []string {
	return c.lru.Keys()
}

var _ resolver.Cache = (*RRCache)(nil)
