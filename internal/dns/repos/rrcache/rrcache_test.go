package rrcache

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haukened/rec-dns/internal/dns/common/clock"
	"github.com/haukened/rec-dns/internal/dns/common/rrdata"
	"github.com/haukened/rec-dns/internal/dns/domain"
)

func cachedA(t *testing.T, name, addr string, ttl uint32, now time.Time) domain.ResourceRecord {
	t.Helper()
	data, err := rrdata.Encode(domain.RRTypeA, addr)
	require.NoError(t, err)
	rr, err := domain.NewCachedResourceRecord(name, domain.RRTypeA, domain.RRClassIN, ttl, data, addr, now)
	require.NoError(t, err)
	return rr
}

func cachedSOA(t *testing.T, zone string, ttl, minimum uint32, now time.Time) domain.ResourceRecord {
	t.Helper()
	textual := "ns1." + zone + " hostmaster." + zone + " 1 7200 3600 1209600 " + strconv.FormatUint(uint64(minimum), 10)
	data, err := rrdata.Encode(domain.RRTypeSOA, textual)
	require.NoError(t, err)
	rr, err := domain.NewCachedResourceRecord(zone, domain.RRTypeSOA, domain.RRClassIN, ttl, data, textual, now)
	require.NoError(t, err)
	return rr
}

func TestSetAndGet(t *testing.T) {
	clk := clock.NewMockClock(time.Now())
	cache, err := New(16, clk)
	require.NoError(t, err)

	rr := cachedA(t, "example.com", "192.0.2.1", 300, clk.Now())
	require.NoError(t, cache.Set([]domain.ResourceRecord{rr}, domain.VerdictSecure))

	got, verdict, found := cache.Get(rr.CacheKey())
	require.True(t, found)
	require.Len(t, got, 1)
	assert.Equal(t, "192.0.2.1", got[0].Text)
	assert.Equal(t, domain.VerdictSecure, verdict)
	assert.Equal(t, 1, cache.Len())
}

func TestGetExpiresRecords(t *testing.T) {
	clk := clock.NewMockClock(time.Now())
	cache, err := New(16, clk)
	require.NoError(t, err)

	rr := cachedA(t, "example.com", "192.0.2.1", 60, clk.Now())
	require.NoError(t, cache.Set([]domain.ResourceRecord{rr}, domain.VerdictUnsigned))

	clk.Advance(61 * time.Second)
	_, _, found := cache.Get(rr.CacheKey())
	assert.False(t, found)
	assert.Equal(t, 0, cache.Len())
}

func TestSetSkipsZeroTTL(t *testing.T) {
	clk := clock.NewMockClock(time.Now())
	cache, err := New(16, clk)
	require.NoError(t, err)

	rr := cachedA(t, "example.com", "192.0.2.1", 0, clk.Now())
	require.NoError(t, cache.Set([]domain.ResourceRecord{rr}, domain.VerdictUnsigned))
	assert.Equal(t, 0, cache.Len())
}

func TestSetRejectsMixedKeys(t *testing.T) {
	clk := clock.NewMockClock(time.Now())
	cache, err := New(16, clk)
	require.NoError(t, err)

	a := cachedA(t, "a.example.com", "192.0.2.1", 300, clk.Now())
	b := cachedA(t, "b.example.com", "192.0.2.2", 300, clk.Now())
	assert.ErrorIs(t, cache.Set([]domain.ResourceRecord{a, b}, domain.VerdictUnsigned), ErrMultipleKeys)
}

func TestNegativeCaching(t *testing.T) {
	clk := clock.NewMockClock(time.Now())
	cache, err := New(16, clk)
	require.NoError(t, err)

	q, err := domain.NewQuestion("missing.example.com", domain.RRTypeA, domain.RRClassIN)
	require.NoError(t, err)
	// SOA TTL 3600 but MINIMUM 30: the negative entry lives 30 seconds.
	soa := cachedSOA(t, "example.com", 3600, 30, clk.Now())
	require.NoError(t, cache.SetNegative(q, domain.RCodeNxDomain, soa, domain.VerdictSecure))

	rcode, gotSOA, verdict, found := cache.GetNegative(q.CacheKey())
	require.True(t, found)
	assert.Equal(t, domain.RCodeNxDomain, rcode)
	assert.Equal(t, domain.RRTypeSOA, gotSOA.Type)
	assert.Equal(t, domain.VerdictSecure, verdict)

	// A negative entry never satisfies a positive lookup.
	_, _, positive := cache.Get(q.CacheKey())
	assert.False(t, positive)

	clk.Advance(31 * time.Second)
	_, _, _, found = cache.GetNegative(q.CacheKey())
	assert.False(t, found)
}

func TestSetNegativeWithoutSOAIsNoOp(t *testing.T) {
	clk := clock.NewMockClock(time.Now())
	cache, err := New(16, clk)
	require.NoError(t, err)

	q, err := domain.NewQuestion("missing.example.com", domain.RRTypeA, domain.RRClassIN)
	require.NoError(t, err)
	require.NoError(t, cache.SetNegative(q, domain.RCodeNxDomain, domain.ResourceRecord{}, domain.VerdictUnsigned))
	assert.Equal(t, 0, cache.Len())
}

func TestDeleteAndPurge(t *testing.T) {
	clk := clock.NewMockClock(time.Now())
	cache, err := New(16, clk)
	require.NoError(t, err)

	rr := cachedA(t, "example.com", "192.0.2.1", 300, clk.Now())
	require.NoError(t, cache.Set([]domain.ResourceRecord{rr}, domain.VerdictUnsigned))
	cache.Delete(rr.CacheKey())
	assert.Equal(t, 0, cache.Len())

	require.NoError(t, cache.Set([]domain.ResourceRecord{rr}, domain.VerdictUnsigned))
	cache.Purge()
	assert.Empty(t, cache.Keys())
}
