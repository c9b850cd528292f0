// Package nscache caches delegation points: for each zone cut the resolver
// has learned, the set of nameserver addresses serving it. Lookups walk the
// longest matching suffix so a query for deep.www.example.com reuses the
// example.com delegation instead of starting over at the root.
package nscache

import (
	"math/rand"
	"net"
	"sync"
	"time"

	"github.com/haukened/rec-dns/internal/dns/common/clock"
	"github.com/haukened/rec-dns/internal/dns/common/dnsname"
	"github.com/haukened/rec-dns/internal/dns/domain"
	"github.com/haukened/rec-dns/internal/dns/services/resolver"
)

type delegation struct {
	servers   []domain.NameServer
	expiresAt time.Time
}

// NSCache is an in-memory map of zone cuts to their nameserver addresses,
// safe for concurrent use.
type NSCache struct {
	clock clock.Clock

	rngMu sync.Mutex
	rng   *rand.Rand

	mu    sync.RWMutex
	zones map[string]delegation
}

// New creates an NSCache. A nil clock uses wall time; a nil rng seeds one
// from it.
func New(clk clock.Clock, rng *rand.Rand) *NSCache {
	if clk == nil {
		clk = clock.RealClock{}
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &NSCache{
		clock: clk,
		rng:   rng,
		zones: make(map[string]delegation),
	}
}

// Put replaces the delegation for zone. The entry lives for ttl; a zero ttl
// is a no-op. Servers are stored as given; Best orders them on the way out.
func (c *NSCache) Put(zone string, servers []domain.NameServer, ttl uint32) {
	if len(servers) == 0 || ttl == 0 {
		return
	}
	zone = dnsname.Canonical(zone)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.zones[zone] = delegation{
		servers:   append([]domain.NameServer(nil), servers...),
		expiresAt: c.clock.Now().Add(time.Duration(ttl) * time.Second),
	}
}

// Best returns the deepest cached delegation enclosing name, together with
// the zone it belongs to. Servers come back grouped by address family with
// IPv6 first, shuffled within each group so load spreads across a zone's
// nameservers. Misses everywhere return ok=false; the caller falls back to
// its root hints.
func (c *NSCache) Best(name string) (string, []domain.NameServer, bool) {
	name = dnsname.Canonical(name)
	c.mu.RLock()
	defer c.mu.RUnlock()

	now := c.clock.Now()
	zone := name
	for {
		if d, found := c.zones[zone]; found && now.Before(d.expiresAt) {
			return zone, c.ordered(d.servers), true
		}
		parent, ok := dnsname.Parent(zone)
		if !ok {
			return "", nil, false
		}
		zone = parent
	}
}

// ordered partitions servers by family, IPv6 before IPv4, and shuffles each
// partition. The stored slice is left untouched.
func (c *NSCache) ordered(servers []domain.NameServer) []domain.NameServer {
	var v6, v4 []domain.NameServer
	for _, s := range servers {
		if isIPv6(s.Addr) {
			v6 = append(v6, s)
		} else {
			v4 = append(v4, s)
		}
	}
	c.shuffle(v6)
	c.shuffle(v4)
	return append(v6, v4...)
}

// shuffle randomizes server order; rand.Rand is not safe for concurrent
// use, so it carries its own lock.
func (c *NSCache) shuffle(servers []domain.NameServer) {
	c.rngMu.Lock()
	defer c.rngMu.Unlock()
	c.rng.Shuffle(len(servers), func(i, j int) { servers[i], servers[j] = servers[j], servers[i] })
}

// isIPv6 reports whether addr, a host:port pair, carries an IPv6 address.
func isIPv6(addr string) bool {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return false
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.To4() == nil
}

// Remove drops the delegation for zone, if cached. The resolver calls this
// when every server of a delegation turned out to be lame.
func (c *NSCache) Remove(zone string) {
	zone = dnsname.Canonical(zone)
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.zones, zone)
}

// Zones returns all zone cuts currently cached, expired or not.
func (c *NSCache) Zones() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	zones := make([]string, 0, len(c.zones))
	for zone := range c.zones {
		zones = append(zones, zone)
	}
	return zones
}

// Prune drops every expired delegation and reports how many were removed.
func (c *NSCache) Prune() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.clock.Now()
	removed := 0
	for zone, d := range c.zones {
		if !now.Before(d.expiresAt) {
			delete(c.zones, zone)
			removed++
		}
	}
	return removed
}

var _ resolver.DelegationCache = (*NSCache)(nil)
