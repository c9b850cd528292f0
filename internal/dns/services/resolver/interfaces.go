package resolver

import (
	"context"

	"github.com/haukened/rec-dns/internal/dns/common/rrdata"
	"github.com/haukened/rec-dns/internal/dns/domain"
)

// Exchanger sends one question to a list of servers and returns the first
// usable response. The client gateway implements this.
type Exchanger interface {
	Exchange(ctx context.Context, q domain.Question, servers []string) (*domain.Message, error)
}

// Cache stores validated answers, positive and negative, keyed by
// name|type|class.
type Cache interface {
	Get(key string) ([]domain.ResourceRecord, domain.Verdict, bool)
	GetNegative(key string) (domain.RCode, domain.ResourceRecord, domain.Verdict, bool)
	Set(records []domain.ResourceRecord, verdict domain.Verdict) error
	SetNegative(q domain.Question, rcode domain.RCode, soa domain.ResourceRecord, verdict domain.Verdict) error
	Purge()
}

// DelegationCache remembers which nameservers serve which zone cuts.
type DelegationCache interface {
	Put(zone string, servers []domain.NameServer, ttl uint32)
	Best(name string) (string, []domain.NameServer, bool)
	Remove(zone string)
}

// HintSource supplies the bootstrap root servers and the DNSSEC trust
// anchors. Read-only after construction.
type HintSource interface {
	RootServers() []domain.NameServer
	TrustAnchors(zone string) []rrdata.DS
}
