// Package resolver walks the DNS delegation tree iteratively, starting from
// the root hints, caching answers and delegations as it goes, and validating
// what it finds against the configured trust anchors.
package resolver

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/haukened/rec-dns/internal/dns/common/clock"
	"github.com/haukened/rec-dns/internal/dns/common/dnsname"
	"github.com/haukened/rec-dns/internal/dns/common/log"
	"github.com/haukened/rec-dns/internal/dns/domain"
)

const (
	defaultMaxReferrals = 30
	// An answer section may legitimately chain several CNAMEs; anything
	// past this is hostile or broken.
	maxChainLength = 16
	// How many glueless NS targets to chase before giving up on a referral.
	maxGluelessLookups = 3
)

// Options configures a Resolver.
type Options struct {
	Client      Exchanger
	Cache       Cache
	Delegations DelegationCache
	Hints       HintSource
	Clock       clock.Clock
	Logger      log.Logger
	// MaxReferrals bounds the delegation walk of one resolution.
	MaxReferrals int
	// DisableValidation turns the DNSSEC validator off; every answer then
	// carries the Unsigned verdict.
	DisableValidation bool
}

// Resolver resolves names iteratively and validates the results.
type Resolver struct {
	client       Exchanger
	cache        Cache
	delegations  DelegationCache
	hints        HintSource
	clock        clock.Clock
	logger       log.Logger
	maxReferrals int
	validator    *validator
}

// New creates a Resolver. Client, Cache, Delegations and Hints are required.
func New(opts Options) (*Resolver, error) {
	if opts.Client == nil {
		return nil, fmt.Errorf("resolver requires a client")
	}
	if opts.Cache == nil {
		return nil, fmt.Errorf("resolver requires a record cache")
	}
	if opts.Delegations == nil {
		return nil, fmt.Errorf("resolver requires a delegation cache")
	}
	if opts.Hints == nil {
		return nil, fmt.Errorf("resolver requires a hint source")
	}
	if opts.Clock == nil {
		opts.Clock = clock.RealClock{}
	}
	if opts.Logger == nil {
		opts.Logger = log.NewNoopLogger()
	}
	if opts.MaxReferrals <= 0 {
		opts.MaxReferrals = defaultMaxReferrals
	}
	r := &Resolver{
		client:       opts.Client,
		cache:        opts.Cache,
		delegations:  opts.Delegations,
		hints:        opts.Hints,
		clock:        opts.Clock,
		logger:       opts.Logger,
		maxReferrals: opts.MaxReferrals,
	}
	r.validator = &validator{resolver: r, disabled: opts.DisableValidation}
	return r, nil
}

// Resolve resolves (name, type, class) without interpreting the validation
// verdict. Negative answers return an empty slice and a nil error.
func (r *Resolver) Resolve(ctx context.Context, name string, t domain.RRType, class domain.RRClass) ([]domain.ResourceRecord, error) {
	q, err := domain.NewQuestion(name, t, class)
	if err != nil {
		return nil, err
	}
	res, err := r.resolve(ctx, q, newGuard())
	if err != nil {
		return nil, err
	}
	return res.records, nil
}

// ResolveSecure resolves and enforces DNSSEC: a Bogus result is an error,
// anything else is returned with its verdict.
func (r *Resolver) ResolveSecure(ctx context.Context, name string, t domain.RRType, class domain.RRClass) ([]domain.ResourceRecord, domain.Verdict, error) {
	q, err := domain.NewQuestion(name, t, class)
	if err != nil {
		return nil, domain.VerdictIndeterminate, err
	}
	res, err := r.resolve(ctx, q, newGuard())
	if err != nil {
		return nil, domain.VerdictIndeterminate, err
	}
	if res.verdict == domain.VerdictBogus {
		return nil, domain.VerdictBogus, ErrBogus
	}
	return res.records, res.verdict, nil
}

// ClearCache drops every cached answer.
func (r *Resolver) ClearCache() {
	r.cache.Purge()
}

// result is the outcome of one resolution: the records (empty for negative
// answers), their composite verdict, and the rcode the answer carried.
type result struct {
	records []domain.ResourceRecord
	verdict domain.Verdict
	rcode   domain.RCode
}

func (r *Resolver) resolve(ctx context.Context, q domain.Question, g *guard) (result, error) {
	release, err := g.enter(q.CacheKey())
	if err != nil {
		return result{}, err
	}
	defer release()

	if records, verdict, ok := r.cache.Get(q.CacheKey()); ok {
		return result{records: records, verdict: verdict}, nil
	}
	if rcode, _, verdict, ok := r.cache.GetNegative(q.CacheKey()); ok {
		return result{verdict: verdict, rcode: rcode}, nil
	}
	// A cached CNAME redirects the question even on a miss for the type.
	if q.Type != domain.RRTypeCNAME && q.Type != domain.RRTypeANY {
		cnameKey := domain.GenerateCacheKey(q.Name, domain.RRTypeCNAME, q.Class)
		if cnames, cnVerdict, ok := r.cache.Get(cnameKey); ok {
			target := dnsname.Canonical(cnames[0].Text)
			sub, err := r.resolve(ctx, domain.Question{Name: target, Type: q.Type, Class: q.Class}, g)
			if err != nil {
				return result{}, err
			}
			return result{
				records: append(append([]domain.ResourceRecord(nil), cnames...), sub.records...),
				verdict: cnVerdict.Combine(sub.verdict),
				rcode:   sub.rcode,
			}, nil
		}
	}
	return r.iterate(ctx, q, g)
}

// iterate walks referrals from the best known delegation toward an
// authoritative answer.
func (r *Resolver) iterate(ctx context.Context, q domain.Question, g *guard) (result, error) {
	// DS lives in the parent zone, so its walk starts one cut higher.
	lookupName := q.Name
	if q.Type == domain.RRTypeDS {
		if parent, ok := dnsname.Parent(q.Name); ok {
			lookupName = parent
		}
	}
	zone, servers, fromCache := r.bestServers(lookupName)

	for attempt := 0; attempt < r.maxReferrals; attempt++ {
		if err := ctx.Err(); err != nil {
			return result{}, err
		}
		msg, err := r.client.Exchange(ctx, q, addressesOf(servers))
		if err != nil {
			if fromCache {
				// The delegation is stale or lame; forget it so the next
				// resolution restarts higher up.
				r.delegations.Remove(zone)
			}
			return result{}, fmt.Errorf("%w: %v", ErrUnreachable, err)
		}
		if msg.RCode != domain.RCodeNoError && msg.RCode != domain.RCodeNxDomain {
			return result{}, fmt.Errorf("%w: server answered %s", ErrUnreachable, msg.RCode.StringIn(msg.EDNS != nil))
		}
		if msg.Authoritative {
			return r.classify(ctx, q, msg, g)
		}
		nextZone, next, err := r.followReferral(ctx, q, msg, zone, g)
		if err != nil {
			return result{}, err
		}
		r.logger.Debug(map[string]any{
			"name":    q.Name,
			"type":    q.Type.String(),
			"zone":    nextZone,
			"servers": len(next),
		}, "following referral")
		zone, servers, fromCache = nextZone, next, true
	}
	return result{}, ErrReferralLimit
}

// bestServers returns the deepest cached delegation for name, or the root
// hints when nothing is cached. The third result reports which it was.
func (r *Resolver) bestServers(name string) (string, []domain.NameServer, bool) {
	if zone, servers, ok := r.delegations.Best(name); ok {
		return zone, servers, true
	}
	return "", r.hints.RootServers(), false
}

// followReferral extracts the deepest NS set from the authority section,
// resolves its addresses from glue or by recursion, and caches the new
// delegation.
func (r *Resolver) followReferral(ctx context.Context, q domain.Question, msg *domain.Message, currentZone string, g *guard) (string, []domain.NameServer, error) {
	owner := ""
	var nsSet []domain.ResourceRecord
	for _, rr := range msg.Authority {
		if rr.Type != domain.RRTypeNS || !dnsname.IsSubdomain(q.Name, rr.Name) {
			continue
		}
		switch {
		case nsSet == nil, len(dnsname.Labels(rr.Name)) > len(dnsname.Labels(owner)):
			owner = rr.Name
			nsSet = []domain.ResourceRecord{rr}
		case dnsname.Equal(rr.Name, owner):
			nsSet = append(nsSet, rr)
		}
	}
	if len(nsSet) == 0 {
		return "", nil, ErrNoDelegation
	}
	// A referral must descend, or two zones bouncing queries at each other
	// would walk forever.
	if dnsname.Equal(owner, currentZone) {
		return "", nil, ErrNoDelegation
	}

	servers := glueFor(nsSet, msg.Additional)
	if len(servers) == 0 {
		servers = r.resolveNSTargets(ctx, nsSet, g)
	}
	if len(servers) == 0 {
		return "", nil, ErrNoDelegation
	}
	r.delegations.Put(owner, servers, domain.MinTTL(nsSet, r.clock.Now()))
	return owner, servers, nil
}

// glueFor joins NS targets with the A/AAAA glue of the additional section.
func glueFor(nsSet []domain.ResourceRecord, additional []domain.ResourceRecord) []domain.NameServer {
	var servers []domain.NameServer
	for _, ns := range nsSet {
		target := dnsname.Canonical(ns.Text)
		for _, ad := range additional {
			if (ad.Type == domain.RRTypeA || ad.Type == domain.RRTypeAAAA) && dnsname.Equal(ad.Name, target) {
				servers = append(servers, domain.NameServer{
					Host: target,
					Addr: net.JoinHostPort(ad.Text, "53"),
				})
			}
		}
	}
	return servers
}

// resolveNSTargets handles glueless referrals by resolving nameserver
// addresses through the resolver itself. The guard catches delegations
// whose nameservers live inside the zone they serve.
func (r *Resolver) resolveNSTargets(ctx context.Context, nsSet []domain.ResourceRecord, g *guard) []domain.NameServer {
	var servers []domain.NameServer
	tried := 0
	for _, ns := range nsSet {
		if tried >= maxGluelessLookups {
			break
		}
		tried++
		target := dnsname.Canonical(ns.Text)
		sub, err := r.resolve(ctx, domain.Question{Name: target, Type: domain.RRTypeA, Class: domain.RRClassIN}, g)
		if err != nil {
			r.logger.Debug(map[string]any{
				"nameserver": target,
				"error":      err.Error(),
			}, "glueless nameserver lookup failed")
			continue
		}
		for _, rr := range sub.records {
			if rr.Type == domain.RRTypeA || rr.Type == domain.RRTypeAAAA {
				servers = append(servers, domain.NameServer{Host: target, Addr: net.JoinHostPort(rr.Text, "53")})
			}
		}
		if len(servers) > 0 {
			break
		}
	}
	return servers
}

// classify interprets an authoritative response: direct answer, CNAME
// chain, negative answer, or nothing usable.
func (r *Resolver) classify(ctx context.Context, q domain.Question, msg *domain.Message, g *guard) (result, error) {
	name := dnsname.Canonical(q.Name)
	current := name
	var chain []domain.ResourceRecord
	verdict := domain.VerdictIndeterminate
	haveVerdict := false
	seen := map[string]bool{current: true}

	combine := func(v domain.Verdict) {
		if !haveVerdict {
			verdict = v
			haveVerdict = true
			return
		}
		verdict = verdict.Combine(v)
	}

	for hop := 0; hop < maxChainLength; hop++ {
		ansSet := answersOwned(msg, current, q.Type)
		if len(ansSet) > 0 {
			v := r.validator.rrset(ctx, ansSet, msg, g)
			r.cacheSet(ansSet, v)
			combine(v)
			return result{records: append(chain, ansSet...), verdict: verdict}, nil
		}
		if q.Type != domain.RRTypeCNAME && q.Type != domain.RRTypeANY {
			cn := answersOwned(msg, current, domain.RRTypeCNAME)
			if len(cn) > 0 {
				v := r.validator.rrset(ctx, cn, msg, g)
				r.cacheSet(cn, v)
				combine(v)
				chain = append(chain, cn...)
				current = dnsname.Canonical(cn[0].Text)
				if seen[current] {
					return result{}, ErrLoopDetected
				}
				seen[current] = true
				continue
			}
		}
		if current != name {
			// The chain left this response; chase the canonical name.
			sub, err := r.resolve(ctx, domain.Question{Name: current, Type: q.Type, Class: q.Class}, g)
			if err != nil {
				return result{}, err
			}
			combine(sub.verdict)
			return result{records: append(chain, sub.records...), verdict: verdict, rcode: sub.rcode}, nil
		}
		break
	}

	if soa, ok := authoritySOA(msg, name); ok {
		v := r.validator.denial(ctx, q, msg, g)
		if err := r.cache.SetNegative(q, msg.RCode, soa, v); err != nil {
			r.logger.Warn(map[string]any{
				"name":  q.Name,
				"error": err.Error(),
			}, "failed to cache negative answer")
		}
		return result{verdict: v, rcode: msg.RCode}, nil
	}
	return result{}, ErrNoAnswer
}

func (r *Resolver) cacheSet(records []domain.ResourceRecord, verdict domain.Verdict) {
	if err := r.cache.Set(records, verdict); err != nil {
		r.logger.Warn(map[string]any{
			"key":   records[0].CacheKey(),
			"error": err.Error(),
		}, "failed to cache answer")
	}
}

// answersOwned returns the answer records owned by name. For ANY queries
// every type matches; otherwise only t does.
func answersOwned(msg *domain.Message, name string, t domain.RRType) []domain.ResourceRecord {
	var out []domain.ResourceRecord
	for _, rr := range msg.Answers {
		if !dnsname.Equal(rr.Name, name) {
			continue
		}
		if t == domain.RRTypeANY || rr.Type == t {
			out = append(out, rr)
		}
	}
	return out
}

// authoritySOA finds the negative-answer SOA: one in the authority section
// whose owner is an ancestor of name.
func authoritySOA(msg *domain.Message, name string) (domain.ResourceRecord, bool) {
	for _, rr := range msg.Authority {
		if rr.Type == domain.RRTypeSOA && dnsname.IsSubdomain(name, rr.Name) {
			return rr, true
		}
	}
	return domain.ResourceRecord{}, false
}

func addressesOf(servers []domain.NameServer) []string {
	out := make([]string, len(servers))
	for i, s := range servers {
		out[i] = s.Addr
	}
	return out
}

// now is a convenience for the validator.
func (r *Resolver) now() time.Time {
	return r.clock.Now()
}
