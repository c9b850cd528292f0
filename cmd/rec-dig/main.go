// Command rec-dig resolves names iteratively from the root servers,
// validating answers with DNSSEC, and prints what it finds.
//
// Usage:
//
//	rec-dig NAME [TYPE]
//
// TYPE defaults to A. Configuration comes from RECDNS_* environment
// variables; see the config package.
package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/haukened/rec-dns/internal/dns/common/clock"
	"github.com/haukened/rec-dns/internal/dns/common/log"
	"github.com/haukened/rec-dns/internal/dns/config"
	"github.com/haukened/rec-dns/internal/dns/domain"
	"github.com/haukened/rec-dns/internal/dns/gateways/client"
	"github.com/haukened/rec-dns/internal/dns/repos/hints"
	"github.com/haukened/rec-dns/internal/dns/repos/nscache"
	"github.com/haukened/rec-dns/internal/dns/repos/rrcache"
	"github.com/haukened/rec-dns/internal/dns/services/resolver"
)

const (
	version = "0.1.0-dev"
	appName = "rec-dig"
)

func main() {
	if len(os.Args) < 2 || len(os.Args) > 3 {
		fmt.Fprintf(os.Stderr, "usage: %s NAME [TYPE]\n", appName)
		os.Exit(2)
	}
	name := os.Args[1]
	rrtype := domain.RRTypeA
	if len(os.Args) == 3 {
		rrtype = domain.RRTypeFromString(os.Args[2])
		if rrtype == 0 {
			fmt.Fprintf(os.Stderr, "unknown record type %q\n", os.Args[2])
			os.Exit(2)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}
	if err := log.Configure(cfg.Env, cfg.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "Logging configuration error: %v\n", err)
		os.Exit(1)
	}

	r, err := buildResolver(cfg)
	if err != nil {
		log.Fatal(map[string]any{"error": err.Error()}, "Failed to build resolver")
	}

	timeout := time.Duration(cfg.QueryTimeoutMS) * time.Millisecond
	// The overall walk may take several exchanges; give it room.
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.MaxReferrals)*timeout)
	defer cancel()

	records, verdict, err := r.ResolveSecure(ctx, name, rrtype, domain.RRClassIN)
	if err != nil {
		log.Error(map[string]any{
			"name":  name,
			"type":  rrtype.String(),
			"error": err.Error(),
		}, "Resolution failed")
		os.Exit(1)
	}

	for _, rr := range records {
		fmt.Println(rr.String())
	}
	fmt.Printf(";; verdict: %s\n", verdict)
}

// buildResolver wires the client gateway, the caches, and the hint store
// into a resolver per the loaded configuration.
func buildResolver(cfg *config.AppConfig) (*resolver.Resolver, error) {
	clk := clock.RealClock{}
	logger := log.GetLogger()

	store, err := hints.Load(cfg.RootHints, cfg.TrustAnchors)
	if err != nil {
		return nil, fmt.Errorf("failed to load hints: %w", err)
	}

	cache, err := rrcache.New(int(cfg.CacheSize), clk)
	if err != nil {
		return nil, fmt.Errorf("failed to create answer cache: %w", err)
	}

	var ednsOptions []domain.EDNSOption
	if !cfg.DisableDNSSEC {
		ednsOptions = resolver.CapabilityOptions()
	}
	cli := client.New(client.Options{
		Timeout:          time.Duration(cfg.QueryTimeoutMS) * time.Millisecond,
		UDPSize:          cfg.UDPSize,
		DNSSEC:           !cfg.DisableDNSSEC,
		Use0x20:          cfg.Enable0x20,
		ValidateIdentity: cfg.ValidateIdentity,
		CheckingDisabled: !cfg.DisableDNSSEC,
		EDNSOptions:      ednsOptions,
		Clock:            clk,
		Logger:           logger,
	})

	log.Info(map[string]any{
		"version":       version,
		"cache_size":    cfg.CacheSize,
		"max_referrals": cfg.MaxReferrals,
		"dnssec":        !cfg.DisableDNSSEC,
		"0x20":          cfg.Enable0x20,
	}, "Resolver configured")

	return resolver.New(resolver.Options{
		Client:            cli,
		Cache:             cache,
		Delegations:       nscache.New(clk, rand.New(rand.NewSource(time.Now().UnixNano()))),
		Hints:             store,
		Clock:             clk,
		Logger:            logger,
		MaxReferrals:      cfg.MaxReferrals,
		DisableValidation: cfg.DisableDNSSEC,
	})
}
