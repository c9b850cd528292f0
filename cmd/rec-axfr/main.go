// Command rec-axfr pulls a full zone from an authoritative server over TCP
// and prints the records in zone-file order. When a TSIG key is configured
// the transfer stream is signed and verified envelope by envelope.
//
// Usage:
//
//	rec-axfr ZONE SERVER[:PORT]
//
// Configuration comes from RECDNS_* environment variables; see the config
// package.
package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/haukened/rec-dns/internal/dns/common/log"
	"github.com/haukened/rec-dns/internal/dns/config"
	"github.com/haukened/rec-dns/internal/dns/gateways/client"
	"github.com/haukened/rec-dns/internal/dns/gateways/wire"
)

const appName = "rec-axfr"

func main() {
	if len(os.Args) != 3 {
		fmt.Fprintf(os.Stderr, "usage: %s ZONE SERVER[:PORT]\n", appName)
		os.Exit(2)
	}
	zone := os.Args[1]
	server := os.Args[2]
	if _, _, err := net.SplitHostPort(server); err != nil {
		server = net.JoinHostPort(server, "53")
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

	key, err := tsigKey(cfg)
	if err != nil {
		log.Fatal(map[string]any{"error": err.Error()}, "Bad TSIG configuration")
	}

	cli := client.New(client.Options{
		Timeout: time.Duration(cfg.QueryTimeoutMS) * time.Millisecond,
		UDPSize: cfg.UDPSize,
		TSIGKey: key,
		Logger:  log.GetLogger(),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	records, err := cli.Transfer(ctx, zone, server)
	if err != nil {
		log.Error(map[string]any{
			"zone":   zone,
			"server": server,
			"error":  err.Error(),
		}, "Zone transfer failed")
		os.Exit(1)
	}
	for _, rr := range records {
		fmt.Println(rr.String())
	}
}

// tsigKey builds the transfer signing key from configuration, or nil when
// no key is configured.
func tsigKey(cfg *config.AppConfig) (*wire.TSIGKey, error) {
	if cfg.TSIGName == "" {
		return nil, nil
	}
	secret, err := base64.StdEncoding.DecodeString(cfg.TSIGSecret)
	if err != nil {
		return nil, fmt.Errorf("tsig secret is not valid base64: %w", err)
	}
	return &wire.TSIGKey{
		Name:      cfg.TSIGName,
		Algorithm: cfg.TSIGAlgorithm,
		Secret:    secret,
	}, nil
}
