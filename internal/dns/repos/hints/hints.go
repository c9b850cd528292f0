// Package hints supplies the resolver's bootstrap data: the root server
// addresses it starts every cold resolution from, and the DNSSEC trust
// anchors it validates against. Both ship embedded and can be overridden
// from YAML, JSON, or TOML files.
package hints

import (
	_ "embed"
	"encoding/hex"
	"fmt"
	"net"
	"path/filepath"
	"sort"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/haukened/rec-dns/internal/dns/common/dnsname"
	"github.com/haukened/rec-dns/internal/dns/common/rrdata"
	"github.com/haukened/rec-dns/internal/dns/domain"
)

//go:embed data/root_hints.json
var rootHintsJSON []byte

//go:embed data/trust_anchors.json
var trustAnchorsJSON []byte

type rootServerFile struct {
	Servers []struct {
		Name string `koanf:"name"`
		IPv4 string `koanf:"ipv4"`
		IPv6 string `koanf:"ipv6"`
	} `koanf:"servers"`
}

type trustAnchorFile struct {
	Anchors []struct {
		Zone       string `koanf:"zone"`
		KeyTag     uint16 `koanf:"key_tag"`
		Algorithm  uint8  `koanf:"algorithm"`
		DigestType uint8  `koanf:"digest_type"`
		Digest     string `koanf:"digest"`
	} `koanf:"anchors"`
}

// Store holds the loaded root servers and trust anchors.
type Store struct {
	servers []domain.NameServer
	anchors map[string][]rrdata.DS
}

// Load builds a Store. Empty paths select the embedded defaults; non-empty
// paths replace the corresponding set wholesale.
func Load(rootHintsPath, trustAnchorsPath string) (*Store, error) {
	servers, err := loadRootServers(rootHintsPath)
	if err != nil {
		return nil, err
	}
	anchors, err := loadTrustAnchors(trustAnchorsPath)
	if err != nil {
		return nil, err
	}
	return &Store{servers: servers, anchors: anchors}, nil
}

// RootServers returns the root nameserver addresses, IPv6 entries first,
// matching the family preference the delegation cache applies.
func (s *Store) RootServers() []domain.NameServer {
	out := make([]domain.NameServer, len(s.servers))
	copy(out, s.servers)
	return out
}

// TrustAnchors returns the configured DS-form anchors for zone, or nil when
// the zone carries none.
func (s *Store) TrustAnchors(zone string) []rrdata.DS {
	return s.anchors[dnsname.Canonical(zone)]
}

// AnchorZones lists the zones with configured trust anchors, shallowest
// first, so a chain walk can find the deepest anchor above a name.
func (s *Store) AnchorZones() []string {
	zones := make([]string, 0, len(s.anchors))
	for zone := range s.anchors {
		zones = append(zones, zone)
	}
	sort.Slice(zones, func(i, j int) bool {
		return len(dnsname.Labels(zones[i])) < len(dnsname.Labels(zones[j]))
	})
	return zones
}

func loadRootServers(path string) ([]domain.NameServer, error) {
	k, err := loadInto(path, rootHintsJSON)
	if err != nil {
		return nil, err
	}
	var parsed rootServerFile
	if err := k.Unmarshal("", &parsed); err != nil {
		return nil, fmt.Errorf("parsing root hints: %w", err)
	}
	if len(parsed.Servers) == 0 {
		return nil, fmt.Errorf("root hints contain no servers")
	}
	var v4, v6 []domain.NameServer
	for _, srv := range parsed.Servers {
		name := dnsname.Canonical(srv.Name)
		if srv.IPv4 != "" {
			if net.ParseIP(srv.IPv4) == nil {
				return nil, fmt.Errorf("root hint %s: bad IPv4 address %q", srv.Name, srv.IPv4)
			}
			v4 = append(v4, domain.NameServer{Host: name, Addr: net.JoinHostPort(srv.IPv4, "53")})
		}
		if srv.IPv6 != "" {
			if net.ParseIP(srv.IPv6) == nil {
				return nil, fmt.Errorf("root hint %s: bad IPv6 address %q", srv.Name, srv.IPv6)
			}
			v6 = append(v6, domain.NameServer{Host: name, Addr: net.JoinHostPort(srv.IPv6, "53")})
		}
	}
	return append(v6, v4...), nil
}

func loadTrustAnchors(path string) (map[string][]rrdata.DS, error) {
	k, err := loadInto(path, trustAnchorsJSON)
	if err != nil {
		return nil, err
	}
	var parsed trustAnchorFile
	if err := k.Unmarshal("", &parsed); err != nil {
		return nil, fmt.Errorf("parsing trust anchors: %w", err)
	}
	if len(parsed.Anchors) == 0 {
		return nil, fmt.Errorf("trust anchor set is empty")
	}
	anchors := make(map[string][]rrdata.DS)
	for _, a := range parsed.Anchors {
		digest, err := hex.DecodeString(a.Digest)
		if err != nil {
			return nil, fmt.Errorf("trust anchor for %q: bad digest: %w", a.Zone, err)
		}
		zone := dnsname.Canonical(a.Zone)
		anchors[zone] = append(anchors[zone], rrdata.DS{
			KeyTag:     a.KeyTag,
			Algorithm:  a.Algorithm,
			DigestType: a.DigestType,
			Digest:     digest,
		})
	}
	return anchors, nil
}

// loadInto reads path into a fresh koanf, choosing the parser from the file
// extension; an empty path falls back to the embedded JSON.
func loadInto(path string, embedded []byte) (*koanf.Koanf, error) {
	k := koanf.New(".")
	if path == "" {
		if err := k.Load(rawbytes.Provider(embedded), json.Parser()); err != nil {
			return nil, fmt.Errorf("loading embedded data: %w", err)
		}
		return k, nil
	}
	var parser koanf.Parser
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	case ".toml":
		parser = toml.Parser()
	default:
		return nil, fmt.Errorf("unsupported hints file type: %s", path)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return k, nil
}
