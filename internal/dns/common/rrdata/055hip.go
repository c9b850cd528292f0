package rrdata

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// decodeHIPData decodes a HIP record (RFC 8005): HIT, public key, and any
// number of rendezvous server names, none of which may be compressed.
func decodeHIPData(r *reader) ([]byte, string, error) {
	start := r.off
	hitLen, err := r.u8()
	if err != nil {
		return nil, "", err
	}
	pkAlg, err := r.u8()
	if err != nil {
		return nil, "", err
	}
	pkLen, err := r.u16()
	if err != nil {
		return nil, "", err
	}
	hit, err := r.bytes(int(hitLen))
	if err != nil {
		return nil, "", fmt.Errorf("hip hit: %w", err)
	}
	pk, err := r.bytes(int(pkLen))
	if err != nil {
		return nil, "", fmt.Errorf("hip public key: %w", err)
	}
	var servers []string
	for !r.empty() {
		name, err := r.name()
		if err != nil {
			return nil, "", fmt.Errorf("hip rendezvous server: %w", err)
		}
		servers = append(servers, name)
	}

	data := make([]byte, r.end-start)
	copy(data, r.msg[start:r.end])

	parts := []string{
		strconv.Itoa(int(pkAlg)),
		strings.ToUpper(hex.EncodeToString(hit)),
		b64.EncodeToString(pk),
	}
	parts = append(parts, servers...)
	return data, strings.Join(parts, " "), nil
}

// encodeHIPData encodes "pkalgorithm hexhit base64pk [server ...]".
func encodeHIPData(text string) ([]byte, error) {
	parts := strings.Fields(text)
	if len(parts) < 3 {
		return nil, fmt.Errorf("expected at least 3 fields, got %d", len(parts))
	}
	pkAlg, err := strconv.ParseUint(parts[0], 10, 8)
	if err != nil {
		return nil, fmt.Errorf("invalid pk algorithm %q: %w", parts[0], err)
	}
	hit, err := hex.DecodeString(parts[1])
	if err != nil {
		return nil, fmt.Errorf("invalid hit: %w", err)
	}
	if len(hit) > 255 {
		return nil, fmt.Errorf("hit too long: %d octets", len(hit))
	}
	pk, err := b64.DecodeString(parts[2])
	if err != nil {
		return nil, fmt.Errorf("invalid public key: %w", err)
	}
	if len(pk) > 0xFFFF {
		return nil, fmt.Errorf("public key too long: %d octets", len(pk))
	}

	data := []byte{byte(len(hit)), uint8(pkAlg)}
	data = appendU16(data, uint16(len(pk)))
	data = append(data, hit...)
	data = append(data, pk...)
	for _, server := range parts[3:] {
		if data, err = appendName(data, server); err != nil {
			return nil, fmt.Errorf("invalid rendezvous server %q: %w", server, err)
		}
	}
	return data, nil
}
