package rrdata

import (
	"fmt"
	"strconv"
	"strings"
)

// DNSKEY flag bits (RFC 4034 §2.1.1).
const (
	DNSKEYFlagZone uint16 = 0x0100 // ZK: key may sign zone data
	DNSKEYFlagSEP  uint16 = 0x0001 // SEP: key signing key, the DS target
)

// DNSKEY is the parsed form of a DNS public key record.
type DNSKEY struct {
	Flags     uint16
	Protocol  uint8
	Algorithm uint8
	PublicKey []byte
}

// IsZoneKey reports whether the ZK flag is set; keys without it must not be
// used to verify RRsets (RFC 4034 §2.1.1).
func (k DNSKEY) IsZoneKey() bool { return k.Flags&DNSKEYFlagZone != 0 }

// IsSEP reports whether the key is marked as a secure entry point.
func (k DNSKEY) IsSEP() bool { return k.Flags&DNSKEYFlagSEP != 0 }

// ParseDNSKEY parses normalized DNSKEY RDATA into its fields.
func ParseDNSKEY(data []byte) (DNSKEY, error) {
	r, err := newReader(data, 0, len(data))
	if err != nil {
		return DNSKEY{}, err
	}
	var key DNSKEY
	if key.Flags, err = r.u16(); err != nil {
		return DNSKEY{}, err
	}
	if key.Protocol, err = r.u8(); err != nil {
		return DNSKEY{}, err
	}
	if key.Algorithm, err = r.u8(); err != nil {
		return DNSKEY{}, err
	}
	key.PublicKey = r.rest()
	if len(key.PublicKey) == 0 {
		return DNSKEY{}, fmt.Errorf("%w: DNSKEY public key is empty", ErrBadRData)
	}
	return key, nil
}

// KeyTag computes the key tag over complete DNSKEY RDATA (RFC 4034
// Appendix B). Algorithm 1 keys use the legacy computation from the
// appendix's errata.
func KeyTag(data []byte) uint16 {
	if len(data) >= 4 && data[3] == 1 {
		// RSA/MD5: tag is the next-to-last two octets of the modulus.
		if len(data) < 6 {
			return 0
		}
		return uint16(data[len(data)-3])<<8 | uint16(data[len(data)-2])
	}
	var acc uint32
	for i, b := range data {
		if i&1 == 0 {
			acc += uint32(b) << 8
		} else {
			acc += uint32(b)
		}
	}
	acc += acc >> 16 & 0xFFFF
	return uint16(acc)
}

// decodeDNSKEYData decodes a DNSKEY record: flags, protocol, algorithm, key.
func decodeDNSKEYData(r *reader) ([]byte, string, error) {
	data := r.rest()
	key, err := ParseDNSKEY(data)
	if err != nil {
		return nil, "", err
	}
	text := fmt.Sprintf("%d %d %d %s",
		key.Flags, key.Protocol, key.Algorithm, b64.EncodeToString(key.PublicKey))
	return data, text, nil
}

// encodeDNSKEYData encodes "flags protocol algorithm base64key".
func encodeDNSKEYData(text string) ([]byte, error) {
	parts := strings.Fields(text)
	if len(parts) < 4 {
		return nil, fmt.Errorf("expected 4 fields, got %d", len(parts))
	}
	flags, err := strconv.ParseUint(parts[0], 10, 16)
	if err != nil {
		return nil, fmt.Errorf("invalid flags %q: %w", parts[0], err)
	}
	proto, err := strconv.ParseUint(parts[1], 10, 8)
	if err != nil {
		return nil, fmt.Errorf("invalid protocol %q: %w", parts[1], err)
	}
	alg, err := strconv.ParseUint(parts[2], 10, 8)
	if err != nil {
		return nil, fmt.Errorf("invalid algorithm %q: %w", parts[2], err)
	}
	key, err := b64.DecodeString(strings.Join(parts[3:], ""))
	if err != nil {
		return nil, fmt.Errorf("invalid public key: %w", err)
	}
	data := appendU16(nil, uint16(flags))
	data = append(data, uint8(proto), uint8(alg))
	return append(data, key...), nil
}
