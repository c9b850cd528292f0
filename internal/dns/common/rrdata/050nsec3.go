package rrdata

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/haukened/rec-dns/internal/dns/common/dnsname"
	"github.com/haukened/rec-dns/internal/dns/domain"
)

// NSEC3HashSHA1 is the only hash algorithm assigned for NSEC3 (RFC 5155 §11).
const NSEC3HashSHA1 uint8 = 1

// NSEC3FlagOptOut marks spans that may skip unsigned delegations.
const NSEC3FlagOptOut uint8 = 0x01

// NSEC3 is the parsed form of a hashed next-secure record (RFC 5155 §3).
type NSEC3 struct {
	HashAlg    uint8
	Flags      uint8
	Iterations uint16
	Salt       []byte
	NextHashed []byte
	Types      []domain.RRType
}

// OptOut reports whether the record's span may skip unsigned delegations.
func (n NSEC3) OptOut() bool { return n.Flags&NSEC3FlagOptOut != 0 }

// Covers reports whether the record's type bitmap asserts existence of t.
func (n NSEC3) Covers(t domain.RRType) bool {
	for _, have := range n.Types {
		if have == t {
			return true
		}
	}
	return false
}

// NSEC3Hash computes the hashed owner for name under the record's
// parameters: H(name), then iterations extra rounds of H(prev || salt)
// (RFC 5155 §5). Only SHA-1 is defined.
func NSEC3Hash(name string, alg uint8, iterations uint16, salt []byte) ([]byte, error) {
	if alg != NSEC3HashSHA1 {
		return nil, fmt.Errorf("unsupported NSEC3 hash algorithm %d", alg)
	}
	wire, err := dnsname.AppendCanonical(nil, name)
	if err != nil {
		return nil, err
	}
	digest := sha1.Sum(append(wire, salt...))
	for i := 0; i < int(iterations); i++ {
		digest = sha1.Sum(append(digest[:], salt...))
	}
	return digest[:], nil
}

// HashedOwnerLabel renders an NSEC3 hash in the Base32hex label form used as
// the record's leftmost owner label.
func HashedOwnerLabel(hash []byte) string {
	return strings.ToLower(base32Hex.EncodeToString(hash))
}

// ParseNSEC3 parses normalized NSEC3 RDATA into its fields.
func ParseNSEC3(data []byte) (NSEC3, error) {
	r, err := newReader(data, 0, len(data))
	if err != nil {
		return NSEC3{}, err
	}
	n, err := parseNSEC3Fields(r, true)
	if err != nil {
		return NSEC3{}, err
	}
	if n.Types, err = decodeTypeBitmap(r.rest()); err != nil {
		return NSEC3{}, err
	}
	return n, nil
}

// parseNSEC3Fields reads the common NSEC3/NSEC3PARAM header; withNext also
// reads the hashed next owner.
func parseNSEC3Fields(r *reader, withNext bool) (NSEC3, error) {
	var n NSEC3
	var err error
	if n.HashAlg, err = r.u8(); err != nil {
		return NSEC3{}, err
	}
	if n.Flags, err = r.u8(); err != nil {
		return NSEC3{}, err
	}
	if n.Iterations, err = r.u16(); err != nil {
		return NSEC3{}, err
	}
	saltLen, err := r.u8()
	if err != nil {
		return NSEC3{}, err
	}
	if n.Salt, err = r.bytes(int(saltLen)); err != nil {
		return NSEC3{}, err
	}
	if withNext {
		hashLen, err := r.u8()
		if err != nil {
			return NSEC3{}, err
		}
		if hashLen == 0 {
			return NSEC3{}, fmt.Errorf("%w: NSEC3 hash length is zero", ErrBadRData)
		}
		if n.NextHashed, err = r.bytes(int(hashLen)); err != nil {
			return NSEC3{}, err
		}
	}
	return n, nil
}

// decodeNSEC3Data decodes an NSEC3 record.
func decodeNSEC3Data(r *reader) ([]byte, string, error) {
	start := r.off
	n, err := parseNSEC3Fields(r, true)
	if err != nil {
		return nil, "", err
	}
	bitmap := r.rest()
	if n.Types, err = decodeTypeBitmap(bitmap); err != nil {
		return nil, "", err
	}
	data := make([]byte, r.end-start)
	copy(data, r.msg[start:r.end])

	text := fmt.Sprintf("%d %d %d %s %s", n.HashAlg, n.Flags, n.Iterations,
		saltText(n.Salt), strings.ToUpper(base32Hex.EncodeToString(n.NextHashed)))
	for _, t := range n.Types {
		text += " " + t.String()
	}
	return data, text, nil
}

// encodeNSEC3Data encodes "alg flags iterations salt nexthash TYPE ...".
func encodeNSEC3Data(text string) ([]byte, error) {
	parts := strings.Fields(text)
	if len(parts) < 5 {
		return nil, fmt.Errorf("expected at least 5 fields, got %d", len(parts))
	}
	data, err := encodeNSEC3Header(parts[:4])
	if err != nil {
		return nil, err
	}
	next, err := base32Hex.DecodeString(strings.ToUpper(parts[4]))
	if err != nil {
		return nil, fmt.Errorf("invalid next hashed owner: %w", err)
	}
	if len(next) > 255 {
		return nil, fmt.Errorf("next hashed owner too long: %d octets", len(next))
	}
	data = append(data, byte(len(next)))
	data = append(data, next...)

	types, err := typesFromStrings(parts[5:])
	if err != nil {
		return nil, err
	}
	return append(data, encodeTypeBitmap(types)...), nil
}

// encodeNSEC3Header encodes the alg/flags/iterations/salt prefix shared with
// NSEC3PARAM. A "-" salt means empty.
func encodeNSEC3Header(parts []string) ([]byte, error) {
	alg, err := strconv.ParseUint(parts[0], 10, 8)
	if err != nil {
		return nil, fmt.Errorf("invalid hash algorithm %q: %w", parts[0], err)
	}
	flags, err := strconv.ParseUint(parts[1], 10, 8)
	if err != nil {
		return nil, fmt.Errorf("invalid flags %q: %w", parts[1], err)
	}
	iter, err := strconv.ParseUint(parts[2], 10, 16)
	if err != nil {
		return nil, fmt.Errorf("invalid iterations %q: %w", parts[2], err)
	}
	var salt []byte
	if parts[3] != "-" {
		if salt, err = hex.DecodeString(parts[3]); err != nil {
			return nil, fmt.Errorf("invalid salt: %w", err)
		}
	}
	if len(salt) > 255 {
		return nil, fmt.Errorf("salt too long: %d octets", len(salt))
	}
	data := []byte{uint8(alg), uint8(flags)}
	data = appendU16(data, uint16(iter))
	data = append(data, byte(len(salt)))
	return append(data, salt...), nil
}

func saltText(salt []byte) string {
	if len(salt) == 0 {
		return "-"
	}
	return strings.ToUpper(hex.EncodeToString(salt))
}
