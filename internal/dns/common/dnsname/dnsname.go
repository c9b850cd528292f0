// Package dnsname implements the domain-name wire codec: length-prefixed
// labels, RFC 1035 message compression, canonical (lowercase) form, and the
// 0x20 case randomization used to harden query identity checks.
//
// Names are passed around as strings in the canonical presentation used across
// this repo: no trailing dot, the root zone is the empty string. Case is
// preserved by the codec; use Canonical to normalize.
package dnsname

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
)

const (
	// MaxEncodedLen is the maximum encoded size of a name including length
	// octets and the terminating zero (RFC 1035 §3.1).
	MaxEncodedLen = 255

	// MaxLabelLen is the maximum size of a single label.
	MaxLabelLen = 63

	// maxPointers bounds compression-pointer chasing per name; chains longer
	// than this are treated as malformed (cycles included).
	maxPointers = 126

	// compressionPointerLimit is the highest message offset a 14-bit
	// compression pointer can address.
	compressionPointerLimit = 0x3FFF
)

// ErrMalformedName is the sentinel for every name decoding/encoding failure.
// Specific failures wrap it with detail.
var ErrMalformedName = errors.New("malformed domain name")

// Canonical returns a DNS name in canonical form: trimmed, lowercased,
// with all trailing dots removed. The root zone canonicalizes to "".
func Canonical(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ToLower(name)
	for strings.HasSuffix(name, ".") {
		name = strings.TrimSuffix(name, ".")
	}
	return name
}

// Equal reports whether two names are the same under case-insensitive
// comparison, ignoring any trailing dot.
func Equal(a, b string) bool {
	return Canonical(a) == Canonical(b)
}

// Labels splits a name into its labels, leftmost first. The root name has no
// labels.
func Labels(name string) []string {
	name = strings.Trim(name, ".")
	if name == "" {
		return nil
	}
	return strings.Split(name, ".")
}

// Parent returns the name with its leftmost label removed. The second return
// is false when name is already the root.
func Parent(name string) (string, bool) {
	name = strings.Trim(name, ".")
	if name == "" {
		return "", false
	}
	if i := strings.IndexByte(name, '.'); i >= 0 {
		return name[i+1:], true
	}
	return "", true
}

// IsSubdomain reports whether child is equal to or below parent. Every name
// is a subdomain of the root.
func IsSubdomain(child, parent string) bool {
	child = Canonical(child)
	parent = Canonical(parent)
	if parent == "" {
		return true
	}
	if child == parent {
		return true
	}
	return strings.HasSuffix(child, "."+parent)
}

// EncodedLen returns the wire size of name encoded without compression,
// including the terminating zero octet.
func EncodedLen(name string) int {
	n := 1 // terminating zero
	for _, label := range Labels(name) {
		n += 1 + len(label)
	}
	return n
}

// Compressor tracks name suffixes already written into a message so that
// later names can point at them (RFC 1035 §4.1.4). One Compressor is scoped
// to one encoded message.
type Compressor struct {
	offsets map[string]int
}

// NewCompressor returns an empty compression dictionary.
func NewCompressor() *Compressor {
	return &Compressor{offsets: make(map[string]int)}
}

// Append encodes name at the end of data, compressing against c when a known
// suffix exists. A nil Compressor encodes without compression. The dictionary
// is keyed on the canonical form, so compression never depends on case.
func Append(data []byte, name string, c *Compressor) ([]byte, error) {
	if EncodedLen(name) > MaxEncodedLen {
		return nil, fmt.Errorf("%w: name exceeds %d octets", ErrMalformedName, MaxEncodedLen)
	}
	labels := Labels(name)
	for i := range labels {
		if len(labels[i]) > MaxLabelLen {
			return nil, fmt.Errorf("%w: label %q exceeds %d octets", ErrMalformedName, labels[i], MaxLabelLen)
		}
		if len(labels[i]) == 0 {
			return nil, fmt.Errorf("%w: empty label", ErrMalformedName)
		}
		if c != nil {
			suffix := Canonical(strings.Join(labels[i:], "."))
			if off, ok := c.offsets[suffix]; ok {
				data = append(data, 0xC0|byte(off>>8), byte(off))
				return data, nil
			}
			if off := len(data); off <= compressionPointerLimit {
				c.offsets[suffix] = off
			}
		}
		data = append(data, byte(len(labels[i])))
		data = append(data, labels[i]...)
	}
	return append(data, 0), nil
}

// AppendCanonical encodes name in the canonical wire form used as DNSSEC
// signature input: lowercase, never compressed (RFC 4034 §6.2).
func AppendCanonical(data []byte, name string) ([]byte, error) {
	return Append(data, Canonical(name), nil)
}

// Decode reads a possibly compressed name from msg starting at off. It
// returns the decoded name and the offset of the first octet after the name
// in the uncompressed stream. Pointer chains longer than the budget, cycles,
// reserved label types, and out-of-bounds references all fail with
// ErrMalformedName.
func Decode(msg []byte, off int) (string, int, error) {
	var sb strings.Builder
	var encodedLen int
	next := -1 // offset after the name; set when the first pointer is taken
	pointers := 0

	for {
		if off < 0 || off >= len(msg) {
			return "", 0, fmt.Errorf("%w: offset out of bounds", ErrMalformedName)
		}
		l := int(msg[off])
		switch l & 0xC0 {
		case 0x00:
			if l == 0 {
				encodedLen++
				if encodedLen > MaxEncodedLen {
					return "", 0, fmt.Errorf("%w: expanded name exceeds %d octets", ErrMalformedName, MaxEncodedLen)
				}
				if next < 0 {
					next = off + 1
				}
				return sb.String(), next, nil
			}
			if off+1+l > len(msg) {
				return "", 0, fmt.Errorf("%w: label runs past message", ErrMalformedName)
			}
			encodedLen += 1 + l
			if encodedLen > MaxEncodedLen {
				return "", 0, fmt.Errorf("%w: expanded name exceeds %d octets", ErrMalformedName, MaxEncodedLen)
			}
			if sb.Len() > 0 {
				sb.WriteByte('.')
			}
			sb.Write(msg[off+1 : off+1+l])
			off += 1 + l
		case 0xC0:
			if off+1 >= len(msg) {
				return "", 0, fmt.Errorf("%w: truncated compression pointer", ErrMalformedName)
			}
			pointers++
			if pointers > maxPointers {
				return "", 0, fmt.Errorf("%w: compression chain too long", ErrMalformedName)
			}
			if next < 0 {
				next = off + 2
			}
			off = int(msg[off]&0x3F)<<8 | int(msg[off+1])
		default:
			// 0x40 and 0x80 label types are reserved (RFC 1035 §4.1.4).
			return "", 0, fmt.Errorf("%w: reserved label type 0x%02x", ErrMalformedName, l&0xC0)
		}
	}
}

// Compare orders two names in the canonical ordering of RFC 4034 §6.1:
// labels compared right to left, bytewise on the lowercase form.
func Compare(a, b string) int {
	la, lb := Labels(Canonical(a)), Labels(Canonical(b))
	for i := 1; i <= len(la) && i <= len(lb); i++ {
		if c := strings.Compare(la[len(la)-i], lb[len(lb)-i]); c != 0 {
			return c
		}
	}
	switch {
	case len(la) < len(lb):
		return -1
	case len(la) > len(lb):
		return 1
	default:
		return 0
	}
}

// Randomize0x20 flips the case of ASCII letters in name pseudo-randomly
// without changing its identity. Non-letter octets pass through unchanged.
func Randomize0x20(name string, rng *rand.Rand) string {
	b := []byte(name)
	for i, c := range b {
		switch {
		case c >= 'a' && c <= 'z':
			if rng.Intn(2) == 1 {
				b[i] = c - 0x20
			}
		case c >= 'A' && c <= 'Z':
			if rng.Intn(2) == 1 {
				b[i] = c + 0x20
			}
		}
	}
	return string(b)
}

// Match0x20 reports whether got echoes sent byte-for-byte. Under 0x20
// validation the echoed question must match including case, so this is an
// exact comparison apart from a tolerated trailing dot.
func Match0x20(sent, got string) bool {
	return strings.TrimSuffix(sent, ".") == strings.TrimSuffix(got, ".")
}
