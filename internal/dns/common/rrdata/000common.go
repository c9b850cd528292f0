// Package rrdata implements the RDATA codecs: one file per record type,
// numbered by its IANA type code. Each type converts between three forms:
// the wire form inside a message (possibly holding compression pointers),
// the normalized form stored on a ResourceRecord (always self-contained and
// uncompressed), and the zone-file presentation form.
package rrdata

import (
	"encoding/base32"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"github.com/haukened/rec-dns/internal/dns/common/dnsname"
)

// ErrBadRData is the sentinel wrapped by every RDATA decoding failure.
var ErrBadRData = errors.New("malformed rdata")

// base32Hex renders NSEC3 hashes in the unpadded Base32hex alphabet
// (RFC 5155 §3.3).
var base32Hex = base32.HexEncoding.WithPadding(base32.NoPadding)

// b64 is the encoding used for keys, signatures and MACs in presentation form.
var b64 = base64.StdEncoding

// reader walks a bounded window of a message. Name fields may follow
// compression pointers backwards out of the window, but every sequential
// read is confined to [off, end).
type reader struct {
	msg []byte
	off int
	end int
}

func newReader(msg []byte, off, end int) (*reader, error) {
	if off < 0 || end > len(msg) || off > end {
		return nil, fmt.Errorf("%w: rdata window out of bounds", ErrBadRData)
	}
	return &reader{msg: msg, off: off, end: end}, nil
}

func (r *reader) remaining() int { return r.end - r.off }

func (r *reader) empty() bool { return r.off >= r.end }

func (r *reader) u8() (uint8, error) {
	if r.remaining() < 1 {
		return 0, fmt.Errorf("%w: truncated octet", ErrBadRData)
	}
	v := r.msg[r.off]
	r.off++
	return v, nil
}

func (r *reader) u16() (uint16, error) {
	if r.remaining() < 2 {
		return 0, fmt.Errorf("%w: truncated uint16", ErrBadRData)
	}
	v := binary.BigEndian.Uint16(r.msg[r.off:])
	r.off += 2
	return v, nil
}

func (r *reader) u32() (uint32, error) {
	if r.remaining() < 4 {
		return 0, fmt.Errorf("%w: truncated uint32", ErrBadRData)
	}
	v := binary.BigEndian.Uint32(r.msg[r.off:])
	r.off += 4
	return v, nil
}

// u48 reads the 48-bit big-endian timestamps used by TSIG.
func (r *reader) u48() (uint64, error) {
	if r.remaining() < 6 {
		return 0, fmt.Errorf("%w: truncated uint48", ErrBadRData)
	}
	var v uint64
	for i := 0; i < 6; i++ {
		v = v<<8 | uint64(r.msg[r.off+i])
	}
	r.off += 6
	return v, nil
}

func (r *reader) bytes(n int) ([]byte, error) {
	if n < 0 || r.remaining() < n {
		return nil, fmt.Errorf("%w: truncated field of %d octets", ErrBadRData, n)
	}
	out := make([]byte, n)
	copy(out, r.msg[r.off:])
	r.off += n
	return out, nil
}

// rest consumes and returns everything up to the window end.
func (r *reader) rest() []byte {
	out := make([]byte, r.remaining())
	copy(out, r.msg[r.off:])
	r.off = r.end
	return out
}

// name reads a domain name, chasing compression pointers anywhere in the
// message but requiring the name's own octets to end inside the window.
func (r *reader) name() (string, error) {
	name, next, err := dnsname.Decode(r.msg, r.off)
	if err != nil {
		return "", err
	}
	if next > r.end {
		return "", fmt.Errorf("%w: name runs past rdata", ErrBadRData)
	}
	r.off = next
	return name, nil
}

// charString reads a single <character-string>: one length octet followed by
// that many octets (RFC 1035 §3.3).
func (r *reader) charString() ([]byte, error) {
	n, err := r.u8()
	if err != nil {
		return nil, err
	}
	return r.bytes(int(n))
}

func appendU16(dst []byte, v uint16) []byte {
	return append(dst, byte(v>>8), byte(v))
}

func appendU32(dst []byte, v uint32) []byte {
	return append(dst, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}

func appendU48(dst []byte, v uint64) []byte {
	return append(dst, byte(v>>40), byte(v>>32), byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}

// appendName writes a name uncompressed, preserving case.
func appendName(dst []byte, name string) ([]byte, error) {
	return dnsname.Append(dst, name, nil)
}

// appendCharString writes one <character-string>.
func appendCharString(dst []byte, s []byte) ([]byte, error) {
	if len(s) > 255 {
		return nil, fmt.Errorf("%w: character-string exceeds 255 octets", ErrBadRData)
	}
	dst = append(dst, byte(len(s)))
	return append(dst, s...), nil
}

// quoteText renders a string as a quoted zone-file token, escaping quotes
// and backslashes.
func quoteText(s []byte) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for _, c := range s {
		if c == '"' || c == '\\' {
			sb.WriteByte('\\')
		}
		sb.WriteByte(c)
	}
	sb.WriteByte('"')
	return sb.String()
}

// splitQuoted tokenizes a presentation string into fields, honoring quoted
// strings with backslash escapes. Unquoted runs split on whitespace.
func splitQuoted(s string) ([]string, error) {
	var out []string
	i := 0
	for i < len(s) {
		switch {
		case s[i] == ' ' || s[i] == '\t':
			i++
		case s[i] == '"':
			var sb strings.Builder
			i++
			for {
				if i >= len(s) {
					return nil, fmt.Errorf("%w: unterminated quoted string", ErrBadRData)
				}
				if s[i] == '\\' && i+1 < len(s) {
					sb.WriteByte(s[i+1])
					i += 2
					continue
				}
				if s[i] == '"' {
					i++
					break
				}
				sb.WriteByte(s[i])
				i++
			}
			out = append(out, sb.String())
		default:
			start := i
			for i < len(s) && s[i] != ' ' && s[i] != '\t' {
				i++
			}
			out = append(out, s[start:i])
		}
	}
	return out, nil
}

// opaque returns the window bytes as self-contained RDATA with an RFC 3597
// presentation form.
func opaque(r *reader) ([]byte, string, error) {
	data := r.rest()
	return data, unknownText(data), nil
}
