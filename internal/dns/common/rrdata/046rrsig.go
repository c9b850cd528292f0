package rrdata

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/haukened/rec-dns/internal/dns/common/dnsname"
	"github.com/haukened/rec-dns/internal/dns/domain"
)

// DNSSEC signing algorithm numbers (RFC 8624).
const (
	AlgRSASHA1         uint8 = 5
	AlgRSASHA256       uint8 = 8
	AlgRSASHA512       uint8 = 10
	AlgECDSAP256SHA256 uint8 = 13
	AlgECDSAP384SHA384 uint8 = 14
	AlgEd25519         uint8 = 15
)

// RRSIG is the parsed form of a resource record signature (RFC 4034 §3).
// Expiration and Inception are seconds since the epoch in the 32-bit
// serial-number space; compare them with SerialLT, not plain <.
type RRSIG struct {
	TypeCovered domain.RRType
	Algorithm   uint8
	Labels      uint8
	OriginalTTL uint32
	Expiration  uint32
	Inception   uint32
	KeyTag      uint16
	SignerName  string
	Signature   []byte
}

// ValidAt reports whether t falls inside the signature's validity window.
// Both bounds are inclusive and compared in serial arithmetic so windows
// spanning the 2038 wrap still work.
func (s RRSIG) ValidAt(t time.Time) bool {
	now := uint32(t.UTC().Unix())
	return !SerialLT(now, s.Inception) && !SerialLT(s.Expiration, now)
}

// ParseRRSIG parses normalized RRSIG RDATA into its fields.
func ParseRRSIG(data []byte) (RRSIG, error) {
	r, err := newReader(data, 0, len(data))
	if err != nil {
		return RRSIG{}, err
	}
	var sig RRSIG
	tc, err := r.u16()
	if err != nil {
		return RRSIG{}, err
	}
	sig.TypeCovered = domain.RRType(tc)
	if sig.Algorithm, err = r.u8(); err != nil {
		return RRSIG{}, err
	}
	if sig.Labels, err = r.u8(); err != nil {
		return RRSIG{}, err
	}
	if sig.OriginalTTL, err = r.u32(); err != nil {
		return RRSIG{}, err
	}
	if sig.Expiration, err = r.u32(); err != nil {
		return RRSIG{}, err
	}
	if sig.Inception, err = r.u32(); err != nil {
		return RRSIG{}, err
	}
	if sig.KeyTag, err = r.u16(); err != nil {
		return RRSIG{}, err
	}
	if sig.SignerName, err = r.name(); err != nil {
		return RRSIG{}, fmt.Errorf("rrsig signer: %w", err)
	}
	sig.Signature = r.rest()
	if len(sig.Signature) == 0 {
		return RRSIG{}, fmt.Errorf("%w: RRSIG signature is empty", ErrBadRData)
	}
	return sig, nil
}

// SignedPrefix returns the RDATA up to and including the signer name, the
// portion that is prepended to the canonical RRset when computing or
// verifying the signature (RFC 4034 §3.1.8.1). The signer name is already
// required to be lowercase in transit; it is canonicalized here anyway.
func (s RRSIG) SignedPrefix() ([]byte, error) {
	data := appendU16(nil, uint16(s.TypeCovered))
	data = append(data, s.Algorithm, s.Labels)
	data = appendU32(data, s.OriginalTTL)
	data = appendU32(data, s.Expiration)
	data = appendU32(data, s.Inception)
	data = appendU16(data, s.KeyTag)
	return dnsname.AppendCanonical(data, s.SignerName)
}

// decodeRRSIGData decodes an RRSIG record. The signer name must never be
// compressed on the wire (RFC 4034 §3.1.7), but decoding tolerates it.
func decodeRRSIGData(r *reader) ([]byte, string, error) {
	fixed, err := r.bytes(16)
	if err != nil {
		return nil, "", err
	}
	signer, err := r.name()
	if err != nil {
		return nil, "", fmt.Errorf("rrsig signer: %w", err)
	}
	signature := r.rest()
	if len(signature) == 0 {
		return nil, "", fmt.Errorf("%w: RRSIG signature is empty", ErrBadRData)
	}

	data, err := appendName(fixed, signer)
	if err != nil {
		return nil, "", err
	}
	data = append(data, signature...)

	sig, err := ParseRRSIG(data)
	if err != nil {
		return nil, "", err
	}
	signerText := signer
	if signerText == "" {
		signerText = "."
	}
	text := fmt.Sprintf("%s %d %d %d %s %s %d %s %s",
		sig.TypeCovered, sig.Algorithm, sig.Labels, sig.OriginalTTL,
		formatSigTime(sig.Expiration), formatSigTime(sig.Inception),
		sig.KeyTag, signerText, b64.EncodeToString(sig.Signature))
	return data, text, nil
}

// encodeRRSIGData encodes the RRSIG presentation form. Timestamps are
// accepted as YYYYMMDDHHmmSS or as raw seconds since the epoch.
func encodeRRSIGData(text string) ([]byte, error) {
	parts := strings.Fields(text)
	if len(parts) < 9 {
		return nil, fmt.Errorf("expected 9 fields, got %d", len(parts))
	}
	tc := domain.RRTypeFromString(parts[0])
	if tc == 0 {
		return nil, fmt.Errorf("invalid type covered %q", parts[0])
	}
	alg, err := strconv.ParseUint(parts[1], 10, 8)
	if err != nil {
		return nil, fmt.Errorf("invalid algorithm %q: %w", parts[1], err)
	}
	labels, err := strconv.ParseUint(parts[2], 10, 8)
	if err != nil {
		return nil, fmt.Errorf("invalid labels %q: %w", parts[2], err)
	}
	origTTL, err := strconv.ParseUint(parts[3], 10, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid original ttl %q: %w", parts[3], err)
	}
	expiration, err := parseSigTime(parts[4])
	if err != nil {
		return nil, fmt.Errorf("invalid expiration %q: %w", parts[4], err)
	}
	inception, err := parseSigTime(parts[5])
	if err != nil {
		return nil, fmt.Errorf("invalid inception %q: %w", parts[5], err)
	}
	tag, err := strconv.ParseUint(parts[6], 10, 16)
	if err != nil {
		return nil, fmt.Errorf("invalid key tag %q: %w", parts[6], err)
	}
	signature, err := b64.DecodeString(strings.Join(parts[8:], ""))
	if err != nil {
		return nil, fmt.Errorf("invalid signature: %w", err)
	}

	data := appendU16(nil, uint16(tc))
	data = append(data, uint8(alg), uint8(labels))
	data = appendU32(data, uint32(origTTL))
	data = appendU32(data, expiration)
	data = appendU32(data, inception)
	data = appendU16(data, uint16(tag))
	if data, err = appendName(data, parts[7]); err != nil {
		return nil, fmt.Errorf("invalid signer name: %w", err)
	}
	return append(data, signature...), nil
}

// formatSigTime renders an RRSIG timestamp as YYYYMMDDHHmmSS in UTC.
func formatSigTime(v uint32) string {
	return time.Unix(int64(v), 0).UTC().Format("20060102150405")
}

// parseSigTime accepts YYYYMMDDHHmmSS or plain seconds since the epoch.
func parseSigTime(s string) (uint32, error) {
	if len(s) == 14 {
		t, err := time.Parse("20060102150405", s)
		if err == nil {
			return uint32(t.Unix()), nil
		}
	}
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}
