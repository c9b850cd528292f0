package rrdata

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haukened/rec-dns/internal/dns/domain"
)

func TestKeyTag(t *testing.T) {
	// Hand-computed over a tiny payload: 0x0101 + 0x0308 + 0xABCD = 0xAFD6.
	data := []byte{0x01, 0x01, 0x03, 0x08, 0xAB, 0xCD}
	assert.Equal(t, uint16(0xAFD6), KeyTag(data))

	// Algorithm 1 uses the legacy modulus-tail computation.
	legacy := []byte{0x01, 0x01, 0x03, 0x01, 0x00, 0x11, 0x22, 0x33, 0x44}
	assert.Equal(t, uint16(0x2233), KeyTag(legacy))
}

func TestDNSKEYFlags(t *testing.T) {
	data, err := Encode(domain.RRTypeDNSKEY, "257 3 8 q83vASNFZw==")
	require.NoError(t, err)
	key, err := ParseDNSKEY(data)
	require.NoError(t, err)
	assert.True(t, key.IsZoneKey())
	assert.True(t, key.IsSEP())
	assert.Equal(t, uint8(8), key.Algorithm)

	data, err = Encode(domain.RRTypeDNSKEY, "256 3 13 q83vASNFZw==")
	require.NoError(t, err)
	key, err = ParseDNSKEY(data)
	require.NoError(t, err)
	assert.True(t, key.IsZoneKey())
	assert.False(t, key.IsSEP())
}

func TestSerialArithmetic(t *testing.T) {
	assert.True(t, SerialLT(1, 2))
	assert.False(t, SerialLT(2, 1))
	assert.False(t, SerialLT(5, 5))
	// Wraparound: 0 sorts after the top of the space.
	assert.True(t, SerialLT(0xFFFFFFFF, 0))
	assert.True(t, SerialGT(0, 0xFFFFFFFF))
}

func TestRRSIGRoundTripAndWindow(t *testing.T) {
	text := "A 8 2 300 20240615000000 20240601000000 20326 example.com q83vASNFZw=="
	data, err := Encode(domain.RRTypeRRSIG, text)
	require.NoError(t, err)
	_, gotText, err := Decode(domain.RRTypeRRSIG, data, 0, len(data))
	require.NoError(t, err)
	assert.Equal(t, text, gotText)

	sig, err := ParseRRSIG(data)
	require.NoError(t, err)
	assert.Equal(t, domain.RRTypeA, sig.TypeCovered)
	assert.Equal(t, uint8(2), sig.Labels)
	assert.Equal(t, uint16(20326), sig.KeyTag)
	assert.Equal(t, "example.com", sig.SignerName)

	inWindow := time.Date(2024, 6, 7, 12, 0, 0, 0, time.UTC)
	assert.True(t, sig.ValidAt(inWindow))
	assert.False(t, sig.ValidAt(time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC)))
	assert.False(t, sig.ValidAt(time.Date(2024, 6, 16, 0, 0, 0, 0, time.UTC)))

	// Bounds are inclusive.
	assert.True(t, sig.ValidAt(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, sig.ValidAt(time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)))
}

func TestRRSIGSignedPrefix(t *testing.T) {
	data, err := Encode(domain.RRTypeRRSIG, "A 8 2 300 20240615000000 20240601000000 20326 EXAMPLE.com q83vASNFZw==")
	require.NoError(t, err)
	sig, err := ParseRRSIG(data)
	require.NoError(t, err)

	prefix, err := sig.SignedPrefix()
	require.NoError(t, err)
	// 18 fixed octets plus the canonical signer name.
	wantName := []byte{7, 'e', 'x', 'a', 'm', 'p', 'l', 'e', 3, 'c', 'o', 'm', 0}
	assert.Equal(t, wantName, prefix[18:])
	assert.Equal(t, data[:18], prefix[:18])
}

func TestTypeBitmapRoundTrip(t *testing.T) {
	types := []domain.RRType{domain.RRTypeA, domain.RRTypeMX, domain.RRTypeRRSIG, domain.RRTypeNSEC, domain.RRType(1234)}
	bitmap := encodeTypeBitmap(types)
	got, err := decodeTypeBitmap(bitmap)
	require.NoError(t, err)
	assert.Equal(t, []domain.RRType{domain.RRTypeA, domain.RRTypeMX, domain.RRTypeRRSIG, domain.RRTypeNSEC, domain.RRType(1234)}, got)

	// The RFC 4034 §4.1.2 example: A, MX, RRSIG, NSEC plus TYPE1234 spans
	// windows 0 and 4 with these exact octets.
	want := []byte{
		0x00, 0x06, 0x40, 0x01, 0x00, 0x00, 0x00, 0x03,
		0x04, 0x1b, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x20,
	}
	assert.Equal(t, want, bitmap)
}

func TestNSECRoundTrip(t *testing.T) {
	text := "host.example.com A MX RRSIG NSEC TYPE1234"
	data, err := Encode(domain.RRTypeNSEC, text)
	require.NoError(t, err)
	_, gotText, err := Decode(domain.RRTypeNSEC, data, 0, len(data))
	require.NoError(t, err)
	assert.Equal(t, text, gotText)

	nsec, err := ParseNSEC(data)
	require.NoError(t, err)
	assert.Equal(t, "host.example.com", nsec.NextDomain)
	assert.True(t, nsec.Covers(domain.RRTypeMX))
	assert.False(t, nsec.Covers(domain.RRTypeAAAA))
}

func TestNSEC3HashVector(t *testing.T) {
	// RFC 5155 Appendix A: the example.org apex hashes to this label with
	// salt AABBCCDD and 12 extra iterations.
	salt := []byte{0xAA, 0xBB, 0xCC, 0xDD}
	hash, err := NSEC3Hash("example", NSEC3HashSHA1, 12, salt)
	require.NoError(t, err)
	assert.Equal(t, "0p9mhaveqvm6t7vbl5lop2u3t2rp3tom", HashedOwnerLabel(hash))

	_, err = NSEC3Hash("example", 2, 0, nil)
	assert.Error(t, err)
}

func TestNSEC3RoundTrip(t *testing.T) {
	text := "1 1 12 AABBCCDD 0P9MHAVEQVM6T7VBL5LOP2U3T2RP3TOM NS SOA RRSIG DNSKEY NSEC3PARAM"
	data, err := Encode(domain.RRTypeNSEC3, text)
	require.NoError(t, err)
	_, gotText, err := Decode(domain.RRTypeNSEC3, data, 0, len(data))
	require.NoError(t, err)
	assert.Equal(t, text, gotText)

	n, err := ParseNSEC3(data)
	require.NoError(t, err)
	assert.Equal(t, NSEC3HashSHA1, n.HashAlg)
	assert.True(t, n.OptOut())
	assert.Equal(t, uint16(12), n.Iterations)
	assert.Len(t, n.NextHashed, 20)
	assert.True(t, n.Covers(domain.RRTypeSOA))
}

func TestNSEC3PARAMRoundTrip(t *testing.T) {
	text := "1 0 12 AABBCCDD"
	data, err := Encode(domain.RRTypeNSEC3PARAM, text)
	require.NoError(t, err)
	_, gotText, err := Decode(domain.RRTypeNSEC3PARAM, data, 0, len(data))
	require.NoError(t, err)
	assert.Equal(t, text, gotText)

	// Empty salt renders as "-".
	data, err = Encode(domain.RRTypeNSEC3PARAM, "1 0 0 -")
	require.NoError(t, err)
	_, gotText, err = Decode(domain.RRTypeNSEC3PARAM, data, 0, len(data))
	require.NoError(t, err)
	assert.Equal(t, "1 0 0 -", gotText)
}

func TestCanonicalLowercasesEmbeddedNames(t *testing.T) {
	data, err := Encode(domain.RRTypeMX, "10 MAIL.Example.COM")
	require.NoError(t, err)
	canon, err := Canonical(domain.RRTypeMX, data)
	require.NoError(t, err)
	mx, err := ParseMX(canon)
	require.NoError(t, err)
	assert.Equal(t, "mail.example.com", mx.Exchange)

	// Non-name payloads pass through untouched.
	aData := []byte{192, 0, 2, 1}
	canon, err = Canonical(domain.RRTypeA, aData)
	require.NoError(t, err)
	assert.Equal(t, aData, canon)

	// RRSIG signer names are not downcased.
	sigData, err := Encode(domain.RRTypeRRSIG, "A 8 2 300 20240615000000 20240601000000 20326 Example.COM q83v")
	require.NoError(t, err)
	canon, err = Canonical(domain.RRTypeRRSIG, sigData)
	require.NoError(t, err)
	assert.Equal(t, sigData, canon)
}
