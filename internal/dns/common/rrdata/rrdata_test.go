package rrdata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haukened/rec-dns/internal/dns/domain"
)

// roundTrip encodes presentation text, decodes the result, and asserts the
// text comes back unchanged.
func roundTrip(t *testing.T, rrType domain.RRType, text string) []byte {
	t.Helper()
	data, err := Encode(rrType, text)
	require.NoError(t, err)
	norm, gotText, err := Decode(rrType, data, 0, len(data))
	require.NoError(t, err)
	assert.Equal(t, data, norm)
	assert.Equal(t, text, gotText)
	return data
}

func TestAddressRecords(t *testing.T) {
	data := roundTrip(t, domain.RRTypeA, "192.0.2.53")
	assert.Equal(t, []byte{192, 0, 2, 53}, data)

	roundTrip(t, domain.RRTypeAAAA, "2001:db8::35")

	_, err := Encode(domain.RRTypeA, "2001:db8::1")
	assert.Error(t, err)
	_, err = Encode(domain.RRTypeAAAA, "192.0.2.1")
	assert.Error(t, err)
	_, _, err = Decode(domain.RRTypeA, []byte{1, 2, 3}, 0, 3)
	assert.Error(t, err)
}

func TestNameRecords(t *testing.T) {
	roundTrip(t, domain.RRTypeNS, "ns1.example.com")
	roundTrip(t, domain.RRTypeCNAME, "target.example.com")
	roundTrip(t, domain.RRTypePTR, "host.example.com")
	roundTrip(t, domain.RRTypeDNAME, "new.example.com")
}

func TestNSDecodeFollowsCompression(t *testing.T) {
	// Message layout: a name at offset 0, then NS rdata that is a bare
	// pointer back to it.
	msg := []byte{
		3, 'w', 'w', 'w', 7, 'e', 'x', 'a', 'm', 'p', 'l', 'e', 3, 'c', 'o', 'm', 0,
		0xC0, 0x00,
	}
	data, text, err := Decode(domain.RRTypeNS, msg, 17, 19)
	require.NoError(t, err)
	assert.Equal(t, "www.example.com", text)

	// Normalized form is self-contained: decodable on its own.
	_, text2, err := Decode(domain.RRTypeNS, data, 0, len(data))
	require.NoError(t, err)
	assert.Equal(t, text, text2)
}

func TestSOARoundTrip(t *testing.T) {
	data := roundTrip(t, domain.RRTypeSOA, "ns1.example.com hostmaster.example.com 2024060101 7200 3600 1209600 300")
	soa, err := ParseSOA(data)
	require.NoError(t, err)
	assert.Equal(t, "ns1.example.com", soa.MName)
	assert.Equal(t, uint32(2024060101), soa.Serial)
	assert.Equal(t, uint32(300), soa.Minimum)
}

func TestMXAndSRV(t *testing.T) {
	data := roundTrip(t, domain.RRTypeMX, "10 mail.example.com")
	mx, err := ParseMX(data)
	require.NoError(t, err)
	assert.Equal(t, uint16(10), mx.Preference)
	assert.Equal(t, "mail.example.com", mx.Exchange)

	data = roundTrip(t, domain.RRTypeSRV, "5 100 5060 sip.example.com")
	srv, err := ParseSRV(data)
	require.NoError(t, err)
	assert.Equal(t, uint16(5), srv.Priority)
	assert.Equal(t, uint16(100), srv.Weight)
	assert.Equal(t, uint16(5060), srv.Port)
	assert.Equal(t, "sip.example.com", srv.Target)
}

func TestTXTQuoting(t *testing.T) {
	roundTrip(t, domain.RRTypeTXT, `"v=spf1 -all"`)
	roundTrip(t, domain.RRTypeTXT, `"first" "second"`)
	roundTrip(t, domain.RRTypeTXT, `"has \"quotes\" and \\slash"`)
	roundTrip(t, domain.RRTypeSPF, `"v=spf1 include:example.com -all"`)

	_, err := Encode(domain.RRTypeTXT, "")
	assert.Error(t, err)
	_, _, err = Decode(domain.RRTypeTXT, nil, 0, 0)
	assert.Error(t, err)
}

func TestHINFOAndNAPTRAndCAA(t *testing.T) {
	roundTrip(t, domain.RRTypeHINFO, `"ARM64" "LINUX"`)
	roundTrip(t, domain.RRTypeNAPTR, `100 50 "s" "SIP+D2U" "" _sip._udp.example.com`)
	roundTrip(t, domain.RRTypeCAA, `0 issue "ca.example.net"`)
}

func TestDSAndSSHFPAndTLSA(t *testing.T) {
	data := roundTrip(t, domain.RRTypeDS, "20326 8 2 E06D44B80B8F1D39A95C0B0D7C65D08458E880409BBC683457104237C7F8EC8D")
	ds, err := ParseDS(data)
	require.NoError(t, err)
	assert.Equal(t, uint16(20326), ds.KeyTag)
	assert.Equal(t, uint8(8), ds.Algorithm)
	assert.Equal(t, DigestSHA256, ds.DigestType)
	assert.Len(t, ds.Digest, 32)

	roundTrip(t, domain.RRTypeSSHFP, "4 2 AABBCCDDEEFF00112233445566778899AABBCCDDEEFF00112233445566778899")
	roundTrip(t, domain.RRTypeTLSA, "3 1 1 AABBCCDD")
}

func TestUnknownTypeRoundTrip(t *testing.T) {
	raw := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	data, text, err := Decode(domain.RRType(999), raw, 0, len(raw))
	require.NoError(t, err)
	assert.Equal(t, raw, data)
	assert.Equal(t, `\# 4 DEADBEEF`, text)

	back, err := Encode(domain.RRType(999), text)
	require.NoError(t, err)
	assert.Equal(t, raw, back)

	// The generic form works for known types too.
	back, err = Encode(domain.RRTypeA, `\# 4 C0000235`)
	require.NoError(t, err)
	assert.Equal(t, []byte{192, 0, 2, 53}, back)

	_, err = Encode(domain.RRType(999), `\# 3 DEADBEEF`)
	assert.Error(t, err)
}

func TestDecodeRejectsTrailingBytes(t *testing.T) {
	data := append([]byte{192, 0, 2, 1}, 0xFF)
	_, _, err := Decode(domain.RRTypeA, data, 0, len(data))
	assert.Error(t, err)
}

func TestTSIGRoundTrip(t *testing.T) {
	data := roundTrip(t, domain.RRTypeTSIG, "hmac-sha256 1717243200 300 q83vASNFZw== 4660 0 -")
	ts, err := ParseTSIG(data)
	require.NoError(t, err)
	assert.Equal(t, "hmac-sha256", ts.Algorithm)
	assert.Equal(t, uint64(1717243200), ts.TimeSigned)
	assert.Equal(t, uint16(300), ts.Fudge)
	assert.Equal(t, uint16(4660), ts.OriginalID)
	assert.Empty(t, ts.Other)

	reenc, err := ts.Encode()
	require.NoError(t, err)
	assert.Equal(t, data, reenc)
}

func TestTKEYRoundTrip(t *testing.T) {
	data := roundTrip(t, domain.RRTypeTKEY, "gss-tsig.example.com 1717243200 1717246800 3 0 q83v -")
	tk, err := ParseTKEY(data)
	require.NoError(t, err)
	assert.Equal(t, "gss-tsig.example.com", tk.Algorithm)
	assert.Equal(t, TKEYModeGSS, tk.Mode)
}

func TestHIPRoundTrip(t *testing.T) {
	data := roundTrip(t, domain.RRTypeHIP, "2 200100107B1A74DF365639CC39F1D578 q83vASNFZw== rvs.example.com rvs2.example.net")
	require.NotEmpty(t, data)
}
