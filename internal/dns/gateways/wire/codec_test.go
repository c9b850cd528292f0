package wire

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haukened/rec-dns/internal/dns/common/log"
	"github.com/haukened/rec-dns/internal/dns/common/rrdata"
	"github.com/haukened/rec-dns/internal/dns/domain"
)

func testCodec() MessageCodec {
	return NewCodec(log.NewNoopLogger())
}

func mustRecord(t *testing.T, name string, rrType domain.RRType, ttl uint32, text string, now time.Time) domain.ResourceRecord {
	t.Helper()
	data, err := rrdata.Encode(rrType, text)
	require.NoError(t, err)
	rr, err := domain.NewCachedResourceRecord(name, rrType, domain.RRClassIN, ttl, data, text, now)
	require.NoError(t, err)
	return rr
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	c := testCodec()
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	q, err := domain.NewQuestion("www.example.com", domain.RRTypeA, domain.RRClassIN)
	require.NoError(t, err)
	m := domain.NewQueryMessage(0x1234, q, false)
	m.Response = true
	m.Authoritative = true
	m.Answers = []domain.ResourceRecord{
		mustRecord(t, "www.example.com", domain.RRTypeA, 300, "192.0.2.1", now),
		mustRecord(t, "www.example.com", domain.RRTypeA, 300, "192.0.2.2", now),
	}
	m.Authority = []domain.ResourceRecord{
		mustRecord(t, "example.com", domain.RRTypeNS, 3600, "ns1.example.com", now),
	}
	m.EDNS = &domain.EDNS{UDPSize: 1232, Do: true}

	data, err := c.Encode(m, 0, now)
	require.NoError(t, err)

	got, err := c.Decode(data, now)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x1234), got.ID)
	assert.True(t, got.Response)
	assert.True(t, got.Authoritative)
	assert.False(t, got.Truncated)
	require.Len(t, got.Question, 1)
	assert.Equal(t, "www.example.com", got.Question[0].Name)
	require.Len(t, got.Answers, 2)
	assert.Equal(t, "192.0.2.1", got.Answers[0].Text)
	assert.Equal(t, uint32(300), got.Answers[0].TTL(now))
	require.Len(t, got.Authority, 1)
	assert.Equal(t, "ns1.example.com", got.Authority[0].Text)
	require.NotNil(t, got.EDNS)
	assert.Equal(t, uint16(1232), got.EDNS.UDPSize)
	assert.True(t, got.EDNS.Do)
	assert.Empty(t, got.Additional)
}

func TestCompressionShrinksRepeatedNames(t *testing.T) {
	c := testCodec()
	now := time.Now()

	q, _ := domain.NewQuestion("www.example.com", domain.RRTypeA, domain.RRClassIN)
	m := domain.NewQueryMessage(1, q, false)
	m.Response = true
	for i := 0; i < 4; i++ {
		m.Answers = append(m.Answers, mustRecord(t, "www.example.com", domain.RRTypeA, 60, "192.0.2.1", now))
	}

	data, err := c.Encode(m, 0, now)
	require.NoError(t, err)
	// Question name: 17 octets. Each answer: 2 (pointer) + 10 + 4. Without
	// compression each answer would carry the full 17-octet name.
	assert.Equal(t, 12+17+4+4*16, len(data))

	got, err := c.Decode(data, now)
	require.NoError(t, err)
	assert.Len(t, got.Answers, 4)
	assert.Equal(t, "www.example.com", got.Answers[3].Name)
}

func TestTruncationDropsWholeRecords(t *testing.T) {
	c := testCodec()
	now := time.Now()

	q, _ := domain.NewQuestion("bulk.example.com", domain.RRTypeTXT, domain.RRClassIN)
	m := domain.NewQueryMessage(7, q, false)
	m.Response = true
	m.EDNS = &domain.EDNS{UDPSize: 1232}
	for i := 0; i < 40; i++ {
		m.Answers = append(m.Answers, mustRecord(t, "bulk.example.com", domain.RRTypeTXT, 60,
			`"0123456789012345678901234567890123456789"`, now))
	}
	m.Additional = []domain.ResourceRecord{
		mustRecord(t, "extra.example.com", domain.RRTypeA, 60, "192.0.2.9", now),
	}

	data, err := c.Encode(m, 512, now)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(data), 512)

	got, err := c.Decode(data, now)
	require.NoError(t, err)
	assert.True(t, got.Truncated)
	assert.Less(t, len(got.Answers), 40)
	assert.NotEmpty(t, got.Answers)
	// Additional data goes first; the OPT pseudo-record survives.
	assert.Empty(t, got.Additional)
	require.NotNil(t, got.EDNS)
}

func TestExtendedRCode(t *testing.T) {
	c := testCodec()
	now := time.Now()

	q, _ := domain.NewQuestion("example.com", domain.RRTypeA, domain.RRClassIN)
	m := domain.NewQueryMessage(9, q, false)
	m.Response = true
	m.RCode = domain.RCodeBadVers
	m.EDNS = &domain.EDNS{UDPSize: 1232}

	data, err := c.Encode(m, 0, now)
	require.NoError(t, err)
	got, err := c.Decode(data, now)
	require.NoError(t, err)
	assert.Equal(t, domain.RCodeBadVers, got.RCode)
	assert.Equal(t, "BADVERS", got.RCode.StringIn(got.EDNS != nil))

	// Without EDNS there is nowhere to put the high bits.
	m.EDNS = nil
	_, err = c.Encode(m, 0, now)
	assert.Error(t, err)
}

func TestDecodeRejectsDuplicateOPT(t *testing.T) {
	c := testCodec()
	now := time.Now()

	q, _ := domain.NewQuestion("example.com", domain.RRTypeA, domain.RRClassIN)
	m := domain.NewQueryMessage(3, q, false)
	m.EDNS = &domain.EDNS{UDPSize: 1232}
	data, err := c.Encode(m, 0, now)
	require.NoError(t, err)

	// Append a second OPT by hand and bump ARCOUNT.
	data = append(data, 0)
	data = appendU16(data, uint16(domain.RRTypeOPT))
	data = appendU16(data, 512)
	data = appendU32(data, 0)
	data = appendU16(data, 0)
	data[11]++

	_, err = c.Decode(data, now)
	assert.ErrorContains(t, err, "duplicate OPT")
}

func TestEDNSOptionsRoundTrip(t *testing.T) {
	c := testCodec()
	now := time.Now()

	q, _ := domain.NewQuestion("example.com", domain.RRTypeA, domain.RRClassIN)
	m := domain.NewQueryMessage(4, q, false)
	m.EDNS = &domain.EDNS{
		UDPSize: 4096,
		Do:      true,
		Options: []domain.EDNSOption{
			{Code: domain.EDNSOptionDAU, Data: []byte{8, 13, 15}},
			{Code: domain.EDNSOptionN3U, Data: []byte{1}},
		},
	}

	data, err := c.Encode(m, 0, now)
	require.NoError(t, err)
	got, err := c.Decode(data, now)
	require.NoError(t, err)
	require.NotNil(t, got.EDNS)
	require.Len(t, got.EDNS.Options, 2)
	assert.Equal(t, domain.EDNSOptionDAU, got.EDNS.Options[0].Code)
	assert.Equal(t, []byte{8, 13, 15}, got.EDNS.Options[0].Data)
}

func TestUDPSizeClamp(t *testing.T) {
	c := testCodec()
	now := time.Now()

	q, _ := domain.NewQuestion("example.com", domain.RRTypeA, domain.RRClassIN)
	m := domain.NewQueryMessage(5, q, false)
	m.EDNS = &domain.EDNS{UDPSize: 100}

	data, err := c.Encode(m, 0, now)
	require.NoError(t, err)
	got, err := c.Decode(data, now)
	require.NoError(t, err)
	assert.Equal(t, uint16(MinUDPSize), got.EDNS.UDPSize)
}
