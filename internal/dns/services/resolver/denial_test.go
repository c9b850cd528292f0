package resolver

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haukened/rec-dns/internal/dns/common/rrdata"
	"github.com/haukened/rec-dns/internal/dns/domain"
)

func nsec(t *testing.T, owner, next string, types ...domain.RRType) nsecRecord {
	t.Helper()
	return nsecRecord{owner: owner, rec: rrdata.NSEC{NextDomain: next, Types: types}}
}

func TestNSECCoversGap(t *testing.T) {
	n := nsec(t, "alpha.example", "delta.example")
	assert.True(t, nsecCovers(n.owner, n.rec.NextDomain, "bravo.example"))
	assert.False(t, nsecCovers(n.owner, n.rec.NextDomain, "alpha.example"), "owner itself is not covered")
	assert.False(t, nsecCovers(n.owner, n.rec.NextDomain, "delta.example"), "next name is not covered")
	assert.False(t, nsecCovers(n.owner, n.rec.NextDomain, "zulu.example"))

	// The last record of the chain wraps around to the apex.
	last := nsec(t, "zulu.example", "example")
	assert.True(t, nsecCovers(last.owner, last.rec.NextDomain, "zzz.example"))
}

func TestNSECDeniesNodata(t *testing.T) {
	records := []nsecRecord{
		nsec(t, "www.example", "zulu.example", domain.RRTypeA, domain.RRTypeNSEC, domain.RRTypeRRSIG),
	}
	assert.True(t, nsecDenies("www.example", domain.RRTypeAAAA, domain.RCodeNoError, records))
	assert.False(t, nsecDenies("www.example", domain.RRTypeA, domain.RCodeNoError, records),
		"a type present in the bitmap is not denied")
}

func TestNSECRejectsNodataWithCNAMEBit(t *testing.T) {
	records := []nsecRecord{
		nsec(t, "www.example", "zulu.example", domain.RRTypeCNAME, domain.RRTypeNSEC, domain.RRTypeRRSIG),
	}
	// A CNAME at the name means the query should have been redirected, not
	// answered with NODATA.
	assert.False(t, nsecDenies("www.example", domain.RRTypeAAAA, domain.RCodeNoError, records))
}

func TestNSECDeniesNXDomain(t *testing.T) {
	records := []nsecRecord{
		// Apex record; its gap to the first name covers the wildcard.
		nsec(t, "example", "alpha.example", domain.RRTypeSOA, domain.RRTypeNS),
		nsec(t, "alpha.example", "zulu.example", domain.RRTypeA),
	}
	assert.True(t, nsecDenies("bravo.example", domain.RRTypeA, domain.RCodeNxDomain, records))
}

func TestNSECRejectsNXDomainWithoutWildcardProof(t *testing.T) {
	records := []nsecRecord{
		nsec(t, "alpha.example", "zulu.example", domain.RRTypeA),
	}
	// The name is covered but nothing disproves *.example.
	assert.False(t, nsecDenies("bravo.example", domain.RRTypeA, domain.RCodeNxDomain, records))
}

// nsec3For builds a record whose owner hash is the real hash of name under
// empty-salt zero-iteration parameters.
func nsec3For(t *testing.T, zone, name string, optOut bool, types ...domain.RRType) nsec3Record {
	t.Helper()
	hash, err := rrdata.NSEC3Hash(name, 1, 0, nil)
	require.NoError(t, err)
	var flags uint8
	if optOut {
		flags = rrdata.NSEC3FlagOptOut
	}
	// The next hash is owner+1, an empty gap, so the record covers nothing
	// by accident.
	next := make([]byte, len(hash))
	copy(next, hash)
	for i := len(next) - 1; i >= 0; i-- {
		next[i]++
		if next[i] != 0 {
			break
		}
	}
	return nsec3Record{
		zone:      zone,
		ownerHash: hash,
		rec: rrdata.NSEC3{
			HashAlg:    1,
			Flags:      flags,
			Iterations: 0,
			NextHashed: next,
			Types:      types,
		},
	}
}

// nsec3Covering builds a record spanning the whole hash space except its
// endpoints, so it covers any hash that is not all-zero or all-0xFF.
func nsec3Covering(t *testing.T, zone string, optOut bool) nsec3Record {
	t.Helper()
	var flags uint8
	if optOut {
		flags = rrdata.NSEC3FlagOptOut
	}
	owner := make([]byte, 20)
	next := make([]byte, 20)
	for i := range next {
		next[i] = 0xFF
	}
	return nsec3Record{
		zone:      zone,
		ownerHash: owner,
		rec: rrdata.NSEC3{
			HashAlg:    1,
			Flags:      flags,
			Iterations: 0,
			NextHashed: next,
		},
	}
}

func TestNSEC3DeniesNodata(t *testing.T) {
	records := []nsec3Record{
		nsec3For(t, "example", "www.example", false, domain.RRTypeA, domain.RRTypeRRSIG),
	}
	ok, optOut := nsec3Denies("www.example", domain.RRTypeAAAA, domain.RCodeNoError, records)
	assert.True(t, ok)
	assert.False(t, optOut)

	ok, _ = nsec3Denies("www.example", domain.RRTypeA, domain.RCodeNoError, records)
	assert.False(t, ok, "a type present in the bitmap is not denied")
}

func TestNSEC3DeniesNXDomain(t *testing.T) {
	records := []nsec3Record{
		// The closest encloser exists...
		nsec3For(t, "example", "example", false, domain.RRTypeSOA, domain.RRTypeNS),
		// ...and everything else, including the next closer and the
		// wildcard, falls into one covering span.
		nsec3Covering(t, "example", false),
	}
	ok, optOut := nsec3Denies("missing.example", domain.RRTypeA, domain.RCodeNxDomain, records)
	assert.True(t, ok)
	assert.False(t, optOut)
}

func TestNSEC3OptOutDowngrades(t *testing.T) {
	records := []nsec3Record{
		nsec3For(t, "example", "example", false, domain.RRTypeSOA, domain.RRTypeNS),
		nsec3Covering(t, "example", true),
	}
	ok, optOut := nsec3Denies("missing.example", domain.RRTypeA, domain.RCodeNxDomain, records)
	assert.True(t, ok)
	assert.True(t, optOut, "a proof leaning on an opt-out span must say so")
}

func TestNSEC3RejectsProofWithoutCloseEncloser(t *testing.T) {
	records := []nsec3Record{
		nsec3Covering(t, "example", false),
	}
	ok, _ := nsec3Denies("missing.example", domain.RRTypeA, domain.RCodeNxDomain, records)
	assert.False(t, ok)
}

func TestNSEC3RecordRejectsAbusiveIterations(t *testing.T) {
	data, err := rrdata.Encode(domain.RRTypeNSEC3, "1 0 5000 - 9g4cml6j6e37bu1t8ijpvesrr9ctmmit A RRSIG")
	require.NoError(t, err)
	rr, err := domain.NewCachedResourceRecord("9g4cml6j6e37bu1t8ijpvesrr9ctmmit.example", domain.RRTypeNSEC3, domain.RRClassIN, 300, data, "", time.Now())
	require.NoError(t, err)
	_, ok := newNSEC3Record(rr)
	assert.False(t, ok)
}

func TestDenialVerdictSecureNXDomain(t *testing.T) {
	signer := newZoneSigner(t, "example.test")
	fake := &fakeExchanger{respond: dnskeyResponder(t, signer)}
	r := newValidatingResolver(t, fake, map[string][]rrdata.DS{
		"example.test": {signer.ds(t)},
	})

	soa := testRR(t, "example.test", domain.RRTypeSOA, 3600,
		"ns1.example.test hostmaster.example.test 1 7200 900 1209600 300")
	apexNSEC := testRR(t, "example.test", domain.RRTypeNSEC, 300, "alpha.example.test SOA NS DNSKEY NSEC RRSIG")
	spanNSEC := testRR(t, "alpha.example.test", domain.RRTypeNSEC, 300, "zulu.example.test A NSEC RRSIG")

	q, _ := domain.NewQuestion("missing.example.test", domain.RRTypeA, domain.RRClassIN)
	msg := response(q, true, domain.RCodeNxDomain)
	msg.Authority = []domain.ResourceRecord{
		soa, signer.sign(t, []domain.ResourceRecord{soa}, -time.Hour, time.Hour),
		apexNSEC, signer.sign(t, []domain.ResourceRecord{apexNSEC}, -time.Hour, time.Hour),
		spanNSEC, signer.sign(t, []domain.ResourceRecord{spanNSEC}, -time.Hour, time.Hour),
	}

	verdict := r.validator.denial(context.Background(), q, msg, newGuard())
	assert.Equal(t, domain.VerdictSecure, verdict)
}

func TestDenialVerdictBogusWithoutWildcardProof(t *testing.T) {
	signer := newZoneSigner(t, "example.test")
	fake := &fakeExchanger{respond: dnskeyResponder(t, signer)}
	r := newValidatingResolver(t, fake, map[string][]rrdata.DS{
		"example.test": {signer.ds(t)},
	})

	soa := testRR(t, "example.test", domain.RRTypeSOA, 3600,
		"ns1.example.test hostmaster.example.test 1 7200 900 1209600 300")
	spanNSEC := testRR(t, "alpha.example.test", domain.RRTypeNSEC, 300, "zulu.example.test A NSEC RRSIG")

	q, _ := domain.NewQuestion("missing.example.test", domain.RRTypeA, domain.RRClassIN)
	msg := response(q, true, domain.RCodeNxDomain)
	msg.Authority = []domain.ResourceRecord{
		soa, signer.sign(t, []domain.ResourceRecord{soa}, -time.Hour, time.Hour),
		spanNSEC, signer.sign(t, []domain.ResourceRecord{spanNSEC}, -time.Hour, time.Hour),
	}

	verdict := r.validator.denial(context.Background(), q, msg, newGuard())
	assert.Equal(t, domain.VerdictBogus, verdict)
}

func TestDenialUnsignedZone(t *testing.T) {
	fake := &fakeExchanger{respond: func(q domain.Question, server string) (*domain.Message, error) {
		return response(q, true, domain.RCodeNxDomain), nil
	}}
	r := newValidatingResolver(t, fake, nil)

	soa := testRR(t, "plain.test", domain.RRTypeSOA, 3600,
		"ns1.plain.test hostmaster.plain.test 1 7200 900 1209600 300")
	q, _ := domain.NewQuestion("missing.plain.test", domain.RRTypeA, domain.RRClassIN)
	msg := response(q, true, domain.RCodeNxDomain)
	msg.Authority = []domain.ResourceRecord{soa}

	verdict := r.validator.denial(context.Background(), q, msg, newGuard())
	assert.Equal(t, domain.VerdictIndeterminate, verdict)
}
