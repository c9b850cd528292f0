package resolver

import (
	"bytes"
	"context"
	"encoding/base32"
	"strings"

	"github.com/haukened/rec-dns/internal/dns/common/dnsname"
	"github.com/haukened/rec-dns/internal/dns/common/rrdata"
	"github.com/haukened/rec-dns/internal/dns/domain"
)

// denial decides the verdict of a negative answer: the authority RRsets
// (SOA plus NSEC or NSEC3) must each validate, and the NSEC/NSEC3 records
// must actually prove the nonexistence the rcode claims.
func (v *validator) denial(ctx context.Context, q domain.Question, msg *domain.Message, g *guard) domain.Verdict {
	if v.disabled {
		return domain.VerdictUnsigned
	}

	overall := domain.VerdictSecure
	have := false
	var nsecs []nsecRecord
	var nsec3s []nsec3Record
	for _, set := range authorityRRsets(msg) {
		switch set[0].Type {
		case domain.RRTypeSOA, domain.RRTypeNSEC, domain.RRTypeNSEC3:
		default:
			continue
		}
		sv := v.signedSet(ctx, dnsname.Canonical(set[0].Name), set, signaturesFor(msg, set[0].Name, set[0].Type), g)
		if have {
			overall = overall.Combine(sv)
		} else {
			overall = sv
			have = true
		}
		for _, rr := range set {
			switch rr.Type {
			case domain.RRTypeNSEC:
				if n, err := rrdata.ParseNSEC(rr.Data); err == nil {
					nsecs = append(nsecs, nsecRecord{owner: dnsname.Canonical(rr.Name), rec: n})
				}
			case domain.RRTypeNSEC3:
				if r, ok := newNSEC3Record(rr); ok {
					nsec3s = append(nsec3s, r)
				}
			}
		}
	}
	if !have || overall != domain.VerdictSecure {
		// An unsigned or broken zone cannot prove anything; the negative
		// answer inherits whatever the zone's status is.
		return overall
	}

	switch {
	case len(nsec3s) > 0:
		ok, optOut := nsec3Denies(q.Name, q.Type, msg.RCode, nsec3s)
		if !ok {
			return domain.VerdictBogus
		}
		if optOut {
			// Opt-out proves only that no secure delegation exists.
			return domain.VerdictInsecure
		}
		return domain.VerdictSecure
	case len(nsecs) > 0:
		if !nsecDenies(q.Name, q.Type, msg.RCode, nsecs) {
			return domain.VerdictBogus
		}
		return domain.VerdictSecure
	default:
		// Signed zone, validated SOA, but no proof records at all.
		return domain.VerdictBogus
	}
}

// authorityRRsets groups the authority section into RRsets, preserving order.
func authorityRRsets(msg *domain.Message) [][]domain.ResourceRecord {
	var order []string
	byKey := make(map[string][]domain.ResourceRecord)
	for _, rr := range msg.Authority {
		if rr.Type == domain.RRTypeRRSIG {
			continue
		}
		key := rr.CacheKey()
		if _, seen := byKey[key]; !seen {
			order = append(order, key)
		}
		byKey[key] = append(byKey[key], rr)
	}
	sets := make([][]domain.ResourceRecord, 0, len(order))
	for _, key := range order {
		sets = append(sets, byKey[key])
	}
	return sets
}

type nsecRecord struct {
	owner string
	rec   rrdata.NSEC
}

// nsecDenies checks an NSEC-based denial: a NODATA needs a matching record
// with the type absent from its bitmap, an NXDOMAIN needs the name covered
// plus the closest encloser's wildcard covered.
func nsecDenies(qname string, qtype domain.RRType, rcode domain.RCode, nsecs []nsecRecord) bool {
	name := dnsname.Canonical(qname)
	if rcode == domain.RCodeNoError {
		for _, n := range nsecs {
			if dnsname.Equal(n.owner, name) && !n.rec.Covers(qtype) && !n.rec.Covers(domain.RRTypeCNAME) {
				return true
			}
		}
		// Wildcard-synthesized NODATA: the name itself does not exist but a
		// wildcard with an empty bitmap slot answered.
		for _, n := range nsecs {
			if !nsecCovers(n.owner, n.rec.NextDomain, name) {
				continue
			}
			ce := longerName(commonAncestor(name, n.owner), commonAncestor(name, n.rec.NextDomain))
			wild := wildcardOf(ce)
			for _, m := range nsecs {
				if dnsname.Equal(m.owner, wild) && !m.rec.Covers(qtype) && !m.rec.Covers(domain.RRTypeCNAME) {
					return true
				}
			}
		}
		return false
	}
	for _, n := range nsecs {
		if !nsecCovers(n.owner, n.rec.NextDomain, name) {
			continue
		}
		ce := longerName(commonAncestor(name, n.owner), commonAncestor(name, n.rec.NextDomain))
		wild := wildcardOf(ce)
		for _, m := range nsecs {
			if nsecCovers(m.owner, m.rec.NextDomain, wild) {
				return true
			}
		}
	}
	return false
}

// nsecCovers reports whether name falls in the gap (owner, next). The last
// record of a zone wraps around to the apex, covering everything after the
// owner and everything before the next name.
func nsecCovers(owner, next, name string) bool {
	co := dnsname.Compare(owner, name)
	cn := dnsname.Compare(name, next)
	if dnsname.Compare(owner, next) < 0 {
		return co < 0 && cn < 0
	}
	return co < 0 || cn < 0
}

// commonAncestor returns the longest shared label suffix of a and b.
func commonAncestor(a, b string) string {
	la := dnsname.Labels(dnsname.Canonical(a))
	lb := dnsname.Labels(dnsname.Canonical(b))
	n := 0
	for n < len(la) && n < len(lb) && strings.EqualFold(la[len(la)-1-n], lb[len(lb)-1-n]) {
		n++
	}
	return strings.Join(la[len(la)-n:], ".")
}

func longerName(a, b string) string {
	if len(dnsname.Labels(b)) > len(dnsname.Labels(a)) {
		return b
	}
	return a
}

func wildcardOf(zone string) string {
	if zone == "" {
		return "*"
	}
	return "*." + zone
}

type nsec3Record struct {
	zone      string
	ownerHash []byte
	rec       rrdata.NSEC3
}

var base32Hex = base32.HexEncoding.WithPadding(base32.NoPadding)

// newNSEC3Record parses an NSEC3 resource record and decodes the hashed
// owner from its first label. Records with an unknown hash algorithm or an
// abusive iteration count are discarded.
func newNSEC3Record(rr domain.ResourceRecord) (nsec3Record, bool) {
	rec, err := rrdata.ParseNSEC3(rr.Data)
	if err != nil || rec.HashAlg != 1 || rec.Iterations > maxNSEC3Iterations {
		return nsec3Record{}, false
	}
	labels := dnsname.Labels(dnsname.Canonical(rr.Name))
	if len(labels) < 2 {
		return nsec3Record{}, false
	}
	hash, err := base32Hex.DecodeString(strings.ToUpper(labels[0]))
	if err != nil || len(hash) == 0 {
		return nsec3Record{}, false
	}
	return nsec3Record{
		zone:      strings.Join(labels[1:], "."),
		ownerHash: hash,
		rec:       rec,
	}, true
}

func (r nsec3Record) hashOf(name string) ([]byte, bool) {
	h, err := rrdata.NSEC3Hash(name, r.rec.HashAlg, r.rec.Iterations, r.rec.Salt)
	if err != nil {
		return nil, false
	}
	return h, true
}

// matches reports whether this record's owner hash is the hash of name.
func (r nsec3Record) matches(name string) bool {
	h, ok := r.hashOf(name)
	return ok && bytes.Equal(r.ownerHash, h)
}

// covers reports whether the hash of name falls between this record's owner
// hash and its next hash, with the usual wrap-around at the end of the chain.
func (r nsec3Record) covers(name string) bool {
	h, ok := r.hashOf(name)
	if !ok {
		return false
	}
	co := bytes.Compare(r.ownerHash, h)
	cn := bytes.Compare(h, r.rec.NextHashed)
	if bytes.Compare(r.ownerHash, r.rec.NextHashed) < 0 {
		return co < 0 && cn < 0
	}
	return co < 0 || cn < 0
}

// nsec3Denies checks an NSEC3-based denial per RFC 5155 §8. The second
// result reports whether the proof leaned on an opt-out span, which only
// demonstrates the absence of a secure delegation.
func nsec3Denies(qname string, qtype domain.RRType, rcode domain.RCode, recs []nsec3Record) (bool, bool) {
	name := dnsname.Canonical(qname)
	if rcode == domain.RCodeNoError {
		for _, r := range recs {
			if r.matches(name) && !r.rec.Covers(qtype) && !r.rec.Covers(domain.RRTypeCNAME) {
				return true, false
			}
		}
		ce, ceFound, ncCovered, ncOptOut := closestEncloser(name, recs)
		if !ceFound {
			return false, false
		}
		// Wildcard-synthesized NODATA.
		wild := wildcardOf(ce)
		for _, r := range recs {
			if r.matches(wild) && !r.rec.Covers(qtype) && !r.rec.Covers(domain.RRTypeCNAME) {
				return true, false
			}
		}
		// DS NODATA across an opt-out span (RFC 5155 §8.6).
		if qtype == domain.RRTypeDS && ncCovered && ncOptOut {
			return true, true
		}
		return false, false
	}

	ce, ceFound, ncCovered, ncOptOut := closestEncloser(name, recs)
	if !ceFound || !ncCovered {
		return false, false
	}
	wild := wildcardOf(ce)
	for _, r := range recs {
		if r.covers(wild) {
			return true, ncOptOut
		}
	}
	if ncOptOut {
		return true, true
	}
	return false, false
}

// closestEncloser walks ancestors of name upward until one hashes to an
// existing NSEC3 owner, then reports whether the next-closer name below it
// is covered and whether that covering record has opt-out set.
func closestEncloser(name string, recs []nsec3Record) (ce string, found, ncCovered, ncOptOut bool) {
	nc := name
	zone := name
	for {
		for _, r := range recs {
			if !r.matches(zone) {
				continue
			}
			ce = zone
			found = true
			for _, c := range recs {
				if c.covers(nc) {
					ncCovered = true
					ncOptOut = c.rec.OptOut()
					break
				}
			}
			return ce, found, ncCovered, ncOptOut
		}
		parent, ok := dnsname.Parent(zone)
		if !ok {
			return "", false, false, false
		}
		nc = zone
		zone = parent
	}
}
