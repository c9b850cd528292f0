package rrdata

import (
	"github.com/haukened/rec-dns/internal/dns/common/dnsname"
	"github.com/haukened/rec-dns/internal/dns/domain"
)

// Canonical returns RDATA in the canonical form used as DNSSEC signature
// input: for the record types whose RDATA carries domain names subject to
// canonicalization, those names are lowercased (RFC 4034 §6.2). RRSIG signer
// names are left untouched per the clarification in RFC 6840 §5.1. All other
// types pass through unchanged.
func Canonical(t domain.RRType, data []byte) ([]byte, error) {
	r, err := newReader(data, 0, len(data))
	if err != nil {
		return nil, err
	}
	switch t {
	case domain.RRTypeNS, domain.RRTypeCNAME, domain.RRTypePTR, domain.RRTypeDNAME:
		name, err := r.name()
		if err != nil {
			return nil, err
		}
		return dnsname.AppendCanonical(nil, name)

	case domain.RRTypeSOA:
		mname, err := r.name()
		if err != nil {
			return nil, err
		}
		rname, err := r.name()
		if err != nil {
			return nil, err
		}
		out, err := dnsname.AppendCanonical(nil, mname)
		if err != nil {
			return nil, err
		}
		if out, err = dnsname.AppendCanonical(out, rname); err != nil {
			return nil, err
		}
		return append(out, r.rest()...), nil

	case domain.RRTypeMX:
		prefix, err := r.bytes(2)
		if err != nil {
			return nil, err
		}
		return canonicalTrailingName(r, prefix)

	case domain.RRTypeSRV:
		prefix, err := r.bytes(6)
		if err != nil {
			return nil, err
		}
		return canonicalTrailingName(r, prefix)

	case domain.RRTypeNAPTR:
		prefix, err := r.bytes(4)
		if err != nil {
			return nil, err
		}
		for i := 0; i < 3; i++ {
			s, err := r.charString()
			if err != nil {
				return nil, err
			}
			if prefix, err = appendCharString(prefix, s); err != nil {
				return nil, err
			}
		}
		return canonicalTrailingName(r, prefix)

	default:
		out := make([]byte, len(data))
		copy(out, data)
		return out, nil
	}
}

// canonicalTrailingName appends the canonical form of the single name that
// terminates the RDATA.
func canonicalTrailingName(r *reader, prefix []byte) ([]byte, error) {
	name, err := r.name()
	if err != nil {
		return nil, err
	}
	return dnsname.AppendCanonical(prefix, name)
}
