package rrdata

import (
	"fmt"

	"github.com/haukened/rec-dns/internal/dns/common/dnsname"
	"github.com/haukened/rec-dns/internal/dns/domain"
)

// AppendRData appends the wire form of normalized RDATA to msg. Names embedded
// in the RDATA of the RFC 1035 types (NS, CNAME, SOA, PTR, MX) may compress
// against c; every other type is emitted verbatim, since compression inside
// the RDATA of later types is forbidden (RFC 3597 §4). msg must be the whole
// message under construction so that compression offsets are message-absolute.
func AppendRData(msg []byte, t domain.RRType, data []byte, c *dnsname.Compressor) ([]byte, error) {
	r, err := newReader(data, 0, len(data))
	if err != nil {
		return nil, err
	}
	switch t {
	case domain.RRTypeNS, domain.RRTypeCNAME, domain.RRTypePTR:
		name, err := r.name()
		if err != nil {
			return nil, fmt.Errorf("%s rdata: %w", t, err)
		}
		return dnsname.Append(msg, name, c)

	case domain.RRTypeSOA:
		mname, err := r.name()
		if err != nil {
			return nil, fmt.Errorf("soa mname: %w", err)
		}
		rname, err := r.name()
		if err != nil {
			return nil, fmt.Errorf("soa rname: %w", err)
		}
		if msg, err = dnsname.Append(msg, mname, c); err != nil {
			return nil, err
		}
		if msg, err = dnsname.Append(msg, rname, c); err != nil {
			return nil, err
		}
		return append(msg, r.rest()...), nil

	case domain.RRTypeMX:
		prefix, err := r.bytes(2)
		if err != nil {
			return nil, err
		}
		exchange, err := r.name()
		if err != nil {
			return nil, fmt.Errorf("mx exchange: %w", err)
		}
		return dnsname.Append(append(msg, prefix...), exchange, c)

	default:
		return append(msg, data...), nil
	}
}
