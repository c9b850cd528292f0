package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// RRType represents a DNS resource record type (e.g. A, AAAA, MX).
// See IANA DNS Parameters for assigned codes.
type RRType uint16

// DNS Resource Record Type constants
const (
	RRTypeA          RRType = 1   // A - IPv4 address
	RRTypeNS         RRType = 2   // NS - Name server
	RRTypeCNAME      RRType = 5   // CNAME - Canonical name
	RRTypeSOA        RRType = 6   // SOA - Start of authority
	RRTypePTR        RRType = 12  // PTR - Pointer
	RRTypeHINFO      RRType = 13  // HINFO - Host information
	RRTypeMX         RRType = 15  // MX - Mail exchange
	RRTypeTXT        RRType = 16  // TXT - Text
	RRTypeSIG        RRType = 24  // SIG - Security signature (RFC 2535)
	RRTypeKEY        RRType = 25  // KEY - Security key (RFC 2535)
	RRTypeAAAA       RRType = 28  // AAAA - IPv6 address
	RRTypeSRV        RRType = 33  // SRV - Service
	RRTypeNAPTR      RRType = 35  // NAPTR - Naming authority pointer
	RRTypeDNAME      RRType = 39  // DNAME - Delegation name
	RRTypeOPT        RRType = 41  // OPT - EDNS(0) pseudo-record
	RRTypeDS         RRType = 43  // DS - Delegation signer
	RRTypeSSHFP      RRType = 44  // SSHFP - SSH fingerprint
	RRTypeRRSIG      RRType = 46  // RRSIG - Resource record signature
	RRTypeNSEC       RRType = 47  // NSEC - Next secure
	RRTypeDNSKEY     RRType = 48  // DNSKEY - DNS key
	RRTypeNSEC3      RRType = 50  // NSEC3 - Hashed next secure
	RRTypeNSEC3PARAM RRType = 51  // NSEC3PARAM - NSEC3 parameters
	RRTypeTLSA       RRType = 52  // TLSA - TLS association
	RRTypeHIP        RRType = 55  // HIP - Host identity protocol
	RRTypeSPF        RRType = 99  // SPF - Sender policy framework (RFC 4408)
	RRTypeTKEY       RRType = 249 // TKEY - Transaction key
	RRTypeTSIG       RRType = 250 // TSIG - Transaction signature
	RRTypeIXFR       RRType = 251 // IXFR - Incremental zone transfer (query only)
	RRTypeAXFR       RRType = 252 // AXFR - Zone transfer (query only)
	RRTypeANY        RRType = 255 // ANY - Any type (query only)
	RRTypeCAA        RRType = 257 // CAA - Certificate authority authorization
)

var rrTypeNames = map[RRType]string{
	RRTypeA:          "A",
	RRTypeNS:         "NS",
	RRTypeCNAME:      "CNAME",
	RRTypeSOA:        "SOA",
	RRTypePTR:        "PTR",
	RRTypeHINFO:      "HINFO",
	RRTypeMX:         "MX",
	RRTypeTXT:        "TXT",
	RRTypeSIG:        "SIG",
	RRTypeKEY:        "KEY",
	RRTypeAAAA:       "AAAA",
	RRTypeSRV:        "SRV",
	RRTypeNAPTR:      "NAPTR",
	RRTypeDNAME:      "DNAME",
	RRTypeOPT:        "OPT",
	RRTypeDS:         "DS",
	RRTypeSSHFP:      "SSHFP",
	RRTypeRRSIG:      "RRSIG",
	RRTypeNSEC:       "NSEC",
	RRTypeDNSKEY:     "DNSKEY",
	RRTypeNSEC3:      "NSEC3",
	RRTypeNSEC3PARAM: "NSEC3PARAM",
	RRTypeTLSA:       "TLSA",
	RRTypeHIP:        "HIP",
	RRTypeSPF:        "SPF",
	RRTypeTKEY:       "TKEY",
	RRTypeTSIG:       "TSIG",
	RRTypeIXFR:       "IXFR",
	RRTypeAXFR:       "AXFR",
	RRTypeANY:        "ANY",
	RRTypeCAA:        "CAA",
}

var rrTypeValues = func() map[string]RRType {
	m := make(map[string]RRType, len(rrTypeNames))
	for t, name := range rrTypeNames {
		m[name] = t
	}
	return m
}()

// IsValid returns true if the RRType has an assigned code known to this
// registry. Unknown types still round-trip through the codec as opaque RDATA.
func (t RRType) IsValid() bool {
	_, ok := rrTypeNames[t]
	return ok
}

// IsMeta returns true for pseudo/meta types that never appear in cached
// RRsets: OPT, TKEY, TSIG, IXFR, AXFR, ANY.
func (t RRType) IsMeta() bool {
	switch t {
	case RRTypeOPT, RRTypeTKEY, RRTypeTSIG, RRTypeIXFR, RRTypeAXFR, RRTypeANY:
		return true
	default:
		return false
	}
}

// String returns the textual representation of the RRType.
// Unassigned types render as TYPE<value> per RFC 3597.
func (t RRType) String() string {
	if name, ok := rrTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TYPE%d", uint16(t))
}

// RRTypeFromString converts a record type mnemonic (or RFC 3597 "TYPE<n>"
// form) to its RRType value. Unknown mnemonics return 0.
func RRTypeFromString(s string) RRType {
	s = strings.ToUpper(strings.TrimSpace(s))
	if t, ok := rrTypeValues[s]; ok {
		return t
	}
	if rest, ok := strings.CutPrefix(s, "TYPE"); ok {
		if v, err := strconv.ParseUint(rest, 10, 16); err == nil {
			return RRType(v)
		}
	}
	return 0
}
