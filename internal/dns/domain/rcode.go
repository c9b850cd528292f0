package domain

import "fmt"

// RCode represents a DNS response code indicating the result of a query.
// Values above 15 only travel in the extended rcode bits of an OPT record
// or in a TSIG record (RFC 6891, RFC 8945).
type RCode uint16

// DNS response code constants.
const (
	RCodeNoError  RCode = 0  // NOERROR - No error
	RCodeFormErr  RCode = 1  // FORMERR - Format error
	RCodeServFail RCode = 2  // SERVFAIL - Server failure
	RCodeNxDomain RCode = 3  // NXDOMAIN - Non-existent domain
	RCodeNotImp   RCode = 4  // NOTIMP - Not implemented
	RCodeRefused  RCode = 5  // REFUSED - Query refused
	RCodeYXDomain RCode = 6  // YXDOMAIN - Name exists when it should not
	RCodeYXRRSet  RCode = 7  // YXRRSET - RRset exists when it should not
	RCodeNXRRSet  RCode = 8  // NXRRSET - RRset that should exist does not
	RCodeNotAuth  RCode = 9  // NOTAUTH - Not authorized / not authoritative
	RCodeNotZone  RCode = 10 // NOTZONE - Name not contained in zone

	// BADVERS and BADSIG share code 16; which name applies depends on
	// whether the message carries an OPT record. See RCode.StringIn.
	RCodeBadVers  RCode = 16 // BADVERS - Bad OPT version (RFC 6891)
	RCodeBadSig   RCode = 16 // BADSIG - TSIG signature failure (RFC 8945)
	RCodeBadKey   RCode = 17 // BADKEY - Key not recognized
	RCodeBadTime  RCode = 18 // BADTIME - Signature out of time window
	RCodeBadMode  RCode = 19 // BADMODE - Bad TKEY mode
	RCodeBadName  RCode = 20 // BADNAME - Duplicate key name
	RCodeBadAlg   RCode = 21 // BADALG - Algorithm not supported
	RCodeBadTrunc RCode = 22 // BADTRUNC - Bad truncation (RFC 8945)
	RCodeBadCooki RCode = 23 // BADCOOKIE - Bad/missing server cookie (RFC 7873)
)

// IsValid returns true if the RCode is within the assigned response code range.
func (r RCode) IsValid() bool {
	return r <= 10 || (r >= 16 && r <= 23)
}

// String returns the textual representation of the RCode. Code 16 renders as
// BADVERS; use StringIn when the surrounding message is known.
func (r RCode) String() string {
	return r.StringIn(true)
}

// StringIn resolves the BADVERS/BADSIG alias on code 16: a message carrying
// an OPT record means the code travelled in the extended rcode bits
// (BADVERS), otherwise it came from a TSIG record (BADSIG).
func (r RCode) StringIn(hasOPT bool) string {
	switch r {
	case RCodeNoError:
		return "NOERROR"
	case RCodeFormErr:
		return "FORMERR"
	case RCodeServFail:
		return "SERVFAIL"
	case RCodeNxDomain:
		return "NXDOMAIN"
	case RCodeNotImp:
		return "NOTIMP"
	case RCodeRefused:
		return "REFUSED"
	case RCodeYXDomain:
		return "YXDOMAIN"
	case RCodeYXRRSet:
		return "YXRRSET"
	case RCodeNXRRSet:
		return "NXRRSET"
	case RCodeNotAuth:
		return "NOTAUTH"
	case RCodeNotZone:
		return "NOTZONE"
	case 16:
		if hasOPT {
			return "BADVERS"
		}
		return "BADSIG"
	case RCodeBadKey:
		return "BADKEY"
	case RCodeBadTime:
		return "BADTIME"
	case RCodeBadMode:
		return "BADMODE"
	case RCodeBadName:
		return "BADNAME"
	case RCodeBadAlg:
		return "BADALG"
	case RCodeBadTrunc:
		return "BADTRUNC"
	case RCodeBadCooki:
		return "BADCOOKIE"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", uint16(r))
	}
}
