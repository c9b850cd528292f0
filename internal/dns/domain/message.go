package domain

import "fmt"

// Opcode represents the DNS operation code in the message header.
type Opcode uint8

// DNS opcodes.
const (
	OpcodeQuery  Opcode = 0
	OpcodeIQuery Opcode = 1
	OpcodeStatus Opcode = 2
	OpcodeNotify Opcode = 4
	OpcodeUpdate Opcode = 5
)

// Message is a full DNS message: the 12-octet header expanded into fields,
// the four sections, and the two pseudo-records that the codec folds out of
// the additional section. After parsing, EDNS holds the merged OPT record
// (nil when absent) and TSIG holds the stripped trailing TSIG record so
// higher layers never see either as an ordinary additional record.
type Message struct {
	ID                 uint16
	Response           bool // QR
	Opcode             Opcode
	Authoritative      bool // AA
	Truncated          bool // TC
	RecursionDesired   bool // RD
	RecursionAvailable bool // RA
	AuthenticData      bool // AD
	CheckingDisabled   bool // CD
	RCode              RCode // includes extended rcode bits when EDNS present

	Question   []Question
	Answers    []ResourceRecord
	Authority  []ResourceRecord
	Additional []ResourceRecord

	EDNS *EDNS
	TSIG *ResourceRecord
}

// NewQueryMessage builds the skeleton of an outbound query for a single question.
func NewQueryMessage(id uint16, q Question, recursionDesired bool) *Message {
	return &Message{
		ID:               id,
		Opcode:           OpcodeQuery,
		RecursionDesired: recursionDesired,
		Question:         []Question{q},
	}
}

// IsNegative reports whether the message is a negative answer: NXDOMAIN, or
// NOERROR with an empty answer section (NODATA).
func (m *Message) IsNegative() bool {
	if m.RCode == RCodeNxDomain {
		return true
	}
	return m.RCode == RCodeNoError && len(m.Answers) == 0
}

// AnswersFor returns the answer records of the given type owned by name,
// case-insensitively.
func (m *Message) AnswersFor(name string, t RRType) []ResourceRecord {
	var out []ResourceRecord
	for _, rr := range m.Answers {
		if rr.Type == t && rr.CacheKey() == GenerateCacheKey(name, t, rr.Class) {
			out = append(out, rr)
		}
	}
	return out
}

// Validate checks structural validity of all sections.
func (m *Message) Validate() error {
	for i, q := range m.Question {
		if err := q.Validate(); err != nil {
			return fmt.Errorf("invalid question at index %d: %w", i, err)
		}
	}
	for _, section := range [][]ResourceRecord{m.Answers, m.Authority, m.Additional} {
		for i, rr := range section {
			if err := rr.Validate(); err != nil {
				return fmt.Errorf("invalid record at index %d: %w", i, err)
			}
		}
	}
	return nil
}

// EDNS carries the fields an OPT pseudo-record reinterprets out of the
// resource record envelope (RFC 6891): class becomes the UDP payload size and
// TTL packs extended rcode, version and flags.
type EDNS struct {
	UDPSize  uint16
	ExtRCode uint8
	Version  uint8
	Do       bool
	Options  []EDNSOption
}

// EDNSOption is a single EDNS(0) option TLV.
type EDNSOption struct {
	Code uint16
	Data []byte
}

// EDNS option codes used by this library.
const (
	EDNSOptionDAU uint16 = 5 // DNSSEC algorithm understood (RFC 6975)
	EDNSOptionDHU uint16 = 6 // DS hash understood (RFC 6975)
	EDNSOptionN3U uint16 = 7 // NSEC3 hash understood (RFC 6975)
)

// NameServer is one server of a delegation: the nameserver's owner name and
// a literal address to reach it at.
type NameServer struct {
	Host string
	Addr string
}

// Verdict is the DNSSEC validation outcome attached to a resolved RRset.
type Verdict uint8

// Validation verdicts.
const (
	// VerdictIndeterminate means no applicable trust anchor or not enough
	// data to decide either way.
	VerdictIndeterminate Verdict = iota
	// VerdictSecure means a complete chain of trust validated the data.
	VerdictSecure
	// VerdictInsecure means a proven unsigned delegation covers the data.
	VerdictInsecure
	// VerdictBogus means signatures exist but fail validation.
	VerdictBogus
	// VerdictUnsigned means the data carried no signatures and validation
	// was not requested for it.
	VerdictUnsigned
)

// String returns the textual representation of the Verdict.
func (v Verdict) String() string {
	switch v {
	case VerdictSecure:
		return "Secure"
	case VerdictInsecure:
		return "Insecure"
	case VerdictBogus:
		return "Bogus"
	case VerdictUnsigned:
		return "Unsigned"
	default:
		return "Indeterminate"
	}
}

// Combine merges the verdicts of two hops of a CNAME chain: the composite is
// the weaker of the two. Bogus poisons the chain, any non-Secure member
// demotes the whole result.
func (v Verdict) Combine(other Verdict) Verdict {
	if v == VerdictBogus || other == VerdictBogus {
		return VerdictBogus
	}
	if v == VerdictIndeterminate || other == VerdictIndeterminate {
		return VerdictIndeterminate
	}
	if v == VerdictInsecure || other == VerdictInsecure {
		return VerdictInsecure
	}
	if v == VerdictUnsigned || other == VerdictUnsigned {
		return VerdictUnsigned
	}
	return VerdictSecure
}
