// Package wire encodes and decodes full DNS messages: header, all four
// sections, name compression, EDNS(0) folding, size-driven truncation, and
// TSIG transaction signatures (RFC 1035, RFC 6891, RFC 8945).
package wire

import (
	"time"

	"github.com/haukened/rec-dns/internal/dns/common/log"
	"github.com/haukened/rec-dns/internal/dns/domain"
)

// MessageCodec converts between domain.Message and the wire format.
type MessageCodec interface {
	// Encode serializes a message. When maxSize is positive and the message
	// does not fit, whole records are dropped (additional first, then
	// authority, then answers) and the TC bit is set. now supplies the
	// moment TTLs are evaluated at.
	Encode(m *domain.Message, maxSize int, now time.Time) ([]byte, error)

	// Decode parses a wire message. Record TTLs begin decaying at now. A
	// trailing TSIG record and any OPT record are folded out of the
	// additional section onto the message itself.
	Decode(data []byte, now time.Time) (*domain.Message, error)
}

// codec implements MessageCodec.
type codec struct {
	logger log.Logger
}

// NewCodec creates a MessageCodec using the provided logger.
func NewCodec(logger log.Logger) MessageCodec {
	return &codec{logger: logger}
}

var _ MessageCodec = &codec{}

// Header flag bit positions within the second header word.
const (
	flagQR = 1 << 15
	flagAA = 1 << 10
	flagTC = 1 << 9
	flagRD = 1 << 8
	flagRA = 1 << 7
	flagAD = 1 << 5
	flagCD = 1 << 4
)

// headerLen is the fixed DNS header size.
const headerLen = 12

// MinUDPSize is the smallest payload size EDNS may advertise; lower values
// are clamped up (RFC 6891 §6.2.3).
const MinUDPSize = 512
