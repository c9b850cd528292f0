package domain

import (
	"fmt"

	"github.com/haukened/rec-dns/internal/dns/common/dnsname"
)

// Question represents a DNS question section entry. It is an immutable value:
// construct a new Question instead of mutating one in flight. The Name keeps
// whatever case the caller supplied so that 0x20-randomized names survive the
// round trip; identity comparisons are case-insensitive.
type Question struct {
	Name  string
	Type  RRType
	Class RRClass
}

// NewQuestion constructs a Question and validates its fields.
func NewQuestion(name string, rrtype RRType, class RRClass) (Question, error) {
	q := Question{
		Name:  name,
		Type:  rrtype,
		Class: class,
	}
	if err := q.Validate(); err != nil {
		return Question{}, err
	}
	return q, nil
}

// Validate checks whether the Question fields are structurally valid.
func (q Question) Validate() error {
	if dnsname.EncodedLen(q.Name) > dnsname.MaxEncodedLen {
		return fmt.Errorf("question name too long: %q", q.Name)
	}
	if q.Type == 0 {
		return fmt.Errorf("question type must not be zero")
	}
	if q.Class == 0 {
		return fmt.Errorf("question class must not be zero")
	}
	return nil
}

// Equal reports whether two questions are identical under case-insensitive
// name comparison.
func (q Question) Equal(other Question) bool {
	return q.Type == other.Type && q.Class == other.Class && dnsname.Equal(q.Name, other.Name)
}

// CacheKey returns a cache key string derived from the question's name, type, and class.
func (q Question) CacheKey() string {
	return GenerateCacheKey(q.Name, q.Type, q.Class)
}
