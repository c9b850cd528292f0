package resolver

import "errors"

// Resolution failures surfaced to callers.
var (
	// ErrLoopDetected means the same (name, type, class) was entered twice
	// within one resolution, e.g. a CNAME cycle or NS records that point at
	// each other.
	ErrLoopDetected = errors.New("resolution loop detected")
	// ErrReferralLimit means the referral walk did not reach an
	// authoritative answer within the configured budget.
	ErrReferralLimit = errors.New("referral limit exceeded")
	// ErrDepthLimit means nested lookups (glueless nameservers, validator
	// key fetches) stacked deeper than any sane delegation tree requires.
	ErrDepthLimit = errors.New("nested resolution depth exceeded")
	// ErrUnreachable means no server produced a usable response.
	ErrUnreachable = errors.New("no nameserver reachable")
	// ErrNoDelegation means a non-authoritative response carried no usable
	// referral to follow.
	ErrNoDelegation = errors.New("no delegation in response")
	// ErrNoAnswer means an authoritative response carried neither an
	// answer, a referral, nor a negative-answer SOA.
	ErrNoAnswer = errors.New("authoritative response carries no answer")
	// ErrBogus is returned by ResolveSecure when records exist but their
	// signatures fail validation.
	ErrBogus = errors.New("dnssec validation failed")
)
