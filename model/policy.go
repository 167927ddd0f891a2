package model

import "strings"

// PolicyKind enumerates review policies.
type PolicyKind string

const (
	// NoReview lets the call proceed without suspension.
	NoReview PolicyKind = "none"
	// RestrictedReview suspends the call; only the listed decisions are accepted
	// and editing is never one of them.
	RestrictedReview PolicyKind = "restricted"
	// FullReview suspends the call; approve, edit and reject are all accepted.
	FullReview PolicyKind = "full"
)

// Policy is the review rule attached to a tool name.
type Policy struct {
	Kind PolicyKind `json:"kind" yaml:"kind"`
	// Allowed is only meaningful for RestrictedReview.
	Allowed []DecisionType `json:"allowed,omitempty" yaml:"allowed,omitempty"`
	// Description replaces the gate-wide description prefix when set.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// NoReviewPolicy returns a policy that never suspends.
func NoReviewPolicy() Policy { return Policy{Kind: NoReview} }

// FullReviewPolicy returns a policy accepting every decision.
func FullReviewPolicy() Policy { return Policy{Kind: FullReview} }

// RestrictedReviewPolicy returns a policy accepting only the supplied decisions.
func RestrictedReviewPolicy(allowed ...DecisionType) Policy {
	return Policy{Kind: RestrictedReview, Allowed: append([]DecisionType(nil), allowed...)}
}

// RequiresReview reports whether calls under this policy must be suspended.
func (p Policy) RequiresReview() bool {
	return p.Kind != NoReview
}

// Allows reports whether a decision of type t may resolve an interrupt
// governed by this policy.
func (p Policy) Allows(t DecisionType) bool {
	switch p.Kind {
	case FullReview:
		return t.Valid()
	case RestrictedReview:
		if t == DecisionEdit {
			return false
		}
		for _, candidate := range p.Allowed {
			if candidate == t {
				return true
			}
		}
	}
	return false
}

// AllowedDecisions returns the decisions accepted by the policy in canonical
// order.
func (p Policy) AllowedDecisions() []DecisionType {
	var ret []DecisionType
	for _, t := range DecisionTypes() {
		if p.Allows(t) {
			ret = append(ret, t)
		}
	}
	return ret
}

// String renders the policy for logs and CLI listings.
func (p Policy) String() string {
	if p.Kind != RestrictedReview {
		return string(p.Kind)
	}
	names := make([]string, 0, len(p.Allowed))
	for _, t := range p.AllowedDecisions() {
		names = append(names, string(t))
	}
	return string(p.Kind) + "[" + strings.Join(names, ",") + "]"
}
