package model

import (
	"fmt"
	"strings"
	"time"
)

// DecisionType enumerates the outcomes a reviewer can choose.
type DecisionType string

const (
	DecisionApprove DecisionType = "approve"
	DecisionEdit    DecisionType = "edit"
	DecisionReject  DecisionType = "reject"
)

// DecisionTypes returns every decision type in canonical order.
func DecisionTypes() []DecisionType {
	return []DecisionType{DecisionApprove, DecisionEdit, DecisionReject}
}

// Valid reports whether t is a known decision type.
func (t DecisionType) Valid() bool {
	switch t {
	case DecisionApprove, DecisionEdit, DecisionReject:
		return true
	}
	return false
}

// ParseDecisionType converts a case-insensitive name into a DecisionType.
func ParseDecisionType(name string) (DecisionType, error) {
	t := DecisionType(strings.ToLower(strings.TrimSpace(name)))
	if !t.Valid() {
		return "", fmt.Errorf("unknown decision %q", name)
	}
	return t, nil
}

// Decision resolves a pending interrupt.
type Decision struct {
	Type DecisionType `json:"type" yaml:"type"`
	// Arguments replace the original call arguments; used by DecisionEdit only.
	Arguments map[string]interface{} `json:"arguments,omitempty" yaml:"arguments,omitempty"`
	// Reason explains a rejection.
	Reason    string    `json:"reason,omitempty" yaml:"reason,omitempty"`
	Reviewer  string    `json:"reviewer,omitempty" yaml:"reviewer,omitempty"`
	DecidedAt time.Time `json:"decidedAt,omitempty" yaml:"decidedAt,omitempty"`
}

// Approve returns an approval decision.
func Approve() *Decision { return &Decision{Type: DecisionApprove} }

// Edit returns a decision executing the call with replacement arguments.
func Edit(args map[string]interface{}) *Decision {
	return &Decision{Type: DecisionEdit, Arguments: CloneArguments(args)}
}

// Reject returns a decision aborting the call.
func Reject(reason string) *Decision { return &Decision{Type: DecisionReject, Reason: reason} }

// By records the reviewer on the decision and returns it.
func (d *Decision) By(reviewer string) *Decision {
	d.Reviewer = reviewer
	return d
}
