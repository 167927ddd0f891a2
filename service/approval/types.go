package approval

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/viant/hitl/model"
)

// Event envelope published on the approval queue and notifiers.
type Event struct {
	Topic   string            `json:"topic"`             // see topic constants below
	Data    interface{}       `json:"data"`              // *Interrupt | *Record
	Headers map[string]string `json:"headers,omitempty"` // optional, e.g. tenant or correlation id
}

// Standard event topics.
const (
	TopicInterruptCreated   = "interrupt.created"
	TopicDecisionCreated    = "decision.created"
	TopicInterruptAbandoned = "interrupt.abandoned"
)

// Interrupt is the reviewer view of a pending checkpoint.
type Interrupt struct {
	ID               string                 `json:"id"` // checkpoint id
	RunID            string                 `json:"runId"`
	CallID           string                 `json:"callId"`
	Tool             string                 `json:"tool"`
	Arguments        map[string]interface{} `json:"arguments,omitempty"`
	Description      string                 `json:"description"`
	Policy           string                 `json:"policy"`
	AllowedDecisions []model.DecisionType   `json:"allowedDecisions"`
	Steps            int                    `json:"steps"`
	CreatedAt        time.Time              `json:"createdAt"`
	ExpiresAt        *time.Time             `json:"expiresAt,omitempty"`
}

// NewInterrupt builds the reviewer view of a checkpoint.
func NewInterrupt(c *model.Checkpoint) *Interrupt {
	ret := &Interrupt{
		ID:        c.ID,
		RunID:     c.RunID,
		Steps:     len(c.Steps),
		CreatedAt: c.CreatedAt,
		ExpiresAt: c.ExpiresAt,
	}
	if pending := c.Pending; pending != nil {
		ret.Description = pending.Description
		ret.Policy = pending.Policy.String()
		ret.AllowedDecisions = pending.Policy.AllowedDecisions()
		if call := pending.Call; call != nil {
			ret.CallID = call.ID
			ret.Tool = call.Name
			ret.Arguments = model.CloneArguments(call.Arguments)
		}
	}
	return ret
}

// Allows reports whether the interrupt accepts decision type t.
func (i *Interrupt) Allows(t model.DecisionType) bool {
	for _, candidate := range i.AllowedDecisions {
		if candidate == t {
			return true
		}
	}
	return false
}

// Record describes a recorded decision or abandonment.
type Record struct {
	CheckpointID string                 `json:"checkpointId"`
	RunID        string                 `json:"runId"`
	CallID       string                 `json:"callId"`
	Tool         string                 `json:"tool"`
	Decision     model.DecisionType     `json:"decision,omitempty"`
	Arguments    map[string]interface{} `json:"arguments,omitempty"` // arguments the tool runs with
	Reason       string                 `json:"reason,omitempty"`
	Reviewer     string                 `json:"reviewer,omitempty"`
	DecidedAt    time.Time              `json:"decidedAt"`
}

// Approved reports whether the decision lets the tool run.
func (r *Record) Approved() bool {
	return r.Decision == model.DecisionApprove || r.Decision == model.DecisionEdit
}

// DecodeEvent parses a JSON encoded event, restoring the typed payload.
func DecodeEvent(data []byte) (*Event, error) {
	raw := struct {
		Topic   string            `json:"topic"`
		Data    json.RawMessage   `json:"data"`
		Headers map[string]string `json:"headers,omitempty"`
	}{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	ret := &Event{Topic: raw.Topic, Headers: raw.Headers}
	switch raw.Topic {
	case TopicInterruptCreated:
		payload := &Interrupt{}
		if err := json.Unmarshal(raw.Data, payload); err != nil {
			return nil, err
		}
		ret.Data = payload
	case TopicDecisionCreated, TopicInterruptAbandoned:
		payload := &Record{}
		if err := json.Unmarshal(raw.Data, payload); err != nil {
			return nil, err
		}
		ret.Data = payload
	default:
		return nil, fmt.Errorf("unknown event topic %q", raw.Topic)
	}
	return ret, nil
}
