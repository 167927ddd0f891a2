package policy

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/viant/hitl/model"
)

// DefaultDescriptionPrefix is used when the configuration does not set one.
const DefaultDescriptionPrefix = "Tool execution pending approval"

// Registry resolves the review policy of a tool.
type Registry struct {
	mux      sync.RWMutex
	policies map[string]model.Policy
}

// NewRegistry creates an empty registry; every tool defaults to full review.
func NewRegistry() *Registry {
	return &Registry{policies: map[string]model.Policy{}}
}

// Register attaches a policy to a tool name. Registering the same name twice
// or registering an invalid policy fails with model.ErrConfig.
func (r *Registry) Register(toolName string, p model.Policy) error {
	name := strings.TrimSpace(toolName)
	if name == "" {
		return fmt.Errorf("%w: empty tool name", model.ErrConfig)
	}
	normalized, err := Normalize(p)
	if err != nil {
		return fmt.Errorf("%w: tool %s: %v", model.ErrConfig, name, err)
	}
	r.mux.Lock()
	defer r.mux.Unlock()
	if _, ok := r.policies[name]; ok {
		return fmt.Errorf("%w: duplicate policy for tool %s", model.ErrConfig, name)
	}
	r.policies[name] = normalized
	return nil
}

// PolicyFor returns the policy of the tool, defaulting to full review.
func (r *Registry) PolicyFor(toolName string) model.Policy {
	if r == nil {
		return model.FullReviewPolicy()
	}
	r.mux.RLock()
	p, ok := r.policies[toolName]
	r.mux.RUnlock()
	if !ok {
		return model.FullReviewPolicy()
	}
	p.Allowed = append([]model.DecisionType(nil), p.Allowed...)
	return p
}

// Names returns registered tool names in sorted order.
func (r *Registry) Names() []string {
	r.mux.RLock()
	defer r.mux.RUnlock()
	ret := make([]string, 0, len(r.policies))
	for name := range r.policies {
		ret = append(ret, name)
	}
	sort.Strings(ret)
	return ret
}

// Normalize validates p and returns its canonical form: a restricted list
// naming every decision becomes full review, and edit is only accepted as
// part of full review.
func Normalize(p model.Policy) (model.Policy, error) {
	switch p.Kind {
	case model.NoReview:
		return model.NoReviewPolicy(), nil
	case model.FullReview:
		return model.Policy{Kind: p.Kind, Description: p.Description}, nil
	case model.RestrictedReview:
	default:
		return model.Policy{}, fmt.Errorf("unknown policy kind %q", p.Kind)
	}
	if len(p.Allowed) == 0 {
		return model.Policy{}, fmt.Errorf("restricted review requires at least one allowed decision")
	}
	seen := map[model.DecisionType]bool{}
	for _, t := range p.Allowed {
		if !t.Valid() {
			return model.Policy{}, fmt.Errorf("unknown decision %q", t)
		}
		seen[t] = true
	}
	if len(seen) == len(model.DecisionTypes()) {
		return model.Policy{Kind: model.FullReview, Description: p.Description}, nil
	}
	if seen[model.DecisionEdit] {
		return model.Policy{}, fmt.Errorf("edit is only allowed together with approve and reject")
	}
	ret := model.Policy{Kind: model.RestrictedReview, Description: p.Description}
	for _, t := range model.DecisionTypes() {
		if seen[t] {
			ret.Allowed = append(ret.Allowed, t)
		}
	}
	return ret, nil
}

// ---------------------------------------------------------------------------
// Context helpers
// ---------------------------------------------------------------------------

type ctxKeyT struct{}

var ctxKey ctxKeyT

// WithRegistry embeds a run-scoped registry in ctx.
func WithRegistry(ctx context.Context, r *Registry) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxKey, r)
}

// FromContext extracts a run-scoped registry or nil.
func FromContext(ctx context.Context) *Registry {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(ctxKey).(*Registry); ok {
		return v
	}
	return nil
}
