package policy

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/viant/hitl/model"
	"gopkg.in/yaml.v3"
)

// Spec is the serialisable policy of one tool. It accepts three shapes:
// a boolean (false = no review, true = full review), a list of allowed
// decisions, or a mapping with allowed_decisions and description.
type Spec struct {
	Review           *bool    `json:"-" yaml:"-"`
	AllowedDecisions []string `json:"allowed_decisions,omitempty" yaml:"allowed_decisions,omitempty"`
	Description      string   `json:"description,omitempty" yaml:"description,omitempty"`
}

type specFields struct {
	AllowedDecisions []string `json:"allowed_decisions,omitempty" yaml:"allowed_decisions,omitempty"`
	Description      string   `json:"description,omitempty" yaml:"description,omitempty"`
}

// Bool returns a boolean spec.
func Bool(review bool) *Spec { return &Spec{Review: &review} }

// Allow returns a spec restricting review to the supplied decisions.
func Allow(decisions ...string) *Spec {
	return &Spec{AllowedDecisions: append([]string{}, decisions...)}
}

// UnmarshalYAML decodes any of the three accepted shapes.
func (s *Spec) UnmarshalYAML(node *yaml.Node) error {
	*s = Spec{}
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			return nil
		}
		var review bool
		if err := node.Decode(&review); err != nil {
			return fmt.Errorf("line %d: expected boolean policy, got %q", node.Line, node.Value)
		}
		s.Review = &review
		return nil
	case yaml.SequenceNode:
		s.AllowedDecisions = []string{}
		return node.Decode(&s.AllowedDecisions)
	case yaml.MappingNode:
		var fields specFields
		if err := node.Decode(&fields); err != nil {
			return err
		}
		s.AllowedDecisions = fields.AllowedDecisions
		s.Description = fields.Description
		return nil
	}
	return fmt.Errorf("line %d: unsupported policy shape", node.Line)
}

// MarshalYAML renders the most compact equivalent shape.
func (s Spec) MarshalYAML() (interface{}, error) {
	if s.Review != nil && s.Description == "" {
		return *s.Review, nil
	}
	return specFields{AllowedDecisions: s.AllowedDecisions, Description: s.Description}, nil
}

// UnmarshalJSON decodes any of the three accepted shapes.
func (s *Spec) UnmarshalJSON(data []byte) error {
	*s = Spec{}
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("true")), bytes.Equal(data, []byte("false")):
		review := data[0] == 't'
		s.Review = &review
		return nil
	case len(data) > 0 && data[0] == '[':
		s.AllowedDecisions = []string{}
		return json.Unmarshal(data, &s.AllowedDecisions)
	}
	var fields specFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	s.AllowedDecisions = fields.AllowedDecisions
	s.Description = fields.Description
	return nil
}

// MarshalJSON renders the most compact equivalent shape.
func (s Spec) MarshalJSON() ([]byte, error) {
	if s.Review != nil && s.Description == "" {
		return json.Marshal(*s.Review)
	}
	return json.Marshal(specFields{AllowedDecisions: s.AllowedDecisions, Description: s.Description})
}

// Policy converts the spec into a validated policy.
func (s *Spec) Policy() (model.Policy, error) {
	if s == nil {
		return model.FullReviewPolicy(), nil
	}
	if s.Review != nil {
		p := model.Policy{Kind: model.FullReview, Description: s.Description}
		if !*s.Review {
			p.Kind = model.NoReview
		}
		return p, nil
	}
	if s.AllowedDecisions == nil {
		return model.Policy{Kind: model.FullReview, Description: s.Description}, nil
	}
	p := model.Policy{Kind: model.RestrictedReview, Description: s.Description}
	for _, name := range s.AllowedDecisions {
		t, err := model.ParseDecisionType(name)
		if err != nil {
			return model.Policy{}, err
		}
		p.Allowed = append(p.Allowed, t)
	}
	return Normalize(p)
}

// SpecOf converts a policy back to its serialisable spec.
func SpecOf(p model.Policy) *Spec {
	switch p.Kind {
	case model.NoReview, model.FullReview:
		s := Bool(p.Kind == model.FullReview)
		s.Description = p.Description
		return s
	}
	s := &Spec{Description: p.Description, AllowedDecisions: []string{}}
	for _, t := range p.AllowedDecisions() {
		s.AllowedDecisions = append(s.AllowedDecisions, string(t))
	}
	return s
}

// Config is the declarative policy section.
type Config struct {
	DescriptionPrefix string           `json:"description_prefix,omitempty" yaml:"description_prefix,omitempty"`
	InterruptOn       map[string]*Spec `json:"interrupt_on,omitempty" yaml:"interrupt_on,omitempty"`
}

// Decode parses a YAML (or JSON) policy document.
func Decode(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrConfig, err)
	}
	return cfg, nil
}

// Prefix returns the configured description prefix or the default one.
func (c *Config) Prefix() string {
	if c == nil || strings.TrimSpace(c.DescriptionPrefix) == "" {
		return DefaultDescriptionPrefix
	}
	return c.DescriptionPrefix
}

// Registry builds a validated registry. Tool names are registered in sorted
// order so the reported error is deterministic.
func (c *Config) Registry() (*Registry, error) {
	ret := NewRegistry()
	if c == nil {
		return ret, nil
	}
	names := make([]string, 0, len(c.InterruptOn))
	for name := range c.InterruptOn {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		p, err := c.InterruptOn[name].Policy()
		if err != nil {
			return nil, fmt.Errorf("%w: tool %s: %v", model.ErrConfig, name, err)
		}
		if err = ret.Register(name, p); err != nil {
			return nil, err
		}
	}
	return ret, nil
}

// ToConfig converts a registry into a persistable Config.
func ToConfig(r *Registry, prefix string) *Config {
	ret := &Config{DescriptionPrefix: prefix, InterruptOn: map[string]*Spec{}}
	if r == nil {
		return ret
	}
	for _, name := range r.Names() {
		ret.InterruptOn[name] = SpecOf(r.PolicyFor(name))
	}
	return ret
}
