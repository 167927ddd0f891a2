package tool

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/viant/hitl/model"
	"github.com/viant/structology/conv"
)

// ErrUnknownTool is returned when executing a tool that was never
// registered.
var ErrUnknownTool = errors.New("unknown tool")

// Executor runs a named tool with JSON-like arguments.
type Executor interface {
	Execute(ctx context.Context, name string, args map[string]interface{}) (string, error)
}

// Handler implements a tool.
type Handler func(ctx context.Context, args map[string]interface{}) (string, error)

// Tool is a named handler.
type Tool struct {
	Name        string
	Description string
	Handler     Handler
}

var converter = newConverter()

func newConverter() *conv.Converter {
	options := conv.DefaultOptions()
	options.ClonePointerData = true
	options.IgnoreUnmapped = true
	return conv.NewConverter(options)
}

// New builds a tool whose arguments are decoded into a typed input *I.
func New[I any](name, description string, fn func(ctx context.Context, input *I) (string, error)) *Tool {
	return &Tool{
		Name:        name,
		Description: description,
		Handler: func(ctx context.Context, args map[string]interface{}) (string, error) {
			input := new(I)
			if len(args) > 0 {
				if err := converter.Convert(args, input); err != nil {
					return "", fmt.Errorf("invalid %s arguments: %w", name, err)
				}
			}
			return fn(ctx, input)
		},
	}
}

// Registry is the table of tools available to a run.
type Registry struct {
	mux   sync.RWMutex
	tools map[string]*Tool
}

var _ Executor = (*Registry)(nil)

// NewRegistry creates a registry holding tools.
func NewRegistry(tools ...*Tool) (*Registry, error) {
	ret := &Registry{tools: map[string]*Tool{}}
	for _, t := range tools {
		if err := ret.Register(t); err != nil {
			return nil, err
		}
	}
	return ret, nil
}

// Register adds a tool; empty or duplicate names fail with model.ErrConfig.
func (r *Registry) Register(t *Tool) error {
	if t == nil || t.Handler == nil {
		return fmt.Errorf("%w: tool without handler", model.ErrConfig)
	}
	name := strings.TrimSpace(t.Name)
	if name == "" {
		return fmt.Errorf("%w: empty tool name", model.ErrConfig)
	}
	r.mux.Lock()
	defer r.mux.Unlock()
	if _, ok := r.tools[name]; ok {
		return fmt.Errorf("%w: duplicate tool %s", model.ErrConfig, name)
	}
	r.tools[name] = t
	return nil
}

// Lookup returns a registered tool.
func (r *Registry) Lookup(name string) (*Tool, bool) {
	r.mux.RLock()
	defer r.mux.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Names returns registered tool names in sorted order.
func (r *Registry) Names() []string {
	r.mux.RLock()
	defer r.mux.RUnlock()
	ret := make([]string, 0, len(r.tools))
	for name := range r.tools {
		ret = append(ret, name)
	}
	sort.Strings(ret)
	return ret
}

// Execute runs the named tool.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]interface{}) (string, error) {
	t, ok := r.Lookup(name)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	return t.Handler(ctx, model.CloneArguments(args))
}
