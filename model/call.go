package model

// ToolCall identifies a proposed invocation of a named tool. A call is
// treated as immutable once submitted; use Clone before modifying a copy.
type ToolCall struct {
	ID        string                 `json:"id" yaml:"id"`
	RunID     string                 `json:"runId,omitempty" yaml:"runId,omitempty"`
	Name      string                 `json:"name" yaml:"name"`
	Arguments map[string]interface{} `json:"arguments,omitempty" yaml:"arguments,omitempty"`
}

// Clone returns a deep copy of the call.
func (c *ToolCall) Clone() *ToolCall {
	if c == nil {
		return nil
	}
	return &ToolCall{
		ID:        c.ID,
		RunID:     c.RunID,
		Name:      c.Name,
		Arguments: CloneArguments(c.Arguments),
	}
}

// WithArguments returns a copy of the call carrying the supplied arguments.
func (c *ToolCall) WithArguments(args map[string]interface{}) *ToolCall {
	ret := c.Clone()
	ret.Arguments = CloneArguments(args)
	return ret
}

// CloneArguments deep-copies JSON-like argument maps. Nested maps and slices
// are copied; scalar values are shared.
func CloneArguments(args map[string]interface{}) map[string]interface{} {
	if args == nil {
		return nil
	}
	ret := make(map[string]interface{}, len(args))
	for k, v := range args {
		ret[k] = cloneValue(v)
	}
	return ret
}

func cloneValue(v interface{}) interface{} {
	switch actual := v.(type) {
	case map[string]interface{}:
		return CloneArguments(actual)
	case []interface{}:
		ret := make([]interface{}, len(actual))
		for i, item := range actual {
			ret[i] = cloneValue(item)
		}
		return ret
	case []string:
		return append([]string(nil), actual...)
	default:
		return v
	}
}
