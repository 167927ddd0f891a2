package gate

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/viant/hitl/model"
)

// Describe renders the reviewer message of a pending call:
// "<prefix> <tool> with k1=<json>, k2=<json>". A policy description replaces
// the prefix; a call without arguments omits the " with ..." tail.
func Describe(prefix string, p model.Policy, call *model.ToolCall) string {
	head := prefix
	if p.Description != "" {
		head = p.Description
	}
	builder := strings.Builder{}
	builder.WriteString(head)
	builder.WriteString(" ")
	builder.WriteString(call.Name)
	if args := FormatArguments(call.Arguments); args != "" {
		builder.WriteString(" with ")
		builder.WriteString(args)
	}
	return builder.String()
}

// FormatArguments renders key=<json value> pairs sorted by key.
func FormatArguments(args map[string]interface{}) string {
	if len(args) == 0 {
		return ""
	}
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = k + "=" + formatValue(args[k])
	}
	return strings.Join(pairs, ", ")
}

func formatValue(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
