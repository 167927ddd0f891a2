package model

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
)

// ActionHash binds a tool name and its arguments to a stable digest. Map keys
// are ordered before hashing so equal calls always produce equal hashes.
func ActionHash(call *ToolCall) (string, error) {
	if call == nil {
		return "", fmt.Errorf("nil tool call")
	}
	args, err := canonicalize(call.Arguments)
	if err != nil {
		return "", err
	}
	data, err := json.Marshal([]interface{}{"tool_name", call.Name, "arguments", args})
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

func canonicalize(v interface{}) (interface{}, error) {
	switch actual := v.(type) {
	case map[string]interface{}:
		keys := make([]string, 0, len(actual))
		for k := range actual {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		ret := make([]interface{}, 0, len(keys)*2)
		for _, k := range keys {
			item, err := canonicalize(actual[k])
			if err != nil {
				return nil, err
			}
			ret = append(ret, k, item)
		}
		return ret, nil
	case []interface{}:
		ret := make([]interface{}, 0, len(actual))
		for _, item := range actual {
			c, err := canonicalize(item)
			if err != nil {
				return nil, err
			}
			ret = append(ret, c)
		}
		return ret, nil
	case nil, string, bool, float64, json.Number:
		return actual, nil
	default:
		// Normalise ints, typed slices and structs through their JSON form so a
		// checkpoint reloaded from storage hashes identically.
		data, err := json.Marshal(actual)
		if err != nil {
			return nil, fmt.Errorf("cannot canonicalize value of type %T", v)
		}
		var generic interface{}
		if err = json.Unmarshal(data, &generic); err != nil {
			return nil, fmt.Errorf("cannot canonicalize value of type %T", v)
		}
		return canonicalize(generic)
	}
}
