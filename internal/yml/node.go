// Package yml navigates parsed YAML documents without losing key case,
// which map-based loaders such as viper normalise away.
package yml

import (
	"gopkg.in/yaml.v3"
)

// Node is a yaml.Node with lookup helpers.
type Node yaml.Node

// Parse decodes a YAML document. Empty input yields an empty mapping.
func Parse(data []byte) (*Node, error) {
	doc := &yaml.Node{}
	if err := yaml.Unmarshal(data, doc); err != nil {
		return nil, err
	}
	if doc.Kind == 0 {
		return &Node{Kind: yaml.MappingNode, Tag: "!!map"}, nil
	}
	return (*Node)(doc), nil
}

// Lookup returns the value node stored under key, or nil when n is not a
// mapping or has no such key. Document nodes are looked through.
func (n *Node) Lookup(key string) *Node {
	if n == nil {
		return nil
	}
	node := (*yaml.Node)(n)
	if node.Kind == yaml.DocumentNode {
		if len(node.Content) == 0 {
			return nil
		}
		node = node.Content[0]
	}
	if node.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return (*Node)(node.Content[i+1])
		}
	}
	return nil
}

// Path follows keys through nested mappings.
func (n *Node) Path(keys ...string) *Node {
	ret := n
	for _, key := range keys {
		if ret = ret.Lookup(key); ret == nil {
			return nil
		}
	}
	return ret
}

// Decode decodes the node into v.
func (n *Node) Decode(v interface{}) error {
	return (*yaml.Node)(n).Decode(v)
}
