// Package serial implements the Serializer/Parser pair (spec.md §4.3): a
// TreeNode maps to and from a neutral tagged dictionary that never encodes
// return_type (re-derived from the registry) or node class (also derived
// from the registry). Round-trip law: parse(serialize(t)) behaves
// identically to t for every valid report (spec.md P2).
package serial

import (
	"encoding/json"
	"fmt"

	"github.com/aristath/arduino-trader/internal/rulesengine/node"
	"github.com/aristath/arduino-trader/internal/rulesengine/registry"
)

// Dict is the neutral serialized form of one node (spec.md §4.3).
type Dict struct {
	NodeName string         `json:"node_name"`
	Params   map[string]any `json:"params,omitempty"`
	Children []Dict         `json:"children,omitempty"`
}

// Serialize depth-first walks t, preserving child order. It never encodes
// return_type or node class; both are re-derived by Parse via the
// registry.
func Serialize(t node.TreeNode) Dict {
	kids := t.Children()
	d := Dict{NodeName: t.NodeName()}
	if len(kids) > 0 {
		d.Children = make([]Dict, len(kids))
		for i, k := range kids {
			d.Children[i] = Serialize(k)
		}
	}
	return d
}

// Marshal serializes t to its JSON wire form.
func Marshal(t node.TreeNode) ([]byte, error) {
	return json.Marshal(Serialize(t))
}

// Parse reconstructs a TreeNode using r.CreateNode exclusively — the only
// legal construction path (spec.md §4.3). path accumulates the
// slash-separated, indexed position of the current node for UnknownNodeError
// reporting.
func Parse(r *registry.Registry, d Dict, path string) (node.TreeNode, error) {
	if path == "" {
		path = d.NodeName
	}

	children := make([]node.TreeNode, len(d.Children))
	for i, childDict := range d.Children {
		childPath := fmt.Sprintf("%s/%d:%s", path, i, childDict.NodeName)
		child, err := Parse(r, childDict, childPath)
		if err != nil {
			return nil, err
		}
		children[i] = child
	}

	return r.CreateNode(d.NodeName, children, d.Params, path)
}

// Unmarshal parses a JSON wire form of a tree via the registry.
func Unmarshal(r *registry.Registry, raw []byte) (node.TreeNode, error) {
	var d Dict
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("serial: invalid tree json: %w", err)
	}
	return Parse(r, d, "")
}
