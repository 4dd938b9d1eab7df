// Package registry implements the Node Registry & Factory (spec.md §3.3,
// §4.1): a process-wide, initialize-once, publish-then-freeze mapping from
// node_name to NodeSpec, and the single legal construction path,
// CreateNode.
package registry

import (
	"sync"
	"sync/atomic"

	"github.com/aristath/arduino-trader/internal/rulesengine/node"
	"github.com/aristath/arduino-trader/internal/rulesengine/rerr"
	"github.com/aristath/arduino-trader/internal/rulesengine/semtype"
)

// Category classifies a NodeSpec (spec.md §3.3).
type Category string

const (
	CategoryConstant Category = "CONSTANT"
	CategoryVariable Category = "VARIABLE"
	CategoryOperator Category = "OPERATOR"
)

// ReturnTypeResolver computes a polymorphic operator's effective return
// type from its children's return types (spec.md §4.1 step 4, §9).
type ReturnTypeResolver func(childTypes []semtype.Type) semtype.Type

// Build instantiates the concrete node.TreeNode variant once arity/type
// checks and return-type resolution have passed.
type Build func(children []node.TreeNode, params map[string]any, resolvedReturn semtype.Type) (node.TreeNode, error)

// NodeSpec is the registry's unit of authority (spec.md §3.3).
type NodeSpec struct {
	NodeName    string
	Category    Category
	ReturnType  semtype.Type // used when Resolver is nil
	ArgsType    []semtype.Type // nil for CONSTANT/VARIABLE; may be length 0 for an explicit 0-arity operator
	Params      map[string]any
	Description string
	Resolver    ReturnTypeResolver // optional, for polymorphic operators
	Build       Build
}

// Registry is the process-wide node_name -> NodeSpec mapping. It is safe
// for concurrent read access once frozen; Register after the first
// CreateNode call is rejected (spec.md §5, §9).
type Registry struct {
	mu     sync.RWMutex
	specs  map[string]NodeSpec
	frozen atomic.Bool
}

// New returns an empty, unfrozen Registry.
func New() *Registry {
	return &Registry{specs: make(map[string]NodeSpec)}
}

// Register adds spec to the registry. Fails with DuplicateNodeError if
// node_name is already registered, or once the registry has served its
// first CreateNode call (spec.md §9: "forbid register after any
// create_node").
func (r *Registry) Register(spec NodeSpec) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen.Load() {
		return &rerr.DuplicateNodeError{NodeName: spec.NodeName}
	}
	if _, exists := r.specs[spec.NodeName]; exists {
		return &rerr.DuplicateNodeError{NodeName: spec.NodeName}
	}
	r.specs[spec.NodeName] = spec
	return nil
}

// Lookup returns the NodeSpec for node_name, or UnknownNodeError.
func (r *Registry) Lookup(nodeName string) (NodeSpec, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	spec, ok := r.specs[nodeName]
	if !ok {
		return NodeSpec{}, &rerr.UnknownNodeError{NodeName: nodeName}
	}
	return spec, nil
}

// Len reports how many node specs are registered, mainly for tests and
// the dev-mode sanity pass in internal/ruleschedule.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.specs)
}

// Snapshot returns a copy of every registered NodeSpec, for callers (the
// stgp sampler) that need to enumerate the
// catalog rather than look up one name at a time. Safe to call before or
// after freezing; it never itself freezes the registry.
func (r *Registry) Snapshot() []NodeSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]NodeSpec, 0, len(r.specs))
	for _, spec := range r.specs {
		out = append(out, spec)
	}
	return out
}

// CreateNode is the only legal construction path for a TreeNode (spec.md
// §4.1). path identifies the node's position in the enclosing tree for
// error reporting (empty at the root).
func (r *Registry) CreateNode(nodeName string, children []node.TreeNode, params map[string]any, path string) (node.TreeNode, error) {
	r.frozen.Store(true)

	spec, err := r.Lookup(nodeName)
	if err != nil {
		if unk, ok := err.(*rerr.UnknownNodeError); ok {
			unk.Path = path
		}
		return nil, err
	}

	merged := mergeParams(spec.Params, params)

	if spec.Category == CategoryOperator && spec.ArgsType != nil {
		if len(children) != len(spec.ArgsType) {
			return nil, &rerr.ArityMismatchError{NodeName: nodeName, Want: len(spec.ArgsType), Got: len(children)}
		}
		for i, declared := range spec.ArgsType {
			if !semtype.Assignable(children[i].ReturnType(), declared) {
				return nil, &rerr.TypeMismatchError{
					NodeName: nodeName,
					Index:    i,
					Want:     string(declared),
					Got:      string(children[i].ReturnType()),
				}
			}
		}
	} else if spec.Category == CategoryOperator && spec.ArgsType == nil && len(children) == 0 {
		return nil, &rerr.ArityMismatchError{NodeName: nodeName, Want: 1, Got: 0}
	}

	resolvedReturn := spec.ReturnType
	if spec.Resolver != nil {
		childTypes := make([]semtype.Type, len(children))
		for i, c := range children {
			childTypes[i] = c.ReturnType()
		}
		resolvedReturn = spec.Resolver(childTypes)
	}

	return spec.Build(children, merged, resolvedReturn)
}

func mergeParams(defaults, overrides map[string]any) map[string]any {
	merged := make(map[string]any, len(defaults)+len(overrides))
	for k, v := range defaults {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[k] = v
	}
	return merged
}
