// Package stgp is the evolutionary-producer compatibility harness (spec.md
// §9, explicit Non-goal: the optimizer itself is out of scope). It exposes
// the one safe entry point an external STGP producer would call to grow or
// mutate a candidate tree without ever bypassing the Node Registry, so
// every candidate it emits satisfies P1 (no tree reaches evaluation
// without passing registry-time arity/type checks) by construction.
//
// Grounded on the teacher's symbolic_regression.EvolutionConfig/RunEvolution
// (population/depth/mutation knobs for a genetic-programming search), here
// narrowed to the sampling and mutation-safety primitives a producer needs
// — the search loop itself stays someone else's problem.
package stgp

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/aristath/arduino-trader/internal/rulesengine/node"
	"github.com/aristath/arduino-trader/internal/rulesengine/registry"
	"github.com/aristath/arduino-trader/internal/rulesengine/rerr"
	"github.com/aristath/arduino-trader/internal/rulesengine/semtype"
	"github.com/google/uuid"
)

// Config carries the population/depth knobs a producer would configure,
// mirroring the teacher's EvolutionConfig shape. MaxDepth bounds sampled
// trees at construction time, independently of node.MaxTreeDepth which
// bounds evaluation.
type Config struct {
	MaxDepth     int
	MutationRate float64 // probability [0,1] a given subtree is replaced
}

// DefaultConfig mirrors the teacher's EvolutionConfig.MaxDepth=4 default,
// scaled down from its MaxNodes=10 (genome search) to a depth bound
// appropriate for a single hand-checkable rule tree.
func DefaultConfig() Config {
	return Config{MaxDepth: 4, MutationRate: 0.1}
}

// NewCandidateRuleID mints a rule_id for a freshly grown or mutated
// candidate, grounded in the teacher's recommendation_repository.go
// (uuid.New().String() as the primary key for a record the producer,
// not a human, originates). Hand-seeded rules keep their human-chosen
// dotted names; only the evolutionary path mints one of these.
func NewCandidateRuleID(purpose semtype.Type) string {
	return fmt.Sprintf("evolved.%s.%s", strings.ToLower(string(purpose)), uuid.New().String())
}

// Sampler grows and mutates type-safe candidate trees against a frozen
// catalog of a Registry's NodeSpecs. Built once per Registry snapshot so
// repeated sampling doesn't re-lock/re-copy the registry each call.
type Sampler struct {
	cfg         Config
	constants   []registry.NodeSpec
	variables   []registry.NodeSpec
	operators   []registry.NodeSpec
	byReturn    map[semtype.Type][]registry.NodeSpec // terminals only, keyed by declared return type
}

// NewSampler snapshots r's catalog and returns a Sampler. Call after all
// builtins.Register calls for the process, matching the registry's own
// register-then-freeze discipline.
func NewSampler(r *registry.Registry, cfg Config) (*Sampler, error) {
	specs := r.Snapshot()
	if len(specs) == 0 {
		return nil, fmt.Errorf("stgp: cannot sample from an empty registry")
	}

	s := &Sampler{cfg: cfg, byReturn: make(map[semtype.Type][]registry.NodeSpec)}
	for _, spec := range specs {
		switch spec.Category {
		case registry.CategoryConstant:
			s.constants = append(s.constants, spec)
			s.byReturn[spec.ReturnType] = append(s.byReturn[spec.ReturnType], spec)
		case registry.CategoryVariable:
			s.variables = append(s.variables, spec)
			s.byReturn[spec.ReturnType] = append(s.byReturn[spec.ReturnType], spec)
		case registry.CategoryOperator:
			s.operators = append(s.operators, spec)
		}
	}
	return s, nil
}

// candidatesFor returns every operator spec whose (possibly resolved)
// return type is assignable to want, plus every terminal spec declared
// with that exact return type. A Resolver-bearing operator's true return
// type depends on its eventual children, so it is always offered as a
// candidate; its actual fit is re-checked by CreateNode once built.
func (s *Sampler) candidatesFor(want semtype.Type) []registry.NodeSpec {
	var out []registry.NodeSpec
	for _, spec := range s.operators {
		if spec.Resolver != nil || semtype.Assignable(spec.ReturnType, want) {
			out = append(out, spec)
		}
	}
	out = append(out, s.byReturn[want]...)
	return out
}

// Grow samples a fresh, type-safe tree whose root return type is want,
// recursing through the Registry's sole construction path (CreateNode) so
// the result can never violate an arity or type invariant (spec.md P1).
// Depth is capped at the Sampler's configured MaxDepth; once reached, only
// terminal (CONSTANT/VARIABLE) candidates are offered.
func (s *Sampler) Grow(r *registry.Registry, rng *rand.Rand, want semtype.Type, path string) (node.TreeNode, error) {
	return s.grow(r, rng, want, 0, path)
}

func (s *Sampler) grow(r *registry.Registry, rng *rand.Rand, want semtype.Type, depth int, path string) (node.TreeNode, error) {
	candidates := s.candidatesFor(want)
	if depth >= s.cfg.MaxDepth {
		candidates = terminalsOnly(candidates)
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("stgp: no registered node can satisfy return type %s at depth %d", want, depth)
	}

	// A Resolver-bearing candidate's true return type isn't known until
	// it's built, so retry with a different candidate a bounded number of
	// times if the result doesn't actually satisfy want.
	var lastErr error
	order := rng.Perm(len(candidates))
	attempts := len(order)
	if attempts > 5 {
		attempts = 5
	}
	for _, idx := range order[:attempts] {
		spec := candidates[idx]

		argTypes := spec.ArgsType
		if spec.Category == registry.CategoryOperator && argTypes == nil {
			// Variadic operator (e.g. MIN/MAX/MEAN/WEIGHTED_SUM): CreateNode
			// only rejects zero children, so pick an arbitrary arity in
			// [2,4] and fill every slot with a NUMERICAL-compatible child.
			arity := 2 + rng.Intn(3)
			argTypes = make([]semtype.Type, arity)
			for i := range argTypes {
				argTypes[i] = semtype.Numerical
			}
		}

		children := make([]node.TreeNode, 0, len(argTypes))
		built, err := func() (node.TreeNode, error) {
			for i, argType := range argTypes {
				childPath := fmt.Sprintf("%s/%d:%s", path, i, spec.NodeName)
				child, err := s.grow(r, rng, semtype.Widen(argType), depth+1, childPath)
				if err != nil {
					return nil, err
				}
				children = append(children, child)
			}
			return r.CreateNode(spec.NodeName, children, nil, path)
		}()
		if err != nil {
			lastErr = err
			continue
		}
		if !semtype.Assignable(built.ReturnType(), want) {
			lastErr = fmt.Errorf("stgp: %s resolved to %s, not assignable to %s", spec.NodeName, built.ReturnType(), want)
			continue
		}
		return built, nil
	}
	return nil, fmt.Errorf("stgp: could not grow a node satisfying %s at depth %d: %w", want, depth, lastErr)
}

func terminalsOnly(specs []registry.NodeSpec) []registry.NodeSpec {
	var out []registry.NodeSpec
	for _, spec := range specs {
		if spec.Category != registry.CategoryOperator {
			out = append(out, spec)
		}
	}
	return out
}

// Mutate walks tree and, independently at each node with probability
// MutationRate, replaces that subtree with a freshly grown one of the same
// return type — the standard STGP subtree-mutation operator, restricted
// here to never emit a result CreateNode would reject. tree must already
// be a Registry-constructed, type-checked node (the only legal kind, per
// the Registry's own invariant); Mutate preserves that property for its
// output.
func (s *Sampler) Mutate(r *registry.Registry, rng *rand.Rand, tree node.TreeNode, path string) (node.TreeNode, error) {
	if rng.Float64() < s.cfg.MutationRate {
		return s.Grow(r, rng, tree.ReturnType(), path)
	}

	kids := tree.Children()
	if len(kids) == 0 {
		return tree, nil
	}

	mutatedKids := make([]node.TreeNode, len(kids))
	for i, kid := range kids {
		childPath := fmt.Sprintf("%s/%d:%s", path, i, kid.NodeName())
		mutated, err := s.Mutate(r, rng, kid, childPath)
		if err != nil {
			return nil, err
		}
		mutatedKids[i] = mutated
	}

	rebuilt, err := r.CreateNode(tree.NodeName(), mutatedKids, nil, path)
	if err != nil {
		return nil, fmt.Errorf("stgp: rebuilding mutated %s: %w", tree.NodeName(), err)
	}
	return rebuilt, nil
}

// CheckMutationSafety re-validates that tree's root return type is one of
// the valid rule purposes, the contract an evolutionary producer must
// satisfy before it may hand a candidate to rule.New (spec.md Q3). It is a
// pure re-check, not a repair: a failing tree must be discarded or grown
// again, never coerced.
func CheckMutationSafety(tree node.TreeNode) error {
	if !semtype.IsPurpose(tree.ReturnType()) {
		return &rerr.TypeMismatchError{
			NodeName: tree.NodeName(),
			Index:    -1,
			Want:     "a valid rule purpose",
			Got:      string(tree.ReturnType()),
		}
	}
	return nil
}
