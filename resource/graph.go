package resource

import (
	"fmt"
	"sort"
	"strings"

	"github.com/zclconf/go-cty/cty"
)

// A Graph contains the resources declared in configuration and the
// relationships between them.
type Graph struct {
	// Resources contains the declared resources, keyed by address.
	Resources map[string]*Resource

	// Dependencies contains unresolved field dependencies, keyed by the
	// dependent resource's address.
	Dependencies map[string][]Dependency

	// Outputs contains named output bindings, evaluated against resource
	// outputs after a run.
	Outputs map[string]Expression
}

// NewGraph creates a new empty graph.
func NewGraph() *Graph {
	return &Graph{
		Resources:    make(map[string]*Resource),
		Dependencies: make(map[string][]Dependency),
		Outputs:      make(map[string]Expression),
	}
}

// AddResource adds a new resource to the graph.
//
// Returns an error if the resource has no type or name, or if another
// resource with an identical address already exists.
func (g *Graph) AddResource(res *Resource) error {
	if res.Type == "" {
		return fmt.Errorf("resource has no type")
	}
	if res.Name == "" {
		return fmt.Errorf("resource has no name")
	}
	addr := res.Addr()
	if _, ok := g.Resources[addr]; ok {
		return fmt.Errorf("resource %s already exists", addr)
	}
	g.Resources[addr] = res
	return nil
}

// AddDependency adds a field dependency to a resource.
//
// The dependency's references are checked for validity: every reference must
// start with the type and name of a resource that exists in the graph.
// Beyond that, no validation is done (such as ensuring the field exists).
//
// The parent resources from the expression are added to the resource's Deps.
func (g *Graph) AddDependency(addr string, dep Dependency) error {
	res, ok := g.Resources[addr]
	if !ok {
		return fmt.Errorf("resource %s does not exist", addr)
	}
	for i, ref := range dep.Expression.References() {
		parent, err := refAddr(ref)
		if err != nil {
			return fmt.Errorf("reference %d: %v", i, err)
		}
		if _, ok := g.Resources[parent]; !ok {
			return fmt.Errorf("reference %d to non-existing resource %s", i, parent)
		}
	}
	g.Dependencies[addr] = append(g.Dependencies[addr], dep)
	for _, parent := range dep.Parents() {
		if !contains(res.Deps, parent) {
			res.Deps = append(res.Deps, parent)
		}
	}
	sort.Strings(res.Deps)
	return nil
}

func contains(list []string, str string) bool {
	for _, s := range list {
		if s == str {
			return true
		}
	}
	return false
}

// AddOutput adds a named output binding.
//
// Every reference in the expression must point to a resource that exists in
// the graph.
func (g *Graph) AddOutput(name string, expr Expression) error {
	if name == "" {
		return fmt.Errorf("output has no name")
	}
	if _, ok := g.Outputs[name]; ok {
		return fmt.Errorf("output %q already exists", name)
	}
	for i, ref := range expr.References() {
		parent, err := refAddr(ref)
		if err != nil {
			return fmt.Errorf("reference %d: %v", i, err)
		}
		if _, ok := g.Resources[parent]; !ok {
			return fmt.Errorf("reference %d to non-existing resource %s", i, parent)
		}
	}
	g.Outputs[name] = expr
	return nil
}

// refAddr extracts the resource address from a reference path. The first two
// steps of the path must be attribute steps for the type and the name.
func refAddr(ref cty.Path) (string, error) {
	if len(ref) < 2 {
		return "", fmt.Errorf("path too short for a resource reference")
	}
	typeStep, ok := ref[0].(cty.GetAttrStep)
	if !ok {
		return "", fmt.Errorf("path does not start with a resource type")
	}
	nameStep, ok := ref[1].(cty.GetAttrStep)
	if !ok {
		return "", fmt.Errorf("path does not contain a resource name")
	}
	return Addr(typeStep.Name, nameStep.Name), nil
}

// A CycleError is returned when the resources in a graph form a reference
// cycle. The graph must be a DAG; a cycle is a fatal configuration error.
type CycleError struct {
	// Path contains the addresses that form the cycle. The first and last
	// entries are the same resource.
	Path []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle: %s", strings.Join(e.Path, " -> "))
}

// SortedResources returns the addresses of all resources in the graph in
// topological order: every resource appears after all resources it depends
// on. The order is deterministic; ties are broken alphabetically.
//
// Returns a *CycleError if the graph is not acyclic.
func (g *Graph) SortedResources() ([]string, error) {
	addrs := make([]string, 0, len(g.Resources))
	for addr := range g.Resources {
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)

	var (
		order   = make([]string, 0, len(addrs))
		done    = make(map[string]bool, len(addrs))
		pending = make(map[string]bool) // recursion stack
		stack   []string
	)

	var visit func(addr string) *CycleError
	visit = func(addr string) *CycleError {
		if done[addr] {
			return nil
		}
		if pending[addr] {
			// Found a cycle; extract it from the current traversal stack.
			start := 0
			for i, a := range stack {
				if a == addr {
					start = i
					break
				}
			}
			return &CycleError{Path: append(append([]string{}, stack[start:]...), addr)}
		}
		pending[addr] = true
		stack = append(stack, addr)
		for _, parent := range g.Resources[addr].Deps {
			if _, ok := g.Resources[parent]; !ok {
				continue
			}
			if err := visit(parent); err != nil {
				return err
			}
		}
		stack = stack[:len(stack)-1]
		pending[addr] = false
		done[addr] = true
		order = append(order, addr)
		return nil
	}

	for _, addr := range addrs {
		if err := visit(addr); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// LeafResources returns the addresses of all resources that no other
// resource depends on. The results are returned in an arbitrary order.
func (g *Graph) LeafResources() []string {
	parents := make(map[string]struct{})
	for _, res := range g.Resources {
		for _, dep := range res.Deps {
			parents[dep] = struct{}{}
		}
	}
	out := make([]string, 0, len(g.Resources)-len(parents))
	for addr := range g.Resources {
		if _, isParent := parents[addr]; !isParent {
			out = append(out, addr)
		}
	}
	return out
}
