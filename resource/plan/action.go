package plan

import (
	"github.com/terrane/terrane/resource"
	"github.com/zclconf/go-cty/cty"
)

// Op is the operation to perform on a resource.
type Op int

// Operations, in the order they appear in a plan.
const (
	NoOp Op = iota
	Create
	Update
	Replace
	Delete
)

func (op Op) String() string {
	switch op {
	case NoOp:
		return "no-op"
	case Create:
		return "create"
	case Update:
		return "update"
	case Replace:
		return "replace"
	case Delete:
		return "delete"
	}
	return "unknown"
}

// Order is the order of operations when replacing a resource.
type Order int

const (
	// DeleteThenCreate deletes the existing resource before creating its
	// replacement. This is the default; it is safe for resources whose
	// identity (such as a globally unique name) would collide if two copies
	// existed at once.
	DeleteThenCreate Order = iota

	// CreateThenDelete creates the replacement before deleting the existing
	// resource, avoiding downtime for resources that can briefly coexist.
	CreateThenDelete
)

func (o Order) String() string {
	if o == CreateThenDelete {
		return "create-then-delete"
	}
	return "delete-then-create"
}

// A Change is a single field level difference between the recorded state and
// the desired state.
type Change struct {
	// Path is the path to the field, relative to the resource input.
	Path cty.Path

	// Old is the recorded value. NilVal if the resource is being created.
	Old cty.Value

	// New is the desired value. The value is unknown if it depends on the
	// output of another resource that changes in the same plan.
	New cty.Value

	// RequiresReplace is set if the field is immutable and the change
	// requires the resource to be replaced.
	RequiresReplace bool
}

// An Action is a single operation in a plan.
type Action struct {
	// Op is the operation to perform.
	Op Op

	// Addr is the address of the resource the action applies to.
	Addr string

	// Resource is the desired resource from configuration. Nil for delete
	// actions.
	Resource *resource.Resource

	// Prior is the recorded state for the resource. Nil for create actions.
	Prior *resource.Record

	// Order is the order of operations for a replace. Only valid when Op is
	// Replace.
	Order Order

	// Changes are the field level differences that produced the action.
	// Empty for no-op and delete actions.
	Changes []Change
}

// A Plan is an ordered set of actions that transforms the recorded state
// into the desired state.
//
// Creates and updates appear in dependency order: an action is always
// preceded by the actions of the resources it depends on. Deletes appear
// last, dependents before the resources they depend on.
type Plan struct {
	// Graph is the desired resource graph the plan was computed from.
	Graph *resource.Graph

	// Actions are the planned operations.
	Actions []*Action
}

// HasChanges returns true if the plan contains any operation besides no-op.
func (p *Plan) HasChanges() bool {
	for _, a := range p.Actions {
		if a.Op != NoOp {
			return true
		}
	}
	return false
}

// ByAddr returns the action for a resource address, or nil if the plan does
// not contain the address.
func (p *Plan) ByAddr(addr string) *Action {
	for _, a := range p.Actions {
		if a.Addr == addr {
			return a
		}
	}
	return nil
}
