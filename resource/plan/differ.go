package plan

import (
	"sort"

	"github.com/pkg/errors"
	"github.com/terrane/terrane/ctyext"
	"github.com/terrane/terrane/resource"
	"github.com/terrane/terrane/resource/schema"
	"github.com/zclconf/go-cty/cty"
)

// A Differ computes the plan that transforms recorded state into the
// desired state described by a resource graph.
type Differ struct {
	// Registry provides the resource definitions, used for determining
	// which fields are immutable and how replacement is ordered.
	Registry *resource.Registry
}

// replaceOrderer is implemented by definitions that must be created before
// the resource they replace is deleted.
type replaceOrderer interface {
	CreateBeforeDelete() bool
}

// Diff computes the plan for a graph against recorded state.
//
// Every resource in the graph is classified by walking the graph in
// dependency order:
//
//   - No record exists: the resource is created.
//   - The recorded input equals the desired input: no-op. Reference fields
//     are resolved from recorded outputs, so a re-plan directly after an
//     apply is always a no-op.
//   - Fields changed, all mutable: the resource is updated in place.
//   - An immutable field changed: the resource is replaced.
//
// Records with no corresponding resource in the graph are deleted. Deletes
// are appended after all other actions, ordered so that dependents are
// deleted before the resources they depend on.
func (d *Differ) Diff(g *resource.Graph, records map[string]*resource.Record) (*Plan, error) {
	order, err := g.SortedResources()
	if err != nil {
		return nil, err
	}

	recs := make([]*resource.Record, 0, len(records))
	for _, r := range records {
		recs = append(recs, r)
	}
	evalCtx := &resource.EvalContext{Variables: resource.EvalVariables(recs...)}

	p := &Plan{Graph: g}
	ops := make(map[string]Op, len(order))

	for _, addr := range order {
		res := g.Resources[addr]
		rec, ok := records[addr]
		if !ok {
			p.Actions = append(p.Actions, &Action{Op: Create, Addr: addr, Resource: res})
			ops[addr] = Create
			continue
		}

		// If every parent is a no-op, the parents' recorded outputs are
		// final and reference fields can be resolved now. Otherwise the
		// referenced values may change during apply and the fields stay
		// unknown, which always counts as a change.
		input := res.Input
		clean := true
		for _, parent := range res.Deps {
			if ops[parent] != NoOp {
				clean = false
				break
			}
		}
		if clean {
			for _, dep := range g.Dependencies[addr] {
				val, err := dep.Expression.Value(evalCtx)
				if err != nil {
					return nil, errors.Wrapf(err, "resolve %s", addr)
				}
				input, err = ctyext.SetPath(input, dep.Field, val)
				if err != nil {
					return nil, errors.Wrapf(err, "resolve %s", addr)
				}
			}
		}

		changes := diffValue(nil, rec.Input, input)
		if len(changes) == 0 {
			p.Actions = append(p.Actions, &Action{Op: NoOp, Addr: addr, Resource: res, Prior: rec})
			ops[addr] = NoOp
			continue
		}

		t := d.Registry.Type(res.Type)
		if t == nil {
			return nil, resource.NotSupportedError{Type: res.Type}
		}
		immutable := schema.Fields(t).Inputs().Immutable()

		op := Update
		replOrder := DeleteThenCreate
		for i, c := range changes {
			if len(c.Path) == 0 {
				continue
			}
			step, ok := c.Path[0].(cty.GetAttrStep)
			if !ok {
				continue
			}
			if _, im := immutable[step.Name]; im {
				changes[i].RequiresReplace = true
				op = Replace
			}
		}
		if op == Replace {
			def, err := d.Registry.New(res.Type)
			if err != nil {
				return nil, err
			}
			if ro, ok := def.(replaceOrderer); ok && ro.CreateBeforeDelete() {
				replOrder = CreateThenDelete
			}
		}

		p.Actions = append(p.Actions, &Action{
			Op:       op,
			Addr:     addr,
			Resource: res,
			Prior:    rec,
			Order:    replOrder,
			Changes:  changes,
		})
		ops[addr] = op
	}

	for _, addr := range deleteOrder(records, g) {
		p.Actions = append(p.Actions, &Action{Op: Delete, Addr: addr, Prior: records[addr]})
	}

	return p, nil
}

// diffValue compares two values and returns the field level changes between
// them. Composite values are compared deeply; an unknown desired value
// always counts as a change.
func diffValue(path cty.Path, old, new cty.Value) []Change {
	if !new.IsKnown() {
		return []Change{{Path: path, Old: old, New: new}}
	}
	if !old.IsKnown() {
		// Should not happen; recorded values are always known.
		return []Change{{Path: path, Old: old, New: new}}
	}
	if old.IsNull() || new.IsNull() {
		if old.RawEquals(new) {
			return nil
		}
		return []Change{{Path: path, Old: old, New: new}}
	}

	oldTy, newTy := old.Type(), new.Type()

	switch {
	case oldTy.IsObjectType() && newTy.IsObjectType():
		var changes []Change
		names := attrNames(oldTy, newTy)
		for _, name := range names {
			p := appendPath(path, cty.GetAttrStep{Name: name})
			if !oldTy.HasAttribute(name) {
				changes = append(changes, Change{Path: p, Old: cty.NilVal, New: new.GetAttr(name)})
				continue
			}
			if !newTy.HasAttribute(name) {
				changes = append(changes, Change{Path: p, Old: old.GetAttr(name), New: cty.NilVal})
				continue
			}
			changes = append(changes, diffValue(p, old.GetAttr(name), new.GetAttr(name))...)
		}
		return changes
	case (oldTy.IsListType() || oldTy.IsTupleType()) && (newTy.IsListType() || newTy.IsTupleType()):
		oldVals, newVals := old.AsValueSlice(), new.AsValueSlice()
		if len(oldVals) != len(newVals) {
			return []Change{{Path: path, Old: old, New: new}}
		}
		var changes []Change
		for i := range oldVals {
			p := appendPath(path, cty.IndexStep{Key: cty.NumberIntVal(int64(i))})
			changes = append(changes, diffValue(p, oldVals[i], newVals[i])...)
		}
		return changes
	case oldTy.IsMapType() && newTy.IsMapType():
		oldMap, newMap := old.AsValueMap(), new.AsValueMap()
		var keys []string
		seen := make(map[string]bool)
		for k := range oldMap {
			keys = append(keys, k)
			seen[k] = true
		}
		for k := range newMap {
			if !seen[k] {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		var changes []Change
		for _, k := range keys {
			p := appendPath(path, cty.IndexStep{Key: cty.StringVal(k)})
			ov, ook := oldMap[k]
			nv, nok := newMap[k]
			switch {
			case !ook:
				changes = append(changes, Change{Path: p, Old: cty.NilVal, New: nv})
			case !nok:
				changes = append(changes, Change{Path: p, Old: ov, New: cty.NilVal})
			default:
				changes = append(changes, diffValue(p, ov, nv)...)
			}
		}
		return changes
	}

	if old.RawEquals(new) {
		return nil
	}
	return []Change{{Path: path, Old: old, New: new}}
}

// deleteOrder returns the addresses of recorded resources that are no
// longer present in the graph, ordered so that dependents are deleted
// before the resources they depend on.
func deleteOrder(records map[string]*resource.Record, g *resource.Graph) []string {
	addrs := make([]string, 0, len(records))
	for addr := range records {
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)

	// Topological order over recorded dependencies, parents first.
	order := make([]string, 0, len(addrs))
	done := make(map[string]bool, len(addrs))
	var visit func(addr string)
	visit = func(addr string) {
		if done[addr] {
			return
		}
		done[addr] = true
		for _, parent := range records[addr].Deps {
			if _, ok := records[parent]; ok {
				visit(parent)
			}
		}
		order = append(order, addr)
	}
	for _, addr := range addrs {
		visit(addr)
	}

	// Reversed, dependents come before their parents. Keep the orphans.
	out := make([]string, 0, len(order))
	for i := len(order) - 1; i >= 0; i-- {
		if _, ok := g.Resources[order[i]]; !ok {
			out = append(out, order[i])
		}
	}
	return out
}

func attrNames(types ...cty.Type) []string {
	seen := make(map[string]bool)
	var names []string
	for _, t := range types {
		for name := range t.AttributeTypes() {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	sort.Strings(names)
	return names
}

func appendPath(p cty.Path, step cty.PathStep) cty.Path {
	out := make(cty.Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, step)
}
