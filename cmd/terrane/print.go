package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/terrane/terrane/ctyext"
	"github.com/terrane/terrane/resource/plan"
	"github.com/terrane/terrane/resource/reconciler"
	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

func opSymbol(op plan.Op) string {
	switch op {
	case plan.Create:
		return "+"
	case plan.Update:
		return "~"
	case plan.Replace:
		return "±"
	case plan.Delete:
		return "-"
	}
	return " "
}

// writePlan prints the pending actions in a plan, with the field level
// changes that produced each one.
func writePlan(w io.Writer, p *plan.Plan) {
	for _, act := range p.Actions {
		if act.Op == plan.NoOp {
			continue
		}
		fmt.Fprintf(w, "  %s %s", opSymbol(act.Op), act.Addr)
		if act.Op == plan.Replace {
			fmt.Fprintf(w, " (%s)", act.Order)
		}
		fmt.Fprintln(w)
		for _, ch := range act.Changes {
			name := ctyext.PathString(ch.Path)
			switch act.Op {
			case plan.Create:
				fmt.Fprintf(w, "      %s: %s\n", name, formatValue(ch.New))
			default:
				fmt.Fprintf(w, "      %s: %s -> %s\n", name, formatValue(ch.Old), formatValue(ch.New))
			}
		}
	}

	var create, update, replace, del int
	for _, act := range p.Actions {
		switch act.Op {
		case plan.Create:
			create++
		case plan.Update:
			update++
		case plan.Replace:
			replace++
		case plan.Delete:
			del++
		}
	}
	fmt.Fprintf(w, "\nPlan: %d to create, %d to update, %d to replace, %d to delete.\n",
		create, update, replace, del)
}

// writeReport prints the outcome of every executed action and a summary
// line with the totals.
func writeReport(w io.Writer, rep *reconciler.Report) {
	for _, res := range rep.Results {
		if res.Result == reconciler.NoOp {
			continue
		}
		fmt.Fprintf(w, "  %s %s: %s", opSymbol(res.Op), res.Addr, res.Result)
		if res.Err != nil {
			fmt.Fprintf(w, ": %v", res.Err)
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "\nApplied %d, failed %d, skipped %d.\n",
		rep.Count(reconciler.Applied),
		rep.Count(reconciler.Failed),
		rep.Count(reconciler.Skipped),
	)
	if rep.Cancelled {
		fmt.Fprintln(w, "The run was cancelled before all actions completed.")
	}
}

// writeValues prints named values in a stable order.
func writeValues(w io.Writer, values map[string]cty.Value) {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "%s = %s\n", name, formatValue(values[name]))
	}
}

func formatValue(val cty.Value) string {
	if !val.IsWhollyKnown() {
		return "(known after apply)"
	}
	if val.IsNull() {
		return "null"
	}
	if val.Type() == cty.String {
		return fmt.Sprintf("%q", val.AsString())
	}
	b, err := ctyjson.Marshal(val, val.Type())
	if err != nil {
		return strings.TrimPrefix(val.GoString(), "cty.")
	}
	return string(b)
}
