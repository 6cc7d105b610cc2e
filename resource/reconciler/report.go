package reconciler

import "github.com/terrane/terrane/resource/plan"

// Result is the outcome of a single action.
type Result int

const (
	// NoOp means the resource already matched the desired state.
	NoOp Result = iota

	// Applied means the action completed and the state was updated.
	Applied

	// Failed means the action returned an error after retries were
	// exhausted.
	Failed

	// Skipped means the action did not run because a dependency failed or
	// the run was cancelled.
	Skipped
)

func (r Result) String() string {
	switch r {
	case NoOp:
		return "no-op"
	case Applied:
		return "applied"
	case Failed:
		return "failed"
	case Skipped:
		return "skipped"
	}
	return "unknown"
}

// An ActionResult is the outcome of a single action in a plan.
type ActionResult struct {
	// Addr is the address of the resource.
	Addr string

	// Op is the operation that was planned.
	Op plan.Op

	// Result is the outcome.
	Result Result

	// Err is set when the result is Failed or Skipped.
	Err error
}

// A Report summarizes the execution of a plan.
//
// Results are listed in plan order, one entry per action.
type Report struct {
	// RunID identifies the run the report was produced by.
	RunID string

	// Results contains the outcome for every action in the plan.
	Results []ActionResult

	// Cancelled is set when the run stopped because the context was
	// cancelled. Actions that did not run are Skipped.
	Cancelled bool
}

// Count returns the number of results with the given outcome.
func (r *Report) Count(result Result) int {
	n := 0
	for _, res := range r.Results {
		if res.Result == result {
			n++
		}
	}
	return n
}

// OK returns true if no action failed or was skipped.
func (r *Report) OK() bool {
	return r.Count(Failed) == 0 && r.Count(Skipped) == 0 && !r.Cancelled
}
