package reconciler

import (
	"context"
	"reflect"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/external"
	"github.com/cenkalti/backoff"
	"github.com/pkg/errors"
	"github.com/segmentio/ksuid"
	"github.com/terrane/terrane/ctyext"
	"github.com/terrane/terrane/resource"
	"github.com/terrane/terrane/resource/plan"
	"github.com/terrane/terrane/resource/reconciler/internal/task"
	"github.com/terrane/terrane/resource/schema"
	"github.com/terrane/terrane/storage"
	"github.com/zclconf/go-cty/cty"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// DefaultConcurrency is the default maximum concurrency to use.
//
// In practice, the reconciler is likely bound by network i/o.
var DefaultConcurrency = 10

// A Registry is able to instantiate resource definitions.
type Registry interface {
	Type(typename string) reflect.Type
	New(typename string) (resource.Definition, error)
}

// A Reconciler executes a plan.
//
// See package doc for details.
type Reconciler struct {
	State    storage.ResourceStore
	Registry Registry

	// Concurrency sets the maximum allowed concurrency to use.
	// If not set, DefaultConcurrency is used.
	Concurrency uint

	// Logger logs execution updates. If not set, logs are discarded.
	Logger *zap.Logger

	// Backoff algorithm used for retries. If not set, exponential backoff is
	// used.
	Backoff func() backoff.BackOff

	// Timeout limits the duration of a single provider operation. Retries
	// get a fresh timeout. If not set, operations are bound only by the run
	// context.
	Timeout time.Duration

	// Auth provides credentials to provider operations. If not set,
	// credentials are resolved from the environment.
	Auth resource.AuthProvider
}

// Execute applies the actions in the plan to reach the desired state.
//
// Independent actions are executed concurrently. A dependent action starts
// only after the actions for all of its parents have completed. When an
// action fails, its transitive dependents are skipped while unrelated
// branches continue.
//
// The returned report lists the result for every action in plan order.
// Execution failures are reported in the report, not as a returned error; an
// error is returned only if the plan itself is inconsistent.
func (r *Reconciler) Execute(ctx context.Context, project string, p *plan.Plan) (*Report, error) {
	logger := r.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	algo := r.Backoff
	if algo == nil {
		algo = func() backoff.BackOff {
			return backoff.NewExponentialBackOff()
		}
	}

	auth := r.Auth
	if auth == nil {
		auth = envAuthProvider{}
	}

	c := r.Concurrency
	if c == 0 {
		c = uint(DefaultConcurrency)
	}

	runID := ksuid.New().String()
	logger = logger.With(zap.String("run", runID))
	logger.Info("Executing plan", zap.String("project", project), zap.Int("actions", len(p.Actions)))

	run := &run{
		ID:       runID,
		Project:  project,
		Plan:     p,
		State:    r.State,
		Registry: r.Registry,
		Logger:   logger,
		Backoff:  algo,
		Timeout:  r.Timeout,
		Auth:     auth,
		Sem:      semaphore.NewWeighted(int64(c)),
		tasks:    task.NewGroup(),
		records:  make(map[string]*resource.Record),
		results:  make(map[string]*ActionResult),
	}
	for _, act := range p.Actions {
		if act.Prior != nil {
			run.records[act.Addr] = act.Prior
		}
	}

	if err := run.CreateUpdate(ctx); err != nil {
		return nil, err
	}
	run.RemoveOrphans(ctx)

	report := run.report(runID)
	report.Cancelled = ctx.Err() != nil

	logger.Info(
		"Done",
		zap.Int("applied", report.Count(Applied)),
		zap.Int("failed", report.Count(Failed)),
		zap.Int("skipped", report.Count(Skipped)),
		zap.Int("noop", report.Count(NoOp)),
		zap.Bool("cancelled", report.Cancelled),
	)

	return report, nil
}

type run struct {
	ID      string
	Project string
	Plan    *plan.Plan

	State    storage.ResourceStore
	Registry Registry
	Logger   *zap.Logger
	Backoff  func() backoff.BackOff
	Timeout  time.Duration
	Auth     resource.AuthProvider
	Sem      *semaphore.Weighted

	tasks *task.Group // Maintains a list of actively processing resources.

	mu      sync.Mutex
	records map[string]*resource.Record // Current state, updated as actions apply.
	results map[string]*ActionResult
}

// CreateUpdate walks all create, update and replace actions in dependency
// order. No-op actions complete immediately; their records provide outputs
// for dependent resources.
func (r *run) CreateUpdate(ctx context.Context) error {
	var wg sync.WaitGroup
	var errOnce sync.Once
	var fatal error
	for _, act := range r.Plan.Actions {
		if act.Op == plan.Delete {
			continue
		}
		act := act
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := r.processAction(ctx, act); err != nil {
				if _, ok := errors.Cause(err).(*actionError); !ok {
					// Not an action failure; the plan is inconsistent.
					errOnce.Do(func() { fatal = err })
				}
			}
		}()
	}
	wg.Wait()
	return fatal
}

// actionError marks an error that has been recorded in the report. It is
// propagated to dependents so they can skip, and otherwise ignored.
type actionError struct {
	addr string
	err  error
}

func (e *actionError) Error() string { return e.addr + ": " + e.err.Error() }

func (r *run) processAction(ctx context.Context, act *plan.Action) error {
	logger := r.Logger.With(zap.String("type", act.Resource.Type), zap.String("name", act.Resource.Name))

	return r.tasks.Do(act.Addr, func() error {
		// Wait for dependencies to resolve.
		// Do this before acquiring a semaphore, as otherwise we can
		// needlessly block on low concurrency limits, and end up in a
		// deadlock with concurrency=1.
		if err := r.processDependencies(ctx, act.Addr, logger); err != nil {
			if _, ok := errors.Cause(err).(*actionError); !ok {
				// Not an upstream action failure; the plan is inconsistent.
				return err
			}
			r.setResult(act.Addr, act.Op, Skipped, err)
			return &actionError{addr: act.Addr, err: err}
		}

		if act.Op == plan.NoOp {
			r.setResult(act.Addr, act.Op, NoOp, nil)
			logger.Debug("No changes required")
			return nil
		}

		// Ready to process, wait for semaphore.
		if err := r.Sem.Acquire(ctx, 1); err != nil {
			r.setResult(act.Addr, act.Op, Skipped, err)
			return &actionError{addr: act.Addr, err: err}
		}
		defer r.Sem.Release(1)

		if err := r.applyAction(ctx, act, logger); err != nil {
			logger.Error("Failed", zap.Error(err))
			r.setResult(act.Addr, act.Op, Failed, err)
			return &actionError{addr: act.Addr, err: err}
		}

		r.setResult(act.Addr, act.Op, Applied, nil)
		return nil
	})
}

func (r *run) processDependencies(ctx context.Context, addr string, logger *zap.Logger) error {
	deps := r.Plan.Graph.Dependencies[addr]
	if len(deps) == 0 {
		return nil
	}
	var parents []string
	for _, dep := range deps {
		for _, parent := range dep.Parents() {
			parents = append(parents, parent)
		}
	}
	errs := make([]error, len(parents))
	var wg sync.WaitGroup
	for i, parent := range parents {
		parentAct := r.Plan.ByAddr(parent)
		if parentAct == nil {
			return errors.Errorf("dependency on resource not in plan: %q", parent)
		}
		logger.Debug("Waiting on dependency", zap.String("parent", parent))
		i, parentAct := i, parentAct
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = r.processAction(ctx, parentAct)
		}()
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return errors.Wrap(err, "dependency failed")
		}
	}
	return nil
}

func (r *run) applyAction(ctx context.Context, act *plan.Action, logger *zap.Logger) error {
	input, err := r.resolveInput(act)
	if err != nil {
		return errors.Wrap(err, "resolve input")
	}

	switch act.Op {
	case plan.Create:
		logger.Info("Creating resource")
		def, err := r.newDefinition(act.Resource.Type, input, cty.NilVal)
		if err != nil {
			return err
		}
		req := &resource.CreateRequest{Auth: r.Auth}
		if err := r.retry(ctx, logger, func(octx context.Context) error {
			return def.Create(octx, req)
		}); err != nil {
			return errors.Wrapf(err, "create %s", act.Addr)
		}
		return r.putRecord(act, def, input)

	case plan.Update:
		logger.Info("Updating resource")
		prev, err := r.newDefinition(act.Prior.Type, act.Prior.Input, act.Prior.Output)
		if err != nil {
			return errors.Wrap(err, "set previous")
		}
		def, err := r.newDefinition(act.Resource.Type, input, cty.NilVal)
		if err != nil {
			return err
		}
		req := &resource.UpdateRequest{Auth: r.Auth, Previous: prev}
		if err := r.retry(ctx, logger, func(octx context.Context) error {
			return def.Update(octx, req)
		}); err != nil {
			return errors.Wrapf(err, "update %s", act.Addr)
		}
		return r.putRecord(act, def, input)

	case plan.Replace:
		return r.replace(ctx, act, input, logger)

	case plan.Delete:
		logger.Info("Deleting resource")
		def, err := r.newDefinition(act.Prior.Type, act.Prior.Input, act.Prior.Output)
		if err != nil {
			return errors.Wrap(err, "set previous")
		}
		req := &resource.DeleteRequest{Auth: r.Auth}
		if err := r.retry(ctx, logger, func(octx context.Context) error {
			return def.Delete(octx, req)
		}); err != nil {
			return errors.Wrapf(err, "delete %s", act.Addr)
		}
		return r.deleteRecord(act)
	}

	return errors.Errorf("unsupported operation %v", act.Op)
}

// replace replaces a resource in two steps. The record is updated after the
// create step, so a failed delete does not lose the surviving resource.
func (r *run) replace(ctx context.Context, act *plan.Action, input cty.Value, logger *zap.Logger) error {
	logger.Info("Replacing resource", zap.String("order", act.Order.String()))

	prev, err := r.newDefinition(act.Prior.Type, act.Prior.Input, act.Prior.Output)
	if err != nil {
		return errors.Wrap(err, "set previous")
	}
	def, err := r.newDefinition(act.Resource.Type, input, cty.NilVal)
	if err != nil {
		return err
	}

	del := func() error {
		req := &resource.DeleteRequest{Auth: r.Auth}
		return r.retry(ctx, logger, func(octx context.Context) error {
			return prev.Delete(octx, req)
		})
	}
	create := func() error {
		req := &resource.CreateRequest{Auth: r.Auth}
		return r.retry(ctx, logger, func(octx context.Context) error {
			return def.Create(octx, req)
		})
	}

	if act.Order == plan.CreateThenDelete {
		if err := create(); err != nil {
			return errors.Wrapf(err, "create replacement %s", act.Addr)
		}
		if err := r.putRecord(act, def, input); err != nil {
			return err
		}
		if err := del(); err != nil {
			return errors.Wrapf(err, "delete replaced %s", act.Addr)
		}
		return nil
	}

	if err := del(); err != nil {
		return errors.Wrapf(err, "delete %s", act.Addr)
	}
	if err := create(); err != nil {
		return errors.Wrapf(err, "create replacement %s", act.Addr)
	}
	return r.putRecord(act, def, input)
}

// resolveInput resolves reference fields in the action's input against the
// outputs of its parents. All parents have completed when this is called.
func (r *run) resolveInput(act *plan.Action) (cty.Value, error) {
	if act.Resource == nil {
		return cty.NilVal, nil
	}
	input := act.Resource.Input
	deps := r.Plan.Graph.Dependencies[act.Addr]
	if len(deps) == 0 {
		return input, nil
	}

	r.mu.Lock()
	records := make([]*resource.Record, 0, len(deps))
	for _, dep := range deps {
		for _, parent := range dep.Parents() {
			rec, ok := r.records[parent]
			if !ok {
				r.mu.Unlock()
				return cty.NilVal, errors.Errorf("no state for dependency %q", parent)
			}
			records = append(records, rec)
		}
	}
	r.mu.Unlock()

	evalCtx := &resource.EvalContext{Variables: resource.EvalVariables(records...)}
	for _, dep := range deps {
		v, err := dep.Expression.Value(evalCtx)
		if err != nil {
			return cty.NilVal, errors.Wrap(err, "eval expression")
		}
		input, err = ctyext.SetPath(input, dep.Field, v)
		if err != nil {
			return cty.NilVal, errors.Wrapf(err, "set %s", ctyext.PathString(dep.Field))
		}
	}

	if !input.IsWhollyKnown() {
		return cty.NilVal, errors.New("input contains unresolved values")
	}
	return input, nil
}

// newDefinition instantiates a definition and populates it with input and
// output values.
func (r *run) newDefinition(typename string, input, output cty.Value) (resource.Definition, error) {
	def, err := r.Registry.New(typename)
	if err != nil {
		return nil, err
	}
	if !output.IsNull() {
		if err := ctyext.FromCtyValue(output, def, schema.FieldName); err != nil {
			return nil, errors.Wrap(err, "set output")
		}
	}
	if !input.IsNull() {
		if err := ctyext.FromCtyValue(input, def, schema.FieldName); err != nil {
			return nil, errors.Wrap(err, "set input")
		}
	}
	return def, nil
}

// retry executes op, retrying transient errors with backoff. Each attempt
// gets a fresh timeout.
func (r *run) retry(ctx context.Context, logger *zap.Logger, op func(ctx context.Context) error) error {
	attempt := func() error {
		octx := ctx
		if r.Timeout > 0 {
			var cancel context.CancelFunc
			octx, cancel = context.WithTimeout(ctx, r.Timeout)
			defer cancel()
		}
		return op(octx)
	}
	algo := backoff.WithContext(r.Backoff(), ctx)
	notify := func(err error, dur time.Duration) {
		logger.Info("Retrying", zap.Error(err), zap.Duration("duration", dur))
	}
	return backoff.RetryNotify(attempt, algo, notify)
}

// putRecord persists the applied state and makes the outputs available to
// dependents.
//
// A new context is used so a cancelled run still stores the result.
func (r *run) putRecord(act *plan.Action, def resource.Definition, input cty.Value) error {
	outputType := schema.Fields(reflect.TypeOf(def)).Outputs().CtyType()
	output, err := ctyext.ToCtyValue(def, outputType, schema.FieldName)
	if err != nil {
		return errors.Wrap(err, "convert output values")
	}

	rec := &resource.Record{
		Type:   act.Resource.Type,
		Name:   act.Resource.Name,
		Input:  input,
		Output: output,
		Deps:   act.Resource.Deps,
	}

	pctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.State.Put(pctx, r.Project, rec); err != nil {
		return errors.Wrap(err, "store record")
	}

	r.mu.Lock()
	r.records[act.Addr] = rec
	r.mu.Unlock()
	return nil
}

func (r *run) deleteRecord(act *plan.Action) error {
	pctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.State.Delete(pctx, r.Project, act.Addr); err != nil {
		return errors.Wrap(err, "delete record")
	}
	r.mu.Lock()
	delete(r.records, act.Addr)
	r.mu.Unlock()
	return nil
}

// RemoveOrphans executes delete actions. Deletes run after all creates and
// updates. A resource is deleted only after the deletes of its recorded
// dependents have completed.
func (r *run) RemoveOrphans(ctx context.Context) {
	var deletes []*plan.Action
	for _, act := range r.Plan.Actions {
		if act.Op == plan.Delete {
			deletes = append(deletes, act)
		}
	}
	if len(deletes) == 0 {
		return
	}
	r.Logger.Debug("Removing orphans", zap.Int("count", len(deletes)))

	// dependents[addr] lists the deleted resources that depend on addr.
	dependents := make(map[string][]string)
	wgs := make(map[string]*sync.WaitGroup, len(deletes))
	for _, act := range deletes {
		for _, dep := range act.Prior.Deps {
			wg, ok := wgs[dep]
			if !ok {
				wg = &sync.WaitGroup{}
				wgs[dep] = wg
			}
			wg.Add(1)
			dependents[dep] = append(dependents[dep], act.Addr)
		}
	}

	var wg sync.WaitGroup
	for _, act := range deletes {
		act := act
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				for _, dep := range act.Prior.Deps {
					wgs[dep].Done()
				}
			}()

			if pwg, ok := wgs[act.Addr]; ok {
				// Wait for all dependents.
				pwg.Wait()
			}

			logger := r.Logger.With(zap.String("type", act.Prior.Type), zap.String("name", act.Prior.Name))

			// A resource cannot be deleted if a dependent still holds on
			// to it.
			for _, d := range dependents[act.Addr] {
				if res := r.result(d); res != nil && res.Result != Applied {
					err := errors.Errorf("dependent %s was not deleted", d)
					r.setResult(act.Addr, act.Op, Skipped, err)
					return
				}
			}

			if err := r.Sem.Acquire(ctx, 1); err != nil {
				r.setResult(act.Addr, act.Op, Skipped, err)
				return
			}
			defer r.Sem.Release(1)

			if err := r.applyAction(ctx, act, logger); err != nil {
				logger.Error("Failed", zap.Error(err))
				r.setResult(act.Addr, act.Op, Failed, err)
				return
			}
			r.setResult(act.Addr, act.Op, Applied, nil)
		}()
	}
	wg.Wait()
}

func (r *run) setResult(addr string, op plan.Op, result Result, err error) {
	r.mu.Lock()
	r.results[addr] = &ActionResult{Addr: addr, Op: op, Result: result, Err: err}
	r.mu.Unlock()
}

func (r *run) result(addr string) *ActionResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.results[addr]
}

// report assembles the results in plan order.
func (r *run) report(runID string) *Report {
	rep := &Report{RunID: runID}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, act := range r.Plan.Actions {
		res := r.results[act.Addr]
		if res == nil {
			// The action never started.
			res = &ActionResult{Addr: act.Addr, Op: act.Op, Result: Skipped}
		}
		rep.Results = append(rep.Results, *res)
	}
	return rep
}

// envAuthProvider provides credentials from the environment.
type envAuthProvider struct{}

func (p envAuthProvider) AWS() (aws.CredentialsProvider, error) {
	cfg, err := external.LoadDefaultAWSConfig()
	if err != nil {
		return nil, errors.Wrap(err, "load aws config")
	}
	return cfg.Credentials, nil
}
