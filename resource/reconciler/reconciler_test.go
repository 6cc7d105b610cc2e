package reconciler_test

import (
	"context"
	"sync"
	"testing"

	"github.com/cenkalti/backoff"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/pkg/errors"
	"github.com/terrane/terrane/resource"
	"github.com/terrane/terrane/resource/plan"
	"github.com/terrane/terrane/resource/reconciler"
	"github.com/terrane/terrane/storage/teststore"
	"github.com/zclconf/go-cty/cty"
	"go.uber.org/zap/zaptest"
)

func TestExecute_events(t *testing.T) {
	tests := []struct {
		name        string
		defs        []resource.Definition
		records     []*resource.Record
		plan        *plan.Plan
		wantEvents  teststore.Events
		wantResults []reconciler.ActionResult
	}{
		{
			name: "Empty",
			plan: &plan.Plan{Graph: resource.NewGraph()},
		},
		{
			name: "NoOp",
			defs: []resource.Definition{&echoDef{}},
			plan: &plan.Plan{
				Graph: resource.NewGraph(),
				Actions: []*plan.Action{
					{
						Op:       plan.NoOp,
						Addr:     "echo.foo",
						Resource: echoResource("foo", cty.StringVal("hello")),
						Prior:    echoRecord("foo", "hello", "hello"),
					},
				},
			},
			wantResults: []reconciler.ActionResult{
				{Addr: "echo.foo", Op: plan.NoOp, Result: reconciler.NoOp},
			},
		},
		{
			name: "Create",
			defs: []resource.Definition{&echoDef{}},
			plan: &plan.Plan{
				Graph: resource.NewGraph(),
				Actions: []*plan.Action{
					{
						Op:       plan.Create,
						Addr:     "echo.foo",
						Resource: echoResource("foo", cty.StringVal("bar")),
					},
				},
			},
			wantEvents: teststore.Events{
				{Method: "Put", Project: "proj", Data: echoRecord("foo", "bar", "bar")},
			},
			wantResults: []reconciler.ActionResult{
				{Addr: "echo.foo", Op: plan.Create, Result: reconciler.Applied},
			},
		},
		{
			name:    "Update",
			defs:    []resource.Definition{&echoDef{}},
			records: []*resource.Record{echoRecord("foo", "before", "before")},
			plan: &plan.Plan{
				Graph: resource.NewGraph(),
				Actions: []*plan.Action{
					{
						Op:       plan.Update,
						Addr:     "echo.foo",
						Resource: echoResource("foo", cty.StringVal("after")),
						Prior:    echoRecord("foo", "before", "before"),
					},
				},
			},
			wantEvents: teststore.Events{
				{Method: "Put", Project: "proj", Data: echoRecord("foo", "after", "after")},
			},
			wantResults: []reconciler.ActionResult{
				{Addr: "echo.foo", Op: plan.Update, Result: reconciler.Applied},
			},
		},
		{
			name: "CreateDependency",
			defs: []resource.Definition{&echoDef{}},
			plan: &plan.Plan{
				Graph: dependencyGraph(),
				Actions: []*plan.Action{
					{
						Op:       plan.Create,
						Addr:     "echo.parent",
						Resource: echoResource("parent", cty.StringVal("bar")),
					},
					{
						Op:       plan.Create,
						Addr:     "echo.child",
						Resource: childResource(),
					},
				},
			},
			wantEvents: teststore.Events{
				{Method: "Put", Project: "proj", Data: echoRecord("parent", "bar", "bar")},
				{Method: "Put", Project: "proj", Data: &resource.Record{
					Type:   "echo",
					Name:   "child",
					Input:  cty.ObjectVal(map[string]cty.Value{"input": cty.StringVal("bar")}),
					Output: cty.ObjectVal(map[string]cty.Value{"output": cty.StringVal("bar")}),
					Deps:   []string{"echo.parent"},
				}},
			},
			wantResults: []reconciler.ActionResult{
				{Addr: "echo.parent", Op: plan.Create, Result: reconciler.Applied},
				{Addr: "echo.child", Op: plan.Create, Result: reconciler.Applied},
			},
		},
		{
			name: "NoOpParentResolvesFromRecord",
			defs: []resource.Definition{&echoDef{}},
			records: []*resource.Record{
				echoRecord("parent", "bar", "bar"),
			},
			plan: &plan.Plan{
				Graph: dependencyGraph(),
				Actions: []*plan.Action{
					{
						Op:       plan.NoOp,
						Addr:     "echo.parent",
						Resource: echoResource("parent", cty.StringVal("bar")),
						Prior:    echoRecord("parent", "bar", "bar"),
					},
					{
						Op:       plan.Create,
						Addr:     "echo.child",
						Resource: childResource(),
					},
				},
			},
			wantEvents: teststore.Events{
				{Method: "Put", Project: "proj", Data: &resource.Record{
					Type:   "echo",
					Name:   "child",
					Input:  cty.ObjectVal(map[string]cty.Value{"input": cty.StringVal("bar")}),
					Output: cty.ObjectVal(map[string]cty.Value{"output": cty.StringVal("bar")}),
					Deps:   []string{"echo.parent"},
				}},
			},
			wantResults: []reconciler.ActionResult{
				{Addr: "echo.parent", Op: plan.NoOp, Result: reconciler.NoOp},
				{Addr: "echo.child", Op: plan.Create, Result: reconciler.Applied},
			},
		},
		{
			name: "DeleteOrder",
			defs: []resource.Definition{&echoDef{}},
			records: []*resource.Record{
				echoRecord("a", "x", "x"),
				recordWithDeps("b", []string{"echo.a"}),
				recordWithDeps("c", []string{"echo.b"}),
			},
			plan: &plan.Plan{
				Graph: resource.NewGraph(),
				Actions: []*plan.Action{
					{Op: plan.Delete, Addr: "echo.c", Prior: recordWithDeps("c", []string{"echo.b"})},
					{Op: plan.Delete, Addr: "echo.b", Prior: recordWithDeps("b", []string{"echo.a"})},
					{Op: plan.Delete, Addr: "echo.a", Prior: echoRecord("a", "x", "x")},
				},
			},
			wantEvents: teststore.Events{
				{Method: "Delete", Project: "proj", Data: "echo.c"},
				{Method: "Delete", Project: "proj", Data: "echo.b"},
				{Method: "Delete", Project: "proj", Data: "echo.a"},
			},
			wantResults: []reconciler.ActionResult{
				{Addr: "echo.c", Op: plan.Delete, Result: reconciler.Applied},
				{Addr: "echo.b", Op: plan.Delete, Result: reconciler.Applied},
				{Addr: "echo.a", Op: plan.Delete, Result: reconciler.Applied},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &teststore.Store{}
			store.Seed("proj", tt.records)
			rec := &teststore.Recorder{Store: store}

			reco := &reconciler.Reconciler{
				State:    rec,
				Registry: resource.RegistryFromDefinitions(tt.defs...),
				Logger:   zaptest.NewLogger(t),
			}

			report, err := reco.Execute(context.Background(), "proj", tt.plan)
			if err != nil {
				t.Fatalf("Execute() error = %v", err)
			}

			if diff := rec.Events.Diff(tt.wantEvents); diff != "" {
				t.Errorf("Events (-got +want)\n%s", diff)
			}
			if diff := cmp.Diff(resultList(report), tt.wantResults, resultOpts...); diff != "" {
				t.Errorf("Results (-got +want)\n%s", diff)
			}
			if report.Cancelled {
				t.Error("Report.Cancelled = true")
			}
		})
	}
}

func TestExecute_failureSkipsDependents(t *testing.T) {
	g := resource.NewGraph()
	g.Dependencies["echo.child"] = []resource.Dependency{{
		Field: cty.GetAttrPath("input"),
		Expression: resource.Expression{
			resource.ExprReference{
				Path: cty.GetAttrPath("fail").GetAttr("parent").GetAttr("output"),
			},
		},
	}}
	p := &plan.Plan{
		Graph: g,
		Actions: []*plan.Action{
			{
				Op:   plan.Create,
				Addr: "fail.parent",
				Resource: &resource.Resource{
					Type:  "fail",
					Name:  "parent",
					Input: cty.EmptyObjectVal,
				},
			},
			{
				Op:   plan.Create,
				Addr: "echo.child",
				Resource: &resource.Resource{
					Type:  "echo",
					Name:  "child",
					Input: cty.ObjectVal(map[string]cty.Value{"input": cty.UnknownVal(cty.String)}),
					Deps:  []string{"fail.parent"},
				},
			},
			{
				Op:       plan.Create,
				Addr:     "echo.other",
				Resource: echoResource("other", cty.StringVal("ok")),
			},
		},
	}

	store := &teststore.Store{}
	reco := &reconciler.Reconciler{
		State:    store,
		Registry: resource.RegistryFromDefinitions(&echoDef{}, &failDef{}),
		Logger:   zaptest.NewLogger(t),
	}

	report, err := reco.Execute(context.Background(), "proj", p)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	want := []reconciler.ActionResult{
		{Addr: "fail.parent", Op: plan.Create, Result: reconciler.Failed},
		{Addr: "echo.child", Op: plan.Create, Result: reconciler.Skipped},
		{Addr: "echo.other", Op: plan.Create, Result: reconciler.Applied},
	}
	if diff := cmp.Diff(resultList(report), want, resultOpts...); diff != "" {
		t.Errorf("Results (-got +want)\n%s", diff)
	}
	if report.OK() {
		t.Error("Report.OK() = true, want false")
	}

	// The unrelated resource was still stored.
	got, err := store.List(context.Background(), "proj")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got["echo.other"] == nil {
		t.Errorf("stored records = %v, want echo.other only", got)
	}
}

func TestExecute_replaceOrder(t *testing.T) {
	tests := []struct {
		name      string
		order     plan.Order
		wantCalls []string
	}{
		{"DeleteThenCreate", plan.DeleteThenCreate, []string{"delete old", "create new"}},
		{"CreateThenDelete", plan.CreateThenDelete, []string{"create new", "delete old"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			callLog.reset()

			p := &plan.Plan{
				Graph: resource.NewGraph(),
				Actions: []*plan.Action{
					{
						Op:    plan.Replace,
						Addr:  "call.foo",
						Order: tt.order,
						Resource: &resource.Resource{
							Type:  "call",
							Name:  "foo",
							Input: cty.ObjectVal(map[string]cty.Value{"name": cty.StringVal("new")}),
						},
						Prior: &resource.Record{
							Type:   "call",
							Name:   "foo",
							Input:  cty.ObjectVal(map[string]cty.Value{"name": cty.StringVal("old")}),
							Output: cty.EmptyObjectVal,
						},
					},
				},
			}

			store := &teststore.Store{}
			reco := &reconciler.Reconciler{
				State:    store,
				Registry: resource.RegistryFromDefinitions(&callDef{}),
				Logger:   zaptest.NewLogger(t),
			}

			report, err := reco.Execute(context.Background(), "proj", p)
			if err != nil {
				t.Fatalf("Execute() error = %v", err)
			}
			if !report.OK() {
				t.Fatalf("Report not ok: %v", report.Results)
			}

			if diff := cmp.Diff(callLog.get(), tt.wantCalls); diff != "" {
				t.Errorf("Calls (-got +want)\n%s", diff)
			}

			// The surviving resource is recorded.
			got, err := store.List(context.Background(), "proj")
			if err != nil {
				t.Fatal(err)
			}
			rec := got["call.foo"]
			if rec == nil {
				t.Fatal("missing record call.foo")
			}
			wantInput := cty.ObjectVal(map[string]cty.Value{"name": cty.StringVal("new")})
			if !rec.Input.RawEquals(wantInput) {
				t.Errorf("recorded input = %#v, want %#v", rec.Input, wantInput)
			}
		})
	}
}

func TestExecute_retriesTransient(t *testing.T) {
	callLog.reset()

	p := &plan.Plan{
		Graph: resource.NewGraph(),
		Actions: []*plan.Action{
			{
				Op:   plan.Create,
				Addr: "flaky.foo",
				Resource: &resource.Resource{
					Type:  "flaky",
					Name:  "foo",
					Input: cty.EmptyObjectVal,
				},
			},
		},
	}

	reco := &reconciler.Reconciler{
		State:    &teststore.Store{},
		Registry: resource.RegistryFromDefinitions(&flakyDef{}),
		Logger:   zaptest.NewLogger(t),
		Backoff: func() backoff.BackOff {
			return &backoff.ZeroBackOff{}
		},
	}

	report, err := reco.Execute(context.Background(), "proj", p)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !report.OK() {
		t.Fatalf("Report not ok: %v", report.Results)
	}
	if got := len(callLog.get()); got != 3 {
		t.Errorf("create was attempted %d times, want 3", got)
	}
}

func TestExecute_cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := &plan.Plan{
		Graph: resource.NewGraph(),
		Actions: []*plan.Action{
			{
				Op:       plan.Create,
				Addr:     "echo.foo",
				Resource: echoResource("foo", cty.StringVal("bar")),
			},
		},
	}

	reco := &reconciler.Reconciler{
		State:    &teststore.Store{},
		Registry: resource.RegistryFromDefinitions(&echoDef{}),
		Logger:   zaptest.NewLogger(t),
	}

	report, err := reco.Execute(ctx, "proj", p)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !report.Cancelled {
		t.Error("Report.Cancelled = false, want true")
	}
	if got := report.Count(reconciler.Skipped); got != 1 {
		t.Errorf("skipped = %d, want 1", got)
	}
}

// Test helpers

func echoResource(name string, input cty.Value) *resource.Resource {
	return &resource.Resource{
		Type:  "echo",
		Name:  name,
		Input: cty.ObjectVal(map[string]cty.Value{"input": input}),
	}
}

func echoRecord(name, input, output string) *resource.Record {
	return &resource.Record{
		Type:   "echo",
		Name:   name,
		Input:  cty.ObjectVal(map[string]cty.Value{"input": cty.StringVal(input)}),
		Output: cty.ObjectVal(map[string]cty.Value{"output": cty.StringVal(output)}),
	}
}

func recordWithDeps(name string, deps []string) *resource.Record {
	rec := echoRecord(name, "x", "x")
	rec.Deps = deps
	return rec
}

func childResource() *resource.Resource {
	return &resource.Resource{
		Type:  "echo",
		Name:  "child",
		Input: cty.ObjectVal(map[string]cty.Value{"input": cty.UnknownVal(cty.String)}),
		Deps:  []string{"echo.parent"},
	}
}

func dependencyGraph() *resource.Graph {
	g := resource.NewGraph()
	g.Dependencies["echo.child"] = []resource.Dependency{{
		Field: cty.GetAttrPath("input"),
		Expression: resource.Expression{
			resource.ExprReference{
				Path: cty.GetAttrPath("echo").GetAttr("parent").GetAttr("output"),
			},
		},
	}}
	return g
}

func resultList(r *reconciler.Report) []reconciler.ActionResult {
	out := make([]reconciler.ActionResult, len(r.Results))
	copy(out, r.Results)
	return out
}

var resultOpts = []cmp.Option{
	cmpopts.EquateEmpty(),
	cmp.Comparer(func(a, b error) bool {
		return (a == nil) == (b == nil)
	}),
	cmp.Comparer(func(a, b cty.Value) bool {
		return a.RawEquals(b)
	}),
}

// Test resource definitions

type echoDef struct {
	Input  *string `terrane:"input"`
	Output string  `terrane:"output"`
}

func (*echoDef) Type() string { return "echo" }
func (e *echoDef) Create(ctx context.Context, req *resource.CreateRequest) error {
	e.Output = *e.Input
	return nil
}
func (e *echoDef) Read(ctx context.Context, req *resource.ReadRequest) error { return nil }
func (e *echoDef) Update(ctx context.Context, req *resource.UpdateRequest) error {
	e.Output = *e.Input
	return nil
}
func (e *echoDef) Delete(ctx context.Context, req *resource.DeleteRequest) error { return nil }

type failDef struct{}

func (*failDef) Type() string { return "fail" }
func (*failDef) Create(ctx context.Context, req *resource.CreateRequest) error {
	return backoff.Permanent(errors.New("create failed"))
}
func (*failDef) Read(ctx context.Context, req *resource.ReadRequest) error     { return nil }
func (*failDef) Update(ctx context.Context, req *resource.UpdateRequest) error { return nil }
func (*failDef) Delete(ctx context.Context, req *resource.DeleteRequest) error { return nil }

// callLog records provider calls across reflectively created definitions.
var callLog = &calls{}

type calls struct {
	mu    sync.Mutex
	calls []string
}

func (c *calls) add(call string) {
	c.mu.Lock()
	c.calls = append(c.calls, call)
	c.mu.Unlock()
}

func (c *calls) get() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.calls))
	copy(out, c.calls)
	return out
}

func (c *calls) reset() {
	c.mu.Lock()
	c.calls = nil
	c.mu.Unlock()
}

type callDef struct {
	Name string `terrane:"input"`
}

func (*callDef) Type() string { return "call" }
func (d *callDef) Create(ctx context.Context, req *resource.CreateRequest) error {
	callLog.add("create " + d.Name)
	return nil
}
func (d *callDef) Read(ctx context.Context, req *resource.ReadRequest) error { return nil }
func (d *callDef) Update(ctx context.Context, req *resource.UpdateRequest) error {
	callLog.add("update " + d.Name)
	return nil
}
func (d *callDef) Delete(ctx context.Context, req *resource.DeleteRequest) error {
	callLog.add("delete " + d.Name)
	return nil
}

type flakyDef struct{}

func (*flakyDef) Type() string { return "flaky" }
func (*flakyDef) Create(ctx context.Context, req *resource.CreateRequest) error {
	callLog.add("create")
	if len(callLog.get()) < 3 {
		return errors.New("transient")
	}
	return nil
}
func (*flakyDef) Read(ctx context.Context, req *resource.ReadRequest) error     { return nil }
func (*flakyDef) Update(ctx context.Context, req *resource.UpdateRequest) error { return nil }
func (*flakyDef) Delete(ctx context.Context, req *resource.DeleteRequest) error { return nil }
