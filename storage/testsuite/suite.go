// Package testsuite provides a reusable test suite for resource stores.
// Every store implementation should pass the suite.
package testsuite

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"github.com/terrane/terrane/resource"
	"github.com/terrane/terrane/storage"
	"github.com/zclconf/go-cty/cty"
)

// The Target interface is implemented by stores that persist records.
type Target interface {
	Put(ctx context.Context, project string, rec *resource.Record) error
	Delete(ctx context.Context, project, addr string) error
	List(ctx context.Context, project string) (map[string]*resource.Record, error)
}

// Def is the resource definition used by the records in the suite. Stores
// that decode records through a registry must have Def registered.
type Def struct {
	Value string `terrane:"input"`

	ID string `terrane:"output"`
}

// Type implements resource.Definition.
func (*Def) Type() string { return "test" }

// Create implements resource.Definition.
func (*Def) Create(context.Context, *resource.CreateRequest) error { return nil }

// Read implements resource.Definition.
func (*Def) Read(context.Context, *resource.ReadRequest) error { return nil }

// Update implements resource.Definition.
func (*Def) Update(context.Context, *resource.UpdateRequest) error { return nil }

// Delete implements resource.Definition.
func (*Def) Delete(context.Context, *resource.DeleteRequest) error { return nil }

// Config provides configuration options for the test suite.
type Config struct {
	// New is used to instantiate a new store.
	//
	// The returned done function is called on test completion, allowing
	// cleanup to be performed.
	New func(t *testing.T) (target Target, done func())
}

// Run executes the test suite for the given configuration.
func Run(t *testing.T, cfg Config) {
	t.Run("RecordIO", func(t *testing.T) { recordIO(t, cfg) })
	t.Run("List/OtherProject", func(t *testing.T) { listOtherProject(t, cfg) })
	t.Run("Delete/NotFound", func(t *testing.T) { deleteNotFound(t, cfg) })
}

func record(name, value string) *resource.Record {
	return &resource.Record{
		Type:   "test",
		Name:   name,
		Input:  cty.ObjectVal(map[string]cty.Value{"value": cty.StringVal(value)}),
		Output: cty.ObjectVal(map[string]cty.Value{"id": cty.StringVal(value + "-id")}),
	}
}

func recordIO(t *testing.T, cfg Config) {
	target, done := cfg.New(t)
	defer done()
	ctx := context.Background()

	got, err := target.List(ctx, "proj")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("List() on empty store returned %d records", len(got))
	}

	a := record("a", "foo")
	b := record("b", "bar")
	b.Deps = []string{"test.a"}

	if err := target.Put(ctx, "proj", a); err != nil {
		t.Fatalf("Put() a error = %v", err)
	}
	if err := target.Put(ctx, "proj", b); err != nil {
		t.Fatalf("Put() b error = %v", err)
	}

	got, err = target.List(ctx, "proj")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	want := map[string]*resource.Record{"test.a": a, "test.b": b}
	if diff := cmp.Diff(got, want, recordOpts()...); diff != "" {
		t.Errorf("List() (-got +want)\n%s", diff)
	}

	// Update in place
	a2 := record("a", "updated")
	if err := target.Put(ctx, "proj", a2); err != nil {
		t.Fatalf("Put() update error = %v", err)
	}
	got, err = target.List(ctx, "proj")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	want = map[string]*resource.Record{"test.a": a2, "test.b": b}
	if diff := cmp.Diff(got, want, recordOpts()...); diff != "" {
		t.Errorf("List() after update (-got +want)\n%s", diff)
	}

	if err := target.Delete(ctx, "proj", "test.a"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	got, err = target.List(ctx, "proj")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	want = map[string]*resource.Record{"test.b": b}
	if diff := cmp.Diff(got, want, recordOpts()...); diff != "" {
		t.Errorf("List() after delete (-got +want)\n%s", diff)
	}
}

func listOtherProject(t *testing.T, cfg Config) {
	target, done := cfg.New(t)
	defer done()
	ctx := context.Background()

	if err := target.Put(ctx, "proj1", record("a", "foo")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, err := target.List(ctx, "proj2")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("List() other project returned %d records", len(got))
	}
}

func deleteNotFound(t *testing.T, cfg Config) {
	target, done := cfg.New(t)
	defer done()
	ctx := context.Background()

	err := target.Delete(ctx, "proj", "test.nonexisting")
	if errors.Cause(err) != storage.ErrNotFound {
		t.Errorf("Delete() error = %v, want %v", err, storage.ErrNotFound)
	}
}

func recordOpts() []cmp.Option {
	return []cmp.Option{
		cmp.Comparer(func(a, b cty.Value) bool { return a.RawEquals(b) }),
	}
}
