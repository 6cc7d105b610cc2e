package teststore_test

import (
	"context"
	"testing"

	"github.com/terrane/terrane/resource"
	"github.com/terrane/terrane/storage"
	"github.com/terrane/terrane/storage/teststore"
	"github.com/terrane/terrane/storage/testsuite"
	"github.com/zclconf/go-cty/cty"
)

func TestStore(t *testing.T) {
	testsuite.Run(t, testsuite.Config{
		New: func(t *testing.T) (testsuite.Target, func()) {
			return &teststore.Store{}, func() {}
		},
	})
}

func TestStore_Seed(t *testing.T) {
	s := &teststore.Store{}
	s.Seed("proj", []*resource.Record{
		{Type: "test", Name: "a", Input: cty.EmptyObjectVal},
	})
	s.Seed("proj", []*resource.Record{
		{Type: "test", Name: "b", Input: cty.EmptyObjectVal},
	})
	s.Seed("other", []*resource.Record{
		{Type: "test", Name: "a", Input: cty.EmptyObjectVal},
	})

	got, err := s.List(context.Background(), "proj")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Errorf("List() got %d records, want 2", len(got))
	}
	if got["test.a"] == nil || got["test.b"] == nil {
		t.Errorf("List() missing seeded records, got %v", got)
	}
}

func TestRecorder(t *testing.T) {
	ctx := context.Background()
	rec := &teststore.Recorder{Store: &teststore.Store{}}

	a := &resource.Record{Type: "test", Name: "a", Input: cty.EmptyObjectVal}

	if err := rec.Put(ctx, "proj", a); err != nil {
		t.Fatal(err)
	}
	if _, err := rec.List(ctx, "proj"); err != nil {
		t.Fatal(err)
	}
	if err := rec.Delete(ctx, "proj", "test.a"); err != nil {
		t.Fatal(err)
	}
	err := rec.Delete(ctx, "proj", "test.nonexisting")
	if err != storage.ErrNotFound {
		t.Fatalf("Delete() nonexisting; error = %v, want %v", err, storage.ErrNotFound)
	}

	want := teststore.Events{
		{Method: "Put", Project: "proj", Data: a},
		{Method: "List", Project: "proj"},
		{Method: "Delete", Project: "proj", Data: "test.a"},
		{Method: "Delete", Project: "proj", Data: "test.nonexisting", Err: storage.ErrNotFound},
	}
	if diff := rec.Events.Diff(want); diff != "" {
		t.Errorf("Events (-got +want)\n%s", diff)
	}
}
