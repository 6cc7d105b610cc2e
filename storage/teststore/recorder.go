package teststore

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"github.com/google/go-cmp/cmp"
	"github.com/terrane/terrane/resource"
	"github.com/terrane/terrane/storage"
	"github.com/zclconf/go-cty/cty"
)

// A Recorder acts as a wrapper to a resource store. It records all
// transactions with the store for test or debugging purposes.
type Recorder struct {
	Store storage.ResourceStore

	mu     sync.Mutex
	Events Events
}

var _ storage.ResourceStore = (*Recorder)(nil)

// Events is a collection of events.
type Events []Event

var eventOpts = []cmp.Option{
	cmp.Comparer(func(a, b cty.Value) bool {
		return a.RawEquals(b)
	}),
}

// Equals returns true if the events match other events.
func (ee Events) Equals(other Events) bool {
	if len(ee) != len(other) {
		return false
	}
	for i, a := range ee {
		if !a.Equals(other[i]) {
			return false
		}
	}
	return true
}

// Diff returns a diff of events. Returns an empty string if the events are equal.
func (ee Events) Diff(other Events) string {
	opts := append([]cmp.Option{
		cmp.Comparer(func(a, b Event) bool {
			return a.Equals(b)
		}),
	}, eventOpts...)
	return cmp.Diff(ee, other, opts...)
}

// String returns a string of all events that have occurred.
//
// If no events have been recorded, returns
//  <no events>
func (ee Events) String() string {
	n := len(ee)
	if n == 0 {
		return "<no events>"
	}
	ss := make([]string, len(ee))
	for i, e := range ee {
		ss[i] = e.String()
	}
	return fmt.Sprintf("%v", ss)
}

// An Event is a recorded event.
type Event struct {
	Method  string      // Called method.
	Project string      // Project that was passed in.
	Data    interface{} // Arbitrary data. Content depends on the method.
	Err     error       // Error that was returned from call.
}

// Equals returns true if the two events are equal.
func (ev Event) Equals(other Event) bool {
	if ev.Method != other.Method {
		return false
	}
	if ev.Project != other.Project {
		return false
	}
	if !cmp.Equal(ev.Data, other.Data, eventOpts...) {
		return false
	}
	if ev.Err != other.Err {
		return false
	}
	return true
}

func (ev Event) String() string {
	var buf bytes.Buffer
	buf.WriteString(ev.Method)
	buf.WriteString("(project: ")
	buf.WriteString(ev.Project)
	buf.WriteString(") ")
	if ev.Data != nil {
		fmt.Fprintf(&buf, "data: %v", ev.Data)
	}
	if ev.Err != nil {
		buf.WriteString(" -> ")
		buf.WriteString(ev.Err.Error())
	}
	return buf.String()
}

// Put calls the corresponding method on the underlying store and records the
// event.
//
// The record is set as event data.
func (r *Recorder) Put(ctx context.Context, project string, record *resource.Record) error {
	ev := Event{
		Method:  "Put",
		Project: project,
		Data:    record,
	}
	err := r.Store.Put(ctx, project, record)
	if err != nil {
		ev.Err = err
	}
	r.mu.Lock()
	r.Events = append(r.Events, ev)
	r.mu.Unlock()
	return err
}

// Delete calls the corresponding method on the underlying store and records
// the event.
//
// The record address is set as event data.
func (r *Recorder) Delete(ctx context.Context, project, addr string) error {
	ev := Event{
		Method:  "Delete",
		Project: project,
		Data:    addr,
	}
	err := r.Store.Delete(ctx, project, addr)
	if err != nil {
		ev.Err = err
	}
	r.mu.Lock()
	r.Events = append(r.Events, ev)
	r.mu.Unlock()
	return err
}

// List calls the corresponding method on the underlying store and records the
// event.
func (r *Recorder) List(ctx context.Context, project string) (map[string]*resource.Record, error) {
	ev := Event{
		Method:  "List",
		Project: project,
	}
	out, err := r.Store.List(ctx, project)
	if err != nil {
		ev.Err = err
	}
	r.mu.Lock()
	r.Events = append(r.Events, ev)
	r.mu.Unlock()
	return out, err
}
