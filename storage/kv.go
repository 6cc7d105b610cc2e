package storage

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
	"github.com/terrane/terrane/resource"
	"github.com/terrane/terrane/resource/schema"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// envelopeVersion is written to every stored record. Records with another
// version are rejected with ErrVersion.
const envelopeVersion = 1

// A ResourceStore persists resource records per project.
type ResourceStore interface {
	// Put creates or updates the record for a resource.
	Put(ctx context.Context, project string, rec *resource.Record) error

	// Delete deletes the record at the given address. Returns ErrNotFound
	// if no record exists.
	Delete(ctx context.Context, project, addr string) error

	// List returns all records for a project, keyed by address.
	List(ctx context.Context, project string) (map[string]*resource.Record, error)
}

// A Locker locks a project for exclusive access during a run. It is
// implemented by backends that have no implicit locking of their own.
type Locker interface {
	// Lock acquires the lock for a project. Returns ErrLockHeld if the lock
	// is held by another run.
	Lock(ctx context.Context, project string) error

	// Unlock releases the lock for a project.
	Unlock(ctx context.Context, project string) error
}

// The KVBackend is used for persisting key-value data.
type KVBackend interface {
	// Put creates or updates a key.
	Put(ctx context.Context, key string, value []byte) error

	// Get returns the given key. Returns ErrNotFound if the given key does not
	// exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete deletes a key. Returns ErrNotFound if the given key does not exist.
	Delete(ctx context.Context, key string) error

	// Scan returns a key-value map of all keys matching the given prefix.
	Scan(ctx context.Context, prefix string) (map[string][]byte, error)
}

// KV is a resource store that persists records in a key-value backend.
//
// Records are stored as json envelopes under <project>/<type>.<name>. The
// registry is needed to resolve the value types when decoding stored
// values.
type KV struct {
	Backend  KVBackend
	Registry *resource.Registry
}

var _ ResourceStore = (*KV)(nil)

// envelope wraps a record when marshalling to json.
type envelope struct {
	Version int             `json:"version"`
	Type    string          `json:"type"`
	Name    string          `json:"name"`
	Input   json.RawMessage `json:"input"`
	Output  json.RawMessage `json:"output,omitempty"`
	Deps    []string        `json:"deps,omitempty"`
}

// Put stores the record for a resource.
func (kv *KV) Put(ctx context.Context, project string, rec *resource.Record) error {
	t := kv.Registry.Type(rec.Type)
	if t == nil {
		return resource.NotSupportedError{Type: rec.Type}
	}
	fields := schema.Fields(t)

	input, err := ctyjson.Marshal(rec.Input, fields.Inputs().CtyType())
	if err != nil {
		return errors.Wrap(err, "marshal input")
	}

	env := envelope{
		Version: envelopeVersion,
		Type:    rec.Type,
		Name:    rec.Name,
		Input:   input,
		Deps:    rec.Deps,
	}
	if !rec.Output.IsNull() && rec.Output.IsKnown() {
		output, err := ctyjson.Marshal(rec.Output, fields.Outputs().CtyType())
		if err != nil {
			return errors.Wrap(err, "marshal output")
		}
		env.Output = output
	}

	j, err := json.Marshal(env)
	if err != nil {
		return errors.Wrap(err, "marshal envelope")
	}

	if err := kv.Backend.Put(ctx, key(project, rec.Addr()), j); err != nil {
		return errors.Wrap(err, "store")
	}
	return nil
}

// Delete deletes the record at an address.
func (kv *KV) Delete(ctx context.Context, project, addr string) error {
	if err := kv.Backend.Delete(ctx, key(project, addr)); err != nil {
		return errors.Wrap(err, "delete")
	}
	return nil
}

// List returns all records for a project, keyed by address.
func (kv *KV) List(ctx context.Context, project string) (map[string]*resource.Record, error) {
	values, err := kv.Backend.Scan(ctx, project)
	if err != nil {
		return nil, errors.Wrap(err, "scan")
	}

	out := make(map[string]*resource.Record, len(values))
	for k, v := range values {
		var env envelope
		if err := json.Unmarshal(v, &env); err != nil {
			return nil, errors.Wrapf(err, "unmarshal record %s", k)
		}
		if env.Version != envelopeVersion {
			return nil, errors.Wrapf(ErrVersion, "record %s has version %d", k, env.Version)
		}
		rec, err := kv.decode(env)
		if err != nil {
			return nil, errors.Wrapf(err, "decode record %s", k)
		}
		out[rec.Addr()] = rec
	}
	return out, nil
}

func (kv *KV) decode(env envelope) (*resource.Record, error) {
	t := kv.Registry.Type(env.Type)
	if t == nil {
		return nil, resource.NotSupportedError{Type: env.Type}
	}
	fields := schema.Fields(t)

	input, err := ctyjson.Unmarshal(env.Input, fields.Inputs().CtyType())
	if err != nil {
		return nil, errors.Wrap(err, "unmarshal input")
	}

	rec := &resource.Record{
		Type:  env.Type,
		Name:  env.Name,
		Input: input,
		Deps:  env.Deps,
	}
	if len(env.Output) > 0 {
		output, err := ctyjson.Unmarshal(env.Output, fields.Outputs().CtyType())
		if err != nil {
			return nil, errors.Wrap(err, "unmarshal output")
		}
		rec.Output = output
	}
	return rec, nil
}

func key(project, addr string) string {
	return strings.Join([]string{project, addr}, "/")
}
