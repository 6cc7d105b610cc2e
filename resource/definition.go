package resource

import "context"

// A Definition describes a resource type.
//
// All resources must implement this interface on a struct with input and
// output fields declared using terrane struct tags. Provider assigned values
// are written into output fields by the operations.
//
// Operations must return transient errors as-is; they will be retried with
// backoff. Errors that cannot be resolved by retrying must be wrapped in
// backoff.Permanent().
type Definition interface {
	// Type returns the type name for the resource.
	//
	// The name is used for matching the resource to the resource
	// configuration provided by the user.
	Type() string

	// Create creates a new resource.
	Create(ctx context.Context, req *CreateRequest) error

	// Read refreshes the output fields from the live resource.
	Read(ctx context.Context, req *ReadRequest) error

	// Update modifies an existing resource to match the definition.
	Update(ctx context.Context, req *UpdateRequest) error

	// Delete removes an existing resource.
	Delete(ctx context.Context, req *DeleteRequest) error
}
