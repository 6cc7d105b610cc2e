package resource

import (
	"github.com/aws/aws-sdk-go-v2/aws"
)

// An AuthProvider provides authentication information for provisioning a
// resource.
type AuthProvider interface {
	AWS() (aws.CredentialsProvider, error)
}

// A CreateRequest is passed to a resource's Create method when a new
// resource is being created.
type CreateRequest struct {
	Auth AuthProvider
}

// A ReadRequest is passed to a resource's Read method when the live state of
// the resource is refreshed.
type ReadRequest struct {
	Auth AuthProvider
}

// An UpdateRequest is passed to a resource's Update method when an existing
// resource is being updated.
//
// Previous contains the previous version of the resource, including its
// outputs. The concrete type of Previous matches the resource type.
type UpdateRequest struct {
	Auth     AuthProvider
	Previous Definition
}

// CreateRequest converts the update to a create request.
func (r *UpdateRequest) CreateRequest() *CreateRequest {
	return &CreateRequest{Auth: r.Auth}
}

// DeleteRequest converts the update to a delete request.
func (r *UpdateRequest) DeleteRequest() *DeleteRequest {
	return &DeleteRequest{Auth: r.Auth}
}

// A DeleteRequest is passed to a resource when it is being deleted.
type DeleteRequest struct {
	Auth AuthProvider
}
