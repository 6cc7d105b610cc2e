// Package plan computes the set of operations that transforms recorded
// resource state into the desired state described by a resource graph.
//
// A plan is purely a description; nothing is executed. Plans are computed
// fresh for every run and are never persisted.
package plan
