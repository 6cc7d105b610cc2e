// Package reconciler executes a plan against providers.
//
// Steps
//
// Execution proceeds in two phases:
//
//   1. Create / Update / Replace
//
//      Actions for resources in the desired graph are walked in dependency
//      order. Before each operation, reference fields in the resource input
//      are resolved from the outputs of the parent resources. On success the
//      new record is persisted before any dependent starts.
//
//   2. Delete
//
//      Resources that are no longer declared are deleted last. A resource is
//      deleted only after the deletes of the resources that depended on it
//      have completed.
//
// Concurrency
//
// When possible, actions are performed concurrently.
//
//   A and B execute concurrently.
//   When both have been executed (without error), C is executed.
//
//       A --> C
//       B -/
//
//   A is executed, then B & C concurrently, then D.
//
//       A -> B -> D
//         \- C -/
//
// Failures
//
// A failed action marks its transitive dependents skipped. Unrelated
// branches continue; nothing is rolled back. The outcome of every action is
// collected in a Report.
//
// Retries
//
// All operations are retried with exponential backoff. If a non-retryable
// error occurs, the resource definition should wrap the returned error with
// backoff.Permanent(err).
package reconciler
