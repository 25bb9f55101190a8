// Package service contains the task use cases. Each command loads or builds
// one task inside a unit of work, applies one domain operation and persists
// it; the events that operation raised are published by the unit of work
// after the commit.
//
// Expected business outcomes (a missing task, an illegal move, an unknown
// status name) are returned as result values. Argument-contract violations
// from the domain and infrastructure failures are returned as errors wrapped
// in TaskServiceError; use errors.Is to tell them apart:
//
//   - domain.ErrInvalidArgument: the caller passed a malformed value
//   - anything else: storage or commit failure
package service
