// Package store defines the persistence contracts for tasks: the TaskStore
// repository, the TaskSpec query value and the unit of work that commits a
// change and only then publishes the events it produced. Concrete backends
// live under internal/platform.
package store
