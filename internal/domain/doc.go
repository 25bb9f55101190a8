// Package domain contains the task aggregate, its workflow status state
// machine and the events it raises. It has no knowledge of storage, transport
// or how events are delivered.
package domain
