// Package events delivers committed domain events to registered handlers.
//
// The primary components are:
// - Dispatcher: synchronous, ordered, per-handler failure isolation
// - AsyncPublisher: a bounded queue and worker pool in front of a Dispatcher
// - LoggingHandler: writes every task move and deletion to the log
//
// Nothing in this package decides when events are published; the unit of work
// in the store package hands over a batch only after its transaction commits.
package events
