// Package maintenance implements the maintenance action scheduler: a
// bounded worker pool that drives idempotent administrative work items
// ("actions") through a plugin-supplied step function, deduplicating by
// description identity and exposing a live registry for diagnostics.
//
// The five collaborating pieces are Description (the identity key),
// Action (the state machine), Registry (the shared index), Dispatcher
// (the worker pool), and Service (the public facade). None of them know
// about the concrete administrative actions that plug in; see
// internal/maintenance/actions for the built-ins this repo registers.
package maintenance
