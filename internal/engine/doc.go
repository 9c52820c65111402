// Package engine implements the magicbutton reactive state store.
//
// The engine keeps a schema-validated set of independently-updatable
// fields, supports multi-field transactions, derives memoized values
// through dependency-tracked selectors, and reconciles changes arriving
// from peers against locally-originated changes.
//
// ARCHITECTURE:
//
// Single Mutation Path:
// Every mutation - imperative Set, transaction commit, remote
// reconciliation - becomes a ChangeEvent and funnels through one apply
// path guarded by the store mutex. No two apply critical sections ever
// interleave. The pipeline for each event is:
//
//  1. Middleware chain (transform or veto)
//  2. Snapshot replacement (never mutated in place)
//  3. Persistence write and transport send (async, fire-and-forget)
//  4. Selector recomputation and notification
//  5. Field subscriber notification
//  6. Timeline append (when enabled)
//
// Snapshots are immutable: the current snapshot is replaced wholesale on
// every applied change, so a reader holding an earlier snapshot sees a
// consistent, unchanging view.
//
// Side effects never block mutation: persistence writes and transport
// sends go through a single background worker with an unbounded FIFO
// queue. Adapter failures are logged, never retried, and never touch
// in-memory state.
//
// Subscriber and selector callbacks run synchronously on the applying
// goroutine while the store mutex is held. Callbacks must not call back
// into the store; a callback that needs a follow-up mutation should hand
// it to another goroutine.
//
// Loopback suppression: every store instance has a unique Source identity
// stamped on its outgoing events. An incoming transport event carrying the
// local Source is discarded - this store already applied it.
package engine
