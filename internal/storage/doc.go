// Package storage provides persistence adapters for the state store.
//
// An adapter is a flat key/value surface: the engine writes each field's
// canonical JSON under a namespaced key and reads everything back once at
// startup. Two implementations exist: SQLite for durable stores and an
// in-memory map for tests and ephemeral stores. Open selects one by
// driver name.
//
// Adapters are fire-and-forget from the engine's point of view: a failed
// write is logged and counted, never retried, and never blocks a state
// change.
package storage
