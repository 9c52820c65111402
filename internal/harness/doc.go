// Package harness runs declarative store scenarios for conformance
// testing.
//
// A scenario is a YAML file: a CUE schema, a sequence of steps (local
// sets, transactions, remote deliveries, pause toggles, time travel) and
// assertions over the resulting event trace and final state. The harness
// builds a store with a deterministic clock, sequential change ids and a
// fixed source, so the same scenario always produces the same trace.
// Traces can additionally be pinned with golden files.
package harness
