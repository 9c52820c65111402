// Package atom provides the foundation types for the magicbutton state
// store: the value union held in snapshots, the change-event record, and
// the generators that stamp events with identity.
//
// This package contains type definitions and serialization only. All other
// internal packages import atom; atom imports nothing internal. This keeps
// it the foundational layer with no circular dependencies.
//
// Key design constraints:
//   - Value is a sealed union (Null, String, Int, Float, Bool, Array,
//     Object). Snapshots and events never hold arbitrary Go values.
//   - Values are immutable by convention. Code that hands a Value to a
//     subscriber or stores it in a snapshot never mutates it afterward.
//   - ChangeEvent is immutable once created and JSON round-trippable, so
//     a peer can reapply a received event byte for byte.
//   - Canonical serialization (RFC 8785 key ordering, NFC-normalized
//     strings) is used wherever two stores must agree on bytes: persisted
//     values and golden traces.
package atom
