package engine

import "github.com/magicbutton/state/internal/atom"

// Tx batches field updates. Updates accumulate with last-write-wins per
// field and are applied on Commit in first-touch order, each producing
// its own ChangeEvent. A Tx is single-use: after Commit or Rollback every
// method fails with a TransactionDone error.
//
// A Tx is not safe for concurrent use.
type Tx struct {
	store   *Store
	base    Snapshot
	order   []string
	pending map[string]atom.Value
	done    bool
}

// Begin opens a transaction against the current snapshot.
func (s *Store) Begin() *Tx {
	return &Tx{
		store:   s,
		base:    s.Snapshot(),
		pending: make(map[string]atom.Value),
	}
}

// Base returns a field's value as of Begin. Reads inside a transaction
// see the base snapshot, not pending updates.
func (tx *Tx) Base(field string) (atom.Value, error) {
	if tx.done {
		return nil, newTransactionDone()
	}
	v, ok := tx.base[field]
	if !ok {
		return nil, newUnknownField(field)
	}
	return v, nil
}

// Update stages a value for a field. A later Update to the same field
// replaces the staged value without changing the field's commit position.
// Unknown fields fail immediately; schema validation waits until Commit.
func (tx *Tx) Update(field string, raw atom.Value) error {
	if tx.done {
		return newTransactionDone()
	}
	if _, ok := tx.base[field]; !ok {
		return newUnknownField(field)
	}
	if _, staged := tx.pending[field]; !staged {
		tx.order = append(tx.order, field)
	}
	tx.pending[field] = raw
	return nil
}

// Commit applies the staged updates in first-touch order. Each update
// validates and applies independently; the first validation failure stops
// the commit and is returned, with earlier updates left applied. The
// transaction is done either way.
func (tx *Tx) Commit() error {
	if tx.done {
		return newTransactionDone()
	}
	tx.done = true

	s := tx.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return &StoreError{Code: ErrCodeStoreClosed, Message: "store is closed"}
	}

	for _, field := range tx.order {
		ev, err := s.createChangeLocked(field, tx.pending[field], false)
		if err != nil {
			s.logger.Warn("transaction commit stopped",
				"field", field,
				"error", err,
			)
			return err
		}
		s.applyLocked(ev, originLocal)
	}
	return nil
}

// Rollback discards the staged updates.
func (tx *Tx) Rollback() error {
	if tx.done {
		return newTransactionDone()
	}
	tx.done = true
	tx.pending = nil
	tx.order = nil
	return nil
}
