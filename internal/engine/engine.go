package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/magicbutton/state/internal/atom"
)

// storageKeyPrefix namespaces persisted field values. Every adapter key is
// the prefix plus the field id.
const storageKeyPrefix = "state:field:"

func storageKey(field string) string {
	return storageKeyPrefix + field
}

// Schema is the validator collaborator: a compiled set of field
// descriptors. Implemented by internal/schema; the engine never interprets
// constraints itself.
type Schema interface {
	// FieldIDs returns field names in declaration order.
	FieldIDs() []string
	// Has reports whether a field is declared.
	Has(id string) bool
	// Default returns a field's default value.
	Default(id string) (atom.Value, bool)
	// Validate checks a raw value and returns the validated value.
	Validate(id string, raw atom.Value) (atom.Value, error)
}

// StorageAdapter is the persistence collaborator. Implementations live in
// internal/storage; the store tolerates having none configured.
type StorageAdapter interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	Close() error
}

// Transport is the synchronization collaborator. Implementations live in
// internal/transport; the store tolerates having none configured.
type Transport interface {
	Initialize(ctx context.Context) error
	SendChange(ctx context.Context, ev atom.ChangeEvent) error
	SubscribeToChanges(fn func(atom.ChangeEvent)) (func(), error)
	Close() error
}

// Snapshot is an immutable mapping from field id to current value.
// Exactly one entry per schema field; values are never mutated in place.
type Snapshot map[string]atom.Value

// Get returns the value for a field id. Implements Reader.
func (s Snapshot) Get(id string) (atom.Value, bool) {
	v, ok := s[id]
	return v, ok
}

func (s Snapshot) clone() Snapshot {
	out := make(Snapshot, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Store is the reactive state store.
//
// All exported methods are safe for concurrent use. Mutations serialize on
// one mutex; subscriber callbacks run while it is held and must not
// reenter the store.
type Store struct {
	mu sync.Mutex

	schema Schema
	source string
	ids    atom.IDGenerator
	clock  Clock
	logger *slog.Logger

	snap Snapshot

	middlewares []registeredMiddleware
	nextMWID    int

	fieldSubs map[string]map[int]func(atom.ChangeEvent)
	nextSubID int

	selectors     map[string]*selectorState
	selectorOrder []string

	timeline   []TimelineEntry
	timelineOn bool
	paused     bool

	storage     StorageAdapter
	transport   Transport
	unsubscribe func()
	effects     *effectQueue
	effectsDone chan struct{}
	metrics     *storeMetrics
	closed      bool
}

// Option configures a Store at construction.
type Option func(*Store)

// WithStorage attaches a persistence adapter. The store takes ownership
// and closes it on Close.
func WithStorage(a StorageAdapter) Option {
	return func(s *Store) { s.storage = a }
}

// WithTransport attaches a synchronization transport. The store takes
// ownership and closes it on Close.
func WithTransport(t Transport) Option {
	return func(s *Store) { s.transport = t }
}

// WithClock replaces the wall clock. Used by tests and the harness for
// deterministic timestamps.
func WithClock(c Clock) Option {
	return func(s *Store) { s.clock = c }
}

// WithIDGenerator replaces the change-id generator. Used by tests and the
// harness for deterministic ids.
func WithIDGenerator(g atom.IDGenerator) Option {
	return func(s *Store) { s.ids = g }
}

// WithSource fixes the store's instance identity instead of generating
// one. Two live stores must never share a source.
func WithSource(source string) Option {
	return func(s *Store) { s.source = source }
}

// WithLogger replaces the default slog logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithTimeline enables the time-travel log from startup.
func WithTimeline() Option {
	return func(s *Store) { s.timelineOn = true }
}

// WithMetrics registers Prometheus counters with the given registerer.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(s *Store) { s.metrics = newStoreMetrics(reg) }
}

// New creates a Store over a compiled schema.
//
// The first snapshot is built from field defaults, then initial overrides,
// then persisted values (one storage read per field). A failing override or
// a corrupt persisted value is logged and skipped - the default wins, and
// construction continues. A transport that cannot initialize or subscribe
// fails construction: a store that silently never syncs is worse than one
// that never starts.
func New(sch Schema, initial map[string]atom.Value, opts ...Option) (*Store, error) {
	s := &Store{
		schema:      sch,
		ids:         atom.UUIDv7Generator{},
		clock:       NewWallClock(),
		logger:      slog.Default(),
		fieldSubs:   make(map[string]map[int]func(atom.ChangeEvent)),
		selectors:   make(map[string]*selectorState),
		effects:     newEffectQueue(),
		effectsDone: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.source == "" {
		s.source = atom.NewSourceID()
	}

	s.snap = s.initialSnapshot(initial)
	s.loadPersisted()

	if s.transport != nil {
		ctx := context.Background()
		if err := s.transport.Initialize(ctx); err != nil {
			return nil, fmt.Errorf("initialize transport: %w", err)
		}
		unsub, err := s.transport.SubscribeToChanges(s.handleRemote)
		if err != nil {
			return nil, fmt.Errorf("subscribe to transport: %w", err)
		}
		s.unsubscribe = unsub
	}

	go s.runEffects()

	s.logger.Info("store initialized",
		"source", s.source,
		"fields", len(s.snap),
		"storage", s.storage != nil,
		"transport", s.transport != nil,
	)
	return s, nil
}

// initialSnapshot builds the first snapshot from defaults plus caller
// overrides. Overrides run through each field's validator; a failing
// override keeps the default (non-fatal).
func (s *Store) initialSnapshot(initial map[string]atom.Value) Snapshot {
	snap := make(Snapshot, len(s.schema.FieldIDs()))
	for _, id := range s.schema.FieldIDs() {
		def, ok := s.schema.Default(id)
		if !ok {
			// Schema compilation guarantees a default per field.
			def = atom.Null{}
		}
		snap[id] = def
	}

	for id, raw := range initial {
		if !s.schema.Has(id) {
			s.logger.Warn("initial override for unknown field", "field", id)
			continue
		}
		val, err := s.schema.Validate(id, raw)
		if err != nil {
			s.logger.Warn("initial override rejected, keeping default",
				"field", id,
				"error", err,
			)
			continue
		}
		snap[id] = val
	}
	return snap
}

// loadPersisted reads each field's persisted value once at startup.
// Corrupt or invalid persisted values are logged and skipped; a
// misbehaving storage adapter must never prevent the store from starting.
func (s *Store) loadPersisted() {
	if s.storage == nil {
		return
	}
	ctx := context.Background()

	for _, id := range s.schema.FieldIDs() {
		data, ok, err := s.storage.Get(ctx, storageKey(id))
		if err != nil {
			s.metrics.incAdapterFailure("storage")
			s.logger.Error("storage read failed, keeping default", "field", id, "error", err)
			continue
		}
		if !ok {
			continue
		}
		raw, err := atom.Decode(data)
		if err != nil {
			s.logger.Warn("persisted value corrupt, keeping default", "field", id, "error", err)
			continue
		}
		val, err := s.schema.Validate(id, raw)
		if err != nil {
			s.logger.Warn("persisted value invalid, keeping default", "field", id, "error", err)
			continue
		}
		s.snap[id] = val
	}
}

// Source returns the store's instance identity.
func (s *Store) Source() string {
	return s.source
}

// Snapshot returns a copy of the current snapshot. The copy is the
// caller's to keep; it never changes as the store moves on.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap.clone()
}

// Get returns the current value of one field.
func (s *Store) Get(field string) (atom.Value, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.snap[field]
	if !ok {
		return nil, newUnknownField(field)
	}
	return v, nil
}

// Set validates raw against the field's schema and applies the change.
// Validation failure returns an InvalidValue error and leaves the store
// untouched; no subscriber is notified.
func (s *Store) Set(field string, raw atom.Value) error {
	return s.set(field, raw, false)
}

// SetOptimistic applies a change locally without persisting or
// broadcasting it. The caller confirms with a later Set or compensates
// using the event's PrevValue; the engine runs no timeout of its own.
func (s *Store) SetOptimistic(field string, raw atom.Value) error {
	return s.set(field, raw, true)
}

// Reset sets a field back to its schema default.
func (s *Store) Reset(field string) error {
	def, ok := s.schema.Default(field)
	if !ok {
		return newUnknownField(field)
	}
	return s.set(field, def, false)
}

func (s *Store) set(field string, raw atom.Value, optimistic bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return &StoreError{Code: ErrCodeStoreClosed, Field: field, Message: "store is closed"}
	}

	ev, err := s.createChangeLocked(field, raw, optimistic)
	if err != nil {
		return err
	}
	s.applyLocked(ev, originLocal)
	return nil
}

// createChangeLocked validates the proposed value and stamps a fresh
// ChangeEvent. On validation failure no event is produced.
func (s *Store) createChangeLocked(field string, raw atom.Value, optimistic bool) (atom.ChangeEvent, error) {
	if !s.schema.Has(field) {
		return atom.ChangeEvent{}, newUnknownField(field)
	}
	val, err := s.schema.Validate(field, raw)
	if err != nil {
		return atom.ChangeEvent{}, newInvalidValue(field, err)
	}
	return atom.ChangeEvent{
		AtomID:     field,
		PrevValue:  s.snap[field],
		NewValue:   val,
		Timestamp:  s.clock.Now(),
		ChangeID:   s.ids.NewID(),
		Source:     s.source,
		Optimistic: optimistic,
	}, nil
}

// Subscribe registers a callback for one field's applied changes.
// The returned cancel function is idempotent.
func (s *Store) Subscribe(field string, fn func(atom.ChangeEvent)) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.schema.Has(field) {
		return nil, newUnknownField(field)
	}

	subs, ok := s.fieldSubs[field]
	if !ok {
		subs = make(map[int]func(atom.ChangeEvent))
		s.fieldSubs[field] = subs
	}
	s.nextSubID++
	id := s.nextSubID
	subs[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.fieldSubs[field], id)
	}, nil
}

// Close stops the store: unsubscribes from the transport, drains pending
// side effects, and closes owned adapters. Mutations after Close fail
// with a StoreClosed error.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	unsub := s.unsubscribe
	s.mu.Unlock()

	if unsub != nil {
		unsub()
	}

	s.effects.close()
	<-s.effectsDone

	var firstErr error
	if s.transport != nil {
		if err := s.transport.Close(); err != nil {
			firstErr = fmt.Errorf("close transport: %w", err)
		}
	}
	if s.storage != nil {
		if err := s.storage.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close storage: %w", err)
		}
	}

	s.logger.Info("store closed", "source", s.source)
	return firstErr
}
