package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/magicbutton/state/internal/atom"
	"github.com/magicbutton/state/internal/engine"
	"github.com/magicbutton/state/internal/schema"
	"github.com/magicbutton/state/internal/testutil"
)

// TraceEvent is one applied change as observed by field subscribers.
type TraceEvent struct {
	Seq        int        `json:"seq"`
	Field      string     `json:"field"`
	Prev       atom.Value `json:"prev"`
	New        atom.Value `json:"new"`
	Timestamp  int64      `json:"timestamp"`
	ChangeID   string     `json:"change_id"`
	Source     string     `json:"source"`
	Optimistic bool       `json:"optimistic"`
}

// Result is the outcome of running a scenario.
type Result struct {
	Trace []TraceEvent
	Final engine.Snapshot

	// Sent holds the events the store handed to its transport, in send
	// order.
	Sent []atom.ChangeEvent
}

// loopTransport is the harness's transport: it records sends and lets
// "remote" steps inject deliveries.
type loopTransport struct {
	mu      sync.Mutex
	sent    []atom.ChangeEvent
	deliver func(atom.ChangeEvent)
}

func (l *loopTransport) Initialize(context.Context) error { return nil }

func (l *loopTransport) SendChange(_ context.Context, ev atom.ChangeEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sent = append(l.sent, ev)
	return nil
}

func (l *loopTransport) SubscribeToChanges(fn func(atom.ChangeEvent)) (func(), error) {
	l.deliver = fn
	return func() {}, nil
}

func (l *loopTransport) Close() error { return nil }

// Run executes a scenario against a fresh store and evaluates its
// assertions.
//
// Determinism comes from the fixtures: the clock starts at 1000 and
// advances 1ms per reading, change ids are "chg-1", "chg-2", ... and the
// store's source is "src-local". Remote steps carry "peer-1", "peer-2",
// ... ids from "src-peer" unless the step names another source.
func Run(sc *Scenario) (*Result, error) {
	sch, err := schema.CompileString(sc.Schema)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}

	initial := make(map[string]atom.Value, len(sc.Initial))
	for field, raw := range sc.Initial {
		v, err := atom.FromGo(raw)
		if err != nil {
			return nil, fmt.Errorf("initial value for %s: %w", field, err)
		}
		initial[field] = v
	}

	loop := &loopTransport{}
	store, err := engine.New(sch, initial,
		engine.WithClock(testutil.NewClock(1000, 1)),
		engine.WithIDGenerator(atom.NewSequenceGenerator("chg")),
		engine.WithSource("src-local"),
		engine.WithTransport(loop),
		engine.WithTimeline(),
		engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	if err != nil {
		return nil, fmt.Errorf("build store: %w", err)
	}

	result := &Result{}
	for _, field := range sch.FieldIDs() {
		field := field
		if _, err := store.Subscribe(field, func(ev atom.ChangeEvent) {
			result.Trace = append(result.Trace, TraceEvent{
				Seq:        len(result.Trace) + 1,
				Field:      field,
				Prev:       ev.PrevValue,
				New:        ev.NewValue,
				Timestamp:  ev.Timestamp,
				ChangeID:   ev.ChangeID,
				Source:     ev.Source,
				Optimistic: ev.Optimistic,
			})
		}); err != nil {
			store.Close()
			return nil, fmt.Errorf("subscribe %s: %w", field, err)
		}
	}

	peerIDs := atom.NewSequenceGenerator("peer")
	peerClock := testutil.NewClock(9000, 1)

	for i, step := range sc.Steps {
		if err := runStep(store, loop, step, peerIDs, peerClock); err != nil {
			store.Close()
			return nil, fmt.Errorf("step %d (%s): %w", i+1, step.Op, err)
		}
	}

	result.Final = store.Snapshot()
	if err := store.Close(); err != nil {
		return nil, fmt.Errorf("close store: %w", err)
	}

	loop.mu.Lock()
	result.Sent = loop.sent
	loop.mu.Unlock()

	for _, a := range sc.Assertions {
		if err := evaluate(result, a); err != nil {
			return result, err
		}
	}
	return result, nil
}

func runStep(store *engine.Store, loop *loopTransport, step Step, peerIDs *atom.SequenceGenerator, peerClock *testutil.Clock) error {
	switch step.Op {
	case "set", "set_optimistic", "reset":
		var err error
		switch step.Op {
		case "set":
			var v atom.Value
			if v, err = atom.FromGo(step.Value); err == nil {
				err = store.Set(step.Field, v)
			}
		case "set_optimistic":
			var v atom.Value
			if v, err = atom.FromGo(step.Value); err == nil {
				err = store.SetOptimistic(step.Field, v)
			}
		case "reset":
			err = store.Reset(step.Field)
		}
		return checkExpect(step, err)

	case "remote":
		v, err := atom.FromGo(step.Value)
		if err != nil {
			return err
		}
		source := step.Source
		if source == "" {
			source = "src-peer"
		}
		loop.deliver(atom.ChangeEvent{
			AtomID:    step.Field,
			PrevValue: atom.Null{},
			NewValue:  v,
			Timestamp: peerClock.Now(),
			ChangeID:  peerIDs.NewID(),
			Source:    source,
		})
		return nil

	case "transaction":
		tx := store.Begin()
		for _, up := range step.Updates {
			v, err := atom.FromGo(up.Value)
			if err != nil {
				return err
			}
			if err := tx.Update(up.Field, v); err != nil {
				tx.Rollback()
				return checkExpect(step, err)
			}
		}
		return checkExpect(step, tx.Commit())

	case "pause":
		if !store.IsPaused() {
			store.TogglePause()
		}
		return nil
	case "resume":
		if store.IsPaused() {
			store.TogglePause()
		}
		return nil

	case "travel":
		return checkExpect(step, store.TravelTo(step.Entry))
	}
	return fmt.Errorf("unknown op %q", step.Op)
}

// checkExpect matches a step outcome against its Expect clause.
func checkExpect(step Step, err error) error {
	if step.Expect == "" {
		return err
	}
	if err == nil {
		return fmt.Errorf("expected error %s, step succeeded", step.Expect)
	}
	var se *engine.StoreError
	if !errors.As(err, &se) {
		return fmt.Errorf("expected error %s, got: %w", step.Expect, err)
	}
	if string(se.Code) != step.Expect {
		return fmt.Errorf("expected error %s, got %s", step.Expect, se.Code)
	}
	return nil
}
