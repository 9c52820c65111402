package harness

import (
	"fmt"
	"strings"

	"github.com/magicbutton/state/internal/atom"
)

// AssertionError is returned when a scenario assertion fails. It carries
// the full trace so a failure report stands on its own.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []TraceEvent
}

func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  actual:   %s\n", e.Actual)
	fmt.Fprintf(&buf, "\ntrace:\n")
	for _, ev := range e.Trace {
		fmt.Fprintf(&buf, "  [%d] %s %s -> %s (%s from %s)\n",
			ev.Seq, ev.Field, render(ev.Prev), render(ev.New), ev.ChangeID, ev.Source)
	}
	return buf.String()
}

func render(v atom.Value) string {
	data, err := atom.Marshal(v)
	if err != nil {
		return fmt.Sprintf("<%v>", err)
	}
	return string(data)
}

func evaluate(result *Result, a Assertion) error {
	switch a.Type {
	case "field_equals":
		return assertFieldEquals(result, a)
	case "event_count":
		return assertEventCount(result, a)
	case "event_order":
		return assertEventOrder(result, a)
	}
	return fmt.Errorf("unknown assertion type %q", a.Type)
}

func assertFieldEquals(result *Result, a Assertion) error {
	want, err := atom.FromGo(a.Value)
	if err != nil {
		return fmt.Errorf("field_equals value: %w", err)
	}
	got, ok := result.Final.Get(a.Field)
	if !ok {
		return &AssertionError{
			Type:     "field_equals",
			Expected: fmt.Sprintf("%s = %s", a.Field, render(want)),
			Actual:   "field not present",
			Trace:    result.Trace,
		}
	}
	if !atom.Equal(got, want) {
		return &AssertionError{
			Type:     "field_equals",
			Expected: fmt.Sprintf("%s = %s", a.Field, render(want)),
			Actual:   render(got),
			Trace:    result.Trace,
		}
	}
	return nil
}

func assertEventCount(result *Result, a Assertion) error {
	count := 0
	for _, ev := range result.Trace {
		if a.Field == "" || ev.Field == a.Field {
			count++
		}
	}
	if count != a.Count {
		scope := "trace"
		if a.Field != "" {
			scope = "field " + a.Field
		}
		return &AssertionError{
			Type:     "event_count",
			Expected: fmt.Sprintf("%d events for %s", a.Count, scope),
			Actual:   fmt.Sprintf("%d events", count),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertEventOrder checks first occurrences of the named fields appear in
// the given order. Other events may sit between them.
func assertEventOrder(result *Result, a Assertion) error {
	positions := make(map[string]int, len(a.Fields))
	for _, ev := range result.Trace {
		if _, seen := positions[ev.Field]; !seen {
			positions[ev.Field] = ev.Seq
		}
	}

	prev := 0
	for _, field := range a.Fields {
		pos, ok := positions[field]
		if !ok {
			return &AssertionError{
				Type:     "event_order",
				Expected: fmt.Sprintf("fields in order: %v", a.Fields),
				Actual:   fmt.Sprintf("no event for field %s", field),
				Trace:    result.Trace,
			}
		}
		if pos <= prev {
			return &AssertionError{
				Type:     "event_order",
				Expected: fmt.Sprintf("fields in order: %v", a.Fields),
				Actual:   fmt.Sprintf("field %s at seq %d, after seq %d", field, pos, prev),
				Trace:    result.Trace,
			}
		}
		prev = pos
	}
	return nil
}
