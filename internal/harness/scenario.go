package harness

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// Scenario defines one conformance scenario: a schema, a step sequence
// and assertions over the outcome.
type Scenario struct {
	// Name uniquely identifies this scenario. Golden files are keyed by
	// it.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description,omitempty"`

	// Schema is inline CUE source for the store's fields.
	Schema string `yaml:"schema"`

	// Initial contains startup overrides applied before any step.
	Initial map[string]any `yaml:"initial,omitempty"`

	// Steps run in order against the store.
	Steps []Step `yaml:"steps"`

	// Assertions validate the trace and final state after all steps.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step is one scenario action.
//
// Op selects the action:
//   - "set":            validate and apply Value to Field
//   - "set_optimistic": apply Value to Field without persist/broadcast
//   - "reset":          restore Field to its schema default
//   - "remote":         deliver a peer change for Field from Source
//   - "transaction":    stage Updates and commit
//   - "pause", "resume": toggle change intake
//   - "travel":         jump to timeline entry Entry
type Step struct {
	Op    string `yaml:"op"`
	Field string `yaml:"field,omitempty"`
	Value any    `yaml:"value,omitempty"`

	// Source identifies the peer for "remote" steps. Defaults to
	// "src-peer".
	Source string `yaml:"source,omitempty"`

	// Updates lists staged writes for "transaction" steps, applied in
	// order.
	Updates []Update `yaml:"updates,omitempty"`

	// Entry names the timeline entry for "travel" steps.
	Entry string `yaml:"entry,omitempty"`

	// Expect names the error code the step must fail with. Empty means
	// the step must succeed.
	Expect string `yaml:"expect,omitempty"`
}

// Update is one staged write inside a transaction step.
type Update struct {
	Field string `yaml:"field"`
	Value any    `yaml:"value"`
}

// Assertion validates the trace or final state.
//
// Type selects the check:
//   - "field_equals": Field's final value equals Value
//   - "event_count":  the trace holds exactly Count applied events
//     (optionally restricted to Field)
//   - "event_order":  Fields appear in the trace in this order, first
//     occurrence each, gaps allowed
type Assertion struct {
	Type   string   `yaml:"type"`
	Field  string   `yaml:"field,omitempty"`
	Value  any      `yaml:"value,omitempty"`
	Count  int      `yaml:"count,omitempty"`
	Fields []string `yaml:"fields,omitempty"`
}

// LoadScenario reads and validates one scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario %s: %w", path, err)
	}

	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	if err := sc.validate(); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}
	return &sc, nil
}

// LoadDir loads every *.yaml scenario in a directory, sorted by file
// name.
func LoadDir(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	out := make([]*Scenario, 0, len(paths))
	for _, path := range paths {
		sc, err := LoadScenario(path)
		if err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, nil
}

func (sc *Scenario) validate() error {
	if sc.Name == "" {
		return fmt.Errorf("missing name")
	}
	if sc.Schema == "" {
		return fmt.Errorf("missing schema")
	}
	for i, step := range sc.Steps {
		switch step.Op {
		case "set", "set_optimistic", "reset", "remote":
			if step.Field == "" {
				return fmt.Errorf("step %d (%s): missing field", i+1, step.Op)
			}
		case "transaction":
			if len(step.Updates) == 0 {
				return fmt.Errorf("step %d: transaction without updates", i+1)
			}
		case "travel":
			if step.Entry == "" {
				return fmt.Errorf("step %d: travel without entry", i+1)
			}
		case "pause", "resume":
		default:
			return fmt.Errorf("step %d: unknown op %q", i+1, step.Op)
		}
	}
	for i, a := range sc.Assertions {
		switch a.Type {
		case "field_equals":
			if a.Field == "" {
				return fmt.Errorf("assertion %d: field_equals without field", i+1)
			}
		case "event_count":
		case "event_order":
			if len(a.Fields) < 2 {
				return fmt.Errorf("assertion %d: event_order needs at least two fields", i+1)
			}
		default:
			return fmt.Errorf("assertion %d: unknown type %q", i+1, a.Type)
		}
	}
	return nil
}
