package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/magicbutton/state/internal/atom"
)

// RunWithGolden executes a scenario and compares its trace and final
// state against testdata/golden/{name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, sc *Scenario) error {
	t.Helper()

	result, err := Run(sc)
	if err != nil {
		return err
	}

	data, err := atom.MarshalCanonical(traceValue(sc, result))
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, sc.Name, data)
	return nil
}

// traceValue renders a result as an atom.Object so the golden file uses
// the store's own canonical serialization.
func traceValue(sc *Scenario, result *Result) atom.Value {
	trace := make(atom.Array, len(result.Trace))
	for i, ev := range result.Trace {
		trace[i] = atom.Object{
			"seq":        atom.Int(ev.Seq),
			"field":      atom.String(ev.Field),
			"prev":       ev.Prev,
			"new":        ev.New,
			"timestamp":  atom.Int(ev.Timestamp),
			"change_id":  atom.String(ev.ChangeID),
			"source":     atom.String(ev.Source),
			"optimistic": atom.Bool(ev.Optimistic),
		}
	}

	final := make(atom.Object, len(result.Final))
	for field, v := range result.Final {
		final[field] = v
	}

	return atom.Object{
		"scenario_name": atom.String(sc.Name),
		"trace":         trace,
		"final":         final,
	}
}
