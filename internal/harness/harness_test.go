package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magicbutton/state/internal/atom"
)

func TestScenariosAgainstGolden(t *testing.T) {
	scenarios, err := LoadDir("testdata/scenarios")
	require.NoError(t, err)
	require.NotEmpty(t, scenarios)

	for _, sc := range scenarios {
		sc := sc
		t.Run(sc.Name, func(t *testing.T) {
			require.NoError(t, RunWithGolden(t, sc))
		})
	}
}

func TestRunCollectsSentEvents(t *testing.T) {
	result, err := Run(&Scenario{
		Name:   "sent-events",
		Schema: "fields: {count: int & >=0 | *0}",
		Steps: []Step{
			{Op: "set", Field: "count", Value: 1},
			{Op: "set_optimistic", Field: "count", Value: 2},
			{Op: "remote", Field: "count", Value: 3},
		},
	})
	require.NoError(t, err)

	// Only the plain local set reaches the transport: optimistic stays
	// local and remote changes never echo.
	require.Len(t, result.Sent, 1)
	assert.Equal(t, "chg-1", result.Sent[0].ChangeID)
}

func TestRunPauseDropsSteps(t *testing.T) {
	result, err := Run(&Scenario{
		Name:   "paused",
		Schema: "fields: {count: int & >=0 | *0}",
		Steps: []Step{
			{Op: "pause"},
			{Op: "set", Field: "count", Value: 5},
			{Op: "resume"},
			{Op: "set", Field: "count", Value: 6},
		},
		Assertions: []Assertion{
			{Type: "field_equals", Field: "count", Value: 6},
			{Type: "event_count", Count: 1},
		},
	})
	require.NoError(t, err)
	assert.Len(t, result.Trace, 1)
}

func TestRunAssertionFailure(t *testing.T) {
	_, err := Run(&Scenario{
		Name:   "failing",
		Schema: "fields: {count: int & >=0 | *0}",
		Steps: []Step{
			{Op: "set", Field: "count", Value: 1},
		},
		Assertions: []Assertion{
			{Type: "field_equals", Field: "count", Value: 2},
		},
	})
	require.Error(t, err)

	var ae *AssertionError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "field_equals", ae.Type)
	assert.Contains(t, ae.Error(), "chg-1")
}

func TestRunUnexpectedStepError(t *testing.T) {
	_, err := Run(&Scenario{
		Name:   "unexpected-error",
		Schema: "fields: {count: int & >=0 | *0}",
		Steps: []Step{
			{Op: "set", Field: "ghost", Value: 1},
		},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "step 1")
}

func TestRunExpectMismatch(t *testing.T) {
	_, err := Run(&Scenario{
		Name:   "expect-mismatch",
		Schema: "fields: {count: int & >=0 | *0}",
		Steps: []Step{
			{Op: "set", Field: "count", Value: 1, Expect: "INVALID_VALUE"},
		},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "step succeeded")
}

func TestRunInitialOverrides(t *testing.T) {
	result, err := Run(&Scenario{
		Name:    "initial",
		Schema:  "fields: {count: int & >=0 | *0}",
		Initial: map[string]any{"count": 10},
	})
	require.NoError(t, err)

	v, ok := result.Final.Get("count")
	require.True(t, ok)
	assert.Equal(t, atom.Int(10), v)
	// Startup overrides are not changes; no events, nothing sent.
	assert.Empty(t, result.Trace)
	assert.Empty(t, result.Sent)
}

func TestLoadScenarioValidation(t *testing.T) {
	write := func(t *testing.T, content string) string {
		t.Helper()
		path := filepath.Join(t.TempDir(), "scenario.yaml")
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		return path
	}

	cases := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "missing name",
			content: "schema: 'fields: {}'",
			wantErr: "missing name",
		},
		{
			name:    "missing schema",
			content: "name: x",
			wantErr: "missing schema",
		},
		{
			name: "unknown op",
			content: `
name: x
schema: 'fields: {count: int | *0}'
steps:
  - op: frobnicate
`,
			wantErr: "unknown op",
		},
		{
			name: "set without field",
			content: `
name: x
schema: 'fields: {count: int | *0}'
steps:
  - op: set
    value: 1
`,
			wantErr: "missing field",
		},
		{
			name: "unknown assertion",
			content: `
name: x
schema: 'fields: {count: int | *0}'
assertions:
  - type: nonsense
`,
			wantErr: "unknown type",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadScenario(write(t, tc.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}
