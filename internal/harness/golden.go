package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/retrywrites/internal/ir"
)

// Snapshot captures what a scenario produced, for golden comparison.
type Snapshot struct {
	ScenarioName string
	Result       *Result
}

// Document renders the snapshot as
// {scenario_name, retry: {command, at}, outcome: {reply|error}}.
func (s *Snapshot) Document() ir.Document {
	return ir.Doc(
		ir.E("scenario_name", ir.String(s.ScenarioName)),
		ir.E("retry", ir.Doc(
			ir.E("command", ir.String(string(s.Result.Command))),
			ir.E("at", ir.String(s.Result.At.Spec())),
		)),
		ir.E("outcome", s.Result.Outcome()),
	)
}

// MarshalCanonical returns the snapshot's canonical JSON bytes.
func (s *Snapshot) MarshalCanonical() ([]byte, error) {
	return ir.MarshalCanonical(s.Document())
}

// RunWithGolden executes a scenario and compares its outcome against a
// golden file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the outcome doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}

	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an already computed result against its golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshot := Snapshot{ScenarioName: scenarioName, Result: result}
	data, err := snapshot.MarshalCanonical()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)

	return nil
}
