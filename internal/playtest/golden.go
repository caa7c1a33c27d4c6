package playtest

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// TraceSnapshot captures the complete trace for a script execution.
// Fields serialize in a fixed order for deterministic comparison.
type TraceSnapshot struct {
	ScriptName string       `json:"script_name"`
	Scenario   string       `json:"scenario"`
	Trace      []TraceEvent `json:"trace"`
}

// RunWithGolden executes a script and compares the trace against a golden
// file stored in testdata/golden/{script.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/playtest -update
//
// Golden files are the source of truth for expected trace behavior.
// Test failure (via goldie) occurs if the trace doesn't match.
func RunWithGolden(t *testing.T, script *Script) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), script)
	if err != nil {
		return nil, err
	}

	snapshot := TraceSnapshot{
		ScriptName: script.Name,
		Scenario:   script.Scenario,
		Trace:      result.Trace,
	}
	traceJSON, err := json.MarshalIndent(&snapshot, "", "  ")
	if err != nil {
		return nil, err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, script.Name, traceJSON)

	return result, nil
}
