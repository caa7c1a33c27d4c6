package playtest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadTestScript(t *testing.T, name string) *Script {
	t.Helper()
	script, err := LoadScript(filepath.Join("testdata", "scripts", name))
	require.NoError(t, err)
	return script
}

func TestRun_StayScript(t *testing.T) {
	script := loadTestScript(t, "prologue-stay.yaml")

	result, err := RunWithGolden(t, script)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Len(t, result.Trace, 4)
}

func TestRun_SaveLoadScript(t *testing.T) {
	script := loadTestScript(t, "prologue-save-load.yaml")

	result, err := RunWithGolden(t, script)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_FailedAssertionReported(t *testing.T) {
	script := &Script{
		Name:     "wrong-scene",
		Scenario: "prologue",
		Assets:   "testdata",
		Steps:    []Step{{Op: OpProgress}},
		Assertions: []Assertion{
			{Type: AssertScene, Scene: "meeting"}, // still at intro
		},
	}

	result, err := Run(context.Background(), script)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "expected scene")
}

func TestRun_StepFailureAbortsScript(t *testing.T) {
	script := &Script{
		Name:     "bad-choice",
		Scenario: "prologue",
		Assets:   "testdata",
		Steps: []Step{
			{Op: OpChoose, Choice: 0}, // intro has no choices
			{Op: OpProgress},
		},
	}

	result, err := Run(context.Background(), script)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Empty(t, result.Trace)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "steps[0]")
}

func TestRun_LoadFromEmptySlotFails(t *testing.T) {
	script := &Script{
		Name:     "empty-slot",
		Scenario: "prologue",
		Assets:   "testdata",
		Steps:    []Step{{Op: OpLoad, Slot: "quick"}},
	}

	result, err := Run(context.Background(), script)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], "empty")
}

func TestRun_UnknownScenario(t *testing.T) {
	script := &Script{
		Name:     "missing",
		Scenario: "nothere",
		Assets:   "testdata",
		Steps:    []Step{{Op: OpProgress}},
	}

	_, err := Run(context.Background(), script)
	assert.Error(t, err)
}
