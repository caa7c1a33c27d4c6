package playtest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScript(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	// Scripts resolve their assets directory relative to their own path.
	require.NoError(t, os.Mkdir(filepath.Join(dir, "content"), 0o755))
	path := filepath.Join(dir, "script.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadScript_Valid(t *testing.T) {
	path := writeScript(t, `
name: demo
description: "A demo script"
scenario: prologue
assets: content
steps:
  - op: progress
  - op: choose
    choice: 1
assertions:
  - type: scene
    scene: meeting
`)

	script, err := LoadScript(path)
	require.NoError(t, err)

	assert.Equal(t, "demo", script.Name)
	assert.Equal(t, "prologue", script.Scenario)
	// Relative assets resolve against the script location.
	assert.Equal(t, filepath.Join(filepath.Dir(path), "content"), script.Assets)
	require.Len(t, script.Steps, 2)
	assert.Equal(t, 1, script.Steps[1].Choice)
}

func TestLoadScript_MissingFile(t *testing.T) {
	_, err := LoadScript(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadScript_UnknownFieldRejected(t *testing.T) {
	path := writeScript(t, `
name: demo
scenario: prologue
assets: content
step:
  - op: progress
`)
	_, err := LoadScript(path)
	assert.Error(t, err)
}

func TestLoadScript_RequiredFields(t *testing.T) {
	cases := map[string]string{
		"missing name": `
scenario: prologue
assets: content
steps:
  - op: progress
`,
		"missing scenario": `
name: demo
assets: content
steps:
  - op: progress
`,
		"missing assets": `
name: demo
scenario: prologue
steps:
  - op: progress
`,
		"empty steps": `
name: demo
scenario: prologue
assets: content
steps: []
`,
	}

	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadScript(writeScript(t, content))
			assert.Error(t, err)
		})
	}
}

func TestLoadScript_InvalidStep(t *testing.T) {
	path := writeScript(t, `
name: demo
scenario: prologue
assets: content
steps:
  - op: teleport
`)
	_, err := LoadScript(path)
	assert.ErrorContains(t, err, "unknown op")

	path = writeScript(t, `
name: demo
scenario: prologue
assets: content
steps:
  - op: save
`)
	_, err = LoadScript(path)
	assert.ErrorContains(t, err, "slot is required")
}

func TestLoadScript_InvalidAssertion(t *testing.T) {
	path := writeScript(t, `
name: demo
scenario: prologue
assets: content
steps:
  - op: progress
assertions:
  - type: mood
`)
	_, err := LoadScript(path)
	assert.ErrorContains(t, err, "unknown assertion type")

	path = writeScript(t, `
name: demo
scenario: prologue
assets: content
steps:
  - op: progress
assertions:
  - type: flag
    value: true
`)
	_, err = LoadScript(path)
	assert.ErrorContains(t, err, "name is required")
}
