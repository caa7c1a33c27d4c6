package playtest

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Script defines a scripted playthrough of a narrative scenario.
// Scripts drive a real engine through a sequence of player actions and
// assert on the resulting state and trace.
type Script struct {
	// Name uniquely identifies this script. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this script validates.
	Description string `yaml:"description"`

	// Scenario is the id of the scenario to load (e.g. "prologue").
	Scenario string `yaml:"scenario"`

	// Assets is the directory holding scenario files.
	// Relative paths resolve against the script file location.
	Assets string `yaml:"assets"`

	// Steps contains the player actions to execute in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final engine state.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step represents a single player action.
type Step struct {
	// Op is the action kind: progress, choose, back, save, load.
	Op string `yaml:"op"`

	// Choice is the zero-based choice index (used by choose).
	Choice int `yaml:"choice,omitempty"`

	// Slot is the save slot id (used by save and load).
	Slot string `yaml:"slot,omitempty"`
}

// Step op constants.
const (
	OpProgress = "progress"
	OpChoose   = "choose"
	OpBack     = "back"
	OpSave     = "save"
	OpLoad     = "load"
)

// Assertion validates final engine state after all steps have run.
type Assertion struct {
	// Type specifies the assertion kind:
	// - "scene": current scene id matches Scene
	// - "block": text block cursor matches Block
	// - "flag": flag Name holds boolean Value
	// - "variable": variable Name holds numeric Value
	// - "history": history depth matches Depth
	Type string `yaml:"type"`

	// Scene is the expected scene id (used by scene).
	Scene string `yaml:"scene,omitempty"`

	// Block is the expected cursor position (used by block).
	Block int `yaml:"block,omitempty"`

	// Name is the flag or variable name (used by flag, variable).
	Name string `yaml:"name,omitempty"`

	// Value is the expected flag or variable value.
	Value any `yaml:"value,omitempty"`

	// Depth is the expected history depth (used by history).
	Depth int `yaml:"depth,omitempty"`
}

// Assertion type constants.
const (
	AssertScene    = "scene"
	AssertBlock    = "block"
	AssertFlag     = "flag"
	AssertVariable = "variable"
	AssertHistory  = "history"
)

// LoadScript reads and parses a playtest script YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script file: %w", err)
	}

	// Strict field validation catches typos like "step:" vs "steps:".
	var script Script
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&script); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	// Resolve assets relative to the script file before validation.
	if script.Assets != "" && !filepath.IsAbs(script.Assets) {
		script.Assets = filepath.Join(filepath.Dir(path), script.Assets)
	}

	if err := validateScript(&script); err != nil {
		return nil, fmt.Errorf("invalid script: %w", err)
	}

	return &script, nil
}

// validateScript checks that required fields are present and valid.
func validateScript(s *Script) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Scenario == "" {
		return fmt.Errorf("scenario is required")
	}

	if s.Assets == "" {
		return fmt.Errorf("assets directory is required")
	}
	if info, err := os.Stat(s.Assets); err != nil || !info.IsDir() {
		return fmt.Errorf("assets directory not found: %s", s.Assets)
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		switch step.Op {
		case OpProgress, OpBack:
		case OpChoose:
			if step.Choice < 0 {
				return fmt.Errorf("steps[%d]: choice must be non-negative", i)
			}
		case OpSave, OpLoad:
			if step.Slot == "" {
				return fmt.Errorf("steps[%d]: slot is required for %s", i, step.Op)
			}
		case "":
			return fmt.Errorf("steps[%d]: op is required", i)
		default:
			return fmt.Errorf("steps[%d]: unknown op %q", i, step.Op)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case AssertScene:
		if a.Scene == "" {
			return fmt.Errorf("assertions[%d]: scene is required for scene", index)
		}
	case AssertBlock:
		if a.Block < 0 {
			return fmt.Errorf("assertions[%d]: block must be non-negative", index)
		}
	case AssertFlag, AssertVariable:
		if a.Name == "" {
			return fmt.Errorf("assertions[%d]: name is required for %s", index, a.Type)
		}
	case AssertHistory:
		if a.Depth < 0 {
			return fmt.Errorf("assertions[%d]: depth must be non-negative", index)
		}
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
