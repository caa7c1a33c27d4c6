// Package playtest provides scripted conformance testing for narrative
// scenarios.
//
// A playtest script walks a real engine through a scenario the way a
// player would, then asserts on the resulting state and trace.
//
// # Script Format
//
// Scripts are defined in YAML files with the following structure:
//
//	name: script_name
//	description: "What this script validates"
//	scenario: prologue
//	assets: ../scenarios
//	steps:
//	  - op: progress
//	  - op: choose
//	    choice: 1
//	  - op: save
//	    slot: quick
//	  - op: back
//	  - op: load
//	    slot: quick
//	assertions:
//	  - type: scene
//	    scene: scene2
//	  - type: flag
//	    name: met_rival
//	    value: true
//
// # Assertion Types
//
// The following assertion types are supported:
//
//   - scene: the current scene id matches
//   - block: the text block cursor position matches
//   - flag: a story flag holds the expected value
//   - variable: a story variable holds the expected value
//   - history: the visited-scene history has the expected depth
//
// # Deterministic Execution
//
// Each script runs against a fresh engine with a captured scheduler and an
// in-memory save store, so pending scene transitions commit under script
// control rather than on wall-clock timers. This ensures identical traces
// across runs for golden file comparison.
package playtest
