package engine

import (
	"errors"
	"fmt"
)

// TraversalError represents a failed engine operation.
//
// Traversal errors are non-fatal: the operation reports failure and engine
// state is left exactly as it was (operations are all-or-nothing). Load
// errors (EMPTY_SCENE_LIST, plus propagated scenario.LoadError) are fatal
// to the load attempt only; the engine keeps whatever state it had before.
type TraversalError struct {
	// Code identifies the error category.
	Code TraversalErrorCode

	// Message is a human-readable description.
	Message string

	// SceneID identifies the scene the operation ran against, if any.
	SceneID string

	// Target identifies the scene/scenario the operation tried to reach
	// (for NO_NEXT_SCENE and UNRESOLVED_CHOICE_TARGET).
	Target string

	// Choice is the offending choice index (for INVALID_CHOICE_INDEX).
	Choice int
}

// TraversalErrorCode categorizes traversal errors.
type TraversalErrorCode string

const (
	// ErrCodeNotLoaded indicates an operation before a successful Load.
	ErrCodeNotLoaded TraversalErrorCode = "NOT_LOADED"

	// ErrCodeLoadInFlight indicates a Load while another Load is running.
	// Concurrent loads on one engine are not defined as safe; callers
	// must serialize, and the engine rejects rather than interleave.
	ErrCodeLoadInFlight TraversalErrorCode = "LOAD_IN_FLIGHT"

	// ErrCodeEmptySceneList indicates a scenario with no scenes.
	ErrCodeEmptySceneList TraversalErrorCode = "EMPTY_SCENE_LIST"

	// ErrCodeNoNextScene indicates an advance with no (resolvable) next
	// scene. A scene with neither choices nor next is a dead end; further
	// advances keep reporting this without mutating anything.
	ErrCodeNoNextScene TraversalErrorCode = "NO_NEXT_SCENE"

	// ErrCodeInvalidChoiceIndex indicates a choice selection out of
	// bounds, or on a scene without choices.
	ErrCodeInvalidChoiceIndex TraversalErrorCode = "INVALID_CHOICE_INDEX"

	// ErrCodeUnresolvedChoiceTarget indicates a choice whose target scene
	// id does not resolve within the loaded scenario.
	ErrCodeUnresolvedChoiceTarget TraversalErrorCode = "UNRESOLVED_CHOICE_TARGET"

	// ErrCodeNoHistory indicates back-navigation with an empty history.
	ErrCodeNoHistory TraversalErrorCode = "NO_HISTORY"

	// ErrCodeInvalidState indicates a restore snapshot referencing state
	// (scenario id, scene id, block index) that does not fit the loaded
	// scenario.
	ErrCodeInvalidState TraversalErrorCode = "INVALID_STATE"

	// ErrCodeTransitionInProgress indicates a choice selection during the
	// deferred-commit window of a passive scene transition.
	ErrCodeTransitionInProgress TraversalErrorCode = "TRANSITION_IN_PROGRESS"
)

// Error implements the error interface.
func (e *TraversalError) Error() string {
	switch {
	case e.SceneID != "" && e.Target != "":
		return fmt.Sprintf("%s: %s (scene=%s, target=%s)", e.Code, e.Message, e.SceneID, e.Target)
	case e.SceneID != "":
		return fmt.Sprintf("%s: %s (scene=%s)", e.Code, e.Message, e.SceneID)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

// CodeOf returns the traversal error code of err, or "" if err is not a
// TraversalError. Uses errors.As to handle wrapped errors.
func CodeOf(err error) TraversalErrorCode {
	var te *TraversalError
	if errors.As(err, &te) {
		return te.Code
	}
	return ""
}

// IsNoNextScene reports whether err is a dead-end advance failure.
func IsNoNextScene(err error) bool {
	return CodeOf(err) == ErrCodeNoNextScene
}

// IsInvalidState reports whether err is a snapshot-rejection failure.
func IsInvalidState(err error) bool {
	return CodeOf(err) == ErrCodeInvalidState
}

func errNotLoaded() *TraversalError {
	return &TraversalError{
		Code:    ErrCodeNotLoaded,
		Message: "no scenario loaded",
	}
}

func errNoNextScene(sceneID, target string) *TraversalError {
	msg := "scene declares no next scene"
	if target != "" {
		msg = "next scene not found in scenario"
	}
	return &TraversalError{
		Code:    ErrCodeNoNextScene,
		Message: msg,
		SceneID: sceneID,
		Target:  target,
	}
}

func errInvalidChoiceIndex(sceneID string, idx, count int) *TraversalError {
	return &TraversalError{
		Code:    ErrCodeInvalidChoiceIndex,
		Message: fmt.Sprintf("choice index %d out of range (scene has %d choices)", idx, count),
		SceneID: sceneID,
		Choice:  idx,
	}
}
