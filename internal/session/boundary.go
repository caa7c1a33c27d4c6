package session

import "github.com/roach88/kagami/internal/scenario"

// Frame is the read-only projection pushed to the rendering layer on every
// committed state change.
type Frame struct {
	ScenarioID string
	SceneID    string

	Background string
	Characters []scenario.Character

	Speaker    string
	Text       string
	BlockIndex int
	BlockCount int

	// Choices holds the display text of pending choices, in order.
	// Non-empty means progress is parked until SelectChoice.
	Choices []string

	InTransition bool
	Transition   *scenario.Transition
}

// Presenter is the rendering boundary. Present must not block gameplay;
// a slow renderer should buffer internally.
type Presenter interface {
	Present(Frame)
}

// AudioSink receives audio cues. One BGM instruction per scene commit,
// one-shot SFX per scene or text block. The session never blocks on
// audio readiness.
type AudioSink interface {
	PlayBGM(scenario.BGM)
	PlaySFX(name string)
}

// TypingController is the capability the rendering layer hands the session
// for the text-typing effect: progress on a mid-render block forces the
// render to finish instead of advancing.
type TypingController interface {
	IsComplete() bool
	ForceComplete()
}

// NopPresenter discards frames.
type NopPresenter struct{}

func (NopPresenter) Present(Frame) {}

// NopAudio discards audio cues.
type NopAudio struct{}

func (NopAudio) PlayBGM(scenario.BGM) {}
func (NopAudio) PlaySFX(string)       {}

// instantTyping is the default TypingController: no typing effect, every
// block is complete the moment it is presented.
type instantTyping struct{}

func (instantTyping) IsComplete() bool { return true }
func (instantTyping) ForceComplete()  {}
