package scenario

import "time"

// Scenario is a complete branching story graph. Immutable once loaded;
// the store caches one instance per id and shares it read-only with the
// engine.
type Scenario struct {
	ID     string
	Title  string
	Scenes []Scene
}

// Scene is one node in the scenario graph: a unit of background, characters,
// audio, text blocks, and either choices or a linear `next` pointer.
//
// INVARIANT: a scene with one or more choices never advances via Next;
// choices are the only path onward. The engine enforces this.
type Scene struct {
	ID         string
	Background string
	BGM        *BGM
	SFX        string
	Characters []Character
	TextBlocks []TextBlock
	Choices    []Choice
	Next       string
	Transition *Transition
}

// Position places a character on screen.
type Position string

const (
	PositionLeft   Position = "left"
	PositionCenter Position = "center"
	PositionRight  Position = "right"
)

// Character is an on-screen character placement within a scene.
type Character struct {
	Name       string
	Position   Position
	Expression string
}

// TextBlock is one line (or paragraph) of dialogue or narration, advanced
// individually. Speaker is empty for narration. Text may embed literal
// line breaks.
type TextBlock struct {
	Speaker    string
	Text       string
	Expression string // per-block expression override
	SFX        string // per-block one-shot effect
}

// Choice is a player-facing branch option. Effects apply atomically, in
// order, before the target scene becomes current.
type Choice struct {
	Text    string
	Next    string
	Effects []Effect
}

// Effect is a declarative state mutation applied on taking a choice.
//
// The variant set is closed: SetVariable and SetFlag. Anything else in a
// document is rejected at load time, never discovered mid-traversal.
type Effect interface {
	effect()
}

// SetVariable overwrites a numeric variable.
type SetVariable struct {
	Name  string
	Value float64
}

// SetFlag overwrites a boolean flag.
type SetFlag struct {
	Name  string
	Value bool
}

func (SetVariable) effect() {}
func (SetFlag) effect()     {}

// BGM is a background-music instruction delivered once per scene commit.
// Exactly one of Track, Stop, or Continue is meaningful. A nil *BGM on a
// scene means "no instruction" - the audio layer is left alone.
type BGM struct {
	Track    string
	Stop     bool
	Continue bool

	// Optional playback hints for track instructions.
	Volume *float64
	FadeIn *float64
	Loop   *bool
}

// TransitionType enumerates the visual transition kinds.
type TransitionType string

const (
	TransitionFade  TransitionType = "fade"
	TransitionWipe  TransitionType = "wipe"
	TransitionFlash TransitionType = "flash"
	TransitionNone  TransitionType = "none"
)

// Transition describes a visual scene transition. DurationMS is in
// milliseconds, matching the document format.
type Transition struct {
	Type       TransitionType
	DurationMS int
	Easing     string
}

// Duration returns the transition length as a time.Duration.
func (t Transition) Duration() time.Duration {
	return time.Duration(t.DurationMS) * time.Millisecond
}

// DefaultTransition is applied when a passive scene advance crosses a
// background change and the target scene declares no transition of its own.
var DefaultTransition = Transition{
	Type:       TransitionFade,
	DurationMS: 800,
	Easing:     "ease-in-out",
}
