// Package session orchestrates a live play session: it owns the narrative
// engine for the session lifetime, routes the unified "progress" intent,
// drives the auto-advance policy loop, autosaves after every state change,
// and pushes frames and audio cues to the presentation boundaries.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/kagami/internal/engine"
	"github.com/roach88/kagami/internal/save"
	"github.com/roach88/kagami/internal/scenario"
)

// ErrEmptySlot is returned by LoadFrom when the requested slot holds
// nothing. An empty slot is an expected condition for save/load menus.
var ErrEmptySlot = errors.New("save slot is empty")

const autosaveTimeout = 5 * time.Second

// Controller runs one play session over one engine instance.
//
// The engine is constructed by and owned by the Controller; nothing else
// holds a reference. All presentation goes through the injected
// boundaries, all persistence through the save gateway.
//
// Autosave is fire-and-forget: a state change is visible to the rendering
// boundary before its autosave write completes, and a crash in between
// loses at most that one step. Autosave failures are logged, never fatal,
// and never block gameplay.
type Controller struct {
	cfg       Config
	eng       *engine.Engine
	saves     *save.Gateway
	presenter Presenter
	audio     AudioSink
	typing    TypingController
	logger    *slog.Logger

	mu       sync.Mutex
	policy   Policy
	policyCh chan struct{} // wakes the policy loop on state changes
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithPresenter sets the rendering boundary.
func WithPresenter(p Presenter) ControllerOption {
	return func(c *Controller) { c.presenter = p }
}

// WithAudio sets the audio boundary.
func WithAudio(a AudioSink) ControllerOption {
	return func(c *Controller) { c.audio = a }
}

// WithTyping injects the rendering layer's typing capability.
func WithTyping(t TypingController) ControllerOption {
	return func(c *Controller) { c.typing = t }
}

// New creates a Controller with a fresh engine reading from store and
// persisting through gateway.
func New(store *scenario.Store, gateway *save.Gateway, cfg Config, gen TokenGenerator, engOpts []engine.Option, opts ...ControllerOption) *Controller {
	if gen == nil {
		gen = UUIDv7Generator{}
	}

	c := &Controller{
		cfg:       cfg,
		saves:     gateway,
		presenter: NopPresenter{},
		audio:     NopAudio{},
		typing:    instantTyping{},
		logger:    slog.With("session", gen.Generate()),
		policyCh:  make(chan struct{}, 1),
	}

	for _, opt := range opts {
		opt(c)
	}

	engOpts = append(engOpts, engine.WithCommitHook(c.onCommit))
	c.eng = engine.New(store, engOpts...)
	return c
}

// Engine exposes the session's engine handle for read-side consumers
// (menus, debug overlays). Mutations should go through the Controller.
func (c *Controller) Engine() *engine.Engine {
	return c.eng
}

// Config returns the session configuration.
func (c *Controller) Config() Config {
	return c.cfg
}

// Start loads the requested scenario (or the configured default) if none
// is loaded yet, and starts the auto-advance policy loop. The loop stops
// when ctx is cancelled.
func (c *Controller) Start(ctx context.Context, scenarioID string) error {
	if scenarioID == "" {
		scenarioID = c.cfg.DefaultScenario
	}

	if !c.eng.Loaded() {
		if err := c.eng.Load(ctx, scenarioID); err != nil {
			return fmt.Errorf("start session: %w", err)
		}
	}

	go c.runPolicyLoop(ctx)
	c.logger.Info("session started", "scenario", scenarioID)
	return nil
}

// Progress handles the unified progress intent (click, key, timer step):
//   - choices pending: no-op, the player must choose
//   - typing mid-render: force it to finish instead of advancing
//   - otherwise advance the text cursor; at end of blocks, advance the scene
//
// A dead-end scene reports NO_NEXT_SCENE; callers surface it as "nothing
// further happens", not a crash.
func (c *Controller) Progress(ctx context.Context) error {
	if c.eng.ChoicesPending() {
		return nil
	}

	if !c.typing.IsComplete() {
		c.typing.ForceComplete()
		return nil
	}

	block, ok, err := c.eng.NextTextBlock()
	if err != nil {
		return err
	}
	if ok {
		// Text-block advances are not scene commits, so the commit hook
		// does not fire; present and autosave here.
		if block.SFX != "" {
			c.audio.PlaySFX(block.SFX)
		}
		c.presenter.Present(c.frame())
		c.autosaveAsync()
		return nil
	}

	status, err := c.eng.Advance(ctx)
	if err != nil {
		if engine.IsNoNextScene(err) {
			c.logger.Debug("scene is a dead end", "error", err)
		}
		return err
	}

	if status == engine.AdvanceDeferred {
		// The commit lands after the transition; show the in-transition
		// frame now so the renderer can animate.
		c.presenter.Present(c.frame())
	}
	return nil
}

// SelectChoice applies the indexed choice. Presentation and autosave ride
// the engine's commit hook.
func (c *Controller) SelectChoice(idx int) error {
	return c.eng.SelectChoice(idx)
}

// Back navigates to the previously visited scene.
func (c *Controller) Back() error {
	return c.eng.Back()
}

// SetPolicy switches the auto-advance policy. Engaging auto disengages
// skip and vice versa - there is only one policy slot.
func (c *Controller) SetPolicy(p Policy) {
	c.mu.Lock()
	old := c.policy
	c.policy = p
	c.mu.Unlock()

	if old != p {
		c.logger.Info("advance policy changed", "from", old.String(), "to", p.String())
		select {
		case c.policyCh <- struct{}{}:
		default:
		}
	}
}

// Policy returns the current auto-advance policy.
func (c *Controller) Policy() Policy {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.policy
}

// SaveTo writes the current state to a slot. Manual saves bypass the
// policy loop entirely and report failures to the caller, unlike autosave.
func (c *Controller) SaveTo(ctx context.Context, slot save.SlotID) error {
	snap, err := c.eng.Snapshot()
	if err != nil {
		return err
	}
	return c.saves.Save(ctx, slot, snap)
}

// LoadFrom restores state from a slot, re-loading the snapshot's scenario
// first when it differs from the loaded one. Returns ErrEmptySlot when
// the slot holds nothing.
func (c *Controller) LoadFrom(ctx context.Context, slot save.SlotID) error {
	rec, ok, err := c.saves.Load(ctx, slot)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("slot %s: %w", slot, ErrEmptySlot)
	}

	if c.eng.State().ScenarioID != rec.ScenarioID || !c.eng.Loaded() {
		if err := c.eng.Load(ctx, rec.ScenarioID); err != nil {
			return err
		}
	}
	return c.eng.Restore(rec.Snapshot)
}

// QuickSave writes the current state to the quicksave slot.
func (c *Controller) QuickSave(ctx context.Context) error {
	return c.SaveTo(ctx, save.SlotQuick)
}

// QuickLoad restores the quicksave slot.
func (c *Controller) QuickLoad(ctx context.Context) error {
	return c.LoadFrom(ctx, save.SlotQuick)
}

// onCommit is the engine's commit hook: on every committed scene change it
// pushes a frame, emits the scene's audio cues, and autosaves.
func (c *Controller) onCommit(engine.State) {
	if scene, ok := c.eng.CurrentScene(); ok {
		if scene.BGM != nil {
			c.audio.PlayBGM(*scene.BGM)
		}
		if scene.SFX != "" {
			c.audio.PlaySFX(scene.SFX)
		}
		if len(scene.TextBlocks) > 0 && scene.TextBlocks[0].SFX != "" {
			c.audio.PlaySFX(scene.TextBlocks[0].SFX)
		}
	}

	c.presenter.Present(c.frame())
	c.autosaveAsync()
}

// frame builds the rendering projection from current engine state.
func (c *Controller) frame() Frame {
	st := c.eng.State()
	f := Frame{
		ScenarioID:   st.ScenarioID,
		SceneID:      st.SceneID,
		BlockIndex:   st.BlockIndex,
		InTransition: st.InTransition,
	}

	scene, ok := c.eng.CurrentScene()
	if !ok {
		return f
	}

	f.Background = scene.Background
	f.Characters = scene.Characters
	f.BlockCount = len(scene.TextBlocks)

	if block, ok := c.eng.CurrentBlock(); ok {
		f.Speaker = block.Speaker
		f.Text = block.Text
	}

	for _, choice := range scene.Choices {
		f.Choices = append(f.Choices, choice.Text)
	}

	if tr, ok := c.eng.PendingTransition(); ok {
		f.Transition = &tr
	}
	return f
}

// autosaveAsync writes the auto slot without blocking the caller.
// Failures are logged and swallowed; gameplay continues uninterrupted.
func (c *Controller) autosaveAsync() {
	snap, err := c.eng.Snapshot()
	if err != nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), autosaveTimeout)
		defer cancel()
		if err := c.saves.Save(ctx, save.SlotAuto, snap); err != nil {
			c.logger.Warn("autosave failed", "error", err)
		}
	}()
}

// runPolicyLoop is the single timer loop behind auto-play and skip.
//
// One loop, one timer: the policy state decides the interval, and a policy
// change wakes the loop immediately so stale intervals never fire.
func (c *Controller) runPolicyLoop(ctx context.Context) {
	for {
		delay := c.Policy().delay(c.cfg)

		if delay == 0 {
			select {
			case <-ctx.Done():
				return
			case <-c.policyCh:
			}
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-c.policyCh:
			continue
		case <-time.After(delay):
		}

		if !c.stepAllowed() {
			continue
		}
		if err := c.Progress(ctx); err != nil {
			c.logger.Debug("auto-advance step failed", "error", err)
			// A dead end means there is nothing left to advance to;
			// stop burning the timer.
			if engine.IsNoNextScene(err) {
				c.SetPolicy(PolicyOff)
			}
		}
	}
}

// stepAllowed is the auto-advance guard: never step while a transition is
// committing or choices are pending.
func (c *Controller) stepAllowed() bool {
	return c.eng.Loaded() && !c.eng.InTransition() && !c.eng.ChoicesPending()
}
