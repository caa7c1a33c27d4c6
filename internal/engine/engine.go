package engine

import (
	"context"
	"log/slog"
	"sync"

	"github.com/roach88/kagami/internal/effect"
	"github.com/roach88/kagami/internal/scenario"
)

// AdvanceStatus reports the outcome of a passive scene advance.
type AdvanceStatus int

const (
	// AdvanceBlocked means the advance was refused: choices are pending
	// (the player must choose) or a transition commit is still deferred.
	AdvanceBlocked AdvanceStatus = iota

	// AdvanceCommitted means the next scene is current now.
	AdvanceCommitted

	// AdvanceDeferred means a visual transition applies: the in-transition
	// flag is set and the commit lands after the transition duration.
	AdvanceDeferred
)

func (s AdvanceStatus) String() string {
	switch s {
	case AdvanceBlocked:
		return "blocked"
	case AdvanceCommitted:
		return "committed"
	case AdvanceDeferred:
		return "deferred"
	default:
		return "unknown"
	}
}

// CommitFunc is invoked (outside the engine lock) after every committed
// scene change: initial load, passive advance, choice selection, back
// navigation, restore, and deferred transition commits. The session
// controller hangs presentation and autosave off this hook.
type CommitFunc func(State)

// Option configures an Engine.
type Option func(*Engine)

// WithScheduler overrides the transition-commit scheduler (tests).
func WithScheduler(s Scheduler) Option {
	return func(e *Engine) { e.sched = s }
}

// WithCommitHook registers the scene-commit hook.
func WithCommitHook(fn CommitFunc) Option {
	return func(e *Engine) { e.commitFn = fn }
}

// pendingCommit is a scene commit deferred behind a transition timer.
// Identity matters: the timer callback only commits if its pendingCommit
// is still the engine's current one, so a Load/Restore that supersedes it
// can never be clobbered by a stale timer.
type pendingCommit struct {
	scene      *scenario.Scene
	transition scenario.Transition
	stop       func() bool
}

// Engine is the narrative traversal state machine: one loaded scenario,
// one current scene, a text-block cursor, variables/flags, and a visit
// history for back-navigation.
//
// The engine is owned by exactly one play session. It is constructed at
// session start and passed by handle to its consumers; there is no ambient
// shared instance.
//
// Thread-safety model:
//   - All operations are safe for concurrent use (internal mutex), but the
//     engine is intended for a single active session: operations issued by
//     that session are observed in call order.
//   - Load (and a cross-scenario advance) suspends on the document fetch;
//     a second Load while one is in flight is rejected, not interleaved.
//   - A deferred transition commit runs on a scheduler goroutine and takes
//     the same lock; the in-transition flag rejects re-entrant Advance and
//     SelectChoice during the window, which also guards double-commit.
//
// KNOWN GAP (preserved from the original design): Back, Snapshot, and
// Restore are not blocked during the transition window. A Back during the
// window is overwritten when the pending commit lands.
type Engine struct {
	store    *scenario.Store
	sched    Scheduler
	commitFn CommitFunc

	mu      sync.Mutex
	scn     *scenario.Scenario
	cur     *scenario.Scene
	state   State
	loading bool
	pending *pendingCommit
}

// New creates an unloaded Engine reading scenarios through the given store.
func New(store *scenario.Store, opts ...Option) *Engine {
	e := &Engine{
		store: store,
		sched: SystemScheduler{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Load fetches a scenario and resets traversal to its first scene with
// empty variables, flags, and history.
//
// Fails with the propagated *scenario.LoadError, or EMPTY_SCENE_LIST for a
// scenario without scenes. On failure the engine keeps its previous state
// untouched (stays unloaded if it was unloaded).
func (e *Engine) Load(ctx context.Context, id string) error {
	e.mu.Lock()
	if e.loading {
		e.mu.Unlock()
		return &TraversalError{Code: ErrCodeLoadInFlight, Message: "scenario load already in flight"}
	}
	e.loading = true
	e.mu.Unlock()

	scn, err := e.store.Load(ctx, id)

	e.mu.Lock()
	e.loading = false
	if err != nil {
		e.mu.Unlock()
		return err
	}

	first, ok := scn.FirstScene()
	if !ok {
		e.mu.Unlock()
		return &TraversalError{Code: ErrCodeEmptySceneList, Message: "scenario has no scenes", Target: id}
	}

	e.cancelPendingLocked()
	e.scn = scn
	e.cur = first
	e.state = State{
		ScenarioID: id,
		SceneID:    first.ID,
		Variables:  make(map[string]float64),
		Flags:      make(map[string]bool),
		History:    []string{},
	}
	st := e.state.clone()
	e.mu.Unlock()

	slog.Info("scenario loaded", "scenario", id, "scene", first.ID)
	e.notifyCommit(st)
	return nil
}

// NextTextBlock advances the text-block cursor within the current scene
// and returns the new block.
//
// ok=false signals EndOfBlocks: the cursor is already on the last block
// (or the scene has no blocks at all) and the caller should advance the
// scene instead. EndOfBlocks is not an error; the cursor never walks past
// the end and never decreases except via Back.
func (e *Engine) NextTextBlock() (scenario.TextBlock, bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cur == nil {
		return scenario.TextBlock{}, false, errNotLoaded()
	}

	blocks := e.cur.TextBlocks
	if e.state.BlockIndex+1 >= len(blocks) {
		return scenario.TextBlock{}, false, nil
	}

	e.state.BlockIndex++
	return blocks[e.state.BlockIndex], true, nil
}

// Advance resolves the current scene's `next` and commits it.
//
// Refused (AdvanceBlocked, nil error) while choices are pending or a
// transition commit is deferred. Fails with NO_NEXT_SCENE when `next` is
// unset or unresolved.
//
// Transition policy: when the target's background differs from the current
// one, the target's transition descriptor (default fade/800ms/ease-in-out)
// applies and the commit is deferred for its duration (AdvanceDeferred);
// otherwise the commit is immediate. An explicit `none` or zero-duration
// descriptor also commits immediately.
//
// When `next` names another scenario document, the jump loads that
// scenario and commits its first scene immediately, carrying variables,
// flags, and history across; ctx covers that fetch.
func (e *Engine) Advance(ctx context.Context) (AdvanceStatus, error) {
	e.mu.Lock()

	if e.cur == nil {
		e.mu.Unlock()
		return AdvanceBlocked, errNotLoaded()
	}
	if len(e.cur.Choices) > 0 || e.state.InTransition {
		e.mu.Unlock()
		return AdvanceBlocked, nil
	}

	next := e.cur.Next
	if next == "" {
		sceneID := e.cur.ID
		e.mu.Unlock()
		return AdvanceBlocked, errNoNextScene(sceneID, "")
	}

	if chainID, ok := scenario.ScenarioRef(next); ok {
		return e.advanceScenarioLocked(ctx, chainID)
	}

	target, ok := e.scn.Scene(next)
	if !ok {
		sceneID := e.cur.ID
		e.mu.Unlock()
		return AdvanceBlocked, errNoNextScene(sceneID, next)
	}

	if tr, animate := transitionFor(e.cur, target); animate {
		p := &pendingCommit{scene: target, transition: tr}
		e.pending = p
		e.state.InTransition = true
		from := e.state.SceneID
		p.stop = e.sched.AfterFunc(tr.Duration(), func() { e.commitPending(p) })
		e.mu.Unlock()

		slog.Debug("scene transition started",
			"from", from,
			"to", target.ID,
			"type", tr.Type,
			"duration_ms", tr.DurationMS,
		)
		return AdvanceDeferred, nil
	}

	e.commitLocked(target)
	st := e.state.clone()
	e.mu.Unlock()

	e.notifyCommit(st)
	return AdvanceCommitted, nil
}

// advanceScenarioLocked handles a cross-scenario jump. Called with the
// lock held; the lock is dropped around the fetch and the engine is
// flagged loading so no second load interleaves.
func (e *Engine) advanceScenarioLocked(ctx context.Context, chainID string) (AdvanceStatus, error) {
	if e.loading {
		e.mu.Unlock()
		return AdvanceBlocked, &TraversalError{Code: ErrCodeLoadInFlight, Message: "scenario load already in flight"}
	}
	e.loading = true
	e.mu.Unlock()

	scn, err := e.store.Load(ctx, chainID)

	e.mu.Lock()
	e.loading = false
	if err != nil {
		e.mu.Unlock()
		return AdvanceBlocked, err
	}

	first, ok := scn.FirstScene()
	if !ok {
		e.mu.Unlock()
		return AdvanceBlocked, &TraversalError{Code: ErrCodeEmptySceneList, Message: "scenario has no scenes", Target: chainID}
	}

	// Cross-scenario jumps commit immediately: the document fetch already
	// breaks visual continuity, so no transition is layered on top.
	// Variables, flags, and history carry over.
	e.scn = scn
	e.state.ScenarioID = chainID
	e.commitLocked(first)
	st := e.state.clone()
	e.mu.Unlock()

	slog.Info("scenario chained", "scenario", chainID, "scene", first.ID)
	e.notifyCommit(st)
	return AdvanceCommitted, nil
}

// SelectChoice applies the indexed choice's effects and commits its target
// scene.
//
// The commit is synchronous even across a background change: choices are
// deliberate player actions and should feel immediate; only passive
// advancement gets cross-fades. That asymmetry is intentional.
//
// Effects apply atomically into fresh maps and commit only together with
// the scene change; a failed selection leaves the engine untouched.
func (e *Engine) SelectChoice(idx int) error {
	e.mu.Lock()

	if e.cur == nil {
		e.mu.Unlock()
		return errNotLoaded()
	}
	if e.state.InTransition {
		sceneID := e.cur.ID
		e.mu.Unlock()
		return &TraversalError{
			Code:    ErrCodeTransitionInProgress,
			Message: "cannot select a choice during a scene transition",
			SceneID: sceneID,
		}
	}
	if idx < 0 || idx >= len(e.cur.Choices) {
		err := errInvalidChoiceIndex(e.cur.ID, idx, len(e.cur.Choices))
		e.mu.Unlock()
		return err
	}

	choice := e.cur.Choices[idx]

	target, ok := e.scn.Scene(choice.Next)
	if !ok {
		err := &TraversalError{
			Code:    ErrCodeUnresolvedChoiceTarget,
			Message: "choice target not found in scenario",
			SceneID: e.cur.ID,
			Target:  choice.Next,
			Choice:  idx,
		}
		e.mu.Unlock()
		return err
	}

	vars, flags, err := effect.Apply(choice.Effects, e.state.Variables, e.state.Flags)
	if err != nil {
		e.mu.Unlock()
		return err
	}

	e.state.Variables = vars
	e.state.Flags = flags
	e.commitLocked(target)
	st := e.state.clone()
	e.mu.Unlock()

	slog.Debug("choice selected", "scene", st.SceneID, "choice", idx)
	e.notifyCommit(st)
	return nil
}

// Back pops the most recent history entry and makes it current with the
// text-block cursor reset.
//
// Variables and flags are NOT rolled back: narrative effects are treated
// as real-world consequences, history affects position only.
func (e *Engine) Back() error {
	e.mu.Lock()

	if e.cur == nil {
		e.mu.Unlock()
		return errNotLoaded()
	}
	if len(e.state.History) == 0 {
		e.mu.Unlock()
		return &TraversalError{Code: ErrCodeNoHistory, Message: "no history to go back to"}
	}

	last := e.state.History[len(e.state.History)-1]
	scene, ok := e.scn.Scene(last)
	if !ok {
		// History entries for the loaded scenario always resolve; a miss
		// means the history belongs to a different document revision.
		err := &TraversalError{Code: ErrCodeInvalidState, Message: "history entry not found in scenario", Target: last}
		e.mu.Unlock()
		return err
	}

	e.state.History = e.state.History[:len(e.state.History)-1]
	e.cur = scene
	e.state.SceneID = scene.ID
	e.state.BlockIndex = 0
	st := e.state.clone()
	e.mu.Unlock()

	e.notifyCommit(st)
	return nil
}

// Snapshot returns the serializable traversal state for persistence.
func (e *Engine) Snapshot() (Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cur == nil {
		return Snapshot{}, errNotLoaded()
	}
	return e.state.snapshot(), nil
}

// Restore replaces the traversal state from a snapshot, full fidelity.
//
// The snapshot must fit the currently loaded scenario: a mismatched
// scenario id, an unresolvable scene id, or an out-of-range text-block
// index is rejected with INVALID_STATE and nothing changes. A pending
// transition commit is cancelled; the restored state is never clobbered
// by a stale timer.
func (e *Engine) Restore(snap Snapshot) error {
	e.mu.Lock()

	if e.scn == nil {
		e.mu.Unlock()
		return errNotLoaded()
	}
	if snap.ScenarioID != e.state.ScenarioID {
		err := &TraversalError{
			Code:    ErrCodeInvalidState,
			Message: "snapshot belongs to a different scenario",
			Target:  snap.ScenarioID,
		}
		e.mu.Unlock()
		return err
	}

	scene, ok := e.scn.Scene(snap.CurrentSceneID)
	if !ok {
		err := &TraversalError{
			Code:    ErrCodeInvalidState,
			Message: "snapshot scene not found in scenario",
			Target:  snap.CurrentSceneID,
		}
		e.mu.Unlock()
		return err
	}
	if snap.TextBlockIndex < 0 || snap.TextBlockIndex > len(scene.TextBlocks) {
		err := &TraversalError{
			Code:    ErrCodeInvalidState,
			Message: "snapshot text-block index out of range",
			SceneID: scene.ID,
		}
		e.mu.Unlock()
		return err
	}

	e.cancelPendingLocked()
	e.cur = scene

	vars := make(map[string]float64, len(snap.Variables))
	for k, v := range snap.Variables {
		vars[k] = v
	}
	flags := make(map[string]bool, len(snap.Flags))
	for k, v := range snap.Flags {
		flags[k] = v
	}

	e.state = State{
		ScenarioID: snap.ScenarioID,
		SceneID:    scene.ID,
		BlockIndex: snap.TextBlockIndex,
		Variables:  vars,
		Flags:      flags,
		History:    append([]string(nil), snap.History...),
	}
	st := e.state.clone()
	e.mu.Unlock()

	slog.Info("state restored", "scenario", st.ScenarioID, "scene", st.SceneID)
	e.notifyCommit(st)
	return nil
}

// Loaded reports whether a scenario is loaded (Ready vs Unloaded).
func (e *Engine) Loaded() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cur != nil
}

// CurrentScene returns the current scene. The pointer shares scenario
// storage and must be treated as read-only.
func (e *Engine) CurrentScene() (*scenario.Scene, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cur == nil {
		return nil, false
	}
	return e.cur, true
}

// CurrentBlock returns the text block under the cursor, if any.
func (e *Engine) CurrentBlock() (scenario.TextBlock, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cur == nil || e.state.BlockIndex >= len(e.cur.TextBlocks) {
		return scenario.TextBlock{}, false
	}
	return e.cur.TextBlocks[e.state.BlockIndex], true
}

// ChoicesPending reports whether the current scene requires a choice.
func (e *Engine) ChoicesPending() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cur != nil && len(e.cur.Choices) > 0
}

// InTransition reports whether a deferred scene commit is outstanding.
func (e *Engine) InTransition() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.InTransition
}

// PendingTransition returns the descriptor of the transition currently in
// progress, if any.
func (e *Engine) PendingTransition() (scenario.Transition, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.pending == nil {
		return scenario.Transition{}, false
	}
	return e.pending.transition, true
}

// State returns a copy of the full traversal state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.clone()
}

// commitLocked commits a scene change: pushes the departing scene onto
// history, makes target current, resets the cursor, clears the transition
// flag. Exactly one history entry per committed transition.
func (e *Engine) commitLocked(target *scenario.Scene) {
	e.state.History = append(e.state.History, e.cur.ID)
	e.cur = target
	e.state.SceneID = target.ID
	e.state.BlockIndex = 0
	e.state.InTransition = false
	e.pending = nil
}

// commitPending lands a deferred transition commit. No-op when p has been
// superseded by a Load or Restore in the meantime.
func (e *Engine) commitPending(p *pendingCommit) {
	e.mu.Lock()
	if e.pending != p {
		e.mu.Unlock()
		return
	}
	e.commitLocked(p.scene)
	st := e.state.clone()
	e.mu.Unlock()

	slog.Debug("scene transition committed", "scene", st.SceneID)
	e.notifyCommit(st)
}

// cancelPendingLocked stops an outstanding transition timer and clears the
// in-transition flag. Called with the lock held.
func (e *Engine) cancelPendingLocked() {
	if e.pending == nil {
		return
	}
	if e.pending.stop != nil {
		e.pending.stop()
	}
	e.pending = nil
	e.state.InTransition = false
}

// notifyCommit invokes the commit hook outside the engine lock.
func (e *Engine) notifyCommit(st State) {
	if e.commitFn != nil {
		e.commitFn(st)
	}
}

// transitionFor decides whether a passive advance animates, and with what.
//
// Policy: animate only when the target background differs from the
// current one (visual continuity heuristic); use the target's descriptor
// when present, the default fade otherwise. Explicit `none` and
// zero-duration descriptors are immediate.
func transitionFor(cur, target *scenario.Scene) (scenario.Transition, bool) {
	if cur.Background == target.Background {
		return scenario.Transition{}, false
	}

	tr := scenario.DefaultTransition
	if target.Transition != nil {
		tr = *target.Transition
	}
	if tr.Type == scenario.TransitionNone || tr.DurationMS <= 0 {
		return scenario.Transition{}, false
	}
	return tr, true
}
