package playtest

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/kagami/internal/assets"
	"github.com/roach88/kagami/internal/engine"
	"github.com/roach88/kagami/internal/save"
	"github.com/roach88/kagami/internal/scenario"
	"github.com/roach88/kagami/internal/testutil"
)

// TraceEvent records one executed step and the engine state it left behind.
type TraceEvent struct {
	Seq      int    `json:"seq"`
	Op       string `json:"op"`
	Status   string `json:"status"`
	Scenario string `json:"scenario"`
	Scene    string `json:"scene"`
	Block    int    `json:"block"`
	Choice   int    `json:"choice,omitempty"`
	Slot     string `json:"slot,omitempty"`
}

// Result is the outcome of a playtest script execution.
type Result struct {
	// Pass indicates overall success.
	// True if every step executed and all assertions match.
	Pass bool `json:"pass"`

	// Trace contains one event per executed step, in order.
	// Used for golden comparison.
	Trace []TraceEvent `json:"trace"`

	// Errors contains step and assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// fixedSaveTime keeps save timestamps identical across runs so that save
// slots never introduce nondeterminism into a script.
var fixedSaveTime = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// Run executes a playtest script against a fresh engine and returns the
// result.
//
// Each script runs with its own scenario store, a captured scheduler, and
// an in-memory save store for isolation. Deferred scene transitions are
// committed immediately after the step that scheduled them, so traces are
// reproducible without wall-clock timing.
func Run(ctx context.Context, script *Script) (*Result, error) {
	store := scenario.NewStore(assets.NewDir(script.Assets))
	sched := testutil.NewFakeScheduler()
	eng := engine.New(store, engine.WithScheduler(sched))
	gw := save.NewGateway(save.NewMemoryKV(), save.WithNow(func() time.Time {
		return fixedSaveTime
	}))

	if err := eng.Load(ctx, script.Scenario); err != nil {
		return nil, fmt.Errorf("failed to load scenario %q: %w", script.Scenario, err)
	}

	result := NewResult()
	for i, step := range script.Steps {
		status, err := runStep(ctx, eng, gw, sched, step)
		if err != nil {
			result.AddError(fmt.Sprintf("steps[%d] %s: %v", i, step.Op, err))
			break
		}
		result.Trace = append(result.Trace, traceEvent(eng, i, step, status))
	}

	if result.Pass {
		evalAssertions(script, eng, result)
	}

	return result, nil
}

// runStep executes one step and reports a status word for the trace.
func runStep(ctx context.Context, eng *engine.Engine, gw *save.Gateway, sched *testutil.FakeScheduler, step Step) (string, error) {
	switch step.Op {
	case OpProgress:
		if eng.ChoicesPending() {
			return "blocked", nil
		}
		if _, ok, err := eng.NextTextBlock(); err != nil {
			return "", err
		} else if ok {
			return "text", nil
		}
		st, err := eng.Advance(ctx)
		if err != nil {
			return "", err
		}
		if st == engine.AdvanceDeferred {
			// Commit the pending transition now; scripts have no wall clock.
			sched.Fire()
		}
		return st.String(), nil

	case OpChoose:
		if err := eng.SelectChoice(step.Choice); err != nil {
			return "", err
		}
		return "chosen", nil

	case OpBack:
		if err := eng.Back(); err != nil {
			return "", err
		}
		return "back", nil

	case OpSave:
		slot, err := save.ParseSlot(step.Slot)
		if err != nil {
			return "", err
		}
		snap, err := eng.Snapshot()
		if err != nil {
			return "", err
		}
		if err := gw.Save(ctx, slot, snap); err != nil {
			return "", err
		}
		return "saved", nil

	case OpLoad:
		slot, err := save.ParseSlot(step.Slot)
		if err != nil {
			return "", err
		}
		rec, ok, err := gw.Load(ctx, slot)
		if err != nil {
			return "", err
		}
		if !ok {
			return "", fmt.Errorf("slot %s is empty", slot)
		}
		if err := eng.Restore(rec.Snapshot); err != nil {
			return "", err
		}
		return "loaded", nil

	default:
		return "", fmt.Errorf("unknown op %q", step.Op)
	}
}

// traceEvent captures the engine state left behind by a step.
func traceEvent(eng *engine.Engine, seq int, step Step, status string) TraceEvent {
	st := eng.State()
	ev := TraceEvent{
		Seq:      seq,
		Op:       step.Op,
		Status:   status,
		Scenario: st.ScenarioID,
		Scene:    st.SceneID,
		Block:    st.BlockIndex,
	}
	if step.Op == OpChoose {
		ev.Choice = step.Choice
	}
	if step.Op == OpSave || step.Op == OpLoad {
		ev.Slot = step.Slot
	}
	return ev
}

// evalAssertions checks every assertion against the final engine state.
func evalAssertions(script *Script, eng *engine.Engine, result *Result) {
	st := eng.State()
	for i, a := range script.Assertions {
		switch a.Type {
		case AssertScene:
			if st.SceneID != a.Scene {
				result.AddError(fmt.Sprintf("assertions[%d]: expected scene %q, got %q", i, a.Scene, st.SceneID))
			}
		case AssertBlock:
			if st.BlockIndex != a.Block {
				result.AddError(fmt.Sprintf("assertions[%d]: expected block %d, got %d", i, a.Block, st.BlockIndex))
			}
		case AssertFlag:
			want, ok := a.Value.(bool)
			if !ok {
				result.AddError(fmt.Sprintf("assertions[%d]: flag value must be a boolean", i))
				continue
			}
			if got := st.Flags[a.Name]; got != want {
				result.AddError(fmt.Sprintf("assertions[%d]: expected flag %q = %v, got %v", i, a.Name, want, got))
			}
		case AssertVariable:
			want, ok := toFloat(a.Value)
			if !ok {
				result.AddError(fmt.Sprintf("assertions[%d]: variable value must be a number", i))
				continue
			}
			if got := st.Variables[a.Name]; got != want {
				result.AddError(fmt.Sprintf("assertions[%d]: expected variable %q = %v, got %v", i, a.Name, want, got))
			}
		case AssertHistory:
			if got := len(st.History); got != a.Depth {
				result.AddError(fmt.Sprintf("assertions[%d]: expected history depth %d, got %d", i, a.Depth, got))
			}
		}
	}
}

// toFloat widens the numeric types YAML produces for assertion values.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
