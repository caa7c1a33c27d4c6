package engine

// State is the mutable, engine-owned traversal state. Copies returned by
// the engine are snapshots; mutating them has no effect on the engine.
//
// INVARIANTS:
//   - SceneID always resolves within the loaded scenario (or the engine
//     is unloaded and State is meaningless).
//   - BlockIndex is within [0, len(textBlocks)]; == len means "scene
//     exhausted, awaiting scene advance" (only reachable on scenes with
//     zero text blocks; NextTextBlock never walks past the last block).
//   - History grows by exactly one entry per committed scene transition
//     and is popped only by explicit back-navigation.
type State struct {
	ScenarioID   string
	SceneID      string
	BlockIndex   int
	Variables    map[string]float64
	Flags        map[string]bool
	History      []string
	InTransition bool
}

// clone deep-copies the state so callers can't reach into engine-owned maps.
func (s State) clone() State {
	out := s
	out.Variables = make(map[string]float64, len(s.Variables))
	for k, v := range s.Variables {
		out.Variables[k] = v
	}
	out.Flags = make(map[string]bool, len(s.Flags))
	for k, v := range s.Flags {
		out.Flags[k] = v
	}
	out.History = append([]string(nil), s.History...)
	return out
}

// Snapshot is the serializable subset of State persisted to a save slot.
// The field set is stable; the persistence gateway adds saveDate on write.
type Snapshot struct {
	ScenarioID     string             `json:"scenarioId"`
	CurrentSceneID string             `json:"currentSceneId"`
	TextBlockIndex int                `json:"textBlockIndex"`
	Variables      map[string]float64 `json:"variables"`
	Flags          map[string]bool    `json:"flags"`
	History        []string           `json:"history"`
}

func (s State) snapshot() Snapshot {
	c := s.clone()
	return Snapshot{
		ScenarioID:     c.ScenarioID,
		CurrentSceneID: c.SceneID,
		TextBlockIndex: c.BlockIndex,
		Variables:      c.Variables,
		Flags:          c.Flags,
		History:        c.History,
	}
}
