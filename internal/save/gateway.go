// Package save persists engine snapshots to named slots in a durable
// key-value store.
//
// All slots live under one namespaced key as a JSON object mapping slot id
// to stamped snapshot. Every save is a read-modify-write of that whole
// object, serialized per Gateway so writes within one session land in
// issue order. KNOWN LIMITATION: two sessions writing concurrently (two
// open player windows against the same database) still lose one writer's
// update non-deterministically. Acceptable for a single-player local
// backend; not safe for anything shared.
package save

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/roach88/kagami/internal/engine"
)

// Key is the namespaced KV key holding the whole slot map.
const Key = "kagami/saves"

// SlotID names a save slot: a small non-negative integer for numbered
// player slots, or one of the reserved tokens.
type SlotID string

const (
	// SlotAuto is the unattended autosave slot, written after every
	// state-changing engine operation.
	SlotAuto SlotID = "auto"

	// SlotQuick is the quicksave slot.
	SlotQuick SlotID = "quick"
)

// Slot returns the SlotID for a numbered player slot.
func Slot(n int) SlotID {
	return SlotID(strconv.Itoa(n))
}

// ParseSlot validates a slot identifier: "auto", "quick", or a
// non-negative integer.
func ParseSlot(s string) (SlotID, error) {
	switch SlotID(s) {
	case SlotAuto, SlotQuick:
		return SlotID(s), nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return "", fmt.Errorf("invalid save slot %q: want %q, %q, or a non-negative integer", s, SlotAuto, SlotQuick)
	}
	return Slot(n), nil
}

// Record is a stamped snapshot as stored in a slot.
type Record struct {
	engine.Snapshot
	SaveDate time.Time `json:"saveDate"`
}

// SlotInfo is slot metadata for save/load menus.
type SlotInfo struct {
	ID         SlotID
	ScenarioID string
	SceneID    string
	SaveDate   time.Time
}

// CorruptError reports save data that exists but cannot be decoded.
type CorruptError struct {
	Key string
	Err error
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("corrupt save data under %q: %v", e.Key, e.Err)
}

func (e *CorruptError) Unwrap() error {
	return e.Err
}

// IsCorrupt reports whether err is a corrupt-save failure.
func IsCorrupt(err error) bool {
	var ce *CorruptError
	return errors.As(err, &ce)
}

// Gateway serializes engine snapshots to and from save slots.
//
// A mutex orders every read-modify-write through one Gateway, so writes
// from the same session (autosave goroutines included) land in issue
// order and never clobber each other. The cross-process limitation in the
// package doc stands: two Gateways over the same database still race.
//
// The session's MaxSaveSlots is a UI-level soft cap; the gateway enforces
// nothing beyond slot id validity. No slot ever auto-expires.
type Gateway struct {
	kv  KV
	now func() time.Time

	mu sync.Mutex // serializes slot-map read-modify-writes
}

// GatewayOption configures a Gateway.
type GatewayOption func(*Gateway)

// WithNow overrides the save timestamp source (tests).
func WithNow(now func() time.Time) GatewayOption {
	return func(g *Gateway) { g.now = now }
}

// NewGateway creates a Gateway over the given KV backend.
func NewGateway(kv KV, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		kv:  kv,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Save stamps the snapshot with the save time and writes it to the slot.
//
// A corrupt slot map is replaced rather than failing the save: gameplay
// must continue, and the corrupt blob is unrecoverable either way. The
// replacement is logged.
func (g *Gateway) Save(ctx context.Context, slot SlotID, snap engine.Snapshot) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	slots, err := g.readAll(ctx)
	if err != nil {
		if !IsCorrupt(err) {
			return fmt.Errorf("save slot %s: %w", slot, err)
		}
		slog.Warn("replacing corrupt save data", "key", Key, "error", err)
		slots = make(map[SlotID]Record)
	}

	slots[slot] = Record{
		Snapshot: snap,
		SaveDate: g.now().UTC(),
	}

	if err := g.writeAll(ctx, slots); err != nil {
		return fmt.Errorf("save slot %s: %w", slot, err)
	}

	slog.Debug("snapshot saved", "slot", slot, "scenario", snap.ScenarioID, "scene", snap.CurrentSceneID)
	return nil
}

// Load reads the slot. ok=false (with nil error) when the slot is empty -
// an empty slot is an expected condition, not a failure. Malformed stored
// data yields *CorruptError.
func (g *Gateway) Load(ctx context.Context, slot SlotID) (Record, bool, error) {
	slots, err := g.readAll(ctx)
	if err != nil {
		return Record{}, false, fmt.Errorf("load slot %s: %w", slot, err)
	}

	rec, ok := slots[slot]
	if !ok {
		return Record{}, false, nil
	}
	return rec, true, nil
}

// Slots lists metadata for every occupied slot, reserved tokens first,
// then numbered slots in ascending order.
func (g *Gateway) Slots(ctx context.Context) ([]SlotInfo, error) {
	slots, err := g.readAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}

	infos := make([]SlotInfo, 0, len(slots))
	for id, rec := range slots {
		infos = append(infos, SlotInfo{
			ID:         id,
			ScenarioID: rec.ScenarioID,
			SceneID:    rec.CurrentSceneID,
			SaveDate:   rec.SaveDate,
		})
	}

	sort.Slice(infos, func(i, j int) bool {
		return slotRank(infos[i].ID) < slotRank(infos[j].ID)
	})
	return infos, nil
}

// Delete removes a slot. Deleting an empty slot is not an error.
func (g *Gateway) Delete(ctx context.Context, slot SlotID) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	slots, err := g.readAll(ctx)
	if err != nil {
		return fmt.Errorf("delete slot %s: %w", slot, err)
	}

	if _, ok := slots[slot]; !ok {
		return nil
	}
	delete(slots, slot)

	if err := g.writeAll(ctx, slots); err != nil {
		return fmt.Errorf("delete slot %s: %w", slot, err)
	}
	return nil
}

func (g *Gateway) readAll(ctx context.Context) (map[SlotID]Record, error) {
	data, ok, err := g.kv.Get(ctx, Key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return make(map[SlotID]Record), nil
	}

	var slots map[SlotID]Record
	if err := json.Unmarshal(data, &slots); err != nil {
		return nil, &CorruptError{Key: Key, Err: err}
	}
	if slots == nil {
		slots = make(map[SlotID]Record)
	}
	return slots, nil
}

func (g *Gateway) writeAll(ctx context.Context, slots map[SlotID]Record) error {
	data, err := json.Marshal(slots)
	if err != nil {
		return err
	}
	return g.kv.Set(ctx, Key, data)
}

// slotRank orders reserved tokens ahead of numbered slots.
func slotRank(id SlotID) int {
	switch id {
	case SlotAuto:
		return -2
	case SlotQuick:
		return -1
	default:
		n, err := strconv.Atoi(string(id))
		if err != nil {
			return 1 << 30
		}
		return n
	}
}
