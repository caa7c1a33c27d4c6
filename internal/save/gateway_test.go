package save

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/kagami/internal/engine"
)

var testTime = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

func newTestGateway() *Gateway {
	return NewGateway(NewMemoryKV(), WithNow(func() time.Time { return testTime }))
}

func testSnapshot(scene string) engine.Snapshot {
	return engine.Snapshot{
		ScenarioID:     "prologue",
		CurrentSceneID: scene,
		TextBlockIndex: 1,
		Variables:      map[string]float64{"trust": 5},
		Flags:          map[string]bool{"stayed": true},
		History:        []string{"intro"},
	}
}

func TestGateway_SaveLoadRoundTrip(t *testing.T) {
	g := newTestGateway()
	ctx := context.Background()

	require.NoError(t, g.Save(ctx, Slot(1), testSnapshot("meeting")))

	rec, ok, err := g.Load(ctx, Slot(1))
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, testSnapshot("meeting"), rec.Snapshot)
	assert.Equal(t, testTime, rec.SaveDate)
}

func TestGateway_EmptySlot(t *testing.T) {
	g := newTestGateway()

	_, ok, err := g.Load(context.Background(), Slot(3))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGateway_OverwriteStampsNewDate(t *testing.T) {
	now := testTime
	g := NewGateway(NewMemoryKV(), WithNow(func() time.Time { return now }))
	ctx := context.Background()

	require.NoError(t, g.Save(ctx, SlotQuick, testSnapshot("meeting")))

	now = testTime.Add(time.Hour)
	require.NoError(t, g.Save(ctx, SlotQuick, testSnapshot("stay")))

	rec, ok, err := g.Load(ctx, SlotQuick)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "stay", rec.CurrentSceneID)
	assert.Equal(t, testTime.Add(time.Hour), rec.SaveDate)
}

func TestGateway_SlotsSortedReservedFirst(t *testing.T) {
	g := newTestGateway()
	ctx := context.Background()

	for _, slot := range []SlotID{Slot(10), SlotQuick, Slot(2), SlotAuto, Slot(1)} {
		require.NoError(t, g.Save(ctx, slot, testSnapshot("meeting")))
	}

	infos, err := g.Slots(ctx)
	require.NoError(t, err)

	got := make([]SlotID, len(infos))
	for i, info := range infos {
		got[i] = info.ID
	}
	assert.Equal(t, []SlotID{SlotAuto, SlotQuick, Slot(1), Slot(2), Slot(10)}, got)
}

func TestGateway_SlotsCarryMetadata(t *testing.T) {
	g := newTestGateway()
	ctx := context.Background()

	require.NoError(t, g.Save(ctx, SlotAuto, testSnapshot("stay")))

	infos, err := g.Slots(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 1)

	assert.Equal(t, SlotAuto, infos[0].ID)
	assert.Equal(t, "prologue", infos[0].ScenarioID)
	assert.Equal(t, "stay", infos[0].SceneID)
	assert.Equal(t, testTime, infos[0].SaveDate)
}

func TestGateway_Delete(t *testing.T) {
	g := newTestGateway()
	ctx := context.Background()

	require.NoError(t, g.Save(ctx, Slot(1), testSnapshot("meeting")))
	require.NoError(t, g.Delete(ctx, Slot(1)))

	_, ok, err := g.Load(ctx, Slot(1))
	require.NoError(t, err)
	assert.False(t, ok)

	// Deleting an empty slot is not an error.
	assert.NoError(t, g.Delete(ctx, Slot(9)))
}

func TestGateway_CorruptDataOnLoad(t *testing.T) {
	kv := NewMemoryKV()
	ctx := context.Background()
	require.NoError(t, kv.Set(ctx, Key, []byte("{not json")))

	g := NewGateway(kv)
	_, _, err := g.Load(ctx, SlotAuto)
	require.Error(t, err)
	assert.True(t, IsCorrupt(err))
}

func TestGateway_SaveReplacesCorruptData(t *testing.T) {
	kv := NewMemoryKV()
	ctx := context.Background()
	require.NoError(t, kv.Set(ctx, Key, []byte("{not json")))

	g := NewGateway(kv, WithNow(func() time.Time { return testTime }))

	// Gameplay continues: the save succeeds and the blob is replaced.
	require.NoError(t, g.Save(ctx, SlotAuto, testSnapshot("meeting")))

	rec, ok, err := g.Load(ctx, SlotAuto)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "meeting", rec.CurrentSceneID)
}

func TestParseSlot(t *testing.T) {
	cases := map[string]SlotID{
		"auto":  SlotAuto,
		"quick": SlotQuick,
		"0":     Slot(0),
		"7":     Slot(7),
		"19":    Slot(19),
	}
	for in, want := range cases {
		got, err := ParseSlot(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	for _, bad := range []string{"", "-1", "three", "quick2"} {
		_, err := ParseSlot(bad)
		assert.Error(t, err, bad)
	}
}

// gatedKV parks the first Set between the gateway's read and write until
// released, so a concurrent save can try to slip in between.
type gatedKV struct {
	KV
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func newGatedKV(kv KV) *gatedKV {
	return &gatedKV{KV: kv, entered: make(chan struct{}), release: make(chan struct{})}
}

func (g *gatedKV) Set(ctx context.Context, key string, value []byte) error {
	g.once.Do(func() {
		close(g.entered)
		<-g.release
	})
	return g.KV.Set(ctx, key, value)
}

func TestGateway_ConcurrentSavesKeepBothSlots(t *testing.T) {
	kv := newGatedKV(NewMemoryKV())
	g := NewGateway(kv, WithNow(func() time.Time { return testTime }))
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NoError(t, g.Save(ctx, SlotAuto, testSnapshot("intro")))
	}()

	// The background save has read the slot map and is parked mid-write.
	<-kv.entered

	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NoError(t, g.Save(ctx, Slot(1), testSnapshot("meeting")))
	}()

	close(kv.release)
	wg.Wait()

	// Both writes must survive regardless of interleaving.
	_, ok, err := g.Load(ctx, Slot(1))
	require.NoError(t, err)
	assert.True(t, ok, "manual save lost to concurrent autosave")

	_, ok, err = g.Load(ctx, SlotAuto)
	require.NoError(t, err)
	assert.True(t, ok, "autosave lost to concurrent manual save")
}
