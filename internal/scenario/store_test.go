package scenario

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/kagami/internal/assets"
)

func newTestStore(files map[string]string) *Store {
	fsys := fstest.MapFS{}
	for name, content := range files {
		fsys["scenarios/"+name] = &fstest.MapFile{Data: []byte(content)}
	}
	return NewStore(assets.NewFS(fsys))
}

func TestStoreLoad_YAMLDocument(t *testing.T) {
	store := newTestStore(map[string]string{"prologue.yaml": basicYAML})

	scn, err := store.Load(context.Background(), "prologue")
	require.NoError(t, err)
	assert.Equal(t, "prologue", scn.ID)
	assert.Len(t, scn.Scenes, 2)
}

func TestStoreLoad_ProbesExtensions(t *testing.T) {
	jsonDoc := `{"id": "side", "title": "Side Story", "scenes": [{"id": "s1", "textBlocks": [{"speaker": "", "text": "Hi."}]}]}`
	store := newTestStore(map[string]string{"side.json": jsonDoc})

	scn, err := store.Load(context.Background(), "side")
	require.NoError(t, err)
	assert.Equal(t, "side", scn.ID)
}

func TestStoreLoad_CachesByID(t *testing.T) {
	store := newTestStore(map[string]string{"prologue.yaml": basicYAML})

	first, err := store.Load(context.Background(), "prologue")
	require.NoError(t, err)
	second, err := store.Load(context.Background(), "prologue")
	require.NoError(t, err)

	// Same immutable instance, not a re-parse.
	assert.Same(t, first, second)
}

func TestStoreLoad_MissingDocument(t *testing.T) {
	store := newTestStore(nil)

	_, err := store.Load(context.Background(), "nothere")
	require.Error(t, err)
	assert.True(t, IsLoadError(err))
}

func TestStoreLoad_EmptyID(t *testing.T) {
	store := newTestStore(nil)

	_, err := store.Load(context.Background(), "")
	require.Error(t, err)
	assert.True(t, IsLoadError(err))
}

func TestStoreLoad_SchemaRejectionIsLoadError(t *testing.T) {
	store := newTestStore(map[string]string{"bad.yaml": "id: bad\ntitle: Bad\nscenes:\n  - id: s1\n    transition:\n      type: dissolve\n"})

	_, err := store.Load(context.Background(), "bad")
	require.Error(t, err)
	assert.True(t, IsLoadError(err))
}

func TestScenario_SceneLookup(t *testing.T) {
	scn, err := Decode([]byte(basicYAML), FormatYAML)
	require.NoError(t, err)

	scene, ok := scn.Scene("meeting")
	require.True(t, ok)
	assert.Equal(t, "meeting", scene.ID)

	_, ok = scn.Scene("missing")
	assert.False(t, ok)
}

func TestScenario_FirstScene(t *testing.T) {
	scn, err := Decode([]byte(basicYAML), FormatYAML)
	require.NoError(t, err)

	first, ok := scn.FirstScene()
	require.True(t, ok)
	assert.Equal(t, "intro", first.ID)

	empty := &Scenario{ID: "empty"}
	_, ok = empty.FirstScene()
	assert.False(t, ok)
}

func TestScenarioRef(t *testing.T) {
	id, ok := ScenarioRef("chapter2.yaml")
	assert.True(t, ok)
	assert.Equal(t, "chapter2", id)

	id, ok = ScenarioRef("epilogue.json")
	assert.True(t, ok)
	assert.Equal(t, "epilogue", id)

	_, ok = ScenarioRef("scene_id")
	assert.False(t, ok)
}
