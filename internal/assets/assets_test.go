package assets

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenarioPath(t *testing.T) {
	assert.Equal(t, "scenarios/prologue.yaml", ScenarioPath("prologue", "yaml"))
	assert.Equal(t, "scenarios/chapter2.json", ScenarioPath("chapter2", "json"))
}

func TestFS_Fetch(t *testing.T) {
	fsys := fstest.MapFS{
		"scenarios/prologue.yaml": &fstest.MapFile{Data: []byte("id: prologue")},
	}
	f := NewFS(fsys)

	data, err := f.Fetch(context.Background(), "scenarios/prologue.yaml")
	require.NoError(t, err)
	assert.Equal(t, "id: prologue", string(data))
}

func TestFS_FetchMissing(t *testing.T) {
	f := NewFS(fstest.MapFS{})

	_, err := f.Fetch(context.Background(), "scenarios/nothere.yaml")
	assert.Error(t, err)
}

func TestFS_FetchCancelledContext(t *testing.T) {
	fsys := fstest.MapFS{
		"scenarios/prologue.yaml": &fstest.MapFile{Data: []byte("id: prologue")},
	}
	f := NewFS(fsys)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.Fetch(ctx, "scenarios/prologue.yaml")
	assert.ErrorIs(t, err, context.Canceled)
}
