package effect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/kagami/internal/scenario"
)

func TestApply_SetsVariablesAndFlags(t *testing.T) {
	effects := []scenario.Effect{
		scenario.SetVariable{Name: "trust", Value: 5},
		scenario.SetFlag{Name: "met_rival", Value: true},
	}

	vars, flags, err := Apply(effects, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, map[string]float64{"trust": 5}, vars)
	assert.Equal(t, map[string]bool{"met_rival": true}, flags)
}

func TestApply_LaterEffectWins(t *testing.T) {
	effects := []scenario.Effect{
		scenario.SetVariable{Name: "trust", Value: 1},
		scenario.SetVariable{Name: "trust", Value: 9},
		scenario.SetFlag{Name: "door_open", Value: true},
		scenario.SetFlag{Name: "door_open", Value: false},
	}

	vars, flags, err := Apply(effects, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, 9.0, vars["trust"])
	assert.False(t, flags["door_open"])
}

func TestApply_DoesNotMutateInputs(t *testing.T) {
	vars := map[string]float64{"trust": 1}
	flags := map[string]bool{"seen": true}

	newVars, newFlags, err := Apply([]scenario.Effect{
		scenario.SetVariable{Name: "trust", Value: 2},
		scenario.SetFlag{Name: "seen", Value: false},
	}, vars, flags)
	require.NoError(t, err)

	// Originals untouched
	assert.Equal(t, 1.0, vars["trust"])
	assert.True(t, flags["seen"])

	// Results updated
	assert.Equal(t, 2.0, newVars["trust"])
	assert.False(t, newFlags["seen"])
}

func TestApply_PreservesUnrelatedEntries(t *testing.T) {
	vars := map[string]float64{"trust": 1, "gold": 40}
	flags := map[string]bool{"seen": true}

	newVars, newFlags, err := Apply([]scenario.Effect{
		scenario.SetVariable{Name: "trust", Value: 2},
	}, vars, flags)
	require.NoError(t, err)

	assert.Equal(t, 40.0, newVars["gold"])
	assert.True(t, newFlags["seen"])
}

func TestApply_EmptyEffects(t *testing.T) {
	vars, flags, err := Apply(nil, map[string]float64{"x": 1}, map[string]bool{"y": true})
	require.NoError(t, err)

	assert.Equal(t, map[string]float64{"x": 1}, vars)
	assert.Equal(t, map[string]bool{"y": true}, flags)
}
