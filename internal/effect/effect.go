// Package effect applies declarative choice effects to variable/flag state.
//
// Apply is a pure function: inputs are copied, outputs are fresh maps, and
// nothing is committed on failure. The engine relies on this to guarantee
// that a choice's effects are never observable half-applied.
package effect

import (
	"errors"
	"fmt"

	"github.com/roach88/kagami/internal/scenario"
)

// UnknownError reports an effect variant outside the closed set.
//
// Reaching this means a new scenario.Effect implementation was added
// without teaching Apply about it. It is reported, never silently skipped,
// so forward-compatibility gaps are detected instead of dropped.
type UnknownError struct {
	Effect scenario.Effect
}

func (e *UnknownError) Error() string {
	return fmt.Sprintf("unknown effect variant %T", e.Effect)
}

// IsUnknownError reports whether err is an unknown-effect failure.
func IsUnknownError(err error) bool {
	var ue *UnknownError
	return errors.As(err, &ue)
}

// Apply applies effects in list order against copies of the given variable
// and flag maps, returning the resulting maps.
//
// Later effects overwrite earlier ones on the same name. The inputs are
// never mutated; on error the inputs remain the only valid state. Nil input
// maps are treated as empty.
func Apply(
	effects []scenario.Effect,
	variables map[string]float64,
	flags map[string]bool,
) (map[string]float64, map[string]bool, error) {
	vars := make(map[string]float64, len(variables)+len(effects))
	for k, v := range variables {
		vars[k] = v
	}
	fl := make(map[string]bool, len(flags)+len(effects))
	for k, v := range flags {
		fl[k] = v
	}

	for _, eff := range effects {
		switch e := eff.(type) {
		case scenario.SetVariable:
			vars[e.Name] = e.Value
		case scenario.SetFlag:
			fl[e.Name] = e.Value
		default:
			return nil, nil, &UnknownError{Effect: eff}
		}
	}

	return vars, fl, nil
}
