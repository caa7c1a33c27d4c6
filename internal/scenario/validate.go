package scenario

import (
	_ "embed"
	"errors"
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	cuejson "cuelang.org/go/encoding/json"
	cueyaml "cuelang.org/go/encoding/yaml"
)

//go:embed schema.cue
var schemaCUE string

var compileSchema = sync.OnceValues(func() (cue.Value, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := v.Err(); err != nil {
		return cue.Value{}, fmt.Errorf("compile scenario schema: %w", err)
	}

	def := v.LookupPath(cue.ParsePath("#Scenario"))
	if !def.Exists() {
		return cue.Value{}, fmt.Errorf("scenario schema: #Scenario definition missing")
	}
	return def, nil
})

// Validate unifies a raw scenario document with the embedded CUE schema.
//
// This runs before typed decoding so malformed documents fail with
// positional diagnostics instead of surfacing as zero values during
// traversal. The document itself is not returned; callers follow up with
// Decode on success.
func Validate(data []byte, format Format, filename string) error {
	def, err := compileSchema()
	if err != nil {
		return err
	}

	ctx := def.Context()

	var doc cue.Value
	switch format {
	case FormatJSON:
		expr, err := cuejson.Extract(filename, data)
		if err != nil {
			return fmt.Errorf("parse json: %w", formatCUEError(err))
		}
		doc = ctx.BuildExpr(expr)
	case FormatYAML:
		file, err := cueyaml.Extract(filename, data)
		if err != nil {
			return fmt.Errorf("parse yaml: %w", formatCUEError(err))
		}
		doc = ctx.BuildFile(file)
	default:
		return fmt.Errorf("unsupported format %q", format)
	}

	if err := doc.Err(); err != nil {
		return formatCUEError(err)
	}

	unified := def.Unify(doc)
	if err := unified.Err(); err != nil {
		return formatCUEError(err)
	}
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return formatCUEError(err)
	}

	return nil
}

// formatCUEError flattens CUE's multi-error values into one readable error
// with file positions preserved.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s", cueerrors.Details(err, nil))
}

// CheckReferences verifies that every scene reference inside a scenario
// resolves: a scene's `next` must name a scene in the document or another
// scenario document, and every choice target must name a scene in the
// document. Run at validation time so dangling references fail before a
// player can traverse into them.
func CheckReferences(scn *Scenario) error {
	var errs []error
	for i := range scn.Scenes {
		scene := &scn.Scenes[i]

		if scene.Next != "" {
			if _, chained := ScenarioRef(scene.Next); !chained {
				if _, ok := scn.Scene(scene.Next); !ok {
					errs = append(errs, fmt.Errorf("scene %q: next %q does not resolve", scene.ID, scene.Next))
				}
			}
		}

		for j, choice := range scene.Choices {
			if _, ok := scn.Scene(choice.Next); !ok {
				errs = append(errs, fmt.Errorf("scene %q: choice %d target %q does not resolve", scene.ID, j, choice.Next))
			}
		}
	}
	return errors.Join(errs...)
}
