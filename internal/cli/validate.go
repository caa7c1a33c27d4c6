package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/kagami/internal/scenario"
)

// FileResult holds validation results for a single scenario file.
type FileResult struct {
	File   string   `json:"file"`
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// ValidationResult holds validation results across all files.
type ValidationResult struct {
	Files  []FileResult `json:"files"`
	Passed int          `json:"passed"`
	Failed int          `json:"failed"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <scenarios-dir>",
		Short: "Validate scenario files",
		Long: `Validate scenario files without running them.

Checks every .yaml, .yml, and .json file: schema validation, strict
decoding, and scene cross-reference resolution.

Exit codes:
  0 - All files valid
  1 - One or more files invalid
  2 - Command error (directory not found, etc.)

Examples:
  kagami validate ./assets/scenarios
  kagami validate ./assets/scenarios --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, dir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	files, err := findScenarioFiles(dir)
	if err != nil {
		return NewExitError(ExitCommandError, err.Error())
	}
	if len(files) == 0 {
		return NewExitError(ExitCommandError, fmt.Sprintf("no scenario files found in %s", dir))
	}

	formatter.VerboseLog("Found %d scenario file(s) in %s", len(files), dir)

	result := ValidationResult{Files: make([]FileResult, 0, len(files))}
	for _, file := range files {
		fr := validateFile(file, formatter)
		result.Files = append(result.Files, fr)
		if fr.Valid {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	if opts.Format == "json" {
		if err := formatter.Success(result); err != nil {
			return err
		}
	} else {
		for _, fr := range result.Files {
			if fr.Valid {
				fmt.Fprintf(formatter.Writer, "✓ %s\n", fr.File)
				continue
			}
			fmt.Fprintf(formatter.Writer, "✗ %s\n", fr.File)
			for _, msg := range fr.Errors {
				fmt.Fprintf(formatter.Writer, "  %s\n", msg)
			}
		}
		fmt.Fprintf(formatter.Writer, "\n%d valid, %d invalid\n", result.Passed, result.Failed)
	}

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed for %d file(s)", result.Failed))
	}
	return nil
}

// validateFile runs schema validation and strict decoding on one file.
func validateFile(path string, formatter *OutputFormatter) FileResult {
	fr := FileResult{File: path, Valid: true}

	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	format, ok := scenario.FormatForExt(ext)
	if !ok {
		fr.Valid = false
		fr.Errors = append(fr.Errors, fmt.Sprintf("unsupported extension %q", ext))
		return fr
	}

	data, err := os.ReadFile(path)
	if err != nil {
		fr.Valid = false
		fr.Errors = append(fr.Errors, err.Error())
		return fr
	}

	formatter.VerboseLog("Validating %s", path)

	if err := scenario.Validate(data, format, filepath.Base(path)); err != nil {
		fr.Valid = false
		fr.Errors = append(fr.Errors, err.Error())
		return fr
	}

	scn, err := scenario.Decode(data, format)
	if err != nil {
		fr.Valid = false
		fr.Errors = append(fr.Errors, err.Error())
		return fr
	}

	if err := scenario.CheckReferences(scn); err != nil {
		fr.Valid = false
		fr.Errors = append(fr.Errors, err.Error())
	}

	return fr
}

// findScenarioFiles lists scenario files under dir, sorted for stable output.
func findScenarioFiles(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("scenarios directory not found: %s", dir)
	}
	if !info.IsDir() {
		return []string{dir}, nil
	}

	var files []string
	err = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml", ".json":
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}
