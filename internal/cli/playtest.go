package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/kagami/internal/playtest"
)

// PlaytestOptions holds flags for the playtest command.
type PlaytestOptions struct {
	*RootOptions
	Filter string
}

// ScriptResult holds the result of a single script execution.
type ScriptResult struct {
	Name   string   `json:"name"`
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`
}

// PlaytestResult holds the overall playtest result.
type PlaytestResult struct {
	Scripts []ScriptResult `json:"scripts"`
	Passed  int            `json:"passed"`
	Failed  int            `json:"failed"`
	Total   int            `json:"total"`
}

// NewPlaytestCommand creates the playtest command.
func NewPlaytestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PlaytestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "playtest <scripts-dir>",
		Short: "Run scripted playthroughs",
		Long: `Run playtest scripts against their scenarios.

Executes each script against a fresh engine, validating step results
and final state assertions.

Exit codes:
  0 - All scripts passed
  1 - One or more scripts failed
  2 - Command error (invalid paths, malformed scripts, etc.)

Examples:
  kagami playtest ./playtests
  kagami playtest ./playtests --filter "prologue-*"
  kagami playtest ./playtests --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlaytests(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scripts by glob pattern")

	return cmd
}

func runPlaytests(opts *PlaytestOptions, dir string, cmd *cobra.Command) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return NewExitError(ExitCommandError, fmt.Sprintf("scripts directory not found: %s", dir))
	}

	files, err := findScriptFiles(dir, opts.Filter)
	if err != nil {
		return fmt.Errorf("failed to find scripts: %w", err)
	}

	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	if len(files) == 0 {
		if opts.Format == "json" {
			return formatter.Success(PlaytestResult{Scripts: []ScriptResult{}})
		}
		fmt.Fprintln(cmd.OutOrStdout(), "No scripts found.")
		return nil
	}

	result := PlaytestResult{
		Scripts: make([]ScriptResult, 0, len(files)),
		Total:   len(files),
	}

	for _, file := range files {
		sr := runScript(cmd, file, formatter)
		result.Scripts = append(result.Scripts, sr)
		if sr.Pass {
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
		fmt.Fprintf(formatter.Writer, "\n%d passed, %d failed, %d total\n",
			result.Passed, result.Failed, result.Total)
	}

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d script(s) failed", result.Failed))
	}
	return nil
}

// runScript loads and executes one script file.
func runScript(cmd *cobra.Command, file string, formatter *OutputFormatter) ScriptResult {
	script, err := playtest.LoadScript(file)
	if err != nil {
		sr := ScriptResult{Name: file, Pass: false, Errors: []string{err.Error()}}
		reportScript(formatter, sr)
		return sr
	}

	formatter.VerboseLog("Running %s (%s)", script.Name, file)

	result, err := playtest.Run(cmd.Context(), script)
	if err != nil {
		sr := ScriptResult{Name: script.Name, Pass: false, Errors: []string{err.Error()}}
		reportScript(formatter, sr)
		return sr
	}

	sr := ScriptResult{Name: script.Name, Pass: result.Pass, Errors: result.Errors}
	reportScript(formatter, sr)
	return sr
}

// reportScript prints one script outcome in text mode.
func reportScript(formatter *OutputFormatter, sr ScriptResult) {
	if formatter.Format == "json" {
		return
	}
	if sr.Pass {
		fmt.Fprintf(formatter.Writer, "✓ %s\n", sr.Name)
		return
	}
	fmt.Fprintf(formatter.Writer, "✗ %s\n", sr.Name)
	for _, msg := range sr.Errors {
		fmt.Fprintf(formatter.Writer, "  %s\n", msg)
	}
}

// findScriptFiles lists playtest script files, optionally filtered by a
// glob pattern against the base filename.
func findScriptFiles(dir, filter string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		if filter != "" {
			match, err := filepath.Match(filter, strings.TrimSuffix(filepath.Base(path), ext))
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !match {
				return nil
			}
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}
