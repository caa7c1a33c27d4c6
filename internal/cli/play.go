package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/kagami/internal/assets"
	"github.com/roach88/kagami/internal/engine"
	"github.com/roach88/kagami/internal/save"
	"github.com/roach88/kagami/internal/scenario"
	"github.com/roach88/kagami/internal/session"
)

// PlayOptions holds flags for the play command.
type PlayOptions struct {
	*RootOptions
	Assets   string
	DB       string
	Scenario string
}

// NewPlayCommand creates the play command.
func NewPlayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PlayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play a scenario in the terminal",
		Long: `Play a scenario interactively in the terminal.

Controls:
  enter      advance to the next line or scene
  1, 2, ...  pick a choice
  back       return to the previous scene
  save NAME  save to a slot (auto, quick, or a number)
  load NAME  load from a slot
  auto       toggle auto-progress mode
  skip       toggle skip mode
  quit       exit

Examples:
  kagami play --assets ./assets --scenario prologue
  kagami play --db saves.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Assets, "assets", "assets", "directory holding scenario files")
	cmd.Flags().StringVar(&opts.DB, "db", "kagami.db", "save database path")
	cmd.Flags().StringVar(&opts.Scenario, "scenario", "", "scenario id to start (defaults to configured start scenario)")

	return cmd
}

func runPlay(opts *PlayOptions, cmd *cobra.Command) error {
	out := cmd.OutOrStdout()

	kv, err := save.Open(opts.DB)
	if err != nil {
		return NewExitError(ExitCommandError, fmt.Sprintf("failed to open save database: %v", err))
	}
	defer kv.Close()

	cfg := session.LoadConfigFromEnv()
	store := scenario.NewStore(assets.NewDir(opts.Assets))
	ctrl := session.New(store, save.NewGateway(kv), cfg, session.UUIDv7Generator{}, nil,
		session.WithPresenter(&terminalPresenter{w: out}),
		session.WithAudio(&terminalAudio{w: out}),
	)

	ctx := cmd.Context()
	if err := ctrl.Start(ctx, opts.Scenario); err != nil {
		return NewExitError(ExitCommandError, fmt.Sprintf("failed to start session: %v", err))
	}

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())

		if err := handleInput(ctx, ctrl, out, line); err != nil {
			if errors.Is(err, errQuit) {
				return nil
			}
			fmt.Fprintf(out, "! %v\n", err)
		}
	}
}

var errQuit = errors.New("quit")

// handleInput dispatches one line of player input.
func handleInput(ctx context.Context, ctrl *session.Controller, out io.Writer, line string) error {
	switch {
	case line == "quit" || line == "exit":
		return errQuit

	case line == "":
		err := ctrl.Progress(ctx)
		if engine.IsNoNextScene(err) {
			fmt.Fprintln(out, "-- The end --")
			return nil
		}
		return err

	case line == "back":
		return ctrl.Back()

	case line == "auto":
		return togglePolicy(ctrl, out, session.PolicyAuto)

	case line == "skip":
		return togglePolicy(ctrl, out, session.PolicySkip)

	case strings.HasPrefix(line, "save "):
		slot, err := save.ParseSlot(strings.TrimSpace(strings.TrimPrefix(line, "save ")))
		if err != nil {
			return err
		}
		if err := ctrl.SaveTo(ctx, slot); err != nil {
			return err
		}
		fmt.Fprintf(out, "saved to %s\n", slot)
		return nil

	case strings.HasPrefix(line, "load "):
		slot, err := save.ParseSlot(strings.TrimSpace(strings.TrimPrefix(line, "load ")))
		if err != nil {
			return err
		}
		if err := ctrl.LoadFrom(ctx, slot); err != nil {
			if errors.Is(err, session.ErrEmptySlot) {
				return fmt.Errorf("slot %s is empty", slot)
			}
			return err
		}
		return nil

	default:
		n, err := strconv.Atoi(line)
		if err != nil {
			return fmt.Errorf("unknown command %q", line)
		}
		// Choices display 1-based.
		return ctrl.SelectChoice(n - 1)
	}
}

// togglePolicy flips a progress policy on and off.
func togglePolicy(ctrl *session.Controller, out io.Writer, p session.Policy) error {
	if ctrl.Policy() == p {
		p = session.PolicyOff
	}
	ctrl.SetPolicy(p)
	fmt.Fprintf(out, "mode: %s\n", p)
	return nil
}

// terminalPresenter renders frames as plain text.
type terminalPresenter struct {
	w io.Writer
}

func (p *terminalPresenter) Present(f session.Frame) {
	if f.InTransition && f.Transition != nil {
		fmt.Fprintf(p.w, "... %s (%dms)\n", f.Transition.Type, f.Transition.DurationMS)
		return
	}

	fmt.Fprintf(p.w, "\n[%s / %s]", f.ScenarioID, f.SceneID)
	if f.Background != "" {
		fmt.Fprintf(p.w, " bg:%s", f.Background)
	}
	fmt.Fprintln(p.w)

	if f.Text != "" {
		if f.Speaker != "" {
			fmt.Fprintf(p.w, "%s: %s\n", f.Speaker, f.Text)
		} else {
			fmt.Fprintln(p.w, f.Text)
		}
	}

	for i, choice := range f.Choices {
		fmt.Fprintf(p.w, "  %d) %s\n", i+1, choice)
	}
}

// terminalAudio prints audio cues instead of playing them.
type terminalAudio struct {
	w io.Writer
}

func (a *terminalAudio) PlayBGM(bgm scenario.BGM) {
	switch {
	case bgm.Stop:
		fmt.Fprintln(a.w, "♪ (bgm stops)")
	case bgm.Continue:
		// Current track keeps playing; nothing to announce.
	case bgm.Track != "":
		fmt.Fprintf(a.w, "♪ %s\n", bgm.Track)
	}
}

func (a *terminalAudio) PlaySFX(name string) {
	fmt.Fprintf(a.w, "♪ sfx:%s\n", name)
}
