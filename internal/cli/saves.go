package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/kagami/internal/save"
)

// SavesOptions holds flags for the saves command.
type SavesOptions struct {
	*RootOptions
	DB string
}

// SlotListing is the JSON payload for saves list.
type SlotListing struct {
	Slots []save.SlotInfo `json:"slots"`
}

// NewSavesCommand creates the saves command group.
func NewSavesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SavesOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "saves",
		Short: "Inspect and manage save slots",
	}

	cmd.PersistentFlags().StringVar(&opts.DB, "db", "kagami.db", "save database path")

	cmd.AddCommand(newSavesListCommand(opts))
	cmd.AddCommand(newSavesDeleteCommand(opts))

	return cmd
}

func newSavesListCommand(opts *SavesOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List occupied save slots",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			gw, closeFn, err := openGateway(opts.DB)
			if err != nil {
				return err
			}
			defer closeFn()

			slots, err := gw.Slots(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list slots: %w", err)
			}

			if opts.Format == "json" {
				formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
				return formatter.Success(SlotListing{Slots: slots})
			}

			if len(slots) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No saves.")
				return nil
			}
			for _, s := range slots {
				fmt.Fprintf(cmd.OutOrStdout(), "%-8s %s / %s  (%s)\n",
					s.ID, s.ScenarioID, s.SceneID, s.SaveDate.Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}
}

func newSavesDeleteCommand(opts *SavesOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "delete <slot>",
		Short:         "Delete a save slot",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			slot, err := save.ParseSlot(args[0])
			if err != nil {
				return NewExitError(ExitCommandError, err.Error())
			}

			gw, closeFn, err := openGateway(opts.DB)
			if err != nil {
				return err
			}
			defer closeFn()

			if err := gw.Delete(cmd.Context(), slot); err != nil {
				return fmt.Errorf("failed to delete slot %s: %w", slot, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", slot)
			return nil
		},
	}
}

// openGateway opens the save database and wraps it in a gateway.
func openGateway(path string) (*save.Gateway, func() error, error) {
	kv, err := save.Open(path)
	if err != nil {
		return nil, nil, NewExitError(ExitCommandError, fmt.Sprintf("failed to open save database: %v", err))
	}
	return save.NewGateway(kv), kv.Close, nil
}
