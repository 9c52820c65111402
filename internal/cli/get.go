package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/magicbutton/state/internal/atom"
	"github.com/magicbutton/state/internal/engine"
)

// GetResult holds one field read.
type GetResult struct {
	Field string `json:"field"`
	Value any    `json:"value"`
}

// NewGetCommand creates the get command.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <field>",
		Short: "Read a field's current value",
		Long: `Read one field from the configured store. The value reflects
persisted state: what the last successful write left behind, or the
schema default if nothing was ever written.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGet(rootOpts, args[0], cmd)
		},
	}
}

func runGet(opts *RootOptions, field string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	store, err := openStore(opts)
	if err != nil {
		formatter.Error("STORE_UNAVAILABLE", err.Error(), nil)
		return err
	}
	defer store.Close()

	v, err := store.Get(field)
	if err != nil {
		var se *engine.StoreError
		if errors.As(err, &se) {
			formatter.Error(string(se.Code), se.Error(), nil)
			return &ExitError{Code: ExitFailure, Message: "get failed", Err: err}
		}
		return &ExitError{Code: ExitCommandError, Message: "get failed", Err: err}
	}

	if opts.Format == "json" {
		return formatter.Success(GetResult{Field: field, Value: atom.ToGo(v)})
	}
	data, err := atom.Marshal(v)
	if err != nil {
		return &ExitError{Code: ExitCommandError, Message: "render value", Err: err}
	}
	return formatter.Success(fmt.Sprintf("%s = %s", field, data))
}
