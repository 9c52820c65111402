package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/magicbutton/state/internal/atom"
	"github.com/magicbutton/state/internal/engine"
)

// SetResult holds one applied write.
type SetResult struct {
	Field string `json:"field"`
	Value any    `json:"value"`
	Prev  any    `json:"prev"`
}

// NewSetCommand creates the set command.
func NewSetCommand(rootOpts *RootOptions) *cobra.Command {
	var reset bool

	cmd := &cobra.Command{
		Use:   "set <field> [value]",
		Short: "Write a field, validating against the schema",
		Long: `Validate a JSON value against the field's schema and persist it.
The value argument is JSON: 42, true, "text", or a composite like
'{"a": 1}'. With --reset the field returns to its schema default and
no value argument is accepted.`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSet(rootOpts, args, reset, cmd)
		},
	}
	cmd.Flags().BoolVar(&reset, "reset", false, "restore the field to its schema default")
	return cmd
}

func runSet(opts *RootOptions, args []string, reset bool, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	field := args[0]
	if reset && len(args) == 2 {
		return &ExitError{Code: ExitCommandError, Message: "--reset takes no value argument"}
	}
	if !reset && len(args) == 1 {
		return &ExitError{Code: ExitCommandError, Message: "missing value argument"}
	}

	store, err := openStore(opts)
	if err != nil {
		formatter.Error("STORE_UNAVAILABLE", err.Error(), nil)
		return err
	}
	defer store.Close()

	prev, _ := store.Get(field)

	if reset {
		err = store.Reset(field)
	} else {
		var v atom.Value
		v, err = atom.Decode([]byte(args[1]))
		if err != nil {
			formatter.Error("INVALID_JSON", err.Error(), nil)
			return &ExitError{Code: ExitCommandError, Message: "parse value", Err: err}
		}
		err = store.Set(field, v)
	}
	if err != nil {
		var se *engine.StoreError
		if errors.As(err, &se) {
			formatter.Error(string(se.Code), se.Error(), nil)
			return &ExitError{Code: ExitFailure, Message: "set failed", Err: err}
		}
		return &ExitError{Code: ExitCommandError, Message: "set failed", Err: err}
	}

	cur, err := store.Get(field)
	if err != nil {
		return &ExitError{Code: ExitCommandError, Message: "read back", Err: err}
	}

	if opts.Format == "json" {
		result := SetResult{Field: field, Value: atom.ToGo(cur)}
		if prev != nil {
			result.Prev = atom.ToGo(prev)
		}
		return formatter.Success(result)
	}
	data, err := atom.Marshal(cur)
	if err != nil {
		return &ExitError{Code: ExitCommandError, Message: "render value", Err: err}
	}
	return formatter.Success(fmt.Sprintf("%s = %s", field, data))
}
