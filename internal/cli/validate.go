package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/magicbutton/state/internal/schema"
)

// ValidateResult holds schema validation results.
type ValidateResult struct {
	Valid  bool     `json:"valid"`
	Fields []string `json:"fields,omitempty"`
	Error  string   `json:"error,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <schema.cue>",
		Short: "Check a schema file without opening a store",
		Long: `Compile a CUE schema file and report its fields. Exits non-zero
when the schema does not compile or a field lacks a default.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	sch, err := schema.LoadFile(path)
	if err != nil {
		var ce *schema.CompileError
		if errors.As(err, &ce) {
			formatter.Error("SCHEMA_INVALID", ce.Error(), nil)
			return &ExitError{Code: ExitFailure, Message: "schema invalid", Err: err}
		}
		formatter.Error("SCHEMA_UNREADABLE", err.Error(), nil)
		return &ExitError{Code: ExitCommandError, Message: "schema unreadable", Err: err}
	}

	fields := sch.FieldIDs()
	formatter.VerboseLog("compiled %d field(s) from %s", len(fields), path)

	if opts.Format == "json" {
		return formatter.Success(ValidateResult{Valid: true, Fields: fields})
	}
	return formatter.Success(fmt.Sprintf("schema ok: %d field(s)\n  %s",
		len(fields), strings.Join(fields, "\n  ")))
}
