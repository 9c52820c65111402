package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/magicbutton/state/internal/atom"
	"github.com/magicbutton/state/internal/schema"
)

// FieldInfo describes one schema field.
type FieldInfo struct {
	Name    string `json:"name"`
	Default string `json:"default"`
}

// NewFieldsCommand creates the fields command.
func NewFieldsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "fields",
		Short:         "List the configured schema's fields and defaults",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFields(rootOpts, cmd)
		},
	}
}

func runFields(opts *RootOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	if opts.cfg.Schema == "" {
		formatter.Error("NO_SCHEMA", "no schema configured (use --schema or STATE_SCHEMA)", nil)
		return &ExitError{Code: ExitCommandError, Message: "no schema configured"}
	}
	sch, err := schema.LoadFile(opts.cfg.Schema)
	if err != nil {
		formatter.Error("SCHEMA_UNREADABLE", err.Error(), nil)
		return &ExitError{Code: ExitCommandError, Message: "load schema", Err: err}
	}

	infos := make([]FieldInfo, 0, len(sch.FieldIDs()))
	for _, id := range sch.FieldIDs() {
		def, _ := sch.Default(id)
		data, err := atom.Marshal(def)
		if err != nil {
			return &ExitError{Code: ExitCommandError, Message: "render default", Err: err}
		}
		infos = append(infos, FieldInfo{Name: id, Default: string(data)})
	}

	if opts.Format == "json" {
		return formatter.Success(infos)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d field(s):", len(infos))
	for _, info := range infos {
		fmt.Fprintf(&b, "\n  %s (default %s)", info.Name, info.Default)
	}
	return formatter.Success(b.String())
}
