// Package cli implements the statectl command tree.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/magicbutton/state/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	// Schema and storage flags override the loaded config when set.
	Schema        string
	StorageDriver string
	StoragePath   string

	cfg config.Config
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for statectl.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "statectl",
		Short: "Inspect and mutate a schema-validated state store",
		Long: `statectl works against a persisted state store: a set of
schema-validated fields backed by SQLite. It can validate schemas,
list fields, and read or write values.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if opts.Schema != "" {
				cfg.Schema = opts.Schema
			}
			if opts.StorageDriver != "" {
				cfg.Storage.Driver = opts.StorageDriver
			}
			if opts.StoragePath != "" {
				cfg.Storage.Path = opts.StoragePath
			}
			opts.cfg = cfg

			level := cfg.LogLevel()
			if opts.Verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Schema, "schema", "", "path to CUE schema file")
	cmd.PersistentFlags().StringVar(&opts.StorageDriver, "storage-driver", "", "storage driver (sqlite|memory)")
	cmd.PersistentFlags().StringVar(&opts.StoragePath, "storage-path", "", "storage database path")

	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewFieldsCommand(opts))
	cmd.AddCommand(NewGetCommand(opts))
	cmd.AddCommand(NewSetCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
