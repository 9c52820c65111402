package cli

import (
	"github.com/magicbutton/state/internal/engine"
	"github.com/magicbutton/state/internal/schema"
	"github.com/magicbutton/state/internal/storage"
)

// openStore builds a store from the resolved configuration: compiled
// schema plus the configured storage adapter. The caller owns Close.
func openStore(opts *RootOptions) (*engine.Store, error) {
	if opts.cfg.Schema == "" {
		return nil, &ExitError{Code: ExitCommandError, Message: "no schema configured (use --schema or STATE_SCHEMA)"}
	}

	sch, err := schema.LoadFile(opts.cfg.Schema)
	if err != nil {
		return nil, &ExitError{Code: ExitCommandError, Message: "load schema", Err: err}
	}

	adapter, err := storage.Open(opts.cfg.Storage.Driver, opts.cfg.Storage.Path)
	if err != nil {
		return nil, &ExitError{Code: ExitCommandError, Message: "open storage", Err: err}
	}

	store, err := engine.New(sch, nil, engine.WithStorage(adapter))
	if err != nil {
		adapter.Close()
		return nil, &ExitError{Code: ExitCommandError, Message: "open store", Err: err}
	}
	return store, nil
}
