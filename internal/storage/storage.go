package storage

import (
	"fmt"

	"github.com/magicbutton/state/internal/engine"
)

// Interface conformance.
var (
	_ engine.StorageAdapter = (*SQLite)(nil)
	_ engine.StorageAdapter = (*Memory)(nil)
)

// Open selects an adapter by driver name. For "sqlite" the dsn is the
// database path; "memory" ignores it.
func Open(driver, dsn string) (engine.StorageAdapter, error) {
	switch driver {
	case "sqlite":
		return OpenSQLite(dsn)
	case "memory", "":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}
