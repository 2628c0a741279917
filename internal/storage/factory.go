package storage

import (
	"fmt"
	"strings"
)

// Store kinds accepted by NewStore. An empty kind selects KindMemory.
const (
	KindMemory = "memory"
	KindSQLite = "sqlite"
)

// NewStore builds the recording and run store named by kind. sqlitePath is
// only read for KindSQLite, which needs a binary built with -tags sqlite.
// The returned store still has to be initialised with Init.
func NewStore(kind, sqlitePath string) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", KindMemory:
		return NewMemoryStore(), nil
	case KindSQLite:
		return newSQLiteStore(sqlitePath)
	default:
		return nil, fmt.Errorf("unsupported store backend %q (want %s or %s)", kind, KindMemory, KindSQLite)
	}
}

// CloseIfSupported releases the store's resources when it holds any, such
// as the database handle of a SQLiteStore. Stores without a Close method,
// like MemoryStore, are left alone and yield nil.
func CloseIfSupported(store Store) error {
	closer, ok := store.(interface{ Close() error })
	if !ok {
		return nil
	}
	return closer.Close()
}
