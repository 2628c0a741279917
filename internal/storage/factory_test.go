package storage

import (
	"errors"
	"strings"
	"testing"
)

func TestNewStoreMemory(t *testing.T) {
	store, err := NewStore("memory", "")
	if err != nil {
		t.Fatalf("new memory store: %v", err)
	}
	if store == nil {
		t.Fatal("expected non-nil store")
	}
	if err := CloseIfSupported(store); err != nil {
		t.Fatalf("close memory store: %v", err)
	}
}

func TestNewStoreUnsupported(t *testing.T) {
	_, err := NewStore("unknown", "")
	if err == nil {
		t.Fatal("expected unsupported store error")
	}
	for _, want := range []string{`"unknown"`, KindMemory, KindSQLite} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q should mention %s", err, want)
		}
	}
}

func TestNewStoreKindIsCaseInsensitive(t *testing.T) {
	store, err := NewStore(" Memory ", "")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if _, ok := store.(*MemoryStore); !ok {
		t.Fatalf("expected memory store, got %T", store)
	}
}

type closingStore struct {
	*MemoryStore
	closed int
	err    error
}

func (s *closingStore) Close() error {
	s.closed++
	return s.err
}

func TestCloseIfSupportedClosesClosers(t *testing.T) {
	store := &closingStore{MemoryStore: NewMemoryStore(), err: errors.New("busy")}
	if err := CloseIfSupported(store); err == nil || err.Error() != "busy" {
		t.Fatalf("expected close error to pass through, got %v", err)
	}
	if store.closed != 1 {
		t.Fatalf("expected one close call, got %d", store.closed)
	}
}

func TestDefaultStoreKindIsConstructible(t *testing.T) {
	kind := DefaultStoreKind()
	if kind != "memory" && kind != "sqlite" {
		t.Fatalf("unexpected default store kind: %q", kind)
	}
	if _, err := NewStore(kind, t.TempDir()+"/htmsim.db"); err != nil {
		t.Fatalf("new default store: %v", err)
	}
}
