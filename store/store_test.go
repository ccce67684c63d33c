package store_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stevemurr/todo-sync-server/store"
)

// runStoreTests runs a common conformance suite against any Store.
func runStoreTests(t *testing.T, s store.Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("GetAll empty", func(t *testing.T) {
		docs, err := s.GetAll(ctx, "test")
		if err != nil {
			t.Fatal(err)
		}
		if len(docs) != 0 {
			t.Fatalf("expected 0 docs, got %d", len(docs))
		}
	})

	t.Run("Put and Get", func(t *testing.T) {
		doc := store.Doc{"title": "hello", "count": float64(42), "done": false}
		if err := s.Put(ctx, "col1", "k1", doc); err != nil {
			t.Fatal(err)
		}
		got, err := s.Get(ctx, "col1", "k1")
		if err != nil {
			t.Fatal(err)
		}
		if got == nil {
			t.Fatal("expected doc, got nil")
		}
		if got["title"] != "hello" || got["count"] != float64(42) || got["done"] != false {
			t.Fatalf("unexpected doc %v", got)
		}
	})

	t.Run("Get missing", func(t *testing.T) {
		got, err := s.Get(ctx, "col1", "missing")
		if err != nil {
			t.Fatal(err)
		}
		if got != nil {
			t.Fatalf("expected nil, got %v", got)
		}
	})

	t.Run("Get returns a copy", func(t *testing.T) {
		got, err := s.Get(ctx, "col1", "k1")
		if err != nil {
			t.Fatal(err)
		}
		got["title"] = "mutated"
		again, err := s.Get(ctx, "col1", "k1")
		if err != nil {
			t.Fatal(err)
		}
		if again["title"] != "hello" {
			t.Fatalf("store shares state with callers: %v", again["title"])
		}
	})

	t.Run("Put overwrites", func(t *testing.T) {
		if err := s.Put(ctx, "col1", "k1", store.Doc{"title": "updated"}); err != nil {
			t.Fatal(err)
		}
		got, err := s.Get(ctx, "col1", "k1")
		if err != nil {
			t.Fatal(err)
		}
		if got["title"] != "updated" {
			t.Fatalf("expected title=updated, got %v", got["title"])
		}
		if _, ok := got["count"]; ok {
			t.Fatal("Put must replace the whole document")
		}
	})

	t.Run("GetAll returns all", func(t *testing.T) {
		if err := s.Put(ctx, "col1", "k2", store.Doc{"title": "second"}); err != nil {
			t.Fatal(err)
		}
		docs, err := s.GetAll(ctx, "col1")
		if err != nil {
			t.Fatal(err)
		}
		if len(docs) != 2 {
			t.Fatalf("expected 2 docs, got %d", len(docs))
		}
		if docs["k2"]["title"] != "second" {
			t.Fatalf("unexpected k2 %v", docs["k2"])
		}
	})

	t.Run("Delete existing", func(t *testing.T) {
		existed, err := s.Delete(ctx, "col1", "k1")
		if err != nil {
			t.Fatal(err)
		}
		if !existed {
			t.Fatal("expected existed=true")
		}
		got, err := s.Get(ctx, "col1", "k1")
		if err != nil {
			t.Fatal(err)
		}
		if got != nil {
			t.Fatal("expected nil after delete")
		}
	})

	t.Run("Delete missing", func(t *testing.T) {
		existed, err := s.Delete(ctx, "col1", "nope")
		if err != nil {
			t.Fatal(err)
		}
		if existed {
			t.Fatal("expected existed=false")
		}
	})

	t.Run("ListCollections", func(t *testing.T) {
		names, err := s.ListCollections(ctx)
		if err != nil {
			t.Fatal(err)
		}
		found := false
		for _, n := range names {
			if n == "col1" {
				found = true
			}
			if n == "test" {
				t.Fatalf("empty collection listed: %v", names)
			}
		}
		if !found {
			t.Fatalf("expected col1 in list, got %v", names)
		}
	})

	t.Run("GetSchema missing", func(t *testing.T) {
		sch, err := s.GetSchema(ctx, "nope")
		if err != nil {
			t.Fatal(err)
		}
		if sch != nil {
			t.Fatalf("expected nil, got %v", sch)
		}
	})

	t.Run("PutSchema and GetSchema", func(t *testing.T) {
		schema := map[string]any{
			"type": "object",
			"properties": map[string]any{
				"name": map[string]any{"type": "string"},
			},
			"required": []any{"name"},
		}
		if err := s.PutSchema(ctx, "users", schema); err != nil {
			t.Fatal(err)
		}
		got, err := s.GetSchema(ctx, "users")
		if err != nil {
			t.Fatal(err)
		}
		if got == nil {
			t.Fatal("expected schema, got nil")
		}
		if got["type"] != "object" {
			t.Fatalf("expected type=object, got %v", got["type"])
		}
	})

	t.Run("ListSchemas", func(t *testing.T) {
		schemas, err := s.ListSchemas(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if _, ok := schemas["users"]; !ok {
			t.Fatal("expected 'users' in schemas")
		}
	})

	t.Run("DeleteSchema", func(t *testing.T) {
		existed, err := s.DeleteSchema(ctx, "users")
		if err != nil {
			t.Fatal(err)
		}
		if !existed {
			t.Fatal("expected existed=true")
		}
		existed, err = s.DeleteSchema(ctx, "users")
		if err != nil {
			t.Fatal(err)
		}
		if existed {
			t.Fatal("expected existed=false on second delete")
		}
	})
}

func TestMemoryStore(t *testing.T) {
	s := store.NewMemoryStore()
	defer s.Close()
	runStoreTests(t, s)
}

func TestJsonFileStore(t *testing.T) {
	s, err := store.NewJsonFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	runStoreTests(t, s)
}

func TestSqliteStore(t *testing.T) {
	s, err := store.NewSqliteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	runStoreTests(t, s)
}

func TestBoltStore(t *testing.T) {
	s, err := store.NewBoltStore(filepath.Join(t.TempDir(), "test.bolt"))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	runStoreTests(t, s)
}

func TestFactory(t *testing.T) {
	dir := t.TempDir()

	for _, backend := range append([]string{""}, store.Backends...) {
		t.Run(backend, func(t *testing.T) {
			s, err := store.New(backend, filepath.Join(dir, backend))
			if err != nil {
				t.Fatal(err)
			}
			if err := s.Close(); err != nil {
				t.Fatal(err)
			}
		})
	}

	t.Run("unknown", func(t *testing.T) {
		if _, err := store.New("redis", dir); err == nil {
			t.Fatal("expected error for unknown backend")
		}
	})
}

func TestJsonFileStoreIsolation(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := store.NewJsonFileStore(dir)
	if err != nil {
		t.Fatal(err)
	}

	if err := s.Put(ctx, "a", "k1", store.Doc{"x": float64(1)}); err != nil {
		t.Fatal(err)
	}
	if err := s.Put(ctx, "b", "k1", store.Doc{"x": float64(2)}); err != nil {
		t.Fatal(err)
	}

	aDoc, _ := s.Get(ctx, "a", "k1")
	bDoc, _ := s.Get(ctx, "b", "k1")
	if aDoc["x"] != float64(1) {
		t.Fatalf("collection a: expected x=1, got %v", aDoc["x"])
	}
	if bDoc["x"] != float64(2) {
		t.Fatalf("collection b: expected x=2, got %v", bDoc["x"])
	}

	for _, name := range []string{"a.json", "b.json"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Fatalf("expected %s to exist: %v", name, err)
		}
	}
}

func TestJsonFileStoreRejectsPathNames(t *testing.T) {
	s, err := store.NewJsonFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"", "../escape", "_schemas", ".hidden", `a\b`} {
		if err := s.Put(context.Background(), name, "k", store.Doc{}); err == nil {
			t.Fatalf("expected error for collection %q", name)
		}
	}
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := store.NewMemoryStore()
	if err := s.Put(ctx, "c", "k", store.Doc{}); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}
