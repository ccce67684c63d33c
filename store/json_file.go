package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// JsonFileStore stores each collection as a separate JSON file on disk.
//
// Layout:
//
//	data_dir/
//	  _schemas.json   # schema registry
//	  todos.json      # "todos" collection
//	  notes.json      # "notes" collection
//
// Files are rewritten whole on every change through a temp file and rename,
// so a crash never leaves a half-written collection behind.
type JsonFileStore struct {
	mu  sync.RWMutex
	dir string
}

func NewJsonFileStore(dir string) (*JsonFileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &JsonFileStore{dir: dir}, nil
}

func (s *JsonFileStore) collectionPath(collection string) (string, error) {
	if err := ValidateCollectionName(collection); err != nil {
		return "", err
	}
	return filepath.Join(s.dir, collection+".json"), nil
}

func (s *JsonFileStore) schemasPath() string {
	return filepath.Join(s.dir, "_schemas.json")
}

func (s *JsonFileStore) loadFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]any{}, nil
		}
		return nil, err
	}
	var result map[string]any
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	if result == nil {
		result = map[string]any{}
	}
	return result, nil
}

func (s *JsonFileStore) saveFile(path string, data any) error {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func (s *JsonFileStore) loadCollection(path string) (map[string]Doc, error) {
	raw, err := s.loadFile(path)
	if err != nil {
		return nil, err
	}
	result := make(map[string]Doc, len(raw))
	for k, v := range raw {
		if doc, ok := v.(map[string]any); ok {
			result[k] = doc
		}
	}
	return result, nil
}

func (s *JsonFileStore) GetAll(ctx context.Context, collection string) (map[string]Doc, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := s.collectionPath(collection)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadCollection(path)
}

func (s *JsonFileStore) Get(ctx context.Context, collection, key string) (Doc, error) {
	docs, err := s.GetAll(ctx, collection)
	if err != nil {
		return nil, err
	}
	return docs[key], nil
}

func (s *JsonFileStore) Put(ctx context.Context, collection, key string, data Doc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.collectionPath(collection)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	coll, err := s.loadCollection(path)
	if err != nil {
		return err
	}
	coll[key] = data
	return s.saveFile(path, coll)
}

func (s *JsonFileStore) Delete(ctx context.Context, collection, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	path, err := s.collectionPath(collection)
	if err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	coll, err := s.loadCollection(path)
	if err != nil {
		return false, err
	}
	if _, ok := coll[key]; !ok {
		return false, nil
	}
	delete(coll, key)
	return true, s.saveFile(path, coll)
}

// ListCollections reports collection files that still hold documents.
func (s *JsonFileStore) ListCollections(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ".json") {
			continue
		}
		coll, err := s.loadCollection(filepath.Join(s.dir, name))
		if err != nil || len(coll) == 0 {
			continue
		}
		names = append(names, strings.TrimSuffix(name, ".json"))
	}
	sort.Strings(names)
	return names, nil
}

func (s *JsonFileStore) GetSchema(ctx context.Context, collection string) (map[string]any, error) {
	schemas, err := s.ListSchemas(ctx)
	if err != nil {
		return nil, err
	}
	return schemas[collection], nil
}

func (s *JsonFileStore) PutSchema(ctx context.Context, collection string, schema map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := ValidateCollectionName(collection); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	path := s.schemasPath()
	schemas, err := s.loadFile(path)
	if err != nil {
		return err
	}
	schemas[collection] = schema
	return s.saveFile(path, schemas)
}

func (s *JsonFileStore) DeleteSchema(ctx context.Context, collection string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	path := s.schemasPath()
	schemas, err := s.loadFile(path)
	if err != nil {
		return false, err
	}
	if _, ok := schemas[collection]; !ok {
		return false, nil
	}
	delete(schemas, collection)
	return true, s.saveFile(path, schemas)
}

func (s *JsonFileStore) ListSchemas(ctx context.Context) (map[string]map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	raw, err := s.loadFile(s.schemasPath())
	if err != nil {
		return nil, err
	}
	result := make(map[string]map[string]any, len(raw))
	for k, v := range raw {
		if schema, ok := v.(map[string]any); ok {
			result[k] = schema
		}
	}
	return result, nil
}

func (s *JsonFileStore) Close() error { return nil }
