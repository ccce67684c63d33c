package store

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
)

// MemoryStore keeps everything in memory. Data is lost on restart.
// Safe for concurrent use.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]Doc
	schemas     map[string]map[string]any
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string]map[string]Doc),
		schemas:     make(map[string]map[string]any),
	}
}

// deepCopy returns a deep copy of a document by round-tripping through JSON,
// so callers see the same value types a persistent backend would return.
func deepCopy(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}
	b, _ := json.Marshal(src)
	var dst map[string]any
	_ = json.Unmarshal(b, &dst)
	return dst
}

func (m *MemoryStore) GetAll(ctx context.Context, collection string) (map[string]Doc, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	coll := m.collections[collection]
	result := make(map[string]Doc, len(coll))
	for k, v := range coll {
		result[k] = deepCopy(v)
	}
	return result, nil
}

func (m *MemoryStore) Get(ctx context.Context, collection, key string) (Doc, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.collections[collection][key]
	if !ok {
		return nil, nil
	}
	return deepCopy(doc), nil
}

func (m *MemoryStore) Put(ctx context.Context, collection, key string, data Doc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.collections[collection]; !ok {
		m.collections[collection] = make(map[string]Doc)
	}
	m.collections[collection][key] = deepCopy(data)
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, collection, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	coll := m.collections[collection]
	if _, exists := coll[key]; !exists {
		return false, nil
	}
	delete(coll, key)
	return true, nil
}

func (m *MemoryStore) ListCollections(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var names []string
	for name, docs := range m.collections {
		if len(docs) > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (m *MemoryStore) GetSchema(ctx context.Context, collection string) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return deepCopy(m.schemas[collection]), nil
}

func (m *MemoryStore) PutSchema(ctx context.Context, collection string, schema map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.schemas[collection] = deepCopy(schema)
	return nil
}

func (m *MemoryStore) DeleteSchema(ctx context.Context, collection string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.schemas[collection]; !ok {
		return false, nil
	}
	delete(m.schemas, collection)
	return true, nil
}

func (m *MemoryStore) ListSchemas(ctx context.Context) (map[string]map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make(map[string]map[string]any, len(m.schemas))
	for k, v := range m.schemas {
		result[k] = deepCopy(v)
	}
	return result, nil
}

func (m *MemoryStore) Close() error { return nil }
