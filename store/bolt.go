package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	bucketDocuments = []byte("documents")
	bucketSchemas   = []byte("schemas")
)

// BoltStore stores collections in a single bbolt file.
//
// Buckets:
//
//	documents/<collection>/<key> -> JSON document
//	schemas/<collection>         -> JSON schema
type BoltStore struct {
	db *bolt.DB
}

func NewBoltStore(dbPath string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, err
	}
	db, err := bolt.Open(dbPath, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt database: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketDocuments, bucketSchemas} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("initialise bolt database: %w", err)
	}
	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

func (s *BoltStore) GetAll(ctx context.Context, collection string) (map[string]Doc, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	result := make(map[string]Doc)
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketDocuments).Bucket([]byte(collection))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			var doc Doc
			if err := json.Unmarshal(v, &doc); err != nil {
				return fmt.Errorf("decode document %s/%s: %w", collection, k, err)
			}
			result[string(k)] = doc
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *BoltStore) Get(ctx context.Context, collection, key string) (Doc, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var doc Doc
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketDocuments).Bucket([]byte(collection))
		if b == nil {
			return nil
		}
		v := b.Get([]byte(key))
		if v == nil {
			return nil
		}
		return json.Unmarshal(v, &doc)
	})
	return doc, err
}

func (s *BoltStore) Put(ctx context.Context, collection, key string, data Doc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	v, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.Bucket(bucketDocuments).CreateBucketIfNotExists([]byte(collection))
		if err != nil {
			return err
		}
		return b.Put([]byte(key), v)
	})
}

func (s *BoltStore) Delete(ctx context.Context, collection, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	var existed bool
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketDocuments).Bucket([]byte(collection))
		if b == nil || b.Get([]byte(key)) == nil {
			return nil
		}
		existed = true
		return b.Delete([]byte(key))
	})
	return existed, err
}

func (s *BoltStore) ListCollections(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var names []string
	err := s.db.View(func(tx *bolt.Tx) error {
		docs := tx.Bucket(bucketDocuments)
		return docs.ForEach(func(name, v []byte) error {
			// Nested buckets have a nil value.
			if v != nil {
				return nil
			}
			if k, _ := docs.Bucket(name).Cursor().First(); k != nil {
				names = append(names, string(name))
			}
			return nil
		})
	})
	sort.Strings(names)
	return names, err
}

func (s *BoltStore) GetSchema(ctx context.Context, collection string) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var schema map[string]any
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketSchemas).Get([]byte(collection))
		if v == nil {
			return nil
		}
		return json.Unmarshal(v, &schema)
	})
	return schema, err
}

func (s *BoltStore) PutSchema(ctx context.Context, collection string, schema map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	v, err := json.Marshal(schema)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSchemas).Put([]byte(collection), v)
	})
}

func (s *BoltStore) DeleteSchema(ctx context.Context, collection string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	var existed bool
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSchemas)
		if b.Get([]byte(collection)) == nil {
			return nil
		}
		existed = true
		return b.Delete([]byte(collection))
	})
	return existed, err
}

func (s *BoltStore) ListSchemas(ctx context.Context) (map[string]map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	result := make(map[string]map[string]any)
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSchemas).ForEach(func(k, v []byte) error {
			var schema map[string]any
			if err := json.Unmarshal(v, &schema); err != nil {
				return fmt.Errorf("decode schema %s: %w", k, err)
			}
			result[string(k)] = schema
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
