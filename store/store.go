// Package store defines the backing document store and its implementations.
//
// A Store is a passive keyed document map grouped into named collections.
// Client layers the document-database surface the rest of the server uses
// on top of any Store: generated ids, equality queries, merge updates and
// live snapshot listeners.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when a write targets a document that does not exist.
var ErrNotFound = errors.New("document not found")

// Doc is a stored document body.
type Doc = map[string]any

// Store is the interface that all backing stores must implement.
// It operates on named collections, where each collection contains
// documents keyed by a string identifier.
type Store interface {
	// GetAll returns every document in a collection as a map of key -> document.
	GetAll(ctx context.Context, collection string) (map[string]Doc, error)

	// Get returns a single document by key, or nil if not found.
	Get(ctx context.Context, collection, key string) (Doc, error)

	// Put inserts or replaces a document.
	Put(ctx context.Context, collection, key string, data Doc) error

	// Delete removes a document. Returns true if it existed.
	Delete(ctx context.Context, collection, key string) (bool, error)

	// ListCollections returns the names of all collections that contain data.
	ListCollections(ctx context.Context) ([]string, error)

	// GetSchema returns the JSON Schema registered for a collection, or nil.
	GetSchema(ctx context.Context, collection string) (map[string]any, error)

	// PutSchema registers a JSON Schema for a collection.
	PutSchema(ctx context.Context, collection string, schema map[string]any) error

	// DeleteSchema removes the schema for a collection. Returns true if it existed.
	DeleteSchema(ctx context.Context, collection string) (bool, error)

	// ListSchemas returns all schemas as collection_name -> schema.
	ListSchemas(ctx context.Context) (map[string]map[string]any, error)

	// Close releases the backend's resources.
	Close() error
}

// ValidateCollectionName rejects names that cannot double as a file name
// or bucket name: empty, dot- or underscore-prefixed, or containing a path
// separator.
func ValidateCollectionName(name string) error {
	switch {
	case name == "":
		return errors.New("collection name is empty")
	case name[0] == '.' || name[0] == '_':
		return fmt.Errorf("collection name %q must not start with %q", name, name[:1])
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("collection name %q must not contain a path separator", name)
	}
	return nil
}
