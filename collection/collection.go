// Package collection binds a record Shape to a named collection of a
// backing document store.
//
// Every document read back is validated against the shape plus its id, and
// every write is validated before it reaches the store. Live reads degrade
// per document: invalid documents are reported and dropped while the valid
// ones are still delivered. One-shot reads are all-or-nothing.
package collection

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/stevemurr/todo-sync-server/schema"
	"github.com/stevemurr/todo-sync-server/store"
)

// Backend is the part of the document store a Collection needs.
// *store.Client implements it.
type Backend interface {
	NewID() string
	Query(ctx context.Context, collection string, filters ...store.Filter) ([]store.Snapshot, error)
	Get(ctx context.Context, collection, id string) (*store.Snapshot, error)
	Set(ctx context.Context, collection, id string, data store.Doc) error
	Update(ctx context.Context, collection, id string, fields store.Doc) error
	Delete(ctx context.Context, collection, id string) error
	OnSnapshot(collection string, filters []store.Filter, onNext func([]store.Snapshot), onError func(error)) func()
	OnDocSnapshot(collection, id string, onNext func(*store.Snapshot), onError func(error)) func()
}

// Document is a validated record and the id the store assigned it.
type Document struct {
	ID   string
	Data schema.Record
}

// MarshalJSON flattens the document into {"id": ..., <fields>}.
func (d Document) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(d.Data)+1)
	for k, v := range d.Data {
		m[k] = v
	}
	m[schema.IDField] = d.ID
	return json.Marshal(m)
}

// Collection is the validated adapter over one collection.
type Collection struct {
	backend Backend
	name    string
	shape   *schema.Shape
	withID  *schema.Shape
	logger  *slog.Logger

	mu   sync.Mutex
	seq  uint64
	subs map[uint64]func()
}

// Option configures a Collection.
type Option func(*Collection)

// WithLogger sets the logger that receives skipped-document warnings.
func WithLogger(l *slog.Logger) Option {
	return func(c *Collection) { c.logger = l }
}

// New binds shape to the named collection of backend.
func New(backend Backend, name string, shape *schema.Shape, opts ...Option) *Collection {
	c := &Collection{
		backend: backend,
		name:    name,
		shape:   shape,
		withID:  shape.WithID(),
		logger:  slog.Default(),
		subs:    make(map[uint64]func()),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the collection name.
func (c *Collection) Name() string { return c.name }

// Shape returns the record shape, without the id field.
func (c *Collection) Shape() *schema.Shape { return c.shape }

// Subscribe delivers the valid documents matching filters on every change.
//
// Each invalid document in a snapshot is dropped from the slice passed to
// onData and reported by its own onError call with a
// *schema.ValidationError naming it. Store failures go to onError as they
// arrive. After the returned function is called, neither callback runs
// again; calling it more than once is harmless.
func (c *Collection) Subscribe(onData func([]Document), onError func(error), filters ...store.Filter) (unsubscribe func()) {
	var stopped atomic.Bool
	cancel := c.backend.OnSnapshot(c.name, filters,
		func(snaps []store.Snapshot) {
			valid := make([]Document, 0, len(snaps))
			for _, snap := range snaps {
				doc, err := c.parse(snap)
				if err != nil {
					err = schema.Skipping(err)
					c.logger.Warn(err.Error(), "collection", c.name, "id", snap.ID)
					if stopped.Load() {
						return
					}
					onError(err)
					continue
				}
				valid = append(valid, doc)
			}
			if stopped.Load() {
				return
			}
			onData(valid)
		},
		func(err error) {
			if stopped.Load() {
				return
			}
			onError(err)
		},
	)
	return c.track(&stopped, cancel)
}

// SubscribeDoc follows one document. onData receives nil while the document
// does not exist. A revision that fails validation goes to onError instead
// of onData, leaving the caller's previous value in place.
func (c *Collection) SubscribeDoc(id string, onData func(*Document), onError func(error)) (unsubscribe func()) {
	var stopped atomic.Bool
	cancel := c.backend.OnDocSnapshot(c.name, id,
		func(snap *store.Snapshot) {
			if stopped.Load() {
				return
			}
			if snap == nil {
				onData(nil)
				return
			}
			doc, err := c.parse(*snap)
			if err != nil {
				err = schema.Skipping(err)
				c.logger.Warn(err.Error(), "collection", c.name, "id", snap.ID)
				onError(err)
				return
			}
			onData(&doc)
		},
		func(err error) {
			if stopped.Load() {
				return
			}
			onError(err)
		},
	)
	return c.track(&stopped, cancel)
}

// GetAll reads the documents matching filters once. Any invalid document
// fails the whole call with a *schema.ValidationError.
func (c *Collection) GetAll(ctx context.Context, filters ...store.Filter) ([]Document, error) {
	snaps, err := c.backend.Query(ctx, c.name, filters...)
	if err != nil {
		return nil, &OperationError{Op: "getAll", Err: err}
	}
	docs := make([]Document, 0, len(snaps))
	for _, snap := range snaps {
		doc, err := c.parse(snap)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// Get reads one document. A missing document is (nil, nil).
func (c *Collection) Get(ctx context.Context, id string) (*Document, error) {
	snap, err := c.backend.Get(ctx, c.name, id)
	if err != nil {
		return nil, &OperationError{Op: "get", Err: err}
	}
	if snap == nil {
		return nil, nil
	}
	doc, err := c.parse(*snap)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// Add validates data against the full shape and stores it under a new id.
func (c *Collection) Add(ctx context.Context, data schema.Record) (string, error) {
	rec, err := c.shape.Validate(data)
	if err != nil {
		return "", err
	}
	id := c.backend.NewID()
	if err := c.backend.Set(ctx, c.name, id, rec); err != nil {
		return "", &OperationError{Op: "add", Err: err}
	}
	return id, nil
}

// Update validates fields against the partial shape and merges them into
// document id. Fields not named are left as they are.
func (c *Collection) Update(ctx context.Context, id string, fields schema.Record) error {
	rec, err := c.shape.ValidatePartial(fields)
	if err != nil {
		return err
	}
	if err := c.backend.Update(ctx, c.name, id, rec); err != nil {
		return &OperationError{Op: "update", Err: err}
	}
	return nil
}

// Remove deletes document id. Removing a missing document succeeds.
func (c *Collection) Remove(ctx context.Context, id string) error {
	if err := c.backend.Delete(ctx, c.name, id); err != nil {
		return &OperationError{Op: "remove", Err: err}
	}
	return nil
}

// Active reports how many subscriptions are open.
func (c *Collection) Active() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subs)
}

// Close cancels every open subscription.
func (c *Collection) Close() {
	c.mu.Lock()
	cancels := make([]func(), 0, len(c.subs))
	for _, cancel := range c.subs {
		cancels = append(cancels, cancel)
	}
	c.mu.Unlock()
	for _, cancel := range cancels {
		cancel()
	}
}

// parse validates a stored document against the identified shape.
func (c *Collection) parse(snap store.Snapshot) (Document, error) {
	item := make(schema.Record, len(snap.Data)+1)
	for k, v := range snap.Data {
		item[k] = v
	}
	item[schema.IDField] = snap.ID
	rec, err := c.withID.Validate(item)
	if err != nil {
		return Document{}, schema.ForDocument(err, snap.ID)
	}
	delete(rec, schema.IDField)
	return Document{ID: snap.ID, Data: rec}, nil
}

func (c *Collection) track(stopped *atomic.Bool, cancel func()) func() {
	c.mu.Lock()
	c.seq++
	id := c.seq
	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			stopped.Store(true)
			c.mu.Lock()
			delete(c.subs, id)
			c.mu.Unlock()
			cancel()
		})
	}
	c.subs[id] = unsubscribe
	c.mu.Unlock()
	return unsubscribe
}
