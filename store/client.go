package store

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Snapshot is one document as read from a collection. Listeners on the
// same collection may share Data maps, so treat them as read-only.
type Snapshot struct {
	ID   string
	Data Doc
}

// Client is the document-database surface over a Store.
//
// Writes made through a Client, and the listener notifications they cause,
// are serialised, so every listener observes snapshots in write order.
// Changes made to the underlying Store by anything other than this Client
// are not observed.
type Client struct {
	store  Store
	newID  func() string
	logger *slog.Logger

	wmu sync.Mutex // serialises writes with their notifications

	mu        sync.Mutex
	seq       uint64
	listeners map[uint64]*listener
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithIDGenerator replaces the UUIDv7 generator used for new documents.
func WithIDGenerator(fn func() string) ClientOption {
	return func(c *Client) { c.newID = fn }
}

// WithLogger sets the logger used for listener diagnostics.
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) { c.logger = l }
}

// NewClient wraps s.
func NewClient(s Store, opts ...ClientOption) *Client {
	c := &Client{
		store:     s,
		newID:     func() string { return uuid.Must(uuid.NewV7()).String() },
		logger:    slog.Default(),
		listeners: make(map[uint64]*listener),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Store returns the wrapped backend.
func (c *Client) Store() Store { return c.store }

// NewID returns a fresh document id.
func (c *Client) NewID() string { return c.newID() }

// Query returns the documents in collection matching every filter, ordered
// by id. UUIDv7 ids make that creation order.
func (c *Client) Query(ctx context.Context, collection string, filters ...Filter) ([]Snapshot, error) {
	if err := checkFilters(filters); err != nil {
		return nil, err
	}
	docs, err := c.store.GetAll(ctx, collection)
	if err != nil {
		return nil, err
	}
	return selectDocs(docs, filters), nil
}

// Get returns one document, or nil if it does not exist.
func (c *Client) Get(ctx context.Context, collection, id string) (*Snapshot, error) {
	doc, err := c.store.Get(ctx, collection, id)
	if err != nil || doc == nil {
		return nil, err
	}
	return &Snapshot{ID: id, Data: doc}, nil
}

// Set creates or replaces a document.
func (c *Client) Set(ctx context.Context, collection, id string, data Doc) error {
	if err := ValidateCollectionName(collection); err != nil {
		return err
	}
	if id == "" {
		return fmt.Errorf("document id is empty")
	}
	c.wmu.Lock()
	defer c.wmu.Unlock()
	if err := c.store.Put(ctx, collection, id, data); err != nil {
		return err
	}
	c.notify(collection)
	return nil
}

// Update merges fields into an existing document. Fields not named are left
// untouched. Updating a missing document fails with ErrNotFound.
func (c *Client) Update(ctx context.Context, collection, id string, fields Doc) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	doc, err := c.store.Get(ctx, collection, id)
	if err != nil {
		return err
	}
	if doc == nil {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, collection, id)
	}
	for k, v := range fields {
		doc[k] = v
	}
	if err := c.store.Put(ctx, collection, id, doc); err != nil {
		return err
	}
	c.notify(collection)
	return nil
}

// Delete removes a document. Deleting a missing document is not an error.
func (c *Client) Delete(ctx context.Context, collection, id string) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	existed, err := c.store.Delete(ctx, collection, id)
	if err != nil {
		return err
	}
	if existed {
		c.notify(collection)
	}
	return nil
}

// OnSnapshot listens to the documents of collection matching filters.
// onNext receives the initial result set and then every changed result
// set; onError receives read failures. A result set still waiting behind
// a slow callback is replaced by the newer one. The returned function
// detaches the listener; it is idempotent and may be called from inside a
// callback.
func (c *Client) OnSnapshot(collection string, filters []Filter, onNext func([]Snapshot), onError func(error)) (unsubscribe func()) {
	fs := append([]Filter(nil), filters...)
	filterErr := checkFilters(fs)
	l := newListener(collection, func(docs map[string]Doc, err error, last any) (delivery, any, bool) {
		if filterErr != nil {
			// A bad query is reported once; it can never start matching.
			if last != nil {
				return delivery{}, last, false
			}
			return delivery{fn: func() { onError(filterErr) }}, filterErr, true
		}
		if err != nil {
			return delivery{fn: func() { onError(err) }}, nil, true
		}
		snaps := selectDocs(docs, fs)
		if last != nil && reflect.DeepEqual(last, snaps) {
			return delivery{}, last, false
		}
		return delivery{fn: func() { onNext(snaps) }, snapshot: true}, snaps, true
	})
	return c.register(l)
}

// OnDocSnapshot listens to a single document. onNext receives nil while the
// document does not exist.
func (c *Client) OnDocSnapshot(collection, id string, onNext func(*Snapshot), onError func(error)) (unsubscribe func()) {
	type docState struct{ snap *Snapshot }
	l := newListener(collection, func(docs map[string]Doc, err error, last any) (delivery, any, bool) {
		if err != nil {
			return delivery{fn: func() { onError(err) }}, nil, true
		}
		var snap *Snapshot
		if doc, ok := docs[id]; ok {
			snap = &Snapshot{ID: id, Data: doc}
		}
		cur := docState{snap}
		if last != nil && reflect.DeepEqual(last, cur) {
			return delivery{}, last, false
		}
		return delivery{fn: func() { onNext(snap) }, snapshot: true}, cur, true
	})
	return c.register(l)
}

// Close detaches every listener.
func (c *Client) Close() {
	c.mu.Lock()
	ls := make([]*listener, 0, len(c.listeners))
	for _, l := range c.listeners {
		ls = append(ls, l)
	}
	c.listeners = make(map[uint64]*listener)
	c.mu.Unlock()
	for _, l := range ls {
		l.stop()
	}
}

// Listeners reports how many listeners are attached.
func (c *Client) Listeners() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.listeners)
}

func (c *Client) register(l *listener) func() {
	c.wmu.Lock()
	c.mu.Lock()
	c.seq++
	id := c.seq
	c.listeners[id] = l
	c.mu.Unlock()
	docs, err := c.store.GetAll(context.Background(), l.collection)
	l.offer(docs, err)
	c.wmu.Unlock()

	go l.run()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.listeners, id)
			c.mu.Unlock()
			l.stop()
		})
	}
}

// notify re-reads collection once and offers the result to its listeners.
// Callers hold wmu.
func (c *Client) notify(collection string) {
	c.mu.Lock()
	var ls []*listener
	for _, l := range c.listeners {
		if l.collection == collection {
			ls = append(ls, l)
		}
	}
	c.mu.Unlock()
	if len(ls) == 0 {
		return
	}
	docs, err := c.store.GetAll(context.Background(), collection)
	if err != nil {
		c.logger.Warn("listener refresh failed", "collection", collection, "error", err)
	}
	for _, l := range ls {
		l.offer(docs, err)
	}
}

func selectDocs(docs map[string]Doc, filters []Filter) []Snapshot {
	out := make([]Snapshot, 0, len(docs))
	for id, doc := range docs {
		if matchAll(doc, filters) {
			out = append(out, Snapshot{ID: id, Data: doc})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
