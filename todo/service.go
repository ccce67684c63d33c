package todo

import (
	"context"

	"github.com/stevemurr/todo-sync-server/collection"
	"github.com/stevemurr/todo-sync-server/schema"
)

// Service exposes to-do operations over a validated collection.
type Service struct {
	col *collection.Collection
}

// NewService binds the to-do shape to the named collection of backend.
func NewService(backend collection.Backend, name string, opts ...collection.Option) *Service {
	if name == "" {
		name = CollectionName
	}
	return &Service{col: collection.New(backend, name, Shape(), opts...)}
}

// Collection returns the underlying adapter.
func (s *Service) Collection() *collection.Collection { return s.col }

// Subscribe follows the to-do items selected by filter.
func (s *Service) Subscribe(filter string, onData func([]Todo), onError func(error)) func() {
	return s.col.Subscribe(func(docs []collection.Document) {
		onData(fromDocuments(docs))
	}, onError, ConstraintsForFilter(filter)...)
}

// SubscribeTodo follows one item. onData receives nil once it is deleted.
func (s *Service) SubscribeTodo(id string, onData func(*Todo), onError func(error)) func() {
	return s.col.SubscribeDoc(id, func(doc *collection.Document) {
		if doc == nil {
			onData(nil)
			return
		}
		t := FromDocument(*doc)
		onData(&t)
	}, onError)
}

func (s *Service) List(ctx context.Context, filter string) ([]Todo, error) {
	docs, err := s.col.GetAll(ctx, ConstraintsForFilter(filter)...)
	if err != nil {
		return nil, err
	}
	return fromDocuments(docs), nil
}

// Get returns nil without an error when id does not exist.
func (s *Service) Get(ctx context.Context, id string) (*Todo, error) {
	doc, err := s.col.Get(ctx, id)
	if err != nil || doc == nil {
		return nil, err
	}
	t := FromDocument(*doc)
	return &t, nil
}

func (s *Service) Add(ctx context.Context, data schema.Record) (string, error) {
	return s.col.Add(ctx, data)
}

func (s *Service) Update(ctx context.Context, id string, fields schema.Record) error {
	return s.col.Update(ctx, id, fields)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.col.Remove(ctx, id)
}

// ToggleStatus writes the opposite of current and returns it.
func (s *Service) ToggleStatus(ctx context.Context, id string, current Status) (Status, error) {
	next := current.Toggle()
	if err := s.col.Update(ctx, id, schema.Record{"status": string(next)}); err != nil {
		return current, collection.Wrap("toggleTodoStatus", err)
	}
	return next, nil
}

// Close cancels every open subscription.
func (s *Service) Close() { s.col.Close() }

func fromDocuments(docs []collection.Document) []Todo {
	out := make([]Todo, len(docs))
	for i, d := range docs {
		out[i] = FromDocument(d)
	}
	return out
}
