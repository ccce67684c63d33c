// Package todo is the to-do list domain built on a validated collection.
package todo

import (
	"github.com/stevemurr/todo-sync-server/collection"
	"github.com/stevemurr/todo-sync-server/schema"
	"github.com/stevemurr/todo-sync-server/store"
)

// CollectionName is the default store collection for to-do items.
const CollectionName = "todos"

type Status string

const (
	StatusCompleted  Status = "completed"
	StatusIncomplete Status = "incomplete"
)

// Toggle returns the opposite status. Anything that is not completed
// toggles to completed.
func (s Status) Toggle() Status {
	if s == StatusCompleted {
		return StatusIncomplete
	}
	return StatusCompleted
}

// Todo is a stored to-do item.
type Todo struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Status      Status `json:"status"`
}

// Shape describes a to-do record as it is stored.
func Shape() *schema.Shape {
	return schema.NewShape(
		schema.Field{
			Name:      "title",
			Type:      schema.String,
			Required:  true,
			MinLength: 1,
			Message:   "Title must not be empty",
		},
		schema.Field{Name: "description", Type: schema.String},
		schema.Field{
			Name:     "status",
			Type:     schema.String,
			Required: true,
			Enum:     []string{string(StatusCompleted), string(StatusIncomplete)},
		},
	)
}

// FromDocument converts a validated document into a Todo.
func FromDocument(doc collection.Document) Todo {
	t := Todo{ID: doc.ID}
	t.Title, _ = doc.Data["title"].(string)
	t.Description, _ = doc.Data["description"].(string)
	status, _ := doc.Data["status"].(string)
	t.Status = Status(status)
	return t
}

// Record returns the stored form of t, without its id.
func (t Todo) Record() schema.Record {
	rec := schema.Record{
		"title":  t.Title,
		"status": string(t.Status),
	}
	if t.Description != "" {
		rec["description"] = t.Description
	}
	return rec
}

// ConstraintsForFilter maps a list filter to store constraints.
// "completed" and "incomplete" select by status; anything else selects all.
func ConstraintsForFilter(filter string) []store.Filter {
	switch Status(filter) {
	case StatusCompleted:
		return []store.Filter{store.Where("status", store.OpEqual, string(StatusCompleted))}
	case StatusIncomplete:
		return []store.Filter{store.Where("status", store.OpEqual, string(StatusIncomplete))}
	default:
		return nil
	}
}
