package handler

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"

	"github.com/stevemurr/todo-sync-server/collection"
	"github.com/stevemurr/todo-sync-server/schema"
	"github.com/stevemurr/todo-sync-server/store"
)

// errNoSchema marks a collection that has no registered schema.
type errNoSchema string

func (e errNoSchema) Error() string {
	return fmt.Sprintf("no schema for collection %q", string(e))
}

// collectionFor returns the adapter for a schema-registered collection.
// The to-do collection always resolves to the service's own adapter.
func (h *Handler) collectionFor(ctx context.Context, name string) (*collection.Collection, error) {
	if h.managed(name) {
		return h.todos.Collection(), nil
	}
	if col, ok := h.collections.Get(name); ok {
		return col, nil
	}
	raw, err := h.client.Store().GetSchema(ctx, name)
	if err != nil {
		return nil, &collection.OperationError{Op: "getSchema", Err: err}
	}
	if raw == nil {
		return nil, errNoSchema(name)
	}
	shape, err := schema.ParseShape(raw)
	if err != nil {
		return nil, fmt.Errorf("schema for collection %q: %w", name, err)
	}
	col := collection.New(h.client, name, shape, collection.WithLogger(h.logger))
	h.collections.Add(name, col)
	return col, nil
}

// withCollection resolves the {collection} path value or answers 404.
func (h *Handler) withCollection(fn func(http.ResponseWriter, *http.Request, *collection.Collection)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		col, err := h.collectionFor(r.Context(), r.PathValue("collection"))
		if err != nil {
			if _, ok := err.(errNoSchema); ok {
				writeError(w, http.StatusNotFound, err.Error())
				return
			}
			h.fail(w, r, err)
			return
		}
		fn(w, r, col)
	}
}

// filtersFromQuery turns ?field=value pairs into equality filters, typing
// each value by the field's declaration.
func filtersFromQuery(shape *schema.Shape, q url.Values) ([]store.Filter, error) {
	names := make([]string, 0, len(q))
	for name := range q {
		names = append(names, name)
	}
	sort.Strings(names)

	var filters []store.Filter
	for _, name := range names {
		f, ok := shape.Field(name)
		if !ok {
			return nil, fmt.Errorf("unknown field %q", name)
		}
		raw := q.Get(name)
		var value any = raw
		switch f.Type {
		case schema.Number, schema.Integer:
			n, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, fmt.Errorf("field %q: %q is not a number", name, raw)
			}
			value = n
		case schema.Boolean:
			b, err := strconv.ParseBool(raw)
			if err != nil {
				return nil, fmt.Errorf("field %q: %q is not a boolean", name, raw)
			}
			value = b
		}
		filters = append(filters, store.Where(name, store.OpEqual, value))
	}
	return filters, nil
}

// ---------- collection list ----------

func (h *Handler) listCollections(w http.ResponseWriter, r *http.Request) {
	names, err := h.client.Store().ListCollections(r.Context())
	if err != nil {
		h.fail(w, r, &collection.OperationError{Op: "listCollections", Err: err})
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, names)
}

// ---------- item CRUD ----------

func (h *Handler) listItems(w http.ResponseWriter, r *http.Request, col *collection.Collection) {
	filters, err := filtersFromQuery(col.Shape(), r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	docs, err := col.GetAll(r.Context(), filters...)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, docs)
}

func (h *Handler) getItem(w http.ResponseWriter, r *http.Request, col *collection.Collection) {
	h.respondItem(w, r, col, r.PathValue("id"), http.StatusOK)
}

func (h *Handler) respondItem(w http.ResponseWriter, r *http.Request, col *collection.Collection, id string, status int) {
	doc, err := col.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if doc == nil {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	writeJSON(w, status, doc)
}

func (h *Handler) addItem(w http.ResponseWriter, r *http.Request, col *collection.Collection) {
	var data schema.Record
	if err := readJSON(r, &data); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	id, err := col.Add(r.Context(), data)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respondItem(w, r, col, id, http.StatusCreated)
}

func (h *Handler) updateItem(w http.ResponseWriter, r *http.Request, col *collection.Collection) {
	id := r.PathValue("id")
	var fields schema.Record
	if err := readJSON(r, &fields); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if err := col.Update(r.Context(), id, fields); err != nil {
		h.fail(w, r, err)
		return
	}
	h.respondItem(w, r, col, id, http.StatusOK)
}

func (h *Handler) deleteItem(w http.ResponseWriter, r *http.Request, col *collection.Collection) {
	id := r.PathValue("id")
	if err := col.Remove(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "id": id})
}

// ---------- schema endpoints ----------

func (h *Handler) listSchemas(w http.ResponseWriter, r *http.Request) {
	schemas, err := h.client.Store().ListSchemas(r.Context())
	if err != nil {
		h.fail(w, r, &collection.OperationError{Op: "listSchemas", Err: err})
		return
	}
	if schemas == nil {
		schemas = map[string]map[string]any{}
	}
	writeJSON(w, http.StatusOK, schemas)
}

func (h *Handler) getSchema(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("collection")
	s, err := h.client.Store().GetSchema(r.Context(), name)
	if err != nil {
		h.fail(w, r, &collection.OperationError{Op: "getSchema", Err: err})
		return
	}
	if s == nil {
		writeError(w, http.StatusNotFound, errNoSchema(name).Error())
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// managed reports whether the server owns the collection's shape.
func (h *Handler) managed(name string) bool {
	return name == h.todos.Collection().Name()
}

func (h *Handler) putSchema(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("collection")
	if h.managed(name) {
		writeError(w, http.StatusConflict, fmt.Sprintf("schema for collection %q is managed by the server", name))
		return
	}
	if err := store.ValidateCollectionName(name); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var s map[string]any
	if err := readJSON(r, &s); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if _, err := schema.ParseShape(s); err != nil {
		writeError(w, http.StatusBadRequest, "invalid schema: "+err.Error())
		return
	}
	if err := h.client.Store().PutSchema(r.Context(), name, s); err != nil {
		h.fail(w, r, &collection.OperationError{Op: "putSchema", Err: err})
		return
	}
	h.forget(name)
	writeJSON(w, http.StatusOK, s)
}

func (h *Handler) deleteSchema(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("collection")
	if h.managed(name) {
		writeError(w, http.StatusConflict, fmt.Sprintf("schema for collection %q is managed by the server", name))
		return
	}
	existed, err := h.client.Store().DeleteSchema(r.Context(), name)
	if err != nil {
		h.fail(w, r, &collection.OperationError{Op: "deleteSchema", Err: err})
		return
	}
	h.forget(name)
	if !existed {
		writeError(w, http.StatusNotFound, errNoSchema(name).Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "collection": name})
}

// forget drops a cached adapter so the next request reads the new schema.
func (h *Handler) forget(name string) {
	if col, ok := h.collections.Peek(name); ok {
		col.Close()
	}
	h.collections.Remove(name)
}
