package handler

import (
	"fmt"
	"net/http"

	"github.com/stevemurr/todo-sync-server/schema"
	"github.com/stevemurr/todo-sync-server/todo"
)

func (h *Handler) listTodos(w http.ResponseWriter, r *http.Request) {
	items, err := h.todos.List(r.Context(), r.URL.Query().Get("filter"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) countTodos(w http.ResponseWriter, r *http.Request) {
	items, err := h.todos.List(r.Context(), r.URL.Query().Get("filter"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": len(items)})
}

func (h *Handler) getTodo(w http.ResponseWriter, r *http.Request) {
	h.respondTodo(w, r, r.PathValue("id"), http.StatusOK)
}

// respondTodo writes the current state of item id.
func (h *Handler) respondTodo(w http.ResponseWriter, r *http.Request, id string, status int) {
	item, err := h.todos.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if item == nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("todo %q not found", id))
		return
	}
	writeJSON(w, status, item)
}

func (h *Handler) addTodo(w http.ResponseWriter, r *http.Request) {
	var data schema.Record
	if err := readJSON(r, &data); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if data == nil {
		data = schema.Record{}
	}
	// New items start out incomplete.
	if _, ok := data["status"]; !ok {
		data["status"] = string(todo.StatusIncomplete)
	}
	id, err := h.todos.Add(r.Context(), data)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respondTodo(w, r, id, http.StatusCreated)
}

func (h *Handler) updateTodo(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var fields schema.Record
	if err := readJSON(r, &fields); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if err := h.todos.Update(r.Context(), id, fields); err != nil {
		h.fail(w, r, err)
		return
	}
	h.respondTodo(w, r, id, http.StatusOK)
}

// toggleTodo flips the status. The caller may send the status it is
// looking at as {"status": ...}; otherwise the stored one is used.
func (h *Handler) toggleTodo(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req struct {
		Status todo.Status `json:"status"`
	}
	if r.ContentLength != 0 {
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
			return
		}
	}
	current := req.Status
	if current == "" {
		item, err := h.todos.Get(r.Context(), id)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		if item == nil {
			writeError(w, http.StatusNotFound, fmt.Sprintf("todo %q not found", id))
			return
		}
		current = item.Status
	}
	next, err := h.todos.ToggleStatus(r.Context(), id, current)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id, "status": string(next)})
}

func (h *Handler) deleteTodo(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.todos.Delete(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "id": id})
}

func (h *Handler) streamTodos(w http.ResponseWriter, r *http.Request) {
	filter := r.URL.Query().Get("filter")
	h.stream(w, r, func(send sender) func() {
		return h.todos.Subscribe(filter,
			func(items []todo.Todo) { send(eventSnapshot, items) },
			func(err error) { send(eventError, errorBody(err)) },
		)
	})
}

func (h *Handler) streamTodo(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	h.stream(w, r, func(send sender) func() {
		return h.todos.SubscribeTodo(id,
			func(item *todo.Todo) { send(eventSnapshot, item) },
			func(err error) { send(eventError, errorBody(err)) },
		)
	})
}
