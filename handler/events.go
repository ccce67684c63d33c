package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const (
	eventSnapshot = "snapshot"
	eventError    = "error"
)

// heartbeatInterval spaces the comment lines that keep idle streams open
// through proxies.
var heartbeatInterval = 15 * time.Second

// sender queues one server-sent event for the client.
type sender func(event string, v any)

func errorBody(err error) map[string]string {
	return map[string]string{"detail": err.Error()}
}

// stream serves a server-sent event stream. subscribe opens the
// subscription that feeds it and returns its cancel function, which runs
// once the client goes away.
func (h *Handler) stream(w http.ResponseWriter, r *http.Request, subscribe func(send sender) func()) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	type event struct {
		name string
		data []byte
	}
	ctx, cancel := context.WithCancel(r.Context())
	events := make(chan event, 16)
	send := func(name string, v any) {
		data, err := json.Marshal(v)
		if err != nil {
			h.logger.Error("encoding event failed", "event", name, "error", err)
			return
		}
		select {
		case events <- event{name: name, data: data}:
		case <-ctx.Done():
		}
	}

	unsubscribe := subscribe(send)
	defer func() {
		// Release a callback blocked in send before waiting for it.
		cancel()
		unsubscribe()
		h.logger.Debug("event stream closed", "path", r.URL.Path)
	}()
	h.logger.Debug("event stream opened", "path", r.URL.Path)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.name, ev.data); err != nil {
				return
			}
			flusher.Flush()
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
