package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/akarpov/userhub/internal/logger"
	"github.com/akarpov/userhub/internal/notify"
)

// handleNotifications streams broker events to the client as
// server-sent events until the client disconnects
func handleNotifications(broker notify.Broker, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			l.Error("response writer does not support flushing, SSE not possible")
			http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		events, cancel := broker.Subscribe(r.Context())
		defer cancel()

		for {
			select {
			case <-r.Context().Done():
				return
			case event, ok := <-events:
				if !ok {
					return
				}

				data, err := json.Marshal(event)
				if err != nil {
					l.Error("can't encode event", "error", err.Error())
					continue
				}

				if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, data); err != nil {
					return
				}
				flusher.Flush()
			}
		}
	})
}
