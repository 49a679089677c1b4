package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// setupSSEHeaders switches the response to an event stream.
// Returns false, without writing anything, when the writer cannot flush.
func setupSSEHeaders(w http.ResponseWriter) (http.Flusher, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, false
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	return flusher, true
}

// sendSSEData writes data as a single unnamed SSE message so that browser
// EventSource.onmessage receives it.
func sendSSEData(w io.Writer, flusher http.Flusher, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
		return fmt.Errorf("writing event: %w", err)
	}
	flusher.Flush()
	return nil
}
