package transport

import (
	"fmt"
	"net/http"
)

// HTTPChunkWriter streams chunks on an HTTP response, flushing each one.
type HTTPChunkWriter struct {
	w         http.ResponseWriter
	rc        *http.ResponseController
	committed bool
}

// NewHTTPChunkWriter wraps w. The response is committed by SetContentType or
// the first chunk.
func NewHTTPChunkWriter(w http.ResponseWriter) *HTTPChunkWriter {
	return &HTTPChunkWriter{w: w, rc: http.NewResponseController(w)}
}

func (t *HTTPChunkWriter) SetContentType(contentType string) error {
	if t.committed {
		return fmt.Errorf("set content type: response already committed")
	}
	h := t.w.Header()
	h.Set("Content-Type", contentType)
	h.Set("Cache-Control", "no-cache, no-store, must-revalidate")
	h.Set("X-Content-Type-Options", "nosniff")
	t.w.WriteHeader(http.StatusOK)
	t.committed = true
	return t.flush()
}

func (t *HTTPChunkWriter) SendChunk(p []byte) error {
	t.committed = true
	if _, err := t.w.Write(p); err != nil {
		return fmt.Errorf("send chunk: %w", err)
	}
	return t.flush()
}

func (t *HTTPChunkWriter) flush() error {
	if err := t.rc.Flush(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	return nil
}
