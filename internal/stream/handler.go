package stream

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/junsooki/RCSumo/internal/logging"
	"github.com/junsooki/RCSumo/internal/transport"
)

// ServeHTTP streams MJPEG on the response. Only one stream runs at a time;
// further requests get 503 until it ends.
func (s *Streamer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := logging.ContextWithStreamID(r.Context(), uuid.NewString())
	err := s.Run(ctx, transport.NewHTTPChunkWriter(w))
	switch {
	case errors.Is(err, ErrBusy):
		w.Header().Set("Retry-After", "1")
		http.Error(w, "stream busy", http.StatusServiceUnavailable)
	case err != nil:
		// Headers are already committed; the body simply ends.
		logging.WithContext(ctx, s.logger).Debug("closing stream response", "error", err)
	}
}
