package httpapi

import (
	"context"
	"net/http"

	"github.com/driftbox/driftbox"
)

// responseSink adapts an http.ResponseWriter into a driftbox.Sink,
// flushing each chunk immediately and reporting the consumer as gone as
// soon as the request context is cancelled.
type responseSink struct {
	w       http.ResponseWriter
	flusher http.Flusher
	wrote   bool
}

func newResponseSink(w http.ResponseWriter) *responseSink {
	flusher, _ := w.(http.Flusher)
	return &responseSink{w: w, flusher: flusher}
}

func (s *responseSink) Write(ctx context.Context, p []byte) (driftbox.SinkStatus, error) {
	if err := ctx.Err(); err != nil {
		return driftbox.SinkStatus{Cancelled: true}, nil
	}

	if len(p) > 0 {
		if _, err := s.w.Write(p); err != nil {
			return driftbox.SinkStatus{}, err
		}
		s.wrote = true
	}
	if s.flusher != nil {
		s.flusher.Flush()
	}

	if err := ctx.Err(); err != nil {
		return driftbox.SinkStatus{Cancelled: true}, nil
	}
	return driftbox.SinkStatus{}, nil
}
