package driftbox

import (
	"context"
	"io"
)

// ReaderSource adapts a plain io.Reader into a Source, pulling up to
// ReadChunkSize bytes per call to Next. It is shared by the core's own
// tests and by httpapi's request-body adapter.
type ReaderSource struct {
	r       io.Reader
	buf     []byte
	pending error
}

// NewReaderSource wraps r as a Source.
func NewReaderSource(r io.Reader) *ReaderSource {
	return &ReaderSource{r: r, buf: make([]byte, ReadChunkSize)}
}

func (s *ReaderSource) Next(ctx context.Context) ([]byte, error) {
	if s.pending != nil {
		err := s.pending
		s.pending = nil
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	n, err := s.r.Read(s.buf)
	if n > 0 {
		chunk := make([]byte, n)
		copy(chunk, s.buf[:n])
		s.pending = err
		return chunk, nil
	}
	return nil, err
}

// WriterSink adapts a plain io.Writer into a Sink. It never reports
// Completed/Cancelled on its own, beyond honoring ctx cancellation.
type WriterSink struct {
	w io.Writer
}

// NewWriterSink wraps w as a Sink.
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

func (s *WriterSink) Write(ctx context.Context, p []byte) (SinkStatus, error) {
	if err := ctx.Err(); err != nil {
		return SinkStatus{Cancelled: true}, nil
	}
	if _, err := s.w.Write(p); err != nil {
		return SinkStatus{}, err
	}
	return SinkStatus{}, nil
}
