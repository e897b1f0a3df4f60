package driftbox

import (
	"context"
	"io"
	"sync"

	"github.com/pkg/errors"
	yall "yall.in"
)

// ReadChunkSize is the amount of content a single Read copies out from
// under the content lock before flushing to the sink.
const ReadChunkSize = 16 * 1024

// Source is the producer side of an upload: a pull interface yielding
// chunks until it signals end of stream with io.EOF. Any other error is
// treated as a cancellation of the upload.
type Source interface {
	Next(ctx context.Context) ([]byte, error)
}

// SinkStatus reports whether a Sink's flush found the consumer gone.
type SinkStatus struct {
	Completed bool
	Cancelled bool
}

// Sink is the consumer side of a download: a chunked, flush-as-you-go
// write interface. Read never calls Write concurrently with itself.
type Sink interface {
	Write(ctx context.Context, p []byte) (SinkStatus, error)
}

// Slab is a single version of a file's bytes: one producer appends
// sequentially while any number of consumers read from offset zero
// forward, blocking at the append frontier until more bytes arrive or
// the Slab reaches a terminal state.
//
// A Slab's content lock (mu) is held only to touch content/complete/
// failed; it is never held across Source or Sink I/O.
type Slab struct {
	path        string
	contentType string
	generation  string

	metrics *Metrics

	mu       sync.Mutex
	cond     *sync.Cond
	content  []byte
	complete bool
	failed   bool
}

func newSlab(path, contentType, generation string, metrics *Metrics) *Slab {
	s := &Slab{
		path:        path,
		contentType: contentType,
		generation:  generation,
		metrics:     metrics,
	}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// Path returns the path this Slab was created under.
func (s *Slab) Path() string { return s.path }

// ContentType returns the content type supplied at Create.
func (s *Slab) ContentType() string { return s.contentType }

// Generation returns the opaque version token minted at Create, used by
// the Repository's sweeper to compare-and-remove the exact entry it
// scanned rather than whatever currently sits at that path.
func (s *Slab) Generation() string { return s.generation }

// Length returns the number of bytes committed so far. It never blocks.
func (s *Slab) Length() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.content)
}

// Append drains source into the Slab until it signals io.EOF (returns
// nil, settling the Slab as complete) or returns any other error
// (settles the Slab as failed and returns a wrapped error). Append must
// be called at most once per Slab.
func (s *Slab) Append(ctx context.Context, source Source) error {
	yall.FromContext(ctx).
		WithField("slab_path", s.path).
		WithField("slab_generation", s.generation).
		Debug("append started")

	sniffer := newTypeSniffer()

	for {
		chunk, err := source.Next(ctx)
		if err != nil {
			if err == io.EOF {
				return s.settle(ctx, nil, sniffer)
			}
			return s.settle(ctx, err, sniffer)
		}
		if len(chunk) == 0 {
			continue
		}

		sniffer.observe(chunk)

		s.mu.Lock()
		s.content = append(s.content, chunk...)
		s.cond.Broadcast()
		s.mu.Unlock()
	}
}

func (s *Slab) settle(ctx context.Context, cause error, sniffer *typeSniffer) error {
	logger := yall.FromContext(ctx).
		WithField("slab_path", s.path).
		WithField("slab_generation", s.generation)

	s.mu.Lock()
	if cause != nil {
		s.failed = true
	} else {
		s.complete = true
	}
	length := len(s.content)
	s.cond.Broadcast()
	s.mu.Unlock()

	if cause != nil {
		logger.WithError(cause).WithField("length", length).Info("append failed")
		if s.metrics != nil {
			s.metrics.ObserveFailedAppend()
		}
		return errors.Wrap(cause, "driftbox: append failed")
	}

	logger.WithField("length", length).Info("append complete")
	if sniffed := sniffer.matchedMIME(); sniffed != "" && sniffed != s.contentType {
		logger.
			WithField("declared_content_type", s.contentType).
			WithField("sniffed_content_type", sniffed).
			Info("declared content type does not match sniffed magic number")
	}
	return nil
}

// Read copies bytes from offset zero forward into sink until the Slab
// completes (returns nil), settles failed (returns ErrIncomplete), or
// the sink or caller context goes away (returns ErrSinkClosed).
func (s *Slab) Read(ctx context.Context, sink Sink) error {
	logger := yall.FromContext(ctx).WithField("slab_path", s.path)

	watchDone := make(chan struct{})
	defer close(watchDone)

	var cancelled bool
	go func() {
		select {
		case <-ctx.Done():
			s.mu.Lock()
			cancelled = true
			s.cond.Broadcast()
			s.mu.Unlock()
		case <-watchDone:
		}
	}()

	offset := 0
	for {
		s.mu.Lock()
		for offset == len(s.content) && !s.complete && !s.failed && !cancelled {
			s.cond.Wait()
		}

		switch {
		case cancelled:
			s.mu.Unlock()
			logger.Debug("read cancelled")
			return ErrSinkClosed

		case s.failed:
			s.mu.Unlock()
			logger.Debug("read observed failed slab")
			return ErrIncomplete

		case offset < len(s.content):
			end := offset + ReadChunkSize
			if end > len(s.content) {
				end = len(s.content)
			}
			chunk := make([]byte, end-offset)
			copy(chunk, s.content[offset:end])
			s.mu.Unlock()

			status, err := sink.Write(ctx, chunk)
			if err != nil {
				logger.WithError(err).Debug("sink write error")
				return ErrSinkClosed
			}
			if status.Cancelled || status.Completed {
				logger.Debug("sink closed during flush")
				return ErrSinkClosed
			}
			offset = end

		default: // offset == len(content) && s.complete
			s.mu.Unlock()
			return nil
		}
	}
}
