package stream

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/liliang-cn/askstream/internal/domain"
	"github.com/liliang-cn/askstream/internal/metrics"
	"go.uber.org/zap"
)

const defaultChunkSize = 4096

// Handler receives each classified frame in arrival order. Returning an
// error stops reading.
type Handler func(frame domain.Frame) error

// Reader pulls chunks from a response body, splits them into lines and
// hands protocol frames to a Handler.
type Reader struct {
	logger    *zap.Logger
	metrics   *metrics.Metrics
	chunkSize int
}

// Option configures a Reader
type Option func(*Reader)

// WithLogger sets the logger used for frame diagnostics
func WithLogger(logger *zap.Logger) Option {
	return func(r *Reader) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithMetrics sets the collectors updated per frame
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Reader) {
		r.metrics = m
	}
}

// WithChunkSize sets the read buffer size
func WithChunkSize(n int) Option {
	return func(r *Reader) {
		if n > 0 {
			r.chunkSize = n
		}
	}
}

// NewReader creates a frame reader
func NewReader(opts ...Option) *Reader {
	r := &Reader{
		logger:    zap.NewNop(),
		chunkSize: defaultChunkSize,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Read consumes src until EOF, a terminal frame, a handler error or
// cancellation of ctx. Cancellation is checked before every chunk read and
// every line, and returned as ctx.Err(). Reaching EOF without a terminal frame is not an
// error.
func (r *Reader) Read(ctx context.Context, src io.Reader, handle Handler) error {
	decoder := NewLineDecoder()
	buf := make([]byte, r.chunkSize)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, readErr := src.Read(buf)
		if n > 0 {
			for _, line := range decoder.Feed(buf[:n]) {
				if err := ctx.Err(); err != nil {
					return err
				}
				done, err := r.dispatch(line, handle)
				if err != nil {
					return err
				}
				if done {
					return nil
				}
			}
		}

		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				if dropped := decoder.Finish(); dropped > 0 {
					r.metrics.ResidualDropped(dropped)
					r.logger.Debug("Discarded unterminated trailing line", zap.Int("bytes", dropped))
				}
				return nil
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return fmt.Errorf("failed to read stream: %w", readErr)
		}
	}
}

func (r *Reader) dispatch(line string, handle Handler) (bool, error) {
	frame, ok, err := Classify(line)
	if err != nil {
		r.metrics.FrameMalformed()
		r.logger.Warn("Dropping malformed frame", zap.String("line", line), zap.Error(err))
		return false, nil
	}
	if !ok {
		return false, nil
	}

	r.metrics.FrameDecoded(string(frame.Type))
	if err := handle(frame); err != nil {
		return false, err
	}
	return frame.IsTerminal(), nil
}
