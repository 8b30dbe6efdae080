package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/sanspareilsmyn/latencymap/internal/config"
)

// OpenInput returns the line stream selected by cfg. stdin is used for the "stdin" source
// and is never closed. For Kafka a consumer goroutine feeds a pipe until ctx is done
// or the returned reader is closed.
func OpenInput(ctx context.Context, cfg config.InputConfig, stdin io.Reader, logger *zap.Logger) (io.ReadCloser, error) {
	switch cfg.Source {
	case "", "stdin":
		return io.NopCloser(stdin), nil
	case "file":
		f, err := os.Open(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrOpenInputFailed, err)
		}
		logger.Info("Reading records from file", zap.String("path", cfg.Path))
		return f, nil
	case "kafka":
		consumer, err := NewConsumer(cfg.Kafka, logger.Named("consumer"))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrOpenInputFailed, err)
		}
		return pipeFrom(ctx, consumer), nil
	}
	return nil, fmt.Errorf("%w: unknown source %q", ErrOpenInputFailed, cfg.Source)
}

// pipeFrom runs c in the background and returns the read end of its stream.
// A consumer error surfaces as a read error.
func pipeFrom(ctx context.Context, c *Consumer) io.ReadCloser {
	pr, pw := io.Pipe()
	go func() {
		pw.CloseWithError(c.Run(ctx, pw))
	}()
	return pr
}
