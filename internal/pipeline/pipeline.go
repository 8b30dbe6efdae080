package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/sanspareilsmyn/latencymap/internal/config"
	"github.com/sanspareilsmyn/latencymap/internal/heatmap"
	"github.com/sanspareilsmyn/latencymap/internal/record"
	"github.com/sanspareilsmyn/latencymap/internal/render"
)

const (
	debugLogRecords      = 2
	debugDumpFrequencies = 3
	debugDumpIntensities = 4
)

// Session runs the read, compute, draw loop over one input stream.
// It owns the window and the resolved bucket range; nothing is shared with other goroutines.
type Session struct {
	display    config.DisplayConfig
	calculator *Calculator
	renderer   *render.Renderer
	metrics    *Metrics
	logger     *zap.Logger
}

// New wires a session. metrics may be nil.
func New(display config.DisplayConfig, renderer *render.Renderer, metrics *Metrics, logger *zap.Logger) *Session {
	logger.Debug("Creating session",
		zap.Int("num_records", display.NumRecords),
		zap.Int("min_bucket", display.MinBucket),
		zap.Int("max_bucket", display.MaxBucket),
		zap.String("latency_unit", display.LatencyUnit),
		zap.Int("debug_level", display.DebugLevel),
	)
	return &Session{
		display:    display,
		calculator: NewCalculator(logger.Named("calculator")),
		renderer:   renderer,
		metrics:    metrics,
		logger:     logger.Named("session"),
	}
}

// Run draws one frame per record read from in. It returns nil when the stream ends
// between records, when the output is closed by the reader on the other end, or when
// ctx is cancelled. Any other error, a protocol violation included, ends the session.
func (s *Session) Run(ctx context.Context, in io.Reader) error {
	sugar := s.logger.Sugar()
	reader := record.NewReader(in, s.logger.Named("reader"))
	window := heatmap.NewWindow(s.display.NumRecords)
	unit := record.LatencyUnit(s.display.LatencyUnit)

	var rng *heatmap.BucketRange
	prev := &record.RawRecord{}

	for {
		if ctx.Err() != nil {
			sugar.Debugw("Context cancelled, stopping session", "samples", window.Samples())
			return nil
		}

		cur, err := reader.Next()
		if errors.Is(err, io.EOF) {
			sugar.Infow("Input stream ended", "samples", window.Samples())
			return nil
		}
		if err != nil {
			if errors.Is(err, record.ErrProtocolViolation) {
				s.observeViolation()
			}
			return err
		}
		if s.metrics != nil {
			s.metrics.ObserveRecord()
		}
		if s.display.DebugLevel >= debugLogRecords {
			s.logger.Debug("Record read", zap.Stringer("record", cur))
		}
		if cur.Unit != "" {
			unit = cur.Unit
		}

		var column heatmap.EnrichedRecord
		if rng == nil {
			resolved, err := s.calculator.Autotune(s.display, unit)
			if err != nil {
				return err
			}
			rng = &resolved
			if s.metrics != nil {
				s.metrics.ObserveRange(resolved)
			}
			column = s.calculator.First(cur, resolved)
		} else {
			column, err = s.calculator.Compute(cur, prev, *rng)
			if err != nil {
				if errors.Is(err, record.ErrProtocolViolation) {
					s.observeViolation()
				}
				return fmt.Errorf("%w: %w", ErrComputeFailed, err)
			}
		}
		prev = cur
		window.Append(column)

		if err := s.draw(window, *rng, unit); err != nil {
			if errors.Is(err, syscall.EPIPE) {
				sugar.Infow("Output closed by downstream reader, stopping", "samples", window.Samples())
				return nil
			}
			return fmt.Errorf("%w: %w", ErrRenderFailed, err)
		}
		if s.metrics != nil {
			s.metrics.ObserveFrame(window)
		}

		if err := sleepContext(ctx, s.display.Delay()); err != nil {
			return nil
		}
	}
}

func (s *Session) draw(window *heatmap.Window, rng heatmap.BucketRange, unit record.LatencyUnit) error {
	if err := s.renderer.Render(render.Frame{Window: window, Range: rng, Unit: unit}); err != nil {
		return err
	}
	if s.display.DebugLevel >= debugDumpFrequencies {
		if err := s.renderer.Dump(window, heatmap.Frequency); err != nil {
			return err
		}
	}
	if s.display.DebugLevel >= debugDumpIntensities {
		if err := s.renderer.Dump(window, heatmap.Intensity); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) observeViolation() {
	if s.metrics != nil {
		s.metrics.ObserveViolation()
	}
}

// sleepContext waits for d or until ctx is done, whichever comes first.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
