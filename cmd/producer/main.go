package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/sanspareilsmyn/latencymap/internal/config"
	"github.com/sanspareilsmyn/latencymap/internal/logging"
)

type options struct {
	brokers  []string
	topic    string
	interval time.Duration
	count    int
	rate     int
	source   string
	unit     string
	label    string
	meanExp  float64
	spread   float64
	seed     int64
}

func main() {
	signal.Ignore(syscall.SIGPIPE)

	opts, err := parseOptions(os.Args[1:])
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger(config.LogConfig{Level: "info", Format: "console"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var emit func(ctx context.Context, rec string) error
	if len(opts.brokers) > 0 {
		writer := &kafka.Writer{
			Addr:     kafka.TCP(opts.brokers...),
			Topic:    opts.topic,
			Balancer: &kafka.LeastBytes{},
		}
		defer func() {
			if err := writer.Close(); err != nil {
				logger.Error("Error closing kafka writer", zap.Error(err))
			}
		}()
		logger.Info("Producing records to Kafka", zap.Strings("brokers", opts.brokers), zap.String("topic", opts.topic))
		emit = func(ctx context.Context, rec string) error {
			return writer.WriteMessages(ctx, kafka.Message{Value: []byte(rec)})
		}
	} else {
		emit = writeTo(os.Stdout)
	}

	if err := produce(ctx, opts, emit, logger); err != nil {
		logger.Error("Producer stopped", zap.Error(err))
		os.Exit(1)
	}
}

func parseOptions(args []string) (options, error) {
	var o options
	fs := pflag.NewFlagSet("producer", pflag.ContinueOnError)
	fs.StringSliceVar(&o.brokers, "brokers", nil, "Kafka brokers; records go to stdout when empty.")
	fs.StringVar(&o.topic, "topic", "latency-records", "Kafka topic.")
	fs.DurationVar(&o.interval, "interval", time.Second, "Time between records.")
	fs.IntVar(&o.count, "count", 0, "Number of records to emit; 0 runs until interrupted.")
	fs.IntVar(&o.rate, "rate", 500, "Synthetic events per interval.")
	fs.StringVar(&o.source, "datasource", "bpf", "Data source tag: oracle, bpf, systemtap, dtrace.")
	fs.StringVar(&o.unit, "latency_unit", "microsec", "Latency unit tag: millisec, microsec, nanosec.")
	fs.StringVar(&o.label, "label", "synthetic", "Record label.")
	fs.Float64Var(&o.meanExp, "mean_exponent", 9, "Mean log2 latency of events, in latency_unit.")
	fs.Float64Var(&o.spread, "spread", 1.5, "Standard deviation of the log2 latency.")
	fs.Int64Var(&o.seed, "seed", time.Now().UnixNano(), "Random seed.")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if len(o.brokers) > 0 && o.topic == "" {
		return o, errors.New("--topic is required with --brokers")
	}
	return o, nil
}

// writeTo emits records as plain text to w.
func writeTo(w io.Writer) func(context.Context, string) error {
	return func(_ context.Context, rec string) error {
		_, err := io.WriteString(w, rec)
		return err
	}
}

// produce emits one record per interval until count is reached or ctx is done.
// A closed stdout or a cancelled context is a normal stop.
func produce(ctx context.Context, o options, emit func(context.Context, string) error, logger *zap.Logger) error {
	g := newGenerator(o.seed, o.source, o.unit, o.label, o.meanExp, o.spread)

	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()

	for n := 0; o.count == 0 || n < o.count; n++ {
		if n > 0 {
			select {
			case <-ctx.Done():
				logger.Info("Producer loop stopped")
				return nil
			case <-ticker.C:
			}
		}

		g.observe(o.rate)
		if err := emit(ctx, g.record(time.Now())); err != nil {
			if ctx.Err() != nil || errors.Is(err, syscall.EPIPE) {
				return nil
			}
			return err
		}
		logger.Debug("Produced record", zap.Int("sequence", n))
	}
	return nil
}
