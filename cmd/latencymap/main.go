package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/x/term"
	"github.com/muesli/termenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/sanspareilsmyn/latencymap/internal/config"
	"github.com/sanspareilsmyn/latencymap/internal/logging"
	"github.com/sanspareilsmyn/latencymap/internal/pipeline"
	"github.com/sanspareilsmyn/latencymap/internal/render"
)

func main() {
	// A closed stdout must surface as EPIPE on write instead of killing the process.
	signal.Ignore(syscall.SIGPIPE)

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-signals
		termenv.NewOutput(os.Stdout).Reset()
		fmt.Fprintln(os.Stdout)
		os.Exit(128 + int(sig.(syscall.Signal)))
	}()

	os.Exit(run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run executes one session and returns the process exit code.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	flags := pflag.NewFlagSet("latencymap", pflag.ContinueOnError)
	flags.SetOutput(stderr)
	configFile := flags.String("config", "", "Path to an optional configuration file (yaml, toml or json).")
	config.RegisterFlags(flags)
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 1
	}

	cfg, err := config.Load(*configFile, flags)
	if err != nil {
		fmt.Fprintf(stderr, "FATAL: Failed to load configuration: %v\n", err)
		return 1
	}

	cfg.Log.Level = logging.LevelForDebug(cfg.Display.DebugLevel, cfg.Log.Level)
	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(stderr, "FATAL: Failed to initialize logger: %v\n", err)
		return 1
	}
	defer func() {
		_ = logger.Sync()
	}()

	sugar := logger.Sugar()
	sugar.Infow("Configuration loaded",
		"path", *configFile,
		"input", cfg.Input.Source,
		"num_records", cfg.Display.NumRecords,
		"debug_level", cfg.Display.DebugLevel,
	)

	warnInteractive(cfg.Input, stdin, stderr)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	in, err := pipeline.OpenInput(ctx, cfg.Input, stdin, logger.Named("input"))
	if err != nil {
		fmt.Fprintf(stderr, "ERROR: %v\n", err)
		return 1
	}
	defer in.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := pipeline.NewMetrics(reg, logger.Named("metrics"))
	if cfg.Metrics.ListenAddress != "" {
		srv := serveMetrics(cfg.Metrics.ListenAddress, reg, logger.Named("metrics"))
		defer func() {
			shutdownCtx, stop := context.WithTimeout(context.Background(), time.Second)
			defer stop()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	sink := render.NewTerminalSink(stdout, render.ProfileFor(cfg.Display.Color))
	session := pipeline.New(cfg.Display, render.NewRenderer(cfg.Display, sink), metrics, logger)

	if err := session.Run(ctx, in); err != nil {
		sink.Reset()
		_ = sink.Flush()
		sugar.Errorw("Session stopped", zap.Error(err))
		fmt.Fprintf(stderr, "ERROR: %v\n", err)
		return 1
	}

	sugar.Info("latencymap finished")
	return 0
}

// warnInteractive tells the user the program is waiting on a terminal rather than a pipe.
func warnInteractive(in config.InputConfig, stdin io.Reader, stderr io.Writer) {
	if in.Source != "stdin" {
		return
	}
	f, ok := stdin.(*os.File)
	if ok && term.IsTerminal(f.Fd()) {
		fmt.Fprintln(stderr, "latencymap: reading records from the terminal; pipe a tracer into stdin or use --input")
	}
}

func serveMetrics(addr string, reg *prometheus.Registry, logger *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("Serving metrics", zap.String("address", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server stopped", zap.Error(err))
		}
	}()
	return srv
}
