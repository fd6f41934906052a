// Command joinsearch indexes a corpus of parent/child blocks and runs the
// configured join queries against it, printing the results or serving them
// over HTTP.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"GoJoin/internal/analysis"
	"GoJoin/internal/config"
	"GoJoin/internal/coordinator"
	"GoJoin/internal/corpus"
	"GoJoin/internal/engine"
	"GoJoin/internal/index"
	"GoJoin/internal/metrics"
	"GoJoin/internal/server"
	"GoJoin/internal/storage"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "", "path to config file")
	outPath := flag.String("out", "", "write query results to this file instead of stdout")
	serve := flag.Bool("serve", false, "serve the HTTP API after running the configured queries")
	flag.Parse()

	if err := run(*configPath, *outPath, *serve); err != nil {
		fmt.Fprintf(os.Stderr, "joinsearch: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, outPath string, serve bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)
	logger.Info("starting joinsearch",
		"version", Version,
		"config", configPath,
		"corpus", cfg.Index.CorpusPath,
		"queries", len(cfg.Queries),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		if m, err = metrics.New(cfg.Metrics.Namespace, reg); err != nil {
			return err
		}
	}

	reader, err := buildIndex(ctx, cfg.Index, logger)
	if err != nil {
		return err
	}
	searcher := engine.NewSearcher(reader, engine.WithLogger(logger))
	coord := coordinator.New(cfg.Search, searcher, m, logger)

	if len(cfg.Queries) > 0 {
		if err := runQueries(ctx, coord, cfg.Queries, outPath); err != nil {
			return err
		}
	}
	if !serve {
		return nil
	}
	return serveHTTP(ctx, cfg, coord, reg, logger)
}

// buildIndex loads the corpus into an in-memory index.
func buildIndex(ctx context.Context, cfg config.IndexConfig, logger *slog.Logger) (*index.Reader, error) {
	if cfg.CorpusPath == "" {
		return nil, errors.New("index.corpusPath is not set")
	}
	compression, err := corpus.ParseCompression(cfg.Compression)
	if err != nil {
		return nil, err
	}
	schema := cfg.Schema
	b, err := index.NewBuilder(&schema, analysis.NewRegistry(), index.BuilderOptions{
		MaxDocsPerSegment: cfg.MaxDocsPerSegment,
		Logger:            logger,
	})
	if err != nil {
		return nil, err
	}
	if _, err := corpus.Load(ctx, cfg.CorpusPath, corpus.Options{
		Compression: compression,
		Checksum:    cfg.Checksum,
		Logger:      logger,
	}, b); err != nil {
		return nil, err
	}
	return b.Reader(), nil
}

// runQueries runs the configured plans and writes their results. A run
// where every plan failed is an error; partial failures are in the output.
func runQueries(ctx context.Context, coord *coordinator.Coordinator, plans []coordinator.QueryPlan, outPath string) error {
	res, err := coord.Run(ctx, plans)
	if err != nil && !errors.Is(err, coordinator.ErrAllPlansFailed) {
		return err
	}
	if outPath != "" {
		if werr := storage.WriteJSON(outPath, res); werr != nil {
			return werr
		}
	} else {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if werr := enc.Encode(res); werr != nil {
			return werr
		}
	}
	return err
}

// serveHTTP serves the API, and /metrics when enabled, until ctx is done.
func serveHTTP(ctx context.Context, cfg *config.Config, coord *coordinator.Coordinator, reg *prometheus.Registry, logger *slog.Logger) error {
	mux := http.NewServeMux()
	server.NewHandler(coord, Version, logger).RegisterRoutes(mux)

	servers := []*http.Server{newServer(cfg.Server, cfg.Server.Addr, mux)}
	if cfg.Metrics.Enabled {
		if cfg.Metrics.Addr == cfg.Server.Addr {
			mux.Handle("GET /metrics", metrics.Handler(reg))
		} else {
			metricsMux := http.NewServeMux()
			metricsMux.Handle("GET /metrics", metrics.Handler(reg))
			servers = append(servers, newServer(cfg.Server, cfg.Metrics.Addr, metricsMux))
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, srv := range servers {
		g.Go(func() error {
			logger.Info("listening", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return errors.Wrapf(err, "serve %s", srv.Addr)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		var errs error
		for _, srv := range servers {
			errs = errors.CombineErrors(errs, srv.Shutdown(shutdownCtx))
		}
		logger.Info("server stopped")
		return errs
	})
	return g.Wait()
}

func newServer(cfg config.ServerConfig, addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      h,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Level)}
	if strings.EqualFold(cfg.Format, "text") {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
