package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BaSui01/pricescout/agent"
	"github.com/BaSui01/pricescout/api/handlers"
	"github.com/BaSui01/pricescout/browser"
	"github.com/BaSui01/pricescout/config"
	"github.com/BaSui01/pricescout/guard"
	"github.com/BaSui01/pricescout/internal/metrics"
	"github.com/BaSui01/pricescout/orchestrator"
	"github.com/BaSui01/pricescout/parser"
	"github.com/BaSui01/pricescout/planner"
	"github.com/BaSui01/pricescout/retry"
	"github.com/BaSui01/pricescout/sink"
	"github.com/BaSui01/pricescout/types"
)

// Server wires the full pipeline behind the HTTP and metrics endpoints.
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	httpServer    *http.Server
	metricsServer *http.Server
	history       *sink.HistoryStore
}

// NewServer builds the pipeline from configuration.
func NewServer(cfg *config.Config, logger *zap.Logger) (*Server, error) {
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	sites, err := config.LoadSites(cfg.Execution.SitesPath)
	if err != nil {
		return nil, fmt.Errorf("load site table: %w", err)
	}

	fileSink, err := sink.NewFileSink(cfg.Sink.DataDir, logger)
	if err != nil {
		return nil, fmt.Errorf("init sink: %w", err)
	}

	var history *sink.HistoryStore
	if cfg.Sink.HistoryDB != "" {
		history, err = sink.NewHistoryStore(cfg.Sink.HistoryDB, logger)
		if err != nil {
			return nil, fmt.Errorf("init history store: %w", err)
		}
	}

	factory := browser.NewChromeFactory(browser.Config{
		Headless:       cfg.Execution.Headless,
		ViewportWidth:  cfg.Execution.ViewportWidth,
		ViewportHeight: cfg.Execution.ViewportHeight,
		NavTimeout:     cfg.Execution.NavTimeout,
		TypeDelay:      browser.DefaultConfig().TypeDelay,
	}, logger)

	strategy, err := buildStrategy(cfg, factory, sites, fileSink, collector, logger)
	if err != nil {
		return nil, err
	}

	orcOpts := orchestrator.Options{
		Parser:      buildParser(cfg, logger),
		Guard:       guard.New(cfg.Guard, config.SiteKeys(sites)),
		Strategy:    strategy,
		Sink:        fileSink,
		Metrics:     collector,
		Logger:      logger,
		TaskTimeout: cfg.Server.TaskTimeout,
	}
	if history != nil {
		orcOpts.History = history
	}
	orc := orchestrator.New(orcOpts)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:      handlers.NewRouter(orc, Version, logger),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.MetricsPort),
		Handler: metricsMux,
	}

	return &Server{
		cfg:           cfg,
		logger:        logger,
		httpServer:    httpServer,
		metricsServer: metricsServer,
		history:       history,
	}, nil
}

func buildParser(cfg *config.Config, logger *zap.Logger) parser.IntentParser {
	if cfg.Parser.Mode == "offline" {
		return parser.NewOfflineParser()
	}
	return parser.NewLLMParser(parser.LLMConfig{
		BaseURL: cfg.Parser.BaseURL,
		APIKey:  cfg.Parser.APIKey,
		Model:   cfg.Parser.Model,
		Timeout: cfg.Parser.Timeout,
	}, logger)
}

func buildStrategy(cfg *config.Config, factory browser.Factory, sites map[string]config.SiteConfig, shots agent.ScreenshotSaver, collector *metrics.Collector, logger *zap.Logger) (agent.Strategy, error) {
	switch cfg.Execution.Strategy {
	case config.StrategyDeterministic:
		return agent.NewDeterministic(factory, sites, cfg.Execution.SettleDelay, shots, logger), nil

	case config.StrategyDirected:
		var client planner.Client = planner.NewGeminiClient(planner.Config{
			BaseURL: cfg.Planner.BaseURL,
			APIKey:  cfg.Planner.APIKey,
			Model:   cfg.Planner.Model,
			Timeout: cfg.Planner.Timeout,
		}, logger)
		client = &instrumentedPlanner{inner: client, collector: collector}

		policy := retry.DefaultPolicy()
		policy.MaxRetries = cfg.Planner.MaxRetries
		policy.InitialDelay = cfg.Planner.InitialDelay
		policy.Retryable = planner.IsRetryable
		policy.OnRetry = func(int, error, time.Duration) { collector.PlannerRetry() }
		retryer := retry.NewBackoffRetryer(policy, logger)

		directedCfg := agent.DirectedConfig{
			MaxTurns: cfg.Execution.MaxTurns,
			Settle:   cfg.Execution.SettleDelay,
		}
		return agent.NewDirected(factory, client, retryer, directedCfg, shots, logger), nil

	default:
		return nil, fmt.Errorf("unknown execution strategy %q", cfg.Execution.Strategy)
	}
}

// instrumentedPlanner counts planning calls.
type instrumentedPlanner struct {
	inner     planner.Client
	collector *metrics.Collector
}

func (p *instrumentedPlanner) NextTurn(ctx context.Context, conv *types.Conversation) (*planner.Decision, error) {
	p.collector.PlannerCall()
	return p.inner.NextTurn(ctx, conv)
}

// Run starts the HTTP and metrics servers and blocks until a shutdown
// signal arrives or a server fails.
func (s *Server) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("http server listening", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		s.logger.Info("metrics server listening", zap.String("addr", s.metricsServer.Addr))
		if err := s.metricsServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		s.logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("http shutdown", zap.Error(err))
		}
		if err := s.metricsServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("metrics shutdown", zap.Error(err))
		}
		if s.history != nil {
			if err := s.history.Close(); err != nil {
				s.logger.Warn("history close", zap.Error(err))
			}
		}
		return nil
	})

	return g.Wait()
}
