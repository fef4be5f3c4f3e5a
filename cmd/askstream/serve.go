package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/liliang-cn/askstream/internal/api"
	"github.com/liliang-cn/askstream/internal/api/middleware"
	"github.com/liliang-cn/askstream/internal/domain"
	"github.com/liliang-cn/askstream/internal/metrics"
	"github.com/liliang-cn/askstream/internal/repository"
	"github.com/liliang-cn/askstream/internal/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the development stream server",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	// Initialize database (sites, conversations, messages)
	db, err := repository.NewDB(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// Initialize repositories
	siteRepo := repository.NewSiteRepository(db)
	conversationRepo := repository.NewConversationRepository(db)

	// Initialize services
	widgetService := service.NewWidgetService(cfg.Server.BaseURL, siteRepo)
	sites := cfg.Sites
	if len(sites) == 0 {
		sites = []domain.Site{{Token: cfg.Client.Token, Name: "Demo"}}
	}
	if err := widgetService.RegisterSites(sites); err != nil {
		return err
	}

	streamService := service.NewStreamService(
		siteRepo,
		conversationRepo,
		service.NewScriptedResponder(cfg.Responder),
		logger,
		m,
	)

	var limiter *middleware.RateLimiter
	if cfg.RateLimit.Enabled {
		limiter = middleware.NewRateLimiter(cfg.RateLimit.RequestsPerHour, cfg.RateLimit.Burst)
	}

	// Setup router
	router := api.SetupRouter(widgetService, streamService, api.RouterConfig{
		APIKey:       cfg.Server.APIKey,
		AllowOrigins: cfg.Server.AllowOrigins,
		RateLimiter:  limiter,
		Gatherer:     reg,
		Logger:       logger,
	})

	// Streams stay open for the whole answer, so there is no write timeout
	srv := &http.Server{
		Addr:              cfg.Address(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting askstream server",
			zap.String("address", cfg.Address()),
			zap.String("base_url", cfg.Server.BaseURL),
			zap.Int("sites", len(sites)),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server...")

		// Graceful shutdown
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server stopped with error", zap.Error(err))
		return err
	}
	logger.Info("Server exited")
	return nil
}
