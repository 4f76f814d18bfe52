package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Dan9191/loanflow/internal/auth"
	"github.com/Dan9191/loanflow/internal/config"
	"github.com/Dan9191/loanflow/internal/database"
	"github.com/Dan9191/loanflow/internal/handler"
	"github.com/Dan9191/loanflow/internal/integrations/cbr"
	"github.com/Dan9191/loanflow/internal/jobs"
	"github.com/Dan9191/loanflow/internal/metrics"
	"github.com/Dan9191/loanflow/internal/middleware"
	"github.com/Dan9191/loanflow/internal/notify"
	"github.com/Dan9191/loanflow/internal/repository"
	"github.com/Dan9191/loanflow/internal/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const (
	shutdownTimeout      = 15 * time.Second
	limiterCleanupPeriod = 5 * time.Minute
)

var skipMigrations bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()

		cfg, err := config.NewConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg, logger)
	},
}

func init() {
	serveCmd.Flags().BoolVar(&skipMigrations, "skip-migrations", false, "do not apply migrations on startup")
	rootCmd.AddCommand(serveCmd)
}

func serve(ctx context.Context, cfg *config.Config, logger *logrus.Logger) error {
	if !skipMigrations {
		if err := database.RunMigrations(cfg.DBConn); err != nil {
			return err
		}
	}

	// Initialize database
	db, err := database.Open(ctx, cfg.DBConn)
	if err != nil {
		return err
	}
	defer db.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rec := metrics.NewCollector(reg)

	tokens, err := auth.NewTokenManager([]byte(cfg.JWTSecret), cfg.TokenTTL)
	if err != nil {
		return err
	}

	// Initialize layers
	repo := repository.NewRepository(db)
	authSvc := service.NewAuthService(repo, auth.NewBcryptHasher(cfg.BcryptCost), tokens, logger, rec, cfg.DefaultRole)
	loanSvc := service.NewLoanService(repo, logger, rec, cfg.HMACSecret)
	adminSvc := service.NewAdminService(repo, repo, logger)

	var rates handler.KeyRateSource
	if cfg.CBRURL != "" {
		rates = cbr.NewClient(cfg.CBRURL, logger)
	}

	limiter := middleware.NewLoginLimiter(cfg.LoginRatePerMin, limiterCleanupPeriod, logger)
	defer limiter.Stop()

	h := handler.NewHandler(authSvc, loanSvc, adminSvc, rates, logger)
	router := handler.NewRouter(h, handler.RouterConfig{
		Authenticator: authSvc,
		LoginLimit:    limiter.Middleware,
		Metrics:       metrics.Handler(reg),
		Log:           logger,
	})

	scheduler := jobs.NewScheduler(logger)
	if cfg.SummaryEnabled() {
		sender := notify.NewSender(notify.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SenderEmail,
		}, logger)
		job := jobs.NewSummaryJob(adminSvc, rates, sender, splitList(cfg.ReportEmail), logger)
		if err := scheduler.Schedule(cfg.SummaryCron, "portfolio-summary", job.Run); err != nil {
			return err
		}
	} else {
		logger.Info("Daily summary disabled: SMTP_HOST or REPORT_EMAIL not set")
	}
	scheduler.Start()

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("Starting server on %s", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	scheduler.Stop(shutdownCtx)
	return server.Shutdown(shutdownCtx)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
