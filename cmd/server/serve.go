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

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"volunteerhub/internal/auth"
	"volunteerhub/internal/handlers"
	"volunteerhub/internal/log"
	"volunteerhub/internal/metrics"
	"volunteerhub/internal/notify"
	"volunteerhub/internal/services"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the reminder scheduler",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := log.WithComponent("server")

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	st, err := openStore(ctx, cfg)
	cancel()
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()
	logger.Info().Str("driver", cfg.Store.Driver).Msg("Store ready")

	// Courtesy notifications go through the async queue; reminders are sent
	// inline so each tick knows what failed.
	sender := newSender(cfg)
	async := notify.NewAsync(sender, cfg.Notify.Workers)

	var resolver services.LocationResolver
	if maps, err := services.NewMapsResolver(cfg.Maps.APIKey); err == nil {
		resolver = maps
	} else {
		logger.Warn().Err(err).Msg("Location lookup disabled")
	}

	verifiers := auth.Chain{}
	jwtVerifier, err := auth.NewJWTVerifier(cfg.Auth.JWTSecret, 24*time.Hour)
	if err != nil {
		return err
	}
	verifiers = append(verifiers, jwtVerifier)
	if cfg.Auth.GoogleClientID != "" {
		verifiers = append(verifiers, auth.NewGoogleVerifier(cfg.Auth.GoogleClientID, st))
	}

	loc, err := cfg.ReminderLocation()
	if err != nil {
		return err
	}
	h := handlers.New(
		services.NewEventService(st, async, resolver),
		services.NewRegistrationService(st, async, loc),
		services.NewAccountService(st),
		resolver,
	)

	worker, err := newReminderWorker(cfg, st, sender)
	if err != nil {
		return err
	}
	if err := worker.Start(cfg.Reminders.Schedule); err != nil {
		return err
	}

	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery(), log.GinLogger())
	if len(cfg.CORSOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}
	router.GET("/metrics", gin.WrapH(metrics.Handler()))
	h.Routes(router, verifiers)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("Shutting down")
	case runErr = <-errCh:
		logger.Error().Err(runErr).Msg("Server failed")
	}

	worker.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server shutdown failed")
	}
	async.Close()

	logger.Info().Msg("Shutdown complete")
	return runErr
}
