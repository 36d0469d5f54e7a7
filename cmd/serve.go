package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/International-Combat-Archery-Alliance/event-ticketing/api"
	"github.com/International-Combat-Archery-Alliance/event-ticketing/authtoken"
	"github.com/International-Combat-Archery-Alliance/event-ticketing/registration"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("host", "", "interface to listen on")
	serveCmd.Flags().String("port", "", "port to listen on")

	_ = v.BindPFlag("host", serveCmd.Flags().Lookup("host"))
	_ = v.BindPFlag("port", serveCmd.Flags().Lookup("port"))
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	secret, err := tokenSecret(ctx)
	if err != nil {
		return err
	}
	tokens, err := authtoken.NewIssuer(secret, authtoken.WithTTL(cfg.Auth.TokenTTL))
	if err != nil {
		return fmt.Errorf("failed to create token issuer: %w", err)
	}

	db, closeDB, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer closeDB()

	ticketingAPI, err := api.NewAPI(db, logger, env, tokens,
		api.WithCurrency(cfg.Currency),
		api.WithAllowedOrigins(cfg.CORS.AllowedOrigins),
		api.WithCacheTTL(cfg.Cache.TTL),
		api.WithLedgerOptions(registration.WithMaxTicketCodeAttempts(cfg.Registration.MaxTicketAttempts)),
	)
	if err != nil {
		return err
	}

	handler, err := ticketingAPI.Handler()
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", slog.String("addr", srv.Addr), slog.String("store", string(cfg.Store.Driver)))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	logger.Info("server stopped")

	return nil
}
