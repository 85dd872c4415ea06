package service

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"animehub/app/auth"
	"animehub/app/config"
	"animehub/app/logger"
	"animehub/app/routes"
	"animehub/app/session"

	"go.uber.org/zap"
)

// ShutdownTimeout bounds how long in-flight requests may run after a stop
// signal.
var ShutdownTimeout = 10 * time.Second

// NewHandler builds the application router on top of stores.
func NewHandler(cfg *config.Config, stores *Stores) (http.Handler, error) {
	if cfg.SessionSecret == "" {
		logger.Log.Warn("No session secret configured; sessions end when the process exits")
	}
	sessions, err := session.NewStore(cfg.SessionSecret, 0)
	if err != nil {
		return nil, err
	}
	router, err := routes.SetupRoutes(routes.Dependencies{
		Users:          stores.Users,
		Posts:          stores.Posts,
		Sessions:       sessions,
		Verifier:       auth.NewBcryptVerifier(auth.DefaultCost),
		RequestTimeout: cfg.RequestTimeout,
	})
	if err != nil {
		return nil, err
	}
	return router, nil
}

// RunAppServer opens the configured store and serves the application on
// cfg.Addr until ctx is cancelled.
func RunAppServer(ctx context.Context, cfg *config.Config) error {
	stores, err := OpenStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer stores.Close()

	handler, err := NewHandler(cfg, stores)
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.Addr, err)
	}
	return Serve(ctx, ln, handler)
}

// Serve runs handler on ln and shuts down gracefully once ctx is done.
func Serve(ctx context.Context, ln net.Listener, handler http.Handler) error {
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Log.Info("Starting AnimeHub", zap.String("addr", ln.Addr().String()))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	logger.Log.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Log.Info("Server stopped")
	return nil
}
