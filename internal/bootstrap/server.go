package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Domenick1991/clinicbooking/api"
	"github.com/Domenick1991/clinicbooking/config"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	httpSwagger "github.com/swaggo/http-swagger"
)

const shutdownTimeout = 5 * time.Second

// Run serves the REST API until ctx is canceled or the listener fails.
func Run(ctx context.Context, cfg *config.Config, handlers api.Handlers, verifier *api.TokenVerifier, gatherer prometheus.Gatherer, logger zerolog.Logger) error {
	srv := &http.Server{
		Addr:              cfg.HTTP.Address,
		Handler:           NewEngine(cfg, handlers, verifier, gatherer, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.HTTP.Address).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serve http %s: %w", cfg.HTTP.Address, err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		logger.Info().Msg("http server stopped")
		return nil
	}
}

// NewEngine wires the API, metrics and docs routes onto one gin engine.
func NewEngine(cfg *config.Config, handlers api.Handlers, verifier *api.TokenVerifier, gatherer prometheus.Gatherer, logger zerolog.Logger) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery(), api.RequestLogger(logger))

	api.Mount(engine, handlers, verifier)

	if gatherer != nil {
		engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	if cfg.HTTP.SwaggerDir != "" {
		engine.Static("/docs", cfg.HTTP.SwaggerDir)
		engine.GET("/swagger/*any", gin.WrapH(httpSwagger.Handler(httpSwagger.URL("/docs/openapi.json"))))
	}

	return engine
}
