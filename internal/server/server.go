// Package server exposes the analyzers over HTTP so that an external
// scheduler can trigger runs.
package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/huangsam/backupwatch/core"
	"github.com/huangsam/backupwatch/internal/contract"
	"github.com/huangsam/backupwatch/schema"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

// runFunc is the shape shared by the core entry points.
type runFunc func(ctx context.Context, env *core.Env, cfg *contract.Config) (schema.AnalysisResult, error)

// CountResponse is the body of every successful trigger.
type CountResponse struct {
	Count int `json:"count"`
}

// Server holds the long-lived environment the handlers run against.
type Server struct {
	env *core.Env
	cfg *contract.Config
}

// New builds a server. env.Metrics, when set, backs GET /metrics.
func New(env *core.Env, cfg *contract.Config) *Server {
	return &Server{env: env, cfg: cfg}
}

// Router returns the echo instance with every route bound.
func (s *Server) Router() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(accessLogger(s.env.Logger))

	e.GET("/health", s.handleHealth)
	e.POST("/analyzing/scheduleBased", s.analyze(core.RunScheduleAnalysis))
	e.POST("/analyzing/size", s.analyze(core.RunSizeAnalysis))
	e.POST("/analyzing/storage", s.analyze(core.RunStorageAnalysis))
	e.POST("/updating/backupData", s.handleSync)

	if s.env.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.env.Metrics.Registry, promhttp.HandlerOpts{})))
	}
	return e
}

// ListenAndServe serves until ctx is canceled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	e := s.Router()

	errCh := make(chan error, 1)
	go func() {
		errCh <- e.Start(addr)
	}()
	if logger := s.env.Logger; logger != nil {
		logger.Info("listening", zap.String("addr", addr))
	}

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// analyze wraps an analysis entry point into a trigger handler.
func (s *Server) analyze(run runFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		cfg, err := s.requestConfig(c)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		result, err := run(c.Request().Context(), s.env, cfg)
		if err != nil {
			return s.internalError(err)
		}
		return c.JSON(http.StatusOK, CountResponse{Count: result.Count})
	}
}

func (s *Server) handleSync(c echo.Context) error {
	incremental := false
	if v := c.QueryParam("incremental"); v != "" {
		b, err := contract.ParseBoolString(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		incremental = b
	}
	result, err := core.RunSync(c.Request().Context(), s.env, s.cfg, incremental)
	if err != nil {
		return s.internalError(err)
	}
	return c.JSON(http.StatusOK, CountResponse{Count: result.Count})
}

// requestConfig applies the alertLimit query parameter to a copy of the base config.
func (s *Server) requestConfig(c echo.Context) (*contract.Config, error) {
	raw := c.QueryParam("alertLimit")
	if raw == "" {
		return s.cfg.Clone(), nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil {
		return nil, errors.New("alertLimit must be an integer")
	}
	if err := contract.ValidateAlertLimit(limit); err != nil {
		return nil, err
	}
	return s.cfg.WithAlertLimit(limit), nil
}

func (s *Server) internalError(err error) error {
	if logger := s.env.Logger; logger != nil {
		logger.Error("request failed", zap.Error(err))
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}

// accessLogger logs one line per request.
func accessLogger(logger *zap.Logger) echo.MiddlewareFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:     true,
		LogStatus:  true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			logger.Info("request",
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
			)
			return nil
		},
	})
}
