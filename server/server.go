package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

// Routes served by the translation server.
const (
	TranslateTextPath  = "/api/translate-text"
	TranslateBatchPath = "/api/translate-batch"
	LanguagesPath      = "/api/languages"
	DetectPath         = "/api/detect-language"
	HealthPath         = "/health"
)

// DefaultBodyLimit caps request bodies.
const DefaultBodyLimit = "2M"

type (
	Options struct {
		Address        string
		Service        *Service
		Logger         *zap.Logger
		AllowOrigins   []string // CORS origins, empty allows any
		DisableReqLogs bool
		Debug          bool
	}

	Server interface {
		http.Handler
		Start() error
		Stop(context.Context) error
	}

	server struct {
		opts   *Options
		app    *echo.Echo
		logger *zap.Logger
	}
)

var _ Server = (*server)(nil)

// NewServer creates the HTTP server for opts.
func NewServer(opts *Options) Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &server{
		opts:   opts,
		app:    echo.New(),
		logger: logger,
	}
	s.setup()
	return s
}

func (s *server) setup() {
	s.app.HideBanner = true
	s.app.HidePort = true
	s.app.Debug = s.opts.Debug

	s.app.Pre(middleware.RemoveTrailingSlash())
	s.app.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	if !s.opts.DisableReqLogs {
		s.app.Use(s.requestLogger())
	}
	s.app.Use(middleware.Recover())
	s.app.Use(middleware.BodyLimit(DefaultBodyLimit))

	cors := middleware.DefaultCORSConfig
	if len(s.opts.AllowOrigins) > 0 {
		cors.AllowOrigins = s.opts.AllowOrigins
	}
	s.app.Use(middleware.CORSWithConfig(cors))

	s.app.HTTPErrorHandler = newHTTPErrorHandler(s.logger)

	h := &handlers{svc: s.opts.Service}
	s.app.GET(HealthPath, h.health)
	s.app.POST(TranslateTextPath, h.translateText)
	s.app.POST(TranslateBatchPath, h.translateBatch)
	s.app.GET(LanguagesPath, h.languages)
	s.app.POST(DetectPath, h.detectLanguage)
}

func (s *server) requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("request_id", v.RequestID),
			}
			if v.Error != nil {
				s.logger.Warn("request failed", append(fields, zap.Error(v.Error))...)
				return nil
			}
			s.logger.Info("request", fields...)
			return nil
		},
	})
}

// Start serves until Stop is called.
func (s *server) Start() error {
	s.logger.Info("translation server listening", zap.String("address", s.opts.Address))
	if err := s.app.Start(s.opts.Address); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}
