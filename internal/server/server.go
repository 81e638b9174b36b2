package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"yashubustudio/cropadvisor/advisor"
	"yashubustudio/cropadvisor/internal/metrics"
)

// Advisor is the part of advisor.Service the API needs.
type Advisor interface {
	Recommend(ctx context.Context, m advisor.Measurements) (*advisor.Session, error)
	Explain(ctx context.Context, sess *advisor.Session) []advisor.Explanation
	Ask(ctx context.Context, sess *advisor.Session, question string) (advisor.Answer, bool)
}

// Server exposes the advisor over HTTP.
type Server struct {
	echo      *echo.Echo
	advisor   Advisor
	sessions  *advisor.SessionStore
	reg       *metrics.Registry
	imagesDir string
	addr      string
	logger    zerolog.Logger
}

type requestValidator struct {
	v *validator.Validate
}

func (rv *requestValidator) Validate(i any) error {
	if err := rv.v.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

// New wires routes and middleware.
func New(adv Advisor, cfg advisor.Config, reg *metrics.Registry, logger zerolog.Logger) *Server {
	if reg == nil {
		reg = metrics.NewRegistry()
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = &requestValidator{v: validator.New(validator.WithRequiredStructEnabled())}
	e.Use(middleware.Recover())
	e.Use(RequestLogger(reg))

	s := &Server{
		echo:      e,
		advisor:   adv,
		sessions:  advisor.NewSessionStore(time.Duration(cfg.Server.SessionTTLSeconds) * time.Second),
		reg:       reg,
		imagesDir: cfg.ImagesDir,
		addr:      cfg.Server.Address,
		logger:    logger,
	}

	e.GET("/healthz", s.health)
	e.GET("/metrics", reg.TextHandler)
	e.GET("/metrics.json", reg.JSONHandler)
	if cfg.ImagesDir != "" {
		e.Static("/images", cfg.ImagesDir)
	}

	v1 := e.Group("/api/v1")
	v1.GET("/fields", s.fields)
	v1.POST("/recommend", s.recommend)
	v1.GET("/session", s.session)
	v1.GET("/explanations", s.explanations)
	v1.POST("/ask", s.ask)
	return s
}

// Handler returns the root handler, used by tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("address", s.addr).Msg("http server listening")
		if err := s.echo.Start(s.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info().Msg("http server shutting down")
	return s.echo.Shutdown(shutdownCtx)
}
