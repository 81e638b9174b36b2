package server

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"yashubustudio/cropadvisor/internal/metrics"
)

// sessionCookie identifies a client across requests.
const sessionCookie = "crop_session"

// RequestLogger returns middleware that logs requests using zerolog and
// updates the request counters.
func RequestLogger(reg *metrics.Registry) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()
			rid := req.Header.Get(echo.HeaderXRequestID)
			if rid == "" {
				rid = uuid.NewString()
			}
			c.Response().Header().Set(echo.HeaderXRequestID, rid)

			logger := log.With().
				Str("request_id", rid).
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Str("remote_ip", c.RealIP()).
				Logger()
			c.SetRequest(req.WithContext(logger.WithContext(req.Context())))

			err := next(c)
			if err != nil {
				// let echo write the error so the status is known below
				c.Error(err)
			}

			status := c.Response().Status
			duration := time.Since(start)
			route := c.Path()
			if route == "" {
				route = req.URL.Path
			}
			if reg != nil {
				reg.Inc(c.Request().Context(), "http_requests_total", map[string]string{
					"method": req.Method,
					"path":   route,
					"status": statusClass(status),
				}, 1)
			}

			if status >= http.StatusInternalServerError {
				logger.Error().Err(err).Int("status", status).Dur("duration", duration).Msg("http request failed")
			} else {
				logger.Info().Int("status", status).Dur("duration", duration).Msg("http request served")
			}
			return nil
		}
	}
}

// ClientKey returns the session cookie value, issuing a new one when absent.
func ClientKey(c echo.Context) string {
	if ck, err := c.Cookie(sessionCookie); err == nil && ck.Value != "" {
		return ck.Value
	}
	key := uuid.NewString()
	c.SetCookie(&http.Cookie{
		Name:     sessionCookie,
		Value:    key,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return key
}

func statusClass(code int) string {
	switch {
	case code >= 100 && code < 200:
		return "1xx"
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500 && code < 600:
		return "5xx"
	default:
		return "0"
	}
}
