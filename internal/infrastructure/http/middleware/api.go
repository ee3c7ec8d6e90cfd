// Package middleware provides Chi-compatible middleware for the discovery API server
package middleware

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/alchemorsel/discovery/pkg/errors"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Logger creates a Chi-compatible logging middleware
func Logger(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			fields := []zap.Field{
				zap.String("request_id", chimiddleware.GetReqID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("remote_addr", r.RemoteAddr),
				zap.Int("status_code", status),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
			}
			if status >= http.StatusInternalServerError {
				logger.Warn("API Request", fields...)
				return
			}
			logger.Info("API Request", fields...)
		})
	}
}

// Security adds security headers for API responses
func Security() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "no-referrer")
			w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
			next.ServeHTTP(w, r)
		})
	}
}

// JSONOnly forces JSON responses and rejects non-JSON request bodies
func JSONOnly() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")

			if r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
				if !strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
					WriteError(w, r, apperrors.NewAppError(
						apperrors.CodeUnsupportedMedia,
						"Unsupported media type",
						"Content-Type must be application/json",
					))
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// WriteError renders an AppError as the standard error envelope
func WriteError(w http.ResponseWriter, r *http.Request, err *apperrors.AppError) {
	resp := apperrors.ToErrorResponse(err, chimiddleware.GetReqID(r.Context()))
	w.Header().Set("Content-Type", "application/json")
	if err.Code == apperrors.CodeTooManyRequests {
		w.Header().Set("Retry-After", "1")
	}
	w.WriteHeader(err.StatusCode())
	_ = json.NewEncoder(w).Encode(resp)
}
