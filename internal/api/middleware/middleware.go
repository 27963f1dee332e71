package middleware

import (
	"context"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/rs/xid"
	"github.com/rs/zerolog/log"

	"github.com/ShayBox/VRC-BAN/internal/api/presenter"
)

const (
	CorrelationIDHeader = "X-Correlation-ID"

	// CorrelationIDKey is the context key of the request's correlation id.
	CorrelationIDKey = "correlation_id"
)

// Chain wraps h so that the first middleware sees the request first.
func Chain(h http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

// CorrelationCtx retrieves the correlation ID from the context.
func CorrelationCtx(ctx context.Context) string {
	id, _ := ctx.Value(CorrelationIDKey).(string)
	return id
}

// CorrelationIDMiddleware reuses a well-formed correlation id of the caller or assigns a new one.
func CorrelationIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(CorrelationIDHeader)
		if _, err := xid.FromString(id); err != nil {
			id = xid.New().String()
		}
		w.Header().Set(CorrelationIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), CorrelationIDKey, id)))
	})
}

// LoggingMiddleware attaches a request scoped logger to the context and logs every handled request.
// Successful health probes are not logged.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		l := log.With().
			Str("correlation_id", CorrelationCtx(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Logger()

		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r.WithContext(l.WithContext(r.Context())))

		if r.URL.Path == "/healthz" && sw.status < http.StatusBadRequest {
			return
		}
		evt := l.Info()
		switch {
		case sw.status >= http.StatusInternalServerError:
			evt = l.Warn()
		case sw.status == http.StatusUnauthorized || sw.status == http.StatusForbidden:
			evt = l.Info().Str("remote", r.RemoteAddr)
		}
		evt.Int("status", sw.status).
			Int("bytes", sw.written).
			Dur("duration", time.Since(start)).
			Msg("request.handled")
	})
}

// RecoverMiddleware turns a panicking handler into a 500 response.
func RecoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				log.Ctx(r.Context()).Error().
					Interface("panic", err).
					Bytes("stack", debug.Stack()).
					Msg("panic.recovered")
				presenter.Error(w, r, "internal server error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status  int
	written int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.written += n
	return n, err
}
