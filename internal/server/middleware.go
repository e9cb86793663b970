package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/handlers"
	"github.com/rs/zerolog"

	"github.com/moamenhredeen/oasgate/internal/logger"
)

// RequestIDHeader carries the request correlation id
const RequestIDHeader = "X-Request-ID"

type requestIDKey struct{}

// RequestID returns the id assigned to the request
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// withRequestID reuses an inbound X-Request-ID or generates one, and
// echoes it on the response
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

func withRequestLogger(base zerolog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := logger.WithRequest(r.Context(), base, RequestID(r.Context()), r.Method, r.URL.Path)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// accessLog is a handlers.LogFormatter writing to the request logger
// instead of the formatter's writer
func accessLog(_ io.Writer, params handlers.LogFormatterParams) {
	l := logger.Ctx(params.Request.Context())

	var e *zerolog.Event
	switch {
	case params.StatusCode >= 500:
		e = l.Error()
	case params.StatusCode >= 400:
		e = l.Warn()
	default:
		e = l.Info()
	}

	e.Int("status", params.StatusCode).
		Int("size", params.Size).
		Dur("latency", time.Since(params.TimeStamp)).
		Str("uri", params.URL.RequestURI()).
		Str("remote", params.Request.RemoteAddr).
		Str("user_agent", params.Request.UserAgent()).
		Msg("request")
}

type recoveryLogger struct {
	l zerolog.Logger
}

func (r recoveryLogger) Println(v ...any) {
	r.l.Error().Msg(fmt.Sprint(v...))
}
