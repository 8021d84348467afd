// Package reqlog logs one structured line per HTTP request through zap,
// plugged into chi's middleware.RequestLogger.
package reqlog

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// New returns request-logging middleware writing to log. Server errors
// are logged at error level, client errors at warn, the rest at info.
func New(log *zap.Logger) func(next http.Handler) http.Handler {
	return middleware.RequestLogger(&formatter{log: log})
}

type formatter struct {
	log *zap.Logger
}

func (f *formatter) NewLogEntry(r *http.Request) middleware.LogEntry {
	return &entry{
		log: f.log.With(
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("uri", r.RequestURI),
			zap.String("remote", r.RemoteAddr),
		),
	}
}

type entry struct {
	log *zap.Logger
}

func (e *entry) Write(status, bytes int, _ http.Header, elapsed time.Duration, _ interface{}) {
	fields := []zap.Field{
		zap.Int("status", status),
		zap.Int("bytes", bytes),
		zap.Duration("elapsed", elapsed),
	}
	switch {
	case status >= 500:
		e.log.Error("request", fields...)
	case status >= 400:
		e.log.Warn("request", fields...)
	default:
		e.log.Info("request", fields...)
	}
}

func (e *entry) Panic(v interface{}, stack []byte) {
	e.log.Error("request panic",
		zap.Any("panic", v),
		zap.ByteString("stack", stack))
}
