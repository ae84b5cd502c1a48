package web

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ctxKey int

const requestIDKey ctxKey = iota

// RequestID returns the id assigned to the request by the access log
// middleware, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
	size       int
}

func (rw *responseWriter) WriteHeader(statusCode int) {
	rw.statusCode = statusCode
	rw.ResponseWriter.WriteHeader(statusCode)
}

func (rw *responseWriter) Write(data []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(data)
	rw.size += n
	return n, err
}

// accessLog tags each request with an id, echoes it in X-Request-ID and logs
// the response. A panic in next is logged and answered with 500.
func accessLog(log *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		r = r.WithContext(context.WithValue(r.Context(), requestIDKey, requestID))

		defer func() {
			if p := recover(); p != nil {
				log.Error("panic serving request",
					zap.String("request_id", requestID),
					zap.Any("panic", p),
					zap.Stack("stack"))
				if rw.size == 0 {
					http.Error(rw, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				}
			}
			fields := []zap.Field{
				zap.String("request_id", requestID),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", rw.statusCode),
				zap.Int("size", rw.size),
				zap.Duration("duration", time.Since(start)),
				zap.String("remote_addr", clientIP(r)),
			}
			if rw.statusCode >= http.StatusInternalServerError {
				log.Error("request", fields...)
			} else {
				log.Info("request", fields...)
			}
		}()

		next.ServeHTTP(rw, r)
	})
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	return r.RemoteAddr
}
