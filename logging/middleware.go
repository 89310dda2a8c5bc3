package logging

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Middleware logs one line per request and puts a request-scoped logger in
// the context. Mount it after chi's RequestID middleware.
func Middleware(l *Logger) func(http.Handler) http.Handler {
	httpLog := OrNop(l).WithComponent(ComponentHTTP)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			reqLog := httpLog.With(zap.String(FieldRequestID, middleware.GetReqID(r.Context())))

			next.ServeHTTP(ww, r.WithContext(WithContext(r.Context(), reqLog)))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			level := zapcore.InfoLevel
			switch {
			case status >= 500:
				level = zapcore.ErrorLevel
			case status >= 400:
				level = zapcore.WarnLevel
			}
			if ce := reqLog.Check(level, "request completed"); ce != nil {
				ce.Write(
					zap.String(FieldMethod, r.Method),
					zap.String(FieldPath, r.URL.Path),
					zap.Int(FieldStatusCode, status),
					zap.Int(FieldBytes, ww.BytesWritten()),
					zap.Duration(FieldDuration, time.Since(start)),
				)
			}
		})
	}
}
