package runtime

import (
	"log/slog"
	"net/http"
	"time"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	if s.status == 0 {
		s.status = code
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	return s.ResponseWriter.Write(b)
}

// instrument runs handler and records latency and status for route.
func (g *Generator) instrument(route string, w http.ResponseWriter, r *http.Request, handler http.HandlerFunc) {
	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w}
	handler(rec, r)
	duration := time.Since(start)
	if rec.status == 0 {
		rec.status = http.StatusOK
	}

	g.metrics.ObserveHTTP(route, rec.status, duration)

	attrs := []slog.Attr{
		slog.String("route", route),
		slog.Int("status", rec.status),
		slog.Float64("latency_ms", float64(duration)/float64(time.Millisecond)),
	}
	if g.correlationHeader != "" {
		if id := rec.Header().Get(g.correlationHeader); id != "" {
			attrs = append(attrs, slog.String("correlation_id", id))
		}
	}
	level := slog.LevelInfo
	if rec.status >= http.StatusBadRequest {
		level = slog.LevelWarn
	}
	g.logger.LogAttrs(r.Context(), level, "request served", attrs...)
}
