package generation

import (
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"github.com/l0p7/seometa/internal/metrics"
)

// Diagnostics reports developer-facing contract violations once per distinct
// call site. Reporting never affects the request.
type Diagnostics struct {
	logger  *slog.Logger
	metrics *metrics.Recorder
	seen    sync.Map
}

// NewDiagnostics returns a reporter writing to logger and rec.
func NewDiagnostics(logger *slog.Logger, rec *metrics.Recorder) *Diagnostics {
	if logger == nil {
		logger = slog.Default()
	}
	return &Diagnostics{logger: logger, metrics: rec}
}

// InvalidArgs reports err for the caller skip frames above InvalidArgs. It
// returns true when this call site is reported for the first time.
func (d *Diagnostics) InvalidArgs(skip int, api string, err error) bool {
	if d == nil || err == nil {
		return false
	}
	site := "unknown"
	if _, file, line, ok := runtime.Caller(skip + 1); ok {
		site = fmt.Sprintf("%s:%d", file, line)
	}
	d.metrics.ObserveDiagnostic("invalid_args")
	if _, loaded := d.seen.LoadOrStore(api+"@"+site, struct{}{}); loaded {
		return false
	}
	d.logger.Warn("invalid arguments supplied; using defaults",
		slog.String("api", api),
		slog.String("call_site", site),
		slog.Any("error", err),
	)
	return true
}
