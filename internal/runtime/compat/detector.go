// Package compat tracks themes that call the title API with legacy
// formatting arguments.
package compat

import (
	"log/slog"
	"sync"
)

// Call describes how a theme invoked the title builder.
type Call struct {
	Theme string
	// Separator and Location are the externally supplied formatting args.
	Separator string
	Location  string
	// Meta is set when the caller only wants metadata text, never markup.
	Meta bool
	// SupportsTitleTag reports whether the theme declared it lets the host
	// render the document title itself.
	SupportsTitleTag bool
}

// Legacy reports whether the call pre-formats the title string itself.
func (c Call) Legacy() bool {
	if c.Meta || c.SupportsTitleTag {
		return false
	}
	return c.Separator != "" || c.Location != ""
}

// Detector remembers which themes have been seen making legacy calls. It is
// safe for concurrent use; the remembered set survives across requests until
// Reset.
type Detector struct {
	mu     sync.RWMutex
	wrong  map[string]struct{}
	logger *slog.Logger
}

// NewDetector returns an empty detector.
func NewDetector(logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{wrong: make(map[string]struct{}), logger: logger}
}

// Observe records c and reports whether it takes the compatibility path.
func (d *Detector) Observe(c Call) bool {
	if !c.Legacy() {
		return false
	}
	if d == nil {
		return true
	}
	d.mu.Lock()
	_, seen := d.wrong[c.Theme]
	if !seen {
		d.wrong[c.Theme] = struct{}{}
	}
	d.mu.Unlock()
	if !seen {
		d.logger.Info("theme formats titles itself; using compatibility assembly",
			slog.String("theme", c.Theme),
			slog.String("separator", c.Separator),
			slog.String("location", c.Location),
		)
	}
	return true
}

// KnownWrong reports whether theme has made a legacy call since the last Reset.
func (d *Detector) KnownWrong(theme string) bool {
	if d == nil {
		return false
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.wrong[theme]
	return ok
}

// Reset forgets every theme.
func (d *Detector) Reset() {
	if d == nil {
		return
	}
	d.mu.Lock()
	d.wrong = make(map[string]struct{})
	d.mu.Unlock()
}
