package server

import (
	"net/http"
	"strings"
)

// GeneratorHTTP defines the minimal surface the lifecycle router needs from the
// runtime generator to serve HTTP requests.
type GeneratorHTTP interface {
	ServeTitle(http.ResponseWriter, *http.Request)
	ServeDescription(http.ResponseWriter, *http.Request)
	ServeEvents(http.ResponseWriter, *http.Request)
	ServeHealth(http.ResponseWriter, *http.Request)
	WriteError(http.ResponseWriter, int, string)
}

// NewGeneratorHandler wires the HTTP routing facade to the runtime generator so
// the lifecycle server owns URL dispatch and method checks. metrics may be nil.
func NewGeneratorHandler(g GeneratorHTTP, metrics http.Handler) http.Handler {
	if g == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "generator unavailable", http.StatusServiceUnavailable)
		})
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route, ok := parseRoute(r.URL.Path)
		if !ok {
			http.NotFound(w, r)
			return
		}

		switch route {
		case "title", "description", "healthz", "metrics":
			if r.Method != http.MethodGet && r.Method != http.MethodHead {
				w.Header().Set("Allow", "GET, HEAD")
				g.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
				return
			}
		case "events":
			if r.Method != http.MethodPost {
				w.Header().Set("Allow", "POST")
				g.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
				return
			}
		}

		switch route {
		case "title":
			g.ServeTitle(w, r)
		case "description":
			g.ServeDescription(w, r)
		case "events":
			g.ServeEvents(w, r)
		case "healthz":
			g.ServeHealth(w, r)
		case "metrics":
			if metrics == nil {
				http.NotFound(w, r)
				return
			}
			metrics.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}

func parseRoute(path string) (string, bool) {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" || strings.Contains(trimmed, "/") {
		return "", false
	}
	route := strings.ToLower(trimmed)
	switch route {
	case "title", "description", "events", "metrics":
		return route, true
	case "health", "healthz":
		return "healthz", true
	}
	return "", false
}
