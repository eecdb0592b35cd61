package httpserver

import (
	"context"
	"net/http"
	"time"
)

// ReadyCheck probes one dependency.
type ReadyCheck func(ctx context.Context) error

// ReadyChecks holds the readiness probes the server reports on.
type ReadyChecks struct {
	DB    ReadyCheck
	Redis ReadyCheck
}

// ReadyzHandler returns a readiness handler probing the database and Redis.
// The broker is deliberately absent: a broker outage degrades enqueueing but
// the read paths stay serviceable.
func (s *Server) ReadyzHandler(checks ReadyChecks) http.HandlerFunc {
	type check struct {
		Name    string `json:"name"`
		OK      bool   `json:"ok"`
		Details string `json:"details,omitempty"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		results := make([]check, 0, 2)
		probe := func(name string, c ReadyCheck) {
			if c == nil {
				return
			}
			if err := c(ctx); err != nil {
				results = append(results, check{Name: name, OK: false, Details: err.Error()})
			} else {
				results = append(results, check{Name: name, OK: true})
			}
		}
		probe("db", checks.DB)
		probe("redis", checks.Redis)

		st := http.StatusOK
		for _, c := range results {
			if !c.OK {
				st = http.StatusServiceUnavailable
				break
			}
		}
		writeJSON(w, st, map[string]any{"checks": results})
	}
}
