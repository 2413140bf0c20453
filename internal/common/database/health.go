// internal/common/database/health.go
package database

import (
	"context"
	"errors"
	"fmt"
)

// Pinger is anything the readiness check can ping.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Health aggregates backend pingers for the /ready endpoint.
type Health struct {
	checks map[string]Pinger
}

func NewHealth() *Health {
	return &Health{checks: make(map[string]Pinger)}
}

// Register adds a named backend. Nil pingers are ignored.
func (h *Health) Register(name string, p Pinger) {
	if p == nil {
		return
	}
	h.checks[name] = p
}

// Check pings every backend and joins the failures.
func (h *Health) Check(ctx context.Context) error {
	var errs []error
	for name, p := range h.checks {
		if err := p.Ping(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}
