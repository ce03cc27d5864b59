// Package health probes the forwarding API's reachability, shielded by
// a circuit breaker so a dead backend is reported immediately instead
// of timing out on every check.
package health

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/haltman-io/aliasctl/internal/client"
	"github.com/haltman-io/aliasctl/internal/logging"
)

// Status of the last probe.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusConnected Status = "connected"
	StatusError     Status = "error"
)

// Report is the outcome of one probe.
type Report struct {
	Status  Status
	Domains int
	Breaker string
	Err     error
}

// Checker probes the domains endpoint through a circuit breaker. After
// consecutive failures the breaker opens and probes fail fast until the
// cooldown expires.
type Checker struct {
	api    *client.Client
	cb     *gobreaker.CircuitBreaker[[]string]
	logger *zap.Logger
}

// NewChecker creates a checker for c.
func NewChecker(c *client.Client, logger *zap.Logger) *Checker {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(logging.Component("health"))

	settings := gobreaker.Settings{
		Name:        "aliasctl-api",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}

	return &Checker{
		api:    c,
		cb:     gobreaker.NewCircuitBreaker[[]string](settings),
		logger: logger,
	}
}

// Check probes the API once. A tripped breaker returns StatusError
// without touching the network.
func (h *Checker) Check(ctx context.Context) Report {
	domains, err := h.cb.Execute(func() ([]string, error) {
		return h.api.Domains(ctx)
	})
	state := h.cb.State().String()

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return Report{Status: StatusError, Breaker: state, Err: err}
		}
		h.logger.Debug("probe failed", zap.Error(err))
		return Report{Status: StatusError, Breaker: state, Err: err}
	}

	return Report{Status: StatusConnected, Domains: len(domains), Breaker: state}
}
