package telemetry

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/whitehat88/recruitment-auth/internal/infra/config"
)

// Provider represents a telemetry provider handle.
type Provider struct {
	authRequests prometheus.Counter
}

// Attach registers the process-level collectors and returns a provider
// handle. Per-route HTTP metrics live in the transport middleware; this
// counter tracks total traffic into the auth surface.
func Attach(_ context.Context, cfg *config.AppConfig) (*Provider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	counter := promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "recruitment_auth",
		Name:      "requests_total",
		Help:      "Total number of requests handled by the auth service",
	})

	return &Provider{
		authRequests: counter,
	}, nil
}

// RequestCounter exposes the request metric.
func (p *Provider) RequestCounter() prometheus.Counter {
	if p == nil {
		return prometheus.NewCounter(prometheus.CounterOpts{})
	}
	return p.authRequests
}
