// Package metrics exposes Prometheus collectors for resolution and evaluation.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/ponyvote/ballotcheck/internal/model"
)

// Resolve outcomes
const (
	OutcomeCacheHit = "cache_hit"
	OutcomeStoreHit = "store_hit"
	OutcomeFetched  = "fetched"
	OutcomeFlagged  = "flagged"
)

// Metrics holds the collectors. A nil *Metrics records nothing.
type Metrics struct {
	Resolves         *prometheus.CounterVec
	ProviderDuration *prometheus.HistogramVec
	Flags            *prometheus.CounterVec
	CatalogReloads   prometheus.Counter
}

// New creates the collectors and registers them on reg when reg is not nil
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Resolves: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ballotcheck_resolve_total",
				Help: "Metadata resolutions, by platform and outcome.",
			},
			[]string{"platform", "outcome"},
		),
		ProviderDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ballotcheck_provider_duration_seconds",
				Help:    "External metadata provider latency in seconds.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"provider"},
		),
		Flags: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ballotcheck_flags_total",
				Help: "Eligibility flags emitted, by trigger.",
			},
			[]string{"trigger"},
		),
		CatalogReloads: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "ballotcheck_catalog_reloads_total",
				Help: "Label catalog snapshot swaps.",
			},
		),
	}

	if reg != nil {
		reg.MustRegister(m.Resolves, m.ProviderDuration, m.Flags, m.CatalogReloads)
	}
	return m
}

// ObserveResolve counts one resolution
func (m *Metrics) ObserveResolve(platform model.Platform, outcome string) {
	if m == nil {
		return
	}
	m.Resolves.WithLabelValues(string(platform), outcome).Inc()
}

// ObserveProvider records how long a provider call took
func (m *Metrics) ObserveProvider(provider string, d time.Duration) {
	if m == nil {
		return
	}
	m.ProviderDuration.WithLabelValues(provider).Observe(d.Seconds())
}

// CountFlags counts each flag by trigger
func (m *Metrics) CountFlags(flags []model.Flag) {
	if m == nil {
		return
	}
	for _, f := range flags {
		m.Flags.WithLabelValues(f.Trigger).Inc()
	}
}

// CatalogReloaded counts a catalog swap
func (m *Metrics) CatalogReloaded() {
	if m == nil {
		return
	}
	m.CatalogReloads.Inc()
}

// Serve exposes /metrics on addr until ctx is cancelled
func Serve(ctx context.Context, addr string, gatherer prometheus.Gatherer, logger zerolog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info().Str("addr", addr).Msg("metrics listener started")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
