// Package metrics exposes Prometheus counters for draws, pulls, achievements
// and the cache layer.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace prefixes every metric name.
const Namespace = "gacha"

// Pull outcomes.
const (
	OutcomePlayer = "player"
	OutcomeGuest  = "guest"
	OutcomeError  = "error"
)

// Metrics holds the service counters on a private registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	PullsTotal     *prometheus.CounterVec // by outcome
	DrawsTotal     *prometheus.CounterVec // by rarity
	UnlocksTotal   *prometheus.CounterVec // by category
	CacheHitTotal  *prometheus.CounterVec // by backend
	CacheMissTotal *prometheus.CounterVec // by backend
}

// New creates the counters and registers them with Go runtime collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		PullsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "pulls_total",
				Help:      "Pull batches served.",
			},
			[]string{"outcome"},
		),
		DrawsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "draws_total",
				Help:      "Items drawn by rarity.",
			},
			[]string{"rarity"},
		),
		UnlocksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "achievement_unlocks_total",
				Help:      "Achievements unlocked by category.",
			},
			[]string{"category"},
		),
		CacheHitTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "cache_hits_total",
				Help:      "Cache hits.",
			},
			[]string{"backend"},
		),
		CacheMissTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "cache_misses_total",
				Help:      "Cache misses, including lookups that failed.",
			},
			[]string{"backend"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.PullsTotal,
		m.DrawsTotal,
		m.UnlocksTotal,
		m.CacheHitTotal,
		m.CacheMissTotal,
	)
	return m
}

// Registry returns the private registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordPull counts one served batch.
func (m *Metrics) RecordPull(outcome string) {
	if m == nil {
		return
	}
	m.PullsTotal.WithLabelValues(outcome).Inc()
}

// RecordDraw counts one drawn item.
func (m *Metrics) RecordDraw(rarity int) {
	if m == nil {
		return
	}
	m.DrawsTotal.WithLabelValues(strconv.Itoa(rarity)).Inc()
}

// RecordUnlock counts one unlocked achievement.
func (m *Metrics) RecordUnlock(category string) {
	if m == nil {
		return
	}
	m.UnlocksTotal.WithLabelValues(category).Inc()
}

// RecordCacheHit counts a hit on the named backend.
func (m *Metrics) RecordCacheHit(backend string) {
	if m == nil {
		return
	}
	m.CacheHitTotal.WithLabelValues(backend).Inc()
}

// RecordCacheMiss counts a miss on the named backend.
func (m *Metrics) RecordCacheMiss(backend string) {
	if m == nil {
		return
	}
	m.CacheMissTotal.WithLabelValues(backend).Inc()
}
