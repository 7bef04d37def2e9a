/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package resolver

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records resolver latency and cache effectiveness.
type Metrics struct {
	latency *prometheus.HistogramVec
	cache   *prometheus.CounterVec
}

// NewMetrics creates the resolver metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "identity",
			Subsystem: "resolver",
			Name:      "duration_seconds",
			Help:      "Resolver operation latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation", "result"}),
		cache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "identity",
			Subsystem: "resolver",
			Name:      "cache_lookups_total",
			Help:      "Document cache lookups by result.",
		}, []string{"result"}),
	}

	for _, c := range []prometheus.Collector{m.latency, m.cache} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

func (m *Metrics) observe(op string, err error, start time.Time) {
	if m == nil {
		return
	}

	result := "success"
	if err != nil {
		result = "error"
	}

	m.latency.WithLabelValues(op, result).Observe(time.Since(start).Seconds())
}

func (m *Metrics) cacheLookup(hit bool) {
	if m == nil {
		return
	}

	result := "miss"
	if hit {
		result = "hit"
	}

	m.cache.WithLabelValues(result).Inc()
}
