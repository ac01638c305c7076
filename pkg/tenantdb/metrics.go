package tenantdb

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Resolve failure reasons used as the "reason" label.
const (
	reasonNoTenant = "tenant_id_not_provided"
	reasonNotFound = "connection_not_found"
)

// metrics are nil-safe: a router built without WithMetrics records nothing.
type metrics struct {
	tenants       prometheus.Gauge
	openDuration  prometheus.Histogram
	openFailures  prometheus.Counter
	resolveErrors *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	if reg == nil {
		return nil, nil
	}

	m := &metrics{
		tenants: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "tenantdb",
			Name:      "tenant_connections",
			Help:      "Registered tenant connections",
		}),
		openDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "tenantdb",
			Name:      "connection_open_duration_seconds",
			Help:      "Time to open and initialize a tenant connection",
			Buckets:   prometheus.DefBuckets,
		}),
		openFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tenantdb",
			Name:      "connection_open_failures_total",
			Help:      "Tenant connections that failed to open",
		}),
		resolveErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tenantdb",
			Name:      "resolve_errors_total",
			Help:      "Operations that could not resolve a tenant connection",
		}, []string{"reason"}),
	}

	var err error
	if m.tenants, err = register(reg, m.tenants); err != nil {
		return nil, err
	}
	if m.openDuration, err = register(reg, m.openDuration); err != nil {
		return nil, err
	}
	if m.openFailures, err = register(reg, m.openFailures); err != nil {
		return nil, err
	}
	if m.resolveErrors, err = register(reg, m.resolveErrors); err != nil {
		return nil, err
	}
	return m, nil
}

// register reuses an identical collector registered earlier, so several
// routers can share one registry.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

func (m *metrics) setTenants(n int) {
	if m == nil {
		return
	}
	m.tenants.Set(float64(n))
}

func (m *metrics) observeOpen(start time.Time, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.openFailures.Inc()
		return
	}
	m.openDuration.Observe(time.Since(start).Seconds())
}

func (m *metrics) resolveFailed(reason string) {
	if m == nil {
		return
	}
	m.resolveErrors.WithLabelValues(reason).Inc()
}
