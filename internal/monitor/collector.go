package monitor

import (
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector exposes monitor snapshots as Prometheus metrics. Values are read
// from the monitor at scrape time, so a reset is reflected immediately.
type Collector struct {
	monitor  *Monitor
	registry *prometheus.Registry

	requests     *prometheus.Desc
	errors       *prometheus.Desc
	responseTime *prometheus.Desc
	avgResponse  *prometheus.Desc
	uptime       *prometheus.Desc
	errorRate    *prometheus.Desc
	health       *prometheus.Desc
}

// NewCollector registers a collector for m on registry. A nil registry
// gets a fresh one.
func NewCollector(namespace string, m *Monitor, registry *prometheus.Registry) (*Collector, error) {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	endpointLabels := []string{"method", "route"}

	c := &Collector{
		monitor:  m,
		registry: registry,
		requests: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "http", "requests_total"),
			"Requests recorded per endpoint since the last reset.",
			endpointLabels, nil),
		errors: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "http", "errors_total"),
			"Responses with status >= 400 per endpoint since the last reset.",
			endpointLabels, nil),
		responseTime: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "http", "response_time_ms_total"),
			"Accumulated response time in milliseconds per endpoint.",
			endpointLabels, nil),
		avgResponse: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "http", "average_response_time_ms"),
			"Average response time in milliseconds per endpoint.",
			endpointLabels, nil),
		uptime: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "uptime_seconds"),
			"Seconds since the monitor started.",
			nil, prometheus.Labels{"instance_id": m.InstanceID()}),
		errorRate: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "error_rate_percent"),
			"System-wide error rate in percent.",
			nil, nil),
		health: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "health_status"),
			"1 for the current health classification, 0 otherwise.",
			[]string{"status"}, nil),
	}

	if err := registry.Register(c); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.requests
	ch <- c.errors
	ch <- c.responseTime
	ch <- c.avgResponse
	ch <- c.uptime
	ch <- c.errorRate
	ch <- c.health
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	snap := c.monitor.Metrics()

	for key, ep := range snap.Endpoints {
		method, route := splitEndpointKey(key)
		ch <- prometheus.MustNewConstMetric(c.requests, prometheus.CounterValue, float64(ep.RequestCount), method, route)
		ch <- prometheus.MustNewConstMetric(c.errors, prometheus.CounterValue, float64(ep.ErrorCount), method, route)
		ch <- prometheus.MustNewConstMetric(c.responseTime, prometheus.CounterValue, ep.TotalResponseTime, method, route)
		ch <- prometheus.MustNewConstMetric(c.avgResponse, prometheus.GaugeValue, ep.AverageResponseTime, method, route)
	}

	ch <- prometheus.MustNewConstMetric(c.uptime, prometheus.GaugeValue, snap.System.UptimeSeconds)
	ch <- prometheus.MustNewConstMetric(c.errorRate, prometheus.GaugeValue, snap.System.ErrorRate)

	current := c.monitor.HealthStatus().Status
	for _, s := range []Status{StatusHealthy, StatusDegraded, StatusUnhealthy} {
		v := 0.0
		if s == current {
			v = 1
		}
		ch <- prometheus.MustNewConstMetric(c.health, prometheus.GaugeValue, v, string(s))
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		ErrorHandling: promhttp.ContinueOnError,
	})
}

func (c *Collector) Registry() *prometheus.Registry { return c.registry }

func splitEndpointKey(key string) (method, route string) {
	method, route, found := strings.Cut(key, " ")
	if !found {
		return "", key
	}
	return method, route
}
