// Package metrics exposes the Prometheus collectors of the API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Signup outcomes recorded by ObserveSignup.
const (
	ResultOK        = "ok"
	ResultFull      = "full"
	ResultDuplicate = "duplicate"
	ResultMissing   = "missing"
	ResultError     = "error"
)

// Metrics owns a private registry so tests can create as many as they like.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	signups      *prometheus.CounterVec
	hourReviews  *prometheus.CounterVec
	hoursCredit  prometheus.Counter
	emails       *prometheus.CounterVec
}

// New registers all collectors, including the Go and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "servicehours_http_requests_total",
			Help: "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "servicehours_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
		signups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "servicehours_opportunity_signups_total",
			Help: "Opportunity join/cancel attempts by action and result.",
		}, []string{"action", "result"}),
		hourReviews: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "servicehours_hour_reviews_total",
			Help: "Hour request reviews by decision.",
		}, []string{"decision"}),
		hoursCredit: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "servicehours_hours_credited_total",
			Help: "Volunteer hours credited through approved requests.",
		}),
		emails: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "servicehours_emails_total",
			Help: "Notification emails handed to the transport, by result.",
		}, []string{"kind", "result"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests, m.httpDuration, m.signups, m.hourReviews, m.hoursCredit, m.emails,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Middleware records request count and latency by matched route.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method
		m.httpRequests.WithLabelValues(route, method, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpDuration.WithLabelValues(route, method).Observe(time.Since(start).Seconds())
	}
}

// ObserveSignup counts a join, cancel or remove attempt.
func (m *Metrics) ObserveSignup(action, result string) {
	if m == nil {
		return
	}
	m.signups.WithLabelValues(action, result).Inc()
}

// ObserveReview counts an approval or rejection; approvals add their hours.
func (m *Metrics) ObserveReview(decision string, hours float64) {
	if m == nil {
		return
	}
	m.hourReviews.WithLabelValues(decision).Inc()
	if hours > 0 {
		m.hoursCredit.Add(hours)
	}
}

// ObserveEmail counts a notification handed to the mailer.
func (m *Metrics) ObserveEmail(kind string, err error) {
	if m == nil {
		return
	}
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	m.emails.WithLabelValues(kind, result).Inc()
}
