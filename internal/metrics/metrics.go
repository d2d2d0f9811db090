package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the application's Prometheus collectors. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	attendanceRows *prometheus.CounterVec
	enrollments    *prometheus.CounterVec
	marks          *prometheus.CounterVec
	events         *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		attendanceRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "acadence",
			Name:      "attendance_rows_total",
			Help:      "Attendance rows written by finalization, by operation.",
		}, []string{"op"}),
		enrollments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "acadence",
			Name:      "enrollments_total",
			Help:      "Enrollment attempts by outcome.",
		}, []string{"outcome"}),
		marks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "acadence",
			Name:      "marks_uploaded_total",
			Help:      "Marks written by teacher uploads, by section.",
		}, []string{"section"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "acadence",
			Name:      "events_processed_total",
			Help:      "Queue events handled by the worker, by kind and result.",
		}, []string{"kind", "result"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "acadence",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
	reg.MustRegister(m.attendanceRows, m.enrollments, m.marks, m.events, m.httpDuration)
	return m
}

// AttendanceWritten counts rows inserted and updated by one finalization.
func (m *Metrics) AttendanceWritten(inserted, updated int) {
	if m == nil {
		return
	}
	m.attendanceRows.WithLabelValues("insert").Add(float64(inserted))
	m.attendanceRows.WithLabelValues("update").Add(float64(updated))
}

// EnrollmentOutcome counts n enrollment attempts with the given outcome.
func (m *Metrics) EnrollmentOutcome(outcome string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.enrollments.WithLabelValues(outcome).Add(float64(n))
}

// MarksUploaded counts n marks written for section.
func (m *Metrics) MarksUploaded(section string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.marks.WithLabelValues(section).Add(float64(n))
}

// EventProcessed counts one worker event.
func (m *Metrics) EventProcessed(kind string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.events.WithLabelValues(kind, result).Inc()
}

// GinMiddleware observes request latency per matched route.
func (m *Metrics) GinMiddleware() gin.HandlerFunc {
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
		m.httpDuration.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Observe(time.Since(start).Seconds())
	}
}
