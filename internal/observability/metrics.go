package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "raid_http_requests_total",
			Help: "Total number of HTTP requests processed by the raid service.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "raid_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	partiesCreatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "raid_parties_created_total",
			Help: "Total number of parties created, by mode.",
		},
		[]string{"mode"},
	)
	queueMatchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "raid_queue_matches_total",
			Help: "Total number of queue matches, by boss.",
		},
		[]string{"boss"},
	)
	ticketsSubmittedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "raid_queue_tickets_submitted_total",
			Help: "Total number of queue tickets submitted.",
		},
	)
	ticketsExpiredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "raid_queue_tickets_expired_total",
			Help: "Total number of queue tickets expired by the TTL policy.",
		},
	)
	membersKickedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "raid_members_kicked_total",
			Help: "Total number of members kicked, by reason.",
		},
		[]string{"reason"},
	)
	messagesPostedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "raid_messages_posted_total",
			Help: "Total number of party messages posted, by sender kind.",
		},
		[]string{"kind"},
	)
	wsActiveConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "raid_ws_active_connections",
			Help: "Number of active party websocket connections.",
		},
	)
	wsEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "raid_ws_events_total",
			Help: "Total number of websocket events.",
		},
		[]string{"event"},
	)
	amqpPublishErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "raid_amqp_publish_errors_total",
			Help: "Total number of AMQP publish errors.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		partiesCreatedTotal,
		queueMatchesTotal,
		ticketsSubmittedTotal,
		ticketsExpiredTotal,
		membersKickedTotal,
		messagesPostedTotal,
		wsActiveConnections,
		wsEventsTotal,
		amqpPublishErrorsTotal,
	)
}

func HTTPMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		status := c.Writer.Status()

		httpRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

func IncPartyCreated(mode string) {
	partiesCreatedTotal.WithLabelValues(mode).Inc()
}

func IncQueueMatch(boss string) {
	queueMatchesTotal.WithLabelValues(boss).Inc()
}

func IncTicketSubmitted() {
	ticketsSubmittedTotal.Inc()
}

func AddTicketsExpired(count int64) {
	ticketsExpiredTotal.Add(float64(count))
}

func IncMemberKicked(reason string) {
	membersKickedTotal.WithLabelValues(reason).Inc()
}

func IncMessagePosted(kind string) {
	messagesPostedTotal.WithLabelValues(kind).Inc()
}

func IncWSActive() {
	wsActiveConnections.Inc()
}

func DecWSActive() {
	wsActiveConnections.Dec()
}

func IncWSEvent(event string) {
	wsEventsTotal.WithLabelValues(event).Inc()
}

func IncAMQPPublishError() {
	amqpPublishErrorsTotal.Inc()
}
