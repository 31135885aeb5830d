package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "salonbook"

var (
	once sync.Once

	apiRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_requests_total",
			Help:      "Salon API requests by endpoint and status class.",
		},
		[]string{"endpoint", "status"},
	)

	apiDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "api_request_duration_seconds",
			Help:      "Salon API request latency by endpoint.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	cacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Keyed cache lookups by result.",
		},
		[]string{"result"},
	)

	bookingOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_submissions_total",
			Help:      "Booking wizard submissions by outcome.",
		},
		[]string{"outcome"},
	)

	updateProcessing = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "bot_update_processing_seconds",
			Help:      "Time spent processing Telegram updates.",
			Buckets:   prometheus.DefBuckets,
		},
	)

	botErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bot_errors_total",
			Help:      "Recovered panics and handler failures.",
		},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(apiRequests, apiDuration, cacheLookups, bookingOutcomes, updateProcessing, botErrors)
	})
}

// ObserveAPI records one finished API call.
func ObserveAPI(endpoint, status string, seconds float64) {
	apiRequests.WithLabelValues(endpoint, status).Inc()
	apiDuration.WithLabelValues(endpoint).Observe(seconds)
}

func IncCacheHit() {
	cacheLookups.WithLabelValues("hit").Inc()
}

func IncCacheMiss() {
	cacheLookups.WithLabelValues("miss").Inc()
}

// IncBooking counts a booking submission: booked, conflict, invalid, rate_limited, error.
func IncBooking(outcome string) {
	bookingOutcomes.WithLabelValues(outcome).Inc()
}

func ObserveUpdate(seconds float64) {
	updateProcessing.Observe(seconds)
}

func IncBotError() {
	botErrors.Inc()
}
