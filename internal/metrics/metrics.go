package metrics

import (
	"net/http"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters. A nil *Metrics is valid and records nothing.
type Metrics struct {
	eventsDecoded     *prometheus.CounterVec
	eventsPublished   *prometheus.CounterVec
	eventsMuted       *prometheus.CounterVec
	decodeErrors      *prometheus.CounterVec
	valuationFailures *prometheus.CounterVec
	publishErrors     *prometheus.CounterVec
	connectionLosses  *prometheus.CounterVec
	restarts          prometheus.Counter
	restartsSkipped   prometheus.Counter
}

var (
	once    sync.Once
	metrics *Metrics
)

// Init initializes global metrics (idempotent).
func Init() *Metrics {
	once.Do(func() {
		metrics = &Metrics{
			eventsDecoded: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "airswap_bot_events_decoded_total",
				Help: "Total number of contract logs decoded into events",
			}, []string{"chain_id", "event"}),
			eventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "airswap_bot_events_published_total",
				Help: "Total number of events handed to channels",
			}, []string{"chain_id", "event"}),
			eventsMuted: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "airswap_bot_events_muted_total",
				Help: "Total number of events suppressed by mute or value filter",
			}, []string{"chain_id", "event"}),
			decodeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "airswap_bot_decode_errors_total",
				Help: "Total number of logs or receipts that could not be decoded",
			}, []string{"chain_id", "contract"}),
			valuationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "airswap_bot_valuation_failures_total",
				Help: "Total number of swaps that could not be valued",
			}, []string{"chain_id"}),
			publishErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "airswap_bot_publish_errors_total",
				Help: "Total number of channel publish failures",
			}, []string{"channel"}),
			connectionLosses: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "airswap_bot_connection_losses_total",
				Help: "Total number of transports lost or terminated",
			}, []string{"chain_id"}),
			restarts: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "airswap_bot_restarts_total",
				Help: "Total number of pipeline restarts performed",
			}),
			restartsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "airswap_bot_restarts_skipped_total",
				Help: "Total number of restart requests ignored (in progress or too soon)",
			}),
		}
		prometheus.MustRegister(
			metrics.eventsDecoded,
			metrics.eventsPublished,
			metrics.eventsMuted,
			metrics.decodeErrors,
			metrics.valuationFailures,
			metrics.publishErrors,
			metrics.connectionLosses,
			metrics.restarts,
			metrics.restartsSkipped,
		)
	})
	return metrics
}

func chainLabel(chainID uint64) string {
	return strconv.FormatUint(chainID, 10)
}

// EventDecoded counts a decoded log.
func (m *Metrics) EventDecoded(chainID uint64, event string) {
	if m != nil {
		m.eventsDecoded.WithLabelValues(chainLabel(chainID), event).Inc()
	}
}

// EventPublished counts an event handed to the channels.
func (m *Metrics) EventPublished(chainID uint64, event string) {
	if m != nil {
		m.eventsPublished.WithLabelValues(chainLabel(chainID), event).Inc()
	}
}

// EventMuted counts a suppressed event.
func (m *Metrics) EventMuted(chainID uint64, event string) {
	if m != nil {
		m.eventsMuted.WithLabelValues(chainLabel(chainID), event).Inc()
	}
}

// DecodeError counts a dropped log.
func (m *Metrics) DecodeError(chainID uint64, contract string) {
	if m != nil {
		m.decodeErrors.WithLabelValues(chainLabel(chainID), contract).Inc()
	}
}

// ValuationFailed counts a swap left unvalued.
func (m *Metrics) ValuationFailed(chainID uint64) {
	if m != nil {
		m.valuationFailures.WithLabelValues(chainLabel(chainID)).Inc()
	}
}

// PublishError counts a channel failure.
func (m *Metrics) PublishError(channel string) {
	if m != nil {
		m.publishErrors.WithLabelValues(channel).Inc()
	}
}

// ConnectionLost counts a lost transport.
func (m *Metrics) ConnectionLost(chainID uint64) {
	if m != nil {
		m.connectionLosses.WithLabelValues(chainLabel(chainID)).Inc()
	}
}

// Restarted counts a performed restart.
func (m *Metrics) Restarted() {
	if m != nil {
		m.restarts.Inc()
	}
}

// RestartSkipped counts an ignored restart request.
func (m *Metrics) RestartSkipped() {
	if m != nil {
		m.restartsSkipped.Inc()
	}
}

// Handler returns an HTTP handler for /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
