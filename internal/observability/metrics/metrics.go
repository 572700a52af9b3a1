package metrics

import "github.com/prometheus/client_golang/prometheus"

// SchedulingMetrics exposes counters/histograms for the scheduling flows.
type SchedulingMetrics struct {
	slotsOffered   prometheus.Counter
	bookingsTotal  *prometheus.CounterVec
	conflictsTotal prometheus.Counter
	turnLatency    *prometheus.HistogramVec
}

func NewSchedulingMetrics(reg prometheus.Registerer) *SchedulingMetrics {
	m := &SchedulingMetrics{
		slotsOffered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wppai",
			Subsystem: "schedule",
			Name:      "slots_offered_total",
			Help:      "Total candidate slots offered to customers",
		}),
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wppai",
			Subsystem: "schedule",
			Name:      "bookings_total",
			Help:      "Total booking transactions by outcome status",
		}, []string{"status"}),
		conflictsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wppai",
			Subsystem: "schedule",
			Name:      "booking_conflicts_total",
			Help:      "Total bookings rejected because the slot was taken",
		}),
		turnLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "wppai",
			Subsystem: "schedule",
			Name:      "conversation_turn_seconds",
			Help:      "Latency of conversational turn handling",
			Buckets:   prometheus.DefBuckets,
		}, []string{"step"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.slotsOffered, m.bookingsTotal, m.conflictsTotal, m.turnLatency)
	return m
}

func (m *SchedulingMetrics) ObserveSlotsOffered(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.slotsOffered.Add(float64(n))
}

func (m *SchedulingMetrics) ObserveBooking(status string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(status).Inc()
}

func (m *SchedulingMetrics) ObserveConflict() {
	if m == nil {
		return
	}
	m.conflictsTotal.Inc()
}

func (m *SchedulingMetrics) ObserveTurnLatency(step string, seconds float64) {
	if m == nil {
		return
	}
	m.turnLatency.WithLabelValues(step).Observe(seconds)
}
