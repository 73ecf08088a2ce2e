package metrics

import "github.com/prometheus/client_golang/prometheus"

// Reservation outcomes.
const (
	ReservationReserved    = "reserved"
	ReservationUnavailable = "unavailable"
	ReservationConflict    = "conflict"
	ReservationReleased    = "released"
)

// OrderMetrics counts inventory reservations and order transitions.
type OrderMetrics struct {
	reservations *prometheus.CounterVec
	transitions  *prometheus.CounterVec
}

func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	if reg == nil {
		return &OrderMetrics{}
	}
	reservations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "surprisebag_reservations_total",
		Help: "Reservation attempts by outcome.",
	}, []string{"outcome"})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "surprisebag_order_transitions_total",
		Help: "Applied order status transitions.",
	}, []string{"from", "to"})
	reg.MustRegister(reservations, transitions)
	return &OrderMetrics{reservations: reservations, transitions: transitions}
}

func (m *OrderMetrics) IncReservation(outcome string) {
	if m == nil || m.reservations == nil {
		return
	}
	m.reservations.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func (m *OrderMetrics) IncTransition(from, to string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(from), normalizeLabel(to)).Inc()
}
