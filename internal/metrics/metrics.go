package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Claim outcome labels.
const (
	ClaimWon      = "won"
	ClaimLost     = "lost"
	ClaimExpired  = "expired"
	ClaimNotFound = "not_found"
	ClaimClosed   = "consultant_closed"
	ClaimTimeout  = "timeout"
	ClaimError    = "error"
)

var (
	once sync.Once

	claims = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bookingcore",
			Name:      "slot_claims_total",
			Help:      "Slot claim attempts by outcome.",
		},
		[]string{"outcome"},
	)

	transitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bookingcore",
			Name:      "consultation_transitions_total",
			Help:      "Consultation status transitions by target status.",
		},
		[]string{"to"},
	)

	bookableSlots = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "bookingcore",
			Name:      "bookable_slots",
			Help:      "Currently bookable future slots per consultant.",
		},
		[]string{"consultant_id"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(claims, transitions, bookableSlots)
	})
}

// IncClaim counts a claim attempt outcome.
func IncClaim(outcome string) {
	claims.WithLabelValues(outcome).Inc()
}

// IncTransition counts a successful transition into a status.
func IncTransition(to string) {
	transitions.WithLabelValues(to).Inc()
}

// SetBookableSlots records the bookable gauge for a consultant.
func SetBookableSlots(consultantID string, n int) {
	bookableSlots.WithLabelValues(consultantID).Set(float64(n))
}
