package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"

	"github.com/trezcool/elimu/core"
)

// Prometheus exposes business counters under the elimu namespace.
type Prometheus struct {
	sponsorshipDecisions *prometheus.CounterVec
	fundsDebited         prometheus.Counter
	quizSubmissions      *prometheus.CounterVec
	notifications        *prometheus.CounterVec
}

var _ core.Metrics = (*Prometheus)(nil)

// NewPrometheus registers the counters on reg (prometheus.DefaultRegisterer when nil).
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Prometheus{
		sponsorshipDecisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "elimu",
			Name:      "sponsorship_decisions_total",
			Help:      "Sponsorships moved out of pending, or funded directly, by resulting status.",
		}, []string{"status"}),
		fundsDebited: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "elimu",
			Name:      "sponsorship_funds_debited_total",
			Help:      "Total amount debited from sponsor balances.",
		}),
		quizSubmissions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "elimu",
			Name:      "quiz_submissions_total",
			Help:      "Graded quiz submissions.",
		}, []string{"passed"}),
		notifications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "elimu",
			Name:      "notifications_total",
			Help:      "Notifications dispatched, by type and result.",
		}, []string{"type", "result"}),
	}
}

func (m *Prometheus) SponsorshipDecided(status string) {
	m.sponsorshipDecisions.WithLabelValues(status).Inc()
}

func (m *Prometheus) FundsDebited(amount decimal.Decimal) {
	m.fundsDebited.Add(amount.InexactFloat64())
}

func (m *Prometheus) QuizSubmitted(passed bool) {
	m.quizSubmissions.WithLabelValues(strconv.FormatBool(passed)).Inc()
}

func (m *Prometheus) NotificationDispatched(typ string, ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	m.notifications.WithLabelValues(typ, result).Inc()
}
