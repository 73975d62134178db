package core

import "github.com/shopspring/decimal"

// Metrics records business events.
type Metrics interface {
	SponsorshipDecided(status string)
	FundsDebited(amount decimal.Decimal)
	QuizSubmitted(passed bool)
	NotificationDispatched(typ string, ok bool)
}

// NopMetrics discards everything.
type NopMetrics struct{}

var _ Metrics = NopMetrics{}

func (NopMetrics) SponsorshipDecided(string)           {}
func (NopMetrics) FundsDebited(decimal.Decimal)        {}
func (NopMetrics) QuizSubmitted(bool)                  {}
func (NopMetrics) NotificationDispatched(string, bool) {}
