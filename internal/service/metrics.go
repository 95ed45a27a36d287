package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// quotesTotal counts cart quote evaluations.
	quotesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "promo_quotes_total",
			Help: "Total number of cart pricing quotes evaluated",
		},
	)

	// rulesApplied counts price rules applied to cart lines.
	rulesApplied = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "promo_rules_applied_total",
			Help: "Total number of price rules applied to cart lines",
		},
	)

	// couponValidations counts coupon validation outcomes by rejection reason.
	// Valid coupons carry the "OK" label.
	couponValidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "promo_coupon_validations_total",
			Help: "Total number of coupon validations by outcome",
		},
		[]string{"outcome"},
	)

	// usageReservations counts usage quota reservation attempts by outcome.
	usageReservations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "promo_usage_reservations_total",
			Help: "Total number of usage quota reservation attempts by outcome",
		},
		[]string{"subject", "outcome"},
	)
)

func validationOutcome(reason string) string {
	if reason == "" {
		return "OK"
	}
	return reason
}
