package domain

import (
	"time"
)

// Coupon rejection reason constants. Business-rule failures are carried in the
// validation result, never as errors.
const (
	ReasonNotFound          = "NOT_FOUND"
	ReasonInactive          = "INACTIVE"
	ReasonNotYetValid       = "NOT_YET_VALID"
	ReasonExpired           = "EXPIRED"
	ReasonLimitExceeded     = "LIMIT_EXCEEDED"
	ReasonUserLimitExceeded = "USER_LIMIT_EXCEEDED"
	ReasonNotApplicable     = "NOT_APPLICABLE"
	ReasonBelowMinimum      = "BELOW_MINIMUM"
)

// EffectivePriceResult is the outcome of applying the selected rule's effect
// to one cart line. When no rule matches, EffectivePrice equals OriginalPrice
// and AppliedRuleID is empty.
type EffectivePriceResult struct {
	OriginalPrice  int64  `json:"original_price"`
	EffectivePrice int64  `json:"effective_price"`
	AppliedRuleID  string `json:"applied_rule_id,omitempty"`
	Savings        int64  `json:"savings"`
	Badge          string `json:"badge,omitempty"`
	GiftSKU        string `json:"gift_sku,omitempty"`
}

// CouponValidationResult is the outcome of validating a coupon code against a
// cart and user context.
type CouponValidationResult struct {
	Valid          bool   `json:"valid"`
	Reason         string `json:"reason,omitempty"`
	DiscountType   string `json:"discount_type,omitempty"`
	DiscountAmount int64  `json:"discount_amount,omitempty"`
}

// DiscountBreakdown is the stacked discount decomposition for a cart.
// Every field is non-negative.
type DiscountBreakdown struct {
	ItemsDiscount      int64 `json:"items_discount"`
	CouponDiscount     int64 `json:"coupon_discount"`
	AutoDiscountsTotal int64 `json:"auto_discounts_total"`
	ShippingDiscount   int64 `json:"shipping_discount"`
}

// OrderTotals is the final totals breakdown for a cart.
type OrderTotals struct {
	Subtotal           int64 `json:"subtotal"`
	ItemsDiscount      int64 `json:"items_discount"`
	CouponDiscount     int64 `json:"coupon_discount"`
	AutoDiscountsTotal int64 `json:"auto_discounts_total"`
	ShippingCost       int64 `json:"shipping_cost"`
	ShippingDiscount   int64 `json:"shipping_discount"`
	Tax                int64 `json:"tax"`
	Total              int64 `json:"total"`
}

// ReserveOutcome is the result of a usage reservation attempt.
type ReserveOutcome int

const (
	ReserveOK ReserveOutcome = iota
	ReserveLimitExceeded
	ReserveUserLimitExceeded
)

// Redemption is an audit record of a successful coupon reservation.
type Redemption struct {
	ID             string    `json:"id"`
	Code           string    `json:"code"`
	UserID         string    `json:"user_id"`
	OrderID        string    `json:"order_id"`
	DiscountAmount int64     `json:"discount_amount"`
	IdempotencyKey string    `json:"idempotency_key,omitempty"`
	Released       bool      `json:"released"`
	CreatedAt      time.Time `json:"created_at"`
}
