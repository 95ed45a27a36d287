package repository

import (
	"context"
	"time"

	"github.com/mpro775/tagdod-promo-engine/internal/domain"
)

// RuleRepository provides read access to price rules and write access to
// their telemetry counters. Soft-deleted rules are filtered out uniformly at
// this layer, never per call site.
type RuleRepository interface {
	// ListActive returns all non-deleted, active rules whose validity window
	// contains now (either bound may be absent).
	ListActive(ctx context.Context, now time.Time) ([]domain.PriceRule, error)

	// GetByID retrieves a non-deleted rule by its identifier.
	GetByID(ctx context.Context, id string) (*domain.PriceRule, error)

	// BumpStats adds the delta to a rule's write-only telemetry counters.
	BumpStats(ctx context.Context, id string, delta domain.RuleStatsDelta) error
}

// CouponRepository provides read access to coupons and writes redemption
// audit rows. Soft-deleted coupons are filtered out at this layer.
type CouponRepository interface {
	// GetByCode retrieves a non-deleted coupon by its uppercase code.
	GetByCode(ctx context.Context, code string) (*domain.Coupon, error)

	// ListAutoApply returns all non-deleted, active, public coupons, ordered
	// by code for deterministic stacking.
	ListAutoApply(ctx context.Context) ([]domain.Coupon, error)

	// RecordRedemption inserts a redemption audit row. Inserting the same
	// idempotency key twice is a no-op.
	RecordRedemption(ctx context.Context, r *domain.Redemption) error

	// MarkReleased flags the redemption for the given code and order as
	// released.
	MarkReleased(ctx context.Context, code, orderID string) error
}

// UsageSubject identifies which quota a usage key refers to.
type UsageSubject string

const (
	SubjectCoupon UsageSubject = "coupon"
	SubjectRule   UsageSubject = "rule"
)

// UsageKey identifies one reservation: a coupon code or rule ID plus the
// redeeming user. The limits come from the document the caller validated;
// storage backends that keep limits next to the counter may ignore them.
type UsageKey struct {
	Subject      UsageSubject
	Ref          string // coupon code or rule ID
	UserID       string
	GlobalLimit  int // 0 = unlimited
	PerUserLimit int // 0 = unlimited
}

// UsageCounter tracks global and per-user redemption counts. TryReserve and
// Release are the only operations that may mutate shared state, and each is a
// single atomic conditional update: there is no read-then-write window.
type UsageCounter interface {
	// TryReserve claims one unit of the subject's quota for the user. Under
	// M concurrent attempts against a remaining quota of N < M, exactly N
	// calls return ReserveOK.
	TryReserve(ctx context.Context, key UsageKey) (domain.ReserveOutcome, error)

	// Release returns one previously reserved unit, symmetric with
	// TryReserve. Counters never go below zero.
	Release(ctx context.Context, key UsageKey) error

	// UserCount returns the user's current redemption count for the subject.
	UserCount(ctx context.Context, subject UsageSubject, ref, userID string) (int, error)
}
