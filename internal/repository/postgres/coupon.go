package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mpro775/tagdod-promo-engine/internal/domain"
	apperrors "github.com/mpro775/tagdod-promo-engine/pkg/errors"
)

const couponColumns = `
	id, code, description, type, status, visibility,
	discount_value, minimum_order_amount, maximum_discount_amount,
	usage_limit, usage_limit_per_user, used_count,
	valid_from, valid_until, applies_to, applicable_ids,
	buy_x_quantity, get_y_quantity, get_y_product_id,
	created_at, updated_at`

// CouponRepository implements repository.CouponRepository using PostgreSQL.
type CouponRepository struct {
	db DB
}

// NewCouponRepository creates a new PostgreSQL-backed coupon repository.
func NewCouponRepository(db DB) *CouponRepository {
	return &CouponRepository{db: db}
}

// GetByCode retrieves a non-deleted coupon by its uppercase code.
func (r *CouponRepository) GetByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	query := `
		SELECT ` + couponColumns + `
		FROM coupons
		WHERE code = $1 AND deleted_at IS NULL`

	coupon, err := scanCoupon(r.db.QueryRow(ctx, query, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return coupon, nil
}

// ListAutoApply returns all non-deleted, active, public coupons ordered by
// code so stacking is deterministic.
func (r *CouponRepository) ListAutoApply(ctx context.Context) ([]domain.Coupon, error) {
	query := `
		SELECT ` + couponColumns + `
		FROM coupons
		WHERE deleted_at IS NULL
		  AND status = $1
		  AND visibility = $2
		ORDER BY code`

	rows, err := r.db.Query(ctx, query, domain.CouponStatusActive, domain.CouponVisibilityPublic)
	if err != nil {
		return nil, fmt.Errorf("list auto-apply coupons: %w", err)
	}
	defer rows.Close()

	var coupons []domain.Coupon
	for rows.Next() {
		c, err := scanCoupon(rows)
		if err != nil {
			return nil, err
		}
		coupons = append(coupons, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate coupon rows: %w", err)
	}

	return coupons, nil
}

// RecordRedemption inserts a redemption audit row. A duplicate idempotency
// key is silently ignored so retried redemptions do not double-record.
func (r *CouponRepository) RecordRedemption(ctx context.Context, red *domain.Redemption) error {
	query := `
		INSERT INTO coupon_redemptions (
			id, code, user_id, order_id, discount_amount, idempotency_key, released, created_at
		) VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), FALSE, $7)
		ON CONFLICT (idempotency_key) DO NOTHING`

	_, err := r.db.Exec(ctx, query,
		red.ID,
		red.Code,
		red.UserID,
		red.OrderID,
		red.DiscountAmount,
		red.IdempotencyKey,
		red.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("record redemption: %w", err)
	}
	return nil
}

// MarkReleased flags the redemption rows for the given code and order as released.
func (r *CouponRepository) MarkReleased(ctx context.Context, code, orderID string) error {
	query := `
		UPDATE coupon_redemptions
		SET released = TRUE
		WHERE code = $1 AND order_id = $2 AND NOT released`

	if _, err := r.db.Exec(ctx, query, code, orderID); err != nil {
		return fmt.Errorf("mark redemption released: %w", err)
	}
	return nil
}

func scanCoupon(row pgx.Row) (*domain.Coupon, error) {
	var (
		c       domain.Coupon
		idsJSON []byte
	)

	err := row.Scan(
		&c.ID,
		&c.Code,
		&c.Description,
		&c.Type,
		&c.Status,
		&c.Visibility,
		&c.DiscountValue,
		&c.MinimumOrderAmount,
		&c.MaximumDiscountAmount,
		&c.UsageLimit,
		&c.UsageLimitPerUser,
		&c.UsedCount,
		&c.ValidFrom,
		&c.ValidUntil,
		&c.AppliesTo,
		&idsJSON,
		&c.BuyXQuantity,
		&c.GetYQuantity,
		&c.GetYProductID,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, pgx.ErrNoRows
		}
		return nil, fmt.Errorf("scan coupon: %w", err)
	}

	if idsJSON != nil {
		if err := json.Unmarshal(idsJSON, &c.ApplicableIDs); err != nil {
			return nil, fmt.Errorf("unmarshal applicable_ids: %w", err)
		}
	}
	if c.ApplicableIDs == nil {
		c.ApplicableIDs = []string{}
	}

	return &c, nil
}
