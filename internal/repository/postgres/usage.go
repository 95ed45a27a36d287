package postgres

import (
	"context"
	"fmt"

	"github.com/mpro775/tagdod-promo-engine/internal/domain"
	"github.com/mpro775/tagdod-promo-engine/internal/repository"
)

// UsageCounter implements repository.UsageCounter on PostgreSQL. The global
// counter lives on the coupon or rule row itself; per-user counters live in
// user_usage_counters. Both are claimed inside one transaction with
// conditional UPDATEs, so a reservation either fully lands or fully rolls
// back, and no read-then-write window exists.
type UsageCounter struct {
	db DB
}

// NewUsageCounter creates a PostgreSQL-backed usage counter.
func NewUsageCounter(db DB) *UsageCounter {
	return &UsageCounter{db: db}
}

// TryReserve claims one unit of the global and, when the user is known,
// per-user quota. RowsAffected() == 0 on the conditional update means the
// corresponding limit was already exhausted.
func (u *UsageCounter) TryReserve(ctx context.Context, key repository.UsageKey) (domain.ReserveOutcome, error) {
	tx, err := u.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin reserve tx: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, globalReserveSQL(key.Subject), key.Ref)
	if err != nil {
		return 0, fmt.Errorf("reserve global quota: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ReserveLimitExceeded, nil
	}

	if key.UserID != "" {
		query := `
			INSERT INTO user_usage_counters (subject_kind, subject_ref, user_id, used_count)
			VALUES ($1, $2, $3, 1)
			ON CONFLICT (subject_kind, subject_ref, user_id) DO UPDATE
			SET used_count = user_usage_counters.used_count + 1,
			    updated_at = NOW()
			WHERE $4 = 0 OR user_usage_counters.used_count < $4`

		tag, err := tx.Exec(ctx, query, key.Subject, key.Ref, key.UserID, key.PerUserLimit)
		if err != nil {
			return 0, fmt.Errorf("reserve per-user quota: %w", err)
		}
		if tag.RowsAffected() == 0 {
			// Rolls back the global claim too.
			return domain.ReserveUserLimitExceeded, nil
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit reserve tx: %w", err)
	}
	return domain.ReserveOK, nil
}

// Release returns one previously reserved unit. Counters never go below zero.
func (u *UsageCounter) Release(ctx context.Context, key repository.UsageKey) error {
	tx, err := u.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin release tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, globalReleaseSQL(key.Subject), key.Ref); err != nil {
		return fmt.Errorf("release global quota: %w", err)
	}

	if key.UserID != "" {
		query := `
			UPDATE user_usage_counters
			SET used_count = GREATEST(used_count - 1, 0),
			    updated_at = NOW()
			WHERE subject_kind = $1 AND subject_ref = $2 AND user_id = $3`

		if _, err := tx.Exec(ctx, query, key.Subject, key.Ref, key.UserID); err != nil {
			return fmt.Errorf("release per-user quota: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit release tx: %w", err)
	}
	return nil
}

// UserCount returns the user's current redemption count for the subject.
// An absent row counts as zero.
func (u *UsageCounter) UserCount(ctx context.Context, subject repository.UsageSubject, ref, userID string) (int, error) {
	query := `
		SELECT COALESCE(
			(SELECT used_count FROM user_usage_counters
			 WHERE subject_kind = $1 AND subject_ref = $2 AND user_id = $3),
			0)`

	var count int
	if err := u.db.QueryRow(ctx, query, subject, ref, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("query user usage count: %w", err)
	}
	return count, nil
}

// globalReserveSQL claims one unit of the subject's global quota. A limit of
// zero means unlimited. The WHERE clause makes the update conditional, so
// concurrent claimants past the limit affect zero rows.
func globalReserveSQL(subject repository.UsageSubject) string {
	if subject == repository.SubjectRule {
		return `
			UPDATE price_rules
			SET current_uses = current_uses + 1, updated_at = NOW()
			WHERE id = $1 AND deleted_at IS NULL
			  AND (max_uses = 0 OR current_uses < max_uses)`
	}
	return `
		UPDATE coupons
		SET used_count = used_count + 1, updated_at = NOW()
		WHERE code = $1 AND deleted_at IS NULL
		  AND (usage_limit = 0 OR used_count < usage_limit)`
}

func globalReleaseSQL(subject repository.UsageSubject) string {
	if subject == repository.SubjectRule {
		return `
			UPDATE price_rules
			SET current_uses = GREATEST(current_uses - 1, 0), updated_at = NOW()
			WHERE id = $1 AND deleted_at IS NULL`
	}
	return `
		UPDATE coupons
		SET used_count = GREATEST(used_count - 1, 0), updated_at = NOW()
		WHERE code = $1 AND deleted_at IS NULL`
}
