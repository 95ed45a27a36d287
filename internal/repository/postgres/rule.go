package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/mpro775/tagdod-promo-engine/internal/domain"
	apperrors "github.com/mpro775/tagdod-promo-engine/pkg/errors"
)

const ruleColumns = `
	id, name, active, priority, start_at, end_at, conditions, effects,
	max_uses, max_uses_per_user, current_uses,
	stats_views, stats_applied_count, stats_revenue, stats_savings,
	created_at, updated_at`

// RuleRepository implements repository.RuleRepository using PostgreSQL.
type RuleRepository struct {
	db DB
}

// NewRuleRepository creates a new PostgreSQL-backed rule repository.
func NewRuleRepository(db DB) *RuleRepository {
	return &RuleRepository{db: db}
}

// ListActive returns all non-deleted, active rules whose window contains now.
// Each window bound is checked NULL-tolerantly so open-ended windows match.
func (r *RuleRepository) ListActive(ctx context.Context, now time.Time) ([]domain.PriceRule, error) {
	query := `
		SELECT ` + ruleColumns + `
		FROM price_rules
		WHERE deleted_at IS NULL
		  AND active
		  AND (start_at IS NULL OR start_at <= $1)
		  AND (end_at IS NULL OR end_at >= $1)
		ORDER BY priority DESC, created_at DESC`

	rows, err := r.db.Query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("list active rules: %w", err)
	}
	defer rows.Close()

	var rules []domain.PriceRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, *rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rule rows: %w", err)
	}

	return rules, nil
}

// GetByID retrieves a non-deleted rule by its identifier.
func (r *RuleRepository) GetByID(ctx context.Context, id string) (*domain.PriceRule, error) {
	query := `
		SELECT ` + ruleColumns + `
		FROM price_rules
		WHERE id = $1 AND deleted_at IS NULL`

	rule, err := scanRule(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return rule, nil
}

// BumpStats adds the delta to the rule's write-only telemetry counters.
func (r *RuleRepository) BumpStats(ctx context.Context, id string, delta domain.RuleStatsDelta) error {
	query := `
		UPDATE price_rules
		SET stats_views = stats_views + $2,
		    stats_applied_count = stats_applied_count + $3,
		    stats_revenue = stats_revenue + $4,
		    stats_savings = stats_savings + $5,
		    updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`

	ct, err := r.db.Exec(ctx, query, id, delta.Views, delta.AppliedCount, delta.Revenue, delta.Savings)
	if err != nil {
		return fmt.Errorf("bump rule stats: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("price rule", id)
	}
	return nil
}

// scanRule reads one rule row; conditions and effects are stored as JSONB.
func scanRule(row pgx.Row) (*domain.PriceRule, error) {
	var (
		rule           domain.PriceRule
		conditionsJSON []byte
		effectsJSON    []byte
	)

	err := row.Scan(
		&rule.ID,
		&rule.Name,
		&rule.Active,
		&rule.Priority,
		&rule.StartAt,
		&rule.EndAt,
		&conditionsJSON,
		&effectsJSON,
		&rule.MaxUses,
		&rule.MaxUsesPerUser,
		&rule.CurrentUses,
		&rule.Stats.Views,
		&rule.Stats.AppliedCount,
		&rule.Stats.Revenue,
		&rule.Stats.Savings,
		&rule.CreatedAt,
		&rule.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, pgx.ErrNoRows
		}
		return nil, fmt.Errorf("scan rule: %w", err)
	}

	if conditionsJSON != nil {
		if err := json.Unmarshal(conditionsJSON, &rule.Conditions); err != nil {
			return nil, fmt.Errorf("unmarshal rule conditions: %w", err)
		}
	}
	if effectsJSON != nil {
		if err := json.Unmarshal(effectsJSON, &rule.Effects); err != nil {
			return nil, fmt.Errorf("unmarshal rule effects: %w", err)
		}
	}

	return &rule, nil
}
