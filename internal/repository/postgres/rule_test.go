package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpro775/tagdod-promo-engine/internal/domain"
	"github.com/mpro775/tagdod-promo-engine/pkg/database"
	apperrors "github.com/mpro775/tagdod-promo-engine/pkg/errors"
)

func setupRuleRepo(t *testing.T) (*RuleRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	repo := NewRuleRepository(mock)
	return repo, mock
}

func int64Ptr(v int64) *int64 {
	return &v
}

func sampleRule() *domain.PriceRule {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	end := now.Add(30 * 24 * time.Hour)
	return &domain.PriceRule{
		ID:       "rule-001",
		Name:     "Summer 20% off electronics",
		Active:   true,
		Priority: 10,
		StartAt:  &now,
		EndAt:    &end,
		Conditions: domain.RuleConditions{
			CategoryIDs: []string{"electronics"},
		},
		Effects: domain.RuleEffects{
			PercentOffBps: int64Ptr(2000),
			Badge:         "SALE",
		},
		MaxUses:        1000,
		MaxUsesPerUser: 2,
		CurrentUses:    42,
		Stats: domain.RuleStats{
			Views:        120,
			AppliedCount: 42,
			Revenue:      336000,
			Savings:      84000,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func ruleTestColumns() []string {
	return []string{
		"id", "name", "active", "priority", "start_at", "end_at",
		"conditions", "effects",
		"max_uses", "max_uses_per_user", "current_uses",
		"stats_views", "stats_applied_count", "stats_revenue", "stats_savings",
		"created_at", "updated_at",
	}
}

func ruleRow(r *domain.PriceRule) *pgxmock.Rows {
	conditionsJSON, _ := json.Marshal(r.Conditions)
	effectsJSON, _ := json.Marshal(r.Effects)

	return pgxmock.NewRows(ruleTestColumns()).
		AddRow(
			r.ID, r.Name, r.Active, r.Priority, r.StartAt, r.EndAt,
			conditionsJSON, effectsJSON,
			r.MaxUses, r.MaxUsesPerUser, r.CurrentUses,
			r.Stats.Views, r.Stats.AppliedCount, r.Stats.Revenue, r.Stats.Savings,
			r.CreatedAt, r.UpdatedAt,
		)
}

func TestRuleRepository_ListActive_Success(t *testing.T) {
	repo, mock := setupRuleRepo(t)
	defer mock.Close()

	rule := sampleRule()
	now := time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT (.+) FROM price_rules").
		WithArgs(now).
		WillReturnRows(ruleRow(rule))

	rules, err := repo.ListActive(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, rule.ID, rules[0].ID)
	assert.Equal(t, []string{"electronics"}, rules[0].Conditions.CategoryIDs)
	require.NotNil(t, rules[0].Effects.PercentOffBps)
	assert.Equal(t, int64(2000), *rules[0].Effects.PercentOffBps)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRuleRepository_ListActive_Empty(t *testing.T) {
	repo, mock := setupRuleRepo(t)
	defer mock.Close()

	now := time.Now().UTC()
	mock.ExpectQuery("SELECT (.+) FROM price_rules").
		WithArgs(now).
		WillReturnRows(pgxmock.NewRows(ruleTestColumns()))

	rules, err := repo.ListActive(context.Background(), now)
	require.NoError(t, err)
	assert.Empty(t, rules)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRuleRepository_ListActive_QueryError(t *testing.T) {
	repo, mock := setupRuleRepo(t)
	defer mock.Close()

	now := time.Now().UTC()
	mock.ExpectQuery("SELECT (.+) FROM price_rules").
		WithArgs(now).
		WillReturnError(errors.New("connection refused"))

	_, err := repo.ListActive(context.Background(), now)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "list active rules")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRuleRepository_GetByID_Success(t *testing.T) {
	repo, mock := setupRuleRepo(t)
	defer mock.Close()

	rule := sampleRule()
	mock.ExpectQuery("SELECT (.+) FROM price_rules").
		WithArgs(rule.ID).
		WillReturnRows(ruleRow(rule))

	got, err := repo.GetByID(context.Background(), rule.ID)
	require.NoError(t, err)
	assert.Equal(t, rule.ID, got.ID)
	assert.Equal(t, rule.MaxUses, got.MaxUses)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRuleRepository_GetByID_NotFound(t *testing.T) {
	repo, mock := setupRuleRepo(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT (.+) FROM price_rules").
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows(ruleTestColumns()))

	_, err := repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRuleRepository_BumpStats_Success(t *testing.T) {
	repo, mock := setupRuleRepo(t)
	defer mock.Close()

	delta := domain.RuleStatsDelta{AppliedCount: 1, Revenue: 8000, Savings: 2000}
	mock.ExpectExec("UPDATE price_rules").
		WithArgs("rule-001", delta.Views, delta.AppliedCount, delta.Revenue, delta.Savings).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := repo.BumpStats(context.Background(), "rule-001", delta)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRuleRepository_BumpStats_NotFound(t *testing.T) {
	repo, mock := setupRuleRepo(t)
	defer mock.Close()

	mock.ExpectExec("UPDATE price_rules").
		WithArgs("missing", int64(0), int64(1), int64(0), int64(0)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.BumpStats(context.Background(), "missing", domain.RuleStatsDelta{AppliedCount: 1})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
