package postgres

import (
	"context"
	"errors"
	"testing"

	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpro775/tagdod-promo-engine/internal/domain"
	"github.com/mpro775/tagdod-promo-engine/internal/repository"
	"github.com/mpro775/tagdod-promo-engine/pkg/database"
)

func setupUsageCounter(t *testing.T) (*UsageCounter, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	return NewUsageCounter(mock), mock
}

func testKey() repository.UsageKey {
	return repository.UsageKey{
		Subject:      repository.SubjectCoupon,
		Ref:          "SUMMER2024",
		UserID:       "user-001",
		GlobalLimit:  100,
		PerUserLimit: 1,
	}
}

func TestUsageCounter_TryReserve_OK(t *testing.T) {
	counter, mock := setupUsageCounter(t)
	defer mock.Close()

	key := testKey()
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE coupons").
		WithArgs(key.Ref).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("INSERT INTO user_usage_counters").
		WithArgs(key.Subject, key.Ref, key.UserID, key.PerUserLimit).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	outcome, err := counter.TryReserve(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, domain.ReserveOK, outcome)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUsageCounter_TryReserve_GlobalLimitExceeded(t *testing.T) {
	counter, mock := setupUsageCounter(t)
	defer mock.Close()

	key := testKey()
	mock.ExpectBegin()
	// Conditional update affects no rows when the quota is exhausted.
	mock.ExpectExec("UPDATE coupons").
		WithArgs(key.Ref).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectRollback()

	outcome, err := counter.TryReserve(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, domain.ReserveLimitExceeded, outcome)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUsageCounter_TryReserve_UserLimitRollsBackGlobal(t *testing.T) {
	counter, mock := setupUsageCounter(t)
	defer mock.Close()

	key := testKey()
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE coupons").
		WithArgs(key.Ref).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("INSERT INTO user_usage_counters").
		WithArgs(key.Subject, key.Ref, key.UserID, key.PerUserLimit).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))
	mock.ExpectRollback()

	outcome, err := counter.TryReserve(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, domain.ReserveUserLimitExceeded, outcome)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUsageCounter_TryReserve_AnonymousSkipsPerUser(t *testing.T) {
	counter, mock := setupUsageCounter(t)
	defer mock.Close()

	key := testKey()
	key.UserID = ""

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE coupons").
		WithArgs(key.Ref).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	outcome, err := counter.TryReserve(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, domain.ReserveOK, outcome)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUsageCounter_TryReserve_RuleSubject(t *testing.T) {
	counter, mock := setupUsageCounter(t)
	defer mock.Close()

	key := repository.UsageKey{
		Subject:     repository.SubjectRule,
		Ref:         "rule-001",
		GlobalLimit: 1000,
	}

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE price_rules").
		WithArgs(key.Ref).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	outcome, err := counter.TryReserve(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, domain.ReserveOK, outcome)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUsageCounter_TryReserve_ExecError(t *testing.T) {
	counter, mock := setupUsageCounter(t)
	defer mock.Close()

	key := testKey()
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE coupons").
		WithArgs(key.Ref).
		WillReturnError(errors.New("connection refused"))
	mock.ExpectRollback()

	_, err := counter.TryReserve(context.Background(), key)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "reserve global quota")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUsageCounter_Release(t *testing.T) {
	counter, mock := setupUsageCounter(t)
	defer mock.Close()

	key := testKey()
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE coupons").
		WithArgs(key.Ref).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("UPDATE user_usage_counters").
		WithArgs(key.Subject, key.Ref, key.UserID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	err := counter.Release(context.Background(), key)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUsageCounter_UserCount(t *testing.T) {
	counter, mock := setupUsageCounter(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT COALESCE").
		WithArgs(repository.SubjectCoupon, "SUMMER2024", "user-001").
		WillReturnRows(pgxmock.NewRows([]string{"coalesce"}).AddRow(2))

	count, err := counter.UserCount(context.Background(), repository.SubjectCoupon, "SUMMER2024", "user-001")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}
