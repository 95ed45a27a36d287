// Package memory provides an in-memory usage counter with the same
// reservation contract as the PostgreSQL implementation. It backs tests and
// makes the concurrency contract checkable without a database.
package memory

import (
	"context"
	"sync"

	"github.com/mpro775/tagdod-promo-engine/internal/domain"
	"github.com/mpro775/tagdod-promo-engine/internal/repository"
)

type subjectKey struct {
	subject repository.UsageSubject
	ref     string
}

type userKey struct {
	subjectKey
	userID string
}

// UsageCounter is a mutex-guarded repository.UsageCounter. Limits are taken
// from the UsageKey on every call since there is no backing document.
type UsageCounter struct {
	mu      sync.Mutex
	global  map[subjectKey]int
	perUser map[userKey]int
}

// NewUsageCounter creates an empty in-memory usage counter.
func NewUsageCounter() *UsageCounter {
	return &UsageCounter{
		global:  make(map[subjectKey]int),
		perUser: make(map[userKey]int),
	}
}

// TryReserve claims one unit of the global and per-user quotas. Both checks
// happen under one lock, so the claim is atomic.
func (u *UsageCounter) TryReserve(_ context.Context, key repository.UsageKey) (domain.ReserveOutcome, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	sk := subjectKey{subject: key.Subject, ref: key.Ref}
	if key.GlobalLimit > 0 && u.global[sk] >= key.GlobalLimit {
		return domain.ReserveLimitExceeded, nil
	}

	if key.UserID != "" {
		uk := userKey{subjectKey: sk, userID: key.UserID}
		if key.PerUserLimit > 0 && u.perUser[uk] >= key.PerUserLimit {
			return domain.ReserveUserLimitExceeded, nil
		}
		u.perUser[uk]++
	}

	u.global[sk]++
	return domain.ReserveOK, nil
}

// Release returns one previously reserved unit. Counters never go below zero.
func (u *UsageCounter) Release(_ context.Context, key repository.UsageKey) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	sk := subjectKey{subject: key.Subject, ref: key.Ref}
	if u.global[sk] > 0 {
		u.global[sk]--
	}
	if key.UserID != "" {
		uk := userKey{subjectKey: sk, userID: key.UserID}
		if u.perUser[uk] > 0 {
			u.perUser[uk]--
		}
	}
	return nil
}

// UserCount returns the user's current redemption count for the subject.
func (u *UsageCounter) UserCount(_ context.Context, subject repository.UsageSubject, ref, userID string) (int, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.perUser[userKey{subjectKey: subjectKey{subject: subject, ref: ref}, userID: userID}], nil
}

// GlobalCount returns the current global redemption count for the subject.
func (u *UsageCounter) GlobalCount(subject repository.UsageSubject, ref string) int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.global[subjectKey{subject: subject, ref: ref}]
}
