package sla_test

import (
	"context"
	"testing"
	"time"

	"go-leave/internal/leave"
	leaveerrors "go-leave/internal/leave/errors"
	"go-leave/internal/shared/clock"
	"go-leave/internal/sla"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type fakeStore struct {
	findBreachedFn func(ctx context.Context, now time.Time, limit int) ([]leave.Request, error)
	markBreachedFn func(ctx context.Context, id string) (bool, error)
}

func (f *fakeStore) FindBreached(ctx context.Context, now time.Time, limit int) ([]leave.Request, error) {
	if f.findBreachedFn != nil {
		return f.findBreachedFn(ctx, now, limit)
	}
	return nil, nil
}

func (f *fakeStore) MarkBreached(ctx context.Context, id string) (bool, error) {
	if f.markBreachedFn != nil {
		return f.markBreachedFn(ctx, id)
	}
	return true, nil
}

type fakeEscalator struct {
	escalateFn func(ctx context.Context, companyID, id, reason string) (leave.RequestResponse, error)
	calls      int
}

func (f *fakeEscalator) Escalate(ctx context.Context, companyID, id, reason string) (leave.RequestResponse, error) {
	f.calls++
	if f.escalateFn != nil {
		return f.escalateFn(ctx, companyID, id, reason)
	}
	return leave.RequestResponse{Status: leave.StatusEscalated}, nil
}

var sweepNow = time.Date(2026, 2, 6, 12, 0, 0, 0, time.UTC)

func overdueRequest(hoursLate int) leave.Request {
	deadline := sweepNow.Add(-time.Duration(hoursLate) * time.Hour)
	return leave.Request{
		ID:            uuid.New(),
		CompanyID:     uuid.New(),
		RequestNumber: "REQ-000077",
		Status:        leave.StatusPending,
		SLADeadline:   &deadline,
	}
}

func TestSweeper_RunOnce(t *testing.T) {
	ctx := context.Background()

	t.Run("escalates each overdue request with the overdue duration", func(t *testing.T) {
		request := overdueRequest(3)
		store := &fakeStore{
			findBreachedFn: func(ctx context.Context, now time.Time, limit int) ([]leave.Request, error) {
				assert.Equal(t, sweepNow, now)
				return []leave.Request{request}, nil
			},
		}
		var gotReason string
		escalator := &fakeEscalator{
			escalateFn: func(ctx context.Context, companyID, id, reason string) (leave.RequestResponse, error) {
				assert.Equal(t, request.CompanyID.String(), companyID)
				assert.Equal(t, request.ID.String(), id)
				gotReason = reason
				return leave.RequestResponse{Status: leave.StatusEscalated}, nil
			},
		}

		sweeper := sla.NewSweeper(store, escalator, clock.Fixed(sweepNow))
		report := sweeper.RunOnce(ctx)

		assert.Equal(t, 1, report.Found)
		assert.Equal(t, 1, report.Escalated)
		assert.Empty(t, report.Errors)
		assert.Equal(t, "approval deadline passed 3h0m0s ago", gotReason)
	})

	t.Run("skips rows another sweeper already flipped", func(t *testing.T) {
		store := &fakeStore{
			findBreachedFn: func(ctx context.Context, now time.Time, limit int) ([]leave.Request, error) {
				return []leave.Request{overdueRequest(1)}, nil
			},
			markBreachedFn: func(ctx context.Context, id string) (bool, error) {
				return false, nil
			},
		}
		escalator := &fakeEscalator{}

		sweeper := sla.NewSweeper(store, escalator, clock.Fixed(sweepNow))
		report := sweeper.RunOnce(ctx)

		assert.Equal(t, 1, report.Found)
		assert.Equal(t, 0, report.Escalated)
		assert.Equal(t, 1, report.Skipped)
		assert.Equal(t, 0, escalator.calls)
	})

	t.Run("a decision racing the sweep counts as skipped, not failed", func(t *testing.T) {
		store := &fakeStore{
			findBreachedFn: func(ctx context.Context, now time.Time, limit int) ([]leave.Request, error) {
				return []leave.Request{overdueRequest(1)}, nil
			},
		}
		escalator := &fakeEscalator{
			escalateFn: func(ctx context.Context, companyID, id, reason string) (leave.RequestResponse, error) {
				return leave.RequestResponse{}, leaveerrors.ErrAlreadyDecided
			},
		}

		sweeper := sla.NewSweeper(store, escalator, clock.Fixed(sweepNow))
		report := sweeper.RunOnce(ctx)

		assert.Equal(t, 1, report.Skipped)
		assert.Empty(t, report.Errors)
	})

	t.Run("escalation failures are reported per request", func(t *testing.T) {
		store := &fakeStore{
			findBreachedFn: func(ctx context.Context, now time.Time, limit int) ([]leave.Request, error) {
				return []leave.Request{overdueRequest(1), overdueRequest(2)}, nil
			},
		}
		escalator := &fakeEscalator{
			escalateFn: func(ctx context.Context, companyID, id, reason string) (leave.RequestResponse, error) {
				return leave.RequestResponse{}, leaveerrors.ErrNoApproverAvailable
			},
		}

		sweeper := sla.NewSweeper(store, escalator, clock.Fixed(sweepNow))
		report := sweeper.RunOnce(ctx)

		assert.Equal(t, 2, report.Found)
		assert.Equal(t, 0, report.Escalated)
		assert.Len(t, report.Errors, 2)
	})

	t.Run("second pass after a clean sweep finds nothing", func(t *testing.T) {
		breached := map[string]bool{}
		pending := []leave.Request{overdueRequest(1)}
		store := &fakeStore{
			findBreachedFn: func(ctx context.Context, now time.Time, limit int) ([]leave.Request, error) {
				var out []leave.Request
				for _, r := range pending {
					if !breached[r.ID.String()] {
						out = append(out, r)
					}
				}
				return out, nil
			},
			markBreachedFn: func(ctx context.Context, id string) (bool, error) {
				if breached[id] {
					return false, nil
				}
				breached[id] = true
				return true, nil
			},
		}
		escalator := &fakeEscalator{}
		sweeper := sla.NewSweeper(store, escalator, clock.Fixed(sweepNow))

		first := sweeper.RunOnce(ctx)
		second := sweeper.RunOnce(ctx)

		assert.Equal(t, 1, first.Escalated)
		assert.Equal(t, 0, second.Found)
		assert.Equal(t, 1, escalator.calls)
	})
}
