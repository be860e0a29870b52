package sla

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go-leave/internal/leave"
	leaveerrors "go-leave/internal/leave/errors"
	"go-leave/internal/shared/clock"

	"go.uber.org/zap"
)

const (
	defaultBatchSize  = 50
	perRequestTimeout = 10 * time.Second
)

// Store is the slice of the leave repository the sweeper reads and flips.
type Store interface {
	FindBreached(ctx context.Context, now time.Time, limit int) ([]leave.Request, error)
	MarkBreached(ctx context.Context, id string) (bool, error)
}

// Escalator advances a breached request to the next approver.
type Escalator interface {
	Escalate(ctx context.Context, companyID, id, reason string) (leave.RequestResponse, error)
}

type Report struct {
	Found     int
	Escalated int
	Skipped   int
	Errors    []string
}

type Sweeper struct {
	store     Store
	escalator Escalator
	clock     clock.Clock
	batchSize int
	logger    *zap.Logger
}

func NewSweeper(store Store, escalator Escalator, clk clock.Clock, logger ...*zap.Logger) *Sweeper {
	l := zap.L().Named("sla.sweeper")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("sla.sweeper")
	}
	if clk == nil {
		clk = clock.System()
	}
	return &Sweeper{
		store:     store,
		escalator: escalator,
		clock:     clk,
		batchSize: defaultBatchSize,
		logger:    l,
	}
}

// RunOnce sweeps one batch of overdue requests. The breach flag flips at
// most once per request, so a concurrent sweeper or a manual decision that
// lands first simply makes this pass skip the row.
func (s *Sweeper) RunOnce(ctx context.Context) Report {
	now := s.clock.Now()

	var report Report
	overdue, err := s.store.FindBreached(ctx, now, s.batchSize)
	if err != nil {
		report.Errors = append(report.Errors, err.Error())
		s.logger.Error("breach scan failed", zap.Error(err))
		return report
	}
	report.Found = len(overdue)

	for _, req := range overdue {
		flipped, err := s.store.MarkBreached(ctx, req.ID.String())
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", req.RequestNumber, err))
			continue
		}
		if !flipped {
			report.Skipped++
			continue
		}

		reason := breachReason(now, req.SLADeadline)
		reqCtx, cancel := context.WithTimeout(ctx, perRequestTimeout)
		_, err = s.escalator.Escalate(reqCtx, req.CompanyID.String(), req.ID.String(), reason)
		cancel()
		if err != nil {
			// The flag stays set; the request was decided or cancelled
			// between the scan and the escalation.
			if errors.Is(err, leaveerrors.ErrAlreadyDecided) || errors.Is(err, leaveerrors.ErrRequestStateChanged) {
				report.Skipped++
				continue
			}
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", req.RequestNumber, err))
			s.logger.Error("escalation after breach failed",
				zap.String("request_number", req.RequestNumber),
				zap.Error(err),
			)
			continue
		}
		report.Escalated++
	}

	if report.Found > 0 {
		s.logger.Info("sla sweep finished",
			zap.Int("found", report.Found),
			zap.Int("escalated", report.Escalated),
			zap.Int("skipped", report.Skipped),
			zap.Int("errors", len(report.Errors)),
		)
	}
	return report
}

func breachReason(now time.Time, deadline *time.Time) string {
	if deadline == nil {
		return "approval deadline passed"
	}
	overdue := now.Sub(*deadline).Round(time.Minute)
	if overdue < 0 {
		overdue = 0
	}
	return fmt.Sprintf("approval deadline passed %s ago", overdue)
}
