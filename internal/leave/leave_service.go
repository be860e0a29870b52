package leave

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go-leave/internal/approval"
	"go-leave/internal/company"
	"go-leave/internal/employee"
	"go-leave/internal/events"
	leaveerrors "go-leave/internal/leave/errors"
	"go-leave/internal/notification"
	"go-leave/internal/policy"
	"go-leave/internal/shared/clock"
	"go-leave/internal/shared/counter"
	"go-leave/internal/workcal"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	maxRequestDays    = 90
	pastStartWindow   = 365
	futureStartWindow = 180
)

//go:generate mockgen -source=leave_service.go -destination=mock/leave_service_mock.go -package=mock
type Service interface {
	Submit(ctx context.Context, companyID, actorID string, req SubmitRequest) (SubmitResponse, error)
	Approve(ctx context.Context, companyID, actorID, id string, req ApproveRequest) (RequestResponse, error)
	Reject(ctx context.Context, companyID, actorID, id string, req RejectRequest) (RequestResponse, error)
	Escalate(ctx context.Context, companyID, id, reason string) (RequestResponse, error)
	EscalateManual(ctx context.Context, companyID, actorID, id string, req EscalateRequest) (RequestResponse, error)
	Cancel(ctx context.Context, companyID, actorID, id string, req CancelRequest) (RequestResponse, error)

	GetByID(ctx context.Context, companyID, id string) (RequestResponse, error)
	ListByCompany(ctx context.Context, companyID, status string) ([]RequestResponse, error)
	ListByEmployee(ctx context.Context, companyID, employeeID string) ([]RequestResponse, error)
	ListByApprover(ctx context.Context, companyID, approverID string) ([]RequestResponse, error)
	GetBalances(ctx context.Context, companyID, employeeID string, year int) ([]BalanceResponse, error)
}

// AuthorizationProvider is the capability contract the lifecycle delegates
// to. Satisfied by authz.Provider.
type AuthorizationProvider interface {
	HasCapability(ctx context.Context, actorID, companyID, capability string) (bool, error)
	TeamMembersOf(ctx context.Context, actorID, companyID string) ([]string, error)
}

const (
	capApproveAll  = "leave:approve_all"
	capApproveTeam = "leave:approve_team"
	capCancelAny   = "leave:cancel_any"
)

type Deps struct {
	DB        *sql.DB
	Repo      Repository
	Employees employee.Repository
	Companies company.Repository
	Policies  *policy.Loader
	Evaluator *policy.Evaluator
	Resolver  *approval.Resolver
	Authz     AuthorizationProvider
	Counter   counter.Repository
	Sink      notification.Sink
	Clock     clock.Clock
	Logger    *zap.Logger
}

type service struct {
	db        *sql.DB
	repo      Repository
	employees employee.Repository
	companies company.Repository
	policies  *policy.Loader
	evaluator *policy.Evaluator
	resolver  *approval.Resolver
	authz     AuthorizationProvider
	counter   counter.Repository
	sink      notification.Sink
	clock     clock.Clock
	logger    *zap.Logger
}

func NewService(d Deps) Service {
	l := zap.L().Named("leave.service")
	if d.Logger != nil {
		l = d.Logger.Named("leave.service")
	}
	sink := d.Sink
	if sink == nil {
		sink = notification.NopSink{}
	}
	clk := d.Clock
	if clk == nil {
		clk = clock.System()
	}
	return &service{
		db:        d.DB,
		repo:      d.Repo,
		employees: d.Employees,
		companies: d.Companies,
		policies:  d.Policies,
		evaluator: d.Evaluator,
		resolver:  d.Resolver,
		authz:     d.Authz,
		counter:   d.Counter,
		sink:      sink,
		clock:     clk,
		logger:    l,
	}
}

// isRetryableTx reports whether a failed transaction hit a transient
// serialization condition worth retrying once.
func isRetryableTx(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}

func (s *service) Submit(ctx context.Context, companyID, actorID string, req SubmitRequest) (SubmitResponse, error) {
	resp, err := s.submitOnce(ctx, companyID, actorID, req)
	if err != nil && isRetryableTx(err) {
		s.logger.Warn("submit hit a serialization failure, retrying once",
			zap.String("company_id", companyID),
			zap.String("employee_id", req.EmployeeID),
		)
		resp, err = s.submitOnce(ctx, companyID, actorID, req)
	}
	return resp, err
}

func (s *service) submitOnce(ctx context.Context, companyID, actorID string, req SubmitRequest) (SubmitResponse, error) {
	s.logger.Debug("submit leave requested",
		zap.String("company_id", companyID),
		zap.String("actor_id", actorID),
		zap.String("employee_id", req.EmployeeID),
		zap.String("leave_type", req.LeaveTypeCode),
	)

	companyUUID, err := uuid.Parse(companyID)
	if err != nil {
		return SubmitResponse{}, leaveerrors.ErrInvalidCompanyID
	}
	if _, err := uuid.Parse(actorID); err != nil {
		return SubmitResponse{}, leaveerrors.ErrInvalidActorID
	}
	employeeUUID, err := uuid.Parse(req.EmployeeID)
	if err != nil {
		return SubmitResponse{}, leaveerrors.ErrInvalidEmployeeID
	}

	startDate, err := parseDate(req.StartDate)
	if err != nil {
		return SubmitResponse{}, err
	}
	endDate, err := parseDate(req.EndDate)
	if err != nil {
		return SubmitResponse{}, err
	}
	if endDate.Before(startDate) {
		return SubmitResponse{}, leaveerrors.ErrInvalidDateRange
	}
	if len(req.Reason) < 5 || len(req.Reason) > 1000 {
		return SubmitResponse{}, leaveerrors.ErrInvalidReason
	}

	now := s.clock.Now()
	if startDate.Before(now.AddDate(0, 0, -pastStartWindow)) ||
		startDate.After(now.AddDate(0, 0, futureStartWindow)) {
		return SubmitResponse{}, leaveerrors.ErrStartOutOfWindow
	}

	emp, err := s.employees.FindByIDAndCompany(ctx, companyID, req.EmployeeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return SubmitResponse{}, leaveerrors.ErrEmployeeNotFound
		}
		return SubmitResponse{}, err
	}

	comp, err := s.companies.GetByID(ctx, companyUUID)
	if err != nil {
		return SubmitResponse{}, err
	}

	snap, err := s.policies.Load(ctx, companyID)
	if err != nil {
		return SubmitResponse{}, err
	}
	lt := snap.TypeByCode(req.LeaveTypeCode)
	if lt == nil || !lt.Active {
		return SubmitResponse{}, leaveerrors.ErrUnknownLeaveType
	}

	holidays, err := s.companies.HolidaysInRange(ctx, companyID, startDate, endDate)
	if err != nil {
		return SubmitResponse{}, err
	}
	workingDays := workcal.WorkingDays(startDate, endDate, comp.WorkWeekMask,
		workcal.NewHolidaySet(holidays), req.IsHalfDay)
	if !workingDays.IsPositive() ||
		workingDays.GreaterThan(decimal.NewFromInt(maxRequestDays)) {
		return SubmitResponse{}, leaveerrors.ErrInvalidDuration
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("submit begin tx failed", zap.Error(err))
		return SubmitResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)

	overlap, err := qtx.HasOverlapping(ctx, companyID, req.EmployeeID, startDate, endDate)
	if err != nil {
		return SubmitResponse{}, err
	}
	if overlap {
		return SubmitResponse{}, leaveerrors.ErrLeaveOverlap
	}

	year := comp.LeaveYearFor(startDate)
	bal, err := qtx.LockBalance(ctx, companyID, req.EmployeeID, lt.Code, year)
	if err != nil {
		return SubmitResponse{}, err
	}
	created := false
	if bal == nil {
		bal = &Balance{
			ID:                uuid.New(),
			CompanyID:         companyUUID,
			EmployeeID:        employeeUUID,
			LeaveTypeCode:     lt.Code,
			Year:              year,
			AnnualEntitlement: lt.AnnualQuota,
			CarriedForward:    decimal.Zero,
			UsedDays:          decimal.Zero,
			PendingDays:       decimal.Zero,
		}
		created = true
	}

	verdict, err := s.evaluator.Evaluate(ctx, policy.EvaluateInput{
		Employee: *emp,
		Company:  *comp,
		Snapshot: snap,
		Balance: policy.BalanceView{
			AnnualEntitlement: bal.AnnualEntitlement,
			CarriedForward:    bal.CarriedForward,
			UsedDays:          bal.UsedDays,
			PendingDays:       bal.PendingDays,
		},
		Candidate: policy.Candidate{
			LeaveTypeCode: lt.Code,
			StartDate:     startDate,
			EndDate:       endDate,
			IsHalfDay:     req.IsHalfDay,
			RequestedDays: workingDays,
			DocumentID:    req.DocumentID,
		},
	})
	if err != nil {
		return SubmitResponse{}, err
	}

	request := &Request{
		ID:            uuid.New(),
		CompanyID:     companyUUID,
		EmployeeID:    employeeUUID,
		LeaveTypeCode: lt.Code,
		StartDate:     startDate,
		EndDate:       endDate,
		TotalDays:     workcal.CalendarDays(startDate, endDate),
		WorkingDays:   workingDays,
		IsHalfDay:     req.IsHalfDay,
		Reason:        req.Reason,
		DocumentID:    req.DocumentID,
	}

	if verdict.CanAutoApprove {
		request.Status = StatusApproved
		bal.UsedDays = bal.UsedDays.Add(workingDays)
	} else {
		request.Status = StatusEscalated
		bal.PendingDays = bal.PendingDays.Add(workingDays)

		approverID, err := s.firstApprover(ctx, employeeUUID, companyUUID)
		if err != nil {
			return SubmitResponse{}, err
		}
		request.CurrentApproverID = approverID
		deadline := now.Add(time.Duration(comp.SLAHours) * time.Hour)
		request.SLADeadline = &deadline
	}

	// The locked row is the authority on balance, not the evaluator: a
	// racing submission may have consumed days after the snapshot was read.
	if !comp.NegativeBalanceAllowed && bal.Available().IsNegative() {
		return SubmitResponse{}, leaveerrors.ErrInsufficientBalance
	}

	nextVal, err := s.counter.GetNextValue(ctx, companyID, "leave_request")
	if err != nil {
		return SubmitResponse{}, err
	}
	request.RequestNumber = fmt.Sprintf("REQ-%06d", nextVal)

	meta := DecisionMetadata{
		Violations:  verdict.Violations,
		Warnings:    verdict.Warnings,
		Suggestions: verdict.Suggestions,
		Confidence:  verdict.Confidence,
	}
	if request.DecisionMeta, err = json.Marshal(meta); err != nil {
		return SubmitResponse{}, err
	}

	if created {
		if err := qtx.CreateBalance(ctx, bal); err != nil {
			return SubmitResponse{}, err
		}
	} else {
		if err := qtx.UpdateBalance(ctx, bal); err != nil {
			return SubmitResponse{}, err
		}
	}
	if err := qtx.CreateRequest(ctx, request); err != nil {
		s.logger.Error("submit persist failed", zap.Error(err))
		return SubmitResponse{}, err
	}

	eventType := events.LeaveEscalated
	if request.Status == StatusApproved {
		eventType = events.LeaveAutoApproved
	}
	s.sink.WithTx(tx).Notify(ctx, s.lifecycleEvent(eventType, request))

	if err := tx.Commit(); err != nil {
		s.logger.Error("submit commit failed", zap.Error(err))
		return SubmitResponse{}, err
	}

	s.logger.Info("leave request submitted",
		zap.String("request_id", request.ID.String()),
		zap.String("request_number", request.RequestNumber),
		zap.String("status", request.Status),
		zap.String("company_id", companyID),
		zap.String("employee_id", req.EmployeeID),
	)

	resp := SubmitResponse{
		RequestID:     request.ID.String(),
		RequestNumber: request.RequestNumber,
		Status:        request.Status,
		WorkingDays:   workingDays.String(),
		Violations:    verdict.Violations,
		Warnings:      verdict.Warnings,
		Suggestions:   verdict.Suggestions,
		Confidence:    verdict.Confidence,
	}
	if request.CurrentApproverID != nil {
		v := request.CurrentApproverID.String()
		resp.ApproverID = &v
	}
	resp.SLADeadline = formatTimePtr(request.SLADeadline)
	return resp, nil
}

// firstApprover resolves the head of the manager chain, falling back to the
// first active hr/admin employee.
func (s *service) firstApprover(ctx context.Context, employeeID, companyID uuid.UUID) (*uuid.UUID, error) {
	chain, err := s.resolver.Resolve(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	if len(chain) > 0 {
		id := chain[0]
		return &id, nil
	}
	fallback, err := s.resolver.FallbackApprover(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if fallback == nil {
		return nil, leaveerrors.ErrNoApproverAvailable
	}
	return fallback, nil
}

func (s *service) Approve(ctx context.Context, companyID, actorID, id string, req ApproveRequest) (RequestResponse, error) {
	return s.decide(ctx, companyID, actorID, id, StatusApproved, "", req.Comments)
}

func (s *service) Reject(ctx context.Context, companyID, actorID, id string, req RejectRequest) (RequestResponse, error) {
	if req.Reason == "" {
		return RequestResponse{}, leaveerrors.ErrRejectionReasonRequired
	}
	return s.decide(ctx, companyID, actorID, id, StatusRejected, req.Reason, req.Comments)
}

func (s *service) decide(ctx context.Context, companyID, actorID, id, targetStatus, reason string, comments *string) (RequestResponse, error) {
	resp, err := s.decideOnce(ctx, companyID, actorID, id, targetStatus, reason, comments)
	if err != nil && isRetryableTx(err) {
		resp, err = s.decideOnce(ctx, companyID, actorID, id, targetStatus, reason, comments)
	}
	return resp, err
}

func (s *service) decideOnce(ctx context.Context, companyID, actorID, id, targetStatus, reason string, comments *string) (RequestResponse, error) {
	s.logger.Debug("decision requested",
		zap.String("request_id", id),
		zap.String("company_id", companyID),
		zap.String("actor_id", actorID),
		zap.String("target_status", targetStatus),
	)

	if _, err := uuid.Parse(companyID); err != nil {
		return RequestResponse{}, leaveerrors.ErrInvalidCompanyID
	}
	actorUUID, err := uuid.Parse(actorID)
	if err != nil {
		return RequestResponse{}, leaveerrors.ErrInvalidActorID
	}

	request, err := s.repo.GetRequest(ctx, companyID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return RequestResponse{}, leaveerrors.ErrRequestNotFound
		}
		return RequestResponse{}, err
	}
	if IsTerminal(request.Status) {
		return RequestResponse{}, leaveerrors.ErrAlreadyDecided
	}

	allowed, err := s.mayDecide(ctx, actorUUID, request)
	if err != nil {
		return RequestResponse{}, err
	}
	if !allowed {
		s.logger.Warn("decision forbidden",
			zap.String("request_id", id),
			zap.String("actor_id", actorID),
		)
		return RequestResponse{}, leaveerrors.ErrNotAuthorizedToDecide
	}

	comp, err := s.companies.GetByID(ctx, request.CompanyID)
	if err != nil {
		return RequestResponse{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return RequestResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)

	year := comp.LeaveYearFor(request.StartDate)
	bal, err := qtx.LockBalance(ctx, companyID, request.EmployeeID.String(), request.LeaveTypeCode, year)
	if err != nil {
		return RequestResponse{}, err
	}
	if bal == nil {
		// A decided request always has a ledger row from Submit; treat a
		// missing one as concurrent interference.
		return RequestResponse{}, leaveerrors.ErrRequestStateChanged
	}

	release := decimal.Min(bal.PendingDays, request.WorkingDays)
	bal.PendingDays = bal.PendingDays.Sub(release)
	if targetStatus == StatusApproved {
		bal.UsedDays = bal.UsedDays.Add(release)
	}

	expected := request.Status
	now := s.clock.Now()
	request.Status = targetStatus
	request.CurrentApproverID = nil
	request.SLADeadline = nil
	request.DecidedBy = &actorUUID
	request.DecidedAt = &now
	request.DecisionNote = decisionNote(reason, comments)

	updated, err := qtx.UpdateDecision(ctx, request, expected)
	if err != nil {
		return RequestResponse{}, err
	}
	if !updated {
		return RequestResponse{}, leaveerrors.ErrRequestStateChanged
	}
	if err := qtx.UpdateBalance(ctx, bal); err != nil {
		return RequestResponse{}, err
	}

	eventType := events.LeaveApproved
	if targetStatus == StatusRejected {
		eventType = events.LeaveRejected
	}
	event := s.lifecycleEvent(eventType, request)
	event.ApproverID = actorID
	event.Reason = reason
	s.sink.WithTx(tx).Notify(ctx, event)

	if err := tx.Commit(); err != nil {
		return RequestResponse{}, err
	}

	s.logger.Info("decision applied",
		zap.String("request_id", id),
		zap.String("status", targetStatus),
		zap.String("actor_id", actorID),
	)
	return mapRequest(*request), nil
}

// mayDecide checks the three acceptance paths: current approver, blanket
// approval capability, or team-scoped capability covering the requester.
func (s *service) mayDecide(ctx context.Context, actorID uuid.UUID, request *Request) (bool, error) {
	if request.CurrentApproverID != nil && *request.CurrentApproverID == actorID {
		return true, nil
	}

	companyID := request.CompanyID.String()
	all, err := s.authz.HasCapability(ctx, actorID.String(), companyID, capApproveAll)
	if err != nil {
		return false, err
	}
	if all {
		return true, nil
	}

	team, err := s.authz.HasCapability(ctx, actorID.String(), companyID, capApproveTeam)
	if err != nil {
		return false, err
	}
	if !team {
		return false, nil
	}
	members, err := s.authz.TeamMembersOf(ctx, actorID.String(), companyID)
	if err != nil {
		return false, err
	}
	owner := request.EmployeeID.String()
	for _, m := range members {
		if m == owner {
			return true, nil
		}
	}
	return false, nil
}

func (s *service) EscalateManual(ctx context.Context, companyID, actorID, id string, req EscalateRequest) (RequestResponse, error) {
	actorUUID, err := uuid.Parse(actorID)
	if err != nil {
		return RequestResponse{}, leaveerrors.ErrInvalidActorID
	}
	request, err := s.repo.GetRequest(ctx, companyID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return RequestResponse{}, leaveerrors.ErrRequestNotFound
		}
		return RequestResponse{}, err
	}
	allowed, err := s.mayDecide(ctx, actorUUID, request)
	if err != nil {
		return RequestResponse{}, err
	}
	if !allowed {
		return RequestResponse{}, leaveerrors.ErrNotAuthorizedToDecide
	}

	reason := "escalated by current approver"
	if req.Reason != nil && *req.Reason != "" {
		reason = *req.Reason
	}
	return s.escalate(ctx, companyID, id, reason, events.LeaveEscalated)
}

// Escalate advances the request to the next approver in the chain,
// falling back to hr/admin when the chain is exhausted. Invoked by the
// SLA sweeper after flagging a breach; approver-driven escalation goes
// through EscalateManual.
func (s *service) Escalate(ctx context.Context, companyID, id, reason string) (RequestResponse, error) {
	return s.escalate(ctx, companyID, id, reason, events.LeaveSLABreached)
}

func (s *service) escalate(ctx context.Context, companyID, id, reason, eventType string) (RequestResponse, error) {
	resp, err := s.escalateOnce(ctx, companyID, id, reason, eventType)
	if err != nil && isRetryableTx(err) {
		resp, err = s.escalateOnce(ctx, companyID, id, reason, eventType)
	}
	return resp, err
}

func (s *service) escalateOnce(ctx context.Context, companyID, id, reason, eventType string) (RequestResponse, error) {
	if _, err := uuid.Parse(companyID); err != nil {
		return RequestResponse{}, leaveerrors.ErrInvalidCompanyID
	}

	request, err := s.repo.GetRequest(ctx, companyID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return RequestResponse{}, leaveerrors.ErrRequestNotFound
		}
		return RequestResponse{}, err
	}
	if IsTerminal(request.Status) {
		return RequestResponse{}, leaveerrors.ErrAlreadyDecided
	}

	comp, err := s.companies.GetByID(ctx, request.CompanyID)
	if err != nil {
		return RequestResponse{}, err
	}

	next, err := s.nextApprover(ctx, request)
	if err != nil {
		return RequestResponse{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return RequestResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)

	expected := request.Status
	now := s.clock.Now()
	deadline := now.Add(time.Duration(comp.SLAHours) * time.Hour)
	request.Status = StatusEscalated
	request.CurrentApproverID = next
	request.SLADeadline = &deadline
	request.EscalationCount++
	request.DecisionNote = &reason

	updated, err := qtx.UpdateDecision(ctx, request, expected)
	if err != nil {
		return RequestResponse{}, err
	}
	if !updated {
		return RequestResponse{}, leaveerrors.ErrRequestStateChanged
	}

	event := s.lifecycleEvent(eventType, request)
	event.Reason = reason
	s.sink.WithTx(tx).Notify(ctx, event)

	if err := tx.Commit(); err != nil {
		return RequestResponse{}, err
	}

	s.logger.Info("request escalated",
		zap.String("request_id", id),
		zap.Int("escalation_count", request.EscalationCount),
		zap.String("reason", reason),
	)
	return mapRequest(*request), nil
}

// nextApprover picks the chain entry after the current approver, or the
// hr/admin fallback when the chain is exhausted. Keeps the current approver
// when no better option exists.
func (s *service) nextApprover(ctx context.Context, request *Request) (*uuid.UUID, error) {
	chain, err := s.resolver.Resolve(ctx, request.EmployeeID)
	if err != nil {
		return nil, err
	}

	candidates := chain
	if cur := request.CurrentApproverID; cur != nil {
		// A current approver outside the chain (already the hr fallback)
		// means the chain is exhausted.
		candidates = nil
		for i, approver := range chain {
			if approver == *cur {
				candidates = chain[i+1:]
				break
			}
		}
	}
	if len(candidates) > 0 {
		next := candidates[0]
		return &next, nil
	}

	fallback, err := s.resolver.FallbackApprover(ctx, request.CompanyID)
	if err != nil {
		return nil, err
	}
	if fallback != nil {
		return fallback, nil
	}
	return request.CurrentApproverID, nil
}

func (s *service) Cancel(ctx context.Context, companyID, actorID, id string, req CancelRequest) (RequestResponse, error) {
	resp, err := s.cancelOnce(ctx, companyID, actorID, id, req)
	if err != nil && isRetryableTx(err) {
		resp, err = s.cancelOnce(ctx, companyID, actorID, id, req)
	}
	return resp, err
}

func (s *service) cancelOnce(ctx context.Context, companyID, actorID, id string, req CancelRequest) (RequestResponse, error) {
	if _, err := uuid.Parse(companyID); err != nil {
		return RequestResponse{}, leaveerrors.ErrInvalidCompanyID
	}
	actorUUID, err := uuid.Parse(actorID)
	if err != nil {
		return RequestResponse{}, leaveerrors.ErrInvalidActorID
	}

	request, err := s.repo.GetRequest(ctx, companyID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return RequestResponse{}, leaveerrors.ErrRequestNotFound
		}
		return RequestResponse{}, err
	}
	if request.Status == StatusRejected || request.Status == StatusCancelled {
		return RequestResponse{}, leaveerrors.ErrAlreadyDecided
	}

	allowed, err := s.mayCancel(ctx, actorUUID, request)
	if err != nil {
		return RequestResponse{}, err
	}
	if !allowed {
		return RequestResponse{}, leaveerrors.ErrNotAuthorizedToCancel
	}

	comp, err := s.companies.GetByID(ctx, request.CompanyID)
	if err != nil {
		return RequestResponse{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return RequestResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)

	year := comp.LeaveYearFor(request.StartDate)
	bal, err := qtx.LockBalance(ctx, companyID, request.EmployeeID.String(), request.LeaveTypeCode, year)
	if err != nil {
		return RequestResponse{}, err
	}
	if bal != nil {
		if request.Status == StatusApproved {
			bal.UsedDays = decimal.Max(decimal.Zero, bal.UsedDays.Sub(request.WorkingDays))
		} else {
			bal.PendingDays = decimal.Max(decimal.Zero, bal.PendingDays.Sub(request.WorkingDays))
		}
		if err := qtx.UpdateBalance(ctx, bal); err != nil {
			return RequestResponse{}, err
		}
	}

	expected := request.Status
	now := s.clock.Now()
	request.Status = StatusCancelled
	request.CurrentApproverID = nil
	request.SLADeadline = nil
	request.DecidedBy = &actorUUID
	request.DecidedAt = &now
	request.DecisionNote = &req.Reason

	updated, err := qtx.UpdateDecision(ctx, request, expected)
	if err != nil {
		return RequestResponse{}, err
	}
	if !updated {
		return RequestResponse{}, leaveerrors.ErrRequestStateChanged
	}

	event := s.lifecycleEvent(events.LeaveCancelled, request)
	event.Reason = req.Reason
	s.sink.WithTx(tx).Notify(ctx, event)

	if err := tx.Commit(); err != nil {
		return RequestResponse{}, err
	}

	s.logger.Info("request cancelled",
		zap.String("request_id", id),
		zap.String("actor_id", actorID),
	)
	return mapRequest(*request), nil
}

func (s *service) mayCancel(ctx context.Context, actorID uuid.UUID, request *Request) (bool, error) {
	blanket, err := s.authz.HasCapability(ctx, actorID.String(), request.CompanyID.String(), capCancelAny)
	if err != nil {
		return false, err
	}
	if blanket {
		return true, nil
	}
	if actorID != request.EmployeeID {
		return false, nil
	}
	switch request.Status {
	case StatusPending, StatusEscalated:
		return true, nil
	case StatusApproved:
		// Self-service cancellation of approved leave only before it starts.
		return s.clock.Now().Before(request.StartDate), nil
	default:
		return false, nil
	}
}

func (s *service) GetByID(ctx context.Context, companyID, id string) (RequestResponse, error) {
	request, err := s.repo.GetRequest(ctx, companyID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return RequestResponse{}, leaveerrors.ErrRequestNotFound
		}
		return RequestResponse{}, err
	}
	return mapRequest(*request), nil
}

func (s *service) ListByCompany(ctx context.Context, companyID, status string) ([]RequestResponse, error) {
	requests, err := s.repo.ListByCompany(ctx, companyID, status)
	if err != nil {
		return nil, err
	}
	return mapRequests(requests), nil
}

func (s *service) ListByEmployee(ctx context.Context, companyID, employeeID string) ([]RequestResponse, error) {
	requests, err := s.repo.ListByEmployee(ctx, companyID, employeeID)
	if err != nil {
		return nil, err
	}
	return mapRequests(requests), nil
}

func (s *service) ListByApprover(ctx context.Context, companyID, approverID string) ([]RequestResponse, error) {
	requests, err := s.repo.ListByApprover(ctx, companyID, approverID)
	if err != nil {
		return nil, err
	}
	return mapRequests(requests), nil
}

func (s *service) GetBalances(ctx context.Context, companyID, employeeID string, year int) ([]BalanceResponse, error) {
	balances, err := s.repo.GetBalances(ctx, companyID, employeeID, year)
	if err != nil {
		return nil, err
	}
	resp := make([]BalanceResponse, len(balances))
	for i, b := range balances {
		resp[i] = BalanceResponse{
			LeaveTypeCode:     b.LeaveTypeCode,
			Year:              b.Year,
			AnnualEntitlement: b.AnnualEntitlement.String(),
			CarriedForward:    b.CarriedForward.String(),
			UsedDays:          b.UsedDays.String(),
			PendingDays:       b.PendingDays.String(),
			Available:         b.Available().String(),
		}
	}
	return resp, nil
}

func (s *service) lifecycleEvent(eventType string, request *Request) events.LeaveLifecycleEvent {
	event := events.LeaveLifecycleEvent{
		EventType:  eventType,
		RequestID:  request.ID.String(),
		RequestNo:  request.RequestNumber,
		CompanyID:  request.CompanyID.String(),
		EmployeeID: request.EmployeeID.String(),
		LeaveType:  request.LeaveTypeCode,
		StartDate:  request.StartDate.Format("2006-01-02"),
		EndDate:    request.EndDate.Format("2006-01-02"),
		Status:     request.Status,
		OccurredAt: s.clock.Now(),
	}
	if request.CurrentApproverID != nil {
		event.ApproverID = request.CurrentApproverID.String()
	}
	if request.SLADeadline != nil {
		event.SLADeadline = request.SLADeadline.UTC().Format(time.RFC3339)
	}
	return event
}

func decisionNote(reason string, comments *string) *string {
	note := reason
	if comments != nil && *comments != "" {
		if note != "" {
			note = note + ": " + *comments
		} else {
			note = *comments
		}
	}
	if note == "" {
		return nil
	}
	return &note
}

func parseDate(v string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}, leaveerrors.ErrInvalidDateFormat
	}
	return t, nil
}

func mapRequest(r Request) RequestResponse {
	resp := RequestResponse{
		ID:              r.ID.String(),
		RequestNumber:   r.RequestNumber,
		EmployeeID:      r.EmployeeID.String(),
		LeaveTypeCode:   r.LeaveTypeCode,
		StartDate:       r.StartDate.Format("2006-01-02"),
		EndDate:         r.EndDate.Format("2006-01-02"),
		TotalDays:       r.TotalDays,
		WorkingDays:     r.WorkingDays.String(),
		IsHalfDay:       r.IsHalfDay,
		Reason:          r.Reason,
		Status:          r.Status,
		EscalationCount: r.EscalationCount,
		SLABreached:     r.SLABreached,
	}
	if r.CurrentApproverID != nil {
		v := r.CurrentApproverID.String()
		resp.ApproverID = &v
	}
	resp.SLADeadline = formatTimePtr(r.SLADeadline)
	if len(r.DecisionMeta) > 0 {
		var meta DecisionMetadata
		if err := json.Unmarshal(r.DecisionMeta, &meta); err == nil {
			resp.Decision = &meta
		}
	}
	if r.DecidedBy != nil {
		v := r.DecidedBy.String()
		resp.DecidedBy = &v
	}
	resp.DecidedAt = formatTimePtr(r.DecidedAt)
	return resp
}

func mapRequests(requests []Request) []RequestResponse {
	resp := make([]RequestResponse, len(requests))
	for i, r := range requests {
		resp[i] = mapRequest(r)
	}
	return resp
}
