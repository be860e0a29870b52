package leave_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"go-leave/internal/approval"
	"go-leave/internal/company"
	"go-leave/internal/employee"
	"go-leave/internal/events"
	"go-leave/internal/leave"
	leaveerrors "go-leave/internal/leave/errors"
	"go-leave/internal/notification"
	"go-leave/internal/policy"
	"go-leave/internal/shared/clock"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

type fakeLeaveRepository struct {
	createRequestFn    func(ctx context.Context, r *leave.Request) error
	getRequestFn       func(ctx context.Context, companyID, id string) (*leave.Request, error)
	updateDecisionFn   func(ctx context.Context, r *leave.Request, expectedStatus string) (bool, error)
	hasOverlappingFn   func(ctx context.Context, companyID, employeeID string, start, end time.Time) (bool, error)
	lockBalanceFn      func(ctx context.Context, companyID, employeeID, code string, year int) (*leave.Balance, error)
	createBalanceFn    func(ctx context.Context, b *leave.Balance) error
	updateBalanceFn    func(ctx context.Context, b *leave.Balance) error
	findBreachedFn     func(ctx context.Context, now time.Time, limit int) ([]leave.Request, error)
	markBreachedFn     func(ctx context.Context, id string) (bool, error)
	countOverlappingFn func(ctx context.Context, companyID, department string, start, end time.Time) (int, error)
}

func (f *fakeLeaveRepository) WithTx(tx *sql.Tx) leave.Repository { return f }

func (f *fakeLeaveRepository) CreateRequest(ctx context.Context, r *leave.Request) error {
	if f.createRequestFn != nil {
		return f.createRequestFn(ctx, r)
	}
	return nil
}

func (f *fakeLeaveRepository) GetRequest(ctx context.Context, companyID, id string) (*leave.Request, error) {
	if f.getRequestFn != nil {
		return f.getRequestFn(ctx, companyID, id)
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeLeaveRepository) ListByCompany(ctx context.Context, companyID string, status string) ([]leave.Request, error) {
	return nil, nil
}

func (f *fakeLeaveRepository) ListByEmployee(ctx context.Context, companyID, employeeID string) ([]leave.Request, error) {
	return nil, nil
}

func (f *fakeLeaveRepository) ListByApprover(ctx context.Context, companyID, approverID string) ([]leave.Request, error) {
	return nil, nil
}

func (f *fakeLeaveRepository) UpdateDecision(ctx context.Context, r *leave.Request, expectedStatus string) (bool, error) {
	if f.updateDecisionFn != nil {
		return f.updateDecisionFn(ctx, r, expectedStatus)
	}
	return true, nil
}

func (f *fakeLeaveRepository) HasOverlapping(ctx context.Context, companyID, employeeID string, start, end time.Time) (bool, error) {
	if f.hasOverlappingFn != nil {
		return f.hasOverlappingFn(ctx, companyID, employeeID, start, end)
	}
	return false, nil
}

func (f *fakeLeaveRepository) LockBalance(ctx context.Context, companyID, employeeID, code string, year int) (*leave.Balance, error) {
	if f.lockBalanceFn != nil {
		return f.lockBalanceFn(ctx, companyID, employeeID, code, year)
	}
	return nil, nil
}

func (f *fakeLeaveRepository) CreateBalance(ctx context.Context, b *leave.Balance) error {
	if f.createBalanceFn != nil {
		return f.createBalanceFn(ctx, b)
	}
	return nil
}

func (f *fakeLeaveRepository) UpdateBalance(ctx context.Context, b *leave.Balance) error {
	if f.updateBalanceFn != nil {
		return f.updateBalanceFn(ctx, b)
	}
	return nil
}

func (f *fakeLeaveRepository) GetBalances(ctx context.Context, companyID, employeeID string, year int) ([]leave.Balance, error) {
	return nil, nil
}

func (f *fakeLeaveRepository) FindBreached(ctx context.Context, now time.Time, limit int) ([]leave.Request, error) {
	if f.findBreachedFn != nil {
		return f.findBreachedFn(ctx, now, limit)
	}
	return nil, nil
}

func (f *fakeLeaveRepository) MarkBreached(ctx context.Context, id string) (bool, error) {
	if f.markBreachedFn != nil {
		return f.markBreachedFn(ctx, id)
	}
	return true, nil
}

func (f *fakeLeaveRepository) CountActiveInDepartment(ctx context.Context, companyID, department string) (int, error) {
	return 10, nil
}

func (f *fakeLeaveRepository) CountApprovedOverlapping(ctx context.Context, companyID, department string, start, end time.Time) (int, error) {
	if f.countOverlappingFn != nil {
		return f.countOverlappingFn(ctx, companyID, department, start, end)
	}
	return 0, nil
}

func (f *fakeLeaveRepository) CountApprovedSince(ctx context.Context, employeeID string, since time.Time) (int, error) {
	return 0, nil
}

func (f *fakeLeaveRepository) LastLeaveEndBefore(ctx context.Context, employeeID string, before time.Time) (*time.Time, error) {
	return nil, nil
}

func (f *fakeLeaveRepository) LastApprovedEndBefore(ctx context.Context, employeeID string, before time.Time) (*time.Time, error) {
	return nil, nil
}

type fakeEmployeeRepository struct {
	findByIDFn func(ctx context.Context, companyID, id string) (*employee.Employee, error)
}

func (f *fakeEmployeeRepository) Create(ctx context.Context, e *employee.Employee) error { return nil }

func (f *fakeEmployeeRepository) FindAllByCompany(ctx context.Context, companyID string) ([]employee.Employee, error) {
	return nil, nil
}

func (f *fakeEmployeeRepository) FindByIDAndCompany(ctx context.Context, companyID, id string) (*employee.Employee, error) {
	if f.findByIDFn != nil {
		return f.findByIDFn(ctx, companyID, id)
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeEmployeeRepository) Update(ctx context.Context, e *employee.Employee) error { return nil }

func (f *fakeEmployeeRepository) Delete(ctx context.Context, companyID, id string) error { return nil }

func (f *fakeEmployeeRepository) CountActiveInDepartment(ctx context.Context, companyID, department string) (int, error) {
	return 10, nil
}

type fakeCompanyRepository struct {
	company *company.Company
}

func (f *fakeCompanyRepository) GetByID(ctx context.Context, id uuid.UUID) (*company.Company, error) {
	return f.company, nil
}

func (f *fakeCompanyRepository) Update(ctx context.Context, c *company.Company) error { return nil }

func (f *fakeCompanyRepository) CreateHoliday(ctx context.Context, h *company.Holiday) error {
	return nil
}

func (f *fakeCompanyRepository) DeleteHoliday(ctx context.Context, companyID, id string) error {
	return nil
}

func (f *fakeCompanyRepository) HolidaysInRange(ctx context.Context, companyID string, start, end time.Time) ([]company.Holiday, error) {
	return nil, nil
}

type fakePolicyRepository struct {
	types  []policy.LeaveType
	policy *policy.ConstraintPolicy
}

func (f *fakePolicyRepository) CreateLeaveType(ctx context.Context, lt *policy.LeaveType) error {
	return nil
}

func (f *fakePolicyRepository) FindLeaveTypes(ctx context.Context, companyID string) ([]policy.LeaveType, error) {
	return f.types, nil
}

func (f *fakePolicyRepository) FindLeaveTypeByID(ctx context.Context, companyID, id string) (*policy.LeaveType, error) {
	return nil, gorm.ErrRecordNotFound
}

func (f *fakePolicyRepository) FindActiveLeaveTypes(ctx context.Context, companyID string) ([]policy.LeaveType, error) {
	return f.types, nil
}

func (f *fakePolicyRepository) UpdateLeaveType(ctx context.Context, lt *policy.LeaveType) error {
	return nil
}

func (f *fakePolicyRepository) CreateLeaveRule(ctx context.Context, rule *policy.LeaveRule) error {
	return nil
}

func (f *fakePolicyRepository) FindLeaveRules(ctx context.Context, companyID string) ([]policy.LeaveRule, error) {
	return nil, nil
}

func (f *fakePolicyRepository) FindLeaveRuleByID(ctx context.Context, companyID, id string) (*policy.LeaveRule, error) {
	return nil, gorm.ErrRecordNotFound
}

func (f *fakePolicyRepository) FindActiveLeaveRules(ctx context.Context, companyID string) ([]policy.LeaveRule, error) {
	return nil, nil
}

func (f *fakePolicyRepository) UpdateLeaveRule(ctx context.Context, rule *policy.LeaveRule) error {
	return nil
}

func (f *fakePolicyRepository) DeleteLeaveRule(ctx context.Context, companyID, id string) error {
	return nil
}

func (f *fakePolicyRepository) FindActivePolicy(ctx context.Context, companyID string) (*policy.ConstraintPolicy, error) {
	if f.policy == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return f.policy, nil
}

func (f *fakePolicyRepository) ReplaceActivePolicy(ctx context.Context, p *policy.ConstraintPolicy) error {
	return nil
}

type fakeApprovalStore struct {
	managers map[uuid.UUID]*uuid.UUID
	fallback *uuid.UUID
}

func (f *fakeApprovalStore) ManagerOf(ctx context.Context, employeeID uuid.UUID) (*uuid.UUID, error) {
	return f.managers[employeeID], nil
}

func (f *fakeApprovalStore) FirstActiveByRoles(ctx context.Context, companyID uuid.UUID, roles []string) (*uuid.UUID, error) {
	return f.fallback, nil
}

type fakeAuthz struct {
	capabilities map[string]bool
	team         []string
}

func (f *fakeAuthz) HasCapability(ctx context.Context, actorID, companyID, capability string) (bool, error) {
	return f.capabilities[capability], nil
}

func (f *fakeAuthz) TeamMembersOf(ctx context.Context, actorID, companyID string) ([]string, error) {
	return f.team, nil
}

type fakeCounter struct {
	next int64
}

func (f *fakeCounter) GetNextValue(ctx context.Context, companyID, counterType string) (int64, error) {
	f.next++
	return f.next, nil
}

type recordingSink struct {
	events []events.LeaveLifecycleEvent
}

func (s *recordingSink) WithTx(tx *sql.Tx) notification.Sink { return s }

func (s *recordingSink) Notify(ctx context.Context, event events.LeaveLifecycleEvent) {
	s.events = append(s.events, event)
}

var testNow = time.Date(2026, 2, 6, 9, 0, 0, 0, time.UTC)

type lifecycleDeps struct {
	db        *sql.DB
	sqlMock   sqlmock.Sqlmock
	service   leave.Service
	repo      *fakeLeaveRepository
	employees *fakeEmployeeRepository
	companies *fakeCompanyRepository
	policies  *fakePolicyRepository
	approvals *fakeApprovalStore
	authz     *fakeAuthz
	sink      *recordingSink
}

func setupLifecycleTest(t *testing.T) *lifecycleDeps {
	t.Helper()

	db, sqlMock, err := sqlmock.New()
	assert.NoError(t, err)

	comp := &company.Company{
		ID:                  uuid.New(),
		WorkWeekMask:        company.DefaultWorkWeek,
		SLAHours:            48,
		LeaveYearStartMonth: 1,
		ProbationPeriodDays: 90,
	}

	autoCfg := policy.PolicyConfig{
		AutoApprove: policy.AutoApproveConfig{
			MaxDays:       3,
			MinNoticeDays: 1,
			AllowedTypes:  []string{"CL"},
		},
	}
	rawCfg, _ := json.Marshal(autoCfg)

	repo := &fakeLeaveRepository{}
	employees := &fakeEmployeeRepository{}
	companies := &fakeCompanyRepository{company: comp}
	policies := &fakePolicyRepository{
		types: []policy.LeaveType{
			{
				ID:                 uuid.New(),
				CompanyID:          comp.ID,
				Code:               "CL",
				Name:               "Casual Leave",
				AnnualQuota:        decimal.NewFromInt(12),
				MaxConsecutiveDays: 5,
				MinNoticeDays:      1,
				HalfDayAllowed:     true,
				Active:             true,
			},
		},
		policy: &policy.ConstraintPolicy{
			ID:       uuid.New(),
			Name:     "default",
			Rules:    rawCfg,
			IsActive: true,
			Decoded:  autoCfg,
		},
	}
	approvals := &fakeApprovalStore{managers: map[uuid.UUID]*uuid.UUID{}}
	az := &fakeAuthz{capabilities: map[string]bool{}}
	sink := &recordingSink{}

	clk := clock.Fixed(testNow)
	loader := policy.NewLoader(policies, nil)

	svc := leave.NewService(leave.Deps{
		DB:        db,
		Repo:      repo,
		Employees: employees,
		Companies: companies,
		Policies:  loader,
		Evaluator: policy.NewEvaluator(repo, clk),
		Resolver:  approval.NewResolver(approvals),
		Authz:     az,
		Counter:   &fakeCounter{},
		Sink:      sink,
		Clock:     clk,
	})

	return &lifecycleDeps{
		db:        db,
		sqlMock:   sqlMock,
		service:   svc,
		repo:      repo,
		employees: employees,
		companies: companies,
		policies:  policies,
		approvals: approvals,
		authz:     az,
		sink:      sink,
	}
}

func activeEmployee(deps *lifecycleDeps, id uuid.UUID) {
	deps.employees.findByIDFn = func(ctx context.Context, companyID, eid string) (*employee.Employee, error) {
		return &employee.Employee{
			ID:                 id,
			CompanyID:          deps.companies.company.ID,
			Department:         "engineering",
			HireDate:           testNow.AddDate(-2, 0, 0),
			Status:             employee.StatusActive,
			ProbationConfirmed: true,
		}, nil
	}
}

func TestLifecycle_Submit(t *testing.T) {
	ctx := context.Background()

	t.Run("auto-approves a clean short request and charges used days", func(t *testing.T) {
		deps := setupLifecycleTest(t)
		defer deps.db.Close()

		employeeID := uuid.New()
		companyID := deps.companies.company.ID.String()
		activeEmployee(deps, employeeID)

		deps.sqlMock.ExpectBegin()
		deps.sqlMock.ExpectCommit()

		var createdBalance *leave.Balance
		deps.repo.createBalanceFn = func(ctx context.Context, b *leave.Balance) error {
			createdBalance = b
			return nil
		}
		var createdRequest *leave.Request
		deps.repo.createRequestFn = func(ctx context.Context, r *leave.Request) error {
			createdRequest = r
			return nil
		}

		resp, err := deps.service.Submit(ctx, companyID, employeeID.String(), leave.SubmitRequest{
			EmployeeID:    employeeID.String(),
			LeaveTypeCode: "CL",
			StartDate:     "2026-02-09",
			EndDate:       "2026-02-10",
			Reason:        "family event",
		})

		assert.NoError(t, err)
		assert.Equal(t, leave.StatusApproved, resp.Status)
		assert.Empty(t, resp.Violations)
		assert.NotNil(t, createdRequest)
		assert.Equal(t, "REQ-000001", createdRequest.RequestNumber)
		assert.Nil(t, createdRequest.CurrentApproverID)
		assert.NotNil(t, createdBalance)
		assert.True(t, createdBalance.UsedDays.Equal(decimal.NewFromInt(2)),
			"used %s", createdBalance.UsedDays)
		assert.True(t, createdBalance.PendingDays.IsZero())
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("escalates when the type is outside the auto-approve list", func(t *testing.T) {
		deps := setupLifecycleTest(t)
		defer deps.db.Close()

		employeeID := uuid.New()
		managerID := uuid.New()
		companyID := deps.companies.company.ID.String()
		activeEmployee(deps, employeeID)
		deps.approvals.managers[employeeID] = &managerID

		deps.policies.types = append(deps.policies.types, policy.LeaveType{
			ID:             uuid.New(),
			Code:           "ML",
			Name:           "Marriage Leave",
			AnnualQuota:    decimal.NewFromInt(5),
			HalfDayAllowed: true,
			Active:         true,
		})

		deps.sqlMock.ExpectBegin()
		deps.sqlMock.ExpectCommit()

		var createdBalance *leave.Balance
		deps.repo.createBalanceFn = func(ctx context.Context, b *leave.Balance) error {
			createdBalance = b
			return nil
		}
		var createdRequest *leave.Request
		deps.repo.createRequestFn = func(ctx context.Context, r *leave.Request) error {
			createdRequest = r
			return nil
		}

		resp, err := deps.service.Submit(ctx, companyID, employeeID.String(), leave.SubmitRequest{
			EmployeeID:    employeeID.String(),
			LeaveTypeCode: "ML",
			StartDate:     "2026-02-09",
			EndDate:       "2026-02-10",
			Reason:        "getting married",
		})

		assert.NoError(t, err)
		assert.Equal(t, leave.StatusEscalated, resp.Status)
		assert.NotNil(t, resp.ApproverID)
		assert.Equal(t, managerID.String(), *resp.ApproverID)
		assert.NotNil(t, resp.SLADeadline)
		assert.NotNil(t, createdRequest.SLADeadline)
		assert.Equal(t, testNow.Add(48*time.Hour), *createdRequest.SLADeadline)
		assert.True(t, createdBalance.PendingDays.Equal(decimal.NewFromInt(2)))
		assert.True(t, createdBalance.UsedDays.IsZero())
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("rejects overlapping submissions", func(t *testing.T) {
		deps := setupLifecycleTest(t)
		defer deps.db.Close()

		employeeID := uuid.New()
		companyID := deps.companies.company.ID.String()
		activeEmployee(deps, employeeID)

		deps.sqlMock.ExpectBegin()
		deps.sqlMock.ExpectRollback()

		deps.repo.hasOverlappingFn = func(ctx context.Context, cid, eid string, start, end time.Time) (bool, error) {
			return true, nil
		}

		_, err := deps.service.Submit(ctx, companyID, employeeID.String(), leave.SubmitRequest{
			EmployeeID:    employeeID.String(),
			LeaveTypeCode: "CL",
			StartDate:     "2026-02-09",
			EndDate:       "2026-02-10",
			Reason:        "family event",
		})

		assert.ErrorIs(t, err, leaveerrors.ErrLeaveOverlap)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("insufficient balance fails under the row lock", func(t *testing.T) {
		deps := setupLifecycleTest(t)
		defer deps.db.Close()

		employeeID := uuid.New()
		hrID := uuid.New()
		companyID := deps.companies.company.ID.String()
		activeEmployee(deps, employeeID)
		deps.approvals.fallback = &hrID

		deps.sqlMock.ExpectBegin()
		deps.sqlMock.ExpectRollback()

		deps.repo.lockBalanceFn = func(ctx context.Context, cid, eid, code string, year int) (*leave.Balance, error) {
			return &leave.Balance{
				ID:                uuid.New(),
				AnnualEntitlement: decimal.NewFromInt(12),
				UsedDays:          decimal.NewFromInt(11),
			}, nil
		}

		_, err := deps.service.Submit(ctx, companyID, employeeID.String(), leave.SubmitRequest{
			EmployeeID:    employeeID.String(),
			LeaveTypeCode: "CL",
			StartDate:     "2026-02-09",
			EndDate:       "2026-02-10",
			Reason:        "family event",
		})

		assert.ErrorIs(t, err, leaveerrors.ErrInsufficientBalance)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("unknown leave type fails before any write", func(t *testing.T) {
		deps := setupLifecycleTest(t)
		defer deps.db.Close()

		employeeID := uuid.New()
		companyID := deps.companies.company.ID.String()
		activeEmployee(deps, employeeID)

		_, err := deps.service.Submit(ctx, companyID, employeeID.String(), leave.SubmitRequest{
			EmployeeID:    employeeID.String(),
			LeaveTypeCode: "XX",
			StartDate:     "2026-02-09",
			EndDate:       "2026-02-10",
			Reason:        "family event",
		})

		assert.ErrorIs(t, err, leaveerrors.ErrUnknownLeaveType)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})
}

func escalatedRequest(deps *lifecycleDeps, employeeID, approverID uuid.UUID) *leave.Request {
	deadline := testNow.Add(48 * time.Hour)
	return &leave.Request{
		ID:                uuid.New(),
		CompanyID:         deps.companies.company.ID,
		EmployeeID:        employeeID,
		RequestNumber:     "REQ-000042",
		LeaveTypeCode:     "CL",
		StartDate:         time.Date(2026, 2, 9, 0, 0, 0, 0, time.UTC),
		EndDate:           time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC),
		TotalDays:         2,
		WorkingDays:       decimal.NewFromInt(2),
		Reason:            "family event",
		Status:            leave.StatusEscalated,
		CurrentApproverID: &approverID,
		SLADeadline:       &deadline,
	}
}

func TestLifecycle_Approve(t *testing.T) {
	ctx := context.Background()

	t.Run("current approver moves pending days to used", func(t *testing.T) {
		deps := setupLifecycleTest(t)
		defer deps.db.Close()

		employeeID := uuid.New()
		approverID := uuid.New()
		companyID := deps.companies.company.ID.String()
		request := escalatedRequest(deps, employeeID, approverID)

		deps.repo.getRequestFn = func(ctx context.Context, cid, id string) (*leave.Request, error) {
			return request, nil
		}
		deps.repo.lockBalanceFn = func(ctx context.Context, cid, eid, code string, year int) (*leave.Balance, error) {
			return &leave.Balance{
				ID:                uuid.New(),
				AnnualEntitlement: decimal.NewFromInt(12),
				PendingDays:       decimal.NewFromInt(2),
			}, nil
		}

		deps.sqlMock.ExpectBegin()
		deps.sqlMock.ExpectCommit()

		var savedBalance *leave.Balance
		deps.repo.updateBalanceFn = func(ctx context.Context, b *leave.Balance) error {
			savedBalance = b
			return nil
		}
		var expectedStatus string
		deps.repo.updateDecisionFn = func(ctx context.Context, r *leave.Request, expected string) (bool, error) {
			expectedStatus = expected
			return true, nil
		}

		resp, err := deps.service.Approve(ctx, companyID, approverID.String(), request.ID.String(), leave.ApproveRequest{})

		assert.NoError(t, err)
		assert.Equal(t, leave.StatusApproved, resp.Status)
		assert.Equal(t, leave.StatusEscalated, expectedStatus)
		assert.True(t, savedBalance.PendingDays.IsZero())
		assert.True(t, savedBalance.UsedDays.Equal(decimal.NewFromInt(2)))
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("terminal request returns a conflict", func(t *testing.T) {
		deps := setupLifecycleTest(t)
		defer deps.db.Close()

		employeeID := uuid.New()
		approverID := uuid.New()
		request := escalatedRequest(deps, employeeID, approverID)
		request.Status = leave.StatusApproved

		deps.repo.getRequestFn = func(ctx context.Context, cid, id string) (*leave.Request, error) {
			return request, nil
		}

		_, err := deps.service.Approve(ctx, deps.companies.company.ID.String(), approverID.String(), request.ID.String(), leave.ApproveRequest{})
		assert.ErrorIs(t, err, leaveerrors.ErrAlreadyDecided)
	})

	t.Run("status guard failure surfaces as a conflict", func(t *testing.T) {
		deps := setupLifecycleTest(t)
		defer deps.db.Close()

		employeeID := uuid.New()
		approverID := uuid.New()
		request := escalatedRequest(deps, employeeID, approverID)

		deps.repo.getRequestFn = func(ctx context.Context, cid, id string) (*leave.Request, error) {
			return request, nil
		}
		deps.repo.lockBalanceFn = func(ctx context.Context, cid, eid, code string, year int) (*leave.Balance, error) {
			return &leave.Balance{
				ID:                uuid.New(),
				AnnualEntitlement: decimal.NewFromInt(12),
				PendingDays:       decimal.NewFromInt(2),
			}, nil
		}
		deps.repo.updateDecisionFn = func(ctx context.Context, r *leave.Request, expected string) (bool, error) {
			return false, nil
		}

		deps.sqlMock.ExpectBegin()
		deps.sqlMock.ExpectRollback()

		_, err := deps.service.Approve(ctx, deps.companies.company.ID.String(), approverID.String(), request.ID.String(), leave.ApproveRequest{})
		assert.ErrorIs(t, err, leaveerrors.ErrRequestStateChanged)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("stranger without capability is forbidden", func(t *testing.T) {
		deps := setupLifecycleTest(t)
		defer deps.db.Close()

		employeeID := uuid.New()
		approverID := uuid.New()
		request := escalatedRequest(deps, employeeID, approverID)

		deps.repo.getRequestFn = func(ctx context.Context, cid, id string) (*leave.Request, error) {
			return request, nil
		}

		_, err := deps.service.Approve(ctx, deps.companies.company.ID.String(), uuid.New().String(), request.ID.String(), leave.ApproveRequest{})
		assert.ErrorIs(t, err, leaveerrors.ErrNotAuthorizedToDecide)
	})

	t.Run("blanket capability may decide", func(t *testing.T) {
		deps := setupLifecycleTest(t)
		defer deps.db.Close()

		employeeID := uuid.New()
		approverID := uuid.New()
		request := escalatedRequest(deps, employeeID, approverID)
		deps.authz.capabilities["leave:approve_all"] = true

		deps.repo.getRequestFn = func(ctx context.Context, cid, id string) (*leave.Request, error) {
			return request, nil
		}
		deps.repo.lockBalanceFn = func(ctx context.Context, cid, eid, code string, year int) (*leave.Balance, error) {
			return &leave.Balance{
				ID:                uuid.New(),
				AnnualEntitlement: decimal.NewFromInt(12),
				PendingDays:       decimal.NewFromInt(2),
			}, nil
		}

		deps.sqlMock.ExpectBegin()
		deps.sqlMock.ExpectCommit()

		resp, err := deps.service.Approve(ctx, deps.companies.company.ID.String(), uuid.New().String(), request.ID.String(), leave.ApproveRequest{})
		assert.NoError(t, err)
		assert.Equal(t, leave.StatusApproved, resp.Status)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})
}

func TestLifecycle_Reject(t *testing.T) {
	ctx := context.Background()

	t.Run("releases pending days without charging used", func(t *testing.T) {
		deps := setupLifecycleTest(t)
		defer deps.db.Close()

		employeeID := uuid.New()
		approverID := uuid.New()
		request := escalatedRequest(deps, employeeID, approverID)

		deps.repo.getRequestFn = func(ctx context.Context, cid, id string) (*leave.Request, error) {
			return request, nil
		}
		deps.repo.lockBalanceFn = func(ctx context.Context, cid, eid, code string, year int) (*leave.Balance, error) {
			return &leave.Balance{
				ID:                uuid.New(),
				AnnualEntitlement: decimal.NewFromInt(12),
				UsedDays:          decimal.NewFromInt(1),
				PendingDays:       decimal.NewFromInt(2),
			}, nil
		}

		deps.sqlMock.ExpectBegin()
		deps.sqlMock.ExpectCommit()

		var savedBalance *leave.Balance
		deps.repo.updateBalanceFn = func(ctx context.Context, b *leave.Balance) error {
			savedBalance = b
			return nil
		}

		resp, err := deps.service.Reject(ctx, deps.companies.company.ID.String(), approverID.String(), request.ID.String(), leave.RejectRequest{Reason: "coverage too thin"})

		assert.NoError(t, err)
		assert.Equal(t, leave.StatusRejected, resp.Status)
		assert.True(t, savedBalance.PendingDays.IsZero())
		assert.True(t, savedBalance.UsedDays.Equal(decimal.NewFromInt(1)))
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})
}

func TestLifecycle_Escalate(t *testing.T) {
	ctx := context.Background()

	t.Run("exhausted chain falls back to hr", func(t *testing.T) {
		deps := setupLifecycleTest(t)
		defer deps.db.Close()

		employeeID := uuid.New()
		managerID := uuid.New()
		hrID := uuid.New()
		deps.approvals.managers[employeeID] = &managerID
		deps.approvals.fallback = &hrID

		request := escalatedRequest(deps, employeeID, managerID)
		deps.repo.getRequestFn = func(ctx context.Context, cid, id string) (*leave.Request, error) {
			return request, nil
		}

		deps.sqlMock.ExpectBegin()
		deps.sqlMock.ExpectCommit()

		resp, err := deps.service.Escalate(ctx, deps.companies.company.ID.String(), request.ID.String(), "sla breached by 3h")

		assert.NoError(t, err)
		assert.Equal(t, leave.StatusEscalated, resp.Status)
		assert.NotNil(t, resp.ApproverID)
		assert.Equal(t, hrID.String(), *resp.ApproverID)
		assert.Equal(t, 1, resp.EscalationCount)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("advances to the next manager in the chain", func(t *testing.T) {
		deps := setupLifecycleTest(t)
		defer deps.db.Close()

		employeeID := uuid.New()
		managerID := uuid.New()
		seniorID := uuid.New()
		deps.approvals.managers[employeeID] = &managerID
		deps.approvals.managers[managerID] = &seniorID

		request := escalatedRequest(deps, employeeID, managerID)
		deps.repo.getRequestFn = func(ctx context.Context, cid, id string) (*leave.Request, error) {
			return request, nil
		}

		deps.sqlMock.ExpectBegin()
		deps.sqlMock.ExpectCommit()

		resp, err := deps.service.Escalate(ctx, deps.companies.company.ID.String(), request.ID.String(), "manager unavailable")

		assert.NoError(t, err)
		assert.Equal(t, seniorID.String(), *resp.ApproverID)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("deadline sweep emits a breach event", func(t *testing.T) {
		deps := setupLifecycleTest(t)
		defer deps.db.Close()

		employeeID := uuid.New()
		managerID := uuid.New()
		seniorID := uuid.New()
		deps.approvals.managers[employeeID] = &managerID
		deps.approvals.managers[managerID] = &seniorID

		request := escalatedRequest(deps, employeeID, managerID)
		request.SLABreached = true
		deps.repo.getRequestFn = func(ctx context.Context, cid, id string) (*leave.Request, error) {
			return request, nil
		}

		deps.sqlMock.ExpectBegin()
		deps.sqlMock.ExpectCommit()

		_, err := deps.service.Escalate(ctx, deps.companies.company.ID.String(), request.ID.String(), "approval deadline passed 3h0m0s ago")

		assert.NoError(t, err)
		if assert.Len(t, deps.sink.events, 1) {
			assert.Equal(t, events.LeaveSLABreached, deps.sink.events[0].EventType)
		}
	})

	t.Run("manual escalation of a previously breached request emits an escalation event", func(t *testing.T) {
		deps := setupLifecycleTest(t)
		defer deps.db.Close()

		employeeID := uuid.New()
		managerID := uuid.New()
		seniorID := uuid.New()
		deps.approvals.managers[employeeID] = &managerID
		deps.approvals.managers[managerID] = &seniorID

		request := escalatedRequest(deps, employeeID, managerID)
		request.SLABreached = true
		deps.repo.getRequestFn = func(ctx context.Context, cid, id string) (*leave.Request, error) {
			return request, nil
		}

		deps.sqlMock.ExpectBegin()
		deps.sqlMock.ExpectCommit()

		_, err := deps.service.EscalateManual(ctx, deps.companies.company.ID.String(), managerID.String(), request.ID.String(), leave.EscalateRequest{})

		assert.NoError(t, err)
		if assert.Len(t, deps.sink.events, 1) {
			assert.Equal(t, events.LeaveEscalated, deps.sink.events[0].EventType)
		}
	})
}

func TestLifecycle_Cancel(t *testing.T) {
	ctx := context.Background()

	t.Run("owner cancels approved leave before it starts, refunding used days", func(t *testing.T) {
		deps := setupLifecycleTest(t)
		defer deps.db.Close()

		employeeID := uuid.New()
		request := escalatedRequest(deps, employeeID, uuid.New())
		request.Status = leave.StatusApproved
		request.CurrentApproverID = nil

		deps.repo.getRequestFn = func(ctx context.Context, cid, id string) (*leave.Request, error) {
			return request, nil
		}
		deps.repo.lockBalanceFn = func(ctx context.Context, cid, eid, code string, year int) (*leave.Balance, error) {
			return &leave.Balance{
				ID:                uuid.New(),
				AnnualEntitlement: decimal.NewFromInt(12),
				UsedDays:          decimal.NewFromInt(2),
			}, nil
		}

		deps.sqlMock.ExpectBegin()
		deps.sqlMock.ExpectCommit()

		var savedBalance *leave.Balance
		deps.repo.updateBalanceFn = func(ctx context.Context, b *leave.Balance) error {
			savedBalance = b
			return nil
		}

		resp, err := deps.service.Cancel(ctx, deps.companies.company.ID.String(), employeeID.String(), request.ID.String(), leave.CancelRequest{Reason: "plans changed"})

		assert.NoError(t, err)
		assert.Equal(t, leave.StatusCancelled, resp.Status)
		assert.True(t, savedBalance.UsedDays.IsZero())
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("owner cannot cancel approved leave after it started", func(t *testing.T) {
		deps := setupLifecycleTest(t)
		defer deps.db.Close()

		employeeID := uuid.New()
		request := escalatedRequest(deps, employeeID, uuid.New())
		request.Status = leave.StatusApproved
		request.StartDate = testNow.AddDate(0, 0, -1)

		deps.repo.getRequestFn = func(ctx context.Context, cid, id string) (*leave.Request, error) {
			return request, nil
		}

		_, err := deps.service.Cancel(ctx, deps.companies.company.ID.String(), employeeID.String(), request.ID.String(), leave.CancelRequest{Reason: "plans changed"})
		assert.ErrorIs(t, err, leaveerrors.ErrNotAuthorizedToCancel)
	})

	t.Run("cancelled request cannot be cancelled again", func(t *testing.T) {
		deps := setupLifecycleTest(t)
		defer deps.db.Close()

		employeeID := uuid.New()
		request := escalatedRequest(deps, employeeID, uuid.New())
		request.Status = leave.StatusCancelled

		deps.repo.getRequestFn = func(ctx context.Context, cid, id string) (*leave.Request, error) {
			return request, nil
		}

		_, err := deps.service.Cancel(ctx, deps.companies.company.ID.String(), employeeID.String(), request.ID.String(), leave.CancelRequest{Reason: "plans changed"})
		assert.ErrorIs(t, err, leaveerrors.ErrAlreadyDecided)
	})
}
