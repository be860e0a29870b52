package leave

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"gorm.io/gorm"
)

//go:generate mockgen -source=leave_repo.go -destination=mock/leave_repo_mock.go -package=mock
type Repository interface {
	WithTx(tx *sql.Tx) Repository

	CreateRequest(ctx context.Context, r *Request) error
	GetRequest(ctx context.Context, companyID, id string) (*Request, error)
	ListByCompany(ctx context.Context, companyID string, status string) ([]Request, error)
	ListByEmployee(ctx context.Context, companyID, employeeID string) ([]Request, error)
	ListByApprover(ctx context.Context, companyID, approverID string) ([]Request, error)

	// UpdateDecision applies a transition guarded by the status the caller
	// read. Returns false when the row's status changed in the meantime.
	UpdateDecision(ctx context.Context, r *Request, expectedStatus string) (bool, error)

	HasOverlapping(ctx context.Context, companyID, employeeID string, start, end time.Time) (bool, error)

	// LockBalance reads the ledger row FOR UPDATE inside the bound
	// transaction. Returns nil when no row exists yet.
	LockBalance(ctx context.Context, companyID, employeeID, leaveTypeCode string, year int) (*Balance, error)
	CreateBalance(ctx context.Context, b *Balance) error
	UpdateBalance(ctx context.Context, b *Balance) error
	GetBalances(ctx context.Context, companyID, employeeID string, year int) ([]Balance, error)

	FindBreached(ctx context.Context, now time.Time, limit int) ([]Request, error)
	// MarkBreached flips the breach flag exactly once per request.
	MarkBreached(ctx context.Context, id string) (bool, error)

	CountActiveInDepartment(ctx context.Context, companyID, department string) (int, error)
	CountApprovedOverlapping(ctx context.Context, companyID, department string, start, end time.Time) (int, error)
	CountApprovedSince(ctx context.Context, employeeID string, since time.Time) (int, error)
	LastLeaveEndBefore(ctx context.Context, employeeID string, before time.Time) (*time.Time, error)
	LastApprovedEndBefore(ctx context.Context, employeeID string, before time.Time) (*time.Time, error)
}

type repository struct {
	db  *gorm.DB
	sdb *sql.DB
	tx  *sql.Tx
}

func NewRepository(db *gorm.DB, sdb *sql.DB) Repository {
	return &repository{db: db, sdb: sdb}
}

func (r *repository) WithTx(tx *sql.Tx) Repository {
	return &repository{db: r.db, sdb: r.sdb, tx: tx}
}

type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *repository) conn() dbtx {
	if r.tx != nil {
		return r.tx
	}
	return r.sdb
}

func (r *repository) CreateRequest(ctx context.Context, req *Request) error {
	query := `
        INSERT INTO leave_requests (
            id, company_id, employee_id, request_number,
            leave_type_code, start_date, end_date,
            total_days, working_days, is_half_day,
            reason, document_id,
            status, current_approver_id, sla_deadline,
            escalation_count, sla_breached, decision_meta,
            created_at, updated_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
                  $11, $12, $13, $14, $15, $16, $17, $18, NOW(), NOW())
    `
	_, err := r.conn().ExecContext(ctx, query,
		req.ID, req.CompanyID, req.EmployeeID, req.RequestNumber,
		req.LeaveTypeCode, req.StartDate, req.EndDate,
		req.TotalDays, req.WorkingDays, req.IsHalfDay,
		req.Reason, req.DocumentID,
		req.Status, req.CurrentApproverID, req.SLADeadline,
		req.EscalationCount, req.SLABreached, req.DecisionMeta,
	)
	return err
}

func (r *repository) GetRequest(ctx context.Context, companyID, id string) (*Request, error) {
	var req Request
	err := r.db.WithContext(ctx).
		Where("company_id = ?", companyID).
		First(&req, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *repository) ListByCompany(ctx context.Context, companyID string, status string) ([]Request, error) {
	q := r.db.WithContext(ctx).Where("company_id = ?", companyID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var requests []Request
	err := q.Order("created_at DESC").Find(&requests).Error
	return requests, err
}

func (r *repository) ListByEmployee(ctx context.Context, companyID, employeeID string) ([]Request, error) {
	var requests []Request
	err := r.db.WithContext(ctx).
		Where("company_id = ? AND employee_id = ?", companyID, employeeID).
		Order("created_at DESC").
		Find(&requests).Error
	return requests, err
}

func (r *repository) ListByApprover(ctx context.Context, companyID, approverID string) ([]Request, error) {
	var requests []Request
	err := r.db.WithContext(ctx).
		Where("company_id = ? AND current_approver_id = ? AND status IN ?",
			companyID, approverID, []string{StatusPending, StatusEscalated}).
		Order("sla_deadline ASC").
		Find(&requests).Error
	return requests, err
}

func (r *repository) UpdateDecision(ctx context.Context, req *Request, expectedStatus string) (bool, error) {
	query := `
        UPDATE leave_requests
        SET status = $2,
            current_approver_id = $3,
            sla_deadline = $4,
            escalation_count = $5,
            sla_breached = $6,
            decided_by = $7,
            decided_at = $8,
            decision_note = $9,
            updated_at = NOW()
        WHERE id = $1 AND status = $10
    `
	res, err := r.conn().ExecContext(ctx, query,
		req.ID, req.Status,
		req.CurrentApproverID, req.SLADeadline,
		req.EscalationCount, req.SLABreached,
		req.DecidedBy, req.DecidedAt, req.DecisionNote,
		expectedStatus,
	)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *repository) HasOverlapping(ctx context.Context, companyID, employeeID string, start, end time.Time) (bool, error) {
	query := `
        SELECT COUNT(1)
        FROM leave_requests
        WHERE company_id = $1
          AND employee_id = $2
          AND status IN ($3, $4, $5)
          AND NOT (end_date < $6 OR start_date > $7)
    `
	var count int
	err := r.conn().QueryRowContext(ctx, query,
		companyID, employeeID,
		StatusPending, StatusEscalated, StatusApproved,
		start, end,
	).Scan(&count)
	return count > 0, err
}

func (r *repository) LockBalance(ctx context.Context, companyID, employeeID, leaveTypeCode string, year int) (*Balance, error) {
	query := `
        SELECT id, company_id, employee_id, leave_type_code, year,
               annual_entitlement, carried_forward, used_days, pending_days
        FROM leave_balances
        WHERE company_id = $1 AND employee_id = $2 AND leave_type_code = $3 AND year = $4
        FOR UPDATE
    `
	var b Balance
	err := r.conn().QueryRowContext(ctx, query, companyID, employeeID, leaveTypeCode, year).Scan(
		&b.ID, &b.CompanyID, &b.EmployeeID, &b.LeaveTypeCode, &b.Year,
		&b.AnnualEntitlement, &b.CarriedForward, &b.UsedDays, &b.PendingDays,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *repository) CreateBalance(ctx context.Context, b *Balance) error {
	query := `
        INSERT INTO leave_balances (
            id, company_id, employee_id, leave_type_code, year,
            annual_entitlement, carried_forward, used_days, pending_days,
            created_at, updated_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
    `
	_, err := r.conn().ExecContext(ctx, query,
		b.ID, b.CompanyID, b.EmployeeID, b.LeaveTypeCode, b.Year,
		b.AnnualEntitlement, b.CarriedForward, b.UsedDays, b.PendingDays,
	)
	return err
}

func (r *repository) UpdateBalance(ctx context.Context, b *Balance) error {
	query := `
        UPDATE leave_balances
        SET used_days = $2,
            pending_days = $3,
            updated_at = NOW()
        WHERE id = $1
    `
	_, err := r.conn().ExecContext(ctx, query, b.ID, b.UsedDays, b.PendingDays)
	return err
}

func (r *repository) GetBalances(ctx context.Context, companyID, employeeID string, year int) ([]Balance, error) {
	var balances []Balance
	err := r.db.WithContext(ctx).
		Where("company_id = ? AND employee_id = ? AND year = ?", companyID, employeeID, year).
		Order("leave_type_code ASC").
		Find(&balances).Error
	return balances, err
}

func (r *repository) FindBreached(ctx context.Context, now time.Time, limit int) ([]Request, error) {
	var requests []Request
	err := r.db.WithContext(ctx).
		Where("status IN ? AND sla_breached = ? AND sla_deadline < ?",
			[]string{StatusPending, StatusEscalated}, false, now).
		Order("sla_deadline ASC").
		Limit(limit).
		Find(&requests).Error
	return requests, err
}

func (r *repository) MarkBreached(ctx context.Context, id string) (bool, error) {
	query := `
        UPDATE leave_requests
        SET sla_breached = TRUE, updated_at = NOW()
        WHERE id = $1 AND sla_breached = FALSE AND status IN ($2, $3)
    `
	res, err := r.conn().ExecContext(ctx, query, id, StatusPending, StatusEscalated)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *repository) CountActiveInDepartment(ctx context.Context, companyID, department string) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table("employees").
		Where("company_id = ? AND department = ? AND status IN ? AND deleted_at IS NULL",
			companyID, department, []string{"active", "probation"}).
		Count(&count).Error
	return int(count), err
}

func (r *repository) CountApprovedOverlapping(ctx context.Context, companyID, department string, start, end time.Time) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table("leave_requests").
		Joins("JOIN employees ON employees.id = leave_requests.employee_id").
		Where("leave_requests.company_id = ?", companyID).
		Where("employees.department = ?", department).
		Where("leave_requests.status = ?", StatusApproved).
		Where("NOT (leave_requests.end_date < ? OR leave_requests.start_date > ?)", start, end).
		Count(&count).Error
	return int(count), err
}

func (r *repository) CountApprovedSince(ctx context.Context, employeeID string, since time.Time) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&Request{}).
		Where("employee_id = ? AND status = ? AND end_date >= ?", employeeID, StatusApproved, since).
		Count(&count).Error
	return int(count), err
}

func (r *repository) LastLeaveEndBefore(ctx context.Context, employeeID string, before time.Time) (*time.Time, error) {
	return r.lastEndBefore(ctx, employeeID, before,
		[]string{StatusPending, StatusEscalated, StatusApproved})
}

func (r *repository) LastApprovedEndBefore(ctx context.Context, employeeID string, before time.Time) (*time.Time, error) {
	return r.lastEndBefore(ctx, employeeID, before, []string{StatusApproved})
}

func (r *repository) lastEndBefore(ctx context.Context, employeeID string, before time.Time, statuses []string) (*time.Time, error) {
	var req Request
	err := r.db.WithContext(ctx).
		Where("employee_id = ? AND status IN ? AND end_date < ?", employeeID, statuses, before).
		Order("end_date DESC").
		First(&req).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	end := req.EndDate
	return &end, nil
}
