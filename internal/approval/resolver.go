// Package approval derives the ordered approver chain for an employee by
// walking manager references upward. Resolution is read-only and
// deterministic for a given snapshot of the employee table.
package approval

import (
	"context"
	"errors"

	"go-leave/internal/employee"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// maxChainDepth bounds the manager walk so broken data cannot loop.
const maxChainDepth = 10

// Store is the minimal employee lookup surface the resolver needs.
//
//go:generate mockgen -source=resolver.go -destination=mock/resolver_mock.go -package=mock
type Store interface {
	ManagerOf(ctx context.Context, employeeID uuid.UUID) (*uuid.UUID, error)
	FirstActiveByRoles(ctx context.Context, companyID uuid.UUID, roles []string) (*uuid.UUID, error)
}

type gormStore struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) ManagerOf(ctx context.Context, employeeID uuid.UUID) (*uuid.UUID, error) {
	var e employee.Employee
	err := s.db.WithContext(ctx).
		Select("manager_id").
		First(&e, "id = ?", employeeID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return e.ManagerID, nil
}

func (s *gormStore) FirstActiveByRoles(ctx context.Context, companyID uuid.UUID, roles []string) (*uuid.UUID, error) {
	var e employee.Employee
	err := s.db.WithContext(ctx).
		Select("id").
		Where("company_id = ? AND role IN ? AND status = ?", companyID, roles, employee.StatusActive).
		Order("created_at ASC").
		First(&e).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	id := e.ID
	return &id, nil
}

type Resolver struct {
	store Store
}

func NewResolver(store Store) *Resolver {
	return &Resolver{store: store}
}

// Resolve walks the manager chain upward and returns the ordered list of
// distinct approver ids. A repeated id or a missing manager terminates the
// walk. An empty chain is a valid result; callers fall back to HR.
func (r *Resolver) Resolve(ctx context.Context, employeeID uuid.UUID) ([]uuid.UUID, error) {
	chain := make([]uuid.UUID, 0, 4)
	seen := map[uuid.UUID]bool{employeeID: true}

	current := employeeID
	for depth := 0; depth < maxChainDepth; depth++ {
		managerID, err := r.store.ManagerOf(ctx, current)
		if err != nil {
			return nil, err
		}
		if managerID == nil || seen[*managerID] {
			break
		}
		seen[*managerID] = true
		chain = append(chain, *managerID)
		current = *managerID
	}
	return chain, nil
}

// FallbackApprover returns the first active hr or admin employee in the
// company, or nil when none exists.
func (r *Resolver) FallbackApprover(ctx context.Context, companyID uuid.UUID) (*uuid.UUID, error) {
	return r.store.FirstActiveByRoles(ctx, companyID, []string{employee.RoleHR, employee.RoleAdmin})
}
