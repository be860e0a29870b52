package authz

import (
	"context"

	"gorm.io/gorm"
)

// Grant is a direct capability assignment.
type Grant struct {
	EmployeeID string
	Capability string
}

// RoleBinding attaches an employee to a role within a company; roles expand
// to capability sets when the policy is loaded.
type RoleBinding struct {
	EmployeeID string
	Role       string
}

//go:generate mockgen -source=repo.go -destination=mock/repo_mock.go -package=mock
type Repository interface {
	GetGrants(ctx context.Context, companyID string) ([]Grant, error)
	GetRoleBindings(ctx context.Context, companyID string) ([]RoleBinding, error)
	GetTeamMembers(ctx context.Context, companyID, managerID string) ([]string, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetGrants(ctx context.Context, companyID string) ([]Grant, error) {
	var grants []Grant
	err := r.db.WithContext(ctx).
		Table("capability_grants").
		Select("employee_id, capability").
		Where("company_id = ?", companyID).
		Scan(&grants).Error
	return grants, err
}

func (r *repository) GetRoleBindings(ctx context.Context, companyID string) ([]RoleBinding, error) {
	var bindings []RoleBinding
	err := r.db.WithContext(ctx).
		Table("employees").
		Select("id AS employee_id, role").
		Where("company_id = ?", companyID).
		Where("status <> ?", "inactive").
		Where("deleted_at IS NULL").
		Scan(&bindings).Error
	return bindings, err
}

func (r *repository) GetTeamMembers(ctx context.Context, companyID, managerID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Table("employees").
		Select("id::text").
		Where("company_id = ?", companyID).
		Where("manager_id = ?", managerID).
		Where("deleted_at IS NULL").
		Scan(&ids).Error
	return ids, err
}
