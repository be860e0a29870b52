package policy

import (
	"context"
	"encoding/json"
	"fmt"

	"go-leave/internal/tenant"

	"gorm.io/gorm"
)

//go:generate mockgen -source=policy_repo.go -destination=mock/policy_repo_mock.go -package=mock
type Repository interface {
	CreateLeaveType(ctx context.Context, lt *LeaveType) error
	FindLeaveTypes(ctx context.Context, companyID string) ([]LeaveType, error)
	FindLeaveTypeByID(ctx context.Context, companyID, id string) (*LeaveType, error)
	FindActiveLeaveTypes(ctx context.Context, companyID string) ([]LeaveType, error)
	UpdateLeaveType(ctx context.Context, lt *LeaveType) error

	CreateLeaveRule(ctx context.Context, rule *LeaveRule) error
	FindLeaveRules(ctx context.Context, companyID string) ([]LeaveRule, error)
	FindLeaveRuleByID(ctx context.Context, companyID, id string) (*LeaveRule, error)
	FindActiveLeaveRules(ctx context.Context, companyID string) ([]LeaveRule, error)
	UpdateLeaveRule(ctx context.Context, rule *LeaveRule) error
	DeleteLeaveRule(ctx context.Context, companyID, id string) error

	FindActivePolicy(ctx context.Context, companyID string) (*ConstraintPolicy, error)
	ReplaceActivePolicy(ctx context.Context, p *ConstraintPolicy) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreateLeaveType(ctx context.Context, lt *LeaveType) error {
	return r.db.WithContext(ctx).Create(lt).Error
}

func (r *repository) FindLeaveTypes(ctx context.Context, companyID string) ([]LeaveType, error) {
	var types []LeaveType
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(companyID)).
		Order("code ASC").
		Find(&types).Error
	return types, err
}

func (r *repository) FindLeaveTypeByID(ctx context.Context, companyID, id string) (*LeaveType, error) {
	var lt LeaveType
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(companyID)).
		First(&lt, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &lt, nil
}

func (r *repository) FindActiveLeaveTypes(ctx context.Context, companyID string) ([]LeaveType, error) {
	var types []LeaveType
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(companyID)).
		Where("active = ?", true).
		Order("code ASC").
		Find(&types).Error
	return types, err
}

func (r *repository) UpdateLeaveType(ctx context.Context, lt *LeaveType) error {
	return r.db.WithContext(ctx).Save(lt).Error
}

func (r *repository) CreateLeaveRule(ctx context.Context, rule *LeaveRule) error {
	return r.db.WithContext(ctx).Create(rule).Error
}

func (r *repository) FindLeaveRules(ctx context.Context, companyID string) ([]LeaveRule, error) {
	var rules []LeaveRule
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(companyID)).
		Order("priority ASC, created_at ASC").
		Find(&rules).Error
	if err != nil {
		return nil, err
	}
	return decodeRules(rules)
}

func (r *repository) FindLeaveRuleByID(ctx context.Context, companyID, id string) (*LeaveRule, error) {
	var rule LeaveRule
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(companyID)).
		First(&rule, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	decoded, err := DecodeRuleConfig(rule.RuleType, rule.Config)
	if err != nil {
		return nil, fmt.Errorf("rule %s: %w", rule.ID, err)
	}
	rule.Decoded = decoded
	return &rule, nil
}

func (r *repository) FindActiveLeaveRules(ctx context.Context, companyID string) ([]LeaveRule, error) {
	var rules []LeaveRule
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(companyID)).
		Where("active = ?", true).
		Order("priority ASC, created_at ASC").
		Find(&rules).Error
	if err != nil {
		return nil, err
	}
	return decodeRules(rules)
}

func (r *repository) UpdateLeaveRule(ctx context.Context, rule *LeaveRule) error {
	return r.db.WithContext(ctx).Save(rule).Error
}

func (r *repository) DeleteLeaveRule(ctx context.Context, companyID, id string) error {
	return r.db.WithContext(ctx).
		Scopes(tenant.Scope(companyID)).
		Delete(&LeaveRule{}, "id = ?", id).Error
}

func (r *repository) FindActivePolicy(ctx context.Context, companyID string) (*ConstraintPolicy, error) {
	var p ConstraintPolicy
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(companyID)).
		Where("is_active = ?", true).
		Order("updated_at DESC").
		First(&p).Error
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(p.Rules, &p.Decoded); err != nil {
		return nil, fmt.Errorf("policy %s: decode rules: %w", p.ID, err)
	}
	return &p, nil
}

// ReplaceActivePolicy enforces the single-active-policy invariant at the
// write boundary: every existing active row is retired in the same
// transaction that inserts the replacement.
func (r *repository) ReplaceActivePolicy(ctx context.Context, p *ConstraintPolicy) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&ConstraintPolicy{}).
			Where("company_id = ? AND is_active = ?", p.CompanyID, true).
			Update("is_active", false).Error; err != nil {
			return err
		}
		p.IsActive = true
		return tx.Create(p).Error
	})
}

func decodeRules(rules []LeaveRule) ([]LeaveRule, error) {
	for i := range rules {
		decoded, err := DecodeRuleConfig(rules[i].RuleType, rules[i].Config)
		if err != nil {
			return nil, fmt.Errorf("rule %s: %w", rules[i].ID, err)
		}
		rules[i].Decoded = decoded
	}
	return rules, nil
}
