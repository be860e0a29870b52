package policy

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	policyerrors "go-leave/internal/policy/errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

//go:generate mockgen -source=policy_service.go -destination=mock/policy_service_mock.go -package=mock
type Service interface {
	CreateLeaveType(ctx context.Context, companyID string, req CreateLeaveTypeRequest) (LeaveTypeResponse, error)
	ListLeaveTypes(ctx context.Context, companyID string) ([]LeaveTypeResponse, error)
	UpdateLeaveType(ctx context.Context, companyID, id string, req UpdateLeaveTypeRequest) (LeaveTypeResponse, error)
	DeactivateLeaveType(ctx context.Context, companyID, id string) error

	CreateLeaveRule(ctx context.Context, companyID string, req CreateLeaveRuleRequest) (LeaveRuleResponse, error)
	ListLeaveRules(ctx context.Context, companyID string) ([]LeaveRuleResponse, error)
	UpdateLeaveRule(ctx context.Context, companyID, id string, req UpdateLeaveRuleRequest) (LeaveRuleResponse, error)
	DeleteLeaveRule(ctx context.Context, companyID, id string) error

	GetActivePolicy(ctx context.Context, companyID string) (PolicyResponse, error)
	ReplacePolicy(ctx context.Context, companyID string, req ReplacePolicyRequest) (PolicyResponse, error)
}

type service struct {
	repo   Repository
	loader *Loader
	logger *zap.Logger
}

func NewService(repo Repository, loader *Loader, logger ...*zap.Logger) Service {
	l := zap.L().Named("policy.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("policy.service")
	}
	return &service{repo: repo, loader: loader, logger: l}
}

func (s *service) CreateLeaveType(ctx context.Context, companyID string, req CreateLeaveTypeRequest) (LeaveTypeResponse, error) {
	companyUUID, err := uuid.Parse(companyID)
	if err != nil {
		return LeaveTypeResponse{}, policyerrors.ErrInvalidCompanyID
	}

	lt := &LeaveType{
		ID:                 uuid.New(),
		CompanyID:          companyUUID,
		Code:               strings.ToUpper(req.Code),
		Name:               req.Name,
		AnnualQuota:        decimal.NewFromFloat(req.AnnualQuota),
		MaxConsecutiveDays: 30,
		MinNoticeDays:      req.MinNoticeDays,
		HalfDayAllowed:     true,
		RequiresDocument:   req.RequiresDocument,
		GenderRestriction:  req.GenderRestriction,
		CarryForward:       req.CarryForward,
		Paid:               true,
		Active:             true,
	}
	if req.MaxConsecutiveDays > 0 {
		lt.MaxConsecutiveDays = req.MaxConsecutiveDays
	}
	if req.HalfDayAllowed != nil {
		lt.HalfDayAllowed = *req.HalfDayAllowed
	}
	if req.CarryForwardCap != nil {
		lt.CarryForwardCap = decimal.NewFromFloat(*req.CarryForwardCap)
	}
	if req.Paid != nil {
		lt.Paid = *req.Paid
	}

	if err := s.repo.CreateLeaveType(ctx, lt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return LeaveTypeResponse{}, policyerrors.ErrDuplicateLeaveTypeCode
		}
		s.logger.Error("create leave type failed", zap.Error(err))
		return LeaveTypeResponse{}, err
	}

	s.loader.Invalidate(ctx, companyID)
	s.logger.Info("leave type created",
		zap.String("company_id", companyID),
		zap.String("code", lt.Code),
	)
	return mapLeaveType(*lt), nil
}

func (s *service) ListLeaveTypes(ctx context.Context, companyID string) ([]LeaveTypeResponse, error) {
	types, err := s.repo.FindLeaveTypes(ctx, companyID)
	if err != nil {
		return nil, err
	}
	resp := make([]LeaveTypeResponse, len(types))
	for i, lt := range types {
		resp[i] = mapLeaveType(lt)
	}
	return resp, nil
}

func (s *service) UpdateLeaveType(ctx context.Context, companyID, id string, req UpdateLeaveTypeRequest) (LeaveTypeResponse, error) {
	lt, err := s.repo.FindLeaveTypeByID(ctx, companyID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return LeaveTypeResponse{}, policyerrors.ErrLeaveTypeNotFound
		}
		return LeaveTypeResponse{}, err
	}

	if req.Name != "" {
		lt.Name = req.Name
	}
	if req.AnnualQuota != nil {
		lt.AnnualQuota = decimal.NewFromFloat(*req.AnnualQuota)
	}
	if req.MaxConsecutiveDays != nil {
		lt.MaxConsecutiveDays = *req.MaxConsecutiveDays
	}
	if req.MinNoticeDays != nil {
		lt.MinNoticeDays = *req.MinNoticeDays
	}
	if req.HalfDayAllowed != nil {
		lt.HalfDayAllowed = *req.HalfDayAllowed
	}
	if req.RequiresDocument != nil {
		lt.RequiresDocument = *req.RequiresDocument
	}
	if req.GenderRestriction != nil {
		lt.GenderRestriction = req.GenderRestriction
	}
	if req.CarryForward != nil {
		lt.CarryForward = *req.CarryForward
	}
	if req.CarryForwardCap != nil {
		lt.CarryForwardCap = decimal.NewFromFloat(*req.CarryForwardCap)
	}
	if req.Paid != nil {
		lt.Paid = *req.Paid
	}
	if req.Active != nil {
		lt.Active = *req.Active
	}

	if err := s.repo.UpdateLeaveType(ctx, lt); err != nil {
		s.logger.Error("update leave type failed", zap.String("id", id), zap.Error(err))
		return LeaveTypeResponse{}, err
	}

	s.loader.Invalidate(ctx, companyID)
	return mapLeaveType(*lt), nil
}

// DeactivateLeaveType soft-disables a type. Types referenced by requests
// are never hard-deleted.
func (s *service) DeactivateLeaveType(ctx context.Context, companyID, id string) error {
	lt, err := s.repo.FindLeaveTypeByID(ctx, companyID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return policyerrors.ErrLeaveTypeNotFound
		}
		return err
	}
	lt.Active = false
	if err := s.repo.UpdateLeaveType(ctx, lt); err != nil {
		return err
	}
	s.loader.Invalidate(ctx, companyID)
	s.logger.Info("leave type deactivated",
		zap.String("company_id", companyID),
		zap.String("code", lt.Code),
	)
	return nil
}

func (s *service) CreateLeaveRule(ctx context.Context, companyID string, req CreateLeaveRuleRequest) (LeaveRuleResponse, error) {
	companyUUID, err := uuid.Parse(companyID)
	if err != nil {
		return LeaveRuleResponse{}, policyerrors.ErrInvalidCompanyID
	}

	decoded, err := DecodeRuleConfig(req.RuleType, req.Config)
	if err != nil {
		return LeaveRuleResponse{}, policyerrors.ErrInvalidRuleConfig
	}

	rule := &LeaveRule{
		ID:          uuid.New(),
		CompanyID:   companyUUID,
		Name:        req.Name,
		RuleType:    req.RuleType,
		Config:      datatypes.JSON(req.Config),
		IsBlocking:  true,
		Priority:    100,
		Departments: req.Departments,
		Active:      true,
		Decoded:     decoded,
	}
	if req.IsBlocking != nil {
		rule.IsBlocking = *req.IsBlocking
	}
	if req.Priority > 0 {
		rule.Priority = req.Priority
	}

	if err := s.repo.CreateLeaveRule(ctx, rule); err != nil {
		s.logger.Error("create leave rule failed", zap.Error(err))
		return LeaveRuleResponse{}, err
	}

	s.loader.Invalidate(ctx, companyID)
	s.logger.Info("leave rule created",
		zap.String("company_id", companyID),
		zap.String("rule_type", rule.RuleType),
		zap.String("name", rule.Name),
	)
	return mapLeaveRule(*rule), nil
}

func (s *service) ListLeaveRules(ctx context.Context, companyID string) ([]LeaveRuleResponse, error) {
	rules, err := s.repo.FindLeaveRules(ctx, companyID)
	if err != nil {
		return nil, err
	}
	resp := make([]LeaveRuleResponse, len(rules))
	for i, rule := range rules {
		resp[i] = mapLeaveRule(rule)
	}
	return resp, nil
}

func (s *service) UpdateLeaveRule(ctx context.Context, companyID, id string, req UpdateLeaveRuleRequest) (LeaveRuleResponse, error) {
	rule, err := s.repo.FindLeaveRuleByID(ctx, companyID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return LeaveRuleResponse{}, policyerrors.ErrLeaveRuleNotFound
		}
		return LeaveRuleResponse{}, err
	}

	if req.Name != "" {
		rule.Name = req.Name
	}
	if req.Config != nil {
		decoded, err := DecodeRuleConfig(rule.RuleType, req.Config)
		if err != nil {
			return LeaveRuleResponse{}, policyerrors.ErrInvalidRuleConfig
		}
		rule.Config = datatypes.JSON(req.Config)
		rule.Decoded = decoded
	}
	if req.IsBlocking != nil {
		rule.IsBlocking = *req.IsBlocking
	}
	if req.Priority != nil {
		rule.Priority = *req.Priority
	}
	if req.Departments != nil {
		rule.Departments = *req.Departments
	}
	if req.Active != nil {
		rule.Active = *req.Active
	}

	if err := s.repo.UpdateLeaveRule(ctx, rule); err != nil {
		s.logger.Error("update leave rule failed", zap.String("id", id), zap.Error(err))
		return LeaveRuleResponse{}, err
	}

	s.loader.Invalidate(ctx, companyID)
	return mapLeaveRule(*rule), nil
}

func (s *service) DeleteLeaveRule(ctx context.Context, companyID, id string) error {
	if _, err := s.repo.FindLeaveRuleByID(ctx, companyID, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return policyerrors.ErrLeaveRuleNotFound
		}
		return err
	}
	if err := s.repo.DeleteLeaveRule(ctx, companyID, id); err != nil {
		return err
	}
	s.loader.Invalidate(ctx, companyID)
	return nil
}

func (s *service) GetActivePolicy(ctx context.Context, companyID string) (PolicyResponse, error) {
	p, err := s.repo.FindActivePolicy(ctx, companyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return PolicyResponse{}, policyerrors.ErrPolicyNotFound
		}
		return PolicyResponse{}, err
	}
	return mapPolicy(*p), nil
}

// ReplacePolicy upserts the single active policy for a company.
func (s *service) ReplacePolicy(ctx context.Context, companyID string, req ReplacePolicyRequest) (PolicyResponse, error) {
	companyUUID, err := uuid.Parse(companyID)
	if err != nil {
		return PolicyResponse{}, policyerrors.ErrInvalidCompanyID
	}
	if req.Config.AutoApprove.MaxDays < 0 || req.Config.AutoApprove.MinNoticeDays < 0 {
		return PolicyResponse{}, policyerrors.ErrInvalidPolicyConfig
	}

	raw, err := json.Marshal(req.Config)
	if err != nil {
		return PolicyResponse{}, policyerrors.ErrInvalidPolicyConfig
	}

	p := &ConstraintPolicy{
		ID:        uuid.New(),
		CompanyID: companyUUID,
		Name:      req.Name,
		Rules:     raw,
		IsActive:  true,
		Decoded:   req.Config,
	}
	if err := s.repo.ReplaceActivePolicy(ctx, p); err != nil {
		s.logger.Error("replace policy failed", zap.Error(err))
		return PolicyResponse{}, err
	}

	s.loader.Invalidate(ctx, companyID)
	s.logger.Info("constraint policy replaced",
		zap.String("company_id", companyID),
		zap.String("policy_id", p.ID.String()),
	)
	return mapPolicy(*p), nil
}

func mapLeaveType(lt LeaveType) LeaveTypeResponse {
	return LeaveTypeResponse{
		ID:                 lt.ID.String(),
		Code:               lt.Code,
		Name:               lt.Name,
		AnnualQuota:        lt.AnnualQuota.String(),
		MaxConsecutiveDays: lt.MaxConsecutiveDays,
		MinNoticeDays:      lt.MinNoticeDays,
		HalfDayAllowed:     lt.HalfDayAllowed,
		RequiresDocument:   lt.RequiresDocument,
		GenderRestriction:  lt.GenderRestriction,
		CarryForward:       lt.CarryForward,
		CarryForwardCap:    lt.CarryForwardCap.String(),
		Paid:               lt.Paid,
		Active:             lt.Active,
	}
}

func mapLeaveRule(rule LeaveRule) LeaveRuleResponse {
	return LeaveRuleResponse{
		ID:          rule.ID.String(),
		Name:        rule.Name,
		RuleType:    rule.RuleType,
		Config:      json.RawMessage(rule.Config),
		IsBlocking:  rule.IsBlocking,
		Priority:    rule.Priority,
		Departments: rule.Departments,
		Active:      rule.Active,
	}
}

func mapPolicy(p ConstraintPolicy) PolicyResponse {
	return PolicyResponse{
		ID:       p.ID.String(),
		Name:     p.Name,
		Config:   p.Decoded,
		IsActive: p.IsActive,
	}
}
