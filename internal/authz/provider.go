package authz

import (
	"context"
	"sync"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"go.uber.org/zap"
)

const modelText = `
[request_definition]
r = sub, dom, cap

[policy_definition]
p = sub, dom, cap

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = r.sub == p.sub && r.dom == p.dom && r.cap == p.cap
`

// roleCapabilities expands HR roles into the capabilities they carry without
// an explicit grant row.
var roleCapabilities = map[string][]string{
	"hr": {
		CapLeaveApproveAll, CapLeaveCancelAny, CapPolicyManage, CapEmployeeManage,
	},
	"admin": {
		CapLeaveApproveAll, CapLeaveCancelAny,
		CapPolicyManage, CapEmployeeManage, CapCompanyManage,
	},
	"manager": {
		CapLeaveApproveTeam,
	},
}

// Provider answers capability questions for lifecycle authorization.
//
//go:generate mockgen -destination=mock/provider_mock.go -package=mock . Provider
type Provider interface {
	HasCapability(ctx context.Context, actorID, companyID, capability string) (bool, error)
	TeamMembersOf(ctx context.Context, actorID, companyID string) ([]string, error)
}

type provider struct {
	repo     Repository
	enforcer *casbin.Enforcer
	logger   *zap.Logger
	mu       sync.Mutex
}

func NewProvider(repo Repository, logger ...*zap.Logger) (Provider, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, err
	}

	l := zap.L().Named("authz.provider")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("authz.provider")
	}
	return &provider{repo: repo, enforcer: enforcer, logger: l}, nil
}

func (p *provider) HasCapability(ctx context.Context, actorID, companyID, capability string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.loadCompanyPolicyUnlocked(ctx, companyID); err != nil {
		return false, err
	}

	allowed, err := p.enforcer.Enforce(actorID, companyID, capability)
	if err != nil {
		return false, err
	}

	p.logger.Debug("capability check",
		zap.String("actor_id", actorID),
		zap.String("company_id", companyID),
		zap.String("capability", capability),
		zap.Bool("allowed", allowed),
	)
	return allowed, nil
}

func (p *provider) TeamMembersOf(ctx context.Context, actorID, companyID string) ([]string, error) {
	return p.repo.GetTeamMembers(ctx, companyID, actorID)
}

func (p *provider) loadCompanyPolicyUnlocked(ctx context.Context, companyID string) error {
	p.enforcer.ClearPolicy()

	grants, err := p.repo.GetGrants(ctx, companyID)
	if err != nil {
		return err
	}
	for _, g := range grants {
		if _, err := p.enforcer.AddPolicy(g.EmployeeID, companyID, g.Capability); err != nil {
			return err
		}
	}

	bindings, err := p.repo.GetRoleBindings(ctx, companyID)
	if err != nil {
		return err
	}
	for _, b := range bindings {
		for _, cap := range roleCapabilities[b.Role] {
			if _, err := p.enforcer.AddPolicy(b.EmployeeID, companyID, cap); err != nil {
				return err
			}
		}
	}

	return nil
}
