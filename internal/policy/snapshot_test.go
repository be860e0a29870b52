package policy_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"go-leave/internal/policy"

	"github.com/go-redis/redismock/v9"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

type fakeSnapshotRepo struct {
	types     []policy.LeaveType
	rules     []policy.LeaveRule
	policy    *policy.ConstraintPolicy
	loadCalls int
}

func (f *fakeSnapshotRepo) CreateLeaveType(ctx context.Context, lt *policy.LeaveType) error {
	return nil
}

func (f *fakeSnapshotRepo) FindLeaveTypes(ctx context.Context, companyID string) ([]policy.LeaveType, error) {
	return f.types, nil
}

func (f *fakeSnapshotRepo) FindLeaveTypeByID(ctx context.Context, companyID, id string) (*policy.LeaveType, error) {
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeSnapshotRepo) FindActiveLeaveTypes(ctx context.Context, companyID string) ([]policy.LeaveType, error) {
	f.loadCalls++
	return f.types, nil
}

func (f *fakeSnapshotRepo) UpdateLeaveType(ctx context.Context, lt *policy.LeaveType) error {
	return nil
}

func (f *fakeSnapshotRepo) CreateLeaveRule(ctx context.Context, rule *policy.LeaveRule) error {
	return nil
}

func (f *fakeSnapshotRepo) FindLeaveRules(ctx context.Context, companyID string) ([]policy.LeaveRule, error) {
	return f.rules, nil
}

func (f *fakeSnapshotRepo) FindLeaveRuleByID(ctx context.Context, companyID, id string) (*policy.LeaveRule, error) {
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeSnapshotRepo) FindActiveLeaveRules(ctx context.Context, companyID string) ([]policy.LeaveRule, error) {
	return f.rules, nil
}

func (f *fakeSnapshotRepo) UpdateLeaveRule(ctx context.Context, rule *policy.LeaveRule) error {
	return nil
}

func (f *fakeSnapshotRepo) DeleteLeaveRule(ctx context.Context, companyID, id string) error {
	return nil
}

func (f *fakeSnapshotRepo) FindActivePolicy(ctx context.Context, companyID string) (*policy.ConstraintPolicy, error) {
	if f.policy == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return f.policy, nil
}

func (f *fakeSnapshotRepo) ReplaceActivePolicy(ctx context.Context, p *policy.ConstraintPolicy) error {
	return nil
}

func snapshotFixture() (*fakeSnapshotRepo, *policy.Snapshot) {
	cfg := policy.PolicyConfig{
		AutoApprove: policy.AutoApproveConfig{MaxDays: 3, AllowedTypes: []string{"CL"}},
	}
	raw, _ := json.Marshal(cfg)

	repo := &fakeSnapshotRepo{
		types: []policy.LeaveType{
			{
				ID:          uuid.New(),
				Code:        "CL",
				Name:        "Casual Leave",
				AnnualQuota: decimal.NewFromInt(12),
				Active:      true,
			},
		},
		policy: &policy.ConstraintPolicy{
			ID:       uuid.New(),
			Name:     "default",
			Rules:    raw,
			IsActive: true,
			Decoded:  cfg,
		},
	}
	return repo, &policy.Snapshot{Types: repo.types, Policy: repo.policy}
}

func TestLoader_Load(t *testing.T) {
	ctx := context.Background()
	companyID := uuid.New().String()
	cacheKey := "policy:snapshot:" + companyID

	t.Run("cache miss loads from store and writes back", func(t *testing.T) {
		repo, expected := snapshotFixture()
		rdb, redisMock := redismock.NewClientMock()

		payload, err := json.Marshal(expected)
		assert.NoError(t, err)

		redisMock.ExpectGet(cacheKey).RedisNil()
		redisMock.ExpectSet(cacheKey, payload, 60*time.Second).SetVal("OK")

		loader := policy.NewLoader(repo, rdb)
		snap, err := loader.Load(ctx, companyID)

		assert.NoError(t, err)
		assert.Equal(t, 1, repo.loadCalls)
		assert.NotNil(t, snap.TypeByCode("CL"))
		assert.Nil(t, snap.TypeByCode("SL"))
		assert.Equal(t, 3, snap.Policy.Decoded.AutoApprove.MaxDays)
		assert.NoError(t, redisMock.ExpectationsWereMet())
	})

	t.Run("cache hit skips the store and redecodes rule configs", func(t *testing.T) {
		repo, expected := snapshotFixture()
		rdb, redisMock := redismock.NewClientMock()

		payload, err := json.Marshal(expected)
		assert.NoError(t, err)
		redisMock.ExpectGet(cacheKey).SetVal(string(payload))

		loader := policy.NewLoader(repo, rdb)
		snap, err := loader.Load(ctx, companyID)

		assert.NoError(t, err)
		assert.Equal(t, 0, repo.loadCalls)
		assert.Equal(t, []string{"CL"}, snap.Policy.Decoded.AutoApprove.AllowedTypes)
		assert.NoError(t, redisMock.ExpectationsWereMet())
	})

	t.Run("missing policy row yields a snapshot without a policy", func(t *testing.T) {
		repo, _ := snapshotFixture()
		repo.policy = nil

		loader := policy.NewLoader(repo, nil)
		snap, err := loader.Load(ctx, companyID)

		assert.NoError(t, err)
		assert.Nil(t, snap.Policy)
		assert.NotNil(t, snap.TypeByCode("CL"))
	})

	t.Run("invalidate drops the cached snapshot", func(t *testing.T) {
		repo, _ := snapshotFixture()
		rdb, redisMock := redismock.NewClientMock()
		redisMock.ExpectDel(cacheKey).SetVal(1)

		loader := policy.NewLoader(repo, rdb)
		loader.Invalidate(ctx, companyID)

		assert.NoError(t, redisMock.ExpectationsWereMet())
	})
}
