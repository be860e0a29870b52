package policy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

// Snapshot is the read-mostly policy configuration a single evaluation
// runs against: active leave types, active rules (decoded), and the active
// constraint policy, all for one company. Policy may be nil when the
// company has not configured one.
type Snapshot struct {
	Types  []LeaveType       `json:"types"`
	Rules  []LeaveRule       `json:"rules"`
	Policy *ConstraintPolicy `json:"policy"`
}

// TypeByCode returns the active leave type with the given code, or nil.
func (s *Snapshot) TypeByCode(code string) *LeaveType {
	for i := range s.Types {
		if s.Types[i].Code == code {
			return &s.Types[i]
		}
	}
	return nil
}

const snapshotTTL = 60 * time.Second

// Loader serves per-company policy snapshots with a short redis cache and
// singleflight so a burst of submissions does not hammer the config tables.
// Staleness is bounded by snapshotTTL; config writes invalidate eagerly.
type Loader struct {
	repo   Repository
	rdb    *redis.Client
	group  singleflight.Group
	logger *zap.Logger
}

func NewLoader(repo Repository, rdb *redis.Client, logger ...*zap.Logger) *Loader {
	l := zap.L().Named("policy.loader")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("policy.loader")
	}
	return &Loader{repo: repo, rdb: rdb, logger: l}
}

func snapshotKey(companyID string) string {
	return fmt.Sprintf("policy:snapshot:%s", companyID)
}

func (l *Loader) Load(ctx context.Context, companyID string) (*Snapshot, error) {
	if l.rdb != nil {
		cached, err := l.rdb.Get(ctx, snapshotKey(companyID)).Bytes()
		if err == nil {
			var snap Snapshot
			if err := json.Unmarshal(cached, &snap); err == nil {
				if err := redecode(&snap); err == nil {
					return &snap, nil
				}
			}
			l.logger.Warn("discarding undecodable cached snapshot",
				zap.String("company_id", companyID),
			)
		} else if !errors.Is(err, redis.Nil) {
			l.logger.Warn("snapshot cache read failed", zap.Error(err))
		}
	}

	v, err, _ := l.group.Do(companyID, func() (interface{}, error) {
		return l.loadFromStore(ctx, companyID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Snapshot), nil
}

func (l *Loader) loadFromStore(ctx context.Context, companyID string) (*Snapshot, error) {
	types, err := l.repo.FindActiveLeaveTypes(ctx, companyID)
	if err != nil {
		return nil, err
	}
	rules, err := l.repo.FindActiveLeaveRules(ctx, companyID)
	if err != nil {
		return nil, err
	}
	snap := &Snapshot{Types: types, Rules: rules}

	policy, err := l.repo.FindActivePolicy(ctx, companyID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	snap.Policy = policy

	if l.rdb != nil {
		if payload, err := json.Marshal(snap); err == nil {
			if err := l.rdb.Set(ctx, snapshotKey(companyID), payload, snapshotTTL).Err(); err != nil {
				l.logger.Warn("snapshot cache write failed", zap.Error(err))
			}
		}
	}
	return snap, nil
}

// Invalidate drops the cached snapshot after a config write.
func (l *Loader) Invalidate(ctx context.Context, companyID string) {
	if l.rdb == nil {
		return
	}
	if err := l.rdb.Del(ctx, snapshotKey(companyID)).Err(); err != nil {
		l.logger.Warn("snapshot cache invalidate failed",
			zap.String("company_id", companyID),
			zap.Error(err),
		)
	}
}

// redecode rebuilds the non-persisted Decoded fields after a cache
// round trip.
func redecode(snap *Snapshot) error {
	for i := range snap.Rules {
		decoded, err := DecodeRuleConfig(snap.Rules[i].RuleType, snap.Rules[i].Config)
		if err != nil {
			return err
		}
		snap.Rules[i].Decoded = decoded
	}
	if snap.Policy != nil {
		if err := json.Unmarshal(snap.Policy.Rules, &snap.Policy.Decoded); err != nil {
			return err
		}
	}
	return nil
}
