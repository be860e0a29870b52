package policy

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// LeaveType is a per-company catalog entry. Codes are unique within a
// company. Types referenced by requests are deactivated, never deleted.
type LeaveType struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CompanyID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_leave_types_company_code"`

	Code string `gorm:"type:varchar(10);not null;uniqueIndex:idx_leave_types_company_code"`
	Name string `gorm:"type:varchar(100);not null"`

	AnnualQuota        decimal.Decimal `gorm:"type:numeric(5,1);not null"`
	MaxConsecutiveDays int             `gorm:"not null;default:30"`
	MinNoticeDays      int             `gorm:"not null;default:0"`

	HalfDayAllowed    bool            `gorm:"not null;default:true"`
	RequiresDocument  bool            `gorm:"not null;default:false"`
	GenderRestriction *string         `gorm:"type:varchar(10)"`
	CarryForward      bool            `gorm:"not null;default:false"`
	CarryForwardCap   decimal.Decimal `gorm:"type:numeric(5,1);not null;default:0"`
	Paid              bool            `gorm:"not null;default:true"`
	Active            bool            `gorm:"not null;default:true"`

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

func (LeaveType) TableName() string {
	return "leave_types"
}

const (
	RuleBlackout        = "blackout"
	RuleMaxConcurrent   = "max_concurrent"
	RuleMinGap          = "min_gap"
	RuleDepartmentLimit = "department_limit"
)

// RuleConfig is the decoded form of a rule's JSON payload. Exactly one
// branch is non-nil, matching the rule's RuleType.
type RuleConfig struct {
	Blackout        *BlackoutConfig
	MaxConcurrent   *MaxConcurrentConfig
	MinGap          *MinGapConfig
	DepartmentLimit *DepartmentLimitConfig
}

// BlackoutConfig blocks specific dates ("2006-01-02") or start weekdays
// (time.Weekday numbering, Sunday = 0).
type BlackoutConfig struct {
	Dates    []string `json:"dates"`
	Weekdays []int    `json:"weekdays"`
}

// MaxConcurrentConfig caps simultaneous approved leaves in a department,
// either as an absolute count or a percentage of team size (rounded up).
type MaxConcurrentConfig struct {
	MaxCount      int     `json:"max_count"`
	MaxPercentage float64 `json:"max_percentage"`
}

type MinGapConfig struct {
	Days int `json:"days"`
}

type DepartmentLimitConfig struct {
	Cap int `json:"cap"`
}

// DecodeRuleConfig parses raw JSON into the branch named by ruleType.
func DecodeRuleConfig(ruleType string, raw []byte) (RuleConfig, error) {
	var cfg RuleConfig
	switch ruleType {
	case RuleBlackout:
		cfg.Blackout = &BlackoutConfig{}
		if err := json.Unmarshal(raw, cfg.Blackout); err != nil {
			return RuleConfig{}, fmt.Errorf("decode blackout config: %w", err)
		}
	case RuleMaxConcurrent:
		cfg.MaxConcurrent = &MaxConcurrentConfig{}
		if err := json.Unmarshal(raw, cfg.MaxConcurrent); err != nil {
			return RuleConfig{}, fmt.Errorf("decode max_concurrent config: %w", err)
		}
	case RuleMinGap:
		cfg.MinGap = &MinGapConfig{}
		if err := json.Unmarshal(raw, cfg.MinGap); err != nil {
			return RuleConfig{}, fmt.Errorf("decode min_gap config: %w", err)
		}
	case RuleDepartmentLimit:
		cfg.DepartmentLimit = &DepartmentLimitConfig{}
		if err := json.Unmarshal(raw, cfg.DepartmentLimit); err != nil {
			return RuleConfig{}, fmt.Errorf("decode department_limit config: %w", err)
		}
	default:
		return RuleConfig{}, fmt.Errorf("unknown rule type %q", ruleType)
	}
	return cfg, nil
}

// LeaveRule is a company-defined constraint layered on top of per-type
// rules. Config holds the raw JSON payload; Decoded is populated once by
// the repository after load.
type LeaveRule struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CompanyID uuid.UUID `gorm:"type:uuid;not null;index"`

	Name     string `gorm:"type:varchar(100);not null"`
	RuleType string `gorm:"type:varchar(30);not null"`

	Config datatypes.JSON `gorm:"type:jsonb;not null"`

	IsBlocking bool `gorm:"not null;default:true"`
	Priority   int  `gorm:"not null;default:100"`

	// Departments empty means the rule applies to every department.
	Departments datatypes.JSONSlice[string] `gorm:"type:jsonb"`

	Active bool `gorm:"not null;default:true"`

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`

	Decoded RuleConfig `gorm:"-"`
}

func (LeaveRule) TableName() string {
	return "leave_rules"
}

// AppliesTo reports whether the rule is in scope for a department.
func (r *LeaveRule) AppliesTo(department string) bool {
	if len(r.Departments) == 0 {
		return true
	}
	for _, d := range r.Departments {
		if d == department {
			return true
		}
	}
	return false
}

// AutoApproveConfig gates automatic approval without a human decision.
type AutoApproveConfig struct {
	MaxDays       int      `json:"max_days"`
	MinNoticeDays int      `json:"min_notice_days"`
	AllowedTypes  []string `json:"allowed_types"`
}

// EscalationConfig lists the triggers that force escalation even for
// otherwise clean requests.
type EscalationConfig struct {
	DayThreshold             int  `json:"day_threshold"`
	ConsecutiveLeaves        bool `json:"consecutive_leaves"`
	LowBalance               bool `json:"low_balance"`
	RequireDocumentAboveDays int  `json:"require_document_above_days"`
}

type TeamCoverageConfig struct {
	MaxConcurrent int `json:"max_concurrent"`
	MinCoverage   int `json:"min_coverage"`
}

// PolicyConfig is the JSON bundle stored on a ConstraintPolicy row.
type PolicyConfig struct {
	AutoApprove  AutoApproveConfig  `json:"auto_approve"`
	Escalation   EscalationConfig   `json:"escalation"`
	TeamCoverage TeamCoverageConfig `json:"team_coverage"`
}

// ConstraintPolicy is the company-wide approval configuration. At most one
// row per company is active; replacing it is an upsert at the write
// boundary, never a second active row.
type ConstraintPolicy struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CompanyID uuid.UUID `gorm:"type:uuid;not null;index"`

	Name     string         `gorm:"type:varchar(100);not null"`
	Rules    datatypes.JSON `gorm:"type:jsonb;not null"`
	IsActive bool           `gorm:"not null;default:true"`

	CreatedAt time.Time
	UpdatedAt time.Time

	Decoded PolicyConfig `gorm:"-"`
}

func (ConstraintPolicy) TableName() string {
	return "constraint_policies"
}
