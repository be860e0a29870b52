package policy

import "encoding/json"

type CreateLeaveTypeRequest struct {
	Code               string   `json:"code" binding:"required,max=10,uppercase"`
	Name               string   `json:"name" binding:"required,max=100"`
	AnnualQuota        float64  `json:"annual_quota" binding:"required,gt=0,lte=365"`
	MaxConsecutiveDays int      `json:"max_consecutive_days" binding:"omitempty,gt=0,lte=365"`
	MinNoticeDays      int      `json:"min_notice_days" binding:"omitempty,gte=0,lte=180"`
	HalfDayAllowed     *bool    `json:"half_day_allowed"`
	RequiresDocument   bool     `json:"requires_document"`
	GenderRestriction  *string  `json:"gender_restriction" binding:"omitempty,oneof=male female"`
	CarryForward       bool     `json:"carry_forward"`
	CarryForwardCap    *float64 `json:"carry_forward_cap" binding:"omitempty,gte=0,lte=365"`
	Paid               *bool    `json:"paid"`
}

type UpdateLeaveTypeRequest struct {
	Name               string   `json:"name" binding:"omitempty,max=100"`
	AnnualQuota        *float64 `json:"annual_quota" binding:"omitempty,gt=0,lte=365"`
	MaxConsecutiveDays *int     `json:"max_consecutive_days" binding:"omitempty,gt=0,lte=365"`
	MinNoticeDays      *int     `json:"min_notice_days" binding:"omitempty,gte=0,lte=180"`
	HalfDayAllowed     *bool    `json:"half_day_allowed"`
	RequiresDocument   *bool    `json:"requires_document"`
	GenderRestriction  *string  `json:"gender_restriction" binding:"omitempty,oneof=male female"`
	CarryForward       *bool    `json:"carry_forward"`
	CarryForwardCap    *float64 `json:"carry_forward_cap" binding:"omitempty,gte=0,lte=365"`
	Paid               *bool    `json:"paid"`
	Active             *bool    `json:"active"`
}

type LeaveTypeResponse struct {
	ID                 string  `json:"id"`
	Code               string  `json:"code"`
	Name               string  `json:"name"`
	AnnualQuota        string  `json:"annual_quota"`
	MaxConsecutiveDays int     `json:"max_consecutive_days"`
	MinNoticeDays      int     `json:"min_notice_days"`
	HalfDayAllowed     bool    `json:"half_day_allowed"`
	RequiresDocument   bool    `json:"requires_document"`
	GenderRestriction  *string `json:"gender_restriction,omitempty"`
	CarryForward       bool    `json:"carry_forward"`
	CarryForwardCap    string  `json:"carry_forward_cap"`
	Paid               bool    `json:"paid"`
	Active             bool    `json:"active"`
}

type CreateLeaveRuleRequest struct {
	Name        string          `json:"name" binding:"required,max=100"`
	RuleType    string          `json:"rule_type" binding:"required,oneof=blackout max_concurrent min_gap department_limit"`
	Config      json.RawMessage `json:"config" binding:"required"`
	IsBlocking  *bool           `json:"is_blocking"`
	Priority    int             `json:"priority" binding:"omitempty,gte=0,lte=1000"`
	Departments []string        `json:"departments"`
}

type UpdateLeaveRuleRequest struct {
	Name        string          `json:"name" binding:"omitempty,max=100"`
	Config      json.RawMessage `json:"config"`
	IsBlocking  *bool           `json:"is_blocking"`
	Priority    *int            `json:"priority" binding:"omitempty,gte=0,lte=1000"`
	Departments *[]string       `json:"departments"`
	Active      *bool           `json:"active"`
}

type LeaveRuleResponse struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	RuleType    string          `json:"rule_type"`
	Config      json.RawMessage `json:"config"`
	IsBlocking  bool            `json:"is_blocking"`
	Priority    int             `json:"priority"`
	Departments []string        `json:"departments"`
	Active      bool            `json:"active"`
}

type ReplacePolicyRequest struct {
	Name   string       `json:"name" binding:"required,max=100"`
	Config PolicyConfig `json:"config" binding:"required"`
}

type PolicyResponse struct {
	ID       string       `json:"id"`
	Name     string       `json:"name"`
	Config   PolicyConfig `json:"config"`
	IsActive bool         `json:"is_active"`
}
