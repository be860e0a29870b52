package policy

import (
	"context"
	"fmt"
	"math"
	"time"

	"go-leave/internal/company"
	"go-leave/internal/employee"
	"go-leave/internal/shared/clock"
	"go-leave/internal/workcal"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// EvaluatorStore is the narrow read surface the evaluator needs from the
// request/employee tables. Implemented by the leave repository so this
// package stays free of persistence concerns.
type EvaluatorStore interface {
	CountActiveInDepartment(ctx context.Context, companyID, department string) (int, error)
	CountApprovedOverlapping(ctx context.Context, companyID, department string, start, end time.Time) (int, error)
	CountApprovedSince(ctx context.Context, employeeID string, since time.Time) (int, error)
	LastLeaveEndBefore(ctx context.Context, employeeID string, before time.Time) (*time.Time, error)
	LastApprovedEndBefore(ctx context.Context, employeeID string, before time.Time) (*time.Time, error)
}

// BalanceView is the ledger snapshot an evaluation runs against. The
// lifecycle supplies it from the locked balance row, or seeded from the
// type's quota when no row exists yet.
type BalanceView struct {
	AnnualEntitlement decimal.Decimal
	CarriedForward    decimal.Decimal
	UsedDays          decimal.Decimal
	PendingDays       decimal.Decimal
}

func (b BalanceView) Remaining() decimal.Decimal {
	return b.AnnualEntitlement.Add(b.CarriedForward).Sub(b.UsedDays).Sub(b.PendingDays)
}

// Candidate is the request under evaluation.
type Candidate struct {
	LeaveTypeCode string
	StartDate     time.Time
	EndDate       time.Time
	IsHalfDay     bool
	RequestedDays decimal.Decimal
	DocumentID    *string
}

type EvaluateInput struct {
	Employee  employee.Employee
	Company   company.Company
	Snapshot  *Snapshot
	Balance   BalanceView
	Candidate Candidate
}

// Result is the complete evaluation verdict. Findings are data, never
// errors: a request with violations still reaches a human decision-maker.
type Result struct {
	Passed         bool           `json:"passed"`
	CanAutoApprove bool           `json:"can_auto_approve"`
	Violations     []string       `json:"violations"`
	Warnings       []string       `json:"warnings"`
	Suggestions    []string       `json:"suggestions"`
	Confidence     float64        `json:"confidence"`
	Details        map[string]any `json:"details"`
}

type Evaluator struct {
	store  EvaluatorStore
	clock  clock.Clock
	logger *zap.Logger
}

func NewEvaluator(store EvaluatorStore, clk clock.Clock, logger ...*zap.Logger) *Evaluator {
	l := zap.L().Named("policy.evaluator")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("policy.evaluator")
	}
	return &Evaluator{store: store, clock: clk, logger: l}
}

// Evaluate runs every applicable check and returns the full report. It
// never short-circuits on a failing check, with one exception: an unknown
// or inactive leave type, where nothing further is computable.
func (e *Evaluator) Evaluate(ctx context.Context, in EvaluateInput) (Result, error) {
	res := Result{
		Violations:  []string{},
		Warnings:    []string{},
		Suggestions: []string{},
		Details:     map[string]any{},
	}

	lt := in.Snapshot.TypeByCode(in.Candidate.LeaveTypeCode)
	if lt == nil || !lt.Active {
		res.Violations = append(res.Violations,
			fmt.Sprintf("leave type %q is not available for this company", in.Candidate.LeaveTypeCode))
		return res, nil
	}

	requested := in.Candidate.RequestedDays
	remaining := in.Balance.Remaining()
	daysUntil := workcal.DaysUntil(e.clock, in.Candidate.StartDate)
	res.Details["remaining_balance"] = remaining.String()
	res.Details["requested_days"] = requested.String()
	res.Details["days_until_start"] = daysUntil

	autoApprovable := true

	if remaining.LessThan(requested) {
		if in.Company.NegativeBalanceAllowed {
			res.Warnings = append(res.Warnings,
				fmt.Sprintf("insufficient balance: %s days remaining, %s requested (negative balance permitted)",
					remaining, requested))
		} else {
			res.Violations = append(res.Violations,
				fmt.Sprintf("insufficient balance: %s days remaining, %s requested", remaining, requested))
			res.Suggestions = append(res.Suggestions,
				"request fewer days or apply for unpaid leave")
		}
	}

	if lt.MaxConsecutiveDays > 0 && requested.GreaterThan(decimal.NewFromInt(int64(lt.MaxConsecutiveDays))) {
		res.Violations = append(res.Violations,
			fmt.Sprintf("%s days exceeds the %d-day consecutive limit for %s", requested, lt.MaxConsecutiveDays, lt.Code))
		res.Suggestions = append(res.Suggestions,
			"split the request into shorter periods")
	}

	if daysUntil < lt.MinNoticeDays {
		res.Violations = append(res.Violations,
			fmt.Sprintf("%s requires %d days notice, only %d given", lt.Code, lt.MinNoticeDays, daysUntil))
	}

	if in.Candidate.IsHalfDay && !lt.HalfDayAllowed {
		res.Violations = append(res.Violations,
			fmt.Sprintf("half-day requests are not allowed for %s", lt.Code))
	}

	if lt.GenderRestriction != nil && in.Employee.Gender != nil && *in.Employee.Gender != *lt.GenderRestriction {
		res.Violations = append(res.Violations,
			fmt.Sprintf("%s is restricted to %s employees", lt.Code, *lt.GenderRestriction))
	}

	policyCfg := activeConfig(in.Snapshot)

	needsDocument := lt.RequiresDocument
	if policyCfg != nil && policyCfg.Escalation.RequireDocumentAboveDays > 0 &&
		requested.GreaterThan(decimal.NewFromInt(int64(policyCfg.Escalation.RequireDocumentAboveDays))) {
		needsDocument = true
	}
	if needsDocument && in.Candidate.DocumentID == nil {
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("supporting document required for this %s request; approval needs manual review", lt.Code))
		autoApprovable = false
	}

	if e.inProbation(in) {
		res.Violations = append(res.Violations,
			"leave is not permitted during the probation period")
	}

	teamChecks, err := e.evaluateRules(ctx, in, requested, &res)
	if err != nil {
		return Result{}, err
	}

	autoOK, err := e.evaluateGates(ctx, in, policyCfg, requested, remaining, daysUntil, &res)
	if err != nil {
		return Result{}, err
	}
	autoApprovable = autoApprovable && autoOK

	e.sandwichAdvisory(in, requested, &res)

	if err := e.teamCoverage(ctx, in, policyCfg, teamChecks, &res); err != nil {
		return Result{}, err
	}

	res.Passed = len(res.Violations) == 0
	res.CanAutoApprove = res.Passed && autoApprovable
	res.Confidence = confidence(in, res, remaining, requested, teamChecks)
	res.Details["confidence"] = res.Confidence

	e.logger.Debug("evaluation complete",
		zap.String("employee_id", in.Employee.ID.String()),
		zap.String("leave_type", in.Candidate.LeaveTypeCode),
		zap.Bool("passed", res.Passed),
		zap.Bool("can_auto_approve", res.CanAutoApprove),
		zap.Int("violations", len(res.Violations)),
		zap.Int("warnings", len(res.Warnings)),
	)
	return res, nil
}

func activeConfig(snap *Snapshot) *PolicyConfig {
	if snap.Policy == nil {
		return nil
	}
	return &snap.Policy.Decoded
}

func (e *Evaluator) inProbation(in EvaluateInput) bool {
	if in.Company.ProbationLeaveAllowed || in.Employee.ProbationConfirmed {
		return false
	}
	probationEnd := in.Employee.HireDate.AddDate(0, 0, in.Company.ProbationPeriodDays)
	return e.clock.Now().Before(probationEnd)
}

// teamStats carries department numbers shared by the rule checks, the
// coverage policy and the confidence score.
type teamStats struct {
	size      int
	onLeave   int
	populated bool
}

func (e *Evaluator) teamStats(ctx context.Context, in EvaluateInput, stats *teamStats) error {
	if stats.populated {
		return nil
	}
	size, err := e.store.CountActiveInDepartment(ctx, in.Company.ID.String(), in.Employee.Department)
	if err != nil {
		return err
	}
	onLeave, err := e.store.CountApprovedOverlapping(ctx,
		in.Company.ID.String(), in.Employee.Department,
		in.Candidate.StartDate, in.Candidate.EndDate)
	if err != nil {
		return err
	}
	stats.size = size
	stats.onLeave = onLeave
	stats.populated = true
	return nil
}

func (e *Evaluator) evaluateRules(ctx context.Context, in EvaluateInput, requested decimal.Decimal, res *Result) (*teamStats, error) {
	stats := &teamStats{}

	for i := range in.Snapshot.Rules {
		rule := &in.Snapshot.Rules[i]
		if !rule.Active || !rule.AppliesTo(in.Employee.Department) {
			continue
		}

		var finding, suggestion string
		switch {
		case rule.Decoded.Blackout != nil:
			finding = e.checkBlackout(rule, in.Candidate)
		case rule.Decoded.MaxConcurrent != nil:
			if err := e.teamStats(ctx, in, stats); err != nil {
				return nil, err
			}
			finding = checkMaxConcurrent(rule, stats)
		case rule.Decoded.MinGap != nil:
			var err error
			finding, suggestion, err = e.checkMinGap(ctx, rule, in)
			if err != nil {
				return nil, err
			}
		case rule.Decoded.DepartmentLimit != nil:
			if err := e.teamStats(ctx, in, stats); err != nil {
				return nil, err
			}
			if stats.onLeave >= rule.Decoded.DepartmentLimit.Cap {
				finding = fmt.Sprintf("rule %q: department already has %d employees on leave (cap %d)",
					rule.Name, stats.onLeave, rule.Decoded.DepartmentLimit.Cap)
			}
		}

		if finding == "" {
			continue
		}
		if rule.IsBlocking {
			res.Violations = append(res.Violations, finding)
		} else {
			res.Warnings = append(res.Warnings, finding)
		}
		if suggestion != "" {
			res.Suggestions = append(res.Suggestions, suggestion)
		}
	}

	if stats.populated {
		res.Details["team_size"] = stats.size
		res.Details["team_on_leave"] = stats.onLeave
	}
	return stats, nil
}

func (e *Evaluator) checkBlackout(rule *LeaveRule, c Candidate) string {
	cfg := rule.Decoded.Blackout
	blocked := make(map[string]bool, len(cfg.Dates))
	for _, d := range cfg.Dates {
		blocked[d] = true
	}
	for day := c.StartDate; !day.After(c.EndDate); day = day.AddDate(0, 0, 1) {
		if blocked[workcal.DateKey(day)] {
			return fmt.Sprintf("rule %q: %s is a blackout date", rule.Name, workcal.DateKey(day))
		}
	}
	for _, wd := range cfg.Weekdays {
		if int(c.StartDate.Weekday()) == wd {
			return fmt.Sprintf("rule %q: leave may not start on a %s", rule.Name, c.StartDate.Weekday())
		}
	}
	return ""
}

func checkMaxConcurrent(rule *LeaveRule, stats *teamStats) string {
	cfg := rule.Decoded.MaxConcurrent
	limit := cfg.MaxCount
	if cfg.MaxPercentage > 0 && stats.size > 0 {
		limit = int(math.Ceil(float64(stats.size) * cfg.MaxPercentage / 100))
	}
	if limit > 0 && stats.onLeave >= limit {
		return fmt.Sprintf("rule %q: %d of %d team members already on overlapping leave (cap %d)",
			rule.Name, stats.onLeave, stats.size, limit)
	}
	return ""
}

func (e *Evaluator) checkMinGap(ctx context.Context, rule *LeaveRule, in EvaluateInput) (string, string, error) {
	cfg := rule.Decoded.MinGap
	lastEnd, err := e.store.LastLeaveEndBefore(ctx, in.Employee.ID.String(), in.Candidate.StartDate)
	if err != nil {
		return "", "", err
	}
	if lastEnd == nil {
		return "", "", nil
	}
	gap := int(in.Candidate.StartDate.Sub(*lastEnd).Hours() / 24)
	if gap >= cfg.Days {
		return "", "", nil
	}
	earliest := lastEnd.AddDate(0, 0, cfg.Days)
	finding := fmt.Sprintf("rule %q: only %d days since your last leave ended (minimum gap %d)",
		rule.Name, gap, cfg.Days)
	suggestion := fmt.Sprintf("earliest allowed start date is %s", workcal.DateKey(earliest))
	return finding, suggestion, nil
}

// evaluateGates applies the auto-approve policy gate and the escalation
// triggers. Returns false when any gate forces a human decision.
func (e *Evaluator) evaluateGates(ctx context.Context, in EvaluateInput, cfg *PolicyConfig, requested, remaining decimal.Decimal, daysUntil int, res *Result) (bool, error) {
	if cfg == nil {
		// No configured policy means nothing is ever auto-approved.
		return false, nil
	}

	ok := true

	if !contains(cfg.AutoApprove.AllowedTypes, in.Candidate.LeaveTypeCode) {
		ok = false
	}
	if requested.GreaterThan(decimal.NewFromInt(int64(cfg.AutoApprove.MaxDays))) {
		ok = false
	}
	if daysUntil < cfg.AutoApprove.MinNoticeDays {
		ok = false
	}

	if cfg.Escalation.DayThreshold > 0 &&
		requested.GreaterThan(decimal.NewFromInt(int64(cfg.Escalation.DayThreshold))) {
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("requests longer than %d days require manager review", cfg.Escalation.DayThreshold))
		ok = false
	}

	if cfg.Escalation.ConsecutiveLeaves {
		forced, err := e.consecutiveLeaveTrigger(ctx, in, res)
		if err != nil {
			return false, err
		}
		if forced {
			ok = false
		}
	}

	if cfg.Escalation.LowBalance && remaining.Sub(requested).LessThan(decimal.NewFromInt(2)) {
		res.Warnings = append(res.Warnings,
			"this request would leave fewer than 2 days of balance; escalating for review")
		ok = false
	}

	return ok, nil
}

func (e *Evaluator) consecutiveLeaveTrigger(ctx context.Context, in EvaluateInput, res *Result) (bool, error) {
	since := e.clock.Now().AddDate(0, 0, -30)
	recent, err := e.store.CountApprovedSince(ctx, in.Employee.ID.String(), since)
	if err != nil {
		return false, err
	}
	if recent > 0 {
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("%d approved leave(s) in the last 30 days; escalating for review", recent))
		return true, nil
	}

	lastEnd, err := e.store.LastApprovedEndBefore(ctx, in.Employee.ID.String(), in.Candidate.StartDate)
	if err != nil {
		return false, err
	}
	if lastEnd != nil && in.Candidate.StartDate.Sub(*lastEnd) <= 7*24*time.Hour {
		res.Warnings = append(res.Warnings,
			"a prior approved leave ends within 7 days of this request; escalating for review")
		return true, nil
	}
	return false, nil
}

// sandwichAdvisory flags short requests bridging a weekend. Advisory only.
func (e *Evaluator) sandwichAdvisory(in EvaluateInput, requested decimal.Decimal, res *Result) {
	if in.Company.WorkWeekMask.IncludesWeekend() || in.Candidate.IsHalfDay {
		return
	}
	startWD := in.Candidate.StartDate.Weekday()
	endWD := in.Candidate.EndDate.Weekday()
	bridges := (startWD == time.Friday && endWD == time.Monday) ||
		(startWD == time.Monday && endWD == time.Friday)
	if bridges && requested.LessThanOrEqual(decimal.NewFromInt(3)) {
		res.Warnings = append(res.Warnings,
			"this request bridges a weekend; consider whether adjacent days are needed")
	}
}

func (e *Evaluator) teamCoverage(ctx context.Context, in EvaluateInput, cfg *PolicyConfig, stats *teamStats, res *Result) error {
	if cfg == nil {
		return nil
	}
	tc := cfg.TeamCoverage
	if tc.MaxConcurrent == 0 && tc.MinCoverage == 0 {
		return nil
	}
	if err := e.teamStats(ctx, in, stats); err != nil {
		return err
	}
	if tc.MaxConcurrent > 0 && stats.onLeave >= tc.MaxConcurrent {
		res.Violations = append(res.Violations,
			fmt.Sprintf("team coverage: %d overlapping leaves already approved (policy cap %d)",
				stats.onLeave, tc.MaxConcurrent))
	}
	if tc.MinCoverage > 0 {
		covered := stats.size - stats.onLeave - 1
		if covered < tc.MinCoverage {
			res.Violations = append(res.Violations,
				fmt.Sprintf("team coverage: only %d team members would remain (minimum %d)",
					covered, tc.MinCoverage))
		}
	}
	res.Details["team_size"] = stats.size
	res.Details["team_on_leave"] = stats.onLeave
	return nil
}

// confidence is a weighted advisory score in [0,100] recorded with the
// decision metadata. It never affects the verdict.
func confidence(in EvaluateInput, res Result, remaining, requested decimal.Decimal, stats *teamStats) float64 {
	score := 0.0

	// Balance headroom, up to 25.
	if requested.IsPositive() && remaining.GreaterThanOrEqual(requested) {
		headroom, _ := remaining.Sub(requested).Div(requested.Add(decimal.NewFromInt(1))).Float64()
		score += 25 * math.Min(1, headroom)
	}

	// Team capacity, up to 20.
	if stats.populated && stats.size > 0 {
		score += 20 * (1 - math.Min(1, float64(stats.onLeave)/float64(stats.size)))
	} else {
		score += 10
	}

	// Conflicts, up to 15: full marks with no violations.
	if len(res.Violations) == 0 {
		score += 15
	}

	// Policy alignment, up to 20: scaled down per warning.
	score += 20 * math.Max(0, 1-float64(len(res.Warnings))*0.25)

	// Behavior patterns, up to 10: probation-confirmed employees score higher.
	if in.Employee.ProbationConfirmed || in.Employee.Status == employee.StatusActive {
		score += 10
	}

	// Duration, up to 10: shorter requests score higher.
	days, _ := requested.Float64()
	score += 10 * math.Max(0, 1-days/10)

	return math.Round(score*10) / 10
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
