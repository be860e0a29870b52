package company

type UpdateSettingsRequest struct {
	Name                   string `json:"name"`
	WorkWeekDays           []int  `json:"work_week_days" binding:"omitempty,max=7,dive,min=0,max=6"`
	WorkStartTime          string `json:"work_start_time"`
	WorkEndTime            string `json:"work_end_time"`
	SLAHours               *int   `json:"sla_hours" binding:"omitempty,min=1,max=720"`
	NegativeBalanceAllowed *bool  `json:"negative_balance_allowed"`
	LeaveYearStartMonth    *int   `json:"leave_year_start_month" binding:"omitempty,min=1,max=12"`
	ProbationPeriodDays    *int   `json:"probation_period_days" binding:"omitempty,min=0,max=365"`
	ProbationLeaveAllowed  *bool  `json:"probation_leave_allowed"`
}

type CompanyResponse struct {
	ID                     string `json:"id"`
	Name                   string `json:"name"`
	WorkWeekDays           []int  `json:"work_week_days"`
	WorkStartTime          string `json:"work_start_time"`
	WorkEndTime            string `json:"work_end_time"`
	SLAHours               int    `json:"sla_hours"`
	NegativeBalanceAllowed bool   `json:"negative_balance_allowed"`
	LeaveYearStartMonth    int    `json:"leave_year_start_month"`
	ProbationPeriodDays    int    `json:"probation_period_days"`
	ProbationLeaveAllowed  bool   `json:"probation_leave_allowed"`
	IsActive               bool   `json:"is_active"`
}

type CreateHolidayRequest struct {
	Date string `json:"date" binding:"required"`
	Name string `json:"name" binding:"required,max=100"`
}

type HolidayResponse struct {
	ID        string `json:"id"`
	CompanyID string `json:"company_id,omitempty"`
	Date      string `json:"date"`
	Name      string `json:"name"`
}
