package company

import (
	"context"
	"errors"
	"time"

	companyerrors "go-leave/internal/company/errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:generate mockgen -destination=mock/company_service_mock.go -package=mock . Service
type Service interface {
	GetSettings(ctx context.Context, companyID string) (*CompanyResponse, error)
	UpdateSettings(ctx context.Context, companyID string, req UpdateSettingsRequest) (*CompanyResponse, error)
	AddHoliday(ctx context.Context, companyID string, req CreateHolidayRequest) (*HolidayResponse, error)
	RemoveHoliday(ctx context.Context, companyID, holidayID string) error
	ListHolidays(ctx context.Context, companyID string, year int) ([]HolidayResponse, error)
}

type service struct {
	repo   Repository
	logger *zap.Logger
}

func NewService(repo Repository, logger ...*zap.Logger) Service {
	l := zap.L().Named("company.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("company.service")
	}
	return &service{repo: repo, logger: l}
}

func (s *service) GetSettings(ctx context.Context, companyID string) (*CompanyResponse, error) {
	uid, err := uuid.Parse(companyID)
	if err != nil {
		return nil, companyerrors.ErrInvalidCompanyID
	}

	c, err := s.repo.GetByID(ctx, uid)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, companyerrors.ErrCompanyNotFound
		}
		return nil, err
	}
	return mapToResponse(c), nil
}

func (s *service) UpdateSettings(ctx context.Context, companyID string, req UpdateSettingsRequest) (*CompanyResponse, error) {
	uid, err := uuid.Parse(companyID)
	if err != nil {
		return nil, companyerrors.ErrInvalidCompanyID
	}

	c, err := s.repo.GetByID(ctx, uid)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, companyerrors.ErrCompanyNotFound
		}
		return nil, err
	}

	if req.Name != "" {
		c.Name = req.Name
	}
	if req.WorkWeekDays != nil {
		if len(req.WorkWeekDays) == 0 {
			return nil, companyerrors.ErrInvalidWorkWeek
		}
		var mask WorkWeekMask
		for _, d := range req.WorkWeekDays {
			mask |= 1 << uint(d)
		}
		c.WorkWeekMask = mask
	}
	if req.WorkStartTime != "" {
		if !validWorkTime(req.WorkStartTime) {
			return nil, companyerrors.ErrInvalidWorkTime
		}
		c.WorkStartTime = req.WorkStartTime
	}
	if req.WorkEndTime != "" {
		if !validWorkTime(req.WorkEndTime) {
			return nil, companyerrors.ErrInvalidWorkTime
		}
		c.WorkEndTime = req.WorkEndTime
	}
	if req.SLAHours != nil {
		c.SLAHours = *req.SLAHours
	}
	if req.NegativeBalanceAllowed != nil {
		c.NegativeBalanceAllowed = *req.NegativeBalanceAllowed
	}
	if req.LeaveYearStartMonth != nil {
		c.LeaveYearStartMonth = *req.LeaveYearStartMonth
	}
	if req.ProbationPeriodDays != nil {
		c.ProbationPeriodDays = *req.ProbationPeriodDays
	}
	if req.ProbationLeaveAllowed != nil {
		c.ProbationLeaveAllowed = *req.ProbationLeaveAllowed
	}

	if err := s.repo.Update(ctx, c); err != nil {
		s.logger.Error("update company settings failed",
			zap.String("company_id", companyID),
			zap.Error(err),
		)
		return nil, err
	}

	s.logger.Info("company settings updated", zap.String("company_id", companyID))
	return mapToResponse(c), nil
}

func (s *service) AddHoliday(ctx context.Context, companyID string, req CreateHolidayRequest) (*HolidayResponse, error) {
	uid, err := uuid.Parse(companyID)
	if err != nil {
		return nil, companyerrors.ErrInvalidCompanyID
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, companyerrors.ErrInvalidHolidayDate
	}

	h := &Holiday{
		ID:        uuid.New(),
		CompanyID: &uid,
		Date:      date,
		Name:      req.Name,
	}
	if err := s.repo.CreateHoliday(ctx, h); err != nil {
		return nil, err
	}

	s.logger.Info("holiday added",
		zap.String("company_id", companyID),
		zap.String("date", req.Date),
	)
	return mapHolidayToResponse(*h), nil
}

func (s *service) RemoveHoliday(ctx context.Context, companyID, holidayID string) error {
	return s.repo.DeleteHoliday(ctx, companyID, holidayID)
}

func (s *service) ListHolidays(ctx context.Context, companyID string, year int) ([]HolidayResponse, error) {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)

	holidays, err := s.repo.HolidaysInRange(ctx, companyID, start, end)
	if err != nil {
		return nil, err
	}

	resp := make([]HolidayResponse, len(holidays))
	for i, h := range holidays {
		resp[i] = *mapHolidayToResponse(h)
	}
	return resp, nil
}

func validWorkTime(v string) bool {
	_, err := time.Parse("15:04", v)
	return err == nil
}

func mapToResponse(c *Company) *CompanyResponse {
	return &CompanyResponse{
		ID:                     c.ID.String(),
		Name:                   c.Name,
		WorkWeekDays:           c.WorkWeekMask.Weekdays(),
		WorkStartTime:          c.WorkStartTime,
		WorkEndTime:            c.WorkEndTime,
		SLAHours:               c.SLAHours,
		NegativeBalanceAllowed: c.NegativeBalanceAllowed,
		LeaveYearStartMonth:    c.LeaveYearStartMonth,
		ProbationPeriodDays:    c.ProbationPeriodDays,
		ProbationLeaveAllowed:  c.ProbationLeaveAllowed,
		IsActive:               c.IsActive,
	}
}

func mapHolidayToResponse(h Holiday) *HolidayResponse {
	resp := &HolidayResponse{
		ID:   h.ID.String(),
		Date: h.Date.Format("2006-01-02"),
		Name: h.Name,
	}
	if h.CompanyID != nil {
		resp.CompanyID = h.CompanyID.String()
	}
	return resp
}
