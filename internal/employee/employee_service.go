package employee

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	employeeerrors "go-leave/internal/employee/errors"
	"go-leave/internal/shared/counter"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:generate mockgen -source=employee_service.go -destination=mock/employee_service_mock.go -package=mock
type Service interface {
	Create(ctx context.Context, companyID string, req CreateEmployeeRequest) (EmployeeResponse, error)
	GetAll(ctx context.Context, companyID string) ([]EmployeeResponse, error)
	GetByID(ctx context.Context, companyID, id string) (EmployeeResponse, error)
	Update(ctx context.Context, companyID, id string, req UpdateEmployeeRequest) (EmployeeResponse, error)
	Delete(ctx context.Context, companyID, id string) error
}

type service struct {
	repo    Repository
	counter counter.Repository
	logger  *zap.Logger
}

func NewService(repo Repository, counterRepo counter.Repository, logger ...*zap.Logger) Service {
	l := zap.L().Named("employee.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("employee.service")
	}
	return &service{repo: repo, counter: counterRepo, logger: l}
}

func (s *service) Create(ctx context.Context, companyID string, req CreateEmployeeRequest) (EmployeeResponse, error) {
	s.logger.Debug("create employee requested",
		zap.String("company_id", companyID),
		zap.String("email", req.Email),
		zap.String("department", req.Department),
	)

	companyUUID, err := uuid.Parse(companyID)
	if err != nil {
		return EmployeeResponse{}, employeeerrors.ErrInvalidCompanyID
	}

	hireDate, err := time.Parse("2006-01-02", req.HireDate)
	if err != nil {
		return EmployeeResponse{}, employeeerrors.ErrInvalidHireDate
	}

	var managerUUID *uuid.UUID
	if req.ManagerID != nil && *req.ManagerID != "" {
		if _, err := s.repo.FindByIDAndCompany(ctx, companyID, *req.ManagerID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return EmployeeResponse{}, employeeerrors.ErrManagerNotInCompany
			}
			return EmployeeResponse{}, err
		}
		id := uuid.MustParse(*req.ManagerID)
		managerUUID = &id
	}

	if req.EmpID == "" {
		nextVal, err := s.counter.GetNextValue(ctx, companyID, "employee_number")
		if err != nil {
			s.logger.Error("create employee generate number failed", zap.Error(err))
			return EmployeeResponse{}, err
		}
		req.EmpID = fmt.Sprintf("EMP-%06d", nextVal)
	}

	role := req.Role
	if role == "" {
		role = RoleEmployee
	}
	status := req.Status
	if status == "" {
		status = StatusProbation
	}

	e := &Employee{
		ID:         uuid.New(),
		CompanyID:  companyUUID,
		EmpID:      req.EmpID,
		FullName:   req.FullName,
		Email:      strings.ToLower(req.Email),
		Department: req.Department,
		Gender:     req.Gender,
		HireDate:   hireDate,
		ManagerID:  managerUUID,
		Role:       role,
		Status:     status,
	}

	if err := s.repo.Create(ctx, e); err != nil {
		s.logger.Error("create employee persist failed", zap.Error(err))
		return EmployeeResponse{}, mapRepositoryError(err)
	}

	s.logger.Info("employee created",
		zap.String("employee_id", e.ID.String()),
		zap.String("emp_id", e.EmpID),
		zap.String("company_id", companyID),
	)
	return mapToResponse(*e), nil
}

func (s *service) GetAll(ctx context.Context, companyID string) ([]EmployeeResponse, error) {
	employees, err := s.repo.FindAllByCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}
	resp := make([]EmployeeResponse, len(employees))
	for i, e := range employees {
		resp[i] = mapToResponse(e)
	}
	return resp, nil
}

func (s *service) GetByID(ctx context.Context, companyID, id string) (EmployeeResponse, error) {
	e, err := s.repo.FindByIDAndCompany(ctx, companyID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return EmployeeResponse{}, employeeerrors.ErrEmployeeNotFound
		}
		return EmployeeResponse{}, err
	}
	return mapToResponse(*e), nil
}

func (s *service) Update(ctx context.Context, companyID, id string, req UpdateEmployeeRequest) (EmployeeResponse, error) {
	e, err := s.repo.FindByIDAndCompany(ctx, companyID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return EmployeeResponse{}, employeeerrors.ErrEmployeeNotFound
		}
		return EmployeeResponse{}, err
	}

	if req.FullName != "" {
		e.FullName = req.FullName
	}
	if req.Department != "" {
		e.Department = req.Department
	}
	if req.Gender != nil {
		e.Gender = req.Gender
	}
	if req.ManagerID != nil {
		if *req.ManagerID == "" {
			e.ManagerID = nil
		} else {
			if *req.ManagerID == id {
				return EmployeeResponse{}, employeeerrors.ErrSelfManager
			}
			if _, err := s.repo.FindByIDAndCompany(ctx, companyID, *req.ManagerID); err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return EmployeeResponse{}, employeeerrors.ErrManagerNotInCompany
				}
				return EmployeeResponse{}, err
			}
			mid := uuid.MustParse(*req.ManagerID)
			e.ManagerID = &mid
		}
	}
	if req.Role != "" {
		e.Role = req.Role
	}
	if req.Status != "" {
		e.Status = req.Status
	}
	if req.ProbationConfirmed != nil {
		e.ProbationConfirmed = *req.ProbationConfirmed
	}

	if err := s.repo.Update(ctx, e); err != nil {
		s.logger.Error("update employee persist failed",
			zap.String("employee_id", id),
			zap.Error(err),
		)
		return EmployeeResponse{}, mapRepositoryError(err)
	}

	s.logger.Info("employee updated", zap.String("employee_id", id))
	return mapToResponse(*e), nil
}

func (s *service) Delete(ctx context.Context, companyID, id string) error {
	return s.repo.Delete(ctx, companyID, id)
}

// mapRepositoryError converts driver-level uniqueness violations into domain
// errors rather than leaking SQLSTATE details.
func mapRepositoryError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return employeeerrors.ErrDuplicateEmail
	}
	return err
}

func mapToResponse(e Employee) EmployeeResponse {
	resp := EmployeeResponse{
		ID:                 e.ID.String(),
		CompanyID:          e.CompanyID.String(),
		EmpID:              e.EmpID,
		FullName:           e.FullName,
		Email:              e.Email,
		Department:         e.Department,
		Gender:             e.Gender,
		HireDate:           e.HireDate.Format("2006-01-02"),
		Role:               e.Role,
		Status:             e.Status,
		ProbationConfirmed: e.ProbationConfirmed,
	}
	if e.ManagerID != nil {
		v := e.ManagerID.String()
		resp.ManagerID = &v
	}
	return resp
}
