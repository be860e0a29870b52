package employee_test

import (
	"context"
	"testing"

	"go-leave/internal/employee"
	employeeerrors "go-leave/internal/employee/errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

type fakeEmployeeRepo struct {
	createFn   func(ctx context.Context, e *employee.Employee) error
	findByIDFn func(ctx context.Context, companyID, id string) (*employee.Employee, error)
	updateFn   func(ctx context.Context, e *employee.Employee) error
}

func (f *fakeEmployeeRepo) Create(ctx context.Context, e *employee.Employee) error {
	if f.createFn != nil {
		return f.createFn(ctx, e)
	}
	return nil
}

func (f *fakeEmployeeRepo) FindAllByCompany(ctx context.Context, companyID string) ([]employee.Employee, error) {
	return nil, nil
}

func (f *fakeEmployeeRepo) FindByIDAndCompany(ctx context.Context, companyID, id string) (*employee.Employee, error) {
	if f.findByIDFn != nil {
		return f.findByIDFn(ctx, companyID, id)
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeEmployeeRepo) Update(ctx context.Context, e *employee.Employee) error {
	if f.updateFn != nil {
		return f.updateFn(ctx, e)
	}
	return nil
}

func (f *fakeEmployeeRepo) Delete(ctx context.Context, companyID, id string) error { return nil }

func (f *fakeEmployeeRepo) CountActiveInDepartment(ctx context.Context, companyID, department string) (int, error) {
	return 0, nil
}

type fakeCounterRepo struct {
	next int64
}

func (f *fakeCounterRepo) GetNextValue(ctx context.Context, companyID, counterType string) (int64, error) {
	f.next++
	return f.next, nil
}

func TestEmployeeService_Create(t *testing.T) {
	ctx := context.Background()
	companyID := uuid.New().String()

	t.Run("generates an employee number and defaults role and status", func(t *testing.T) {
		repo := &fakeEmployeeRepo{}
		var created *employee.Employee
		repo.createFn = func(ctx context.Context, e *employee.Employee) error {
			created = e
			return nil
		}

		svc := employee.NewService(repo, &fakeCounterRepo{})
		resp, err := svc.Create(ctx, companyID, employee.CreateEmployeeRequest{
			FullName:   "Ayu Lestari",
			Email:      "Ayu.Lestari@Example.com",
			Department: "engineering",
			HireDate:   "2025-11-03",
		})

		assert.NoError(t, err)
		assert.Equal(t, "EMP-000001", resp.EmpID)
		assert.Equal(t, employee.RoleEmployee, resp.Role)
		assert.Equal(t, employee.StatusProbation, resp.Status)
		assert.Equal(t, "ayu.lestari@example.com", created.Email)
	})

	t.Run("rejects a manager from another company", func(t *testing.T) {
		managerID := uuid.New().String()
		svc := employee.NewService(&fakeEmployeeRepo{}, &fakeCounterRepo{})

		_, err := svc.Create(ctx, companyID, employee.CreateEmployeeRequest{
			FullName:   "Ayu Lestari",
			Email:      "ayu@example.com",
			Department: "engineering",
			HireDate:   "2025-11-03",
			ManagerID:  &managerID,
		})

		assert.ErrorIs(t, err, employeeerrors.ErrManagerNotInCompany)
	})

	t.Run("maps unique violations to duplicate email", func(t *testing.T) {
		repo := &fakeEmployeeRepo{
			createFn: func(ctx context.Context, e *employee.Employee) error {
				return &pgconn.PgError{Code: "23505"}
			},
		}
		svc := employee.NewService(repo, &fakeCounterRepo{})

		_, err := svc.Create(ctx, companyID, employee.CreateEmployeeRequest{
			FullName:   "Ayu Lestari",
			Email:      "ayu@example.com",
			Department: "engineering",
			HireDate:   "2025-11-03",
		})

		assert.ErrorIs(t, err, employeeerrors.ErrDuplicateEmail)
	})

	t.Run("rejects an unparseable hire date", func(t *testing.T) {
		svc := employee.NewService(&fakeEmployeeRepo{}, &fakeCounterRepo{})

		_, err := svc.Create(ctx, companyID, employee.CreateEmployeeRequest{
			FullName:   "Ayu Lestari",
			Email:      "ayu@example.com",
			Department: "engineering",
			HireDate:   "03/11/2025",
		})

		assert.ErrorIs(t, err, employeeerrors.ErrInvalidHireDate)
	})
}

func TestEmployeeService_Update(t *testing.T) {
	ctx := context.Background()
	companyID := uuid.New().String()
	employeeID := uuid.New()

	existing := func() *employee.Employee {
		return &employee.Employee{
			ID:         employeeID,
			CompanyID:  uuid.MustParse(companyID),
			EmpID:      "EMP-000007",
			FullName:   "Ayu Lestari",
			Email:      "ayu@example.com",
			Department: "engineering",
			Role:       employee.RoleEmployee,
			Status:     employee.StatusProbation,
		}
	}

	t.Run("an employee cannot manage themselves", func(t *testing.T) {
		repo := &fakeEmployeeRepo{
			findByIDFn: func(ctx context.Context, cid, id string) (*employee.Employee, error) {
				return existing(), nil
			},
		}
		svc := employee.NewService(repo, &fakeCounterRepo{})

		self := employeeID.String()
		_, err := svc.Update(ctx, companyID, employeeID.String(), employee.UpdateEmployeeRequest{
			ManagerID: &self,
		})

		assert.ErrorIs(t, err, employeeerrors.ErrSelfManager)
	})

	t.Run("confirming probation flips the flag", func(t *testing.T) {
		repo := &fakeEmployeeRepo{
			findByIDFn: func(ctx context.Context, cid, id string) (*employee.Employee, error) {
				return existing(), nil
			},
		}
		svc := employee.NewService(repo, &fakeCounterRepo{})

		confirmed := true
		resp, err := svc.Update(ctx, companyID, employeeID.String(), employee.UpdateEmployeeRequest{
			Status:             employee.StatusActive,
			ProbationConfirmed: &confirmed,
		})

		assert.NoError(t, err)
		assert.True(t, resp.ProbationConfirmed)
		assert.Equal(t, employee.StatusActive, resp.Status)
	})

	t.Run("missing employee returns not found", func(t *testing.T) {
		svc := employee.NewService(&fakeEmployeeRepo{}, &fakeCounterRepo{})

		_, err := svc.Update(ctx, companyID, uuid.New().String(), employee.UpdateEmployeeRequest{
			FullName: "Renamed",
		})

		assert.ErrorIs(t, err, employeeerrors.ErrEmployeeNotFound)
	})
}
