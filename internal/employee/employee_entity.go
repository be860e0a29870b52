package employee

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	StatusActive    = "active"
	StatusProbation = "probation"
	StatusOnNotice  = "on_notice"
	StatusInactive  = "inactive"
)

const (
	RoleEmployee = "employee"
	RoleManager  = "manager"
	RoleHR       = "hr"
	RoleAdmin    = "admin"
)

type Employee struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CompanyID uuid.UUID `gorm:"type:uuid;not null;index"`

	EmpID    string `gorm:"type:varchar(20);not null;uniqueIndex:idx_employees_company_emp_id,composite:company_id"`
	FullName string `gorm:"type:varchar(150);not null"`
	Email    string `gorm:"type:varchar(255);uniqueIndex"`

	Department string  `gorm:"type:varchar(100);not null;index"`
	Gender     *string `gorm:"type:varchar(10)"`
	HireDate   time.Time

	ManagerID *uuid.UUID `gorm:"type:uuid;index"`
	Role      string     `gorm:"type:varchar(20);not null;default:'employee'"`
	Status    string     `gorm:"type:varchar(20);not null;default:'active'"`

	ProbationConfirmed bool `gorm:"not null;default:false"`

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

func (Employee) TableName() string {
	return "employees"
}
