package employee

type CreateEmployeeRequest struct {
	EmpID      string  `json:"emp_id"`
	FullName   string  `json:"full_name" binding:"required,max=150"`
	Email      string  `json:"email" binding:"required,email"`
	Department string  `json:"department" binding:"required,max=100"`
	Gender     *string `json:"gender" binding:"omitempty,oneof=male female other"`
	HireDate   string  `json:"hire_date" binding:"required"`
	ManagerID  *string `json:"manager_id" binding:"omitempty,uuid"`
	Role       string  `json:"role" binding:"omitempty,oneof=employee manager hr admin"`
	Status     string  `json:"status" binding:"omitempty,oneof=active probation on_notice inactive"`
}

type UpdateEmployeeRequest struct {
	FullName           string  `json:"full_name" binding:"omitempty,max=150"`
	Department         string  `json:"department" binding:"omitempty,max=100"`
	Gender             *string `json:"gender" binding:"omitempty,oneof=male female other"`
	ManagerID          *string `json:"manager_id" binding:"omitempty,uuid"`
	Role               string  `json:"role" binding:"omitempty,oneof=employee manager hr admin"`
	Status             string  `json:"status" binding:"omitempty,oneof=active probation on_notice inactive"`
	ProbationConfirmed *bool   `json:"probation_confirmed"`
}

type EmployeeResponse struct {
	ID                 string  `json:"id"`
	CompanyID          string  `json:"company_id"`
	EmpID              string  `json:"emp_id"`
	FullName           string  `json:"full_name"`
	Email              string  `json:"email"`
	Department         string  `json:"department"`
	Gender             *string `json:"gender,omitempty"`
	HireDate           string  `json:"hire_date"`
	ManagerID          *string `json:"manager_id,omitempty"`
	Role               string  `json:"role"`
	Status             string  `json:"status"`
	ProbationConfirmed bool    `json:"probation_confirmed"`
}
