package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Contract types. The payroll engine branches on these; parsing happens at
// the boundary so the engine only ever sees a valid value.
const (
	ContractTypeFullTime   = "FULL_TIME"
	ContractTypePartTime   = "PART_TIME"
	ContractTypeContractor = "CONTRACTOR"
	ContractTypeTemporary  = "TEMPORARY"
)

// Employee holds the salary facts the deduction engine consumes. Everything
// else about an employee lives in the HR surface and is out of scope here.
type Employee struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	CompanyID    string          `gorm:"type:varchar(64);not null;index" json:"company_id"`
	FullName     string          `gorm:"type:varchar(200);not null" json:"full_name"`
	Email        string          `gorm:"type:varchar(200);default:''" json:"email"`
	BaseSalary   decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"base_salary"`
	ContractType string          `gorm:"type:varchar(20);not null;default:'FULL_TIME'" json:"contract_type"`
	Active       bool            `gorm:"default:true;index" json:"active"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}
