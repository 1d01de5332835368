package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PayrollConfig carries the statutory values for one company and one year.
// Once a payroll calculation references it the row is locked; a new year
// requires a new row.
type PayrollConfig struct {
	ID                            uint            `gorm:"primaryKey" json:"id"`
	CompanyID                     string          `gorm:"type:varchar(64);not null;index:ux_payroll_configs_company_year,unique,priority:1" json:"company_id"`
	Year                          int             `gorm:"not null;index:ux_payroll_configs_company_year,unique,priority:2" json:"year"`
	MinimumWage                   decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"minimum_wage"`
	TransportationAllowance       decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"transportation_allowance"`
	HealthContributionPercentage  decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"health_contribution_percentage"`
	PensionContributionPercentage decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"pension_contribution_percentage"`
	SolidarityFundThreshold       decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"solidarity_fund_threshold"`
	UVTValue                      decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"uvt_value"`
	LockedAt                      *time.Time      `gorm:"type:timestamp;default:null" json:"locked_at,omitempty"`
	CreatedAt                     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt                     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsLocked reports whether a payroll period already references this config.
func (c *PayrollConfig) IsLocked() bool {
	return c.LockedAt != nil
}
