package payroll

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/andsoler0309/HR-app-sub001/app/models"
)

// Config carries the statutory values for one year. Percentages are stored
// as whole numbers (4 means 4%).
type Config struct {
	MinimumWage             decimal.Decimal
	TransportationAllowance decimal.Decimal
	HealthPercentage        decimal.Decimal
	PensionPercentage       decimal.Decimal
	UVTValue                decimal.Decimal
}

var (
	ErrNegativeSalary     = errors.New("gross salary must not be negative")
	ErrInvalidMinimumWage = errors.New("minimum wage must be positive")
	ErrInvalidUVT         = errors.New("UVT value must be positive")
)

// ConfigFromModel maps a persisted yearly config row to engine input.
func ConfigFromModel(m *models.PayrollConfig) Config {
	return Config{
		MinimumWage:             m.MinimumWage,
		TransportationAllowance: m.TransportationAllowance,
		HealthPercentage:        m.HealthContributionPercentage,
		PensionPercentage:       m.PensionContributionPercentage,
		UVTValue:                m.UVTValue,
	}
}

// Validate rejects configs the engine cannot compute with.
func (c Config) Validate() error {
	if !c.MinimumWage.IsPositive() {
		return ErrInvalidMinimumWage
	}
	if !c.UVTValue.IsPositive() {
		return ErrInvalidUVT
	}
	return nil
}
