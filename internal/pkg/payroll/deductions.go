package payroll

import "github.com/shopspring/decimal"

// Employer-side statutory rates. These are fixed by law, not by the yearly
// config (which only carries the employee-side percentages).
var (
	employerHealthPct       = ds("8.5")
	employerPensionPct      = ds("12")
	senaPct                 = ds("2")
	icbfPct                 = ds("3")
	compensationFundPct     = ds("4")
	transportAllowanceLimit = d(2) // eligible up to 2x minimum wage
)

// Solidarity fund: 1% base above 4x minimum wage, plus cumulative surcharges
// above each higher multiple.
var (
	solidarityBaseThreshold = d(4)
	solidarityBasePct       = ds("1")
	solidaritySurcharges    = []struct {
		Threshold decimal.Decimal
		Pct       decimal.Decimal
	}{
		{Threshold: d(16), Pct: ds("0.2")},
		{Threshold: d(17), Pct: ds("0.4")},
		{Threshold: d(18), Pct: ds("0.6")},
		{Threshold: d(19), Pct: ds("0.8")},
		{Threshold: d(20), Pct: ds("1.0")},
	}
)

// EmployerContributions is the informational employer-side breakdown. Never
// subtracted from employee pay; zero for contractors and temporaries.
type EmployerContributions struct {
	Health           decimal.Decimal `json:"health"`
	Pension          decimal.Decimal `json:"pension"`
	Sena             decimal.Decimal `json:"sena"`
	Icbf             decimal.Decimal `json:"icbf"`
	CompensationFund decimal.Decimal `json:"compensation_fund"`
	Total            decimal.Decimal `json:"total"`
}

// Deductions is the full monthly breakdown for one employee.
type Deductions struct {
	Health         decimal.Decimal       `json:"health"`
	Pension        decimal.Decimal       `json:"pension"`
	SolidarityFund decimal.Decimal       `json:"solidarity_fund"`
	Withholding    decimal.Decimal       `json:"withholding"`
	Total          decimal.Decimal       `json:"total"`
	Allowances     decimal.Decimal       `json:"allowances"`
	NetSalary      decimal.Decimal       `json:"net_salary"`
	Employer       EmployerContributions `json:"employer"`
	// ExceedsGross marks the (legal but suspicious) case where total
	// deductions exceed gross pay and net goes negative. The value is
	// returned as computed; flooring is the caller's call.
	ExceedsGross bool `json:"exceeds_gross"`
}

// CalculateDeductions computes the statutory monthly deductions and net pay
// for a gross salary under a contract type and yearly config.
//
// Ordering matters: health, pension and the solidarity fund reduce the
// withholding tax base, so withholding is computed last.
func CalculateDeductions(gross decimal.Decimal, ct ContractType, cfg Config) (Deductions, error) {
	if gross.IsNegative() {
		return Deductions{}, ErrNegativeSalary
	}
	if _, err := ParseContractType(string(ct)); err != nil {
		return Deductions{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Deductions{}, err
	}

	healthPct := cfg.HealthPercentage
	pensionPct := cfg.PensionPercentage
	if ct == ContractContractor {
		// Contractors absorb the employer share of both contributions.
		healthPct = healthPct.Add(employerHealthPct)
		pensionPct = pensionPct.Add(employerPensionPct)
	}

	out := Deductions{
		Health:  pct(gross, healthPct),
		Pension: pct(gross, pensionPct),
	}
	out.SolidarityFund = solidarityFund(gross, cfg.MinimumWage)

	taxBase := gross.Sub(out.Health).Sub(out.Pension).Sub(out.SolidarityFund)
	out.Withholding = withholdingTax(taxBase, cfg.UVTValue)

	out.Total = out.Health.Add(out.Pension).Add(out.SolidarityFund).Add(out.Withholding)
	out.Allowances = transportAllowance(gross, ct, cfg)
	out.NetSalary = gross.Add(out.Allowances).Sub(out.Total)
	out.ExceedsGross = out.NetSalary.IsNegative()

	if ct == ContractFullTime || ct == ContractPartTime {
		out.Employer = employerContributions(gross)
	}
	return out, nil
}

func employerContributions(gross decimal.Decimal) EmployerContributions {
	ec := EmployerContributions{
		Health:           pct(gross, employerHealthPct),
		Pension:          pct(gross, employerPensionPct),
		Sena:             pct(gross, senaPct),
		Icbf:             pct(gross, icbfPct),
		CompensationFund: pct(gross, compensationFundPct),
	}
	ec.Total = ec.Health.Add(ec.Pension).Add(ec.Sena).Add(ec.Icbf).Add(ec.CompensationFund)
	return ec
}

// solidarityFund applies the 1% base above 4x minimum wage plus every
// surcharge tier the salary multiple has crossed. The tiers are additive.
func solidarityFund(gross, minimumWage decimal.Decimal) decimal.Decimal {
	multiple := gross.Div(minimumWage)
	if !multiple.GreaterThan(solidarityBaseThreshold) {
		return decimal.Zero
	}
	rate := solidarityBasePct
	for _, tier := range solidaritySurcharges {
		if multiple.GreaterThan(tier.Threshold) {
			rate = rate.Add(tier.Pct)
		}
	}
	return pct(gross, rate)
}

// withholdingTax converts the base to UVT, selects the bracket and converts
// the marginal tax back to currency.
func withholdingTax(base, uvtValue decimal.Decimal) decimal.Decimal {
	if !base.IsPositive() {
		return decimal.Zero
	}
	uvt := base.Div(uvtValue)
	bracket := findWithholdingBracket(uvt)
	if bracket.Rate.IsZero() {
		return decimal.Zero
	}
	taxUVT := uvt.Sub(bracket.BaseUVT).Mul(bracket.Rate)
	return taxUVT.Mul(uvtValue).Round(2)
}

// transportAllowance is owed to salaried employees earning up to 2x minimum
// wage. Contractors invoice; they get no allowance.
func transportAllowance(gross decimal.Decimal, ct ContractType, cfg Config) decimal.Decimal {
	if ct == ContractContractor {
		return decimal.Zero
	}
	if gross.GreaterThan(cfg.MinimumWage.Mul(transportAllowanceLimit)) {
		return decimal.Zero
	}
	return cfg.TransportationAllowance
}

func pct(amount, percentage decimal.Decimal) decimal.Decimal {
	return amount.Mul(percentage).Div(d(100)).Round(2)
}
