package payroll

import "github.com/shopspring/decimal"

// withholdingBracket is one row of the monthly withholding table. A salary in
// UVT belongs to the bracket where uvt > Floor && uvt <= Ceiling; the tax is
// (uvt - BaseUVT) * Rate, converted back to currency.
type withholdingBracket struct {
	Floor   decimal.Decimal
	Ceiling decimal.Decimal // zero value means no upper bound
	Rate    decimal.Decimal // marginal rate as a fraction, e.g. 0.19
	BaseUVT decimal.Decimal
}

var withholdingBrackets = []withholdingBracket{
	{Floor: d(0), Ceiling: d(95), Rate: d(0), BaseUVT: d(0)},
	{Floor: d(95), Ceiling: d(150), Rate: ds("0.19"), BaseUVT: d(95)},
	{Floor: d(150), Ceiling: d(360), Rate: ds("0.28"), BaseUVT: d(150)},
	{Floor: d(360), Ceiling: d(640), Rate: ds("0.33"), BaseUVT: d(360)},
	{Floor: d(640), Ceiling: d(945), Rate: ds("0.35"), BaseUVT: d(640)},
	{Floor: d(945), Ceiling: d(2300), Rate: ds("0.37"), BaseUVT: d(945)},
	{Floor: d(2300), Ceiling: decimal.Decimal{}, Rate: ds("0.39"), BaseUVT: d(2300)},
}

// findWithholdingBracket selects the unique bracket containing the given UVT
// amount. Boundaries belong to the lower bracket (selection is > floor and
// <= ceiling).
func findWithholdingBracket(uvt decimal.Decimal) withholdingBracket {
	for _, b := range withholdingBrackets {
		if b.Ceiling.IsZero() && !b.Floor.IsZero() {
			if uvt.GreaterThan(b.Floor) {
				return b
			}
			continue
		}
		if uvt.GreaterThan(b.Floor) && uvt.LessThanOrEqual(b.Ceiling) {
			return b
		}
	}
	// uvt <= 0 falls through; treat as the zero-rate bracket.
	return withholdingBrackets[0]
}

func d(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func ds(v string) decimal.Decimal {
	out, err := decimal.NewFromString(v)
	if err != nil {
		panic(err)
	}
	return out
}
