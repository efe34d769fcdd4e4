package core

import "github.com/shopspring/decimal"

// SummaryReport holds the figures carried by a summary entry. Payroll and
// Vendors are fixed mock figures; QuarterYield is derived from the treasury.
type SummaryReport struct {
	Payroll         decimal.Decimal `json:"payroll"`
	Vendors         decimal.Decimal `json:"vendors"`
	QuarterYield    decimal.Decimal `json:"quarter_yield"`
	TreasuryBalance decimal.Decimal `json:"treasury_balance"`
	YieldRate       decimal.Decimal `json:"yield_rate"`
	EmployeeCount   int             `json:"employee_count"`
}

// QuarterYield estimates one quarter of interest on balance at an annual rate.
func QuarterYield(balance, annualRate decimal.Decimal) decimal.Decimal {
	return balance.Mul(annualRate).Div(decimal.NewFromInt(4)).Round(2)
}

// Equal reports whether two reports carry the same figures.
func (r SummaryReport) Equal(o SummaryReport) bool {
	return r.Payroll.Equal(o.Payroll) &&
		r.Vendors.Equal(o.Vendors) &&
		r.QuarterYield.Equal(o.QuarterYield) &&
		r.TreasuryBalance.Equal(o.TreasuryBalance) &&
		r.YieldRate.Equal(o.YieldRate) &&
		r.EmployeeCount == o.EmployeeCount
}

func (r SummaryReport) String() string {
	return "Summary: payroll " + FormatUSD(r.Payroll) +
		", vendors " + FormatUSD(r.Vendors) +
		", est. quarter yield " + FormatUSD(r.QuarterYield)
}
