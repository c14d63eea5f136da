package payroll

import "github.com/shopspring/decimal"

// displayPlaces is the precision of user-facing ringgit amounts.
const displayPlaces = 2

func round(d decimal.Decimal) decimal.Decimal {
	return d.Round(displayPlaces)
}

// Rounded returns a copy with every amount rounded half-up to sen. Rates are
// left untouched.
func (r EPFResult) Rounded() EPFResult {
	r.GrossSalary = round(r.GrossSalary)
	r.EmployeeContribution = round(r.EmployeeContribution)
	r.EmployerContribution = round(r.EmployerContribution)
	r.TotalContribution = round(r.TotalContribution)
	r.NetSalaryAfterEPF = round(r.NetSalaryAfterEPF)
	return r
}

func (r SOCSOResult) Rounded() SOCSOResult {
	r.GrossSalary = round(r.GrossSalary)
	r.CappedSalary = round(r.CappedSalary)
	r.EmployeeContribution = round(r.EmployeeContribution)
	r.EmployerContribution = round(r.EmployerContribution)
	r.TotalContribution = round(r.TotalContribution)
	return r
}

func (r EISResult) Rounded() EISResult {
	r.GrossSalary = round(r.GrossSalary)
	r.CappedSalary = round(r.CappedSalary)
	r.EmployeeContribution = round(r.EmployeeContribution)
	r.EmployerContribution = round(r.EmployerContribution)
	r.TotalContribution = round(r.TotalContribution)
	return r
}

func (r PCBResult) Rounded() PCBResult {
	r.GrossSalary = round(r.GrossSalary)
	r.EPFDeduction = round(r.EPFDeduction)
	r.AnnualGross = round(r.AnnualGross)
	r.Reliefs = Reliefs{
		Personal: round(r.Reliefs.Personal),
		Spouse:   round(r.Reliefs.Spouse),
		Children: round(r.Reliefs.Children),
		EPF:      round(r.Reliefs.EPF),
		SOCSO:    round(r.Reliefs.SOCSO),
	}
	r.TotalRelief = round(r.TotalRelief)
	r.ChargeableIncome = round(r.ChargeableIncome)
	lines := make([]BracketTax, len(r.Brackets))
	for i, l := range r.Brackets {
		l.Taxable = round(l.Taxable)
		l.Tax = round(l.Tax)
		lines[i] = l
	}
	r.Brackets = lines
	r.AnnualTax = round(r.AnnualTax)
	r.Rebate = round(r.Rebate)
	r.NetAnnualTax = round(r.NetAnnualTax)
	r.MonthlyPCB = round(r.MonthlyPCB)
	return r
}

func (r ZakatResult) Rounded() ZakatResult {
	r.AnnualIncome = round(r.AnnualIncome)
	r.GoldPricePerGram = round(r.GoldPricePerGram)
	r.Nisab = round(r.Nisab)
	r.ZakatAmount = round(r.ZakatAmount)
	return r
}

// Rounded rounds every component for display. The net salary is derived
// from the rounded deductions so the displayed figures still add up.
func (b SalaryBreakdown) Rounded() SalaryBreakdown {
	b.GrossSalary = round(b.GrossSalary)
	b.EPF = b.EPF.Rounded()
	b.SOCSO = b.SOCSO.Rounded()
	b.EIS = b.EIS.Rounded()
	b.PCB = b.PCB.Rounded()
	b.TotalDeductions = b.EPF.EmployeeContribution.
		Add(b.SOCSO.EmployeeContribution).
		Add(b.EIS.EmployeeContribution).
		Add(b.PCB.MonthlyPCB)
	b.NetSalary = b.GrossSalary.Sub(b.TotalDeductions)
	return b
}
