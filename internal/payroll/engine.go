// Package payroll computes Malaysian statutory payroll deductions (EPF,
// SOCSO, EIS, PCB) and Zakat for a monthly gross salary.
//
// Every calculation is a pure function of its arguments. Inputs are not
// validated: negative salaries or ages produce arithmetically consistent but
// meaningless results, and callers are expected to reject them first.
// Results keep full decimal precision; round with Rounded for display.
package payroll

import "github.com/shopspring/decimal"

var (
	wageCeiling  = decimal.NewFromInt(5000)
	monthsInYear = decimal.NewFromInt(12)

	epfEmployeeRate     = decimal.RequireFromString("0.11")
	epfEmployerRate     = decimal.RequireFromString("0.12")
	epfEmployerHighRate = decimal.RequireFromString("0.13")

	socsoCat1EmployeeRate = decimal.RequireFromString("0.005")
	socsoCat1EmployerRate = decimal.RequireFromString("0.0175")
	socsoCat2EmployerRate = decimal.RequireFromString("0.0125")

	eisRate = decimal.RequireFromString("0.002")

	personalRelief  = decimal.NewFromInt(9000)
	spouseRelief    = decimal.NewFromInt(4000)
	childRelief     = decimal.NewFromInt(2000)
	epfReliefCap    = decimal.NewFromInt(4000)
	socsoReliefRate = decimal.RequireFromString("0.005")
	socsoReliefCap  = decimal.NewFromInt(350)
	rebateAmount    = decimal.NewFromInt(400)
	rebateThreshold = decimal.NewFromInt(35000)

	nisabGoldGrams          = decimal.NewFromInt(85)
	zakatRate               = decimal.RequireFromString("0.025")
	DefaultGoldPricePerGram = decimal.NewFromInt(280)
)

const (
	epfEmployeeMaxAge = 60 // employee share stops above this age
	socsoCat2Age      = 60 // category 2 from this age on
)

// Engine computes statutory deductions. The zero value is ready to use.
type Engine struct {
	// GoldPricePerGram is used for the Zakat nisab when the caller does not
	// supply a price. Zero means DefaultGoldPricePerGram.
	GoldPricePerGram decimal.Decimal

	// Brackets overrides the income tax schedule. Nil means Brackets2024.
	Brackets []TaxBracket
}

// NewEngine returns an engine using the given default gold price.
func NewEngine(goldPricePerGram decimal.Decimal) Engine {
	return Engine{GoldPricePerGram: goldPricePerGram}
}

func (e Engine) goldPrice() decimal.Decimal {
	if e.GoldPricePerGram.IsPositive() {
		return e.GoldPricePerGram
	}
	return DefaultGoldPricePerGram
}

func (e Engine) brackets() []TaxBracket {
	if len(e.Brackets) > 0 {
		return e.Brackets
	}
	return Brackets2024()
}

// CalculateEPF computes employee and employer EPF contributions.
// Employees above 60 contribute nothing; employers pay 13% when the salary
// is strictly above 5000 and 12% otherwise.
func (e Engine) CalculateEPF(grossSalary decimal.Decimal, age int) EPFResult {
	employeeRate := epfEmployeeRate
	if age > epfEmployeeMaxAge {
		employeeRate = decimal.Zero
	}
	employerRate := epfEmployerRate
	if grossSalary.GreaterThan(wageCeiling) {
		employerRate = epfEmployerHighRate
	}

	employee := grossSalary.Mul(employeeRate)
	employer := grossSalary.Mul(employerRate)

	return EPFResult{
		GrossSalary:          grossSalary,
		Age:                  age,
		EmployeeRate:         employeeRate,
		EmployerRate:         employerRate,
		EmployeeContribution: employee,
		EmployerContribution: employer,
		TotalContribution:    employee.Add(employer),
		NetSalaryAfterEPF:    grossSalary.Sub(employee),
	}
}

// CalculateSOCSO computes SOCSO contributions on a wage base capped at 5000.
func (e Engine) CalculateSOCSO(grossSalary decimal.Decimal, age int) SOCSOResult {
	category := 1
	employeeRate := socsoCat1EmployeeRate
	employerRate := socsoCat1EmployerRate
	if age >= socsoCat2Age {
		category = 2
		employeeRate = decimal.Zero
		employerRate = socsoCat2EmployerRate
	}

	capped := decimal.Min(grossSalary, wageCeiling)
	employee := capped.Mul(employeeRate)
	employer := capped.Mul(employerRate)

	return SOCSOResult{
		GrossSalary:          grossSalary,
		Age:                  age,
		Category:             category,
		CappedSalary:         capped,
		EmployeeRate:         employeeRate,
		EmployerRate:         employerRate,
		EmployeeContribution: employee,
		EmployerContribution: employer,
		TotalContribution:    employee.Add(employer),
	}
}

// CalculateEIS computes the 0.2% EIS contribution for both parties on a
// wage base capped at 5000.
func (e Engine) CalculateEIS(grossSalary decimal.Decimal) EISResult {
	capped := decimal.Min(grossSalary, wageCeiling)
	contribution := capped.Mul(eisRate)

	return EISResult{
		GrossSalary:          grossSalary,
		CappedSalary:         capped,
		Rate:                 eisRate,
		EmployeeContribution: contribution,
		EmployerContribution: contribution,
		TotalContribution:    contribution.Add(contribution),
	}
}

// CalculatePCB computes the monthly tax deduction from the annualized gross
// salary, statutory reliefs, the progressive brackets and the 400 rebate for
// chargeable income up to 35000.
func (e Engine) CalculatePCB(grossSalary, epfDeduction decimal.Decimal, status MaritalStatus, childrenCount int) PCBResult {
	annualGross := grossSalary.Mul(monthsInYear)

	reliefs := Reliefs{
		Personal: personalRelief,
		Spouse:   decimal.Zero,
		Children: childRelief.Mul(decimal.NewFromInt(int64(childrenCount))),
		EPF:      decimal.Min(epfDeduction.Mul(monthsInYear), epfReliefCap),
		SOCSO:    decimal.Min(grossSalary.Mul(socsoReliefRate).Mul(monthsInYear), socsoReliefCap),
	}
	if status == MarriedSpouseNotWorking {
		reliefs.Spouse = spouseRelief
	}
	totalRelief := reliefs.Total()

	chargeable := decimal.Max(decimal.Zero, annualGross.Sub(totalRelief))
	annualTax, lines := ProgressiveTax(chargeable, e.brackets())

	rebate := decimal.Zero
	if chargeable.LessThanOrEqual(rebateThreshold) {
		rebate = rebateAmount
	}
	netAnnualTax := decimal.Max(decimal.Zero, annualTax.Sub(rebate))

	return PCBResult{
		GrossSalary:      grossSalary,
		EPFDeduction:     epfDeduction,
		MaritalStatus:    status,
		ChildrenCount:    childrenCount,
		AnnualGross:      annualGross,
		Reliefs:          reliefs,
		TotalRelief:      totalRelief,
		ChargeableIncome: chargeable,
		Brackets:         lines,
		AnnualTax:        annualTax,
		Rebate:           rebate,
		NetAnnualTax:     netAnnualTax,
		MonthlyPCB:       netAnnualTax.Div(monthsInYear),
	}
}

// CalculateZakat checks annual income against the nisab (85g of gold) and
// charges 2.5% when it is reached. A non-positive gold price selects the
// engine default.
func (e Engine) CalculateZakat(annualIncome, goldPricePerGram decimal.Decimal) ZakatResult {
	if !goldPricePerGram.IsPositive() {
		goldPricePerGram = e.goldPrice()
	}
	nisab := nisabGoldGrams.Mul(goldPricePerGram)
	eligible := annualIncome.GreaterThanOrEqual(nisab)

	amount := decimal.Zero
	if eligible {
		amount = annualIncome.Mul(zakatRate)
	}

	return ZakatResult{
		AnnualIncome:     annualIncome,
		GoldPricePerGram: goldPricePerGram,
		Nisab:            nisab,
		IsEligible:       eligible,
		Rate:             zakatRate,
		ZakatAmount:      amount,
	}
}

// CalculateSalaryBreakdown runs EPF, SOCSO, EIS and PCB (fed with the EPF
// employee share) and derives total deductions and net salary.
func (e Engine) CalculateSalaryBreakdown(grossSalary decimal.Decimal, profile EmployeeProfile) SalaryBreakdown {
	if profile.MaritalStatus == "" {
		profile.MaritalStatus = Single
	}

	epf := e.CalculateEPF(grossSalary, profile.Age)
	socso := e.CalculateSOCSO(grossSalary, profile.Age)
	eis := e.CalculateEIS(grossSalary)
	pcb := e.CalculatePCB(grossSalary, epf.EmployeeContribution, profile.MaritalStatus, profile.ChildrenCount)

	total := epf.EmployeeContribution.
		Add(socso.EmployeeContribution).
		Add(eis.EmployeeContribution).
		Add(pcb.MonthlyPCB)

	return SalaryBreakdown{
		GrossSalary:     grossSalary,
		Profile:         profile,
		EPF:             epf,
		SOCSO:           socso,
		EIS:             eis,
		PCB:             pcb,
		TotalDeductions: total,
		NetSalary:       grossSalary.Sub(total),
	}
}
