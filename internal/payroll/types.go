package payroll

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// MaritalStatus affects the spouse relief in the PCB computation.
type MaritalStatus string

const (
	Single                  MaritalStatus = "single"
	Married                 MaritalStatus = "married"
	MarriedSpouseNotWorking MaritalStatus = "married_spouse_not_working"
)

// ParseMaritalStatus accepts the canonical names; empty input means Single.
func ParseMaritalStatus(s string) (MaritalStatus, error) {
	switch MaritalStatus(strings.ToLower(strings.TrimSpace(s))) {
	case "", Single:
		return Single, nil
	case Married:
		return Married, nil
	case MarriedSpouseNotWorking:
		return MarriedSpouseNotWorking, nil
	default:
		return "", fmt.Errorf("unknown marital status %q", s)
	}
}

// EmployeeProfile holds the personal attributes used by the breakdown.
type EmployeeProfile struct {
	Age           int           `json:"age"`
	MaritalStatus MaritalStatus `json:"marital_status"`
	ChildrenCount int           `json:"children_count"`
}

// DefaultProfile is a 30 year old single employee without children.
func DefaultProfile() EmployeeProfile {
	return EmployeeProfile{Age: 30, MaritalStatus: Single}
}

type EPFResult struct {
	GrossSalary          decimal.Decimal `json:"gross_salary"`
	Age                  int             `json:"age"`
	EmployeeRate         decimal.Decimal `json:"employee_rate"`
	EmployerRate         decimal.Decimal `json:"employer_rate"`
	EmployeeContribution decimal.Decimal `json:"employee_contribution"`
	EmployerContribution decimal.Decimal `json:"employer_contribution"`
	TotalContribution    decimal.Decimal `json:"total_contribution"`
	NetSalaryAfterEPF    decimal.Decimal `json:"net_salary_after_epf"`
}

type SOCSOResult struct {
	GrossSalary          decimal.Decimal `json:"gross_salary"`
	Age                  int             `json:"age"`
	Category             int             `json:"category"`
	CappedSalary         decimal.Decimal `json:"capped_salary"`
	EmployeeRate         decimal.Decimal `json:"employee_rate"`
	EmployerRate         decimal.Decimal `json:"employer_rate"`
	EmployeeContribution decimal.Decimal `json:"employee_contribution"`
	EmployerContribution decimal.Decimal `json:"employer_contribution"`
	TotalContribution    decimal.Decimal `json:"total_contribution"`
}

type EISResult struct {
	GrossSalary          decimal.Decimal `json:"gross_salary"`
	CappedSalary         decimal.Decimal `json:"capped_salary"`
	Rate                 decimal.Decimal `json:"rate"`
	EmployeeContribution decimal.Decimal `json:"employee_contribution"`
	EmployerContribution decimal.Decimal `json:"employer_contribution"`
	TotalContribution    decimal.Decimal `json:"total_contribution"`
}

// Reliefs itemizes the annual tax reliefs deducted before the brackets apply.
type Reliefs struct {
	Personal decimal.Decimal `json:"personal"`
	Spouse   decimal.Decimal `json:"spouse"`
	Children decimal.Decimal `json:"children"`
	EPF      decimal.Decimal `json:"epf"`
	SOCSO    decimal.Decimal `json:"socso"`
}

// Total sums all reliefs.
func (r Reliefs) Total() decimal.Decimal {
	return r.Personal.Add(r.Spouse).Add(r.Children).Add(r.EPF).Add(r.SOCSO)
}

type PCBResult struct {
	GrossSalary      decimal.Decimal `json:"gross_salary"`
	EPFDeduction     decimal.Decimal `json:"epf_deduction"`
	MaritalStatus    MaritalStatus   `json:"marital_status"`
	ChildrenCount    int             `json:"children_count"`
	AnnualGross      decimal.Decimal `json:"annual_gross"`
	Reliefs          Reliefs         `json:"reliefs"`
	TotalRelief      decimal.Decimal `json:"total_relief"`
	ChargeableIncome decimal.Decimal `json:"chargeable_income"`
	Brackets         []BracketTax    `json:"brackets"`
	AnnualTax        decimal.Decimal `json:"annual_tax"`
	Rebate           decimal.Decimal `json:"rebate"`
	NetAnnualTax     decimal.Decimal `json:"net_annual_tax"`
	MonthlyPCB       decimal.Decimal `json:"monthly_pcb"`
}

type ZakatResult struct {
	AnnualIncome     decimal.Decimal `json:"annual_income"`
	GoldPricePerGram decimal.Decimal `json:"gold_price_per_gram"`
	Nisab            decimal.Decimal `json:"nisab"`
	IsEligible       bool            `json:"is_eligible"`
	Rate             decimal.Decimal `json:"rate"`
	ZakatAmount      decimal.Decimal `json:"zakat_amount"`
}

// SalaryBreakdown aggregates every statutory deduction for one gross salary.
// NetSalary == GrossSalary - TotalDeductions holds exactly.
type SalaryBreakdown struct {
	GrossSalary     decimal.Decimal `json:"gross_salary"`
	Profile         EmployeeProfile `json:"profile"`
	EPF             EPFResult       `json:"epf"`
	SOCSO           SOCSOResult     `json:"socso"`
	EIS             EISResult       `json:"eis"`
	PCB             PCBResult       `json:"pcb"`
	TotalDeductions decimal.Decimal `json:"total_deductions"`
	NetSalary       decimal.Decimal `json:"net_salary"`
}
