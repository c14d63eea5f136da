package payroll

import (
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, name string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(dec(want)) {
		t.Errorf("%s = %s, want %s", name, got, want)
	}
}

func TestCalculateEPF(t *testing.T) {
	engine := Engine{}
	tests := []struct {
		name         string
		gross        string
		age          int
		employeeRate string
		employerRate string
		employee     string
		employer     string
	}{
		{"standard", "3000", 30, "0.11", "0.12", "330", "360"},
		{"employer rate at exactly 5000", "5000", 30, "0.11", "0.12", "550", "600"},
		{"employer rate above 5000", "5000.01", 30, "0.11", "0.13", "550.0011", "650.0013"},
		{"age 60 still contributes", "4000", 60, "0.11", "0.12", "440", "480"},
		{"above 60 no employee share", "4000", 61, "0", "0.12", "0", "480"},
		{"zero salary", "0", 30, "0.11", "0.12", "0", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := engine.CalculateEPF(dec(tt.gross), tt.age)
			assertDecimal(t, "EmployeeRate", got.EmployeeRate, tt.employeeRate)
			assertDecimal(t, "EmployerRate", got.EmployerRate, tt.employerRate)
			assertDecimal(t, "EmployeeContribution", got.EmployeeContribution, tt.employee)
			assertDecimal(t, "EmployerContribution", got.EmployerContribution, tt.employer)
			if !got.TotalContribution.Equal(got.EmployeeContribution.Add(got.EmployerContribution)) {
				t.Errorf("TotalContribution = %s, not the sum of shares", got.TotalContribution)
			}
			if !got.NetSalaryAfterEPF.Equal(dec(tt.gross).Sub(got.EmployeeContribution)) {
				t.Errorf("NetSalaryAfterEPF = %s", got.NetSalaryAfterEPF)
			}
			if got.Age != tt.age || !got.GrossSalary.Equal(dec(tt.gross)) {
				t.Errorf("inputs not carried through: %+v", got)
			}
		})
	}
}

func TestCalculateSOCSO(t *testing.T) {
	engine := Engine{}
	tests := []struct {
		name     string
		gross    string
		age      int
		category int
		capped   string
		employee string
		employer string
	}{
		{"category 1", "3000", 30, 1, "3000", "15", "52.5"},
		{"capped at 5000", "10000", 30, 1, "5000", "25", "87.5"},
		{"category 2 at 60", "3000", 60, 2, "3000", "0", "37.5"},
		{"category 2 capped", "8000", 65, 2, "5000", "0", "62.5"},
		{"age 59 is category 1", "2000", 59, 1, "2000", "10", "35"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := engine.CalculateSOCSO(dec(tt.gross), tt.age)
			if got.Category != tt.category {
				t.Errorf("Category = %d, want %d", got.Category, tt.category)
			}
			assertDecimal(t, "CappedSalary", got.CappedSalary, tt.capped)
			assertDecimal(t, "EmployeeContribution", got.EmployeeContribution, tt.employee)
			assertDecimal(t, "EmployerContribution", got.EmployerContribution, tt.employer)
		})
	}
}

func TestCalculateEIS(t *testing.T) {
	engine := Engine{}
	tests := []struct {
		gross  string
		capped string
		share  string
	}{
		{"3000", "3000", "6"},
		{"5000", "5000", "10"},
		{"10000", "5000", "10"},
	}

	for _, tt := range tests {
		t.Run(tt.gross, func(t *testing.T) {
			got := engine.CalculateEIS(dec(tt.gross))
			assertDecimal(t, "CappedSalary", got.CappedSalary, tt.capped)
			assertDecimal(t, "EmployeeContribution", got.EmployeeContribution, tt.share)
			assertDecimal(t, "EmployerContribution", got.EmployerContribution, tt.share)
			assertDecimal(t, "TotalContribution", got.TotalContribution, dec(tt.share).Mul(decimal.NewFromInt(2)).String())
		})
	}
}

func TestCalculatePCB_HighIncome(t *testing.T) {
	got := Engine{}.CalculatePCB(dec("10000"), dec("1100"), Single, 0)

	assertDecimal(t, "AnnualGross", got.AnnualGross, "120000")
	assertDecimal(t, "Reliefs.EPF", got.Reliefs.EPF, "4000")
	assertDecimal(t, "Reliefs.SOCSO", got.Reliefs.SOCSO, "350")
	assertDecimal(t, "TotalRelief", got.TotalRelief, "13350")
	assertDecimal(t, "ChargeableIncome", got.ChargeableIncome, "106650")
	assertDecimal(t, "AnnualTax", got.AnnualTax, "11062.25")
	assertDecimal(t, "Rebate", got.Rebate, "0")
	assertDecimal(t, "NetAnnualTax", got.NetAnnualTax, "11062.25")
	assertDecimal(t, "MonthlyPCB rounded", got.MonthlyPCB.Round(2), "921.85")

	if len(got.Brackets) != 7 {
		t.Fatalf("expected 7 bracket lines, got %d", len(got.Brackets))
	}
	assertDecimal(t, "last bracket taxable", got.Brackets[6].Taxable, "6649")
}

func TestCalculatePCB_Reliefs(t *testing.T) {
	engine := Engine{}

	t.Run("spouse relief only when spouse not working", func(t *testing.T) {
		married := engine.CalculatePCB(dec("6000"), dec("660"), Married, 0)
		notWorking := engine.CalculatePCB(dec("6000"), dec("660"), MarriedSpouseNotWorking, 0)
		assertDecimal(t, "married spouse relief", married.Reliefs.Spouse, "0")
		assertDecimal(t, "not working spouse relief", notWorking.Reliefs.Spouse, "4000")
		assertDecimal(t, "relief difference", notWorking.TotalRelief.Sub(married.TotalRelief), "4000")
	})

	t.Run("children relief", func(t *testing.T) {
		got := engine.CalculatePCB(dec("6000"), dec("660"), Single, 3)
		assertDecimal(t, "Children", got.Reliefs.Children, "6000")
	})

	t.Run("uncapped EPF and SOCSO reliefs", func(t *testing.T) {
		got := engine.CalculatePCB(dec("2000"), dec("220"), Single, 0)
		assertDecimal(t, "EPF", got.Reliefs.EPF, "2640")
		assertDecimal(t, "SOCSO", got.Reliefs.SOCSO, "120")
	})

	t.Run("chargeable income floors at zero", func(t *testing.T) {
		got := engine.CalculatePCB(dec("500"), dec("55"), Single, 2)
		assertDecimal(t, "ChargeableIncome", got.ChargeableIncome, "0")
		assertDecimal(t, "AnnualTax", got.AnnualTax, "0")
		assertDecimal(t, "Rebate", got.Rebate, "400")
		assertDecimal(t, "NetAnnualTax", got.NetAnnualTax, "0")
		assertDecimal(t, "MonthlyPCB", got.MonthlyPCB, "0")
		if len(got.Brackets) != 0 {
			t.Errorf("expected no bracket lines, got %d", len(got.Brackets))
		}
	})
}

func TestCalculatePCB_RebateBoundary(t *testing.T) {
	engine := Engine{}
	// 5862.50 * 12 = 70350; reliefs 9000 + 11 children * 2000 + 350 SOCSO
	// leave 35000 after a full 4000 EPF relief.
	atThreshold := engine.CalculatePCB(dec("5862.50"), dec("500"), Single, 11)
	assertDecimal(t, "ChargeableIncome", atThreshold.ChargeableIncome, "35000")
	assertDecimal(t, "Rebate", atThreshold.Rebate, "400")
	assertDecimal(t, "AnnualTax", atThreshold.AnnualTax, "599.97")
	assertDecimal(t, "NetAnnualTax", atThreshold.NetAnnualTax, "199.97")

	// 333.3325 * 12 = 3999.99 of EPF relief pushes chargeable income one sen over.
	overThreshold := engine.CalculatePCB(dec("5862.50"), dec("333.3325"), Single, 11)
	assertDecimal(t, "ChargeableIncome", overThreshold.ChargeableIncome, "35000.01")
	assertDecimal(t, "Rebate", overThreshold.Rebate, "0")
	assertDecimal(t, "NetAnnualTax", overThreshold.NetAnnualTax, overThreshold.AnnualTax.String())
}

func TestCalculateZakat(t *testing.T) {
	engine := Engine{}

	t.Run("default gold price", func(t *testing.T) {
		got := engine.CalculateZakat(dec("60000"), decimal.Zero)
		assertDecimal(t, "GoldPricePerGram", got.GoldPricePerGram, "280")
		assertDecimal(t, "Nisab", got.Nisab, "23800")
		if !got.IsEligible {
			t.Fatal("expected eligible")
		}
		assertDecimal(t, "ZakatAmount", got.ZakatAmount, "1500")
	})

	t.Run("income equal to nisab is eligible", func(t *testing.T) {
		got := engine.CalculateZakat(dec("23800"), dec("280"))
		if !got.IsEligible {
			t.Fatal("expected eligible at nisab")
		}
		assertDecimal(t, "ZakatAmount", got.ZakatAmount, "595")
	})

	t.Run("one sen below nisab", func(t *testing.T) {
		got := engine.CalculateZakat(dec("23799.99"), dec("280"))
		if got.IsEligible {
			t.Fatal("expected not eligible below nisab")
		}
		assertDecimal(t, "ZakatAmount", got.ZakatAmount, "0")
	})

	t.Run("engine default gold price", func(t *testing.T) {
		got := NewEngine(dec("400")).CalculateZakat(dec("30000"), decimal.Zero)
		assertDecimal(t, "Nisab", got.Nisab, "34000")
		if got.IsEligible {
			t.Fatal("expected not eligible with higher gold price")
		}
	})
}

func TestCalculateSalaryBreakdown(t *testing.T) {
	got := Engine{}.CalculateSalaryBreakdown(dec("10000"), DefaultProfile())

	assertDecimal(t, "EPF employee", got.EPF.EmployeeContribution, "1100")
	assertDecimal(t, "SOCSO employee", got.SOCSO.EmployeeContribution, "25")
	assertDecimal(t, "EIS employee", got.EIS.EmployeeContribution, "10")
	assertDecimal(t, "PCB EPF input", got.PCB.EPFDeduction, "1100")
	assertDecimal(t, "TotalDeductions rounded", got.TotalDeductions.Round(2), "2056.85")
	assertDecimal(t, "NetSalary rounded", got.NetSalary.Round(2), "7943.15")
}

func TestSalaryBreakdownInvariant(t *testing.T) {
	engine := Engine{}
	profiles := []EmployeeProfile{
		DefaultProfile(),
		{Age: 45, MaritalStatus: MarriedSpouseNotWorking, ChildrenCount: 3},
		{Age: 62, MaritalStatus: Married, ChildrenCount: 1},
	}
	salaries := []string{"0", "1500", "3333.33", "5000", "5000.01", "12000", "45000", "250000"}

	for _, p := range profiles {
		for _, s := range salaries {
			b := engine.CalculateSalaryBreakdown(dec(s), p)
			sum := b.EPF.EmployeeContribution.
				Add(b.SOCSO.EmployeeContribution).
				Add(b.EIS.EmployeeContribution).
				Add(b.PCB.MonthlyPCB)
			if !b.TotalDeductions.Equal(sum) {
				t.Errorf("%s %+v: TotalDeductions %s != %s", s, p, b.TotalDeductions, sum)
			}
			if !b.NetSalary.Add(b.TotalDeductions).Equal(b.GrossSalary) {
				t.Errorf("%s %+v: net + deductions != gross", s, p)
			}

			r := b.Rounded()
			if !r.NetSalary.Add(r.TotalDeductions).Equal(r.GrossSalary) {
				t.Errorf("%s %+v: rounded net + deductions != gross", s, p)
			}
		}
	}
}

func TestCalculateSalaryBreakdown_EmptyStatusDefaultsToSingle(t *testing.T) {
	got := Engine{}.CalculateSalaryBreakdown(dec("4000"), EmployeeProfile{Age: 30})
	if got.Profile.MaritalStatus != Single || got.PCB.MaritalStatus != Single {
		t.Fatalf("expected single, got %q", got.PCB.MaritalStatus)
	}
}

func TestParseMaritalStatus(t *testing.T) {
	cases := map[string]MaritalStatus{
		"":                           Single,
		"single":                     Single,
		" Married ":                  Married,
		"married_spouse_not_working": MarriedSpouseNotWorking,
	}
	for in, want := range cases {
		got, err := ParseMaritalStatus(in)
		if err != nil || got != want {
			t.Errorf("ParseMaritalStatus(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseMaritalStatus("divorced"); err == nil {
		t.Error("expected error for unknown status")
	}
}
