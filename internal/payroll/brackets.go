package payroll

import "github.com/shopspring/decimal"

// TaxBracket is a closed income band [Min, Max] taxed at Rate. The last
// bracket of a table has no upper bound (Max.Valid == false).
type TaxBracket struct {
	Min  decimal.Decimal
	Max  decimal.NullDecimal
	Rate decimal.Decimal
}

// Unbounded reports whether the bracket extends to infinity.
func (b TaxBracket) Unbounded() bool {
	return !b.Max.Valid
}

// Width is the amount of income the bracket absorbs, Max - Min + 1.
func (b TaxBracket) Width() decimal.Decimal {
	return b.Max.Decimal.Sub(b.Min).Add(decimal.NewFromInt(1))
}

// BracketTax is the tax charged within one bracket.
type BracketTax struct {
	Min     decimal.Decimal     `json:"min"`
	Max     decimal.NullDecimal `json:"max"`
	Rate    decimal.Decimal     `json:"rate"`
	Taxable decimal.Decimal     `json:"taxable"`
	Tax     decimal.Decimal     `json:"tax"`
}

func bracket(min, max int64, rate string) TaxBracket {
	return TaxBracket{
		Min:  decimal.NewFromInt(min),
		Max:  decimal.NewNullDecimal(decimal.NewFromInt(max)),
		Rate: decimal.RequireFromString(rate),
	}
}

func openBracket(min int64, rate string) TaxBracket {
	return TaxBracket{
		Min:  decimal.NewFromInt(min),
		Rate: decimal.RequireFromString(rate),
	}
}

// Brackets2024 returns the 2024 Malaysian resident individual tax schedule.
func Brackets2024() []TaxBracket {
	return []TaxBracket{
		bracket(0, 5000, "0"),
		bracket(5001, 20000, "0.01"),
		bracket(20001, 35000, "0.03"),
		bracket(35001, 50000, "0.06"),
		bracket(50001, 70000, "0.11"),
		bracket(70001, 100000, "0.19"),
		bracket(100001, 400000, "0.25"),
		bracket(400001, 600000, "0.26"),
		bracket(600001, 2000000, "0.28"),
		openBracket(2000001, "0.30"),
	}
}

// ProgressiveTax walks the brackets in order, charging each bracket's rate on
// the part of the remaining income that fits in its width, and stops once
// the income is exhausted. It returns the total and the per-bracket lines.
func ProgressiveTax(income decimal.Decimal, brackets []TaxBracket) (decimal.Decimal, []BracketTax) {
	total := decimal.Zero
	remaining := income
	var lines []BracketTax

	for _, b := range brackets {
		if !remaining.IsPositive() {
			break
		}
		taxable := remaining
		if !b.Unbounded() {
			taxable = decimal.Min(remaining, b.Width())
		}
		tax := taxable.Mul(b.Rate)
		total = total.Add(tax)
		remaining = remaining.Sub(taxable)

		lines = append(lines, BracketTax{
			Min:     b.Min,
			Max:     b.Max,
			Rate:    b.Rate,
			Taxable: taxable,
			Tax:     tax,
		})
	}

	return total, lines
}
