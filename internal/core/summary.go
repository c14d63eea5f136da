package core

import "sort"

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string `json:"name"`
	Amount Money  `json:"amount"`
}

// MonthOverview is a compact summary for a specific year+month.
type MonthOverview struct {
	Year       int              `json:"year"`
	Month      int              `json:"month"` // 1-12
	Income     Money            `json:"income"`
	Expense    Money            `json:"expense"`
	Net        Money            `json:"net"`
	ByCategory []CategoryAmount `json:"by_category"` // expenses only, largest first
}

// SummarizeMonth aggregates the transactions that fall in year/month.
func SummarizeMonth(year, month int, txs []Transaction) MonthOverview {
	overview := MonthOverview{Year: year, Month: month}
	byCategory := map[string]Money{}

	for _, t := range txs {
		if t.Date.Year() != year || t.Date.Month() != month {
			continue
		}
		if t.IsExpense {
			overview.Expense = overview.Expense.Add(t.Amount)
			byCategory[t.Category] = byCategory[t.Category].Add(t.Amount)
		} else {
			overview.Income = overview.Income.Add(t.Amount)
		}
	}
	overview.Net = overview.Income.Sub(overview.Expense)

	for name, amount := range byCategory {
		overview.ByCategory = append(overview.ByCategory, CategoryAmount{Name: name, Amount: amount})
	}
	sort.Slice(overview.ByCategory, func(i, j int) bool {
		if c := overview.ByCategory[i].Amount.Cmp(overview.ByCategory[j].Amount); c != 0 {
			return c > 0
		}
		return overview.ByCategory[i].Name < overview.ByCategory[j].Name
	})

	return overview
}
