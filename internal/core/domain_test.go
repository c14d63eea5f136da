package core

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestMoneyValidate(t *testing.T) {
	if err := MoneyFromCents(1).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := MoneyFromCents(0).Validate(); err == nil {
		t.Fatalf("expected error for zero")
	}
	if err := MoneyFromCents(-1).Validate(); err == nil {
		t.Fatalf("expected error for negative")
	}
	if err := (Money{Amount: decimal.RequireFromString("100.10")}).Validate(); err != nil {
		t.Fatalf("expected ok for trailing zero, got %v", err)
	}
	if err := (Money{Amount: decimal.RequireFromString("100.005")}).Validate(); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount for third decimal, got %v", err)
	}
}

func TestTransactionValidate(t *testing.T) {
	good := Transaction{
		AccountID:   1,
		Date:        NewDate(2025, 1, 1),
		Description: "ok",
		Amount:      MoneyFromCents(100),
		IsExpense:   true,
		Category:    "Food",
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []struct {
		mutate func(*Transaction)
		want   error
	}{
		{func(tx *Transaction) { tx.AccountID = 0 }, ErrInvalidAccount},
		{func(tx *Transaction) { tx.Description = "  " }, ErrEmptyDescription},
		{func(tx *Transaction) { tx.Description = strings.Repeat("x", 201) }, ErrDescriptionTooLong},
		{func(tx *Transaction) { tx.Description = strings.Repeat("税", 201) }, ErrDescriptionTooLong},
		{func(tx *Transaction) { tx.Amount = Money{} }, ErrInvalidAmount},
		{func(tx *Transaction) { tx.Amount = Money{Amount: decimal.RequireFromString("100.005")} }, ErrInvalidAmount},
		{func(tx *Transaction) { tx.Category = "" }, ErrEmptyCategory},
	}
	for i, tc := range bads {
		tx := good
		tc.mutate(&tx)
		err := tx.Validate()
		if !errors.Is(err, tc.want) {
			t.Fatalf("case %d expected %v, got %v", i, tc.want, err)
		}
		if !IsValidationError(err) {
			t.Fatalf("case %d expected validation error classification", i)
		}
	}

	multibyte := good
	multibyte.Description = strings.Repeat("税", 200)
	if err := multibyte.Validate(); err != nil {
		t.Fatalf("200-character multibyte description rejected: %v", err)
	}

	zeroDate := good
	zeroDate.Date = Date{}
	if err := zeroDate.Validate(); err == nil {
		t.Fatal("expected error for zero date")
	}
}

func TestRecurringTransactionValidate(t *testing.T) {
	good := RecurringTransaction{
		AccountID:   1,
		StartDate:   NewDate(2025, 1, 15),
		Every:       Monthly,
		Description: "Rent",
		Amount:      MoneyFromInt(1200),
		IsExpense:   true,
		Category:    "Housing",
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	badEvery := good
	badEvery.Every = "fortnightly"
	if !errors.Is(badEvery.Validate(), ErrInvalidRepetition) {
		t.Fatal("expected invalid repetition")
	}

	badRange := good
	badRange.EndDate = NewDate(2024, 12, 31)
	if !errors.Is(badRange.Validate(), ErrInvalidDateRange) {
		t.Fatal("expected invalid date range")
	}

	fractional := good
	fractional.Amount = Money{Amount: decimal.RequireFromString("1200.001")}
	if !errors.Is(fractional.Validate(), ErrInvalidAmount) {
		t.Fatal("expected invalid amount for sub-sen template amount")
	}
}

func TestAccountValidateCountsCharacters(t *testing.T) {
	cases := []struct {
		name string
		ok   bool
	}{
		{strings.Repeat("é", 100), true},
		{strings.Repeat("é", 101), false},
		{"   ", false},
	}
	for _, tc := range cases {
		err := Account{Name: tc.name}.Validate()
		if tc.ok && err != nil {
			t.Errorf("Validate(%d runes) = %v, want ok", len([]rune(tc.name)), err)
		}
		if !tc.ok && err == nil {
			t.Errorf("Validate(%d runes) = nil, want error", len([]rune(tc.name)))
		}
	}
}

func TestRecurringTransactionActiveOn(t *testing.T) {
	re := RecurringTransaction{
		StartDate: NewDate(2025, 3, 1),
		EndDate:   NewDate(2025, 6, 30),
	}
	cases := []struct {
		now  time.Time
		want bool
	}{
		{time.Date(2025, 2, 28, 12, 0, 0, 0, time.UTC), false},
		{time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC), true},
		{time.Date(2025, 6, 30, 23, 0, 0, 0, time.UTC), true},
		{time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC), false},
	}
	for _, tc := range cases {
		if got := re.ActiveOn(tc.now); got != tc.want {
			t.Errorf("ActiveOn(%s) = %v, want %v", tc.now, got, tc.want)
		}
	}
}

func TestSummarizeMonth(t *testing.T) {
	txs := []Transaction{
		{Date: NewDate(2025, 5, 1), Amount: MoneyFromInt(5000), Category: "Salary"},
		{Date: NewDate(2025, 5, 2), Amount: MoneyFromInt(100), IsExpense: true, Category: "Food"},
		{Date: NewDate(2025, 5, 3), Amount: MoneyFromInt(1200), IsExpense: true, Category: "Housing"},
		{Date: NewDate(2025, 5, 9), Amount: MoneyFromCents(5050), IsExpense: true, Category: "Food"},
		{Date: NewDate(2025, 6, 1), Amount: MoneyFromInt(999), IsExpense: true, Category: "Food"},
	}

	got := SummarizeMonth(2025, 5, txs)
	if !got.Income.Equal(MoneyFromInt(5000)) {
		t.Fatalf("income = %s", got.Income)
	}
	if !got.Expense.Equal(MoneyFromCents(135050)) {
		t.Fatalf("expense = %s", got.Expense)
	}
	if !got.Net.Equal(MoneyFromCents(364950)) {
		t.Fatalf("net = %s", got.Net)
	}
	if len(got.ByCategory) != 2 || got.ByCategory[0].Name != "Housing" || got.ByCategory[1].Name != "Food" {
		t.Fatalf("unexpected categories: %+v", got.ByCategory)
	}
	if !got.ByCategory[1].Amount.Equal(MoneyFromCents(15050)) {
		t.Fatalf("food = %s", got.ByCategory[1].Amount)
	}
}
