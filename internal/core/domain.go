package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	Monthly RepetitionTypes = "monthly"
	Yearly  RepetitionTypes = "yearly"
	Weekly  RepetitionTypes = "weekly"
	Daily   RepetitionTypes = "daily"
)

const maxDescriptionLen = 200

type (
	RepetitionTypes string

	Date struct {
		time.Time
	}

	Account struct {
		ID        int64
		Name      string
		Balance   Money
		CreatedAt time.Time
		UpdatedAt time.Time
	}

	// Transaction is one recorded income or expense. Amount is always a
	// magnitude; IsExpense carries the direction of its effect on the balance.
	Transaction struct {
		ID          int64
		AccountID   int64
		Date        Date
		Description string
		Amount      Money
		IsExpense   bool
		Category    string
		Version     int64 // bumped on every edit, used by the sheets sync
		CreatedAt   time.Time
		UpdatedAt   time.Time
	}

	RecurringTransaction struct {
		ID            int64
		AccountID     int64
		StartDate     Date
		EndDate       Date // zero when open-ended
		Every         RepetitionTypes
		Description   string
		Amount        Money
		IsExpense     bool
		Category      string
		LastExecution time.Time
	}
)

var (
	ErrInvalidDay         = errors.New("invalid day")
	ErrInvalidMonth       = errors.New("invalid month")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrEmptyDescription   = errors.New("empty description")
	ErrDescriptionTooLong = errors.New("description too long (max 200 characters)")
	ErrEmptyCategory      = errors.New("empty category")
	ErrEmptyAccountName   = errors.New("empty account name")
	ErrInvalidAccount     = errors.New("invalid account")
	ErrInvalidRepetition  = errors.New("invalid repetition type")
	ErrInvalidDateRange   = errors.New("end date must be after start date")
	ErrNotFound           = errors.New("not found")
)

// IsValidationError reports whether err is caused by invalid user input.
func IsValidationError(err error) bool {
	for _, target := range []error{
		ErrInvalidDay, ErrInvalidMonth, ErrInvalidAmount, ErrEmptyDescription,
		ErrDescriptionTooLong, ErrEmptyCategory, ErrEmptyAccountName,
		ErrInvalidAccount, ErrInvalidRepetition, ErrInvalidDateRange,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	_, month, day := d.Date()
	if day < 1 || day > 31 {
		return ErrInvalidDay
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format("2006-01-02")
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return Date{}, errors.New("invalid date format, expected YYYY-MM-DD")
	}
	return Date{Time: t}, nil
}

// IsEmpty returns true if the date is zero (for optional dates)
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

// Validate rejects zero and negative amounts and anything finer than a sen.
func (m Money) Validate() error {
	if !m.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if !m.Amount.Equal(m.Amount.Round(2)) {
		return ErrInvalidAmount
	}
	return nil
}

func (r RepetitionTypes) Validate() error {
	switch r {
	case Daily, Weekly, Monthly, Yearly:
		return nil
	default:
		return ErrInvalidRepetition
	}
}

func (a Account) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return ErrEmptyAccountName
	}
	if utf8.RuneCountInString(a.Name) > 100 {
		return errors.New("account name too long (max 100 characters)")
	}
	return nil
}

// Kind returns "expense" or "income".
func (t Transaction) Kind() string {
	if t.IsExpense {
		return "expense"
	}
	return "income"
}

func (t Transaction) Validate() error {
	if t.AccountID <= 0 {
		return ErrInvalidAccount
	}
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if err := validateDescription(t.Description); err != nil {
		return err
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	return nil
}

func (re RecurringTransaction) Validate() error {
	if re.AccountID <= 0 {
		return ErrInvalidAccount
	}
	if err := re.StartDate.Validate(); err != nil {
		return fmt.Errorf("invalid start date: %w", err)
	}
	if !re.EndDate.IsZero() {
		if err := re.EndDate.Validate(); err != nil {
			return fmt.Errorf("invalid end date: %w", err)
		}
		if re.EndDate.Before(re.StartDate.Time) {
			return ErrInvalidDateRange
		}
	}
	if err := re.Every.Validate(); err != nil {
		return err
	}
	if err := validateDescription(re.Description); err != nil {
		return err
	}
	if err := re.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(re.Category) == "" {
		return ErrEmptyCategory
	}
	return nil
}

// ActiveOn reports whether the template may fire on the given day.
func (re RecurringTransaction) ActiveOn(now time.Time) bool {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if day.Before(re.StartDate.Time) {
		return false
	}
	if !re.EndDate.IsZero() && day.After(re.EndDate.Time) {
		return false
	}
	return true
}

// Instantiate builds the concrete transaction produced by the template on now.
func (re RecurringTransaction) Instantiate(now time.Time) Transaction {
	return Transaction{
		AccountID:   re.AccountID,
		Date:        NewDate(now.Year(), int(now.Month()), now.Day()),
		Description: re.Description,
		Amount:      re.Amount,
		IsExpense:   re.IsExpense,
		Category:    re.Category,
	}
}

func validateDescription(desc string) error {
	if len(strings.TrimSpace(desc)) == 0 {
		return ErrEmptyDescription
	}
	if utf8.RuneCountInString(desc) > maxDescriptionLen {
		return ErrDescriptionTooLong
	}
	return nil
}
