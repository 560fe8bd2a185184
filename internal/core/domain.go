package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Essential    Necessity = "essential"
	NonEssential Necessity = "non_essential"
)

type (
	// Necessity classifies an expense for budgeting insight.
	Necessity string

	// Date is a calendar date pinned to UTC midnight.
	Date struct {
		time.Time
	}

	User struct {
		ID           int64
		FullName     string
		Email        string
		PasswordHash string
		CreatedAt    time.Time
	}

	Income struct {
		ID            int64
		UserID        int64
		Amount        Money
		Source        string
		PaymentMethod string
		Date          Date
		Description   string
	}

	Expense struct {
		ID            int64
		UserID        int64
		Amount        Money
		Category      string
		Necessity     Necessity
		PaymentMethod string
		Date          Date
		Description   string
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidCategory  = errors.New("invalid category")
	ErrInvalidSource    = errors.New("invalid income source")
	ErrInvalidNecessity = errors.New("invalid necessity type")
	ErrInvalidPayment   = errors.New("invalid payment method")
	ErrDescriptionLong  = errors.New("description too long (max 255 characters)")
)

// ExpenseCategories is the closed set of accepted expense categories.
var ExpenseCategories = []string{
	"Food",
	"Transport",
	"Rent / Housing",
	"Utilities",
	"Data & Internet",
	"Subscriptions",
	"Health",
	"Education",
	"Business / Work",
	"Personal",
	"Entertainment",
	"Miscellaneous",
}

// IncomeSources is the closed set of accepted income sources.
var IncomeSources = []string{
	"Salary",
	"Freelance",
	"Business",
	"Consultation",
	"Gift",
	"Bonus",
	"Refund",
	"Other",
}

// PaymentMethods is the closed set of accepted payment methods.
var PaymentMethods = []string{
	"Cash",
	"Bank Transfer",
	"Debit Card",
	"Credit Card",
	"POS",
	"Mobile Wallet",
	"Other",
}

func (n Necessity) Validate() error {
	switch n {
	case Essential, NonEssential:
		return nil
	default:
		return ErrInvalidNecessity
	}
}

// NewDate creates a Date from year, month, day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar date.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t.UTC()}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// String renders the date as YYYY-MM-DD.
func (d Date) String() string {
	return d.Format("2006-01-02")
}

// AddDays returns the date shifted by n calendar days.
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

// MonthStart returns the first day of the date's month.
func (d Date) MonthStart() Date {
	return NewDate(d.Year(), int(d.Month()), 1)
}

// Equal reports whether two dates fall on the same calendar day.
func (d Date) Equal(other Date) bool {
	return d.Time.Equal(other.Time)
}

// Before reports whether d is strictly earlier than other.
func (d Date) Before(other Date) bool {
	return d.Time.Before(other.Time)
}

// After reports whether d is strictly later than other.
func (d Date) After(other Date) bool {
	return d.Time.After(other.Time)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "null" || s == "" {
		return ErrInvalidDate
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func validatePaymentMethod(method string) error {
	for _, m := range PaymentMethods {
		if method == m {
			return nil
		}
	}
	return ErrInvalidPayment
}

func (i Income) Validate() error {
	if err := i.Amount.ValidatePositive(); err != nil {
		return err
	}
	valid := false
	for _, s := range IncomeSources {
		if i.Source == s {
			valid = true
			break
		}
	}
	if !valid {
		return ErrInvalidSource
	}
	if err := validatePaymentMethod(i.PaymentMethod); err != nil {
		return err
	}
	if err := i.Date.Validate(); err != nil {
		return err
	}
	if len(i.Description) > 255 {
		return ErrDescriptionLong
	}
	return nil
}

func (e Expense) Validate() error {
	if err := e.Amount.ValidatePositive(); err != nil {
		return err
	}
	valid := false
	for _, c := range ExpenseCategories {
		if e.Category == c {
			valid = true
			break
		}
	}
	if !valid {
		return ErrInvalidCategory
	}
	if err := e.Necessity.Validate(); err != nil {
		return err
	}
	if err := validatePaymentMethod(e.PaymentMethod); err != nil {
		return err
	}
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if len(e.Description) > 255 {
		return ErrDescriptionLong
	}
	return nil
}
