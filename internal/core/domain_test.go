package core

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseDate(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"2024-01-15", "2024-01-15", true},
		{" 2024-01-15 ", "2024-01-15", true},
		{"2024-02-29", "2024-02-29", true}, // leap day
		{"2023-02-29", "", false},
		{"2024-13-01", "", false},
		{"15-01-2024", "", false},
		{"2024/01/15", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseDate(tc.in)
		if tc.ok {
			if err != nil || got.String() != tc.out {
				t.Fatalf("%q expected %q, got %q (err=%v)", tc.in, tc.out, got.String(), err)
			}
		} else {
			if !errors.Is(err, ErrInvalidDate) {
				t.Fatalf("%q expected ErrInvalidDate, got %v", tc.in, err)
			}
		}
	}
}

func TestDateArithmetic(t *testing.T) {
	d := NewDate(2024, 3, 1)

	if got := d.AddDays(-1).String(); got != "2024-02-29" {
		t.Fatalf("expected leap day, got %q", got)
	}
	if got := NewDate(2024, 3, 15).MonthStart().String(); got != "2024-03-01" {
		t.Fatalf("expected month start, got %q", got)
	}
	if !NewDate(2024, 1, 1).Before(NewDate(2024, 1, 2)) {
		t.Fatal("expected Before to hold")
	}
	if !NewDate(2024, 1, 2).After(NewDate(2024, 1, 1)) {
		t.Fatal("expected After to hold")
	}
	if !NewDate(2024, 1, 1).Equal(NewDate(2024, 1, 1)) {
		t.Fatal("expected Equal to hold")
	}
}

func TestDateJSON(t *testing.T) {
	d := NewDate(2024, 7, 4)
	b, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `"2024-07-04"` {
		t.Fatalf("expected quoted date, got %s", b)
	}

	var back Date
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !back.Equal(d) {
		t.Fatalf("round trip mismatch: %s != %s", back, d)
	}

	if err := json.Unmarshal([]byte(`"not-a-date"`), &back); err == nil {
		t.Fatal("expected error for malformed date")
	}
}

func validIncome() Income {
	amt, _ := ParseMoney("1500.00")
	return Income{
		UserID:        1,
		Amount:        amt,
		Source:        "Salary",
		PaymentMethod: "Bank Transfer",
		Date:          NewDate(2024, 1, 15),
	}
}

func validExpense() Expense {
	amt, _ := ParseMoney("42.50")
	return Expense{
		UserID:        1,
		Amount:        amt,
		Category:      "Food",
		Necessity:     Essential,
		PaymentMethod: "Cash",
		Date:          NewDate(2024, 1, 15),
	}
}

func TestIncomeValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Income)
		want   error
	}{
		{"valid", func(i *Income) {}, nil},
		{"zero amount", func(i *Income) { i.Amount = ZeroMoney() }, ErrInvalidAmount},
		{"negative amount", func(i *Income) { i.Amount = MoneyFromCents(-100) }, ErrInvalidAmount},
		{"unknown source", func(i *Income) { i.Source = "Lottery" }, ErrInvalidSource},
		{"empty source", func(i *Income) { i.Source = "" }, ErrInvalidSource},
		{"unknown payment method", func(i *Income) { i.PaymentMethod = "Barter" }, ErrInvalidPayment},
		{"zero date", func(i *Income) { i.Date = Date{} }, ErrInvalidDate},
		{"long description", func(i *Income) { i.Description = string(make([]byte, 256)) }, ErrDescriptionLong},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validIncome()
			tc.mutate(&in)
			if err := in.Validate(); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestExpenseValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Expense)
		want   error
	}{
		{"valid", func(e *Expense) {}, nil},
		{"valid non-essential", func(e *Expense) { e.Necessity = NonEssential }, nil},
		{"zero amount", func(e *Expense) { e.Amount = ZeroMoney() }, ErrInvalidAmount},
		{"unknown category", func(e *Expense) { e.Category = "Gambling" }, ErrInvalidCategory},
		{"lowercase category", func(e *Expense) { e.Category = "food" }, ErrInvalidCategory},
		{"empty necessity", func(e *Expense) { e.Necessity = "" }, ErrInvalidNecessity},
		{"unknown necessity", func(e *Expense) { e.Necessity = "luxury" }, ErrInvalidNecessity},
		{"unknown payment method", func(e *Expense) { e.PaymentMethod = "IOU" }, ErrInvalidPayment},
		{"zero date", func(e *Expense) { e.Date = Date{} }, ErrInvalidDate},
		{"long description", func(e *Expense) { e.Description = string(make([]byte, 256)) }, ErrDescriptionLong},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ex := validExpense()
			tc.mutate(&ex)
			if err := ex.Validate(); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestEveryListedCategoryValidates(t *testing.T) {
	for _, c := range ExpenseCategories {
		ex := validExpense()
		ex.Category = c
		if err := ex.Validate(); err != nil {
			t.Fatalf("category %q should validate, got %v", c, err)
		}
	}
	for _, s := range IncomeSources {
		in := validIncome()
		in.Source = s
		if err := in.Validate(); err != nil {
			t.Fatalf("source %q should validate, got %v", s, err)
		}
	}
	for _, m := range PaymentMethods {
		ex := validExpense()
		ex.PaymentMethod = m
		if err := ex.Validate(); err != nil {
			t.Fatalf("payment method %q should validate, got %v", m, err)
		}
	}
}
