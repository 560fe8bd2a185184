package finance

import (
	"context"
	"errors"

	"fintrack/internal/core"
)

// ErrInvalidWindow is returned when a window's upper bound precedes its
// lower bound. The check runs before any store query.
var ErrInvalidWindow = errors.New("invalid date window: end before start")

// Window is an inclusive date range used to scope ledger queries.
// A nil bound leaves that side open.
type Window struct {
	From *core.Date
	To   *core.Date
}

// MonthToDate is the [first day of month, today] window used by the
// monthly summary, insights, and the current side of the savings trend.
func MonthToDate(today core.Date) Window {
	from := today.MonthStart()
	return Window{From: &from, To: &today}
}

// FullPreviousMonth is the closed calendar month preceding today's month.
func FullPreviousMonth(today core.Date) Window {
	end := today.MonthStart().AddDays(-1)
	start := end.MonthStart()
	return Window{From: &start, To: &end}
}

func (w Window) Validate() error {
	if w.From != nil && w.To != nil && w.To.Before(*w.From) {
		return ErrInvalidWindow
	}
	return nil
}

// Ledger is the read-only port the aggregation engine consumes.
//
// All sums coalesce to exact zero over empty result sets. Implementations
// must break ties deterministically: TopCategory orders by summed amount
// descending then category name ascending, MaxExpense by amount descending
// then lowest record id.
type Ledger interface {
	// SumIncome returns the total income amount inside the window.
	SumIncome(ctx context.Context, userID int64, w Window) (core.Money, error)

	// SumExpense returns the total expense amount inside the window,
	// optionally filtered by necessity.
	SumExpense(ctx context.Context, userID int64, w Window, necessity *core.Necessity) (core.Money, error)

	// ExpenseByCategory returns window-scoped expense sums keyed by the
	// distinct category strings present; absent categories are omitted.
	ExpenseByCategory(ctx context.Context, userID int64, w Window) (map[string]core.Money, error)

	// TopCategory returns the category with the largest summed expense in
	// the window; ok is false when the window holds no expenses.
	TopCategory(ctx context.Context, userID int64, w Window) (category string, ok bool, err error)

	// MaxExpense returns the single highest-amount expense record in the
	// window, or nil when none exist.
	MaxExpense(ctx context.Context, userID int64, w Window) (*core.Expense, error)

	// TrackedDates returns the distinct union of income and expense dates
	// across the user's entire history, in no particular order.
	TrackedDates(ctx context.Context, userID int64) ([]core.Date, error)
}
