// Package finance is the aggregation engine: pure, stateless computations
// that turn a user's ledger history into derived summary views. The engine
// only reads; a failed store query fails the whole call, partial results are
// never returned.
package finance

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

type (
	DailySummary struct {
		TotalIncome  core.Money `json:"total_income"`
		TotalExpense core.Money `json:"total_expense"`
		NetBalance   core.Money `json:"net_balance"`
	}

	MonthlySummary struct {
		TotalIncome          core.Money            `json:"total_income"`
		TotalExpense         core.Money            `json:"total_expense"`
		Savings              core.Money            `json:"savings"`
		SavingsRate          decimal.Decimal       `json:"savings_rate"`
		EssentialSpending    core.Money            `json:"essential_spending"`
		NonEssentialSpending core.Money            `json:"non_essential_spending"`
		CategoryBreakdown    map[string]core.Money `json:"category_breakdown"`
	}

	// HighestExpense is the single largest expense record in a window.
	HighestExpense struct {
		Amount   core.Money `json:"amount"`
		Category string     `json:"category"`
		Date     core.Date  `json:"date"`
	}

	Insights struct {
		TopSpendingCategory            *string         `json:"top_spending_category"`
		HighestSingleExpense           *HighestExpense `json:"highest_single_expense"`
		NonEssentialSpendingPercentage decimal.Decimal `json:"non_essential_spending_percentage"`
		AverageDailySpend              decimal.Decimal `json:"average_daily_spend"`
	}

	Streaks struct {
		CurrentStreak   int        `json:"current_streak"`
		LongestStreak   int        `json:"longest_streak"`
		TrackedToday    bool       `json:"tracked_today"`
		LastTrackedDate *core.Date `json:"last_tracked_date"`
	}

	// MonthTotals holds one window's totals for the savings trend.
	MonthTotals struct {
		Income      core.Money      `json:"income"`
		Expenses    core.Money      `json:"expenses"`
		Savings     core.Money      `json:"savings"`
		SavingsRate decimal.Decimal `json:"savings_rate"`
	}

	Trend struct {
		SavingsChange     core.Money      `json:"savings_change"`
		SavingsRateChange decimal.Decimal `json:"savings_rate_change"`
		Direction         string          `json:"direction"`
	}

	SavingsTrend struct {
		CurrentMonth  MonthTotals `json:"current_month"`
		PreviousMonth MonthTotals `json:"previous_month"`
		Trend         Trend       `json:"trend"`
	}
)

const (
	DirectionImproving = "improving"
	DirectionDeclining = "declining"
	DirectionStable    = "stable"
)

// Engine computes summary views over a Ledger. It holds no state beyond the
// port and is safe for concurrent use.
type Engine struct {
	ledger Ledger
}

func NewEngine(ledger Ledger) *Engine {
	return &Engine{ledger: ledger}
}

// Daily returns income, expense, and net balance for exactly today.
func (e *Engine) Daily(ctx context.Context, userID int64, today core.Date) (DailySummary, error) {
	w := Window{From: &today, To: &today}

	income, err := e.ledger.SumIncome(ctx, userID, w)
	if err != nil {
		return DailySummary{}, fmt.Errorf("sum daily income: %w", err)
	}
	expense, err := e.ledger.SumExpense(ctx, userID, w, nil)
	if err != nil {
		return DailySummary{}, fmt.Errorf("sum daily expense: %w", err)
	}

	return DailySummary{
		TotalIncome:  income,
		TotalExpense: expense,
		NetBalance:   income.Sub(expense),
	}, nil
}

// Monthly returns the month-to-date summary for the window
// [first day of today's month, today].
func (e *Engine) Monthly(ctx context.Context, userID int64, today core.Date) (MonthlySummary, error) {
	w := MonthToDate(today)
	if err := w.Validate(); err != nil {
		return MonthlySummary{}, err
	}

	income, err := e.ledger.SumIncome(ctx, userID, w)
	if err != nil {
		return MonthlySummary{}, fmt.Errorf("sum monthly income: %w", err)
	}
	expense, err := e.ledger.SumExpense(ctx, userID, w, nil)
	if err != nil {
		return MonthlySummary{}, fmt.Errorf("sum monthly expense: %w", err)
	}

	essential := core.Essential
	essentialSum, err := e.ledger.SumExpense(ctx, userID, w, &essential)
	if err != nil {
		return MonthlySummary{}, fmt.Errorf("sum essential spending: %w", err)
	}
	nonEssential := core.NonEssential
	nonEssentialSum, err := e.ledger.SumExpense(ctx, userID, w, &nonEssential)
	if err != nil {
		return MonthlySummary{}, fmt.Errorf("sum non-essential spending: %w", err)
	}

	breakdown, err := e.ledger.ExpenseByCategory(ctx, userID, w)
	if err != nil {
		return MonthlySummary{}, fmt.Errorf("expense category breakdown: %w", err)
	}

	savings := income.Sub(expense)

	return MonthlySummary{
		TotalIncome:          income,
		TotalExpense:         expense,
		Savings:              savings,
		SavingsRate:          savingsRate(savings, income),
		EssentialSpending:    essentialSum,
		NonEssentialSpending: nonEssentialSum,
		CategoryBreakdown:    breakdown,
	}, nil
}

// Insights returns month-to-date spending insights.
func (e *Engine) Insights(ctx context.Context, userID int64, today core.Date) (Insights, error) {
	w := MonthToDate(today)
	if err := w.Validate(); err != nil {
		return Insights{}, err
	}

	expense, err := e.ledger.SumExpense(ctx, userID, w, nil)
	if err != nil {
		return Insights{}, fmt.Errorf("sum monthly expense: %w", err)
	}

	out := Insights{
		NonEssentialSpendingPercentage: decimal.Zero,
		AverageDailySpend:              decimal.Zero,
	}

	top, ok, err := e.ledger.TopCategory(ctx, userID, w)
	if err != nil {
		return Insights{}, fmt.Errorf("top spending category: %w", err)
	}
	if ok {
		out.TopSpendingCategory = &top
	}

	highest, err := e.ledger.MaxExpense(ctx, userID, w)
	if err != nil {
		return Insights{}, fmt.Errorf("highest single expense: %w", err)
	}
	if highest != nil {
		out.HighestSingleExpense = &HighestExpense{
			Amount:   highest.Amount,
			Category: highest.Category,
			Date:     highest.Date,
		}
	}

	// Ratios resolve to 0.00 when there is no spending; callers depend on
	// a number here, never an error.
	if !expense.IsZero() {
		nonEssential := core.NonEssential
		nonEssentialSum, err := e.ledger.SumExpense(ctx, userID, w, &nonEssential)
		if err != nil {
			return Insights{}, fmt.Errorf("sum non-essential spending: %w", err)
		}
		out.NonEssentialSpendingPercentage = core.RoundHalfUp2(
			nonEssentialSum.Decimal.Div(expense.Decimal).Mul(decimal.NewFromInt(100)))

		daysElapsed := today.Day()
		if daysElapsed < 1 {
			daysElapsed = 1
		}
		out.AverageDailySpend = core.RoundHalfUp2(
			expense.Decimal.Div(decimal.NewFromInt(int64(daysElapsed))))
	}

	return out, nil
}

// Streaks computes tracking streaks over the user's entire ledger history.
// A day counts as tracked when it carries at least one income or expense.
func (e *Engine) Streaks(ctx context.Context, userID int64, today core.Date) (Streaks, error) {
	dates, err := e.ledger.TrackedDates(ctx, userID)
	if err != nil {
		return Streaks{}, fmt.Errorf("tracked dates: %w", err)
	}
	if len(dates) == 0 {
		return Streaks{}, nil
	}

	sort.Slice(dates, func(i, j int) bool { return dates[j].Before(dates[i]) })

	// Membership check, not a comparison with the newest date: records may
	// carry future dates, which sort ahead of today.
	trackedToday := false
	for _, d := range dates {
		if d.Equal(today) {
			trackedToday = true
			break
		}
		if d.Before(today) {
			break
		}
	}

	// Walk descending from today; the first gap ends the streak. When today
	// itself is untracked the very first comparison fails and the current
	// streak is 0 even if yesterday starts a contiguous run. Intentional:
	// a streak only counts while today is part of it.
	current := 0
	expected := today
	for _, d := range dates {
		if d.Equal(expected) {
			current++
			expected = expected.AddDays(-1)
		} else if d.Before(expected) {
			break
		}
	}

	// A single tracked date is a streak of length 1.
	longest, run := 1, 1
	for i := 1; i < len(dates); i++ {
		if dates[i-1].Equal(dates[i].AddDays(1)) {
			run++
			if run > longest {
				longest = run
			}
		} else {
			run = 1
		}
	}

	last := dates[0]
	return Streaks{
		CurrentStreak:   current,
		LongestStreak:   longest,
		TrackedToday:    trackedToday,
		LastTrackedDate: &last,
	}, nil
}

// SavingsTrend compares this month-to-date against the full previous
// calendar month.
func (e *Engine) SavingsTrend(ctx context.Context, userID int64, today core.Date) (SavingsTrend, error) {
	current, err := e.monthTotals(ctx, userID, MonthToDate(today))
	if err != nil {
		return SavingsTrend{}, fmt.Errorf("current month totals: %w", err)
	}
	previous, err := e.monthTotals(ctx, userID, FullPreviousMonth(today))
	if err != nil {
		return SavingsTrend{}, fmt.Errorf("previous month totals: %w", err)
	}

	direction := DirectionStable
	switch current.Savings.Decimal.Cmp(previous.Savings.Decimal) {
	case 1:
		direction = DirectionImproving
	case -1:
		direction = DirectionDeclining
	}

	return SavingsTrend{
		CurrentMonth:  current,
		PreviousMonth: previous,
		Trend: Trend{
			SavingsChange:     current.Savings.Sub(previous.Savings),
			SavingsRateChange: core.RoundHalfUp2(current.SavingsRate.Sub(previous.SavingsRate)),
			Direction:         direction,
		},
	}, nil
}

func (e *Engine) monthTotals(ctx context.Context, userID int64, w Window) (MonthTotals, error) {
	if err := w.Validate(); err != nil {
		return MonthTotals{}, err
	}
	income, err := e.ledger.SumIncome(ctx, userID, w)
	if err != nil {
		return MonthTotals{}, fmt.Errorf("sum income: %w", err)
	}
	expense, err := e.ledger.SumExpense(ctx, userID, w, nil)
	if err != nil {
		return MonthTotals{}, fmt.Errorf("sum expense: %w", err)
	}
	savings := income.Sub(expense)
	return MonthTotals{
		Income:      income,
		Expenses:    expense,
		Savings:     savings,
		SavingsRate: savingsRate(savings, income),
	}, nil
}

// savingsRate is (savings / income) * 100 rounded half-up to two places,
// and exactly 0.00 when income is zero. Policy, not a limit: the zero avoids
// dividing by zero while keeping the field numeric.
func savingsRate(savings, income core.Money) decimal.Decimal {
	if !income.Decimal.IsPositive() {
		return decimal.Zero
	}
	return core.RoundHalfUp2(savings.Decimal.Div(income.Decimal).Mul(decimal.NewFromInt(100)))
}
