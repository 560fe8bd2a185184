package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/core"
	"fintrack/internal/finance"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewRepository(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func seedUser(t *testing.T, repo *Repository) int64 {
	t.Helper()
	id, err := repo.CreateUser(context.Background(), "Test User", "test@example.com", "hash")
	require.NoError(t, err)
	return id
}

func seedIncome(t *testing.T, repo *Repository, userID int64, amount, date string) int64 {
	t.Helper()
	m, err := core.ParseMoney(amount)
	require.NoError(t, err)
	d, err := core.ParseDate(date)
	require.NoError(t, err)
	id, err := repo.CreateIncome(context.Background(), core.Income{
		UserID:        userID,
		Amount:        m,
		Source:        "Salary",
		PaymentMethod: "Bank Transfer",
		Date:          d,
	})
	require.NoError(t, err)
	return id
}

func seedExpense(t *testing.T, repo *Repository, userID int64, amount, category string, necessity core.Necessity, date string) int64 {
	t.Helper()
	m, err := core.ParseMoney(amount)
	require.NoError(t, err)
	d, err := core.ParseDate(date)
	require.NoError(t, err)
	id, err := repo.CreateExpense(context.Background(), core.Expense{
		UserID:        userID,
		Amount:        m,
		Category:      category,
		Necessity:     necessity,
		PaymentMethod: "Cash",
		Date:          d,
	})
	require.NoError(t, err)
	return id
}

func window(t *testing.T, from, to string) finance.Window {
	t.Helper()
	f, err := core.ParseDate(from)
	require.NoError(t, err)
	o, err := core.ParseDate(to)
	require.NoError(t, err)
	return finance.Window{From: &f, To: &o}
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	_, err := repo.CreateUser(ctx, "First", "dup@example.com", "hash1")
	require.NoError(t, err)

	_, err = repo.CreateUser(ctx, "Second", "dup@example.com", "hash2")
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestUserLookup(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	id := seedUser(t, repo)

	byEmail, err := repo.UserByEmail(ctx, "test@example.com")
	require.NoError(t, err)
	assert.Equal(t, id, byEmail.ID)
	assert.Equal(t, "Test User", byEmail.FullName)

	byID, err := repo.UserByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "test@example.com", byID.Email)

	_, err = repo.UserByEmail(ctx, "missing@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSessionLifecycle(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	userID := seedUser(t, repo)
	expiry := time.Now().UTC().Add(time.Hour).Truncate(time.Second)

	require.NoError(t, repo.CreateSession(ctx, "hash1", userID, expiry))

	gotUser, gotExpiry, err := repo.SessionByTokenHash(ctx, "hash1")
	require.NoError(t, err)
	assert.Equal(t, userID, gotUser)
	assert.True(t, gotExpiry.Equal(expiry), "expected %v, got %v", expiry, gotExpiry)

	extended := expiry.Add(time.Hour)
	require.NoError(t, repo.ExtendSession(ctx, "hash1", extended))
	_, gotExpiry, err = repo.SessionByTokenHash(ctx, "hash1")
	require.NoError(t, err)
	assert.True(t, gotExpiry.Equal(extended))

	require.NoError(t, repo.DeleteSession(ctx, "hash1"))
	_, _, err = repo.SessionByTokenHash(ctx, "hash1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestAmountsRoundTripAsCents(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	userID := seedUser(t, repo)
	id := seedExpense(t, repo, userID, "19.99", "Food", core.Essential, "2024-01-15")

	ex, err := repo.ExpenseByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(1999), ex.Amount.Cents())
	assert.Equal(t, "2024-01-15", ex.Date.String())
	assert.Equal(t, core.Essential, ex.Necessity)
}

func TestListPagination(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	userID := seedUser(t, repo)
	for i := 1; i <= 5; i++ {
		seedExpense(t, repo, userID, "10.00", "Food", core.Essential,
			core.NewDate(2024, 1, i).String())
	}

	page1, total, err := repo.ListExpenses(ctx, userID, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	require.Len(t, page1, 2)
	// newest first
	assert.Equal(t, "2024-01-05", page1[0].Date.String())
	assert.Equal(t, "2024-01-04", page1[1].Date.String())

	page3, total, err := repo.ListExpenses(ctx, userID, 4, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	require.Len(t, page3, 1)
	assert.Equal(t, "2024-01-01", page3[0].Date.String())
}

func TestSumsRespectWindowAndUser(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	userID := seedUser(t, repo)
	otherID, err := repo.CreateUser(ctx, "Other", "other@example.com", "hash")
	require.NoError(t, err)

	seedIncome(t, repo, userID, "100.00", "2024-03-01")
	seedIncome(t, repo, userID, "200.00", "2024-03-15")
	seedIncome(t, repo, userID, "999.00", "2024-02-28") // outside window
	seedIncome(t, repo, otherID, "999.00", "2024-03-10")

	w := window(t, "2024-03-01", "2024-03-31")
	sum, err := repo.SumIncome(ctx, userID, w)
	require.NoError(t, err)
	assert.Equal(t, int64(30000), sum.Cents())

	// window bounds are inclusive
	edge := window(t, "2024-03-15", "2024-03-15")
	sum, err = repo.SumIncome(ctx, userID, edge)
	require.NoError(t, err)
	assert.Equal(t, int64(20000), sum.Cents())

	empty, err := repo.SumIncome(ctx, userID, window(t, "2025-01-01", "2025-01-31"))
	require.NoError(t, err)
	assert.True(t, empty.IsZero())
}

func TestSumExpenseNecessityFilter(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	userID := seedUser(t, repo)
	seedExpense(t, repo, userID, "100.00", "Food", core.Essential, "2024-03-01")
	seedExpense(t, repo, userID, "40.00", "Entertainment", core.NonEssential, "2024-03-02")

	w := window(t, "2024-03-01", "2024-03-31")

	all, err := repo.SumExpense(ctx, userID, w, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(14000), all.Cents())

	essential := core.Essential
	ess, err := repo.SumExpense(ctx, userID, w, &essential)
	require.NoError(t, err)
	assert.Equal(t, int64(10000), ess.Cents())

	nonEssential := core.NonEssential
	non, err := repo.SumExpense(ctx, userID, w, &nonEssential)
	require.NoError(t, err)
	assert.Equal(t, int64(4000), non.Cents())
}

func TestExpenseByCategory(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	userID := seedUser(t, repo)
	seedExpense(t, repo, userID, "60.00", "Food", core.Essential, "2024-03-01")
	seedExpense(t, repo, userID, "40.00", "Food", core.Essential, "2024-03-02")
	seedExpense(t, repo, userID, "30.00", "Transport", core.Essential, "2024-03-03")

	got, err := repo.ExpenseByCategory(ctx, userID, window(t, "2024-03-01", "2024-03-31"))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(10000), got["Food"].Cents())
	assert.Equal(t, int64(3000), got["Transport"].Cents())
}

func TestTopCategoryTieBreak(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	userID := seedUser(t, repo)
	w := window(t, "2024-03-01", "2024-03-31")

	_, ok, err := repo.TopCategory(ctx, userID, w)
	require.NoError(t, err)
	assert.False(t, ok)

	seedExpense(t, repo, userID, "100.00", "Transport", core.Essential, "2024-03-01")
	seedExpense(t, repo, userID, "100.00", "Food", core.Essential, "2024-03-02")

	top, ok, err := repo.TopCategory(ctx, userID, w)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Food", top, "equal sums break alphabetically")

	seedExpense(t, repo, userID, "0.01", "Transport", core.Essential, "2024-03-03")
	top, ok, err = repo.TopCategory(ctx, userID, w)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Transport", top)
}

func TestMaxExpenseTieBreak(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	userID := seedUser(t, repo)
	w := window(t, "2024-03-01", "2024-03-31")

	got, err := repo.MaxExpense(ctx, userID, w)
	require.NoError(t, err)
	assert.Nil(t, got)

	firstID := seedExpense(t, repo, userID, "100.00", "Food", core.Essential, "2024-03-01")
	seedExpense(t, repo, userID, "100.00", "Transport", core.Essential, "2024-03-02")
	seedExpense(t, repo, userID, "50.00", "Personal", core.Essential, "2024-03-03")

	got, err = repo.MaxExpense(ctx, userID, w)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, firstID, got.ID, "equal amounts break on lowest id")
}

func TestTrackedDatesUnion(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	userID := seedUser(t, repo)
	seedIncome(t, repo, userID, "100.00", "2024-03-01")
	seedExpense(t, repo, userID, "10.00", "Food", core.Essential, "2024-03-01") // same day
	seedExpense(t, repo, userID, "10.00", "Food", core.Essential, "2024-03-02")
	seedIncome(t, repo, userID, "50.00", "2024-03-05")

	dates, err := repo.TrackedDates(ctx, userID)
	require.NoError(t, err)
	require.Len(t, dates, 3)

	seen := map[string]bool{}
	for _, d := range dates {
		seen[d.String()] = true
	}
	assert.True(t, seen["2024-03-01"])
	assert.True(t, seen["2024-03-02"])
	assert.True(t, seen["2024-03-05"])
}

func TestUnexportedTransactions(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	userID := seedUser(t, repo)
	incomeID := seedIncome(t, repo, userID, "100.00", "2024-03-01")
	expenseID := seedExpense(t, repo, userID, "10.00", "Food", core.Essential, "2024-03-02")

	pending, err := repo.UnexportedTransactions(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)

	require.NoError(t, repo.MarkExported(ctx, "income", incomeID))

	pending, err = repo.UnexportedTransactions(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "expense", pending[0].Kind)
	assert.Equal(t, expenseID, pending[0].ID)

	require.NoError(t, repo.MarkExported(ctx, "expense", expenseID))
	pending, err = repo.UnexportedTransactions(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	assert.Error(t, repo.MarkExported(ctx, "transfer", 1))
}
