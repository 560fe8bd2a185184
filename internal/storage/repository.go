// Package storage implements the SQLite ledger store: users, sessions, and
// the income/expense tables the aggregation engine queries through its
// Ledger port. Amounts are persisted as integer cents so SQL sums stay
// exact.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/finance"

	_ "modernc.org/sqlite"
)

const timeFormat = "2006-01-02 15:04:05"

var (
	ErrEmailTaken      = errors.New("email already registered")
	ErrNotFound        = errors.New("record not found")
	ErrSessionNotFound = errors.New("session not found")
)

type Repository struct {
	db *sql.DB
}

func NewRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// ---- users ----

func (r *Repository) CreateUser(ctx context.Context, fullName, email, passwordHash string) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO users(full_name, email, password_hash) VALUES(?, ?, ?)",
		fullName, email, passwordHash)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return 0, ErrEmailTaken
		}
		return 0, fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("user insert id: %w", err)
	}
	slog.InfoContext(ctx, "User created", "user_id", id)
	return id, nil
}

func (r *Repository) UserByEmail(ctx context.Context, email string) (*core.User, error) {
	u := &core.User{}
	err := r.db.QueryRowContext(ctx,
		"SELECT id, full_name, email, password_hash FROM users WHERE email = ?", email).
		Scan(&u.ID, &u.FullName, &u.Email, &u.PasswordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select user by email: %w", err)
	}
	return u, nil
}

func (r *Repository) UserByID(ctx context.Context, id int64) (*core.User, error) {
	u := &core.User{}
	err := r.db.QueryRowContext(ctx,
		"SELECT id, full_name, email, password_hash FROM users WHERE id = ?", id).
		Scan(&u.ID, &u.FullName, &u.Email, &u.PasswordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select user by id: %w", err)
	}
	return u, nil
}

// ---- sessions ----

func (r *Repository) CreateSession(ctx context.Context, tokenHash string, userID int64, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO sessions(token_hash, user_id, expires_at) VALUES(?, ?, ?)",
		tokenHash, userID, expiresAt.UTC().Format(timeFormat))
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (r *Repository) SessionByTokenHash(ctx context.Context, tokenHash string) (int64, time.Time, error) {
	var userID int64
	var expiresAtStr string
	err := r.db.QueryRowContext(ctx,
		"SELECT user_id, expires_at FROM sessions WHERE token_hash = ?", tokenHash).
		Scan(&userID, &expiresAtStr)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, time.Time{}, ErrSessionNotFound
	}
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("select session: %w", err)
	}
	expiresAt, err := time.Parse(timeFormat, expiresAtStr)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("parse session expiry: %w", err)
	}
	return userID, expiresAt, nil
}

func (r *Repository) ExtendSession(ctx context.Context, tokenHash string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE sessions SET expires_at = ? WHERE token_hash = ?",
		expiresAt.UTC().Format(timeFormat), tokenHash)
	if err != nil {
		return fmt.Errorf("extend session: %w", err)
	}
	return nil
}

func (r *Repository) DeleteSession(ctx context.Context, tokenHash string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM sessions WHERE token_hash = ?", tokenHash)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// ---- incomes and expenses ----

func (r *Repository) CreateIncome(ctx context.Context, in core.Income) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO incomes(user_id, amount_cents, source, payment_method, date, description)
		 VALUES(?, ?, ?, ?, ?, ?)`,
		in.UserID, in.Amount.Cents(), in.Source, in.PaymentMethod, in.Date.String(), in.Description)
	if err != nil {
		return 0, fmt.Errorf("insert income: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("income insert id: %w", err)
	}
	slog.InfoContext(ctx, "Income saved",
		"id", id, "user_id", in.UserID, "amount_cents", in.Amount.Cents(), "date", in.Date.String())
	return id, nil
}

func (r *Repository) CreateExpense(ctx context.Context, ex core.Expense) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO expenses(user_id, amount_cents, category, necessity, payment_method, date, description)
		 VALUES(?, ?, ?, ?, ?, ?, ?)`,
		ex.UserID, ex.Amount.Cents(), ex.Category, string(ex.Necessity), ex.PaymentMethod, ex.Date.String(), ex.Description)
	if err != nil {
		return 0, fmt.Errorf("insert expense: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("expense insert id: %w", err)
	}
	slog.InfoContext(ctx, "Expense saved",
		"id", id, "user_id", ex.UserID, "amount_cents", ex.Amount.Cents(),
		"category", ex.Category, "date", ex.Date.String())
	return id, nil
}

// ListIncomes returns a user's incomes newest first with the total count,
// for skip/limit pagination.
func (r *Repository) ListIncomes(ctx context.Context, userID int64, skip, limit int) ([]core.Income, int64, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM incomes WHERE user_id = ?", userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count incomes: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, amount_cents, source, payment_method, date, description
		 FROM incomes WHERE user_id = ?
		 ORDER BY date DESC, id DESC LIMIT ? OFFSET ?`,
		userID, limit, skip)
	if err != nil {
		return nil, 0, fmt.Errorf("list incomes: %w", err)
	}
	defer rows.Close()

	incomes := []core.Income{}
	for rows.Next() {
		in, err := scanIncome(rows)
		if err != nil {
			return nil, 0, err
		}
		incomes = append(incomes, in)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate incomes: %w", err)
	}
	return incomes, total, nil
}

// ListExpenses returns a user's expenses newest first with the total count.
func (r *Repository) ListExpenses(ctx context.Context, userID int64, skip, limit int) ([]core.Expense, int64, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM expenses WHERE user_id = ?", userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count expenses: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, amount_cents, category, necessity, payment_method, date, description
		 FROM expenses WHERE user_id = ?
		 ORDER BY date DESC, id DESC LIMIT ? OFFSET ?`,
		userID, limit, skip)
	if err != nil {
		return nil, 0, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	expenses := []core.Expense{}
	for rows.Next() {
		ex, err := scanExpense(rows)
		if err != nil {
			return nil, 0, err
		}
		expenses = append(expenses, ex)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate expenses: %w", err)
	}
	return expenses, total, nil
}

func (r *Repository) IncomeByID(ctx context.Context, id int64) (*core.Income, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, amount_cents, source, payment_method, date, description
		 FROM incomes WHERE id = ?`, id)
	in, err := scanIncome(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &in, nil
}

func (r *Repository) ExpenseByID(ctx context.Context, id int64) (*core.Expense, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, amount_cents, category, necessity, payment_method, date, description
		 FROM expenses WHERE id = ?`, id)
	ex, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ex, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanIncome(s scanner) (core.Income, error) {
	var in core.Income
	var cents int64
	var dateStr string
	if err := s.Scan(&in.ID, &in.UserID, &cents, &in.Source, &in.PaymentMethod, &dateStr, &in.Description); err != nil {
		return core.Income{}, err
	}
	date, err := core.ParseDate(dateStr)
	if err != nil {
		return core.Income{}, fmt.Errorf("parse income date %q: %w", dateStr, err)
	}
	in.Amount = core.MoneyFromCents(cents)
	in.Date = date
	return in, nil
}

func scanExpense(s scanner) (core.Expense, error) {
	var ex core.Expense
	var cents int64
	var necessity, dateStr string
	if err := s.Scan(&ex.ID, &ex.UserID, &cents, &ex.Category, &necessity, &ex.PaymentMethod, &dateStr, &ex.Description); err != nil {
		return core.Expense{}, err
	}
	date, err := core.ParseDate(dateStr)
	if err != nil {
		return core.Expense{}, fmt.Errorf("parse expense date %q: %w", dateStr, err)
	}
	ex.Amount = core.MoneyFromCents(cents)
	ex.Necessity = core.Necessity(necessity)
	ex.Date = date
	return ex, nil
}

// ---- finance.Ledger implementation ----

// windowClause appends date bounds to a WHERE fragment. Dates are stored
// as YYYY-MM-DD text, so lexicographic comparison matches calendar order.
func windowClause(w finance.Window, args []any) (string, []any) {
	clause := ""
	if w.From != nil {
		clause += " AND date >= ?"
		args = append(args, w.From.String())
	}
	if w.To != nil {
		clause += " AND date <= ?"
		args = append(args, w.To.String())
	}
	return clause, args
}

func (r *Repository) SumIncome(ctx context.Context, userID int64, w finance.Window) (core.Money, error) {
	query := "SELECT COALESCE(SUM(amount_cents), 0) FROM incomes WHERE user_id = ?"
	args := []any{userID}
	clause, args := windowClause(w, args)

	var cents int64
	if err := r.db.QueryRowContext(ctx, query+clause, args...).Scan(&cents); err != nil {
		return core.Money{}, fmt.Errorf("sum incomes: %w", err)
	}
	return core.MoneyFromCents(cents), nil
}

func (r *Repository) SumExpense(ctx context.Context, userID int64, w finance.Window, necessity *core.Necessity) (core.Money, error) {
	query := "SELECT COALESCE(SUM(amount_cents), 0) FROM expenses WHERE user_id = ?"
	args := []any{userID}
	clause, args := windowClause(w, args)
	if necessity != nil {
		clause += " AND necessity = ?"
		args = append(args, string(*necessity))
	}

	var cents int64
	if err := r.db.QueryRowContext(ctx, query+clause, args...).Scan(&cents); err != nil {
		return core.Money{}, fmt.Errorf("sum expenses: %w", err)
	}
	return core.MoneyFromCents(cents), nil
}

func (r *Repository) ExpenseByCategory(ctx context.Context, userID int64, w finance.Window) (map[string]core.Money, error) {
	query := "SELECT category, SUM(amount_cents) FROM expenses WHERE user_id = ?"
	args := []any{userID}
	clause, args := windowClause(w, args)

	rows, err := r.db.QueryContext(ctx, query+clause+" GROUP BY category", args...)
	if err != nil {
		return nil, fmt.Errorf("expense category sums: %w", err)
	}
	defer rows.Close()

	breakdown := map[string]core.Money{}
	for rows.Next() {
		var category string
		var cents int64
		if err := rows.Scan(&category, &cents); err != nil {
			return nil, fmt.Errorf("scan category sum: %w", err)
		}
		breakdown[category] = core.MoneyFromCents(cents)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate category sums: %w", err)
	}
	return breakdown, nil
}

// TopCategory breaks ties on summed amount by category name ascending.
func (r *Repository) TopCategory(ctx context.Context, userID int64, w finance.Window) (string, bool, error) {
	query := "SELECT category FROM expenses WHERE user_id = ?"
	args := []any{userID}
	clause, args := windowClause(w, args)

	var category string
	err := r.db.QueryRowContext(ctx,
		query+clause+" GROUP BY category ORDER BY SUM(amount_cents) DESC, category ASC LIMIT 1",
		args...).Scan(&category)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("top category: %w", err)
	}
	return category, true, nil
}

// MaxExpense breaks ties on amount by lowest record id.
func (r *Repository) MaxExpense(ctx context.Context, userID int64, w finance.Window) (*core.Expense, error) {
	query := `SELECT id, user_id, amount_cents, category, necessity, payment_method, date, description
	 FROM expenses WHERE user_id = ?`
	args := []any{userID}
	clause, args := windowClause(w, args)

	row := r.db.QueryRowContext(ctx,
		query+clause+" ORDER BY amount_cents DESC, id ASC LIMIT 1", args...)
	ex, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("max expense: %w", err)
	}
	return &ex, nil
}

// TrackedDates returns the deduplicated union of income and expense dates
// across the user's whole history.
func (r *Repository) TrackedDates(ctx context.Context, userID int64) ([]core.Date, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT date FROM incomes WHERE user_id = ?
		 UNION
		 SELECT date FROM expenses WHERE user_id = ?`,
		userID, userID)
	if err != nil {
		return nil, fmt.Errorf("tracked dates: %w", err)
	}
	defer rows.Close()

	var dates []core.Date
	for rows.Next() {
		var dateStr string
		if err := rows.Scan(&dateStr); err != nil {
			return nil, fmt.Errorf("scan tracked date: %w", err)
		}
		date, err := core.ParseDate(dateStr)
		if err != nil {
			return nil, fmt.Errorf("parse tracked date %q: %w", dateStr, err)
		}
		dates = append(dates, date)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tracked dates: %w", err)
	}
	return dates, nil
}

// ---- export worker support ----

// PendingExport identifies a transaction that has not been written to the
// audit export yet.
type PendingExport struct {
	Kind string // "income" or "expense"
	ID   int64
}

// UnexportedTransactions returns up to limit transactions of both kinds
// that still carry exported = 0, oldest first.
func (r *Repository) UnexportedTransactions(ctx context.Context, limit int) ([]PendingExport, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT kind, id FROM (
		    SELECT 'income' AS kind, id, created_at FROM incomes WHERE exported = 0
		    UNION ALL
		    SELECT 'expense' AS kind, id, created_at FROM expenses WHERE exported = 0
		 ) ORDER BY created_at ASC, id ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list unexported transactions: %w", err)
	}
	defer rows.Close()

	var pending []PendingExport
	for rows.Next() {
		var p PendingExport
		if err := rows.Scan(&p.Kind, &p.ID); err != nil {
			return nil, fmt.Errorf("scan unexported transaction: %w", err)
		}
		pending = append(pending, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate unexported transactions: %w", err)
	}
	return pending, nil
}

func (r *Repository) MarkExported(ctx context.Context, kind string, id int64) error {
	var table string
	switch kind {
	case "income":
		table = "incomes"
	case "expense":
		table = "expenses"
	default:
		return fmt.Errorf("unknown transaction kind: %s", kind)
	}
	if _, err := r.db.ExecContext(ctx,
		fmt.Sprintf("UPDATE %s SET exported = 1 WHERE id = ?", table), id); err != nil {
		return fmt.Errorf("mark %s exported: %w", kind, err)
	}
	return nil
}
