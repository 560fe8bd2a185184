package http

import (
	"log/slog"
	"net/http"

	"fintrack/internal/core"
)

type incomeRequest struct {
	Amount        string `json:"amount"`
	Source        string `json:"source"`
	PaymentMethod string `json:"payment_method"`
	Date          string `json:"date"`
	Description   string `json:"description,omitempty"`
}

type expenseRequest struct {
	Amount        string `json:"amount"`
	Category      string `json:"category"`
	Necessity     string `json:"necessity_type"`
	PaymentMethod string `json:"payment_method"`
	Date          string `json:"date"`
	Description   string `json:"description,omitempty"`
}

type incomeResponse struct {
	ID            int64      `json:"id"`
	Amount        core.Money `json:"amount"`
	Source        string     `json:"source"`
	PaymentMethod string     `json:"payment_method"`
	Date          core.Date  `json:"date"`
	Description   string     `json:"description,omitempty"`
}

type expenseResponse struct {
	ID            int64      `json:"id"`
	Amount        core.Money `json:"amount"`
	Category      string     `json:"category"`
	Necessity     string     `json:"necessity_type"`
	PaymentMethod string     `json:"payment_method"`
	Date          core.Date  `json:"date"`
	Description   string     `json:"description,omitempty"`
}

// paginatedResponse is the list envelope: total count plus the window.
type paginatedResponse struct {
	Total int64 `json:"total"`
	Skip  int   `json:"skip"`
	Limit int   `json:"limit"`
	Data  any   `json:"data"`
}

func (s *Server) handleIncome(w http.ResponseWriter, r *http.Request, userID int64) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreateIncome(w, r, userID)
	case http.MethodGet:
		s.handleListIncomes(w, r, userID)
	default:
		MethodNotAllowedError("GET, POST").Write(w)
	}
}

func (s *Server) handleExpense(w http.ResponseWriter, r *http.Request, userID int64) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreateExpense(w, r, userID)
	case http.MethodGet:
		s.handleListExpenses(w, r, userID)
	default:
		MethodNotAllowedError("GET, POST").Write(w)
	}
}

func (s *Server) handleCreateIncome(w http.ResponseWriter, r *http.Request, userID int64) {
	var req incomeRequest
	if err := parseJSONBody(w, r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	amount, err := core.ParseMoney(req.Amount)
	if err != nil {
		UnprocessableEntityError("Invalid amount").Write(w)
		return
	}
	date, err := core.ParseDate(req.Date)
	if err != nil {
		UnprocessableEntityError("Invalid date, expected YYYY-MM-DD").Write(w)
		return
	}

	income := core.Income{
		UserID:        userID,
		Amount:        amount,
		Source:        req.Source,
		PaymentMethod: req.PaymentMethod,
		Date:          date,
		Description:   req.Description,
	}
	if err := income.Validate(); err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}

	id, err := s.tx.RecordIncome(r.Context(), income)
	if err != nil {
		slog.ErrorContext(r.Context(), "Income create error", "error", err, "user_id", userID)
		InternalServerError("Failed to save income").Write(w)
		return
	}
	income.ID = id

	NewResponse().Status(http.StatusCreated).JSON(toIncomeResponse(income)).Write(w)
}

func (s *Server) handleListIncomes(w http.ResponseWriter, r *http.Request, userID int64) {
	p, err := ParsePagination(r.URL.Query())
	if err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}

	incomes, total, err := s.store.ListIncomes(r.Context(), userID, p.Skip, p.Limit)
	if err != nil {
		slog.ErrorContext(r.Context(), "Income list error", "error", err, "user_id", userID)
		InternalServerError("Failed to list incomes").Write(w)
		return
	}

	data := make([]incomeResponse, len(incomes))
	for i, in := range incomes {
		data[i] = toIncomeResponse(in)
	}
	NewResponse().JSON(paginatedResponse{Total: total, Skip: p.Skip, Limit: p.Limit, Data: data}).Write(w)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request, userID int64) {
	var req expenseRequest
	if err := parseJSONBody(w, r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	amount, err := core.ParseMoney(req.Amount)
	if err != nil {
		UnprocessableEntityError("Invalid amount").Write(w)
		return
	}
	date, err := core.ParseDate(req.Date)
	if err != nil {
		UnprocessableEntityError("Invalid date, expected YYYY-MM-DD").Write(w)
		return
	}

	expense := core.Expense{
		UserID:        userID,
		Amount:        amount,
		Category:      req.Category,
		Necessity:     core.Necessity(req.Necessity),
		PaymentMethod: req.PaymentMethod,
		Date:          date,
		Description:   req.Description,
	}
	if err := expense.Validate(); err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}

	id, err := s.tx.RecordExpense(r.Context(), expense)
	if err != nil {
		slog.ErrorContext(r.Context(), "Expense create error", "error", err, "user_id", userID)
		InternalServerError("Failed to save expense").Write(w)
		return
	}
	expense.ID = id

	NewResponse().Status(http.StatusCreated).JSON(toExpenseResponse(expense)).Write(w)
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request, userID int64) {
	p, err := ParsePagination(r.URL.Query())
	if err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}

	expenses, total, err := s.store.ListExpenses(r.Context(), userID, p.Skip, p.Limit)
	if err != nil {
		slog.ErrorContext(r.Context(), "Expense list error", "error", err, "user_id", userID)
		InternalServerError("Failed to list expenses").Write(w)
		return
	}

	data := make([]expenseResponse, len(expenses))
	for i, ex := range expenses {
		data[i] = toExpenseResponse(ex)
	}
	NewResponse().JSON(paginatedResponse{Total: total, Skip: p.Skip, Limit: p.Limit, Data: data}).Write(w)
}

func toIncomeResponse(in core.Income) incomeResponse {
	return incomeResponse{
		ID:            in.ID,
		Amount:        in.Amount,
		Source:        in.Source,
		PaymentMethod: in.PaymentMethod,
		Date:          in.Date,
		Description:   in.Description,
	}
}

func toExpenseResponse(ex core.Expense) expenseResponse {
	return expenseResponse{
		ID:            ex.ID,
		Amount:        ex.Amount,
		Category:      ex.Category,
		Necessity:     string(ex.Necessity),
		PaymentMethod: ex.PaymentMethod,
		Date:          ex.Date,
		Description:   ex.Description,
	}
}
