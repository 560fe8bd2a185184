package http

import (
	"errors"
	"log/slog"
	"net/http"

	"fintrack/internal/core"
	"fintrack/internal/finance"
)

// summary adapts one engine call to an HTTP response. The engine takes
// "today" explicitly; the server clock supplies it here.
func (s *Server) summary(w http.ResponseWriter, r *http.Request, userID int64, compute func(today core.Date) (any, error)) {
	if r.Method != http.MethodGet {
		MethodNotAllowedError("GET").Write(w)
		return
	}

	result, err := compute(core.DateOf(s.now()))
	if errors.Is(err, finance.ErrInvalidWindow) {
		BadRequestError(err.Error()).Write(w)
		return
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "Summary computation failed",
			"error", err, "user_id", userID, "url", r.URL.Path)
		InternalServerError("Failed to compute summary").Write(w)
		return
	}

	NewResponse().JSON(result).Write(w)
}

func (s *Server) handleDailySummary(w http.ResponseWriter, r *http.Request, userID int64) {
	s.summary(w, r, userID, func(today core.Date) (any, error) {
		return s.engine.Daily(r.Context(), userID, today)
	})
}

func (s *Server) handleMonthlySummary(w http.ResponseWriter, r *http.Request, userID int64) {
	s.summary(w, r, userID, func(today core.Date) (any, error) {
		return s.engine.Monthly(r.Context(), userID, today)
	})
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request, userID int64) {
	s.summary(w, r, userID, func(today core.Date) (any, error) {
		return s.engine.Insights(r.Context(), userID, today)
	})
}

func (s *Server) handleStreaks(w http.ResponseWriter, r *http.Request, userID int64) {
	s.summary(w, r, userID, func(today core.Date) (any, error) {
		return s.engine.Streaks(r.Context(), userID, today)
	})
}

func (s *Server) handleSavingsTrend(w http.ResponseWriter, r *http.Request, userID int64) {
	s.summary(w, r, userID, func(today core.Date) (any, error) {
		return s.engine.SavingsTrend(r.Context(), userID, today)
	})
}
