package http

import (
	"errors"
	"log/slog"
	"net/http"

	"fintrack/internal/auth"
)

type registerRequest struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		MethodNotAllowedError("POST").Write(w)
		return
	}

	var req registerRequest
	if err := parseJSONBody(w, r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	_, err := s.auth.Register(r.Context(), req.FullName, req.Email, req.Password)
	switch {
	case errors.Is(err, auth.ErrEmailTaken):
		// Same body as any other registration failure so the endpoint
		// does not confirm which addresses exist.
		BadRequestError("Unable to create account").Write(w)
		return
	case errors.Is(err, auth.ErrInvalidEmail), errors.Is(err, auth.ErrWeakPassword):
		UnprocessableEntityError(err.Error()).Write(w)
		return
	case err != nil:
		slog.ErrorContext(r.Context(), "Registration failed", "error", err)
		InternalServerError("Unable to create account").Write(w)
		return
	}

	NewResponse().
		Status(http.StatusCreated).
		JSON(map[string]string{"message": "User registered successfully"}).
		Write(w)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		MethodNotAllowedError("POST").Write(w)
		return
	}

	var req loginRequest
	if err := parseJSONBody(w, r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	token, err := s.auth.Login(r.Context(), req.Email, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		UnauthorizedError("Invalid email or password").Write(w)
		return
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "Login failed", "error", err)
		InternalServerError("Login failed").Write(w)
		return
	}

	NewResponse().JSON(tokenResponse{AccessToken: token, TokenType: "bearer"}).Write(w)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		MethodNotAllowedError("POST").Write(w)
		return
	}

	if err := s.auth.Logout(r.Context(), bearerToken(r)); err != nil {
		slog.ErrorContext(r.Context(), "Logout failed", "error", err)
	}
	NewResponse().JSON(map[string]string{"message": "Logged out"}).Write(w)
}
