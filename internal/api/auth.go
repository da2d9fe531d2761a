package api

import (
	"encoding/json"
	"mime"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/starford/mindmaps/internal/authservice"
)

// AuthHandler holds the account route handlers.
type AuthHandler struct {
	auth *authservice.Service
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(auth *authservice.Service) *AuthHandler {
	return &AuthHandler{auth: auth}
}

func emailParam(r *http.Request) string {
	raw := chi.URLParam(r, "email")
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// Signup handles POST /auth/signup.
//
//	@Summary		Register a new account
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		SignupRequest	true	"Account to create"
//	@Success		201		{object}	messageResponse
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Router			/auth/signup [post]
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.auth.Signup(r.Context(), req); err != nil {
		writeError(w, "signup", err)
		return
	}
	writeJSON(w, http.StatusCreated, messageResponse{Message: "user created"})
}

type loginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login handles POST /auth/token. It reads an OAuth2-style password form
// (username, password); a JSON body with the same fields is accepted too.
//
//	@Summary		Exchange credentials for a bearer token
//	@Tags			auth
//	@Accept			x-www-form-urlencoded
//	@Produce		json
//	@Param			username	formData	string	true	"Email"
//	@Param			password	formData	string	true	"Password"
//	@Success		200			{object}	TokenResponse
//	@Failure		401			{object}	errResponse
//	@Router			/auth/token [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "application/json" {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("invalid form body"))
			return
		}
		req.Username = r.PostForm.Get("username")
		req.Email = r.PostForm.Get("email")
		req.Password = r.PostForm.Get("password")
	}

	email := req.Username
	if email == "" {
		email = req.Email
	}
	tok, err := h.auth.Login(r.Context(), email, req.Password)
	if err != nil {
		writeError(w, "login", err)
		return
	}
	writeJSON(w, http.StatusOK, tok)
}

// CheckEmail handles GET /auth/check-email/{email}.
//
//	@Summary		Report whether an email is registered
//	@Tags			auth
//	@Produce		json
//	@Param			email	path		string	true	"Email"
//	@Success		200		{object}	CheckEmailResponse
//	@Router			/auth/check-email/{email} [get]
func (h *AuthHandler) CheckEmail(w http.ResponseWriter, r *http.Request) {
	ok, err := h.auth.CheckEmailExists(r.Context(), emailParam(r))
	if err != nil {
		writeError(w, "check email", err)
		return
	}
	writeJSON(w, http.StatusOK, CheckEmailResponse{Exists: ok})
}

// SecurityQuestion handles GET /auth/security-question/{email}.
//
//	@Summary		Get the security question and hint of an account
//	@Tags			auth
//	@Produce		json
//	@Param			email	path		string	true	"Email"
//	@Success		200		{object}	SecurityQuestionResponse
//	@Failure		404		{object}	errResponse
//	@Router			/auth/security-question/{email} [get]
func (h *AuthHandler) SecurityQuestion(w http.ResponseWriter, r *http.Request) {
	q, err := h.auth.GetSecurityQuestion(r.Context(), emailParam(r))
	if err != nil {
		writeError(w, "security question", err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

// ResetPassword handles POST /auth/reset-password.
//
//	@Summary		Reset a password by answering the security question
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ResetPasswordRequest	true	"Reset request"
//	@Success		200		{object}	messageResponse
//	@Failure		400		{object}	errResponse
//	@Router			/auth/reset-password [post]
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.auth.ResetPassword(r.Context(), req); err != nil {
		writeError(w, "reset password", err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "password reset"})
}
