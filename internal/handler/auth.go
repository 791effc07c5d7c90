package handler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/voclaria/voclaria/internal/ctxkeys"
	"github.com/voclaria/voclaria/internal/model"
	"github.com/voclaria/voclaria/internal/response"
	"github.com/voclaria/voclaria/internal/service"
)

type AuthHandler struct {
	authService    *service.AuthService
	profileService *service.ProfileService
}

func NewAuthHandler(authService *service.AuthService, profileService *service.ProfileService) *AuthHandler {
	return &AuthHandler{
		authService:    authService,
		profileService: profileService,
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type loginResponse struct {
	*service.SignInResult
	AvatarURL string `json:"avatar_url"`
}

type emailRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

type meResponse struct {
	UserID    string         `json:"user_id"`
	Email     string         `json:"email"`
	Confirmed bool           `json:"email_confirmed"`
	Profile   *model.Profile `json:"profile"`
	AvatarURL string         `json:"avatar_url"`
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterInput
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.authService.Register(r.Context(), req)
	if err != nil {
		writeError(w, r, err, "Failed to create account")
		return
	}

	response.Success(w, http.StatusCreated, map[string]any{
		"user_id":                     user.ID,
		"email":                       user.Email,
		"email_confirmation_required": true,
	}, ctxkeys.RequestID(r.Context()))
}

// Login handles POST /auth/login. The role picks which login screen the
// caller came from.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.authService.SignIn(r.Context(), req.Email, req.Password, strings.ToLower(strings.TrimSpace(req.Role)))
	if err != nil {
		writeError(w, r, err, "Failed to sign in")
		return
	}

	response.Success(w, http.StatusOK, loginResponse{
		SignInResult: res,
		AvatarURL:    h.profileService.AvatarURL(r.Context(), res.UserID),
	}, ctxkeys.RequestID(r.Context()))
}

// Logout handles POST /auth/logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.authService.SignOut(r.Context(), ctxkeys.SessionID(r.Context())); err != nil {
		writeError(w, r, err, "Failed to sign out")
		return
	}
	response.NoContent(w)
}

// Me handles GET /auth/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())
	response.Success(w, http.StatusOK, meResponse{
		UserID:    user.ID,
		Email:     user.Email,
		Confirmed: user.IsConfirmed(),
		Profile:   ctxkeys.Profile(r.Context()),
		AvatarURL: h.profileService.AvatarURL(r.Context(), user.ID),
	}, ctxkeys.RequestID(r.Context()))
}

// ConfirmEmail handles GET /auth/confirm/{token}.
func (h *AuthHandler) ConfirmEmail(w http.ResponseWriter, r *http.Request) {
	if err := h.authService.ConfirmEmail(r.Context(), chi.URLParam(r, "token")); err != nil {
		writeError(w, r, err, "Failed to confirm email")
		return
	}
	response.Success(w, http.StatusOK, map[string]bool{"confirmed": true}, ctxkeys.RequestID(r.Context()))
}

// ResendConfirmation handles POST /auth/confirm/resend.
func (h *AuthHandler) ResendConfirmation(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.authService.ResendConfirmation(r.Context(), req.Email); err != nil {
		writeError(w, r, err, "Failed to send confirmation email")
		return
	}
	response.Success(w, http.StatusAccepted, map[string]string{
		"message": "If that address needs confirming, a new link is on its way",
	}, ctxkeys.RequestID(r.Context()))
}

// ForgotPassword handles POST /auth/password/forgot. The answer is the same
// whether or not the address has an account.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.authService.RequestPasswordReset(r.Context(), req.Email); err != nil {
		writeError(w, r, err, "Failed to send reset email")
		return
	}
	response.Success(w, http.StatusAccepted, map[string]string{
		"message": "If an account exists for that address, a reset link is on its way",
	}, ctxkeys.RequestID(r.Context()))
}

// ResetPassword handles POST /auth/password/reset.
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.authService.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		writeError(w, r, err, "Failed to reset password")
		return
	}
	response.Success(w, http.StatusOK, map[string]bool{"reset": true}, ctxkeys.RequestID(r.Context()))
}
