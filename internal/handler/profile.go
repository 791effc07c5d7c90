package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/voclaria/voclaria/internal/ctxkeys"
	"github.com/voclaria/voclaria/internal/response"
	"github.com/voclaria/voclaria/internal/service"
	"github.com/voclaria/voclaria/internal/validation"
)

type ProfileHandler struct {
	profileService *service.ProfileService
	authService    *service.AuthService
	avatarRules    validation.ImageRules
}

// NewProfileHandler accepts avatar uploads of at most maxAvatarBytes.
func NewProfileHandler(profileService *service.ProfileService, authService *service.AuthService, maxAvatarBytes int64) *ProfileHandler {
	rules := validation.AvatarRules
	if maxAvatarBytes > 0 {
		rules.MaxSize = maxAvatarBytes
	}
	return &ProfileHandler{
		profileService: profileService,
		authService:    authService,
		avatarRules:    rules,
	}
}

type nameRequest struct {
	Name string `json:"name"`
}

type passwordRequest struct {
	Password string `json:"password"`
}

type avatarResponse struct {
	UserID string `json:"user_id"`
	URL    string `json:"url"`
}

// UpdateName handles PATCH /app/profile/name.
func (h *ProfileHandler) UpdateName(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	var req nameRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.profileService.UpdateName(r.Context(), user.ID, req.Name); err != nil {
		writeError(w, r, err, "Failed to update name")
		return
	}

	profile, err := h.profileService.ByID(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, err, "Failed to load profile")
		return
	}
	response.Success(w, http.StatusOK, profile, ctxkeys.RequestID(r.Context()))
}

// UploadAvatar handles POST /app/profile/avatar with a multipart "avatar"
// field and returns the new signed URL.
func (h *ProfileHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())
	requestID := ctxkeys.RequestID(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, h.avatarRules.MaxSize+(1<<20))
	if err := r.ParseMultipartForm(h.avatarRules.MaxSize); err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_FORM", "Failed to parse form", requestID)
		return
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			slog.Warn("failed to remove multipart temp files", "error", err)
		}
	}()

	file, header, err := r.FormFile("avatar")
	if err != nil {
		response.Err(w, http.StatusBadRequest, "VALIDATION_ERROR", "No file uploaded", requestID)
		return
	}
	defer func() {
		if err := file.Close(); err != nil {
			slog.Error("failed to close file", "error", err)
		}
	}()

	img, err := h.avatarRules.CheckImage(header)
	if err != nil {
		writeError(w, r, err, "Failed to upload avatar")
		return
	}

	url, err := h.profileService.UploadAvatar(r.Context(), user.ID, file, "avatar"+img.Ext, img.ContentType)
	if err != nil {
		writeError(w, r, err, "Failed to upload avatar")
		return
	}
	response.Success(w, http.StatusOK, avatarResponse{UserID: user.ID, URL: url}, requestID)
}

// ChangePassword handles POST /app/profile/password.
func (h *ProfileHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	var req passwordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.authService.UpdatePassword(r.Context(), user.ID, req.Password); err != nil {
		writeError(w, r, err, "Failed to change password")
		return
	}
	response.NoContent(w)
}

// CompletePreassessment handles POST /app/profile/preassessment.
func (h *ProfileHandler) CompletePreassessment(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())
	if err := h.profileService.CompletePreassessment(r.Context(), user.ID); err != nil {
		writeError(w, r, err, "Failed to save pre-assessment")
		return
	}
	response.NoContent(w)
}

// Avatar handles GET /app/avatars/{userID}. An empty url means no avatar is
// stored and the client shows its placeholder.
func (h *ProfileHandler) Avatar(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	response.Success(w, http.StatusOK, avatarResponse{
		UserID: userID,
		URL:    h.profileService.AvatarURL(r.Context(), userID),
	}, ctxkeys.RequestID(r.Context()))
}
