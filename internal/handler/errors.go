package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/voclaria/voclaria/internal/ctxkeys"
	"github.com/voclaria/voclaria/internal/response"
	"github.com/voclaria/voclaria/internal/service"
	"github.com/voclaria/voclaria/internal/validation"
)

type errorMapping struct {
	err    error
	status int
	code   string
}

// knownErrors maps service sentinels to a status and a stable code. The
// sentinel's own text is the message.
var knownErrors = []errorMapping{
	{service.ErrInvalidEmail, http.StatusBadRequest, "VALIDATION_ERROR"},
	{service.ErrInvalidRole, http.StatusBadRequest, "VALIDATION_ERROR"},
	{service.ErrInvalidProgress, http.StatusBadRequest, "VALIDATION_ERROR"},
	{service.ErrJoinRequestMissing, http.StatusBadRequest, "VALIDATION_ERROR"},
	{service.ErrPostContentMissing, http.StatusBadRequest, "VALIDATION_ERROR"},
	{service.ErrCommentMissing, http.StatusBadRequest, "VALIDATION_ERROR"},
	{service.ErrCommentTooLong, http.StatusBadRequest, "VALIDATION_ERROR"},
	{service.ErrInvalidRating, http.StatusBadRequest, "VALIDATION_ERROR"},
	{service.ErrInvalidToken, http.StatusBadRequest, "INVALID_TOKEN"},
	{service.ErrInvalidCredentials, http.StatusUnauthorized, "INVALID_CREDENTIALS"},
	{service.ErrUnauthenticated, http.StatusUnauthorized, "UNAUTHORIZED"},
	{service.ErrEmailNotConfirmed, http.StatusForbidden, "EMAIL_NOT_CONFIRMED"},
	{service.ErrProfileNotFound, http.StatusNotFound, "NOT_FOUND"},
	{service.ErrLiveSessionNotFound, http.StatusNotFound, "NOT_FOUND"},
	{service.ErrTeacherNotFound, http.StatusNotFound, "NOT_FOUND"},
	{service.ErrLessonNotFound, http.StatusNotFound, "NOT_FOUND"},
	{service.ErrNoJoinRequests, http.StatusNotFound, "NOT_FOUND"},
	{service.ErrPostNotFound, http.StatusNotFound, "NOT_FOUND"},
	{service.ErrNotificationNotFound, http.StatusNotFound, "NOT_FOUND"},
	{service.ErrCommentsDisabled, http.StatusForbidden, "COMMENTS_DISABLED"},
	{service.ErrEmailAlreadyExists, http.StatusConflict, "CONFLICT"},
	{service.ErrJoinRequestExists, http.StatusConflict, "CONFLICT"},
	{service.ErrAlreadyEnrolled, http.StatusConflict, "CONFLICT"},
	{service.ErrAlreadyLive, http.StatusConflict, "CONFLICT"},
	{service.ErrSessionNotLive, http.StatusConflict, "CONFLICT"},
	{service.ErrNotAttending, http.StatusConflict, "CONFLICT"},
}

// writeError answers with the mapped status for known errors. Anything else
// is logged and reported as a 500 carrying fallback as the message.
func writeError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	requestID := ctxkeys.RequestID(r.Context())

	var mismatch *service.RoleMismatchError
	if errors.As(err, &mismatch) {
		response.Err(w, http.StatusForbidden, "ROLE_MISMATCH", mismatch.Error(), requestID)
		return
	}
	if validation.IsValidation(err) {
		response.Err(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), requestID)
		return
	}
	for _, m := range knownErrors {
		if errors.Is(err, m.err) {
			response.Err(w, m.status, m.code, m.err.Error(), requestID)
			return
		}
	}

	slog.Error(fallback, "error", err, "request_id", requestID)
	response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", fallback, requestID)
}

// decodeJSON reads a JSON body of at most 1 MB into v. On failure it writes
// the 400 response and returns false.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_JSON", "Request body must be valid JSON", ctxkeys.RequestID(r.Context()))
		return false
	}
	return true
}
