package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"

	"forum-backend/internal/model"
	"forum-backend/internal/storage"
	"forum-backend/pkg/apierror"
)

const maxJSONBody = 1 << 20

type errorMapping struct {
	target  error
	status  int
	code    string
	message string
}

var errorMappings = []errorMapping{
	{model.ErrUserNotFound, http.StatusNotFound, "NOT_FOUND", "User not found"},
	{model.ErrUserAlreadyExists, http.StatusConflict, "ALREADY_EXISTS", "User already exists"},
	{model.ErrInvalidCredentials, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid credentials"},
	{model.ErrAccountBanned, http.StatusForbidden, "ACCOUNT_BANNED", "Account is banned"},
	{model.ErrInvalidToken, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or expired token"},
	{model.ErrMissingFields, http.StatusBadRequest, "MISSING_FIELDS", "Token, OTP and password are required"},
	{model.ErrWeakPassword, http.StatusBadRequest, "WEAK_PASSWORD", "Password must be at least 6 characters"},
	{model.ErrInvalidOrExpired, http.StatusBadRequest, "INVALID_OR_EXPIRED", "Reset token is invalid or expired"},
	{model.ErrInvalidOTP, http.StatusBadRequest, "INVALID_OTP", "Invalid OTP"},
	{model.ErrSameAsPrimary, http.StatusBadRequest, "SAME_AS_PRIMARY", "Recovery email must differ from the primary email"},
	{model.ErrNoPendingChallenge, http.StatusBadRequest, "NO_PENDING_CHALLENGE", "No pending verification"},
	{model.ErrChallengeExpired, http.StatusBadRequest, "CHALLENGE_EXPIRED", "Verification code expired"},
	{model.ErrUnauthorized, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required"},
	{model.ErrForbidden, http.StatusForbidden, "FORBIDDEN", "Access denied"},
	{model.ErrCategoryNotFound, http.StatusNotFound, "NOT_FOUND", "Category not found"},
	{model.ErrThreadNotFound, http.StatusNotFound, "NOT_FOUND", "Thread not found"},
	{model.ErrPostNotFound, http.StatusNotFound, "NOT_FOUND", "Post not found"},
	{model.ErrReportNotFound, http.StatusNotFound, "NOT_FOUND", "Report not found"},
	{model.ErrResetRequestNotFound, http.StatusNotFound, "NOT_FOUND", "Reset request not found"},
	{model.ErrAttachmentNotFound, http.StatusNotFound, "NOT_FOUND", "Attachment not found"},
	{model.ErrDuplicateReport, http.StatusConflict, "CONFLICT", "You already have a pending report for this content"},
	{model.ErrInvalidInput, http.StatusBadRequest, "BAD_REQUEST", "Invalid input"},
	{context.DeadlineExceeded, http.StatusServiceUnavailable, "REQUEST_TIMEOUT", "Request timed out"},
}

func writeSuccess(w http.ResponseWriter, status int, data any, meta *model.Meta) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.APIResponse{
		Success: true,
		Data:    data,
		Meta:    meta,
	})
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	body := &model.APIError{
		Code:    "INTERNAL_ERROR",
		Message: "Unexpected server error",
	}

	var apiErr *apierror.APIError
	var validationErrs validation.Errors

	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatus
		body.Code = apiErr.Code
		body.Message = apiErr.Message
		body.Details = apiErr.Details
	case errors.As(err, &validationErrs):
		status = http.StatusBadRequest
		body.Code = "VALIDATION_ERROR"
		body.Message = "Validation failed"
		body.Details = validationErrs.Error()
	default:
		mapped := false
		for _, m := range errorMappings {
			if errors.Is(err, m.target) {
				status, body.Code, body.Message = m.status, m.code, m.message
				mapped = true
				break
			}
		}
		if !mapped {
			slog.Error("unhandled error in writeError", "error", err.Error())
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.APIResponse{
		Success: false,
		Error:   body,
	})
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeSuccess(w, status, model.MessageResponse{Message: message}, nil)
}

// decodeJSON reads a bounded JSON body into dst and runs its Validate method
// when it has one.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	defer r.Body.Close()

	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := decoder.Decode(dst); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return apierror.New("PAYLOAD_TOO_LARGE", "request body too large", "", http.StatusRequestEntityTooLarge)
		}
		if errors.Is(err, io.EOF) {
			return apierror.BadRequest("request body is required", "")
		}
		return apierror.BadRequest("invalid JSON body", "")
	}

	if v, ok := dst.(validation.Validatable); ok {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func parseIntOrDefault(raw string, fallback int) int {
	if strings.TrimSpace(raw) == "" {
		return fallback
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}

	return v
}

// streamObject copies a stored blob to the client.
func streamObject(w http.ResponseWriter, body io.ReadCloser, obj storage.Object, disposition string, filename string) {
	defer body.Close()

	contentType := obj.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	w.Header().Set("Content-Type", contentType)
	if obj.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(obj.Size, 10))
	}
	if filename != "" {
		w.Header().Set("Content-Disposition", mime.FormatMediaType(disposition, map[string]string{"filename": filename}))
	}
	w.Header().Set("Cache-Control", "private, max-age=300")
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, body); err != nil {
		slog.Warn("stream stored object", "key", obj.Key, "error", err)
	}
}

// readMultipartFile returns the reader of the named file field.
func readMultipartFile(w http.ResponseWriter, r *http.Request, field string, limit int64) (string, io.Reader, error) {
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	reader, err := r.MultipartReader()
	if err != nil {
		return "", nil, apierror.BadRequest("invalid multipart body", "")
	}

	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			return "", nil, apierror.BadRequest("file field is required", field)
		}
		if err != nil {
			var maxBytesErr *http.MaxBytesError
			if errors.As(err, &maxBytesErr) {
				return "", nil, apierror.New("FILE_TOO_LARGE", "file exceeds the upload limit", "", http.StatusRequestEntityTooLarge)
			}
			return "", nil, apierror.BadRequest("invalid multipart stream", err.Error())
		}

		if part.FormName() == field && strings.TrimSpace(part.FileName()) != "" {
			return part.FileName(), part, nil
		}
		_ = part.Close()
	}
}
