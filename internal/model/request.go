package model

import (
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r RegisterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required, validation.Length(3, 50), validation.Match(usernamePattern)),
		validation.Field(&r.Email, validation.Required, validation.Length(3, 255), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(6, 72)),
	)
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

type RequestResetRequest struct {
	Email string `json:"email"`
}

func (r RequestResetRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
	)
}

type CompleteResetRequest struct {
	Token    string `json:"token"`
	OTP      string `json:"otp"`
	Password string `json:"password"`
}

type SetRecoveryEmailRequest struct {
	Email string `json:"email"`
}

func (r SetRecoveryEmailRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.Length(3, 255), is.Email),
	)
}

type VerifyRecoveryEmailRequest struct {
	OTP string `json:"otp"`
}

type UpdateProfileRequest struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
}

func (r UpdateProfileRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.NilOrNotEmpty, validation.Length(3, 50), validation.Match(usernamePattern)),
		validation.Field(&r.Email, validation.NilOrNotEmpty, validation.Length(3, 255), is.Email),
	)
}

type CategoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (r CategoryRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 100)),
		validation.Field(&r.Description, validation.Length(0, 500)),
	)
}

type ThreadRequest struct {
	Title      string `json:"title"`
	Content    string `json:"content"`
	CategoryID string `json:"category_id"`
}

func (r ThreadRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Required, validation.Length(1, 255)),
		validation.Field(&r.Content, validation.Required),
		validation.Field(&r.CategoryID, validation.Required),
	)
}

type UpdateThreadRequest struct {
	Title      *string `json:"title"`
	Content    *string `json:"content"`
	CategoryID *string `json:"category_id"`
}

func (r UpdateThreadRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.NilOrNotEmpty, validation.Length(1, 255)),
		validation.Field(&r.Content, validation.NilOrNotEmpty),
		validation.Field(&r.CategoryID, validation.NilOrNotEmpty),
	)
}

type PostRequest struct {
	ThreadID string `json:"thread_id"`
	Content  string `json:"content"`
}

func (r PostRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ThreadID, validation.Required),
		validation.Field(&r.Content, validation.Required),
	)
}

type UpdatePostRequest struct {
	Content string `json:"content"`
}

func (r UpdatePostRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Content, validation.Required),
	)
}

type ToggleLikeRequest struct {
	TargetType string `json:"target_type"`
	TargetID   string `json:"target_id"`
	Value      int    `json:"value"`
}

func (r ToggleLikeRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.TargetType, validation.Required, validation.In(TargetPost, TargetThread)),
		validation.Field(&r.TargetID, validation.Required),
		validation.Field(&r.Value, validation.Required, validation.In(1, -1)),
	)
}

type ReportRequest struct {
	TargetType string `json:"target_type"`
	TargetID   string `json:"target_id"`
	Reason     string `json:"reason"`
}

func (r ReportRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.TargetType, validation.Required, validation.In(TargetPost, TargetThread, TargetUser)),
		validation.Field(&r.TargetID, validation.Required),
		validation.Field(&r.Reason, validation.Required, validation.Length(1, 1000)),
	)
}

type ReportStatusRequest struct {
	Status     string `json:"status"`
	AdminNotes string `json:"admin_notes"`
}

func (r ReportStatusRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Status, validation.Required, validation.In(ReportReviewed, ReportResolved, ReportRejected)),
	)
}

type WarningRequest struct {
	Message string `json:"message"`
}

func (r WarningRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Message, validation.Required, validation.Length(1, 1000)),
	)
}

type MarkReadRequest struct {
	IDs []string `json:"ids"`
}
