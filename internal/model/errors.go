package model

import "errors"

var (
	// Account errors
	ErrUserNotFound       = errors.New("user not found")
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountBanned      = errors.New("account is banned")

	// Session token errors
	ErrInvalidToken = errors.New("invalid or expired session token")

	// Password reset errors
	ErrMissingFields    = errors.New("token, otp and password are required")
	ErrWeakPassword     = errors.New("password must be at least 6 characters")
	ErrInvalidOrExpired = errors.New("reset token is invalid or expired")
	ErrInvalidOTP       = errors.New("invalid otp")

	// Recovery email errors
	ErrSameAsPrimary      = errors.New("recovery email must differ from primary email")
	ErrNoPendingChallenge = errors.New("no pending verification")
	ErrChallengeExpired   = errors.New("verification code expired")

	// Permission errors
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// Forum content errors
	ErrCategoryNotFound     = errors.New("category not found")
	ErrThreadNotFound       = errors.New("thread not found")
	ErrPostNotFound         = errors.New("post not found")
	ErrReportNotFound       = errors.New("report not found")
	ErrResetRequestNotFound = errors.New("reset request not found")
	ErrDuplicateReport      = errors.New("report already pending")
	ErrAttachmentNotFound   = errors.New("attachment not found")

	ErrInvalidInput = errors.New("invalid input")
)
