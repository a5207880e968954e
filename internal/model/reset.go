package model

import "time"

// ResetRequest is a ledger entry pairing a reset token and OTP with an email.
type ResetRequest struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Token     string    `json:"-"`
	OTP       string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
	Used      bool      `json:"used"`
	CreatedAt time.Time `json:"created_at"`
}

// Active reports whether the entry can still be redeemed at now.
func (r ResetRequest) Active(now time.Time) bool {
	return !r.Used && r.ExpiresAt.After(now)
}

// ResetRequestView is the admin listing of a pending entry.
type ResetRequestView struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	OTP       string    `json:"otp"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
	UserID    string    `json:"user_id,omitempty"`
	Username  string    `json:"username,omitempty"`
}

type TokenPreview struct {
	Valid bool   `json:"valid"`
	Email string `json:"email"`
}

// RecoveryChallenge is the pending recovery-email verification of one session.
type RecoveryChallenge struct {
	UserID    string
	Email     string
	OTP       string
	ExpiresAt time.Time
}
