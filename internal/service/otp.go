package service

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"forum-backend/pkg/apierror"
)

const (
	otpMin          = 100000
	otpMax          = 999999
	resetTokenBytes = 64
	minPasswordLen  = 6
)

// GenerateOTP draws a six digit code uniformly from [100000, 999999].
func GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(otpMax-otpMin+1))
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+otpMin), nil
}

// GenerateResetToken returns 64 random bytes, hex encoded.
func GenerateResetToken() (string, error) {
	buf := make([]byte, resetTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate reset token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// MaskEmail keeps the first character of the local part and the domain:
// "user@x.com" becomes "u***@x.com".
func MaskEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at <= 1 {
		return email
	}
	return email[:1] + strings.Repeat("*", len([]rune(email[1:at]))) + email[at:]
}

func otpEqual(expected string, supplied string) bool {
	return subtle.ConstantTimeCompare([]byte(expected), []byte(supplied)) == 1
}

func hashPassword(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", apierror.BadRequest("password is too long", "at most 72 bytes")
	}
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}
