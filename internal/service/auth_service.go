package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"forum-backend/internal/model"
	"forum-backend/pkg/apierror"
)

type AuthService struct {
	users      UserStore
	tokens     *TokenService
	activity   ActivityRecorder
	bcryptCost int
	dummyHash  []byte
	now        func() time.Time
}

func NewAuthService(users UserStore, tokens *TokenService, activity ActivityRecorder, bcryptCost int) (*AuthService, error) {
	dummy, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), bcryptCost)
	if err != nil {
		return nil, err
	}

	return &AuthService{
		users:      users,
		tokens:     tokens,
		activity:   activity,
		bcryptCost: bcryptCost,
		dummyHash:  dummy,
		now:        time.Now,
	}, nil
}

// Register creates a member account. The role is never taken from the request.
func (s *AuthService) Register(ctx context.Context, req model.RegisterRequest, ip string) (model.User, error) {
	username := strings.TrimSpace(req.Username)
	email := strings.TrimSpace(req.Email)

	taken, err := s.users.EmailInUse(ctx, email, "")
	if err != nil {
		return model.User{}, err
	}
	if taken {
		return model.User{}, apierror.Conflict("email already in use", "")
	}

	taken, err = s.users.UsernameInUse(ctx, username, "")
	if err != nil {
		return model.User{}, err
	}
	if taken {
		return model.User{}, apierror.Conflict("username already in use", "")
	}

	hash, err := hashPassword(req.Password, s.bcryptCost)
	if err != nil {
		return model.User{}, err
	}

	now := s.now().UTC()
	user := model.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         model.RoleMember,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, model.ErrUserAlreadyExists) {
			return model.User{}, apierror.Conflict("username or email already in use", "")
		}
		return model.User{}, err
	}

	s.activity.Record(ctx, user.ID, "User registered: "+user.Username, ip)
	return user, nil
}

// Login answers unknown email and wrong password identically. A banned
// account is only reported once the password has been proven.
func (s *AuthService) Login(ctx context.Context, email string, password string, ip string) (model.SessionToken, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, model.ErrUserNotFound) {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		return model.SessionToken{}, model.ErrInvalidCredentials
	}
	if err != nil {
		return model.SessionToken{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.activity.Record(ctx, user.ID, "Failed login attempt", ip)
		return model.SessionToken{}, model.ErrInvalidCredentials
	}

	if user.IsBanned {
		s.activity.Record(ctx, user.ID, "Banned user attempted login", ip)
		return model.SessionToken{}, model.ErrAccountBanned
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return model.SessionToken{}, err
	}

	s.activity.Record(ctx, user.ID, "User login", ip)
	return token, nil
}

// Authenticate verifies a session token and reloads its account, rejecting
// accounts that were removed or banned after the token was issued.
func (s *AuthService) Authenticate(ctx context.Context, token string) (model.SessionClaims, model.User, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return model.SessionClaims{}, model.User{}, err
	}

	user, err := s.users.FindByID(ctx, claims.UserID)
	if errors.Is(err, model.ErrUserNotFound) {
		return model.SessionClaims{}, model.User{}, model.ErrInvalidToken
	}
	if err != nil {
		return model.SessionClaims{}, model.User{}, err
	}
	if user.IsBanned {
		return model.SessionClaims{}, model.User{}, model.ErrAccountBanned
	}

	claims.Role = user.Role
	claims.Username = user.Username
	return claims, user, nil
}

func (s *AuthService) Me(ctx context.Context, userID string) (model.User, error) {
	return s.users.FindByID(ctx, userID)
}
