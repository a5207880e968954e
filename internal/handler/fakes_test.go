package handler

import (
	"context"
	"strings"
	"sync"
	"time"

	"forum-backend/internal/model"
	"forum-backend/internal/notify"
)

type memUsers struct {
	mu    sync.Mutex
	users map[string]model.User
}

func newMemUsers() *memUsers {
	return &memUsers{users: map[string]model.User{}}
}

func (m *memUsers) FindByID(_ context.Context, id string) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return model.User{}, model.ErrUserNotFound
	}
	return u, nil
}

func (m *memUsers) find(match func(model.User) bool) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if match(u) {
			return u, nil
		}
	}
	return model.User{}, model.ErrUserNotFound
}

func (m *memUsers) FindByEmail(_ context.Context, email string) (model.User, error) {
	return m.find(func(u model.User) bool { return strings.EqualFold(u.Email, email) })
}

func (m *memUsers) FindByAnyEmail(_ context.Context, email string) (model.User, error) {
	return m.find(func(u model.User) bool {
		return strings.EqualFold(u.Email, email) || (u.RecoveryEmail != "" && strings.EqualFold(u.RecoveryEmail, email))
	})
}

func (m *memUsers) EmailInUse(_ context.Context, email string, exceptID string) (bool, error) {
	_, err := m.find(func(u model.User) bool {
		return u.ID != exceptID && (strings.EqualFold(u.Email, email) || strings.EqualFold(u.RecoveryEmail, email))
	})
	return err == nil, nil
}

func (m *memUsers) UsernameInUse(_ context.Context, username string, exceptID string) (bool, error) {
	_, err := m.find(func(u model.User) bool { return u.ID != exceptID && strings.EqualFold(u.Username, username) })
	return err == nil, nil
}

func (m *memUsers) Create(_ context.Context, u model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
	return nil
}

func (m *memUsers) List(_ context.Context) ([]model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	return out, nil
}

func (m *memUsers) update(id string, fn func(*model.User)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return model.ErrUserNotFound
	}
	fn(&u)
	m.users[id] = u
	return nil
}

func (m *memUsers) UpdateProfile(_ context.Context, id string, username string, email string) error {
	return m.update(id, func(u *model.User) { u.Username, u.Email = username, email })
}

func (m *memUsers) SetRecoveryEmail(_ context.Context, id string, email string) error {
	return m.update(id, func(u *model.User) { u.RecoveryEmail = email })
}

func (m *memUsers) SetBanned(_ context.Context, id string, banned bool) error {
	return m.update(id, func(u *model.User) { u.IsBanned = banned })
}

func (m *memUsers) SetProfilePicture(_ context.Context, id string, key string) error {
	return m.update(id, func(u *model.User) { u.ProfilePicture = key })
}

func (m *memUsers) Anonymize(_ context.Context, id string, username string, email string, passwordHash string) error {
	return m.update(id, func(u *model.User) {
		u.Username, u.Email, u.PasswordHash, u.IsBanned = username, email, passwordHash, true
	})
}

type memLedger struct {
	mu      sync.Mutex
	users   *memUsers
	entries []model.ResetRequest
}

func (m *memLedger) Replace(_ context.Context, req model.ResetRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := make([]model.ResetRequest, 0, len(m.entries)+1)
	for _, e := range m.entries {
		if e.Used || !strings.EqualFold(e.Email, req.Email) {
			kept = append(kept, e)
		}
	}
	m.entries = append(kept, req)
	return nil
}

func (m *memLedger) FindActiveByToken(_ context.Context, token string, now time.Time) (model.ResetRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.Token == token && e.Active(now) {
			return e, nil
		}
	}
	return model.ResetRequest{}, model.ErrInvalidOrExpired
}

func (m *memLedger) Redeem(ctx context.Context, token string, now time.Time, check func(model.ResetRequest) (string, error)) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, e := range m.entries {
		if e.Token != token || !e.Active(now) {
			continue
		}
		hash, err := check(e)
		if err != nil {
			return "", err
		}
		user, err := m.users.FindByAnyEmail(ctx, e.Email)
		if err != nil {
			return "", err
		}
		m.entries[i].Used = true
		return user.ID, m.users.update(user.ID, func(u *model.User) { u.PasswordHash = hash })
	}
	return "", model.ErrInvalidOrExpired
}

func (m *memLedger) ListActive(_ context.Context, now time.Time) ([]model.ResetRequestView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.ResetRequestView, 0)
	for _, e := range m.entries {
		if e.Active(now) {
			out = append(out, model.ResetRequestView{ID: e.ID, Email: e.Email, OTP: e.OTP, Token: e.Token, ExpiresAt: e.ExpiresAt})
		}
	}
	return out, nil
}

func (m *memLedger) MarkUsed(_ context.Context, id string, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, e := range m.entries {
		if e.ID == id && !e.Used {
			m.entries[i].Used = true
			return nil
		}
	}
	return model.ErrResetRequestNotFound
}

func (m *memLedger) active() []model.ResetRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.ResetRequest, 0)
	for _, e := range m.entries {
		if !e.Used {
			out = append(out, e)
		}
	}
	return out
}

type nopActivity struct{}

func (nopActivity) Record(context.Context, string, string, string) {}

type memNotifier struct {
	mu   sync.Mutex
	sent []notify.Message
}

func (m *memNotifier) Send(_ context.Context, msg notify.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

func (m *memNotifier) messages() []notify.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]notify.Message(nil), m.sent...)
}
