package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"forum-backend/internal/model"
	"forum-backend/internal/notify"
	"forum-backend/pkg/apierror"
)

type fakeUsers struct {
	mu    sync.Mutex
	users map[string]model.User
}

func newFakeUsers(users ...model.User) *fakeUsers {
	f := &fakeUsers{users: map[string]model.User{}}
	for _, u := range users {
		f.users[u.ID] = u
	}
	return f
}

func (f *fakeUsers) get(id string) model.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.users[id]
}

func (f *fakeUsers) FindByID(_ context.Context, id string) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return model.User{}, model.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeUsers) FindByEmail(_ context.Context, email string) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if strings.EqualFold(u.Email, strings.TrimSpace(email)) {
			return u, nil
		}
	}
	return model.User{}, model.ErrUserNotFound
}

func (f *fakeUsers) FindByAnyEmail(ctx context.Context, email string) (model.User, error) {
	if u, err := f.FindByEmail(ctx, email); err == nil {
		return u, nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.RecoveryEmail != "" && strings.EqualFold(u.RecoveryEmail, strings.TrimSpace(email)) {
			return u, nil
		}
	}
	return model.User{}, model.ErrUserNotFound
}

func (f *fakeUsers) EmailInUse(_ context.Context, email string, exceptID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.ID == exceptID {
			continue
		}
		if strings.EqualFold(u.Email, email) || (u.RecoveryEmail != "" && strings.EqualFold(u.RecoveryEmail, email)) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeUsers) UsernameInUse(_ context.Context, username string, exceptID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.ID != exceptID && strings.EqualFold(u.Username, username) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeUsers) Create(_ context.Context, u model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.users {
		if strings.EqualFold(existing.Email, u.Email) || strings.EqualFold(existing.Username, u.Username) {
			return model.ErrUserAlreadyExists
		}
	}
	f.users[u.ID] = u
	return nil
}

func (f *fakeUsers) List(_ context.Context) ([]model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.User, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeUsers) update(id string, fn func(*model.User)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return model.ErrUserNotFound
	}
	fn(&u)
	f.users[id] = u
	return nil
}

func (f *fakeUsers) UpdateProfile(_ context.Context, id string, username string, email string) error {
	return f.update(id, func(u *model.User) { u.Username, u.Email = username, email })
}

func (f *fakeUsers) SetRecoveryEmail(_ context.Context, id string, email string) error {
	return f.update(id, func(u *model.User) { u.RecoveryEmail = email })
}

func (f *fakeUsers) SetBanned(_ context.Context, id string, banned bool) error {
	return f.update(id, func(u *model.User) { u.IsBanned = banned })
}

func (f *fakeUsers) SetProfilePicture(_ context.Context, id string, key string) error {
	return f.update(id, func(u *model.User) { u.ProfilePicture = key })
}

func (f *fakeUsers) Anonymize(_ context.Context, id string, username string, email string, passwordHash string) error {
	return f.update(id, func(u *model.User) {
		u.IsBanned = true
		u.Username, u.Email, u.PasswordHash = username, email, passwordHash
		u.RecoveryEmail, u.ProfilePicture = "", ""
	})
}

// fakeLedger mirrors the transactional semantics of the pgx reset ledger.
type fakeLedger struct {
	mu      sync.Mutex
	users   *fakeUsers
	entries []model.ResetRequest
}

func (f *fakeLedger) Replace(_ context.Context, req model.ResetRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.entries[:0]
	for _, e := range f.entries {
		if e.Used || !strings.EqualFold(e.Email, req.Email) {
			kept = append(kept, e)
		}
	}
	f.entries = append(kept, req)
	return nil
}

func (f *fakeLedger) FindActiveByToken(_ context.Context, token string, now time.Time) (model.ResetRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.entries {
		if e.Token == token && e.Active(now) {
			return e, nil
		}
	}
	return model.ResetRequest{}, model.ErrInvalidOrExpired
}

func (f *fakeLedger) Redeem(ctx context.Context, token string, now time.Time, check func(model.ResetRequest) (string, error)) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, e := range f.entries {
		if e.Token != token || !e.Active(now) {
			continue
		}
		hash, err := check(e)
		if err != nil {
			return "", err
		}
		user, err := f.users.FindByAnyEmail(ctx, e.Email)
		if err != nil {
			return "", err
		}
		f.entries[i].Used = true
		if err := f.users.update(user.ID, func(u *model.User) { u.PasswordHash = hash }); err != nil {
			return "", err
		}
		return user.ID, nil
	}
	return "", model.ErrInvalidOrExpired
}

func (f *fakeLedger) ListActive(_ context.Context, now time.Time) ([]model.ResetRequestView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	views := make([]model.ResetRequestView, 0)
	for _, e := range f.entries {
		if e.Active(now) {
			views = append(views, model.ResetRequestView{ID: e.ID, Email: e.Email, OTP: e.OTP, Token: e.Token, ExpiresAt: e.ExpiresAt})
		}
	}
	return views, nil
}

func (f *fakeLedger) MarkUsed(_ context.Context, id string, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, e := range f.entries {
		if e.ID == id && !e.Used {
			f.entries[i].Used = true
			return nil
		}
	}
	return model.ErrResetRequestNotFound
}

func (f *fakeLedger) pending(email string, now time.Time) []model.ResetRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.ResetRequest, 0)
	for _, e := range f.entries {
		if strings.EqualFold(e.Email, email) && e.Active(now) {
			out = append(out, e)
		}
	}
	return out
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []notify.Message
	err  error
}

func (f *fakeNotifier) Send(_ context.Context, msg notify.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeNotifier) messages() []notify.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]notify.Message(nil), f.sent...)
}

type recordedActivity struct {
	UserID string
	Action string
	IP     string
}

type fakeActivity struct {
	mu      sync.Mutex
	entries []recordedActivity
}

func (f *fakeActivity) Record(_ context.Context, userID string, action string, ip string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, recordedActivity{UserID: userID, Action: action, IP: ip})
}

func (f *fakeActivity) actions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.entries))
	for _, e := range f.entries {
		out = append(out, e.Action)
	}
	return out
}

type fakeActivityStore struct {
	entries []model.ActivityEntry
	err     error
}

func (f *fakeActivityStore) Insert(_ context.Context, entry model.ActivityEntry) error {
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeActivityStore) Query(_ context.Context, _ model.ActivityQuery) ([]model.ActivityEntry, model.Meta, error) {
	return f.entries, model.Meta{Page: 1, Limit: 50, Total: len(f.entries)}, nil
}

func (f *fakeActivityStore) Recent(_ context.Context, userID string, limit int) ([]model.ActivityEntry, error) {
	out := make([]model.ActivityEntry, 0)
	for _, e := range f.entries {
		if e.UserID == userID && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

var errBoom = errors.New("boom")

func isStatus(err error, status int) bool {
	var apiErr *apierror.APIError
	return errors.As(err, &apiErr) && apiErr.HTTPStatus == status
}
