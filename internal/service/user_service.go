package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"forum-backend/internal/model"
	"forum-backend/internal/storage"
	"forum-backend/pkg/apierror"
)

// unusableHash is not a valid bcrypt hash, so no password ever matches it.
const unusableHash = "!deleted"

type UserService struct {
	users    UserStore
	uploads  *UploadService
	activity ActivityRecorder
	now      func() time.Time
}

func NewUserService(users UserStore, uploads *UploadService, activity ActivityRecorder) *UserService {
	return &UserService{users: users, uploads: uploads, activity: activity, now: time.Now}
}

func (s *UserService) Get(ctx context.Context, id string) (model.User, error) {
	if !validID(id) {
		return model.User{}, model.ErrUserNotFound
	}
	return s.users.FindByID(ctx, id)
}

func (s *UserService) List(ctx context.Context) ([]model.User, error) {
	return s.users.List(ctx)
}

func (s *UserService) UpdateProfile(ctx context.Context, actor model.Actor, id string, req model.UpdateProfileRequest) (model.User, error) {
	if !actor.CanModify(id) {
		return model.User{}, model.ErrForbidden
	}

	user, err := s.Get(ctx, id)
	if err != nil {
		return model.User{}, err
	}

	username, email := user.Username, user.Email
	if req.Username != nil {
		username = strings.TrimSpace(*req.Username)
	}
	if req.Email != nil {
		email = strings.TrimSpace(*req.Email)
	}

	if !strings.EqualFold(username, user.Username) {
		taken, err := s.users.UsernameInUse(ctx, username, user.ID)
		if err != nil {
			return model.User{}, err
		}
		if taken {
			return model.User{}, apierror.Conflict("username already in use", "")
		}
	}
	if !strings.EqualFold(email, user.Email) {
		taken, err := s.users.EmailInUse(ctx, email, user.ID)
		if err != nil {
			return model.User{}, err
		}
		if taken {
			return model.User{}, apierror.Conflict("email already in use", "")
		}
	}

	if err := s.users.UpdateProfile(ctx, user.ID, username, email); err != nil {
		return model.User{}, err
	}

	s.activity.Record(ctx, actor.UserID, "Updated user profile for "+user.ID, actor.IP)
	user.Username, user.Email = username, email
	return user, nil
}

func (s *UserService) Ban(ctx context.Context, actor model.Actor, id string) error {
	return s.setBanned(ctx, actor, id, true)
}

func (s *UserService) Unban(ctx context.Context, actor model.Actor, id string) error {
	return s.setBanned(ctx, actor, id, false)
}

func (s *UserService) setBanned(ctx context.Context, actor model.Actor, id string, banned bool) error {
	user, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if banned && user.IsAdmin() {
		return apierror.Forbidden("administrators cannot be banned")
	}

	if err := s.users.SetBanned(ctx, user.ID, banned); err != nil {
		return err
	}

	action := "Banned user "
	if !banned {
		action = "Unbanned user "
	}
	s.activity.Record(ctx, actor.UserID, action+user.ID, actor.IP)
	return nil
}

// Delete anonymises the account in place; content keeps its author reference.
func (s *UserService) Delete(ctx context.Context, actor model.Actor, id string) error {
	user, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if user.IsAdmin() {
		return apierror.Forbidden("administrators cannot be deleted")
	}

	marker := fmt.Sprintf("deleted_%s_%d", user.ID[:8], s.now().Unix())
	if err := s.users.Anonymize(ctx, user.ID, marker, marker+"@deleted.invalid", unusableHash); err != nil {
		return err
	}

	s.uploads.Remove(ctx, user.ProfilePicture)
	s.activity.Record(ctx, actor.UserID, "Soft deleted user "+user.ID, actor.IP)
	return nil
}

func (s *UserService) SetProfilePicture(ctx context.Context, actor model.Actor, filename string, r io.Reader) (model.User, error) {
	user, err := s.users.FindByID(ctx, actor.UserID)
	if err != nil {
		return model.User{}, err
	}

	stored, err := s.uploads.StoreProfilePicture(ctx, filename, r)
	if err != nil {
		return model.User{}, err
	}

	if err := s.users.SetProfilePicture(ctx, user.ID, stored.Key); err != nil {
		s.uploads.Remove(ctx, stored.Key)
		return model.User{}, err
	}

	s.uploads.Remove(ctx, user.ProfilePicture)
	s.activity.Record(ctx, user.ID, "Updated profile picture", actor.IP)

	user.ProfilePicture = stored.Key
	return user, nil
}

func (s *UserService) OpenProfilePicture(ctx context.Context, id string) (io.ReadCloser, storage.Object, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, storage.Object{}, err
	}
	return s.uploads.Open(ctx, user.ProfilePicture)
}
