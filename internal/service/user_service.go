package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"smartdocs/internal/cache"
	apperrors "smartdocs/internal/errors"
	"smartdocs/internal/model"
	"smartdocs/internal/policy"
	"smartdocs/internal/repository"
	"smartdocs/internal/storage"
)

const userCacheTTL = 5 * time.Minute

// ImageUpload is a raw image file sent by a client.
type ImageUpload struct {
	Data        []byte
	ContentType string
}

// UpdateUserInput holds the optional fields of a profile update. Nil fields are left unchanged.
type UpdateUserInput struct {
	FullName   *string
	Department *string
	Level      *string
	Email      *string
	Role       *model.Role
	IsActive   *bool
	Password   *string
	Image      *ImageUpload
}

// UserService exposes user profile operations.
type UserService interface {
	LoadActive(ctx context.Context, id uuid.UUID) (*model.User, error)
	Get(ctx context.Context, idOrEmail string) (*model.User, error)
	List(ctx context.Context, caller policy.Caller) ([]model.User, error)
	Update(ctx context.Context, caller policy.Caller, idOrEmail string, in UpdateUserInput) (*model.User, error)
	Delete(ctx context.Context, caller policy.Caller, idOrEmail string) error
	UploadProfileImage(ctx context.Context, caller policy.Caller, img ImageUpload) (*model.User, error)
	DeleteProfileImage(ctx context.Context, caller policy.Caller) (*model.User, error)
}

type userService struct {
	repo     repository.UserRepository
	cache    *cache.Client
	profiles storage.ObjectStore
	log      *zap.Logger
}

// NewUserService builds a UserService with repository, cache and the profile image bucket.
func NewUserService(repo repository.UserRepository, cache *cache.Client, profiles storage.ObjectStore, log *zap.Logger) UserService {
	if log == nil {
		log = zap.NewNop()
	}
	return &userService{
		repo:     repo,
		cache:    cache,
		profiles: profiles,
		log:      log.With(zap.String("component", "user_service")),
	}
}

func (s *userService) cacheKey(id uuid.UUID) string {
	return fmt.Sprintf("user:%s", id)
}

// LoadActive returns the user from cache or storage and refuses inactive accounts.
func (s *userService) LoadActive(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var user *model.User
	var cached model.User
	if s.cache.GetJSON(ctx, s.cacheKey(id), &cached) {
		user = &cached
	} else {
		found, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return nil, notFoundOr(err, apperrors.ErrUserNotFound, "find user")
		}
		_ = s.cache.SetJSON(ctx, s.cacheKey(id), found, userCacheTTL)
		user = found
	}
	if !user.IsActive {
		return nil, apperrors.ErrAccountInactive
	}
	return user, nil
}

func (s *userService) Get(ctx context.Context, idOrEmail string) (*model.User, error) {
	return s.find(ctx, idOrEmail)
}

func (s *userService) find(ctx context.Context, idOrEmail string) (*model.User, error) {
	var (
		user *model.User
		err  error
	)
	if id, parseErr := uuid.Parse(idOrEmail); parseErr == nil {
		user, err = s.repo.FindByID(ctx, id)
	} else {
		user, err = s.repo.FindByEmail(ctx, strings.TrimSpace(idOrEmail))
	}
	if err != nil {
		return nil, notFoundOr(err, apperrors.ErrUserNotFound, "find user")
	}
	return user, nil
}

func (s *userService) List(ctx context.Context, caller policy.Caller) ([]model.User, error) {
	if err := policy.RequireAdmin(caller.Role); err != nil {
		return nil, err
	}
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, apperrors.Upstream("list users", err)
	}
	return users, nil
}

func (s *userService) Update(ctx context.Context, caller policy.Caller, idOrEmail string, in UpdateUserInput) (*model.User, error) {
	user, err := s.find(ctx, idOrEmail)
	if err != nil {
		return nil, err
	}
	if err := policy.CanModifyUser(caller, policy.Target{ID: user.ID, Role: user.Role}); err != nil {
		return nil, err
	}

	if in.Role != nil && *in.Role != user.Role {
		if err := policy.CanAssignRole(caller, *in.Role); err != nil {
			return nil, err
		}
		user.Role = *in.Role
	}
	if in.IsActive != nil && *in.IsActive != user.IsActive {
		if err := policy.RequireAdmin(caller.Role); err != nil {
			return nil, err
		}
		user.IsActive = *in.IsActive
	}
	if in.Email != nil && !strings.EqualFold(*in.Email, user.Email) {
		existing, err := s.repo.FindByEmail(ctx, *in.Email)
		if err == nil && existing != nil && existing.ID != user.ID {
			return nil, apperrors.ErrEmailTaken
		}
		user.Email = strings.ToLower(strings.TrimSpace(*in.Email))
	}
	if in.FullName != nil {
		user.FullName = *in.FullName
	}
	if in.Department != nil {
		dept := strings.ToLower(strings.TrimSpace(*in.Department))
		if err := policy.CanCreateInDepartment(caller, dept); err != nil {
			return nil, err
		}
		user.Department = &dept
	}
	if err := policy.CheckMembership(user.Role, user.DepartmentName()); err != nil {
		return nil, err
	}
	if in.Level != nil {
		user.Level = in.Level
	}
	if in.Password != nil {
		hashed, err := bcrypt.GenerateFromPassword([]byte(*in.Password), bcryptCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		user.PasswordHash = string(hashed)
	}
	if in.Image != nil {
		url, err := s.storeProfileImage(ctx, user.ID, *in.Image)
		if err != nil {
			return nil, err
		}
		user.ImageURL = &url
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, apperrors.Upstream("update user", err)
	}
	_ = s.cache.Delete(ctx, s.cacheKey(user.ID))
	return user, nil
}

func (s *userService) Delete(ctx context.Context, caller policy.Caller, idOrEmail string) error {
	user, err := s.find(ctx, idOrEmail)
	if err != nil {
		return err
	}
	if err := policy.CanModifyUser(caller, policy.Target{ID: user.ID, Role: user.Role}); err != nil {
		return err
	}
	if user.ImageURL != nil {
		s.removeProfileImage(ctx, user.ID, *user.ImageURL)
	}
	if err := s.repo.Delete(ctx, user.ID); err != nil {
		return notFoundOr(err, apperrors.ErrUserNotFound, "delete user")
	}
	_ = s.cache.Delete(ctx, s.cacheKey(user.ID))
	return nil
}

func (s *userService) UploadProfileImage(ctx context.Context, caller policy.Caller, img ImageUpload) (*model.User, error) {
	return s.Update(ctx, caller, caller.ID.String(), UpdateUserInput{Image: &img})
}

func (s *userService) DeleteProfileImage(ctx context.Context, caller policy.Caller) (*model.User, error) {
	user, err := s.repo.FindByID(ctx, caller.ID)
	if err != nil {
		return nil, notFoundOr(err, apperrors.ErrUserNotFound, "find user")
	}
	if user.ImageURL == nil || *user.ImageURL == "" {
		return user, nil
	}

	s.removeProfileImage(ctx, user.ID, *user.ImageURL)
	user.ImageURL = nil
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, apperrors.Upstream("update user", err)
	}
	_ = s.cache.Delete(ctx, s.cacheKey(user.ID))
	return user, nil
}

// storeProfileImage writes the image at {user_id}.{ext}, replacing any previous upload.
func (s *userService) storeProfileImage(ctx context.Context, id uuid.UUID, img ImageUpload) (string, error) {
	if len(img.Data) == 0 {
		return "", apperrors.ErrInvalidImagePayload
	}
	typ := storage.ImageType{Ext: "jpg", ContentType: "image/jpeg"}
	if img.ContentType != "" {
		t, ok := storage.ImageTypeForContentType(img.ContentType)
		if !ok {
			return "", apperrors.Validation(apperrors.ErrUnsupportedImage.Code,
				fmt.Sprintf("unsupported image type %q", img.ContentType))
		}
		typ = t
	}
	key := fmt.Sprintf("%s.%s", id, typ.Ext)
	if err := s.profiles.Upload(ctx, key, img.Data, typ.ContentType); err != nil {
		return "", apperrors.Upstream("upload profile image", err)
	}
	return s.profiles.PublicURL(key), nil
}

// removeProfileImage deletes the stored object named by the URL and falls
// back to every extension the image could have been stored with.
func (s *userService) removeProfileImage(ctx context.Context, id uuid.UUID, imageURL string) {
	if key := storage.KeyFromURL(imageURL); key != "" {
		err := s.profiles.Remove(ctx, []string{key})
		if err == nil {
			return
		}
		s.log.Warn("profile image delete failed", zap.String("key", key), zap.Error(err))
	}

	keys := make([]string, 0, len(storage.ImageExtensions()))
	for _, ext := range storage.ImageExtensions() {
		keys = append(keys, fmt.Sprintf("%s.%s", id, ext))
	}
	if err := s.profiles.Remove(ctx, keys); err != nil {
		s.log.Warn("profile image fallback delete failed", zap.String("user_id", id.String()), zap.Error(err))
	}
}
