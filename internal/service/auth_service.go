package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"smartdocs/internal/auth"
	apperrors "smartdocs/internal/errors"
	"smartdocs/internal/model"
	"smartdocs/internal/repository"
)

// RegisterInput is a self-service sign-up.
type RegisterInput struct {
	Email      string
	Password   string
	FullName   string
	Department string
}

// LoginResult carries the issued token pair.
type LoginResult struct {
	AccessToken  string
	RefreshToken string
	User         *model.User
}

// TokenStatus describes an access token for the check-token endpoint.
type TokenStatus struct {
	IsValid        bool       `json:"is_valid"`
	IsExpired      bool       `json:"is_expired"`
	ExpiryAtUTC    *time.Time `json:"expiry_at_utc,omitempty"`
	RemainingDays  int        `json:"remaining_days"`
	RemainingHuman string     `json:"remaining_human"`
	Message        string     `json:"message,omitempty"`
}

// AuthService handles authentication operations.
type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*model.User, error)
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	RefreshToken(ctx context.Context, refreshToken string) (accessToken string, err error)
	Logout(ctx context.Context, refreshToken, accessToken string) error
	CheckToken(ctx context.Context, token string) TokenStatus
}

type authService struct {
	userRepo   repository.UserRepository
	jwtService *auth.JWTService
	tokenStore auth.TokenStoreInterface
	now        func() time.Time
}

// NewAuthService creates a new authentication service.
func NewAuthService(userRepo repository.UserRepository, jwtService *auth.JWTService, tokenStore auth.TokenStoreInterface) AuthService {
	return &authService{
		userRepo:   userRepo,
		jwtService: jwtService,
		tokenStore: tokenStore,
		now:        time.Now,
	}
}

// Register creates a new user with hashed password and the lowest role.
func (s *authService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))

	existing, err := s.userRepo.FindByEmail(ctx, email)
	if err == nil && existing != nil {
		return nil, apperrors.ErrEmailTaken
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Upstream("check user existence", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: string(hashedPassword),
		FullName:     in.FullName,
		Role:         model.RoleUser,
		IsActive:     true,
	}
	if dept := strings.ToLower(strings.TrimSpace(in.Department)); dept != "" {
		if dept == model.AllDepartments {
			return nil, apperrors.ErrForbiddenScope
		}
		user.Department = &dept
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, apperrors.Upstream("create user", err)
	}
	return user, nil
}

// Login authenticates a user and returns access and refresh tokens.
func (s *authService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.userRepo.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, apperrors.Upstream("find user", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, apperrors.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, apperrors.ErrAccountInactive
	}

	accessToken, err := s.jwtService.GenerateAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}

	tokenID, refreshToken, err := s.jwtService.GenerateRefreshToken(user)
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}

	if err := s.tokenStore.StoreRefreshToken(ctx, tokenID, user.ID.String(), user.Email, s.jwtService.RefreshTTL()); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	return &LoginResult{AccessToken: accessToken, RefreshToken: refreshToken, User: user}, nil
}

// RefreshToken validates a refresh token and returns a new access token
// reflecting the user's current role and department.
func (s *authService) RefreshToken(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.jwtService.ValidateToken(refreshToken)
	if err != nil || claims.TokenType != auth.TokenTypeRefresh || claims.ID == "" {
		return "", apperrors.ErrInvalidRefreshToken
	}

	storedUserID, _, err := s.tokenStore.GetRefreshToken(ctx, claims.ID)
	if err != nil || storedUserID != claims.UserID {
		return "", apperrors.ErrInvalidRefreshToken
	}

	id, err := uuid.Parse(claims.UserID)
	if err != nil {
		return "", apperrors.ErrInvalidRefreshToken
	}
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", apperrors.ErrInvalidRefreshToken
		}
		return "", apperrors.Upstream("find user", err)
	}
	if !user.IsActive {
		return "", apperrors.ErrAccountInactive
	}

	accessToken, err := s.jwtService.GenerateAccessToken(user)
	if err != nil {
		return "", fmt.Errorf("generate access token: %w", err)
	}
	return accessToken, nil
}

// Logout invalidates a refresh token and, when given, blacklists the access token until it expires.
func (s *authService) Logout(ctx context.Context, refreshToken, accessToken string) error {
	tokenID, err := s.jwtService.ExtractTokenID(refreshToken)
	if err != nil {
		return apperrors.ErrInvalidRefreshToken
	}
	if err := s.tokenStore.DeleteRefreshToken(ctx, tokenID); err != nil {
		return fmt.Errorf("delete refresh token: %w", err)
	}

	if accessToken == "" {
		return nil
	}
	claims, err := s.jwtService.ValidateAccessToken(accessToken)
	if err != nil {
		return nil
	}
	ttl := claims.ExpiresAt.Time.Sub(s.now())
	if err := s.tokenStore.BlacklistAccessToken(ctx, claims.ID, ttl); err != nil {
		return fmt.Errorf("blacklist access token: %w", err)
	}
	return nil
}

// CheckToken reports whether token is usable and how long it stays valid.
func (s *authService) CheckToken(ctx context.Context, token string) TokenStatus {
	invalid := func(msg string) TokenStatus {
		return TokenStatus{IsValid: false, IsExpired: true, RemainingHuman: "invalid token or inactive account", Message: msg}
	}

	claims, err := s.jwtService.ParseUnverifiedExpiry(auth.BearerToken(token))
	if err != nil {
		return invalid("token cannot be verified")
	}
	if revoked, _ := s.tokenStore.IsAccessTokenBlacklisted(ctx, claims.ID); revoked {
		return invalid("token has been revoked")
	}
	if id, err := uuid.Parse(claims.UserID); err == nil {
		user, err := s.userRepo.FindByID(ctx, id)
		if err != nil {
			return invalid("user not found")
		}
		if !user.IsActive {
			return invalid("account is not active")
		}
	}

	exp := claims.ExpiresAt.Time.UTC()
	remaining := exp.Sub(s.now())
	if remaining <= 0 {
		return TokenStatus{IsValid: false, IsExpired: true, ExpiryAtUTC: &exp, RemainingHuman: "expired"}
	}
	return TokenStatus{
		IsValid:        true,
		IsExpired:      false,
		ExpiryAtUTC:    &exp,
		RemainingDays:  int(remaining / (24 * time.Hour)),
		RemainingHuman: humanDuration(remaining),
	}
}

// humanDuration formats d as "<days> day HH:MM:SS".
func humanDuration(d time.Duration) string {
	days := int(d / (24 * time.Hour))
	d -= time.Duration(days) * 24 * time.Hour
	h := int(d / time.Hour)
	d -= time.Duration(h) * time.Hour
	m := int(d / time.Minute)
	d -= time.Duration(m) * time.Minute
	sec := int(d / time.Second)
	return fmt.Sprintf("%d day %02d:%02d:%02d", days, h, m, sec)
}
