package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"smartdocs/internal/auth"
	apperrors "smartdocs/internal/errors"
	"smartdocs/internal/model"
)

func newTestUser(t *testing.T, password string, active bool) *model.User {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	dept := "hr"
	return &model.User{
		ID:           uuid.New(),
		Email:        "test@example.com",
		PasswordHash: string(hashed),
		FullName:     "Test User",
		Role:         model.RoleAdmin,
		Department:   &dept,
		IsActive:     active,
	}
}

func TestAuthService_Register(t *testing.T) {
	tests := []struct {
		name          string
		input         RegisterInput
		setupMock     func(*MockUserRepository)
		expectedError error
	}{
		{
			name:  "successful registration",
			input: RegisterInput{Email: " Test@Example.com ", Password: "password123", FullName: "Test User", Department: "HR"},
			setupMock: func(m *MockUserRepository) {
				m.On("FindByEmail", mock.Anything, "test@example.com").Return(nil, gorm.ErrRecordNotFound)
				m.On("Create", mock.Anything, mock.MatchedBy(func(u *model.User) bool {
					return u.Email == "test@example.com" && u.Role == model.RoleUser && u.DepartmentName() == "hr"
				})).Return(nil)
			},
		},
		{
			name:  "email already registered",
			input: RegisterInput{Email: "existing@example.com", Password: "password123"},
			setupMock: func(m *MockUserRepository) {
				m.On("FindByEmail", mock.Anything, "existing@example.com").Return(&model.User{Email: "existing@example.com"}, nil)
			},
			expectedError: apperrors.ErrEmailTaken,
		},
		{
			name:  "wildcard department refused",
			input: RegisterInput{Email: "new@example.com", Password: "password123", Department: "*"},
			setupMock: func(m *MockUserRepository) {
				m.On("FindByEmail", mock.Anything, "new@example.com").Return(nil, gorm.ErrRecordNotFound)
			},
			expectedError: apperrors.ErrForbiddenScope,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockUserRepository)
			tt.setupMock(mockRepo)

			svc := NewAuthService(mockRepo, auth.NewJWTService("test-secret", time.Hour, 24*time.Hour), new(MockTokenStore))
			user, err := svc.Register(context.Background(), tt.input)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Nil(t, user)
			} else {
				require.NoError(t, err)
				assert.NotEqual(t, uuid.Nil, user.ID)
				assert.True(t, user.IsActive)
				assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(tt.input.Password)))
			}
			mockRepo.AssertExpectations(t)
		})
	}
}

func TestAuthService_Login(t *testing.T) {
	active := newTestUser(t, "password123", true)
	inactive := newTestUser(t, "password123", false)

	tests := []struct {
		name          string
		email         string
		password      string
		setupMock     func(*MockUserRepository, *MockTokenStore)
		expectedError error
	}{
		{
			name:     "successful login",
			email:    "test@example.com",
			password: "password123",
			setupMock: func(mRepo *MockUserRepository, mToken *MockTokenStore) {
				mRepo.On("FindByEmail", mock.Anything, "test@example.com").Return(active, nil)
				mToken.On("StoreRefreshToken", mock.Anything, mock.Anything, active.ID.String(), active.Email, 24*time.Hour).Return(nil)
			},
		},
		{
			name:     "unknown email",
			email:    "notfound@example.com",
			password: "password123",
			setupMock: func(mRepo *MockUserRepository, mToken *MockTokenStore) {
				mRepo.On("FindByEmail", mock.Anything, "notfound@example.com").Return(nil, gorm.ErrRecordNotFound)
			},
			expectedError: apperrors.ErrInvalidCredentials,
		},
		{
			name:     "wrong password",
			email:    "test@example.com",
			password: "nope",
			setupMock: func(mRepo *MockUserRepository, mToken *MockTokenStore) {
				mRepo.On("FindByEmail", mock.Anything, "test@example.com").Return(active, nil)
			},
			expectedError: apperrors.ErrInvalidCredentials,
		},
		{
			name:     "inactive account",
			email:    "test@example.com",
			password: "password123",
			setupMock: func(mRepo *MockUserRepository, mToken *MockTokenStore) {
				mRepo.On("FindByEmail", mock.Anything, "test@example.com").Return(inactive, nil)
			},
			expectedError: apperrors.ErrAccountInactive,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockUserRepository)
			mockToken := new(MockTokenStore)
			tt.setupMock(mockRepo, mockToken)

			jwtService := auth.NewJWTService("test-secret", time.Hour, 24*time.Hour)
			svc := NewAuthService(mockRepo, jwtService, mockToken)
			result, err := svc.Login(context.Background(), tt.email, tt.password)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Nil(t, result)
			} else {
				require.NoError(t, err)
				assert.NotEmpty(t, result.AccessToken)
				assert.NotEmpty(t, result.RefreshToken)

				claims, err := jwtService.ValidateAccessToken(result.AccessToken)
				require.NoError(t, err)
				assert.Equal(t, "hr", claims.Department)
			}
			mockRepo.AssertExpectations(t)
			mockToken.AssertExpectations(t)
		})
	}
}

func TestAuthService_RefreshToken(t *testing.T) {
	user := newTestUser(t, "password123", true)
	jwtService := auth.NewJWTService("test-secret", time.Hour, 24*time.Hour)
	tokenID, refresh, err := jwtService.GenerateRefreshToken(user)
	require.NoError(t, err)

	t.Run("issues access token with current role", func(t *testing.T) {
		mockRepo := new(MockUserRepository)
		mockToken := new(MockTokenStore)
		promoted := *user
		promoted.Role = model.RoleSuperadmin
		mockToken.On("GetRefreshToken", mock.Anything, tokenID).Return(user.ID.String(), user.Email, nil)
		mockRepo.On("FindByID", mock.Anything, user.ID).Return(&promoted, nil)

		svc := NewAuthService(mockRepo, jwtService, mockToken)
		access, err := svc.RefreshToken(context.Background(), refresh)
		require.NoError(t, err)

		claims, err := jwtService.ValidateAccessToken(access)
		require.NoError(t, err)
		assert.Equal(t, model.RoleSuperadmin, claims.Role)
	})

	t.Run("revoked refresh token", func(t *testing.T) {
		mockToken := new(MockTokenStore)
		mockToken.On("GetRefreshToken", mock.Anything, tokenID).Return("", "", assert.AnError)

		svc := NewAuthService(new(MockUserRepository), jwtService, mockToken)
		_, err := svc.RefreshToken(context.Background(), refresh)
		assert.ErrorIs(t, err, apperrors.ErrInvalidRefreshToken)
	})

	t.Run("access token is not a refresh token", func(t *testing.T) {
		access, err := jwtService.GenerateAccessToken(user)
		require.NoError(t, err)

		svc := NewAuthService(new(MockUserRepository), jwtService, new(MockTokenStore))
		_, err = svc.RefreshToken(context.Background(), access)
		assert.ErrorIs(t, err, apperrors.ErrInvalidRefreshToken)
	})
}

func TestAuthService_Logout(t *testing.T) {
	user := newTestUser(t, "password123", true)
	jwtService := auth.NewJWTService("test-secret", time.Hour, 24*time.Hour)
	tokenID, refresh, err := jwtService.GenerateRefreshToken(user)
	require.NoError(t, err)
	access, err := jwtService.GenerateAccessToken(user)
	require.NoError(t, err)
	claims, err := jwtService.ValidateAccessToken(access)
	require.NoError(t, err)

	mockToken := new(MockTokenStore)
	mockToken.On("DeleteRefreshToken", mock.Anything, tokenID).Return(nil)
	mockToken.On("BlacklistAccessToken", mock.Anything, claims.ID, mock.MatchedBy(func(ttl time.Duration) bool {
		return ttl > 0 && ttl <= time.Hour
	})).Return(nil)

	svc := NewAuthService(new(MockUserRepository), jwtService, mockToken)
	require.NoError(t, svc.Logout(context.Background(), refresh, access))
	mockToken.AssertExpectations(t)
}

func TestAuthService_CheckToken(t *testing.T) {
	user := newTestUser(t, "password123", true)
	jwtService := auth.NewJWTService("test-secret", 49*time.Hour, 24*time.Hour)
	access, err := jwtService.GenerateAccessToken(user)
	require.NoError(t, err)

	t.Run("valid token", func(t *testing.T) {
		mockRepo := new(MockUserRepository)
		mockToken := new(MockTokenStore)
		mockToken.On("IsAccessTokenBlacklisted", mock.Anything, mock.Anything).Return(false, nil)
		mockRepo.On("FindByID", mock.Anything, user.ID).Return(user, nil)

		svc := NewAuthService(mockRepo, jwtService, mockToken)
		status := svc.CheckToken(context.Background(), "Bearer "+access)

		assert.True(t, status.IsValid)
		assert.False(t, status.IsExpired)
		assert.Equal(t, 2, status.RemainingDays)
		require.NotNil(t, status.ExpiryAtUTC)
		assert.Contains(t, status.RemainingHuman, "2 day ")
	})

	t.Run("revoked token", func(t *testing.T) {
		mockToken := new(MockTokenStore)
		mockToken.On("IsAccessTokenBlacklisted", mock.Anything, mock.Anything).Return(true, nil)

		svc := NewAuthService(new(MockUserRepository), jwtService, mockToken)
		status := svc.CheckToken(context.Background(), access)
		assert.False(t, status.IsValid)
		assert.Equal(t, "token has been revoked", status.Message)
	})

	t.Run("garbage", func(t *testing.T) {
		svc := NewAuthService(new(MockUserRepository), jwtService, new(MockTokenStore))
		status := svc.CheckToken(context.Background(), "not-a-token")
		assert.False(t, status.IsValid)
		assert.True(t, status.IsExpired)
	})
}

func TestHumanDuration(t *testing.T) {
	assert.Equal(t, "1 day 02:03:04", humanDuration(26*time.Hour+3*time.Minute+4*time.Second))
	assert.Equal(t, "0 day 00:00:59", humanDuration(59*time.Second))
}
