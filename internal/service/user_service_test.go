package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	apperrors "smartdocs/internal/errors"
	"smartdocs/internal/model"
	"smartdocs/internal/policy"
)

func userWithRole(role model.Role) *model.User {
	dept := "hr"
	return &model.User{
		ID:         uuid.New(),
		Email:      string(role) + "@example.com",
		FullName:   "User " + string(role),
		Role:       role,
		Department: &dept,
		IsActive:   true,
	}
}

func callerOf(u *model.User) policy.Caller {
	return policy.Caller{ID: u.ID, Role: u.Role, Department: u.DepartmentName(), FullName: u.FullName}
}

func TestUserService_LoadActive(t *testing.T) {
	active := userWithRole(model.RoleUser)
	inactive := userWithRole(model.RoleUser)
	inactive.IsActive = false
	missing := uuid.New()

	repo := new(MockUserRepository)
	repo.On("FindByID", mock.Anything, active.ID).Return(active, nil)
	repo.On("FindByID", mock.Anything, inactive.ID).Return(inactive, nil)
	repo.On("FindByID", mock.Anything, missing).Return(nil, gorm.ErrRecordNotFound)

	svc := NewUserService(repo, nil, new(MockObjectStore), nil)

	got, err := svc.LoadActive(context.Background(), active.ID)
	require.NoError(t, err)
	assert.Equal(t, active.ID, got.ID)

	_, err = svc.LoadActive(context.Background(), inactive.ID)
	assert.ErrorIs(t, err, apperrors.ErrAccountInactive)

	_, err = svc.LoadActive(context.Background(), missing)
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
}

func TestUserService_Update_Policy(t *testing.T) {
	admin := model.RoleAdmin
	superadmin := model.RoleSuperadmin
	inactive := false

	tests := []struct {
		name    string
		caller  model.Role
		target  model.Role
		self    bool
		input   UpdateUserInput
		wantErr error
	}{
		{name: "user edits own name", caller: model.RoleUser, self: true, input: UpdateUserInput{FullName: strPtr("New")}},
		{name: "user edits someone else", caller: model.RoleUser, target: model.RoleUser, input: UpdateUserInput{FullName: strPtr("New")}, wantErr: apperrors.ErrForbiddenRole},
		{name: "user promotes self", caller: model.RoleUser, self: true, input: UpdateUserInput{Role: &admin}, wantErr: apperrors.ErrForbiddenRole},
		{name: "admin promotes user", caller: model.RoleAdmin, target: model.RoleUser, input: UpdateUserInput{Role: &admin}},
		{name: "admin grants superadmin", caller: model.RoleAdmin, target: model.RoleUser, input: UpdateUserInput{Role: &superadmin}, wantErr: apperrors.ErrForbiddenRole},
		{name: "admin edits superadmin", caller: model.RoleAdmin, target: model.RoleSuperadmin, input: UpdateUserInput{FullName: strPtr("x")}, wantErr: apperrors.ErrForbiddenRole},
		{name: "admin deactivates user", caller: model.RoleAdmin, target: model.RoleUser, input: UpdateUserInput{IsActive: &inactive}},
		{name: "user deactivates self", caller: model.RoleUser, self: true, input: UpdateUserInput{IsActive: &inactive}, wantErr: apperrors.ErrForbiddenRole},
		{name: "admin moves user to all departments", caller: model.RoleAdmin, target: model.RoleUser, input: UpdateUserInput{Department: strPtr("*")}, wantErr: apperrors.ErrForbiddenScope},
		{name: "superadmin edits superadmin", caller: model.RoleSuperadmin, target: model.RoleSuperadmin, input: UpdateUserInput{Department: strPtr("*")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			caller := userWithRole(tt.caller)
			target := caller
			if !tt.self {
				target = userWithRole(tt.target)
			}

			repo := new(MockUserRepository)
			repo.On("FindByID", mock.Anything, target.ID).Return(target, nil)
			if tt.wantErr == nil {
				repo.On("Update", mock.Anything, target).Return(nil)
			}

			svc := NewUserService(repo, nil, new(MockObjectStore), nil)
			_, err := svc.Update(context.Background(), callerOf(caller), target.ID.String(), tt.input)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
				return
			}
			require.NoError(t, err)
			repo.AssertExpectations(t)
		})
	}
}

func TestUserService_Update_Demotion(t *testing.T) {
	admin := model.RoleAdmin
	everyDept := model.AllDepartments

	seeded := func() *model.User {
		u := userWithRole(model.RoleSuperadmin)
		u.Department = &everyDept
		return u
	}

	t.Run("demoted superadmin keeps wildcard department", func(t *testing.T) {
		caller := userWithRole(model.RoleSuperadmin)
		target := seeded()

		repo := new(MockUserRepository)
		repo.On("FindByID", mock.Anything, target.ID).Return(target, nil)

		svc := NewUserService(repo, nil, new(MockObjectStore), nil)
		_, err := svc.Update(context.Background(), callerOf(caller), target.ID.String(), UpdateUserInput{Role: &admin})
		assert.ErrorIs(t, err, apperrors.ErrDepartmentRequired)
		repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("demoted with a named department", func(t *testing.T) {
		caller := userWithRole(model.RoleSuperadmin)
		target := seeded()

		repo := new(MockUserRepository)
		repo.On("FindByID", mock.Anything, target.ID).Return(target, nil)
		repo.On("Update", mock.Anything, target).Return(nil)

		svc := NewUserService(repo, nil, new(MockObjectStore), nil)
		got, err := svc.Update(context.Background(), callerOf(caller), target.ID.String(),
			UpdateUserInput{Role: &admin, Department: strPtr("Ops")})
		require.NoError(t, err)
		assert.Equal(t, model.RoleAdmin, got.Role)
		assert.Equal(t, "ops", got.DepartmentName())

		scope, err := policy.ResolveScope(callerOf(got), "")
		require.NoError(t, err)
		assert.Equal(t, "ops", scope)
	})

	t.Run("superadmin moves admin to every department", func(t *testing.T) {
		caller := userWithRole(model.RoleSuperadmin)
		target := userWithRole(model.RoleAdmin)

		repo := new(MockUserRepository)
		repo.On("FindByID", mock.Anything, target.ID).Return(target, nil)

		svc := NewUserService(repo, nil, new(MockObjectStore), nil)
		_, err := svc.Update(context.Background(), callerOf(caller), target.ID.String(), UpdateUserInput{Department: strPtr("*")})
		assert.ErrorIs(t, err, apperrors.ErrDepartmentRequired)
		repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})
}

func TestUserService_Update_EmailTaken(t *testing.T) {
	user := userWithRole(model.RoleUser)
	other := userWithRole(model.RoleAdmin)

	repo := new(MockUserRepository)
	repo.On("FindByEmail", mock.Anything, user.Email).Return(user, nil)
	repo.On("FindByEmail", mock.Anything, other.Email).Return(other, nil)

	svc := NewUserService(repo, nil, new(MockObjectStore), nil)
	_, err := svc.Update(context.Background(), callerOf(user), user.Email, UpdateUserInput{Email: &other.Email})
	assert.ErrorIs(t, err, apperrors.ErrEmailTaken)
}

func TestUserService_UploadProfileImage(t *testing.T) {
	user := userWithRole(model.RoleUser)
	key := user.ID.String() + ".png"

	repo := new(MockUserRepository)
	store := new(MockObjectStore)
	repo.On("FindByID", mock.Anything, user.ID).Return(user, nil)
	store.On("Upload", mock.Anything, key, []byte("img"), "image/png").Return(nil)
	repo.On("Update", mock.Anything, user).Return(nil)

	svc := NewUserService(repo, nil, store, nil)
	got, err := svc.UploadProfileImage(context.Background(), callerOf(user), ImageUpload{Data: []byte("img"), ContentType: "image/png"})
	require.NoError(t, err)
	require.NotNil(t, got.ImageURL)
	assert.Equal(t, "https://cdn.test/bucket/"+key, *got.ImageURL)

	_, err = svc.UploadProfileImage(context.Background(), callerOf(user), ImageUpload{Data: []byte("img"), ContentType: "application/pdf"})
	assert.ErrorIs(t, err, apperrors.ErrUnsupportedImage)
}

func TestUserService_DeleteProfileImage(t *testing.T) {
	t.Run("removes object named by url", func(t *testing.T) {
		user := userWithRole(model.RoleUser)
		url := "https://cdn.test/bucket/" + user.ID.String() + ".jpg"
		user.ImageURL = &url

		repo := new(MockUserRepository)
		store := new(MockObjectStore)
		repo.On("FindByID", mock.Anything, user.ID).Return(user, nil)
		store.On("Remove", mock.Anything, []string{user.ID.String() + ".jpg"}).Return(nil)
		repo.On("Update", mock.Anything, user).Return(nil)

		svc := NewUserService(repo, nil, store, nil)
		got, err := svc.DeleteProfileImage(context.Background(), callerOf(user))
		require.NoError(t, err)
		assert.Nil(t, got.ImageURL)
		store.AssertExpectations(t)
	})

	t.Run("object delete failure is not surfaced", func(t *testing.T) {
		user := userWithRole(model.RoleUser)
		url := "https://cdn.test/bucket/" + user.ID.String() + ".jpg"
		user.ImageURL = &url

		repo := new(MockUserRepository)
		store := new(MockObjectStore)
		repo.On("FindByID", mock.Anything, user.ID).Return(user, nil)
		store.On("Remove", mock.Anything, mock.Anything).Return(errors.New("bucket down"))
		repo.On("Update", mock.Anything, user).Return(nil)

		svc := NewUserService(repo, nil, store, nil)
		got, err := svc.DeleteProfileImage(context.Background(), callerOf(user))
		require.NoError(t, err)
		assert.Nil(t, got.ImageURL)
		store.AssertNumberOfCalls(t, "Remove", 2)
	})
}

func TestUserService_Delete(t *testing.T) {
	admin := userWithRole(model.RoleAdmin)
	superadmin := userWithRole(model.RoleSuperadmin)

	repo := new(MockUserRepository)
	repo.On("FindByID", mock.Anything, superadmin.ID).Return(superadmin, nil)

	svc := NewUserService(repo, nil, new(MockObjectStore), nil)
	err := svc.Delete(context.Background(), callerOf(admin), superadmin.ID.String())
	assert.ErrorIs(t, err, apperrors.ErrForbiddenRole)
	repo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestUserService_List_RequiresAdmin(t *testing.T) {
	svc := NewUserService(new(MockUserRepository), nil, new(MockObjectStore), nil)
	_, err := svc.List(context.Background(), callerOf(userWithRole(model.RoleUser)))
	assert.ErrorIs(t, err, apperrors.ErrForbiddenRole)
}

func strPtr(s string) *string {
	return &s
}
