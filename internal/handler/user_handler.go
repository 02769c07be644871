package handler

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"smartdocs/internal/auth"
	"smartdocs/internal/model"
	"smartdocs/internal/service"
)

const maxProfileImageBytes = 5 << 20

// UserHandler bundles HTTP handlers.
type UserHandler struct {
	svc service.UserService
}

// NewUserHandler creates a handler layer.
func NewUserHandler(svc service.UserService) *UserHandler {
	return &UserHandler{svc: svc}
}

// Me godoc
// @Summary Current user
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.User
// @Failure 401 {object} errors.ErrorResponse
// @Router /users/me [get]
func (h *UserHandler) Me(c echo.Context) error {
	user, ok := auth.CurrentUser(c)
	if !ok {
		_, err := caller(c)
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// ListUsers godoc
// @Summary List users
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {array} model.User
// @Failure 403 {object} errors.ErrorResponse
// @Router /users [get]
func (h *UserHandler) ListUsers(c echo.Context) error {
	p, err := caller(c)
	if err != nil {
		return err
	}
	users, err := h.svc.List(c.Request().Context(), p)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, users)
}

// GetUser godoc
// @Summary Get user by id or email
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id_or_email path string true "User ID or email"
// @Success 200 {object} model.User
// @Failure 404 {object} errors.ErrorResponse
// @Router /users/{id_or_email} [get]
func (h *UserHandler) GetUser(c echo.Context) error {
	user, err := h.svc.Get(c.Request().Context(), c.Param("id_or_email"))
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, user)
}

// UpdateUser godoc
// @Summary Update a user profile
// @Tags users
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param id_or_email path string true "User ID or email"
// @Param full_name formData string false "Full name"
// @Param department formData string false "Department"
// @Param level formData string false "Level"
// @Param email formData string false "Email"
// @Param role formData string false "Role (user, admin, superadmin)"
// @Param is_active formData boolean false "Active flag"
// @Param password formData string false "New password"
// @Param image_profile formData file false "Profile image"
// @Success 200 {object} model.User
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /users/{id_or_email} [put]
func (h *UserHandler) UpdateUser(c echo.Context) error {
	p, err := caller(c)
	if err != nil {
		return err
	}
	in, err := updateInputFromForm(c)
	if err != nil {
		return err
	}

	user, err := h.svc.Update(c.Request().Context(), p, c.Param("id_or_email"), in)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, user)
}

func updateInputFromForm(c echo.Context) (service.UpdateUserInput, error) {
	var in service.UpdateUserInput
	form, err := c.FormParams()
	if err != nil {
		return in, badRequest("invalid form data")
	}
	field := func(name string) *string {
		if _, ok := form[name]; !ok {
			return nil
		}
		v := form.Get(name)
		return &v
	}

	in.FullName = field("full_name")
	in.Department = field("department")
	in.Level = field("level")
	in.Email = field("email")
	if v := field("password"); v != nil && *v != "" {
		if len(*v) < 6 {
			return in, badRequest("password must be at least 6 characters")
		}
		in.Password = v
	}
	if v := field("role"); v != nil && *v != "" {
		role := model.Role(*v)
		in.Role = &role
	}
	if v := field("is_active"); v != nil && *v != "" {
		active, err := strconv.ParseBool(*v)
		if err != nil {
			return in, badRequest("is_active must be a boolean")
		}
		in.IsActive = &active
	}

	img, err := formImage(c, "image_profile")
	if err != nil {
		return in, err
	}
	in.Image = img
	return in, nil
}

// formImage reads an optional uploaded image; a missing file yields nil.
func formImage(c echo.Context, name string) (*service.ImageUpload, error) {
	fh, err := c.FormFile(name)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, badRequest("invalid file upload")
	}
	data, err := readFormFile(fh)
	if err != nil {
		return nil, err
	}
	return &service.ImageUpload{Data: data, ContentType: fh.Header.Get(echo.HeaderContentType)}, nil
}

func readFormFile(fh *multipart.FileHeader) ([]byte, error) {
	if fh.Size > maxProfileImageBytes {
		return nil, badRequest("image exceeds 5 MiB")
	}
	f, err := fh.Open()
	if err != nil {
		return nil, badRequest("cannot read uploaded file")
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxProfileImageBytes+1))
	if err != nil {
		return nil, badRequest("cannot read uploaded file")
	}
	if len(data) > maxProfileImageBytes {
		return nil, badRequest("image exceeds 5 MiB")
	}
	return data, nil
}

// UploadProfileImage godoc
// @Summary Upload own profile image
// @Tags users
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "Image file"
// @Success 200 {object} model.User
// @Failure 400 {object} errors.ErrorResponse
// @Failure 502 {object} errors.ErrorResponse
// @Router /users/profile-image [post]
func (h *UserHandler) UploadProfileImage(c echo.Context) error {
	p, err := caller(c)
	if err != nil {
		return err
	}
	img, err := formImage(c, "file")
	if err != nil {
		return err
	}
	if img == nil {
		return badRequest("file is required")
	}

	user, err := h.svc.UploadProfileImage(c.Request().Context(), p, *img)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, user)
}

// DeleteProfileImage godoc
// @Summary Delete own profile image
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.User
// @Router /users/profile-image [delete]
func (h *UserHandler) DeleteProfileImage(c echo.Context) error {
	p, err := caller(c)
	if err != nil {
		return err
	}
	user, err := h.svc.DeleteProfileImage(c.Request().Context(), p)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, user)
}

// DeleteUser godoc
// @Summary Delete a user
// @Tags users
// @Security BearerAuth
// @Param id_or_email path string true "User ID or email"
// @Success 204
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /users/{id_or_email} [delete]
func (h *UserHandler) DeleteUser(c echo.Context) error {
	p, err := caller(c)
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), p, c.Param("id_or_email")); err != nil {
		return respondError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
