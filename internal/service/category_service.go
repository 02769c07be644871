package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	apperrors "smartdocs/internal/errors"
	"smartdocs/internal/model"
	"smartdocs/internal/policy"
	"smartdocs/internal/repository"
)

const (
	defaultCategoryLimit = 100
	maxCategoryLimit     = 500
)

// CategoryInput creates a category. An empty Department means the caller's own.
type CategoryInput struct {
	Name       string
	Department string
}

// CategoryPatch updates a category. Nil fields are left unchanged.
type CategoryPatch struct {
	Name       *string
	Department *string
}

// CategoryService manages document categories.
type CategoryService interface {
	List(ctx context.Context, caller policy.Caller, department string, limit, offset int) ([]model.Category, error)
	Get(ctx context.Context, id uint) (*model.Category, error)
	Create(ctx context.Context, caller policy.Caller, in CategoryInput) (*model.Category, error)
	Update(ctx context.Context, caller policy.Caller, id uint, patch CategoryPatch) (*model.Category, error)
	Delete(ctx context.Context, caller policy.Caller, id uint) error
}

type categoryService struct {
	categories repository.CategoryRepository
	documents  repository.DocumentRepository
	log        *zap.Logger
}

// NewCategoryService creates a new category service.
func NewCategoryService(categories repository.CategoryRepository, documents repository.DocumentRepository, log *zap.Logger) CategoryService {
	if log == nil {
		log = zap.NewNop()
	}
	return &categoryService{
		categories: categories,
		documents:  documents,
		log:        log.With(zap.String("component", "category_service")),
	}
}

func (s *categoryService) List(ctx context.Context, caller policy.Caller, department string, limit, offset int) ([]model.Category, error) {
	scope, err := policy.ResolveScope(caller, department)
	if err != nil {
		return nil, err
	}
	filter := repository.CategoryFilter{
		Limit:  clamp(limit, defaultCategoryLimit, 1, maxCategoryLimit),
		Offset: max(offset, 0),
	}
	if scope != model.AllDepartments {
		if scope == "" {
			return []model.Category{}, nil
		}
		filter.Department = scope
	}

	categories, err := s.categories.List(ctx, filter)
	if err != nil {
		return nil, apperrors.Upstream("list categories", err)
	}
	return categories, nil
}

func (s *categoryService) Get(ctx context.Context, id uint) (*model.Category, error) {
	category, err := s.categories.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, apperrors.ErrCategoryNotFound, "find category")
	}
	return category, nil
}

func (s *categoryService) Create(ctx context.Context, caller policy.Caller, in CategoryInput) (*model.Category, error) {
	if err := policy.RequireWriter(caller.Role); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperrors.Validation(apperrors.ErrInvalidInput.Code, "category name is required")
	}
	department := strings.ToLower(strings.TrimSpace(in.Department))
	if department == "" {
		department = caller.Department
	}
	if department == "" {
		return nil, apperrors.Validation(apperrors.ErrInvalidInput.Code, "department is required")
	}
	if err := policy.CanCreateInDepartment(caller, department); err != nil {
		return nil, err
	}

	exists, err := s.categories.ExistsInDepartment(ctx, name, department, 0)
	if err != nil {
		return nil, apperrors.Upstream("check category", err)
	}
	if exists {
		return nil, apperrors.ErrCategoryExists
	}

	category := &model.Category{
		Name:        name,
		Department:  department,
		CreatedBy:   caller.FullName,
		CreatedByID: caller.ID.String(),
	}
	if err := s.categories.Create(ctx, category); err != nil {
		return nil, apperrors.Upstream("create category", err)
	}
	s.log.Info("category created", zap.Uint("id", category.ID), zap.String("name", name), zap.String("department", department))
	return category, nil
}

// Update renames or moves a category. Renaming is refused while documents
// still reference the old name, as they would otherwise point at nothing.
func (s *categoryService) Update(ctx context.Context, caller policy.Caller, id uint, patch CategoryPatch) (*model.Category, error) {
	if err := policy.RequireWriter(caller.Role); err != nil {
		return nil, err
	}
	category, err := s.categories.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, apperrors.ErrCategoryNotFound, "find category")
	}

	name, department := category.Name, category.Department
	if patch.Name != nil && strings.TrimSpace(*patch.Name) != "" {
		name = strings.TrimSpace(*patch.Name)
	}
	if patch.Department != nil && strings.TrimSpace(*patch.Department) != "" {
		department = strings.ToLower(strings.TrimSpace(*patch.Department))
		if err := policy.CanCreateInDepartment(caller, department); err != nil {
			return nil, err
		}
	}

	if name != category.Name {
		n, err := s.documents.CountByCategory(ctx, category.Name)
		if err != nil {
			return nil, apperrors.Upstream("count documents", err)
		}
		if n > 0 {
			return nil, apperrors.ErrCategoryInUse
		}
	}
	if name != category.Name || department != category.Department {
		exists, err := s.categories.ExistsInDepartment(ctx, name, department, category.ID)
		if err != nil {
			return nil, apperrors.Upstream("check category", err)
		}
		if exists {
			return nil, apperrors.ErrCategoryExists
		}
	}

	category.Name = name
	category.Department = department
	updatedBy, updatedByID := caller.FullName, caller.ID.String()
	category.UpdatedBy = &updatedBy
	category.UpdatedByID = &updatedByID

	if err := s.categories.Update(ctx, category); err != nil {
		return nil, apperrors.Upstream("update category", err)
	}
	return category, nil
}

// Delete removes a category that no document references.
func (s *categoryService) Delete(ctx context.Context, caller policy.Caller, id uint) error {
	if err := policy.RequireWriter(caller.Role); err != nil {
		return err
	}
	category, err := s.categories.FindByID(ctx, id)
	if err != nil {
		return notFoundOr(err, apperrors.ErrCategoryNotFound, "find category")
	}

	n, err := s.documents.CountByCategory(ctx, category.Name)
	if err != nil {
		return apperrors.Upstream("count documents", err)
	}
	if n > 0 {
		return apperrors.ErrCategoryInUse
	}

	if err := s.categories.Delete(ctx, category.ID); err != nil {
		return apperrors.Upstream("delete category", err)
	}
	s.log.Info("category deleted", zap.Uint("id", category.ID), zap.String("name", category.Name))
	return nil
}
