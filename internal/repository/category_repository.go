package repository

import (
	"context"

	"gorm.io/gorm"

	"smartdocs/internal/model"
)

// CategoryFilter narrows a category listing. An empty Department lists every department.
type CategoryFilter struct {
	Department string
	Limit      int
	Offset     int
}

// CategoryRepository defines category persistence operations.
type CategoryRepository interface {
	Create(ctx context.Context, category *model.Category) error
	Update(ctx context.Context, category *model.Category) error
	Delete(ctx context.Context, id uint) error
	FindByID(ctx context.Context, id uint) (*model.Category, error)
	FindByName(ctx context.Context, name string) (*model.Category, error)
	ExistsInDepartment(ctx context.Context, name, department string, excludeID uint) (bool, error)
	NamesByDepartment(ctx context.Context, department string) ([]string, error)
	List(ctx context.Context, filter CategoryFilter) ([]model.Category, error)
}

type categoryRepository struct {
	db *gorm.DB
}

// NewCategoryRepository creates a new category repository.
func NewCategoryRepository(db *gorm.DB) CategoryRepository {
	return &categoryRepository{db: db}
}

func (r *categoryRepository) Create(ctx context.Context, category *model.Category) error {
	return r.db.WithContext(ctx).Create(category).Error
}

func (r *categoryRepository) Update(ctx context.Context, category *model.Category) error {
	return r.db.WithContext(ctx).Save(category).Error
}

func (r *categoryRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&model.Category{}, id).Error
}

func (r *categoryRepository) FindByID(ctx context.Context, id uint) (*model.Category, error) {
	var category model.Category
	if err := r.db.WithContext(ctx).First(&category, id).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

// FindByName returns the first category with the given name in any department.
func (r *categoryRepository) FindByName(ctx context.Context, name string) (*model.Category, error) {
	var category model.Category
	if err := r.db.WithContext(ctx).Where("name = ?", name).Order("id").First(&category).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *categoryRepository) ExistsInDepartment(ctx context.Context, name, department string, excludeID uint) (bool, error) {
	var n int64
	q := r.db.WithContext(ctx).Model(&model.Category{}).Where("name = ? AND department = ?", name, department)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *categoryRepository) NamesByDepartment(ctx context.Context, department string) ([]string, error) {
	var names []string
	if err := r.db.WithContext(ctx).Model(&model.Category{}).
		Where("department = ?", department).
		Distinct().
		Pluck("name", &names).Error; err != nil {
		return nil, err
	}
	return names, nil
}

func (r *categoryRepository) List(ctx context.Context, filter CategoryFilter) ([]model.Category, error) {
	var categories []model.Category
	q := r.db.WithContext(ctx).Order("id")
	if filter.Department != "" {
		q = q.Where("department = ?", filter.Department)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}
	if err := q.Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}
