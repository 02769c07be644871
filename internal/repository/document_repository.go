package repository

import (
	"context"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"

	"smartdocs/internal/model"
)

// DocumentFilter narrows a document listing.
type DocumentFilter struct {
	// TitleQuery matches titles case-insensitively as a substring.
	TitleQuery   string
	CategoryName string
	// CategoryNames restricts results to these categories; nil means no restriction.
	CategoryNames []string
	Limit         int
	Offset        int
}

// SearchParams are the arguments of the search_documents SQL function.
type SearchParams struct {
	Embedding  []float32
	MatchCount int
	Threshold  float64
	// Categories restricts matches; nil searches every category.
	Categories []string
}

// DocumentRepository defines document persistence operations.
type DocumentRepository interface {
	Create(ctx context.Context, doc *model.Document) error
	Update(ctx context.Context, doc *model.Document) error
	Delete(ctx context.Context, id uint) error
	FindByID(ctx context.Context, id uint) (*model.Document, error)
	List(ctx context.Context, filter DocumentFilter) ([]model.Document, error)
	CountByCategory(ctx context.Context, categoryName string) (int64, error)
	FindStaleDrafts(ctx context.Context, before time.Time) ([]model.Document, error)
	Search(ctx context.Context, params SearchParams) ([]model.SearchResult, error)
}

type documentRepository struct {
	db *gorm.DB
}

// NewDocumentRepository creates a new document repository.
func NewDocumentRepository(db *gorm.DB) DocumentRepository {
	return &documentRepository{db: db}
}

func (r *documentRepository) Create(ctx context.Context, doc *model.Document) error {
	return r.db.WithContext(ctx).Create(doc).Error
}

func (r *documentRepository) Update(ctx context.Context, doc *model.Document) error {
	return r.db.WithContext(ctx).Save(doc).Error
}

func (r *documentRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&model.Document{}, id).Error
}

func (r *documentRepository) FindByID(ctx context.Context, id uint) (*model.Document, error) {
	var doc model.Document
	if err := r.db.WithContext(ctx).First(&doc, id).Error; err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *documentRepository) List(ctx context.Context, filter DocumentFilter) ([]model.Document, error) {
	var docs []model.Document
	q := r.db.WithContext(ctx).Omit("embedding").Order("id")
	if filter.CategoryName != "" {
		q = q.Where("category_name = ?", filter.CategoryName)
	}
	if filter.CategoryNames != nil {
		q = q.Where("category_name IN ?", filter.CategoryNames)
	}
	if filter.TitleQuery != "" {
		q = q.Where("title ILIKE ?", "%"+escapeLike(filter.TitleQuery)+"%")
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}
	if err := q.Find(&docs).Error; err != nil {
		return nil, err
	}
	return docs, nil
}

func (r *documentRepository) CountByCategory(ctx context.Context, categoryName string) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.Document{}).
		Where("category_name = ?", categoryName).
		Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (r *documentRepository) FindStaleDrafts(ctx context.Context, before time.Time) ([]model.Document, error) {
	var docs []model.Document
	if err := r.db.WithContext(ctx).Omit("embedding").
		Where("status = ? AND created_at < ?", model.DocumentDraft, before).
		Order("id").
		Find(&docs).Error; err != nil {
		return nil, err
	}
	return docs, nil
}

func (r *documentRepository) Search(ctx context.Context, params SearchParams) ([]model.SearchResult, error) {
	var results []model.SearchResult
	if err := searchQuery(r.db.WithContext(ctx), params, &results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// searchQuery calls search_documents. Categories go over as a single text[]
// parameter; a nil slice is sent as NULL.
func searchQuery(tx *gorm.DB, params SearchParams, dest *[]model.SearchResult) *gorm.DB {
	var categories interface{}
	if params.Categories != nil {
		categories = pq.StringArray(params.Categories)
	}
	return tx.Raw(
		`SELECT id, title, content, category_name, similarity FROM search_documents(?::vector, ?, ?, ?::text[])`,
		pgvector.NewVector(params.Embedding),
		params.MatchCount,
		params.Threshold,
		categories,
	).Scan(dest)
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
