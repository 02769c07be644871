package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/pgvector/pgvector-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"smartdocs/internal/embedding"
	apperrors "smartdocs/internal/errors"
	"smartdocs/internal/imageref"
	"smartdocs/internal/model"
	"smartdocs/internal/policy"
	"smartdocs/internal/repository"
)

const (
	defaultDocumentLimit = 50
	maxDocumentLimit     = 200

	defaultMatchCount     = 5
	maxMatchCount         = 50
	defaultMatchThreshold = 0.5
)

var tracer = otel.Tracer("smartdocs/service")

// DocumentInput is the payload of a document create or update.
type DocumentInput struct {
	Title    string
	Content  string
	Category string
	Images   []model.ImageReference
}

// DocumentQuery filters a document listing.
type DocumentQuery struct {
	TitleQuery   string
	CategoryName string
	Department   string
	Limit        int
	Offset       int
}

// SearchInput is a semantic search request. A nil Threshold uses the default.
type SearchInput struct {
	Query      string
	MatchCount int
	Threshold  *float64
	Department string
	Category   string
}

// DocumentService implements document storage, image resolution and search.
type DocumentService interface {
	List(ctx context.Context, caller policy.Caller, q DocumentQuery) ([]model.Document, error)
	Get(ctx context.Context, id uint) (*model.Document, error)
	Create(ctx context.Context, caller policy.Caller, in DocumentInput) (*model.Document, error)
	Update(ctx context.Context, caller policy.Caller, id uint, in DocumentInput) (*model.Document, error)
	Delete(ctx context.Context, caller policy.Caller, id uint) error
	Search(ctx context.Context, caller policy.Caller, in SearchInput) ([]model.SearchResult, error)
	PublicSearch(ctx context.Context, in SearchInput) ([]model.SearchResult, error)
	ReconcileDrafts(ctx context.Context, maxAge time.Duration) (int, error)
}

type documentService struct {
	documents  repository.DocumentRepository
	categories repository.CategoryRepository
	embedder   embedding.Embedder
	resolver   *imageref.Resolver
	log        *zap.Logger
	now        func() time.Time
}

// NewDocumentService wires the document service to its stores.
func NewDocumentService(
	documents repository.DocumentRepository,
	categories repository.CategoryRepository,
	embedder embedding.Embedder,
	resolver *imageref.Resolver,
	log *zap.Logger,
) DocumentService {
	if log == nil {
		log = zap.NewNop()
	}
	return &documentService{
		documents:  documents,
		categories: categories,
		embedder:   embedder,
		resolver:   resolver,
		log:        log.With(zap.String("component", "document_service")),
		now:        time.Now,
	}
}

// scopedCategories returns the category names visible under the caller's
// department scope. A nil slice means every category.
func (s *documentService) scopedCategories(ctx context.Context, caller policy.Caller, department string) ([]string, error) {
	scope, err := policy.ResolveScope(caller, department)
	if err != nil {
		return nil, err
	}
	if scope == model.AllDepartments {
		return nil, nil
	}
	if scope == "" {
		return []string{}, nil
	}
	names, err := s.categories.NamesByDepartment(ctx, scope)
	if err != nil {
		return nil, apperrors.Upstream("list department categories", err)
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}

func (s *documentService) List(ctx context.Context, caller policy.Caller, q DocumentQuery) ([]model.Document, error) {
	names, err := s.scopedCategories(ctx, caller, q.Department)
	if err != nil {
		return nil, err
	}
	if names != nil && len(names) == 0 {
		return []model.Document{}, nil
	}

	docs, err := s.documents.List(ctx, repository.DocumentFilter{
		TitleQuery:    strings.TrimSpace(q.TitleQuery),
		CategoryName:  strings.TrimSpace(q.CategoryName),
		CategoryNames: names,
		Limit:         clamp(q.Limit, defaultDocumentLimit, 1, maxDocumentLimit),
		Offset:        max(q.Offset, 0),
	})
	if err != nil {
		return nil, apperrors.Upstream("list documents", err)
	}
	return docs, nil
}

func (s *documentService) Get(ctx context.Context, id uint) (*model.Document, error) {
	doc, err := s.documents.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, apperrors.ErrDocumentNotFound, "find document")
	}
	return doc, nil
}

// validate runs the checks every document write needs before touching storage.
func (s *documentService) validate(ctx context.Context, caller policy.Caller, in DocumentInput) error {
	if err := policy.RequireWriter(caller.Role); err != nil {
		return err
	}
	if strings.TrimSpace(in.Title) == "" {
		return apperrors.Validation(apperrors.ErrInvalidInput.Code, "title is required")
	}
	if strings.TrimSpace(in.Category) == "" {
		return apperrors.Validation(apperrors.ErrInvalidInput.Code, "category is required")
	}
	if err := imageref.Validate(in.Images); err != nil {
		return err
	}
	if _, err := s.categories.FindByName(ctx, strings.TrimSpace(in.Category)); err != nil {
		return notFoundOr(err, apperrors.ErrUnknownCategory, "find category")
	}
	return nil
}

// embed returns nil for blank text so the row stores a NULL vector.
func (s *documentService) embed(ctx context.Context, text string) (*pgvector.Vector, error) {
	values, err := s.embedder.Embed(ctx, text)
	if errors.Is(err, embedding.ErrEmptyInput) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Upstream("embed document", err)
	}
	v := pgvector.NewVector(values)
	return &v, nil
}

// Create stores a document in two writes. The draft row gets its id first so
// images can be stored under it; the second write stores the resolved
// content with its embedding and marks the row finalized. A crash in between
// leaves a draft that ReconcileDrafts removes.
func (s *documentService) Create(ctx context.Context, caller policy.Caller, in DocumentInput) (*model.Document, error) {
	ctx, span := tracer.Start(ctx, "DocumentService.Create",
		trace.WithAttributes(attribute.String("document.category", in.Category)))
	defer span.End()

	if err := s.validate(ctx, caller, in); err != nil {
		return nil, err
	}

	doc := &model.Document{
		Title:        strings.TrimSpace(in.Title),
		CategoryName: strings.TrimSpace(in.Category),
		Status:       model.DocumentDraft,
		CreatedBy:    caller.FullName,
		CreatedByID:  caller.ID.String(),
	}
	if err := s.documents.Create(ctx, doc); err != nil {
		return nil, s.fail(span, apperrors.Upstream("insert document", err))
	}
	span.SetAttributes(attribute.Int64("document.id", int64(doc.ID)))

	if err := s.finalize(ctx, doc, in); err != nil {
		return nil, s.fail(span, err)
	}
	if err := s.documents.Update(ctx, doc); err != nil {
		return nil, s.fail(span, apperrors.Upstream("finalize document", err))
	}

	s.log.Info("document created",
		zap.Uint("id", doc.ID),
		zap.String("category", doc.CategoryName),
		zap.String("created_by", doc.CreatedByID),
	)
	return doc, nil
}

// Update rewrites a document in a single write. A draft left behind by an
// interrupted create is finalized by it.
func (s *documentService) Update(ctx context.Context, caller policy.Caller, id uint, in DocumentInput) (*model.Document, error) {
	ctx, span := tracer.Start(ctx, "DocumentService.Update",
		trace.WithAttributes(attribute.Int64("document.id", int64(id))))
	defer span.End()

	if err := policy.RequireWriter(caller.Role); err != nil {
		return nil, err
	}
	doc, err := s.documents.FindByID(ctx, id)
	if err != nil {
		return nil, s.fail(span, notFoundOr(err, apperrors.ErrDocumentNotFound, "find document"))
	}
	if err := s.validate(ctx, caller, in); err != nil {
		return nil, err
	}

	doc.Title = strings.TrimSpace(in.Title)
	doc.CategoryName = strings.TrimSpace(in.Category)
	if err := s.finalize(ctx, doc, in); err != nil {
		return nil, s.fail(span, err)
	}
	now := s.now().UTC()
	updatedBy, updatedByID := caller.FullName, caller.ID.String()
	doc.LastUpdated = &now
	doc.UpdatedBy = &updatedBy
	doc.UpdatedByID = &updatedByID

	if err := s.documents.Update(ctx, doc); err != nil {
		return nil, s.fail(span, apperrors.Upstream("update document", err))
	}
	s.log.Info("document updated", zap.Uint("id", doc.ID), zap.String("updated_by", updatedByID))
	return doc, nil
}

// finalize resolves images under the document's id and embeds the final content.
func (s *documentService) finalize(ctx context.Context, doc *model.Document, in DocumentInput) error {
	res := s.resolver.Resolve(ctx, in.Content, in.Images, imageref.DocumentPrefix(doc.ID))
	if res.Unresolved > 0 {
		s.log.Warn("document images left unresolved",
			zap.Uint("id", doc.ID),
			zap.Int("unresolved", res.Unresolved),
		)
	}

	vec, err := s.embed(ctx, res.Content)
	if err != nil {
		return err
	}
	doc.Content = res.Content
	doc.Embedding = vec
	doc.Status = model.DocumentFinalized
	return nil
}

// Delete removes a document row after a best-effort cleanup of its images.
func (s *documentService) Delete(ctx context.Context, caller policy.Caller, id uint) error {
	ctx, span := tracer.Start(ctx, "DocumentService.Delete",
		trace.WithAttributes(attribute.Int64("document.id", int64(id))))
	defer span.End()

	if err := policy.RequireWriter(caller.Role); err != nil {
		return err
	}
	doc, err := s.documents.FindByID(ctx, id)
	if err != nil {
		return s.fail(span, notFoundOr(err, apperrors.ErrDocumentNotFound, "find document"))
	}
	return s.remove(ctx, doc)
}

func (s *documentService) remove(ctx context.Context, doc *model.Document) error {
	if err := s.resolver.PurgeDocument(ctx, doc.ID); err != nil {
		s.log.Warn("document image cleanup failed", zap.Uint("id", doc.ID), zap.Error(err))
	}
	if err := s.documents.Delete(ctx, doc.ID); err != nil {
		return apperrors.Upstream("delete document", err)
	}
	s.log.Info("document deleted", zap.Uint("id", doc.ID))
	return nil
}

// Search ranks finalized documents within the caller's department scope.
// In.Category further narrows the scope to one category.
func (s *documentService) Search(ctx context.Context, caller policy.Caller, in SearchInput) ([]model.SearchResult, error) {
	names, err := s.scopedCategories(ctx, caller, in.Department)
	if err != nil {
		return nil, err
	}
	if cat := strings.TrimSpace(in.Category); cat != "" {
		if names != nil && !slices.Contains(names, cat) {
			return []model.SearchResult{}, nil
		}
		names = []string{cat}
	}
	if names != nil && len(names) == 0 {
		return []model.SearchResult{}, nil
	}
	return s.search(ctx, in, names)
}

// PublicSearch ranks finalized documents without a department scope.
func (s *documentService) PublicSearch(ctx context.Context, in SearchInput) ([]model.SearchResult, error) {
	var names []string
	if cat := strings.TrimSpace(in.Category); cat != "" {
		names = []string{cat}
	}
	return s.search(ctx, in, names)
}

func (s *documentService) search(ctx context.Context, in SearchInput, categories []string) ([]model.SearchResult, error) {
	ctx, span := tracer.Start(ctx, "DocumentService.Search")
	defer span.End()

	query := strings.TrimSpace(in.Query)
	if query == "" {
		return nil, apperrors.Validation(apperrors.ErrInvalidInput.Code, "query is required")
	}
	threshold := defaultMatchThreshold
	if in.Threshold != nil {
		threshold = *in.Threshold
	}
	if threshold < 0 || threshold > 1 {
		return nil, apperrors.Validation(apperrors.ErrInvalidInput.Code, "match_threshold must be between 0 and 1")
	}
	matchCount := clamp(in.MatchCount, defaultMatchCount, 1, maxMatchCount)
	span.SetAttributes(
		attribute.Int("search.match_count", matchCount),
		attribute.Float64("search.threshold", threshold),
		attribute.Int("search.categories", len(categories)),
	)

	values, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, s.fail(span, apperrors.Upstream("embed query", err))
	}

	results, err := s.documents.Search(ctx, repository.SearchParams{
		Embedding:  values,
		MatchCount: matchCount,
		Threshold:  threshold,
		Categories: categories,
	})
	if err != nil {
		return nil, s.fail(span, apperrors.Upstream("search documents", err))
	}
	if results == nil {
		results = []model.SearchResult{}
	}
	span.SetAttributes(attribute.Int("search.results", len(results)))
	return results, nil
}

// ReconcileDrafts deletes drafts older than maxAge together with their
// images and returns how many were removed.
func (s *documentService) ReconcileDrafts(ctx context.Context, maxAge time.Duration) (int, error) {
	ctx, span := tracer.Start(ctx, "DocumentService.ReconcileDrafts")
	defer span.End()

	if maxAge <= 0 {
		return 0, apperrors.Validation(apperrors.ErrInvalidInput.Code, "max age must be positive")
	}
	drafts, err := s.documents.FindStaleDrafts(ctx, s.now().Add(-maxAge))
	if err != nil {
		return 0, s.fail(span, apperrors.Upstream("find stale drafts", err))
	}

	removed := 0
	for i := range drafts {
		if err := s.remove(ctx, &drafts[i]); err != nil {
			return removed, s.fail(span, fmt.Errorf("reconcile draft %d: %w", drafts[i].ID, err))
		}
		removed++
	}
	span.SetAttributes(attribute.Int("drafts.removed", removed))
	if removed > 0 {
		s.log.Info("stale drafts removed", zap.Int("count", removed), zap.Duration("max_age", maxAge))
	}
	return removed, nil
}

func (s *documentService) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
