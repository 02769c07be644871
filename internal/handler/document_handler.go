package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"smartdocs/internal/model"
	"smartdocs/internal/service"
)

// DocumentHandler handles document and search endpoints.
type DocumentHandler struct {
	svc service.DocumentService
}

// NewDocumentHandler creates a new document handler.
func NewDocumentHandler(svc service.DocumentService) *DocumentHandler {
	return &DocumentHandler{svc: svc}
}

// DocData is the editable part of a document.
type DocData struct {
	Title    string `json:"title" validate:"required,max=200"`
	Content  string `json:"content"`
	Category string `json:"category" validate:"required,max=100"`
}

// DocumentRequest is the create and update payload. ImgRef pairs each blob
// placeholder in the content with its base64 image.
type DocumentRequest struct {
	DocData DocData                `json:"docData"`
	ImgRef  []model.ImageReference `json:"imgRef" validate:"dive"`
}

func (r DocumentRequest) input() service.DocumentInput {
	return service.DocumentInput{
		Title:    r.DocData.Title,
		Content:  r.DocData.Content,
		Category: r.DocData.Category,
		Images:   r.ImgRef,
	}
}

// SearchResponse lists ranked matches.
type SearchResponse struct {
	Query   string               `json:"query"`
	Count   int                  `json:"count"`
	Results []model.SearchResult `json:"results"`
}

// ListDocuments godoc
// @Summary List documents
// @Description Scoped to the caller's department unless department is given. Only superadmin sees every department.
// @Tags documents
// @Produce json
// @Security BearerAuth
// @Param q query string false "Title filter"
// @Param category_name query string false "Category"
// @Param department query string false "Department"
// @Param limit query int false "Page size (1-200, default 50)"
// @Param offset query int false "Offset"
// @Success 200 {array} model.Document
// @Failure 403 {object} errors.ErrorResponse
// @Router /documents [get]
func (h *DocumentHandler) ListDocuments(c echo.Context) error {
	p, err := caller(c)
	if err != nil {
		return err
	}
	limit, err := intQuery(c, "limit")
	if err != nil {
		return err
	}
	offset, err := intQuery(c, "offset")
	if err != nil {
		return err
	}

	docs, err := h.svc.List(c.Request().Context(), p, service.DocumentQuery{
		TitleQuery:   c.QueryParam("q"),
		CategoryName: c.QueryParam("category_name"),
		Department:   c.QueryParam("department"),
		Limit:        limit,
		Offset:       offset,
	})
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, docs)
}

// GetDocument godoc
// @Summary Get a document
// @Tags documents
// @Produce json
// @Security BearerAuth
// @Param id path int true "Document ID"
// @Success 200 {object} model.Document
// @Failure 404 {object} errors.ErrorResponse
// @Router /documents/{id} [get]
func (h *DocumentHandler) GetDocument(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	doc, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, doc)
}

// CreateDocument godoc
// @Summary Create a document
// @Description Uploads every referenced image, replaces its blob placeholder with the stored URL and embeds the final content.
// @Tags documents
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body DocumentRequest true "Document"
// @Success 201 {object} model.Document
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 502 {object} errors.ErrorResponse
// @Router /documents [post]
func (h *DocumentHandler) CreateDocument(c echo.Context) error {
	p, err := caller(c)
	if err != nil {
		return err
	}
	var req DocumentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	doc, err := h.svc.Create(c.Request().Context(), p, req.input())
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusCreated, doc)
}

// UpdateDocument godoc
// @Summary Update a document
// @Tags documents
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Document ID"
// @Param request body DocumentRequest true "Document"
// @Success 200 {object} model.Document
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 502 {object} errors.ErrorResponse
// @Router /documents/{id} [put]
func (h *DocumentHandler) UpdateDocument(c echo.Context) error {
	p, err := caller(c)
	if err != nil {
		return err
	}
	id, err := idParam(c)
	if err != nil {
		return err
	}
	var req DocumentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	doc, err := h.svc.Update(c.Request().Context(), p, id, req.input())
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, doc)
}

// DeleteDocument godoc
// @Summary Delete a document and its images
// @Tags documents
// @Security BearerAuth
// @Param id path int true "Document ID"
// @Success 204
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /documents/{id} [delete]
func (h *DocumentHandler) DeleteDocument(c echo.Context) error {
	p, err := caller(c)
	if err != nil {
		return err
	}
	id, err := idParam(c)
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), p, id); err != nil {
		return respondError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// SearchDocuments godoc
// @Summary Semantic search within the caller's department scope
// @Tags documents
// @Produce json
// @Security BearerAuth
// @Param query query string true "Search text"
// @Param match_count query int false "Maximum results (default 5)"
// @Param match_threshold query number false "Minimum similarity (default 0.5)"
// @Param department query string false "Department"
// @Param category query string false "Category"
// @Success 200 {object} SearchResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 502 {object} errors.ErrorResponse
// @Router /documents/search [get]
func (h *DocumentHandler) SearchDocuments(c echo.Context) error {
	p, err := caller(c)
	if err != nil {
		return err
	}
	in, err := searchInput(c, "category")
	if err != nil {
		return err
	}
	in.Department = c.QueryParam("department")

	results, err := h.svc.Search(c.Request().Context(), p, in)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, SearchResponse{Query: in.Query, Count: len(results), Results: results})
}

// PublicSearch godoc
// @Summary Semantic search over every finalized document
// @Tags public
// @Produce json
// @Param query query string true "Search text"
// @Param match_count query int false "Maximum results (default 5)"
// @Param match_threshold query number false "Minimum similarity (default 0.5)"
// @Param filter_category query string false "Category"
// @Success 200 {object} SearchResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 502 {object} errors.ErrorResponse
// @Router /public-documents/search [get]
func (h *DocumentHandler) PublicSearch(c echo.Context) error {
	in, err := searchInput(c, "filter_category")
	if err != nil {
		return err
	}
	results, err := h.svc.PublicSearch(c.Request().Context(), in)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, SearchResponse{Query: in.Query, Count: len(results), Results: results})
}

func searchInput(c echo.Context, categoryParam string) (service.SearchInput, error) {
	matchCount, err := intQuery(c, "match_count")
	if err != nil {
		return service.SearchInput{}, err
	}
	threshold, err := floatQuery(c, "match_threshold")
	if err != nil {
		return service.SearchInput{}, err
	}
	return service.SearchInput{
		Query:      c.QueryParam("query"),
		MatchCount: matchCount,
		Threshold:  threshold,
		Category:   c.QueryParam(categoryParam),
	}, nil
}
