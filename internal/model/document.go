package model

import (
	"time"

	"github.com/pgvector/pgvector-go"
)

// DocumentStatus tracks the two-step creation of a document.
type DocumentStatus string

const (
	// DocumentDraft rows exist but their content and images are not final yet.
	DocumentDraft     DocumentStatus = "draft"
	DocumentFinalized DocumentStatus = "finalized"
)

// Document is a department-scoped text with an embedding used for semantic search.
type Document struct {
	ID           uint             `json:"id" gorm:"primaryKey"`
	Title        string           `json:"title" gorm:"size:200;not null"`
	CategoryName string           `json:"category_name" gorm:"size:100;not null;index"`
	Content      string           `json:"content" gorm:"type:text;not null;default:''"`
	Embedding    *pgvector.Vector `json:"-" gorm:"type:vector"`
	Status       DocumentStatus   `json:"status" gorm:"size:20;not null;default:'draft';index"`
	CreatedBy    string           `json:"created_by" gorm:"size:100"`
	CreatedByID  string           `json:"created_by_id" gorm:"size:36"`
	UpdatedBy    *string          `json:"updated_by" gorm:"size:100"`
	UpdatedByID  *string          `json:"updated_by_id" gorm:"size:36"`
	CreatedAt    time.Time        `json:"created_at"`
	LastUpdated  *time.Time       `json:"last_updated"`
}

// HasEmbedding reports whether a non-empty vector is attached.
func (d *Document) HasEmbedding() bool {
	return d.Embedding != nil && len(d.Embedding.Slice()) > 0
}

// ImageReference pairs a placeholder found in document content with the
// base64 payload that should replace it. It is never persisted.
type ImageReference struct {
	Refer   string `json:"refer" validate:"required"`
	ImgByte string `json:"imgByte" validate:"required"`
}

// SearchResult is one row returned by the search_documents SQL function.
type SearchResult struct {
	ID           uint    `json:"id"`
	Title        string  `json:"title"`
	Content      string  `json:"content"`
	CategoryName string  `json:"category" gorm:"column:category_name"`
	Similarity   float64 `json:"score" gorm:"column:similarity"`
}
