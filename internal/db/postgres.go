package db

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"smartdocs/internal/model"
)

// NewPostgres returns a connected GORM DB instance. SQL warnings and slow
// queries are written through the given zap logger.
func NewPostgres(dsn string, log *zap.Logger) (*gorm.DB, error) {
	if log == nil {
		log = zap.NewNop()
	}
	gormLog := gormLogger.New(
		zap.NewStdLog(log.With(zap.String("component", "gorm"))),
		gormLogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormLog,
	})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return db, nil
}

const searchFunctionSQL = `
CREATE OR REPLACE FUNCTION search_documents(
	query_embedding vector,
	match_count int,
	match_threshold float8,
	filter_categories text[] DEFAULT NULL
)
RETURNS TABLE (id bigint, title text, content text, category_name text, similarity float8)
LANGUAGE sql STABLE
AS $$
	SELECT d.id, d.title::text, d.content, d.category_name::text,
		1 - (d.embedding <=> query_embedding) AS similarity
	FROM documents d
	WHERE d.embedding IS NOT NULL
		AND d.status = 'finalized'
		AND (filter_categories IS NULL OR d.category_name = ANY (filter_categories))
		AND 1 - (d.embedding <=> query_embedding) > match_threshold
	ORDER BY d.embedding <=> query_embedding
	LIMIT match_count;
$$;`

// Migrate enables pgvector, migrates every model and (re)creates the
// search_documents function used for similarity search.
func Migrate(db *gorm.DB) error {
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS vector`).Error; err != nil {
		return fmt.Errorf("enable vector extension: %w", err)
	}
	if err := db.AutoMigrate(
		&model.User{},
		&model.Category{},
		&model.Document{},
	); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	if err := db.Exec(searchFunctionSQL).Error; err != nil {
		return fmt.Errorf("create search function: %w", err)
	}
	return nil
}
