package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"smartdocs/internal/db"
	"smartdocs/internal/embedding"
	"smartdocs/internal/imageref"
	"smartdocs/internal/repository"
	"smartdocs/internal/service"
	"smartdocs/internal/storage"
)

var reconcileMaxAge time.Duration

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Delete stale draft documents and their stored images",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, l, err := bootstrap("reconcile")
		if err != nil {
			return err
		}
		defer func() { _ = l.Sync() }()

		maxAge := reconcileMaxAge
		if !cmd.Flags().Changed("max-age") {
			maxAge = cfg.DraftMaxAge
		}

		ctx := cmd.Context()
		gormDB, err := db.NewPostgres(cfg.DatabaseDSN, l)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}

		gcsClient, err := storage.NewClient(ctx, storage.ClientOptions{
			Credentials:  cfg.GCSCredentials,
			EmulatorHost: cfg.StorageEmulator,
		})
		if err != nil {
			return fmt.Errorf("storage client: %w", err)
		}
		defer gcsClient.Close()

		images := storage.NewGCSStore(gcsClient, cfg.DocumentBucket, cfg.StoragePublicBase, cfg.StorageEmulator, l)
		embedder := embedding.NewOpenAIEmbedder(embedding.Options{
			BaseURL: cfg.EmbeddingBaseURL,
			APIKey:  cfg.EmbeddingAPIKey,
			Model:   cfg.EmbeddingModel,
		}, l)
		documents := service.NewDocumentService(
			repository.NewDocumentRepository(gormDB),
			repository.NewCategoryRepository(gormDB),
			embedder,
			imageref.NewResolver(images, l),
			l,
		)

		removed, err := documents.ReconcileDrafts(ctx, maxAge)
		if err != nil {
			return fmt.Errorf("reconcile drafts: %w", err)
		}
		l.Info("drafts reconciled", zap.Int("removed", removed), zap.Duration("max_age", maxAge))
		fmt.Fprintf(cmd.OutOrStdout(), "removed %d stale drafts\n", removed)
		return nil
	},
}

func init() {
	reconcileCmd.Flags().DurationVar(&reconcileMaxAge, "max-age", 30*time.Minute, "minimum age of a draft before it is removed (defaults to DRAFT_MAX_AGE)")
	rootCmd.AddCommand(reconcileCmd)
}
