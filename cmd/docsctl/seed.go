package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"smartdocs/internal/config"
	"smartdocs/internal/db"
	"smartdocs/internal/model"
	"smartdocs/internal/repository"
)

const seedCategory = "general"

var seedDepartment string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the first superadmin and the default category",
	Long: "Creates a superadmin from SEED_SUPERADMIN_EMAIL and SEED_SUPERADMIN_PASSWORD " +
		"when the users table is empty, and a \"general\" category when missing. Safe to rerun.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, l, err := bootstrap("seed")
		if err != nil {
			return err
		}
		defer func() { _ = l.Sync() }()

		gormDB, err := db.NewPostgres(cfg.DatabaseDSN, l)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		if err := db.Migrate(gormDB); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}

		ctx := cmd.Context()
		users := repository.NewUserRepository(gormDB)
		categories := repository.NewCategoryRepository(gormDB)

		admin, err := seedSuperadmin(ctx, cfg, users, l)
		if err != nil {
			return err
		}
		return seedGeneralCategory(ctx, categories, admin, l)
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedDepartment, "department", "general", "department of the default category")
	rootCmd.AddCommand(seedCmd)
}

// seedSuperadmin returns the created superadmin, or nil when users already exist.
func seedSuperadmin(ctx context.Context, cfg *config.Config, users repository.UserRepository, l *zap.Logger) (*model.User, error) {
	count, err := users.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	if count > 0 {
		l.Info("users present, skipping superadmin", zap.Int64("count", count))
		return nil, nil
	}

	email := strings.ToLower(strings.TrimSpace(cfg.SeedSuperadminEmail))
	if email == "" || cfg.SeedSuperadminPassword == "" {
		return nil, stderrors.New("SEED_SUPERADMIN_EMAIL and SEED_SUPERADMIN_PASSWORD are required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.SeedSuperadminPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	department := model.AllDepartments
	admin := &model.User{
		Email:        email,
		PasswordHash: string(hash),
		FullName:     "Super Admin",
		Role:         model.RoleSuperadmin,
		Department:   &department,
		IsActive:     true,
	}
	if err := users.Create(ctx, admin); err != nil {
		return nil, fmt.Errorf("create superadmin: %w", err)
	}
	l.Info("superadmin created", zap.String("email", email))
	return admin, nil
}

func seedGeneralCategory(ctx context.Context, categories repository.CategoryRepository, by *model.User, l *zap.Logger) error {
	department := strings.ToLower(strings.TrimSpace(seedDepartment))
	exists, err := categories.ExistsInDepartment(ctx, seedCategory, department, 0)
	if err != nil {
		return fmt.Errorf("check category: %w", err)
	}
	if exists {
		l.Info("category present, skipping", zap.String("name", seedCategory), zap.String("department", department))
		return nil
	}

	category := &model.Category{
		Name:       seedCategory,
		Department: department,
		CreatedBy:  "system",
	}
	if by != nil {
		category.CreatedBy = by.FullName
		category.CreatedByID = by.ID.String()
	}
	if err := categories.Create(ctx, category); err != nil {
		return fmt.Errorf("create category: %w", err)
	}
	l.Info("category created", zap.String("name", seedCategory), zap.String("department", department))
	return nil
}
