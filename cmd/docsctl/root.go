package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"smartdocs/internal/config"
	"smartdocs/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:   "docsctl",
	Short: "Operator tasks for the documents service",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		err := godotenv.Overload()
		if err != nil {
			log.Println("Error loading .env file, skipping")
		}
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalln(err.Error())
	}
}

// bootstrap loads configuration and a component logger for a subcommand.
func bootstrap(component string) (*config.Config, *zap.Logger, error) {
	cfg := config.Load()
	zl, err := logger.New(cfg.Mode)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger.Component(zl, component), nil
}
