package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"practice_app_echo/internal/config"
	"practice_app_echo/internal/services"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "paymentctl",
		Short:        "Operator commands for the practice payment ledger",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(reconcileCmd())
	rootCmd.AddCommand(consistencyCmd())
	rootCmd.AddCommand(scheduleTaskCmd())
	rootCmd.AddCommand(scheduleReconcileCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openDB loads config and connects to the database named by DATABASE_URL
func openDB() (*gorm.DB, *zap.Logger, error) {
	cfg, _ := config.Load()
	logger, err := services.NewLogger(cfg.IsDevelopment())
	if err != nil {
		return nil, nil, err
	}
	if cfg.DatabaseURL == "" {
		return nil, nil, fmt.Errorf("DATABASE_URL is not set")
	}
	db, err := services.InitDB(cfg.DatabaseURL, false)
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}
	return db, logger, nil
}
