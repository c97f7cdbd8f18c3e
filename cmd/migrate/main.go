package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"adminhub/internal/pkg/logger"
	"adminhub/internal/platform/config"
	"adminhub/internal/platform/database"
)

func main() {
	var configPath string

	root := &cobra.Command{
		Use:          "migrate",
		Short:        "Manage the adminhub database schema",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "configs/config.yaml", "Path to config file")

	root.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply every pending migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(configPath, func(ctx context.Context, db *sql.DB) error {
				applied, err := database.Migrate(ctx, db)
				if err != nil {
					return err
				}
				log.Info().Strs("migrations", applied).Msg("migration completed")
				return nil
			})
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "List migrations and whether they are applied",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(configPath, func(ctx context.Context, db *sql.DB) error {
				all, err := database.Migrations()
				if err != nil {
					return err
				}
				pending, err := database.Pending(ctx, db)
				if err != nil {
					return err
				}
				waiting := make(map[string]bool, len(pending))
				for _, name := range pending {
					waiting[name] = true
				}
				for _, name := range all {
					state := "applied"
					if waiting[name] {
						state = "pending"
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%-8s %s\n", state, name)
				}
				return nil
			})
		},
	})

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func withDB(configPath string, fn func(ctx context.Context, db *sql.DB) error) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger.Init(cfg.Logging)

	db, err := database.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	return fn(context.Background(), db)
}
