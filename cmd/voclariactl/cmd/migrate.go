package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"github.com/voclaria/voclaria/internal/db"
)

// Connection flags shared by every subcommand.
var (
	DBDriver     string
	DBConnection string
)

// AddConnectionFlags registers --db-driver and --db, defaulting to the
// server's DB_DRIVER and DB_CONNECTION.
func AddConnectionFlags(root *cobra.Command) {
	root.PersistentFlags().StringVar(&DBDriver, "db-driver", envOr("DB_DRIVER", "sqlite"), "database driver (sqlite or pgx)")
	root.PersistentFlags().StringVar(&DBConnection, "db", envOr("DB_CONNECTION", "./data/voclaria.db?_pragma=foreign_keys(1)"), "database connection string")
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func openDB(ctx context.Context) (*sqlx.DB, error) {
	database, err := db.Open(ctx, DBDriver, DBConnection)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return database, nil
}

func MigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back schema migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer database.Close()
			return db.RunMigrations(cmd.Context(), database.DB, DBDriver)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the latest migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer database.Close()
			return db.MigrateDown(cmd.Context(), database.DB, DBDriver)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "List migrations and whether they are applied",
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer database.Close()

			migrator, err := db.NewMigrator(database.DB, DBDriver)
			if err != nil {
				return err
			}
			statuses, err := migrator.Status(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to read migration status: %w", err)
			}
			for _, st := range statuses {
				applied := "-"
				if !st.AppliedAt.IsZero() {
					applied = st.AppliedAt.Format(time.RFC3339)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%05d\t%s\t%s\t%s\n", st.Source.Version, st.State, applied, filepath.Base(st.Source.Path))
			}
			return nil
		},
	})

	return cmd
}
