package main

import (
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/V4T54L/defect-lens/internal/adapter/repository/postgres"

	_ "github.com/lib/pq" // Keep for postgres driver
)

var seedFlags struct {
	catalogPath string
	postgresURL string
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Copy the defect catalog into PostgreSQL",
	RunE:  runSeed,
}

func init() {
	f := seedCmd.Flags()
	f.StringVar(&seedFlags.catalogPath, "catalog", "", "YAML defect catalog (default: built-in catalog)")
	f.StringVar(&seedFlags.postgresURL, "postgres-url", "", "PostgreSQL connection URL (required)")

	_ = seedCmd.MarkFlagRequired("postgres-url")
}

func runSeed(cmd *cobra.Command, _ []string) error {
	defects, err := loadCatalog(cmd, seedFlags.catalogPath)
	if err != nil {
		return err
	}

	db, err := sql.Open("postgres", seedFlags.postgresURL)
	if err != nil {
		return fmt.Errorf("open postgres: %w", err)
	}
	defer db.Close()

	repo := postgres.NewDefectRepository(db, cliLogger())
	if err := repo.EnsureSchema(cmd.Context()); err != nil {
		return err
	}
	if err := repo.Save(cmd.Context(), defects); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d defect(s)\n", len(defects))
	return nil
}
