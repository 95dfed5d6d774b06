package main

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/V4T54L/defect-lens/internal/adapter/repository/catalog"
	"github.com/V4T54L/defect-lens/internal/domain"
)

var defectsFlags struct {
	catalogPath string
}

var defectsCmd = &cobra.Command{
	Use:   "defects",
	Short: "List the defects in the catalog",
	RunE:  runDefects,
}

func init() {
	defectsCmd.Flags().StringVar(&defectsFlags.catalogPath, "catalog", "", "YAML defect catalog (default: built-in catalog)")
}

func runDefects(cmd *cobra.Command, _ []string) error {
	defects, err := loadCatalog(cmd, defectsFlags.catalogPath)
	if err != nil {
		return err
	}

	t := newTable(cmd.OutOrStdout())
	t.AppendHeader(table.Row{"ID", "Name", "Status", "Detected", "Confidence", "Pattern", "Boxes"})
	for _, d := range defects {
		t.AppendRow(table.Row{
			d.ID,
			d.Name,
			d.Status,
			d.DetectedAt.UTC().Format(time.RFC3339),
			fmt.Sprintf("%.0f%%", d.Analysis.Confidence*100),
			d.Analysis.Pattern,
			len(d.Analysis.BoundingBoxes),
		})
	}
	t.AppendFooter(table.Row{"", "", "", "", "", "Total", len(defects)})
	t.Render()
	return nil
}

func loadCatalog(cmd *cobra.Command, path string) ([]domain.Defect, error) {
	repo, err := catalog.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	return repo.List(cmd.Context())
}
