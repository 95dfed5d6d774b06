package main

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/V4T54L/defect-lens/internal/adapter/pii"
	"github.com/V4T54L/defect-lens/internal/adapter/redaction"
	"github.com/V4T54L/defect-lens/internal/domain"
	"github.com/V4T54L/defect-lens/internal/textdiff"
	"github.com/V4T54L/defect-lens/internal/usecase"
)

var reportFlags struct {
	catalogPath string
	defectID    string
	role        string
	redactorURL string
	timeout     time.Duration
	showDiff    bool
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Render a defect's safety report as a role would see it",
	Long: "Render the report tab, safety diff and audit log for one defect.\n" +
		"Without --redactor-url the built-in rule redactor stands in for the\n" +
		"redaction service.",
	RunE: runReport,
}

func init() {
	f := reportCmd.Flags()
	f.StringVar(&reportFlags.catalogPath, "catalog", "", "YAML defect catalog (default: built-in catalog)")
	f.StringVar(&reportFlags.defectID, "defect", "", "Defect ID (default: first defect)")
	f.StringVar(&reportFlags.role, "role", string(domain.DefaultRole), "Viewer role (EQUIPMENT_ENG or YIELD_ENG)")
	f.StringVar(&reportFlags.redactorURL, "redactor-url", "", "Redaction service endpoint, e.g. http://localhost:8000/redact-report")
	f.DurationVar(&reportFlags.timeout, "timeout", 10*time.Second, "Redaction call timeout")
	f.BoolVar(&reportFlags.showDiff, "diff", false, "Also print the safety diff")
}

func runReport(cmd *cobra.Command, _ []string) error {
	role, err := domain.ParseUserRole(reportFlags.role)
	if err != nil {
		return err
	}
	defects, err := loadCatalog(cmd, reportFlags.catalogPath)
	if err != nil {
		return err
	}

	log := cliLogger()
	var redactor domain.Redactor = pii.NewRedactor(log)
	if reportFlags.redactorURL != "" {
		redactor = redaction.NewClient(reportFlags.redactorURL, reportFlags.timeout, 0, log)
	}

	session := usecase.NewSession(defects, redactor, log, usecase.WithRedactionTimeout(reportFlags.timeout))
	defer session.Close()
	session.Start()
	if reportFlags.defectID != "" && !session.SelectDefect(reportFlags.defectID) {
		return fmt.Errorf("%w: %s", domain.ErrDefectNotFound, reportFlags.defectID)
	}
	session.SetRole(role)
	session.Wait()

	view := usecase.NewReportPanel(session).Render()
	printView(cmd.OutOrStdout(), view, reportFlags.showDiff)
	return nil
}

func printView(out io.Writer, v usecase.View, showDiff bool) {
	t := newTable(out)
	t.AppendRow(table.Row{"Defect", v.DefectID + " " + v.DefectName})
	t.AppendRow(table.Row{"Status", v.Status})
	t.AppendRow(table.Row{"Role", v.Role})
	t.AppendRow(table.Row{"Protected", v.Protected})
	t.AppendRow(table.Row{"Redaction", v.Phase})
	if v.Fallback {
		t.AppendRow(table.Row{"Fallback", "static redacted content"})
	}
	if v.Notice != "" {
		t.AppendRow(table.Row{"Notice", v.Notice})
	}
	t.Render()

	fmt.Fprintf(out, "\n%s\n", v.ReportText)

	if showDiff {
		fmt.Fprintf(out, "\n--- safety diff (%d change(s)) ---\n%s\n", v.DiffStats.Changes, textdiff.Markup(v.Diff))
	}

	if len(v.Logs) > 0 {
		fmt.Fprintln(out)
		logs := newTable(out)
		logs.AppendHeader(table.Row{"Time", "Action", "Details"})
		for _, l := range v.Logs {
			logs.AppendRow(table.Row{l.Timestamp.UTC().Format(time.RFC3339), l.Action, l.Details})
		}
		logs.Render()
	}
}
