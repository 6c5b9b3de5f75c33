package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/KaramelBytes/csvdash/internal/dashboard"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	profSample   bool
	profFormat   string
	profAnalysis bool
	profSheet    string
	profMaxRows  int
)

var profileCmd = &cobra.Command{
	Use:   "profile [file]",
	Short: "Clean a CSV/XLSX file and describe its columns, quality and KPIs",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format := strings.ToLower(strings.TrimSpace(profFormat))
		switch format {
		case "", "text", "json", "yaml":
		default:
			return fmt.Errorf("unsupported --format: %s (use text|json|yaml)", profFormat)
		}
		if !profSample && len(args) == 0 {
			return fmt.Errorf("provide a file or --sample")
		}
		svc, cleanup, err := newServices(serviceOptions{Quiet: true})
		if err != nil {
			return err
		}
		defer cleanup()
		applyLoadFlags(&svc, profSheet, profMaxRows)

		sess := dashboard.NewSession(svc)
		if profSample {
			sess.LoadSample()
		} else if _, err := sess.LoadFile(args[0]); err != nil {
			return err
		}
		ov, err := sess.Describe(context.Background(), profAnalysis)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		switch format {
		case "json":
			b, err := json.MarshalIndent(ov, "", "  ")
			if err != nil {
				return fmt.Errorf("marshal json: %w", err)
			}
			fmt.Fprintln(out, string(b))
			return nil
		case "yaml":
			b, err := yaml.Marshal(ov)
			if err != nil {
				return fmt.Errorf("marshal yaml: %w", err)
			}
			fmt.Fprint(out, string(b))
			return nil
		}
		writeOverview(out, ov)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(profileCmd)
	profileCmd.Flags().BoolVar(&profSample, "sample", false, "use the built-in employee dataset")
	profileCmd.Flags().StringVar(&profFormat, "format", "text", "output format: text|json|yaml")
	profileCmd.Flags().BoolVar(&profAnalysis, "analysis", false, "include a prose overview of the dataset")
	profileCmd.Flags().StringVar(&profSheet, "sheet", "", "XLSX sheet name (default: first sheet)")
	profileCmd.Flags().IntVar(&profMaxRows, "max-rows", 0, "max data rows to read (0 = default cap)")
}

// applyLoadFlags overrides load options from per-command flags.
func applyLoadFlags(svc *dashboard.Services, sheet string, maxRows int) {
	if sheet != "" {
		svc.LoadOptions.Sheet = sheet
	}
	if maxRows > 0 {
		svc.LoadOptions.MaxRows = maxRows
	}
}

func writeOverview(w io.Writer, ov *dashboard.Overview) {
	rep := ov.Report
	fmt.Fprintf(w, "✓ Loaded %s: %d rows × %d columns (quality: %s, %d/100)\n", ov.Dataset, ov.Rows, len(ov.Columns), rep.Quality, rep.QualityScore)
	if rep.Message != "" {
		fmt.Fprintf(w, "  %s\n", rep.Message)
	}
	if len(rep.RemovedColumns) > 0 {
		fmt.Fprintf(w, "  Removed columns: %s\n", strings.Join(rep.RemovedColumns, ", "))
	}
	fmt.Fprintln(w, "\nColumns:")
	for _, line := range ov.Profile.SchemaLines() {
		fmt.Fprintf(w, "  %s\n", line)
	}
	fmt.Fprintf(w, "\nData quality: %s\n", ov.Profile.Quality)
	if len(ov.Profile.AnalysisTypes) > 0 {
		fmt.Fprintf(w, "Suggested analyses: %s\n", strings.Join(ov.Profile.AnalysisTypes, ", "))
	}
	fmt.Fprintf(w, "\nKPIs (%s):\n", ov.KPISource)
	for _, k := range ov.KPIs {
		fmt.Fprintf(w, "  %-20s %s  (%s)\n", k.Name, k.Value, k.Insight)
	}
	if ov.Analysis != "" {
		fmt.Fprintf(w, "\nOverview (%s):\n%s\n", ov.AnalysisSource, ov.Analysis)
	}
}
