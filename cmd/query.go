package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/KaramelBytes/csvdash/internal/dashboard"
	"github.com/KaramelBytes/csvdash/internal/engine"
	"github.com/KaramelBytes/csvdash/internal/utils"
	"github.com/spf13/cobra"
)

var (
	qrySample    bool
	qryJSON      bool
	qryExport    string
	qryNoSummary bool
	qrySheet     string
	qryMaxRows   int
	qryShowRows  int
)

var queryCmd = &cobra.Command{
	Use:   "query [file] <question>",
	Short: "Answer a natural-language question about a dataset",
	Example: `  csvdash query sales.csv "total revenue by region"
  csvdash query --sample "average salary by department" --export result.xlsx`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var path, question string
		switch {
		case qrySample && len(args) == 1:
			question = args[0]
		case !qrySample && len(args) == 2:
			path, question = args[0], args[1]
		default:
			return fmt.Errorf("usage: csvdash query <file> <question> (or --sample <question>)")
		}
		var format dashboard.Format
		if qryExport != "" {
			f, err := dashboard.ParseFormat(filepath.Ext(qryExport))
			if err != nil {
				return err
			}
			format = f
		}

		svc, cleanup, err := newServices(serviceOptions{Quiet: true, History: true})
		if err != nil {
			return err
		}
		defer cleanup()
		applyLoadFlags(&svc, qrySheet, qryMaxRows)

		sess := dashboard.NewSession(svc)
		if qrySample {
			sess.LoadSample()
		} else if _, err := sess.LoadFile(path); err != nil {
			return err
		}
		ans, err := sess.Ask(context.Background(), question, dashboard.AskOptions{NoSummary: qryNoSummary})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if qryJSON {
			b, err := utils.PrettyJSON(ans)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(b))
		} else {
			writeAnswer(out, ans, qryShowRows)
		}

		if qryExport != "" {
			if err := exportTo(qryExport, func(w io.Writer) error {
				return sess.Export(w, format, dashboard.ViewResult)
			}); err != nil {
				return err
			}
			if !qryJSON {
				fmt.Fprintf(out, "✓ Result written to %s\n", qryExport)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().BoolVar(&qrySample, "sample", false, "query the built-in employee dataset")
	queryCmd.Flags().BoolVar(&qryJSON, "json", false, "print the full answer as JSON")
	queryCmd.Flags().StringVar(&qryExport, "export", "", "write the result table to a .csv or .xlsx file")
	queryCmd.Flags().BoolVar(&qryNoSummary, "no-summary", false, "skip the prose summary")
	queryCmd.Flags().StringVar(&qrySheet, "sheet", "", "XLSX sheet name (default: first sheet)")
	queryCmd.Flags().IntVar(&qryMaxRows, "max-rows", 0, "max data rows to read (0 = default cap)")
	queryCmd.Flags().IntVar(&qryShowRows, "show-rows", 20, "max result rows to print")
}

func writeAnswer(w io.Writer, ans *dashboard.Answer, maxRows int) {
	res := ans.Result
	if res.Failed() {
		fmt.Fprintf(w, "⚠ Warning: %s\n", res.Error)
	} else {
		fmt.Fprintf(w, "✓ %s query, %s chart (interpreted by %s)\n", res.Type, res.Chart, ans.Intent.Source)
	}
	if res.Summary != "" {
		fmt.Fprintf(w, "  %s\n", res.Summary)
	}
	if ans.Chart.Notice != "" {
		fmt.Fprintf(w, "  %s\n", ans.Chart.Notice)
	}
	fmt.Fprintln(w)
	writeTable(w, res, maxRows)
	if ans.Summary != "" {
		fmt.Fprintf(w, "\nSummary (%s):\n%s\n", ans.SummarySource, ans.Summary)
	}
}

func writeTable(w io.Writer, res engine.Result, maxRows int) {
	if res.Data == nil {
		return
	}
	cols, rows := res.Data.Table()
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(cols, "\t"))
	for i, r := range rows {
		if maxRows > 0 && i == maxRows {
			break
		}
		fmt.Fprintln(tw, strings.Join(r, "\t"))
	}
	_ = tw.Flush()
	if maxRows > 0 && len(rows) > maxRows {
		fmt.Fprintf(w, "… %d more rows\n", len(rows)-maxRows)
	}
}

// exportTo writes to a temp file beside path and renames it into place.
func exportTo(path string, write func(io.Writer) error) error {
	if err := utils.EnsureParentDir(path); err != nil {
		return fmt.Errorf("ensure dir: %w", err)
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("atomic rename: %w", err)
	}
	return nil
}
