package cmd

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/KaramelBytes/csvdash/internal/dashboard"
	"github.com/spf13/cobra"
)

var (
	expOutput  string
	expSheet   string
	expMaxRows int
)

var exportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Write the cleaned dataset to a CSV or XLSX file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if expOutput == "" {
			return fmt.Errorf("-o/--output is required")
		}
		format, err := dashboard.ParseFormat(filepath.Ext(expOutput))
		if err != nil {
			return err
		}
		svc, cleanup, err := newServices(serviceOptions{Quiet: true})
		if err != nil {
			return err
		}
		defer cleanup()
		applyLoadFlags(&svc, expSheet, expMaxRows)

		sess := dashboard.NewSession(svc)
		rep, err := sess.LoadFile(args[0])
		if err != nil {
			return err
		}
		if err := exportTo(expOutput, func(w io.Writer) error {
			return sess.Export(w, format, dashboard.ViewDataset)
		}); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote %d rows × %d columns to %s\n", rep.CleanedRows, rep.ValidColumns, expOutput)
		if rep.RemovedRows > 0 || len(rep.RemovedColumns) > 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", rep.Message)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&expOutput, "output", "o", "", "output path ending in .csv or .xlsx")
	exportCmd.Flags().StringVar(&expSheet, "sheet", "", "XLSX sheet name (default: first sheet)")
	exportCmd.Flags().IntVar(&expMaxRows, "max-rows", 0, "max data rows to read (0 = default cap)")
}
