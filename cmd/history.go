package cmd

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/KaramelBytes/csvdash/internal/history"
	"github.com/spf13/cobra"
)

var (
	histLimit   int
	histSession string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recently asked questions",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadedConfig()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if !c.HistoryEnabled {
			fmt.Fprintln(out, "⚠ Warning: query history is disabled (history_enabled: false)")
			return nil
		}
		st, err := history.Open(c.HistoryPath)
		if err != nil {
			return err
		}
		defer st.Close()
		entries, err := st.Recent(context.Background(), histSession, histLimit)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Fprintln(out, "No queries recorded yet")
			return nil
		}
		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "TIME\tDATASET\tTYPE\tCHART\tSOURCE\tQUERY")
		for _, e := range entries {
			q := e.Query
			if e.Failed {
				q += " (degraded)"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", e.CreatedAt.Local().Format("2006-01-02 15:04:05"), e.Dataset, e.QueryType, e.ChartType, e.Source, q)
		}
		return tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntVar(&histLimit, "limit", 20, "max entries to list")
	historyCmd.Flags().StringVar(&histSession, "session", "", "only list queries from this session ID")
}
