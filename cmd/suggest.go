package cmd

import (
	"context"
	"fmt"

	"github.com/KaramelBytes/csvdash/internal/dashboard"
	"github.com/spf13/cobra"
)

var (
	sugSample bool
	sugSheet  string
)

var suggestCmd = &cobra.Command{
	Use:   "suggest [file]",
	Short: "Propose questions worth asking about a dataset",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !sugSample && len(args) == 0 {
			return fmt.Errorf("provide a file or --sample")
		}
		svc, cleanup, err := newServices(serviceOptions{Quiet: true})
		if err != nil {
			return err
		}
		defer cleanup()
		applyLoadFlags(&svc, sugSheet, 0)

		sess := dashboard.NewSession(svc)
		if sugSample {
			sess.LoadSample()
		} else if _, err := sess.LoadFile(args[0]); err != nil {
			return err
		}
		res, err := sess.Suggestions(context.Background())
		if err != nil {
			return err
		}
		warnFallback("suggestions", res.Err)
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Suggested questions (%s):\n", res.Source)
		for i, q := range res.Questions {
			fmt.Fprintf(out, "%2d. %s\n", i+1, q)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(suggestCmd)
	suggestCmd.Flags().BoolVar(&sugSample, "sample", false, "use the built-in employee dataset")
	suggestCmd.Flags().StringVar(&sugSheet, "sheet", "", "XLSX sheet name (default: first sheet)")
}
