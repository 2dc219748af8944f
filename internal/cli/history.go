package cli

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/timernudge/timernudge/internal/reporter"
)

func historyCmd(a *app) *cobra.Command {
	var (
		jsonOutput bool
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "history [period]",
		Short: "Show recent reminder checks (period: hour, day, week, or a duration)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			period := "day"
			if len(args) == 1 {
				period = args[0]
			}

			st, err := openStores(a.cfg, zap.NewNop())
			if err != nil {
				return err
			}
			defer st.Close()

			rep := reporter.New(st.repo).WithLimit(limit)
			report, err := rep.GenerateReport(period)
			if err != nil {
				return err
			}

			if jsonOutput {
				js, err := rep.FormatReportJSON(report)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), js)
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), rep.FormatReportText(report))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "print JSON")
	cmd.Flags().IntVar(&limit, "limit", reporter.DefaultLimit, "maximum records to list")
	return cmd
}

func clearCmd(a *app) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all check history and error logs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				fmt.Fprint(cmd.OutOrStdout(), "This will delete all check history. Are you sure? (yes/no): ")
				var response string
				fmt.Fscanln(cmd.InOrStdin(), &response)
				response = strings.ToLower(strings.TrimSpace(response))
				if response != "yes" && response != "y" {
					fmt.Fprintln(cmd.OutOrStdout(), "Operation cancelled")
					return nil
				}
			}

			st, err := openStores(a.cfg, zap.NewNop())
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.repo.Clear(); err != nil {
				return errors.Wrap(err, "failed to clear database")
			}
			fmt.Fprintln(cmd.OutOrStdout(), "History cleared")
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}
