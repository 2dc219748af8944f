// Package cli implements the timernudge command line.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/timernudge/timernudge/internal/config"
)

var (
	version = "0.1.0"
	commit  = "unknown"
	date    = "unknown"
)

const appName = "timernudge"

// Execute runs the root command.
func Execute() error {
	return NewRoot().Execute()
}

// app carries the configuration shared by every subcommand.
type app struct {
	cfg  *config.Config
	port int
}

// NewRoot builds the command tree.
func NewRoot() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   appName,
		Short: "Reminds you to start your time-tracking timer while you work",
		Long: `timernudge watches the focused application and your input activity.
When you are working in one of your work apps and no timer is running in
your time-tracking account, it shows a desktop reminder once per stretch.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.cfg = config.New()
			if a.port > 0 {
				if err := a.cfg.SetWebPort(a.port); err != nil {
					return err
				}
			}
			return a.cfg.Validate()
		},
	}
	root.PersistentFlags().IntVar(&a.port, "port", 0, "local control API port (default derived from uid)")

	root.AddCommand(
		runCmd(a),
		startCmd(a),
		stopCmd(a),
		statusCmd(a),
		checkCmd(a),
		snoozeCmd(a),
		unsnoozeCmd(a),
		tokenCmd(a),
		appsCmd(a),
		historyCmd(a),
		clearCmd(a),
		versionCmd(),
	)
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s version %s\n", appName, version)
			fmt.Fprintf(out, "  commit: %s\n", commit)
			fmt.Fprintf(out, "  built:  %s\n", date)
		},
	}
}
