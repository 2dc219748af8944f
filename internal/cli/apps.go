package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/timernudge/timernudge/internal/settings"
	"github.com/timernudge/timernudge/internal/workcontext"
)

func appsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apps",
		Short: "Manage the work apps that count as working",
		Long: `Work apps are matched case-insensitively against the focused window's
application (WM_CLASS on X11, app_id on Wayland). Changes are picked up by
a running daemon on its next check.`,
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List work apps",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				src, err := openSettings(a.cfg, zap.NewNop())
				if err != nil {
					return err
				}
				apps := src.Snapshot().Apps().List()
				if len(apps) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No work apps configured")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), strings.Join(apps, "\n"))
				return nil
			},
		},
		&cobra.Command{
			Use:   "add <app>...",
			Short: "Add work apps",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.editApps(cmd, func(s *settings.Settings) {
					s.WorkApps = append(s.WorkApps, args...)
				})
			},
		},
		&cobra.Command{
			Use:   "remove <app>...",
			Short: "Remove work apps",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				drop := workcontext.NewAppSet(args...)
				return a.editApps(cmd, func(s *settings.Settings) {
					kept := s.WorkApps[:0:0]
					for _, app := range s.WorkApps {
						if !drop.Contains(app) {
							kept = append(kept, app)
						}
					}
					s.WorkApps = kept
				})
			},
		},
	)
	return cmd
}

func (a *app) editApps(cmd *cobra.Command, fn func(*settings.Settings)) error {
	src, err := openSettings(a.cfg, zap.NewNop())
	if err != nil {
		return err
	}
	if err := src.Update(fn); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Work apps: %s\n", strings.Join(src.Snapshot().Apps().List(), ", "))
	return nil
}
