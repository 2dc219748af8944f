package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/timernudge/timernudge/internal/apperr"
	"github.com/timernudge/timernudge/internal/settings"
	"github.com/timernudge/timernudge/internal/timerapi"
)

func tokenCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage the time-tracking API token",
	}
	cmd.AddCommand(tokenSetCmd(a), tokenClearCmd(a))
	return cmd
}

func tokenSetCmd(a *app) *cobra.Command {
	var verify bool

	cmd := &cobra.Command{
		Use:   "set [token]",
		Short: "Store the API token (read from stdin when omitted)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var token string
			if len(args) == 1 {
				token = args[0]
			} else {
				fmt.Fprint(cmd.OutOrStdout(), "API token: ")
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return errors.Wrap(err, "read token")
				}
				token = line
			}
			token = strings.TrimSpace(token)
			if token == "" {
				return errors.New("token cannot be empty (use 'token clear' to remove it)")
			}

			st, err := openStores(a.cfg, zap.NewNop())
			if err != nil {
				return err
			}
			defer st.Close()

			if verify {
				id, err := verifyToken(cmd, a, st.settings, token)
				if err != nil {
					return errors.New(apperr.UserMessage(err))
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Token accepted (team %s, user %s)\n", id.TeamID, id.UserID)
			}

			if err := st.creds.Save(token); err != nil {
				return err
			}
			// Cached identity belongs to the previous token.
			if err := settings.ForgetIdentity(st.settings); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Token saved")
			return nil
		},
	}
	cmd.Flags().BoolVar(&verify, "verify", false, "check the token against the API before saving")
	return cmd
}

func verifyToken(cmd *cobra.Command, a *app, src settings.Source, token string) (timerapi.Identity, error) {
	client, err := timerapi.NewClient(a.cfg.API, zap.NewNop())
	if err != nil {
		return timerapi.Identity{}, err
	}
	snap := src.Snapshot()
	return client.ResolveIdentity(cmd.Context(), token, snap.TeamID, snap.UserID)
}

func tokenClearCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove the stored API token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStores(a.cfg, zap.NewNop())
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.creds.Delete(); err != nil {
				return err
			}
			if err := settings.ForgetIdentity(st.settings); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Token removed")
			return nil
		},
	}
}
