package cli

import (
	"github.com/spf13/cobra"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Print the session list and unread total once",
	RunE: func(cmd *cobra.Command, args []string) error {
		return resync(client, cmd.OutOrStdout())(cmd.Context())
	},
}
