// Package cli provides the inbox-tail command line client.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"botpos-chat-backend/internal/env"

	"github.com/spf13/cobra"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	apiURL   string
	wsURL    string
	token    string
	email    string
	password string
	verbose  bool

	client *Client
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "inbox-tail",
	Short: "Follow the admin inbox from a terminal",
	Long: `inbox-tail connects to the realtime gateway as an admin and prints every
inbox event. After each (re)connect it refetches the session list and the
unread total over REST, since the stream does not replay missed events.

Examples:
  inbox-tail --email owner@shop.mm --password secret
  inbox-tail sessions --token $INBOX_TOKEN`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}
		if err := env.Load(); err != nil {
			return err
		}

		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

		client = NewClient(flagOrEnv(apiURL, env.InboxAPIURL, "http://localhost:81/api/admin/v1"), flagOrEnv(token, env.InboxToken, ""))
		if client.Token != "" {
			return nil
		}

		user := flagOrEnv(email, env.InboxEmail, "")
		pass := flagOrEnv(password, env.InboxPassword, "")
		if user == "" || pass == "" {
			return fmt.Errorf("either --token or --email and --password are required")
		}
		auth, err := client.Login(cmd.Context(), user, pass)
		if err != nil {
			return fmt.Errorf("login: %w", err)
		}
		logger.Debug("logged in", "admin", auth.Admin.AdminID, "expires_at", auth.ExpiresAt)
		return nil
	},
	RunE: runTail,
}

// Execute runs the root command until ctx is cancelled.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", "", "admin API base url (env "+env.InboxAPIURL+")")
	rootCmd.PersistentFlags().StringVar(&token, "token", "", "admin access token (env "+env.InboxToken+")")
	rootCmd.PersistentFlags().StringVar(&email, "email", "", "admin email used to log in (env "+env.InboxEmail+")")
	rootCmd.PersistentFlags().StringVar(&password, "password", "", "admin password (env "+env.InboxPassword+")")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.Flags().StringVar(&wsURL, "ws", "", "realtime gateway url (env "+env.InboxWSURL+")")

	rootCmd.AddCommand(sessionsCmd)
}

func flagOrEnv(flagVal, key, fallback string) string {
	if flagVal != "" {
		return flagVal
	}
	return env.GetOrDefault(key, fallback)
}
