// Package cmd provides command-line interface commands for TaskVault.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"taskvault/config"
	"taskvault/storage"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// CLI output formatters
var (
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	infoColor    = color.New(color.FgCyan)
)

// Global flags for users commands
var (
	outputJSON bool
	noColor    bool
)

// defaultTimeout bounds CLI storage operations.
const defaultTimeout = 30 * time.Second

// NewUsersCmd creates the users command tree.
func NewUsersCmd() *cobra.Command {
	usersCmd := &cobra.Command{
		Use:   "users",
		Short: "Manage TaskVault user accounts",
		Long:  "Create, list, and delete user accounts directly against the configured SQLite database.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if noColor {
				color.NoColor = true
			}
		},
	}

	usersCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "Output in JSON format")
	usersCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	usersCmd.AddCommand(newUsersCreateCmd())
	usersCmd.AddCommand(newUsersListCmd())
	usersCmd.AddCommand(newUsersDeleteCmd())

	return usersCmd
}

// openUserStorage loads config and opens the user storage for CLI use.
// The caller must Close the returned SQLite handle.
func openUserStorage() (*storage.SQLite, *storage.SQLiteUserStorage, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	// CLI operations don't need console log noise; errors still surface.
	logger := zap.NewNop().Sugar()

	sqlite, err := storage.NewSQLite(cfg.GetSQLitePath(), logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}

	return sqlite, storage.NewSQLiteUserStorage(sqlite, cfg.Auth.BcryptCost, logger), nil
}

func newUsersCreateCmd() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "create <username>",
		Short: "Create a user account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			username := args[0]
			if email == "" || password == "" {
				return fmt.Errorf("--email and --password are required")
			}
			if len(password) < 8 {
				return fmt.Errorf("password must be at least 8 characters long")
			}

			sqlite, users, err := openUserStorage()
			if err != nil {
				return err
			}
			defer sqlite.Close()

			ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
			defer cancel()

			user := &storage.User{
				Username: username,
				Email:    email,
				Password: password,
			}
			if err := users.CreateUser(ctx, user); err != nil {
				errorColor.Fprintf(os.Stderr, "Failed to create user: %v\n", err)
				return err
			}

			if outputJSON {
				return json.NewEncoder(os.Stdout).Encode(user.Public())
			}
			successColor.Printf("User %q created\n", username)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address for the account")
	cmd.Flags().StringVar(&password, "password", "", "Password for the account (min 8 characters)")

	return cmd
}

func newUsersListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List user accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sqlite, users, err := openUserStorage()
			if err != nil {
				return err
			}
			defer sqlite.Close()

			ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
			defer cancel()

			all, err := users.ListUsers(ctx)
			if err != nil {
				errorColor.Fprintf(os.Stderr, "Failed to list users: %v\n", err)
				return err
			}

			if outputJSON {
				public := make([]storage.PublicUser, 0, len(all))
				for _, u := range all {
					public = append(public, u.Public())
				}
				return json.NewEncoder(os.Stdout).Encode(public)
			}

			if len(all) == 0 {
				infoColor.Println("No users found")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "USERNAME\tEMAIL\tACTIVE\tCREATED")
			for _, u := range all {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
					u.Username, u.Email, formatActive(u.Active),
					u.CreatedAt.Format(time.RFC3339))
			}
			return w.Flush()
		},
	}
}

func newUsersDeleteCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete <username>",
		Short: "Delete a user account and all of its tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			username := args[0]
			if !force {
				return fmt.Errorf("refusing to delete %q without --force (tasks are deleted with the account)", username)
			}

			sqlite, users, err := openUserStorage()
			if err != nil {
				return err
			}
			defer sqlite.Close()

			ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
			defer cancel()

			if err := users.DeleteUser(ctx, username); err != nil {
				errorColor.Fprintf(os.Stderr, "Failed to delete user: %v\n", err)
				return err
			}

			successColor.Printf("User %q deleted\n", username)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Confirm deletion")

	return cmd
}

func formatActive(active bool) string {
	if active {
		return color.New(color.FgGreen).Sprint("yes")
	}
	return color.New(color.FgRed).Sprint("no")
}
