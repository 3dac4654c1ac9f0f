package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newUsersCmd(connect connector) *cobra.Command {
	users := &cobra.Command{
		Use:   "users",
		Short: "Manage artist accounts",
	}
	users.AddCommand(
		setActiveCmd(connect, "activate", true),
		setActiveCmd(connect, "deactivate", false),
	)
	return users
}

func setActiveCmd(connect connector, use string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <artist-name>",
		Short: fmt.Sprintf("Mark an artist account %sd", use),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(cmd, connect, func(b *backend) error {
				user, err := b.auth.SetActive(cmd.Context(), args[0], active)
				if err != nil {
					return fmt.Errorf("%s %q: %w", use, args[0], err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s (id %d) active=%t\n", user.DisplayName, user.ID, user.IsActive)
				return nil
			})
		},
	}
}
