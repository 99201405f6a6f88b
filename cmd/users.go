// File: cmd/users.go
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/obspull/obspull-cli/internal/store"
)

func newUsersCmd() *cobra.Command {
	usersCmd := &cobra.Command{
		Use:   "users",
		Short: "Manages saved credential profiles",
	}

	usersCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Lists saved usernames",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := store.NewFileStore(cfg.Store.Dir)
			if err != nil {
				return err
			}
			users, err := s.List()
			if err != nil {
				return err
			}
			if len(users) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No saved profiles.")
				return nil
			}
			for _, u := range users {
				fmt.Fprintln(cmd.OutOrStdout(), u)
			}
			return nil
		},
	})

	usersCmd.AddCommand(&cobra.Command{
		Use:   "delete <username>",
		Short: "Deletes a saved profile and its secret",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := store.NewFileStore(cfg.Store.Dir)
			if err != nil {
				return err
			}
			if err := s.Delete(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s.\n", args[0])
			return nil
		},
	})

	return usersCmd
}
