package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TechnoServe/mfiscore/internal/profile"
)

func newProfilesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profiles",
		Short: "List built-in scoring profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := profile.List()
			if err != nil {
				return err
			}
			for _, n := range names {
				fmt.Fprintln(cmd.OutOrStdout(), n)
			}
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show <name-or-file>",
		Short: "Describe a scoring profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := profile.Resolve(args[0])
			if err != nil {
				return exitError(exitInput, "failed to load profile: %v", err)
			}
			fmt.Fprint(cmd.OutOrStdout(), profile.Format(p))
			return nil
		},
	})
	return cmd
}
