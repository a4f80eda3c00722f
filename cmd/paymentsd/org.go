package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func orgCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "org",
		Short: "Manage client organizations",
	}
	cmd.AddCommand(orgEnsureCmd())
	cmd.AddCommand(orgRotateTokenCmd())
	return cmd
}

func orgEnsureCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "ensure",
		Short: "Create an organization by name if it does not exist (safe to re-run)",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			org, created, err := a.auth.EnsureOrganization(cmd.Context(), name)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Organization: %s (%s)\n", org.Name, org.ID)

			// A credential is issued only for new organizations or ones that never had one.
			if !created && org.TokenDigest.Valid {
				fmt.Fprintln(out, "Credential already issued; use 'paymentsd org rotate-token' to replace it.")
				return nil
			}
			token, err := a.auth.RotateCredential(cmd.Context(), org.ID)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Bearer token (shown once): %s\n", token)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Organization name")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func orgRotateTokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rotate-token [org-id]",
		Short: "Issue a new bearer token, invalidating the previous one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			orgID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid org id: %w", err)
			}
			a, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			token, err := a.auth.RotateCredential(cmd.Context(), orgID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Bearer token (shown once): %s\n", token)
			return nil
		},
	}
}
