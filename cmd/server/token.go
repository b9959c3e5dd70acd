package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"volunteerhub/internal/auth"
	"volunteerhub/internal/models"
)

var tokenCmd = &cobra.Command{
	Use:   "token ACCOUNT_ID",
	Short: "Issue a bearer token for an account",
	Long: `Issue a signed bearer token for the given account id and role.

This is how NGO and admin accounts are provisioned; volunteers may also
sign in with a Google ID token when GOOGLE_CLIENT_ID is set.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		role, _ := cmd.Flags().GetString("role")
		ttl, _ := cmd.Flags().GetDuration("ttl")

		verifier, err := auth.NewJWTVerifier(cfg.Auth.JWTSecret, ttl)
		if err != nil {
			return err
		}
		token, err := verifier.GenerateToken(models.Actor{ID: args[0], Role: models.Role(role)})
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().String("role", string(models.RoleVolunteer), "account role (volunteer, ngo or admin)")
	tokenCmd.Flags().Duration("ttl", 24*time.Hour, "token lifetime")
}
