package cmd

import (
	"github.com/spf13/cobra"

	"github.com/BelikanM/cub/pkg/prompter"
	"github.com/BelikanM/cub/pkg/service"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authentication commands",
	Long:  "Register, log in and out of the cub backend",
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create a new account",
	RunE: func(cmd *cobra.Command, args []string) error {
		return newAuthService(cmd).Register(cmd.Context())
	},
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in with email and password",
	RunE: func(cmd *cobra.Command, args []string) error {
		return newAuthService(cmd).Login(cmd.Context())
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored session",
	RunE: func(cmd *cobra.Command, args []string) error {
		return newAuthService(cmd).Logout()
	},
}

var meCmd = &cobra.Command{
	Use:   "me",
	Short: "Display current authenticated user",
	RunE: func(cmd *cobra.Command, args []string) error {
		return newAuthService(cmd).Me(cmd.Context())
	},
}

func newAuthService(cmd *cobra.Command) *service.AuthService {
	return service.NewAuthService(prompter.New(cmd.InOrStdin(), cmd.OutOrStdout()))
}

func init() {
	authCmd.AddCommand(registerCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(meCmd)
}
