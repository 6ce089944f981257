package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/BelikanM/cub/pkg/api"
	"github.com/BelikanM/cub/pkg/service"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show or edit your profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, false, func(ctx context.Context, s *service.Session) error {
			return service.NewProfileService(s).Show(ctx)
		})
	},
}

var profileUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Change name, email, bio or avatar",
	RunE: func(cmd *cobra.Command, args []string) error {
		var update api.ProfileUpdate
		for flag, dst := range map[string]**string{
			"name":   &update.Name,
			"email":  &update.Email,
			"bio":    &update.Bio,
			"avatar": &update.AvatarURL,
		} {
			if cmd.Flags().Changed(flag) {
				v, _ := cmd.Flags().GetString(flag)
				*dst = &v
			}
		}
		return withSession(cmd, false, func(ctx context.Context, s *service.Session) error {
			return service.NewProfileService(s).Update(ctx, update)
		})
	},
}

var usersCmd = &cobra.Command{
	Use:   "users [query]",
	Short: "List other users, optionally matching a name or email",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := ""
		if len(args) == 1 {
			query = args[0]
		}
		return withSession(cmd, false, func(ctx context.Context, s *service.Session) error {
			return service.NewProfileService(s).Users(ctx, query)
		})
	},
}

func init() {
	profileUpdateCmd.Flags().String("name", "", "Display name")
	profileUpdateCmd.Flags().String("email", "", "Email address")
	profileUpdateCmd.Flags().String("bio", "", "Short bio")
	profileUpdateCmd.Flags().String("avatar", "", "Avatar URL")

	profileCmd.AddCommand(profileUpdateCmd)
}
