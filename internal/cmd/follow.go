package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/BelikanM/cub/pkg/output"
	"github.com/BelikanM/cub/pkg/service"
)

var followCmd = &cobra.Command{
	Use:   "follow [user-id]",
	Short: "Follow or unfollow a user, or list who you follow",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, false, func(ctx context.Context, s *service.Session) error {
			fs := service.NewFollowService(s)
			if len(args) == 0 {
				return fs.List(ctx)
			}
			following, err := fs.Toggle(ctx, args[0])
			if err != nil {
				return err
			}
			if following {
				output.PrintSuccess("Now following %s", args[0])
			} else {
				output.PrintSuccess("Unfollowed %s", args[0])
			}
			return nil
		})
	},
}
