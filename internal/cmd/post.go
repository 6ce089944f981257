package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/BelikanM/cub/pkg/output"
	"github.com/BelikanM/cub/pkg/service"
)

var (
	postImageURL string
	postUserID   string
	postMine     bool
)

var postCmd = &cobra.Command{
	Use:   "post",
	Short: "Post management commands",
	Long:  "Publish, list, like, edit and delete posts",
}

var postListCmd = &cobra.Command{
	Use:   "list",
	Short: "List posts, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, false, func(ctx context.Context, s *service.Session) error {
			userID := postUserID
			if postMine {
				userID = s.UserID
			}
			return service.NewPostService(s).List(ctx, userID)
		})
	},
}

var postCreateCmd = &cobra.Command{
	Use:   "create [text]",
	Short: "Publish a post",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		content := ""
		if len(args) == 1 {
			content = args[0]
		}
		return withSession(cmd, false, func(ctx context.Context, s *service.Session) error {
			item, err := service.NewPostService(s).Create(ctx, content, postImageURL)
			if err != nil {
				return err
			}
			output.PrintSuccess("Posted %s", item.ID)
			return nil
		})
	},
}

var postLikeCmd = &cobra.Command{
	Use:   "like <post-id>",
	Short: "Like a post",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, false, func(ctx context.Context, s *service.Session) error {
			likes, err := service.NewPostService(s).Like(ctx, args[0])
			if err != nil {
				return err
			}
			output.PrintSuccess("Liked (%d)", likes)
			return nil
		})
	},
}

var postEditCmd = &cobra.Command{
	Use:   "edit <post-id> <text>",
	Short: "Replace the text of one of your posts",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, false, func(ctx context.Context, s *service.Session) error {
			if err := service.NewPostService(s).Edit(ctx, args[0], args[1]); err != nil {
				return err
			}
			output.PrintSuccess("Post updated")
			return nil
		})
	},
}

var postDeleteCmd = &cobra.Command{
	Use:   "delete <post-id>",
	Short: "Delete one of your posts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, false, func(ctx context.Context, s *service.Session) error {
			if err := service.NewPostService(s).Delete(ctx, args[0]); err != nil {
				return err
			}
			output.PrintSuccess("Post deleted")
			return nil
		})
	},
}

var postWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow the feed live until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, true, func(ctx context.Context, s *service.Session) error {
			return service.NewPostService(s).Watch(ctx)
		})
	},
}

func init() {
	postListCmd.Flags().StringVar(&postUserID, "user", "", "Only posts of this user id")
	postListCmd.Flags().BoolVar(&postMine, "mine", false, "Only your posts")
	postCreateCmd.Flags().StringVar(&postImageURL, "image", "", "Image URL to attach")

	postCmd.AddCommand(postListCmd)
	postCmd.AddCommand(postCreateCmd)
	postCmd.AddCommand(postLikeCmd)
	postCmd.AddCommand(postEditCmd)
	postCmd.AddCommand(postDeleteCmd)
	postCmd.AddCommand(postWatchCmd)
}
