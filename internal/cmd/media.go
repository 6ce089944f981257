package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/BelikanM/cub/pkg/output"
	"github.com/BelikanM/cub/pkg/service"
)

var (
	mediaDescription string
	mediaUserID      string
)

var mediaCmd = &cobra.Command{
	Use:   "media",
	Short: "Manage uploaded files",
}

var mediaListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your files, or another user's with --user",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, false, func(ctx context.Context, s *service.Session) error {
			return service.NewMediaService(s).List(ctx, mediaUserID)
		})
	},
}

var mediaUploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Upload a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, false, func(ctx context.Context, s *service.Session) error {
			output.PrintInfo("Uploading %s...", args[0])
			item, err := service.NewMediaService(s).Upload(ctx, args[0], mediaDescription)
			if err != nil {
				return err
			}
			output.PrintSuccess("Uploaded %s", item.ID)
			return nil
		})
	},
}

var mediaDescribeCmd = &cobra.Command{
	Use:   "describe <media-id> <description>",
	Short: "Set the description of a file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, false, func(ctx context.Context, s *service.Session) error {
			return service.NewMediaService(s).Describe(ctx, args[0], args[1])
		})
	},
}

var mediaDeleteCmd = &cobra.Command{
	Use:   "delete <media-id>",
	Short: "Delete a file and its stored object",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, false, func(ctx context.Context, s *service.Session) error {
			if err := service.NewMediaService(s).Delete(ctx, args[0]); err != nil {
				return err
			}
			output.PrintSuccess("Deleted %s", args[0])
			return nil
		})
	},
}

var mediaURLCmd = &cobra.Command{
	Use:   "url <media-id>",
	Short: "Print the download URL of a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, false, func(ctx context.Context, s *service.Session) error {
			u, err := service.NewMediaService(s).DownloadURL(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), u)
			return nil
		})
	},
}

var mediaWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow your files live until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, true, func(ctx context.Context, s *service.Session) error {
			return service.NewMediaService(s).Watch(ctx)
		})
	},
}

func init() {
	mediaListCmd.Flags().StringVar(&mediaUserID, "user", "", "List files of this user id")
	mediaUploadCmd.Flags().StringVarP(&mediaDescription, "description", "d", "", "Description of the file")

	mediaCmd.AddCommand(mediaListCmd)
	mediaCmd.AddCommand(mediaUploadCmd)
	mediaCmd.AddCommand(mediaDescribeCmd)
	mediaCmd.AddCommand(mediaDeleteCmd)
	mediaCmd.AddCommand(mediaURLCmd)
	mediaCmd.AddCommand(mediaWatchCmd)
}
