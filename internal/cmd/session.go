package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/BelikanM/cub/pkg/service"
)

// withSession opens a session for the duration of fn.
func withSession(cmd *cobra.Command, live bool, fn func(ctx context.Context, s *service.Session) error) error {
	ctx := cmd.Context()
	s, err := service.OpenSession(ctx, live)
	if err != nil {
		return err
	}
	defer s.Close()
	s.Out = cmd.OutOrStdout()
	return fn(ctx, s)
}
