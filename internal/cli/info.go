package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"raur/internal/app"
)

func newInfoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "info <package>...",
		Short: "Show AUR metadata for packages",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInfo(cmd.Context(), cmd, args)
		},
	}
}

func runInfo(ctx context.Context, cmd *cobra.Command, args []string) error {
	service, err := newAppService(cmd)
	if err != nil {
		return err
	}
	result, err := service.Info(ctx, app.InfoRequest{Names: args})
	out := cmd.OutOrStdout()
	for i, info := range result.Packages {
		if i > 0 {
			fmt.Fprintln(out)
		}
		printInfo(out, info)
	}
	return err
}
