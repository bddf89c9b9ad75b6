package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"raur/internal/app"
)

func newUninstallCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "uninstall <package>...",
		Aliases: []string{"remove"},
		Short:   "Remove packages and dependencies nothing else needs",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUninstall(cmd.Context(), cmd, args)
		},
	}
}

func runUninstall(ctx context.Context, cmd *cobra.Command, args []string) error {
	service, err := newAppService(cmd)
	if err != nil {
		return err
	}
	result, err := service.Uninstall(ctx, app.UninstallRequest{Names: args})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "removed: %s\n", joinNames(result.Removed))
	return nil
}
