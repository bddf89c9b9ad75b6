package cli

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"raur/internal/app"
)

func newSearchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "search <term>...",
		Short: "Search AUR package names and descriptions",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd.Context(), cmd, args)
		},
	}
}

func runSearch(ctx context.Context, cmd *cobra.Command, args []string) error {
	service, err := newAppService(cmd)
	if err != nil {
		return err
	}
	result, err := service.Search(ctx, app.SearchRequest{Term: strings.Join(args, " ")})
	if err != nil {
		return err
	}
	printSearch(cmd.OutOrStdout(), result.Packages)
	return nil
}
