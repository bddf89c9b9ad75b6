package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"raur/internal/app"
)

type cleanOptions struct {
	DryRun bool
}

func newCleanCommand() *cobra.Command {
	opts := cleanOptions{}
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove staged recipes from the work directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runClean(cmd.Context(), cmd, opts)
		},
	}
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "List directories without removing them")
	return cmd
}

func runClean(ctx context.Context, cmd *cobra.Command, opts cleanOptions) error {
	service, err := newAppService(cmd)
	if err != nil {
		return err
	}
	result, err := service.Clean(ctx, app.CleanRequest{DryRun: opts.DryRun})
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	verb := "removed"
	if opts.DryRun {
		verb = "would remove"
	}
	for _, dir := range result.Removed {
		fmt.Fprintf(out, "%s %s\n", verb, dir)
	}
	fmt.Fprintf(out, "%d build directories %s\n", len(result.Removed), verb)
	return nil
}
