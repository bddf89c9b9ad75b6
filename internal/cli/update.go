package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"raur/internal/app"
)

func newUpdateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Rebuild installed AUR packages that have newer versions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runUpdate(cmd.Context(), cmd)
		},
	}
	cmd.Flags().Bool("keep-build-dirs", false, "Keep staged recipes after a successful build")
	return cmd
}

func runUpdate(ctx context.Context, cmd *cobra.Command) error {
	service, err := newAppService(cmd)
	if err != nil {
		return err
	}
	result, err := service.Update(ctx, app.UpdateRequest{Confirm: confirmer(cmd)})
	out := cmd.OutOrStdout()
	if len(result.NotInAUR) > 0 {
		fmt.Fprintf(out, "%s %s\n", colNote.Sprintf("not in the AUR:"), joinNames(result.NotInAUR))
	}
	if err == nil && len(result.Updates) == 0 {
		fmt.Fprintln(out, "all AUR packages are up to date")
		return nil
	}
	for _, update := range result.Updates {
		fmt.Fprintf(out, "%s %s -> %s\n", update.Name, update.Installed, colSuccess.Sprintf("%s", update.Available))
	}
	reportRun(cmd, result.Run, err)
	return err
}
