package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"raur/internal/app"
	"raur/internal/types"
)

type installOptions struct {
	Force         bool
	KeepBuildDirs bool
}

func newInstallCommand() *cobra.Command {
	opts := installOptions{}
	cmd := &cobra.Command{
		Use:   "install <package>...",
		Short: "Build and install AUR packages with their dependencies",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInstall(cmd.Context(), cmd, args, opts)
		},
	}
	cmd.Flags().BoolVar(&opts.Force, "force", false, "Rebuild requested packages even when installed")
	cmd.Flags().BoolVar(&opts.KeepBuildDirs, "keep-build-dirs", false, "Keep staged recipes after a successful build")
	return cmd
}

func runInstall(ctx context.Context, cmd *cobra.Command, args []string, opts installOptions) error {
	service, err := newAppService(cmd)
	if err != nil {
		return err
	}
	result, err := service.Install(ctx, app.InstallRequest{
		Targets: args,
		Force:   opts.Force,
		Confirm: confirmer(cmd),
	})
	reportRun(cmd, result, err)
	return err
}

// confirmer prints the plan and asks for confirmation on a terminal.
func confirmer(cmd *cobra.Command) app.ConfirmFunc {
	out := cmd.OutOrStdout()
	in := cmd.InOrStdin()
	interactive := in == os.Stdin && stdinIsTerminal()
	ask := planConfirmer(in, out, viper.GetBool("noconfirm"), interactive)
	return func(plan types.BuildPlan) bool {
		printPlan(out, plan)
		return ask(plan)
	}
}

// reportRun prints the result log. After a resolution error there is
// nothing to print.
func reportRun(cmd *cobra.Command, result app.RunResult, err error) {
	if err != nil && len(result.Results) == 0 {
		return
	}
	printRunResult(cmd.OutOrStdout(), result)
}
