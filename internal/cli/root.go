package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"raur/internal/adapters"
	"raur/internal/app"
	"raur/internal/core"
)

// version is set at build time via ldflags.
var version = "dev"

const envPrefix = "RAUR"

type RootConfig struct {
	ConfigFile string
	LogLevel   string
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	root := newRootCommand()
	err := root.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, colError.Sprintf("error: %s", errorMessage(err)))
		os.Exit(exitCodeForError(err))
	}
}

func newRootCommand() *cobra.Command {
	cfg := RootConfig{}
	cmd := &cobra.Command{
		Use:           "raur",
		Short:         "Build and install packages from the Arch User Repository",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := initConfig(cfg.ConfigFile); err != nil {
				return err
			}
			setupLogging(viper.GetString("log_level"))
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			cmd.SetContext(log.Logger.WithContext(ctx))
			return nil
		},
	}
	flags := cmd.PersistentFlags()
	flags.StringVar(&cfg.ConfigFile, "config", "", "Config file path")
	flags.StringVar(&cfg.LogLevel, "log-level", "info", "Log level")
	flags.String("work-dir", "", "Directory for staged recipes (default $XDG_CACHE_HOME/raur)")
	flags.String("recipe-source", "git", "Where recipes come from: git, mirror or snapshot")
	flags.Bool("github", false, "Stage recipes from the GitHub AUR mirror")
	flags.Bool("noconfirm", false, "Do not ask before building")
	flags.Bool("allow-elevation", true, "Allow the installer to run through the elevation command")
	flags.String("report", "", "Write a YAML run report to this path")
	flags.String("metrics-textfile", "", "Write Prometheus metrics to this textfile")
	_ = viper.BindPFlag("log_level", flags.Lookup("log-level"))
	_ = viper.BindPFlag("work_dir", flags.Lookup("work-dir"))
	_ = viper.BindPFlag("recipe_source", flags.Lookup("recipe-source"))
	_ = viper.BindPFlag("github", flags.Lookup("github"))
	_ = viper.BindPFlag("noconfirm", flags.Lookup("noconfirm"))
	_ = viper.BindPFlag("allow_elevation", flags.Lookup("allow-elevation"))
	_ = viper.BindPFlag("report", flags.Lookup("report"))
	_ = viper.BindPFlag("metrics_textfile", flags.Lookup("metrics-textfile"))

	cmd.AddCommand(newInstallCommand())
	cmd.AddCommand(newUpdateCommand())
	cmd.AddCommand(newInfoCommand())
	cmd.AddCommand(newSearchCommand())
	cmd.AddCommand(newCleanCommand())
	cmd.AddCommand(newUninstallCommand())
	return cmd
}

func initConfig(configFile string) error {
	viper.SetEnvPrefix(envPrefix)
	viper.AutomaticEnv()
	setConfigDefaults()

	if configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("failed to read config file").
				WithCause(err)
		}
		return nil
	}

	viper.SetConfigName("raur")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME/.config/raur")
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("failed to read config file").
			WithCause(err)
	}
	return nil
}

func setConfigDefaults() {
	viper.SetDefault("rpc_url", adapters.DefaultRPCURL)
	viper.SetDefault("aur_url", adapters.DefaultAURURL)
	viper.SetDefault("mirror_url", adapters.DefaultMirrorURL)
	viper.SetDefault("recipe_source", "git")
	viper.SetDefault("elevate_command", "sudo")
	viper.SetDefault("allow_elevation", true)
	viper.SetDefault("rpc_timeout_sec", 30)
	viper.SetDefault("rpc_retries", 3)
	viper.SetDefault("rpc_batch_size", 100)
	viper.SetDefault("rpc_workers", 4)
}

func setupLogging(level string) {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

func exitCodeForError(err error) int {
	var resolveErr *core.ResolveError
	var planErr *core.PlanError
	if errors.As(err, &resolveErr) {
		if resolveErr.Kind == core.ResolveMetadataUnavailable {
			return 5
		}
		return 4
	}
	if errors.As(err, &planErr) {
		return 4
	}
	var failures *app.BuildFailuresError
	if errors.As(err, &failures) {
		return 6
	}
	switch errbuilder.CodeOf(err) {
	case errbuilder.CodeInvalidArgument, errbuilder.CodeAlreadyExists:
		return 2
	case errbuilder.CodeFailedPrecondition:
		return 4
	case errbuilder.CodePermissionDenied:
		return 3
	case errbuilder.CodeNotFound, errbuilder.CodeInternal:
		return 5
	default:
		return 1
	}
}

func errorMessage(err error) string {
	var resolveErr *core.ResolveError
	if errors.As(err, &resolveErr) {
		return resolveErr.Error()
	}
	var builder *errbuilder.ErrBuilder
	if errors.As(err, &builder) && strings.TrimSpace(builder.Msg) != "" {
		return builder.Msg
	}
	return err.Error()
}
