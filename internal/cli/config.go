package cli

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"raur/internal/app"
	"raur/internal/types"
)

// appConfig collects the service configuration from flags, environment
// and the config file.
func appConfig(cmd *cobra.Command) app.Config {
	source := types.RecipeSource(viper.GetString("recipe_source"))
	if viper.GetBool("github") {
		source = types.RecipeSourceMirror
	}
	cfg := app.Config{
		RPCURL:          viper.GetString("rpc_url"),
		AURURL:          viper.GetString("aur_url"),
		RecipeSource:    source,
		MirrorURL:       viper.GetString("mirror_url"),
		WorkDir:         viper.GetString("work_dir"),
		PacmanBinary:    viper.GetString("pacman_binary"),
		MakepkgBinary:   viper.GetString("makepkg_binary"),
		AllowElevation:  viper.GetBool("allow_elevation"),
		ElevateCommand:  viper.GetString("elevate_command"),
		NoConfirm:       viper.GetBool("noconfirm"),
		KeepBuildDirs:   viper.GetBool("keep_build_dirs"),
		RPCTimeoutSec:   viper.GetInt("rpc_timeout_sec"),
		RPCRetries:      viper.GetInt("rpc_retries"),
		RPCBatchSize:    viper.GetInt("rpc_batch_size"),
		RPCWorkers:      viper.GetInt("rpc_workers"),
		Ignore:          viper.GetStringSlice("ignore"),
		ReportPath:      viper.GetString("report"),
		MetricsTextfile: viper.GetString("metrics_textfile"),
	}
	if cmd != nil {
		cfg.BuildOutput = cmd.ErrOrStderr()
		cfg.KeepBuildDirs = resolveBool(cmd, cfg.KeepBuildDirs, "keep_build_dirs", "keep-build-dirs")
	}
	return cfg
}

// newAppService is replaced in tests.
var newAppService = func(cmd *cobra.Command) (app.Service, error) {
	return app.NewService(appConfig(cmd))
}

func resolveBool(cmd *cobra.Command, value bool, key string, flagName string) bool {
	if cmd == nil {
		return value
	}
	if flagChanged(cmd, flagName) {
		if flag := cmd.Flags().Lookup(flagName); flag != nil {
			return flag.Value.String() == "true"
		}
		return value
	}
	return viper.GetBool(key)
}

func flagChanged(cmd *cobra.Command, name string) bool {
	if cmd == nil || strings.TrimSpace(name) == "" {
		return false
	}
	if flag := cmd.Flags().Lookup(name); flag != nil {
		return flag.Changed
	}
	if flag := cmd.PersistentFlags().Lookup(name); flag != nil {
		return flag.Changed
	}
	return false
}
