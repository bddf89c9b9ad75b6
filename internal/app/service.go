package app

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"raur/internal/adapters"
	"raur/internal/metrics"
	"raur/internal/policies"
	"raur/internal/ports"
	"raur/internal/types"
)

type Service struct {
	Metadata  ports.MetadataPort
	Searcher  ports.SearchPort
	Installed ports.InstalledPort
	Repo      ports.RepoPort
	Stager    ports.RecipeStagerPort
	Builder   ports.BuildStepPort
	Installer ports.InstallStepPort
	// Report is optional; nil disables the run report.
	Report          ports.ReportPort
	Metrics         *metrics.Recorder
	MetricsTextfile string
	Policy          policies.PackagePolicy
	Privilege       policies.PrivilegePolicy
	WorkDir         string
	KeepBuildDirs   bool
	Clock           func() time.Time
}

func NewService(cfg Config) (Service, error) {
	workDir := strings.TrimSpace(cfg.WorkDir)
	if workDir == "" {
		workDir = DefaultWorkDir()
	}
	rpc := adapters.NewAURRPCAdapter(cfg.RPCURL, cfg.AURURL, cfg.RPCTimeoutSec, cfg.RPCRetries, cfg.RPCBatchSize, cfg.RPCWorkers)
	pacman := adapters.NewPacmanDBAdapter(cfg.PacmanBinary)
	stager, err := newRecipeStager(cfg, workDir)
	if err != nil {
		return Service{}, err
	}
	var output io.Writer = os.Stderr
	if cfg.BuildOutput != nil {
		output = cfg.BuildOutput
	}

	service := Service{
		Metadata:        rpc,
		Searcher:        rpc,
		Installed:       pacman,
		Repo:            pacman,
		Stager:          stager,
		Builder:         adapters.NewMakepkgAdapter(cfg.MakepkgBinary, output),
		Installer:       adapters.NewPacmanInstallAdapter(cfg.PacmanBinary, cfg.ElevateCommand, cfg.AllowElevation, cfg.NoConfirm),
		Metrics:         metrics.NewRecorder(),
		MetricsTextfile: strings.TrimSpace(cfg.MetricsTextfile),
		Policy:          policies.NewPackagePolicy(cfg.Ignore),
		Privilege:       policies.NewPrivilegePolicy(cfg.AllowElevation),
		WorkDir:         workDir,
		KeepBuildDirs:   cfg.KeepBuildDirs,
		Clock:           time.Now,
	}
	if path := strings.TrimSpace(cfg.ReportPath); path != "" {
		service.Report = adapters.NewReportFileAdapter(path)
	}
	return service, nil
}

func newRecipeStager(cfg Config, workDir string) (ports.RecipeStagerPort, error) {
	switch types.RecipeSource(strings.ToLower(strings.TrimSpace(string(cfg.RecipeSource)))) {
	case "", types.RecipeSourceGit:
		return adapters.NewGitRecipeStager(workDir, cfg.MirrorURL, false), nil
	case types.RecipeSourceMirror:
		return adapters.NewGitRecipeStager(workDir, cfg.MirrorURL, true), nil
	case types.RecipeSourceSnapshot:
		return adapters.NewSnapshotRecipeStager(cfg.AURURL, workDir, cfg.RPCTimeoutSec), nil
	default:
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("unknown recipe source: %s", cfg.RecipeSource))
	}
}

// DefaultWorkDir is $XDG_CACHE_HOME/raur, falling back to ~/.cache/raur.
func DefaultWorkDir() string {
	if dir, err := os.UserCacheDir(); err == nil && dir != "" {
		return filepath.Join(dir, "raur")
	}
	return filepath.Join(os.TempDir(), "raur")
}

func (s Service) now() time.Time {
	if s.Clock == nil {
		return time.Now()
	}
	return s.Clock()
}
