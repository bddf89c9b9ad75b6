package app

import (
	"io"

	"raur/internal/types"
)

type Config struct {
	RPCURL          string
	AURURL          string
	RecipeSource    types.RecipeSource
	MirrorURL       string
	WorkDir         string
	PacmanBinary    string
	MakepkgBinary   string
	AllowElevation  bool
	ElevateCommand  string
	NoConfirm       bool
	KeepBuildDirs   bool
	RPCTimeoutSec   int
	RPCRetries      int
	RPCBatchSize    int
	RPCWorkers      int
	Ignore          []string
	ReportPath      string
	MetricsTextfile string
	BuildOutput     io.Writer
}

// ConfirmFunc is asked before any recipe is staged. Returning false ends
// the run without changes.
type ConfirmFunc func(plan types.BuildPlan) bool

type InstallRequest struct {
	Targets []string
	Force   bool
	Confirm ConfirmFunc
}

type RunResult struct {
	Roots     []types.PackageName
	Satisfied []types.PackageName
	Plan      types.BuildPlan
	Results   []types.BuildResult
	Declined  bool
}

type UpdateRequest struct {
	Confirm ConfirmFunc
}

type PackageUpdate struct {
	Name      types.PackageName
	Installed string
	Available string
}

type UpdateResult struct {
	Updates []PackageUpdate
	// NotInAUR lists foreign packages the metadata service does not know.
	NotInAUR []types.PackageName
	Run      RunResult
}

type InfoRequest struct {
	Names []string
}

type PackageInfo struct {
	Metadata         types.PackageMetadata
	Installed        bool
	InstalledVersion string
}

type InfoResult struct {
	Packages []PackageInfo
}

type SearchRequest struct {
	Term string
}

type SearchResult struct {
	Packages []PackageInfo
}

type CleanRequest struct {
	DryRun bool
}

type CleanResult struct {
	Removed []string
}

type UninstallRequest struct {
	Names []string
}

type UninstallResult struct {
	Removed []types.PackageName
}
