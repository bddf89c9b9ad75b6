package core

import (
	"context"
	"fmt"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"raur/internal/ports"
	"raur/internal/shared"
	"raur/internal/types"
)

const (
	StepStage   = "stage"
	StepBuild   = "build"
	StepInstall = "install"
)

// Orchestrator executes a build plan one entry at a time: stage the
// recipe, build it unprivileged, then hand the artifacts to the installer.
type Orchestrator struct {
	Installed ports.InstalledPort
	Stager    ports.RecipeStagerPort
	Builder   ports.BuildStepPort
	Installer ports.InstallStepPort
	Observer  ports.RunObserverPort
	Now       func() time.Time
}

func NewOrchestrator(installed ports.InstalledPort, stager ports.RecipeStagerPort, builder ports.BuildStepPort, installer ports.InstallStepPort) Orchestrator {
	return Orchestrator{
		Installed: installed,
		Stager:    stager,
		Builder:   builder,
		Installer: installer,
		Now:       time.Now,
	}
}

func (o Orchestrator) WithObserver(observer ports.RunObserverPort) Orchestrator {
	o.Observer = observer
	return o
}

// Execute runs every plan entry in order and returns one result per entry.
// A failed entry skips its transitive dependents; unrelated entries still
// run. Cancelling ctx stops the run before the next entry starts but never
// interrupts a step already in progress. The returned error is only set
// when the run could not start at all.
func (o Orchestrator) Execute(ctx context.Context, plan types.BuildPlan) ([]types.BuildResult, error) {
	if o.Installed == nil || o.Stager == nil || o.Builder == nil || o.Installer == nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("orchestrator requires installed, stager, builder and installer ports")
	}
	if plan.Len() == 0 {
		return []types.BuildResult{}, nil
	}
	if err := o.Installer.Preflight(); err != nil {
		return nil, err
	}

	dependents := plan.Dependents()
	blocked := map[types.PackageName]types.PackageName{}
	builds := map[string]baseBuild{}
	results := make([]types.BuildResult, 0, plan.Len())

	for _, entry := range plan.Entries {
		if ctx.Err() != nil {
			results = append(results, o.record(types.BuildResult{
				Name:    entry.Name,
				Outcome: types.OutcomeSkipped,
				Reason:  "run cancelled",
			}))
			continue
		}
		if cause, ok := blocked[entry.Name]; ok {
			results = append(results, o.record(types.BuildResult{
				Name:    entry.Name,
				Outcome: types.OutcomeSkipped,
				Reason:  fmt.Sprintf("dependency %s failed", cause),
			}))
			continue
		}

		result := o.record(o.runEntry(ctx, entry, builds))
		results = append(results, result)
		if result.Outcome == types.OutcomeFailed {
			markDependents(entry.Name, dependents, blocked)
		}
	}
	return results, nil
}

// baseBuild is the output of one build of a package base. Split packages
// sharing the base reuse it instead of building again.
type baseBuild struct {
	digest    string
	artifacts []string
}

func (o Orchestrator) runEntry(ctx context.Context, entry types.PlanEntry, builds map[string]baseBuild) types.BuildResult {
	logger := log.Ctx(ctx).With().Str("package", string(entry.Name)).Logger()
	start := o.now()
	result := types.BuildResult{Name: entry.Name}
	finish := func(outcome types.Outcome, reason string) types.BuildResult {
		result.Outcome = outcome
		result.Reason = reason
		result.Duration = o.now().Sub(start)
		return result
	}

	// Steps run detached from cancellation so a started subprocess is
	// never cut short.
	stepCtx := context.WithoutCancel(ctx)

	if !entry.Force {
		version, installed, err := o.Installed.Query(stepCtx, entry.Name)
		if err != nil {
			return finish(types.OutcomeFailed, fmt.Sprintf("query installed state: %v", err))
		}
		if installed {
			installed, err = installedSatisfies(stepCtx, o.Installed, version, entry.Requirements)
			if err != nil {
				return finish(types.OutcomeFailed, fmt.Sprintf("query installed state: %v", err))
			}
		}
		if installed {
			logger.Info().Str("version", version).Msg("already satisfied")
			result.Version = version
			return finish(types.OutcomeAlreadySatisfied, "")
		}
	}

	req := ports.InstallRequest{AsDeps: !entry.Explicit}
	if entry.Origin == types.OriginRepo {
		target := entry.Metadata.Name
		if target == "" {
			target = entry.Name
		}
		req.Packages = []types.PackageName{target}
	} else {
		base := entry.Metadata.Base()
		if base == "" {
			base = string(entry.Name)
		}
		build, built := builds[base]
		if built {
			logger.Info().Str("base", base).Msg("reusing packages built earlier in this run")
		} else {
			stepStart := o.now()
			staged, err := o.Stager.Stage(stepCtx, entry.Metadata)
			o.observeStep(entry.Name, StepStage, stepStart, err)
			if err != nil {
				logger.Error().Err(err).Msg("staging failed")
				return finish(types.OutcomeFailed, fmt.Sprintf("stage recipe: %v", err))
			}

			logger.Info().Str("dir", staged.Dir).Str("digest", staged.Digest).Msg("building")
			stepStart = o.now()
			artifacts, err := o.Builder.Build(stepCtx, ports.BuildRequest{Name: entry.Name, Dir: staged.Dir})
			if err == nil && len(artifacts) == 0 {
				err = errbuilder.New().
					WithCode(errbuilder.CodeInternal).
					WithMsg("build produced no packages")
			}
			o.observeStep(entry.Name, StepBuild, stepStart, err)
			if err != nil {
				logger.Error().Err(err).Msg("build failed")
				return finish(types.OutcomeFailed, fmt.Sprintf("build: %v", err))
			}
			build = baseBuild{digest: staged.Digest, artifacts: artifacts}
			builds[base] = build
		}
		result.SourceDigest = build.digest

		own := artifactsFor(entry.Name, build.artifacts)
		if len(own) == 0 {
			logger.Error().Strs("artifacts", build.artifacts).Msg("no package file for this entry")
			return finish(types.OutcomeFailed, fmt.Sprintf("build produced no package named %s", entry.Name))
		}
		result.Artifacts = own
		req.Artifacts = own
	}

	logger.Info().Bool("asdeps", req.AsDeps).Msg("installing")
	stepStart := o.now()
	err := o.Installer.Install(stepCtx, req)
	o.observeStep(entry.Name, StepInstall, stepStart, err)
	if err != nil {
		logger.Error().Err(err).Msg("install failed")
		return finish(types.OutcomeFailed, fmt.Sprintf("install: %v", err))
	}

	version, installed, err := o.Installed.Query(stepCtx, entry.Name)
	switch {
	case err != nil:
		logger.Warn().Err(err).Msg("could not confirm installed version")
	case !installed:
		logger.Warn().Msg("package not reported as installed after install step")
	default:
		result.Version = version
	}
	return finish(types.OutcomeBuilt, "")
}

// artifactsFor keeps the package files whose pkgname is name. A split
// package base builds files for every member; only the entry's own file is
// installed so each member keeps its own install reason.
func artifactsFor(name types.PackageName, artifacts []string) []string {
	var out []string
	for _, artifact := range artifacts {
		if pkgname, ok := shared.ArtifactPackageName(artifact); ok && pkgname == string(name) {
			out = append(out, artifact)
		}
	}
	return out
}

func (o Orchestrator) record(result types.BuildResult) types.BuildResult {
	if o.Observer != nil {
		o.Observer.ResultRecorded(result)
	}
	return result
}

func (o Orchestrator) observeStep(name types.PackageName, step string, start time.Time, err error) {
	if o.Observer != nil {
		o.Observer.StepFinished(name, step, o.now().Sub(start), err)
	}
}

func (o Orchestrator) now() time.Time {
	if o.Now == nil {
		return time.Now()
	}
	return o.Now()
}

// markDependents blocks every transitive dependent of failed, keeping the
// first failure as the recorded cause.
func markDependents(failed types.PackageName, dependents map[types.PackageName][]types.PackageName, blocked map[types.PackageName]types.PackageName) {
	queue := append([]types.PackageName(nil), dependents[failed]...)
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		if _, ok := blocked[name]; ok {
			continue
		}
		blocked[name] = failed
		queue = append(queue, dependents[name]...)
	}
}
