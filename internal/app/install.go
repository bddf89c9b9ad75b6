package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"raur/internal/adapters"
	"raur/internal/core"
	"raur/internal/types"
)

func (s Service) Install(ctx context.Context, req InstallRequest) (RunResult, error) {
	roots, err := core.ParseRequests(req.Targets)
	if err != nil {
		return RunResult{}, err
	}
	for _, root := range roots {
		if err := s.Policy.CheckRequest(root.Name); err != nil {
			return RunResult{}, err
		}
	}
	if err := s.Privilege.Check(true); err != nil {
		return RunResult{}, err
	}
	return s.run(ctx, "install", roots, core.ResolveOptions{Force: req.Force}, req.Confirm)
}

// run resolves roots, plans and executes the build. Resolution and
// planning errors are returned before any recipe is staged.
func (s Service) run(ctx context.Context, command string, roots []types.Dependency, opts core.ResolveOptions, confirm ConfirmFunc) (RunResult, error) {
	started := s.now()
	result := RunResult{}
	for _, root := range roots {
		result.Roots = append(result.Roots, root.Name)
	}

	lock, err := s.lock()
	if err != nil {
		return result, err
	}
	defer lock.Release()

	graph, err := core.NewGraphBuilder(s.Metadata, s.Installed).WithRepo(s.Repo).Resolve(ctx, roots, opts)
	if err != nil {
		return result, err
	}
	plan, err := core.NewPlanner().Plan(ctx, graph)
	if err != nil {
		return result, err
	}
	result.Satisfied = graph.NamesInState(types.NodeStateSatisfied)
	result.Plan = plan
	if err := s.checkIgnored(plan); err != nil {
		return result, err
	}
	if plan.Len() == 0 {
		log.Ctx(ctx).Info().Strs("satisfied", namesToStrings(result.Satisfied)).Msg("nothing to do")
		return result, nil
	}
	if confirm != nil && !confirm(plan) {
		result.Declined = true
		return result, nil
	}

	orchestrator := core.NewOrchestrator(s.Installed, s.Stager, s.Builder, s.Installer)
	if s.Metrics != nil {
		s.Metrics.PlanSize(plan.Len())
		orchestrator = orchestrator.WithObserver(s.Metrics)
	}
	results, err := orchestrator.Execute(ctx, plan)
	if err != nil {
		return result, err
	}
	result.Results = results

	s.removeBuildDirs(ctx, plan, results)
	s.writeReport(ctx, command, started, result)
	s.writeMetrics(ctx)

	if !types.Succeeded(results) {
		return result, &BuildFailuresError{Failed: countFailed(results), Total: len(results)}
	}
	return result, nil
}

func (s Service) lock() (*adapters.RunLock, error) {
	if s.WorkDir == "" {
		return nil, nil
	}
	return adapters.AcquireRunLock(s.WorkDir)
}

func (s Service) checkIgnored(plan types.BuildPlan) error {
	for _, entry := range plan.Entries {
		if entry.Explicit {
			continue
		}
		if s.Policy.Ignored(entry.Origin, entry.Name) {
			return errbuilder.New().
				WithCode(errbuilder.CodeFailedPrecondition).
				WithMsg(fmt.Sprintf("dependency %s is ignored by configuration", entry.Name))
		}
	}
	return nil
}

func (s Service) removeBuildDirs(ctx context.Context, plan types.BuildPlan, results []types.BuildResult) {
	if s.KeepBuildDirs || s.WorkDir == "" {
		return
	}
	built := map[types.PackageName]bool{}
	for _, result := range results {
		built[result.Name] = result.Outcome == types.OutcomeBuilt
	}
	for _, entry := range plan.Entries {
		if entry.Origin != types.OriginAUR || !built[entry.Name] {
			continue
		}
		dir := filepath.Join(s.WorkDir, entry.Metadata.Base())
		if err := os.RemoveAll(dir); err != nil {
			log.Ctx(ctx).Warn().Err(err).Str("dir", dir).Msg("failed to remove build directory")
		}
	}
}

func (s Service) writeReport(ctx context.Context, command string, started time.Time, result RunResult) {
	if s.Report == nil {
		return
	}
	report := types.RunReport{
		Command:   command,
		StartedAt: started.UTC().Format(time.RFC3339),
		Roots:     namesToStrings(result.Roots),
		Satisfied: namesToStrings(result.Satisfied),
		Plan:      namesToStrings(result.Plan.Names()),
		Results:   result.Results,
		Success:   types.Succeeded(result.Results),
	}
	if err := s.Report.WriteReport(report); err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("failed to write run report")
	}
}

func (s Service) writeMetrics(ctx context.Context) {
	if s.Metrics == nil || s.MetricsTextfile == "" {
		return
	}
	if err := s.Metrics.WriteTextfile(s.MetricsTextfile); err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("failed to write metrics")
	}
}

func countFailed(results []types.BuildResult) int {
	count := 0
	for _, result := range results {
		if !result.OK() {
			count++
		}
	}
	return count
}

func namesToStrings(names []types.PackageName) []string {
	if len(names) == 0 {
		return nil
	}
	out := make([]string, 0, len(names))
	for _, name := range names {
		out = append(out, string(name))
	}
	return out
}
