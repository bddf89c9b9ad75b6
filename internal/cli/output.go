package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gookit/color"

	"raur/internal/app"
	"raur/internal/types"
)

type colorSprinter interface {
	Sprintf(format string, a ...any) string
}

var (
	colInfo    = color.Info
	colWarn    = color.Warn
	colError   = color.Error
	colSuccess = color.HEX("#1976D2")
	colNote    = color.Tag("notice")
)

func outcomeColor(outcome types.Outcome) colorSprinter {
	switch outcome {
	case types.OutcomeBuilt:
		return colSuccess
	case types.OutcomeAlreadySatisfied:
		return colNote
	case types.OutcomeSkipped:
		return colWarn
	default:
		return colError
	}
}

func printPlan(w io.Writer, plan types.BuildPlan) {
	fmt.Fprintln(w, colInfo.Sprintf("packages to build (%d):", plan.Len()))
	for i, entry := range plan.Entries {
		kind := "dependency"
		if entry.Explicit {
			kind = "explicit"
		}
		origin := ""
		if entry.Origin == types.OriginRepo {
			origin = " [repo]"
		}
		fmt.Fprintf(w, "  %2d. %s %s (%s)%s\n", i+1, entry.Name, entry.Metadata.Version, kind, origin)
	}
}

func printRunResult(w io.Writer, result app.RunResult) {
	if len(result.Satisfied) > 0 {
		fmt.Fprintf(w, "%s %s\n", colNote.Sprintf("already installed:"), joinNames(result.Satisfied))
	}
	switch {
	case result.Declined:
		fmt.Fprintln(w, colWarn.Sprintf("aborted, nothing was built"))
	case result.Plan.Len() == 0 && len(result.Roots) > 0 && len(result.Results) == 0:
		fmt.Fprintln(w, "nothing to do")
	default:
		printResults(w, result.Results)
	}
}

// printResults writes one line per entry followed by a summary.
func printResults(w io.Writer, results []types.BuildResult) {
	if len(results) == 0 {
		return
	}
	width := 0
	for _, result := range results {
		if n := len(result.Name); n > width {
			width = n
		}
	}
	counts := map[types.Outcome]int{}
	for _, result := range results {
		counts[result.Outcome]++
		line := fmt.Sprintf("%-*s  %-17s", width, result.Name, result.Outcome)
		detail := result.Version
		if result.Reason != "" {
			detail = result.Reason
		}
		if detail != "" {
			line += "  " + detail
		}
		if result.Duration > 0 {
			line += fmt.Sprintf("  (%s)", result.Duration.Round(time.Second))
		}
		fmt.Fprintln(w, outcomeColor(result.Outcome).Sprintf("%s", line))
	}
	fmt.Fprintf(w, "%d built, %d already satisfied, %d failed, %d skipped\n",
		counts[types.OutcomeBuilt],
		counts[types.OutcomeAlreadySatisfied],
		counts[types.OutcomeFailed],
		counts[types.OutcomeSkipped],
	)
}

func printInfo(w io.Writer, info app.PackageInfo) {
	meta := info.Metadata
	rows := [][2]string{
		{"Name", string(meta.Name)},
		{"Package Base", meta.Base()},
		{"Version", meta.Version},
		{"Description", meta.Description},
		{"Maintainer", orNone(meta.Maintainer)},
		{"Popularity", fmt.Sprintf("%.2f", meta.Popularity)},
		{"Out Of Date", yesNo(meta.OutOfDate)},
		{"Depends On", joinDeps(meta.RuntimeDependencies)},
		{"Build Depends", joinDeps(meta.BuildDependencies)},
		{"Installed", installedLabel(info)},
	}
	for _, row := range rows {
		fmt.Fprintf(w, "%s : %s\n", colInfo.Sprintf("%-14s", row[0]), row[1])
	}
}

func printSearch(w io.Writer, packages []app.PackageInfo) {
	for _, info := range packages {
		meta := info.Metadata
		line := fmt.Sprintf("aur/%s %s", meta.Name, meta.Version)
		if info.Installed {
			line += colNote.Sprintf(" [installed: %s]", info.InstalledVersion)
		}
		if meta.OutOfDate {
			line += colWarn.Sprintf(" (out of date)")
		}
		fmt.Fprintln(w, line)
		if meta.Description != "" {
			fmt.Fprintf(w, "    %s\n", meta.Description)
		}
	}
}

func joinNames(names []types.PackageName) string {
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, string(name))
	}
	return strings.Join(parts, " ")
}

func joinDeps(deps []types.Dependency) string {
	if len(deps) == 0 {
		return "None"
	}
	parts := make([]string, 0, len(deps))
	for _, dep := range deps {
		parts = append(parts, dep.String())
	}
	return strings.Join(parts, "  ")
}

func installedLabel(info app.PackageInfo) string {
	if !info.Installed {
		return "No"
	}
	if info.InstalledVersion == "" {
		return "Yes"
	}
	return info.InstalledVersion
}

func orNone(value string) string {
	if value == "" {
		return "None"
	}
	return value
}

func yesNo(value bool) string {
	if value {
		return "Yes"
	}
	return "No"
}
