package ports

import (
	"time"

	"raur/internal/types"
)

type ReportPort interface {
	WriteReport(report types.RunReport) error
}

// RunObserverPort is notified as the orchestrator finishes steps and
// entries. Implementations must not block.
type RunObserverPort interface {
	StepFinished(name types.PackageName, step string, elapsed time.Duration, err error)
	ResultRecorded(result types.BuildResult)
}
