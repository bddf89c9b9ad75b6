package app

import "fmt"

// BuildFailuresError is returned when a run executed its plan but at least
// one entry was not installed.
type BuildFailuresError struct {
	Failed int
	Total  int
}

func (e *BuildFailuresError) Error() string {
	return fmt.Sprintf("%d of %d packages were not installed", e.Failed, e.Total)
}
