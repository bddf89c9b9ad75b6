package types

import "time"

// StagedRecipe is a recipe checked out under the work directory. Digest
// identifies the exact source that was staged.
type StagedRecipe struct {
	Dir    string
	Digest string
}

type BuildResult struct {
	Name         PackageName   `yaml:"name"`
	Outcome      Outcome       `yaml:"outcome"`
	Reason       string        `yaml:"reason,omitempty"`
	Version      string        `yaml:"version,omitempty"`
	SourceDigest string        `yaml:"source_digest,omitempty"`
	Artifacts    []string      `yaml:"artifacts,omitempty"`
	Duration     time.Duration `yaml:"duration"`
}

func (r BuildResult) OK() bool {
	return r.Outcome == OutcomeBuilt || r.Outcome == OutcomeAlreadySatisfied
}

// Succeeded reports whether every result is built or already satisfied.
func Succeeded(results []BuildResult) bool {
	for _, result := range results {
		if !result.OK() {
			return false
		}
	}
	return true
}

type RunReport struct {
	Command   string        `yaml:"command"`
	StartedAt string        `yaml:"started_at"`
	Roots     []string      `yaml:"roots"`
	Satisfied []string      `yaml:"satisfied,omitempty"`
	Plan      []string      `yaml:"plan"`
	Results   []BuildResult `yaml:"results"`
	Success   bool          `yaml:"success"`
}
