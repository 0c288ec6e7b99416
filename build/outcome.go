package build

import "time"

// Status is the result category of one project build
type Status int

const (
	// StatusBuilt means the toolchain succeeded and at least one library was deployed
	StatusBuilt Status = iota
	// StatusNoArtifact means the toolchain succeeded but produced no library
	StatusNoArtifact
	// StatusFailed means the toolchain failed or deployment failed
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusBuilt:
		return "built"
	case StatusNoArtifact:
		return "no artifact"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome is the result of building one project
type Outcome struct {
	Target    Target
	Status    Status
	Artifacts []string // Deployed library paths
	Warnings  []string
	Err       error // Set for StatusFailed and StatusNoArtifact
	Duration  time.Duration
}

// Report is the result of a batch build: one outcome per discovered project
type Report struct {
	Root      string
	DeployDir string
	Outcomes  []Outcome
	Duration  time.Duration
}

// Failed returns the outcomes whose builds failed
func (r Report) Failed() []Outcome {
	return r.filter(StatusFailed)
}

// Built returns the outcomes that deployed at least one library
func (r Report) Built() []Outcome {
	return r.filter(StatusBuilt)
}

// Artifacts returns every deployed library path
func (r Report) Artifacts() []string {
	var out []string
	for _, o := range r.Outcomes {
		out = append(out, o.Artifacts...)
	}
	return out
}

func (r Report) filter(status Status) []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if o.Status == status {
			out = append(out, o)
		}
	}
	return out
}
