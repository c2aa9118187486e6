package stage

import "fmt"

// #region stage

// Stage identifies one of the nine interview phases.
type Stage string

const (
	Greeting     Stage = "greeting"
	Profiling    Stage = "profiling"
	Essence      Stage = "essence"
	Operations   Stage = "operations"
	ExpertiseMap Stage = "expertise_map"
	FailureModes Stage = "failure_modes"
	Mastery      Stage = "mastery"
	GrowthPath   Stage = "growth_path"
	WrapUp       Stage = "wrap_up"
)

// Order lists every stage in traversal order.
var Order = []Stage{
	Greeting, Profiling, Essence, Operations, ExpertiseMap,
	FailureModes, Mastery, GrowthPath, WrapUp,
}

// Parse converts a wire name into a Stage.
func Parse(s string) (Stage, error) {
	for _, st := range Order {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown stage %q", s)
}

// #endregion stage

// #region spec

// Spec is one row of the stage table.
type Spec struct {
	Stage           Stage
	Ordinal         int
	MinExamples     int
	MinDepth        int
	MinProcess      int
	MinCompleteness int
	Next            Stage // empty for the final stage
}

// #endregion spec

// #region tallies

// Tallies is the evidence accumulated for the active stage.
type Tallies struct {
	Examples     int `json:"examples"`
	Processes    int `json:"processes"`
	DepthReached int `json:"depth_reached"`
	Responses    int `json:"responses"`
}

// #endregion tallies

// #region exit-decision

// ExitDecision is the output of the exit gate.
type ExitDecision struct {
	Allowed bool
	Unmet   []string // human-readable reasons, empty when allowed
}

// #endregion exit-decision
