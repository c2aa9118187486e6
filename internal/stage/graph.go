package stage

import "fmt"

// DefaultMinCompleteness is the exit threshold shared by every stage.
const DefaultMinCompleteness = 80

// MaxDepth is the deepest follow-up level within a stage.
const MaxDepth = 4

// #region table

// table holds the per-stage minimums. MinDepth never exceeds MaxDepth-1 so
// every stage can exit before the forced transition fires.
var table = map[Stage]Spec{
	Greeting:     {Stage: Greeting, Ordinal: 0, MinExamples: 1, MinDepth: 3, MinProcess: 0, Next: Profiling},
	Profiling:    {Stage: Profiling, Ordinal: 1, MinExamples: 1, MinDepth: 2, MinProcess: 0, Next: Essence},
	Essence:      {Stage: Essence, Ordinal: 2, MinExamples: 1, MinDepth: 2, MinProcess: 0, Next: Operations},
	Operations:   {Stage: Operations, Ordinal: 3, MinExamples: 2, MinDepth: 3, MinProcess: 1, Next: ExpertiseMap},
	ExpertiseMap: {Stage: ExpertiseMap, Ordinal: 4, MinExamples: 2, MinDepth: 3, MinProcess: 0, Next: FailureModes},
	FailureModes: {Stage: FailureModes, Ordinal: 5, MinExamples: 2, MinDepth: 3, MinProcess: 0, Next: Mastery},
	Mastery:      {Stage: Mastery, Ordinal: 6, MinExamples: 1, MinDepth: 3, MinProcess: 0, Next: GrowthPath},
	GrowthPath:   {Stage: GrowthPath, Ordinal: 7, MinExamples: 1, MinDepth: 2, MinProcess: 1, Next: WrapUp},
	WrapUp:       {Stage: WrapUp, Ordinal: 8, MinExamples: 0, MinDepth: 1, MinProcess: 0, Next: ""},
}

func init() {
	for st, spec := range table {
		spec.MinCompleteness = DefaultMinCompleteness
		table[st] = spec
	}
}

// #endregion table

// #region lookup

// Lookup returns the table row for a stage.
func Lookup(st Stage) (Spec, bool) {
	spec, ok := table[st]
	return spec, ok
}

// MustLookup is Lookup for stages known to be valid.
func MustLookup(st Stage) Spec {
	spec, ok := table[st]
	if !ok {
		panic(fmt.Sprintf("stage: no table row for %q", st))
	}
	return spec
}

// Next returns the stage after st, or false for the final stage.
func Next(st Stage) (Stage, bool) {
	spec, ok := table[st]
	if !ok || spec.Next == "" {
		return "", false
	}
	return spec.Next, true
}

// Ordinal returns the zero-based position of st, or -1 if unknown.
func Ordinal(st Stage) int {
	spec, ok := table[st]
	if !ok {
		return -1
	}
	return spec.Ordinal
}

// First is the entry stage of every interview.
func First() Stage {
	return Order[0]
}

// #endregion lookup

// #region gate

// Gate checks every exit condition and reports the ones not met.
// The completeness score is passed in because it is derived from the tallies
// by the completeness tracker.
func Gate(st Stage, t Tallies, completeness int) ExitDecision {
	spec, ok := table[st]
	if !ok {
		return ExitDecision{Unmet: []string{fmt.Sprintf("unknown stage %q", st)}}
	}

	var unmet []string
	if completeness < spec.MinCompleteness {
		unmet = append(unmet, fmt.Sprintf("completeness %d < %d", completeness, spec.MinCompleteness))
	}
	if t.Examples < spec.MinExamples {
		unmet = append(unmet, fmt.Sprintf("examples %d < %d", t.Examples, spec.MinExamples))
	}
	if t.DepthReached < spec.MinDepth {
		unmet = append(unmet, fmt.Sprintf("depth %d < %d", t.DepthReached, spec.MinDepth))
	}

	return ExitDecision{Allowed: len(unmet) == 0, Unmet: unmet}
}

// CanExit reports whether the active stage has collected enough evidence.
func CanExit(st Stage, t Tallies, completeness int) bool {
	return Gate(st, t, completeness).Allowed
}

// #endregion gate
