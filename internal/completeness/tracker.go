package completeness

import (
	"github.com/evstrateg/ai-interviewer-bot-sub001/internal/classify"
	"github.com/evstrateg/ai-interviewer-bot-sub001/internal/stage"
)

// #region weights

const (
	exampleWeight = 40
	depthWeight   = 40
	processWeight = 20

	// gateCap bounds the score while the example or depth minimum is unmet,
	// so 80 is only reachable once both are satisfied.
	gateCap = stage.DefaultMinCompleteness - 1
)

// #endregion weights

// #region tracker

// Tracker accumulates evidence for the active stage.
// Tallies never decrease until Reset.
type Tracker struct {
	stage   stage.Stage
	tallies stage.Tallies
}

// NewTracker starts an empty tracker for st.
func NewTracker(st stage.Stage) *Tracker {
	return &Tracker{stage: st}
}

// Restore rebuilds a tracker from persisted tallies.
func Restore(st stage.Stage, t stage.Tallies) *Tracker {
	return &Tracker{stage: st, tallies: t}
}

// Stage returns the stage the tallies belong to.
func (t *Tracker) Stage() stage.Stage {
	return t.stage
}

// Tallies returns a copy of the current tallies.
func (t *Tracker) Tallies() stage.Tallies {
	return t.tallies
}

// Record adds one on-topic response. depth is the level of the question
// the response answered.
func (t *Tracker) Record(resp classify.ClassifiedResponse, depth int) {
	t.tallies.Responses++
	if resp.ContainsExample {
		t.tallies.Examples++
	}
	if resp.DescribesProcess {
		t.tallies.Processes++
	}
	if depth > t.tallies.DepthReached {
		t.tallies.DepthReached = depth
	}
}

// Score returns the 0-100 completeness for the active stage.
func (t *Tracker) Score() int {
	return Score(t.stage, t.tallies)
}

// Reset clears the tallies on entry to st.
func (t *Tracker) Reset(st stage.Stage) {
	t.stage = st
	t.tallies = stage.Tallies{}
}

// #endregion tracker

// #region score

// Score computes completeness for tallies against the minimums of st.
// A stage with no recorded responses scores 0 regardless of its minimums.
func Score(st stage.Stage, t stage.Tallies) int {
	spec, ok := stage.Lookup(st)
	if !ok || t.Responses == 0 {
		return 0
	}

	score := part(t.Examples, spec.MinExamples, exampleWeight) +
		part(t.DepthReached, spec.MinDepth, depthWeight) +
		part(t.Processes, spec.MinProcess, processWeight)

	if t.Examples < spec.MinExamples || t.DepthReached < spec.MinDepth {
		score = min(score, gateCap)
	}
	return max(0, min(score, 100))
}

func part(have, need, weight int) int {
	if need <= 0 || have >= need {
		return weight
	}
	return weight * have / need
}

// #endregion score
