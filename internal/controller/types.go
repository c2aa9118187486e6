package controller

// #region imports
import (
	"errors"
	"fmt"

	"github.com/evstrateg/ai-interviewer-bot-sub001/internal/classify"
	"github.com/evstrateg/ai-interviewer-bot-sub001/internal/completeness"
	"github.com/evstrateg/ai-interviewer-bot-sub001/internal/stage"
)

// #endregion

// #region errors

var (
	// ErrTerminated is returned for a turn on a finished interview.
	ErrTerminated = errors.New("controller: interview already ended")
	// ErrInvalidState is returned when persisted state violates an invariant.
	ErrInvalidState = errors.New("controller: invalid state")
)

// #endregion

// #region directive-kind

// DirectiveKind is the per-turn decision handed to the renderer.
type DirectiveKind string

const (
	AskDeepening           DirectiveKind = "ASK_DEEPENING"
	AcknowledgeAndContinue DirectiveKind = "ACKNOWLEDGE_AND_CONTINUE"
	TransitionTo           DirectiveKind = "TRANSITION_TO"
	Recover                DirectiveKind = "RECOVER"
	EndInterview           DirectiveKind = "END_INTERVIEW"
)

// #endregion

// #region recovery-kind

// RecoveryKind says why a turn did not advance.
type RecoveryKind string

const (
	RecoverOffTopic   RecoveryKind = "off_topic"
	RecoverConfusion  RecoveryKind = "confusion"
	RecoverResistance RecoveryKind = "resistance"
)

// #endregion

// #region probe

// Probe is one of the four canonical deepening questions.
type Probe string

const (
	ProbeExample      Probe = "example"
	ProbeStepByStep   Probe = "step_by_step"
	ProbeContrast     Probe = "contrast"
	ProbeBeginnerView Probe = "beginner_view"
)

// Probes lists the deepening probes in tie-break order.
var Probes = []Probe{ProbeExample, ProbeStepByStep, ProbeContrast, ProbeBeginnerView}

// #endregion

// #region directive

// Directive is the controller output for one turn. Stage, Depth and
// Completeness describe the session after the turn was applied, so for a
// transition they already refer to the new stage.
type Directive struct {
	Kind       DirectiveKind       `json:"kind"`
	Probe      Probe               `json:"probe,omitempty"`
	Recovery   RecoveryKind        `json:"recovery,omitempty"`
	From       stage.Stage         `json:"from"`
	Stage      stage.Stage         `json:"stage"`
	Forced     bool                `json:"forced,omitempty"`
	Depth      int                 `json:"depth"`
	Engagement classify.Engagement `json:"engagement"`

	Completeness int `json:"completeness"`
	// PreviousCompleteness is the final score of From on a transition or end.
	PreviousCompleteness int      `json:"previous_completeness,omitempty"`
	Unmet                []string `json:"unmet,omitempty"`
}

// #endregion

// #region state

// WindowSize is the number of recent responses used for engagement.
const WindowSize = 3

// State is everything the controller needs between turns.
type State struct {
	Stage      stage.Stage                   `json:"stage"`
	Depth      int                           `json:"depth"`
	Tallies    stage.Tallies                 `json:"tallies"`
	Engagement classify.Engagement           `json:"engagement"`
	Window     []classify.ClassifiedResponse `json:"window"`
	ProbeUse   map[Probe]int                 `json:"probe_use,omitempty"` // probe -> turn last used
	Scores     map[stage.Stage]int           `json:"stage_scores,omitempty"`
	Turn       int                           `json:"turn"`
	Terminated bool                          `json:"terminated"`
}

// NewState returns the state of a fresh interview.
func NewState() State {
	return State{
		Stage:      stage.First(),
		Depth:      1,
		Engagement: classify.EngagementMedium,
		ProbeUse:   make(map[Probe]int),
		Scores:     make(map[stage.Stage]int),
	}
}

// Completeness returns the score of the active stage.
func (s State) Completeness() int {
	return completeness.Score(s.Stage, s.Tallies)
}

// Validate checks the stage and depth invariants.
func (s State) Validate() error {
	if _, ok := stage.Lookup(s.Stage); !ok {
		return fmt.Errorf("%w: unknown stage %q", ErrInvalidState, s.Stage)
	}
	if s.Depth < 1 || s.Depth > stage.MaxDepth {
		return fmt.Errorf("%w: depth %d out of range", ErrInvalidState, s.Depth)
	}
	return nil
}

// #endregion

// #region respondent-state

// RespondentState maps engagement onto the internal notes vocabulary.
func RespondentState(e classify.Engagement) string {
	switch e {
	case classify.EngagementHigh:
		return "engaged"
	case classify.EngagementLow:
		return "tired"
	default:
		return "neutral"
	}
}

// #endregion
