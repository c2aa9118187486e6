package replay

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/evstrateg/ai-interviewer-bot-sub001/internal/classify"
	"github.com/evstrateg/ai-interviewer-bot-sub001/internal/controller"
	"github.com/evstrateg/ai-interviewer-bot-sub001/internal/logging"
	"github.com/evstrateg/ai-interviewer-bot-sub001/internal/stage"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture.
type Fixture struct {
	Description     string                  `json:"description"`
	StartState      FixtureStartState       `json:"start_state"`
	Interactions    []FixtureInteraction    `json:"interactions"`
	ExpectedResults []FixtureExpectedResult `json:"expected_results"`
}

// FixtureStartState is the JSON-serializable initial state. Zero fields
// keep the values of a fresh interview.
type FixtureStartState struct {
	Stage   stage.Stage   `json:"stage,omitempty"`
	Depth   int           `json:"depth,omitempty"`
	Tallies stage.Tallies `json:"tallies"`
	Turn    int           `json:"turn,omitempty"`
}

// FixtureInteraction is one user message. Classified, when present, is fed
// to the controller as is; otherwise Text goes through the classifier.
type FixtureInteraction struct {
	TurnID     string                       `json:"turn_id"`
	Text       string                       `json:"text,omitempty"`
	Classified *classify.ClassifiedResponse `json:"classified,omitempty"`
}

// FixtureExpectedResult captures the expected directive per turn. Empty
// fields are not compared.
type FixtureExpectedResult struct {
	TurnID   string                   `json:"turn_id"`
	Kind     controller.DirectiveKind `json:"kind"`
	Stage    stage.Stage              `json:"stage,omitempty"`
	Probe    controller.Probe         `json:"probe,omitempty"`
	Recovery controller.RecoveryKind  `json:"recovery,omitempty"`
	Forced   *bool                    `json:"forced,omitempty"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	if len(f.ExpectedResults) > 0 && len(f.ExpectedResults) != len(f.Interactions) {
		return nil, fmt.Errorf("fixture %s: %d interactions but %d expected results",
			path, len(f.Interactions), len(f.ExpectedResults))
	}
	return &f, nil
}

// ToState converts the start block into controller state.
func (s *FixtureStartState) ToState() (controller.State, error) {
	st := controller.NewState()
	if s.Stage != "" {
		st.Stage = s.Stage
	}
	if s.Depth != 0 {
		st.Depth = s.Depth
	}
	st.Tallies = s.Tallies
	st.Turn = s.Turn
	if err := st.Validate(); err != nil {
		return controller.State{}, err
	}
	return st, nil
}

// ToInteraction converts a FixtureInteraction to a domain Interaction.
func (fi *FixtureInteraction) ToInteraction() Interaction {
	in := Interaction{TurnID: fi.TurnID, Text: fi.Text}
	if fi.Classified != nil {
		c := *fi.Classified
		in.Classified = &c
	}
	return in
}

// ToInteractions converts every fixture interaction.
func (f *Fixture) ToInteractions() []Interaction {
	out := make([]Interaction, len(f.Interactions))
	for i := range f.Interactions {
		out[i] = f.Interactions[i].ToInteraction()
	}
	return out
}

// #endregion fixture-loader

// #region fixture-export

// ExportFixture builds a fixture from logged turns of one session. The
// recorded classifications are kept so the replay does not depend on the
// classifier that produced them.
func ExportFixture(description string, records []logging.TurnRecord) Fixture {
	f := Fixture{
		Description:     description,
		Interactions:    make([]FixtureInteraction, 0, len(records)),
		ExpectedResults: make([]FixtureExpectedResult, 0, len(records)),
	}
	if len(records) > 0 {
		first := records[0]
		f.StartState = FixtureStartState{Stage: first.StageBefore, Depth: first.DepthBefore, Turn: first.Turn - 1}
	}
	for _, rec := range records {
		c := rec.Classified
		f.Interactions = append(f.Interactions, FixtureInteraction{
			TurnID:     rec.TurnID,
			Text:       rec.Text,
			Classified: &c,
		})
		forced := rec.Directive.Forced
		f.ExpectedResults = append(f.ExpectedResults, FixtureExpectedResult{
			TurnID:   rec.TurnID,
			Kind:     rec.Directive.Kind,
			Stage:    rec.Directive.Stage,
			Probe:    rec.Directive.Probe,
			Recovery: rec.Directive.Recovery,
			Forced:   &forced,
		})
	}
	return f
}

// WriteFixture writes f as indented JSON.
func WriteFixture(path string, f Fixture) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal fixture: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write fixture %s: %w", path, err)
	}
	return nil
}

// #endregion fixture-export
