// Package replay runs recorded or scripted interactions through the
// controller in memory and compares the directives with expectations.
package replay

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/evstrateg/ai-interviewer-bot-sub001/internal/classify"
	"github.com/evstrateg/ai-interviewer-bot-sub001/internal/controller"
	"github.com/evstrateg/ai-interviewer-bot-sub001/internal/stage"
)

// #region types

// maxHistory bounds the classifier history passed to text interactions.
const maxHistory = 20

// Interaction represents a single recorded turn for replay.
type Interaction struct {
	TurnID     string
	Text       string
	Classified *classify.ClassifiedResponse
}

// Result captures the outcome of replaying one interaction.
type Result struct {
	TurnID     string
	Classified classify.ClassifiedResponse
	Directive  controller.Directive
	Err        error
}

// Summary provides aggregate stats from a replay run.
type Summary struct {
	TotalTurns  int
	Deepenings  int
	Acks        int
	Transitions int
	Forced      int
	Recoveries  int
	Ends        int
	Errors      int
	FinalStage  stage.Stage
	Terminated  bool
	Scores      map[stage.Stage]int
}

// Mismatch is one turn whose directive differs from the fixture.
type Mismatch struct {
	Index  int
	TurnID string
	Field  string
	Want   string
	Got    string
}

func (m Mismatch) String() string {
	return fmt.Sprintf("turn %d (%s): %s want=%s got=%s", m.Index, m.TurnID, m.Field, m.Want, m.Got)
}

// #endregion types

// #region replay

// Replay feeds interactions through the controller starting from start.
// Interactions without a stored classification are classified with cl,
// which must then be non-nil. A controller error is recorded on the result
// and the run continues, so turns after the end all report ErrTerminated.
func Replay(ctx context.Context, start controller.State, interactions []Interaction, cl classify.Classifier) ([]Result, controller.State, error) {
	c := controller.New(nil)
	current := start.Clone()
	history := make([]classify.ClassifiedResponse, 0, len(interactions))
	results := make([]Result, 0, len(interactions))

	for _, inter := range interactions {
		var resp classify.ClassifiedResponse
		switch {
		case inter.Classified != nil:
			resp = *inter.Classified
		case cl == nil:
			return results, current, fmt.Errorf("turn %s: no classification and no classifier", inter.TurnID)
		default:
			r, err := cl.Classify(ctx, inter.Text, current.Stage, history)
			if err != nil {
				r = classify.FallbackResponse()
			}
			resp = r
		}

		d, err := c.Step(&current, resp)
		results = append(results, Result{TurnID: inter.TurnID, Classified: resp, Directive: d, Err: err})
		if err == nil {
			history = append(history, resp)
			if len(history) > maxHistory {
				history = history[len(history)-maxHistory:]
			}
		}
	}
	return results, current, nil
}

// Summarize computes aggregate stats from replay results.
func Summarize(results []Result, final controller.State) Summary {
	s := Summary{
		TotalTurns: len(results),
		FinalStage: final.Stage,
		Terminated: final.Terminated,
		Scores:     final.Scores,
	}
	for _, r := range results {
		if r.Err != nil {
			s.Errors++
			continue
		}
		switch r.Directive.Kind {
		case controller.AskDeepening:
			s.Deepenings++
		case controller.AcknowledgeAndContinue:
			s.Acks++
		case controller.TransitionTo:
			s.Transitions++
			if r.Directive.Forced {
				s.Forced++
			}
		case controller.Recover:
			s.Recoveries++
		case controller.EndInterview:
			s.Ends++
		}
	}
	return s
}

// Compare checks results against the expected directives of a fixture.
func Compare(results []Result, expected []FixtureExpectedResult) []Mismatch {
	var out []Mismatch
	if len(results) != len(expected) {
		return append(out, Mismatch{
			Index: -1,
			Field: "turns",
			Want:  fmt.Sprint(len(expected)),
			Got:   fmt.Sprint(len(results)),
		})
	}
	for i, want := range expected {
		got := results[i]
		add := func(field, w, g string) {
			if w != g {
				out = append(out, Mismatch{Index: i, TurnID: want.TurnID, Field: field, Want: w, Got: g})
			}
		}
		add("turn_id", want.TurnID, got.TurnID)
		if got.Err != nil {
			add("kind", string(want.Kind), "error: "+got.Err.Error())
			continue
		}
		add("kind", string(want.Kind), string(got.Directive.Kind))
		if want.Stage != "" {
			add("stage", string(want.Stage), string(got.Directive.Stage))
		}
		if want.Probe != "" {
			add("probe", string(want.Probe), string(got.Directive.Probe))
		}
		if want.Recovery != "" {
			add("recovery", string(want.Recovery), string(got.Directive.Recovery))
		}
		if want.Forced != nil {
			add("forced", fmt.Sprint(*want.Forced), fmt.Sprint(got.Directive.Forced))
		}
	}
	return out
}

// #endregion replay

// #region fixtures

// Report is the outcome of replaying one fixture file.
type Report struct {
	Path        string
	Description string
	Summary     Summary
	Mismatches  []Mismatch
}

// Passed reports whether every expected directive matched.
func (r Report) Passed() bool {
	return len(r.Mismatches) == 0
}

// RunFixture loads and replays one fixture file.
func RunFixture(ctx context.Context, path string, cl classify.Classifier) (Report, error) {
	f, err := LoadFixture(path)
	if err != nil {
		return Report{}, err
	}
	start, err := f.StartState.ToState()
	if err != nil {
		return Report{}, fmt.Errorf("fixture %s: %w", path, err)
	}
	results, final, err := Replay(ctx, start, f.ToInteractions(), cl)
	if err != nil {
		return Report{}, fmt.Errorf("fixture %s: %w", path, err)
	}
	rep := Report{Path: path, Description: f.Description, Summary: Summarize(results, final)}
	if len(f.ExpectedResults) > 0 {
		rep.Mismatches = Compare(results, f.ExpectedResults)
	}
	return rep, nil
}

// RunFixtures replays fixture files concurrently, at most limit at a time
// (limit <= 0 means no limit). Reports keep the order of paths.
func RunFixtures(ctx context.Context, paths []string, cl classify.Classifier, limit int) ([]Report, error) {
	reports := make([]Report, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, p := range paths {
		g.Go(func() error {
			rep, err := RunFixture(ctx, p, cl)
			if err != nil {
				return err
			}
			reports[i] = rep
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}

// #endregion fixtures
