package completeness

import (
	"testing"

	"github.com/evstrateg/ai-interviewer-bot-sub001/internal/classify"
	"github.com/evstrateg/ai-interviewer-bot-sub001/internal/stage"
)

func TestScore(t *testing.T) {
	tests := []struct {
		name    string
		stage   stage.Stage
		tallies stage.Tallies
		want    int
	}{
		{"no-responses", stage.Greeting, stage.Tallies{}, 0},
		{"no-responses-wrap-up", stage.WrapUp, stage.Tallies{}, 0},
		{"unknown-stage", stage.Stage("lunch"), stage.Tallies{Responses: 3, Examples: 3, DepthReached: 3}, 0},
		{"greeting-first-turn", stage.Greeting, stage.Tallies{Responses: 1, DepthReached: 1}, 33},
		{"greeting-capped", stage.Greeting, stage.Tallies{Responses: 2, Examples: 1, DepthReached: 2}, 79},
		{"greeting-complete", stage.Greeting, stage.Tallies{Responses: 3, Examples: 1, DepthReached: 3}, 100},
		{"operations-no-process", stage.Operations, stage.Tallies{Responses: 3, Examples: 2, DepthReached: 3}, 80},
		{"operations-one-example", stage.Operations, stage.Tallies{Responses: 3, Examples: 1, DepthReached: 3, Processes: 1}, 79},
		{"operations-extra-evidence", stage.Operations, stage.Tallies{Responses: 6, Examples: 5, DepthReached: 4, Processes: 3}, 100},
		{"wrap-up-single-turn", stage.WrapUp, stage.Tallies{Responses: 1, DepthReached: 1}, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Score(tt.stage, tt.tallies); got != tt.want {
				t.Errorf("Score: got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestScore_CapKeepsGateClosed(t *testing.T) {
	for _, st := range stage.Order {
		spec := stage.MustLookup(st)
		if spec.MinExamples == 0 {
			continue
		}
		tallies := stage.Tallies{
			Responses:    10,
			Examples:     spec.MinExamples - 1,
			DepthReached: stage.MaxDepth,
			Processes:    10,
		}
		score := Score(st, tallies)
		if score >= spec.MinCompleteness {
			t.Errorf("%s: score %d reached threshold with examples unmet", st, score)
		}
		if stage.CanExit(st, tallies, score) {
			t.Errorf("%s: exit allowed with examples unmet", st)
		}
	}
}

func TestTracker_Monotonic(t *testing.T) {
	tr := NewTracker(stage.Operations)
	responses := []classify.ClassifiedResponse{
		{Length: classify.LengthShort},
		{Length: classify.LengthNormal, ContainsExample: true},
		{Length: classify.LengthNormal},
		{Length: classify.LengthLong, DescribesProcess: true},
		{Length: classify.LengthLong, ContainsExample: true},
	}

	prev := tr.Score()
	prevTallies := tr.Tallies()
	for i, r := range responses {
		tr.Record(r, min(i+1, stage.MaxDepth))
		score := tr.Score()
		if score < prev {
			t.Fatalf("turn %d: score dropped from %d to %d", i+1, prev, score)
		}
		cur := tr.Tallies()
		if cur.Examples < prevTallies.Examples || cur.Processes < prevTallies.Processes ||
			cur.DepthReached < prevTallies.DepthReached {
			t.Fatalf("turn %d: tallies decreased %+v -> %+v", i+1, prevTallies, cur)
		}
		prev, prevTallies = score, cur
	}

	got := tr.Tallies()
	want := stage.Tallies{Examples: 2, Processes: 1, DepthReached: 4, Responses: 5}
	if got != want {
		t.Errorf("tallies: got %+v, want %+v", got, want)
	}
	if tr.Score() != 100 {
		t.Errorf("score: got %d, want 100", tr.Score())
	}
}

func TestTracker_DepthNeverRegresses(t *testing.T) {
	tr := NewTracker(stage.Essence)
	tr.Record(classify.ClassifiedResponse{}, 3)
	tr.Record(classify.ClassifiedResponse{}, 1)
	if got := tr.Tallies().DepthReached; got != 3 {
		t.Errorf("depth_reached: got %d, want 3", got)
	}
}

func TestTracker_Reset(t *testing.T) {
	tr := Restore(stage.Profiling, stage.Tallies{Examples: 2, DepthReached: 3, Responses: 3})
	if tr.Score() != 100 {
		t.Fatalf("restored score: got %d, want 100", tr.Score())
	}

	tr.Reset(stage.Essence)
	if tr.Stage() != stage.Essence {
		t.Errorf("stage: got %q, want essence", tr.Stage())
	}
	if tr.Tallies() != (stage.Tallies{}) {
		t.Errorf("tallies not cleared: %+v", tr.Tallies())
	}
	if tr.Score() != 0 {
		t.Errorf("score after reset: got %d, want 0", tr.Score())
	}
}
