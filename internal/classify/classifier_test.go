package classify

import (
	"context"
	"strings"
	"testing"

	"github.com/evstrateg/ai-interviewer-bot-sub001/internal/stage"
)

func words(n int) string {
	return strings.TrimSpace(strings.Repeat("work ", n))
}

func TestBucketFor(t *testing.T) {
	tests := []struct {
		words int
		want  LengthBucket
	}{
		{0, LengthShort},
		{49, LengthShort},
		{50, LengthNormal},
		{51, LengthNormal},
		{300, LengthNormal},
		{301, LengthLong},
	}
	for _, tt := range tests {
		if got := BucketFor(tt.words); got != tt.want {
			t.Errorf("BucketFor(%d): got %q, want %q", tt.words, got, tt.want)
		}
	}
}

func TestClassifyText_Length(t *testing.T) {
	cfg := DefaultHeuristicConfig()
	for _, n := range []int{49, 50, 300, 301} {
		got := ClassifyText(words(n), stage.Operations, nil, cfg)
		if got.WordCount != n {
			t.Errorf("word count: got %d, want %d", got.WordCount, n)
		}
		if got.Length != BucketFor(n) {
			t.Errorf("%d words: got %q, want %q", n, got.Length, BucketFor(n))
		}
	}
}

func TestClassifyText(t *testing.T) {
	cfg := DefaultHeuristicConfig()
	tests := []struct {
		name        string
		text        string
		stage       stage.Stage
		wantSpec    Specificity
		wantExample bool
		wantProcess bool
		wantOnTopic bool
		wantSignal  Signal
	}{
		{
			"generic-hedge",
			"We do it the standard way, like everyone else.",
			stage.Operations, SpecificityGeneric, false, false, true, SignalNone,
		},
		{
			"hedge-with-tool-is-specific",
			"As usual we track everything in Jira.",
			stage.Operations, SpecificitySpecific, true, false, true, SignalNone,
		},
		{
			"hedge-with-proper-noun-is-specific",
			"Nothing special, we follow what Maria set up.",
			stage.Operations, SpecificitySpecific, false, false, true, SignalNone,
		},
		{
			"quantified-example",
			"Last year we cut onboarding time by 30% for the support team.",
			stage.Operations, SpecificitySpecific, true, false, true, SignalNone,
		},
		{
			"process-description",
			"First we collect requirements, then we draft a plan, and finally we review it.",
			stage.Operations, SpecificitySpecific, false, true, true, SignalNone,
		},
		{
			"numbered-process",
			"My routine:\n1. check the queue\n2. plan the day\n3. report to the lead",
			stage.Operations, SpecificitySpecific, false, true, true, SignalNone,
		},
		{
			"confusion",
			"Sorry, I don't understand the question.",
			stage.Essence, SpecificitySpecific, false, false, true, SignalConfusion,
		},
		{
			"confusion-ru",
			"Извините, я не понимаю вопрос.",
			stage.Essence, SpecificitySpecific, false, false, true, SignalConfusion,
		},
		{
			"resistance",
			"I'd rather not talk about that part of my job.",
			stage.FailureModes, SpecificitySpecific, false, false, true, SignalResistance,
		},
		{
			"resistance-beats-confusion",
			"I don't understand why you ask and I'd rather not say.",
			stage.FailureModes, SpecificitySpecific, false, false, true, SignalResistance,
		},
		{
			"topic-shift-marker",
			"By the way, did you watch the football match yesterday evening with friends?",
			stage.Operations, SpecificitySpecific, true, false, false, SignalNone,
		},
		{
			"long-off-topic",
			"My favourite recipe uses fresh tomatoes garlic basil olive oil and pasta cooked slowly over gentle heat",
			stage.Operations, SpecificitySpecific, false, false, false, SignalNone,
		},
		{
			"short-reply-is-on-topic",
			"Sure, ready.",
			stage.Greeting, SpecificitySpecific, false, false, true, SignalNone,
		},
		{
			"russian-on-topic",
			"Сначала я проверяю задачи команды, потом планирую день и встречи с клиентами на неделю вперед.",
			stage.Operations, SpecificitySpecific, false, true, true, SignalNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyText(tt.text, tt.stage, nil, cfg)
			if got.Specificity != tt.wantSpec {
				t.Errorf("specificity: got %q, want %q", got.Specificity, tt.wantSpec)
			}
			if got.ContainsExample != tt.wantExample {
				t.Errorf("contains_example: got %v, want %v", got.ContainsExample, tt.wantExample)
			}
			if got.DescribesProcess != tt.wantProcess {
				t.Errorf("describes_process: got %v, want %v", got.DescribesProcess, tt.wantProcess)
			}
			if got.OnTopic != tt.wantOnTopic {
				t.Errorf("on_topic: got %v, want %v", got.OnTopic, tt.wantOnTopic)
			}
			if got.Signal != tt.wantSignal {
				t.Errorf("signal: got %q, want %q", got.Signal, tt.wantSignal)
			}
		})
	}
}

func TestClassifyText_HedgeWithPronouns(t *testing.T) {
	cfg := DefaultHeuristicConfig()
	tests := []struct {
		text string
		want Specificity
	}{
		{"As usual, I do it the standard way, like everyone else.", SpecificityGeneric},
		{"As usual, I'm doing it the standard way, like everyone else.", SpecificityGeneric},
		{"Like everyone else, I've just done it as usual.", SpecificityGeneric},
		{"Nothing special, I’d say we work like everyone else.", SpecificityGeneric},
		{`It's done. "As usual." Nothing special here.`, SpecificityGeneric},
		{"As usual, I'll ask what Maria thinks.", SpecificitySpecific},
	}
	for _, tt := range tests {
		got := ClassifyText(tt.text, stage.Operations, nil, cfg)
		if got.Specificity != tt.want {
			t.Errorf("%q: got %q, want %q", tt.text, got.Specificity, tt.want)
		}
	}
}

func TestHasProperNoun(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"we asked I'm sure", false},
		{"we finished (done.) Then we shipped", false},
		{"she said «stop.» Then left", false},
		{"we moved to Berlin", true},
		{"then I’ll call Anna", true},
	}
	for _, tt := range tests {
		if got := hasProperNoun(tt.text); got != tt.want {
			t.Errorf("hasProperNoun(%q): got %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestClassifyText_Engagement(t *testing.T) {
	cfg := DefaultHeuristicConfig()
	rich := strings.Repeat("Last year our team shipped the billing project for a client in 6 weeks. ", 25)

	got := ClassifyText(rich, stage.Operations, nil, cfg)
	if got.Length != LengthLong || !got.ContainsExample || got.Specificity != SpecificitySpecific {
		t.Fatalf("expected long specific example, got %+v", got)
	}
	if got.Engagement != EngagementHigh {
		t.Errorf("engagement: got %q, want high", got.Engagement)
	}

	short := ClassifyText("Fine.", stage.Operations, nil, cfg)
	if short.Engagement != EngagementLow {
		t.Errorf("engagement: got %q, want low", short.Engagement)
	}

	normal := ClassifyText(words(60), stage.Operations, nil, cfg)
	if normal.Engagement != EngagementMedium {
		t.Errorf("engagement: got %q, want medium", normal.Engagement)
	}
}

func TestClassifyText_Contradiction(t *testing.T) {
	cfg := DefaultHeuristicConfig()
	text := "Actually, it was two teams, not one."

	if ClassifyText(text, stage.Profiling, nil, cfg).ContradictsPrior {
		t.Error("no history should never contradict")
	}
	history := []ClassifiedResponse{{Length: LengthShort}}
	if !ClassifyText(text, stage.Profiling, history, cfg).ContradictsPrior {
		t.Error("expected contradiction with history")
	}
}

func TestHeuristic_IsPure(t *testing.T) {
	h := NewHeuristic(HeuristicConfig{})
	text := "First we plan, then we ship. Last year that took 3 weeks."
	a, err := h.Classify(context.Background(), text, stage.Operations, nil)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := h.Classify(context.Background(), text, stage.Operations, nil)
	if a != b {
		t.Errorf("non-deterministic classification: %+v vs %+v", a, b)
	}
}

func TestFallbackResponse(t *testing.T) {
	fb := FallbackResponse()
	if !fb.Fallback || !fb.OnTopic || !fb.Shallow() {
		t.Errorf("fallback must be shallow, on topic and flagged: %+v", fb)
	}
}
