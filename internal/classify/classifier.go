package classify

// #region imports
import (
	"context"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/evstrateg/ai-interviewer-bot-sub001/internal/stage"
)

// #endregion

// #region config

// HeuristicConfig tunes the lexical off-topic check.
type HeuristicConfig struct {
	// MinContentWords is the smallest number of content words an utterance
	// needs before it can be judged off topic.
	MinContentWords int
	// OffTopicThreshold is the minimum share of content words that must hit
	// the stage or shared vocabulary.
	OffTopicThreshold float64
}

// DefaultHeuristicConfig returns the thresholds used in production.
func DefaultHeuristicConfig() HeuristicConfig {
	return HeuristicConfig{
		MinContentWords:   8,
		OffTopicThreshold: 0.05,
	}
}

// #endregion

// #region heuristic

// Heuristic is the deterministic keyword classifier. No model call.
type Heuristic struct {
	cfg HeuristicConfig
}

// NewHeuristic creates a heuristic classifier.
func NewHeuristic(cfg HeuristicConfig) *Heuristic {
	if cfg.MinContentWords <= 0 {
		cfg.MinContentWords = DefaultHeuristicConfig().MinContentWords
	}
	if cfg.OffTopicThreshold <= 0 {
		cfg.OffTopicThreshold = DefaultHeuristicConfig().OffTopicThreshold
	}
	return &Heuristic{cfg: cfg}
}

// Classify implements Classifier. It never returns an error.
func (h *Heuristic) Classify(_ context.Context, text string, st stage.Stage, history []ClassifiedResponse) (ClassifiedResponse, error) {
	return ClassifyText(text, st, history, h.cfg), nil
}

// #endregion

// #region classify

// ClassifyText classifies one utterance against the active stage.
func ClassifyText(text string, st stage.Stage, history []ClassifiedResponse, cfg HeuristicConfig) ClassifiedResponse {
	norm := " " + normalize(text) + " "
	words := len(strings.Fields(text))

	resp := ClassifiedResponse{
		WordCount:        words,
		Length:           BucketFor(words),
		Specificity:      classifySpecificity(norm, text),
		ContainsExample:  containsExample(norm, text),
		DescribesProcess: describesProcess(norm, text),
		OnTopic:          onTopic(norm, text, st, cfg),
		Signal:           classifySignal(norm),
		ContradictsPrior: len(history) > 0 && matchAny(norm, reversalPhrases),
	}
	resp.Engagement = EngagementFor(resp)
	return resp
}

// #endregion

// #region helpers

// matchAny reports whether the padded normalized text contains any phrase
// on word boundaries.
func matchAny(padded string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(padded, " "+p+" ") {
			return true
		}
	}
	return false
}

func countMatches(padded string, phrases []string) int {
	n := 0
	for _, p := range phrases {
		if strings.Contains(padded, " "+p+" ") {
			n++
		}
	}
	return n
}

func classifySpecificity(norm, original string) Specificity {
	if matchAny(norm, hedgePhrases) && !hasConcreteAnchor(norm, original) {
		return SpecificityGeneric
	}
	return SpecificitySpecific
}

// hasConcreteAnchor looks for a number, a named tool or a proper noun.
func hasConcreteAnchor(norm, original string) bool {
	for _, r := range original {
		if unicode.IsDigit(r) {
			return true
		}
	}
	if matchAny(norm, toolLexicon) {
		return true
	}
	return hasProperNoun(original)
}

// hasProperNoun finds a capitalized word that does not open a sentence.
// The pronouns I and Я never count, contractions like I'm included.
func hasProperNoun(original string) bool {
	sentenceStart := true
	for _, tok := range strings.Fields(original) {
		word := strings.TrimFunc(tok, func(r rune) bool { return !unicode.IsLetter(r) })
		if i := strings.IndexAny(word, "'’"); i > 0 {
			word = word[:i]
		}
		if word != "" && !sentenceStart && word != "I" && word != "Я" {
			first, _ := utf8.DecodeRuneInString(word)
			if unicode.IsUpper(first) {
				return true
			}
		}
		if end := strings.TrimRight(tok, closingMarks); end != "" {
			last, _ := utf8.DecodeLastRuneInString(end)
			sentenceStart = strings.ContainsRune(".!?…", last)
		}
	}
	return false
}

// closingMarks may follow the punctuation that ends a sentence.
const closingMarks = "\"'”’»)]"

func containsExample(norm, original string) bool {
	return matchAny(norm, pastEventPhrases) ||
		matchAny(norm, toolLexicon) ||
		quantifiedPattern.MatchString(original) ||
		yearPattern.MatchString(original)
}

func describesProcess(norm, original string) bool {
	if len(numberedListLine.FindAllString(original, 2)) >= 2 {
		return true
	}
	return countMatches(norm, processPhrases) >= 2
}

func onTopic(norm, original string, st stage.Stage, cfg HeuristicConfig) bool {
	words := contentWords(original)
	hits := 0
	for _, w := range words {
		if matchesStem(w, stageTopics[st]) || matchesStem(w, sharedTopics) {
			hits++
		}
	}
	if hits == 0 && matchAny(norm, topicShiftPhrases) {
		return false
	}
	if len(words) < cfg.MinContentWords {
		return true
	}
	return float64(hits)/float64(len(words)) >= cfg.OffTopicThreshold
}

func matchesStem(word string, stems []string) bool {
	for _, s := range stems {
		if stemMatch(word, s) {
			return true
		}
	}
	return false
}

// classifySignal detects explicit recovery triggers. Resistance wins over
// confusion when both are present.
func classifySignal(norm string) Signal {
	if matchAny(norm, resistancePhrases) {
		return SignalResistance
	}
	if matchAny(norm, confusionPhrases) {
		return SignalConfusion
	}
	return SignalNone
}

// EngagementFor derives the per-response engagement signal.
func EngagementFor(c ClassifiedResponse) Engagement {
	switch {
	case c.Rich():
		return EngagementHigh
	case c.Length == LengthShort:
		return EngagementLow
	default:
		return EngagementMedium
	}
}

// #endregion
