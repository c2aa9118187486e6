package classify

// #region imports
import (
	"context"

	"github.com/evstrateg/ai-interviewer-bot-sub001/internal/stage"
)

// #endregion

// #region length

// LengthBucket groups responses by word count.
type LengthBucket string

const (
	LengthShort  LengthBucket = "short"  // < 50 words
	LengthNormal LengthBucket = "normal" // 50..300 words
	LengthLong   LengthBucket = "long"   // > 300 words
)

const (
	shortBelow = 50
	longAbove  = 300
)

// BucketFor maps a word count onto its bucket. Both 50 and 300 are normal.
func BucketFor(words int) LengthBucket {
	switch {
	case words < shortBelow:
		return LengthShort
	case words > longAbove:
		return LengthLong
	default:
		return LengthNormal
	}
}

// #endregion

// #region specificity

// Specificity says whether a response carries concrete detail.
type Specificity string

const (
	SpecificityGeneric  Specificity = "generic"
	SpecificitySpecific Specificity = "specific"
)

// #endregion

// #region engagement

// Engagement is a coarse respondent energy level.
type Engagement string

const (
	EngagementHigh   Engagement = "high"
	EngagementMedium Engagement = "medium"
	EngagementLow    Engagement = "low"
)

// #endregion

// #region signal

// Signal flags an explicit recovery trigger in the response.
type Signal string

const (
	SignalNone       Signal = "none"
	SignalConfusion  Signal = "confusion"
	SignalResistance Signal = "resistance"
)

// #endregion

// #region classified-response

// ClassifiedResponse is the structured assessment of one utterance.
type ClassifiedResponse struct {
	WordCount        int          `json:"word_count"`
	Length           LengthBucket `json:"length"`
	Specificity      Specificity  `json:"specificity"`
	ContainsExample  bool         `json:"contains_example"`
	DescribesProcess bool         `json:"describes_process"`
	OnTopic          bool         `json:"on_topic"`
	Engagement       Engagement   `json:"engagement_signal"`
	Signal           Signal       `json:"signal"`
	ContradictsPrior bool         `json:"contradicts_prior,omitempty"`
	Fallback         bool         `json:"fallback,omitempty"`
}

// Rich reports a long, specific response that includes an example.
func (c ClassifiedResponse) Rich() bool {
	return c.Length == LengthLong && c.Specificity == SpecificitySpecific && c.ContainsExample
}

// Shallow reports a response that needs a deepening probe.
func (c ClassifiedResponse) Shallow() bool {
	return c.Length == LengthShort || c.Specificity == SpecificityGeneric
}

// FallbackResponse returns the conservative classification used when the
// classifier is unavailable: short, generic and on topic.
func FallbackResponse() ClassifiedResponse {
	return ClassifiedResponse{
		Length:      LengthShort,
		Specificity: SpecificityGeneric,
		OnTopic:     true,
		Engagement:  EngagementMedium,
		Signal:      SignalNone,
		Fallback:    true,
	}
}

// #endregion

// #region interfaces

// Classifier turns one utterance into a ClassifiedResponse. history holds
// earlier classifications for the same session, oldest first.
type Classifier interface {
	Classify(ctx context.Context, text string, st stage.Stage, history []ClassifiedResponse) (ClassifiedResponse, error)
}

// #endregion
