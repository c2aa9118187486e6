package render

// #region imports
import (
	"context"
	"fmt"

	"github.com/evstrateg/ai-interviewer-bot-sub001/internal/classify"
	"github.com/evstrateg/ai-interviewer-bot-sub001/internal/controller"
	"github.com/evstrateg/ai-interviewer-bot-sub001/internal/locale"
	"github.com/evstrateg/ai-interviewer-bot-sub001/internal/stage"
)

// #endregion

// #region version

// Version names a prompt template generation. A session keeps the version
// it started with.
type Version string

const (
	V1Master           Version = "v1_master"
	V2Telegram         Version = "v2_telegram"
	V3Conversational   Version = "v3_conversational"
	V4StageSpecific    Version = "v4_stage_specific"
	V5ConversationMgmt Version = "v5_conversation_mgmt"
)

// DefaultVersion is the production template set.
const DefaultVersion = V5ConversationMgmt

// Versions lists every known template version.
var Versions = []Version{V1Master, V2Telegram, V3Conversational, V4StageSpecific, V5ConversationMgmt}

// ParseVersion validates a configured version name.
func ParseVersion(s string) (Version, error) {
	for _, v := range Versions {
		if string(v) == s {
			return v, nil
		}
	}
	return "", fmt.Errorf("unknown prompt version %q", s)
}

// #endregion

// #region style

// Style is the set of presentation switches a version turns on.
type Style struct {
	Heading bool // stage heading and the full transition notice
	Pace    bool // pace line for high or low engagement
	Warm    bool // extra appreciation on rich answers
	Polish  bool // pass questions through the generator when one is set
}

var styles = map[Version]Style{
	V1Master:           {Heading: true, Polish: true},
	V2Telegram:         {},
	V3Conversational:   {Warm: true, Polish: true},
	V4StageSpecific:    {Heading: true, Warm: true, Polish: true},
	V5ConversationMgmt: {Heading: true, Pace: true, Warm: true, Polish: true},
}

// StyleOf returns the style for v, or the default version's style.
func StyleOf(v Version) Style {
	if s, ok := styles[v]; ok {
		return s
	}
	return styles[DefaultVersion]
}

// #endregion

// #region request

// Request is everything needed to phrase one directive.
type Request struct {
	Directive controller.Directive
	Language  locale.Language
	Version   Version
	// Scores holds final per-stage completeness, used by the END summary.
	Scores map[stage.Stage]int
}

// StatusView is the progress snapshot shown by the status report.
type StatusView struct {
	Stage        stage.Stage
	Depth        int
	Completeness int
	Engagement   classify.Engagement
	Examples     int
	Minutes      int
	Scores       map[stage.Stage]int
	Terminated   bool
}

// #endregion

// #region interfaces

// Generator rewrites a drafted message with a language model.
type Generator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}

// #endregion
