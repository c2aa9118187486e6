package interview

// #region imports
import (
	"sync/atomic"

	"github.com/evstrateg/ai-interviewer-bot-sub001/internal/classify"
	"github.com/evstrateg/ai-interviewer-bot-sub001/internal/controller"
	"github.com/evstrateg/ai-interviewer-bot-sub001/internal/stage"
)

// #endregion

// #region input

// StartInput opens a session.
type StartInput struct {
	UserID string
	// Locale is an optional client locale tag such as "ru-RU".
	Locale string
	// Language forces the session language when set.
	Language string
	// Version pins a prompt version other than the configured default.
	Version string
}

// TurnInput is one user message.
type TurnInput struct {
	SessionID string
	Text      string
	Locale    string
}

// #endregion

// #region output

// Metadata is the per-turn progress block of the output.
type Metadata struct {
	QuestionDepth   int                 `json:"question_depth"`
	Completeness    int                 `json:"completeness"`
	EngagementLevel classify.Engagement `json:"engagement_level"`
}

// InternalNotes is only included in the extended output.
type InternalNotes struct {
	KeyInsights     []string `json:"key_insights"`
	FollowUpNeeded  []string `json:"follow_up_needed"`
	RespondentState string   `json:"respondent_state"`
}

// TurnOutput is what the interviewer says back.
type TurnOutput struct {
	InterviewStage stage.Stage    `json:"interview_stage"`
	Response       string         `json:"response"`
	Metadata       Metadata       `json:"metadata"`
	InternalNotes  *InternalNotes `json:"internal_notes,omitempty"`

	SessionID string               `json:"-"`
	Directive controller.Directive `json:"-"`
	Done      bool                 `json:"-"`
}

// #endregion

// #region metrics

// Metrics counts service activity. Safe for concurrent use.
type Metrics struct {
	sessionsStarted   atomic.Int64
	sessionsCompleted atomic.Int64
	messagesProcessed atomic.Int64
	errorsOccurred    atomic.Int64
	classifierCalls   atomic.Int64
	classifierErrors  atomic.Int64
	sessionsExpired   atomic.Int64
}

// MetricsSnapshot is a point-in-time copy of Metrics.
type MetricsSnapshot struct {
	SessionsStarted   int64 `json:"sessions_started"`
	SessionsCompleted int64 `json:"sessions_completed"`
	MessagesProcessed int64 `json:"messages_processed"`
	ErrorsOccurred    int64 `json:"errors_occurred"`
	ClassifierCalls   int64 `json:"classifier_calls"`
	ClassifierErrors  int64 `json:"classifier_errors"`
	SessionsExpired   int64 `json:"sessions_expired"`
}

// Snapshot reads every counter.
func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		SessionsStarted:   m.sessionsStarted.Load(),
		SessionsCompleted: m.sessionsCompleted.Load(),
		MessagesProcessed: m.messagesProcessed.Load(),
		ErrorsOccurred:    m.errorsOccurred.Load(),
		ClassifierCalls:   m.classifierCalls.Load(),
		ClassifierErrors:  m.classifierErrors.Load(),
		SessionsExpired:   m.sessionsExpired.Load(),
	}
}

// #endregion
