package logging

import (
	"time"

	"github.com/evstrateg/ai-interviewer-bot-sub001/internal/classify"
	"github.com/evstrateg/ai-interviewer-bot-sub001/internal/controller"
	"github.com/evstrateg/ai-interviewer-bot-sub001/internal/stage"
)

// #region turn-entry
// TurnEntry is a single row in the turn_log table.
type TurnEntry struct {
	SessionID   string
	Turn        int
	TriggerType string // "turn" | "fallback"
	RecordJSON  string
	Decision    string // directive kind
	Reason      string
	CreatedAt   time.Time
}
// #endregion turn-entry

// #region turn-record
// TurnRecord captures everything the controller saw and decided on one
// turn. Serialized as JSON into turn_log.record_json so a session can be
// replayed through the controller and compared directive by directive.
type TurnRecord struct {
	TurnID    string `json:"turn_id"`
	SessionID string `json:"session_id"`
	Turn      int    `json:"turn"`
	Text      string `json:"text,omitempty"`

	// Controller input
	StageBefore stage.Stage                 `json:"stage_before"`
	DepthBefore int                         `json:"depth_before"`
	Classified  classify.ClassifiedResponse `json:"classified"`

	// Classifier health
	Fallback        bool   `json:"fallback,omitempty"`
	ClassifierError string `json:"classifier_error,omitempty"`

	// Controller output
	Directive controller.Directive `json:"directive"`
}
// #endregion turn-record
