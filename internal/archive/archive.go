// Package archive stores finished interviews as JSON documents.
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"path"
	"time"

	"github.com/evstrateg/ai-interviewer-bot-sub001/internal/session"
	"github.com/evstrateg/ai-interviewer-bot-sub001/internal/stage"
)

// Reasons a session is archived.
const (
	ReasonCompleted = "completed"
	ReasonExpired   = "expired"
	ReasonManual    = "manual"
)

// Archiver persists a finished interview and returns where it went.
type Archiver interface {
	Archive(ctx context.Context, doc Document) (string, error)
}

// StageSummary is the outcome of one stage.
type StageSummary struct {
	Stage        stage.Stage       `json:"stage"`
	Completeness int               `json:"completeness"`
	Insights     *session.Insights `json:"insights,omitempty"`
}

// Document is the archived form of a session.
type Document struct {
	SessionID       string            `json:"session_id"`
	UserID          string            `json:"user_id"`
	Language        string            `json:"language"`
	PromptVersion   string            `json:"prompt_version"`
	Reason          string            `json:"reason"`
	StartedAt       time.Time         `json:"started_at"`
	ArchivedAt      time.Time         `json:"archived_at"`
	DurationMinutes int               `json:"duration_minutes"`
	Turns           int               `json:"turns"`
	TotalExamples   int               `json:"total_examples"`
	Stages          []StageSummary    `json:"stages"`
	Messages        []session.Message `json:"messages,omitempty"`
}

// Build assembles the archive document of sess. Stages the interview never
// reached are listed with completeness 0; the active stage reports its live
// score unless the interview already recorded a final one.
func Build(sess *session.Session, msgs []session.Message, reason string, now time.Time) Document {
	now = now.UTC()
	doc := Document{
		SessionID:       sess.ID,
		UserID:          sess.UserID,
		Language:        string(sess.Language),
		PromptVersion:   string(sess.PromptVersion),
		Reason:          reason,
		StartedAt:       sess.CreatedAt,
		ArchivedAt:      now,
		DurationMinutes: int(math.Round(now.Sub(sess.CreatedAt).Minutes())),
		Turns:           sess.Turn,
		TotalExamples:   sess.ExampleCount(),
		Messages:        msgs,
	}
	for _, st := range stage.Order {
		score, ok := sess.Scores[st]
		if !ok && st == sess.Stage {
			score = sess.Completeness()
		}
		doc.Stages = append(doc.Stages, StageSummary{
			Stage:        st,
			Completeness: score,
			Insights:     sess.Insights[st],
		})
	}
	return doc
}

// ObjectKey is the relative location of doc: <reason>/<yyyy>/<mm>/<dd>/<session>.json.
func ObjectKey(doc Document) string {
	return path.Join(doc.Reason, doc.ArchivedAt.Format("2006/01/02"), doc.SessionID+".json")
}

func encode(doc Document) ([]byte, error) {
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal archive %s: %w", doc.SessionID, err)
	}
	return b, nil
}
