package controller

import "github.com/evstrateg/ai-interviewer-bot-sub001/internal/classify"

// #region window

// pushWindow appends resp and keeps the last WindowSize responses.
func pushWindow(s *State, resp classify.ClassifiedResponse) {
	s.Window = append(s.Window, resp)
	if over := len(s.Window) - WindowSize; over > 0 {
		s.Window = append([]classify.ClassifiedResponse(nil), s.Window[over:]...)
	}
}

// #endregion

// #region engagement

// EngagementOf scores a window of recent responses: high when at least two
// are rich, low when at least two are short, medium otherwise.
func EngagementOf(window []classify.ClassifiedResponse) classify.Engagement {
	rich, short := 0, 0
	for _, r := range window {
		if r.Rich() {
			rich++
		}
		if r.Length == classify.LengthShort {
			short++
		}
	}
	switch {
	case rich >= 2:
		return classify.EngagementHigh
	case short >= 2:
		return classify.EngagementLow
	default:
		return classify.EngagementMedium
	}
}

// #endregion
