package actionable

import (
	"fmt"

	"presenter-clips-go/internal/aggregator"
)

// MaxExpectedPresenters: more than this usually means a long non-presenter
// turn (misattributed silence, a long analyst question) promoted a speaker.
const MaxExpectedPresenters = 4

type ActionCard struct {
	Insight string `json:"insight"`
	Action  string `json:"action"`
	Impact  string `json:"impact"`
}

// Generate reviews a recording's selection outcome.
func Generate(ins aggregator.Insight) ActionCard {
	switch {
	case ins.Turns == 0:
		return ActionCard{
			Insight: "Transcript has no words",
			Action:  "Check the source audio and the transcription job",
			Impact:  "No clips produced",
		}
	case ins.Presenters == 0:
		return ActionCard{
			Insight: fmt.Sprintf("No presenter among %d speakers", ins.Speakers),
			Action:  "Check diarization or lower selection.presentation_threshold_ms",
			Impact:  "No clips produced",
		}
	case ins.Presenters > MaxExpectedPresenters:
		return ActionCard{
			Insight: fmt.Sprintf("%d presenters detected among %d speakers", ins.Presenters, ins.Speakers),
			Action:  "Review the long turns; a moderator or analyst may be classified as presenter",
			Impact:  "Clips may include non-presenter speech",
		}
	case ins.Segments == 0:
		return ActionCard{
			Insight: fmt.Sprintf("%d presenter(s) but no Q&A answers above the clip minimum", ins.Presenters),
			Action:  "Recording may have no Q&A session",
			Impact:  "No clips produced",
		}
	}
	return ActionCard{
		Insight: fmt.Sprintf("%d clips from %d presenter(s)", ins.Segments, ins.Presenters),
		Action:  "None",
		Impact:  "Ready for review",
	}
}
