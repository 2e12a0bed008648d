package aggregator

import "presenter-clips-go/internal/types"

type LabelStats struct {
	Speaker   string `json:"speaker"`
	Segments  int    `json:"segments"`
	TotalMs   int64  `json:"total_ms"`
	LongestMs int64  `json:"longest_ms"`
}

type Insight struct {
	Turns      int                               `json:"turns"`
	Speakers   int                               `json:"speakers"`
	Presenters int                               `json:"presenters"`
	Segments   int                               `json:"segments"`
	TotalMs    int64                             `json:"total_ms"`
	ByLabel    map[types.SpeakerLabel]LabelStats `json:"by_label"`
}

func Aggregate(turns []types.Turn, presenters []types.SpeakerID, segments []types.Segment) Insight {
	speakers := map[types.SpeakerID]bool{}
	for _, t := range turns {
		speakers[t.Speaker] = true
	}
	byLabel := map[types.SpeakerLabel]LabelStats{}
	var total int64
	for _, s := range segments {
		d := s.Duration()
		st := byLabel[s.Label]
		st.Speaker = s.Speaker.String()
		st.Segments++
		st.TotalMs += d
		if d > st.LongestMs {
			st.LongestMs = d
		}
		byLabel[s.Label] = st
		total += d
	}
	return Insight{
		Turns:      len(turns),
		Speakers:   len(speakers),
		Presenters: len(presenters),
		Segments:   len(segments),
		TotalMs:    total,
		ByLabel:    byLabel,
	}
}

// Merge sums insights across recordings. Label stats are not comparable
// across recordings and are dropped.
func Merge(ins []Insight) Insight {
	var out Insight
	for _, in := range ins {
		out.Turns += in.Turns
		out.Speakers += in.Speakers
		out.Presenters += in.Presenters
		out.Segments += in.Segments
		out.TotalMs += in.TotalMs
	}
	return out
}
