package segmenter

import "presenter-clips-go/internal/types"

// Presenters returns the speakers with at least one presentation turn, in
// order of first appearance.
func Presenters(turns []types.Turn, p Policy) []types.SpeakerID {
	if p == nil {
		p = DefaultPolicy()
	}
	seen := map[types.SpeakerID]bool{}
	var out []types.SpeakerID
	for _, t := range turns {
		if seen[t.Speaker] || !p.IsPresentationTurn(t.Duration()) {
			continue
		}
		seen[t.Speaker] = true
		out = append(out, t.Speaker)
	}
	return out
}

// SelectSegments keeps the presenters' Q&A turns and labels them.
//
// Non-presenters contribute nothing, and a presenter's presentation turns
// are never clipped. Segments come back in transcript order; labels go to
// speakers in order of their first selected segment, and Index counts
// segments per label starting at 1.
func SelectSegments(turns []types.Turn, p Policy) []types.Segment {
	if p == nil {
		p = DefaultPolicy()
	}
	presenter := map[types.SpeakerID]bool{}
	for _, sp := range Presenters(turns, p) {
		presenter[sp] = true
	}

	labels := map[types.SpeakerID]types.SpeakerLabel{}
	counts := map[types.SpeakerLabel]int{}
	segments := []types.Segment{}
	for _, t := range turns {
		if !presenter[t.Speaker] || !p.IsExtractable(t.Duration()) {
			continue
		}
		label, ok := labels[t.Speaker]
		if !ok {
			label = types.LabelFor(len(labels))
			labels[t.Speaker] = label
		}
		counts[label]++
		segments = append(segments, types.Segment{Turn: t, Label: label, Index: counts[label]})
	}
	return segments
}

// Segment runs merge and selection over a word stream.
func Segment(words []types.Word, p Policy) []types.Segment {
	return SelectSegments(MergeWords(words), p)
}
