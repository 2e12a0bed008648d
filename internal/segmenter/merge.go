package segmenter

import "presenter-clips-go/internal/types"

// MergeWords folds adjacent same-speaker words into turns. A speaker that
// comes back later starts a new turn. Words are assumed start-ordered; on
// malformed input the result is best-effort (see ValidateWords).
func MergeWords(words []types.Word) []types.Turn {
	if len(words) == 0 {
		return []types.Turn{}
	}
	turns := make([]types.Turn, 0, 8)
	cur := types.Turn{Speaker: words[0].Speaker, Start: words[0].Start, End: words[0].End}
	for _, w := range words[1:] {
		if w.Speaker == cur.Speaker {
			cur.End = w.End
			continue
		}
		turns = append(turns, cur)
		cur = types.Turn{Speaker: w.Speaker, Start: w.Start, End: w.End}
	}
	return append(turns, cur)
}
