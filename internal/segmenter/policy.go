package segmenter

const (
	// PresentationThresholdMs: a turn longer than this is a presentation turn.
	PresentationThresholdMs int64 = 90000
	// MinClipMs: a turn must be longer than this to be worth a clip.
	MinClipMs int64 = 3000
)

// Policy decides which turns mark a presenter and which turns are clipped.
type Policy interface {
	IsPresentationTurn(durationMs int64) bool
	IsExtractable(durationMs int64) bool
}

// ThresholdPolicy is the duration-threshold policy. Both bounds are exclusive.
type ThresholdPolicy struct {
	PresentationThresholdMs int64
	MinClipMs               int64
}

func DefaultPolicy() ThresholdPolicy {
	return ThresholdPolicy{
		PresentationThresholdMs: PresentationThresholdMs,
		MinClipMs:               MinClipMs,
	}
}

func (p ThresholdPolicy) IsPresentationTurn(d int64) bool {
	return d > p.PresentationThresholdMs
}

// IsExtractable is true for Q&A-length turns: shorter than a presentation,
// longer than the clip minimum. A turn of exactly the threshold is neither.
func (p ThresholdPolicy) IsExtractable(d int64) bool {
	return d < p.PresentationThresholdMs && d > p.MinClipMs
}
