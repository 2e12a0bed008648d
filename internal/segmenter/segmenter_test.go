package segmenter

import (
	"errors"
	"testing"

	"presenter-clips-go/internal/types"
)

var (
	spA = types.NewSpeakerID("A")
	spB = types.NewSpeakerID("B")
	spC = types.NewSpeakerID("C")
)

func w(sp types.SpeakerID, start, end int64) types.Word {
	return types.Word{Speaker: sp, Start: start, End: end}
}

func turn(sp types.SpeakerID, start, dur int64) types.Turn {
	return types.Turn{Speaker: sp, Start: start, End: start + dur}
}

func TestMergeWords_Empty(t *testing.T) {
	got := MergeWords(nil)
	if len(got) != 0 {
		t.Fatalf("expected no turns, got %v", got)
	}
}

func TestMergeWords_SingleWord(t *testing.T) {
	got := MergeWords([]types.Word{w(spA, 0, 1000)})
	if len(got) != 1 {
		t.Fatalf("expected 1 turn, got %d", len(got))
	}
	if got[0] != (types.Turn{Speaker: spA, Start: 0, End: 1000}) {
		t.Errorf("unexpected turn %+v", got[0])
	}
}

func TestMergeWords_EmptySpeakerToken(t *testing.T) {
	unknown := types.NewSpeakerID("")
	got := MergeWords([]types.Word{w(unknown, 0, 100), w(unknown, 100, 200)})
	if len(got) != 1 || got[0].End != 200 {
		t.Errorf("expected a single turn ending at 200, got %+v", got)
	}
}

func TestMergeWords_RunsAndReturningSpeaker(t *testing.T) {
	words := []types.Word{
		w(spA, 0, 100), w(spA, 120, 300),
		w(spB, 310, 500),
		w(spA, 520, 700), w(spA, 710, 900),
	}
	got := MergeWords(words)
	want := []types.Turn{
		{Speaker: spA, Start: 0, End: 300},
		{Speaker: spB, Start: 310, End: 500},
		{Speaker: spA, Start: 520, End: 900},
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d turns, got %d: %+v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("turn %d: expected %+v, got %+v", i, want[i], got[i])
		}
	}
}

func TestMergeWords_EndIsLastWordEnd(t *testing.T) {
	// the end follows the last merged word, not the running max
	got := MergeWords([]types.Word{w(spA, 0, 500), w(spA, 100, 200)})
	if got[0].End != 200 {
		t.Errorf("expected end 200, got %d", got[0].End)
	}
}

func TestMergeWords_Partition(t *testing.T) {
	words := []types.Word{
		w(spA, 0, 10), w(spB, 10, 20), w(spB, 20, 30), w(spC, 30, 40),
		w(spA, 40, 50), w(spA, 50, 60), w(spC, 60, 70),
	}
	turns := MergeWords(words)

	i := 0
	for ti, tr := range turns {
		if ti > 0 && turns[ti-1].Speaker == tr.Speaker {
			t.Errorf("turns %d and %d share speaker %s", ti-1, ti, tr.Speaker)
		}
		if words[i].Start != tr.Start {
			t.Errorf("turn %d starts at %d, expected %d", ti, tr.Start, words[i].Start)
		}
		for i < len(words) && words[i].Speaker == tr.Speaker {
			i++
		}
		if words[i-1].End != tr.End {
			t.Errorf("turn %d ends at %d, expected %d", ti, tr.End, words[i-1].End)
		}
	}
	if i != len(words) {
		t.Errorf("turns covered %d of %d words", i, len(words))
	}
}

func TestSelectSegments_Empty(t *testing.T) {
	if got := SelectSegments(nil, nil); len(got) != 0 {
		t.Errorf("expected no segments, got %v", got)
	}
}

func TestSelectSegments_OnlyPresentationTurn(t *testing.T) {
	got := SelectSegments([]types.Turn{turn(spA, 0, 120000)}, nil)
	if len(got) != 0 {
		t.Errorf("expected no segments, got %+v", got)
	}
}

func TestSelectSegments_PresenterAnswer(t *testing.T) {
	got := SelectSegments([]types.Turn{turn(spA, 0, 120000), turn(spA, 130000, 5000)}, nil)
	if len(got) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(got))
	}
	if got[0].Duration() != 5000 {
		t.Errorf("expected 5000ms segment, got %d", got[0].Duration())
	}
	if got[0].Label != "A" || got[0].Index != 1 {
		t.Errorf("expected Speaker_A_1, got %s", got[0].Name())
	}
}

func TestSelectSegments_NonPresenterExcluded(t *testing.T) {
	got := SelectSegments([]types.Turn{turn(spB, 0, 2000), turn(spB, 5000, 4000)}, nil)
	if len(got) != 0 {
		t.Errorf("expected no segments, got %+v", got)
	}
}

func TestSelectSegments_Boundaries(t *testing.T) {
	tests := []struct {
		name  string
		turns []types.Turn
		want  int
	}{
		{"exactly min clip", []types.Turn{turn(spA, 0, 100000), turn(spA, 200000, MinClipMs)}, 0},
		{"just over min clip", []types.Turn{turn(spA, 0, 100000), turn(spA, 200000, MinClipMs+1)}, 1},
		{"exactly threshold not extracted", []types.Turn{turn(spA, 0, 100000), turn(spA, 200000, PresentationThresholdMs)}, 0},
		{"exactly threshold is no presenter", []types.Turn{turn(spA, 0, PresentationThresholdMs), turn(spA, 200000, 5000)}, 0},
		{"just over threshold is presenter", []types.Turn{turn(spA, 0, PresentationThresholdMs+1), turn(spA, 200000, 5000)}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SelectSegments(tt.turns, nil)
			if len(got) != tt.want {
				t.Errorf("expected %d segments, got %d", tt.want, len(got))
			}
		})
	}
}

func TestSelectSegments_LabelOrder(t *testing.T) {
	p1, p2 := spA, spB
	turns := []types.Turn{
		turn(p1, 0, 100000),     // P1 presents first
		turn(p2, 100000, 95000), // P2 presents
		turn(spC, 195000, 8000), // analyst question
		turn(p2, 203000, 10000), // P2 answer
		turn(p1, 213000, 20000), // P1 answer
		turn(spC, 233000, 4000), // analyst
		turn(p2, 237000, 6000),  // P2 answer
		turn(p1, 243000, 2000),  // too short
	}
	got := SelectSegments(turns, nil)
	want := []struct {
		speaker types.SpeakerID
		name    string
	}{
		{p2, "Speaker_A_1"},
		{p1, "Speaker_B_1"},
		{p2, "Speaker_A_2"},
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d segments, got %d: %+v", len(want), len(got), got)
	}
	for i := range want {
		if got[i].Speaker != want[i].speaker || got[i].Name() != want[i].name {
			t.Errorf("segment %d: expected %s/%s, got %s/%s", i, want[i].speaker, want[i].name, got[i].Speaker, got[i].Name())
		}
	}
}

func TestSelectSegments_CustomPolicy(t *testing.T) {
	// every turn over a second is a presentation
	p := ThresholdPolicy{PresentationThresholdMs: 1000, MinClipMs: 0}
	got := SelectSegments([]types.Turn{turn(spA, 0, 2000), turn(spA, 3000, 500)}, p)
	if len(got) != 1 || got[0].Duration() != 500 {
		t.Errorf("expected the 500ms answer, got %+v", got)
	}
}

func TestPresenters(t *testing.T) {
	turns := []types.Turn{turn(spC, 0, 1000), turn(spB, 1000, 95000), turn(spA, 96000, 91000), turn(spB, 187000, 100000)}
	got := Presenters(turns, nil)
	if len(got) != 2 || got[0] != spB || got[1] != spA {
		t.Errorf("expected [B A], got %v", got)
	}
}

func TestSegment_EndToEnd(t *testing.T) {
	words := []types.Word{
		w(spA, 0, 50000), w(spA, 50000, 100000),
		w(spB, 100000, 104000),
		w(spA, 104000, 106000), w(spA, 106000, 110000),
	}
	got := Segment(words, nil)
	if len(got) != 1 || got[0].Start != 104000 || got[0].End != 110000 {
		t.Errorf("unexpected segments %+v", got)
	}
}

func TestLabelFor(t *testing.T) {
	tests := map[int]types.SpeakerLabel{0: "A", 1: "B", 25: "Z", 26: "AA", 27: "AB", 52: "BA"}
	for n, want := range tests {
		if got := types.LabelFor(n); got != want {
			t.Errorf("LabelFor(%d): expected %s, got %s", n, want, got)
		}
	}
}

func TestValidateWords(t *testing.T) {
	tests := []struct {
		name    string
		words   []types.Word
		wantErr bool
		index   int
	}{
		{"empty", nil, false, 0},
		{"ordered", []types.Word{w(spA, 0, 10), w(spB, 10, 20), w(spB, 10, 30)}, false, 0},
		{"start after end", []types.Word{w(spA, 0, 10), w(spA, 30, 20)}, true, 1},
		{"out of order", []types.Word{w(spA, 0, 10), w(spA, 20, 30), w(spB, 15, 40)}, true, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateWords(tt.words)
			if (err != nil) != tt.wantErr {
				t.Fatalf("expected error=%v, got %v", tt.wantErr, err)
			}
			if err == nil {
				return
			}
			var mie *MalformedInputError
			if !errors.As(err, &mie) {
				t.Fatalf("expected *MalformedInputError, got %T", err)
			}
			if mie.Index != tt.index {
				t.Errorf("expected index %d, got %d", tt.index, mie.Index)
			}
		})
	}
}
