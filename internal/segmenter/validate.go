package segmenter

import (
	"fmt"

	"presenter-clips-go/internal/types"
)

// MalformedInputError reports the first word that breaks the input contract.
type MalformedInputError struct {
	Index  int
	Reason string
}

func (e *MalformedInputError) Error() string {
	return fmt.Sprintf("malformed word at index %d: %s", e.Index, e.Reason)
}

// ValidateWords checks that every word has start <= end and that words are
// ordered by start. Equal starts are allowed.
func ValidateWords(words []types.Word) error {
	for i, w := range words {
		if w.Start > w.End {
			return &MalformedInputError{Index: i, Reason: fmt.Sprintf("start %d after end %d", w.Start, w.End)}
		}
		if i > 0 && w.Start < words[i-1].Start {
			return &MalformedInputError{Index: i, Reason: fmt.Sprintf("start %d before previous start %d", w.Start, words[i-1].Start)}
		}
	}
	return nil
}
