// Package chord reads generated piano rolls as chords: the MIDI notes held
// at each time step.
package chord

import (
	"fmt"
	"sort"

	"github.com/jsphweid/deepj/constants"
	"github.com/jsphweid/deepj/model"
)

// Chord is the set of notes played at one step of a composition.
type Chord struct {
	Step  int
	Notes []uint8
	// Onset is true when at least one of the notes was articulated at Step.
	Onset bool
}

func CreateChordKey(notes []uint8) string {
	sorted := append([]uint8(nil), notes...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i] < sorted[j]
	})
	var res string
	for i, note := range sorted {
		res += fmt.Sprintf("%v", note)
		if i < len(sorted)-1 {
			res += "-"
		}
	}
	return res
}

// FromStep returns the played notes of one step as MIDI numbers, lowest first.
func FromStep(step []model.NoteState) (notes []uint8, onset bool) {
	for n, s := range step {
		if !s.Played {
			continue
		}
		notes = append(notes, uint8(constants.MinNote+n))
		onset = onset || s.Articulated
	}
	return notes, onset
}

// GetChords returns one chord per non silent step of comp.
func GetChords(comp model.Composition) []Chord {
	var chords []Chord
	for t, step := range comp.Steps {
		notes, onset := FromStep(step)
		if len(notes) == 0 {
			continue
		}
		chords = append(chords, Chord{Step: t, Notes: notes, Onset: onset})
	}
	return chords
}

// Count tallies how often each chord key starts in comp. A chord held over
// several steps without a new onset counts once.
func Count(comp model.Composition) map[string]int {
	res := make(map[string]int)
	var prev string
	for _, c := range GetChords(comp) {
		key := CreateChordKey(c.Notes)
		if key == prev && !c.Onset {
			continue
		}
		res[key]++
		prev = key
	}
	return res
}
