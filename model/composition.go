package model

type NoteState struct {
	Played      bool `json:"played"`
	Articulated bool `json:"articulated"`
}

// Composition is a generated piano roll. Steps[t][n] is the state of note n
// (relative to constants.MinNote) at time step t.
type Composition struct {
	Style []float32     `json:"style"`
	Steps [][]NoteState `json:"steps"`
}

func (c Composition) NumPlayed() int {
	var total int
	for _, step := range c.Steps {
		for _, n := range step {
			if n.Played {
				total++
			}
		}
	}
	return total
}
