// Package feature builds the hand-engineered per-note inputs of the time
// axis: pitch position, pitch class, pitch class bins, the causal note shift
// and the cyclical beat encoding.
package feature

import (
	"math"

	"github.com/jsphweid/deepj/constants"
	"github.com/jsphweid/deepj/layer"
	"github.com/pkg/errors"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// PitchPosition is (batch, steps, NumNotes, 1) holding i/NumNotes for note i.
func PitchPosition(batch, steps int, dims constants.Dims) *tensor.Dense {
	data := make([]float32, 0, batch*steps*dims.NumNotes)
	for r := 0; r < batch*steps; r++ {
		for n := 0; n < dims.NumNotes; n++ {
			data = append(data, float32(n)/float32(dims.NumNotes))
		}
	}
	return tensor.New(tensor.WithShape(batch, steps, dims.NumNotes, 1), tensor.WithBacking(data))
}

// PitchClass is (batch, steps, NumNotes, Octave), a one-hot of i mod Octave.
func PitchClass(batch, steps int, dims constants.Dims) *tensor.Dense {
	width := dims.NumNotes * dims.Octave
	data := make([]float32, batch*steps*width)
	for r := 0; r < batch*steps; r++ {
		for n := 0; n < dims.NumNotes; n++ {
			data[r*width+n*dims.Octave+n%dims.Octave] = 1
		}
	}
	return tensor.New(tensor.WithShape(batch, steps, dims.NumNotes, dims.Octave), tensor.WithBacking(data))
}

// SameClass is the (NumNotes, NumNotes) matrix with a 1 wherever two notes
// share a pitch class.
func SameClass(dims constants.Dims) *tensor.Dense {
	n := dims.NumNotes
	data := make([]float32, n*n)
	for i := 0; i < n; i++ {
		for j := i % dims.Octave; j < n; j += dims.Octave {
			data[i*n+j] = 1
		}
	}
	return tensor.New(tensor.WithShape(n, n), tensor.WithBacking(data))
}

// PitchBins sums the played channel of notes (B, T, N, 2) over every note
// sharing a pitch class and gives each note the total of its own class,
// shaped (B, T, N, 1).
func PitchBins(s *layer.Scope, notes *G.Node, dims constants.Dims) (*G.Node, error) {
	shp := notes.Shape()
	if len(shp) != 4 || shp[2] != dims.NumNotes {
		return nil, errors.Errorf("pitch bins: want (B, T, %d, C), got %v", dims.NumNotes, shp)
	}
	b, t := shp[0], shp[1]

	played, err := layer.SliceAxis(notes, 3, 0, 1)
	if err != nil {
		return nil, err
	}
	if played, err = G.Reshape(played, tensor.Shape{b * t, dims.NumNotes}); err != nil {
		return nil, errors.Wrap(err, "pitch bins: flatten")
	}
	// one row per step, so no reduction runs over an inner axis
	bins, err := G.Mul(played, s.Const("same_class", SameClass(dims)))
	if err != nil {
		return nil, errors.Wrap(err, "pitch bins: sum classes")
	}
	bins, err = G.Reshape(bins, tensor.Shape{b, t, dims.NumNotes, 1})
	return bins, errors.Wrap(err, "pitch bins: reshape")
}

// ShiftNotes moves x (B, T, N, C) one position up the note axis: note 0
// becomes zero and note i takes the value of note i-1. Conditioning on the
// result never exposes a note's own state or that of any higher note.
func ShiftNotes(s *layer.Scope, x *G.Node) (*G.Node, error) {
	shp := x.Shape()
	if len(shp) != 4 {
		return nil, errors.Errorf("shift: want rank 4 input, got %v", shp)
	}
	pad := s.Zeros("shift_pad", shp[0], shp[1], 1, shp[3])
	if shp[2] == 1 {
		return pad, nil
	}

	lower, err := layer.SliceAxis(x, 2, 0, shp[2]-1)
	if err != nil {
		return nil, err
	}
	out, err := G.Concat(2, pad, lower)
	return out, errors.Wrap(err, "shift: concat")
}

// Beat encodes the position of step within a bar as a point on the unit
// circle.
func Beat(step, notesPerBar int) [2]float32 {
	phase := 2 * math.Pi * float64(step%notesPerBar) / float64(notesPerBar)
	return [2]float32{float32(math.Sin(phase)), float32(math.Cos(phase))}
}

// BeatWindow fills (steps, 2) beat encodings starting at step start.
func BeatWindow(start, steps, notesPerBar int) []float32 {
	data := make([]float32, 0, steps*2)
	for t := start; t < start+steps; t++ {
		b := Beat(t, notesPerBar)
		data = append(data, b[0], b[1])
	}
	return data
}
