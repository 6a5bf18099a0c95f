package model

import (
	"github.com/jsphweid/deepj/constants"
	"github.com/pkg/errors"
)

// Batch holds the four model inputs as flat row-major tensors.
//
//	Notes, Chosen, Target: (Size, Steps, NumNotes, 2)
//	Beat:                  (Size, Steps, 2)
//	Style:                 (Size, Steps, NumStyles)
//
// Channel 0 of a note is "played", channel 1 is "articulated".
// Target is only needed to compute a loss.
type Batch struct {
	Size   int       `json:"size"`
	Steps  int       `json:"steps"`
	Notes  []float32 `json:"notes"`
	Beat   []float32 `json:"beat"`
	Style  []float32 `json:"style"`
	Chosen []float32 `json:"chosen"`
	Target []float32 `json:"target,omitempty"`
}

func NewBatch(size, steps int, dims constants.Dims) Batch {
	noteLen := size * steps * dims.NumNotes * 2
	return Batch{
		Size:   size,
		Steps:  steps,
		Notes:  make([]float32, noteLen),
		Beat:   make([]float32, size*steps*2),
		Style:  make([]float32, size*steps*dims.NumStyles),
		Chosen: make([]float32, noteLen),
	}
}

// NoteIndex is the flat offset of (b, t, n, channel) in Notes, Chosen or Target.
func NoteIndex(dims constants.Dims, steps, b, t, n, channel int) int {
	return ((b*steps+t)*dims.NumNotes+n)*2 + channel
}

func (b Batch) Validate(dims constants.Dims) error {
	if b.Size <= 0 || b.Steps <= 0 {
		return errors.Errorf("batch size and steps must be positive, got (%d, %d)", b.Size, b.Steps)
	}
	noteLen := b.Size * b.Steps * dims.NumNotes * 2
	fields := []struct {
		name string
		got  int
		want int
	}{
		{"notes", len(b.Notes), noteLen},
		{"beat", len(b.Beat), b.Size * b.Steps * 2},
		{"style", len(b.Style), b.Size * b.Steps * dims.NumStyles},
		{"chosen", len(b.Chosen), noteLen},
	}
	if b.Target != nil {
		fields = append(fields, struct {
			name string
			got  int
			want int
		}{"target", len(b.Target), noteLen})
	}
	for _, f := range fields {
		if f.got != f.want {
			return errors.Errorf("%s has %d values, want %d for shape (%d, %d)", f.name, f.got, f.want, b.Size, b.Steps)
		}
	}
	return nil
}

// Prediction holds the network outputs for one batch.
//
//	Notes:  (Size, Steps, NumNotes, 2), both channels in [0, 1]
//	Styles: (Size, Steps, NumStyles), nil unless the style head is enabled
type Prediction struct {
	Notes  []float32 `json:"notes"`
	Styles []float32 `json:"styles,omitempty"`
}
