package layer

import (
	"github.com/pkg/errors"
	G "gorgonia.org/gorgonia"
)

// Conv1D convolves a (B, T, N, C) tensor along its note axis with 'same'
// padding, independently for every time step. The kernel windows are
// gathered into the channel axis and projected by a single Dense.
func Conv1D(s *Scope, x *G.Node, filters, kernel int) (*G.Node, error) {
	shp := x.Shape()
	if len(shp) != 4 {
		return nil, errors.Errorf("conv %v: want rank 4 input, got %v", s.prefix, shp)
	}
	b, t, n, c := shp[0], shp[1], shp[2], shp[3]

	// same as TF 'same' padding: the extra cell of an even kernel goes right
	left := (kernel - 1) / 2
	right := kernel - 1 - left

	parts := make([]*G.Node, 0, 3)
	if left > 0 {
		parts = append(parts, s.Zeros("pad_left", b, t, left, c))
	}
	parts = append(parts, x)
	if right > 0 {
		parts = append(parts, s.Zeros("pad_right", b, t, right, c))
	}
	padded := x
	if len(parts) > 1 {
		var err error
		if padded, err = G.Concat(2, parts...); err != nil {
			return nil, errors.Wrapf(err, "conv %v: pad", s.prefix)
		}
	}

	windows := make([]*G.Node, kernel)
	for k := range windows {
		w, err := SliceAxis(padded, 2, k, k+n)
		if err != nil {
			return nil, errors.Wrapf(err, "conv %v: window %d", s.prefix, k)
		}
		windows[k] = w
	}
	cols := windows[0]
	if kernel > 1 {
		var err error
		if cols, err = G.Concat(3, windows...); err != nil {
			return nil, errors.Wrapf(err, "conv %v: gather", s.prefix)
		}
	}
	return Dense(s, cols, filters, nil)
}
