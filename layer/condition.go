package layer

import (
	"github.com/pkg/errors"
	G "gorgonia.org/gorgonia"
)

// Condition adds a style bias to x. The style embedding (B, T, S) is
// projected to the feature width of x (B, T, N, F), squashed with tanh,
// dropped out and broadcast over the note axis before the addition. Both
// axis stacks call this before each of their recurrent layers.
func Condition(s *Scope, x, style *G.Node, dropout float64) (*G.Node, error) {
	shp := x.Shape()
	if len(shp) != 4 {
		return nil, errors.Errorf("condition %v: want rank 4 input, got %v", s.prefix, shp)
	}

	proj, err := Dense(s, style, shp[3], Tanh)
	if err != nil {
		return nil, err
	}
	if proj, err = s.Dropout(proj, dropout); err != nil {
		return nil, err
	}
	if proj, err = InsertAxis(proj, 2); err != nil {
		return nil, err
	}
	if proj, err = Repeat(proj, 2, shp[2]); err != nil {
		return nil, err
	}

	out, err := G.Add(x, proj)
	return out, errors.Wrapf(err, "condition %v", s.prefix)
}
