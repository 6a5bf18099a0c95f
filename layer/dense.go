package layer

import (
	"github.com/jsphweid/deepj/weights"
	"github.com/pkg/errors"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Dense projects the last axis of x to units, whatever the rank of x.
func Dense(s *Scope, x *G.Node, units int, act Activation) (*G.Node, error) {
	shp := x.Shape().Clone()
	in := shp[len(shp)-1]
	rows := shp.TotalSize() / in

	w, err := s.Param("w", weights.GlorotUniform, in, units)
	if err != nil {
		return nil, err
	}
	b, err := s.Param("b", weights.Zeros, 1, units)
	if err != nil {
		return nil, err
	}

	flat := x
	if len(shp) != 2 {
		if flat, err = G.Reshape(x, tensor.Shape{rows, in}); err != nil {
			return nil, errors.Wrapf(err, "dense %v: flatten", s.prefix)
		}
	}
	y, err := G.Mul(flat, w)
	if err != nil {
		return nil, errors.Wrapf(err, "dense %v: matmul", s.prefix)
	}
	if y, err = G.BroadcastAdd(y, b, nil, []byte{0}); err != nil {
		return nil, errors.Wrapf(err, "dense %v: bias", s.prefix)
	}

	if len(shp) != 2 {
		shp[len(shp)-1] = units
		if y, err = G.Reshape(y, shp); err != nil {
			return nil, errors.Wrapf(err, "dense %v: unflatten", s.prefix)
		}
	}
	if act == nil {
		return y, nil
	}
	y, err = act(y)
	return y, errors.Wrapf(err, "dense %v: activation", s.prefix)
}
