package layer

import (
	"github.com/jsphweid/deepj/weights"
	"github.com/pkg/errors"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// LSTM runs a single-direction LSTM along axis (1 or 2) of a rank 4 tensor
// and returns every hidden state, shaped like x with the last axis set to
// units. The two remaining leading axes are independent sequences sharing
// weights. The state always starts at zero; nothing is carried between calls.
//
// Gates are laid out as [input, forget, cell, output]. The graph is unrolled,
// one set of nodes per step.
func LSTM(s *Scope, x *G.Node, axis, units int) (*G.Node, error) {
	shp := x.Shape().Clone()
	if len(shp) != 4 || axis < 1 || axis > 2 {
		return nil, errors.Errorf("lstm %v: want rank 4 input and axis 1 or 2, got %v axis %d", s.prefix, shp, axis)
	}
	feat := shp[3]
	steps := shp[axis]
	rows := shp[0] * shp[1] * shp[2] / steps

	wx, err := s.Param("kernel", weights.GlorotUniform, feat, 4*units)
	if err != nil {
		return nil, err
	}
	wh, err := s.Param("recurrent", weights.GlorotUniform, units, 4*units)
	if err != nil {
		return nil, err
	}
	bias, err := s.Param("bias", weights.ForgetBias(units), 1, 4*units)
	if err != nil {
		return nil, err
	}

	// input projections for every step at once
	flat, err := G.Reshape(x, tensor.Shape{shp.TotalSize() / feat, feat})
	if err != nil {
		return nil, errors.Wrapf(err, "lstm %v: flatten", s.prefix)
	}
	proj, err := G.Mul(flat, wx)
	if err != nil {
		return nil, errors.Wrapf(err, "lstm %v: input projection", s.prefix)
	}
	if proj, err = G.BroadcastAdd(proj, bias, nil, []byte{0}); err != nil {
		return nil, errors.Wrapf(err, "lstm %v: bias", s.prefix)
	}
	projShape := shp.Clone()
	projShape[3] = 4 * units
	if proj, err = G.Reshape(proj, projShape); err != nil {
		return nil, errors.Wrapf(err, "lstm %v: unflatten", s.prefix)
	}

	outShape := shp.Clone()
	outShape[axis] = 1
	outShape[3] = units

	var h, c *G.Node
	outs := make([]*G.Node, steps)
	for i := 0; i < steps; i++ {
		z, err := SliceAxis(proj, axis, i, i+1)
		if err != nil {
			return nil, err
		}
		if z, err = G.Reshape(z, tensor.Shape{rows, 4 * units}); err != nil {
			return nil, errors.Wrapf(err, "lstm %v: step %d", s.prefix, i)
		}
		if h != nil {
			hz, err := G.Mul(h, wh)
			if err != nil {
				return nil, errors.Wrapf(err, "lstm %v: recurrent projection", s.prefix)
			}
			if z, err = G.Add(z, hz); err != nil {
				return nil, errors.Wrapf(err, "lstm %v: step %d", s.prefix, i)
			}
		}

		if h, c, err = lstmCell(z, c, units); err != nil {
			return nil, errors.Wrapf(err, "lstm %v: step %d", s.prefix, i)
		}
		if outs[i], err = G.Reshape(h, outShape); err != nil {
			return nil, errors.Wrapf(err, "lstm %v: step %d", s.prefix, i)
		}
	}

	if steps == 1 {
		return outs[0], nil
	}
	out, err := G.Concat(axis, outs...)
	return out, errors.Wrapf(err, "lstm %v: stack", s.prefix)
}

// lstmCell turns the pre-activations z (rows, 4*units) and the previous cell
// state into the next hidden and cell state. A nil c is the zero state.
func lstmCell(z, c *G.Node, units int) (h, next *G.Node, err error) {
	gate := func(i int, act Activation) (*G.Node, error) {
		g, err := SliceAxis(z, 1, i*units, (i+1)*units)
		if err != nil {
			return nil, err
		}
		return act(g)
	}

	in, err := gate(0, Sigmoid)
	if err != nil {
		return nil, nil, err
	}
	cell, err := gate(2, Tanh)
	if err != nil {
		return nil, nil, err
	}
	out, err := gate(3, Sigmoid)
	if err != nil {
		return nil, nil, err
	}

	if next, err = G.HadamardProd(in, cell); err != nil {
		return nil, nil, err
	}
	if c != nil {
		forget, err := gate(1, Sigmoid)
		if err != nil {
			return nil, nil, err
		}
		kept, err := G.HadamardProd(forget, c)
		if err != nil {
			return nil, nil, err
		}
		if next, err = G.Add(kept, next); err != nil {
			return nil, nil, err
		}
	}

	squashed, err := G.Tanh(next)
	if err != nil {
		return nil, nil, err
	}
	h, err = G.HadamardProd(out, squashed)
	return h, next, err
}
