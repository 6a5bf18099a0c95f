package layer

import (
	"github.com/pkg/errors"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Activation is applied element-wise after a projection. A nil Activation
// leaves the projection linear.
type Activation func(*G.Node) (*G.Node, error)

var (
	Tanh    Activation = G.Tanh
	Sigmoid Activation = G.Sigmoid
)

// Repeat concatenates n copies of x along axis. x is expected to have size 1
// on that axis, which makes this a broadcast.
func Repeat(x *G.Node, axis, n int) (*G.Node, error) {
	if n == 1 {
		return x, nil
	}
	copies := make([]*G.Node, n)
	for i := range copies {
		copies[i] = x
	}
	out, err := G.Concat(axis, copies...)
	return out, errors.Wrapf(err, "repeat %v along axis %d", x.Shape(), axis)
}

// SliceAxis takes [from, to) along axis and reshapes the result back to full
// rank, so a length-1 slice keeps its axis.
func SliceAxis(x *G.Node, axis, from, to int) (*G.Node, error) {
	shp := x.Shape().Clone()
	slices := make([]tensor.Slice, len(shp))
	slices[axis] = G.S(from, to)
	out, err := G.Slice(x, slices...)
	if err != nil {
		return nil, errors.Wrapf(err, "slice [%d:%d] on axis %d of %v", from, to, axis, shp)
	}
	shp[axis] = to - from
	out, err = G.Reshape(out, shp)
	return out, errors.Wrap(err, "reshape slice")
}

// InsertAxis reshapes x to have a size 1 axis at position axis.
func InsertAxis(x *G.Node, axis int) (*G.Node, error) {
	shp := x.Shape()
	to := make(tensor.Shape, 0, len(shp)+1)
	to = append(to, shp[:axis]...)
	to = append(to, 1)
	to = append(to, shp[axis:]...)
	out, err := G.Reshape(x, to)
	return out, errors.Wrapf(err, "insert axis %d into %v", axis, shp)
}
