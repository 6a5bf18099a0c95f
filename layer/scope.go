// Package layer builds network stages as gorgonia graph fragments. Every
// parameter is fetched from a weights.Store under a scoped name so graphs
// built for different batch sizes or modes share one set of weights.
package layer

import (
	"strings"

	"github.com/jsphweid/deepj/weights"
	"github.com/pkg/errors"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Param ties a learnable graph node to its name in the store.
type Param struct {
	Name string
	Node *G.Node
}

type Scope struct {
	g        *G.ExprGraph
	store    *weights.Store
	training bool
	prefix   string
	params   *[]Param
}

// NewScope starts a root scope. When training is false dropout is skipped.
func NewScope(g *G.ExprGraph, store *weights.Store, training bool) *Scope {
	return &Scope{
		g:        g,
		store:    store,
		training: training,
		params:   new([]Param),
	}
}

func (s *Scope) Graph() *G.ExprGraph {
	return s.g
}

func (s *Scope) Training() bool {
	return s.training
}

// Sub returns a child scope whose names are prefixed with name.
func (s *Scope) Sub(name string) *Scope {
	child := *s
	child.prefix = s.name(name)
	return &child
}

func (s *Scope) name(name string) string {
	if s.prefix == "" {
		return name
	}
	return strings.Join([]string{s.prefix, name}, "/")
}

// Param binds a store parameter into the graph as a learnable node.
func (s *Scope) Param(name string, init weights.Init, shape ...int) (*G.Node, error) {
	full := s.name(name)
	t, err := s.store.Get(full, init, shape...)
	if err != nil {
		return nil, err
	}
	n := G.NewTensor(s.g, tensor.Float32, len(shape), G.WithShape(shape...), G.WithName(full), G.WithValue(t))
	*s.params = append(*s.params, Param{Name: full, Node: n})
	return n, nil
}

// Params lists every learnable node bound through this scope tree.
func (s *Scope) Params() []Param {
	return *s.params
}

func (s *Scope) Learnables() G.Nodes {
	nodes := make(G.Nodes, 0, len(*s.params))
	for _, p := range *s.params {
		nodes = append(nodes, p.Node)
	}
	return nodes
}

// Input declares a float32 placeholder to be bound with G.Let before a run.
func (s *Scope) Input(name string, shape ...int) *G.Node {
	return G.NewTensor(s.g, tensor.Float32, len(shape), G.WithShape(shape...), G.WithName(s.name(name)))
}

// Const binds a fixed, non-learnable tensor into the graph.
func (s *Scope) Const(name string, value *tensor.Dense) *G.Node {
	shape := value.Shape().Clone()
	return G.NewTensor(s.g, tensor.Float32, len(shape), G.WithShape(shape...), G.WithName(s.name(name)), G.WithValue(value))
}

func (s *Scope) Zeros(name string, shape ...int) *G.Node {
	value := tensor.New(tensor.WithShape(shape...), tensor.Of(tensor.Float32))
	return s.Const(name, value)
}

// Dropout is the identity outside of training or when rate is zero.
func (s *Scope) Dropout(x *G.Node, rate float64) (*G.Node, error) {
	if !s.training || rate <= 0 {
		return x, nil
	}
	if rate >= 1 {
		return nil, errors.Errorf("dropout rate must be below 1, got %v", rate)
	}
	out, err := G.Dropout(x, rate)
	return out, errors.Wrapf(err, "dropout in %v", s.prefix)
}
