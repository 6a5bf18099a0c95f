// Package network assembles the style conditioned two axis note model:
//
//	inputs -> dropout -> style/beat embeddings -> per note features
//	       -> time axis LSTMs -> shifted chosen notes -> note axis LSTMs
//	       -> sigmoid (played, articulated)
//
// Style is re-injected additively before every recurrent layer of both
// stacks.
package network

import (
	"fmt"
	"sync"

	"github.com/jsphweid/deepj/feature"
	"github.com/jsphweid/deepj/layer"
	"github.com/jsphweid/deepj/model"
	"github.com/jsphweid/deepj/weights"
	"github.com/pkg/errors"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

type Network struct {
	cfg   Config
	mode  Mode
	store *weights.Store
	g     *G.ExprGraph
	scope *layer.Scope

	notesIn, beatIn, styleIn, chosenIn, target *G.Node

	// bins is kept for inspecting the pitch class feature
	bins      *G.Node
	notesOut  *G.Node
	stylesOut *G.Node
	cost      *G.Node

	mu sync.Mutex
	vm G.VM
}

// New builds a network over the parameters in store, creating any that are
// missing. Networks built over the same store share their weights.
func New(cfg Config, store *weights.Store, mode Mode) (*Network, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid network config")
	}

	g := G.NewGraph()
	n := &Network{
		cfg:   cfg,
		mode:  mode,
		store: store,
		g:     g,
		scope: layer.NewScope(g, store, mode == Train),
	}
	if err := n.build(); err != nil {
		return nil, errors.Wrap(err, "could not build network")
	}

	if mode == Train {
		if _, err := G.Grad(n.cost, n.scope.Learnables()...); err != nil {
			return nil, errors.Wrap(err, "could not compile gradients")
		}
		n.vm = G.NewTapeMachine(g, G.BindDualValues(n.scope.Learnables()...))
	} else {
		n.vm = G.NewTapeMachine(g)
	}
	return n, nil
}

func (n *Network) Config() Config {
	return n.cfg
}

func (n *Network) Store() *weights.Store {
	return n.store
}

func (n *Network) NumParams() int {
	var total int
	for _, p := range n.scope.Params() {
		total += p.Node.Shape().TotalSize()
	}
	return total
}

func (n *Network) build() error {
	cfg, s := n.cfg, n.scope
	b, t, d := cfg.BatchSize, cfg.TimeSteps, cfg.Dims

	n.notesIn = s.Input("notes_in", b, t, d.NumNotes, 2)
	n.beatIn = s.Input("beat_in", b, t, 2)
	n.styleIn = s.Input("style_in", b, t, d.NumStyles)
	n.chosenIn = s.Input("chosen_in", b, t, d.NumNotes, 2)
	n.target = s.Input("target", b, t, d.NumNotes, 2)

	notes, err := s.Dropout(n.notesIn, cfg.InputDropout)
	if err != nil {
		return err
	}
	beat, err := s.Dropout(n.beatIn, cfg.InputDropout)
	if err != nil {
		return err
	}
	chosen, err := s.Dropout(n.chosenIn, cfg.InputDropout)
	if err != nil {
		return err
	}
	style, err := s.Dropout(n.styleIn, cfg.InputDropout)
	if err != nil {
		return err
	}

	if style, err = layer.Dense(s.Sub("style_embedding"), style, d.StyleUnits, layer.Tanh); err != nil {
		return err
	}
	if style, err = s.Dropout(style, cfg.Dropout); err != nil {
		return err
	}
	if beat, err = layer.Dense(s.Sub("beat_embedding"), beat, d.BeatUnits, layer.Tanh); err != nil {
		return err
	}
	if beat, err = s.Dropout(beat, cfg.Dropout); err != nil {
		return err
	}

	x, err := n.noteFeatures(notes, beat)
	if err != nil {
		return err
	}

	for l := 0; l < d.TimeAxisLayers; l++ {
		if x, err = n.axisLayer(fmt.Sprintf("time_axis_%d", l), x, style, 1, d.TimeAxisUnits); err != nil {
			return err
		}
	}

	shifted, err := feature.ShiftNotes(s, chosen)
	if err != nil {
		return err
	}
	if x, err = G.Concat(3, x, shifted); err != nil {
		return errors.Wrap(err, "append shifted chosen notes")
	}

	for l := 0; l < d.NoteAxisLayers; l++ {
		if x, err = n.axisLayer(fmt.Sprintf("note_axis_%d", l), x, style, 2, d.NoteAxisUnits); err != nil {
			return err
		}
	}

	logits, err := layer.Dense(s.Sub("notes_out"), x, 2, nil)
	if err != nil {
		return err
	}
	if n.notesOut, err = G.Sigmoid(logits); err != nil {
		return errors.Wrap(err, "notes out")
	}
	if n.cost, err = primaryLoss(logits, n.target); err != nil {
		return err
	}

	if cfg.Head == NotesAndStyleHead {
		return n.buildStyleHead(x)
	}
	return nil
}

// noteFeatures concatenates, for every note: pitch position, pitch class,
// pitch class bins, the octave convolution and the beat embedding.
func (n *Network) noteFeatures(notes, beat *G.Node) (*G.Node, error) {
	cfg, s := n.cfg, n.scope
	b, t, d := cfg.BatchSize, cfg.TimeSteps, cfg.Dims

	octave, err := layer.Conv1D(s.Sub("octave_conv"), notes, d.OctaveUnits, 2*d.Octave)
	if err != nil {
		return nil, err
	}
	if octave, err = G.Tanh(octave); err != nil {
		return nil, errors.Wrap(err, "octave conv activation")
	}
	if octave, err = s.Dropout(octave, cfg.Dropout); err != nil {
		return nil, err
	}

	bins, err := feature.PitchBins(s, notes, d)
	if err != nil {
		return nil, err
	}
	n.bins = bins

	beatNotes, err := layer.InsertAxis(beat, 2)
	if err != nil {
		return nil, err
	}
	if beatNotes, err = layer.Repeat(beatNotes, 2, d.NumNotes); err != nil {
		return nil, err
	}

	x, err := G.Concat(3,
		s.Const("pitch_pos", feature.PitchPosition(b, t, d)),
		s.Const("pitch_class", feature.PitchClass(b, t, d)),
		bins,
		octave,
		beatNotes,
	)
	return x, errors.Wrap(err, "concat note features")
}

// axisLayer is one recurrent layer of either stack: style conditioning,
// an LSTM along axis and dropout.
func (n *Network) axisLayer(name string, x, style *G.Node, axis, units int) (*G.Node, error) {
	s := n.scope.Sub(name)
	x, err := layer.Condition(s.Sub("style"), x, style, n.cfg.Dropout)
	if err != nil {
		return nil, err
	}
	if x, err = layer.LSTM(s.Sub("lstm"), x, axis, units); err != nil {
		return nil, err
	}
	return s.Dropout(x, n.cfg.Dropout)
}

func (n *Network) buildStyleHead(x *G.Node) error {
	cfg, s := n.cfg, n.scope.Sub("styles_out")
	b, t, d := cfg.BatchSize, cfg.TimeSteps, cfg.Dims

	h, err := layer.Dense(s.Sub("hidden"), x, d.StyleUnits, layer.Tanh)
	if err != nil {
		return err
	}
	if h, err = s.Dropout(h, cfg.Dropout); err != nil {
		return err
	}
	if h, err = G.Reshape(h, tensor.Shape{b * t, d.NumNotes * d.StyleUnits}); err != nil {
		return errors.Wrap(err, "flatten style head")
	}
	logits, err := layer.Dense(s.Sub("logits"), h, d.NumStyles, nil)
	if err != nil {
		return err
	}

	probs, err := G.SoftMax(logits, 1)
	if err != nil {
		return errors.Wrap(err, "style softmax")
	}
	if n.stylesOut, err = G.Reshape(probs, tensor.Shape{b, t, d.NumStyles}); err != nil {
		return errors.Wrap(err, "style out")
	}

	labels, err := G.Reshape(n.styleIn, tensor.Shape{b * t, d.NumStyles})
	if err != nil {
		return errors.Wrap(err, "style labels")
	}
	styleCost, err := styleLoss(n.g, logits, labels)
	if err != nil {
		return err
	}
	n.cost, err = G.Add(n.cost, styleCost)
	return errors.Wrap(err, "total loss")
}

// Forward evaluates the network on b. Dropout only applies in Train mode.
func (n *Network) Forward(b model.Batch) (model.Prediction, error) {
	pred, _, err := n.Evaluate(b)
	return pred, err
}

// Evaluate runs a forward pass and also returns the loss against b.Target
// (all zeros when no target is given).
func (n *Network) Evaluate(b model.Batch) (model.Prediction, float32, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if err := n.run(b); err != nil {
		return model.Prediction{}, 0, err
	}
	defer n.vm.Reset()
	loss, err := n.loss()
	if err != nil {
		return model.Prediction{}, 0, err
	}
	return n.prediction(), loss, nil
}

func (n *Network) check(b model.Batch) error {
	if b.Size != n.cfg.BatchSize || b.Steps != n.cfg.TimeSteps {
		return errors.Errorf("batch shape (%d, %d) does not match network (%d, %d)", b.Size, b.Steps, n.cfg.BatchSize, n.cfg.TimeSteps)
	}
	return b.Validate(n.cfg.Dims)
}

// run binds b and executes the tape. Callers hold n.mu and reset the vm.
func (n *Network) run(b model.Batch) error {
	if err := n.check(b); err != nil {
		return err
	}

	d := n.cfg.Dims
	target := b.Target
	if target == nil {
		target = make([]float32, len(b.Notes))
	}
	bindings := []struct {
		node *G.Node
		data []float32
	}{
		{n.notesIn, b.Notes},
		{n.beatIn, b.Beat},
		{n.styleIn, b.Style},
		{n.chosenIn, b.Chosen},
		{n.target, target},
	}
	for _, bind := range bindings {
		shape := bind.node.Shape().Clone()
		// graph ops may write into their inputs, so the caller's slices are never bound
		data := append([]float32(nil), bind.data...)
		value := tensor.New(tensor.WithShape(shape...), tensor.WithBacking(data))
		if err := G.Let(bind.node, value); err != nil {
			return errors.Wrapf(err, "bind %v", bind.node.Name())
		}
	}

	if err := n.vm.RunAll(); err != nil {
		n.vm.Reset()
		return errors.Wrapf(err, "forward pass over %d notes", d.NumNotes)
	}
	return nil
}

func (n *Network) prediction() model.Prediction {
	pred := model.Prediction{Notes: values(n.notesOut)}
	if n.stylesOut != nil {
		pred.Styles = values(n.stylesOut)
	}
	return pred
}

func (n *Network) loss() (float32, error) {
	if n.cost.Value() == nil {
		return 0, errors.New("loss has not been computed")
	}
	switch v := n.cost.Value().Data().(type) {
	case float32:
		return v, nil
	case []float32:
		if len(v) == 1 {
			return v[0], nil
		}
		return 0, errors.Errorf("loss has %d values, want 1", len(v))
	default:
		return 0, errors.Errorf("loss has unexpected type %T", v)
	}
}

func values(node *G.Node) []float32 {
	return append([]float32(nil), node.Value().Data().([]float32)...)
}
