package network

import (
	"math"

	"github.com/jsphweid/deepj/model"
	"github.com/jsphweid/deepj/weights"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

const DefaultLearnRate = 0.001

// Trainer is the compiled optimization target: a Train mode network plus
// an Adam solver over all of its parameters.
type Trainer struct {
	net    *Network
	solver G.Solver
	steps  int
}

func NewTrainer(cfg Config, store *weights.Store, learnRate float64) (*Trainer, error) {
	if learnRate <= 0 {
		return nil, errors.Errorf("learn rate must be positive, got %v", learnRate)
	}
	net, err := New(cfg, store, Train)
	if err != nil {
		return nil, err
	}
	return &Trainer{
		net:    net,
		solver: G.NewAdamSolver(G.WithLearnRate(learnRate)),
	}, nil
}

// Build is the three argument factory: a trainer for the default
// dimensions and a single sequence per batch, over freshly seeded weights.
func Build(timeSteps int, inputDropout, dropout float64) (*Trainer, error) {
	cfg := DefaultConfig()
	cfg.TimeSteps = timeSteps
	cfg.InputDropout = inputDropout
	cfg.Dropout = dropout
	return NewTrainer(cfg, weights.NewStore(0), DefaultLearnRate)
}

func (t *Trainer) Network() *Network {
	return t.net
}

func (t *Trainer) Steps() int {
	return t.steps
}

// Step runs one forward and backward pass on b, applies one solver update
// and writes the new weights back to the store. It returns the loss before
// the update.
func (t *Trainer) Step(b model.Batch) (float32, error) {
	if b.Target == nil {
		return 0, errors.New("training batch has no target")
	}

	n := t.net
	n.mu.Lock()
	defer n.mu.Unlock()

	if err := n.run(b); err != nil {
		return 0, err
	}
	defer n.vm.Reset()

	loss, err := n.loss()
	if err != nil {
		return 0, err
	}
	if math.IsNaN(float64(loss)) || math.IsInf(float64(loss), 0) {
		return loss, errors.Errorf("non-finite loss %v at step %d", loss, t.steps)
	}

	if err := t.solver.Step(G.NodesToValueGrads(n.scope.Learnables())); err != nil {
		return loss, errors.Wrap(err, "solver step")
	}
	for _, p := range n.scope.Params() {
		v, ok := p.Node.Value().(tensor.Tensor)
		if !ok {
			return loss, errors.Errorf("param %v has no tensor value", p.Name)
		}
		if err := n.store.Update(p.Name, v); err != nil {
			return loss, err
		}
	}

	t.steps++
	log.WithFields(log.Fields{"step": t.steps, "loss": loss}).Debug("train step")
	return loss, nil
}
