// Package sample generates compositions by running an inference network
// one note at a time over a rolling window of past steps.
package sample

import (
	"context"
	"math"
	"math/rand"

	"github.com/jsphweid/deepj/feature"
	"github.com/jsphweid/deepj/model"
	"github.com/jsphweid/deepj/network"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
)

const (
	DefaultTemperature = 1.0
	temperatureStep    = 0.1
)

type Generator struct {
	net *network.Network
	rng *rand.Rand

	Temperature float64
}

// New wraps an inference network with a batch size of 1.
func New(net *network.Network, seed int64) (*Generator, error) {
	if net.Config().BatchSize != 1 {
		return nil, errors.Errorf("generation needs batch size 1, got %d", net.Config().BatchSize)
	}
	return &Generator{
		net:         net,
		rng:         rand.New(rand.NewSource(seed)),
		Temperature: DefaultTemperature,
	}, nil
}

// Generate produces steps time steps in the given style (a distribution over
// NumStyles). Every step is filled from the lowest note up, each note
// conditioned on the notes already chosen below it.
func (gen *Generator) Generate(ctx context.Context, style []float32, steps int) (model.Composition, error) {
	cfg := gen.net.Config()
	d := cfg.Dims
	if len(style) != d.NumStyles {
		return model.Composition{}, errors.Errorf("style has %d values, want %d", len(style), d.NumStyles)
	}
	if steps <= 0 {
		return model.Composition{}, errors.Errorf("steps must be positive, got %d", steps)
	}

	window := cfg.TimeSteps
	stepWidth := d.NumNotes * 2
	// history[0] is an all silent step before the composition starts
	history := make([][]float32, 1, steps+1)
	history[0] = make([]float32, stepWidth)

	temperature := gen.Temperature
	var silent int
	comp := model.Composition{Style: append([]float32(nil), style...)}

	for t := 0; t < steps; t++ {
		b := model.NewBatch(1, window, d)
		for w := 0; w < window; w++ {
			copy(b.Style[w*d.NumStyles:], style)
		}
		// the last window row predicts step t from the steps before it
		start := t - window + 1
		copy(b.Beat, feature.BeatWindow(start, window, d.NotesPerBar))
		for w := 0; w < window; w++ {
			if prev := t - window + w; prev >= 0 {
				copy(b.Notes[w*stepWidth:], history[prev+1])
			}
			if cur := t - window + w + 1; cur >= 0 && cur < t {
				copy(b.Chosen[w*stepWidth:], history[cur+1])
			}
		}

		next := make([]float32, stepWidth)
		last := (window - 1) * stepWidth
		for n := 0; n < d.NumNotes; n++ {
			if err := ctx.Err(); err != nil {
				return comp, errors.Wrapf(err, "generation stopped at step %d", t)
			}
			pred, err := gen.net.Forward(b)
			if err != nil {
				return comp, err
			}
			played, articulated := pred.Notes[last+n*2], pred.Notes[last+n*2+1]
			if gen.rng.Float64() < applyTemperature(played, temperature) {
				next[n*2] = 1
				if gen.rng.Float64() < applyTemperature(articulated, temperature) {
					next[n*2+1] = 1
				}
			}
			b.Chosen[last+n*2] = next[n*2]
			b.Chosen[last+n*2+1] = next[n*2+1]
		}

		history = append(history, next)
		comp.Steps = append(comp.Steps, toStates(next))

		if floats.Sum(playedChannel(next)) == 0 {
			silent++
			if silent >= d.NotesPerBar {
				temperature += temperatureStep
			}
		} else {
			silent = 0
			temperature = gen.Temperature
		}
		log.WithFields(log.Fields{"step": t, "temperature": temperature}).Debug("generated step")
	}
	return comp, nil
}

// applyTemperature sharpens (temp < 1) or flattens (temp > 1) p.
func applyTemperature(p float32, temp float64) float64 {
	if p <= 0 {
		return 0
	}
	return math.Exp(math.Log(float64(p)) / temp)
}

func playedChannel(step []float32) []float64 {
	out := make([]float64, len(step)/2)
	for n := range out {
		out[n] = float64(step[n*2])
	}
	return out
}

func toStates(step []float32) []model.NoteState {
	states := make([]model.NoteState, len(step)/2)
	for n := range states {
		states[n] = model.NoteState{Played: step[n*2] > 0, Articulated: step[n*2+1] > 0}
	}
	return states
}
