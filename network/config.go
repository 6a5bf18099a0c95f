package network

import (
	"fmt"

	"github.com/jsphweid/deepj/constants"
	"github.com/pkg/errors"
)

// Head selects which outputs the network carries.
type Head int

const (
	// NotesHead predicts (played, articulated) for every note.
	NotesHead Head = iota
	// NotesAndStyleHead also classifies the style of every time step and
	// adds a half weighted categorical cross entropy to the loss.
	NotesAndStyleHead
)

func (h Head) String() string {
	switch h {
	case NotesHead:
		return "notes"
	case NotesAndStyleHead:
		return "notes+style"
	}
	return fmt.Sprintf("Head(%d)", int(h))
}

func ParseHead(s string) (Head, error) {
	for _, h := range []Head{NotesHead, NotesAndStyleHead} {
		if h.String() == s {
			return h, nil
		}
	}
	return 0, errors.Errorf("unknown head %q", s)
}

type Mode int

const (
	// Infer disables dropout and compiles no gradients.
	Infer Mode = iota
	// Train enables dropout and compiles gradients for every parameter.
	Train
)

type Config struct {
	constants.Dims

	// TimeSteps is the window length; generation has to respect it too.
	TimeSteps int
	// BatchSize is fixed when the graph is built.
	BatchSize    int
	InputDropout float64
	Dropout      float64
	Head         Head
}

func DefaultConfig() Config {
	return Config{
		Dims:         constants.DefaultDims(),
		TimeSteps:    constants.SeqLen,
		BatchSize:    1,
		InputDropout: 0.2,
		Dropout:      0.5,
		Head:         NotesHead,
	}
}

func (c Config) Validate() error {
	if err := c.Dims.Validate(); err != nil {
		return err
	}
	if c.TimeSteps <= 0 || c.BatchSize <= 0 {
		return errors.Errorf("time steps and batch size must be positive, got %d and %d", c.TimeSteps, c.BatchSize)
	}
	for name, rate := range map[string]float64{"input dropout": c.InputDropout, "dropout": c.Dropout} {
		if rate < 0 || rate >= 1 {
			return errors.Errorf("%s must be in [0, 1), got %v", name, rate)
		}
	}
	if c.Head != NotesHead && c.Head != NotesAndStyleHead {
		return errors.Errorf("unknown head %v", c.Head)
	}
	return nil
}
