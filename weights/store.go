// Package weights keeps the named parameters of a network outside of any
// single graph so that several graphs (training, inference, different batch
// sizes) can share and persist them.
package weights

import (
	"math/rand"
	"sync"

	"github.com/jsphweid/deepj/util"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

type Store struct {
	mu      sync.Mutex
	seed    int64
	rng     *rand.Rand
	tensors map[string]*tensor.Dense
	meta    map[string]string
}

func NewStore(seed int64) *Store {
	return &Store{
		seed:    seed,
		rng:     rand.New(rand.NewSource(seed)),
		tensors: make(map[string]*tensor.Dense),
		meta:    make(map[string]string),
	}
}

// SetMeta attaches a string saved alongside the parameters.
func (s *Store) SetMeta(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.meta[key] = value
}

func (s *Store) Meta(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.meta[key]
	return v, ok
}

func (s *Store) Seed() int64 {
	return s.seed
}

// Get returns the parameter called name, creating it with init when it does
// not exist yet. An existing parameter with a different shape is an error.
func (s *Store) Get(name string, init Init, shape ...int) (*tensor.Dense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.tensors[name]; ok {
		if !t.Shape().Eq(tensor.Shape(shape)) {
			return nil, errors.Errorf("param %v has shape %v, want %v", name, t.Shape(), tensor.Shape(shape))
		}
		return t, nil
	}

	data := init(s.rng, shape)
	t := tensor.New(tensor.WithShape(shape...), tensor.WithBacking(data))
	s.tensors[name] = t
	return t, nil
}

func (s *Store) Lookup(name string) (*tensor.Dense, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tensors[name]
	return t, ok
}

func (s *Store) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return util.SortedKeys(s.tensors)
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tensors)
}

// Update copies v into the stored parameter. Solvers may hand back a new
// tensor instead of writing in place, so values are copied rather than
// swapped to keep every graph bound to the stored backing array.
func (s *Store) Update(name string, v tensor.Tensor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tensors[name]
	if !ok {
		return errors.Errorf("unknown param %v", name)
	}
	if t == v {
		return nil
	}
	src, ok := v.Data().([]float32)
	if !ok {
		return errors.Errorf("param %v: expected float32 data, got %T", name, v.Data())
	}
	dst := t.Data().([]float32)
	if len(src) != len(dst) {
		return errors.Errorf("param %v: got %d values, want %d", name, len(src), len(dst))
	}
	copy(dst, src)
	return nil
}

type storedParam struct {
	Shape []int
	Data  []float32
}

type checkpoint struct {
	Seed   int64
	Params map[string]storedParam
	Meta   map[string]string
}

func (s *Store) Save(path string) error {
	s.mu.Lock()
	cp := checkpoint{Seed: s.seed, Params: make(map[string]storedParam, len(s.tensors)), Meta: make(map[string]string, len(s.meta))}
	for k, v := range s.meta {
		cp.Meta[k] = v
	}
	for name, t := range s.tensors {
		data := make([]float32, t.Shape().TotalSize())
		copy(data, t.Data().([]float32))
		cp.Params[name] = storedParam{Shape: append([]int(nil), t.Shape()...), Data: data}
	}
	s.mu.Unlock()

	return errors.Wrap(util.WriteBinary(path, cp), "could not save weights")
}

func Load(path string) (*Store, error) {
	cp, err := util.ReadBinary[checkpoint](path)
	if err != nil {
		return nil, errors.Wrap(err, "could not load weights")
	}

	s := NewStore(cp.Seed)
	for k, v := range cp.Meta {
		s.meta[k] = v
	}
	for name, p := range cp.Params {
		if len(p.Data) != tensor.Shape(p.Shape).TotalSize() {
			return nil, errors.Errorf("param %v: %d values do not fit shape %v", name, len(p.Data), p.Shape)
		}
		s.tensors[name] = tensor.New(tensor.WithShape(p.Shape...), tensor.WithBacking(p.Data))
	}
	return s, nil
}
