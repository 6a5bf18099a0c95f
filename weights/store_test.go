package weights

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorgonia.org/tensor"
)

func TestGetCreatesOnceAndReuses(t *testing.T) {
	s := NewStore(1)
	a, err := s.Get("dense/w", GlorotUniform, 3, 4)
	require.NoError(t, err)
	b, err := s.Get("dense/w", Zeros, 3, 4)
	require.NoError(t, err)

	assert.Same(t, a, b)
	assert.Equal(t, 1, s.Len())
}

func TestGetRejectsShapeMismatch(t *testing.T) {
	s := NewStore(1)
	_, err := s.Get("w", Zeros, 2, 2)
	require.NoError(t, err)
	_, err = s.Get("w", Zeros, 2, 3)
	assert.Error(t, err)
}

func TestSameSeedSameWeights(t *testing.T) {
	a, _ := NewStore(7).Get("w", GlorotUniform, 5, 5)
	b, _ := NewStore(7).Get("w", GlorotUniform, 5, 5)
	assert.Equal(t, a.Data(), b.Data())
}

func TestGlorotUniformWithinLimit(t *testing.T) {
	s := NewStore(3)
	w, err := s.Get("w", GlorotUniform, 10, 20)
	require.NoError(t, err)
	limit := float32(math.Sqrt(6.0 / 30.0))
	for _, v := range w.Data().([]float32) {
		assert.LessOrEqual(t, v, limit)
		assert.GreaterOrEqual(t, v, -limit)
	}
}

func TestForgetBias(t *testing.T) {
	s := NewStore(1)
	b, err := s.Get("b", ForgetBias(2), 1, 8)
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 0, 1, 1, 0, 0, 0, 0}, b.Data())
}

func TestUpdateCopiesIntoStoredBacking(t *testing.T) {
	s := NewStore(1)
	w, _ := s.Get("w", Zeros, 1, 2)
	next := tensor.New(tensor.WithShape(1, 2), tensor.WithBacking([]float32{3, 4}))

	require.NoError(t, s.Update("w", next))
	assert.Equal(t, []float32{3, 4}, w.Data())
	assert.Error(t, s.Update("missing", next))
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weights.dat")
	s := NewStore(42)
	_, err := s.Get("a", GlorotUniform, 2, 3)
	require.NoError(t, err)
	_, err = s.Get("b", ForgetBias(1), 1, 4)
	require.NoError(t, err)
	s.SetMeta("config", `{"head":1}`)
	require.NoError(t, s.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, int64(42), loaded.Seed())
	assert.Equal(t, []string{"a", "b"}, loaded.Names())
	meta, ok := loaded.Meta("config")
	assert.True(t, ok)
	assert.Equal(t, `{"head":1}`, meta)
	for _, name := range s.Names() {
		want, _ := s.Lookup(name)
		got, ok := loaded.Lookup(name)
		require.True(t, ok)
		assert.Equal(t, want.Data(), got.Data())
		assert.True(t, want.Shape().Eq(got.Shape()))
	}
}
