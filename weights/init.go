package weights

import (
	"math"
	"math/rand"
)

// Init fills a freshly created parameter of the given shape.
type Init func(rng *rand.Rand, shape []int) []float32

func size(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}

// GlorotUniform draws from U(-l, l) with l = sqrt(6 / (fanIn + fanOut)),
// taking the first axis as fan in and the last as fan out.
func GlorotUniform(rng *rand.Rand, shape []int) []float32 {
	fanIn, fanOut := shape[0], shape[len(shape)-1]
	limit := math.Sqrt(6 / float64(fanIn+fanOut))
	data := make([]float32, size(shape))
	for i := range data {
		data[i] = float32((rng.Float64()*2 - 1) * limit)
	}
	return data
}

func Zeros(_ *rand.Rand, shape []int) []float32 {
	return make([]float32, size(shape))
}

// ForgetBias is a zero bias for an LSTM with gates laid out as
// [input, forget, cell, output], with the forget slice set to 1.
func ForgetBias(units int) Init {
	return func(_ *rand.Rand, shape []int) []float32 {
		data := make([]float32, size(shape))
		for i := units; i < 2*units && i < len(data); i++ {
			data[i] = 1
		}
		return data
	}
}
