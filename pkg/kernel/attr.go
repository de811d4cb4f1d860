package kernel

import (
	"github.com/itohio/tinyinfer/pkg/logger"
	"github.com/itohio/tinyinfer/pkg/tensor"
)

// attrBase holds the weight and bias tensors of kernels that carry
// attributes (Convolution, Linear).
type attrBase struct {
	weights []*tensor.Tensor
	bias    []*tensor.Tensor
}

// initWeights allocates count weight tensors of (channels, rows, cols).
func (a *attrBase) initWeights(count, channels, rows, cols int) {
	a.weights = make([]*tensor.Tensor, count)
	for i := range a.weights {
		a.weights[i] = tensor.New(channels, rows, cols)
	}
}

// initBias allocates count bias tensors of (channels, rows, cols).
func (a *attrBase) initBias(count, channels, rows, cols int) {
	a.bias = make([]*tensor.Tensor, count)
	for i := range a.bias {
		a.bias[i] = tensor.New(channels, rows, cols)
	}
}

// setWeights splits a flat row-major value blob evenly across the weight
// tensors and fills each one row-major.
func (a *attrBase) setWeights(values []float32) {
	fillSplit(a.weights, values, "weight")
}

// setBias splits a flat row-major value blob evenly across the bias tensors.
func (a *attrBase) setBias(values []float32) {
	fillSplit(a.bias, values, "bias")
}

func fillSplit(tensors []*tensor.Tensor, values []float32, what string) {
	count := len(tensors)
	if count == 0 {
		logger.Log.Fatal().Str("attr", what).Msg("no tensors to fill")
	}
	total := 0
	for _, t := range tensors {
		total += t.Size()
	}
	if total != len(values) || len(values)%count != 0 {
		logger.Log.Fatal().Str("attr", what).Int("want", total).Int("got", len(values)).
			Msg("value count does not match tensor sizes")
	}
	blob := len(values) / count
	for i, t := range tensors {
		t.FillValues(values[i*blob:(i+1)*blob], true)
	}
}

// Weights returns the kernel's weight tensors.
func (a *attrBase) Weights() []*tensor.Tensor { return a.weights }

// Bias returns the kernel's bias tensors.
func (a *attrBase) Bias() []*tensor.Tensor { return a.bias }
