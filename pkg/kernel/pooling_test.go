package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/tinyinfer/pkg/runtime"
	"github.com/itohio/tinyinfer/pkg/tensor"
)

func TestMaxPool2dForward(t *testing.T) {
	input := tensor.New(1, 4, 4)
	input.FillValues([]float32{
		1, 2, 3, 4,
		5, 6, 7, 8,
		9, 10, 11, 12,
		13, 14, 15, 16,
	}, true)

	outputs := make([]*tensor.Tensor, 1)
	status := NewMaxPool2d(0, 0, 2, 2, 2, 2).Forward([]*tensor.Tensor{input}, outputs)
	require.Equal(t, runtime.StatusSuccess, status)

	assert.Equal(t, []int{1, 2, 2}, outputs[0].Shape())
	assert.Equal(t, []float32{6, 8, 14, 16}, outputs[0].Values(true))
}

func TestMaxPool2dStride1(t *testing.T) {
	input := tensor.New(1, 3, 3)
	input.FillValues([]float32{
		1, 9, 2,
		3, 4, 5,
		8, 6, 7,
	}, true)

	outputs := make([]*tensor.Tensor, 1)
	status := NewMaxPool2d(0, 0, 2, 2, 1, 1).Forward([]*tensor.Tensor{input}, outputs)
	require.Equal(t, runtime.StatusSuccess, status)
	assert.Equal(t, []float32{9, 9, 8, 7}, outputs[0].Values(true))
}

func TestMaxPool2dPadding(t *testing.T) {
	input := tensor.New(1, 2, 2)
	input.FillValues([]float32{
		-1, -2,
		-3, -4,
	}, true)

	// 2x2 window, stride 2, padding 1: every window sees exactly one value,
	// the pad cells hold the lowest float and never win
	outputs := make([]*tensor.Tensor, 1)
	status := NewMaxPool2d(1, 1, 2, 2, 2, 2).Forward([]*tensor.Tensor{input}, outputs)
	require.Equal(t, runtime.StatusSuccess, status)

	assert.Equal(t, []int{1, 2, 2}, outputs[0].Shape())
	assert.Equal(t, []float32{-1, -2, -3, -4}, outputs[0].Values(true))
}

func TestMaxPool2dMultiChannel(t *testing.T) {
	input := tensor.New(2, 2, 2)
	input.FillValues([]float32{
		1, 2,
		3, 4,
		-1, -2,
		-3, -4,
	}, true)

	outputs := make([]*tensor.Tensor, 1)
	status := NewMaxPool2d(0, 0, 2, 2, 2, 2).Forward([]*tensor.Tensor{input}, outputs)
	require.Equal(t, runtime.StatusSuccess, status)
	assert.Equal(t, []float32{4, -1}, outputs[0].Values(true))
}

func TestMaxPool2dStatusCodes(t *testing.T) {
	k := NewMaxPool2d(0, 0, 2, 2, 2, 2)
	assert.Equal(t, runtime.StatusFailedInputEmpty, k.Forward(nil, nil))

	in := tensor.New(1, 4, 4)
	assert.Equal(t, runtime.StatusFailedBatchMismatch,
		k.Forward([]*tensor.Tensor{in}, nil))
}

func TestMaxPool2dCreator(t *testing.T) {
	params := map[string]runtime.Parameter{
		"kernel_size": runtime.NewIntListParam([]int{2, 2}),
		"stride":      runtime.NewIntListParam([]int{2, 2}),
		"padding":     runtime.NewIntListParam([]int{0, 0}),
	}
	k, status := newMaxPool2d(&runtime.Operator{Params: params})
	require.Equal(t, runtime.ParseSuccess, status)
	assert.Equal(t, "MaxPooling", k.Name())

	delete(params, "stride")
	_, status = newMaxPool2d(&runtime.Operator{Params: params})
	assert.Equal(t, runtime.ParseParamMissingStride, status)
}

func TestAdaptiveAvgPool2dForward(t *testing.T) {
	input := tensor.New(1, 4, 4)
	input.FillValues([]float32{
		1, 2, 3, 4,
		5, 6, 7, 8,
		9, 10, 11, 12,
		13, 14, 15, 16,
	}, true)

	outputs := make([]*tensor.Tensor, 1)
	status := NewAdaptiveAvgPool2d(2, 2).Forward([]*tensor.Tensor{input}, outputs)
	require.Equal(t, runtime.StatusSuccess, status)

	// stride 2, window 2: plain 2x2 average pooling
	assert.Equal(t, []float32{3.5, 5.5, 11.5, 13.5}, outputs[0].Values(true))
}

func TestAdaptiveAvgPool2dGlobal(t *testing.T) {
	input := tensor.New(2, 3, 3)
	input.FillValues([]float32{
		1, 2, 3, 4, 5, 6, 7, 8, 9,
		10, 11, 12, 13, 14, 15, 16, 17, 18,
	}, true)

	outputs := make([]*tensor.Tensor, 1)
	status := NewAdaptiveAvgPool2d(1, 1).Forward([]*tensor.Tensor{input}, outputs)
	require.Equal(t, runtime.StatusSuccess, status)

	assert.Equal(t, []int{2, 1, 1}, outputs[0].Shape())
	values := outputs[0].Values(true)
	assert.InDelta(t, 5, values[0], 1e-6)
	assert.InDelta(t, 14, values[1], 1e-6)
}

func TestAdaptiveAvgPool2dUnevenInput(t *testing.T) {
	// 5x5 onto 2x2: stride 2, window 3
	input := tensor.New(1, 5, 5)
	values := make([]float32, 25)
	for i := range values {
		values[i] = float32(i)
	}
	input.FillValues(values, true)

	outputs := make([]*tensor.Tensor, 1)
	status := NewAdaptiveAvgPool2d(2, 2).Forward([]*tensor.Tensor{input}, outputs)
	require.Equal(t, runtime.StatusSuccess, status)

	window := func(r0, c0 int) float32 {
		var sum float32
		for r := r0; r < r0+3; r++ {
			for c := c0; c < c0+3; c++ {
				sum += values[r*5+c]
			}
		}
		return sum / 9
	}
	got := outputs[0].Values(true)
	assert.InDelta(t, window(0, 0), got[0], 1e-5)
	assert.InDelta(t, window(0, 2), got[1], 1e-5)
	assert.InDelta(t, window(2, 0), got[2], 1e-5)
	assert.InDelta(t, window(2, 2), got[3], 1e-5)
}

func TestAdaptiveAvgPool2dCreator(t *testing.T) {
	params := map[string]runtime.Parameter{
		"output_size": runtime.NewIntListParam([]int{7, 7}),
	}
	k, status := newAdaptiveAvgPool2d(&runtime.Operator{Params: params})
	require.Equal(t, runtime.ParseSuccess, status)
	assert.Equal(t, "AdaptAvgPooling", k.Name())

	_, status = newAdaptiveAvgPool2d(&runtime.Operator{Params: map[string]runtime.Parameter{}})
	assert.Equal(t, runtime.ParseParamMissingOutHW, status)
}
