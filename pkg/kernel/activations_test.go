package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/tinyinfer/pkg/runtime"
	"github.com/itohio/tinyinfer/pkg/tensor"
)

func runActivation(t *testing.T, k runtime.Kernel, input *tensor.Tensor) *tensor.Tensor {
	t.Helper()
	outputs := []*tensor.Tensor{tensor.New(input.Channels(), input.Rows(), input.Cols())}
	status := k.Forward([]*tensor.Tensor{input}, outputs)
	require.Equal(t, runtime.StatusSuccess, status)
	return outputs[0]
}

func TestReLUForward(t *testing.T) {
	input := tensor.New(1, 1, 4)
	input.FillValues([]float32{-1, 0, 2, -3}, true)

	out := runActivation(t, NewReLU(), input)
	assert.Equal(t, []float32{0, 0, 2, 0}, out.Values(true))
}

func TestReLUIdempotent(t *testing.T) {
	input := tensor.New(3, 8, 8)
	input.Rand()

	once := runActivation(t, NewReLU(), input)
	twice := runActivation(t, NewReLU(), once)
	assert.True(t, tensor.IsSame(once, twice), "ReLU(ReLU(x)) must equal ReLU(x)")
}

func TestReLUStatusCodes(t *testing.T) {
	k := NewReLU()
	assert.Equal(t, runtime.StatusFailedInputEmpty, k.Forward(nil, nil))

	in := tensor.New(1, 1, 1)
	assert.Equal(t, runtime.StatusFailedBatchMismatch,
		k.Forward([]*tensor.Tensor{in}, []*tensor.Tensor{in, in}))
}

func TestReLUAllocatesEmptyOutput(t *testing.T) {
	input := tensor.New(2, 3, 3)
	input.Rand()
	outputs := make([]*tensor.Tensor, 1)

	status := NewReLU().Forward([]*tensor.Tensor{input}, outputs)
	require.Equal(t, runtime.StatusSuccess, status)
	require.NotNil(t, outputs[0])
	assert.Equal(t, input.Shape(), outputs[0].Shape())
}

func TestSigmoidForward(t *testing.T) {
	input := tensor.New(1, 1, 3)
	input.FillValues([]float32{0, -1000, 1000}, true)

	out := runActivation(t, NewSigmoid(), input)
	values := out.Values(true)
	assert.InDelta(t, 0.5, values[0], 1e-6)
	assert.InDelta(t, 0, values[1], 1e-6)
	assert.InDelta(t, 1, values[2], 1e-6)
}

func TestSigmoidRange(t *testing.T) {
	input := tensor.New(4, 16, 16)
	input.Rand()
	out := runActivation(t, NewSigmoid(), input)
	for _, v := range out.Data() {
		assert.GreaterOrEqual(t, v, float32(0))
		assert.LessOrEqual(t, v, float32(1))
	}
}

func TestHardSigmoidMonotonic(t *testing.T) {
	input := tensor.New(1, 1, 101)
	values := make([]float32, 101)
	for i := range values {
		values[i] = -5 + float32(i)*0.1
	}
	input.FillValues(values, true)

	out := runActivation(t, NewHardSigmoid(), input).Values(true)
	for i := 1; i < len(out); i++ {
		assert.GreaterOrEqual(t, out[i], out[i-1], "output must be non-decreasing")
	}
	for _, v := range out {
		assert.GreaterOrEqual(t, v, float32(0))
		assert.LessOrEqual(t, v, float32(1))
	}
}

func TestHardSwishForward(t *testing.T) {
	input := tensor.New(1, 1, 5)
	input.FillValues([]float32{-4, -3, 0, 1, 4}, true)

	out := runActivation(t, NewHardSwish(), input).Values(true)
	assert.InDelta(t, 0, out[0], 1e-6)
	assert.InDelta(t, 0, out[1], 1e-6)
	assert.InDelta(t, 0, out[2], 1e-6)
	assert.InDelta(t, 1*4.0/6.0, out[3], 1e-6)
	assert.InDelta(t, 4, out[4], 1e-6)
}

func TestActivationBatchParallel(t *testing.T) {
	const batch = 8
	inputs := make([]*tensor.Tensor, batch)
	outputs := make([]*tensor.Tensor, batch)
	for b := range inputs {
		inputs[b] = tensor.New(4, 8, 8)
		inputs[b].Rand()
		outputs[b] = tensor.New(4, 8, 8)
	}

	status := NewReLU().Forward(inputs, outputs)
	require.Equal(t, runtime.StatusSuccess, status)
	for b := range outputs {
		for i, v := range outputs[b].Data() {
			in := inputs[b].Data()[i]
			if in > 0 {
				assert.Equal(t, in, v)
			} else {
				assert.Equal(t, float32(0), v)
			}
		}
	}
}
