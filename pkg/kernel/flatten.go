package kernel

import (
	"fmt"

	"github.com/itohio/tinyinfer/pkg/logger"
	"github.com/itohio/tinyinfer/pkg/runtime"
	"github.com/itohio/tinyinfer/pkg/tensor"
)

// Flatten collapses a contiguous range of dimensions. The bounds address a
// conceptual (batch, channels, rows, cols) tensor; the batch axis is handled
// by the executor, so internally the range lives in {0, 1, 2}.
type Flatten struct {
	startDim int
	endDim   int
}

// NewFlatten returns a flatten kernel over [startDim, endDim] in the
// 4-D addressing scheme (negative bounds wrap against 4).
func NewFlatten(startDim, endDim int) *Flatten {
	return &Flatten{startDim: startDim, endDim: endDim}
}

// Name implements runtime.Kernel.
func (f *Flatten) Name() string { return "Flatten" }

// Forward implements runtime.Kernel.
func (f *Flatten) Forward(inputs, outputs []*tensor.Tensor) runtime.Status {
	if status := checkBatch(f.Name(), inputs, outputs); status != runtime.StatusSuccess {
		return status
	}

	const totalDims = 4
	startDim, endDim := f.startDim, f.endDim
	if startDim < 0 {
		startDim += totalDims
	}
	if endDim < 0 {
		endDim += totalDims
	}
	// shift past the batch axis into per-tensor coordinates
	startDim--
	endDim--
	if !(endDim <= 2 && startDim >= 0 && endDim > startDim) {
		logger.Log.Fatal().Int("start_dim", f.startDim).Int("end_dim", f.endDim).Msg("flatten dimension error")
	}

	forEachBatch(f.Name(), len(inputs), func(b int) error {
		input := inputs[b]
		if input.Empty() {
			return fmt.Errorf("the %d input tensor is empty", b)
		}

		shape := input.Shape()
		elems := 1
		for i := startDim; i <= endDim; i++ {
			elems *= shape[i]
		}

		output := outputs[b]
		if output.Empty() {
			output = input.Clone()
			outputs[b] = output
		} else {
			if input.Size() != output.Size() {
				return fmt.Errorf("the %d input and output tensor sizes do not match", b)
			}
			copy(output.Data(), input.Data())
			// the builder sizes output tensors from the declared operand
			// shape; realign to the input cube so the row-major reshape
			// below permutes relative to the data it just received
			output.Reshape(input.Shape(), false)
		}

		switch {
		case startDim == 0 && endDim == 2:
			output.Reshape([]int{elems}, true)
		case startDim == 1 && endDim == 2:
			output.Reshape([]int{input.Channels(), elems}, true)
		case startDim == 0 && endDim == 1:
			output.Reshape([]int{elems, input.Cols()}, true)
		}
		return nil
	})
	return runtime.StatusSuccess
}

func newFlatten(op *runtime.Operator) (runtime.Kernel, runtime.ParseStatus) {
	if op == nil {
		return nil, runtime.ParseOpEmpty
	}
	startParam, ok := op.Params["start_dim"]
	if !ok {
		return nil, runtime.ParseParamMissingDim
	}
	startDim, ok := startParam.Int()
	if !ok {
		return nil, runtime.ParseParamMissingDim
	}
	endParam, ok := op.Params["end_dim"]
	if !ok {
		return nil, runtime.ParseParamMissingDim
	}
	endDim, ok := endParam.Int()
	if !ok {
		return nil, runtime.ParseParamMissingDim
	}
	return NewFlatten(startDim, endDim), runtime.ParseSuccess
}

func init() {
	runtime.RegisterCreator("torch.flatten", newFlatten)
}
