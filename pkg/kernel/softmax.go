package kernel

import (
	"fmt"

	"github.com/chewxy/math32"
	"github.com/itohio/tinyinfer/pkg/runtime"
	"github.com/itohio/tinyinfer/pkg/tensor"
)

// Softmax normalizes along one axis of the input's raw shape so that the
// exponentials along that axis sum to 1. Negative dims wrap against the raw
// rank.
type Softmax struct {
	dim int
}

// NewSoftmax returns a softmax kernel over the given axis.
func NewSoftmax(dim int) *Softmax {
	return &Softmax{dim: dim}
}

// Name implements runtime.Kernel.
func (s *Softmax) Name() string { return "Softmax" }

// Forward implements runtime.Kernel.
func (s *Softmax) Forward(inputs, outputs []*tensor.Tensor) runtime.Status {
	if status := checkBatch(s.Name(), inputs, outputs); status != runtime.StatusSuccess {
		return status
	}
	forEachBatch(s.Name(), len(inputs), func(b int) error {
		input := inputs[b]
		if input.Empty() {
			return fmt.Errorf("the %d input tensor is empty", b)
		}
		output, err := prepareOutput(outputs, b, input.Channels(), input.Rows(), input.Cols())
		if err != nil {
			return err
		}

		rawShape := append([]int(nil), input.RawShape()...)
		dim := s.dim
		if dim < 0 {
			dim += len(rawShape)
		}
		if dim < 0 || dim >= len(rawShape) {
			return fmt.Errorf("softmax dimension %d out of range for rank %d", s.dim, len(rawShape))
		}
		// pad the raw shape on the right with ones to rank 3
		for len(rawShape) < 3 {
			rawShape = append(rawShape, 1)
		}

		outerSize, innerSize := 1, 1
		for i := 0; i < dim; i++ {
			outerSize *= rawShape[i]
		}
		for i := dim + 1; i < len(rawShape); i++ {
			innerSize *= rawShape[i]
		}
		axisSize := rawShape[dim]
		if outerSize*axisSize*innerSize != input.Size() {
			return fmt.Errorf("softmax strip partition %d*%d*%d does not cover size %d",
				outerSize, axisSize, innerSize, input.Size())
		}

		inVals := input.Values(true)
		outVals := make([]float32, len(inVals))

		for outer := 0; outer < outerSize; outer++ {
			for inner := 0; inner < innerSize; inner++ {
				pos := func(axis int) int { return outer*axisSize*innerSize + axis*innerSize + inner }

				maxVal := math32.Inf(-1)
				for axis := 0; axis < axisSize; axis++ {
					if v := inVals[pos(axis)]; v > maxVal {
						maxVal = v
					}
				}
				// shift by the strip max before exponentiating to avoid overflow
				var sum float32
				for axis := 0; axis < axisSize; axis++ {
					e := math32.Exp(inVals[pos(axis)] - maxVal)
					outVals[pos(axis)] = e
					sum += e
				}
				for axis := 0; axis < axisSize; axis++ {
					outVals[pos(axis)] /= sum
				}
			}
		}

		output.FillValues(outVals, true)
		return nil
	})
	return runtime.StatusSuccess
}

func newSoftmax(op *runtime.Operator) (runtime.Kernel, runtime.ParseStatus) {
	if op == nil {
		return nil, runtime.ParseOpEmpty
	}
	param, ok := op.Params["dim"]
	if !ok {
		return nil, runtime.ParseParamMissingDim
	}
	dim, ok := param.Int()
	if !ok {
		return nil, runtime.ParseParamMissingDim
	}
	return NewSoftmax(dim), runtime.ParseSuccess
}

func init() {
	runtime.RegisterCreator("nn.Softmax", newSoftmax)
	runtime.RegisterCreator("F.softmax", newSoftmax)
}
