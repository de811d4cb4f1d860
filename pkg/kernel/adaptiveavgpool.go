package kernel

import (
	"fmt"

	"github.com/itohio/tinyinfer/pkg/logger"
	"github.com/itohio/tinyinfer/pkg/runtime"
	"github.com/itohio/tinyinfer/pkg/tensor"
)

// AdaptiveAvgPool2d averages over windows whose size and stride are derived
// from the requested output dimensions, so any input plane maps onto a fixed
// (outputH, outputW) plane.
type AdaptiveAvgPool2d struct {
	outputH int
	outputW int
}

// NewAdaptiveAvgPool2d returns an adaptive average-pooling kernel.
func NewAdaptiveAvgPool2d(outputH, outputW int) *AdaptiveAvgPool2d {
	return &AdaptiveAvgPool2d{outputH: outputH, outputW: outputW}
}

// Name implements runtime.Kernel.
func (a *AdaptiveAvgPool2d) Name() string { return "AdaptAvgPooling" }

// Forward implements runtime.Kernel.
func (a *AdaptiveAvgPool2d) Forward(inputs, outputs []*tensor.Tensor) runtime.Status {
	if status := checkBatch(a.Name(), inputs, outputs); status != runtime.StatusSuccess {
		return status
	}
	if a.outputH <= 0 || a.outputW <= 0 {
		logger.Log.Fatal().Int("output_h", a.outputH).Int("output_w", a.outputW).Msg("output shape error")
	}

	forEachBatch(a.Name(), len(inputs), func(b int) error {
		input := inputs[b]
		if input.Empty() {
			return fmt.Errorf("the %d input tensor is empty", b)
		}

		inputC := input.Channels()
		inputH := input.Rows()
		inputW := input.Cols()

		strideH := inputH / a.outputH
		strideW := inputW / a.outputW
		if strideH <= 0 || strideW <= 0 {
			return fmt.Errorf("the %d input tensor stride (%d,%d) is not positive", b, strideH, strideW)
		}
		kernelH := inputH - (a.outputH-1)*strideH
		kernelW := inputW - (a.outputW-1)*strideW
		if kernelH <= 0 || kernelW <= 0 {
			return fmt.Errorf("the %d input tensor window (%d,%d) is not positive", b, kernelH, kernelW)
		}

		output, err := prepareOutput(outputs, b, inputC, a.outputH, a.outputW)
		if err != nil {
			return err
		}

		windowSize := float32(kernelH * kernelW)
		for ic := 0; ic < inputC; ic++ {
			inChannel := input.Slice(ic)
			outChannel := output.Slice(ic)
			for c := 0; c+kernelW <= inputW; c += strideW {
				for r := 0; r+kernelH <= inputH; r += strideH {
					var sum float32
					for w := 0; w < kernelW; w++ {
						col := inChannel[(c+w)*inputH+r:]
						for h := 0; h < kernelH; h++ {
							sum += col[h]
						}
					}
					outChannel[(c/strideW)*a.outputH+r/strideH] = sum / windowSize
				}
			}
		}
		return nil
	})
	return runtime.StatusSuccess
}

func newAdaptiveAvgPool2d(op *runtime.Operator) (runtime.Kernel, runtime.ParseStatus) {
	if op == nil {
		return nil, runtime.ParseOpEmpty
	}
	outputSize, ok := intPair(op, "output_size")
	if !ok {
		return nil, runtime.ParseParamMissingOutHW
	}
	return NewAdaptiveAvgPool2d(outputSize[0], outputSize[1]), runtime.ParseSuccess
}

func init() {
	runtime.RegisterCreator("nn.AdaptiveAvgPool2d", newAdaptiveAvgPool2d)
}
