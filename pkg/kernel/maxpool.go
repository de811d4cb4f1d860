package kernel

import (
	"fmt"

	"github.com/chewxy/math32"
	"github.com/itohio/tinyinfer/pkg/logger"
	"github.com/itohio/tinyinfer/pkg/runtime"
	"github.com/itohio/tinyinfer/pkg/tensor"
)

// MaxPool2d slides a (kernelH, kernelW) window with (strideH, strideW) stride
// and emits the window maximum. Padding cells are pre-filled with the lowest
// finite float so they never win.
type MaxPool2d struct {
	paddingH int
	paddingW int
	kernelH  int
	kernelW  int
	strideH  int
	strideW  int
}

// NewMaxPool2d returns a max-pooling kernel.
func NewMaxPool2d(paddingH, paddingW, kernelH, kernelW, strideH, strideW int) *MaxPool2d {
	return &MaxPool2d{
		paddingH: paddingH, paddingW: paddingW,
		kernelH: kernelH, kernelW: kernelW,
		strideH: strideH, strideW: strideW,
	}
}

// Name implements runtime.Kernel.
func (m *MaxPool2d) Name() string { return "MaxPooling" }

// Forward implements runtime.Kernel.
func (m *MaxPool2d) Forward(inputs, outputs []*tensor.Tensor) runtime.Status {
	if status := checkBatch(m.Name(), inputs, outputs); status != runtime.StatusSuccess {
		return status
	}
	if m.strideH <= 0 || m.strideW <= 0 {
		logger.Log.Fatal().Int("stride_h", m.strideH).Int("stride_w", m.strideW).Msg("stride must be greater than 0")
	}

	lowest := float32(-math32.MaxFloat32)

	forEachBatch(m.Name(), len(inputs), func(b int) error {
		input := inputs[b]
		if input.Empty() {
			return fmt.Errorf("the %d input tensor is empty", b)
		}
		if m.paddingH > 0 || m.paddingW > 0 {
			input = tensor.Padding(input, []int{m.paddingH, m.paddingH, m.paddingW, m.paddingW}, lowest)
		}

		inputC := input.Channels()
		inputH := input.Rows()
		inputW := input.Cols()

		outputH := (inputH-m.kernelH)/m.strideH + 1
		outputW := (inputW-m.kernelW)/m.strideW + 1
		if outputH <= 0 || outputW <= 0 {
			return fmt.Errorf("the %d output shape (%d,%d) is not positive", b, outputH, outputW)
		}

		output, err := prepareOutput(outputs, b, inputC, outputH, outputW)
		if err != nil {
			return err
		}

		for ic := 0; ic < inputC; ic++ {
			inChannel := input.Slice(ic)
			outChannel := output.Slice(ic)
			for c := 0; c+m.kernelW <= inputW; c += m.strideW {
				for r := 0; r+m.kernelH <= inputH; r += m.strideH {
					maxVal := lowest
					for w := 0; w < m.kernelW; w++ {
						col := inChannel[(c+w)*inputH+r:]
						for h := 0; h < m.kernelH; h++ {
							if col[h] > maxVal {
								maxVal = col[h]
							}
						}
					}
					outChannel[(c/m.strideW)*outputH+r/m.strideH] = maxVal
				}
			}
		}
		return nil
	})
	return runtime.StatusSuccess
}

func newMaxPool2d(op *runtime.Operator) (runtime.Kernel, runtime.ParseStatus) {
	if op == nil {
		return nil, runtime.ParseOpEmpty
	}
	stride, ok := intPair(op, "stride")
	if !ok {
		return nil, runtime.ParseParamMissingStride
	}
	padding, ok := intPair(op, "padding")
	if !ok {
		return nil, runtime.ParseParamMissingPadding
	}
	kernelSize, ok := intPair(op, "kernel_size")
	if !ok {
		return nil, runtime.ParseParamMissingKernelSize
	}
	return NewMaxPool2d(padding[0], padding[1], kernelSize[0], kernelSize[1], stride[0], stride[1]), runtime.ParseSuccess
}

// intPair fetches a 2-element int-list parameter.
func intPair(op *runtime.Operator, name string) ([]int, bool) {
	param, ok := op.Params[name]
	if !ok {
		return nil, false
	}
	values, ok := param.IntList()
	if !ok || len(values) != 2 {
		return nil, false
	}
	return values, true
}

func init() {
	runtime.RegisterCreator("nn.MaxPool2d", newMaxPool2d)
}
