package kernel

import (
	"fmt"

	"github.com/itohio/tinyinfer/pkg/primitive/fp32"
	"github.com/itohio/tinyinfer/pkg/runtime"
	"github.com/itohio/tinyinfer/pkg/tensor"
)

// activation is the shared forward of the shape-preserving elementwise
// kernels. apply maps the input buffer onto the output buffer.
type activation struct {
	name  string
	apply func(dst, src []float32, num int)
}

func (a *activation) Name() string { return a.name }

func (a *activation) Forward(inputs, outputs []*tensor.Tensor) runtime.Status {
	if status := checkBatch(a.name, inputs, outputs); status != runtime.StatusSuccess {
		return status
	}
	forEachBatch(a.name, len(inputs), func(b int) error {
		input := inputs[b]
		if input.Empty() {
			return fmt.Errorf("the %d input tensor is empty", b)
		}
		output, err := prepareOutput(outputs, b, input.Channels(), input.Rows(), input.Cols())
		if err != nil {
			return err
		}
		a.apply(output.Data(), input.Data(), input.Size())
		return nil
	})
	return runtime.StatusSuccess
}

// NewReLU returns the rectified linear unit kernel: out = max(0, in).
func NewReLU() runtime.Kernel {
	return &activation{name: "ReLU", apply: fp32.ReLU}
}

// NewSigmoid returns the logistic sigmoid kernel: out = 1/(1+exp(-in)).
func NewSigmoid() runtime.Kernel {
	return &activation{name: "Sigmoid", apply: fp32.Sigmoid}
}

// NewHardSigmoid returns the piecewise-linear sigmoid approximation.
func NewHardSigmoid() runtime.Kernel {
	return &activation{name: "HardSigmoid", apply: fp32.HardSigmoid}
}

// NewHardSwish returns the hard-swish kernel.
func NewHardSwish() runtime.Kernel {
	return &activation{name: "HardSwish", apply: fp32.HardSwish}
}

func creatorFor(build func() runtime.Kernel) runtime.Creator {
	return func(op *runtime.Operator) (runtime.Kernel, runtime.ParseStatus) {
		if op == nil {
			return nil, runtime.ParseOpEmpty
		}
		return build(), runtime.ParseSuccess
	}
}

func init() {
	runtime.RegisterCreator("nn.ReLU", creatorFor(NewReLU))
	runtime.RegisterCreator("nn.Sigmoid", creatorFor(NewSigmoid))
	runtime.RegisterCreator("nn.Hardsigmoid", creatorFor(NewHardSigmoid))
	runtime.RegisterCreator("nn.Hardswish", creatorFor(NewHardSwish))
}
