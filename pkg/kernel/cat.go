package kernel

import (
	"fmt"

	"github.com/itohio/tinyinfer/pkg/logger"
	"github.com/itohio/tinyinfer/pkg/primitive/fp32"
	"github.com/itohio/tinyinfer/pkg/runtime"
	"github.com/itohio/tinyinfer/pkg/tensor"
)

// Cat concatenates tensors along the channel axis. The input batch carries
// the tensors of every source back to back, so input b, b+outBatch,
// b+2*outBatch, … make up output b.
type Cat struct {
	dim int
}

// NewCat returns a concatenation kernel. Only the channel axis is supported;
// dim must be 1 or -3.
func NewCat(dim int) *Cat {
	return &Cat{dim: dim}
}

// Name implements runtime.Kernel.
func (c *Cat) Name() string { return "Cat" }

// Forward implements runtime.Kernel.
func (c *Cat) Forward(inputs, outputs []*tensor.Tensor) runtime.Status {
	if status := checkPacketBatch(c.Name(), inputs, outputs); status != runtime.StatusSuccess {
		return status
	}
	if c.dim != 1 && c.dim != -3 {
		logger.Log.Fatal().Int("dim", c.dim).Msg("only channel concatenation is supported")
	}

	inBatch := len(inputs)
	outBatch := len(outputs)
	packetSize := inBatch / outBatch

	rows := inputs[0].Rows()
	cols := inputs[0].Cols()

	forEachBatch(c.Name(), outBatch, func(b int) error {
		channelIdx := 0
		for ib := b; ib < inBatch; ib += outBatch {
			input := inputs[ib]
			if input.Empty() {
				return fmt.Errorf("the %d input tensor is empty", ib)
			}
			if input.Rows() != rows || input.Cols() != cols {
				return fmt.Errorf("the %d input tensor plane (%d,%d) does not match (%d,%d)",
					ib, input.Rows(), input.Cols(), rows, cols)
			}
			inChannels := input.Channels()

			output, err := prepareOutput(outputs, b, inChannels*packetSize, rows, cols)
			if err != nil {
				return err
			}
			for ic := 0; ic < inChannels; ic++ {
				fp32.Copy(output.Slice(channelIdx+ic), input.Slice(ic), 1, 1, rows*cols)
			}
			channelIdx += inChannels
		}
		return nil
	})
	return runtime.StatusSuccess
}

func newCat(op *runtime.Operator) (runtime.Kernel, runtime.ParseStatus) {
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
	return NewCat(dim), runtime.ParseSuccess
}

func init() {
	runtime.RegisterCreator("torch.cat", newCat)
}
