// Package kernel implements the operator catalog of the inference engine.
// Importing the package registers every kernel constructor in the runtime
// registry, keyed by the PNNX operator-type string.
package kernel

import (
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/itohio/tinyinfer/pkg/logger"
	"github.com/itohio/tinyinfer/pkg/runtime"
	"github.com/itohio/tinyinfer/pkg/tensor"
)

// checkBatch validates the common one-to-one batch contract.
func checkBatch(name string, inputs, outputs []*tensor.Tensor) runtime.Status {
	if len(inputs) == 0 {
		logger.Log.Error().Str("kernel", name).Msg("the input tensor array is empty")
		return runtime.StatusFailedInputEmpty
	}
	if len(inputs) != len(outputs) {
		logger.Log.Error().Str("kernel", name).Int("in", len(inputs)).Int("out", len(outputs)).
			Msg("the input and output tensor array batch do not match")
		return runtime.StatusFailedBatchMismatch
	}
	return runtime.StatusSuccess
}

// checkPacketBatch validates the many-to-one batch contract of Cat and
// Expression: the input count must be a positive multiple of the output
// count and not equal to it.
func checkPacketBatch(name string, inputs, outputs []*tensor.Tensor) runtime.Status {
	if len(inputs) == 0 {
		logger.Log.Error().Str("kernel", name).Msg("the input tensor array is empty")
		return runtime.StatusFailedInputEmpty
	}
	if len(outputs) == 0 || len(inputs) == len(outputs) || len(inputs)%len(outputs) != 0 {
		logger.Log.Error().Str("kernel", name).Int("in", len(inputs)).Int("out", len(outputs)).
			Msg("the input and output tensor array batch do not match")
		return runtime.StatusFailedBatchMismatch
	}
	return runtime.StatusSuccess
}

// forEachBatch runs fn data-parallel over the batch indices and joins before
// returning. A worker error is a shape violation and therefore fatal: it is
// logged and the call panics.
func forEachBatch(name string, batch int, fn func(b int) error) {
	var eg errgroup.Group
	for b := 0; b < batch; b++ {
		b := b
		eg.Go(func() error { return fn(b) })
	}
	if err := eg.Wait(); err != nil {
		logger.Log.Panic().Str("kernel", name).Err(err).Msg("kernel forward failed")
	}
}

// prepareOutput allocates the output tensor of one batch slot when the
// builder has not, and verifies its shape otherwise.
func prepareOutput(outputs []*tensor.Tensor, b int, channels, rows, cols int) (*tensor.Tensor, error) {
	output := outputs[b]
	if output.Empty() {
		output = tensor.New(channels, rows, cols)
		outputs[b] = output
		return output, nil
	}
	if output.Channels() != channels || output.Rows() != rows || output.Cols() != cols {
		return nil, fmt.Errorf("the %d output tensor shape (%d,%d,%d) does not match (%d,%d,%d)",
			b, output.Channels(), output.Rows(), output.Cols(), channels, rows, cols)
	}
	return output, nil
}
