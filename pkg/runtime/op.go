package runtime

import (
	"github.com/itohio/tinyinfer/pkg/logger"
	"github.com/itohio/tinyinfer/pkg/tensor"
)

// Operand is a named, typed edge of the computation graph carrying a
// fixed-length batch of tensor handles.
type Operand struct {
	Name  string
	Shape []int // declared shape including the leading batch dimension
	Type  DataType
	Data  []*tensor.Tensor
}

// Kernel is the uniform contract every operator implementation satisfies.
// Forward reads the concatenated input tensor batch and writes the output
// batch in place.
type Kernel interface {
	Name() string
	Forward(inputs, outputs []*tensor.Tensor) Status
}

// Creator builds a kernel from a graph node, reading its parameters and
// attributes. A non-success ParseStatus aborts the build.
type Creator func(op *Operator) (Kernel, ParseStatus)

// Operator is one runtime node: the sentinels carry no kernel, everything
// else owns exactly one.
type Operator struct {
	Name string
	Type string

	Kernel  Kernel
	MeetNum int // number of in-edges satisfied so far

	InOperands    []*Operand            // ordered as declared by the model
	InOperandsMap map[string]*Operand   // keyed by producer name
	OutOperand    *Operand              // single output
	OutOps        map[string]*Operator  // successors keyed by name

	Params map[string]Parameter
	Attrs  map[string]*Attribute
}

// ready reports whether every predecessor has published its output here.
func (op *Operator) ready() bool {
	if op.MeetNum > len(op.InOperandsMap) {
		logger.Log.Fatal().Str("op", op.Name).Int("meet", op.MeetNum).Msg("meet counter exceeds in-degree")
	}
	return op.MeetNum == len(op.InOperandsMap)
}

// forwardKernel concatenates the tensors of all input operands in declared
// order and invokes the kernel against the output operand's batch.
func (op *Operator) forwardKernel() Status {
	var inputs []*tensor.Tensor
	for _, operand := range op.InOperands {
		inputs = append(inputs, operand.Data...)
	}
	if len(inputs) == 0 {
		logger.Log.Fatal().Str("op", op.Name).Msg("operator input data is empty")
	}
	if op.OutOperand == nil || len(op.OutOperand.Data) == 0 {
		logger.Log.Fatal().Str("op", op.Name).Msg("operator output data is empty")
	}
	return op.Kernel.Forward(inputs, op.OutOperand.Data)
}
