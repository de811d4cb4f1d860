package kernel

import (
	"fmt"

	"github.com/itohio/tinyinfer/pkg/expr"
	"github.com/itohio/tinyinfer/pkg/logger"
	"github.com/itohio/tinyinfer/pkg/runtime"
	"github.com/itohio/tinyinfer/pkg/tensor"
)

// Expression evaluates a small add/mul expression over its input sources.
// The input batch carries the tensors of every source back to back, so "@k"
// denotes inputs[k*N : (k+1)*N] for output batch N.
type Expression struct {
	parser *expr.Parser
}

// NewExpression returns an expression kernel over statement.
func NewExpression(statement string) *Expression {
	return &Expression{parser: expr.NewParser(statement)}
}

// Name implements runtime.Kernel.
func (e *Expression) Name() string { return "Expression" }

// Forward implements runtime.Kernel.
func (e *Expression) Forward(inputs, outputs []*tensor.Tensor) runtime.Status {
	if status := checkPacketBatch(e.Name(), inputs, outputs); status != runtime.StatusSuccess {
		return status
	}
	for ib, input := range inputs {
		if input.Empty() {
			logger.Log.Error().Int("index", ib).Msg("the input tensor is empty")
			return runtime.StatusFailedInputEmpty
		}
	}

	batch := len(outputs)
	for b := range outputs {
		if outputs[b].Empty() {
			outputs[b] = tensor.New(inputs[0].Channels(), inputs[0].Rows(), inputs[0].Cols())
		}
	}

	if e.parser == nil {
		logger.Log.Fatal().Msg("the expression parser is empty")
	}
	e.parser.Tokenize(false)
	if len(e.parser.Tokens()) == 0 {
		logger.Log.Fatal().Msg("tokenize failed")
	}

	// evaluate the reverse-Polish form with a stack of tensor batches
	var stack [][]*tensor.Tensor
	for _, node := range e.parser.Generate() {
		if node.Num >= 0 {
			start := node.Num * batch
			if start+batch > len(inputs) {
				logger.Log.Fatal().Int("input", node.Num).Msg("expression input index out of range")
			}
			stack = append(stack, inputs[start:start+batch])
			continue
		}

		if len(stack) < 2 {
			logger.Log.Fatal().Msg("the number of operands is less than two")
		}
		right := stack[len(stack)-1]
		left := stack[len(stack)-2]
		stack = stack[:len(stack)-2]

		result := make([]*tensor.Tensor, batch)
		op := node.Num
		forEachBatch(e.Name(), batch, func(b int) error {
			switch expr.TokenType(op) {
			case expr.TokenAdd:
				result[b] = tensor.ElemAdd(left[b], right[b])
			case expr.TokenMul:
				result[b] = tensor.ElemMul(left[b], right[b])
			default:
				return fmt.Errorf("unsupported operation type %d", op)
			}
			return nil
		})
		stack = append(stack, result)
	}

	if len(stack) != 1 {
		logger.Log.Fatal().Int("depth", len(stack)).Msg("expression evaluation left a bad stack")
	}
	for b, result := range stack[0] {
		if outputs[b].Size() != result.Size() {
			logger.Log.Fatal().Int("index", b).Msg("expression result shape mismatch")
		}
		outputs[b] = result
	}
	return runtime.StatusSuccess
}

func newExpression(op *runtime.Operator) (runtime.Kernel, runtime.ParseStatus) {
	if op == nil {
		return nil, runtime.ParseOpEmpty
	}
	param, ok := op.Params["expr"]
	if !ok {
		return nil, runtime.ParseParamMissingExpr
	}
	statement, ok := param.Str()
	if !ok {
		return nil, runtime.ParseParamMissingExpr
	}
	return NewExpression(statement), runtime.ParseSuccess
}

func init() {
	runtime.RegisterCreator("pnnx.Expression", newExpression)
}
