package kernel

import (
	"fmt"

	"github.com/itohio/tinyinfer/pkg/logger"
	"github.com/itohio/tinyinfer/pkg/primitive/fp32"
	"github.com/itohio/tinyinfer/pkg/runtime"
	"github.com/itohio/tinyinfer/pkg/tensor"
)

// Linear is the fully connected kernel. The single weight tensor is a
// logically row-major outFeatures × inFeatures matrix; each input tensor's
// buffer is treated as an inFeatures × K column-major matrix of K feature
// columns.
type Linear struct {
	attrBase
	inFeatures  int
	outFeatures int
	useBias     bool
}

// NewLinear returns a fully connected kernel.
func NewLinear(inFeatures, outFeatures int, useBias bool) *Linear {
	l := &Linear{
		inFeatures:  inFeatures,
		outFeatures: outFeatures,
		useBias:     useBias,
	}
	l.initWeights(1, 1, outFeatures, inFeatures)
	if useBias {
		l.initBias(1, 1, outFeatures, 1)
	}
	return l
}

// SetWeights loads the flat row-major weight blob.
func (l *Linear) SetWeights(values []float32) { l.setWeights(values) }

// SetBias loads the flat bias blob.
func (l *Linear) SetBias(values []float32) { l.setBias(values) }

// Name implements runtime.Kernel.
func (l *Linear) Name() string { return "Linear" }

// Forward implements runtime.Kernel.
func (l *Linear) Forward(inputs, outputs []*tensor.Tensor) runtime.Status {
	if status := checkBatch(l.Name(), inputs, outputs); status != runtime.StatusSuccess {
		return status
	}
	if len(l.weights) != 1 {
		logger.Log.Fatal().Int("count", len(l.weights)).Msg("the weight count must be 1")
	}
	weight := l.weights[0]
	if weight.Empty() {
		logger.Log.Fatal().Msg("the weight is empty")
	}
	if weight.Rows() != l.outFeatures || weight.Cols() != l.inFeatures {
		logger.Log.Fatal().Ints("shape", weight.Shape()).Msg("weight shape error")
	}
	if l.useBias && len(l.bias) != len(l.weights) {
		logger.Log.Fatal().Int("count", len(l.bias)).Msg("the bias count is not 1")
	}

	forEachBatch(l.Name(), len(inputs), func(b int) error {
		input := inputs[b]
		if input.Empty() {
			return fmt.Errorf("the %d input tensor is empty", b)
		}
		shape := input.Shape()
		if shape[0] != 1 || shape[1] != l.inFeatures {
			return fmt.Errorf("the %d input tensor shape %v does not match in_features %d", b, shape, l.inFeatures)
		}
		// one input may carry several feature columns
		inDims := shape[2]

		output, err := prepareOutput(outputs, b, 1, l.outFeatures, inDims)
		if err != nil {
			return err
		}

		// weight buffer is column-major outFeatures × inFeatures thanks to the
		// row-major fill, so this is a plain column-major GEMM
		fp32.GemmCM(output.Data(), weight.Data(), input.Data(),
			l.outFeatures, l.outFeatures, l.inFeatures,
			l.outFeatures, inDims, l.inFeatures)

		if l.useBias {
			biasTensor := l.bias[0]
			if biasTensor.Empty() {
				return fmt.Errorf("the bias is empty")
			}
			if biasTensor.Channels() != 1 || biasTensor.Rows() != l.outFeatures {
				return fmt.Errorf("bias shape %v does not match out_features %d", biasTensor.Shape(), l.outFeatures)
			}
			out := output.Data()
			for k := 0; k < inDims; k++ {
				fp32.Axpy(out[k*l.outFeatures:], biasTensor.Data(), 1, 1, l.outFeatures, 1)
			}
		}
		return nil
	})
	return runtime.StatusSuccess
}

func newLinear(op *runtime.Operator) (runtime.Kernel, runtime.ParseStatus) {
	if op == nil {
		return nil, runtime.ParseOpEmpty
	}
	biasParam, ok := op.Params["bias"]
	if !ok {
		return nil, runtime.ParseParamMissingBias
	}
	useBias, ok := biasParam.Bool()
	if !ok {
		return nil, runtime.ParseParamMissingBias
	}

	weightAttr, ok := op.Attrs["weight"]
	if !ok || weightAttr == nil {
		return nil, runtime.ParseAttrMissingWeight
	}
	if len(weightAttr.Shape) < 2 {
		return nil, runtime.ParseAttrMissingOutFeatures
	}
	outFeatures := weightAttr.Shape[0]
	inFeatures := weightAttr.Shape[1]

	var biasAttr *runtime.Attribute
	if useBias {
		biasAttr, ok = op.Attrs["bias"]
		if !ok || biasAttr == nil {
			return nil, runtime.ParseAttrMissingBias
		}
	}

	linear := NewLinear(inFeatures, outFeatures, useBias)
	linear.SetWeights(weightAttr.Get(true))
	if useBias {
		linear.SetBias(biasAttr.Get(true))
	}
	return linear, runtime.ParseSuccess
}

func init() {
	runtime.RegisterCreator("nn.Linear", newLinear)
}
