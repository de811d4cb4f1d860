package kernel

import (
	"fmt"
	"sync"

	"github.com/itohio/tinyinfer/pkg/logger"
	"github.com/itohio/tinyinfer/pkg/primitive/fp32"
	"github.com/itohio/tinyinfer/pkg/runtime"
	"github.com/itohio/tinyinfer/pkg/tensor"
)

// Convolution is the 2-D convolution kernel, computed as im2col followed by
// one vector-matrix product per convolution kernel. Grouped convolution
// partitions both the input channels and the kernels; only dilation 1 and
// zero padding are supported.
//
// Each stored kernel tensor has in_channels/groups channels, so a kernel's
// flat buffer is directly the row vector the GEMM consumes.
type Convolution struct {
	attrBase
	paddingH int
	paddingW int
	strideH  int
	strideW  int
	groups   int
	useBias  bool
}

// NewConvolution returns a convolution kernel with outChannels kernels of
// (inChannels/groups, kernelH, kernelW).
func NewConvolution(outChannels, inChannels, kernelH, kernelW, paddingH, paddingW, strideH, strideW, groups int, useBias bool) *Convolution {
	c := &Convolution{
		paddingH: paddingH, paddingW: paddingW,
		strideH: strideH, strideW: strideW,
		groups:  groups,
		useBias: useBias,
	}
	c.initWeights(outChannels, inChannels/groups, kernelH, kernelW)
	if useBias {
		c.initBias(outChannels, 1, 1, 1)
	}
	return c
}

// SetWeights loads the flat row-major weight blob, one kernel after another.
func (c *Convolution) SetWeights(values []float32) { c.setWeights(values) }

// SetBias loads one scalar bias per kernel.
func (c *Convolution) SetBias(values []float32) { c.setBias(values) }

// Name implements runtime.Kernel.
func (c *Convolution) Name() string { return "Convolution" }

// Forward implements runtime.Kernel.
func (c *Convolution) Forward(inputs, outputs []*tensor.Tensor) runtime.Status {
	if status := checkBatch(c.Name(), inputs, outputs); status != runtime.StatusSuccess {
		return status
	}
	if c.strideH <= 0 || c.strideW <= 0 {
		logger.Log.Fatal().Int("stride_h", c.strideH).Int("stride_w", c.strideW).Msg("stride must be greater than 0")
	}
	if len(c.weights) == 0 {
		logger.Log.Fatal().Msg("weight count must be greater than 0")
	}
	if c.useBias && len(c.bias) != len(c.weights) {
		logger.Log.Fatal().Msg("weight and bias count do not match")
	}

	kernelCt := len(c.weights)
	if kernelCt%c.groups != 0 {
		logger.Log.Fatal().Int("kernels", kernelCt).Int("groups", c.groups).Msg("kernel count error")
	}
	kernelC := c.weights[0].Channels()
	kernelH := c.weights[0].Rows()
	kernelW := c.weights[0].Cols()
	for k, kernel := range c.weights {
		if kernel.Channels() != kernelC || kernel.Rows() != kernelH || kernel.Cols() != kernelW {
			logger.Log.Fatal().Int("kernel", k).Ints("shape", kernel.Shape()).Msg("kernel shape error")
		}
		if c.useBias && c.bias[k].Empty() {
			logger.Log.Fatal().Int("kernel", k).Msg("bias empty")
		}
	}

	gKernelCt := kernelCt / c.groups
	plane := kernelH * kernelW

	forEachBatch(c.Name(), len(inputs), func(b int) error {
		input := inputs[b]
		if input.Empty() {
			return fmt.Errorf("the %d input tensor is empty", b)
		}
		if c.paddingH > 0 || c.paddingW > 0 {
			input = tensor.Padding(input, []int{c.paddingH, c.paddingH, c.paddingW, c.paddingW}, 0)
		}

		inputC := input.Channels()
		inputH := input.Rows()
		inputW := input.Cols()
		if inputC%c.groups != 0 {
			return fmt.Errorf("the %d input tensor channels %d are not divisible by groups %d", b, inputC, c.groups)
		}
		gInputC := inputC / c.groups
		if gInputC != kernelC {
			return fmt.Errorf("the %d input tensor grouped channels %d do not equal kernel channels %d", b, gInputC, kernelC)
		}

		outputH := (inputH-kernelH)/c.strideH + 1
		outputW := (inputW-kernelW)/c.strideW + 1
		if outputH <= 0 || outputW <= 0 {
			return fmt.Errorf("the %d output shape (%d,%d) is not positive", b, outputH, outputW)
		}

		output, err := prepareOutput(outputs, b, kernelCt, outputH, outputW)
		if err != nil {
			return err
		}
		outPlane := outputH * outputW

		for g := 0; g < c.groups; g++ {
			// im2col: every sliding window becomes one column of
			// (gInputC*plane) rows, channels stacked, window serialized
			// column by column with contiguous kernelH block copies
			colLen := gInputC * plane
			inMat := make([]float32, colLen*outPlane)
			for ic := 0; ic < gInputC; ic++ {
				inChannel := input.Slice(g*gInputC + ic)
				colIdx := 0
				for w := 0; w+kernelW <= inputW; w += c.strideW {
					for r := 0; r+kernelH <= inputH; r += c.strideH {
						dst := inMat[colIdx*colLen+ic*plane:]
						for kw := 0; kw < kernelW; kw++ {
							copy(dst[kw*kernelH:(kw+1)*kernelH], inChannel[(w+kw)*inputH+r:(w+kw)*inputH+r+kernelH])
						}
						colIdx++
					}
				}
			}

			// one GEMM per kernel of the group; the products are independent
			var wg sync.WaitGroup
			for k := 0; k < gKernelCt; k++ {
				k := k
				wg.Add(1)
				go func() {
					defer wg.Done()
					kernel := c.weights[g*gKernelCt+k]
					outChannel := output.Slice(g*gKernelCt + k)
					fp32.VecMatCM(outChannel, kernel.Data(), inMat, colLen, colLen, outPlane)
					if c.useBias {
						fp32.AddScalar(outChannel, outPlane, c.bias[g*gKernelCt+k].Index(0))
					}
				}()
			}
			wg.Wait()
		}
		return nil
	})
	return runtime.StatusSuccess
}

func newConvolution(op *runtime.Operator) (runtime.Kernel, runtime.ParseStatus) {
	if op == nil {
		return nil, runtime.ParseOpEmpty
	}

	inChannels, ok := intParam(op, "in_channels")
	if !ok {
		return nil, runtime.ParseParamMissingInChannels
	}
	outChannels, ok := intParam(op, "out_channels")
	if !ok {
		return nil, runtime.ParseParamMissingOutChannels
	}
	kernelSize, ok := intPair(op, "kernel_size")
	if !ok {
		return nil, runtime.ParseParamMissingKernelSize
	}
	stride, ok := intPair(op, "stride")
	if !ok {
		return nil, runtime.ParseParamMissingStride
	}
	padding, ok := intPair(op, "padding")
	if !ok {
		return nil, runtime.ParseParamMissingPadding
	}

	paddingModeParam, ok := op.Params["padding_mode"]
	if !ok {
		return nil, runtime.ParseParamMissingPaddingMode
	}
	if paddingMode, ok := paddingModeParam.Str(); !ok || paddingMode != "zeros" {
		return nil, runtime.ParseParamMissingPaddingMode
	}

	dilation, ok := intPair(op, "dilation")
	if !ok {
		return nil, runtime.ParseParamMissingDilation
	}
	if dilation[0] != 1 || dilation[1] != 1 {
		logger.Log.Fatal().Ints("dilation", dilation).Msg("unsupported dilation value")
	}

	biasParam, ok := op.Params["bias"]
	if !ok {
		return nil, runtime.ParseParamMissingBias
	}
	useBias, ok := biasParam.Bool()
	if !ok {
		return nil, runtime.ParseParamMissingBias
	}

	groups, ok := intParam(op, "groups")
	if !ok {
		return nil, runtime.ParseParamMissingGroups
	}

	conv := NewConvolution(outChannels, inChannels, kernelSize[0], kernelSize[1],
		padding[0], padding[1], stride[0], stride[1], groups, useBias)

	weightAttr, ok := op.Attrs["weight"]
	if !ok || weightAttr == nil || len(weightAttr.Shape) == 0 {
		return nil, runtime.ParseAttrMissingWeight
	}
	conv.SetWeights(weightAttr.Get(true))

	if useBias {
		biasAttr, ok := op.Attrs["bias"]
		if !ok || biasAttr == nil {
			return nil, runtime.ParseAttrMissingBias
		}
		if len(biasAttr.Shape) == 0 || biasAttr.Shape[0] != outChannels {
			return nil, runtime.ParseAttrMissingBias
		}
		conv.SetBias(biasAttr.Get(true))
	}

	return conv, runtime.ParseSuccess
}

// intParam fetches a scalar int parameter.
func intParam(op *runtime.Operator, name string) (int, bool) {
	param, ok := op.Params[name]
	if !ok {
		return 0, false
	}
	return param.Int()
}

func init() {
	runtime.RegisterCreator("nn.Conv2d", newConvolution)
}
