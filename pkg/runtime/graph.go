package runtime

import (
	"github.com/itohio/tinyinfer/pkg/logger"
	"github.com/itohio/tinyinfer/pkg/pnnx"
	"github.com/itohio/tinyinfer/pkg/tensor"
)

// GraphState tracks the build lifecycle of a Graph.
type GraphState int

const (
	GraphNeedInit GraphState = iota
	GraphNeedBuild
	GraphComplete
)

// Graph is the executable computation graph loaded from a PNNX export.
// Callers must serialize Forward invocations on one graph: the readiness
// counters and the operand slots are mutated during execution.
type Graph struct {
	paramPath string
	binPath   string

	state GraphState
	ops   []*Operator

	inputOps  map[string]*Operator
	outputOps map[string]*Operator

	inputName  string
	outputName string

	pnnxGraph *pnnx.Graph // alive between Init and Build only
}

// NewGraph creates a graph over a .param/.bin path pair. The model is not
// touched until Init or Build.
func NewGraph(paramPath, binPath string) *Graph {
	return &Graph{
		paramPath: paramPath,
		binPath:   binPath,
		state:     GraphNeedInit,
	}
}

// State returns the current lifecycle state.
func (g *Graph) State() GraphState { return g.state }

// ParamPath returns the .param file path.
func (g *Graph) ParamPath() string { return g.paramPath }

// BinPath returns the .bin file path.
func (g *Graph) BinPath() string { return g.binPath }

// SetParamPath replaces the .param file path.
func (g *Graph) SetParamPath(path string) { g.paramPath = path }

// SetBinPath replaces the .bin file path.
func (g *Graph) SetBinPath(path string) { g.binPath = path }

// Ops returns the graph's operators in model order.
func (g *Graph) Ops() []*Operator { return g.ops }

// Init parses the model and converts it into runtime operators, moving the
// graph from NeedInit to NeedBuild. It reports false when the model cannot be
// loaded and leaves the state untouched in that case.
func (g *Graph) Init() bool {
	if g.paramPath == "" || g.binPath == "" {
		logger.Log.Error().Msg("the param file path or bin file path is empty")
		return false
	}

	graph, err := pnnx.Load(g.paramPath, g.binPath)
	if err != nil {
		logger.Log.Error().Err(err).Str("param", g.paramPath).Str("bin", g.binPath).Msg("load model failed")
		return false
	}
	if len(graph.Ops) == 0 {
		logger.Log.Error().Msg("can not read the pnnx graph operators")
		return false
	}
	g.pnnxGraph = graph

	g.ops = g.ops[:0]
	for _, pnnxOp := range graph.Ops {
		if pnnxOp == nil {
			logger.Log.Error().Msg("meet the empty operator")
			continue
		}
		op := &Operator{
			Name:          pnnxOp.Name,
			Type:          pnnxOp.Type,
			InOperandsMap: make(map[string]*Operand),
			OutOps:        make(map[string]*Operator),
			Params:        make(map[string]Parameter),
			Attrs:         make(map[string]*Attribute),
		}
		initOperatorInputs(pnnxOp.Inputs, op)
		initOperatorOutputs(pnnxOp.Outputs, op)
		initOperatorParams(pnnxOp.Params, op)
		initOperatorAttrs(pnnxOp.Attrs, op)
		g.ops = append(g.ops, op)
	}

	g.state = GraphNeedBuild
	return true
}

// initOperatorInputs copies input operand declarations. The operand name is
// its producer's name, which is how propagation finds the matching slot.
func initOperatorInputs(inputs []*pnnx.Operand, op *Operator) {
	for _, input := range inputs {
		if input == nil {
			continue
		}
		operand := &Operand{
			Name:  input.Producer.Name,
			Shape: input.Shape,
		}
		switch input.Type {
		case 1:
			operand.Type = TypeFloat32
		case 0:
			operand.Type = TypeUnknown
		default:
			logger.Log.Fatal().Int("type", input.Type).Msg("unsupported input operand type")
		}
		op.InOperands = append(op.InOperands, operand)
		op.InOperandsMap[operand.Name] = operand
	}
}

// initOperatorOutputs records successor names; the live handles are wired
// during Build.
func initOperatorOutputs(outputs []*pnnx.Operand, op *Operator) {
	for _, output := range outputs {
		if output == nil {
			continue
		}
		for _, consumer := range output.Consumers {
			op.OutOps[consumer.Name] = nil
		}
	}
}

func initOperatorParams(params map[string]pnnx.Parameter, op *Operator) {
	for name, param := range params {
		switch param.Type {
		case pnnx.ParamUnknown:
			op.Params[name] = NewUnknownParam()
		case pnnx.ParamBool:
			op.Params[name] = NewBoolParam(param.B)
		case pnnx.ParamInt:
			op.Params[name] = NewIntParam(param.I)
		case pnnx.ParamFloat:
			op.Params[name] = NewFloatParam(param.F)
		case pnnx.ParamString:
			op.Params[name] = NewStringParam(param.S)
		case pnnx.ParamIntList:
			op.Params[name] = NewIntListParam(param.AI)
		case pnnx.ParamFloatList:
			op.Params[name] = NewFloatListParam(param.AF)
		case pnnx.ParamStringList:
			op.Params[name] = NewStringListParam(param.AS)
		default:
			logger.Log.Fatal().Int("type", param.Type).Str("param", name).Msg("unsupported parameter type")
		}
	}
}

func initOperatorAttrs(attrs map[string]pnnx.Attribute, op *Operator) {
	for name, attr := range attrs {
		switch attr.Type {
		case 1:
			op.Attrs[name] = &Attribute{
				Type:  TypeFloat32,
				Shape: attr.Shape,
				Data:  attr.Data,
			}
		default:
			logger.Log.Fatal().Int("type", attr.Type).Str("attr", name).Msg("unsupported attribute type")
		}
	}
}

// Build wires successors, instantiates kernels and allocates operand slots,
// moving the graph to Complete. Building an already complete graph is a
// no-op. inputName and outputName select the sentinel pair Forward runs
// between.
func (g *Graph) Build(inputName, outputName string) {
	if g.state == GraphNeedInit {
		if !g.Init() {
			logger.Log.Fatal().Msg("init graph failed")
		}
	}
	if g.state == GraphComplete {
		return
	}
	if len(g.ops) == 0 {
		logger.Log.Fatal().Msg("graph operators are empty, may be no init")
	}

	// resolve successor names into live handles
	for _, cur := range g.ops {
		for _, next := range g.ops {
			if next == cur {
				continue
			}
			if _, ok := cur.OutOps[next.Name]; ok {
				cur.OutOps[next.Name] = next
			}
		}
	}

	// partition sentinels and create kernels for everything else
	g.inputOps = make(map[string]*Operator)
	g.outputOps = make(map[string]*Operator)
	for _, op := range g.ops {
		switch op.Type {
		case "pnnx.Input":
			g.inputOps[op.Name] = op
		case "pnnx.Output":
			g.outputOps[op.Name] = op
		default:
			op.Kernel = CreateKernel(op)
		}
	}

	g.initOperatorsInput()
	g.initOperatorsOutput()

	g.state = GraphComplete
	g.inputName = inputName
	g.outputName = outputName

	g.pnnxGraph = nil
}

// initOperatorsInput sizes every input operand's slot array to the declared
// batch. No tensor bodies are allocated: inputs inherit their producer's
// output handles during execution.
func (g *Graph) initOperatorsInput() {
	for _, op := range g.ops {
		for _, operand := range op.InOperands {
			if operand.Type != TypeFloat32 && op.Type != "pnnx.Input" && op.Type != "pnnx.Output" {
				logger.Log.Fatal().Str("op", op.Name).Msg("only float32 operands are supported")
			}
			if len(operand.Shape) == 0 {
				logger.Log.Fatal().Str("op", op.Name).Msg("input operand shape is empty")
			}
			batch := operand.Shape[0]
			if batch <= 0 {
				logger.Log.Fatal().Str("op", op.Name).Int("batch", batch).Msg("dynamic batch size is not supported")
			}
			if n := len(operand.Shape); n != 2 && n != 3 && n != 4 {
				logger.Log.Fatal().Str("op", op.Name).Ints("shape", operand.Shape).Msg("unsupported input operand shape")
			}
			if len(operand.Data) != 0 {
				if len(operand.Data) != batch {
					logger.Log.Fatal().Str("op", op.Name).Msg("input tensor count not equal to batch")
				}
			} else {
				operand.Data = make([]*tensor.Tensor, batch)
			}
		}
	}
}

// initOperatorsOutput allocates one fresh tensor per batch slot of every
// declared output operand, sized from the declared post-batch shape. The input
// sentinel's output operand is allocated too; Forward checks the caller's batch
// against its slot count. On rebuild, tensors a previous run reshaped are
// restored column-major.
func (g *Graph) initOperatorsOutput() {
	if g.pnnxGraph == nil || len(g.pnnxGraph.Ops) != len(g.ops) {
		logger.Log.Fatal().Msg("pnnx graph missing or out of sync while allocating outputs")
	}
	for i, pnnxOp := range g.pnnxGraph.Ops {
		outputs := pnnxOp.Outputs
		if len(outputs) == 0 {
			continue
		}
		if len(outputs) != 1 {
			logger.Log.Fatal().Str("op", pnnxOp.Name).Msg("one operator supports at most one output operand")
		}
		pnnxOperand := outputs[0]
		shape := pnnxOperand.Shape
		if len(shape) == 0 {
			logger.Log.Fatal().Str("op", pnnxOp.Name).Msg("output operand shape is empty")
		}
		batch := shape[0]
		if batch <= 0 {
			logger.Log.Fatal().Str("op", pnnxOp.Name).Int("batch", batch).Msg("dynamic batch size is not supported")
		}
		if n := len(shape); n != 2 && n != 3 && n != 4 {
			logger.Log.Fatal().Str("op", pnnxOp.Name).Ints("shape", shape).Msg("unsupported output operand shape")
		}

		op := g.ops[i]
		if op.OutOperand == nil {
			operand := &Operand{
				Name:  pnnxOperand.Name + "_output",
				Shape: shape,
				Type:  TypeFloat32,
				Data:  make([]*tensor.Tensor, 0, batch),
			}
			for b := 0; b < batch; b++ {
				operand.Data = append(operand.Data, tensor.NewShape(tensorShape(shape)))
			}
			op.OutOperand = operand
			continue
		}

		// rebuild path: restore tensors a previous run reshaped
		if op.OutOperand.Type != TypeFloat32 {
			logger.Log.Fatal().Str("op", op.Name).Msg("output operand type drifted")
		}
		want := tensorShape(shape)
		for b := 0; b < batch; b++ {
			t := op.OutOperand.Data[b]
			have := t.Shape()
			if have[0] != want[0] || have[1] != want[1] || have[2] != want[2] {
				t.Reshape(want, false)
			}
		}
	}
}

// tensorShape maps a declared operand shape (with batch axis) onto the
// physical (channels, rows, cols) cube of one batch element.
func tensorShape(shape []int) []int {
	switch len(shape) {
	case 2:
		return []int{1, shape[1], 1}
	case 3:
		return []int{1, shape[1], shape[2]}
	default:
		return []int{shape[1], shape[2], shape[3]}
	}
}
