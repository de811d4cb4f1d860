package runtime

import (
	"time"

	"github.com/itohio/tinyinfer/pkg/logger"
	"github.com/itohio/tinyinfer/pkg/tensor"
)

// Forward runs the graph on a batch of input tensors and returns the output
// batch. The graph must be Complete and the batch size must match the input
// operand's declared batch. With debug, per-operator-type wall-clock totals
// are logged at the end.
//
// Execution is breadth-first: nodes enter the work queue once all their
// in-edges are satisfied, so every predecessor's forward has returned before
// a node runs.
func (g *Graph) Forward(inputs []*tensor.Tensor, debug bool) []*tensor.Tensor {
	if g.state != GraphComplete {
		logger.Log.Fatal().Int("state", int(g.state)).Msg("graph needs to be built before forward")
	}

	inputOp, ok := g.inputOps[g.inputName]
	if !ok {
		logger.Log.Fatal().Str("name", g.inputName).Msg("can not find the input operator")
	}
	outputOp, ok := g.outputOps[g.outputName]
	if !ok {
		logger.Log.Fatal().Str("name", g.outputName).Msg("can not find the output operator")
	}
	if inputOp.OutOperand != nil && len(inputs) != len(inputOp.OutOperand.Data) {
		logger.Log.Fatal().Int("got", len(inputs)).Int("want", len(inputOp.OutOperand.Data)).
			Msg("input batch does not match the declared batch")
	}

	queue := []*Operator{inputOp}
	durations := make(map[string]time.Duration)

	if debug {
		logger.Log.Info().Int("batch", len(inputs)).Msg("inference starting")
		for b, in := range inputs {
			logger.Log.Info().Int("index", b).Ints("shape", in.Shape()).Msg("input tensor")
		}
	}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		if cur == nil || cur == outputOp {
			if debug {
				logger.Log.Info().Msg("inference ended")
			}
			break
		}

		if cur == inputOp {
			// the caller-supplied batch is the sentinel's output
			g.probeNextOp(cur, &queue, inputs)
			continue
		}

		start := time.Now()
		status := cur.forwardKernel()
		if status != StatusSuccess {
			logger.Log.Fatal().Str("op", cur.Name).Str("kernel", cur.Kernel.Name()).
				Stringer("status", status).Msg("kernel forward failed")
		}
		if debug {
			durations[cur.Type] += time.Since(start)
		}

		copyStart := time.Now()
		g.probeNextOp(cur, &queue, cur.OutOperand.Data)
		if debug {
			durations["Copy"] += time.Since(copyStart)
		}
	}

	for _, op := range g.ops {
		op.MeetNum = 0
	}

	if debug {
		var total time.Duration
		for opType, duration := range durations {
			logger.Log.Info().Str("type", opType).Dur("duration", duration).Msg("op time cost")
			total += duration
		}
		logger.Log.Info().Dur("duration", total).Msg("all time cost")
	}

	if len(outputOp.InOperandsMap) != 1 {
		logger.Log.Fatal().Int("count", len(outputOp.InOperandsMap)).
			Msg("only one input operand to the output operator is supported")
	}
	return outputOp.InOperands[0].Data
}

// probeNextOp publishes cur's output batch to every successor whose input
// operand map references cur, bumping their readiness counters and enqueuing
// the ones that become ready. Only handles are rebound; tensor contents are
// never copied.
func (g *Graph) probeNextOp(cur *Operator, queue *[]*Operator, outputs []*tensor.Tensor) {
	for _, next := range cur.OutOps {
		operand, ok := next.InOperandsMap[cur.Name]
		if !ok {
			continue
		}
		for b := range operand.Data {
			operand.Data[b] = outputs[b]
		}
		next.MeetNum++
		if next.ready() {
			*queue = append(*queue, next)
		}
	}
}
