package tensor

import (
	"fmt"

	"github.com/chewxy/math32"
	"github.com/itohio/tinyinfer/pkg/primitive/fp32"
)

// Padding returns a new tensor with the spatial dimensions grown by
// pads = {up, down, left, right}, new cells filled with value.
func Padding(t *Tensor, pads []int, value float32) *Tensor {
	if t.Empty() {
		panic("tensor.Padding: tensor is empty")
	}
	if len(pads) != 4 {
		panic(fmt.Sprintf("tensor.Padding: pads must have 4 elements, got %v", pads))
	}
	up, down, left, right := pads[0], pads[1], pads[2], pads[3]

	out := New(t.channels, t.rows+up+down, t.cols+left+right)
	if value != 0 {
		out.Fill(value)
	}

	for c := 0; c < t.channels; c++ {
		in := t.Slice(c)
		dst := out.Slice(c)
		for col := 0; col < t.cols; col++ {
			// both buffers are column-major, so one column is one block copy
			fp32.Copy(dst[(col+left)*out.rows+up:], in[col*t.rows:], 1, 1, t.rows)
		}
	}
	return out
}

// Broadcast expands two tensors to a common shape. Equal shapes pass through
// unchanged. Otherwise the channel counts must match and the operand whose
// channels are 1×1 scalars is tiled over the other operand's plane.
func Broadcast(a, b *Tensor) (*Tensor, *Tensor) {
	if a == nil || b == nil {
		panic("tensor.Broadcast: nil tensor")
	}
	if sameShape(a, b) {
		return a, b
	}
	if a.channels != b.channels {
		panic(fmt.Sprintf("tensor.Broadcast: channel mismatch %d vs %d", a.channels, b.channels))
	}
	if b.rows == 1 && b.cols == 1 {
		return a, tile(b, a.rows, a.cols)
	}
	if a.rows == 1 && a.cols == 1 {
		return tile(a, b.rows, b.cols), b
	}
	panic(fmt.Sprintf("tensor.Broadcast: shapes %v and %v are not adapting", a.Shape(), b.Shape()))
}

func tile(t *Tensor, rows, cols int) *Tensor {
	out := New(t.channels, rows, cols)
	for c := 0; c < t.channels; c++ {
		fp32.Fill(out.Slice(c), rows*cols, t.Index(c))
	}
	return out
}

// ElemAdd returns the element-wise sum of two tensors, broadcasting first if
// their shapes differ.
func ElemAdd(a, b *Tensor) *Tensor {
	a, b = broadcastIfNeeded(a, b)
	out := NewShape(a.Shape())
	fp32.Add(out.data, a.data, b.data, len(out.data))
	return out
}

// ElemAddTo writes the element-wise sum of a and b into out.
func ElemAddTo(a, b, out *Tensor) {
	res := ElemAdd(a, b)
	assignShape(out, res)
}

// ElemMul returns the element-wise product of two tensors, broadcasting first
// if their shapes differ.
func ElemMul(a, b *Tensor) *Tensor {
	a, b = broadcastIfNeeded(a, b)
	out := NewShape(a.Shape())
	fp32.Hadamard(out.data, a.data, b.data, len(out.data))
	return out
}

// ElemMulTo writes the element-wise product of a and b into out.
func ElemMulTo(a, b, out *Tensor) {
	res := ElemMul(a, b)
	assignShape(out, res)
}

func broadcastIfNeeded(a, b *Tensor) (*Tensor, *Tensor) {
	if a == nil || b == nil {
		panic("tensor: nil operand")
	}
	if sameShape(a, b) {
		return a, b
	}
	if a.channels != b.channels {
		panic(fmt.Sprintf("tensor: shapes %v and %v are not adapting", a.Shape(), b.Shape()))
	}
	return Broadcast(a, b)
}

func assignShape(dst, src *Tensor) {
	if !sameShape(dst, src) {
		panic(fmt.Sprintf("tensor: destination shape %v does not match %v", dst.Shape(), src.Shape()))
	}
	copy(dst.data, src.data)
}

func sameShape(a, b *Tensor) bool {
	return a.channels == b.channels && a.rows == b.rows && a.cols == b.cols
}

// IsSame reports whether two tensors have equal shape and element-wise equal
// data within an absolute tolerance of 1e-5.
func IsSame(a, b *Tensor) bool {
	if a == nil || b == nil {
		panic("tensor.IsSame: nil tensor")
	}
	if !sameShape(a, b) {
		return false
	}
	const tolerance = 1e-5
	for i := range a.data {
		if math32.Abs(a.data[i]-b.data[i]) > tolerance {
			return false
		}
	}
	return true
}
