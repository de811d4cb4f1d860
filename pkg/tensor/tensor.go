package tensor

import (
	"fmt"
	"math/rand"

	"github.com/itohio/tinyinfer/pkg/logger"
	"github.com/itohio/tinyinfer/pkg/primitive/fp32"
)

// Tensor is a dense float32 cube with dimensions (channels, rows, cols).
// Storage is column-major within a channel and channels are contiguous, so
// element (c, r, col) lives at c*rows*cols + col*rows + r in the flat buffer.
//
// Besides the physical cube every tensor carries a raw shape: the 1-, 2- or
// 3-element logical rank the caller created it with. A (1,1,W) tensor reports
// raw shape {W}, a (1,H,W) tensor reports {H,W}, everything else {C,H,W}.
type Tensor struct {
	data     []float32
	channels int
	rows     int
	cols     int
	rawShape []int
}

// New creates a tensor of the given physical dimensions. All dimensions must
// be at least 1.
func New(channels, rows, cols int) *Tensor {
	if channels < 1 || rows < 1 || cols < 1 {
		panic(fmt.Sprintf("tensor.New: dimensions must be positive, got (%d,%d,%d)", channels, rows, cols))
	}
	t := &Tensor{
		data:     make([]float32, channels*rows*cols),
		channels: channels,
		rows:     rows,
		cols:     cols,
	}
	t.rawShape = collapseShape(channels, rows, cols)
	return t
}

// NewShape creates a tensor from a 3-element (channels, rows, cols) shape.
func NewShape(shape []int) *Tensor {
	if len(shape) != 3 {
		panic(fmt.Sprintf("tensor.NewShape: shape must have 3 elements, got %v", shape))
	}
	return New(shape[0], shape[1], shape[2])
}

func collapseShape(channels, rows, cols int) []int {
	if channels == 1 && rows == 1 {
		return []int{cols}
	}
	if channels == 1 {
		return []int{rows, cols}
	}
	return []int{channels, rows, cols}
}

// Clone returns a deep copy of the tensor.
func (t *Tensor) Clone() *Tensor {
	clone := &Tensor{
		data:     make([]float32, len(t.data)),
		channels: t.channels,
		rows:     t.rows,
		cols:     t.cols,
		rawShape: make([]int, len(t.rawShape)),
	}
	copy(clone.data, t.data)
	copy(clone.rawShape, t.rawShape)
	return clone
}

// Empty reports whether the tensor holds no data.
func (t *Tensor) Empty() bool {
	return t == nil || len(t.data) == 0
}

// Channels returns the number of channels.
func (t *Tensor) Channels() int {
	t.checkNotEmpty("Channels")
	return t.channels
}

// Rows returns the number of rows per channel.
func (t *Tensor) Rows() int {
	t.checkNotEmpty("Rows")
	return t.rows
}

// Cols returns the number of columns per channel.
func (t *Tensor) Cols() int {
	t.checkNotEmpty("Cols")
	return t.cols
}

// Size returns the total number of elements.
func (t *Tensor) Size() int {
	t.checkNotEmpty("Size")
	return len(t.data)
}

// Shape returns the physical (channels, rows, cols) dimensions.
func (t *Tensor) Shape() []int {
	t.checkNotEmpty("Shape")
	return []int{t.channels, t.rows, t.cols}
}

// RawShape returns the logical shape the tensor was created or reshaped with.
func (t *Tensor) RawShape() []int {
	if len(t.rawShape) == 0 {
		panic("tensor.RawShape: raw shape is empty")
	}
	return t.rawShape
}

// Data returns the flat column-major buffer (zero-copy).
func (t *Tensor) Data() []float32 {
	t.checkNotEmpty("Data")
	return t.data
}

// Slice returns the flat column-major buffer of a single channel (zero-copy).
func (t *Tensor) Slice(channel int) []float32 {
	t.checkNotEmpty("Slice")
	if channel < 0 || channel >= t.channels {
		panic(fmt.Sprintf("tensor.Slice: channel %d out of range [0,%d)", channel, t.channels))
	}
	plane := t.rows * t.cols
	return t.data[channel*plane : (channel+1)*plane]
}

// At returns the element at (channel, row, col).
func (t *Tensor) At(channel, row, col int) float32 {
	return t.data[t.offset(channel, row, col)]
}

// SetAt sets the element at (channel, row, col).
func (t *Tensor) SetAt(channel, row, col int, value float32) {
	t.data[t.offset(channel, row, col)] = value
}

func (t *Tensor) offset(channel, row, col int) int {
	t.checkNotEmpty("At")
	if channel < 0 || channel >= t.channels || row < 0 || row >= t.rows || col < 0 || col >= t.cols {
		panic(fmt.Sprintf("tensor.At: index (%d,%d,%d) out of range (%d,%d,%d)",
			channel, row, col, t.channels, t.rows, t.cols))
	}
	return channel*t.rows*t.cols + col*t.rows + row
}

// Index returns the element at the given offset into the flat buffer.
func (t *Tensor) Index(offset int) float32 {
	t.checkIndex(offset)
	return t.data[offset]
}

// SetIndex sets the element at the given offset into the flat buffer.
func (t *Tensor) SetIndex(offset int, value float32) {
	t.checkIndex(offset)
	t.data[offset] = value
}

func (t *Tensor) checkIndex(offset int) {
	if offset < 0 || offset >= len(t.data) {
		panic(fmt.Sprintf("tensor.Index: offset %d out of range %d", offset, len(t.data)))
	}
}

func (t *Tensor) checkNotEmpty(op string) {
	if t.Empty() {
		panic("tensor." + op + ": tensor is empty")
	}
}

// Fill sets every element to value.
func (t *Tensor) Fill(value float32) {
	t.checkNotEmpty("Fill")
	fp32.Fill(t.data, len(t.data), value)
}

// FillValues copies values into the tensor. With rowMajor the values are in
// (channel, row, col) row-major order and get transposed per channel on the
// way into the column-major buffer; otherwise they are copied as-is.
func (t *Tensor) FillValues(values []float32, rowMajor bool) {
	t.checkNotEmpty("FillValues")
	if len(values) != len(t.data) {
		panic(fmt.Sprintf("tensor.FillValues: value count %d does not match size %d", len(values), len(t.data)))
	}
	if !rowMajor {
		copy(t.data, values)
		return
	}
	plane := t.rows * t.cols
	for c := 0; c < t.channels; c++ {
		fp32.Transpose(t.data[c*plane:(c+1)*plane], values[c*plane:(c+1)*plane], t.rows, t.cols)
	}
}

// Ones sets every element to 1.
func (t *Tensor) Ones() {
	t.Fill(1)
}

// Rand fills the tensor with standard-normal samples.
func (t *Tensor) Rand() {
	t.checkNotEmpty("Rand")
	for i := range t.data {
		t.data[i] = float32(rand.NormFloat64())
	}
}

// Values returns the elements, row-major per channel when rowMajor is set,
// otherwise in raw buffer order.
func (t *Tensor) Values(rowMajor bool) []float32 {
	t.checkNotEmpty("Values")
	values := make([]float32, len(t.data))
	if !rowMajor {
		copy(values, t.data)
		return values
	}
	plane := t.rows * t.cols
	for c := 0; c < t.channels; c++ {
		channel := t.data[c*plane : (c+1)*plane]
		out := values[c*plane : (c+1)*plane]
		// channel is rows × cols column-major; transposing it as a cols × rows
		// row-major matrix yields the row-major element order.
		fp32.Transpose(out, channel, t.cols, t.rows)
	}
	return values
}

// Transform applies fn to every element in place.
func (t *Tensor) Transform(fn func(float32) float32) {
	t.checkNotEmpty("Transform")
	for i, v := range t.data {
		t.data[i] = fn(v)
	}
}

// Show logs the tensor channel by channel.
func (t *Tensor) Show() {
	for c := 0; c < t.Channels(); c++ {
		logger.Log.Info().Int("channel", c).Floats32("data", t.Values(true)[c*t.rows*t.cols:(c+1)*t.rows*t.cols]).Msg("tensor")
	}
}

// Reshape reinterprets the tensor with a new 1-, 2- or 3-element shape whose
// product equals the current size.
//
// With rowMajor false the column-major buffer is reinterpreted in place: only
// the dimensions change, the element order in memory stays fixed. With
// rowMajor true the elements are permuted so that iterating the new shape in
// row-major order visits the same sequence as iterating the old shape in
// row-major order.
func (t *Tensor) Reshape(shape []int, rowMajor bool) {
	t.checkNotEmpty("Reshape")
	if len(shape) == 0 || len(shape) > 3 {
		panic(fmt.Sprintf("tensor.Reshape: shape must have 1 to 3 elements, got %v", shape))
	}
	size := 1
	for _, s := range shape {
		size *= s
	}
	if size != len(t.data) {
		panic(fmt.Sprintf("tensor.Reshape: shape %v size %d does not match %d", shape, size, len(t.data)))
	}

	if rowMajor {
		var target [3]int
		switch len(shape) {
		case 3:
			target = [3]int{shape[0], shape[1], shape[2]}
		case 2:
			target = [3]int{1, shape[0], shape[1]}
		default:
			target = [3]int{1, shape[0], 1}
		}
		values := t.Values(true)
		t.channels, t.rows, t.cols = target[0], target[1], target[2]
		t.FillValues(values, true)
	} else {
		switch len(shape) {
		case 3:
			t.channels, t.rows, t.cols = shape[0], shape[1], shape[2]
		case 2:
			t.channels, t.rows, t.cols = 1, shape[0], shape[1]
		default:
			t.channels, t.rows, t.cols = 1, shape[0], 1
		}
	}
	t.rawShape = append(t.rawShape[:0], shape...)
}

// Flatten reshapes the tensor to a single axis.
func (t *Tensor) Flatten(rowMajor bool) {
	t.checkNotEmpty("Flatten")
	t.Reshape([]int{len(t.data)}, rowMajor)
}

// Pad grows the spatial dimensions in place, filling new cells with value.
// pads is {up, down, left, right}.
func (t *Tensor) Pad(pads []int, value float32) {
	padded := Padding(t, pads, value)
	t.data = padded.data
	t.rows = padded.rows
	t.cols = padded.cols
	t.rawShape = collapseShape(t.channels, t.rows, t.cols)
}
