package runtime

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Attribute is a weight blob attached to a graph node: raw bytes plus the
// declared shape and element type.
type Attribute struct {
	Type  DataType
	Shape []int
	Data  []byte
}

// Get reinterprets the raw bytes as float32 values. With clear the byte
// buffer is dropped after extraction so large weights are not held twice.
func (a *Attribute) Get(clear bool) []float32 {
	if a.Type != TypeFloat32 {
		panic(fmt.Sprintf("runtime.Attribute: unsupported element type %d", a.Type))
	}
	const elemSize = 4
	if len(a.Data)%elemSize != 0 {
		panic(fmt.Sprintf("runtime.Attribute: byte count %d is not a multiple of %d", len(a.Data), elemSize))
	}
	values := make([]float32, len(a.Data)/elemSize)
	for i := range values {
		bits := binary.LittleEndian.Uint32(a.Data[i*elemSize:])
		values[i] = math.Float32frombits(bits)
	}
	if clear {
		a.Data = nil
	}
	return values
}
