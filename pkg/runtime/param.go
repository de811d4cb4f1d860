package runtime

// DataType is the element type of an operand or attribute. Only float32 data
// flows through the engine; sentinel operands may also carry TypeUnknown.
type DataType int

const (
	TypeUnknown DataType = iota
	TypeFloat32
)

// ParamType tags a Parameter payload. The numeric values mirror the encoding
// of the external pnnx parser.
type ParamType int

const (
	ParamUnknown ParamType = iota
	ParamBool
	ParamInt
	ParamFloat
	ParamString
	ParamIntList
	ParamFloatList
	ParamStringList
)

// Parameter is a read-only tagged union over the scalar and list payloads a
// graph node can carry.
type Parameter struct {
	typ ParamType

	b  bool
	i  int
	f  float32
	s  string
	ai []int
	af []float32
	as []string
}

// NewUnknownParam returns an untyped parameter.
func NewUnknownParam() Parameter { return Parameter{typ: ParamUnknown} }

// NewBoolParam returns a bool parameter.
func NewBoolParam(v bool) Parameter { return Parameter{typ: ParamBool, b: v} }

// NewIntParam returns an int parameter.
func NewIntParam(v int) Parameter { return Parameter{typ: ParamInt, i: v} }

// NewFloatParam returns a float parameter.
func NewFloatParam(v float32) Parameter { return Parameter{typ: ParamFloat, f: v} }

// NewStringParam returns a string parameter.
func NewStringParam(v string) Parameter { return Parameter{typ: ParamString, s: v} }

// NewIntListParam returns an int-list parameter.
func NewIntListParam(v []int) Parameter { return Parameter{typ: ParamIntList, ai: v} }

// NewFloatListParam returns a float-list parameter.
func NewFloatListParam(v []float32) Parameter { return Parameter{typ: ParamFloatList, af: v} }

// NewStringListParam returns a string-list parameter.
func NewStringListParam(v []string) Parameter { return Parameter{typ: ParamStringList, as: v} }

// Type returns the payload tag.
func (p Parameter) Type() ParamType { return p.typ }

// Bool returns the bool payload.
func (p Parameter) Bool() (bool, bool) { return p.b, p.typ == ParamBool }

// Int returns the int payload.
func (p Parameter) Int() (int, bool) { return p.i, p.typ == ParamInt }

// Float returns the float payload.
func (p Parameter) Float() (float32, bool) { return p.f, p.typ == ParamFloat }

// Str returns the string payload.
func (p Parameter) Str() (string, bool) { return p.s, p.typ == ParamString }

// IntList returns the int-list payload.
func (p Parameter) IntList() ([]int, bool) { return p.ai, p.typ == ParamIntList }

// FloatList returns the float-list payload.
func (p Parameter) FloatList() ([]float32, bool) { return p.af, p.typ == ParamFloatList }

// StrList returns the string-list payload.
func (p Parameter) StrList() ([]string, bool) { return p.as, p.typ == ParamStringList }
