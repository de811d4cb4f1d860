package pnnx

import (
	"archive/zip"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleParam = `7767517
3 2
pnnx.Input               input0                   0 1 0 #0=(1,3,8,8)f32
nn.Conv2d                conv0                    1 1 0 1 bias=True dilation=(1,1) groups=1 in_channels=3 kernel_size=(3,3) out_channels=2 padding=(0,0) padding_mode=zeros stride=(1,1) @bias=(2)f32 @weight=(2,3,3,3)f32 #0=(1,3,8,8)f32 #1=(1,2,6,6)f32
pnnx.Output              output0                  1 0 1 #1=(1,2,6,6)f32
`

func writeBin(t *testing.T, path string, attrs map[string][]float32) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := zip.NewWriter(f)
	for name, values := range attrs {
		entry, err := w.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Store})
		require.NoError(t, err)
		data := make([]byte, 4*len(values))
		for i, v := range values {
			binary.LittleEndian.PutUint32(data[i*4:], math.Float32bits(v))
		}
		_, err = entry.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
}

func TestLoadSampleModel(t *testing.T) {
	dir := t.TempDir()
	paramPath := filepath.Join(dir, "model.param")
	binPath := filepath.Join(dir, "model.bin")
	require.NoError(t, os.WriteFile(paramPath, []byte(sampleParam), 0o644))

	weight := make([]float32, 2*3*3*3)
	for i := range weight {
		weight[i] = float32(i)
	}
	writeBin(t, binPath, map[string][]float32{
		"conv0.weight": weight,
		"conv0.bias":   {0.5, -0.5},
	})

	g, err := Load(paramPath, binPath)
	require.NoError(t, err)
	require.Len(t, g.Ops, 3)

	input := g.Ops[0]
	assert.Equal(t, "pnnx.Input", input.Type)
	assert.Equal(t, "input0", input.Name)
	require.Len(t, input.Outputs, 1)
	assert.Equal(t, []int{1, 3, 8, 8}, input.Outputs[0].Shape)
	assert.Equal(t, 1, input.Outputs[0].Type)

	conv := g.Ops[1]
	assert.Equal(t, "nn.Conv2d", conv.Type)
	require.Len(t, conv.Inputs, 1)
	assert.Same(t, input, conv.Inputs[0].Producer)
	require.Len(t, conv.Inputs[0].Consumers, 1)

	// parameters with inferred types
	b := conv.Params["bias"]
	assert.Equal(t, ParamBool, b.Type)
	assert.True(t, b.B)
	assert.Equal(t, ParamInt, conv.Params["in_channels"].Type)
	assert.Equal(t, 3, conv.Params["in_channels"].I)
	assert.Equal(t, ParamIntList, conv.Params["kernel_size"].Type)
	assert.Equal(t, []int{3, 3}, conv.Params["kernel_size"].AI)
	assert.Equal(t, ParamString, conv.Params["padding_mode"].Type)
	assert.Equal(t, "zeros", conv.Params["padding_mode"].S)

	// attributes with payloads from the archive
	weightAttr := conv.Attrs["weight"]
	assert.Equal(t, []int{2, 3, 3, 3}, weightAttr.Shape)
	assert.Equal(t, 1, weightAttr.Type)
	assert.Len(t, weightAttr.Data, 4*len(weight))

	biasAttr := conv.Attrs["bias"]
	assert.Equal(t, []int{2}, biasAttr.Shape)
	assert.Len(t, biasAttr.Data, 8)

	output := g.Ops[2]
	assert.Equal(t, "pnnx.Output", output.Type)
	require.Len(t, output.Inputs, 1)
	assert.Same(t, conv, output.Inputs[0].Producer)
}

func TestLoadWithoutAttrsNeedsNoBin(t *testing.T) {
	dir := t.TempDir()
	paramPath := filepath.Join(dir, "model.param")
	param := `7767517
3 2
pnnx.Input               input0                   0 1 0 #0=(1,1,2,2)f32
nn.ReLU                  relu0                    1 1 0 1 #1=(1,1,2,2)f32
pnnx.Output              output0                  1 0 1
`
	require.NoError(t, os.WriteFile(paramPath, []byte(param), 0o644))

	g, err := Load(paramPath, filepath.Join(dir, "missing.bin"))
	require.NoError(t, err, "models without attributes do not touch the bin file")
	assert.Len(t, g.Ops, 3)
}

func TestLoadRejectsBadMagic(t *testing.T) {
	dir := t.TempDir()
	paramPath := filepath.Join(dir, "model.param")
	require.NoError(t, os.WriteFile(paramPath, []byte("123\n0 0\n"), 0o644))

	_, err := Load(paramPath, filepath.Join(dir, "model.bin"))
	assert.Error(t, err)
}

func TestLoadRejectsCountMismatch(t *testing.T) {
	dir := t.TempDir()
	paramPath := filepath.Join(dir, "model.param")
	param := `7767517
5 2
pnnx.Input               input0                   0 1 0
`
	require.NoError(t, os.WriteFile(paramPath, []byte(param), 0o644))

	_, err := Load(paramPath, filepath.Join(dir, "model.bin"))
	assert.Error(t, err)
}

func TestLoadRejectsMissingAttributeEntry(t *testing.T) {
	dir := t.TempDir()
	paramPath := filepath.Join(dir, "model.param")
	binPath := filepath.Join(dir, "model.bin")
	param := `7767517
1 0
nn.Linear                fc0                      0 0 bias=False @weight=(2,2)f32
`
	require.NoError(t, os.WriteFile(paramPath, []byte(param), 0o644))
	writeBin(t, binPath, map[string][]float32{"other.weight": {1}})

	_, err := Load(paramPath, binPath)
	assert.Error(t, err)
}

func TestParseParameterTyping(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  Parameter
	}{
		{"none", "None", Parameter{Type: ParamUnknown}},
		{"true", "True", Parameter{Type: ParamBool, B: true}},
		{"false", "False", Parameter{Type: ParamBool}},
		{"int", "-12", Parameter{Type: ParamInt, I: -12}},
		{"float dot", "0.5", Parameter{Type: ParamFloat, F: 0.5}},
		{"float exponent", "1e-3", Parameter{Type: ParamFloat, F: 0.001}},
		{"string", "zeros", Parameter{Type: ParamString, S: "zeros"}},
		{"int list", "(1,2)", Parameter{Type: ParamIntList, AI: []int{1, 2}}},
		{"float list", "(0.1,0.2)", Parameter{Type: ParamFloatList, AF: []float32{0.1, 0.2}}},
		{"string list", "(a,b)", Parameter{Type: ParamStringList, AS: []string{"a", "b"}}},
		{"expression", "add(@0,@1)", Parameter{Type: ParamString, S: "add(@0,@1)"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseParameter(tt.value))
		})
	}
}

func TestParseShapeType(t *testing.T) {
	shape, dtype, err := parseShapeType("(1,3,224,224)f32")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3, 224, 224}, shape)
	assert.Equal(t, 1, dtype)

	shape, dtype, err = parseShapeType("(?,3)f32")
	require.NoError(t, err)
	assert.Equal(t, []int{-1, 3}, shape)
	assert.Equal(t, 1, dtype)

	_, _, err = parseShapeType("3,4")
	assert.Error(t, err)
}
