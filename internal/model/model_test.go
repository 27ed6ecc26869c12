package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/hlsgen/internal/backend"
	"github.com/roach88/hlsgen/internal/datatype"
	"github.com/roach88/hlsgen/internal/diag"
	"github.com/roach88/hlsgen/internal/precision"
	"github.com/roach88/hlsgen/internal/tensor"
)

func lookup(t *testing.T, name string) *backend.Backend {
	t.Helper()
	b, err := backend.Lookup(name, diag.Discard)
	require.NoError(t, err)
	return b
}

func named(name string, p precision.Precision) datatype.Type {
	return datatype.NewNamed(name, p)
}

func dense(io IOType) *Model {
	in := &Variable{Tensor: tensor.NewTensor("input_1",
		tensor.Shape{{Name: "N_INPUT_1_1", Size: 16}},
		named("input_t", precision.NewFixed(16, 6, true)))}
	in.Pragma = backend.DefaultArrayPragma

	out := &Variable{Tensor: tensor.NewTensor("layer2_out",
		tensor.Shape{{Name: "N_LAYER_2", Size: 8}},
		named("layer2_t", precision.NewFixed(16, 6, true)))}
	out.Pragma = backend.DefaultArrayPragma

	act := &Variable{Tensor: tensor.NewInplace("layer3_out", named("layer2_t", precision.NewFixed(16, 6, true)), out.Tensor)}

	return &Model{
		Name:    "myproject",
		Backend: "vivado",
		IOType:  io,
		Tensors: []*Variable{in, out, act},
		Weights: []*tensor.Weight{
			tensor.NewWeight("w2", named("weight2_t", precision.NewFixed(8, 3, true)), tensor.WeightDense, 128),
			tensor.NewWeight("b2", named("bias2_t", precision.NewFixed(8, 3, true)), tensor.WeightDense, 8),
		},
	}
}

func TestParseIOType(t *testing.T) {
	tests := []struct {
		in      string
		want    IOType
		wantErr bool
	}{
		{"", IOParallel, false},
		{"io_parallel", IOParallel, false},
		{"IO_STREAM", IOStream, false},
		{"io_serial", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseIOType(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPrepareParallel(t *testing.T) {
	m := dense(IOParallel)
	require.NoError(t, Prepare(m, lookup(t, "vivado")))

	for _, v := range m.Tensors {
		assert.True(t, v.Converted(), v.Name)
	}
	assert.Equal(t, tensor.FormArray, m.Tensors[0].Declarer().Form())
	assert.Equal(t, tensor.FormStream, m.Tensors[2].Declarer().Form(), "in-place tensors always stream")

	for _, w := range m.Weights {
		assert.Equal(t, tensor.StorageRegister, w.Storage)
	}
}

func TestPrepareStream(t *testing.T) {
	m := dense(IOStream)
	m.Tensors[1].Pack = 2
	require.NoError(t, Prepare(m, lookup(t, "vivado")))

	out := m.Tensors[1]
	assert.Equal(t, tensor.FormStream, out.Declarer().Form())
	assert.Equal(t, tensor.Stream(1), out.Pragma)
	assert.Equal(t, 16, out.Type.(*datatype.PackedType).Length())
}

func TestPrepareStreamPragmaInParallelModel(t *testing.T) {
	m := dense(IOParallel)
	m.Tensors[1].Pragma = tensor.Stream(4)
	require.NoError(t, Prepare(m, lookup(t, "vivado")))

	assert.Equal(t, tensor.FormStream, m.Tensors[1].Declarer().Form())
	assert.Equal(t, 4, m.Tensors[1].Pragma.Depth)
}

func TestPrepareStructMember(t *testing.T) {
	m := dense(IOParallel)
	m.Tensors[0].Struct = "inputs"
	require.NoError(t, Prepare(m, lookup(t, "vitis")))

	assert.Equal(t, "inputs.input_1", m.Tensors[0].Name)
	assert.Same(t, m.Tensors[0], m.Tensor("input_1"))
	assert.Same(t, m.Tensors[0], m.Tensor("inputs.input_1"))
	assert.Nil(t, m.Tensor("missing"))
}

func TestPrepareBramWeight(t *testing.T) {
	m := dense(IOParallel)
	m.Weights[0].Storage = tensor.StorageBRAM
	require.NoError(t, Prepare(m, lookup(t, "vivado")))

	w := m.Weights[0]
	assert.Equal(t, tensor.StorageBRAM, w.Storage)
	assert.True(t, datatype.BoundTo(w.Type, backend.FamilyAP))
}

func TestPrepareFailureNamesModel(t *testing.T) {
	table := backend.APPrecisionTable()
	delete(table, precision.KindFixed)
	b, err := backend.Lookup("vivado", nil, backend.WithPrecisionTable(table))
	require.NoError(t, err)

	m := dense(IOParallel)
	err = Prepare(m, b)
	require.Error(t, err)
	assert.True(t, backend.IsUnsupportedKind(err))
	assert.Contains(t, err.Error(), `model "myproject"`)
	assert.False(t, m.Tensors[0].Converted())
}

func TestUsedTypes(t *testing.T) {
	m := dense(IOParallel)
	require.NoError(t, Prepare(m, lookup(t, "vivado")))

	var names []string
	for _, typ := range UsedTypes(m) {
		names = append(names, typ.TypeName())
	}
	assert.Equal(t, []string{"input_t", "layer2_t", "weight2_t", "bias2_t"}, names)

	// The in-place tensor reuses layer2_t; the first definition wins.
	first := UsedTypes(m)[1]
	assert.Same(t, m.Tensors[1].Type, first)
}

func TestUsedTypesSkipsUnconverted(t *testing.T) {
	m := dense(IOParallel)
	assert.Empty(t, UsedTypes(m))
}
