package tensor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/hlsgen/internal/datatype"
	"github.com/roach88/hlsgen/internal/precision"
)

type echoDeclarer struct{}

func (echoDeclarer) Family() string { return "test" }
func (echoDeclarer) Form() Form     { return FormArray }
func (echoDeclarer) Declare(t *Tensor, suffix string, asReference bool) string {
	return t.Type.TypeName() + " " + t.Name + suffix + "[" + t.Shape.CPP() + "]"
}

func TestShape(t *testing.T) {
	s := Shape{{Name: "N_ROWS", Size: 8}, {Name: "N_COLS", Size: 32}}

	assert.Equal(t, 256, s.Size())
	assert.Equal(t, 32, s.Last())
	assert.Equal(t, "N_ROWS*N_COLS", s.CPP())

	var empty Shape
	assert.Equal(t, 0, empty.Size())
	assert.Equal(t, 0, empty.Last())
	assert.Equal(t, "", empty.CPP())
}

func TestTensorDeclarationLifecycle(t *testing.T) {
	typ := datatype.NewNamed("layer2_t", precision.NewFixed(16, 6, true))
	tn := NewTensor("layer2_out", Shape{{Name: "N_LAYER_2", Size: 10}}, typ)

	assert.False(t, tn.Converted())
	_, err := tn.Declaration("", false)
	require.ErrorIs(t, err, ErrNotConverted)

	tn.Decorate(echoDeclarer{})
	assert.True(t, tn.Converted())

	decl, err := tn.Declaration("_ap", false)
	require.NoError(t, err)
	assert.Equal(t, "layer2_t layer2_out_ap[N_LAYER_2]", decl)
}

func TestNewInplaceSharesInputShape(t *testing.T) {
	typ := datatype.NewNamed("t", precision.NewInteger(8, true))
	in := NewTensor("in", Shape{{Name: "N", Size: 4}}, typ)
	out := NewInplace("out", typ, in)

	assert.Same(t, in, out.Input)
	assert.Equal(t, in.Shape, out.Shape)
}

func TestParseStorage(t *testing.T) {
	s, err := ParseStorage("")
	require.NoError(t, err)
	assert.Equal(t, StorageRegister, s)

	s, err = ParseStorage("BRAM")
	require.NoError(t, err)
	assert.Equal(t, StorageBRAM, s)

	_, err = ParseStorage("uram")
	assert.Error(t, err)
}

func TestParseWeightClass(t *testing.T) {
	tests := map[string]WeightClass{
		"":           WeightDense,
		"dense":      WeightDense,
		"Compressed": WeightCompressed,
		"exponent":   WeightExponent,
	}
	for in, want := range tests {
		got, err := ParseWeightClass(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseWeightClass("sparse")
	assert.Error(t, err)
}

func TestWeightDeclarationRequiresConversion(t *testing.T) {
	w := NewWeight("w2", datatype.NewNamed("weight2_t", precision.NewFixed(8, 4, true)), WeightDense, 128)

	_, err := w.Declaration("", false)
	assert.ErrorIs(t, err, ErrNotConverted)
	assert.False(t, w.Converted())
}
