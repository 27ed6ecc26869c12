package backend

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/hlsgen/internal/datatype"
	"github.com/roach88/hlsgen/internal/diag"
	"github.com/roach88/hlsgen/internal/precision"
)

func apTypes() *TypeConverter {
	return NewTypeConverter(NewPrecisionConverter(FamilyAP, APPrecisionTable()), TypeTable(FamilyAP))
}

func acTypes() *TypeConverter {
	return NewTypeConverter(NewPrecisionConverter(FamilyAC, ACPrecisionTable(diag.Discard)), TypeTable(FamilyAC))
}

func TestPrecisionConverterIdempotent(t *testing.T) {
	pc := NewPrecisionConverter(FamilyAP, APPrecisionTable())
	p := precision.NewFixed(16, 6, true)

	first, err := pc.Convert(p)
	require.NoError(t, err)
	def := first.Definition()

	second, err := pc.Convert(first)
	require.NoError(t, err)
	assert.Same(t, p, second)
	assert.Equal(t, def, second.Definition())
	assert.True(t, precision.BoundTo(p, FamilyAP))
}

func TestPrecisionConverterUnsupportedKind(t *testing.T) {
	table := APPrecisionTable()
	delete(table, precision.KindXnor)
	pc := NewPrecisionConverter(FamilyAP, table)

	p := precision.NewXnor()
	out, err := pc.Convert(p)
	require.Error(t, err)
	assert.True(t, IsUnsupportedKind(err))
	assert.Equal(t, ErrCodeUnsupportedPrecisionKind, CodeOf(err))
	assert.Contains(t, err.Error(), "cannot convert precision type to ap: XnorPrecision")

	assert.Same(t, p, out)
	assert.Nil(t, p.Definition())
	_, err = precision.Render(p)
	assert.ErrorIs(t, err, precision.ErrNotConverted)
}

func TestPrecisionConverterRejectsOtherFamily(t *testing.T) {
	p := precision.NewInteger(8, true)
	_, err := NewPrecisionConverter(FamilyAP, APPrecisionTable()).Convert(p)
	require.NoError(t, err)

	_, err = NewPrecisionConverter(FamilyAC, ACPrecisionTable(nil)).Convert(p)
	require.Error(t, err)
	assert.Equal(t, ErrCodeAlreadyBound, CodeOf(err))
	assert.ErrorIs(t, err, precision.ErrAlreadyBound)

	out, err := precision.Render(p)
	require.NoError(t, err)
	assert.Equal(t, "ap_int<8>", out)
}

func TestTypeConverterNamed(t *testing.T) {
	tc := apTypes()
	typ := datatype.NewNamed("layer2_t", precision.NewFixed(16, 6, true))

	_, err := tc.Convert(typ)
	require.NoError(t, err)

	out, err := datatype.Render(typ)
	require.NoError(t, err)
	assert.Equal(t, "typedef ap_fixed<16,6> layer2_t;\n", out)
	assert.True(t, precision.BoundTo(typ.Value, FamilyAP))
}

func TestTypeConverterCompressed(t *testing.T) {
	tc := apTypes()
	typ := datatype.NewCompressed("weight2_t", precision.NewFixed(8, 4, true), precision.NewInteger(6, false))

	_, err := tc.Convert(typ)
	require.NoError(t, err)

	out, err := datatype.Render(typ)
	require.NoError(t, err)
	assert.Equal(t,
		"typedef struct weight2_t {ap_uint<6> row_index;ap_uint<6> col_index;ap_fixed<8,4> weight; } weight2_t;\n",
		out)
}

func TestTypeConverterExponent(t *testing.T) {
	tc := acTypes()
	typ := datatype.NewExponent("exp_t", precision.NewExponent(4, true), precision.NewInteger(1, false))

	_, err := tc.Convert(typ)
	require.NoError(t, err)

	out, err := datatype.Render(typ)
	require.NoError(t, err)
	assert.Equal(t, "typedef struct exp_t {ac_int<1, false> sign;ac_int<4, true> weight; } exp_t;\n", out)
}

func TestTypeConverterPacked(t *testing.T) {
	tests := []struct {
		name   string
		nElem  int
		nPack  int
		unpack bool
		want   string
	}{
		{"one per beat", 64, 1, false, "typedef nnet::array<ap_fixed<16,6>, 64> layer_t;\n"},
		{"packed", 16, 4, false, "typedef nnet::array<ap_fixed<16,6>, 64> layer_t;\n"},
		{"unpacked", 64, 4, true, "typedef nnet::array<ap_fixed<16,6>, 16> layer_t;\n"},
		{"n_pack below one", 32, 0, false, "typedef nnet::array<ap_fixed<16,6>, 32> layer_t;\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			typ := datatype.NewPacked("layer_t", precision.NewFixed(16, 6, true), tt.nElem, tt.nPack, tt.unpack)
			_, err := apTypes().Convert(typ)
			require.NoError(t, err)

			out, err := datatype.Render(typ)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestTypeConverterIdempotent(t *testing.T) {
	tc := apTypes()
	typ := datatype.NewNamed("t", precision.NewInteger(4, false))

	_, err := tc.Convert(typ)
	require.NoError(t, err)
	def := typ.Definition()

	again, err := tc.Convert(typ)
	require.NoError(t, err)
	assert.Same(t, typ, again)
	assert.Equal(t, def, again.Definition())
}

func TestTypeConverterUnsupportedKind(t *testing.T) {
	table := TypeTable(FamilyAP)
	delete(table, datatype.KindExponent)
	tc := NewTypeConverter(NewPrecisionConverter(FamilyAP, APPrecisionTable()), table)

	typ := datatype.NewExponent("exp_t", precision.NewExponent(4, true), precision.NewInteger(1, false))
	_, err := tc.Convert(typ)
	require.Error(t, err)
	assert.Equal(t, ErrCodeUnsupportedTypeKind, CodeOf(err))
	assert.Nil(t, typ.Definition())
	assert.Nil(t, typ.Value.Definition(), "precisions stay untouched when the kind is unsupported")
}

func TestTypeConverterNestedFailureLeavesTypeUnbound(t *testing.T) {
	table := APPrecisionTable()
	delete(table, precision.KindInteger)
	tc := NewTypeConverter(NewPrecisionConverter(FamilyAP, table), TypeTable(FamilyAP))

	typ := datatype.NewCompressed("w_t", precision.NewFixed(8, 4, true), precision.NewInteger(6, false))
	_, err := tc.Convert(typ)
	require.Error(t, err)
	assert.True(t, IsUnsupportedKind(err))
	assert.Contains(t, err.Error(), `converting CompressedType "w_t"`)

	var ce *ConversionError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "IntegerPrecision", ce.Kind)

	assert.Nil(t, typ.Definition())
	_, err = datatype.Render(typ)
	assert.ErrorIs(t, err, datatype.ErrNotConverted)
}

func TestTypeConverterRejectsOtherFamily(t *testing.T) {
	typ := datatype.NewNamed("t", precision.NewFixed(8, 3, true))
	_, err := apTypes().Convert(typ)
	require.NoError(t, err)

	_, err = acTypes().Convert(typ)
	require.Error(t, err)
	assert.Equal(t, ErrCodeAlreadyBound, CodeOf(err))
}

func TestPrecisionConverterRejectsNil(t *testing.T) {
	out, err := NewPrecisionConverter(FamilyAP, APPrecisionTable()).Convert(nil)
	require.Error(t, err)
	assert.Nil(t, out)
	assert.Equal(t, ErrCodeUnsupportedPrecisionKind, CodeOf(err))
	assert.Contains(t, err.Error(), "cannot convert precision type to ap: nil")
}

func TestTypeConverterRejectsUntyped(t *testing.T) {
	tests := []struct {
		name     string
		typ      datatype.Type
		wantCode ConversionErrorCode
	}{
		{"nil type", nil, ErrCodeUnsupportedTypeKind},
		{"named type without precision", datatype.NewNamed("t", nil), ErrCodeUnsupportedPrecisionKind},
		{"compressed type without index", datatype.NewCompressed("w_t", precision.NewFixed(8, 4, true), nil), ErrCodeUnsupportedPrecisionKind},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := acTypes().Convert(tt.typ)
			require.Error(t, err)
			assert.True(t, IsUnsupportedKind(err))
			assert.Equal(t, tt.wantCode, CodeOf(err))

			var ce *ConversionError
			require.True(t, errors.As(err, &ce))
			assert.Equal(t, "nil", ce.Kind)
			if tt.typ != nil {
				assert.Nil(t, tt.typ.Definition())
			}
		})
	}
}
