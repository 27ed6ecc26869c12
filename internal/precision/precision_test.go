package precision

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDefinition renders the neutral form behind a family marker.
type fakeDefinition struct {
	family string
}

func (d fakeDefinition) Family() string            { return d.family }
func (d fakeDefinition) Render(p Precision) string { return d.family + ":" + p.String() }

func TestSealedVariants(t *testing.T) {
	var _ Precision = NewInteger(8, true)
	var _ Precision = NewFixed(16, 6, true)
	var _ Precision = NewExponent(4, true)
	var _ Precision = NewXnor()
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "IntegerPrecision", KindInteger.String())
	assert.Equal(t, "FixedPrecision", KindFixed.String())
	assert.Equal(t, "ExponentPrecision", KindExponent.String())
	assert.Equal(t, "XnorPrecision", KindXnor.String())
	assert.Equal(t, "Kind(42)", Kind(42).String())
}

func TestNewFixedDefaults(t *testing.T) {
	p := NewFixed(16, 6, true)

	assert.Equal(t, TRN, p.Rounding)
	assert.Equal(t, WRAP, p.Saturation)
	assert.Equal(t, 0, p.SaturationBits)
	assert.Equal(t, 10, p.Fractional())
	assert.True(t, p.IsDefaultQuantization())
}

func TestFixedNegativeFractional(t *testing.T) {
	p := NewFixed(4, 8, false)
	assert.Equal(t, -4, p.Fractional())
}

func TestXnorIsOneBitUnsigned(t *testing.T) {
	p := NewXnor()
	assert.Equal(t, 1, p.Width())
	assert.False(t, p.Signed())
}

func TestNeutralString(t *testing.T) {
	tests := []struct {
		name string
		p    Precision
		want string
	}{
		{"signed int", NewInteger(8, true), "int<8>"},
		{"unsigned int", NewInteger(6, false), "uint<6>"},
		{"default fixed", NewFixed(16, 6, true), "fixed<16,6>"},
		{"exponent", NewExponent(4, false), "uexponent<4>"},
		{"xnor", NewXnor(), "xnor"},
		{"full fixed", &FixedPrecision{Bits: 8, Integer: 3, Rounding: RND, Saturation: SAT, SaturationBits: 1}, "ufixed<8,3,RND,SAT,1>"},
		{"unset modes", &FixedPrecision{Bits: 8, Integer: 3, IsSigned: true}, "fixed<8,3>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.p.String())
		})
	}
}

func TestRenderBeforeBind(t *testing.T) {
	_, err := Render(NewInteger(8, true))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotConverted)
}

func TestBindOnce(t *testing.T) {
	p := NewInteger(8, true)

	require.NoError(t, Bind(p, fakeDefinition{family: "ap"}))
	assert.True(t, BoundTo(p, "ap"))
	assert.False(t, BoundTo(p, "ac"))

	// Same family is a no-op.
	require.NoError(t, Bind(p, fakeDefinition{family: "ap"}))

	out, err := Render(p)
	require.NoError(t, err)
	assert.Equal(t, "ap:int<8>", out)
}

func TestBindOtherFamilyFails(t *testing.T) {
	p := NewFixed(16, 6, true)
	require.NoError(t, Bind(p, fakeDefinition{family: "ap"}))

	err := Bind(p, fakeDefinition{family: "ac"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAlreadyBound)
	assert.True(t, BoundTo(p, "ap"), "failed rebind must keep the original binding")
}

func TestModeRoundTrip(t *testing.T) {
	for mode, name := range roundingNames {
		got, err := ParseRoundingMode("AP_" + name)
		require.NoError(t, err)
		assert.Equal(t, mode, got)
	}
	for mode, name := range saturationNames {
		got, err := ParseSaturationMode("ac_" + name)
		require.NoError(t, err)
		assert.Equal(t, mode, got)
	}

	_, err := ParseRoundingMode("FLOOR")
	assert.Error(t, err)
	_, err = ParseSaturationMode("CLAMP")
	assert.Error(t, err)

	assert.Equal(t, "", RoundingUnset.String())
	assert.Equal(t, "", SaturationUnset.String())
}
