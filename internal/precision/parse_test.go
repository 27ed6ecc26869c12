package precision

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseValid(t *testing.T) {
	tests := []struct {
		in   string
		want Precision
	}{
		{"fixed<16,6>", NewFixed(16, 6, true)},
		{"ap_ufixed<8, 3>", NewFixed(8, 3, false)},
		{"fixed<8,3,RND>", &FixedPrecision{Bits: 8, Integer: 3, IsSigned: true, Rounding: RND, Saturation: WRAP}},
		{"ap_fixed<16,6,AP_RND_CONV,AP_SAT,2>", &FixedPrecision{Bits: 16, Integer: 6, IsSigned: true, Rounding: RND_CONV, Saturation: SAT, SaturationBits: 2}},
		{"ac_fixed<16,6,false,AC_RND,AC_SAT_SYM>", &FixedPrecision{Bits: 16, Integer: 6, Rounding: RND, Saturation: SAT_SYM}},
		{"int<8>", NewInteger(8, true)},
		{"uint<6>", NewInteger(6, false)},
		{"ap_uint<1>", NewInteger(1, false)},
		{"ac_int<8, false>", NewInteger(8, false)},
		{"exponent<4>", NewExponent(4, true)},
		{"uexponent<3>", NewExponent(3, false)},
		{"XNOR", NewXnor()},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Nil(t, got.Definition(), "parsed precisions are unbound")
		})
	}
}

func TestParseInvalid(t *testing.T) {
	tests := []struct {
		in      string
		message string
	}{
		{"float", "expected <name><args>"},
		{"fixed<16>", "needs width and integer bits"},
		{"fixed<0,0>", "must be a positive number"},
		{"fixed<16,x>", "is not a number"},
		{"fixed<16,6,FLOOR>", "unknown rounding mode"},
		{"fixed<16,6,TRN,CLAMP>", "unknown saturation mode"},
		{"fixed<16,6,TRN,WRAP,-1>", "non-negative"},
		{"fixed<16,6,TRN,WRAP,0,1>", "too many arguments"},
		{"ac_fixed<16,6>", "explicit signedness"},
		{"ac_int<8>", "expected 2 argument(s)"},
		{"ac_int<8,maybe>", "must be true or false"},
		{"int<8,2>", "expected 1 argument(s)"},
		{"bfloat<16>", "unknown precision type"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			_, err := Parse(tt.in)
			require.Error(t, err)

			var pe *ParseError
			require.ErrorAs(t, err, &pe)
			assert.Contains(t, pe.Message, tt.message)
		})
	}
}
