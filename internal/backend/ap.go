package backend

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/hlsgen/internal/precision"
)

// FamilyAP is the Xilinx arbitrary-precision type family (ap_int, ap_fixed).
const FamilyAP = "ap"

// APIntegerDefinition renders integer-like precisions as ap_int / ap_uint.
type APIntegerDefinition struct{}

func (APIntegerDefinition) Family() string { return FamilyAP }

func (APIntegerDefinition) Render(p precision.Precision) string {
	return fmt.Sprintf("ap_%sint<%d>", apSignedPrefix(p.Signed()), p.Width())
}

// APFixedDefinition renders fixed precisions as ap_fixed / ap_ufixed.
type APFixedDefinition struct{}

func (APFixedDefinition) Family() string { return FamilyAP }

func (APFixedDefinition) Render(p precision.Precision) string {
	fp, ok := p.(*precision.FixedPrecision)
	if !ok {
		return APIntegerDefinition{}.Render(p)
	}

	args := []string{strconv.Itoa(fp.Bits), strconv.Itoa(fp.Integer)}
	// TRN, WRAP, 0 is the toolchain default; leave it implicit.
	if !fp.IsDefaultQuantization() {
		if rounding := quantizationFor(fp); rounding != precision.RoundingUnset {
			args = append(args, "AP_"+rounding.String())
		}
		if fp.Saturation != precision.SaturationUnset {
			args = append(args, "AP_"+fp.Saturation.String())
			args = append(args, strconv.Itoa(fp.SaturationBits))
		}
	}
	return fmt.Sprintf("ap_%sfixed<%s>", apSignedPrefix(fp.IsSigned), strings.Join(args, ","))
}

// quantizationFor returns the rounding mode to render. The mode arguments are
// positional, so a saturation mode needs a rounding mode before it.
func quantizationFor(fp *precision.FixedPrecision) precision.RoundingMode {
	if fp.Rounding == precision.RoundingUnset && fp.Saturation != precision.SaturationUnset {
		return precision.TRN
	}
	return fp.Rounding
}

func apSignedPrefix(signed bool) string {
	if signed {
		return ""
	}
	return "u"
}

// APPrecisionTable maps every precision kind to its ap_* definition.
// Exponent and xnor fields are plain integers.
func APPrecisionTable() map[precision.Kind]precision.Definition {
	return map[precision.Kind]precision.Definition{
		precision.KindFixed:    APFixedDefinition{},
		precision.KindInteger:  APIntegerDefinition{},
		precision.KindExponent: APIntegerDefinition{},
		precision.KindXnor:     APIntegerDefinition{},
	}
}
