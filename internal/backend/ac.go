package backend

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/hlsgen/internal/diag"
	"github.com/roach88/hlsgen/internal/precision"
)

// FamilyAC is the Algorithmic C type family (ac_int, ac_fixed) used by Catapult,
// oneAPI and Quartus.
const FamilyAC = "ac"

// ACIntegerDefinition renders integer-like precisions as ac_int<W, signed>.
type ACIntegerDefinition struct{}

func (ACIntegerDefinition) Family() string { return FamilyAC }

func (ACIntegerDefinition) Render(p precision.Precision) string {
	return fmt.Sprintf("ac_int<%d, %t>", p.Width(), p.Signed())
}

// ACFixedDefinition renders fixed precisions as ac_fixed<W,I,signed,R,S>.
//
// ac_fixed has no saturation-bits parameter; a non-zero value is dropped and
// reported to Sink on every render.
type ACFixedDefinition struct {
	Sink diag.Sink
}

func (ACFixedDefinition) Family() string { return FamilyAC }

func (d ACFixedDefinition) Render(p precision.Precision) string {
	fp, ok := p.(*precision.FixedPrecision)
	if !ok {
		return ACIntegerDefinition{}.Render(p)
	}

	width := fp.Bits
	if width == 1 {
		// The oneAPI ac_fixed needs at least two bits, signed or not.
		width = 2
	}
	args := []string{strconv.Itoa(width), strconv.Itoa(fp.Integer), strconv.FormatBool(fp.IsSigned)}

	if !(fp.Rounding == precision.TRN && fp.Saturation == precision.WRAP) {
		if rounding := quantizationFor(fp); rounding != precision.RoundingUnset {
			args = append(args, "AC_"+rounding.String())
		}
		if fp.Saturation != precision.SaturationUnset {
			args = append(args, "AC_"+fp.Saturation.String())
		}
	}

	if fp.SaturationBits > 0 {
		d.warnSaturationBits(fp)
	}

	return fmt.Sprintf("ac_fixed<%s>", strings.Join(args, ","))
}

func (d ACFixedDefinition) warnSaturationBits(fp *precision.FixedPrecision) {
	sink := d.Sink
	if sink == nil {
		sink = diag.Discard
	}
	sink.Warn(diag.Diagnostic{
		Code: diag.CodeInvalidConfigurationValue,
		Message: fmt.Sprintf("invalid setting of saturation bits (%d) for ac_fixed type, only 0 is allowed; ignoring set value",
			fp.SaturationBits),
		Attrs: map[string]string{
			"precision":       fp.String(),
			"saturation_bits": strconv.Itoa(fp.SaturationBits),
		},
	})
}

// ACPrecisionTable maps every precision kind to its ac_* definition.
func ACPrecisionTable(sink diag.Sink) map[precision.Kind]precision.Definition {
	return map[precision.Kind]precision.Definition{
		precision.KindFixed:    ACFixedDefinition{Sink: sink},
		precision.KindInteger:  ACIntegerDefinition{},
		precision.KindExponent: ACIntegerDefinition{},
		precision.KindXnor:     ACIntegerDefinition{},
	}
}
