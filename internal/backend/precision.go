package backend

import (
	"errors"

	"github.com/roach88/hlsgen/internal/precision"
)

// PrecisionConverter binds backend definitions to abstract precisions.
type PrecisionConverter struct {
	family string
	table  map[precision.Kind]precision.Definition
}

// NewPrecisionConverter returns a converter for family using table.
func NewPrecisionConverter(family string, table map[precision.Kind]precision.Definition) *PrecisionConverter {
	return &PrecisionConverter{family: family, table: table}
}

// Family returns the marker of the definitions this converter binds.
func (c *PrecisionConverter) Family() string { return c.family }

// Convert binds the definition for p's kind and returns p itself.
//
// A precision already converted by this family is returned unchanged. A kind
// missing from the table fails with ErrCodeUnsupportedPrecisionKind and leaves
// p untouched. A nil precision fails with ErrCodeUnsupportedPrecisionKind.
func (c *PrecisionConverter) Convert(p precision.Precision) (precision.Precision, error) {
	if p == nil {
		return nil, newUnsupportedPrecisionKind(c.family, kindNil)
	}
	if precision.BoundTo(p, c.family) {
		return p, nil
	}

	def, ok := c.table[p.Kind()]
	if !ok {
		return p, newUnsupportedPrecisionKind(c.family, p.Kind().String())
	}

	if err := precision.Bind(p, def); err != nil {
		if errors.Is(err, precision.ErrAlreadyBound) {
			return p, newAlreadyBound(c.family, err)
		}
		return p, err
	}
	return p, nil
}
