package backend

import (
	"errors"
	"fmt"

	"github.com/roach88/hlsgen/internal/datatype"
	"github.com/roach88/hlsgen/internal/precision"
)

// NamedTypeDefinition renders "typedef <precision> <name>;".
type NamedTypeDefinition struct{ family string }

func (d NamedTypeDefinition) Family() string { return d.family }

func (d NamedTypeDefinition) Render(t datatype.Type) (string, error) {
	p, err := precision.Render(t.Precision())
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("typedef %s %s;\n", p, t.TypeName()), nil
}

// CompressedTypeDefinition renders the sparse (row, col, weight) struct.
type CompressedTypeDefinition struct{ family string }

func (d CompressedTypeDefinition) Family() string { return d.family }

func (d CompressedTypeDefinition) Render(t datatype.Type) (string, error) {
	ct, ok := t.(*datatype.CompressedType)
	if !ok {
		return "", fmt.Errorf("compressed definition bound to %s", t.Kind())
	}
	index, err := precision.Render(ct.Index)
	if err != nil {
		return "", err
	}
	value, err := precision.Render(ct.Value)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("typedef struct %s {%s row_index;%s col_index;%s weight; } %s;\n",
		ct.Name, index, index, value, ct.Name), nil
}

// ExponentTypeDefinition renders the (sign, weight) struct of power-of-two weights.
type ExponentTypeDefinition struct{ family string }

func (d ExponentTypeDefinition) Family() string { return d.family }

func (d ExponentTypeDefinition) Render(t datatype.Type) (string, error) {
	et, ok := t.(*datatype.ExponentType)
	if !ok {
		return "", fmt.Errorf("exponent definition bound to %s", t.Kind())
	}
	sign, err := precision.Render(et.Sign)
	if err != nil {
		return "", err
	}
	value, err := precision.Render(et.Value)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("typedef struct %s {%s sign;%s weight; } %s;\n", et.Name, sign, value, et.Name), nil
}

// PackedTypeDefinition renders "typedef nnet::array<<precision>, <n>> <name>;".
type PackedTypeDefinition struct{ family string }

func (d PackedTypeDefinition) Family() string { return d.family }

func (d PackedTypeDefinition) Render(t datatype.Type) (string, error) {
	pt, ok := t.(*datatype.PackedType)
	if !ok {
		return "", fmt.Errorf("packed definition bound to %s", t.Kind())
	}
	p, err := precision.Render(pt.Value)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("typedef nnet::array<%s, %d> %s;\n", p, pt.Length(), pt.Name), nil
}

// TypeTable maps every composite kind to its definition for family.
// The typedef syntax is shared; only the nested precisions differ.
func TypeTable(family string) map[datatype.Kind]datatype.Definition {
	return map[datatype.Kind]datatype.Definition{
		datatype.KindNamed:      NamedTypeDefinition{family: family},
		datatype.KindCompressed: CompressedTypeDefinition{family: family},
		datatype.KindExponent:   ExponentTypeDefinition{family: family},
		datatype.KindPacked:     PackedTypeDefinition{family: family},
	}
}

// TypeConverter binds type definitions and converts every owned precision.
type TypeConverter struct {
	precisions *PrecisionConverter
	table      map[datatype.Kind]datatype.Definition
}

// NewTypeConverter returns a type converter of the same family as pc.
func NewTypeConverter(pc *PrecisionConverter, table map[datatype.Kind]datatype.Definition) *TypeConverter {
	return &TypeConverter{precisions: pc, table: table}
}

// Family returns the backend family.
func (c *TypeConverter) Family() string { return c.precisions.Family() }

// Precisions returns the injected precision converter.
func (c *TypeConverter) Precisions() *PrecisionConverter { return c.precisions }

// Convert binds the definition for t's kind and converts its precisions.
// A type already converted by this family is returned unchanged. If any owned
// precision fails to convert the type is left unbound. An untyped value fails
// with ErrCodeUnsupportedTypeKind.
func (c *TypeConverter) Convert(t datatype.Type) (datatype.Type, error) {
	family := c.Family()
	if t == nil {
		return nil, newUnsupportedTypeKind(family, kindNil)
	}
	if datatype.BoundTo(t, family) {
		return t, nil
	}

	def, ok := c.table[t.Kind()]
	if !ok {
		return t, newUnsupportedTypeKind(family, t.Kind().String())
	}

	for _, p := range t.Precisions() {
		if _, err := c.precisions.Convert(p); err != nil {
			return t, fmt.Errorf("converting %s %q: %w", t.Kind(), t.TypeName(), err)
		}
	}

	if err := datatype.Bind(t, def); err != nil {
		if errors.Is(err, precision.ErrAlreadyBound) {
			return t, newAlreadyBound(family, err)
		}
		return t, err
	}
	return t, nil
}
