// Package datatype defines the composite types emitted as typedefs: named aliases,
// compressed (sparse) weights, exponent (sign + magnitude) weights and packed arrays.
//
// Each composite type owns one or more precisions. Like precisions, a type is bound to
// a backend Definition exactly once; the backend's type converter is responsible for
// converting the owned precisions at the same time.
package datatype

import (
	"errors"
	"fmt"

	"github.com/roach88/hlsgen/internal/precision"
)

// ErrNotConverted is returned when rendering a type no backend has bound.
var ErrNotConverted = errors.New("type has not been converted to a backend")

// Kind identifies the concrete composite type.
type Kind int

const (
	KindNamed Kind = iota + 1
	KindCompressed
	KindExponent
	KindPacked
)

func (k Kind) String() string {
	switch k {
	case KindNamed:
		return "NamedType"
	case KindCompressed:
		return "CompressedType"
	case KindExponent:
		return "ExponentType"
	case KindPacked:
		return "PackedType"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Definition renders a composite type as a backend declaration.
type Definition interface {
	Family() string
	Render(t Type) (string, error)
}

// Type is a sealed interface over the composite variants.
type Type interface {
	Kind() Kind
	TypeName() string

	// Precision returns the primary (value) precision.
	Precision() precision.Precision

	// Precisions returns every owned precision in declaration order.
	Precisions() []precision.Precision

	Definition() Definition

	slot() *binding
}

type binding struct {
	def Definition
}

func (b *binding) Definition() Definition { return b.def }
func (b *binding) slot() *binding         { return b }

// Bind attaches def to t. It does not touch the owned precisions.
func Bind(t Type, def Definition) error {
	b := t.slot()
	if b.def != nil {
		if b.def.Family() == def.Family() {
			return nil
		}
		return fmt.Errorf("%s %q bound to %q, cannot bind to %q: %w",
			t.Kind(), t.TypeName(), b.def.Family(), def.Family(), precision.ErrAlreadyBound)
	}
	b.def = def
	return nil
}

// BoundTo reports whether t has been converted by the given family.
func BoundTo(t Type, family string) bool {
	def := t.Definition()
	return def != nil && def.Family() == family
}

// Render returns the newline-terminated declaration of t.
func Render(t Type) (string, error) {
	def := t.Definition()
	if def == nil {
		return "", fmt.Errorf("%s %q: %w", t.Kind(), t.TypeName(), ErrNotConverted)
	}
	return def.Render(t)
}

// NamedType is a typedef alias for a precision.
type NamedType struct {
	binding
	Name  string
	Value precision.Precision
}

// NewNamed returns a named type.
func NewNamed(name string, p precision.Precision) *NamedType {
	return &NamedType{Name: name, Value: p}
}

func (t *NamedType) Kind() Kind                        { return KindNamed }
func (t *NamedType) TypeName() string                  { return t.Name }
func (t *NamedType) Precision() precision.Precision    { return t.Value }
func (t *NamedType) Precisions() []precision.Precision { return []precision.Precision{t.Value} }

// CompressedType is a sparse weight triplet: row index, column index and value.
type CompressedType struct {
	binding
	Name  string
	Value precision.Precision
	Index precision.Precision
}

// NewCompressed returns a compressed type.
func NewCompressed(name string, value, index precision.Precision) *CompressedType {
	return &CompressedType{Name: name, Value: value, Index: index}
}

func (t *CompressedType) Kind() Kind                     { return KindCompressed }
func (t *CompressedType) TypeName() string               { return t.Name }
func (t *CompressedType) Precision() precision.Precision { return t.Value }
func (t *CompressedType) Precisions() []precision.Precision {
	return []precision.Precision{t.Value, t.Index}
}

// ExponentType is a power-of-two weight: a sign bit and an exponent magnitude.
type ExponentType struct {
	binding
	Name  string
	Value precision.Precision
	Sign  precision.Precision
}

// NewExponent returns an exponent type.
func NewExponent(name string, value, sign precision.Precision) *ExponentType {
	return &ExponentType{Name: name, Value: value, Sign: sign}
}

func (t *ExponentType) Kind() Kind                     { return KindExponent }
func (t *ExponentType) TypeName() string               { return t.Name }
func (t *ExponentType) Precision() precision.Precision { return t.Value }
func (t *ExponentType) Precisions() []precision.Precision {
	return []precision.Precision{t.Value, t.Sign}
}

// PackedType is an array of NElem elements grouped by NPack. Packing multiplies
// the element count, unpacking divides it.
type PackedType struct {
	binding
	Name   string
	Value  precision.Precision
	NElem  int
	NPack  int
	Unpack bool
}

// NewPacked returns a packed type. An n_pack below one is treated as one.
func NewPacked(name string, p precision.Precision, nElem, nPack int, unpack bool) *PackedType {
	if nPack < 1 {
		nPack = 1
	}
	return &PackedType{Name: name, Value: p, NElem: nElem, NPack: nPack, Unpack: unpack}
}

func (t *PackedType) Kind() Kind                        { return KindPacked }
func (t *PackedType) TypeName() string                  { return t.Name }
func (t *PackedType) Precision() precision.Precision    { return t.Value }
func (t *PackedType) Precisions() []precision.Precision { return []precision.Precision{t.Value} }

// Length returns the number of elements in one packed beat.
func (t *PackedType) Length() int {
	if t.Unpack {
		return t.NElem / t.NPack
	}
	return t.NElem * t.NPack
}
