package precision

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrNotConverted is returned when rendering a precision no backend has bound.
	ErrNotConverted = errors.New("precision has not been converted to a backend")

	// ErrAlreadyBound is returned when a precision bound to one backend family is
	// offered to another.
	ErrAlreadyBound = errors.New("precision is already bound to another backend family")
)

// Kind identifies the concrete precision variant.
type Kind int

const (
	KindInteger Kind = iota + 1
	KindFixed
	KindExponent
	KindXnor
)

func (k Kind) String() string {
	switch k {
	case KindInteger:
		return "IntegerPrecision"
	case KindFixed:
		return "FixedPrecision"
	case KindExponent:
		return "ExponentPrecision"
	case KindXnor:
		return "XnorPrecision"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Definition renders a precision in one backend's type syntax.
// Family is the marker used to detect prior conversion.
type Definition interface {
	Family() string
	Render(p Precision) string
}

// Precision is a sealed interface: only the variants in this package implement it.
type Precision interface {
	Kind() Kind
	Width() int
	Signed() bool
	String() string

	// Definition returns the bound backend definition, or nil.
	Definition() Definition

	slot() *binding
}

type binding struct {
	def Definition
}

func (b *binding) Definition() Definition { return b.def }
func (b *binding) slot() *binding         { return b }

// Bind attaches def to p. Binding the family p is already bound to is a no-op.
func Bind(p Precision, def Definition) error {
	b := p.slot()
	if b.def != nil {
		if b.def.Family() == def.Family() {
			return nil
		}
		return fmt.Errorf("%s bound to %q, cannot bind to %q: %w",
			p.Kind(), b.def.Family(), def.Family(), ErrAlreadyBound)
	}
	b.def = def
	return nil
}

// BoundTo reports whether p has been converted by the given family.
func BoundTo(p Precision, family string) bool {
	def := p.Definition()
	return def != nil && def.Family() == family
}

// Render returns the backend type syntax for p.
func Render(p Precision) (string, error) {
	def := p.Definition()
	if def == nil {
		return "", fmt.Errorf("%s %s: %w", p.Kind(), p, ErrNotConverted)
	}
	return def.Render(p), nil
}

// IntegerPrecision is a plain integer of Width bits.
type IntegerPrecision struct {
	binding
	Bits     int
	IsSigned bool
}

// NewInteger returns an integer precision.
func NewInteger(width int, signed bool) *IntegerPrecision {
	return &IntegerPrecision{Bits: width, IsSigned: signed}
}

func (p *IntegerPrecision) Kind() Kind   { return KindInteger }
func (p *IntegerPrecision) Width() int   { return p.Bits }
func (p *IntegerPrecision) Signed() bool { return p.IsSigned }

func (p *IntegerPrecision) String() string {
	return fmt.Sprintf("%sint<%d>", unsignedPrefix(p.IsSigned), p.Bits)
}

// ExponentPrecision has integer semantics and is used for exponent fields
// of power-of-two encoded weights.
type ExponentPrecision struct {
	binding
	Bits     int
	IsSigned bool
}

// NewExponent returns an exponent precision.
func NewExponent(width int, signed bool) *ExponentPrecision {
	return &ExponentPrecision{Bits: width, IsSigned: signed}
}

func (p *ExponentPrecision) Kind() Kind   { return KindExponent }
func (p *ExponentPrecision) Width() int   { return p.Bits }
func (p *ExponentPrecision) Signed() bool { return p.IsSigned }

func (p *ExponentPrecision) String() string {
	return fmt.Sprintf("%sexponent<%d>", unsignedPrefix(p.IsSigned), p.Bits)
}

// XnorPrecision is the 1-bit unsigned encoding of binary networks.
type XnorPrecision struct {
	binding
}

// NewXnor returns an xnor precision.
func NewXnor() *XnorPrecision {
	return &XnorPrecision{}
}

func (p *XnorPrecision) Kind() Kind     { return KindXnor }
func (p *XnorPrecision) Width() int     { return 1 }
func (p *XnorPrecision) Signed() bool   { return false }
func (p *XnorPrecision) String() string { return "xnor" }

// FixedPrecision is a fixed-point number with Integer bits above the binary point.
// Integer may exceed Width, in which case the fractional part is negative.
type FixedPrecision struct {
	binding
	Bits           int
	Integer        int
	IsSigned       bool
	Rounding       RoundingMode
	Saturation     SaturationMode
	SaturationBits int
}

// NewFixed returns a fixed precision with truncation, wrap-around and no
// saturation bits, the defaults of every supported toolchain.
func NewFixed(width, integer int, signed bool) *FixedPrecision {
	return &FixedPrecision{
		Bits:       width,
		Integer:    integer,
		IsSigned:   signed,
		Rounding:   TRN,
		Saturation: WRAP,
	}
}

func (p *FixedPrecision) Kind() Kind   { return KindFixed }
func (p *FixedPrecision) Width() int   { return p.Bits }
func (p *FixedPrecision) Signed() bool { return p.IsSigned }

// Fractional returns the number of bits below the binary point.
func (p *FixedPrecision) Fractional() int { return p.Bits - p.Integer }

// IsDefaultQuantization reports whether rounding, saturation and saturation bits
// all hold the toolchain defaults.
func (p *FixedPrecision) IsDefaultQuantization() bool {
	return p.Rounding == TRN && p.Saturation == WRAP && p.SaturationBits == 0
}

func (p *FixedPrecision) String() string {
	args := []string{strconv.Itoa(p.Bits), strconv.Itoa(p.Integer)}
	if !p.IsDefaultQuantization() {
		if p.Rounding != RoundingUnset {
			args = append(args, p.Rounding.String())
		}
		if p.Saturation != SaturationUnset {
			args = append(args, p.Saturation.String())
		}
		if p.SaturationBits != 0 {
			args = append(args, strconv.Itoa(p.SaturationBits))
		}
	}
	return fmt.Sprintf("%sfixed<%s>", unsignedPrefix(p.IsSigned), strings.Join(args, ","))
}

func unsignedPrefix(signed bool) string {
	if signed {
		return ""
	}
	return "u"
}
