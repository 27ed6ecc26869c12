// Package tensor holds the tensor-like values a layer graph exposes to code emission:
// activations (Tensor) and trained parameters (Weight).
//
// The front end fills in names, shapes and abstract types. A backend decorator then
// converts the type, records storage and pragma metadata, and attaches a Declarer that
// renders the C++ declaration. Decoration happens once: Unconverted -> Converted.
package tensor

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/hlsgen/internal/datatype"
)

// ErrNotConverted is returned when declaring a value no decorator has converted.
var ErrNotConverted = errors.New("variable has not been converted to a backend")

// Dim is one named dimension. The name is the C++ constant holding the size.
type Dim struct {
	Name string `json:"name" yaml:"name"`
	Size int    `json:"size" yaml:"size"`
}

// Shape is an ordered list of dimensions, batch dimension excluded.
type Shape []Dim

// Size returns the total element count.
func (s Shape) Size() int {
	if len(s) == 0 {
		return 0
	}
	n := 1
	for _, d := range s {
		n *= d.Size
	}
	return n
}

// Last returns the innermost dimension size, or 0 for an empty shape.
func (s Shape) Last() int {
	if len(s) == 0 {
		return 0
	}
	return s[len(s)-1].Size
}

// CPP returns the C++ size expression, e.g. "N_IN*N_OUT".
func (s Shape) CPP() string {
	names := make([]string, len(s))
	for i, d := range s {
		names[i] = d.Name
	}
	return strings.Join(names, "*")
}

// Form is the declaration shape chosen by a decorator.
type Form string

const (
	FormArray        Form = "array"
	FormStructMember Form = "struct_member"
	FormStream       Form = "stream"
)

// Declarer renders a converted tensor's declaration.
type Declarer interface {
	Family() string
	Form() Form
	Declare(t *Tensor, suffix string, asReference bool) string
}

// Tensor is a layer input or output.
type Tensor struct {
	Name   string
	Shape  Shape
	Type   datatype.Type
	Pragma Pragma

	// Input is the variable an in-place tensor aliases; nil otherwise.
	Input *Tensor

	// StructName and MemberName are set by the struct-member decorator.
	StructName string
	MemberName string

	decl Declarer
}

// NewTensor returns an unconverted tensor.
func NewTensor(name string, shape Shape, typ datatype.Type) *Tensor {
	return &Tensor{Name: name, Shape: shape, Type: typ}
}

// NewInplace returns an unconverted tensor sharing input's storage.
func NewInplace(name string, typ datatype.Type, input *Tensor) *Tensor {
	return &Tensor{Name: name, Shape: input.Shape, Type: typ, Input: input}
}

// Declarer returns the attached declarer, or nil before conversion.
func (t *Tensor) Declarer() Declarer { return t.decl }

// Converted reports whether a decorator has run.
func (t *Tensor) Converted() bool { return t.decl != nil }

// Decorate attaches d. It is meant for backend decorators only.
func (t *Tensor) Decorate(d Declarer) { t.decl = d }

// Declaration renders the backend declaration, e.g. "layer2_t layer2_out[N_LAYER_2]".
func (t *Tensor) Declaration(suffix string, asReference bool) (string, error) {
	if t.decl == nil {
		return "", fmt.Errorf("tensor %q: %w", t.Name, ErrNotConverted)
	}
	return t.decl.Declare(t, suffix, asReference), nil
}

// Storage says where a weight lives in the synthesized design.
type Storage string

const (
	StorageUnset    Storage = ""
	StorageRegister Storage = "register"
	StorageBRAM     Storage = "bram"
)

// ParseStorage accepts register/bram in any case; empty means register.
func ParseStorage(s string) (Storage, error) {
	switch Storage(strings.ToLower(strings.TrimSpace(s))) {
	case StorageUnset, StorageRegister:
		return StorageRegister, nil
	case StorageBRAM:
		return StorageBRAM, nil
	default:
		return StorageUnset, fmt.Errorf("unknown storage %q: must be register or bram", s)
	}
}

// WeightClass is the encoding of a weight, which selects the load routine.
type WeightClass string

const (
	WeightDense      WeightClass = "WeightVariable"
	WeightCompressed WeightClass = "CompressedWeightVariable"
	WeightExponent   WeightClass = "ExponentWeightVariable"
)

// ParseWeightClass accepts dense, compressed and exponent.
func ParseWeightClass(s string) (WeightClass, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "dense":
		return WeightDense, nil
	case "compressed":
		return WeightCompressed, nil
	case "exponent":
		return WeightExponent, nil
	default:
		return "", fmt.Errorf("unknown weight class %q: must be dense, compressed or exponent", s)
	}
}

// WeightDeclarer renders a converted weight's declaration.
type WeightDeclarer interface {
	Family() string
	Declare(w *Weight, suffix string, asReference bool) string
}

// Weight is a trained parameter array.
type Weight struct {
	Name string
	Type datatype.Type

	// Encoding is the value encoding chosen by the front end.
	Encoding WeightClass

	// Length is the number of stored elements (non-zeros for compressed weights).
	Length int

	// Storage and Class are set by the weight decorators.
	Storage Storage
	Class   WeightClass

	decl WeightDeclarer
}

// NewWeight returns an unconverted weight.
func NewWeight(name string, typ datatype.Type, encoding WeightClass, length int) *Weight {
	return &Weight{Name: name, Type: typ, Encoding: encoding, Length: length}
}

// Declarer returns the attached declarer, or nil before conversion.
func (w *Weight) Declarer() WeightDeclarer { return w.decl }

// Converted reports whether a weight decorator has run.
func (w *Weight) Converted() bool { return w.decl != nil }

// Decorate attaches d. It is meant for backend decorators only.
func (w *Weight) Decorate(d WeightDeclarer) { w.decl = d }

// Declaration renders the backend declaration, e.g. "weight2_t w2[128]".
func (w *Weight) Declaration(suffix string, asReference bool) (string, error) {
	if w.decl == nil {
		return "", fmt.Errorf("weight %q: %w", w.Name, ErrNotConverted)
	}
	return w.decl.Declare(w, suffix, asReference), nil
}
