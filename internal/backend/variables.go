package backend

import (
	"fmt"

	"github.com/roach88/hlsgen/internal/datatype"
	"github.com/roach88/hlsgen/internal/tensor"
)

// DefaultArrayPragma is the pragma array and struct-member decorators apply
// when the front end requested none.
var DefaultArrayPragma = tensor.Partition(tensor.PragmaPartition)

// StreamStyle describes how a backend declares FIFO channels.
type StreamStyle struct {
	// Template is the channel class, e.g. "hls::stream".
	Template string
	// NamedConstructor passes the variable name to the channel constructor.
	NamedConstructor bool
}

// arrayDeclarer renders "T name[A*B]"; references keep the array form.
type arrayDeclarer struct {
	family string
	form   tensor.Form
}

func (d arrayDeclarer) Family() string    { return d.family }
func (d arrayDeclarer) Form() tensor.Form { return d.form }

func (d arrayDeclarer) Declare(t *tensor.Tensor, suffix string, asReference bool) string {
	name := t.Name
	if d.form == tensor.FormStructMember {
		name = t.MemberName
	}
	return fmt.Sprintf("%s %s%s[%s]", t.Type.TypeName(), name, suffix, t.Shape.CPP())
}

// streamDeclarer renders channel declarations.
type streamDeclarer struct {
	family string
	style  StreamStyle
}

func (d streamDeclarer) Family() string    { return d.family }
func (d streamDeclarer) Form() tensor.Form { return tensor.FormStream }

func (d streamDeclarer) Declare(t *tensor.Tensor, suffix string, asReference bool) string {
	if asReference {
		return fmt.Sprintf("%s<%s> &%s%s", d.style.Template, t.Type.TypeName(), t.Name, suffix)
	}
	if d.style.NamedConstructor {
		return fmt.Sprintf("%s<%s> %s%s(\"%s\")", d.style.Template, t.Type.TypeName(), t.Name, suffix, t.Name)
	}
	return fmt.Sprintf("%s<%s> %s%s", d.style.Template, t.Type.TypeName(), t.Name, suffix)
}

// weightDeclarer renders "T name[length]" for register and BRAM weights alike.
type weightDeclarer struct {
	family string
}

func (d weightDeclarer) Family() string { return d.family }

func (weightDeclarer) Declare(w *tensor.Weight, suffix string, asReference bool) string {
	return fmt.Sprintf("%s %s%s[%d]", w.Type.TypeName(), w.Name, suffix, w.Length)
}

// alreadyConverted reports whether t was decorated by family. A tensor decorated
// by another family is an error.
func alreadyConverted(t *tensor.Tensor, family string) (bool, error) {
	d := t.Declarer()
	if d == nil {
		return false, nil
	}
	if d.Family() == family {
		return true, nil
	}
	return false, &ConversionError{
		Code:    ErrCodeAlreadyBound,
		Message: fmt.Sprintf("tensor %q already converted by family %q", t.Name, d.Family()),
		Family:  family,
	}
}

// weightConverted is alreadyConverted for weights.
func weightConverted(w *tensor.Weight, family string) (bool, error) {
	d := w.Declarer()
	if d == nil {
		return false, nil
	}
	if d.Family() == family {
		return true, nil
	}
	return false, &ConversionError{
		Code:    ErrCodeAlreadyBound,
		Message: fmt.Sprintf("weight %q already converted by family %q", w.Name, d.Family()),
		Family:  family,
	}
}

// ArrayConverter decorates a tensor as a plain array.
type ArrayConverter struct {
	types *TypeConverter
}

// Convert binds t's type, records pragma and attaches the array declarer.
func (c *ArrayConverter) Convert(t *tensor.Tensor, pragma tensor.Pragma) (*tensor.Tensor, error) {
	family := c.types.Family()
	if done, err := alreadyConverted(t, family); done || err != nil {
		return t, err
	}
	typ, err := c.types.Convert(t.Type)
	if err != nil {
		return t, fmt.Errorf("array variable %q: %w", t.Name, err)
	}
	t.Type = typ
	t.Pragma = pragma
	t.Decorate(arrayDeclarer{family: family, form: tensor.FormArray})
	return t, nil
}

// StructMemberConverter decorates a tensor as an array member of a struct.
type StructMemberConverter struct {
	types *TypeConverter
}

// Convert works like ArrayConverter.Convert and renames t to "structName.member".
// structName is required.
func (c *StructMemberConverter) Convert(t *tensor.Tensor, pragma tensor.Pragma, structName string) (*tensor.Tensor, error) {
	family := c.types.Family()
	if done, err := alreadyConverted(t, family); done || err != nil {
		return t, err
	}
	if structName == "" {
		return t, newMissingParameter(family, "struct_name", "StructMemberVariable")
	}
	typ, err := c.types.Convert(t.Type)
	if err != nil {
		return t, fmt.Errorf("struct member variable %q: %w", t.Name, err)
	}
	t.Type = typ
	t.Pragma = pragma
	t.StructName = structName
	t.MemberName = t.Name
	t.Name = t.StructName + "." + t.MemberName
	t.Decorate(arrayDeclarer{family: family, form: tensor.FormStructMember})
	return t, nil
}

// StreamConverter decorates a tensor as a FIFO of packed beats.
type StreamConverter struct {
	types *TypeConverter
	style StreamStyle
}

// Convert replaces t's type with a packed type over the innermost dimension and
// requests a FIFO of the given depth. A depth of 0 streams every beat:
// Size()/Last(). A negative nPack unpacks by -nPack.
func (c *StreamConverter) Convert(t *tensor.Tensor, nPack, depth int) (*tensor.Tensor, error) {
	family := c.types.Family()
	if done, err := alreadyConverted(t, family); done || err != nil {
		return t, err
	}
	if depth == 0 && t.Shape.Last() > 0 {
		depth = t.Shape.Size() / t.Shape.Last()
	}
	if err := c.pack(t, t.Shape.Last(), nPack); err != nil {
		return t, fmt.Errorf("stream variable %q: %w", t.Name, err)
	}
	t.Pragma = tensor.Stream(depth)
	t.Decorate(streamDeclarer{family: family, style: c.style})
	return t, nil
}

func (c *StreamConverter) pack(t *tensor.Tensor, nElem, nPack int) error {
	if t.Type == nil {
		return newUnsupportedTypeKind(c.types.Family(), kindNil)
	}
	unpack := false
	if nPack < 0 {
		nPack, unpack = -nPack, true
	}
	packed := datatype.NewPacked(t.Type.TypeName(), t.Type.Precision(), nElem, nPack, unpack)
	typ, err := c.types.Convert(packed)
	if err != nil {
		return err
	}
	t.Type = typ
	return nil
}

// InplaceStreamConverter decorates a tensor that shares its input's FIFO.
type InplaceStreamConverter struct {
	StreamConverter
}

// Convert packs t over the innermost dimension of t.Input and clears the
// pragma: an in-place stream never owns storage. depth is accepted for
// symmetry with StreamConverter and ignored.
func (c *InplaceStreamConverter) Convert(t *tensor.Tensor, nPack, depth int) (*tensor.Tensor, error) {
	family := c.types.Family()
	if done, err := alreadyConverted(t, family); done || err != nil {
		return t, err
	}
	if t.Input == nil {
		return t, newMissingParameter(family, "input_var", "InplaceStreamVariable")
	}
	if err := c.pack(t, t.Input.Shape.Last(), nPack); err != nil {
		return t, fmt.Errorf("inplace stream variable %q: %w", t.Name, err)
	}
	t.Pragma = tensor.Pragma{}
	t.Decorate(streamDeclarer{family: family, style: c.style})
	return t, nil
}

// StaticWeightConverter decorates weights emitted as inline array literals.
type StaticWeightConverter struct {
	types *TypeConverter
}

// Convert binds w's type, stores it in registers and records its encoding as
// the weight class.
func (c *StaticWeightConverter) Convert(w *tensor.Weight) (*tensor.Weight, error) {
	family := c.types.Family()
	if done, err := weightConverted(w, family); done || err != nil {
		return w, err
	}
	typ, err := c.types.Convert(w.Type)
	if err != nil {
		return w, fmt.Errorf("static weight variable %q: %w", w.Name, err)
	}
	w.Type = typ
	w.Class = w.Encoding
	if w.Class == "" {
		w.Class = tensor.WeightDense
	}
	w.Storage = tensor.StorageRegister
	w.Decorate(weightDeclarer{family: family})
	return w, nil
}

// BramWeightConverter marks weights as ROM resident. Their type is declared and
// initialized by the emitter's BRAM path, so no type conversion happens here.
type BramWeightConverter struct {
	family string
}

// Convert sets storage to BRAM. w must carry a type.
func (c BramWeightConverter) Convert(w *tensor.Weight) (*tensor.Weight, error) {
	if done, err := weightConverted(w, c.family); done || err != nil {
		return w, err
	}
	if w.Type == nil {
		return w, fmt.Errorf("bram weight variable %q: %w", w.Name, newUnsupportedTypeKind(c.family, kindNil))
	}
	w.Storage = tensor.StorageBRAM
	w.Decorate(weightDeclarer{family: c.family})
	return w, nil
}

// Declaration renders any decorated value, the single entry point used by
// emitters. Supported values are *tensor.Tensor and *tensor.Weight.
func Declaration(v any, suffix string, asReference bool) (string, error) {
	switch val := v.(type) {
	case *tensor.Tensor:
		return val.Declaration(suffix, asReference)
	case *tensor.Weight:
		return val.Declaration(suffix, asReference)
	default:
		return "", fmt.Errorf("unsupported variable type %T", v)
	}
}
