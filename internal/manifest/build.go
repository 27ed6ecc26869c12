package manifest

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/hlsgen/internal/backend"
	"github.com/roach88/hlsgen/internal/datatype"
	"github.com/roach88/hlsgen/internal/model"
	"github.com/roach88/hlsgen/internal/precision"
	"github.com/roach88/hlsgen/internal/tensor"
)

// FieldError reports an invalid manifest field. Path uses CUE path syntax,
// e.g. "tensors[1].precision".
type FieldError struct {
	Path    string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// Field returns the last path element without list indices, e.g. "precision".
func (e *FieldError) Field() string {
	field := e.Path
	if i := strings.LastIndexByte(field, '.'); i >= 0 {
		field = field[i+1:]
	}
	if i := strings.IndexByte(field, '['); i >= 0 {
		field = field[:i]
	}
	return field
}

// ErrorList collects every FieldError found in one document.
type ErrorList []*FieldError

func (l ErrorList) Error() string {
	msgs := make([]string, len(l))
	for i, e := range l {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

// Unwrap exposes the individual errors to errors.As.
func (l ErrorList) Unwrap() []error {
	errs := make([]error, len(l))
	for i, e := range l {
		errs[i] = e
	}
	return errs
}

var encodingNames = map[tensor.WeightClass]string{
	tensor.WeightDense:      "dense",
	tensor.WeightCompressed: "compressed",
	tensor.WeightExponent:   "exponent",
}

// DefaultSignPrecision is the sign field of exponent weights when none is given.
const DefaultSignPrecision = "uint<1>"

type resolver struct {
	errs  ErrorList
	names map[string]bool
	types map[string]string
}

func (r *resolver) fail(path, format string, args ...any) {
	r.errs = append(r.errs, &FieldError{Path: path, Message: fmt.Sprintf(format, args...)})
}

func (r *resolver) precision(path, s string) string {
	if strings.TrimSpace(s) == "" {
		r.fail(path, "precision is required")
		return ""
	}
	p, err := precision.Parse(s)
	if err != nil {
		r.fail(path, "%v", err)
		return ""
	}
	return p.String()
}

func (r *resolver) name(path, name string) {
	switch {
	case name == "":
		r.fail(path, "name is required")
	case r.names[name]:
		r.fail(path, "duplicate variable %q", name)
	default:
		r.names[name] = true
	}
}

// typeName checks that every use of a type name agrees on its layout.
func (r *resolver) typeName(path, name, layout string) {
	if name == "" {
		r.fail(path, "type is required")
		return
	}
	if prev, ok := r.types[name]; ok && prev != layout {
		r.fail(path, "type %q already declared as %s", name, prev)
		return
	}
	r.types[name] = layout
}

// Resolve validates doc and returns a normalized copy: defaults applied,
// precisions and pragmas rewritten in canonical form. Every problem found is
// reported in the returned ErrorList.
func Resolve(doc *Document) (*Document, error) {
	r := &resolver{names: make(map[string]bool), types: make(map[string]string)}
	out := &Document{
		Name: strings.TrimSpace(doc.Name),
		FIFO: strings.TrimSpace(doc.FIFO),
	}
	if out.Name == "" {
		r.fail("name", "name is required")
	}

	out.Backend = strings.ToLower(strings.TrimSpace(doc.Backend))
	if out.Backend == "" {
		out.Backend = DefaultBackend
	}
	if !slices.Contains(backend.Names(), out.Backend) {
		r.fail("backend", "unknown backend %q: must be one of %v", doc.Backend, backend.Names())
	}

	io, err := model.ParseIOType(doc.IOType)
	if err != nil {
		r.fail("io_type", "%v", err)
	}
	out.IOType = string(io)

	if len(doc.Tensors) == 0 {
		r.fail("tensors", "at least one tensor is required")
	}
	for i, ts := range doc.Tensors {
		out.Tensors = append(out.Tensors, r.tensor(fmt.Sprintf("tensors[%d]", i), ts))
	}
	for i, ws := range doc.Weights {
		out.Weights = append(out.Weights, r.weight(fmt.Sprintf("weights[%d]", i), ws))
	}

	if len(r.errs) > 0 {
		return nil, r.errs
	}
	return out, nil
}

func (r *resolver) tensor(path string, ts TensorSpec) TensorSpec {
	out := TensorSpec{
		Name:   strings.TrimSpace(ts.Name),
		Type:   strings.TrimSpace(ts.Type),
		Struct: strings.TrimSpace(ts.Struct),
		Pack:   ts.Pack,
		Input:  strings.TrimSpace(ts.Input),
	}
	if out.Pack == 0 {
		out.Pack = 1
	}

	if out.Input != "" {
		// Checked before registering the name, so a tensor cannot alias itself.
		if !r.names[out.Input] {
			r.fail(path+".input", "unknown input tensor %q: must name an earlier tensor", out.Input)
		}
		if len(ts.Shape) > 0 {
			r.fail(path+".shape", "in-place tensors inherit the shape of their input")
		}
	} else {
		if len(ts.Shape) == 0 {
			r.fail(path+".shape", "shape is required")
		}
		for j, d := range ts.Shape {
			if strings.TrimSpace(d.Name) == "" {
				r.fail(fmt.Sprintf("%s.shape[%d].name", path, j), "dimension name is required")
			}
			if d.Size <= 0 {
				r.fail(fmt.Sprintf("%s.shape[%d].size", path, j), "dimension size %d must be positive", d.Size)
			}
		}
		out.Shape = append([]tensor.Dim(nil), ts.Shape...)
	}
	r.name(path+".name", out.Name)

	out.Precision = r.precision(path+".precision", ts.Precision)
	r.typeName(path+".type", out.Type, "named "+out.Precision)

	pragma := backend.DefaultArrayPragma
	if ts.Pragma != nil {
		p, err := tensor.ParsePragma(*ts.Pragma)
		if err != nil {
			r.fail(path+".pragma", "%v", err)
		}
		pragma = p
	}
	s := pragma.String()
	if s == "" {
		s = "none"
	}
	out.Pragma = strPtr(s)
	return out
}

func (r *resolver) weight(path string, ws WeightSpec) WeightSpec {
	out := WeightSpec{
		Name:   strings.TrimSpace(ws.Name),
		Type:   strings.TrimSpace(ws.Type),
		Length: ws.Length,
	}
	r.name(path+".name", out.Name)
	out.Precision = r.precision(path+".precision", ws.Precision)

	class, err := tensor.ParseWeightClass(ws.Encoding)
	if err != nil {
		r.fail(path+".encoding", "%v", err)
	}
	out.Encoding = encodingNames[class]

	layout := "named " + out.Precision
	switch class {
	case tensor.WeightCompressed:
		if strings.TrimSpace(ws.Index) == "" {
			r.fail(path+".index_precision", "compressed weights need an index precision")
		} else {
			out.Index = r.precision(path+".index_precision", ws.Index)
		}
		layout = fmt.Sprintf("compressed %s/%s", out.Precision, out.Index)
	case tensor.WeightExponent:
		sign := ws.Sign
		if strings.TrimSpace(sign) == "" {
			sign = DefaultSignPrecision
		}
		out.Sign = r.precision(path+".sign_precision", sign)
		layout = fmt.Sprintf("exponent %s/%s", out.Precision, out.Sign)
	}
	r.typeName(path+".type", out.Type, layout)

	if out.Length <= 0 {
		r.fail(path+".length", "length %d must be positive", out.Length)
	}

	storage, err := tensor.ParseStorage(ws.Storage)
	if err != nil {
		r.fail(path+".storage", "%v", err)
	}
	out.Storage = string(storage)
	return out
}

// Build resolves doc and creates a fresh, unconverted model from it. Every
// call returns new values, so one document can be prepared for several
// backends.
func Build(doc *Document) (*model.Model, error) {
	res, err := Resolve(doc)
	if err != nil {
		return nil, err
	}

	m := &model.Model{
		Name:    res.Name,
		Backend: res.Backend,
		IOType:  model.IOType(res.IOType),
		FIFO:    res.FIFO,
	}

	byName := make(map[string]*tensor.Tensor, len(res.Tensors))
	for _, ts := range res.Tensors {
		typ := datatype.NewNamed(ts.Type, mustParse(ts.Precision))
		var t *tensor.Tensor
		if ts.Input != "" {
			t = tensor.NewInplace(ts.Name, typ, byName[ts.Input])
		} else {
			t = tensor.NewTensor(ts.Name, tensor.Shape(ts.Shape), typ)
		}
		t.Pragma, _ = tensor.ParsePragma(*ts.Pragma)
		byName[ts.Name] = t
		m.Tensors = append(m.Tensors, &model.Variable{Tensor: t, Struct: ts.Struct, Pack: ts.Pack})
	}

	for _, ws := range res.Weights {
		class, _ := tensor.ParseWeightClass(ws.Encoding)
		value := mustParse(ws.Precision)

		var typ datatype.Type
		switch class {
		case tensor.WeightCompressed:
			typ = datatype.NewCompressed(ws.Type, value, mustParse(ws.Index))
		case tensor.WeightExponent:
			typ = datatype.NewExponent(ws.Type, value, mustParse(ws.Sign))
		default:
			typ = datatype.NewNamed(ws.Type, value)
		}

		w := tensor.NewWeight(ws.Name, typ, class, ws.Length)
		w.Storage = tensor.Storage(ws.Storage)
		m.Weights = append(m.Weights, w)
	}
	return m, nil
}

// mustParse parses a precision Resolve already validated.
func mustParse(s string) precision.Precision {
	p, err := precision.Parse(s)
	if err != nil {
		panic(fmt.Sprintf("manifest: resolved precision %q does not parse: %v", s, err))
	}
	return p
}
