// Package model is the minimal layer graph handed from the front end to code
// emission: the activations and weights of one network, in layer order.
//
// The front end fills every value with an abstract type and a lowering request
// (pragma, struct membership, storage). Prepare runs the backend decorators over
// the whole graph; afterwards every variable can render its declaration.
package model

import (
	"fmt"
	"strings"

	"github.com/roach88/hlsgen/internal/backend"
	"github.com/roach88/hlsgen/internal/datatype"
	"github.com/roach88/hlsgen/internal/tensor"
)

// IOType selects how layers exchange activations.
type IOType string

const (
	IOParallel IOType = "io_parallel"
	IOStream   IOType = "io_stream"
)

// ParseIOType accepts io_parallel and io_stream; empty means io_parallel.
func ParseIOType(s string) (IOType, error) {
	switch IOType(strings.ToLower(strings.TrimSpace(s))) {
	case "", IOParallel:
		return IOParallel, nil
	case IOStream:
		return IOStream, nil
	default:
		return "", fmt.Errorf("unknown io type %q: must be io_parallel or io_stream", s)
	}
}

// Variable is an activation plus how the front end wants it lowered.
// The requested pragma lives in Tensor.Pragma until Prepare rewrites it.
type Variable struct {
	*tensor.Tensor

	// Struct, when set, makes the tensor a member of that struct.
	Struct string

	// Pack is the n_pack of a streamed tensor; negative unpacks. Zero means 1.
	Pack int
}

// Model is one network ready for conversion.
type Model struct {
	Name    string
	Backend string
	IOType  IOType

	// FIFO is the Catapult FIFO module used for streamed variables; empty
	// suppresses the resource directives.
	FIFO string

	Tensors []*Variable
	Weights []*tensor.Weight
}

// Tensor returns the variable named name, or nil.
func (m *Model) Tensor(name string) *Variable {
	for _, v := range m.Tensors {
		if v.Name == name || v.MemberName == name {
			return v
		}
	}
	return nil
}

// Prepare converts every variable of m with b, in order. It stops at the first
// failure; variables converted before it stay converted.
func Prepare(m *Model, b *backend.Backend) error {
	for _, v := range m.Tensors {
		if err := prepareTensor(m, b, v); err != nil {
			return fmt.Errorf("model %q: %w", m.Name, err)
		}
	}
	for _, w := range m.Weights {
		if err := prepareWeight(b, w); err != nil {
			return fmt.Errorf("model %q: %w", m.Name, err)
		}
	}
	return nil
}

func prepareTensor(m *Model, b *backend.Backend, v *Variable) error {
	pack := v.Pack
	if pack == 0 {
		pack = 1
	}
	var err error
	switch {
	case v.Input != nil:
		_, err = b.InplaceStream.Convert(v.Tensor, pack, 0)
	case v.Struct != "":
		_, err = b.StructMembers.Convert(v.Tensor, v.Pragma, v.Struct)
	case m.IOType == IOStream || v.Pragma.Mode == tensor.PragmaStream:
		_, err = b.Streams.Convert(v.Tensor, pack, v.Pragma.Depth)
	default:
		_, err = b.Arrays.Convert(v.Tensor, v.Pragma)
	}
	return err
}

// BRAM weights skip type conversion in their decorator, but their type still
// has to be defined, so it is converted here.
func prepareWeight(b *backend.Backend, w *tensor.Weight) error {
	if w.Storage == tensor.StorageBRAM {
		if _, err := b.Types.Convert(w.Type); err != nil {
			return fmt.Errorf("bram weight variable %q: %w", w.Name, err)
		}
		_, err := b.BramWeights.Convert(w)
		return err
	}
	_, err := b.StaticWeights.Convert(w)
	return err
}

// UsedTypes returns the converted types of m in first-use order, tensors
// before weights. A name already seen is skipped, so an in-place tensor never
// overrides the type of the tensor it aliases.
func UsedTypes(m *Model) []datatype.Type {
	seen := make(map[string]bool)
	var out []datatype.Type
	add := func(t datatype.Type) {
		if t == nil || t.Definition() == nil || seen[t.TypeName()] {
			return
		}
		seen[t.TypeName()] = true
		out = append(out, t)
	}
	for _, v := range m.Tensors {
		add(v.Type)
	}
	for _, w := range m.Weights {
		add(w.Type)
	}
	return out
}
