// Package emit renders the C++ fragments a project writer splices into its
// templates: the defines header, variable declarations and memory pragmas.
//
// Every function here expects a model that went through model.Prepare.
package emit

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/hlsgen/internal/backend"
	"github.com/roach88/hlsgen/internal/datatype"
	"github.com/roach88/hlsgen/internal/model"
	"github.com/roach88/hlsgen/internal/tensor"
)

// ErrConflictingDimension is returned when two tensors give the same
// dimension constant different sizes.
var ErrConflictingDimension = errors.New("conflicting dimension size")

var includes = map[string][]string{
	backend.FamilyAP: {`#include "ap_fixed.h"`, `#include "ap_int.h"`},
	backend.FamilyAC: {`#include "ac_fixed.h"`, `#include "ac_int.h"`},
}

// Defines renders defines.h for m: one constexpr per dimension constant, in
// name order, then one definition per used type, in first-use order.
func Defines(m *model.Model, b *backend.Backend) (string, error) {
	numbers, err := Numbers(m)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString("#ifndef DEFINES_H_\n#define DEFINES_H_\n\n")
	for _, inc := range includes[b.Family] {
		sb.WriteString(inc + "\n")
	}
	sb.WriteString("#include \"nnet_utils/nnet_types.h\"\n#include <cstddef>\n#include <cstdio>\n\n")

	sb.WriteString("// " + m.Name + " dimensions\n")
	for _, n := range numbers {
		sb.WriteString(n + "\n")
	}

	sb.WriteString("\n// " + m.Name + " types\n")
	for _, t := range model.UsedTypes(m) {
		def, err := datatype.Render(t)
		if err != nil {
			return "", err
		}
		sb.WriteString(def)
	}

	sb.WriteString("\n#endif\n")
	return sb.String(), nil
}

// Numbers returns "constexpr size_t NAME = size;" for every dimension of every
// tensor, sorted by name.
func Numbers(m *model.Model) ([]string, error) {
	sizes := make(map[string]int)
	for _, v := range m.Tensors {
		for _, d := range v.Shape {
			if prev, ok := sizes[d.Name]; ok && prev != d.Size {
				return nil, fmt.Errorf("%w: %s is %d and %d", ErrConflictingDimension, d.Name, prev, d.Size)
			}
			sizes[d.Name] = d.Size
		}
	}
	names := make([]string, 0, len(sizes))
	for name := range sizes {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]string, len(names))
	for i, name := range names {
		out[i] = fmt.Sprintf("constexpr size_t %s = %d;", name, sizes[name])
	}
	return out, nil
}

// Declarations renders the body lines declaring every tensor and weight of m.
// Each tensor declaration is wrapped by its FIFO pragma (before) and array
// pragma (after) when the backend produces one.
func Declarations(m *model.Model, b *backend.Backend) ([]string, error) {
	var lines []string
	for _, v := range m.Tensors {
		decl, err := v.Declaration("", false)
		if err != nil {
			return nil, err
		}
		if b.Commented {
			if p := FIFOPragma(v.Tensor, m.FIFO); p != "" {
				lines = append(lines, p)
			}
		}
		lines = append(lines, decl+";")
		if p := ArrayPragma(v.Tensor, b, m.FIFO); p != "" {
			lines = append(lines, p)
		}
	}
	for _, w := range m.Weights {
		decl, err := w.Declaration("", false)
		if err != nil {
			return nil, err
		}
		lines = append(lines, decl+";")
	}
	return lines, nil
}

// ArrayPragma renders the memory directive for v.
//
//	#pragma HLS ARRAY_PARTITION variable=x complete dim=0
//	#pragma HLS ARRAY_RESHAPE variable=x cyclic factor=4 dim=0
//	#pragma HLS STREAM variable=x depth=8
//
// Commented backends emit the array forms as comments and map streams to a
// FIFO resource, or to nothing when fifo is empty.
func ArrayPragma(v *tensor.Tensor, b *backend.Backend, fifo string) string {
	p := v.Pragma
	switch p.Mode {
	case tensor.PragmaPartition, tensor.PragmaReshape:
		typ := p.Partition
		if typ == "" {
			typ = tensor.PartitionComplete
		}
		var out string
		if typ == tensor.PartitionComplete {
			out = fmt.Sprintf("#pragma HLS ARRAY_%s variable=%s %s dim=0",
				strings.ToUpper(string(p.Mode)), v.Name, typ)
		} else {
			out = fmt.Sprintf("#pragma HLS ARRAY_%s variable=%s %s factor=%d dim=0",
				strings.ToUpper(string(p.Mode)), v.Name, typ, p.Factor)
		}
		if b.Commented {
			return "// " + out
		}
		return out
	case tensor.PragmaStream:
		if !b.Commented {
			return fmt.Sprintf("#pragma HLS STREAM variable=%s depth=%d", v.Name, p.Depth)
		}
		if fifo == "" {
			return ""
		}
		return fmt.Sprintf(`#pragma hls_resource %s:cns variables="%s" map_to_module="%s" // depth="%d"`,
			v.Name, v.Name, fifo, p.Depth)
	default:
		return ""
	}
}

// FIFOPragma renders the Catapult FIFO depth hint placed before a streamed
// declaration. It is empty unless v streams and fifo is set.
func FIFOPragma(v *tensor.Tensor, fifo string) string {
	if v.Pragma.Mode != tensor.PragmaStream || fifo == "" {
		return ""
	}
	return fmt.Sprintf("// #pragma hls_fifo_depth %d", v.Pragma.Depth)
}
