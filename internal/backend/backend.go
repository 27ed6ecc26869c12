// Package backend lowers backend-neutral precisions, composite types and tensor
// variables to one synthesis toolchain.
//
// Two type families are modeled: FamilyAP (Xilinx ap_int/ap_fixed) and FamilyAC
// (Algorithmic C ac_int/ac_fixed). A Backend bundles, for one named toolchain, the
// precision converter, the type converter built on it, and the six variable
// decorators. Every converter is idempotent: converting a value twice with the same
// family is a no-op; converting it with another family is an error.
package backend

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/hlsgen/internal/datatype"
	"github.com/roach88/hlsgen/internal/diag"
	"github.com/roach88/hlsgen/internal/precision"
)

// Backend is the set of converters for one toolchain.
type Backend struct {
	Name   string
	Family string

	Precisions *PrecisionConverter
	Types      *TypeConverter

	Arrays        *ArrayConverter
	StructMembers *StructMemberConverter
	Streams       *StreamConverter
	InplaceStream *InplaceStreamConverter
	StaticWeights *StaticWeightConverter
	BramWeights   BramWeightConverter

	// Stream is the channel style used in declarations.
	Stream StreamStyle

	// Commented reports whether array pragmas are emitted as comments; the
	// Catapult flow uses its own resource directives instead.
	Commented bool
}

// Option customizes a Backend under construction.
type Option func(*config)

type config struct {
	precisionTable map[precision.Kind]precision.Definition
	typeTable      map[datatype.Kind]datatype.Definition
}

// WithPrecisionTable replaces the precision definition table, e.g. to drop
// kinds a toolchain cannot express.
func WithPrecisionTable(table map[precision.Kind]precision.Definition) Option {
	return func(c *config) { c.precisionTable = table }
}

// WithTypeTable replaces the composite type definition table.
func WithTypeTable(table map[datatype.Kind]datatype.Definition) Option {
	return func(c *config) { c.typeTable = table }
}

type entry struct {
	family    string
	stream    StreamStyle
	commented bool
}

var registry = map[string]entry{
	"vivado":   {family: FamilyAP, stream: StreamStyle{Template: "hls::stream", NamedConstructor: true}},
	"vitis":    {family: FamilyAP, stream: StreamStyle{Template: "hls::stream", NamedConstructor: true}},
	"catapult": {family: FamilyAC, stream: StreamStyle{Template: "ac_channel"}, commented: true},
	"oneapi":   {family: FamilyAC, stream: StreamStyle{Template: "stream"}},
	"quartus":  {family: FamilyAC, stream: StreamStyle{Template: "stream"}},
}

// Names returns the registered backend names in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup builds the named backend. Warnings raised while rendering go to sink.
func Lookup(name string, sink diag.Sink, opts ...Option) (*Backend, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	s, ok := registry[key]
	if !ok {
		return nil, &ConversionError{
			Code:    ErrCodeUnknownBackend,
			Message: fmt.Sprintf("unknown backend %q: must be one of %v", name, Names()),
			Kind:    name,
		}
	}
	if sink == nil {
		sink = diag.Discard
	}

	cfg := &config{typeTable: TypeTable(s.family)}
	switch s.family {
	case FamilyAP:
		cfg.precisionTable = APPrecisionTable()
	case FamilyAC:
		cfg.precisionTable = ACPrecisionTable(sink)
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return New(key, s.family, s.stream, s.commented, cfg.precisionTable, cfg.typeTable), nil
}

// New assembles a backend from explicit tables.
func New(name, family string, stream StreamStyle, commented bool,
	precisionTable map[precision.Kind]precision.Definition,
	typeTable map[datatype.Kind]datatype.Definition) *Backend {

	pc := NewPrecisionConverter(family, precisionTable)
	tc := NewTypeConverter(pc, typeTable)
	return &Backend{
		Name:          name,
		Family:        family,
		Precisions:    pc,
		Types:         tc,
		Arrays:        &ArrayConverter{types: tc},
		StructMembers: &StructMemberConverter{types: tc},
		Streams:       &StreamConverter{types: tc, style: stream},
		InplaceStream: &InplaceStreamConverter{StreamConverter{types: tc, style: stream}},
		StaticWeights: &StaticWeightConverter{types: tc},
		BramWeights:   BramWeightConverter{family: family},
		Stream:        stream,
		Commented:     commented,
	}
}
