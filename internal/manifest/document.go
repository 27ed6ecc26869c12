// Package manifest loads model descriptions from CUE or YAML and turns them
// into a model.Model ready for conversion.
//
// A manifest stands in for the layer graph a framework front end would
// produce: every activation and weight with its type name, precision, shape and
// lowering request. The same document can be resolved (defaults applied and
// every string normalized), hashed for run bookkeeping and written back as YAML.
//
// Example (YAML):
//
//	name: myproject
//	backend: vivado
//	io_type: io_parallel
//	tensors:
//	  - name: input_1
//	    type: input_t
//	    precision: fixed<16,6>
//	    shape: [{name: N_INPUT_1_1, size: 16}]
//	weights:
//	  - name: w2
//	    type: weight2_t
//	    precision: fixed<8,3>
//	    length: 128
package manifest

import (
	"github.com/roach88/hlsgen/internal/tensor"
)

// DefaultBackend is used when a manifest names none.
const DefaultBackend = "vivado"

// Document is the on-disk model description. Field names follow the json
// tags in CUE and the yaml tags in YAML.
type Document struct {
	Name    string       `json:"name" yaml:"name"`
	Backend string       `json:"backend,omitempty" yaml:"backend,omitempty"`
	IOType  string       `json:"io_type,omitempty" yaml:"io_type,omitempty"`
	FIFO    string       `json:"fifo,omitempty" yaml:"fifo,omitempty"`
	Tensors []TensorSpec `json:"tensors" yaml:"tensors"`
	Weights []WeightSpec `json:"weights,omitempty" yaml:"weights,omitempty"`
}

// TensorSpec describes one activation.
type TensorSpec struct {
	Name      string       `json:"name" yaml:"name"`
	Type      string       `json:"type" yaml:"type"`
	Precision string       `json:"precision" yaml:"precision"`
	Shape     []tensor.Dim `json:"shape,omitempty" yaml:"shape,omitempty"`

	// Pragma uses the tensor.ParsePragma shorthand. Absent means a complete
	// partition; "none" requests nothing.
	Pragma *string `json:"pragma,omitempty" yaml:"pragma,omitempty"`

	Struct string `json:"struct,omitempty" yaml:"struct,omitempty"`
	Pack   int    `json:"pack,omitempty" yaml:"pack,omitempty"`

	// Input names an earlier tensor this one aliases in place. Its shape is
	// inherited; Shape must be empty.
	Input string `json:"input,omitempty" yaml:"input,omitempty"`
}

// WeightSpec describes one trained parameter array.
type WeightSpec struct {
	Name      string `json:"name" yaml:"name"`
	Type      string `json:"type" yaml:"type"`
	Precision string `json:"precision" yaml:"precision"`

	// Encoding is dense, compressed or exponent.
	Encoding string `json:"encoding,omitempty" yaml:"encoding,omitempty"`

	// Index is the row/column index precision of compressed weights.
	Index string `json:"index_precision,omitempty" yaml:"index_precision,omitempty"`

	// Sign is the sign field precision of exponent weights; uint<1> if empty.
	Sign string `json:"sign_precision,omitempty" yaml:"sign_precision,omitempty"`

	Length  int    `json:"length" yaml:"length"`
	Storage string `json:"storage,omitempty" yaml:"storage,omitempty"`
}

func strPtr(s string) *string { return &s }
