package tensor

import (
	"fmt"
	"strconv"
	"strings"
)

// PragmaMode is the memory layout requested from the synthesis tool.
type PragmaMode string

const (
	PragmaNone      PragmaMode = ""
	PragmaPartition PragmaMode = "partition"
	PragmaReshape   PragmaMode = "reshape"
	PragmaStream    PragmaMode = "stream"
)

// PartitionType is the array partitioning scheme.
type PartitionType string

const (
	PartitionComplete PartitionType = "complete"
	PartitionCyclic   PartitionType = "cyclic"
	PartitionBlock    PartitionType = "block"
)

// Pragma directs the emitter to partition/reshape an array or to stream it
// through a FIFO. The zero value requests nothing.
type Pragma struct {
	Mode      PragmaMode    `json:"mode,omitempty" yaml:"mode,omitempty"`
	Partition PartitionType `json:"partition,omitempty" yaml:"partition,omitempty"`
	Factor    int           `json:"factor,omitempty" yaml:"factor,omitempty"`
	Depth     int           `json:"depth,omitempty" yaml:"depth,omitempty"`
}

// Partition returns a complete partition (or reshape) pragma.
func Partition(mode PragmaMode) Pragma {
	return Pragma{Mode: mode, Partition: PartitionComplete}
}

// Stream returns a FIFO pragma of the given depth.
func Stream(depth int) Pragma {
	return Pragma{Mode: PragmaStream, Depth: depth}
}

// IsZero reports whether no pragma was requested.
func (p Pragma) IsZero() bool {
	return p.Mode == PragmaNone
}

// String returns the shorthand accepted by ParsePragma.
func (p Pragma) String() string {
	switch p.Mode {
	case PragmaNone:
		return ""
	case PragmaStream:
		if p.Depth == 0 {
			return string(PragmaStream)
		}
		return fmt.Sprintf("stream:%d", p.Depth)
	default:
		if p.Partition == "" || p.Partition == PartitionComplete {
			return string(p.Mode)
		}
		return fmt.Sprintf("%s:%s:%d", p.Mode, p.Partition, p.Factor)
	}
}

// ParsePragma reads the shorthand forms used in manifests:
//
//	partition  reshape  partition:complete  reshape:cyclic:4  partition:block:2
//	stream     stream:16
//
// The empty string yields the zero Pragma. A factor is required unless the
// partition type is complete.
func ParsePragma(s string) (Pragma, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "none" {
		return Pragma{}, nil
	}
	parts := strings.Split(s, ":")
	mode := PragmaMode(strings.ToLower(parts[0]))

	switch mode {
	case PragmaStream:
		if len(parts) > 2 {
			return Pragma{}, fmt.Errorf("invalid pragma %q: stream takes at most a depth", s)
		}
		p := Stream(0)
		if len(parts) == 2 {
			depth, err := strconv.Atoi(parts[1])
			if err != nil || depth < 0 {
				return Pragma{}, fmt.Errorf("invalid pragma %q: depth must be a non-negative number", s)
			}
			p.Depth = depth
		}
		return p, nil

	case PragmaPartition, PragmaReshape:
		p := Partition(mode)
		if len(parts) == 1 {
			return p, nil
		}
		switch typ := PartitionType(strings.ToLower(parts[1])); typ {
		case PartitionComplete:
			if len(parts) > 2 {
				return Pragma{}, fmt.Errorf("invalid pragma %q: complete partition takes no factor", s)
			}
			return p, nil
		case PartitionCyclic, PartitionBlock:
			if len(parts) != 3 {
				return Pragma{}, fmt.Errorf("invalid pragma %q: %s partition requires a factor", s, typ)
			}
			factor, err := strconv.Atoi(parts[2])
			if err != nil || factor < 1 {
				return Pragma{}, fmt.Errorf("invalid pragma %q: factor must be a positive number", s)
			}
			p.Partition = typ
			p.Factor = factor
			return p, nil
		default:
			return Pragma{}, fmt.Errorf("invalid pragma %q: unknown partition type %q", s, parts[1])
		}

	default:
		return Pragma{}, fmt.Errorf("invalid pragma %q: unknown mode %q", s, parts[0])
	}
}
