package distance

import (
	"fmt"
	"math"
	"runtime"
	"strings"
)

// Sentinel is the magnitude written to every voxel when the volume has no
// boundary and the fill policy is active.
const Sentinel = math.MaxFloat32

// DegeneratePolicy selects what happens when a volume has no seed voxels.
type DegeneratePolicy int

const (
	// DegenerateFill writes ±Sentinel everywhere, signed by inside/outside.
	DegenerateFill DegeneratePolicy = iota

	// DegenerateError fails the transform with ErrDegenerateInput.
	DegenerateError
)

// String returns the configuration name of the policy
func (p DegeneratePolicy) String() string {
	switch p {
	case DegenerateFill:
		return "fill"
	case DegenerateError:
		return "error"
	default:
		return fmt.Sprintf("DegeneratePolicy(%d)", int(p))
	}
}

// ParseDegeneratePolicy parses "fill" or "error"
func ParseDegeneratePolicy(s string) (DegeneratePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "fill":
		return DegenerateFill, nil
	case "error":
		return DegenerateError, nil
	default:
		return DegenerateFill, fmt.Errorf("unknown degenerate policy %q (must be fill or error)", s)
	}
}

// Options controls how labels are classified and how distances are reported.
type Options struct {
	// BackgroundLabel is the outside label when ForegroundLabels is empty.
	// Every other label is then inside.
	BackgroundLabel uint32

	// ForegroundLabels, when non-empty, lists exactly the labels treated as inside.
	ForegroundLabels []uint32

	// FullyConnected uses all 26 neighbours for boundary detection instead of
	// the 6 face neighbours.
	FullyConnected bool

	// BorderIsBackground treats voxels outside the grid as background, so
	// inside voxels on the outer faces become seeds.
	BorderIsBackground bool

	// LabelEdges also seeds inside voxels that touch a different inside label.
	LabelEdges bool

	// InsideIsPositive flips the sign convention (default: inside negative).
	InsideIsPositive bool

	// SquaredDistance reports signed squared distances.
	SquaredDistance bool

	// UseImageSpacing measures distances in physical units. When false every
	// axis has unit spacing.
	UseImageSpacing bool

	// Degenerate selects the behaviour for volumes without a boundary.
	Degenerate DegeneratePolicy

	// Workers bounds the number of goroutines per pass. Values below 1 use
	// runtime.NumCPU().
	Workers int
}

// DefaultOptions returns the conventional signed distance setup: label 0 is
// background, face connectivity, inside negative, physical units.
func DefaultOptions() Options {
	return Options{
		BorderIsBackground: true,
		UseImageSpacing:    true,
		Degenerate:         DegenerateFill,
		Workers:            runtime.NumCPU(),
	}
}

func (o Options) workers() int {
	if o.Workers < 1 {
		return runtime.NumCPU()
	}
	return o.Workers
}
