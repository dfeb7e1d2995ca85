package distance

import "errors"

// Sentinel errors for transform failures.
var (
	// ErrInvalidVolume is returned when the label volume cannot be transformed
	// (nil volume, non-positive dimensions, bad spacing, wrong buffer size).
	ErrInvalidVolume = errors.New("invalid label volume")

	// ErrDegenerateInput is returned under DegenerateError when the volume
	// has no boundary at all, so no voxel has a finite distance.
	ErrDegenerateInput = errors.New("label volume has no boundary")

	// ErrGeometryMismatch is returned when two distance volumes are compared
	// over different grids.
	ErrGeometryMismatch = errors.New("volume geometries differ")
)
