package models

import (
	"fmt"
	"math"
)

// IdentityDirection is the default direction cosine matrix (row-major)
var IdentityDirection = [9]float64{1, 0, 0, 0, 1, 0, 0, 0, 1}

// Geometry describes the voxel grid shared by label and distance volumes
type Geometry struct {
	// Size is the number of voxels along X, Y and Z
	Size [3]int

	// Spacing is the physical size of one voxel along each axis in mm
	Spacing [3]float64

	// Origin is the physical position of voxel (0,0,0)
	Origin [3]float64

	// Direction holds the direction cosines of the grid axes, row-major
	Direction [9]float64
}

// NewGeometry returns a geometry with unit spacing, zero origin and identity direction
func NewGeometry(nx, ny, nz int) Geometry {
	return Geometry{
		Size:      [3]int{nx, ny, nz},
		Spacing:   [3]float64{1, 1, 1},
		Direction: IdentityDirection,
	}
}

// Len returns the number of voxels in the grid
func (g Geometry) Len() int {
	return g.Size[0] * g.Size[1] * g.Size[2]
}

// Index converts voxel coordinates to the flat row-major index used by all volumes
func (g Geometry) Index(x, y, z int) int {
	return z*g.Size[0]*g.Size[1] + y*g.Size[0] + x
}

// Coords converts a flat index back to voxel coordinates
func (g Geometry) Coords(idx int) (x, y, z int) {
	plane := g.Size[0] * g.Size[1]
	z = idx / plane
	rem := idx % plane
	y = rem / g.Size[0]
	x = rem % g.Size[0]
	return x, y, z
}

// Contains reports whether the coordinates fall inside the grid
func (g Geometry) Contains(x, y, z int) bool {
	return x >= 0 && y >= 0 && z >= 0 && x < g.Size[0] && y < g.Size[1] && z < g.Size[2]
}

// PhysicalPoint maps voxel coordinates to physical space
func (g Geometry) PhysicalPoint(x, y, z int) [3]float64 {
	ix := float64(x) * g.Spacing[0]
	iy := float64(y) * g.Spacing[1]
	iz := float64(z) * g.Spacing[2]

	var p [3]float64
	for r := 0; r < 3; r++ {
		p[r] = g.Origin[r] + g.Direction[3*r]*ix + g.Direction[3*r+1]*iy + g.Direction[3*r+2]*iz
	}
	return p
}

// SameGeometry reports whether two geometries describe the same grid
func (g Geometry) SameGeometry(o Geometry) bool {
	return g.Size == o.Size && g.Spacing == o.Spacing && g.Origin == o.Origin && g.Direction == o.Direction
}

// Validate checks the grid dimensions and spacing
func (g Geometry) Validate() error {
	for axis, n := range g.Size {
		if n <= 0 {
			return fmt.Errorf("dimension %d must be positive, got %d", axis, n)
		}
	}
	nx, ny, nz := g.Size[0], g.Size[1], g.Size[2]
	if nx > math.MaxInt/ny || nx*ny > math.MaxInt/nz {
		return fmt.Errorf("grid %dx%dx%d has too many voxels", nx, ny, nz)
	}
	for axis, s := range g.Spacing {
		if !(s > 0) || math.IsInf(s, 0) {
			return fmt.Errorf("spacing %d must be positive and finite, got %v", axis, s)
		}
	}
	return nil
}

// LabelVolume is a 3D grid of integer labels as read from disk.
// Labels are stored as a 1D array in row-major order (x fastest).
type LabelVolume struct {
	Geometry

	// Labels holds one label per voxel
	Labels []uint32
}

// NewLabelVolume allocates a zeroed label volume with unit spacing
func NewLabelVolume(nx, ny, nz int) *LabelVolume {
	g := NewGeometry(nx, ny, nz)
	return &LabelVolume{
		Geometry: g,
		Labels:   make([]uint32, g.Len()),
	}
}

// At returns the label at the given voxel
func (v *LabelVolume) At(x, y, z int) uint32 {
	return v.Labels[v.Index(x, y, z)]
}

// Set assigns the label at the given voxel
func (v *LabelVolume) Set(x, y, z int, label uint32) {
	v.Labels[v.Index(x, y, z)] = label
}

// DistanceVolume holds a signed distance per voxel in physical units.
// It shares its geometry with the label volume it was computed from.
type DistanceVolume struct {
	Geometry

	// Data holds one distance per voxel
	Data []float32
}

// NewDistanceVolume allocates a zeroed distance volume with the given geometry
func NewDistanceVolume(g Geometry) *DistanceVolume {
	return &DistanceVolume{
		Geometry: g,
		Data:     make([]float32, g.Len()),
	}
}

// At returns the distance at the given voxel
func (v *DistanceVolume) At(x, y, z int) float32 {
	return v.Data[v.Index(x, y, z)]
}
