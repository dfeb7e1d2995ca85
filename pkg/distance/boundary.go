package distance

import (
	"context"

	"maurerdist/internal/models"
)

// offset is a neighbour displacement in voxel coordinates
type offset struct {
	dx, dy, dz int
}

// faceOffsets are the 6 face neighbours
var faceOffsets = []offset{
	{-1, 0, 0}, {1, 0, 0},
	{0, -1, 0}, {0, 1, 0},
	{0, 0, -1}, {0, 0, 1},
}

// fullOffsets are the 26 face, edge and corner neighbours
var fullOffsets = func() []offset {
	var out []offset
	for dz := -1; dz <= 1; dz++ {
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if dx == 0 && dy == 0 && dz == 0 {
					continue
				}
				out = append(out, offset{dx, dy, dz})
			}
		}
	}
	return out
}()

// features is the outcome of boundary detection: which voxels are inside and
// which are seeds (inside voxels on a boundary, distance 0).
type features struct {
	inside []bool
	seeds  []bool
	count  int
}

// classifier decides whether a label is inside the foreground region
type classifier struct {
	background uint32
	foreground map[uint32]struct{}
}

func newClassifier(opts Options) classifier {
	c := classifier{background: opts.BackgroundLabel}
	if len(opts.ForegroundLabels) > 0 {
		c.foreground = make(map[uint32]struct{}, len(opts.ForegroundLabels))
		for _, l := range opts.ForegroundLabels {
			c.foreground[l] = struct{}{}
		}
	}
	return c
}

func (c classifier) inside(label uint32) bool {
	if c.foreground != nil {
		_, ok := c.foreground[label]
		return ok
	}
	return label != c.background
}

// detectFeatures classifies every voxel and marks the boundary mask.
// Both steps run in parallel over z-planes.
func detectFeatures(ctx context.Context, vol *models.LabelVolume, opts Options) (*features, error) {
	n := vol.Len()
	nx, ny, nz := vol.Size[0], vol.Size[1], vol.Size[2]
	plane := nx * ny
	workers := opts.workers()

	f := &features{
		inside: make([]bool, n),
		seeds:  make([]bool, n),
	}

	c := newClassifier(opts)
	err := parallelRange(ctx, nz, workers, func(lo, hi int) error {
		for i := lo * plane; i < hi*plane; i++ {
			f.inside[i] = c.inside(vol.Labels[i])
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	neighbours := faceOffsets
	if opts.FullyConnected {
		neighbours = fullOffsets
	}

	counts := make([]int, nz)
	err = parallelRange(ctx, nz, workers, func(lo, hi int) error {
		for z := lo; z < hi; z++ {
			for y := 0; y < ny; y++ {
				for x := 0; x < nx; x++ {
					idx := z*plane + y*nx + x
					if !f.inside[idx] {
						continue
					}
					if isSeed(vol, f.inside, neighbours, opts, x, y, z, idx) {
						f.seeds[idx] = true
						counts[z]++
					}
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, k := range counts {
		f.count += k
	}
	return f, nil
}

// isSeed reports whether the inside voxel at (x,y,z) touches the outside
func isSeed(vol *models.LabelVolume, inside []bool, neighbours []offset, opts Options, x, y, z, idx int) bool {
	label := vol.Labels[idx]
	for _, o := range neighbours {
		px, py, pz := x+o.dx, y+o.dy, z+o.dz
		if !vol.Contains(px, py, pz) {
			if opts.BorderIsBackground {
				return true
			}
			continue
		}
		nidx := vol.Index(px, py, pz)
		if !inside[nidx] {
			return true
		}
		if opts.LabelEdges && vol.Labels[nidx] != label {
			return true
		}
	}
	return false
}
