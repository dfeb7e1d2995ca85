package distance

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/kdtree"

	"maurerdist/internal/models"
)

// seedPoint is a voxel position scaled by the grid spacing, so that
// kd-tree distances are physical distances
type seedPoint [3]float64

// Compare orders two seeds along one grid axis
func (p seedPoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	return p[d] - c.(seedPoint)[d]
}

func (p seedPoint) Dims() int { return 3 }

// Distance is squared, which is what the squared output mode reports directly
func (p seedPoint) Distance(c kdtree.Comparable) float64 {
	q := c.(seedPoint)
	var d2 float64
	for axis := range p {
		d := p[axis] - q[axis]
		d2 += d * d
	}
	return d2
}

// seedPoints holds every seed of a volume while the tree is built
type seedPoints []seedPoint

func (s seedPoints) Index(i int) kdtree.Comparable         { return s[i] }
func (s seedPoints) Len() int                              { return len(s) }
func (s seedPoints) Slice(start, end int) kdtree.Interface { return s[start:end] }

func (s seedPoints) Pivot(d kdtree.Dim) int {
	axis := seedAxis{seeds: s, axis: d}
	return kdtree.Partition(axis, kdtree.MedianOfRandoms(axis, 100))
}

// seedAxis sorts seeds along a single axis for median selection
type seedAxis struct {
	seeds seedPoints
	axis  kdtree.Dim
}

func (a seedAxis) Len() int           { return len(a.seeds) }
func (a seedAxis) Less(i, j int) bool { return a.seeds[i][a.axis] < a.seeds[j][a.axis] }
func (a seedAxis) Swap(i, j int)      { a.seeds[i], a.seeds[j] = a.seeds[j], a.seeds[i] }

func (a seedAxis) Slice(start, end int) kdtree.SortSlicer {
	return seedAxis{seeds: a.seeds[start:end], axis: a.axis}
}

// Reference answers exact nearest-seed queries with a KD-tree over all seed
// voxels. It is independent of the separable passes and is used to check them.
type Reference struct {
	geom    models.Geometry
	opts    Options
	spacing [3]float64
	inside  []bool
	seeds   []bool
	tree    *kdtree.Tree
	count   int
}

// NewReference detects the seeds of vol and indexes them
func NewReference(ctx context.Context, vol *models.LabelVolume, opts Options) (*Reference, error) {
	if err := validate(vol, opts); err != nil {
		return nil, err
	}

	feat, err := detectFeatures(ctx, vol, opts)
	if err != nil {
		return nil, err
	}
	if feat.count == 0 && opts.Degenerate == DegenerateError {
		return nil, ErrDegenerateInput
	}

	r := &Reference{
		geom:    vol.Geometry,
		opts:    opts,
		spacing: effectiveSpacing(vol.Geometry, opts),
		inside:  feat.inside,
		seeds:   feat.seeds,
		count:   feat.count,
	}

	if feat.count > 0 {
		points := make(seedPoints, 0, feat.count)
		for i, seed := range feat.seeds {
			if seed {
				x, y, z := vol.Coords(i)
				points = append(points, r.point(x, y, z))
			}
		}
		r.tree = kdtree.New(points, false)
	}
	return r, nil
}

func (r *Reference) point(x, y, z int) seedPoint {
	return seedPoint{
		float64(x) * r.spacing[0],
		float64(y) * r.spacing[1],
		float64(z) * r.spacing[2],
	}
}

// Seeds returns the number of seed voxels
func (r *Reference) Seeds() int { return r.count }

// At returns the signed distance at (x,y,z)
func (r *Reference) At(x, y, z int) float32 {
	idx := r.geom.Index(x, y, z)
	sign := signFor(r.inside[idx], r.opts)

	if r.tree == nil {
		return float32(sign * Sentinel)
	}
	if r.seeds[idx] {
		return 0
	}

	_, d2 := r.tree.Nearest(r.point(x, y, z))
	if !r.opts.SquaredDistance {
		d2 = math.Sqrt(d2)
	}
	return float32(sign * d2)
}

// Volume evaluates every voxel, in parallel over z-planes
func (r *Reference) Volume(ctx context.Context) (*models.DistanceVolume, error) {
	out := models.NewDistanceVolume(r.geom)
	nx, ny := r.geom.Size[0], r.geom.Size[1]
	err := parallelRange(ctx, r.geom.Size[2], r.opts.workers(), func(lo, hi int) error {
		for z := lo; z < hi; z++ {
			for y := 0; y < ny; y++ {
				for x := 0; x < nx; x++ {
					out.Data[r.geom.Index(x, y, z)] = r.At(x, y, z)
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// MaxAbsDiff returns the largest absolute difference between two distance
// volumes over the same grid
func MaxAbsDiff(a, b *models.DistanceVolume) (float64, error) {
	if !a.SameGeometry(b.Geometry) || len(a.Data) != len(b.Data) {
		return 0, fmt.Errorf("%w: %v vs %v", ErrGeometryMismatch, a.Size, b.Size)
	}
	var worst float64
	for i := range a.Data {
		if d := math.Abs(float64(a.Data[i]) - float64(b.Data[i])); d > worst {
			worst = d
		}
	}
	return worst, nil
}
