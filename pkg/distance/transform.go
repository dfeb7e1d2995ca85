package distance

import (
	"context"
	"fmt"
	"math"
	"time"

	"maurerdist/internal/models"
)

// Result holds the output of a single transform invocation
type Result struct {
	// Volume is the signed distance map, same geometry as the input
	Volume *models.DistanceVolume

	// Seeds is the number of boundary voxels (distance 0)
	Seeds int

	// Degenerate is set when the volume had no boundary and was filled
	// with the sentinel value
	Degenerate bool

	// Elapsed is the wall-clock time spent inside Transform
	Elapsed time.Duration
}

// Transform computes the signed Euclidean distance map of vol.
//
// Seed voxels (inside voxels on a boundary) get 0. Every other voxel gets the
// exact distance to the nearest seed, negative inside the foreground and
// positive outside unless opts.InsideIsPositive is set.
//
// The input volume is never modified.
func Transform(ctx context.Context, vol *models.LabelVolume, opts Options) (*Result, error) {
	start := time.Now()

	if err := validate(vol, opts); err != nil {
		return nil, err
	}

	feat, err := detectFeatures(ctx, vol, opts)
	if err != nil {
		return nil, err
	}

	out := models.NewDistanceVolume(vol.Geometry)
	res := &Result{Volume: out, Seeds: feat.count}

	if feat.count == 0 {
		if opts.Degenerate == DegenerateError {
			return nil, ErrDegenerateInput
		}
		fillSentinel(out, feat.inside, opts)
		res.Degenerate = true
		res.Elapsed = time.Since(start)
		return res, nil
	}

	dist := make([]float64, vol.Len())
	for i, seed := range feat.seeds {
		if !seed {
			dist[i] = math.Inf(1)
		}
	}

	spacing := effectiveSpacing(vol.Geometry, opts)
	workers := opts.workers()

	if err := runPass(ctx, dist, vol.Size, 0, spacing[0], workers, scanSeeds); err != nil {
		return nil, err
	}
	for axis := 1; axis < 3; axis++ {
		if err := runPass(ctx, dist, vol.Size, axis, spacing[axis], workers, lowerEnvelope); err != nil {
			return nil, err
		}
	}

	if err := assignSign(ctx, out, dist, feat.inside, opts); err != nil {
		return nil, err
	}

	res.Elapsed = time.Since(start)
	return res, nil
}

// validate rejects volumes the engine cannot process
func validate(vol *models.LabelVolume, opts Options) error {
	if vol == nil {
		return fmt.Errorf("%w: nil volume", ErrInvalidVolume)
	}
	if err := vol.Geometry.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidVolume, err)
	}
	if len(vol.Labels) != vol.Len() {
		return fmt.Errorf("%w: %d labels for %dx%dx%d grid",
			ErrInvalidVolume, len(vol.Labels), vol.Size[0], vol.Size[1], vol.Size[2])
	}
	return checkRange(vol.Geometry, opts)
}

// checkRange makes sure every squared step is representable and the largest
// possible output value fits a float32
func checkRange(g models.Geometry, opts Options) error {
	spacing := effectiveSpacing(g, opts)

	var diag2 float64
	for axis, s := range spacing {
		if s*s == 0 {
			return fmt.Errorf("%w: spacing %g along axis %d underflows", ErrInvalidVolume, s, axis)
		}
		extent := float64(g.Size[axis]) * s
		diag2 += extent * extent
	}

	largest := diag2
	if !opts.SquaredDistance {
		largest = math.Sqrt(diag2)
	}
	if largest > math.MaxFloat32 {
		return fmt.Errorf("%w: spacing %v gives distances beyond float32 range", ErrInvalidVolume, spacing)
	}
	return nil
}

func effectiveSpacing(g models.Geometry, opts Options) [3]float64 {
	if !opts.UseImageSpacing {
		return [3]float64{1, 1, 1}
	}
	return g.Spacing
}

// signFor returns the multiplier applied to inside or outside magnitudes
func signFor(inside bool, opts Options) float64 {
	if inside != opts.InsideIsPositive {
		return -1
	}
	return 1
}

// assignSign converts accumulated squared distances into signed output values
func assignSign(ctx context.Context, out *models.DistanceVolume, dist []float64, inside []bool, opts Options) error {
	nz := out.Size[2]
	plane := out.Size[0] * out.Size[1]
	return parallelRange(ctx, nz, opts.workers(), func(lo, hi int) error {
		for i := lo * plane; i < hi*plane; i++ {
			d := dist[i]
			if d == 0 {
				out.Data[i] = 0
				continue
			}
			if !opts.SquaredDistance {
				d = math.Sqrt(d)
			}
			out.Data[i] = float32(signFor(inside[i], opts) * d)
		}
		return nil
	})
}

// fillSentinel handles volumes without any boundary
func fillSentinel(out *models.DistanceVolume, inside []bool, opts Options) {
	for i := range out.Data {
		out.Data[i] = float32(signFor(inside[i], opts) * Sentinel)
	}
}
