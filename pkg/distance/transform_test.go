package distance

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"maurerdist/internal/models"
)

const tolerance = 1e-5

// bruteForce computes the signed distance map the slow way: seeds are found
// by checking every neighbour, and each voxel scans every seed.
func bruteForce(vol *models.LabelVolume, opts Options) []float64 {
	c := newClassifier(opts)
	nx, ny, nz := vol.Size[0], vol.Size[1], vol.Size[2]
	sp := effectiveSpacing(vol.Geometry, opts)

	neighbours := faceOffsets
	if opts.FullyConnected {
		neighbours = fullOffsets
	}

	type seed struct{ x, y, z int }
	var seeds []seed
	for z := 0; z < nz; z++ {
		for y := 0; y < ny; y++ {
			for x := 0; x < nx; x++ {
				label := vol.At(x, y, z)
				if !c.inside(label) {
					continue
				}
				for _, o := range neighbours {
					px, py, pz := x+o.dx, y+o.dy, z+o.dz
					if px < 0 || py < 0 || pz < 0 || px >= nx || py >= ny || pz >= nz {
						if opts.BorderIsBackground {
							seeds = append(seeds, seed{x, y, z})
							break
						}
						continue
					}
					nl := vol.At(px, py, pz)
					if !c.inside(nl) || (opts.LabelEdges && nl != label) {
						seeds = append(seeds, seed{x, y, z})
						break
					}
				}
			}
		}
	}

	out := make([]float64, vol.Len())
	for z := 0; z < nz; z++ {
		for y := 0; y < ny; y++ {
			for x := 0; x < nx; x++ {
				best := math.Inf(1)
				for _, s := range seeds {
					dx := float64(x-s.x) * sp[0]
					dy := float64(y-s.y) * sp[1]
					dz := float64(z-s.z) * sp[2]
					if d := dx*dx + dy*dy + dz*dz; d < best {
						best = d
					}
				}
				d := math.Sqrt(best)
				if c.inside(vol.At(x, y, z)) != opts.InsideIsPositive && d != 0 {
					d = -d
				}
				out[vol.Index(x, y, z)] = d
			}
		}
	}
	return out
}

func randomVolume(rng *rand.Rand, n int, labels uint32) *models.LabelVolume {
	vol := models.NewLabelVolume(n, n, n)
	for i := range vol.Labels {
		vol.Labels[i] = uint32(rng.Intn(int(labels)))
	}
	return vol
}

func sphereVolume(n int, radius float64) *models.LabelVolume {
	vol := models.NewLabelVolume(n, n, n)
	c := float64(n-1) / 2
	for z := 0; z < n; z++ {
		for y := 0; y < n; y++ {
			for x := 0; x < n; x++ {
				dx, dy, dz := float64(x)-c, float64(y)-c, float64(z)-c
				if math.Sqrt(dx*dx+dy*dy+dz*dz) <= radius {
					vol.Set(x, y, z, 1)
				}
			}
		}
	}
	return vol
}

func TestTransformAllBackground(t *testing.T) {
	vol := models.NewLabelVolume(6, 5, 4)

	res, err := Transform(context.Background(), vol, DefaultOptions())
	require.NoError(t, err)

	assert.True(t, res.Degenerate)
	assert.Zero(t, res.Seeds)
	for i, v := range res.Volume.Data {
		require.False(t, math.IsNaN(float64(v)), "voxel %d is NaN", i)
		require.Equal(t, float32(Sentinel), v, "voxel %d", i)
	}
}

func TestTransformDegenerateError(t *testing.T) {
	vol := models.NewLabelVolume(4, 4, 4)
	opts := DefaultOptions()
	opts.Degenerate = DegenerateError

	_, err := Transform(context.Background(), vol, opts)
	assert.ErrorIs(t, err, ErrDegenerateInput)
}

func TestTransformAllForegroundWithoutBorder(t *testing.T) {
	vol := models.NewLabelVolume(3, 3, 3)
	for i := range vol.Labels {
		vol.Labels[i] = 7
	}
	opts := DefaultOptions()
	opts.BorderIsBackground = false

	res, err := Transform(context.Background(), vol, opts)
	require.NoError(t, err)
	assert.True(t, res.Degenerate)
	for _, v := range res.Volume.Data {
		assert.Equal(t, float32(-Sentinel), v)
	}
}

func TestTransformSinglePoint(t *testing.T) {
	const n = 15
	vol := models.NewLabelVolume(n, n, n)
	c := n / 2
	vol.Set(c, c, c, 1)

	res, err := Transform(context.Background(), vol, DefaultOptions())
	require.NoError(t, err)
	require.Equal(t, 1, res.Seeds)

	for z := 0; z < n; z++ {
		for y := 0; y < n; y++ {
			for x := 0; x < n; x++ {
				dx, dy, dz := float64(x-c), float64(y-c), float64(z-c)
				want := math.Sqrt(dx*dx + dy*dy + dz*dz)
				got := float64(res.Volume.At(x, y, z))
				require.InDelta(t, want, got, tolerance, "voxel (%d,%d,%d)", x, y, z)
			}
		}
	}
}

func TestTransformAnisotropicPlane(t *testing.T) {
	spacing := [3]float64{0.5, 2.0, 3.5}

	for axis := 0; axis < 3; axis++ {
		t.Run([]string{"x", "y", "z"}[axis], func(t *testing.T) {
			size := [3]int{6, 6, 6}
			size[axis] = 16
			vol := models.NewLabelVolume(size[0], size[1], size[2])
			vol.Spacing = spacing

			// foreground half-space: coordinate along axis < 5
			for i := range vol.Labels {
				x, y, z := vol.Coords(i)
				if [3]int{x, y, z}[axis] < 5 {
					vol.Labels[i] = 1
				}
			}

			opts := DefaultOptions()
			opts.BorderIsBackground = false

			res, err := Transform(context.Background(), vol, opts)
			require.NoError(t, err)

			at := func(k int) float64 {
				p := [3]int{2, 3, 1}
				p[axis] = k
				return float64(res.Volume.At(p[0], p[1], p[2]))
			}

			assert.InDelta(t, 0, at(4), tolerance)
			assert.InDelta(t, spacing[axis], at(5), tolerance)
			assert.InDelta(t, 5*spacing[axis], at(9), tolerance)
			assert.InDelta(t, -4*spacing[axis], at(0), tolerance)
		})
	}
}

func TestTransformMatchesBruteForce(t *testing.T) {
	tests := []struct {
		name string
		opts func(*Options)
	}{
		{name: "default", opts: func(o *Options) {}},
		{name: "fully connected", opts: func(o *Options) { o.FullyConnected = true }},
		{name: "border foreground", opts: func(o *Options) { o.BorderIsBackground = false }},
		{name: "label edges", opts: func(o *Options) { o.LabelEdges = true }},
		{name: "inside positive", opts: func(o *Options) { o.InsideIsPositive = true }},
		{name: "unit spacing", opts: func(o *Options) { o.UseImageSpacing = false }},
		{name: "foreground set", opts: func(o *Options) { o.ForegroundLabels = []uint32{2} }},
		{name: "single worker", opts: func(o *Options) { o.Workers = 1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rng := rand.New(rand.NewSource(42))
			for trial := 0; trial < 5; trial++ {
				// sparse foreground keeps most voxels away from seeds
				vol := models.NewLabelVolume(8, 8, 8)
				for i := range vol.Labels {
					if rng.Float64() < 0.08 {
						vol.Labels[i] = uint32(1 + rng.Intn(2))
					}
				}
				vol.Spacing = [3]float64{1.0, 0.7, 1.9}

				opts := DefaultOptions()
				tt.opts(&opts)

				res, err := Transform(context.Background(), vol, opts)
				require.NoError(t, err)
				if res.Degenerate {
					continue
				}

				want := bruteForce(vol, opts)
				for i, v := range res.Volume.Data {
					require.InDelta(t, want[i], float64(v), tolerance, "trial %d voxel %d", trial, i)
				}
			}
		})
	}
}

func TestTransformDenseRandom(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	vol := randomVolume(rng, 8, 3)
	vol.Spacing = [3]float64{1.3, 0.4, 2.2}
	opts := DefaultOptions()

	res, err := Transform(context.Background(), vol, opts)
	require.NoError(t, err)

	want := bruteForce(vol, opts)
	for i, v := range res.Volume.Data {
		require.InDelta(t, want[i], float64(v), tolerance, "voxel %d", i)
	}
}

func TestTransformSphereSign(t *testing.T) {
	const n = 31
	const radius = 9.0
	vol := sphereVolume(n, radius)

	res, err := Transform(context.Background(), vol, DefaultOptions())
	require.NoError(t, err)

	c := float64(n-1) / 2
	for z := 0; z < n; z++ {
		for y := 0; y < n; y++ {
			for x := 0; x < n; x++ {
				dx, dy, dz := float64(x)-c, float64(y)-c, float64(z)-c
				r := math.Sqrt(dx*dx + dy*dy + dz*dz)
				got := float64(res.Volume.At(x, y, z))

				switch {
				case r <= radius && got != 0:
					require.Less(t, got, 0.0, "inside voxel (%d,%d,%d)", x, y, z)
					// seeds sit one voxel inside the continuous surface
					require.InDelta(t, -(radius - r), got, 1.5, "inside voxel (%d,%d,%d)", x, y, z)
				case r > radius:
					require.Greater(t, got, 0.0, "outside voxel (%d,%d,%d)", x, y, z)
				}
			}
		}
	}

	centre := res.Volume.At(n/2, n/2, n/2)
	assert.InDelta(t, -radius, float64(centre), 1.0)
}

func TestTransformDeterministic(t *testing.T) {
	vol := sphereVolume(24, 7)
	vol.Spacing = [3]float64{0.8, 1.1, 2.5}

	first := DefaultOptions()
	first.Workers = 1
	second := DefaultOptions()
	second.Workers = 8

	a, err := Transform(context.Background(), vol, first)
	require.NoError(t, err)
	b, err := Transform(context.Background(), vol, second)
	require.NoError(t, err)
	c, err := Transform(context.Background(), vol, second)
	require.NoError(t, err)

	assert.Equal(t, a.Volume.Data, b.Volume.Data)
	assert.Equal(t, b.Volume.Data, c.Volume.Data)
}

func TestTransformDoesNotMutateInput(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	vol := randomVolume(rng, 6, 4)
	before := append([]uint32(nil), vol.Labels...)

	_, err := Transform(context.Background(), vol, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, before, vol.Labels)
}

func TestTransformSquaredDistance(t *testing.T) {
	vol := models.NewLabelVolume(9, 9, 9)
	vol.Set(4, 4, 4, 1)
	vol.Spacing = [3]float64{2, 1, 1}

	opts := DefaultOptions()
	opts.SquaredDistance = true

	res, err := Transform(context.Background(), vol, opts)
	require.NoError(t, err)

	// (3 voxels * 2mm)^2 + 1^2
	assert.InDelta(t, 37.0, float64(res.Volume.At(7, 5, 4)), tolerance)
}

func TestTransformFullyConnectedSeeds(t *testing.T) {
	vol := models.NewLabelVolume(4, 4, 4)
	for i := range vol.Labels {
		vol.Labels[i] = 1
	}
	vol.Set(0, 0, 0, 0)

	face := DefaultOptions()
	face.BorderIsBackground = false
	full := face
	full.FullyConnected = true

	faceRes, err := Transform(context.Background(), vol, face)
	require.NoError(t, err)
	fullRes, err := Transform(context.Background(), vol, full)
	require.NoError(t, err)

	assert.Equal(t, 3, faceRes.Seeds)
	assert.Equal(t, 7, fullRes.Seeds)
	assert.Equal(t, float32(0), fullRes.Volume.At(1, 1, 1))
	assert.InDelta(t, -math.Sqrt2, float64(faceRes.Volume.At(1, 1, 1)), tolerance)
}

func TestTransformInvalidVolume(t *testing.T) {
	valid := func() *models.LabelVolume { return models.NewLabelVolume(2, 2, 2) }

	tests := []struct {
		name string
		vol  func() *models.LabelVolume
	}{
		{name: "nil", vol: func() *models.LabelVolume { return nil }},
		{name: "zero dimension", vol: func() *models.LabelVolume {
			v := valid()
			v.Size[1] = 0
			return v
		}},
		{name: "buffer mismatch", vol: func() *models.LabelVolume {
			v := valid()
			v.Labels = v.Labels[:5]
			return v
		}},
		{name: "negative spacing", vol: func() *models.LabelVolume {
			v := valid()
			v.Spacing[2] = -1
			return v
		}},
		{name: "nan spacing", vol: func() *models.LabelVolume {
			v := valid()
			v.Spacing[0] = math.NaN()
			return v
		}},
		{name: "infinite spacing", vol: func() *models.LabelVolume {
			v := valid()
			v.Spacing[0] = math.Inf(1)
			return v
		}},
		{name: "spacing too large to square", vol: func() *models.LabelVolume {
			v := valid()
			v.Spacing = [3]float64{1e200, 1e200, 1e200}
			return v
		}},
		{name: "distances beyond float32", vol: func() *models.LabelVolume {
			v := valid()
			v.Spacing[1] = 1e39
			return v
		}},
		{name: "spacing squares to zero", vol: func() *models.LabelVolume {
			v := valid()
			v.Spacing[2] = 1e-170
			return v
		}},
		{name: "voxel count overflows", vol: func() *models.LabelVolume {
			return &models.LabelVolume{Geometry: models.NewGeometry(1<<32, 1<<32, 1<<32)}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Transform(context.Background(), tt.vol(), DefaultOptions())
			assert.ErrorIs(t, err, ErrInvalidVolume)
		})
	}
}

func TestTransformSpacingRange(t *testing.T) {
	vol := models.NewLabelVolume(2, 2, 2)
	vol.Set(0, 0, 0, 1)
	vol.Spacing = [3]float64{1e20, 1e20, 1e20}

	res, err := Transform(context.Background(), vol, DefaultOptions())
	require.NoError(t, err)
	assert.InDelta(t, 1e20, float64(res.Volume.At(1, 0, 0)), 1e14)

	squared := DefaultOptions()
	squared.SquaredDistance = true
	_, err = Transform(context.Background(), vol, squared)
	assert.ErrorIs(t, err, ErrInvalidVolume)

	vol.Spacing = [3]float64{1e200, 1e200, 1e200}
	voxels := DefaultOptions()
	voxels.UseImageSpacing = false
	res, err = Transform(context.Background(), vol, voxels)
	require.NoError(t, err)
	assert.InDelta(t, math.Sqrt(3), float64(res.Volume.At(1, 1, 1)), tolerance)
}

func TestTransformCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Transform(ctx, sphereVolume(10, 3), DefaultOptions())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTransformReportsElapsed(t *testing.T) {
	res, err := Transform(context.Background(), sphereVolume(12, 4), DefaultOptions())
	require.NoError(t, err)
	assert.Positive(t, res.Elapsed)
}
