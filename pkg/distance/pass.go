package distance

import (
	"context"
	"math"
)

// axisLines describes every scanline along one axis of an nx*ny*nz grid
type axisLines struct {
	count  int // number of scanlines
	length int // voxels per scanline
	stride int // flat index step between consecutive voxels
	base   func(line int) int
}

// linesAlong returns the scanline layout for axis 0 (X), 1 (Y) or 2 (Z)
func linesAlong(axis int, size [3]int) axisLines {
	nx, ny, nz := size[0], size[1], size[2]
	plane := nx * ny

	switch axis {
	case 0:
		return axisLines{
			count:  ny * nz,
			length: nx,
			stride: 1,
			base:   func(line int) int { return line * nx },
		}
	case 1:
		return axisLines{
			count:  nx * nz,
			length: ny,
			stride: nx,
			base: func(line int) int {
				x, z := line%nx, line/nx
				return z*plane + x
			},
		}
	default:
		return axisLines{
			count:  plane,
			length: nz,
			stride: plane,
			base:   func(line int) int { return line },
		}
	}
}

// axisBuffer is the scratch space for one worker during one pass.
// It is never shared between goroutines.
type axisBuffer struct {
	f []float64 // input row
	d []float64 // output row
	v []int     // envelope parabola vertices
	z []float64 // envelope breakpoints, len(v)+1
}

func newAxisBuffer(n int) *axisBuffer {
	return &axisBuffer{
		f: make([]float64, n),
		d: make([]float64, n),
		v: make([]int, n),
		z: make([]float64, n+1),
	}
}

func (b *axisBuffer) load(dist []float64, base, stride int) {
	for i := range b.f {
		b.f[i] = dist[base+i*stride]
	}
}

func (b *axisBuffer) store(dist []float64, base, stride int) {
	for i, v := range b.d {
		dist[base+i*stride] = v
	}
}

// runPass applies a 1D transform to every scanline along axis, in place.
func runPass(ctx context.Context, dist []float64, size [3]int, axis int, spacing float64, workers int, transform func(b *axisBuffer, spacing float64)) error {
	lines := linesAlong(axis, size)
	return parallelRange(ctx, lines.count, workers, func(lo, hi int) error {
		buf := newAxisBuffer(lines.length)
		for line := lo; line < hi; line++ {
			base := lines.base(line)
			buf.load(dist, base, lines.stride)
			transform(buf, spacing)
			buf.store(dist, base, lines.stride)
		}
		return nil
	})
}

// scanSeeds computes the squared physical distance to the nearest seed on a
// row whose entries are 0 (seed) or +Inf. Two sweeps track the nearest seed
// on each side.
func scanSeeds(b *axisBuffer, spacing float64) {
	n := len(b.f)
	inf := math.Inf(1)

	last := -1
	for p := 0; p < n; p++ {
		if b.f[p] == 0 {
			last = p
		}
		if last >= 0 {
			b.d[p] = float64(p - last)
		} else {
			b.d[p] = inf
		}
	}

	next := -1
	for p := n - 1; p >= 0; p-- {
		if b.f[p] == 0 {
			next = p
		}
		if next >= 0 {
			if gap := float64(next - p); gap < b.d[p] {
				b.d[p] = gap
			}
		}
		offset := b.d[p] * spacing
		b.d[p] = offset * offset
	}
}

// lowerEnvelope computes d(p) = min_q f(q) + ((p-q)*spacing)^2 over the row
// using the lower envelope of the parabolas rooted at every finite f(q).
// Infinite entries contribute no parabola; a row without any stays infinite.
func lowerEnvelope(b *axisBuffer, spacing float64) {
	n := len(b.f)
	f, d, v, z := b.f, b.d, b.v, b.z
	s2 := spacing * spacing

	// intersect returns the abscissa where the parabolas at r and q cross (r < q)
	intersect := func(r, q int) float64 {
		fr := f[r] + s2*float64(r*r)
		fq := f[q] + s2*float64(q*q)
		return (fq - fr) / (2 * s2 * float64(q-r))
	}

	k := -1
	for q := 0; q < n; q++ {
		if math.IsInf(f[q], 1) {
			continue
		}
		if k < 0 {
			k = 0
			v[0] = q
			z[0] = math.Inf(-1)
			z[1] = math.Inf(1)
			continue
		}

		s := intersect(v[k], q)
		for s <= z[k] {
			k--
			s = intersect(v[k], q)
		}
		k++
		v[k] = q
		z[k] = s
		z[k+1] = math.Inf(1)
	}

	if k < 0 {
		for p := range d {
			d[p] = math.Inf(1)
		}
		return
	}

	k = 0
	for p := 0; p < n; p++ {
		for z[k+1] < float64(p) {
			k++
		}
		off := float64(p-v[k]) * spacing
		d[p] = off*off + f[v[k]]
	}
}
