// Package distance computes exact signed Euclidean distance maps over 3D label
// volumes.
//
// The transform runs in three stages. Seed voxels are found on the inside of
// every foreground/background interface. A separable pass along X gives the
// squared distance to the nearest seed on each row, and passes along Y and Z
// fold those rows together with a lower envelope of parabolas. Voxel spacing
// is applied to offsets before squaring, so anisotropic grids stay exact.
//
// Every pass splits its scanlines across a bounded worker pool and waits for
// all of them before the next axis starts.
package distance
