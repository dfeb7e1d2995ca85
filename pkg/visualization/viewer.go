package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/tiff"

	"maurerdist/internal/models"
)

// Viewer renders 2D cross-sections of a signed distance map.
// Inside voxels (negative) are drawn in blue, outside voxels in red, and the
// zero level set in white.
type Viewer struct {
	// volume holds the distance map being viewed
	volume *models.DistanceVolume

	// rangeMM is the distance mapped to full colour saturation
	rangeMM float64
}

// NewViewer creates a viewer. A non-positive rangeMM picks the largest finite
// magnitude in the volume.
func NewViewer(volume *models.DistanceVolume, rangeMM float64) *Viewer {
	if rangeMM <= 0 {
		rangeMM = maxMagnitude(volume)
	}
	return &Viewer{
		volume:  volume,
		rangeMM: rangeMM,
	}
}

// maxMagnitude returns the largest non-sentinel absolute distance (at least 1)
func maxMagnitude(volume *models.DistanceVolume) float64 {
	m := 0.0
	for _, v := range volume.Data {
		a := math.Abs(float64(v))
		if a < math.MaxFloat32 && a > m {
			m = a
		}
	}
	if m == 0 {
		return 1
	}
	return m
}

// Color maps a signed distance to the diverging colour scale
func (v *Viewer) Color(d float32) color.RGBA {
	t := math.Min(1, math.Abs(float64(d))/v.rangeMM)
	fade := uint8(math.Round(255 * (1 - t)))
	if d < 0 {
		return color.RGBA{R: fade, G: fade, B: 255, A: 255}
	}
	return color.RGBA{R: 255, G: fade, B: fade, A: 255}
}

// ExtractSlice extracts a 2D slice from the 3D volume along the specified axis
func (v *Viewer) ExtractSlice(axis string, position int) (image.Image, error) {
	if position < 0 {
		return nil, fmt.Errorf("position must be non-negative")
	}

	width, height, depth := v.volume.Size[0], v.volume.Size[1], v.volume.Size[2]
	var img *image.RGBA

	switch axis {
	case "x", "X":
		// Extract slice along YZ plane
		if position >= width {
			return nil, fmt.Errorf("position %d exceeds width %d", position, width)
		}

		img = image.NewRGBA(image.Rect(0, 0, depth, height))
		for y := 0; y < height; y++ {
			for z := 0; z < depth; z++ {
				img.SetRGBA(z, y, v.Color(v.volume.At(position, y, z)))
			}
		}

	case "y", "Y":
		// Extract slice along XZ plane
		if position >= height {
			return nil, fmt.Errorf("position %d exceeds height %d", position, height)
		}

		img = image.NewRGBA(image.Rect(0, 0, width, depth))
		for z := 0; z < depth; z++ {
			for x := 0; x < width; x++ {
				img.SetRGBA(x, z, v.Color(v.volume.At(x, position, z)))
			}
		}

	case "z", "Z":
		// Extract slice along XY plane
		if position >= depth {
			return nil, fmt.Errorf("position %d exceeds depth %d", position, depth)
		}

		img = image.NewRGBA(image.Rect(0, 0, width, height))
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				img.SetRGBA(x, y, v.Color(v.volume.At(x, y, position)))
			}
		}

	default:
		return nil, fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
	}

	return img, nil
}

// SaveSlice saves an extracted slice, choosing the encoder from the file
// extension (.jpg, .png or .tif)
func (v *Viewer) SaveSlice(img image.Image, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		err = jpeg.Encode(file, img, &jpeg.Options{Quality: 90})
	case ".png":
		err = png.Encode(file, img)
	case ".tif", ".tiff":
		err = tiff.Encode(file, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true})
	default:
		err = fmt.Errorf("unsupported image format: %s", filepath.Ext(filename))
	}

	if cerr := file.Close(); err == nil {
		err = cerr
	}
	return err
}

// SaveSliceSequence extracts and saves every slice along the specified axis.
// It returns the number of files written.
func (v *Viewer) SaveSliceSequence(axis, outputDir, ext string) (int, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return 0, err
	}

	var maxPos int
	switch axis {
	case "x", "X":
		maxPos = v.volume.Size[0]
	case "y", "Y":
		maxPos = v.volume.Size[1]
	case "z", "Z":
		maxPos = v.volume.Size[2]
	default:
		return 0, fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
	}

	ext = "." + strings.TrimPrefix(ext, ".")
	for pos := 0; pos < maxPos; pos++ {
		img, err := v.ExtractSlice(axis, pos)
		if err != nil {
			return pos, err
		}

		filename := filepath.Join(outputDir, fmt.Sprintf("slice_%s_%03d%s", strings.ToLower(axis), pos, ext))
		if err := v.SaveSlice(img, filename); err != nil {
			return pos, err
		}
	}

	return maxPos, nil
}
