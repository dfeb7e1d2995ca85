package visualization

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"testing"

	"maurerdist/internal/models"
)

// rampVolume builds a distance map whose value is x - width/2 at every voxel
func rampVolume(width, height, depth int) *models.DistanceVolume {
	vol := models.NewDistanceVolume(models.NewGeometry(width, height, depth))
	for z := 0; z < depth; z++ {
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				vol.Data[vol.Index(x, y, z)] = float32(x - width/2)
			}
		}
	}
	return vol
}

// TestNewViewerRange verifies the automatic colour range
func TestNewViewerRange(t *testing.T) {
	viewer := NewViewer(rampVolume(10, 4, 3), 0)
	if viewer.rangeMM != 5 {
		t.Errorf("Expected automatic range 5, got %f", viewer.rangeMM)
	}

	viewer = NewViewer(rampVolume(10, 4, 3), 2.5)
	if viewer.rangeMM != 2.5 {
		t.Errorf("Expected explicit range 2.5, got %f", viewer.rangeMM)
	}

	empty := models.NewDistanceVolume(models.NewGeometry(2, 2, 2))
	if r := NewViewer(empty, 0).rangeMM; r != 1 {
		t.Errorf("Expected fallback range 1 for an all-zero map, got %f", r)
	}
}

// TestColor verifies the diverging colour map
func TestColor(t *testing.T) {
	viewer := NewViewer(rampVolume(4, 1, 1), 4)

	if c := viewer.Color(0); c.R != 255 || c.G != 255 || c.B != 255 {
		t.Errorf("Expected white at zero, got %+v", c)
	}
	if c := viewer.Color(-4); c.R != 0 || c.G != 0 || c.B != 255 {
		t.Errorf("Expected saturated blue inside, got %+v", c)
	}
	if c := viewer.Color(100); c.R != 255 || c.G != 0 || c.B != 0 {
		t.Errorf("Expected saturated red outside, got %+v", c)
	}
}

// TestExtractSlice verifies that slices are correctly extracted from the volume
func TestExtractSlice(t *testing.T) {
	width, height, depth := 10, 8, 5
	viewer := NewViewer(rampVolume(width, height, depth), 5)

	tests := []struct {
		axis          string
		position      int
		width, height int
	}{
		{"z", 2, width, height},
		{"y", 3, width, depth},
		{"x", 4, depth, height},
	}

	for _, tt := range tests {
		t.Run(tt.axis, func(t *testing.T) {
			img, err := viewer.ExtractSlice(tt.axis, tt.position)
			if err != nil {
				t.Fatalf("Failed to extract %s slice: %v", tt.axis, err)
			}

			bounds := img.Bounds()
			if bounds.Dx() != tt.width || bounds.Dy() != tt.height {
				t.Errorf("Expected %s slice dimensions %dx%d, got %dx%d",
					tt.axis, tt.width, tt.height, bounds.Dx(), bounds.Dy())
			}
		})
	}

	// the zero crossing of the ramp sits at x = width/2
	img, err := viewer.ExtractSlice("z", 0)
	if err != nil {
		t.Fatalf("Failed to extract Z slice: %v", err)
	}
	rgba, ok := img.(*image.RGBA)
	if !ok {
		t.Fatalf("Expected *image.RGBA, got %T", img)
	}
	if c := rgba.RGBAAt(width/2, 0); c.R != 255 || c.G != 255 || c.B != 255 {
		t.Errorf("Expected white at the zero level, got %+v", c)
	}
	if c := rgba.RGBAAt(0, 0); c.B != 255 || c.R != 0 {
		t.Errorf("Expected blue at the inside edge, got %+v", c)
	}

	if _, err := viewer.ExtractSlice("invalid", 0); err == nil {
		t.Error("Expected error for invalid axis, got nil")
	}
	if _, err := viewer.ExtractSlice("z", depth); err == nil {
		t.Error("Expected error for out of bounds position, got nil")
	}
	if _, err := viewer.ExtractSlice("x", -1); err == nil {
		t.Error("Expected error for negative position, got nil")
	}
}

// TestSaveSlice verifies that slices can be saved in every supported format
func TestSaveSlice(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping file I/O test in short mode")
	}

	tempDir := t.TempDir()
	viewer := NewViewer(rampVolume(10, 10, 5), 0)

	img, err := viewer.ExtractSlice("z", 0)
	if err != nil {
		t.Fatalf("Failed to extract slice: %v", err)
	}

	for _, name := range []string{"slice.jpg", "slice.png", "slice.tif"} {
		filename := filepath.Join(tempDir, name)
		if err := viewer.SaveSlice(img, filename); err != nil {
			t.Fatalf("Failed to save %s: %v", name, err)
		}
		if info, err := os.Stat(filename); err != nil || info.Size() == 0 {
			t.Errorf("Saved file missing or empty: %s", filename)
		}
	}

	if err := viewer.SaveSlice(img, filepath.Join(tempDir, "slice.bmp")); err == nil {
		t.Error("Expected error for unsupported format, got nil")
	}
}

// TestSaveSliceSequence verifies that a sequence of slices can be saved
func TestSaveSliceSequence(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping file I/O test in short mode")
	}

	width, height, depth := 5, 5, 3
	viewer := NewViewer(rampVolume(width, height, depth), 0)

	outputDir := filepath.Join(t.TempDir(), "slices")
	n, err := viewer.SaveSliceSequence("z", outputDir, "png")
	if err != nil {
		t.Fatalf("Failed to save slice sequence: %v", err)
	}
	if n != depth {
		t.Errorf("Expected %d slices, got %d", depth, n)
	}

	for z := 0; z < depth; z++ {
		filename := filepath.Join(outputDir, fmt.Sprintf("slice_z_%03d.png", z))
		if _, err := os.Stat(filename); os.IsNotExist(err) {
			t.Errorf("Expected slice file does not exist: %s", filename)
		}
	}

	if _, err := viewer.SaveSliceSequence("invalid", outputDir, "png"); err == nil {
		t.Error("Expected error for invalid axis, got nil")
	}
}
