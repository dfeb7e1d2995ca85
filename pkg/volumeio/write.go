package volumeio

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zlib"

	"maurerdist/internal/models"
)

// WriteOptions controls how volumes are persisted
type WriteOptions struct {
	// Compress stores the payload zlib-compressed
	Compress bool
}

// WriteDistance writes a distance volume as MET_FLOAT
func WriteDistance(path string, vol *models.DistanceVolume, opts WriteOptions) error {
	if len(vol.Data) != vol.Len() {
		return writeErr(path, fmt.Errorf("%d values for %v grid", len(vol.Data), vol.Size))
	}

	payload := make([]byte, 4*len(vol.Data))
	for i, v := range vol.Data {
		binary.LittleEndian.PutUint32(payload[4*i:], math.Float32bits(v))
	}

	h := &header{geom: vol.Geometry, elementType: metFloat}
	return writeErr(path, writeVolume(path, h, payload, opts))
}

// WriteLabels writes a label volume using the smallest unsigned element type
// that holds its largest label
func WriteLabels(path string, vol *models.LabelVolume, opts WriteOptions) error {
	if len(vol.Labels) != vol.Len() {
		return writeErr(path, fmt.Errorf("%d labels for %v grid", len(vol.Labels), vol.Size))
	}

	var maxLabel uint32
	for _, l := range vol.Labels {
		maxLabel = max(maxLabel, l)
	}

	h := &header{geom: vol.Geometry}
	var payload []byte
	switch {
	case maxLabel <= math.MaxUint8:
		h.elementType = metUChar
		payload = make([]byte, len(vol.Labels))
		for i, l := range vol.Labels {
			payload[i] = byte(l)
		}
	case maxLabel <= math.MaxUint16:
		h.elementType = metUShort
		payload = make([]byte, 2*len(vol.Labels))
		for i, l := range vol.Labels {
			binary.LittleEndian.PutUint16(payload[2*i:], uint16(l))
		}
	default:
		h.elementType = metUInt
		payload = make([]byte, 4*len(vol.Labels))
		for i, l := range vol.Labels {
			binary.LittleEndian.PutUint32(payload[4*i:], l)
		}
	}

	return writeErr(path, writeVolume(path, h, payload, opts))
}

// writeVolume writes the header and payload. For .mhd the payload goes to a
// sibling .raw (or .zraw) file.
func writeVolume(path string, h *header, payload []byte, opts WriteOptions) error {
	if !isMetaImage(path) {
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}

	if opts.Compress {
		var buf bytes.Buffer
		zw := zlib.NewWriter(&buf)
		if _, err := zw.Write(payload); err != nil {
			return fmt.Errorf("compress voxel data: %w", err)
		}
		if err := zw.Close(); err != nil {
			return fmt.Errorf("compress voxel data: %w", err)
		}
		payload = buf.Bytes()
		h.compressed = true
		h.compressedSize = int64(len(payload))
	}

	local := strings.EqualFold(filepath.Ext(path), ".mha")
	h.dataFile = localData
	if !local {
		ext := ".raw"
		if opts.Compress {
			ext = ".zraw"
		}
		base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		h.dataFile = base + ext

		dataPath := filepath.Join(filepath.Dir(path), h.dataFile)
		if err := os.WriteFile(dataPath, payload, 0644); err != nil {
			return err
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}

	w := bufio.NewWriter(file)
	if err := h.format(w); err != nil {
		file.Close()
		return err
	}
	if local {
		if _, err := w.Write(payload); err != nil {
			file.Close()
			return err
		}
	}
	if err := w.Flush(); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
