package volumeio

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zlib"

	"maurerdist/internal/models"
)

// ReadLabels loads a label volume. Integer element types are accepted;
// negative labels are rejected.
func ReadLabels(path string) (*models.LabelVolume, error) {
	h, payload, err := readVolume(path)
	if err != nil {
		return nil, readErr(path, err)
	}

	labels, err := decodeLabels(h, payload)
	if err != nil {
		return nil, readErr(path, err)
	}
	return &models.LabelVolume{Geometry: h.geom, Labels: labels}, nil
}

// ReadDistance loads a floating point volume such as a written distance map
func ReadDistance(path string) (*models.DistanceVolume, error) {
	h, payload, err := readVolume(path)
	if err != nil {
		return nil, readErr(path, err)
	}

	data, err := decodeFloats(h, payload)
	if err != nil {
		return nil, readErr(path, err)
	}
	return &models.DistanceVolume{Geometry: h.geom, Data: data}, nil
}

// readVolume parses the header and returns the raw, uncompressed payload
func readVolume(path string) (*header, []byte, error) {
	if !isMetaImage(path) {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	br := bufio.NewReader(file)
	h, err := parseHeader(br)
	if err != nil {
		return nil, nil, err
	}

	var src io.Reader = br
	avail, err := remaining(file, br.Buffered())
	if err != nil {
		return nil, nil, err
	}

	if h.dataFile != localData {
		dataPath := filepath.Join(filepath.Dir(path), h.dataFile)
		data, err := os.Open(dataPath)
		if err != nil {
			return nil, nil, err
		}
		defer data.Close()

		if h.headerSize > 0 {
			if _, err := data.Seek(h.headerSize, io.SeekStart); err != nil {
				return nil, nil, err
			}
		}
		if avail, err = remaining(data, 0); err != nil {
			return nil, nil, err
		}
		src = bufio.NewReader(data)
	}

	payload, err := readPayload(src, h, avail)
	if err != nil {
		return nil, nil, err
	}
	return h, payload, nil
}

// remaining returns the number of bytes of f not yet consumed, where
// buffered bytes were read from f into a reader but not consumed from it
func remaining(f *os.File, buffered int) (int64, error) {
	fi, err := f.Stat()
	if err != nil {
		return 0, err
	}
	pos, err := f.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, err
	}
	return fi.Size() - pos + int64(buffered), nil
}

// readPayload reads the voxel data. Raw payloads are checked against the
// avail bytes left in the file before anything is allocated; compressed
// payloads grow with the data actually inflated.
func readPayload(src io.Reader, h *header, avail int64) ([]byte, error) {
	elem := elementSizes[h.elementType]
	n := h.geom.Len()
	if n > math.MaxInt/elem {
		return nil, fmt.Errorf("%w: %d voxels of %d bytes", ErrCorruptHeader, n, elem)
	}
	size := n * elem

	if h.compressed {
		if h.compressedSize > 0 {
			src = io.LimitReader(src, h.compressedSize)
		}
		zr, err := zlib.NewReader(src)
		if err != nil {
			return nil, fmt.Errorf("open compressed data: %w", err)
		}
		defer zr.Close()

		payload, err := io.ReadAll(io.LimitReader(zr, int64(size)))
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: truncated compressed data", ErrShortData)
		}
		if err != nil {
			return nil, fmt.Errorf("inflate voxel data: %w", err)
		}
		if len(payload) < size {
			return nil, fmt.Errorf("%w: want %d bytes, got %d", ErrShortData, size, len(payload))
		}
		return payload, nil
	}

	if int64(size) > avail {
		return nil, fmt.Errorf("%w: want %d bytes, file has %d", ErrShortData, size, avail)
	}
	payload := make([]byte, size)
	if _, err := io.ReadFull(src, payload); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, fmt.Errorf("%w: want %d bytes", ErrShortData, size)
		}
		return nil, err
	}
	return payload, nil
}

func byteOrder(h *header) binary.ByteOrder {
	if h.msb {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

func decodeLabels(h *header, payload []byte) ([]uint32, error) {
	n := h.geom.Len()
	order := byteOrder(h)
	labels := make([]uint32, n)

	negative := func(i int, v int64) error {
		return fmt.Errorf("%w: negative label %d at voxel %d", ErrUnsupportedFormat, v, i)
	}

	switch h.elementType {
	case metUChar:
		for i := 0; i < n; i++ {
			labels[i] = uint32(payload[i])
		}
	case metChar:
		for i := 0; i < n; i++ {
			v := int8(payload[i])
			if v < 0 {
				return nil, negative(i, int64(v))
			}
			labels[i] = uint32(v)
		}
	case metUShort:
		for i := 0; i < n; i++ {
			labels[i] = uint32(order.Uint16(payload[2*i:]))
		}
	case metShort:
		for i := 0; i < n; i++ {
			v := int16(order.Uint16(payload[2*i:]))
			if v < 0 {
				return nil, negative(i, int64(v))
			}
			labels[i] = uint32(v)
		}
	case metUInt:
		for i := 0; i < n; i++ {
			labels[i] = order.Uint32(payload[4*i:])
		}
	case metInt:
		for i := 0; i < n; i++ {
			v := int32(order.Uint32(payload[4*i:]))
			if v < 0 {
				return nil, negative(i, int64(v))
			}
			labels[i] = uint32(v)
		}
	default:
		return nil, fmt.Errorf("%w: %s is not a label type", ErrUnsupportedFormat, h.elementType)
	}
	return labels, nil
}

func decodeFloats(h *header, payload []byte) ([]float32, error) {
	n := h.geom.Len()
	order := byteOrder(h)
	data := make([]float32, n)

	switch h.elementType {
	case metFloat:
		for i := 0; i < n; i++ {
			data[i] = math.Float32frombits(order.Uint32(payload[4*i:]))
		}
	case metDouble:
		for i := 0; i < n; i++ {
			data[i] = float32(math.Float64frombits(order.Uint64(payload[8*i:])))
		}
	default:
		return nil, fmt.Errorf("%w: %s is not a floating point type", ErrUnsupportedFormat, h.elementType)
	}
	return data, nil
}
