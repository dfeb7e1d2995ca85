// Package volumeio reads and writes 3D volumes in the MetaImage format
// (.mha with an embedded payload, .mhd with a separate .raw or .zraw file).
package volumeio

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"maurerdist/internal/models"
)

// Element types understood by this package
const (
	metUChar  = "MET_UCHAR"
	metChar   = "MET_CHAR"
	metUShort = "MET_USHORT"
	metShort  = "MET_SHORT"
	metUInt   = "MET_UINT"
	metInt    = "MET_INT"
	metFloat  = "MET_FLOAT"
	metDouble = "MET_DOUBLE"

	localData = "LOCAL"
)

// elementSizes maps element types to their size in bytes
var elementSizes = map[string]int{
	metUChar:  1,
	metChar:   1,
	metUShort: 2,
	metShort:  2,
	metUInt:   4,
	metInt:    4,
	metFloat:  4,
	metDouble: 8,
}

// header is the parsed MetaImage header
type header struct {
	geom           models.Geometry
	elementType    string
	msb            bool
	compressed     bool
	compressedSize int64
	headerSize     int64
	orientation    string
	dataFile       string
}

// isMetaImage reports whether path has a MetaImage extension
func isMetaImage(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mha", ".mhd":
		return true
	}
	return false
}

// parseHeader reads key = value lines up to and including ElementDataFile
func parseHeader(r *bufio.Reader) (*header, error) {
	h := &header{geom: models.Geometry{Spacing: [3]float64{1, 1, 1}, Direction: models.IdentityDirection}}
	seen := map[string]bool{}

	for {
		line, err := r.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			if errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("%w: missing ElementDataFile", ErrCorruptHeader)
			}
			return nil, err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("%w: malformed line %q", ErrCorruptHeader, line)
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		seen[key] = true

		if err := h.set(key, value); err != nil {
			return nil, err
		}
		if key == "ElementDataFile" {
			break
		}
	}

	if !seen["DimSize"] {
		return nil, fmt.Errorf("%w: missing DimSize", ErrCorruptHeader)
	}
	if !seen["ElementType"] {
		return nil, fmt.Errorf("%w: missing ElementType", ErrCorruptHeader)
	}
	if err := h.geom.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptHeader, err)
	}
	return h, nil
}

// set applies a single header entry
func (h *header) set(key, value string) error {
	switch key {
	case "ObjectType":
		if !strings.EqualFold(value, "Image") {
			return fmt.Errorf("%w: object type %q", ErrUnsupportedFormat, value)
		}
	case "NDims":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%w: NDims %q", ErrCorruptHeader, value)
		}
		if n != 3 {
			return fmt.Errorf("%w: %d dimensions (need 3)", ErrUnsupportedFormat, n)
		}
	case "BinaryData":
		b, err := parseBool(value)
		if err != nil {
			return err
		}
		if !b {
			return fmt.Errorf("%w: ASCII voxel data", ErrUnsupportedFormat)
		}
	case "BinaryDataByteOrderMSB", "ElementByteOrderMSB":
		b, err := parseBool(value)
		if err != nil {
			return err
		}
		h.msb = b
	case "CompressedData":
		b, err := parseBool(value)
		if err != nil {
			return err
		}
		h.compressed = b
	case "CompressedDataSize":
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil || n < 0 {
			return fmt.Errorf("%w: CompressedDataSize %q", ErrCorruptHeader, value)
		}
		h.compressedSize = n
	case "HeaderSize":
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: HeaderSize %q", ErrCorruptHeader, value)
		}
		if n < 0 {
			return fmt.Errorf("%w: HeaderSize %d", ErrUnsupportedFormat, n)
		}
		h.headerSize = n
	case "TransformMatrix", "Rotation", "Orientation":
		m, err := parseFloats(key, value, 9)
		if err != nil {
			return err
		}
		// rows of TransformMatrix are axis directions, i.e. columns of Direction
		for axis := 0; axis < 3; axis++ {
			for r := 0; r < 3; r++ {
				h.geom.Direction[3*r+axis] = m[3*axis+r]
			}
		}
	case "Offset", "Position", "Origin":
		v, err := parseFloats(key, value, 3)
		if err != nil {
			return err
		}
		copy(h.geom.Origin[:], v)
	case "ElementSpacing":
		v, err := parseFloats(key, value, 3)
		if err != nil {
			return err
		}
		copy(h.geom.Spacing[:], v)
	case "DimSize":
		fields := strings.Fields(value)
		if len(fields) != 3 {
			return fmt.Errorf("%w: DimSize %q", ErrCorruptHeader, value)
		}
		for i, f := range fields {
			n, err := strconv.Atoi(f)
			if err != nil || n <= 0 {
				return fmt.Errorf("%w: DimSize %q", ErrCorruptHeader, value)
			}
			h.geom.Size[i] = n
		}
	case "ElementNumberOfChannels":
		if value != "1" {
			return fmt.Errorf("%w: %s channels", ErrUnsupportedFormat, value)
		}
	case "ElementType":
		if _, ok := elementSizes[value]; !ok {
			return fmt.Errorf("%w: element type %s", ErrUnsupportedFormat, value)
		}
		h.elementType = value
	case "AnatomicalOrientation":
		h.orientation = value
	case "ElementDataFile":
		if value == "" {
			return fmt.Errorf("%w: empty ElementDataFile", ErrCorruptHeader)
		}
		if strings.HasPrefix(value, "LIST") || strings.ContainsAny(value, "%") {
			return fmt.Errorf("%w: multi-file data %q", ErrUnsupportedFormat, value)
		}
		h.dataFile = value
	}
	return nil
}

// format renders the header in the key order ITK writes
func (h *header) format(w io.Writer) error {
	var b strings.Builder

	fmt.Fprintln(&b, "ObjectType = Image")
	fmt.Fprintln(&b, "NDims = 3")
	fmt.Fprintln(&b, "BinaryData = True")
	fmt.Fprintf(&b, "BinaryDataByteOrderMSB = %s\n", formatBool(h.msb))
	fmt.Fprintf(&b, "CompressedData = %s\n", formatBool(h.compressed))
	if h.compressed {
		fmt.Fprintf(&b, "CompressedDataSize = %d\n", h.compressedSize)
	}

	var m [9]float64
	for axis := 0; axis < 3; axis++ {
		for r := 0; r < 3; r++ {
			m[3*axis+r] = h.geom.Direction[3*r+axis]
		}
	}
	fmt.Fprintf(&b, "TransformMatrix = %s\n", joinFloats(m[:]))
	fmt.Fprintf(&b, "Offset = %s\n", joinFloats(h.geom.Origin[:]))
	fmt.Fprintln(&b, "CenterOfRotation = 0 0 0")

	orientation := h.orientation
	if orientation == "" {
		orientation = "RAI"
	}
	fmt.Fprintf(&b, "AnatomicalOrientation = %s\n", orientation)
	fmt.Fprintf(&b, "ElementSpacing = %s\n", joinFloats(h.geom.Spacing[:]))
	fmt.Fprintf(&b, "DimSize = %d %d %d\n", h.geom.Size[0], h.geom.Size[1], h.geom.Size[2])
	fmt.Fprintf(&b, "ElementType = %s\n", h.elementType)
	fmt.Fprintf(&b, "ElementDataFile = %s\n", h.dataFile)

	_, err := io.WriteString(w, b.String())
	return err
}

func parseBool(value string) (bool, error) {
	switch strings.ToLower(value) {
	case "true", "1":
		return true, nil
	case "false", "0":
		return false, nil
	}
	return false, fmt.Errorf("%w: boolean %q", ErrCorruptHeader, value)
}

func formatBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

func parseFloats(key, value string, n int) ([]float64, error) {
	fields := strings.Fields(value)
	if len(fields) != n {
		return nil, fmt.Errorf("%w: %s needs %d values, got %q", ErrCorruptHeader, key, n, value)
	}
	out := make([]float64, n)
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s %q", ErrCorruptHeader, key, value)
		}
		out[i] = v
	}
	return out, nil
}

func joinFloats(v []float64) string {
	parts := make([]string, len(v))
	for i, f := range v {
		parts[i] = strconv.FormatFloat(f, 'g', -1, 64)
	}
	return strings.Join(parts, " ")
}
