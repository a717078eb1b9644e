package mesh

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"math"
	"strconv"
	"strings"
)

const (
	binaryHeaderSize = 80
	binaryCountSize  = 4
	// 12 bytes normal + 3 vertices of 12 bytes + 2-byte attribute count.
	binaryRecordSize = 50

	// How many triangles (binary) or lines (ASCII) to process between
	// deadline checks. Keeps the ctx.Err call off the hot path.
	deadlineCheckStride = 4096
)

// Measure parses an STL payload and returns its Measurement. The operation is
// pure: no side effects, identical bytes always yield an identical result.
//
// The context bounds processing time; when its deadline expires mid-parse the
// call fails with ErrTimeout. Callers are expected to treat any error here as
// "measurement unavailable" rather than fatal.
func Measure(ctx context.Context, data []byte, format Format) (Measurement, error) {
	switch format {
	case FormatBinarySTL:
		return measureBinary(ctx, data)
	case FormatASCIISTL:
		return measureASCII(ctx, data)
	}

	// Auto-detection. Binary framing wins when the declared triangle count is
	// consistent with the remaining byte length; this is the only reliable
	// signal, since binary headers may legally begin with "solid".
	if _, ok := binaryFraming(data); ok {
		return measureBinary(ctx, data)
	}
	if looksASCII(data) {
		return measureASCII(ctx, data)
	}
	if len(data) >= binaryHeaderSize+binaryCountSize {
		declared := binary.LittleEndian.Uint32(data[binaryHeaderSize:])
		implied := int64(binaryHeaderSize+binaryCountSize) + int64(declared)*binaryRecordSize
		if implied > int64(len(data)) {
			return Measurement{}, ErrTruncated
		}
	}
	return Measurement{}, ErrUnsupportedFormat
}

func binaryFraming(data []byte) (int, bool) {
	if len(data) < binaryHeaderSize+binaryCountSize {
		return 0, false
	}
	declared := binary.LittleEndian.Uint32(data[binaryHeaderSize:])
	expected := int64(binaryHeaderSize+binaryCountSize) + int64(declared)*binaryRecordSize
	if expected != int64(len(data)) {
		return 0, false
	}
	return int(declared), true
}

func looksASCII(data []byte) bool {
	head := bytes.TrimLeft(data, " \t\r\n")
	if !bytes.HasPrefix(head, []byte("solid")) {
		return false
	}
	return bytes.Contains(data, []byte("facet")) || bytes.Contains(data, []byte("endsolid"))
}

func measureBinary(ctx context.Context, data []byte) (Measurement, error) {
	if len(data) < binaryHeaderSize+binaryCountSize {
		return Measurement{}, ErrTruncated
	}
	count := int(binary.LittleEndian.Uint32(data[binaryHeaderSize:]))
	need := int64(binaryHeaderSize+binaryCountSize) + int64(count)*binaryRecordSize
	if need > int64(len(data)) {
		return Measurement{}, ErrTruncated
	}
	if count == 0 {
		return Measurement{}, ErrEmptyMesh
	}

	acc := newAccumulator()
	off := binaryHeaderSize + binaryCountSize
	for i := 0; i < count; i++ {
		if i%deadlineCheckStride == 0 && ctx.Err() != nil {
			return Measurement{}, ErrTimeout
		}
		// Skip the 12-byte normal; the volume formula derives orientation
		// from vertex winding, not from the stored normal.
		rec := data[off+12 : off+binaryRecordSize]
		var tri [3][3]float64
		for v := 0; v < 3; v++ {
			for c := 0; c < 3; c++ {
				bits := binary.LittleEndian.Uint32(rec[(v*3+c)*4:])
				tri[v][c] = float64(math.Float32frombits(bits))
			}
		}
		acc.addTriangle(tri)
		off += binaryRecordSize
	}
	return acc.measurement(), nil
}

func measureASCII(ctx context.Context, data []byte) (Measurement, error) {
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	acc := newAccumulator()
	var (
		sawSolid  bool
		sawEnd    bool
		inFacet   bool
		broken    bool
		tri       [3][3]float64
		collected int
		line      int
	)

	for sc.Scan() {
		line++
		if line%deadlineCheckStride == 0 && ctx.Err() != nil {
			return Measurement{}, ErrTimeout
		}

		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "solid":
			sawSolid = true
		case "facet":
			inFacet = true
			collected = 0
			broken = false
		case "vertex":
			if !inFacet {
				continue
			}
			v, ok := parseVertex(fields[1:])
			if !ok {
				broken = true
				continue
			}
			// Every parseable vertex grows the bounding box, even when the
			// surrounding facet turns out degenerate.
			acc.addVertex(v)
			if collected < 3 {
				tri[collected] = v
			}
			collected++
		case "endfacet":
			if inFacet && !broken && collected >= 3 {
				acc.addVolume(tri)
			}
			inFacet = false
		case "endsolid":
			sawEnd = true
			inFacet = false
		}
	}
	if err := sc.Err(); err != nil {
		return Measurement{}, ErrTruncated
	}
	// A file cut between facets still lacks its endsolid line.
	if inFacet || (sawSolid && !sawEnd) {
		return Measurement{}, ErrTruncated
	}
	if !sawSolid && acc.triangles == 0 {
		return Measurement{}, ErrUnsupportedFormat
	}
	if acc.triangles == 0 {
		return Measurement{}, ErrEmptyMesh
	}
	return acc.measurement(), nil
}

func parseVertex(fields []string) ([3]float64, bool) {
	var v [3]float64
	if len(fields) < 3 {
		return v, false
	}
	for i := 0; i < 3; i++ {
		f, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return v, false
		}
		v[i] = f
	}
	return v, true
}

// accumulator folds triangles into a running bounding box and a signed
// divergence-theorem volume, so the whole mesh is never held in memory.
type accumulator struct {
	min, max     [3]float64
	signedVolume float64
	triangles    int
	vertices     int
}

func newAccumulator() *accumulator {
	a := &accumulator{}
	for i := 0; i < 3; i++ {
		a.min[i] = math.Inf(1)
		a.max[i] = math.Inf(-1)
	}
	return a
}

func (a *accumulator) addVertex(v [3]float64) {
	for i := 0; i < 3; i++ {
		if v[i] < a.min[i] {
			a.min[i] = v[i]
		}
		if v[i] > a.max[i] {
			a.max[i] = v[i]
		}
	}
	a.vertices++
}

// addVolume accumulates the signed volume of the tetrahedron formed by the
// triangle and the origin: (v0 · (v1 × v2)) / 6.
func (a *accumulator) addVolume(tri [3][3]float64) {
	v0, v1, v2 := tri[0], tri[1], tri[2]
	triple := v0[0]*(v1[1]*v2[2]-v1[2]*v2[1]) -
		v0[1]*(v1[0]*v2[2]-v1[2]*v2[0]) +
		v0[2]*(v1[0]*v2[1]-v1[1]*v2[0])
	a.signedVolume += triple / 6.0
	a.triangles++
}

func (a *accumulator) addTriangle(tri [3][3]float64) {
	for _, v := range tri {
		a.addVertex(v)
	}
	a.addVolume(tri)
}

func (a *accumulator) measurement() Measurement {
	if a.vertices == 0 {
		return Measurement{}
	}
	return Measurement{
		WidthMM:       a.max[0] - a.min[0],
		DepthMM:       a.max[1] - a.min[1],
		HeightMM:      a.max[2] - a.min[2],
		VolumeMM3:     math.Abs(a.signedVolume),
		TriangleCount: a.triangles,
		Valid:         a.triangles >= 4,
	}
}
