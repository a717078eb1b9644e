// Package mesh measures triangle meshes uploaded for 3D printing: bounding-box
// dimensions and an approximate enclosed volume. It understands the two STL
// encodings (binary and ASCII) and nothing else.
package mesh

import "errors"

// Format selects how Measure interprets the input bytes.
type Format int

const (
	// FormatAuto detects binary vs ASCII STL from the content itself.
	FormatAuto Format = iota
	// FormatBinarySTL forces the fixed-record binary encoding.
	FormatBinarySTL
	// FormatASCIISTL forces the keyword-delimited text encoding.
	FormatASCIISTL
)

var (
	// ErrUnsupportedFormat means the content matches neither STL encoding.
	ErrUnsupportedFormat = errors.New("mesh: unsupported format")
	// ErrTruncated means the input ends before the declared geometry does.
	ErrTruncated = errors.New("mesh: truncated input")
	// ErrEmptyMesh means the file parsed but contains zero triangles.
	ErrEmptyMesh = errors.New("mesh: empty mesh")
	// ErrTimeout means the analysis deadline expired before the mesh was fully read.
	ErrTimeout = errors.New("mesh: analysis deadline exceeded")
)

// Measurement is the physical summary of a mesh. Dimensions are millimeters,
// volume is cubic millimeters, both on the model's own axes (Z up); the
// analyzer never re-orients the model.
//
// Volume is exact for a closed, consistently wound, non-self-intersecting
// mesh and an approximation for anything else.
type Measurement struct {
	WidthMM       float64 `json:"width_mm"`
	DepthMM       float64 `json:"depth_mm"`
	HeightMM      float64 `json:"height_mm"`
	VolumeMM3     float64 `json:"volume_mm3"`
	TriangleCount int     `json:"triangle_count"`

	// Valid is false when the mesh cannot enclose a solid
	// (fewer than four triangles).
	Valid bool `json:"valid"`
}
