package accel

import (
	"encoding/binary"
	"math"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/raytrace/memutils"
)

// MeshID identifies a mesh registered with a Scene
type MeshID int

const (
	MeshCube MeshID = iota
)

var meshIDMapping = map[MeshID]string{
	MeshCube: "Cube",
}

func (id MeshID) String() string {
	str, ok := meshIDMapping[id]
	if !ok {
		return "unknown MeshID"
	}

	return str
}

const (
	positionSize = 12
	indexSize    = 4
)

// MeshRecord is an indexed triangle list. Positions are float3 values and Stride is the number of
// bytes between consecutive vertices in the uploaded vertex buffer. A zero Stride packs the
// positions tightly.
type MeshRecord struct {
	Positions [][3]float32
	Indices   []uint32
	Stride    int
}

func (m *MeshRecord) vertexStride() int {
	if m.Stride == 0 {
		return positionSize
	}

	return m.Stride
}

func (m *MeshRecord) validate() error {
	if len(m.Positions) == 0 {
		return errors.Mark(errors.New("mesh has no vertices"), memutils.MisuseError)
	}

	if m.Stride != 0 && m.Stride < positionSize {
		return errors.Mark(errors.Newf("vertex stride %d is smaller than a float3 position", m.Stride), memutils.MisuseError)
	}

	if len(m.Indices)%3 != 0 {
		return errors.Mark(errors.Newf("mesh has %d indices, which is not a whole number of triangles", len(m.Indices)), memutils.MisuseError)
	}

	for i, index := range m.Indices {
		if int(index) >= len(m.Positions) {
			return errors.Mark(errors.Newf("index %d references vertex %d, but the mesh has %d vertices", i, index, len(m.Positions)), memutils.MisuseError)
		}
	}

	return nil
}

func (m *MeshRecord) vertexBytes() []byte {
	stride := m.vertexStride()
	data := make([]byte, stride*len(m.Positions))

	for i, position := range m.Positions {
		for axis, value := range position {
			binary.LittleEndian.PutUint32(data[i*stride+axis*4:], math.Float32bits(value))
		}
	}

	return data
}

func (m *MeshRecord) indexBytes() []byte {
	data := make([]byte, indexSize*len(m.Indices))
	for i, index := range m.Indices {
		binary.LittleEndian.PutUint32(data[i*indexSize:], index)
	}

	return data
}

// CubeMesh returns a unit cube centered on the origin: 8 corners and 12 triangles
func CubeMesh() MeshRecord {
	return MeshRecord{
		Positions: [][3]float32{
			{-0.5, -0.5, -0.5},
			{0.5, -0.5, -0.5},
			{0.5, 0.5, -0.5},
			{-0.5, 0.5, -0.5},
			{-0.5, -0.5, 0.5},
			{0.5, -0.5, 0.5},
			{0.5, 0.5, 0.5},
			{-0.5, 0.5, 0.5},
		},
		Indices: []uint32{
			// -z
			0, 2, 1, 0, 3, 2,
			// +z
			4, 5, 6, 4, 6, 7,
			// -x
			0, 7, 3, 0, 4, 7,
			// +x
			1, 2, 6, 1, 6, 5,
			// -y
			0, 1, 5, 0, 5, 4,
			// +y
			3, 7, 6, 3, 6, 2,
		},
		Stride: positionSize,
	}
}
