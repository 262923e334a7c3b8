package gpu

import "github.com/vkngwrapper/core/v2/common"

type AccelerationStructureType int

const (
	AccelerationStructureBottomLevel AccelerationStructureType = iota
	AccelerationStructureTopLevel
)

var accelerationStructureTypeMapping = map[AccelerationStructureType]string{
	AccelerationStructureBottomLevel: "BottomLevel",
	AccelerationStructureTopLevel:    "TopLevel",
}

func (t AccelerationStructureType) String() string {
	str, ok := accelerationStructureTypeMapping[t]
	if !ok {
		return "unknown AccelerationStructureType"
	}

	return str
}

// BuildFlags control the tradeoffs a device makes when building an acceleration structure
type BuildFlags int32

var buildFlagsMapping = common.NewFlagStringMapping[BuildFlags]()

func (f BuildFlags) Register(str string) {
	buildFlagsMapping.Register(f, str)
}
func (f BuildFlags) String() string {
	return buildFlagsMapping.FlagsToString(f)
}

const (
	BuildFlagAllowUpdate BuildFlags = 1 << iota
	BuildFlagAllowCompaction
	BuildFlagPreferFastTrace
	BuildFlagPreferFastBuild
	BuildFlagMinimizeMemory
	BuildFlagPerformUpdate
)

// GeometryFlags modify how rays interact with a single geometry
type GeometryFlags int32

var geometryFlagsMapping = common.NewFlagStringMapping[GeometryFlags]()

func (f GeometryFlags) Register(str string) {
	geometryFlagsMapping.Register(f, str)
}
func (f GeometryFlags) String() string {
	return geometryFlagsMapping.FlagsToString(f)
}

const (
	GeometryFlagOpaque GeometryFlags = 1 << iota
	GeometryFlagNoDuplicateAnyHit
)

func init() {
	BuildFlagAllowUpdate.Register("AllowUpdate")
	BuildFlagAllowCompaction.Register("AllowCompaction")
	BuildFlagPreferFastTrace.Register("PreferFastTrace")
	BuildFlagPreferFastBuild.Register("PreferFastBuild")
	BuildFlagMinimizeMemory.Register("MinimizeMemory")
	BuildFlagPerformUpdate.Register("PerformUpdate")

	GeometryFlagOpaque.Register("Opaque")
	GeometryFlagNoDuplicateAnyHit.Register("NoDuplicateAnyHit")
}

// TriangleGeometry is an indexed triangle list of float3 positions
type TriangleGeometry struct {
	VertexBuffer Address
	VertexCount  int
	VertexStride int

	IndexBuffer Address
	IndexCount  int

	Flags GeometryFlags
}

// BuildInputs is everything the device needs to know about an acceleration structure's contents
type BuildInputs struct {
	Type  AccelerationStructureType
	Flags BuildFlags

	// Geometries is used for bottom-level builds
	Geometries []TriangleGeometry

	// InstanceCount and Instances are used for top-level builds. Instances is the address of an array
	// of InstanceCount encoded InstanceDesc values.
	InstanceCount int
	Instances     Address
}

// PrebuildInfo holds the sizes a device requires to build an acceleration structure
type PrebuildInfo struct {
	ResultSize        uint64
	ScratchSize       uint64
	UpdateScratchSize uint64
}

// BuildDesc is a recorded acceleration structure build
type BuildDesc struct {
	Inputs  BuildInputs
	Dest    Address
	Scratch Address
}
