package gpu

// SubobjectType tags each fragment of a ray tracing pipeline description
type SubobjectType int

const (
	SubobjectLibrary SubobjectType = iota
	SubobjectHitGroup
	SubobjectShaderConfig
	SubobjectLocalRootSignature
	SubobjectGlobalRootSignature
	SubobjectPipelineConfig
	SubobjectExportsAssociation
)

var subobjectTypeMapping = map[SubobjectType]string{
	SubobjectLibrary:             "Library",
	SubobjectHitGroup:            "HitGroup",
	SubobjectShaderConfig:        "ShaderConfig",
	SubobjectLocalRootSignature:  "LocalRootSignature",
	SubobjectGlobalRootSignature: "GlobalRootSignature",
	SubobjectPipelineConfig:      "PipelineConfig",
	SubobjectExportsAssociation:  "ExportsAssociation",
}

func (t SubobjectType) String() string {
	str, ok := subobjectTypeMapping[t]
	if !ok {
		return "unknown SubobjectType"
	}

	return str
}

// HitGroupType is the geometry kind a hit group is invoked for
type HitGroupType int

const (
	HitGroupTriangles HitGroupType = iota
	HitGroupProceduralPrimitive
)

var hitGroupTypeMapping = map[HitGroupType]string{
	HitGroupTriangles:           "Triangles",
	HitGroupProceduralPrimitive: "ProceduralPrimitive",
}

func (t HitGroupType) String() string {
	str, ok := hitGroupTypeMapping[t]
	if !ok {
		return "unknown HitGroupType"
	}

	return str
}

// Subobject is one tagged fragment of a pipeline description. Desc holds a pointer to the
// descriptor type matching Type.
type Subobject struct {
	Type SubobjectType
	Desc any
}

// LibraryDesc is a compiled shader library and the entry points it exports
type LibraryDesc struct {
	Bytecode []byte
	Exports  []string
}

// HitGroupDesc groups intersection, any-hit and closest-hit shaders under one exported name.
// Empty shader names are omitted from the group.
type HitGroupDesc struct {
	Name         string
	Type         HitGroupType
	AnyHit       string
	ClosestHit   string
	Intersection string
}

// ShaderConfigDesc bounds the payload and attribute sizes shaders exchange
type ShaderConfigDesc struct {
	MaxPayloadBytes   int
	MaxAttributeBytes int
}

// RootSignatureSubobjectDesc carries a local or global root signature
type RootSignatureSubobjectDesc struct {
	Signature RootSignature
}

// PipelineConfigDesc bounds TraceRay recursion
type PipelineConfigDesc struct {
	MaxRecursionDepth int
}

// ExportsAssociationDesc associates a subobject with a set of exports. Target must point into the
// same slice that is passed to Device.CreatePipeline.
type ExportsAssociationDesc struct {
	Target  *Subobject
	Exports []string
}
