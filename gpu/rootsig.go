package gpu

import "github.com/vkngwrapper/raytrace/memutils"

type RootParameterType int

const (
	RootParameterDescriptorTable RootParameterType = iota
	RootParameterConstants
	RootParameterCBV
	RootParameterSRV
	RootParameterUAV
)

var rootParameterTypeMapping = map[RootParameterType]string{
	RootParameterDescriptorTable: "DescriptorTable",
	RootParameterConstants:       "Constants",
	RootParameterCBV:             "CBV",
	RootParameterSRV:             "SRV",
	RootParameterUAV:             "UAV",
}

func (t RootParameterType) String() string {
	str, ok := rootParameterTypeMapping[t]
	if !ok {
		return "unknown RootParameterType"
	}

	return str
}

type DescriptorRangeType int

const (
	DescriptorRangeSRV DescriptorRangeType = iota
	DescriptorRangeUAV
	DescriptorRangeCBV
	DescriptorRangeSampler
)

var descriptorRangeTypeMapping = map[DescriptorRangeType]string{
	DescriptorRangeSRV:     "SRV",
	DescriptorRangeUAV:     "UAV",
	DescriptorRangeCBV:     "CBV",
	DescriptorRangeSampler: "Sampler",
}

func (t DescriptorRangeType) String() string {
	str, ok := descriptorRangeTypeMapping[t]
	if !ok {
		return "unknown DescriptorRangeType"
	}

	return str
}

// DescriptorRange is a run of consecutive registers bound through a descriptor table
type DescriptorRange struct {
	Type          DescriptorRangeType
	Count         int
	BaseRegister  int
	Space         int
	OffsetInTable int
}

// RootParameter is one slot of a root signature
type RootParameter struct {
	Type RootParameterType

	// Ranges is used by RootParameterDescriptorTable
	Ranges []DescriptorRange

	// Constants is the number of 32-bit values used by RootParameterConstants
	Constants int

	Register int
	Space    int
}

// ArgumentSize is the number of bytes the parameter occupies in a shader record
func (p RootParameter) ArgumentSize() int {
	switch p.Type {
	case RootParameterConstants:
		return 4 * p.Constants
	default:
		// Tables take a GPU descriptor handle, root descriptors take a GPU virtual address
		return RootArgumentSize
	}
}

// StaticSampler is a sampler baked into a root signature
type StaticSampler struct {
	Register int
	Space    int
}

// RootSignatureDesc describes the parameters shaders expect to be bound
type RootSignatureDesc struct {
	Parameters     []RootParameter
	StaticSamplers []StaticSampler
	// Local root signatures are bound per shader record rather than per dispatch
	Local bool
}

// ArgumentSize is the number of bytes all parameters occupy in a shader record. Each parameter
// starts at an 8-byte boundary, and the total is rounded to 8 bytes.
func (d RootSignatureDesc) ArgumentSize() int {
	var size int
	for _, parameter := range d.Parameters {
		size = memutils.AlignUp(size, RootArgumentSize) + parameter.ArgumentSize()
	}

	return memutils.AlignUp(size, RootArgumentSize)
}
