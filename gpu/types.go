package gpu

import (
	"fmt"

	"github.com/vkngwrapper/core/v2/common"
	"github.com/vkngwrapper/core/v2/core1_0"
)

// Address is a GPU virtual address. Zero is never a valid address.
type Address uint64

func (a Address) String() string {
	return fmt.Sprintf("0x%x", uint64(a))
}

// Offset returns the address offset bytes past a
func (a Address) Offset(offset int) Address {
	return a + Address(offset)
}

// ResourceState is the usage state a resource is in from the point of view of the command stream.
// Transition barriers move a resource from one state to another.
type ResourceState uint32

const (
	ResourceStateCommon ResourceState = iota
	ResourceStateGenericRead
	ResourceStateCopyDest
	ResourceStateUnorderedAccess
	ResourceStateNonPixelShaderResource
	ResourceStateAccelerationStructure
)

var resourceStateMapping = map[ResourceState]string{
	ResourceStateCommon:                 "Common",
	ResourceStateGenericRead:            "GenericRead",
	ResourceStateCopyDest:               "CopyDest",
	ResourceStateUnorderedAccess:        "UnorderedAccess",
	ResourceStateNonPixelShaderResource: "NonPixelShaderResource",
	ResourceStateAccelerationStructure:  "AccelerationStructure",
}

func (s ResourceState) String() string {
	str, ok := resourceStateMapping[s]
	if !ok {
		return "unknown ResourceState"
	}

	return str
}

// ResourceDesc describes a one-dimensional buffer resource
type ResourceDesc struct {
	// Size is the requested size in bytes
	Size int
	// Usage indicates how the buffer will be consumed
	Usage core1_0.BufferUsageFlags
}

// RaytracingTier is the level of ray tracing support reported by a device
type RaytracingTier int

const (
	RaytracingTierNotSupported RaytracingTier = 0
	RaytracingTier1_0          RaytracingTier = 10
	RaytracingTier1_1          RaytracingTier = 11
)

var raytracingTierMapping = map[RaytracingTier]string{
	RaytracingTierNotSupported: "NotSupported",
	RaytracingTier1_0:          "Tier1_0",
	RaytracingTier1_1:          "Tier1_1",
}

func (t RaytracingTier) String() string {
	str, ok := raytracingTierMapping[t]
	if !ok {
		return "unknown RaytracingTier"
	}

	return str
}

// Capabilities is the feature report a device provides before any other object is created
type Capabilities struct {
	RaytracingTier RaytracingTier
	APIVersion     common.APIVersion
	Extensions     []string
}

// HasExtension returns true if the named extension was reported by the device
func (c Capabilities) HasExtension(name string) bool {
	for _, extension := range c.Extensions {
		if extension == name {
			return true
		}
	}

	return false
}

const (
	// ShaderIdentifierSize is the size in bytes of the opaque identifier the driver hands out for
	// each shader export
	ShaderIdentifierSize = 32
	// ShaderRecordAlignment is the required alignment of every record in a shader table
	ShaderRecordAlignment = 64
	// ShaderTableAlignment is the required alignment of the start of each shader table
	ShaderTableAlignment = 64
	// AccelerationStructureAlignment is the alignment of acceleration structure sizes and addresses
	AccelerationStructureAlignment = 256
	// RootArgumentSize is the size in bytes of one root argument word in a shader record
	RootArgumentSize = 8
)
