package pipeline

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/raytrace/gpu"
	"github.com/vkngwrapper/raytrace/memutils"
)

// RootSignatureBuilder accumulates root parameters and static samplers
type RootSignatureBuilder struct {
	desc gpu.RootSignatureDesc
}

// NewRootSignatureBuilder creates an empty builder. Local root signatures are bound per shader
// record, global root signatures per dispatch.
func NewRootSignatureBuilder(local bool) *RootSignatureBuilder {
	return &RootSignatureBuilder{
		desc: gpu.RootSignatureDesc{Local: local},
	}
}

// AddDescriptorTable adds a table parameter over ranges. A range with a zero OffsetInTable is placed
// directly after the previous range.
func (b *RootSignatureBuilder) AddDescriptorTable(ranges ...gpu.DescriptorRange) (int, error) {
	if len(ranges) == 0 {
		return -1, errors.Mark(errors.New("a descriptor table needs at least one range"), memutils.MisuseError)
	}

	table := make([]gpu.DescriptorRange, len(ranges))
	var next int
	for i, descriptorRange := range ranges {
		if descriptorRange.Count <= 0 {
			return -1, errors.Mark(errors.Newf("descriptor range %d has count %d", i, descriptorRange.Count), memutils.MisuseError)
		}

		if descriptorRange.OffsetInTable == 0 {
			descriptorRange.OffsetInTable = next
		}
		next = descriptorRange.OffsetInTable + descriptorRange.Count
		table[i] = descriptorRange
	}

	return b.add(gpu.RootParameter{
		Type:   gpu.RootParameterDescriptorTable,
		Ranges: table,
	}), nil
}

// AddConstants adds count 32-bit root constants at register
func (b *RootSignatureBuilder) AddConstants(count, register, space int) (int, error) {
	if count <= 0 {
		return -1, errors.Mark(errors.Newf("root constants need a positive count, but got %d", count), memutils.MisuseError)
	}

	return b.add(gpu.RootParameter{
		Type:      gpu.RootParameterConstants,
		Constants: count,
		Register:  register,
		Space:     space,
	}), nil
}

// AddDescriptor adds a root CBV, SRV or UAV, bound by GPU virtual address
func (b *RootSignatureBuilder) AddDescriptor(parameterType gpu.RootParameterType, register, space int) (int, error) {
	switch parameterType {
	case gpu.RootParameterCBV, gpu.RootParameterSRV, gpu.RootParameterUAV:
	default:
		return -1, errors.Mark(errors.Newf("%s is not a root descriptor type", parameterType), memutils.MisuseError)
	}

	return b.add(gpu.RootParameter{
		Type:     parameterType,
		Register: register,
		Space:    space,
	}), nil
}

// AddStaticSampler bakes a sampler into the signature
func (b *RootSignatureBuilder) AddStaticSampler(register, space int) {
	b.desc.StaticSamplers = append(b.desc.StaticSamplers, gpu.StaticSampler{Register: register, Space: space})
}

func (b *RootSignatureBuilder) add(parameter gpu.RootParameter) int {
	b.desc.Parameters = append(b.desc.Parameters, parameter)
	return len(b.desc.Parameters) - 1
}

// ArgumentSize returns the number of bytes the signature's parameters occupy in a shader record
func (b *RootSignatureBuilder) ArgumentSize() int {
	return b.desc.ArgumentSize()
}

// Desc returns a copy of the description accumulated so far
func (b *RootSignatureBuilder) Desc() gpu.RootSignatureDesc {
	desc := b.desc
	desc.Parameters = append([]gpu.RootParameter(nil), b.desc.Parameters...)
	desc.StaticSamplers = append([]gpu.StaticSampler(nil), b.desc.StaticSamplers...)
	return desc
}

// Build creates the root signature on device
func (b *RootSignatureBuilder) Build(device gpu.Device) (gpu.RootSignature, error) {
	signature, err := device.CreateRootSignature(b.Desc())
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "failed to create root signature"), memutils.BuildError)
	}

	return signature, nil
}
