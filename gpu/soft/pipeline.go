package soft

import (
	"bytes"
	"crypto/sha256"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v2/common"
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/raytrace/gpu"
	"golang.org/x/exp/slog"
)

type rootSignature struct {
	desc gpu.RootSignatureDesc
}

func (s *rootSignature) Desc() gpu.RootSignatureDesc {
	return s.desc
}

func (d *Device) CreateRootSignature(desc gpu.RootSignatureDesc) (gpu.RootSignature, error) {
	for index, parameter := range desc.Parameters {
		switch parameter.Type {
		case gpu.RootParameterDescriptorTable:
			if len(parameter.Ranges) == 0 {
				return nil, errors.Newf("root parameter %d is a descriptor table with no ranges", index)
			}
		case gpu.RootParameterConstants:
			if parameter.Constants <= 0 {
				return nil, errors.Newf("root parameter %d declares %d constants", index, parameter.Constants)
			}
		}
	}

	return &rootSignature{desc: desc}, nil
}

type pipeline struct {
	identifiers       map[string][]byte
	bindings          map[string][]gpu.Binding
	maxRecursionDepth int
}

var _ gpu.Pipeline = &pipeline{}

func (p *pipeline) ShaderIdentifier(export string) ([]byte, error) {
	identifier, ok := p.identifiers[export]
	if !ok {
		return nil, errors.Newf("pipeline has no export named %q", export)
	}

	return identifier, nil
}

func (p *pipeline) Bindings(export string) []gpu.Binding {
	return p.bindings[export]
}

func (p *pipeline) MaxRecursionDepth() int {
	return p.maxRecursionDepth
}

func (p *pipeline) knownIdentifier(identifier []byte) bool {
	for _, candidate := range p.identifiers {
		if bytes.Equal(candidate, identifier) {
			return true
		}
	}

	return false
}

func shaderIdentifier(export string) []byte {
	sum := sha256.Sum256([]byte(export))
	return sum[:gpu.ShaderIdentifierSize]
}

func (d *Device) CreatePipeline(subobjects []gpu.Subobject) (gpu.Pipeline, common.VkResult, error) {
	p := &pipeline{
		identifiers: make(map[string][]byte),
		bindings:    make(map[string][]gpu.Binding),
	}

	var libraryCount, shaderConfigCount, pipelineConfigCount int
	var hitGroups []*gpu.HitGroupDesc
	var associations []int

	addExport := func(name string) error {
		if name == "" {
			return errors.New("exports must be named")
		}
		if _, exists := p.identifiers[name]; exists {
			return errors.Newf("export %q is declared more than once", name)
		}

		p.identifiers[name] = shaderIdentifier(name)
		return nil
	}

	for index := range subobjects {
		subobject := &subobjects[index]

		var err error
		switch desc := subobject.Desc.(type) {
		case *gpu.LibraryDesc:
			libraryCount++
			if len(desc.Bytecode) == 0 {
				err = errors.Newf("library subobject %d has no bytecode", index)
				break
			}
			for _, export := range desc.Exports {
				if err = addExport(export); err != nil {
					break
				}
			}
		case *gpu.HitGroupDesc:
			hitGroups = append(hitGroups, desc)
			err = addExport(desc.Name)
		case *gpu.ShaderConfigDesc:
			shaderConfigCount++
			if desc.MaxPayloadBytes <= 0 || desc.MaxAttributeBytes <= 0 {
				err = errors.Newf("shader config subobject %d has payload size %d and attribute size %d", index, desc.MaxPayloadBytes, desc.MaxAttributeBytes)
			}
		case *gpu.RootSignatureSubobjectDesc:
			if desc.Signature == nil {
				err = errors.Newf("root signature subobject %d has no signature", index)
			} else if desc.Signature.Desc().Local != (subobject.Type == gpu.SubobjectLocalRootSignature) {
				err = errors.Newf("root signature subobject %d is a %s, but the signature's local flag is %t", index, subobject.Type, desc.Signature.Desc().Local)
			}
		case *gpu.PipelineConfigDesc:
			pipelineConfigCount++
			p.maxRecursionDepth = desc.MaxRecursionDepth
			if desc.MaxRecursionDepth < 1 || desc.MaxRecursionDepth > 31 {
				err = errors.Newf("max recursion depth %d is outside of [1, 31]", desc.MaxRecursionDepth)
			}
		case *gpu.ExportsAssociationDesc:
			associations = append(associations, index)
		default:
			err = errors.Newf("subobject %d of type %s has an unexpected descriptor %T", index, subobject.Type, subobject.Desc)
		}

		if err != nil {
			return nil, core1_0.VKErrorInitializationFailed, err
		}
	}

	if libraryCount == 0 {
		return nil, core1_0.VKErrorInitializationFailed, errors.New("pipeline has no shader library")
	}
	if shaderConfigCount != 1 {
		return nil, core1_0.VKErrorInitializationFailed, errors.Newf("pipeline must have exactly one shader config, but has %d", shaderConfigCount)
	}
	if pipelineConfigCount != 1 {
		return nil, core1_0.VKErrorInitializationFailed, errors.Newf("pipeline must have exactly one pipeline config, but has %d", pipelineConfigCount)
	}

	for _, group := range hitGroups {
		for _, shader := range []string{group.AnyHit, group.ClosestHit, group.Intersection} {
			if shader == "" {
				continue
			}
			if _, ok := p.identifiers[shader]; !ok {
				return nil, core1_0.VKErrorInitializationFailed, errors.Newf("hit group %q references unknown shader %q", group.Name, shader)
			}
		}

		if group.Type == gpu.HitGroupProceduralPrimitive && group.Intersection == "" {
			return nil, core1_0.VKErrorInitializationFailed, errors.Newf("procedural hit group %q has no intersection shader", group.Name)
		}
	}

	for _, index := range associations {
		desc := subobjects[index].Desc.(*gpu.ExportsAssociationDesc)

		target := -1
		for candidate := range subobjects {
			if desc.Target == &subobjects[candidate] {
				target = candidate
				break
			}
		}

		if target < 0 {
			return nil, core1_0.VKErrorInitializationFailed, errors.Newf("association subobject %d points outside of the subobject list", index)
		}
		if subobjects[target].Type == gpu.SubobjectExportsAssociation {
			return nil, core1_0.VKErrorInitializationFailed, errors.Newf("association subobject %d targets another association", index)
		}

		for _, export := range desc.Exports {
			if _, ok := p.identifiers[export]; !ok {
				return nil, core1_0.VKErrorInitializationFailed, errors.Newf("association subobject %d names unknown export %q", index, export)
			}

			p.bindings[export] = append(p.bindings[export], gpu.Binding{Type: subobjects[target].Type, Index: target})
		}
	}

	d.logger.Debug("soft::CreatePipeline", slog.Int("Subobjects", len(subobjects)), slog.Int("Exports", len(p.identifiers)))

	return p, core1_0.VKSuccess, nil
}

func (c dispatchCommand) execute(d *Device, state *executionState) error {
	if state.pipeline == nil {
		return errors.New("rays dispatched with no pipeline set")
	}

	desc := c.desc
	if desc.Width <= 0 || desc.Height <= 0 || desc.Depth <= 0 {
		return errors.Newf("dispatch dimensions %dx%dx%d must be positive", desc.Width, desc.Height, desc.Depth)
	}

	if desc.RayGeneration.Size < gpu.ShaderIdentifierSize {
		return errors.New("dispatch has no ray generation record")
	}

	tables := []struct {
		name   string
		rng    gpu.ShaderTableRange
		stride int
	}{
		{"ray generation", desc.RayGeneration, desc.RayGeneration.Size},
		{"miss", desc.Miss, desc.Miss.Stride},
		{"hit group", desc.HitGroup, desc.HitGroup.Stride},
	}

	for _, table := range tables {
		if table.rng.Size == 0 {
			continue
		}

		if uint64(table.rng.Start)%gpu.ShaderTableAlignment != 0 {
			return errors.Newf("%s table at %s is not aligned to %d", table.name, table.rng.Start, gpu.ShaderTableAlignment)
		}
		if table.stride <= 0 || table.stride%gpu.ShaderRecordAlignment != 0 {
			return errors.Newf("%s table stride %d is not a positive multiple of %d", table.name, table.stride, gpu.ShaderRecordAlignment)
		}

		records, err := d.memory(table.rng.Start, table.rng.Size)
		if err != nil {
			return errors.Wrapf(err, "%s table", table.name)
		}

		for offset := 0; offset+gpu.ShaderIdentifierSize <= len(records); offset += table.stride {
			if !state.pipeline.knownIdentifier(records[offset : offset+gpu.ShaderIdentifierSize]) {
				return errors.Newf("%s record at offset %d does not hold a shader identifier from the bound pipeline", table.name, offset)
			}
		}
	}

	d.dispatchCount++
	return nil
}
