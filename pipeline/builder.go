package pipeline

import (
	"container/list"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/raytrace/gpu"
	"github.com/vkngwrapper/raytrace/memutils"
	"golang.org/x/exp/slog"
)

// ErrAlreadyBuilt is returned by every Builder method called after a successful Build
var ErrAlreadyBuilt = errors.Mark(errors.New("pipeline builder has already been built"), memutils.MisuseError)

const noTarget = -1

type pendingSubobject struct {
	subobjectType gpu.SubobjectType
	desc          *list.Element

	// target is the subobject index an association points at, or noTarget
	target int
}

// Builder accumulates the subobjects of a raytracing pipeline. Each Add method returns the index of
// the new subobject, which AddExportAssociation uses to refer to it. Indices stay valid as more
// subobjects are added; they are resolved against the final subobject list when Build is called.
//
// A Builder is single-use: once Build succeeds, it refuses further calls.
type Builder struct {
	logger *slog.Logger
	built  bool

	libraries       *list.List
	hitGroups       *list.List
	shaderConfigs   *list.List
	rootSignatures  *list.List
	pipelineConfigs *list.List
	associations    *list.List

	subobjects []pendingSubobject
}

// NewBuilder creates an empty Builder
func NewBuilder(logger *slog.Logger) *Builder {
	return &Builder{
		logger:          logger,
		libraries:       list.New(),
		hitGroups:       list.New(),
		shaderConfigs:   list.New(),
		rootSignatures:  list.New(),
		pipelineConfigs: list.New(),
		associations:    list.New(),
	}
}

// Len returns the number of subobjects added so far
func (b *Builder) Len() int {
	return len(b.subobjects)
}

func (b *Builder) push(subobjectType gpu.SubobjectType, storage *list.List, desc any, target int) (int, error) {
	if b.built {
		return -1, errors.Wrapf(ErrAlreadyBuilt, "cannot add a %s subobject", subobjectType)
	}

	b.subobjects = append(b.subobjects, pendingSubobject{
		subobjectType: subobjectType,
		desc:          storage.PushBack(desc),
		target:        target,
	})

	index := len(b.subobjects) - 1
	b.logger.Debug("Builder::push", slog.String("Type", subobjectType.String()), slog.Int("Index", index))
	return index, nil
}

// AddShaderLibrary adds compiled shader bytecode and the entry points it exports
func (b *Builder) AddShaderLibrary(bytecode []byte, exports []string) (int, error) {
	return b.push(gpu.SubobjectLibrary, b.libraries, &gpu.LibraryDesc{
		Bytecode: bytecode,
		Exports:  append([]string(nil), exports...),
	}, noTarget)
}

// AddHitGroup exports name as a group of shaders run for ray hits. Empty shader names are left out
// of the group.
func (b *Builder) AddHitGroup(name string, kind gpu.HitGroupType, anyHit, closestHit, intersection string) (int, error) {
	return b.push(gpu.SubobjectHitGroup, b.hitGroups, &gpu.HitGroupDesc{
		Name:         name,
		Type:         kind,
		AnyHit:       anyHit,
		ClosestHit:   closestHit,
		Intersection: intersection,
	}, noTarget)
}

// AddShaderConfig sets the largest ray payload and hit attribute shaders exchange
func (b *Builder) AddShaderConfig(maxPayloadBytes, maxAttributeBytes int) (int, error) {
	return b.push(gpu.SubobjectShaderConfig, b.shaderConfigs, &gpu.ShaderConfigDesc{
		MaxPayloadBytes:   maxPayloadBytes,
		MaxAttributeBytes: maxAttributeBytes,
	}, noTarget)
}

// AddLocalRootSignature adds a root signature bound per shader record. Associate it with exports
// through AddExportAssociation.
func (b *Builder) AddLocalRootSignature(signature gpu.RootSignature) (int, error) {
	return b.push(gpu.SubobjectLocalRootSignature, b.rootSignatures, &gpu.RootSignatureSubobjectDesc{
		Signature: signature,
	}, noTarget)
}

// AddGlobalRootSignature adds the root signature shared by every shader in a dispatch
func (b *Builder) AddGlobalRootSignature(signature gpu.RootSignature) (int, error) {
	return b.push(gpu.SubobjectGlobalRootSignature, b.rootSignatures, &gpu.RootSignatureSubobjectDesc{
		Signature: signature,
	}, noTarget)
}

// AddExportAssociation associates the subobject at index target with exports. The target must
// already have been added and must not itself be an association.
func (b *Builder) AddExportAssociation(exports []string, target int) (int, error) {
	if b.built {
		return -1, errors.Wrap(ErrAlreadyBuilt, "cannot add an association")
	}

	if target < 0 || target >= len(b.subobjects) {
		return -1, errors.Mark(errors.Newf("association target %d is not one of the %d subobjects added so far", target, len(b.subobjects)), memutils.MisuseError)
	}

	if b.subobjects[target].subobjectType == gpu.SubobjectExportsAssociation {
		return -1, errors.Mark(errors.Newf("association target %d is itself an association", target), memutils.MisuseError)
	}

	return b.push(gpu.SubobjectExportsAssociation, b.associations, &gpu.ExportsAssociationDesc{
		Exports: append([]string(nil), exports...),
	}, target)
}

// AddPipelineConfig sets the maximum TraceRay recursion depth
func (b *Builder) AddPipelineConfig(maxRecursionDepth int) (int, error) {
	return b.push(gpu.SubobjectPipelineConfig, b.pipelineConfigs, &gpu.PipelineConfigDesc{
		MaxRecursionDepth: maxRecursionDepth,
	}, noTarget)
}

// Subobjects produces the final subobject list, with every association pointing into the returned
// slice
func (b *Builder) Subobjects() []gpu.Subobject {
	subobjects := make([]gpu.Subobject, len(b.subobjects))

	for index, pending := range b.subobjects {
		subobjects[index] = gpu.Subobject{
			Type: pending.subobjectType,
			Desc: pending.desc.Value,
		}

		if pending.target != noTarget {
			association := *pending.desc.Value.(*gpu.ExportsAssociationDesc)
			association.Target = &subobjects[pending.target]
			subobjects[index].Desc = &association
		}
	}

	return subobjects
}

// Build creates the pipeline on device. A device failure is returned marked as
// memutils.BuildError and leaves the builder accumulating.
func (b *Builder) Build(device gpu.Device) (gpu.Pipeline, error) {
	if b.built {
		return nil, errors.Wrap(ErrAlreadyBuilt, "cannot build twice")
	}

	subobjects := b.Subobjects()

	pipeline, res, err := device.CreatePipeline(subobjects)
	if err != nil {
		b.logger.Error("failed to create raytracing pipeline", slog.Int("Subobjects", len(subobjects)), slog.Any("Result", res), slog.Any("error", err))
		return nil, errors.Mark(errors.Wrap(err, "failed to create raytracing pipeline"), memutils.BuildError)
	}

	b.built = true
	b.logger.Debug("Builder::Build", slog.Int("Subobjects", len(subobjects)), slog.Int("MaxRecursionDepth", pipeline.MaxRecursionDepth()))

	return pipeline, nil
}
