package accel

import (
	"github.com/cockroachdb/errors"
	"github.com/dolthub/swiss"
	"github.com/vkngwrapper/raytrace/gpu"
	"golang.org/x/exp/slog"
)

// Scene collects the bottom-level structure of every registered mesh and the instances placed in the
// current frame, and builds the top-level structure over them.
//
// A Scene is not safe for concurrent use: it records into a single command stream.
type Scene struct {
	logger  *slog.Logger
	context BuildContext

	meshes    *swiss.Map[MeshID, *BottomLevel]
	instances []InstanceRecord
	topLevel  *TopLevel
}

// NewScene creates an empty scene that records its builds through context
func NewScene(logger *slog.Logger, context BuildContext) *Scene {
	if context.Logger == nil {
		context.Logger = logger
	}

	return &Scene{
		logger:  logger,
		context: context,
		meshes:  swiss.NewMap[MeshID, *BottomLevel](8),
	}
}

// Reset clears the instance list for a new frame. Meshes and heap state are unaffected.
func (s *Scene) Reset() {
	s.instances = s.instances[:0]
}

// AddMesh records the bottom-level build of a mesh. A mesh id that already has a structure is left
// alone; use RebuildMesh to replace its contents.
func (s *Scene) AddMesh(id MeshID, mesh MeshRecord) error {
	if _, built := s.meshes.Get(id); built {
		s.logger.Debug("Scene::AddMesh skipped an already built mesh", slog.String("Mesh", id.String()))
		return nil
	}

	bottomLevel, err := BuildBottomLevel(s.context, mesh)
	if err != nil {
		return errors.Wrapf(err, "failed to build mesh %s", id)
	}

	s.meshes.Put(id, bottomLevel)
	s.logger.Debug("Scene::AddMesh",
		slog.String("Mesh", id.String()),
		slog.Int("Vertices", len(mesh.Positions)),
		slog.Int("Indices", len(mesh.Indices)),
		slog.String("Address", bottomLevel.Address().String()))

	return nil
}

// RebuildMesh records a new build of a mesh's bottom-level structure, adding the mesh if it has not
// been built before
func (s *Scene) RebuildMesh(id MeshID, mesh MeshRecord) error {
	bottomLevel, ok := s.meshes.Get(id)
	if !ok {
		return s.AddMesh(id, mesh)
	}

	err := bottomLevel.Rebuild(s.context, mesh)
	if err != nil {
		return errors.Wrapf(err, "failed to rebuild mesh %s", id)
	}

	s.logger.Debug("Scene::RebuildMesh", slog.String("Mesh", id.String()), slog.String("Address", bottomLevel.Address().String()))
	return nil
}

// Mesh returns the bottom-level structure built for a mesh id
func (s *Scene) Mesh(id MeshID) (*BottomLevel, bool) {
	return s.meshes.Get(id)
}

// MeshCount returns the number of meshes with a bottom-level structure
func (s *Scene) MeshCount() int {
	return s.meshes.Count()
}

// AddInstance places a built mesh in the current frame. It fails with ErrMeshNotBuilt when no
// bottom-level structure exists for meshID.
func (s *Scene) AddInstance(meshID MeshID, transform Transform, instanceID InstanceID, hitGroup HitGroupIndex) error {
	if _, built := s.meshes.Get(meshID); !built {
		return errors.Wrapf(ErrMeshNotBuilt, "cannot instance mesh %s", meshID)
	}

	s.instances = append(s.instances, InstanceRecord{
		Mesh:      meshID,
		Transform: transform,
		ID:        instanceID,
		HitGroup:  hitGroup,
	})

	return nil
}

// InstanceCount returns the number of instances added since the last Reset
func (s *Scene) InstanceCount() int {
	return len(s.instances)
}

func (s *Scene) resolve(id MeshID) (gpu.Address, bool) {
	bottomLevel, ok := s.meshes.Get(id)
	if !ok {
		return 0, false
	}

	return bottomLevel.Address(), true
}

// Build records the top-level build over the current instance list. After the first build the
// top-level structure is rebuilt in place.
func (s *Scene) Build() error {
	var err error
	if s.topLevel == nil {
		s.topLevel, err = BuildTopLevel(s.context, s.instances, s.resolve)
	} else {
		err = s.topLevel.Rebuild(s.context, s.instances, s.resolve)
	}
	if err != nil {
		return errors.Wrap(err, "failed to build the scene")
	}

	s.logger.Debug("Scene::Build", slog.Int("Instances", len(s.instances)), slog.String("Address", s.topLevel.Address().String()))
	return nil
}

// Address returns the GPU virtual address of the top-level structure, or 0 before the first Build
func (s *Scene) Address() gpu.Address {
	if s.topLevel == nil {
		return 0
	}

	return s.topLevel.Address()
}

// TopLevel returns the most recently built top-level structure, or nil before the first Build
func (s *Scene) TopLevel() *TopLevel {
	return s.topLevel
}
