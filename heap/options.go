package heap

import "github.com/vkngwrapper/core/v2/common"

// CreateFlags indicate specific heap manager behaviors to activate or deactivate
type CreateFlags int32

var createFlagsMapping = common.NewFlagStringMapping[CreateFlags]()

func (f CreateFlags) Register(str string) {
	createFlagsMapping.Register(f, str)
}
func (f CreateFlags) String() string {
	return createFlagsMapping.FlagsToString(f)
}

const (
	// CreateExternallySynchronized ensures that the manager and every heap it owns will not be
	// synchronized internally. The consumer must guarantee they are used from only one thread at a
	// time, which is the normal case for a single recording thread.
	CreateExternallySynchronized CreateFlags = 1 << iota
)

func init() {
	CreateExternallySynchronized.Register("CreateExternallySynchronized")
}

// DefaultHeapSize is the capacity of any heap whose size is not provided in CreateOptions. It is
// equal to 20Mb.
const DefaultHeapSize int = 20 * 1024 * 1024

// CreateOptions contains optional settings when creating a Manager
type CreateOptions struct {
	// Flags indicates specific manager behaviors to activate or deactivate
	Flags CreateFlags
	// Sizes is the capacity in bytes of each usage class's heap. Missing or zero entries use
	// DefaultHeapSize. Sizes are rounded up to the device placement alignment.
	Sizes map[UsageClass]int
}
