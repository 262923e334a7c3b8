package heap

import (
	"github.com/vkngwrapper/core/v2/core1_0"
)

// UsageClass selects which heap a resource is placed in. Each class has its own heap with its
// own memory properties and lifetime.
type UsageClass int

const (
	// UsageHostPersistent holds host-written data that lives for the whole session, such as shader tables
	UsageHostPersistent UsageClass = iota
	// UsageHostScratch holds host-written staging data that is only needed until the end of the frame
	UsageHostScratch
	// UsageDevicePersistent holds device-local buffers that live for the whole session
	UsageDevicePersistent
	// UsageDeviceScratch holds device-local build scratch that is only needed until the end of the frame
	UsageDeviceScratch
	// UsageBottomLevelStorage holds bottom-level acceleration structures. It is never reset.
	UsageBottomLevelStorage
	// UsageTopLevelStorage holds top-level acceleration structures. It is never reset.
	UsageTopLevelStorage

	usageClassCount
)

var usageClassMapping = map[UsageClass]string{
	UsageHostPersistent:     "HostPersistent",
	UsageHostScratch:        "HostScratch",
	UsageDevicePersistent:   "DevicePersistent",
	UsageDeviceScratch:      "DeviceScratch",
	UsageBottomLevelStorage: "BottomLevelStorage",
	UsageTopLevelStorage:    "TopLevelStorage",
}

func (c UsageClass) String() string {
	str, ok := usageClassMapping[c]
	if !ok {
		return "unknown UsageClass"
	}

	return str
}

// UsageClasses returns every usage class in heap creation order
func UsageClasses() []UsageClass {
	classes := make([]UsageClass, 0, usageClassCount)
	for class := UsageClass(0); class < usageClassCount; class++ {
		classes = append(classes, class)
	}
	return classes
}

// HostWritable returns true for classes whose resources can be mapped and written by the host
func (c UsageClass) HostWritable() bool {
	return c == UsageHostPersistent || c == UsageHostScratch
}

// IsScratch returns true for classes whose heaps are reset at frame boundaries
func (c UsageClass) IsScratch() bool {
	return c == UsageHostScratch || c == UsageDeviceScratch
}

// MemoryProperties returns the memory properties a heap of this class is created with
func (c UsageClass) MemoryProperties() core1_0.MemoryPropertyFlags {
	if c.HostWritable() {
		return core1_0.MemoryPropertyHostVisible | core1_0.MemoryPropertyHostCoherent
	}

	return core1_0.MemoryPropertyDeviceLocal
}
