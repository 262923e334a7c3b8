package gpu

import (
	"encoding/binary"
	"math"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v2/common"
)

// InstanceDescSize is the size in bytes of one encoded InstanceDesc
const InstanceDescSize = 64

// MaxInstanceID is the largest value that fits the 24-bit instance id and hit group fields
const MaxInstanceID = 1<<24 - 1

// InstanceMaskAll makes an instance visible to every ray
const InstanceMaskAll uint8 = 0xFF

// InstanceFlags modify culling and opacity for every geometry in an instance
type InstanceFlags int32

var instanceFlagsMapping = common.NewFlagStringMapping[InstanceFlags]()

func (f InstanceFlags) Register(str string) {
	instanceFlagsMapping.Register(f, str)
}
func (f InstanceFlags) String() string {
	return instanceFlagsMapping.FlagsToString(f)
}

const (
	InstanceFlagTriangleCullDisable InstanceFlags = 1 << iota
	InstanceFlagTriangleFrontCounterClockwise
	InstanceFlagForceOpaque
	InstanceFlagForceNonOpaque

	InstanceFlagNone InstanceFlags = 0
)

func init() {
	InstanceFlagTriangleCullDisable.Register("TriangleCullDisable")
	InstanceFlagTriangleFrontCounterClockwise.Register("TriangleFrontCounterClockwise")
	InstanceFlagForceOpaque.Register("ForceOpaque")
	InstanceFlagForceNonOpaque.Register("ForceNonOpaque")
}

// InstanceDesc is one entry of a top-level build's instance buffer. The encoded layout is
// little-endian:
//
//	bytes  0-47  Transform, a row-major 3x4 float32 matrix
//	bytes 48-51  InstanceID in the low 24 bits, Mask in the high 8
//	bytes 52-55  HitGroupContribution in the low 24 bits, Flags in the high 8
//	bytes 56-63  AccelerationStructure, the address of the bottom-level structure
type InstanceDesc struct {
	Transform             [3][4]float32
	InstanceID            uint32
	Mask                  uint8
	HitGroupContribution  uint32
	Flags                 InstanceFlags
	AccelerationStructure Address
}

// Encode writes the 64-byte hardware layout of the descriptor into out
func (d *InstanceDesc) Encode(out []byte) error {
	if len(out) < InstanceDescSize {
		return errors.Newf("instance descriptor requires %d bytes but the destination has %d", InstanceDescSize, len(out))
	}
	if d.InstanceID > MaxInstanceID {
		return errors.Newf("instance id %d does not fit in 24 bits", d.InstanceID)
	}
	if d.HitGroupContribution > MaxInstanceID {
		return errors.Newf("hit group contribution %d does not fit in 24 bits", d.HitGroupContribution)
	}
	if d.Flags < 0 || d.Flags > 0xFF {
		return errors.Newf("instance flags %s do not fit in 8 bits", d.Flags)
	}

	for row := 0; row < 3; row++ {
		for col := 0; col < 4; col++ {
			binary.LittleEndian.PutUint32(out[(row*4+col)*4:], math.Float32bits(d.Transform[row][col]))
		}
	}

	binary.LittleEndian.PutUint32(out[48:], d.InstanceID|uint32(d.Mask)<<24)
	binary.LittleEndian.PutUint32(out[52:], d.HitGroupContribution|uint32(d.Flags)<<24)
	binary.LittleEndian.PutUint64(out[56:], uint64(d.AccelerationStructure))

	return nil
}

// DecodeInstanceDesc reads a descriptor from the 64-byte hardware layout
func DecodeInstanceDesc(in []byte) (InstanceDesc, error) {
	var d InstanceDesc
	if len(in) < InstanceDescSize {
		return d, errors.Newf("instance descriptor requires %d bytes but the source has %d", InstanceDescSize, len(in))
	}

	for row := 0; row < 3; row++ {
		for col := 0; col < 4; col++ {
			d.Transform[row][col] = math.Float32frombits(binary.LittleEndian.Uint32(in[(row*4+col)*4:]))
		}
	}

	idAndMask := binary.LittleEndian.Uint32(in[48:])
	d.InstanceID = idAndMask & MaxInstanceID
	d.Mask = uint8(idAndMask >> 24)

	hitGroupAndFlags := binary.LittleEndian.Uint32(in[52:])
	d.HitGroupContribution = hitGroupAndFlags & MaxInstanceID
	d.Flags = InstanceFlags(hitGroupAndFlags >> 24)

	d.AccelerationStructure = Address(binary.LittleEndian.Uint64(in[56:]))

	return d, nil
}
