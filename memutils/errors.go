package memutils

import "github.com/pkg/errors"

// PowerOfTwoError is the error returned from CheckPow2 or other methods if the number being tested is not a power of two
var PowerOfTwoError error = errors.New("number must be a power of two")

// The errors below classify the fatal conditions reported by this module. They are attached to concrete
// errors with cockroachdb's errors.Mark so that callers can test for a category with errors.Is.
var (
	// CapabilityError indicates that the device lacks a feature that is required before anything else
	// can be initialized
	CapabilityError error = errors.New("required device capability is not present")
	// HeapExhaustedError indicates that a placement did not fit in the remaining capacity of a heap
	HeapExhaustedError error = errors.New("heap capacity exhausted")
	// BuildError indicates that an acceleration structure build or pipeline creation failed on the device
	BuildError error = errors.New("device build failed")
	// CompileError indicates that shader source could not be compiled
	CompileError error = errors.New("shader compilation failed")
	// MisuseError indicates a programming error on the part of the caller, such as adding to a pipeline
	// that has already been built
	MisuseError error = errors.New("invalid usage")
)
