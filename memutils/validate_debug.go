//go:build debug_mem_utils

package memutils

// DebugValidate panics if validatable reports an inconsistency. Without the debug_mem_utils build
// tag it does nothing.
func DebugValidate(validatable Validatable) {
	if err := validatable.Validate(); err != nil {
		panic(err)
	}
}

// DebugCheckPow2 panics if value is not a power of two. Without the debug_mem_utils build tag it
// does nothing.
func DebugCheckPow2[T Number](value T, name string) {
	if err := CheckPow2[T](value, name); err != nil {
		panic(err)
	}
}
