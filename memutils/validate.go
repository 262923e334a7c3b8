package memutils

// Validatable is anything that can check its own internal consistency, such as block metadata
type Validatable interface {
	Validate() error
}
