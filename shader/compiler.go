// Package shader compiles shader source into the bytecode libraries a raytracing pipeline is
// assembled from.
package shader

import (
	"os"

	"github.com/cockroachdb/errors"
	"github.com/gogpu/naga"
	"github.com/gogpu/naga/spirv"
	"github.com/vkngwrapper/raytrace/memutils"
	"golang.org/x/exp/slog"
)

// Options configures a Compiler. It is valid to leave every field blank.
type Options struct {
	// SPIRVVersion is the bytecode version to emit. It defaults to 1.3.
	SPIRVVersion spirv.Version
	// Debug emits debug names and line information into the bytecode
	Debug bool
	// SkipValidation skips IR validation before code generation
	SkipValidation bool
}

// Library is compiled bytecode and the names of the entry points it exports
type Library struct {
	Name     string
	Bytecode []byte
	Exports  []string
}

// Compiler turns WGSL source into SPIR-V bytecode
type Compiler struct {
	logger  *slog.Logger
	options Options

	readFile func(path string) ([]byte, error)
}

// NewCompiler creates a Compiler
func NewCompiler(logger *slog.Logger, options Options) *Compiler {
	if options.SPIRVVersion == (spirv.Version{}) {
		options.SPIRVVersion = naga.DefaultOptions().SPIRVVersion
	}

	return &Compiler{
		logger:   logger,
		options:  options,
		readFile: os.ReadFile,
	}
}

// CompileFile reads and compiles a shader source file, returning the bytecode and its size. A
// missing file or a compile failure is returned marked as memutils.CompileError, naming the file
// and carrying the compiler diagnostic.
func (c *Compiler) CompileFile(path string) ([]byte, int, error) {
	library, err := c.CompileLibraryFile(path)
	if err != nil {
		return nil, 0, err
	}

	return library.Bytecode, len(library.Bytecode), nil
}

// CompileLibraryFile reads and compiles a shader source file into a Library named after the file
func (c *Compiler) CompileLibraryFile(path string) (*Library, error) {
	source, err := c.readFile(path)
	if err != nil {
		c.logger.Error("failed to read shader source", slog.String("Path", path), slog.Any("error", err))
		return nil, errors.Mark(errors.Wrapf(err, "failed to read shader %s", path), memutils.CompileError)
	}

	return c.CompileLibrary(path, string(source))
}

// CompileLibrary compiles source into a Library. name is only used in diagnostics.
func (c *Compiler) CompileLibrary(name string, source string) (*Library, error) {
	ast, err := naga.Parse(source)
	if err != nil {
		return nil, c.compileError(name, "parse", err)
	}

	module, err := naga.LowerWithSource(ast, source)
	if err != nil {
		return nil, c.compileError(name, "lower", err)
	}

	if !c.options.SkipValidation {
		validationErrors, err := naga.Validate(module)
		if err != nil {
			return nil, c.compileError(name, "validate", err)
		}
		if len(validationErrors) > 0 {
			return nil, c.compileError(name, "validate", &validationErrors[0])
		}
	}

	bytecode, err := naga.GenerateSPIRV(module, spirv.Options{
		Version: c.options.SPIRVVersion,
		Debug:   c.options.Debug,
	})
	if err != nil {
		return nil, c.compileError(name, "generate", err)
	}

	library := &Library{
		Name:     name,
		Bytecode: bytecode,
		Exports:  make([]string, 0, len(module.EntryPoints)),
	}
	for _, entryPoint := range module.EntryPoints {
		library.Exports = append(library.Exports, entryPoint.Name)
	}

	c.logger.Debug("Compiler::CompileLibrary", slog.String("Name", name), slog.Int("Size", len(bytecode)), slog.Any("Exports", library.Exports))

	return library, nil
}

func (c *Compiler) compileError(name string, phase string, err error) error {
	c.logger.Error("failed to compile shader", slog.String("Name", name), slog.String("Phase", phase), slog.Any("error", err))
	return errors.Mark(errors.Wrapf(err, "failed to compile shader %s (%s)", name, phase), memutils.CompileError)
}
