package shader_test

import (
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/raytrace/memutils"
	"github.com/vkngwrapper/raytrace/shader"
	"golang.org/x/exp/slog"
)

const vertexShader = `
@vertex
fn main(@builtin(vertex_index) idx: u32) -> @builtin(position) vec4<f32> {
    return vec4<f32>(0.0, 0.0, 0.0, 1.0);
}
`

const spirvMagic = 0x07230203

func newCompiler() *shader.Compiler {
	return shader.NewCompiler(slog.New(slog.NewTextHandler(io.Discard, nil)), shader.Options{})
}

func TestCompileFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fullscreen.wgsl")
	require.NoError(t, os.WriteFile(path, []byte(vertexShader), 0o600))

	bytecode, size, err := newCompiler().CompileFile(path)
	require.NoError(t, err)
	require.Equal(t, len(bytecode), size)
	require.Greater(t, size, 20)
	require.Equal(t, uint32(spirvMagic), binary.LittleEndian.Uint32(bytecode))
}

func TestCompileLibraryExports(t *testing.T) {
	library, err := newCompiler().CompileLibrary("inline", vertexShader)
	require.NoError(t, err)
	require.Equal(t, "inline", library.Name)
	require.Equal(t, []string{"main"}, library.Exports)
	require.NotEmpty(t, library.Bytecode)
}

func TestCompileMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.wgsl")

	_, _, err := newCompiler().CompileFile(path)
	require.True(t, errors.Is(err, memutils.CompileError))
	require.ErrorContains(t, err, path)
}

func TestCompileSyntaxError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.wgsl")
	require.NoError(t, os.WriteFile(path, []byte("@vertex fn main( -> {"), 0o600))

	_, _, err := newCompiler().CompileFile(path)
	require.True(t, errors.Is(err, memutils.CompileError))
	require.ErrorContains(t, err, "broken.wgsl")
}
