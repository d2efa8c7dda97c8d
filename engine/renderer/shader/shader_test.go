package shader

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-present/engine/device"
	"github.com/Carmen-Shannon/oxy-present/engine/gpuerr"
)

// spirv encodes a minimal module: the magic number followed by words.
func spirv(words ...uint32) []byte {
	out := binary.LittleEndian.AppendUint32(nil, SPIRVMagic)
	for _, w := range words {
		out = binary.LittleEndian.AppendUint32(out, w)
	}
	return out
}

func validBinaries() StageBinaries {
	return StageBinaries{
		ShaderTypeVertex:   {Stage: ShaderTypeVertex, Code: spirv(0x00010000)},
		ShaderTypeFragment: {Stage: ShaderTypeFragment, Code: spirv(0x00010000)},
	}
}

func TestValidateRejectsOddLength(t *testing.T) {
	b := Binary{Stage: ShaderTypeVertex, Code: make([]byte, 17)}
	copy(b.Code, spirv())

	err := b.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedShaderBinary)
	assert.ErrorIs(t, err, gpuerr.MalformedShaderBinary)
}

func TestValidateRejectsEmptyAndBadMagic(t *testing.T) {
	assert.ErrorIs(t, Binary{}.Validate(), ErrMalformedShaderBinary)
	assert.ErrorIs(t, Binary{Code: []byte{1, 2, 3, 4}}.Validate(), ErrMalformedShaderBinary)
	assert.NoError(t, Binary{Code: spirv(1, 2, 3)}.Validate())
}

func TestWordsLittleEndian(t *testing.T) {
	words := Words([]byte{0x03, 0x02, 0x23, 0x07, 0x01, 0x00, 0x00, 0x00, 0xff})
	assert.Equal(t, []uint32{SPIRVMagic, 1}, words)
}

func TestEntryDefaultsToMain(t *testing.T) {
	assert.Equal(t, "main", Binary{}.Entry())
	assert.Equal(t, "vs_main", Binary{EntryPoint: "vs_main"}.Entry())
}

func TestShaderTypeDeviceStage(t *testing.T) {
	assert.Equal(t, device.ShaderStageVertex, ShaderTypeVertex.DeviceStage())
	assert.Equal(t, device.ShaderStageFragment, ShaderTypeFragment.DeviceStage())
	assert.Equal(t, "fragment", ShaderTypeFragment.String())
}

func TestStageBinariesValidate(t *testing.T) {
	assert.NoError(t, validBinaries().Validate())

	missing := validBinaries()
	delete(missing, ShaderTypeFragment)
	assert.ErrorIs(t, missing.Validate(), ErrMalformedShaderBinary)

	mislabeled := validBinaries()
	mislabeled[ShaderTypeFragment] = Binary{Stage: ShaderTypeVertex, Code: spirv()}
	assert.ErrorIs(t, mislabeled.Validate(), ErrMalformedShaderBinary)

	odd := validBinaries()
	odd[ShaderTypeVertex] = Binary{Stage: ShaderTypeVertex, Code: make([]byte, 17)}
	assert.ErrorIs(t, odd.Validate(), ErrMalformedShaderBinary)

	assert.Equal(t, []ShaderType{ShaderTypeVertex, ShaderTypeFragment}, validBinaries().Stages())
}

func TestLoadStagesFromStaticSource(t *testing.T) {
	src := NewStaticSource(
		Binary{Stage: ShaderTypeFragment, Code: spirv(2), EntryPoint: "fs"},
		Binary{Stage: ShaderTypeVertex, Code: spirv(1), EntryPoint: "vs"},
	)

	binaries, err := LoadStages(src)
	require.NoError(t, err)
	require.Len(t, binaries, 2)
	assert.Equal(t, "vs", binaries[ShaderTypeVertex].EntryPoint)
	assert.Equal(t, "fs", binaries[ShaderTypeFragment].EntryPoint)
	assert.NoError(t, binaries.Validate())
}

func TestLoadStagesReportsMissingStage(t *testing.T) {
	src := NewStaticSource(Binary{Stage: ShaderTypeVertex, Code: spirv()})

	binaries, err := LoadStages(src, ShaderTypeVertex, ShaderTypeFragment)
	require.Error(t, err)
	assert.Nil(t, binaries)
	assert.ErrorIs(t, err, ErrStageNotProvided)
}

func TestLoadStagesNilProvider(t *testing.T) {
	_, err := LoadStages(nil)
	assert.Error(t, err)
}

func TestLoadStagesReusesWorkers(t *testing.T) {
	src := NewStaticSource(
		Binary{Stage: ShaderTypeVertex, Code: spirv(1)},
		Binary{Stage: ShaderTypeFragment, Code: spirv(2)},
	)
	_, err := LoadStages(src)
	require.NoError(t, err)
	before := runtime.NumGoroutine()

	for range 50 {
		_, err := LoadStages(src)
		require.NoError(t, err)
	}

	assert.LessOrEqual(t, runtime.NumGoroutine(), before)
}

func TestFileSource(t *testing.T) {
	dir := t.TempDir()
	vert := filepath.Join(dir, "vert.spv")
	frag := filepath.Join(dir, "frag.spv")
	require.NoError(t, os.WriteFile(vert, spirv(1), 0o644))
	require.NoError(t, os.WriteFile(frag, spirv(2), 0o644))

	src := NewFileSource(map[ShaderType]string{
		ShaderTypeVertex:   vert,
		ShaderTypeFragment: frag,
	}, map[ShaderType]string{ShaderTypeFragment: "frag_main"})

	binaries, err := LoadStages(src)
	require.NoError(t, err)
	assert.Equal(t, spirv(1), binaries[ShaderTypeVertex].Code)
	assert.Equal(t, vert, binaries[ShaderTypeVertex].Label)
	assert.Equal(t, "main", binaries[ShaderTypeVertex].Entry())
	assert.Equal(t, "frag_main", binaries[ShaderTypeFragment].Entry())
}

func TestFileSourceMissingFile(t *testing.T) {
	src := NewFileSource(map[ShaderType]string{
		ShaderTypeVertex: filepath.Join(t.TempDir(), "missing.spv"),
	}, nil)

	_, err := src.Source(ShaderTypeVertex)
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = src.Source(ShaderTypeFragment)
	assert.ErrorIs(t, err, ErrStageNotProvided)
}

func TestWGSLSourceWithoutEntryPoint(t *testing.T) {
	src := NewWGSLSource("compute_only", "@compute @workgroup_size(1) fn cs() {}")

	_, err := src.Source(ShaderTypeVertex)
	assert.ErrorIs(t, err, ErrStageNotProvided)
}

const texturedWGSL = `
// vertex input
struct VertexInput {
    @location(0) position: vec2<f32>,
    @location(1) color: vec3f,
};

struct VertexOutput {
    @builtin(position) clip: vec4<f32>,
    @location(0) color: vec3<f32>,
};

/* @vertex fn commented_out() {} */
@vertex
fn vs_main(in: VertexInput) -> VertexOutput {
    var out: VertexOutput;
    out.clip = vec4<f32>(in.position, 0.0, 1.0);
    out.color = in.color;
    return out;
}

@fragment
fn fs_main(in: VertexOutput) -> @location(0) vec4<f32> {
    return vec4<f32>(in.color, 1.0);
}
`

func TestParseEntryPoint(t *testing.T) {
	assert.Equal(t, "vs_main", parseEntryPoint(texturedWGSL, ShaderTypeVertex))
	assert.Equal(t, "fs_main", parseEntryPoint(texturedWGSL, ShaderTypeFragment))
	assert.Empty(t, parseEntryPoint("fn helper() {}", ShaderTypeVertex))
}

func TestParseVertexInput(t *testing.T) {
	state := parseVertexInput(texturedWGSL)

	assert.Equal(t, []device.VertexBinding{
		{Binding: 0, Stride: 20, InputRate: device.VertexInputRateVertex},
	}, state.Bindings)
	assert.Equal(t, []device.VertexAttribute{
		{Location: 0, Binding: 0, Format: device.FormatR32G32Sfloat, Offset: 0},
		{Location: 1, Binding: 0, Format: device.FormatR32G32B32Sfloat, Offset: 8},
	}, state.Attributes)
}

func TestParseVertexInputBuiltinOnly(t *testing.T) {
	src := `
@vertex
fn main(@builtin(vertex_index) i: u32) -> @builtin(position) vec4<f32> {
    return vec4<f32>(0.0, 0.0, 0.0, 1.0);
}`
	state := parseVertexInput(src)
	assert.Empty(t, state.Bindings)
	assert.Empty(t, state.Attributes)
}
