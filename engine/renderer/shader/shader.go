package shader

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-present/engine/device"
	"github.com/Carmen-Shannon/oxy-present/engine/gpuerr"
)

// SPIRVMagic is the first word of every SPIR-V module.
const SPIRVMagic uint32 = 0x07230203

// DefaultEntryPoint is the entry point assumed when a binary does not name one.
const DefaultEntryPoint = "main"

var (
	// ErrMalformedShaderBinary is returned when a binary cannot be a SPIR-V module: its length is
	// not a multiple of 4, it is empty, it does not start with the SPIR-V magic number, or a
	// required stage is missing.
	ErrMalformedShaderBinary = gpuerr.New(gpuerr.MalformedShaderBinary, "shader: malformed binary")

	// ErrStageNotProvided is returned by a SourceProvider that has nothing for a stage.
	ErrStageNotProvided = errors.New("shader: stage not provided")
)

// ShaderType identifies the pipeline stage a binary is compiled for.
type ShaderType int

const (
	// ShaderTypeVertex is the vertex shader type, run once per vertex.
	ShaderTypeVertex ShaderType = iota

	// ShaderTypeFragment is the fragment shader type, used for fragment processing in pair with a vertex shader.
	ShaderTypeFragment
)

// RequiredStages are the stages every graphics pipeline needs, in pipeline order.
var RequiredStages = []ShaderType{ShaderTypeVertex, ShaderTypeFragment}

func (t ShaderType) String() string {
	switch t {
	case ShaderTypeVertex:
		return "vertex"
	case ShaderTypeFragment:
		return "fragment"
	default:
		return fmt.Sprintf("ShaderType(%d)", int(t))
	}
}

// DeviceStage returns the device stage bit for the shader type.
func (t ShaderType) DeviceStage() device.ShaderStage {
	switch t {
	case ShaderTypeFragment:
		return device.ShaderStageFragment
	default:
		return device.ShaderStageVertex
	}
}

// Binary is a compiled shader for one stage. Code is raw SPIR-V as read from disk or produced
// by a compiler; it is not validated until Validate is called.
type Binary struct {
	// Stage is the stage the binary is bound to.
	Stage ShaderType
	// Label names the binary in logs and driver debug output.
	Label string
	// EntryPoint is the function invoked for the stage. Empty means DefaultEntryPoint.
	EntryPoint string
	// Code is the SPIR-V module, little-endian.
	Code []byte
	// VertexInput is the vertex input layout reflected from source, if the source was available.
	// Only vertex binaries carry one.
	VertexInput *device.VertexInputState
}

// Entry returns the entry point, defaulting to DefaultEntryPoint.
func (b Binary) Entry() string {
	if b.EntryPoint == "" {
		return DefaultEntryPoint
	}
	return b.EntryPoint
}

// Validate checks that the binary is a plausible SPIR-V module.
//
// Returns:
//   - error: ErrMalformedShaderBinary describing the first problem found, or nil
func (b Binary) Validate() error {
	switch {
	case len(b.Code) == 0:
		return fmt.Errorf("%w: %s: empty", ErrMalformedShaderBinary, b.Stage)
	case len(b.Code)%4 != 0:
		return fmt.Errorf("%w: %s: length %d is not a multiple of 4", ErrMalformedShaderBinary, b.Stage, len(b.Code))
	}
	if magic := binary.LittleEndian.Uint32(b.Code); magic != SPIRVMagic {
		return fmt.Errorf("%w: %s: bad magic %#08x", ErrMalformedShaderBinary, b.Stage, magic)
	}
	return nil
}

// Words reinterprets the binary as little-endian 32-bit words. Trailing bytes that do not fill
// a word are dropped, so callers validate first.
//
// Returns:
//   - []uint32: the SPIR-V words
func (b Binary) Words() []uint32 {
	return Words(b.Code)
}

// Words reinterprets code as little-endian 32-bit words, dropping any trailing partial word.
//
// Parameters:
//   - code: the raw bytes
//
// Returns:
//   - []uint32: the words
func Words(code []byte) []uint32 {
	words := make([]uint32, len(code)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(code[i*4:])
	}
	return words
}

// StageBinaries holds one binary per stage.
type StageBinaries map[ShaderType]Binary

// Validate checks that every required stage is present and that every binary is well formed.
// All binaries are checked before any error is returned so nothing downstream runs on a
// partially valid set.
//
// Returns:
//   - error: ErrMalformedShaderBinary joining every problem found, or nil
func (s StageBinaries) Validate() error {
	var errs []error
	for _, stage := range RequiredStages {
		if _, ok := s[stage]; !ok {
			errs = append(errs, fmt.Errorf("%w: %s: stage missing", ErrMalformedShaderBinary, stage))
		}
	}
	for _, stage := range s.Stages() {
		b := s[stage]
		if b.Stage != stage {
			errs = append(errs, fmt.Errorf("%w: %s binary registered as %s", ErrMalformedShaderBinary, b.Stage, stage))
			continue
		}
		if err := b.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Stages returns the stages present, in pipeline order.
func (s StageBinaries) Stages() []ShaderType {
	stages := make([]ShaderType, 0, len(s))
	for _, stage := range RequiredStages {
		if _, ok := s[stage]; ok {
			stages = append(stages, stage)
		}
	}
	return stages
}

// VertexInput returns the vertex input layout reflected from the vertex binary, if any.
func (s StageBinaries) VertexInput() (device.VertexInputState, bool) {
	b, ok := s[ShaderTypeVertex]
	if !ok || b.VertexInput == nil {
		return device.VertexInputState{}, false
	}
	return *b.VertexInput, true
}
