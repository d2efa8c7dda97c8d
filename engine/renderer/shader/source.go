package shader

import (
	"fmt"
	"os"
	"sync"

	"github.com/gogpu/naga"
)

// SourceProvider supplies compiled binaries per stage. Providers are called from worker
// goroutines by LoadStages and must be safe for concurrent use.
type SourceProvider interface {
	// Source returns the binary for a stage.
	//
	// Parameters:
	//   - stage: the requested stage
	//
	// Returns:
	//   - Binary: the binary, not yet validated
	//   - error: ErrStageNotProvided, or an error from reading or compiling the source
	Source(stage ShaderType) (Binary, error)
}

// staticSource serves binaries held in memory.
type staticSource struct {
	binaries StageBinaries
}

var _ SourceProvider = &staticSource{}

// NewStaticSource creates a SourceProvider over binaries that are already in memory, keyed
// by their Stage field. A later binary for the same stage replaces an earlier one.
//
// Parameters:
//   - binaries: the binaries to serve
//
// Returns:
//   - SourceProvider: the provider
func NewStaticSource(binaries ...Binary) SourceProvider {
	s := &staticSource{binaries: make(StageBinaries, len(binaries))}
	for _, b := range binaries {
		s.binaries[b.Stage] = b
	}
	return s
}

func (s *staticSource) Source(stage ShaderType) (Binary, error) {
	b, ok := s.binaries[stage]
	if !ok {
		return Binary{}, fmt.Errorf("%w: %s", ErrStageNotProvided, stage)
	}
	return b, nil
}

// fileSource reads precompiled SPIR-V files, one per stage.
type fileSource struct {
	paths       map[ShaderType]string
	entryPoints map[ShaderType]string
}

var _ SourceProvider = &fileSource{}

// NewFileSource creates a SourceProvider reading one precompiled SPIR-V file per stage, such
// as the vert.spv and frag.spv an offline compiler produces. Every stage uses
// DefaultEntryPoint unless entryPoints names another.
//
// Parameters:
//   - paths: the file path of each stage
//   - entryPoints: optional entry point overrides per stage, may be nil
//
// Returns:
//   - SourceProvider: the provider
func NewFileSource(paths map[ShaderType]string, entryPoints map[ShaderType]string) SourceProvider {
	return &fileSource{paths: paths, entryPoints: entryPoints}
}

func (f *fileSource) Source(stage ShaderType) (Binary, error) {
	path, ok := f.paths[stage]
	if !ok || path == "" {
		return Binary{}, fmt.Errorf("%w: %s", ErrStageNotProvided, stage)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Binary{}, fmt.Errorf("shader: failed to read %s binary %q: %w", stage, path, err)
	}
	return Binary{
		Stage:      stage,
		Label:      path,
		EntryPoint: f.entryPoints[stage],
		Code:       data,
	}, nil
}

// wgslSource compiles one WGSL module holding every stage's entry point.
type wgslSource struct {
	label  string
	source string

	once sync.Once
	code []byte
	err  error
}

var _ SourceProvider = &wgslSource{}

// NewWGSLSource creates a SourceProvider that compiles WGSL to SPIR-V the first time a stage is
// requested. Entry points are taken from the @vertex and @fragment attributes and the vertex
// input layout is reflected from the vertex input structs.
//
// Parameters:
//   - label: a label for logs and driver debug output
//   - source: the WGSL source
//
// Returns:
//   - SourceProvider: the provider
func NewWGSLSource(label, source string) SourceProvider {
	return &wgslSource{label: label, source: source}
}

// NewWGSLFileSource reads WGSL from path and returns a provider compiling it.
//
// Parameters:
//   - path: the WGSL file
//
// Returns:
//   - SourceProvider: the provider
//   - error: an error if the file could not be read
func NewWGSLFileSource(path string) (SourceProvider, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("shader: failed to read source file %q: %w", path, err)
	}
	return NewWGSLSource(path, string(data)), nil
}

func (w *wgslSource) Source(stage ShaderType) (Binary, error) {
	entry := parseEntryPoint(w.source, stage)
	if entry == "" {
		return Binary{}, fmt.Errorf("%w: %s: no entry point in %s", ErrStageNotProvided, stage, w.label)
	}

	w.once.Do(func() {
		w.code, w.err = naga.Compile(w.source)
	})
	if w.err != nil {
		return Binary{}, fmt.Errorf("shader: failed to compile %s: %w", w.label, w.err)
	}

	b := Binary{
		Stage:      stage,
		Label:      w.label,
		EntryPoint: entry,
		Code:       w.code,
	}
	if stage == ShaderTypeVertex {
		in := parseVertexInput(w.source)
		b.VertexInput = &in
	}
	return b, nil
}
