package shader

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/Carmen-Shannon/oxy-present/engine/device"
)

// vertexFormatInfo holds the device vertex format and its byte size for offset calculation
type vertexFormatInfo struct {
	format device.Format
	size   uint32
}

// parsedField represents a single field extracted from a WGSL struct during parsing
type parsedField struct {
	name      string
	typeName  string
	location  int
	isBuiltin bool
}

// parsedStruct represents a WGSL struct block extracted during parsing
type parsedStruct struct {
	name   string
	fields []parsedField
}

// wgslVertexFormatMap maps WGSL type names to their corresponding vertex format and byte size
var wgslVertexFormatMap = map[string]vertexFormatInfo{
	"f32":       {device.FormatR32Sfloat, 4},
	"vec2f":     {device.FormatR32G32Sfloat, 8},
	"vec2<f32>": {device.FormatR32G32Sfloat, 8},
	"vec3f":     {device.FormatR32G32B32Sfloat, 12},
	"vec3<f32>": {device.FormatR32G32B32Sfloat, 12},
	"vec4f":     {device.FormatR32G32B32A32Sfloat, 16},
	"vec4<f32>": {device.FormatR32G32B32A32Sfloat, 16},
	"i32":       {device.FormatR32Sint, 4},
	"u32":       {device.FormatR32Uint, 4},
}

var (
	// structBlockRegex matches struct declarations and captures the name and body
	structBlockRegex = regexp.MustCompile(`struct\s+(\w+)\s*\{([^}]*)\}`)

	// locationRegex matches @location(N) attributes
	locationRegex = regexp.MustCompile(`@location\((\d+)\)`)

	// builtinRegex matches @builtin(...) attributes
	builtinRegex = regexp.MustCompile(`@builtin\(\w+\)`)

	// fieldRegex matches a struct field line: optional attributes, name, colon, type.
	fieldRegex = regexp.MustCompile(`(?:(?:@\w+\([^)]*\)\s*)*)*\s*(\w+)\s*:\s*(.+)`)

	// vertexEntryRegex matches @vertex functions and captures the entry point name
	vertexEntryRegex = regexp.MustCompile(`(?s)@vertex\b.*?\bfn\s+(\w+)`)

	// fragmentEntryRegex matches @fragment functions and captures the entry point name
	fragmentEntryRegex = regexp.MustCompile(`(?s)@fragment\b.*?\bfn\s+(\w+)`)
)

// parseEntryPoint extracts the entry point function name for the given stage from WGSL
// source. Returns an empty string if no matching entry point attribute is found.
//
// Parameters:
//   - source: the raw WGSL source code string
//   - stage: the stage to search for
//
// Returns:
//   - string: the entry point function name, or empty string if not found
func parseEntryPoint(source string, stage ShaderType) string {
	cleaned := stripComments(source)

	var re *regexp.Regexp
	switch stage {
	case ShaderTypeVertex:
		re = vertexEntryRegex
	case ShaderTypeFragment:
		re = fragmentEntryRegex
	default:
		return ""
	}

	if match := re.FindStringSubmatch(cleaned); match != nil {
		return match[1]
	}
	return ""
}

// parseVertexInput builds a vertex input layout from every pure vertex input struct in WGSL
// source, one binding per struct in declaration order. Structs containing unrecognized types
// are skipped. Shaders that generate their vertices from @builtin(vertex_index) yield an
// empty layout.
//
// Parameters:
//   - source: the raw WGSL source code string
//
// Returns:
//   - device.VertexInputState: the reflected layout
func parseVertexInput(source string) device.VertexInputState {
	var state device.VertexInputState
	binding := uint32(0)
	for _, ps := range parseStructBlocks(stripComments(source)) {
		if !isVertexInputStruct(ps) {
			continue
		}
		attrs, stride, ok := buildVertexAttributes(ps, binding)
		if !ok {
			continue
		}
		state.Bindings = append(state.Bindings, device.VertexBinding{
			Binding:   binding,
			Stride:    stride,
			InputRate: device.VertexInputRateVertex,
		})
		state.Attributes = append(state.Attributes, attrs...)
		binding++
	}
	return state
}

// parseStructBlocks finds all struct { ... } blocks in the cleaned WGSL source
// and parses their fields including @location and @builtin attributes
func parseStructBlocks(source string) []parsedStruct {
	matches := structBlockRegex.FindAllStringSubmatch(source, -1)
	structs := make([]parsedStruct, 0, len(matches))
	for _, match := range matches {
		structs = append(structs, parsedStruct{
			name:   match[1],
			fields: parseStructFields(match[2]),
		})
	}
	return structs
}

// parseStructFields parses the body of a struct block into individual fields,
// extracting @location and @builtin attributes along with the field name and type
func parseStructFields(body string) []parsedField {
	lines := splitAtTopLevelCommas(body)
	fields := make([]parsedField, 0, len(lines))

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		field := parsedField{location: -1}
		if builtinRegex.MatchString(line) {
			field.isBuiltin = true
		}
		if locMatch := locationRegex.FindStringSubmatch(line); locMatch != nil {
			if loc, err := strconv.Atoi(locMatch[1]); err == nil {
				field.location = loc
			}
		}

		fm := fieldRegex.FindStringSubmatch(line)
		if fm == nil {
			continue
		}
		field.name = fm[1]
		field.typeName = strings.TrimSpace(fm[2])
		fields = append(fields, field)
	}
	return fields
}

// isVertexInputStruct returns true if the struct is a pure vertex input, meaning
// it has at least one @location field and zero @builtin fields. This distinguishes
// vertex input structs from vertex output structs which mix @location with @builtin(position).
func isVertexInputStruct(ps parsedStruct) bool {
	hasLocation := false
	for _, f := range ps.fields {
		if f.isBuiltin {
			return false
		}
		if f.location >= 0 {
			hasLocation = true
		}
	}
	return hasLocation
}

// buildVertexAttributes converts a parsed vertex input struct into attributes read from
// binding, with sequential byte offsets. Returns false if any field has an unrecognized type.
func buildVertexAttributes(ps parsedStruct, binding uint32) ([]device.VertexAttribute, uint32, bool) {
	attrs := make([]device.VertexAttribute, 0, len(ps.fields))
	var offset uint32
	for _, f := range ps.fields {
		info, ok := wgslVertexFormatMap[f.typeName]
		if !ok {
			return nil, 0, false
		}
		attrs = append(attrs, device.VertexAttribute{
			Location: uint32(f.location),
			Binding:  binding,
			Format:   info.format,
			Offset:   offset,
		})
		offset += info.size
	}
	return attrs, offset, true
}

// stripComments removes line and block comments from WGSL source
func stripComments(source string) string {
	return stripLineComments(stripBlockComments(source))
}

// stripLineComments removes single-line // comments from WGSL source
func stripLineComments(source string) string {
	var sb strings.Builder
	for line := range strings.SplitSeq(source, "\n") {
		if idx := strings.Index(line, "//"); idx >= 0 {
			line = line[:idx]
		}
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	return sb.String()
}

// stripBlockComments removes block comments (/* ... */) from WGSL source,
// handling nested block comments per the WGSL specification
func stripBlockComments(source string) string {
	var sb strings.Builder
	sb.Grow(len(source))
	depth := 0
	i := 0
	for i < len(source) {
		if i+1 < len(source) {
			if source[i] == '/' && source[i+1] == '*' {
				depth++
				i += 2
				continue
			}
			if source[i] == '*' && source[i+1] == '/' {
				if depth > 0 {
					depth--
				}
				i += 2
				continue
			}
		}
		if depth == 0 {
			sb.WriteByte(source[i])
		}
		i++
	}
	return sb.String()
}

// splitAtTopLevelCommas splits a string at commas that are not nested inside angle brackets,
// so array<T, N> stays one field type.
func splitAtTopLevelCommas(s string) []string {
	var parts []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '<':
			depth++
		case '>':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}
