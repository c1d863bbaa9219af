package loader

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

var (
	errInvalidGLTFVersion = errors.New("invalid glTF version: must be 2.0")
	errInvalidGLB         = errors.New("invalid GLB container")
	errInvalidBufferURI   = errors.New("invalid buffer URI")
	errBufferSizeMismatch = errors.New("buffer size mismatch")
	errUnsupportedAccess  = errors.New("unsupported accessor")
)

// gltfParserImpl is the implementation of the gltfParser interface.
type gltfParserImpl struct {
	baseDir  string
	document *gltfDocument
}

// gltfParser decodes a glTF or GLB source and reads typed accessor data out of it.
// This is internal to the loader package.
type gltfParser interface {
	// Parse loads a .gltf or .glb file. GLB is detected from the extension or the magic number.
	// External buffer URIs are resolved against the file's directory.
	//
	// Parameters:
	//   - path: path to the glTF or GLB file
	//
	// Returns:
	//   - error: error if reading or decoding fails
	Parse(path string) error

	// ParseReader decodes a glTF document from a reader. External buffer URIs are resolved
	// against the working directory.
	//
	// Parameters:
	//   - r: reader containing glTF JSON or GLB data
	//   - isGLB: true if the data is in GLB format
	//
	// Returns:
	//   - error: error if reading or decoding fails
	ParseReader(r io.Reader, isGLB bool) error

	// Document returns the decoded document, or nil before a successful parse.
	Document() *gltfDocument

	// ReadScalarAccessor reads a SCALAR FLOAT accessor.
	ReadScalarAccessor(index int) ([]float32, error)

	// ReadVec3Accessor reads a VEC3 FLOAT accessor.
	ReadVec3Accessor(index int) ([][3]float32, error)

	// ReadVec4Accessor reads a VEC4 FLOAT accessor.
	ReadVec4Accessor(index int) ([][4]float32, error)

	// ReadMat4Accessor reads a MAT4 FLOAT accessor, column-major.
	ReadMat4Accessor(index int) ([][16]float32, error)

	// ReadJointsAccessor reads a JOINTS_n accessor.
	// UNSIGNED_BYTE and UNSIGNED_SHORT components are widened to uint32.
	//
	// Parameters:
	//   - index: the accessor index
	//
	// Returns:
	//   - [][4]uint32: the skin-local joint indices of each vertex
	//   - error: error if the accessor is missing or has another layout
	ReadJointsAccessor(index int) ([][4]uint32, error)

	// ReadWeightsAccessor reads a WEIGHTS_n accessor.
	// FLOAT components are returned as stored. Normalized UNSIGNED_BYTE and UNSIGNED_SHORT
	// components are mapped to [0, 1].
	//
	// Parameters:
	//   - index: the accessor index
	//
	// Returns:
	//   - [][4]float32: the weights of each vertex
	//   - error: error if the accessor is missing or has another layout
	ReadWeightsAccessor(index int) ([][4]float32, error)
}

var _ gltfParser = &gltfParserImpl{}

func newGLTFParser() gltfParser {
	return &gltfParserImpl{}
}

func (p *gltfParserImpl) Document() *gltfDocument {
	return p.document
}

func (p *gltfParserImpl) Parse(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	p.baseDir = filepath.Dir(path)

	isGLB := strings.EqualFold(filepath.Ext(path), ".glb") ||
		(len(data) >= 4 && binary.LittleEndian.Uint32(data) == glbMagic)
	return p.decode(data, isGLB)
}

func (p *gltfParserImpl) ParseReader(r io.Reader, isGLB bool) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read data: %w", err)
	}
	return p.decode(data, isGLB)
}

// decode unpacks the container, decodes the JSON and loads every buffer.
func (p *gltfParserImpl) decode(data []byte, isGLB bool) error {
	jsonChunk, binChunk := data, []byte(nil)
	if isGLB {
		var err error
		if jsonChunk, binChunk, err = splitGLB(data); err != nil {
			return err
		}
	}

	var doc gltfDocument
	if err := json.Unmarshal(jsonChunk, &doc); err != nil {
		return fmt.Errorf("failed to parse glTF JSON: %w", err)
	}
	if !strings.HasPrefix(doc.Asset.Version, "2.") {
		return fmt.Errorf("%w: got %q", errInvalidGLTFVersion, doc.Asset.Version)
	}

	for i := range doc.Buffers {
		buf := &doc.Buffers[i]
		switch {
		case buf.URI != "":
			raw, err := p.readBufferURI(buf.URI)
			if err != nil {
				return fmt.Errorf("buffer %d: %w", i, err)
			}
			buf.data = raw
		case i == 0 && binChunk != nil:
			buf.data = binChunk
		default:
			return fmt.Errorf("buffer %d has no URI and no GLB binary chunk", i)
		}
		if len(buf.data) < buf.ByteLength {
			return fmt.Errorf("buffer %d holds %d of %d bytes: %w", i, len(buf.data), buf.ByteLength, errBufferSizeMismatch)
		}
	}

	p.document = &doc
	return nil
}

// splitGLB returns the JSON chunk and the optional BIN chunk of a GLB container.
// Chunks of unknown type are skipped.
func splitGLB(data []byte) (jsonChunk, binChunk []byte, err error) {
	if len(data) < glbHeaderSize {
		return nil, nil, fmt.Errorf("%w: %d bytes is shorter than the header", errInvalidGLB, len(data))
	}
	le := binary.LittleEndian
	if le.Uint32(data) != glbMagic {
		return nil, nil, fmt.Errorf("%w: bad magic %#x", errInvalidGLB, le.Uint32(data))
	}
	if v := le.Uint32(data[4:]); v != glbVersion {
		return nil, nil, fmt.Errorf("%w: version %d", errInvalidGLB, v)
	}
	if total := int(le.Uint32(data[8:])); total < len(data) {
		data = data[:max(total, glbHeaderSize)]
	}

	rest := data[glbHeaderSize:]
	for len(rest) >= glbChunkHeader {
		length, kind := int(le.Uint32(rest)), le.Uint32(rest[4:])
		rest = rest[glbChunkHeader:]
		if length > len(rest) {
			return nil, nil, fmt.Errorf("%w: chunk %#x claims %d bytes, %d remain", errInvalidGLB, kind, length, len(rest))
		}
		switch kind {
		case glbChunkJSON:
			jsonChunk = rest[:length]
		case glbChunkBIN:
			binChunk = rest[:length]
		}
		rest = rest[length:]
	}

	if jsonChunk == nil {
		return nil, nil, fmt.Errorf("%w: missing JSON chunk", errInvalidGLB)
	}
	return jsonChunk, binChunk, nil
}

// readBufferURI loads a base64 data URI or a file relative to the document.
func (p *gltfParserImpl) readBufferURI(uri string) ([]byte, error) {
	payload, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		data, err := os.ReadFile(filepath.Join(p.baseDir, uri))
		if err != nil {
			return nil, fmt.Errorf("failed to load buffer file %q: %w", uri, err)
		}
		return data, nil
	}

	mediaType, encoded, ok := strings.Cut(payload, ",")
	if !ok {
		return nil, errInvalidBufferURI
	}
	if !strings.HasSuffix(mediaType, ";base64") {
		return nil, fmt.Errorf("%w: unsupported encoding %q", errInvalidBufferURI, mediaType)
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64: %w", err)
	}
	return data, nil
}

// gltfElements is an accessor resolved to its bytes: element i starts at data[i*stride].
type gltfElements struct {
	data          []byte
	count         int
	stride        int
	componentType int
}

// elements resolves accessor index, checking its element type and component type.
func (p *gltfParserImpl) elements(index int, accessorType string, componentTypes ...int) (gltfElements, error) {
	if p.document == nil {
		return gltfElements{}, errors.New("no document loaded")
	}
	doc := p.document
	if index < 0 || index >= len(doc.Accessors) {
		return gltfElements{}, fmt.Errorf("accessor index %d out of range", index)
	}
	acc := &doc.Accessors[index]

	if acc.Type != accessorType || !slices.Contains(componentTypes, acc.ComponentType) {
		return gltfElements{}, fmt.Errorf("%w: accessor %d is %s/%d, want %s", errUnsupportedAccess, index, acc.Type, acc.ComponentType, accessorType)
	}
	if acc.Sparse != nil {
		return gltfElements{}, fmt.Errorf("%w: accessor %d is sparse", errUnsupportedAccess, index)
	}
	if acc.BufferView == nil || *acc.BufferView < 0 || *acc.BufferView >= len(doc.BufferViews) {
		return gltfElements{}, fmt.Errorf("%w: accessor %d has no valid bufferView", errUnsupportedAccess, index)
	}
	bv := &doc.BufferViews[*acc.BufferView]
	if bv.Buffer < 0 || bv.Buffer >= len(doc.Buffers) {
		return gltfElements{}, fmt.Errorf("buffer index %d out of range", bv.Buffer)
	}

	size := gltfComponentSizes[acc.ComponentType] * gltfAccessorWidths[acc.Type]
	stride := size
	if bv.ByteStride > 0 {
		stride = bv.ByteStride
	}

	start := bv.ByteOffset + acc.ByteOffset
	data := doc.Buffers[bv.Buffer].data
	if acc.Count > 0 && start+(acc.Count-1)*stride+size > len(data) {
		return gltfElements{}, fmt.Errorf("accessor %d: %w", index, errBufferSizeMismatch)
	}
	if acc.Count <= 0 {
		return gltfElements{componentType: acc.ComponentType}, nil
	}

	return gltfElements{
		data:          data[start:],
		count:         acc.Count,
		stride:        stride,
		componentType: acc.ComponentType,
	}, nil
}

// readGLTFElements decodes every element of an accessor with decode.
func readGLTFElements[T any](p *gltfParserImpl, index int, accessorType string, componentTypes []int, decode func(b []byte, componentType int, dst *T)) ([]T, error) {
	el, err := p.elements(index, accessorType, componentTypes...)
	if err != nil {
		return nil, err
	}
	out := make([]T, el.count)
	for i := range out {
		decode(el.data[i*el.stride:], el.componentType, &out[i])
	}
	return out, nil
}

var gltfFloatOnly = []int{gltfComponentTypeFloat}

// gltfFloats fills dst with consecutive little-endian float32 values from b.
func gltfFloats(b []byte, dst []float32) {
	for k := range dst {
		dst[k] = math.Float32frombits(binary.LittleEndian.Uint32(b[k*4:]))
	}
}

// gltfUnsigned returns the k-th UNSIGNED_BYTE or UNSIGNED_SHORT component of b.
func gltfUnsigned(b []byte, componentType, k int) uint32 {
	if componentType == gltfComponentTypeUnsignedByte {
		return uint32(b[k])
	}
	return uint32(binary.LittleEndian.Uint16(b[k*2:]))
}

func (p *gltfParserImpl) ReadScalarAccessor(index int) ([]float32, error) {
	return readGLTFElements(p, index, gltfAccessorTypeScalar, gltfFloatOnly, func(b []byte, _ int, dst *float32) {
		*dst = math.Float32frombits(binary.LittleEndian.Uint32(b))
	})
}

func (p *gltfParserImpl) ReadVec3Accessor(index int) ([][3]float32, error) {
	return readGLTFElements(p, index, gltfAccessorTypeVec3, gltfFloatOnly, func(b []byte, _ int, dst *[3]float32) {
		gltfFloats(b, dst[:])
	})
}

func (p *gltfParserImpl) ReadVec4Accessor(index int) ([][4]float32, error) {
	return readGLTFElements(p, index, gltfAccessorTypeVec4, gltfFloatOnly, func(b []byte, _ int, dst *[4]float32) {
		gltfFloats(b, dst[:])
	})
}

func (p *gltfParserImpl) ReadMat4Accessor(index int) ([][16]float32, error) {
	return readGLTFElements(p, index, gltfAccessorTypeMat4, gltfFloatOnly, func(b []byte, _ int, dst *[16]float32) {
		gltfFloats(b, dst[:])
	})
}

func (p *gltfParserImpl) ReadJointsAccessor(index int) ([][4]uint32, error) {
	types := []int{gltfComponentTypeUnsignedByte, gltfComponentTypeUnsignedShort}
	return readGLTFElements(p, index, gltfAccessorTypeVec4, types, func(b []byte, ct int, dst *[4]uint32) {
		for k := range dst {
			dst[k] = gltfUnsigned(b, ct, k)
		}
	})
}

func (p *gltfParserImpl) ReadWeightsAccessor(index int) ([][4]float32, error) {
	types := []int{gltfComponentTypeFloat, gltfComponentTypeUnsignedByte, gltfComponentTypeUnsignedShort}
	return readGLTFElements(p, index, gltfAccessorTypeVec4, types, func(b []byte, ct int, dst *[4]float32) {
		switch ct {
		case gltfComponentTypeFloat:
			gltfFloats(b, dst[:])
		case gltfComponentTypeUnsignedByte:
			for k := range dst {
				dst[k] = float32(gltfUnsigned(b, ct, k)) / math.MaxUint8
			}
		default:
			for k := range dst {
				dst[k] = float32(gltfUnsigned(b, ct, k)) / math.MaxUint16
			}
		}
	})
}
