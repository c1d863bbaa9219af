package upload

import "github.com/cogentcore/webgpu/wgpu"

// BufferWrite describes a single GPU buffer write at a given byte offset.
// Data is referenced, not copied, until the write is flushed.
type BufferWrite struct {
	Label  string
	Buffer *wgpu.Buffer
	Offset uint64
	Data   []byte
}
