package upload

import (
	"log/slog"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
)

// WriteFunc performs one buffer write on the device queue.
type WriteFunc func(buffer *wgpu.Buffer, offset uint64, data []byte)

// QueueWriter returns a WriteFunc submitting through queue.WriteBuffer.
//
// Parameters:
//   - queue: the device queue
//
// Returns:
//   - WriteFunc: the write function
func QueueWriter(queue *wgpu.Queue) WriteFunc {
	return func(buffer *wgpu.Buffer, offset uint64, data []byte) {
		queue.WriteBuffer(buffer, offset, data)
	}
}

type writeKey struct {
	buffer *wgpu.Buffer
	offset uint64
}

// uploader is the implementation of the Uploader interface.
type uploader struct {
	mu *sync.Mutex

	logger *slog.Logger
	write  WriteFunc

	staged []BufferWrite
	index  map[writeKey]int
}

// Uploader batches buffer writes produced during a frame and submits them together.
// Staging the same buffer and offset twice before Flush keeps only the latest data.
type Uploader interface {
	// Stage queues a write for the next Flush.
	//
	// Parameters:
	//   - w: the buffer write; its Data must stay valid until Flush
	Stage(w BufferWrite)

	// Pending returns the number of staged writes.
	//
	// Returns:
	//   - int: the staged write count
	Pending() int

	// Flush submits every staged write in staging order and clears the stage.
	// Writes without a target buffer are dropped.
	//
	// Returns:
	//   - int: the number of writes submitted
	Flush() int

	// Discard clears the stage without submitting.
	Discard()
}

var _ Uploader = &uploader{}

// NewUploader creates a new Uploader and applies the given options.
// Without WithQueue or WithWriteFunc, Flush drops the staged writes.
//
// Parameters:
//   - options: variadic list of UploaderBuilderOption functions to configure the Uploader
//
// Returns:
//   - Uploader: a new Uploader
func NewUploader(options ...UploaderBuilderOption) Uploader {
	u := &uploader{
		mu:     &sync.Mutex{},
		logger: slog.Default(),
		index:  make(map[writeKey]int),
	}
	for _, opt := range options {
		opt(u)
	}
	return u
}

func (u *uploader) Stage(w BufferWrite) {
	u.mu.Lock()
	defer u.mu.Unlock()

	key := writeKey{buffer: w.Buffer, offset: w.Offset}
	if i, ok := u.index[key]; ok {
		u.staged[i] = w
		return
	}
	u.index[key] = len(u.staged)
	u.staged = append(u.staged, w)
}

func (u *uploader) Pending() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.staged)
}

func (u *uploader) Flush() int {
	u.mu.Lock()
	defer u.mu.Unlock()

	submitted := 0
	for _, w := range u.staged {
		if w.Buffer == nil || u.write == nil {
			u.logger.Debug("buffer write dropped", "label", w.Label, "bytes", len(w.Data))
			continue
		}
		u.write(w.Buffer, w.Offset, w.Data)
		submitted++
	}
	u.resetLocked()
	return submitted
}

func (u *uploader) Discard() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.resetLocked()
}

func (u *uploader) resetLocked() {
	clear(u.staged)
	u.staged = u.staged[:0]
	clear(u.index)
}
