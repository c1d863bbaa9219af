package upload

import (
	"log/slog"

	"github.com/cogentcore/webgpu/wgpu"
)

// UploaderBuilderOption is a functional option for configuring an Uploader via NewUploader.
type UploaderBuilderOption func(*uploader)

// WithQueue is an option builder that submits flushed writes through a device queue.
//
// Parameters:
//   - queue: the device queue
//
// Returns:
//   - UploaderBuilderOption: a function that applies the queue option to an uploader
func WithQueue(queue *wgpu.Queue) UploaderBuilderOption {
	return func(u *uploader) {
		if queue != nil {
			u.write = QueueWriter(queue)
		}
	}
}

// WithWriteFunc is an option builder that submits flushed writes through fn.
//
// Parameters:
//   - fn: the write function
//
// Returns:
//   - UploaderBuilderOption: a function that applies the write option to an uploader
func WithWriteFunc(fn WriteFunc) UploaderBuilderOption {
	return func(u *uploader) {
		u.write = fn
	}
}

// WithLogger is an option builder that sets the structured logger used by the Uploader.
//
// Parameters:
//   - logger: the logger; nil keeps slog.Default()
//
// Returns:
//   - UploaderBuilderOption: a function that applies the logger option to an uploader
func WithLogger(logger *slog.Logger) UploaderBuilderOption {
	return func(u *uploader) {
		if logger != nil {
			u.logger = logger
		}
	}
}
