package loader

import (
	"io"

	"github.com/Carmen-Shannon/oxy-anim/engine/model"
)

// importBackend turns a source of one file format into an ImportedModel.
// The Loader picks a backend by file extension and caches what it returns.
type importBackend interface {
	// Import reads and converts the file at path.
	Import(path string) (*model.ImportedModel, error)

	// ImportReader converts a complete source held by r. Sources that reference external
	// files cannot be resolved from a stream.
	//
	// Parameters:
	//   - r: the source stream
	//   - isGLB: true for the binary container, false for the text form
	//
	// Returns:
	//   - *model.ImportedModel: the node hierarchy, animations and skins of the source
	//   - error: error if the source cannot be decoded
	ImportReader(r io.Reader, isGLB bool) (*model.ImportedModel, error)
}
