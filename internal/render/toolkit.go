// Package render decodes scan files into raster frames and manages the
// offscreen surface used for sequence composition.
package render

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/image/draw"
)

// toolkit holds the process-wide rendering state: the scratch root where
// offscreen surfaces live and the scaler used for canvas composition.
// Initialization is idempotent; repeated calls are cheap and safe.
var toolkit struct {
	once        sync.Once
	err         error
	scratchRoot string
	scaler      draw.Scaler
}

// EnsureInitialized prepares the rendering toolkit. Calling it more than
// once is allowed and returns the result of the first initialization.
func EnsureInitialized() error {
	toolkit.once.Do(func() {
		root := filepath.Join(os.TempDir(), "scancine-render")
		if err := os.MkdirAll(root, 0755); err != nil {
			toolkit.err = fmt.Errorf("create scratch root: %w", err)
			return
		}
		toolkit.scratchRoot = root
		toolkit.scaler = draw.BiLinear
	})
	return toolkit.err
}

// Scaler returns the shared scaler. EnsureInitialized must have succeeded.
func Scaler() draw.Scaler {
	return toolkit.scaler
}

// scratchRoot returns the directory under which surfaces allocate space.
func scratchRoot() string {
	return toolkit.scratchRoot
}
