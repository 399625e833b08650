package safe

import (
	"fmt"
	"os"
	"path/filepath"
)

// DefaultMaxFileSize caps file reads at 1MB. Config files are tiny; a
// larger read is almost certainly the wrong path.
const DefaultMaxFileSize = 1 << 20

// ReadFile reads a regular file after validating it. Symlinks are
// rejected so a host-supplied config path cannot be redirected, and
// files larger than maxSize (DefaultMaxFileSize when zero) are refused.
func ReadFile(path string, maxSize int64) ([]byte, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}

	cleanPath := filepath.Clean(path)

	info, err := os.Lstat(cleanPath)
	if err != nil {
		return nil, err
	}
	if info.Mode()&os.ModeSymlink != 0 {
		return nil, fmt.Errorf("file %q is a symlink, which is not allowed", path)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("path %q is not a regular file", path)
	}
	if info.Size() > maxSize {
		return nil, fmt.Errorf("file %q exceeds maximum allowed size of %d bytes", path, maxSize)
	}

	// #nosec G304 - the path was validated above.
	return os.ReadFile(cleanPath)
}
