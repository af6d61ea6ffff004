package security

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/a3tai/form-copilot/internal/apperrors"
)

// PathValidator confines tool-supplied paths to one directory
type PathValidator struct {
	configuredDirectory string
}

// NewPathValidator creates a new path validator for the given directory
func NewPathValidator(configuredDirectory string) (*PathValidator, error) {
	if configuredDirectory == "" {
		return nil, apperrors.New(apperrors.KindInvalidRequest, "configured directory cannot be empty")
	}

	return &PathValidator{
		configuredDirectory: configuredDirectory,
	}, nil
}

// Directory returns the configured directory
func (v *PathValidator) Directory() string {
	return v.configuredDirectory
}

// Resolve returns the absolute form of path. Relative paths are taken from
// the configured directory. The result must lie inside that directory, also
// after following symlinks.
func (v *PathValidator) Resolve(path string) (string, error) {
	path = strings.ReplaceAll(path, "\x00", "")
	if path == "" {
		return "", apperrors.New(apperrors.KindInvalidRequest, "path cannot be empty")
	}

	if !filepath.IsAbs(path) {
		path = filepath.Join(v.configuredDirectory, path)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", apperrors.Wrap(apperrors.KindInvalidRequest, err, "failed to resolve path")
	}

	within, err := v.IsPathWithinDirectory(absPath)
	if err != nil {
		return "", err
	}
	if !within {
		return "", apperrors.Newf(apperrors.KindInvalidRequest, "path is outside configured directory: %s", path)
	}

	return absPath, nil
}

// IsPathWithinDirectory checks if a path is within the configured directory
func (v *PathValidator) IsPathWithinDirectory(path string) (bool, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false, apperrors.Wrap(apperrors.KindInvalidRequest, err, "failed to resolve path")
	}

	absDir, err := filepath.Abs(v.configuredDirectory)
	if err != nil {
		return false, apperrors.Wrap(apperrors.KindInternal, err, "failed to resolve configured directory")
	}

	cleanPath := filepath.Clean(absPath)
	cleanDir := filepath.Clean(absDir)

	// A symlink may point out of the directory even when its own path does not
	realPath := cleanPath
	if info, err := os.Lstat(cleanPath); err == nil && info.Mode()&os.ModeSymlink != 0 {
		resolved, err := filepath.EvalSymlinks(cleanPath)
		if err != nil {
			return false, nil
		}
		realPath = resolved
	}

	realDir := cleanDir
	if resolved, err := filepath.EvalSymlinks(cleanDir); err == nil {
		realDir = resolved
	}

	pathOk := within(cleanPath, cleanDir) || within(cleanPath, realDir)
	realPathOk := within(realPath, cleanDir) || within(realPath, realDir)

	return pathOk && realPathOk, nil
}

func within(path, dir string) bool {
	if path == dir {
		return true
	}

	if !strings.HasSuffix(dir, string(filepath.Separator)) {
		dir += string(filepath.Separator)
	}

	return strings.HasPrefix(path, dir)
}
