package fs

import (
	"os"

	"github.com/bmatcuk/doublestar/v4"
)

// FileSystem interface for dependency injection and improved testability
type FileSystem interface {
	ReadFile(filename string) ([]byte, error)
	WriteFile(filename string, data []byte, perm os.FileMode) error
	Rename(oldpath, newpath string) error
	Glob(pattern string) ([]string, error)
}

// RealFileSystem implements FileSystem interface using actual OS calls
type RealFileSystem struct{}

func (RealFileSystem) ReadFile(filename string) ([]byte, error) { return os.ReadFile(filename) }
func (RealFileSystem) WriteFile(filename string, data []byte, perm os.FileMode) error {
	return os.WriteFile(filename, data, perm)
}
func (RealFileSystem) Rename(oldpath, newpath string) error { return os.Rename(oldpath, newpath) }
func (RealFileSystem) Glob(pattern string) ([]string, error) {
	return doublestar.FilepathGlob(pattern)
}
