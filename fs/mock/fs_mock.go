package mock

import (
	"os"

	"github.com/bmatcuk/doublestar/v4"
)

// MockFileSystem implements the fs.FileSystem interface for testing.
// Files is a flat path -> content map; WriteErr and ReadErr force
// failures for error-path tests.
type MockFileSystem struct {
	Files    map[string][]byte
	WriteErr error
	ReadErr  error
	Renamed  map[string]string
}

func NewMockFileSystem() *MockFileSystem {
	return &MockFileSystem{
		Files:   make(map[string][]byte),
		Renamed: make(map[string]string),
	}
}

func (m *MockFileSystem) ReadFile(filename string) ([]byte, error) {
	if m.ReadErr != nil {
		return nil, m.ReadErr
	}
	if content, ok := m.Files[filename]; ok {
		return content, nil
	}
	return nil, os.ErrNotExist
}

func (m *MockFileSystem) WriteFile(filename string, data []byte, perm os.FileMode) error {
	if m.WriteErr != nil {
		return m.WriteErr
	}
	m.Files[filename] = data
	return nil
}

func (m *MockFileSystem) Rename(oldpath, newpath string) error {
	content, ok := m.Files[oldpath]
	if !ok {
		return os.ErrNotExist
	}
	m.Files[newpath] = content
	delete(m.Files, oldpath)
	m.Renamed[oldpath] = newpath
	return nil
}

func (m *MockFileSystem) Glob(pattern string) ([]string, error) {
	var matches []string
	for filename := range m.Files {
		matched, err := doublestar.Match(pattern, filename)
		if err != nil {
			return nil, err
		}
		if matched {
			matches = append(matches, filename)
		}
	}
	return matches, nil
}
