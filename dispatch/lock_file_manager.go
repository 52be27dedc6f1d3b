package dispatch

import (
	"encoding/json"
	"os"
	"sync"

	"github.com/bsmithyman/galoshes/fs"
)

// LockFile records the outcome of previous runs: per-target product
// fingerprints for up-to-date skips, and the last version published to
// each artifact index.
type LockFile struct {
	Fingerprints map[string]string `json:"fingerprints"`
	Published    map[string]string `json:"published"`
}

type LockFileManager interface {
	Load() error
	Save() error
	Fingerprint(name string) (string, bool)
	SetFingerprint(name, key string)
	PublishedVersion(index string) (string, bool)
	RecordPublished(index, version string)
}

type lockFileManager struct {
	path string
	fs   fs.FileSystem
	data LockFile
	mu   sync.Mutex
}

func NewLockFileManager(fsys fs.FileSystem, path string) LockFileManager {
	return &lockFileManager{
		path: path,
		fs:   fsys,
		data: LockFile{
			Fingerprints: make(map[string]string),
			Published:    make(map[string]string),
		},
	}
}

func (lm *lockFileManager) Load() error {
	data, err := lm.fs.ReadFile(lm.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // It's okay if the lock file doesn't exist yet
		}
		return err
	}

	lm.mu.Lock()
	defer lm.mu.Unlock()
	if err := json.Unmarshal(data, &lm.data); err != nil {
		return err
	}
	if lm.data.Fingerprints == nil {
		lm.data.Fingerprints = make(map[string]string)
	}
	if lm.data.Published == nil {
		lm.data.Published = make(map[string]string)
	}
	return nil
}

// Save writes through a temp file and renames it into place so a
// failed run never leaves a truncated lock file.
func (lm *lockFileManager) Save() error {
	lm.mu.Lock()
	data, err := json.MarshalIndent(lm.data, "", "  ")
	lm.mu.Unlock()
	if err != nil {
		return err
	}

	tempFile := lm.path + ".tmp"
	if err := lm.fs.WriteFile(tempFile, data, 0644); err != nil {
		return err
	}
	return lm.fs.Rename(tempFile, lm.path)
}

func (lm *lockFileManager) Fingerprint(name string) (string, bool) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	key, ok := lm.data.Fingerprints[name]
	return key, ok
}

func (lm *lockFileManager) SetFingerprint(name, key string) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	lm.data.Fingerprints[name] = key
}

func (lm *lockFileManager) PublishedVersion(index string) (string, bool) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	version, ok := lm.data.Published[index]
	return version, ok
}

func (lm *lockFileManager) RecordPublished(index, version string) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	lm.data.Published[index] = version
}
