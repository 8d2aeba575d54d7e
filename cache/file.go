package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jonwraymond/vaultboot/errdefs"
)

// DefaultFilename is the cache file used when no path is configured.
const DefaultFilename = ".sec.json"

// FilenameEnvVar overrides the cache file location.
const FilenameEnvVar = "VAULT_CACHE_FILENAME"

// FileConfig configures the file-backed store.
type FileConfig struct {
	// Path is the cache file. If empty, VAULT_CACHE_FILENAME is used,
	// falling back to ".sec.json" in the working directory.
	Path string

	// Mode is the permission used when writing the file.
	// Default: 0600
	Mode os.FileMode
}

// FileStore keeps snapshots in a single JSON file.
//
// Create rewrites the whole file with only the given application's snapshot.
// Writes are not atomic; an interrupted write can leave a corrupt file.
type FileStore struct {
	path string
	mode os.FileMode
}

// NewFileStore creates a file-backed store.
func NewFileStore(config FileConfig) *FileStore {
	path := config.Path
	if path == "" {
		path = os.Getenv(FilenameEnvVar)
	}
	if path == "" {
		path = DefaultFilename
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	if config.Mode == 0 {
		config.Mode = 0o600
	}

	return &FileStore{
		path: path,
		mode: config.Mode,
	}
}

// Path returns the resolved cache file path.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the snapshot for appName from disk.
func (s *FileStore) Load(_ context.Context, appName string) (map[string]string, error) {
	if err := ValidateAppName(appName); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path) // #nosec G304 - cache path is operator supplied
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", errdefs.ErrCache, s.path, err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", errdefs.ErrCache, s.path, err)
	}

	e, ok := doc[appName]
	if !ok {
		return nil, fmt.Errorf("%w: no snapshot for %q in %s", errdefs.ErrCache, appName, s.path)
	}

	return Decode(e.Sec)
}

// Create writes the snapshot for appName to disk, replacing the file.
func (s *FileStore) Create(_ context.Context, appName string, configuration map[string]string) error {
	if err := ValidateAppName(appName); err != nil {
		return err
	}

	encoded, err := Encode(configuration)
	if err != nil {
		return err
	}

	data, err := json.Marshal(document{appName: {Sec: encoded}})
	if err != nil {
		return fmt.Errorf("%w: encode document: %v", errdefs.ErrCache, err)
	}

	if err := os.WriteFile(s.path, data, s.mode); err != nil {
		return fmt.Errorf("%w: write %s: %v", errdefs.ErrCache, s.path, err)
	}
	return nil
}

// Ensure FileStore implements Store
var _ Store = (*FileStore)(nil)
