package status

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/banshee-data/intersection/internal/fsutil"
)

// DefaultPath is where the display expects the status file when no path is
// configured.
const DefaultPath = "/var/lib/intersection/traffic_status.json"

// FileSink writes each record as a JSON object to a fixed path, replacing the
// previous file through a rename.
type FileSink struct {
	fs   fsutil.FileSystem
	path string
}

// NewFileSink creates a FileSink. A nil fs uses the real filesystem.
func NewFileSink(fs fsutil.FileSystem, path string) *FileSink {
	if fs == nil {
		fs = fsutil.OSFileSystem{}
	}
	return &FileSink{fs: fs, path: path}
}

// Path returns the configured status file location.
func (s *FileSink) Path() string { return s.path }

func (s *FileSink) Write(ctx context.Context, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode status: %w", err)
	}
	if err := fsutil.WriteFileAtomic(s.fs, s.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write status file: %w", err)
	}
	return nil
}

// ReadFile loads the record currently stored at path.
func ReadFile(fs fsutil.FileSystem, path string) (Record, error) {
	var rec Record
	data, err := fs.ReadFile(path)
	if err != nil {
		return rec, err
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		return rec, fmt.Errorf("failed to parse status file %s: %w", path, err)
	}
	return rec, nil
}
