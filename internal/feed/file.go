package feed

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/banshee-data/intersection/internal/fsutil"
	"github.com/banshee-data/intersection/internal/timeutil"
)

// FileSource replays a JSON-lines file, one frame per line. It backs -dev
// runs without a camera.
type FileSource struct {
	FS       fsutil.FileSystem
	Path     string
	Interval time.Duration
	Clock    timeutil.Clock
}

func (f *FileSource) String() string { return "file " + f.Path }

func (f *FileSource) Run(ctx context.Context, handle Handler) error {
	fsys := f.FS
	if fsys == nil {
		fsys = fsutil.OSFileSystem{}
	}
	clock := f.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}

	data, err := fsys.ReadFile(f.Path)
	if err != nil {
		return fmt.Errorf("failed to read frames file: %w", err)
	}

	scan := bufio.NewScanner(bytes.NewReader(data))
	scan.Buffer(make([]byte, 0, 64*1024), 1<<20)
	first := true
	for scan.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := bytes.TrimSpace(scan.Bytes())
		if len(line) == 0 {
			continue
		}
		if !first && f.Interval > 0 {
			clock.Sleep(f.Interval)
		}
		first = false
		handle(ctx, line)
	}
	return scan.Err()
}
