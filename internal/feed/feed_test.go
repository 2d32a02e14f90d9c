package feed

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/intersection/internal/fsutil"
	"github.com/banshee-data/intersection/internal/monitoring"
	"github.com/banshee-data/intersection/internal/serialmux"
	"github.com/banshee-data/intersection/internal/timeutil"
)

func init() {
	monitoring.SetLogger(nil)
}

// collector records payloads handed to a Handler.
type collector struct {
	payloads []string
}

func (c *collector) handle(_ context.Context, payload []byte) {
	c.payloads = append(c.payloads, string(payload))
}

func TestParse(t *testing.T) {
	tests := []struct {
		spec    string
		want    string
		wantErr bool
	}{
		{spec: "file:/tmp/frames.jsonl", want: "file /tmp/frames.jsonl"},
		{spec: "pcap:capture.pcap", want: "pcap capture.pcap"},
		{spec: "udp:127.0.0.1:0"},
		{spec: "nonsense", wantErr: true},
		{spec: "file:", wantErr: true},
		{spec: "mqtt:broker:1883", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			src, err := Parse(tt.spec, Options{})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.want != "" {
				assert.Equal(t, tt.want, src.String())
			}
			if u, ok := src.(*UDPSource); ok {
				u.conn.Close()
			}
		})
	}
}

func TestParse_Serial(t *testing.T) {
	orig := serialmux.Open
	defer func() { serialmux.Open = orig }()
	var gotPath string
	serialmux.Open = func(path string, _ serialmux.PortOptions) (serialmux.SerialPorter, error) {
		gotPath = path
		return serialmux.NewTestableSerialPort(), nil
	}

	src, err := Parse("serial:/dev/ttyACM0", Options{})
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyACM0", gotPath)
	ss, ok := src.(*SerialSource)
	require.True(t, ok)
	assert.NoError(t, ss.Mux().Close())
}

func TestFileSource(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	require.NoError(t, fs.WriteFile("/frames.jsonl", []byte(`{"frame":1,"detections":[]}

{"frame":2}
  {"frame":3}
`), 0o644))
	clock := timeutil.NewMockClock(time.Unix(0, 0))

	src := &FileSource{FS: fs, Path: "/frames.jsonl", Interval: 40 * time.Millisecond, Clock: clock}
	var c collector
	require.NoError(t, src.Run(context.Background(), c.handle))

	assert.Equal(t, []string{`{"frame":1,"detections":[]}`, `{"frame":2}`, `{"frame":3}`}, c.payloads)
	assert.Equal(t, []time.Duration{40 * time.Millisecond, 40 * time.Millisecond}, clock.Sleeps())
}

func TestFileSource_Missing(t *testing.T) {
	src := &FileSource{FS: fsutil.NewMemoryFileSystem(), Path: "/nope.jsonl"}
	assert.Error(t, src.Run(context.Background(), func(context.Context, []byte) {}))
}

func TestFileSource_Cancelled(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	require.NoError(t, fs.WriteFile("/f", []byte("{}\n{}\n"), 0o644))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := (&FileSource{FS: fs, Path: "/f"}).Run(ctx, func(context.Context, []byte) {})
	assert.ErrorIs(t, err, context.Canceled)
}
