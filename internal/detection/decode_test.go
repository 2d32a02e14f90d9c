package detection

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    Frame
		wantErr bool
	}{
		{
			name:    "full frame",
			payload: `{"frame":7,"detections":[{"label":"car","confidence":0.82,"bbox":{"xmin":0.1,"ymin":0.6,"width":0.2,"height":0.1}}]}`,
			want: Frame{Seq: 7, Detections: []Detection{
				{Label: "car", Confidence: 0.82, BBox: BBox{XMin: 0.1, YMin: 0.6, Width: 0.2, Height: 0.1}},
			}},
		},
		{name: "empty payload", payload: "", want: Frame{}},
		{name: "whitespace payload", payload: " \r\n", want: Frame{}},
		{name: "null payload", payload: "null", want: Frame{}},
		{name: "no detections key", payload: `{"frame":3}`, want: Frame{Seq: 3}},
		{name: "null detections", payload: `{"frame":4,"detections":null}`, want: Frame{Seq: 4}},
		{name: "garbage", payload: `{"frame":`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode([]byte(tt.payload))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Decode mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEncodeDecodeFrame(t *testing.T) {
	in := Frame{Seq: 11, Detections: []Detection{{Label: "bus", Confidence: 0.5, BBox: BBox{XMin: 0.4, YMin: 0.4, Width: 0.2, Height: 0.2}}}}
	data, err := Encode(in)
	require.NoError(t, err)
	out, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}
