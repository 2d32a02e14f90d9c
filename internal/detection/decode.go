package detection

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Decode parses one feed payload. An empty payload, "null" or a frame with no
// detections list all decode to an empty Frame.
func Decode(payload []byte) (Frame, error) {
	var f Frame
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return f, nil
	}
	if err := json.Unmarshal(trimmed, &f); err != nil {
		return Frame{}, fmt.Errorf("failed to decode detection frame: %w", err)
	}
	return f, nil
}

// Encode renders a frame in the feed wire format.
func Encode(f Frame) ([]byte, error) {
	return json.Marshal(f)
}
