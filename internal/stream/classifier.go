package stream

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/liliang-cn/askstream/internal/domain"
)

// DataPrefix marks a protocol frame line
const DataPrefix = "data: "

// ErrMalformedFrame wraps payloads that cannot be decoded
var ErrMalformedFrame = errors.New("malformed frame")

// Classify inspects one decoded line.
//
// It returns ok=false with a nil error for lines that are not frames (blank
// separators, `event:` lines, comments) and for frames of an unknown type.
// A `data: ` line whose payload cannot be decoded returns an error wrapping
// ErrMalformedFrame; callers drop it and keep reading.
func Classify(line string) (domain.Frame, bool, error) {
	if !strings.HasPrefix(line, DataPrefix) {
		return domain.Frame{}, false, nil
	}

	payload := line[len(DataPrefix):]

	var frame domain.Frame
	if err := json.Unmarshal([]byte(payload), &frame); err != nil {
		return domain.Frame{}, false, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}

	if !frame.Type.Known() {
		return domain.Frame{}, false, nil
	}

	if frame.Type == domain.FrameReasoning && (frame.Step == nil || frame.Step.ID == "") {
		return domain.Frame{}, false, fmt.Errorf("%w: reasoning frame without step id", ErrMalformedFrame)
	}

	return frame, true, nil
}
