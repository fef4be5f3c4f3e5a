package stream

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/liliang-cn/askstream/internal/domain"
)

// Encode writes frame as a `data: ` line followed by a blank separator line
func Encode(w io.Writer, frame domain.Frame) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("failed to marshal frame: %w", err)
	}
	if _, err := fmt.Fprintf(w, "%s%s\n\n", DataPrefix, data); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}
	return nil
}
