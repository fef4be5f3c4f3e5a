package domain

// FrameType discriminates wire frames
type FrameType string

const (
	FrameText      FrameType = "text"
	FrameStatus    FrameType = "status"
	FrameSources   FrameType = "sources"
	FrameReasoning FrameType = "reasoning"
	FrameDone      FrameType = "done"
	FrameError     FrameType = "error"
)

// Known reports whether the frame type is part of the protocol
func (t FrameType) Known() bool {
	switch t {
	case FrameText, FrameStatus, FrameSources, FrameReasoning, FrameDone, FrameError:
		return true
	}
	return false
}

// IsTerminal reports whether a frame of this type ends a turn
func (t FrameType) IsTerminal() bool {
	return t == FrameDone || t == FrameError
}

// Frame is one decoded `data: {...}` line of the chat stream.
// Only the fields relevant to Type are populated.
type Frame struct {
	Type FrameType `json:"type"`

	// text
	Content string `json:"content,omitempty"`

	// status
	Status       StatusKind `json:"status,omitempty"`
	SourcesCount int        `json:"sourcesCount,omitempty"`

	// status, error
	Message string `json:"message,omitempty"`

	// sources
	Sources []Citation `json:"sources,omitempty"`

	// reasoning
	Step *ReasoningStep `json:"step,omitempty"`

	// done
	ConversationID string     `json:"conversationId,omitempty"`
	Citations      []Citation `json:"citations,omitempty"`
}

// IsTerminal reports whether the frame ends a turn
func (f Frame) IsTerminal() bool {
	return f.Type.IsTerminal()
}

// TextFrame builds a text delta frame
func TextFrame(content string) Frame {
	return Frame{Type: FrameText, Content: content}
}

// StatusFrame builds a status transition frame
func StatusFrame(status StatusKind, message string, sourcesCount int) Frame {
	return Frame{Type: FrameStatus, Status: status, Message: message, SourcesCount: sourcesCount}
}

// SourcesFrame builds a citation payload frame
func SourcesFrame(sources []Citation) Frame {
	return Frame{Type: FrameSources, Sources: sources}
}

// ReasoningFrame builds a reasoning step frame
func ReasoningFrame(step ReasoningStep) Frame {
	return Frame{Type: FrameReasoning, Step: &step}
}

// DoneFrame builds a completion frame
func DoneFrame(conversationID string) Frame {
	return Frame{Type: FrameDone, ConversationID: conversationID}
}

// ErrorFrame builds a mid-stream failure frame
func ErrorFrame(message string) Frame {
	return Frame{Type: FrameError, Message: message}
}
