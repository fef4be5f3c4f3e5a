package chat

import (
	"time"

	"github.com/liliang-cn/askstream/internal/domain"
)

// ApologyMessage replaces the open assistant message when a turn fails
const ApologyMessage = "Sorry, something went wrong. Please try again."

// Outcome is how a turn ended
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeFailed    Outcome = "failed"
	OutcomeCancelled Outcome = "cancelled"
)

// State is a snapshot of the conversation as seen by a UI.
//
// IsLoading is true from the moment a message is sent until the stream
// response is open; IsStreaming is true while frames are being read.
type State struct {
	Messages       []domain.ChatMessage
	Status         domain.ChatStatus
	IsLoading      bool
	IsStreaming    bool
	Error          string
	ConversationID string

	// LiveSteps mirrors the reasoning steps of the open turn so progress can
	// be shown before the answer is finalized.
	LiveSteps []domain.ReasoningStep

	turn turn
}

// turn holds the per-request buffers. It is replaced, never shared, between
// turns.
type turn struct {
	assistantID string
	steps       *StepTable
	citations   CitationBuffer
}

func (t turn) open() bool {
	return t.assistantID != ""
}

// InitialState returns an empty conversation continuing conversationID
func InitialState(conversationID string) State {
	return State{
		Status:         domain.IdleStatus(),
		ConversationID: conversationID,
	}
}

// Busy reports whether a turn is in flight
func (s State) Busy() bool {
	return s.IsLoading || s.IsStreaming
}

// OpenMessage returns the assistant message currently being streamed
func (s State) OpenMessage() (domain.ChatMessage, bool) {
	if i := s.openIndex(); i >= 0 {
		return s.Messages[i], true
	}
	return domain.ChatMessage{}, false
}

func (s State) openIndex() int {
	if !s.turn.open() {
		return -1
	}
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].ID == s.turn.assistantID {
			return i
		}
	}
	return -1
}

// BeginTurn appends the user message and an empty streaming assistant
// message, and resets the per-turn buffers.
func BeginTurn(s State, userID, assistantID, text string, now time.Time) State {
	msgs := make([]domain.ChatMessage, len(s.Messages), len(s.Messages)+2)
	copy(msgs, s.Messages)
	msgs = append(msgs,
		domain.ChatMessage{ID: userID, Role: domain.RoleUser, Content: text, CreatedAt: now},
		domain.ChatMessage{ID: assistantID, Role: domain.RoleAssistant, IsStreaming: true, CreatedAt: now},
	)

	s.Messages = msgs
	s.Status = domain.IdleStatus()
	s.IsLoading = true
	s.IsStreaming = false
	s.Error = ""
	s.LiveSteps = nil
	s.turn = turn{assistantID: assistantID, steps: NewStepTable()}
	return s
}

// StreamOpened records that the response body is being read
func StreamOpened(s State) State {
	if !s.turn.open() {
		return s
	}
	s.IsLoading = false
	s.IsStreaming = true
	return s
}

// Apply is the pure transition for one frame. The input state is never
// modified. Frames arriving while no turn is open are ignored.
func Apply(s State, frame domain.Frame) State {
	idx := s.openIndex()
	if idx < 0 {
		return s
	}

	switch frame.Type {
	case domain.FrameText:
		if frame.Content == "" {
			return s
		}
		s.Messages = withMessage(s.Messages, idx, func(m *domain.ChatMessage) {
			m.Content += frame.Content
		})

	case domain.FrameSources:
		s.turn.citations = s.turn.citations.Replace(frame.Sources)

	case domain.FrameReasoning:
		if frame.Step == nil {
			return s
		}
		steps := s.turn.steps.Clone()
		steps.Upsert(*frame.Step)
		s.turn.steps = steps
		s.LiveSteps = steps.List()

	case domain.FrameDone:
		s = finalize(s, idx, frame)

	case domain.FrameError:
		return Fail(s, errorReason(frame))
	}

	s.Status = nextStatus(s.Status, frame)
	return s
}

// finalize closes the open message and attaches citations and reasoning in
// the same update.
func finalize(s State, idx int, frame domain.Frame) State {
	citations := s.turn.citations.Release()
	if len(citations) == 0 && len(frame.Citations) > 0 {
		citations = cloneCitations(frame.Citations)
	}
	steps := s.turn.steps.List()

	s.Messages = withMessage(s.Messages, idx, func(m *domain.ChatMessage) {
		m.IsStreaming = false
		m.Citations = citations
		if len(steps) > 0 {
			m.ReasoningSteps = steps
		}
	})
	if frame.ConversationID != "" {
		s.ConversationID = frame.ConversationID
	}
	return closeTurn(s)
}

func errorReason(frame domain.Frame) string {
	if frame.Message == "" {
		return "stream reported an error"
	}
	return frame.Message
}

// Fail replaces the open message with the apology text and records reason
func Fail(s State, reason string) State {
	if idx := s.openIndex(); idx >= 0 {
		s.Messages = withMessage(s.Messages, idx, func(m *domain.ChatMessage) {
			m.Content = ApologyMessage
			m.IsStreaming = false
		})
	}
	s.Error = reason
	return closeTurn(s)
}

// Cancel closes the open message exactly as last observed. No error is
// recorded and no citations are attached.
func Cancel(s State) State {
	if idx := s.openIndex(); idx >= 0 {
		s.Messages = withMessage(s.Messages, idx, func(m *domain.ChatMessage) {
			m.IsStreaming = false
		})
	}
	return closeTurn(s)
}

func closeTurn(s State) State {
	s.Status = domain.IdleStatus()
	s.IsLoading = false
	s.IsStreaming = false
	s.LiveSteps = nil
	s.turn = turn{}
	return s
}

// withMessage returns a copy of msgs with msgs[idx] modified by fn
func withMessage(msgs []domain.ChatMessage, idx int, fn func(*domain.ChatMessage)) []domain.ChatMessage {
	out := make([]domain.ChatMessage, len(msgs))
	copy(out, msgs)
	fn(&out[idx])
	return out
}

// Clone returns a deep copy safe to hand to observers
func (s State) Clone() State {
	c := s
	if s.Messages != nil {
		c.Messages = make([]domain.ChatMessage, len(s.Messages))
		for i, m := range s.Messages {
			m.Citations = cloneCitations(m.Citations)
			m.ReasoningSteps = cloneSteps(m.ReasoningSteps)
			c.Messages[i] = m
		}
	}
	c.LiveSteps = cloneSteps(s.LiveSteps)
	return c
}

func cloneSteps(in []domain.ReasoningStep) []domain.ReasoningStep {
	if in == nil {
		return nil
	}
	out := make([]domain.ReasoningStep, len(in))
	copy(out, in)
	return out
}
