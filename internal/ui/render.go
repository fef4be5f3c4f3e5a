package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/liliang-cn/askstream/internal/chat"
	"github.com/liliang-cn/askstream/internal/domain"
)

// FormatCitations renders the sources list shown under an answer
func FormatCitations(citations []domain.Citation) string {
	if len(citations) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(Styles.Heading.Render("Sources"))
	b.WriteByte('\n')
	for _, c := range citations {
		fmt.Fprintf(&b, "  [%d] %s", c.Index, c.Title)
		switch {
		case c.Navigable():
			b.WriteString(" " + Styles.Link.Render(*c.URL))
		case c.URL != nil && *c.URL != "":
			b.WriteString(" " + Styles.Muted.Render("(uploaded document)"))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// FormatSteps renders the reasoning steps of an answer
func FormatSteps(steps []domain.ReasoningStep) string {
	if len(steps) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(Styles.Heading.Render("Reasoning"))
	b.WriteByte('\n')
	for _, s := range steps {
		fmt.Fprintf(&b, "  %s %s", stepIcon(s.Status), s.Title)
		if s.Summary != "" {
			b.WriteString(" " + Styles.Muted.Render(s.Summary))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func stepIcon(status domain.StepStatus) string {
	switch status {
	case domain.StepCompleted:
		return Styles.StepDone.Render("✓")
	case domain.StepError:
		return Styles.StepFail.Render("✗")
	case domain.StepInProgress:
		return Styles.StepOpen.Render("…")
	default:
		return Styles.Muted.Render("○")
	}
}

// Renderer prints the open assistant message as it streams. Observe is
// meant to be registered with Client.Subscribe.
type Renderer struct {
	w             io.Writer
	showReasoning bool

	mu          sync.Mutex
	assistantID string
	printed     int
	lastStatus  domain.StatusKind
}

// NewRenderer creates a renderer writing to w
func NewRenderer(w io.Writer, showReasoning bool) *Renderer {
	return &Renderer{w: w, showReasoning: showReasoning}
}

// Observe prints whatever the state adds to the open message
func (r *Renderer) Observe(s chat.State) {
	r.mu.Lock()
	defer r.mu.Unlock()

	msg, ok := s.OpenMessage()
	if !ok {
		return
	}
	if msg.ID != r.assistantID {
		r.assistantID = msg.ID
		r.printed = 0
		r.lastStatus = domain.StatusIdle
	}

	// Status lines only make sense before the answer starts
	if r.printed == 0 && s.Status.Status != r.lastStatus {
		r.lastStatus = s.Status.Status
		if line := statusLine(s.Status); line != "" {
			fmt.Fprintln(r.w, Styles.Status.Render(line))
		}
	}

	if len(msg.Content) > r.printed {
		fmt.Fprint(r.w, msg.Content[r.printed:])
		r.printed = len(msg.Content)
	}
}

// Finish prints the end of a turn
func (r *Renderer) Finish(result chat.TurnResult) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.printed > 0 {
		fmt.Fprintln(r.w)
	}
	r.assistantID = ""
	r.printed = 0

	switch result.Outcome {
	case chat.OutcomeCancelled:
		fmt.Fprintln(r.w, Styles.Muted.Render("(stopped)"))
	case chat.OutcomeFailed:
		fmt.Fprintln(r.w, Styles.Error.Render("✗ "+chat.ApologyMessage))
		if result.Err != nil {
			fmt.Fprintln(r.w, Styles.Muted.Render(result.Err.Error()))
		}
	default:
		if result.Message.Content == "" {
			fmt.Fprintln(r.w, Styles.Muted.Render("(empty answer)"))
		}
		if r.showReasoning {
			fmt.Fprint(r.w, FormatSteps(result.Message.ReasoningSteps))
		}
		fmt.Fprint(r.w, FormatCitations(result.Message.Citations))
	}
}

func statusLine(s domain.ChatStatus) string {
	switch s.Status {
	case domain.StatusSearching, domain.StatusGenerating:
		line := s.Message
		if line == "" {
			line = string(s.Status) + "..."
		}
		if s.SourcesCount > 0 {
			line += fmt.Sprintf(" (%d sources)", s.SourcesCount)
		}
		return line
	}
	return ""
}
