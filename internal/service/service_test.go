package service

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/liliang-cn/askstream/internal/config"
	"github.com/liliang-cn/askstream/internal/domain"
	"github.com/liliang-cn/askstream/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var refundScript = config.ResponderConfig{
	ChunkWords: 2,
	Fallback:   "No idea.",
	Scripts: []config.Script{{
		Keywords: []string{"refund"},
		Answer:   "Refunds are available within 30 days [1].",
		Sources:  []config.ScriptSource{{Title: "Refund policy", URL: "https://example.com/refunds"}},
		Steps:    []config.ScriptStep{{Type: "search", Title: "Searching documents"}},
	}},
}

type fixture struct {
	stream *StreamService
	widget *WidgetService
	convos *repository.ConversationRepository
}

func newFixture(t *testing.T, responder Responder) *fixture {
	t.Helper()
	db, err := repository.NewDB(filepath.Join(t.TempDir(), "askstream.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	sites := repository.NewSiteRepository(db)
	convos := repository.NewConversationRepository(db)
	widget := NewWidgetService("http://localhost:8080", sites)
	require.NoError(t, widget.RegisterSites([]domain.Site{{Token: "tok", Name: "Docs"}}))

	return &fixture{
		stream: NewStreamService(sites, convos, responder, nil, nil),
		widget: widget,
		convos: convos,
	}
}

func collect(t *testing.T, f *fixture, token string, req domain.ChatRequest) []domain.Frame {
	t.Helper()
	var frames []domain.Frame
	err := f.stream.Stream(context.Background(), token, &req, func(frame domain.Frame) error {
		frames = append(frames, frame)
		return nil
	})
	require.NoError(t, err)
	return frames
}

func TestChunkWords(t *testing.T) {
	text := "Refunds are  available within\n30 days."
	for n := 1; n <= 5; n++ {
		chunks := chunkWords(text, n)
		assert.Equal(t, text, strings.Join(chunks, ""))
	}
	assert.Equal(t, []string{"a b ", "c"}, chunkWords("a b c", 2))
	assert.Nil(t, chunkWords("", 3))
}

func TestScriptedResponder_Match(t *testing.T) {
	r := NewScriptedResponder(refundScript)

	_, ok := r.Match("How do I get a REFUND?")
	assert.True(t, ok)

	_, ok = r.Match("shipping times")
	assert.False(t, ok)
}

func TestStreamService_ScriptedTurn(t *testing.T) {
	f := newFixture(t, NewScriptedResponder(refundScript))

	frames := collect(t, f, "tok", domain.ChatRequest{Message: "What is the refund policy?"})

	var types []domain.FrameType
	var text strings.Builder
	for _, fr := range frames {
		types = append(types, fr.Type)
		if fr.Type == domain.FrameText {
			text.WriteString(fr.Content)
		}
	}
	assert.Equal(t, []domain.FrameType{
		domain.FrameStatus,
		domain.FrameReasoning,
		domain.FrameSources,
		domain.FrameReasoning,
		domain.FrameStatus,
		domain.FrameText, domain.FrameText, domain.FrameText, domain.FrameText,
		domain.FrameDone,
	}, types)
	assert.Equal(t, "Refunds are available within 30 days [1].", text.String())

	assert.Equal(t, domain.StepInProgress, frames[1].Step.Status)
	assert.Equal(t, domain.StepCompleted, frames[3].Step.Status)
	assert.Equal(t, frames[1].Step.ID, frames[3].Step.ID)
	assert.Equal(t, 1, frames[4].SourcesCount)

	done := frames[len(frames)-1]
	require.NotEmpty(t, done.ConversationID)

	messages, err := f.stream.History(done.ConversationID)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "What is the refund policy?", messages[0].Content)
	assert.Equal(t, text.String(), messages[1].Content)
	require.Len(t, messages[1].Citations, 1)
	assert.Equal(t, "Refund policy", messages[1].Citations[0].Title)

	// continuing the conversation keeps the identifier
	next := collect(t, f, "tok", domain.ChatRequest{Message: "and exchanges?", ConversationID: done.ConversationID})
	assert.Equal(t, done.ConversationID, next[len(next)-1].ConversationID)
	messages, err = f.stream.History(done.ConversationID)
	require.NoError(t, err)
	assert.Len(t, messages, 4)
	assert.Equal(t, "No idea.", messages[3].Content)
}

func TestStreamService_UnknownConversationStartsNew(t *testing.T) {
	f := newFixture(t, NewScriptedResponder(refundScript))

	frames := collect(t, f, "tok", domain.ChatRequest{Message: "hello", ConversationID: "stale"})
	done := frames[len(frames)-1]
	assert.NotEqual(t, "stale", done.ConversationID)
	assert.NotEmpty(t, done.ConversationID)
}

type failingResponder struct{}

func (failingResponder) Respond(ctx context.Context, question string, emit Emit) error {
	if err := emit(domain.TextFrame("partial")); err != nil {
		return err
	}
	return errors.New("model overloaded")
}

func TestStreamService_ResponderErrorBecomesErrorFrame(t *testing.T) {
	f := newFixture(t, failingResponder{})

	frames := collect(t, f, "tok", domain.ChatRequest{Message: "hello"})
	require.Len(t, frames, 2)
	assert.Equal(t, domain.FrameError, frames[1].Type)
	assert.Equal(t, "model overloaded", frames[1].Message)

	turns, err := f.convos.CountTurns()
	require.NoError(t, err)
	assert.Equal(t, 1, turns)
}

func TestStreamService_Cancelled(t *testing.T) {
	f := newFixture(t, NewScriptedResponder(refundScript))
	ctx, cancel := context.WithCancel(context.Background())

	var frames []domain.Frame
	err := f.stream.Stream(ctx, "tok", &domain.ChatRequest{Message: "refund"}, func(frame domain.Frame) error {
		frames = append(frames, frame)
		if frame.Type == domain.FrameSources {
			cancel()
		}
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	for _, fr := range frames {
		assert.False(t, fr.IsTerminal())
	}
}

func TestStreamService_Validation(t *testing.T) {
	f := newFixture(t, NewScriptedResponder(refundScript))
	emit := func(domain.Frame) error { return nil }

	err := f.stream.Stream(context.Background(), "tok", &domain.ChatRequest{Message: "  "}, emit)
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)

	err = f.stream.Stream(context.Background(), "unknown", &domain.ChatRequest{Message: "hi"}, emit)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestWidgetService(t *testing.T) {
	f := newFixture(t, failingResponder{})

	resp, err := f.widget.GetWidgetConfig(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, "Docs", resp.Name)
	assert.Equal(t, "http://localhost:8080", resp.BaseURL)
	assert.Equal(t, "light", resp.Config.Theme)

	_, err = f.widget.GetWidgetConfig(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	ok, err := f.widget.SiteExists("tok")
	require.NoError(t, err)
	assert.True(t, ok)
}
