package stream

import (
	"testing"

	"github.com/liliang-cn/askstream/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		line   string
		wantOK bool
		want   domain.Frame
	}{
		{
			name:   "text",
			line:   `data: {"type":"text","content":"Hello"}`,
			wantOK: true,
			want:   domain.TextFrame("Hello"),
		},
		{
			name:   "status",
			line:   `data: {"type":"status","status":"searching","message":"Searching knowledge base...","sourcesCount":3}`,
			wantOK: true,
			want:   domain.StatusFrame(domain.StatusSearching, "Searching knowledge base...", 3),
		},
		{
			name:   "done",
			line:   `data: {"type":"done","conversationId":"conv_123"}`,
			wantOK: true,
			want:   domain.DoneFrame("conv_123"),
		},
		{
			name:   "error",
			line:   `data: {"type":"error","message":"boom"}`,
			wantOK: true,
			want:   domain.ErrorFrame("boom"),
		},
		{
			name:   "trailing carriage return is whitespace",
			line:   "data: {\"type\":\"text\",\"content\":\"x\"}\r",
			wantOK: true,
			want:   domain.TextFrame("x"),
		},
		{name: "blank separator", line: ""},
		{name: "event line", line: "event: message"},
		{name: "comment", line: ": keep-alive"},
		{name: "prefix without space", line: `data:{"type":"text","content":"x"}`},
		{name: "unknown type", line: `data: {"type":"heartbeat"}`},
		{name: "missing type", line: `data: {"content":"x"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, ok, err := Classify(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, frame)
			}
		})
	}
}

func TestClassify_Sources(t *testing.T) {
	frame, ok, err := Classify(`data: {"type":"sources","sources":[{"id":"d1","title":"Policy","url":"https://x/policy","snippet":"...","index":1},{"title":"Upload","url":null,"index":2}]}`)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, frame.Sources, 2)

	assert.Equal(t, 1, frame.Sources[0].Index)
	require.NotNil(t, frame.Sources[0].URL)
	assert.Equal(t, "https://x/policy", *frame.Sources[0].URL)
	assert.Nil(t, frame.Sources[1].URL)
}

func TestClassify_Reasoning(t *testing.T) {
	frame, ok, err := Classify(`data: {"type":"reasoning","step":{"id":"s1","type":"search","title":"Searching","summary":"3 hits","status":"completed","details":{"hits":3}}}`)
	require.NoError(t, err)
	require.True(t, ok)
	require.NotNil(t, frame.Step)

	assert.Equal(t, "s1", frame.Step.ID)
	assert.Equal(t, domain.StepCompleted, frame.Step.Status)
	assert.Equal(t, float64(3), frame.Step.Details["hits"])
}

func TestClassify_Malformed(t *testing.T) {
	lines := []string{
		`data: {"type":"text","content":`,
		`data: not json`,
		`data: `,
		`data: {"type":"reasoning"}`,
		`data: {"type":"reasoning","step":{"title":"no id"}}`,
	}
	for _, line := range lines {
		_, ok, err := Classify(line)
		assert.False(t, ok, line)
		assert.ErrorIs(t, err, ErrMalformedFrame, line)
	}
}
