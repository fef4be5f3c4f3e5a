package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/liliang-cn/askstream/internal/config"
	"github.com/liliang-cn/askstream/internal/domain"
)

// Emit writes one frame to the client stream
type Emit func(frame domain.Frame) error

// Responder produces the frames of one answer. It must not emit done or
// error frames; the caller terminates the stream.
type Responder interface {
	Respond(ctx context.Context, question string, emit Emit) error
}

// ScriptedResponder answers from keyword-matched scripts
type ScriptedResponder struct {
	scripts    []config.Script
	fallback   string
	chunkWords int
	delay      time.Duration
}

// NewScriptedResponder creates a responder from configuration
func NewScriptedResponder(cfg config.ResponderConfig) *ScriptedResponder {
	chunkWords := cfg.ChunkWords
	if chunkWords <= 0 {
		chunkWords = 1
	}
	return &ScriptedResponder{
		scripts:    cfg.Scripts,
		fallback:   cfg.Fallback,
		chunkWords: chunkWords,
		delay:      cfg.Delay,
	}
}

// Match returns the first script with a keyword contained in question
func (r *ScriptedResponder) Match(question string) (config.Script, bool) {
	q := strings.ToLower(question)
	for _, script := range r.scripts {
		for _, kw := range script.Keywords {
			if kw != "" && strings.Contains(q, strings.ToLower(kw)) {
				return script, true
			}
		}
	}
	return config.Script{}, false
}

// Respond emits search progress, sources and the answer text in word chunks
func (r *ScriptedResponder) Respond(ctx context.Context, question string, emit Emit) error {
	script, matched := r.Match(question)
	answer := script.Answer
	if !matched {
		answer = r.fallback
	}

	if err := emit(domain.StatusFrame(domain.StatusSearching, "Searching knowledge base...", 0)); err != nil {
		return err
	}

	steps := make([]domain.ReasoningStep, len(script.Steps))
	for i, s := range script.Steps {
		steps[i] = domain.ReasoningStep{
			ID:      fmt.Sprintf("step-%d", i+1),
			Type:    s.Type,
			Title:   s.Title,
			Summary: s.Summary,
			Status:  domain.StepInProgress,
		}
		if err := r.send(ctx, emit, domain.ReasoningFrame(steps[i])); err != nil {
			return err
		}
	}

	citations := make([]domain.Citation, 0, len(script.Sources))
	for i, src := range script.Sources {
		c := domain.Citation{
			ID:      fmt.Sprintf("src-%d", i+1),
			Index:   i + 1,
			Title:   src.Title,
			Snippet: src.Snippet,
		}
		if src.URL != "" {
			url := src.URL
			c.URL = &url
		}
		citations = append(citations, c)
	}
	if len(citations) > 0 {
		if err := emit(domain.SourcesFrame(citations)); err != nil {
			return err
		}
	}

	for _, step := range steps {
		step.Status = domain.StepCompleted
		if err := r.send(ctx, emit, domain.ReasoningFrame(step)); err != nil {
			return err
		}
	}

	if err := emit(domain.StatusFrame(domain.StatusGenerating, "Generating answer...", len(citations))); err != nil {
		return err
	}

	for _, chunk := range chunkWords(answer, r.chunkWords) {
		if err := r.send(ctx, emit, domain.TextFrame(chunk)); err != nil {
			return err
		}
	}
	return nil
}

// send paces frames by the configured delay
func (r *ScriptedResponder) send(ctx context.Context, emit Emit, frame domain.Frame) error {
	if r.delay > 0 {
		timer := time.NewTimer(r.delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	} else if err := ctx.Err(); err != nil {
		return err
	}
	return emit(frame)
}

// chunkWords splits text into deltas of n words; concatenating them
// yields text unchanged.
func chunkWords(text string, n int) []string {
	if text == "" {
		return nil
	}
	var (
		chunks []string
		start  int
		words  int
		inWord bool
	)
	for i, r := range text {
		space := r == ' ' || r == '\n' || r == '\t'
		if !space && !inWord {
			if words == n {
				chunks = append(chunks, text[start:i])
				start = i
				words = 0
			}
			words++
		}
		inWord = !space
	}
	return append(chunks, text[start:])
}
