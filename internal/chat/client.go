package chat

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/liliang-cn/askstream/internal/domain"
	"github.com/liliang-cn/askstream/internal/metrics"
	"github.com/liliang-cn/askstream/internal/session"
	"github.com/liliang-cn/askstream/internal/stream"
	"go.uber.org/zap"
)

// DefaultNamespace prefixes session storage keys when none is configured
const DefaultNamespace = "askstream"

// errTurnClosed stops the frame loop of a turn closed by Stop or Reset
var errTurnClosed = errors.New("turn closed")

// Config holds the connection settings of a Client
type Config struct {
	APIBase    string
	Token      string
	Mode       Mode
	Namespace  string
	HTTPClient *http.Client
}

// TurnResult describes how one Send ended
type TurnResult struct {
	Outcome Outcome
	// Message is the assistant message as it was closed
	Message domain.ChatMessage
	// Err is the failure reason for OutcomeFailed
	Err error
}

// Client drives one conversation against the stream endpoint. At most one
// turn is in flight at a time; every state change is published to
// subscribers in the order it was made.
type Client struct {
	transport  Transport
	reader     *stream.Reader
	continuity *session.Continuity
	store      session.Store
	logger     *zap.Logger
	metrics    *metrics.Metrics
	newID      func() string
	now        func() time.Time

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
	// active is the turn allowed to change state, zero when none is.
	// epoch changes on Reset.
	active  uint64
	lastID  uint64
	epoch   uint64
	subs    []subscriber
	nextSub int

	// pending holds snapshots not yet delivered; one goroutine at a time
	// delivers them, in order, without holding mu.
	pending    []State
	delivering bool

	// persistMu orders storage writes of a turn against Reset
	persistMu sync.Mutex
}

type subscriber struct {
	id int
	fn func(State)
}

// Option configures a Client
type Option func(*Client)

// WithLogger sets the client logger
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics sets the collectors updated by the client
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithStore sets the backend used to remember the conversation identifier.
// Without one, every client starts a new conversation.
func WithStore(store session.Store) Option {
	return func(c *Client) {
		c.store = store
	}
}

// WithTransport replaces the HTTP transport
func WithTransport(t Transport) Option {
	return func(c *Client) {
		if t != nil {
			c.transport = t
		}
	}
}

// WithIDGenerator sets the generator for local message identifiers
func WithIDGenerator(fn func() string) Option {
	return func(c *Client) {
		if fn != nil {
			c.newID = fn
		}
	}
}

// New creates a client and restores the stored conversation identifier
func New(cfg Config, opts ...Option) *Client {
	if cfg.Namespace == "" {
		cfg.Namespace = DefaultNamespace
	}

	c := &Client{
		logger: zap.NewNop(),
		newID:  func() string { return uuid.New().String() },
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.transport == nil {
		c.transport = NewHTTPTransport(Endpoint(cfg.APIBase, cfg.Mode, cfg.Token), cfg.HTTPClient)
	}

	c.logger = c.logger.With(zap.String("token", cfg.Token))
	c.reader = stream.NewReader(stream.WithLogger(c.logger), stream.WithMetrics(c.metrics))
	c.continuity = session.NewContinuity(c.store, cfg.Namespace, cfg.Token, c.logger, c.metrics)
	c.state = InitialState(c.continuity.Load())
	return c
}

// Snapshot returns a copy of the current state
func (c *Client) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Clone()
}

// ConversationID returns the server conversation identifier, if any
func (c *Client) ConversationID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.ConversationID
}

// Subscribe registers fn to receive every state change in the order the
// changes were made. fn runs without the client lock held, so it may read
// the client and call Stop or Reset. It must not call Send synchronously.
func (c *Client) Subscribe(fn func(State)) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs = append(c.subs, subscriber{id: id, fn: fn})
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			for i, sub := range c.subs {
				if sub.id == id {
					c.subs = append(c.subs[:i:i], c.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Send runs one turn: it appends the user message, streams the assistant
// answer and returns once the turn has ended. Blank text is rejected with
// ErrEmptyMessage and a send during an open turn with ErrTurnInFlight; in
// both cases state is left untouched. Every other ending, including
// transport failures, is reported through TurnResult.
func (c *Client) Send(ctx context.Context, text string) (TurnResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return TurnResult{}, domain.ErrEmptyMessage
	}

	c.mu.Lock()
	if c.state.Busy() {
		c.mu.Unlock()
		return TurnResult{}, domain.ErrTurnInFlight
	}
	turnCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	c.cancel = cancel
	c.lastID++
	c.active = c.lastID
	tc := turnContext{id: c.active, epoch: c.epoch}
	assistantID := c.newID()
	c.state = BeginTurn(c.state, c.newID(), assistantID, text, c.now())
	req := domain.ChatRequest{Message: text, ConversationID: c.state.ConversationID}
	c.publishLocked()

	start := time.Now()
	result := c.runTurn(turnCtx, tc, req)
	c.finishTurn(tc, assistantID, &result)

	fields := []zap.Field{
		zap.String("outcome", string(result.Outcome)),
		zap.Duration("duration", time.Since(start)),
		zap.Int("content_len", len(result.Message.Content)),
		zap.Int("citations", len(result.Message.Citations)),
	}
	if result.Outcome == OutcomeFailed {
		c.logger.Warn("Turn failed", append(fields, zap.Error(result.Err))...)
	} else {
		c.logger.Info("Turn finished", fields...)
	}
	c.metrics.TurnFinished(string(result.Outcome))
	return result, nil
}

// turnContext identifies a turn and the conversation it started in
type turnContext struct {
	id    uint64
	epoch uint64
}

func (c *Client) runTurn(ctx context.Context, tc turnContext, req domain.ChatRequest) TurnResult {
	body, err := c.transport.Stream(ctx, req)
	if err != nil {
		if isCancelled(ctx) {
			return c.cancelTurn(tc)
		}
		return c.failTurn(tc, err)
	}
	defer body.Close()

	if !c.update(tc, StreamOpened) {
		return TurnResult{Outcome: OutcomeCancelled}
	}

	var (
		streamErr error
		doneSeen  bool
	)
	readErr := c.reader.Read(ctx, body, func(frame domain.Frame) error {
		if !c.update(tc, func(s State) State { return Apply(s, frame) }) {
			return errTurnClosed
		}
		switch frame.Type {
		case domain.FrameError:
			streamErr = &StreamError{Message: errorReason(frame)}
		case domain.FrameDone:
			doneSeen = true
			if frame.ConversationID != "" {
				c.saveConversation(tc, frame.ConversationID)
			}
		}
		return nil
	})

	switch {
	case errors.Is(readErr, errTurnClosed):
		return TurnResult{Outcome: OutcomeCancelled}
	case readErr == nil && streamErr != nil:
		return TurnResult{Outcome: OutcomeFailed, Err: streamErr}
	case readErr == nil && doneSeen:
		return TurnResult{Outcome: OutcomeCompleted}
	case readErr == nil:
		// The body ended without a done frame: keep what arrived.
		c.logger.Debug("Stream ended without done frame")
		if !c.update(tc, func(s State) State { return Apply(s, domain.DoneFrame("")) }) {
			return TurnResult{Outcome: OutcomeCancelled}
		}
		return TurnResult{Outcome: OutcomeCompleted}
	case isCancelled(ctx):
		return c.cancelTurn(tc)
	default:
		return c.failTurn(tc, readErr)
	}
}

func (c *Client) cancelTurn(tc turnContext) TurnResult {
	c.update(tc, Cancel)
	return TurnResult{Outcome: OutcomeCancelled}
}

// failTurn reports a cancellation instead when Stop or Reset already closed
// the turn.
func (c *Client) failTurn(tc turnContext, err error) TurnResult {
	if !c.update(tc, func(s State) State { return Fail(s, err.Error()) }) {
		return TurnResult{Outcome: OutcomeCancelled}
	}
	return TurnResult{Outcome: OutcomeFailed, Err: err}
}

// saveConversation persists id unless the conversation was reset since the
// turn started.
func (c *Client) saveConversation(tc turnContext, id string) {
	c.persistMu.Lock()
	defer c.persistMu.Unlock()

	c.mu.Lock()
	current := c.epoch == tc.epoch
	c.mu.Unlock()
	if current {
		c.continuity.Save(id)
	}
}

// finishTurn releases the turn and fills in the closed message
func (c *Client) finishTurn(tc turnContext, assistantID string, result *TurnResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == tc.id {
		c.active = 0
		c.cancel = nil
	}
	for i := len(c.state.Messages) - 1; i >= 0; i-- {
		if c.state.Messages[i].ID == assistantID {
			result.Message = c.state.Clone().Messages[i]
			break
		}
	}
}

// Stop cancels the in-flight turn and closes its message as last observed.
// Frames still buffered for the turn are dropped. It reports whether there
// was a turn to stop.
func (c *Client) Stop() bool {
	c.mu.Lock()
	if c.active == 0 || !c.state.Busy() {
		c.mu.Unlock()
		return false
	}
	c.closeActiveLocked()
	c.state = Cancel(c.state)
	c.publishLocked()
	return true
}

// Reset cancels any in-flight turn, clears the transcript and forgets the
// stored conversation identifier. Frames still arriving for the discarded
// turn are ignored.
func (c *Client) Reset() {
	c.mu.Lock()
	c.closeActiveLocked()
	c.epoch++
	c.state = InitialState("")
	c.publishLocked()

	c.persistMu.Lock()
	c.continuity.Clear()
	c.persistMu.Unlock()
	c.logger.Info("Conversation reset")
}

// closeActiveLocked cancels the active turn and stops it from changing state
func (c *Client) closeActiveLocked() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.active = 0
}

// update applies fn if turn tc is still the active one
func (c *Client) update(tc turnContext, fn func(State) State) bool {
	c.mu.Lock()
	if c.active != tc.id {
		c.mu.Unlock()
		return false
	}
	c.state = fn(c.state)
	c.publishLocked()
	return true
}

// publishLocked queues the current state for subscribers and releases mu.
// The goroutine that finds no delivery running drains the queue; callbacks
// run with mu released.
func (c *Client) publishLocked() {
	if len(c.subs) > 0 {
		c.pending = append(c.pending, c.state.Clone())
	}
	if c.delivering {
		c.mu.Unlock()
		return
	}

	c.delivering = true
	for len(c.pending) > 0 {
		snapshot := c.pending[0]
		c.pending[0] = State{}
		c.pending = c.pending[1:]
		subs := make([]subscriber, len(c.subs))
		copy(subs, c.subs)
		c.mu.Unlock()

		for _, sub := range subs {
			sub.fn(snapshot)
		}
		c.mu.Lock()
	}
	c.pending = nil
	c.delivering = false
	c.mu.Unlock()
}

func isCancelled(ctx context.Context) bool {
	return errors.Is(ctx.Err(), context.Canceled)
}
