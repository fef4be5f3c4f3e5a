package session

import (
	"github.com/liliang-cn/askstream/internal/metrics"
	"go.uber.org/zap"
)

// Continuity binds a Store to one widget token. Every backend failure is
// logged and swallowed, so an unusable store behaves like an empty one.
// A nil store disables continuity.
type Continuity struct {
	store   Store
	key     string
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewContinuity creates the store wrapper for namespace and token
func NewContinuity(store Store, namespace, token string, logger *zap.Logger, m *metrics.Metrics) *Continuity {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Continuity{
		store:   store,
		key:     Key(namespace, token),
		logger:  logger,
		metrics: m,
	}
}

// Key returns the storage key in use
func (c *Continuity) Key() string {
	return c.key
}

// Load returns the stored conversation identifier, or "" when none is
// available
func (c *Continuity) Load() string {
	if c == nil || c.store == nil {
		return ""
	}
	id, ok, err := c.store.Get(c.key)
	if err != nil {
		c.failed("get", err)
		return ""
	}
	if !ok {
		return ""
	}
	return id
}

// Save stores the conversation identifier
func (c *Continuity) Save(conversationID string) {
	if c == nil || c.store == nil || conversationID == "" {
		return
	}
	if err := c.store.Set(c.key, conversationID); err != nil {
		c.failed("set", err)
	}
}

// Clear removes the conversation identifier
func (c *Continuity) Clear() {
	if c == nil || c.store == nil {
		return
	}
	if err := c.store.Remove(c.key); err != nil {
		c.failed("remove", err)
	}
}

func (c *Continuity) failed(op string, err error) {
	c.metrics.StorageFailed(op)
	c.logger.Warn("Session storage unavailable, continuing without continuity",
		zap.String("op", op),
		zap.String("key", c.key),
		zap.Error(err),
	)
}
