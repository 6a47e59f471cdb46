package bot

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

// Decision is the state of a pending confirmation.
type Decision int

const (
	DecisionPending Decision = iota
	DecisionConfirmed
	DecisionCancelled
	DecisionExpired
)

func (d Decision) String() string {
	switch d {
	case DecisionConfirmed:
		return "confirmed"
	case DecisionCancelled:
		return "cancelled"
	case DecisionExpired:
		return "expired"
	default:
		return "pending"
	}
}

var (
	ErrUnknownConfirmation = errors.New("confirmation is unknown or already decided")
	ErrNotAuthor           = errors.New("only the original author can decide")
)

// Confirmation is a question asked to one user. It reaches exactly one
// terminal state: confirmed, cancelled or expired.
type Confirmation struct {
	ID     string
	UserID string

	mu       sync.Mutex
	decision Decision
	done     chan struct{}
	timer    *time.Timer
}

// Decision returns the current state.
func (c *Confirmation) Decision() Decision {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.decision
}

// Done is closed once the confirmation reached a terminal state.
func (c *Confirmation) Done() <-chan struct{} {
	return c.done
}

// Wait blocks until the confirmation is decided. A context ending first
// expires it.
func (c *Confirmation) Wait(ctx context.Context) Decision {
	select {
	case <-c.done:
	case <-ctx.Done():
		c.resolve(DecisionExpired)
	}
	return c.Decision()
}

func (c *Confirmation) resolve(decision Decision) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.decision != DecisionPending {
		return false
	}
	c.decision = decision
	if c.timer != nil {
		c.timer.Stop()
	}
	close(c.done)
	return true
}

// Confirmations keeps the open confirmations until they are decided or time out.
type Confirmations struct {
	timeout time.Duration

	mu      sync.Mutex
	pending map[string]*Confirmation
}

func NewConfirmations(timeout time.Duration) *Confirmations {
	return &Confirmations{timeout: timeout, pending: make(map[string]*Confirmation)}
}

// Open registers a confirmation only userID may decide.
func (r *Confirmations) Open(userID string) *Confirmation {
	c := &Confirmation{
		ID:     uuid.NewString(),
		UserID: userID,
		done:   make(chan struct{}),
	}
	r.mu.Lock()
	r.pending[c.ID] = c
	r.mu.Unlock()

	c.mu.Lock()
	c.timer = time.AfterFunc(r.timeout, func() { r.finish(c, DecisionExpired) })
	c.mu.Unlock()
	go func() {
		<-c.done
		r.forget(c.ID)
	}()
	return c
}

// Decide records the decision of userID. Decisions by anybody else are
// rejected with ErrNotAuthor and leave the confirmation pending.
func (r *Confirmations) Decide(id, userID string, decision Decision) (*Confirmation, error) {
	r.mu.Lock()
	c, ok := r.pending[id]
	r.mu.Unlock()
	if !ok {
		return nil, ErrUnknownConfirmation
	}
	if c.UserID != userID {
		return c, ErrNotAuthor
	}
	if !r.finish(c, decision) {
		return c, ErrUnknownConfirmation
	}
	return c, nil
}

// Expire ends a confirmation early, as if it had timed out.
func (r *Confirmations) Expire(id string) {
	r.mu.Lock()
	c, ok := r.pending[id]
	r.mu.Unlock()
	if ok {
		r.finish(c, DecisionExpired)
	}
}

// Pending is the number of open confirmations.
func (r *Confirmations) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

func (r *Confirmations) finish(c *Confirmation, decision Decision) bool {
	if !c.resolve(decision) {
		return false
	}
	r.forget(c.ID)
	return true
}

func (r *Confirmations) forget(id string) {
	r.mu.Lock()
	delete(r.pending, id)
	r.mu.Unlock()
}
