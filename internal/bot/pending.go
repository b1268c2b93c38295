package bot

import (
	"errors"
	"sync"
	"time"
)

// PendingKind identifies a multi-step admin interaction awaiting its reply.
type PendingKind int

const (
	PendingNone PendingKind = iota
	PendingBroadcastText
	PendingDisableConfirm
)

// pendingTTL bounds how long a prompt stays honorable. A confirmation that
// arrives later than this is ignored.
const pendingTTL = 5 * time.Minute

// ErrActionPending is returned when a user tries to open a second pending
// action before resolving or cancelling the first.
var ErrActionPending = errors.New("another action is already pending for this user")

type pendingAction struct {
	kind     PendingKind
	promptID int
	issuedAt time.Time
}

// PendingTracker tracks which users are mid-way through a multi-step
// interaction. A pending action is correlated to the exact prompt message it
// was opened with: only a reply to that message resolves it.
type PendingTracker struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	actions map[int64]pendingAction
}

// NewPendingTracker creates a tracker whose entries expire after ttl.
func NewPendingTracker(ttl time.Duration) *PendingTracker {
	return &PendingTracker{
		ttl:     ttl,
		now:     time.Now,
		actions: make(map[int64]pendingAction),
	}
}

// Begin opens a pending action for userID tied to the prompt message id.
// Only one action may be pending per user at a time.
func (t *PendingTracker) Begin(userID int64, kind PendingKind, promptID int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if action, ok := t.actions[userID]; ok && !t.expired(action) {
		return ErrActionPending
	}
	t.actions[userID] = pendingAction{
		kind:     kind,
		promptID: promptID,
		issuedAt: t.now(),
	}
	return nil
}

// Resolve consumes the pending action for userID if replyToID references the
// prompt it was opened with. A mismatched or absent reply leaves the action
// pending. Expired actions are dropped and never resolve.
func (t *PendingTracker) Resolve(userID int64, replyToID int) (PendingKind, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	action, ok := t.actions[userID]
	if !ok {
		return PendingNone, false
	}
	if t.expired(action) {
		delete(t.actions, userID)
		return PendingNone, false
	}
	if action.promptID != replyToID {
		return PendingNone, false
	}
	delete(t.actions, userID)
	return action.kind, true
}

// Peek reports the unexpired pending action for userID, if any.
func (t *PendingTracker) Peek(userID int64) (PendingKind, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	action, ok := t.actions[userID]
	if !ok {
		return PendingNone, false
	}
	if t.expired(action) {
		delete(t.actions, userID)
		return PendingNone, false
	}
	return action.kind, true
}

// Cancel drops any pending action for userID.
func (t *PendingTracker) Cancel(userID int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.actions, userID)
}

func (t *PendingTracker) expired(action pendingAction) bool {
	return t.now().Sub(action.issuedAt) > t.ttl
}
