package server

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// maxNotices kept before the oldest is dropped
const maxNotices = 20

// Notice is a dismissable message for the user
type Notice struct {
	ID      string    `json:"id"`
	Message string    `json:"message"`
	Created time.Time `json:"created"`
}

// Notices collects user facing alerts until they are dismissed
type Notices struct {
	mu      sync.Mutex
	notices []Notice
	now     func() time.Time
}

// NewNotices board
func NewNotices() *Notices {
	return &Notices{now: time.Now}
}

// Alert adds a notice with message
func (n *Notices) Alert(message string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.notices = append(n.notices, Notice{
		ID:      uuid.NewString(),
		Message: message,
		Created: n.now(),
	})

	if len(n.notices) > maxNotices {
		n.notices = append([]Notice(nil), n.notices[len(n.notices)-maxNotices:]...)
	}
}

// List pending notices, oldest first
func (n *Notices) List() []Notice {
	n.mu.Lock()
	defer n.mu.Unlock()

	return append([]Notice{}, n.notices...)
}

// Dismiss all pending notices
func (n *Notices) Dismiss() int {
	n.mu.Lock()
	defer n.mu.Unlock()

	dismissed := len(n.notices)
	n.notices = nil

	return dismissed
}
