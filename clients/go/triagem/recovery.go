package triagem

import (
	"sync"
	"time"

	"saude-ja/triagem/triage-queue-server/pkg/msg"
)

// QueueView holds a clinician's last known good queue snapshot.
//
// Right after a reconnect the coordinator may hand out an empty snapshot
// before the resync round trip completes (a soft-recovery artifact).
// Applying that would flicker a populated queue to empty on every
// reconnect, so the first empty snapshot while resyncing is discarded.
type QueueView struct {
	mu             sync.Mutex
	queue          []msg.QueueTicket
	timestamp      time.Time
	awaitingResync bool
}

// MarkResyncing arms the empty-snapshot guard. Called on reconnect,
// before the queue is re-requested.
func (v *QueueView) MarkResyncing() {
	v.mu.Lock()
	v.awaitingResync = true
	v.mu.Unlock()
}

// Apply replaces the view with a fresh snapshot. Returns false when the
// snapshot was discarded as a soft-recovery artifact.
func (v *QueueView) Apply(queue []msg.QueueTicket, timestamp time.Time) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.awaitingResync {
		v.awaitingResync = false
		if len(queue) == 0 && len(v.queue) > 0 {
			return false
		}
	}

	v.queue = queue
	v.timestamp = timestamp
	return true
}

// Snapshot returns the current view. The slice is shared; callers
// treat it as read-only.
func (v *QueueView) Snapshot() ([]msg.QueueTicket, time.Time) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.queue, v.timestamp
}
