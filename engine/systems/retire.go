package systems

import "github.com/spaghettifunk/framecore/engine/renderer"

type retiredResource struct {
	release func()
	// first frame number at which no in-flight frame can reference the resource
	after uint64
}

// retireQueue delays the destruction of resources until every frame that may have recorded
// them has been waited on.
type retireQueue struct {
	ring    *renderer.FrameRing
	pending []retiredResource
}

// retire schedules release. The current frame may already have recorded the resource, so
// it is released once the ring went all the way round after it.
func (rq *retireQueue) retire(release func()) {
	rq.pending = append(rq.pending, retiredResource{
		release: release,
		after:   rq.ring.FrameNumber() + uint64(rq.ring.FramesInFlight()) + 1,
	})
}

// flush releases what is no longer referenced. It returns the number released.
func (rq *retireQueue) flush() int {
	now := rq.ring.FrameNumber()
	kept := rq.pending[:0]
	released := 0
	for _, r := range rq.pending {
		if now >= r.after {
			r.release()
			released++
			continue
		}
		kept = append(kept, r)
	}
	rq.pending = kept
	return released
}

// drain releases everything. Only call it once the device is idle.
func (rq *retireQueue) drain() {
	for _, r := range rq.pending {
		r.release()
	}
	rq.pending = nil
}
