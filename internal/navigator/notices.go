package navigator

import (
	"sync"

	"navigator.metromap.org/internal/trip"
)

const defaultNoticeBuffer = 32

// noticeRing keeps the most recent notices for clients that poll.
type noticeRing struct {
	mu   sync.Mutex
	buf  []trip.Notice
	next int
	full bool
}

func newNoticeRing(size int) *noticeRing {
	if size <= 0 {
		size = defaultNoticeBuffer
	}
	return &noticeRing{buf: make([]trip.Notice, size)}
}

func (r *noticeRing) Notify(n trip.Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buf[r.next] = n
	r.next = (r.next + 1) % len(r.buf)
	if r.next == 0 {
		r.full = true
	}
}

// list returns the buffered notices, oldest first.
func (r *noticeRing) list() []trip.Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.full {
		return append([]trip.Notice(nil), r.buf[:r.next]...)
	}
	out := make([]trip.Notice, 0, len(r.buf))
	out = append(out, r.buf[r.next:]...)
	return append(out, r.buf[:r.next]...)
}
