package sim

import (
	"container/heap"
	"context"
	"time"
)

// EventID identifies a scheduled event. The zero value never refers to a
// live event.
type EventID uint64

type event struct {
	id    EventID
	at    time.Duration
	fn    func()
	index int
}

// eventQueue orders events by time, then by scheduling order.
type eventQueue []*event

func (q eventQueue) Len() int { return len(q) }

func (q eventQueue) Less(i, j int) bool {
	if q[i].at != q[j].at {
		return q[i].at < q[j].at
	}
	return q[i].id < q[j].id
}

func (q eventQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *eventQueue) Push(x any) {
	ev := x.(*event)
	ev.index = len(*q)
	*q = append(*q, ev)
}

func (q *eventQueue) Pop() any {
	old := *q
	n := len(old)
	ev := old[n-1]
	old[n-1] = nil
	ev.index = -1
	*q = old[:n-1]
	return ev
}

// Simulator is a single-threaded discrete-event scheduler.
//
// Callbacks run synchronously inside Run and may schedule or cancel further
// events. The simulator is not safe for concurrent use.
type Simulator struct {
	now     time.Duration
	lastID  EventID
	queue   eventQueue
	pending map[EventID]*event

	stopAt  time.Duration
	stopSet bool
}

// NewSimulator returns a simulator at time zero with an empty queue.
func NewSimulator() *Simulator {
	return &Simulator{pending: map[EventID]*event{}}
}

// Now returns the current simulation time.
func (s *Simulator) Now() time.Duration { return s.now }

// Schedule runs fn after delay. Negative delays are treated as zero.
func (s *Simulator) Schedule(delay time.Duration, fn func()) EventID {
	if delay < 0 {
		delay = 0
	}
	s.lastID++
	ev := &event{id: s.lastID, at: s.now + delay, fn: fn}
	heap.Push(&s.queue, ev)
	s.pending[ev.id] = ev
	return ev.id
}

// ScheduleNow runs fn at the current time, after events already due now.
func (s *Simulator) ScheduleNow(fn func()) EventID {
	return s.Schedule(0, fn)
}

// Cancel removes a pending event. It reports whether the event was pending.
func (s *Simulator) Cancel(id EventID) bool {
	ev, ok := s.pending[id]
	if !ok {
		return false
	}
	delete(s.pending, id)
	heap.Remove(&s.queue, ev.index)
	return true
}

// IsPending reports whether id is scheduled and has not yet run.
func (s *Simulator) IsPending(id EventID) bool {
	_, ok := s.pending[id]
	return ok
}

// StopAt makes Run return once the next event would fire after at. The
// clock is advanced to at.
func (s *Simulator) StopAt(at time.Duration) {
	s.stopAt = at
	s.stopSet = true
}

// Step runs the next event. It returns false when the queue is empty or the
// stop time has been reached.
func (s *Simulator) Step() bool {
	if len(s.queue) == 0 {
		if s.stopSet && s.now < s.stopAt {
			s.now = s.stopAt
		}
		return false
	}
	next := s.queue[0]
	if s.stopSet && next.at > s.stopAt {
		s.now = s.stopAt
		return false
	}
	heap.Pop(&s.queue)
	delete(s.pending, next.id)
	s.now = next.at
	next.fn()
	return true
}

// Run processes events in time order until the queue drains, the stop time
// is reached or ctx is cancelled.
func (s *Simulator) Run(ctx context.Context) error {
	const checkEvery = 1024
	for n := 0; ; n++ {
		if n%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if !s.Step() {
			return nil
		}
	}
}
