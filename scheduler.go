// scheduler.go - deterministic, cycle-stamped event scheduler
//
// No direct teacher equivalent: the teacher's audio/video chips free-run
// per sample/frame rather than scheduling discrete future events. Built
// against stdlib container/heap the way Go systems code builds priority
// structures; maxnasonov-gvisor's scheduling primitives are reference
// texture only (gvisor is not the teacher, no code is copied from it).

package bus

import "container/heap"

// EventCallback is invoked when a scheduled event comes due.
type EventCallback func(ctx *EventContext)

// EventHandle uniquely identifies a scheduled event for cancellation.
type EventHandle uint64

// ScheduledEvent is one entry in the scheduler's priority queue.
type ScheduledEvent struct {
	Handle   EventHandle
	Cycle    Cycle
	Priority int
	Sequence uint64
	Kind     ScheduledEventKind
	Callback EventCallback
	Tag      any
}

// EventContext is the read-only bundle passed to every scheduled callback.
type EventContext struct {
	Scheduler *Scheduler
	Signals   *SignalBus
	Bus       *MainBus
	Now       Cycle
}

// eventHeap implements container/heap.Interface ordered by
// (Cycle, Priority, Sequence).
type eventHeap []*ScheduledEvent

func (h eventHeap) Len() int { return len(h) }
func (h eventHeap) Less(i, j int) bool {
	if h[i].Cycle != h[j].Cycle {
		return h[i].Cycle < h[j].Cycle
	}
	if h[i].Priority != h[j].Priority {
		return h[i].Priority < h[j].Priority
	}
	return h[i].Sequence < h[j].Sequence
}
func (h eventHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *eventHeap) Push(x any)   { *h = append(*h, x.(*ScheduledEvent)) }
func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

// compactionThreshold is the tombstone-count at which the scheduler
// proactively drops cancelled events from the heap, per spec.md §3/§4.6.
const compactionThreshold = 1000

// Scheduler is a single-threaded min-heap of cycle-stamped events. It owns
// Now and dispatches callbacks deterministically given identical call
// sequences.
type Scheduler struct {
	now         Cycle
	heap        eventHeap
	tombstones  map[EventHandle]struct{}
	nextHandle  EventHandle
	nextSeq     uint64
	ctx         *EventContext
}

// NewScheduler creates an empty scheduler at Now == 0.
func NewScheduler() *Scheduler {
	return &Scheduler{tombstones: make(map[EventHandle]struct{})}
}

// Now returns the scheduler's current cycle.
func (s *Scheduler) Now() Cycle { return s.now }

// SetEventContext binds the context passed to every callback. Rejects nil.
func (s *Scheduler) SetEventContext(ctx *EventContext) error {
	if ctx == nil {
		return &ArgumentNullError{ParamName: "ctx"}
	}
	s.ctx = ctx
	return nil
}

// ScheduleAt enqueues callback to run at the given cycle. Rejects a nil
// callback.
func (s *Scheduler) ScheduleAt(cycle Cycle, kind ScheduledEventKind, priority int, callback EventCallback, tag any) (EventHandle, error) {
	if callback == nil {
		return 0, &ArgumentNullError{ParamName: "callback"}
	}
	s.nextHandle++
	handle := s.nextHandle
	seq := s.nextSeq
	s.nextSeq++
	heap.Push(&s.heap, &ScheduledEvent{
		Handle:   handle,
		Cycle:    cycle,
		Priority: priority,
		Sequence: seq,
		Kind:     kind,
		Callback: callback,
		Tag:      tag,
	})
	return handle, nil
}

// ScheduleAfter is equivalent to ScheduleAt(Now+delta, ...).
func (s *Scheduler) ScheduleAfter(delta Cycle, kind ScheduledEventKind, priority int, callback EventCallback, tag any) (EventHandle, error) {
	return s.ScheduleAt(s.now+delta, kind, priority, callback, tag)
}

// Cancel marks handle cancelled. Returns true on the first call for a given
// handle - even one that was never scheduled, modeling "intent to cancel"
// per DESIGN NOTES §9 open question (a) - and false on every subsequent
// call with the same handle. When the tombstone set exceeds
// compactionThreshold, cancelled events are dropped from the heap.
func (s *Scheduler) Cancel(handle EventHandle) bool {
	if _, already := s.tombstones[handle]; already {
		return false
	}
	s.tombstones[handle] = struct{}{}
	if len(s.tombstones) > compactionThreshold {
		s.compact()
	}
	return true
}

func (s *Scheduler) compact() {
	kept := s.heap[:0]
	for _, e := range s.heap {
		if _, tombstoned := s.tombstones[e.Handle]; tombstoned {
			continue
		}
		kept = append(kept, e)
	}
	s.heap = kept
	heap.Init(&s.heap)
	s.tombstones = make(map[EventHandle]struct{})
}

func (s *Scheduler) isTombstoned(handle EventHandle) bool {
	_, tombstoned := s.tombstones[handle]
	return tombstoned
}

// DispatchDue pops and invokes every event whose Cycle <= Now, in heap
// order, skipping tombstoned events. Between events Now is unchanged.
// Events enqueued by a callback during this call are still dispatched in
// this same call if they become heap-top before popping stops.
func (s *Scheduler) DispatchDue() error {
	if s.ctx == nil {
		return &InvalidOperationError{Reason: "dispatch without a bound EventContext"}
	}
	for len(s.heap) > 0 && s.heap[0].Cycle <= s.now {
		e := heap.Pop(&s.heap).(*ScheduledEvent)
		if s.isTombstoned(e.Handle) {
			continue
		}
		s.ctx.Now = s.now
		e.Callback(s.ctx)
	}
	return nil
}

// Advance raises Now to cycle, dispatching every event at exactly its
// scheduled cycle along the way: while the heap-top cycle is <= target, Now
// is set to that cycle, every event at that cycle is popped and dispatched
// in (Priority, Sequence) order, then the loop repeats. After the loop, Now
// is set to cycle even if no events remained.
func (s *Scheduler) Advance(cycle Cycle) error {
	if s.ctx == nil {
		return &InvalidOperationError{Reason: "advance without a bound EventContext"}
	}
	for len(s.heap) > 0 && s.heap[0].Cycle <= cycle {
		s.now = s.heap[0].Cycle
		for len(s.heap) > 0 && s.heap[0].Cycle == s.now {
			e := heap.Pop(&s.heap).(*ScheduledEvent)
			if s.isTombstoned(e.Handle) {
				continue
			}
			s.ctx.Now = s.now
			e.Callback(s.ctx)
		}
	}
	if cycle > s.now {
		s.now = cycle
	}
	return nil
}

// PeekNextDue returns the Cycle of the earliest non-tombstoned event and
// true, or (0, false) if none remain.
func (s *Scheduler) PeekNextDue() (Cycle, bool) {
	idx := s.peekLiveIndex()
	if idx < 0 {
		return 0, false
	}
	return s.heap[idx].Cycle, true
}

func (s *Scheduler) peekLiveIndex() int {
	// A linear scan is correct (not just the root) because a tombstoned
	// root does not get removed until compaction or a dispatch pass pops
	// it; PeekNextDue must not mutate state.
	best := -1
	for i, e := range s.heap {
		if s.isTombstoned(e.Handle) {
			continue
		}
		if best < 0 || s.heap[i].Cycle < s.heap[best].Cycle ||
			(s.heap[i].Cycle == s.heap[best].Cycle && s.heap[i].Priority < s.heap[best].Priority) {
			best = i
		}
	}
	return best
}

// JumpToNextEventAndDispatch sets Now to the next non-tombstoned event's
// cycle and dispatches every event at that cycle, returning false if the
// queue is empty or fully tombstoned.
func (s *Scheduler) JumpToNextEventAndDispatch() (bool, error) {
	cycle, ok := s.PeekNextDue()
	if !ok {
		return false, nil
	}
	if err := s.Advance(cycle); err != nil {
		return false, err
	}
	return true, nil
}

// Reset clears the queue and tombstone set and sets Now to 0. Callers must
// re-register an EventContext before the next dispatch.
func (s *Scheduler) Reset() {
	s.heap = nil
	s.tombstones = make(map[EventHandle]struct{})
	s.now = 0
	s.ctx = nil
}

// PendingEventCount returns the raw heap size, including tombstoned events
// not yet compacted away.
func (s *Scheduler) PendingEventCount() int { return len(s.heap) }
