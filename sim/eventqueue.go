package sim

import "container/heap"

// EventQueue is a queue of events ordered by (time, epsilon, sequence).
type EventQueue interface {
	Push(evt *Event)
	Pop() *Event
	Len() int
	Peek() *Event
}

// EventQueueImpl is a heap-backed event queue.
type EventQueueImpl struct {
	events eventHeap
}

// NewEventQueue creates and returns a newly created EventQueue.
func NewEventQueue() *EventQueueImpl {
	q := new(EventQueueImpl)
	q.events = make(eventHeap, 0, 64)
	heap.Init(&q.events)
	return q
}

// Push adds an event to the event queue.
func (q *EventQueueImpl) Push(evt *Event) {
	heap.Push(&q.events, evt)
}

// Pop returns the next earliest event.
func (q *EventQueueImpl) Pop() *Event {
	return heap.Pop(&q.events).(*Event)
}

// Len returns the number of events in the queue.
func (q *EventQueueImpl) Len() int {
	return q.events.Len()
}

// Peek returns the event in front of the queue without removing it.
func (q *EventQueueImpl) Peek() *Event {
	return q.events[0]
}

type eventHeap []*Event

func (h eventHeap) Len() int {
	return len(h)
}

// Less defines the total order over events. Two events never compare equal
// because sequence numbers are unique.
func (h eventHeap) Less(i, j int) bool {
	a, b := h[i], h[j]
	if a.time != b.time {
		return a.time < b.time
	}
	if a.epsilon != b.epsilon {
		return a.epsilon < b.epsilon
	}
	return a.seq < b.seq
}

func (h eventHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
}

func (h *eventHeap) Push(x interface{}) {
	*h = append(*h, x.(*Event))
}

func (h *eventHeap) Pop() interface{} {
	old := *h
	n := len(old)
	evt := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return evt
}
