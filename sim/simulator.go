// Package sim is a discrete-event simulator for reconciliation over links
// with latency and limited bandwidth.
package sim

import (
	"container/heap"
	"time"
)

// Node is a participant of a simulation.
type Node interface {
	// HandleMessage processes payload sent by from, delivered at simulated
	// time at, and returns the messages it sends in response.
	HandleMessage(payload any, from Node, at time.Duration) []Message
}

// Message is a payload in flight, or a timer when To is nil.
type Message struct {
	Payload any
	// To is the receiver. nil means the sender itself, which is how nodes
	// schedule timers.
	To Node
	// Delay from now until delivery. Negative delays are treated as zero.
	Delay time.Duration
}

// Simulator delivers messages in the order of their delivery time. Messages
// due at the same time are delivered in the order they were scheduled.
type Simulator struct {
	time time.Duration
	mq   eventQueue
	seq  int
}

// EventsQueued is the number of messages not yet delivered.
func (s *Simulator) EventsQueued() int {
	return len(s.mq)
}

// EventsDelivered is the number of messages delivered so far.
func (s *Simulator) EventsDelivered() int {
	return s.seq - len(s.mq)
}

// Drained reports whether every message was delivered.
func (s *Simulator) Drained() bool {
	return len(s.mq) == 0
}

// Time is the delivery time of the last delivered message.
func (s *Simulator) Time() time.Duration {
	return s.time
}

// RunUntil delivers messages due no later than t.
func (s *Simulator) RunUntil(t time.Duration) {
	for !s.Drained() && s.mq[0].at <= t {
		s.deliverNext()
	}
}

// Run delivers messages until none is left.
func (s *Simulator) Run() {
	for !s.Drained() {
		s.deliverNext()
	}
}

// ScheduleMessage queues msg as sent by from at the current time.
func (s *Simulator) ScheduleMessage(msg Message, from Node) {
	to := msg.To
	if to == nil {
		to = from
	}
	delay := msg.Delay
	if delay < 0 {
		delay = 0
	}
	heap.Push(&s.mq, event{s.time + delay, s.seq, from, to, msg.Payload})
	s.seq += 1
}

func (s *Simulator) deliverNext() {
	e := heap.Pop(&s.mq).(event)
	s.time = e.at
	for _, m := range e.to.HandleMessage(e.payload, e.from, s.time) {
		s.ScheduleMessage(m, e.to)
	}
}

type event struct {
	at      time.Duration
	seq     int
	from    Node
	to      Node
	payload any
}

type eventQueue []event

func (q eventQueue) Len() int { return len(q) }

func (q eventQueue) Less(i, j int) bool {
	if q[i].at != q[j].at {
		return q[i].at < q[j].at
	}
	return q[i].seq < q[j].seq
}

func (q eventQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
}

func (q *eventQueue) Push(x any) {
	*q = append(*q, x.(event))
}

func (q *eventQueue) Pop() any {
	idx := len(*q) - 1
	res := (*q)[idx]
	(*q)[idx].payload = nil
	*q = (*q)[:idx]
	return res
}
