// Package tracker provides the echo-tracking and queueing primitives shared
// by the hub coordinator and peer agents.
//
// A List holds change records received from the remote side that have not
// yet been observed as local store events. An entry lives in the list only
// for the window during which the store is expected to replay it locally;
// matching removes the first occurrence, so a multiset of identical records
// is consumed one occurrence per local replay.
//
// A Queue buffers change records hooked locally before a peer has received
// its initial state, for FIFO replay after initialization.
//
// Neither type is safe for concurrent use; callers serialize access under
// their own lock.
package tracker

import "github.com/crosstate/storesync/syncmsg"

// List is a multiset of received change records awaiting local replay.
//
// Mutations are matched on type plus deep-equal payload; actions on type
// only. The asymmetry is deliberate and must not be "fixed".
type List struct {
	matchPayload bool
	records      []syncmsg.Record
}

// NewMutationList creates a List matching on type and payload.
func NewMutationList() *List {
	return &List{matchPayload: true}
}

// NewActionList creates a List matching on type only.
func NewActionList() *List {
	return &List{}
}

// Add appends a received record.
func (l *List) Add(rec syncmsg.Record) {
	l.records = append(l.records, rec)
}

// TakeMatch removes the first record matching rec and reports whether one
// was found. A hit means rec is an echo of a previously received record.
func (l *List) TakeMatch(rec syncmsg.Record) bool {
	for i, r := range l.records {
		if r.Type != rec.Type {
			continue
		}
		if l.matchPayload && r.Key() != rec.Key() {
			continue
		}
		l.records = append(l.records[:i], l.records[i+1:]...)
		return true
	}
	return false
}

// Len returns the number of unmatched records.
func (l *List) Len() int {
	return len(l.records)
}

// Queue is a FIFO buffer of change records awaiting post-initialization
// replay.
type Queue struct {
	records []syncmsg.Record
}

// Push appends a record to the queue.
func (q *Queue) Push(rec syncmsg.Record) {
	q.records = append(q.records, rec)
}

// Drain returns the queued records in arrival order and empties the queue.
func (q *Queue) Drain() []syncmsg.Record {
	records := q.records
	q.records = nil
	return records
}

// Len returns the number of queued records.
func (q *Queue) Len() int {
	return len(q.records)
}
