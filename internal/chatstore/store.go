// Package chatstore owns the canonical mutable task state for one chat
// session. All UI reads go through immutable snapshots and all writes go
// through the mutation methods here; one committed mutation means one
// updateCount bump and one synchronous pass over the subscribers.
package chatstore

import (
	"sync"

	"crewdesk/cli/internal/taskstate"
)

// Snapshot is a read-only copy of the store state. Records are deep
// copies; callers may hold a snapshot across await points and compare
// UpdateCount to detect concurrent mutation.
type Snapshot struct {
	Tasks        map[string]*taskstate.Record
	Order        []string
	ActiveTaskID string
	UpdateCount  uint64
}

// Task returns the record for an id, or nil.
func (s Snapshot) Task(taskID string) *taskstate.Record {
	return s.Tasks[taskID]
}

// ActiveTask returns the record the UI is focused on, or nil.
func (s Snapshot) ActiveTask() *taskstate.Record {
	if s.ActiveTaskID == "" {
		return nil
	}
	return s.Tasks[s.ActiveTaskID]
}

// Latest returns the most recently created record, or nil.
func (s Snapshot) Latest() *taskstate.Record {
	if len(s.Order) == 0 {
		return nil
	}
	return s.Tasks[s.Order[len(s.Order)-1]]
}

type subscriber struct {
	id int
	fn func(Snapshot)
}

// Store is the observable task container for one chat session.
type Store struct {
	mu           sync.Mutex
	tasks        map[string]*taskstate.Record
	order        []string
	activeTaskID string
	updateCount  uint64
	subs         []subscriber
	nextSubID    int
}

func New() *Store {
	return &Store{tasks: map[string]*taskstate.Record{}}
}

// GetState returns the current snapshot.
func (s *Store) GetState() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// UpdateCount returns the mutation counter without copying records.
func (s *Store) UpdateCount() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateCount
}

// Subscribe registers a callback invoked after every committed mutation
// with the new snapshot. The returned function unsubscribes; calling it
// more than once is safe, as is calling it from inside a notification.
func (s *Store) Subscribe(fn func(Snapshot)) func() {
	if fn == nil {
		return func() {}
	}
	s.mu.Lock()
	s.nextSubID++
	id := s.nextSubID
	s.subs = append(s.subs, subscriber{id: id, fn: fn})
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

func (s *Store) snapshotLocked() Snapshot {
	snap := Snapshot{
		Tasks:        make(map[string]*taskstate.Record, len(s.tasks)),
		Order:        append([]string(nil), s.order...),
		ActiveTaskID: s.activeTaskID,
		UpdateCount:  s.updateCount,
	}
	for id, rec := range s.tasks {
		snap.Tasks[id] = rec.Clone()
	}
	return snap
}

// mutate runs fn on the record for taskID under the lock. A missing
// task, or fn reporting no change, commits nothing: updateCount stays
// put and nobody is notified. Late UI events racing a removed task are
// routine, so silence is the contract here, not an error.
func (s *Store) mutate(taskID string, fn func(*taskstate.Record) bool) bool {
	s.mu.Lock()
	rec, ok := s.tasks[taskID]
	if !ok || !fn(rec) {
		s.mu.Unlock()
		return false
	}
	s.commitLocked()
	return true
}

// mutateStore is mutate for changes not scoped to a single record.
func (s *Store) mutateStore(fn func() bool) bool {
	s.mu.Lock()
	if !fn() {
		s.mu.Unlock()
		return false
	}
	s.commitLocked()
	return true
}

// commitLocked bumps the counter, snapshots, and releases the lock
// before notifying so callbacks can re-enter the store.
func (s *Store) commitLocked() {
	s.updateCount++
	snap := s.snapshotLocked()
	subs := append([]subscriber(nil), s.subs...)
	s.mu.Unlock()
	for _, sub := range subs {
		sub.fn(snap)
	}
}
