package loot

import (
	"strings"
	"sync"

	"github.com/google/uuid"
)

// State is the single live loot list shared by every client. Positions never
// change after Replace, so index references stay valid until the next Replace.
type State struct {
	mu      sync.RWMutex
	entries []Entry
	byID    map[string]int
}

func NewState() *State {
	return &State{byID: make(map[string]int)}
}

// Replace swaps the whole list and returns a copy of the stored entries.
// Entries keep a client-supplied id when it is a valid, unique UUID; all
// others get a fresh one.
func (s *State) Replace(entries []Entry) []Entry {
	next := make([]Entry, len(entries))
	byID := make(map[string]int, len(entries))
	for i, e := range entries {
		e.Looter = strings.TrimSpace(e.Looter)
		e.ItemName = strings.TrimSpace(e.ItemName)
		id := strings.TrimSpace(e.ID)
		if _, err := uuid.Parse(id); err != nil || id == "" {
			id = uuid.NewString()
		}
		if _, dup := byID[id]; dup {
			id = uuid.NewString()
		}
		e.ID = id
		byID[id] = i
		next[i] = e
	}

	s.mu.Lock()
	s.entries = next
	s.byID = byID
	s.mu.Unlock()

	return append([]Entry(nil), next...)
}

// Patch sets recipient and distributed on the referenced entry. An unknown id
// or out-of-range index is ignored and reported with ok=false.
func (s *State) Patch(ref Ref, recipient string, distributed bool) (PatchResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.resolveLocked(ref)
	if !ok {
		return PatchResult{}, false
	}
	e := &s.entries[idx]
	wasDistributed := e.Distributed
	e.Recipient = strings.TrimSpace(recipient)
	e.Distributed = distributed

	return PatchResult{
		Entry:     *e,
		Index:     idx,
		Finalized: !wasDistributed && e.Distributed && e.Recipient != "",
	}, true
}

// Snapshot returns a copy of the current list.
func (s *State) Snapshot() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Entry(nil), s.entries...)
}

func (s *State) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *State) resolveLocked(ref Ref) (int, bool) {
	if id := strings.TrimSpace(ref.ID); id != "" {
		idx, ok := s.byID[id]
		return idx, ok
	}
	if ref.Index < 0 || ref.Index >= len(s.entries) {
		return 0, false
	}
	return ref.Index, true
}
