package resonance

import (
	"slices"
	"strings"
	"sync"
)

// promptStore is a client's in-memory mirror of the deployed catalog, keyed
// by prompt id. Mutations arrive only from the sync loop; reads may come
// from any goroutine.
type promptStore struct {
	mu      sync.RWMutex
	prompts map[string]Prompt
}

func newPromptStore() *promptStore {
	return &promptStore{prompts: make(map[string]Prompt)}
}

// upsert inserts p, or replaces the record with the same id in full.
func (s *promptStore) upsert(p Prompt) {
	s.mu.Lock()
	s.prompts[p.ID] = p
	s.mu.Unlock()
}

// removeWhere deletes every record whose id satisfies pred and returns the
// number deleted. Ids with no record simply never match, so removing an
// absent id is a no-op.
func (s *promptStore) removeWhere(pred func(id string) bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int
	for id := range s.prompts {
		if pred(id) {
			delete(s.prompts, id)
			n++
		}
	}
	return n
}

// reconcile mirrors the store to records: afterwards it holds exactly the
// ids listed, with the later occurrence winning when records repeats an id.
// The replacement map is built outside the lock and swapped in whole, so
// readers see either the previous catalog or the new one, never a half
// applied snapshot.
func (s *promptStore) reconcile(records []Prompt) (total, removed int) {
	next := make(map[string]Prompt, len(records))
	for _, p := range records {
		next[p.ID] = p
	}
	s.mu.Lock()
	prev := s.prompts
	s.prompts = next
	s.mu.Unlock()
	for id := range prev {
		if _, ok := next[id]; !ok {
			removed++
		}
	}
	return len(next), removed
}

// get returns the record with the given id.
func (s *promptStore) get(id string) (Prompt, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.prompts[id]
	return p, ok
}

// find returns every record matching f, sorted by id. Map iteration order is
// randomized, so the sort is what keeps results stable across calls against
// an unchanged store.
func (s *promptStore) find(f Filter) []Prompt {
	s.mu.RLock()
	out := make([]Prompt, 0, len(s.prompts))
	for _, p := range s.prompts {
		if f.matches(p) {
			out = append(out, p)
		}
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b Prompt) int {
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

// findOne returns the first record matching f in id order.
func (s *promptStore) findOne(f Filter) (Prompt, bool) {
	matches := s.find(f)
	if len(matches) == 0 {
		return Prompt{}, false
	}
	return matches[0], true
}

// count returns the number of records currently mirrored.
func (s *promptStore) count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.prompts)
}
