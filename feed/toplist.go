package feed

import "sync"

// TopList is a thread-safe ordered list of story IDs for one feed.
// The model sets it after each successful id fetch; the API pages through it.
type TopList struct {
	mu  sync.RWMutex
	ids []int
}

func NewTopList() *TopList {
	return &TopList{}
}

// Set replaces the entire list. A nil or empty slice clears it.
func (t *TopList) Set(ids []int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(ids) == 0 {
		t.ids = nil
		return
	}
	t.ids = make([]int, len(ids))
	copy(t.ids, ids)
}

// IDs returns a copy of the list.
func (t *TopList) IDs() []int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.ids == nil {
		return nil
	}
	out := make([]int, len(t.ids))
	copy(out, t.ids)
	return out
}

// Page returns a slice of IDs for the given page (1-indexed) and page size,
// along with the total number of IDs.
func (t *TopList) Page(page, pageSize int) ([]int, int) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	total := len(t.ids)
	if total == 0 || page < 1 || pageSize < 1 {
		return nil, total
	}

	offset := (page - 1) * pageSize
	if offset >= total {
		return nil, total
	}
	end := min(offset+pageSize, total)

	result := make([]int, end-offset)
	copy(result, t.ids[offset:end])
	return result, total
}

// Index returns the 0-based position of id, or -1.
func (t *TopList) Index(id int) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for i, v := range t.ids {
		if v == id {
			return i
		}
	}
	return -1
}

func (t *TopList) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.ids)
}
