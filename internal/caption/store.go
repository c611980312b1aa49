package caption

import "sync"

// defaultStoreSize is the default number of committed segments retained for
// display.
const defaultStoreSize = 6

// Store retains the most recent committed segments in sequence order,
// pruning the oldest once the configured size is exceeded. Translations
// arriving asynchronously are attached by sequence number; a translation for
// an already-pruned segment is dropped.
//
// All methods are safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	segments []Segment
	maxSize  int
}

// NewStore creates a store that retains at most maxSize segments. A
// non-positive maxSize selects the default of 6.
func NewStore(maxSize int) *Store {
	if maxSize <= 0 {
		maxSize = defaultStoreSize
	}
	return &Store{
		segments: make([]Segment, 0, maxSize),
		maxSize:  maxSize,
	}
}

// Add appends a committed segment and prunes by sequence so that at most
// maxSize segments remain.
func (s *Store) Add(seg Segment) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.segments = append(s.segments, seg)
	if len(s.segments) > s.maxSize {
		keep := s.segments[len(s.segments)-s.maxSize:]
		// Copy to a fresh slice so pruned segments can be garbage collected.
		fresh := make([]Segment, len(keep), s.maxSize)
		copy(fresh, keep)
		s.segments = fresh
	}
}

// SetTranslation attaches translated to the segment with the given sequence
// number. Returns false if the segment has been pruned.
func (s *Store) SetTranslation(sequence int, translated string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.segments {
		if s.segments[i].Sequence == sequence {
			s.segments[i].TranslatedText = translated
			return true
		}
	}
	return false
}

// Window returns the retained segments in sequence order (oldest first).
func (s *Store) Window() []Segment {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Segment, len(s.segments))
	copy(out, s.segments)
	return out
}

// Len returns the number of retained segments.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.segments)
}

// Clear drops all retained segments. Sequence numbering is unaffected — it
// belongs to the segmenter, not the display store.
func (s *Store) Clear() {
	s.mu.Lock()
	s.segments = s.segments[:0]
	s.mu.Unlock()
}
