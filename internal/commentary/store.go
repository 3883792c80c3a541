// Package commentary keeps the session's analysis records and builds prompts.
package commentary

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type Kind string

const (
	KindPage       Kind = "page"
	KindSelection  Kind = "selection"
	KindQuestion   Kind = "question"
	KindDefinition Kind = "definition"
)

func (k Kind) Label() string {
	switch k {
	case KindPage:
		return "Page Analysis"
	case KindSelection:
		return "Selected Text"
	case KindQuestion:
		return "Question"
	case KindDefinition:
		return "Definition"
	default:
		return string(k)
	}
}

// Record is one successful response. Records are never edited.
type Record struct {
	ID        string
	Kind      Kind
	Page      int
	Selection string
	Question  string
	Response  string
	CreatedAt time.Time
}

// NewRecord stamps a record with a fresh ID and the current time.
func NewRecord(kind Kind, page int, response string) Record {
	return Record{
		ID:        uuid.NewString(),
		Kind:      kind,
		Page:      page,
		Response:  response,
		CreatedAt: time.Now(),
	}
}

// Store is an append-only, session-scoped list of records.
type Store struct {
	mu      sync.RWMutex
	records []Record
}

func NewStore() *Store {
	return &Store{}
}

func (s *Store) Append(r Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, r)
}

// ForPage returns copies of the records for page, in insertion order.
func (s *Store) ForPage(page int) []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Record
	for _, r := range s.records {
		if r.Page == page {
			out = append(out, r)
		}
	}
	return out
}

func (s *Store) All() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Record(nil), s.records...)
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// HasPageAnalysis reports whether page already has a whole-page record.
func (s *Store) HasPageAnalysis(page int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.records {
		if r.Page == page && r.Kind == KindPage {
			return true
		}
	}
	return false
}
