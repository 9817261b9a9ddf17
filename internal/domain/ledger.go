package domain

import (
	"sync"
)

// Ledger is the in-memory fact collection for one project session. It is the
// explicit owner of the "current citations" state: reads return copies of an
// immutable snapshot, writes replace the snapshot under a lock. Push-feed
// handlers call Upsert from the event loop; they never trigger synthesis.
type Ledger struct {
	mu        sync.RWMutex
	projectID string
	citations []*Citation
}

// NewLedger creates a ledger seeded with an initial citation set
func NewLedger(projectID string, citations []*Citation) *Ledger {
	l := &Ledger{projectID: projectID}
	l.citations = append(l.citations, citations...)
	return l
}

// ProjectID returns the owning project
func (l *Ledger) ProjectID() string {
	return l.projectID
}

// Snapshot returns an immutable view of the current citation set. The
// normalizer and synthesizer operate on snapshots, never on the live ledger.
func (l *Ledger) Snapshot() *Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*Citation, len(l.citations))
	copy(out, l.citations)
	return &Snapshot{citations: out}
}

// All returns the citations in insertion order
func (l *Ledger) All() []*Citation {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*Citation, len(l.citations))
	copy(out, l.citations)
	return out
}

// Get returns the single citation of the given type, or nil. For
// multi-instance types use GetKeyed.
func (l *Ledger) Get(citeType CiteType) *Citation {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, c := range l.citations {
		if c.CiteType == citeType {
			return c
		}
	}
	return nil
}

// GetKeyed returns the citation of a multi-instance type with the given
// instance key, or nil.
func (l *Ledger) GetKeyed(citeType CiteType, key string) *Citation {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, c := range l.citations {
		if c.CiteType == citeType && c.InstanceKey() == key {
			return c
		}
	}
	return nil
}

// GetByID returns the citation with the given id, or nil
func (l *Ledger) GetByID(id string) *Citation {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, c := range l.citations {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// Upsert inserts the citation or replaces the existing one for its slot.
// Single-instance types match on cite_type, multi-instance types on
// (cite_type, instance key). Returns true if a new citation was inserted.
func (l *Ledger) Upsert(c *Citation) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, existing := range l.citations {
		if existing.CiteType != c.CiteType {
			continue
		}
		if c.CiteType.MultiInstance() && existing.InstanceKey() != c.InstanceKey() {
			continue
		}
		l.citations[i] = c
		return false
	}
	l.citations = append(l.citations, c)
	return true
}

// UpsertByID replaces the citation with the same id or appends. Used by the
// push feed to mirror remote writes.
func (l *Ledger) UpsertByID(c *Citation) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, existing := range l.citations {
		if existing.ID == c.ID {
			l.citations[i] = c
			return
		}
	}
	l.citations = append(l.citations, c)
}

// UpdateByID applies an edit to the citation with the given id
func (l *Ledger) UpdateByID(id, answer string, value interface{}) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, c := range l.citations {
		if c.ID == id {
			c.Edit(answer, value)
			return nil
		}
	}
	return ErrCitationNotFound
}

// Snapshot is an immutable view of a ledger used by the pure transforms
type Snapshot struct {
	citations []*Citation
}

// NewSnapshot builds a snapshot from a citation list
func NewSnapshot(citations []*Citation) *Snapshot {
	out := make([]*Citation, len(citations))
	copy(out, citations)
	return &Snapshot{citations: out}
}

// All returns the citations in order
func (s *Snapshot) All() []*Citation {
	out := make([]*Citation, len(s.citations))
	copy(out, s.citations)
	return out
}

// Has reports whether a citation of the type exists
func (s *Snapshot) Has(citeType CiteType) bool {
	return s.Get(citeType) != nil
}

// HasKeyed reports whether a multi-instance citation with the key exists
func (s *Snapshot) HasKeyed(citeType CiteType, key string) bool {
	for _, c := range s.citations {
		if c.CiteType == citeType && c.InstanceKey() == key {
			return true
		}
	}
	return false
}

// Get returns the first citation of the type, or nil
func (s *Snapshot) Get(citeType CiteType) *Citation {
	for _, c := range s.citations {
		if c.CiteType == citeType {
			return c
		}
	}
	return nil
}

// With returns a new snapshot extended with the citation
func (s *Snapshot) With(c *Citation) *Snapshot {
	out := make([]*Citation, 0, len(s.citations)+1)
	out = append(out, s.citations...)
	out = append(out, c)
	return &Snapshot{citations: out}
}

// Len returns the citation count
func (s *Snapshot) Len() int {
	return len(s.citations)
}
