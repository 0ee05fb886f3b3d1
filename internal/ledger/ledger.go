package ledger

import (
	"sort"
	"sync"

	"genassist/internal/domain"
)

// Ledger maps job identity to the current job record. It is the only shared
// resource between the presentation layer and the per-job poll loops; all
// mutations to a record funnel through Put.
type Ledger interface {
	Put(job domain.Job) error
	Get(id string) (domain.Job, bool)
	List() []domain.Job
}

// MemoryLedger keeps job records in process memory.
type MemoryLedger struct {
	mu   sync.RWMutex
	jobs map[string]domain.Job
}

// NewMemoryLedger creates an empty ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{jobs: make(map[string]domain.Job)}
}

// Put stores the record, replacing any previous revision.
func (l *MemoryLedger) Put(job domain.Job) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.jobs[job.ID] = job
	return nil
}

// Get returns a copy of the record for id.
func (l *MemoryLedger) Get(id string) (domain.Job, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	job, ok := l.jobs[id]
	return job, ok
}

// List returns all records, newest submission first.
func (l *MemoryLedger) List() []domain.Job {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]domain.Job, 0, len(l.jobs))
	for _, job := range l.jobs {
		out = append(out, job)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SubmittedAt.Equal(out[j].SubmittedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].SubmittedAt.After(out[j].SubmittedAt)
	})
	return out
}

var _ Ledger = (*MemoryLedger)(nil)
