package engine

import (
	"context"
	"sync"

	"github.com/josequispe9/ScraperMELI-Linkedin/models"
)

// acceptedSet is the run-wide, de-duplicated record set. Records keep merge
// order. Reaching the cap cancels the run.
type acceptedSet struct {
	mu         sync.Mutex
	keys       map[string]struct{}
	records    []models.Record
	perTerm    map[string]int
	limit      int
	capReached bool
	onFull     context.CancelFunc
}

func newAcceptedSet(limit int, onFull context.CancelFunc) *acceptedSet {
	return &acceptedSet{
		keys:    make(map[string]struct{}),
		perTerm: make(map[string]int),
		limit:   limit,
		onFull:  onFull,
	}
}

// merge adds the records whose keys are new and returns how many were added.
func (a *acceptedSet) merge(term string, recs []models.Record) int {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.perTerm[term]; !ok {
		a.perTerm[term] = 0
	}
	added := 0
	for _, r := range recs {
		if a.limit > 0 && len(a.records) >= a.limit {
			break
		}
		k := r.Key()
		if _, dup := a.keys[k]; dup {
			continue
		}
		a.keys[k] = struct{}{}
		a.records = append(a.records, r)
		a.perTerm[term]++
		added++
	}
	if a.limit > 0 && len(a.records) >= a.limit && !a.capReached {
		a.capReached = true
		if a.onFull != nil {
			a.onFull()
		}
	}
	return added
}

func (a *acceptedSet) full() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.capReached
}

func (a *acceptedSet) snapshot() ([]models.Record, map[string]int, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	perTerm := make(map[string]int, len(a.perTerm))
	for k, v := range a.perTerm {
		perTerm[k] = v
	}
	return append([]models.Record(nil), a.records...), perTerm, a.capReached
}
