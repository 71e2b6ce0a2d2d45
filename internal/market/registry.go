// Package market provides the in-memory instrument registry: the latest
// accepted quote and metadata per strain.
package market

import (
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/justinhartfield/weed-stock-exchange-game/internal/domain"
)

// Registry holds the latest known quote per strain. Snapshot loads replace
// the full content; deltas overwrite single entries last-write-wins. Only a
// snapshot may introduce a new strain - deltas for unknown ids are ignored so
// the registry never grows phantom instruments client-side.
type Registry struct {
	mu      sync.RWMutex
	strains map[int64]domain.Strain
	order   []int64 // snapshot listing order, for stable List output
	version uint64
	log     zerolog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(log zerolog.Logger) *Registry {
	return &Registry{
		strains: make(map[int64]domain.Strain),
		log:     log.With().Str("component", "registry").Logger(),
	}
}

// LoadSnapshot replaces the full registry content with the given listing.
// Strains previously known but absent from the snapshot are dropped: the
// registry reflects exactly the latest authoritative listing. Entries with a
// negative price are skipped.
func (r *Registry) LoadSnapshot(strains []domain.Strain) {
	next := make(map[int64]domain.Strain, len(strains))
	order := make([]int64, 0, len(strains))
	for _, s := range strains {
		if s.Price.IsNegative() {
			r.log.Warn().Int64("strain_id", s.ID).Str("price", s.Price.String()).Msg("Skipping snapshot entry with negative price")
			continue
		}
		if _, dup := next[s.ID]; !dup {
			order = append(order, s.ID)
		}
		next[s.ID] = s
	}

	r.mu.Lock()
	r.strains = next
	r.order = order
	r.version++
	r.mu.Unlock()

	r.log.Debug().Int("strain_count", len(next)).Msg("Snapshot loaded into registry")
}

// ApplyDelta overwrites a strain's price and change percentage with the newest
// values. No ordering token is available from the transport, so the registry
// adopts last-write-wins and trusts in-order delivery within one connection.
// Returns false when the delta was ignored (unknown strain or negative price).
func (r *Registry) ApplyDelta(quote domain.Quote) bool {
	if quote.Price.IsNegative() {
		r.log.Warn().Int64("strain_id", quote.StrainID).Str("price", quote.Price.String()).Msg("Ignoring delta with negative price")
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.strains[quote.StrainID]
	if !ok {
		r.log.Debug().Int64("strain_id", quote.StrainID).Msg("Ignoring delta for unknown strain")
		return false
	}

	s.Price = quote.Price
	s.Change24h = quote.ChangePct
	r.strains[quote.StrainID] = s
	r.version++
	return true
}

// Get returns the strain by id.
func (r *Registry) Get(strainID int64) (domain.Strain, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.strains[strainID]
	return s, ok
}

// List returns all strains in snapshot listing order. Callers re-sort as needed.
func (r *Registry) List() []domain.Strain {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Strain, 0, len(r.strains))
	for _, id := range r.order {
		if s, ok := r.strains[id]; ok {
			result = append(result, s)
		}
	}
	// order and strains are kept in lockstep, but guard against drift
	if len(result) != len(r.strains) {
		result = result[:0]
		for _, s := range r.strains {
			result = append(result, s)
		}
		sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	}
	return result
}

// Len returns the number of known strains.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.strains)
}

// Version returns a counter bumped on every accepted mutation. Observers may
// use it to memoize derived views.
func (r *Registry) Version() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.version
}
