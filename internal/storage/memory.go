package storage

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/imovel-limpo/engine/internal/domain"
)

// MemoryStore keeps analyses in memory, newest first. Suited to tests and
// single-shot CLI runs; nothing survives the process.
type MemoryStore struct {
	mu       sync.RWMutex
	analyses []domain.StoredAnalysis

	now   func() time.Time
	newID func() string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		now:   time.Now,
		newID: uuid.NewString,
	}
}

func (s *MemoryStore) Save(ctx context.Context, report *domain.AnalysisReport, opts SaveOptions) (*domain.StoredAnalysis, error) {
	now := s.now()
	stored := domain.StoredAnalysis{
		ID:        s.newID(),
		CreatedAt: now,
		UpdatedAt: now,
		Report:    *report,
		Broker:    opts.Broker,
		Client:    opts.Client,
		Notes:     opts.Notes,
		Tags:      opts.Tags,
	}

	s.mu.Lock()
	s.analyses = append([]domain.StoredAnalysis{stored}, s.analyses...)
	s.mu.Unlock()

	return &stored, nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*domain.StoredAnalysis, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.analyses {
		if s.analyses[i].ID == id {
			a := s.analyses[i]
			return &a, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) List(ctx context.Context) ([]domain.StoredAnalysis, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.StoredAnalysis, len(s.analyses))
	copy(out, s.analyses)
	return out, nil
}

func (s *MemoryStore) Filter(ctx context.Context, filters domain.AnalysisFilters) ([]domain.StoredAnalysis, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []domain.StoredAnalysis{}
	for i := range s.analyses {
		if matchesFilters(&s.analyses[i], filters) {
			out = append(out, s.analyses[i])
		}
	}
	return out, nil
}

func (s *MemoryStore) Update(ctx context.Context, id string, opts UpdateOptions) (*domain.StoredAnalysis, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.analyses {
		if s.analyses[i].ID == id {
			applyUpdate(&s.analyses[i], opts, s.now())
			a := s.analyses[i]
			return &a, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.analyses {
		if s.analyses[i].ID == id {
			s.analyses = append(s.analyses[:i], s.analyses[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (s *MemoryStore) ToggleFavorite(ctx context.Context, id string) (*domain.StoredAnalysis, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.analyses {
		if s.analyses[i].ID == id {
			s.analyses[i].Favorite = !s.analyses[i].Favorite
			s.analyses[i].UpdatedAt = s.now()
			a := s.analyses[i]
			return &a, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) Stats(ctx context.Context) (*domain.AnalysisStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return computeStats(s.analyses, s.now()), nil
}

func (s *MemoryStore) ExportJSON(ctx context.Context) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return json.MarshalIndent(s.analyses, "", "  ")
}

// ImportJSON merges exported analyses into the store, skipping IDs already
// present. It returns the number actually added.
func (s *MemoryStore) ImportJSON(ctx context.Context, data []byte) (int, error) {
	var incoming []domain.StoredAnalysis
	if err := json.Unmarshal(data, &incoming); err != nil {
		return 0, domain.StorageError("Arquivo de importação inválido.", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing := make(map[string]bool, len(s.analyses))
	for i := range s.analyses {
		existing[s.analyses[i].ID] = true
	}

	added := 0
	for _, a := range incoming {
		if a.ID == "" || existing[a.ID] {
			continue
		}
		s.analyses = append(s.analyses, a)
		existing[a.ID] = true
		added++
	}

	// Restore newest-first order after the merge.
	sortNewestFirst(s.analyses)
	return added, nil
}

func (s *MemoryStore) Close() error {
	return nil
}

func sortNewestFirst(analyses []domain.StoredAnalysis) {
	sort.SliceStable(analyses, func(i, j int) bool {
		return analyses[i].CreatedAt.After(analyses[j].CreatedAt)
	})
}
