package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imovel-limpo/engine/internal/domain"
)

func newClockedStore() (*MemoryStore, *time.Time) {
	now := time.Date(2026, 2, 20, 12, 0, 0, 0, time.UTC)
	s := NewMemoryStore()
	s.now = func() time.Time { return now }
	id := 0
	s.newID = func() string {
		id++
		return fmt.Sprintf("id-%d", id)
	}
	return s, &now
}

func sampleReport(registration string, classification domain.Classification) *domain.AnalysisReport {
	return &domain.AnalysisReport{
		Property: domain.PropertySummary{
			RegistrationNumber: registration,
			Address:            "Rua das Flores, 100",
		},
		Parties: []domain.Party{
			{Name: "Maria Silva", TaxID: "12345678901", Kind: domain.PartyIndividual},
		},
		Classification: classification,
	}
}

func TestMemoryStoreSaveAndGet(t *testing.T) {
	s, _ := newClockedStore()
	ctx := context.Background()

	saved, err := s.Save(ctx, sampleReport("12.345", domain.ClassificationClean), SaveOptions{
		Broker: &domain.Contact{Name: "Carlos Corretor"},
		Notes:  "cliente com pressa",
		Tags:   []string{"urgente"},
	})
	require.NoError(t, err)
	assert.Equal(t, "id-1", saved.ID)

	got, err := s.Get(ctx, "id-1")
	require.NoError(t, err)
	assert.Equal(t, "12.345", got.Report.Property.RegistrationNumber)
	assert.Equal(t, "Carlos Corretor", got.Broker.Name)
	assert.Equal(t, "cliente com pressa", got.Notes)
}

func TestMemoryStoreGetMissing(t *testing.T) {
	s, _ := newClockedStore()
	_, err := s.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreListNewestFirst(t *testing.T) {
	s, now := newClockedStore()
	ctx := context.Background()

	s.Save(ctx, sampleReport("1", domain.ClassificationClean), SaveOptions{})
	*now = now.Add(time.Hour)
	s.Save(ctx, sampleReport("2", domain.ClassificationClean), SaveOptions{})

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "2", list[0].Report.Property.RegistrationNumber)
	assert.Equal(t, "1", list[1].Report.Property.RegistrationNumber)
}

func TestMemoryStoreFilter(t *testing.T) {
	s, now := newClockedStore()
	ctx := context.Background()

	s.Save(ctx, sampleReport("12.345", domain.ClassificationClean), SaveOptions{
		Broker: &domain.Contact{Name: "Carlos Corretor"},
	})
	*now = now.Add(time.Hour)
	s.Save(ctx, sampleReport("98.765", domain.ClassificationPending), SaveOptions{})
	s.ToggleFavorite(ctx, "id-1")

	tests := []struct {
		name    string
		filters domain.AnalysisFilters
		wantIDs []string
	}{
		{"no filters", domain.AnalysisFilters{}, []string{"id-2", "id-1"}},
		{"by classification", domain.AnalysisFilters{Classification: domain.ClassificationPending}, []string{"id-2"}},
		{"by registration search", domain.AnalysisFilters{Search: "12.3"}, []string{"id-1"}},
		{"by owner search", domain.AnalysisFilters{Search: "maria"}, []string{"id-2", "id-1"}},
		{"by broker", domain.AnalysisFilters{Broker: "carlos"}, []string{"id-1"}},
		{"favorites only", domain.AnalysisFilters{FavoritesOnly: true}, []string{"id-1"}},
		{"date from excludes older", domain.AnalysisFilters{DateFrom: now.Add(-30 * time.Minute)}, []string{"id-2"}},
		{"no match", domain.AnalysisFilters{Search: "inexistente"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Filter(ctx, tt.filters)
			require.NoError(t, err)
			var ids []string
			for _, a := range got {
				ids = append(ids, a.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestMemoryStoreUpdate(t *testing.T) {
	s, _ := newClockedStore()
	ctx := context.Background()
	s.Save(ctx, sampleReport("1", domain.ClassificationClean), SaveOptions{Notes: "original"})

	notes := "atualizado"
	updated, err := s.Update(ctx, "id-1", UpdateOptions{
		Notes: &notes,
		Tags:  []string{"vip"},
	})
	require.NoError(t, err)
	assert.Equal(t, "atualizado", updated.Notes)
	assert.Equal(t, []string{"vip"}, updated.Tags)

	// Unset fields keep their stored values.
	updated, err = s.Update(ctx, "id-1", UpdateOptions{})
	require.NoError(t, err)
	assert.Equal(t, "atualizado", updated.Notes)

	_, err = s.Update(ctx, "missing", UpdateOptions{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreDelete(t *testing.T) {
	s, _ := newClockedStore()
	ctx := context.Background()
	s.Save(ctx, sampleReport("1", domain.ClassificationClean), SaveOptions{})

	require.NoError(t, s.Delete(ctx, "id-1"))
	_, err := s.Get(ctx, "id-1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, "id-1"), ErrNotFound)
}

func TestMemoryStoreToggleFavorite(t *testing.T) {
	s, _ := newClockedStore()
	ctx := context.Background()
	s.Save(ctx, sampleReport("1", domain.ClassificationClean), SaveOptions{})

	a, err := s.ToggleFavorite(ctx, "id-1")
	require.NoError(t, err)
	assert.True(t, a.Favorite)

	a, err = s.ToggleFavorite(ctx, "id-1")
	require.NoError(t, err)
	assert.False(t, a.Favorite)
}

func TestMemoryStoreStats(t *testing.T) {
	s, now := newClockedStore()
	ctx := context.Background()

	// Two clean, one pending; one of them old.
	s.Save(ctx, sampleReport("1", domain.ClassificationClean), SaveOptions{})
	s.Save(ctx, sampleReport("2", domain.ClassificationClean), SaveOptions{})
	s.Save(ctx, sampleReport("3", domain.ClassificationPending), SaveOptions{})
	s.ToggleFavorite(ctx, "id-1")
	*now = now.Add(10 * 24 * time.Hour)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.Clean)
	assert.Equal(t, 1, stats.Pending)
	assert.Equal(t, 1, stats.Favorites)
	assert.Equal(t, 0, stats.LastWeek)
	assert.Equal(t, 3, stats.LastMonth)
	assert.Equal(t, 67, stats.ApprovalRate)
}

func TestMemoryStoreExportImportRoundTrip(t *testing.T) {
	s, now := newClockedStore()
	ctx := context.Background()

	s.Save(ctx, sampleReport("1", domain.ClassificationClean), SaveOptions{})
	*now = now.Add(time.Hour)
	s.Save(ctx, sampleReport("2", domain.ClassificationPending), SaveOptions{})

	data, err := s.ExportJSON(ctx)
	require.NoError(t, err)
	require.True(t, json.Valid(data))

	// Importing into a store that already has one of the IDs adds only the
	// missing analysis.
	dst, _ := newClockedStore()
	dst.Save(ctx, sampleReport("x", domain.ClassificationClean), SaveOptions{}) // takes id-1

	added, err := dst.ImportJSON(ctx, data)
	require.NoError(t, err)
	assert.Equal(t, 1, added)

	list, err := dst.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestMemoryStoreImportRejectsGarbage(t *testing.T) {
	s, _ := newClockedStore()
	_, err := s.ImportJSON(context.Background(), []byte("not json"))
	require.Error(t, err)
	assert.Equal(t, domain.ErrorTypeStorage, domain.TypeOf(err))
}
