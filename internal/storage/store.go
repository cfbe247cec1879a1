// Package storage persists finished analyses with their workspace metadata
// (broker, client, notes, tags, favorite flag) and answers the dashboard
// queries over them.
package storage

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/imovel-limpo/engine/internal/domain"
)

// ErrNotFound is returned when no stored analysis has the requested ID.
var ErrNotFound = errors.New("analysis not found")

// SaveOptions carries the workspace metadata attached at save time.
type SaveOptions struct {
	Broker *domain.Contact
	Client *domain.Contact
	Notes  string
	Tags   []string
}

// UpdateOptions describes a partial metadata update. Nil fields keep the
// stored value.
type UpdateOptions struct {
	Broker *domain.Contact
	Client *domain.Contact
	Notes  *string
	Tags   []string
}

// Store persists analyses. List and Filter return newest first.
type Store interface {
	Save(ctx context.Context, report *domain.AnalysisReport, opts SaveOptions) (*domain.StoredAnalysis, error)
	Get(ctx context.Context, id string) (*domain.StoredAnalysis, error)
	List(ctx context.Context) ([]domain.StoredAnalysis, error)
	Filter(ctx context.Context, filters domain.AnalysisFilters) ([]domain.StoredAnalysis, error)
	Update(ctx context.Context, id string, opts UpdateOptions) (*domain.StoredAnalysis, error)
	Delete(ctx context.Context, id string) error
	ToggleFavorite(ctx context.Context, id string) (*domain.StoredAnalysis, error)
	Stats(ctx context.Context) (*domain.AnalysisStats, error)
	ExportJSON(ctx context.Context) ([]byte, error)
	ImportJSON(ctx context.Context, data []byte) (int, error)
	Close() error
}

// matchesFilters applies every set filter; an analysis must satisfy all of
// them. The search term is matched case-insensitively against the
// registration number, address, owner names and broker name.
func matchesFilters(a *domain.StoredAnalysis, f domain.AnalysisFilters) bool {
	if f.Search != "" && !matchesSearch(a, f.Search) {
		return false
	}
	if f.Classification != "" && a.Report.Classification != f.Classification {
		return false
	}
	if !f.DateFrom.IsZero() && a.CreatedAt.Before(f.DateFrom) {
		return false
	}
	if !f.DateTo.IsZero() && a.CreatedAt.After(f.DateTo) {
		return false
	}
	if f.Broker != "" {
		if a.Broker == nil || !containsFold(a.Broker.Name, f.Broker) {
			return false
		}
	}
	if f.FavoritesOnly && !a.Favorite {
		return false
	}
	return true
}

func matchesSearch(a *domain.StoredAnalysis, term string) bool {
	if containsFold(a.Report.Property.RegistrationNumber, term) ||
		containsFold(a.Report.Property.Address, term) {
		return true
	}
	for _, p := range a.Report.Parties {
		if containsFold(p.Name, term) {
			return true
		}
	}
	return a.Broker != nil && containsFold(a.Broker.Name, term)
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// computeStats aggregates the full set of stored analyses.
func computeStats(analyses []domain.StoredAnalysis, now time.Time) *domain.AnalysisStats {
	stats := &domain.AnalysisStats{Total: len(analyses)}
	weekAgo := now.AddDate(0, 0, -7)
	monthAgo := now.AddDate(0, 0, -30)

	for _, a := range analyses {
		switch a.Report.Classification {
		case domain.ClassificationClean:
			stats.Clean++
		case domain.ClassificationCaution:
			stats.Caution++
		case domain.ClassificationPending:
			stats.Pending++
		}
		if a.Favorite {
			stats.Favorites++
		}
		if a.CreatedAt.After(weekAgo) {
			stats.LastWeek++
		}
		if a.CreatedAt.After(monthAgo) {
			stats.LastMonth++
		}
	}

	if stats.Total > 0 {
		stats.ApprovalRate = int(float64(stats.Clean)/float64(stats.Total)*100 + 0.5)
	}
	return stats
}

// applyUpdate merges a partial metadata update into a stored analysis.
func applyUpdate(a *domain.StoredAnalysis, opts UpdateOptions, now time.Time) {
	if opts.Broker != nil {
		a.Broker = opts.Broker
	}
	if opts.Client != nil {
		a.Client = opts.Client
	}
	if opts.Notes != nil {
		a.Notes = *opts.Notes
	}
	if opts.Tags != nil {
		a.Tags = opts.Tags
	}
	a.UpdatedAt = now
}
