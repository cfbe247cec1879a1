package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/imovel-limpo/engine/internal/domain"
	"github.com/imovel-limpo/engine/internal/observability"
)

const schema = `
CREATE TABLE IF NOT EXISTS analyses (
	id         TEXT PRIMARY KEY,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL,
	favorite   BOOLEAN   NOT NULL DEFAULT FALSE,
	payload    TEXT      NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_analyses_created_at ON analyses (created_at DESC);
`

// SQLStore persists analyses in a relational database. The report and its
// metadata travel as one JSON payload; only the columns the queries order or
// index by are broken out.
type SQLStore struct {
	db     *sql.DB
	driver string
	logger *observability.Logger

	now   func() time.Time
	newID func() string
}

// NewSQLStore opens the database and ensures the schema. driver is either
// "sqlite3" or "postgres"; maxOpenConns of zero keeps the driver default.
func NewSQLStore(driver, dsn string, maxOpenConns int, logger *observability.Logger) (*SQLStore, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, domain.StorageError("Erro ao abrir banco de dados.", err)
	}
	if maxOpenConns > 0 {
		db.SetMaxOpenConns(maxOpenConns)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, domain.StorageError("Erro ao preparar banco de dados.", err)
	}

	return &SQLStore{
		db:     db,
		driver: driver,
		logger: logger.WithComponent("sql-store"),
		now:    time.Now,
		newID:  uuid.NewString,
	}, nil
}

// rebind rewrites ? placeholders to $n for postgres.
func (s *SQLStore) rebind(query string) string {
	if s.driver != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *SQLStore) Save(ctx context.Context, report *domain.AnalysisReport, opts SaveOptions) (*domain.StoredAnalysis, error) {
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

	if err := s.insert(ctx, &stored); err != nil {
		return nil, err
	}
	return &stored, nil
}

func (s *SQLStore) insert(ctx context.Context, stored *domain.StoredAnalysis) error {
	payload, err := json.Marshal(stored)
	if err != nil {
		return domain.StorageError("Erro ao serializar análise.", err)
	}

	_, err = s.db.ExecContext(ctx,
		s.rebind(`INSERT INTO analyses (id, created_at, updated_at, favorite, payload) VALUES (?, ?, ?, ?, ?)`),
		stored.ID, stored.CreatedAt, stored.UpdatedAt, stored.Favorite, string(payload))
	if err != nil {
		return domain.StorageError("Erro ao salvar análise.", err)
	}
	return nil
}

func (s *SQLStore) Get(ctx context.Context, id string) (*domain.StoredAnalysis, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		s.rebind(`SELECT payload FROM analyses WHERE id = ?`), id).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, domain.StorageError("Erro ao consultar análise.", err)
	}
	return decodeStored(payload)
}

func (s *SQLStore) List(ctx context.Context) ([]domain.StoredAnalysis, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT payload FROM analyses ORDER BY created_at DESC`)
	if err != nil {
		return nil, domain.StorageError("Erro ao listar análises.", err)
	}
	defer rows.Close()

	var out []domain.StoredAnalysis
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, domain.StorageError("Erro ao ler análise.", err)
		}
		a, err := decodeStored(payload)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.StorageError("Erro ao listar análises.", err)
	}
	return out, nil
}

// Filter loads the full set and filters in process. The workspace holds at
// most a few thousand analyses, and the search semantics (case-insensitive
// match across fields inside the JSON payload) would not be portable SQL.
func (s *SQLStore) Filter(ctx context.Context, filters domain.AnalysisFilters) ([]domain.StoredAnalysis, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	out := []domain.StoredAnalysis{}
	for i := range all {
		if matchesFilters(&all[i], filters) {
			out = append(out, all[i])
		}
	}
	return out, nil
}

func (s *SQLStore) Update(ctx context.Context, id string, opts UpdateOptions) (*domain.StoredAnalysis, error) {
	a, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	applyUpdate(a, opts, s.now())
	if err := s.replace(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *SQLStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		s.rebind(`DELETE FROM analyses WHERE id = ?`), id)
	if err != nil {
		return domain.StorageError("Erro ao excluir análise.", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLStore) ToggleFavorite(ctx context.Context, id string) (*domain.StoredAnalysis, error) {
	a, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	a.Favorite = !a.Favorite
	a.UpdatedAt = s.now()
	if err := s.replace(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *SQLStore) replace(ctx context.Context, a *domain.StoredAnalysis) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return domain.StorageError("Erro ao serializar análise.", err)
	}

	res, err := s.db.ExecContext(ctx,
		s.rebind(`UPDATE analyses SET updated_at = ?, favorite = ?, payload = ? WHERE id = ?`),
		a.UpdatedAt, a.Favorite, string(payload), a.ID)
	if err != nil {
		return domain.StorageError("Erro ao atualizar análise.", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLStore) Stats(ctx context.Context) (*domain.AnalysisStats, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return computeStats(all, s.now()), nil
}

func (s *SQLStore) ExportJSON(ctx context.Context) ([]byte, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(all, "", "  ")
}

func (s *SQLStore) ImportJSON(ctx context.Context, data []byte) (int, error) {
	var incoming []domain.StoredAnalysis
	if err := json.Unmarshal(data, &incoming); err != nil {
		return 0, domain.StorageError("Arquivo de importação inválido.", err)
	}

	added := 0
	for i := range incoming {
		if incoming[i].ID == "" {
			continue
		}
		if _, err := s.Get(ctx, incoming[i].ID); err == nil {
			continue
		} else if err != ErrNotFound {
			return added, err
		}
		if err := s.insert(ctx, &incoming[i]); err != nil {
			return added, err
		}
		added++
	}
	return added, nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func decodeStored(payload string) (*domain.StoredAnalysis, error) {
	var a domain.StoredAnalysis
	if err := json.Unmarshal([]byte(payload), &a); err != nil {
		return nil, domain.StorageError("Registro de análise corrompido.", err)
	}
	return &a, nil
}
