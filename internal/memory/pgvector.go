package memory

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	json "github.com/json-iterator/go"
	"github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"
	"go.uber.org/zap"

	"github.com/glimpsebot/glimpse/api/schemas"
	"github.com/glimpsebot/glimpse/internal/config"
)

// pgxQuerier is the subset of pgxpool.Pool the index needs. pgxmock
// satisfies it, which keeps the store testable without a database.
type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PgVectorIndex implements schemas.VectorIndex on Postgres with the pgvector
// extension. One table per collection; cosine distance ordering.
type PgVectorIndex struct {
	db     pgxQuerier
	table  string
	logger *zap.Logger
}

var identPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// NewPgVectorIndex connects a pool and wraps it. The collection name becomes
// the table name and must be a plain lowercase identifier since it is
// interpolated into DDL.
func NewPgVectorIndex(ctx context.Context, cfg config.MemoryConfig, logger *zap.Logger) (*PgVectorIndex, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return NewPgVectorIndexWithDB(pool, cfg.Collection, logger)
}

// NewPgVectorIndexWithDB wraps an existing querier; used by tests.
func NewPgVectorIndexWithDB(db pgxQuerier, table string, logger *zap.Logger) (*PgVectorIndex, error) {
	if !identPattern.MatchString(table) {
		return nil, fmt.Errorf("invalid collection name %q for pgvector backend", table)
	}
	return &PgVectorIndex{db: db, table: table, logger: logger.Named("memory.pgvector")}, nil
}

// EnsureCollection creates the extension and table when missing.
func (p *PgVectorIndex) EnsureCollection(ctx context.Context, vectorSize int) error {
	if _, err := p.db.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("create vector extension: %w", err)
	}
	ddl := fmt.Sprintf(
		`CREATE TABLE IF NOT EXISTS %s (
			id text PRIMARY KEY,
			embedding vector(%d) NOT NULL,
			payload jsonb NOT NULL,
			created_at timestamptz NOT NULL DEFAULT now()
		)`, p.table, vectorSize)
	if _, err := p.db.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("create table %s: %w", p.table, err)
	}
	return nil
}

// Upsert stores one embedding with its payload as jsonb.
func (p *PgVectorIndex) Upsert(ctx context.Context, id string, embedding []float32, rec schemas.MemoryRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	sql := fmt.Sprintf(
		`INSERT INTO %s (id, embedding, payload, created_at) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO UPDATE SET embedding = EXCLUDED.embedding, payload = EXCLUDED.payload`,
		p.table)
	if _, err := p.db.Exec(ctx, sql, id, pgvector.NewVector(embedding), payload, time.Now().UTC()); err != nil {
		return fmt.Errorf("upsert point %s: %w", id, err)
	}
	return nil
}

// Search returns the nearest records by cosine similarity, best first.
// Cosine distance d maps to similarity 1-d, matching the Qdrant scoring.
func (p *PgVectorIndex) Search(ctx context.Context, embedding []float32, limit int) ([]schemas.SearchHit, error) {
	sql := fmt.Sprintf(
		`SELECT payload, 1 - (embedding <=> $1) AS score FROM %s ORDER BY embedding <=> $1 LIMIT $2`,
		p.table)
	rows, err := p.db.Query(ctx, sql, pgvector.NewVector(embedding), limit)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	defer rows.Close()

	var hits []schemas.SearchHit
	for rows.Next() {
		var payload []byte
		var score float64
		if err := rows.Scan(&payload, &score); err != nil {
			return nil, fmt.Errorf("scan search row: %w", err)
		}
		var rec schemas.MemoryRecord
		if err := json.Unmarshal(payload, &rec); err != nil {
			p.logger.Warn("Skipping undecodable memory payload", zap.Error(err))
			continue
		}
		hits = append(hits, schemas.SearchHit{Score: score, Record: rec})
	}
	return hits, rows.Err()
}

// RecentPoints returns the newest records by insertion time.
func (p *PgVectorIndex) RecentPoints(ctx context.Context, limit int) ([]schemas.MemoryRecord, error) {
	sql := fmt.Sprintf(`SELECT payload FROM %s ORDER BY created_at DESC LIMIT $1`, p.table)
	rows, err := p.db.Query(ctx, sql, limit)
	if err != nil {
		return nil, fmt.Errorf("recent points: %w", err)
	}
	defer rows.Close()

	var records []schemas.MemoryRecord
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan payload row: %w", err)
		}
		var rec schemas.MemoryRecord
		if err := json.Unmarshal(payload, &rec); err != nil {
			p.logger.Warn("Skipping undecodable memory payload", zap.Error(err))
			continue
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// DeleteCollection drops the table.
func (p *PgVectorIndex) DeleteCollection(ctx context.Context) error {
	if _, err := p.db.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", p.table)); err != nil {
		return fmt.Errorf("drop table %s: %w", p.table, err)
	}
	return nil
}

// CollectionInfo reports the row count; vector size is not re-read from DDL.
func (p *PgVectorIndex) CollectionInfo(ctx context.Context) (schemas.CollectionInfo, error) {
	var count int64
	sql := fmt.Sprintf("SELECT count(*) FROM %s", p.table)
	if err := p.db.QueryRow(ctx, sql).Scan(&count); err != nil {
		return schemas.CollectionInfo{}, fmt.Errorf("count rows: %w", err)
	}
	return schemas.CollectionInfo{Name: p.table, PointsCount: count, Status: "green"}, nil
}

var _ schemas.VectorIndex = (*PgVectorIndex)(nil)
