// Package pgstore is a PostgreSQL implementation of store.AssessmentRepo
// for deployments that run more than one service instance.
package pgstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/abhisek/assessgen/internal/store"
)

// DB wraps a pgx connection pool.
type DB struct {
	Pool *pgxpool.Pool
}

// ParseURL validates a PostgreSQL connection URL.
func ParseURL(url string) (*pgxpool.Config, error) {
	if url == "" {
		return nil, fmt.Errorf("database URL is empty")
	}
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("invalid database URL: %w", err)
	}
	return cfg, nil
}

// New creates a connection pool, pings it and creates missing tables.
func New(ctx context.Context, url string, maxConns, minConns int) (*DB, error) {
	cfg, err := ParseURL(url)
	if err != nil {
		return nil, err
	}

	cfg.MaxConns = int32(maxConns)
	cfg.MinConns = int32(minConns)
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	db := &DB{Pool: pool}
	if err := db.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Close shuts down the connection pool.
func (db *DB) Close() {
	db.Pool.Close()
}

// HealthCheck verifies the database connection is alive.
func (db *DB) HealthCheck(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}

const schema = `
CREATE TABLE IF NOT EXISTS assessments (
	id TEXT PRIMARY KEY,
	sequence BIGSERIAL UNIQUE,
	created_at TIMESTAMPTZ NOT NULL,
	title TEXT NOT NULL,
	subject_or_role TEXT NOT NULL,
	difficulty TEXT NOT NULL,
	cognitive_level TEXT NOT NULL DEFAULT '',
	question_count INTEGER NOT NULL,
	enrichment JSONB NOT NULL DEFAULT '{}'
);
CREATE TABLE IF NOT EXISTS assessment_questions (
	assessment_id TEXT NOT NULL REFERENCES assessments (id) ON DELETE CASCADE,
	position INTEGER NOT NULL,
	question_type TEXT NOT NULL,
	body JSONB NOT NULL,
	PRIMARY KEY (assessment_id, position)
);`

func (db *DB) migrate(ctx context.Context) error {
	_, err := db.Pool.Exec(ctx, schema)
	return err
}

// AssessmentRepo returns a store.AssessmentRepo backed by this pool.
func (db *DB) AssessmentRepo() store.AssessmentRepo {
	return &assessmentRepo{pool: db.Pool}
}

type assessmentRepo struct {
	pool *pgxpool.Pool
}

func (r *assessmentRepo) Append(ctx context.Context, rec *store.AssessmentRecord) error {
	if rec.ID == "" {
		return errors.New("assessment ID is required")
	}
	if len(rec.QuestionTypes) != len(rec.Questions) {
		return fmt.Errorf("question types (%d) and questions (%d) differ in length", len(rec.QuestionTypes), len(rec.Questions))
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	enrichment := rec.Enrichment
	if len(enrichment) == 0 {
		enrichment = json.RawMessage(`{}`)
	}

	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`INSERT INTO assessments (id, created_at, title, subject_or_role, difficulty, cognitive_level, question_count, enrichment)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING sequence`,
			rec.ID, rec.CreatedAt, rec.Title, rec.SubjectOrRole, rec.Difficulty,
			rec.CognitiveLevel, len(rec.Questions), []byte(enrichment),
		).Scan(&rec.Sequence)
		if err != nil {
			return fmt.Errorf("insert assessment: %w", err)
		}

		batch := &pgx.Batch{}
		for i, q := range rec.Questions {
			batch.Queue(
				`INSERT INTO assessment_questions (assessment_id, position, question_type, body) VALUES ($1, $2, $3, $4)`,
				rec.ID, i+1, rec.QuestionTypes[i], []byte(q),
			)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert questions: %w", err)
		}
		return nil
	})
}

func (r *assessmentRepo) Get(ctx context.Context, id string) (*store.AssessmentRecord, error) {
	var (
		rec        store.AssessmentRecord
		enrichment []byte
	)
	err := r.pool.QueryRow(ctx,
		`SELECT id, sequence, created_at, title, subject_or_role, difficulty, cognitive_level, enrichment
		 FROM assessments WHERE id = $1`, id,
	).Scan(&rec.ID, &rec.Sequence, &rec.CreatedAt, &rec.Title, &rec.SubjectOrRole,
		&rec.Difficulty, &rec.CognitiveLevel, &enrichment)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("assessment %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query assessment: %w", err)
	}
	rec.Enrichment = json.RawMessage(enrichment)

	rows, err := r.pool.Query(ctx,
		`SELECT question_type, body FROM assessment_questions WHERE assessment_id = $1 ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("query questions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			qType string
			body  []byte
		)
		if err := rows.Scan(&qType, &body); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		rec.QuestionTypes = append(rec.QuestionTypes, qType)
		rec.Questions = append(rec.Questions, json.RawMessage(body))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *assessmentRepo) List(ctx context.Context, limit int) ([]store.AssessmentRecord, error) {
	query := `SELECT id, sequence, created_at, title, subject_or_role, difficulty, cognitive_level, enrichment
		FROM assessments ORDER BY sequence DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query assessments: %w", err)
	}
	defer rows.Close()

	var out []store.AssessmentRecord
	for rows.Next() {
		var (
			rec        store.AssessmentRecord
			enrichment []byte
		)
		if err := rows.Scan(&rec.ID, &rec.Sequence, &rec.CreatedAt, &rec.Title, &rec.SubjectOrRole,
			&rec.Difficulty, &rec.CognitiveLevel, &enrichment); err != nil {
			return nil, fmt.Errorf("scan assessment: %w", err)
		}
		rec.Enrichment = json.RawMessage(enrichment)
		out = append(out, rec)
	}
	return out, rows.Err()
}
