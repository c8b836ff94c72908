package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
)

const (
	assessmentsTable = "assessments"
	questionsTable   = "assessment_questions"
)

var assessmentColumns = []string{
	"id", "sequence", "created_at", "title", "subject_or_role",
	"difficulty", "cognitive_level", "question_count", "enrichment",
}

// assessmentRepo implements AssessmentRepo on SQLite.
type assessmentRepo struct {
	drv *entsql.Driver
	seq *sequenceCounter
}

func (r *assessmentRepo) Append(ctx context.Context, rec *AssessmentRecord) (err error) {
	if rec.ID == "" {
		return errors.New("assessment ID is required")
	}
	if len(rec.QuestionTypes) != len(rec.Questions) {
		return fmt.Errorf("question types (%d) and questions (%d) differ in length", len(rec.QuestionTypes), len(rec.Questions))
	}

	seqNum, err := r.seq.Next(ctx)
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	enrichment := rec.Enrichment
	if len(enrichment) == 0 {
		enrichment = json.RawMessage(`{}`)
	}

	tx, err := r.drv.Tx(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	query, args := entsql.Dialect(dialect.SQLite).
		Insert(assessmentsTable).
		Columns(assessmentColumns...).
		Values(
			rec.ID,
			seqNum,
			rec.CreatedAt.UTC().UnixMilli(),
			rec.Title,
			rec.SubjectOrRole,
			rec.Difficulty,
			rec.CognitiveLevel,
			len(rec.Questions),
			string(enrichment),
		).
		Query()
	if err = tx.Exec(ctx, query, args, nil); err != nil {
		return fmt.Errorf("insert assessment: %w", err)
	}

	if len(rec.Questions) > 0 {
		ins := entsql.Dialect(dialect.SQLite).
			Insert(questionsTable).
			Columns("assessment_id", "position", "question_type", "body")
		for i, q := range rec.Questions {
			ins.Values(rec.ID, i+1, rec.QuestionTypes[i], string(q))
		}
		query, args = ins.Query()
		if err = tx.Exec(ctx, query, args, nil); err != nil {
			return fmt.Errorf("insert questions: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit assessment: %w", err)
	}
	rec.Sequence = seqNum
	return nil
}

func (r *assessmentRepo) Get(ctx context.Context, id string) (*AssessmentRecord, error) {
	query, args := entsql.Dialect(dialect.SQLite).
		Select(assessmentColumns...).
		From(entsql.Table(assessmentsTable)).
		Where(entsql.EQ("id", id)).
		Query()

	recs, err := r.queryHeaders(ctx, query, args)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("assessment %s: %w", id, ErrNotFound)
	}
	rec := recs[0]

	query, args = entsql.Dialect(dialect.SQLite).
		Select("question_type", "body").
		From(entsql.Table(questionsTable)).
		Where(entsql.EQ("assessment_id", id)).
		OrderBy("position").
		Query()

	var rows entsql.Rows
	if err := r.drv.Query(ctx, query, args, &rows); err != nil {
		return nil, fmt.Errorf("query questions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var qType, body string
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

func (r *assessmentRepo) List(ctx context.Context, limit int) ([]AssessmentRecord, error) {
	sel := entsql.Dialect(dialect.SQLite).
		Select(assessmentColumns...).
		From(entsql.Table(assessmentsTable)).
		OrderBy(entsql.Desc("sequence"))
	if limit > 0 {
		sel.Limit(limit)
	}
	query, args := sel.Query()
	return r.queryHeaders(ctx, query, args)
}

func (r *assessmentRepo) queryHeaders(ctx context.Context, query string, args []any) ([]AssessmentRecord, error) {
	var rows entsql.Rows
	if err := r.drv.Query(ctx, query, args, &rows); err != nil {
		return nil, fmt.Errorf("query assessments: %w", err)
	}
	defer rows.Close()

	var out []AssessmentRecord
	for rows.Next() {
		var (
			rec        AssessmentRecord
			createdAt  int64
			count      int
			enrichment string
		)
		err := rows.Scan(
			&rec.ID, &rec.Sequence, &createdAt, &rec.Title, &rec.SubjectOrRole,
			&rec.Difficulty, &rec.CognitiveLevel, &count, &enrichment,
		)
		if err != nil {
			return nil, fmt.Errorf("scan assessment: %w", err)
		}
		rec.CreatedAt = time.UnixMilli(createdAt).UTC()
		rec.Enrichment = json.RawMessage(enrichment)
		out = append(out, rec)
	}
	return out, rows.Err()
}
