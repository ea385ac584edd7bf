package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"codecourt/internal/common"
	"codecourt/internal/domain/model"
)

type ProblemRepository interface {
	FindByID(ctx context.Context, id string) (*model.Problem, error)
	FindBySlug(ctx context.Context, slug string) (*model.Problem, error)
	FindBySlugs(ctx context.Context, slugs []string) ([]model.Problem, error)
	List(ctx context.Context, limit, offset int) ([]model.Problem, error)
	GetDefaultCode(ctx context.Context, problemID string, languageID int) (*model.DefaultCode, error)
	// Upsert writes the problem row, its hidden testcase arrays and the
	// per-language boilerplates in one transaction. Content tooling only.
	Upsert(ctx context.Context, problem *model.Problem, boilerplates []model.DefaultCode) error
}

type pgProblemRepository struct {
	db *sql.DB
}

func NewPgProblemRepository(db *sql.DB) ProblemRepository {
	return &pgProblemRepository{db: db}
}

const problemColumns = `id, slug, title, description, examples, constraints,
	input_test_cases, output_test_cases, created_at, updated_at`

func (r *pgProblemRepository) FindByID(ctx context.Context, id string) (*model.Problem, error) {
	query := `SELECT ` + problemColumns + ` FROM problems WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *pgProblemRepository) FindBySlug(ctx context.Context, slug string) (*model.Problem, error) {
	query := `SELECT ` + problemColumns + ` FROM problems WHERE slug = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, slug))
}

func (r *pgProblemRepository) FindBySlugs(ctx context.Context, slugs []string) ([]model.Problem, error) {
	query := `SELECT ` + problemColumns + ` FROM problems WHERE slug = ANY($1) ORDER BY slug`
	rows, err := r.db.QueryContext(ctx, query, slugs)
	if err != nil {
		return nil, fmt.Errorf("pgProblemRepository.FindBySlugs: %w", err)
	}
	defer rows.Close()
	return r.scanMany(rows)
}

func (r *pgProblemRepository) List(ctx context.Context, limit, offset int) ([]model.Problem, error) {
	query := `SELECT ` + problemColumns + ` FROM problems ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("pgProblemRepository.List: %w", err)
	}
	defer rows.Close()
	return r.scanMany(rows)
}

func (r *pgProblemRepository) GetDefaultCode(ctx context.Context, problemID string, languageID int) (*model.DefaultCode, error) {
	query := `SELECT problem_id, language_id, full_boilerplate, partial_boilerplate, created_at, updated_at
	          FROM default_codes WHERE problem_id = $1 AND language_id = $2`
	dc := &model.DefaultCode{}
	err := r.db.QueryRowContext(ctx, query, problemID, languageID).Scan(
		&dc.ProblemID, &dc.LanguageID, &dc.FullBoilerplate, &dc.PartialBoilerplate, &dc.CreatedAt, &dc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgProblemRepository.GetDefaultCode: %w", err)
	}
	return dc, nil
}

func (r *pgProblemRepository) Upsert(ctx context.Context, problem *model.Problem, boilerplates []model.DefaultCode) error {
	examples, err := json.Marshal(problem.Examples)
	if err != nil {
		return fmt.Errorf("pgProblemRepository.Upsert: marshal examples: %w", err)
	}
	constraints, err := json.Marshal(problem.Constraints)
	if err != nil {
		return fmt.Errorf("pgProblemRepository.Upsert: marshal constraints: %w", err)
	}
	inputs, err := json.Marshal(problem.InputTestCases)
	if err != nil {
		return fmt.Errorf("pgProblemRepository.Upsert: marshal inputs: %w", err)
	}
	outputs, err := json.Marshal(problem.OutputTestCases)
	if err != nil {
		return fmt.Errorf("pgProblemRepository.Upsert: marshal outputs: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("pgProblemRepository.Upsert: begin tx: %w", err)
	}
	defer tx.Rollback()

	query := `INSERT INTO problems (id, slug, title, description, examples, constraints, input_test_cases, output_test_cases)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	          ON CONFLICT (slug) DO UPDATE SET
	            title = EXCLUDED.title,
	            description = EXCLUDED.description,
	            examples = EXCLUDED.examples,
	            constraints = EXCLUDED.constraints,
	            input_test_cases = EXCLUDED.input_test_cases,
	            output_test_cases = EXCLUDED.output_test_cases,
	            updated_at = CURRENT_TIMESTAMP
	          RETURNING id`
	var problemID string
	if err := tx.QueryRowContext(ctx, query,
		problem.ID, problem.Slug, problem.Title, problem.Description,
		examples, constraints, inputs, outputs,
	).Scan(&problemID); err != nil {
		return fmt.Errorf("pgProblemRepository.Upsert: problem row: %w", err)
	}
	problem.ID = problemID

	for _, bp := range boilerplates {
		query := `INSERT INTO default_codes (problem_id, language_id, full_boilerplate, partial_boilerplate)
		          VALUES ($1, $2, $3, $4)
		          ON CONFLICT (problem_id, language_id) DO UPDATE SET
		            full_boilerplate = EXCLUDED.full_boilerplate,
		            partial_boilerplate = EXCLUDED.partial_boilerplate,
		            updated_at = CURRENT_TIMESTAMP`
		if _, err := tx.ExecContext(ctx, query, problemID, bp.LanguageID, bp.FullBoilerplate, bp.PartialBoilerplate); err != nil {
			return fmt.Errorf("pgProblemRepository.Upsert: default code (lang %d): %w", bp.LanguageID, err)
		}
	}

	return tx.Commit()
}

func (r *pgProblemRepository) scanOne(row *sql.Row) (*model.Problem, error) {
	p := &model.Problem{}
	var examples, constraints, inputs, outputs []byte
	err := row.Scan(
		&p.ID, &p.Slug, &p.Title, &p.Description, &examples, &constraints,
		&inputs, &outputs, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgProblemRepository.scanOne: %w", err)
	}
	if err := unmarshalProblemJSON(p, examples, constraints, inputs, outputs); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *pgProblemRepository) scanMany(rows *sql.Rows) ([]model.Problem, error) {
	var problems []model.Problem
	for rows.Next() {
		p := model.Problem{}
		var examples, constraints, inputs, outputs []byte
		if err := rows.Scan(
			&p.ID, &p.Slug, &p.Title, &p.Description, &examples, &constraints,
			&inputs, &outputs, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("pgProblemRepository.scanMany: %w", err)
		}
		if err := unmarshalProblemJSON(&p, examples, constraints, inputs, outputs); err != nil {
			return nil, err
		}
		problems = append(problems, p)
	}
	return problems, rows.Err()
}

func unmarshalProblemJSON(p *model.Problem, examples, constraints, inputs, outputs []byte) error {
	for _, pair := range []struct {
		raw []byte
		dst interface{}
	}{
		{examples, &p.Examples},
		{constraints, &p.Constraints},
		{inputs, &p.InputTestCases},
		{outputs, &p.OutputTestCases},
	} {
		if len(pair.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(pair.raw, pair.dst); err != nil {
			return fmt.Errorf("problem %s: bad JSON column: %w", p.ID, err)
		}
	}
	return nil
}
