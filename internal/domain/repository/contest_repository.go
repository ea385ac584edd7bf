package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"codecourt/internal/common"
	"codecourt/internal/domain/model"
)

type ContestRepository interface {
	FindByID(ctx context.Context, id string) (*model.Contest, error)
	// FindActiveInterviewForUser returns the newest interview contest owned
	// by the user whose window is still open at now.
	FindActiveInterviewForUser(ctx context.Context, userID string, now time.Time) (*model.Contest, error)
	// CreateWithProblems writes the contest and its contest_problems rows
	// (1-based index, solved = 0) in one transaction.
	CreateWithProblems(ctx context.Context, contest *model.Contest, problemIDs []string) error
	ListProblems(ctx context.Context, contestID string) ([]model.ContestProblem, error)
	// IncrementSolved bumps the (contest, problem) solved counter with a
	// single atomic statement; never read-modify-write in application code.
	IncrementSolved(ctx context.Context, contestID, problemID string) error
}

type pgContestRepository struct {
	db *sql.DB
}

func NewPgContestRepository(db *sql.DB) ContestRepository {
	return &pgContestRepository{db: db}
}

const contestColumns = `id, title, description, start_time, end_time, hidden, leaderboard,
	user_id, interview_session_id, created_at`

func (r *pgContestRepository) FindByID(ctx context.Context, id string) (*model.Contest, error) {
	query := `SELECT ` + contestColumns + ` FROM contests WHERE id = $1`
	return scanContest(r.db.QueryRowContext(ctx, query, id))
}

func (r *pgContestRepository) FindActiveInterviewForUser(ctx context.Context, userID string, now time.Time) (*model.Contest, error) {
	query := `SELECT ` + contestColumns + ` FROM contests
	          WHERE user_id = $1 AND end_time > $2 AND title LIKE 'Interview: %'
	          ORDER BY created_at DESC LIMIT 1`
	return scanContest(r.db.QueryRowContext(ctx, query, userID, now))
}

func scanContest(row *sql.Row) (*model.Contest, error) {
	c := &model.Contest{}
	err := row.Scan(
		&c.ID, &c.Title, &c.Description, &c.StartTime, &c.EndTime, &c.Hidden, &c.Leaderboard,
		&c.UserID, &c.InterviewSessionID, &c.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("scanContest: %w", err)
	}
	return c, nil
}

func (r *pgContestRepository) CreateWithProblems(ctx context.Context, contest *model.Contest, problemIDs []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("pgContestRepository.CreateWithProblems: begin tx: %w", err)
	}
	defer tx.Rollback()

	query := `INSERT INTO contests (id, title, description, start_time, end_time, hidden, leaderboard, user_id, interview_session_id)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	if _, err := tx.ExecContext(ctx, query,
		contest.ID, contest.Title, contest.Description, contest.StartTime, contest.EndTime,
		contest.Hidden, contest.Leaderboard, contest.UserID, contest.InterviewSessionID,
	); err != nil {
		return fmt.Errorf("pgContestRepository.CreateWithProblems: contest row: %w", err)
	}

	for i, problemID := range problemIDs {
		query := `INSERT INTO contest_problems (contest_id, problem_id, idx, solved)
		          VALUES ($1, $2, $3, 0)`
		if _, err := tx.ExecContext(ctx, query, contest.ID, problemID, i+1); err != nil {
			return fmt.Errorf("pgContestRepository.CreateWithProblems: problem %s: %w", problemID, err)
		}
	}

	return tx.Commit()
}

func (r *pgContestRepository) ListProblems(ctx context.Context, contestID string) ([]model.ContestProblem, error) {
	query := `SELECT cp.contest_id, cp.problem_id, cp.idx, cp.solved, p.title, p.slug
	          FROM contest_problems cp
	          JOIN problems p ON p.id = cp.problem_id
	          WHERE cp.contest_id = $1 ORDER BY cp.idx`
	rows, err := r.db.QueryContext(ctx, query, contestID)
	if err != nil {
		return nil, fmt.Errorf("pgContestRepository.ListProblems: %w", err)
	}
	defer rows.Close()

	var problems []model.ContestProblem
	for rows.Next() {
		cp := model.ContestProblem{}
		if err := rows.Scan(&cp.ContestID, &cp.ProblemID, &cp.Index, &cp.Solved, &cp.ProblemTitle, &cp.ProblemSlug); err != nil {
			return nil, fmt.Errorf("pgContestRepository.ListProblems: scan: %w", err)
		}
		problems = append(problems, cp)
	}
	return problems, rows.Err()
}

func (r *pgContestRepository) IncrementSolved(ctx context.Context, contestID, problemID string) error {
	query := `UPDATE contest_problems SET solved = solved + 1
	          WHERE contest_id = $1 AND problem_id = $2`
	res, err := r.db.ExecContext(ctx, query, contestID, problemID)
	if err != nil {
		return fmt.Errorf("pgContestRepository.IncrementSolved: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("pgContestRepository.IncrementSolved: rows affected: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}
