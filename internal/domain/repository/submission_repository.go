package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"codecourt/internal/common"
	"codecourt/internal/domain/model"
)

type SubmissionRepository interface {
	// CreateWithTestCases persists the submission and its testcase rows
	// atomically. Called only after the judge accepted the batch, so the
	// submit step is all-or-nothing.
	CreateWithTestCases(ctx context.Context, sub *model.Submission, testCases []model.TestCase) error

	GetByID(ctx context.Context, id string) (*model.Submission, error)
	// GetByIDForUser scopes the read to the owner. A submission owned by
	// another user reads as not found, so existence is not leaked.
	GetByIDForUser(ctx context.Context, id, userID string) (*model.Submission, error)
	ListTestCases(ctx context.Context, submissionID string) ([]model.TestCase, error)
	FindTestCaseByToken(ctx context.Context, token string) (*model.TestCase, error)

	// UpdateTestCaseStatus moves one row out of PENDING. Guarded by status,
	// so re-delivery of the same result or a conflicting late result is a
	// no-op rather than a flap.
	UpdateTestCaseStatus(ctx context.Context, submissionID string, index int, status model.TestCaseStatus, stdout *string, timeMs, memoryKb *int) error

	// FinalizeVerdict performs the single PENDING -> terminal transition.
	// The bool reports whether *this* call made the transition; concurrent
	// reconcilers see false and must not re-fire transition side effects.
	FinalizeVerdict(ctx context.Context, id string, verdict model.SubmissionStatus) (bool, error)

	// MarkContestCounted flips the counted flag exactly once per
	// submission; the solved counter is incremented only when it reports
	// true.
	MarkContestCounted(ctx context.Context, id string) (bool, error)

	ListForUserProblem(ctx context.Context, userID, problemID string, limit int) ([]model.Submission, error)

	// ListAcceptedUncounted returns ids of the user's accepted submissions
	// for (contest, problem) whose solve has not been counted yet. Backs
	// the retry path of the solved-counter increment endpoint.
	ListAcceptedUncounted(ctx context.Context, userID, contestID, problemID string) ([]string, error)
}

type pgSubmissionRepository struct {
	db *sql.DB
}

func NewPgSubmissionRepository(db *sql.DB) SubmissionRepository {
	return &pgSubmissionRepository{db: db}
}

func (r *pgSubmissionRepository) CreateWithTestCases(ctx context.Context, sub *model.Submission, testCases []model.TestCase) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("pgSubmissionRepository.CreateWithTestCases: begin tx: %w", err)
	}
	defer tx.Rollback()

	query := `INSERT INTO submissions (id, user_id, problem_id, language_id, code, full_code, status, active_contest_id)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	if _, err := tx.ExecContext(ctx, query,
		sub.ID, sub.UserID, sub.ProblemID, sub.LanguageID, sub.Code, sub.FullCode, sub.Status, sub.ActiveContestID,
	); err != nil {
		return fmt.Errorf("pgSubmissionRepository.CreateWithTestCases: submission row: %w", err)
	}

	for _, tc := range testCases {
		query := `INSERT INTO test_cases (id, submission_id, idx, status, judge_tracking_id)
		          VALUES ($1, $2, $3, $4, $5)`
		if _, err := tx.ExecContext(ctx, query, tc.ID, tc.SubmissionID, tc.Index, tc.Status, tc.JudgeTrackingID); err != nil {
			return fmt.Errorf("pgSubmissionRepository.CreateWithTestCases: testcase %d: %w", tc.Index, err)
		}
	}

	return tx.Commit()
}

const submissionColumns = `id, user_id, problem_id, language_id, code, full_code, status,
	active_contest_id, contest_counted, submitted_at, updated_at`

func (r *pgSubmissionRepository) GetByID(ctx context.Context, id string) (*model.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions WHERE id = $1`
	return scanSubmission(r.db.QueryRowContext(ctx, query, id))
}

func (r *pgSubmissionRepository) GetByIDForUser(ctx context.Context, id, userID string) (*model.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions WHERE id = $1 AND user_id = $2`
	return scanSubmission(r.db.QueryRowContext(ctx, query, id, userID))
}

func scanSubmission(row *sql.Row) (*model.Submission, error) {
	sub := &model.Submission{}
	err := row.Scan(
		&sub.ID, &sub.UserID, &sub.ProblemID, &sub.LanguageID, &sub.Code, &sub.FullCode,
		&sub.Status, &sub.ActiveContestID, &sub.ContestCounted, &sub.SubmittedAt, &sub.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("scanSubmission: %w", err)
	}
	return sub, nil
}

func (r *pgSubmissionRepository) ListTestCases(ctx context.Context, submissionID string) ([]model.TestCase, error) {
	query := `SELECT id, submission_id, idx, status, judge_tracking_id, stdout, time_ms, memory_kb, created_at, updated_at
	          FROM test_cases WHERE submission_id = $1 ORDER BY idx`
	rows, err := r.db.QueryContext(ctx, query, submissionID)
	if err != nil {
		return nil, fmt.Errorf("pgSubmissionRepository.ListTestCases: %w", err)
	}
	defer rows.Close()

	var testCases []model.TestCase
	for rows.Next() {
		tc := model.TestCase{}
		if err := rows.Scan(
			&tc.ID, &tc.SubmissionID, &tc.Index, &tc.Status, &tc.JudgeTrackingID,
			&tc.Stdout, &tc.TimeMs, &tc.MemoryKb, &tc.CreatedAt, &tc.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("pgSubmissionRepository.ListTestCases: scan: %w", err)
		}
		testCases = append(testCases, tc)
	}
	return testCases, rows.Err()
}

func (r *pgSubmissionRepository) FindTestCaseByToken(ctx context.Context, token string) (*model.TestCase, error) {
	query := `SELECT id, submission_id, idx, status, judge_tracking_id, stdout, time_ms, memory_kb, created_at, updated_at
	          FROM test_cases WHERE judge_tracking_id = $1`
	tc := &model.TestCase{}
	err := r.db.QueryRowContext(ctx, query, token).Scan(
		&tc.ID, &tc.SubmissionID, &tc.Index, &tc.Status, &tc.JudgeTrackingID,
		&tc.Stdout, &tc.TimeMs, &tc.MemoryKb, &tc.CreatedAt, &tc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgSubmissionRepository.FindTestCaseByToken: %w", err)
	}
	return tc, nil
}

func (r *pgSubmissionRepository) UpdateTestCaseStatus(ctx context.Context, submissionID string, index int, status model.TestCaseStatus, stdout *string, timeMs, memoryKb *int) error {
	query := `UPDATE test_cases
	          SET status = $3, stdout = $4, time_ms = $5, memory_kb = $6, updated_at = CURRENT_TIMESTAMP
	          WHERE submission_id = $1 AND idx = $2 AND status = 'PENDING'`
	if _, err := r.db.ExecContext(ctx, query, submissionID, index, status, stdout, timeMs, memoryKb); err != nil {
		return fmt.Errorf("pgSubmissionRepository.UpdateTestCaseStatus: %w", err)
	}
	return nil
}

func (r *pgSubmissionRepository) FinalizeVerdict(ctx context.Context, id string, verdict model.SubmissionStatus) (bool, error) {
	query := `UPDATE submissions SET status = $2, updated_at = CURRENT_TIMESTAMP
	          WHERE id = $1 AND status = 'PENDING'`
	res, err := r.db.ExecContext(ctx, query, id, verdict)
	if err != nil {
		return false, fmt.Errorf("pgSubmissionRepository.FinalizeVerdict: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("pgSubmissionRepository.FinalizeVerdict: rows affected: %w", err)
	}
	return n == 1, nil
}

func (r *pgSubmissionRepository) MarkContestCounted(ctx context.Context, id string) (bool, error) {
	query := `UPDATE submissions SET contest_counted = TRUE, updated_at = CURRENT_TIMESTAMP
	          WHERE id = $1 AND contest_counted = FALSE`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("pgSubmissionRepository.MarkContestCounted: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("pgSubmissionRepository.MarkContestCounted: rows affected: %w", err)
	}
	return n == 1, nil
}

func (r *pgSubmissionRepository) ListAcceptedUncounted(ctx context.Context, userID, contestID, problemID string) ([]string, error) {
	query := `SELECT id FROM submissions
	          WHERE user_id = $1 AND active_contest_id = $2 AND problem_id = $3
	            AND status = 'ACCEPTED' AND contest_counted = FALSE`
	rows, err := r.db.QueryContext(ctx, query, userID, contestID, problemID)
	if err != nil {
		return nil, fmt.Errorf("pgSubmissionRepository.ListAcceptedUncounted: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("pgSubmissionRepository.ListAcceptedUncounted: scan: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *pgSubmissionRepository) ListForUserProblem(ctx context.Context, userID, problemID string, limit int) ([]model.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions
	          WHERE user_id = $1 AND problem_id = $2 ORDER BY submitted_at DESC LIMIT $3`
	rows, err := r.db.QueryContext(ctx, query, userID, problemID, limit)
	if err != nil {
		return nil, fmt.Errorf("pgSubmissionRepository.ListForUserProblem: %w", err)
	}
	defer rows.Close()

	var subs []model.Submission
	for rows.Next() {
		sub := model.Submission{}
		if err := rows.Scan(
			&sub.ID, &sub.UserID, &sub.ProblemID, &sub.LanguageID, &sub.Code, &sub.FullCode,
			&sub.Status, &sub.ActiveContestID, &sub.ContestCounted, &sub.SubmittedAt, &sub.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("pgSubmissionRepository.ListForUserProblem: scan: %w", err)
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}
