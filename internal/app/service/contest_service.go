package service

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"codecourt/internal/common"
	"codecourt/internal/domain/model"
	"codecourt/internal/domain/repository"
)

// ContestService provisions interview contests and answers contest reads.
// The timer gate itself lives on the model (Contest.IsOpen); this service
// applies it and reports it.
type ContestService struct {
	contestRepo    repository.ContestRepository
	problemRepo    repository.ProblemRepository
	submissionRepo repository.SubmissionRepository
}

func NewContestService(
	contestRepo repository.ContestRepository,
	problemRepo repository.ProblemRepository,
	submissionRepo repository.SubmissionRepository,
) *ContestService {
	return &ContestService{
		contestRepo:    contestRepo,
		problemRepo:    problemRepo,
		submissionRepo: submissionRepo,
	}
}

// Interview rounds and the problem sets they draw from.
var interviewRounds = map[string]struct {
	duration time.Duration
	slugs    []string
}{
	"assessment": {duration: 60 * time.Minute, slugs: []string{"classroom", "two-sum"}},
	"technical":  {duration: 120 * time.Minute, slugs: []string{"classroom", "two-sum"}},
}

const defaultInterviewDuration = 60 * time.Minute

type InterviewRequest struct {
	RoundID            string  `json:"roundId"`
	InterviewSessionID *string `json:"interviewSessionId,omitempty"`
}

type InterviewSession struct {
	ContestID          string                 `json:"contestId"`
	InterviewSessionID *string                `json:"interviewSessionId,omitempty"`
	IsNew              bool                   `json:"isNew"`
	EndTime            time.Time              `json:"endTime"`
	Problems           []model.ContestProblem `json:"problems"`
}

// StartOrResumeInterview reuses the caller's open interview contest when one
// exists; otherwise it provisions a fresh contest for the round with its
// problems attached.
func (s *ContestService) StartOrResumeInterview(ctx context.Context, userID string, req InterviewRequest) (*InterviewSession, error) {
	if req.RoundID == "" {
		return nil, common.Errorf("roundId is required: %w", common.ErrValidation)
	}

	now := time.Now()
	existing, err := s.contestRepo.FindActiveInterviewForUser(ctx, userID, now)
	if err == nil {
		problems, err := s.contestRepo.ListProblems(ctx, existing.ID)
		if err != nil {
			return nil, common.Errorf("problems for contest %s: %w", existing.ID, err)
		}
		return &InterviewSession{
			ContestID:          existing.ID,
			InterviewSessionID: existing.InterviewSessionID,
			IsNew:              false,
			EndTime:            existing.EndTime,
			Problems:           problems,
		}, nil
	}
	if !isNotFound(err) {
		return nil, common.Errorf("looking up active interview: %w", err)
	}

	round, ok := interviewRounds[req.RoundID]
	if !ok {
		round.duration = defaultInterviewDuration
		round.slugs = interviewRounds["assessment"].slugs
	}

	problems, err := s.problemRepo.FindBySlugs(ctx, round.slugs)
	if err != nil {
		return nil, common.Errorf("loading interview problems: %w", err)
	}
	if len(problems) == 0 {
		return nil, common.Errorf("no problems found for round %s: %w", req.RoundID, common.ErrNotFound)
	}

	contest := &model.Contest{
		ID:                 uuid.NewString(),
		Title:              "Interview: " + titleCase(req.RoundID) + " Round",
		Description:        "Automated interview session for the " + req.RoundID + " round.",
		StartTime:          now,
		EndTime:            now.Add(round.duration),
		Hidden:             false,
		Leaderboard:        false,
		UserID:             &userID,
		InterviewSessionID: req.InterviewSessionID,
	}

	problemIDs := make([]string, len(problems))
	for i, p := range problems {
		problemIDs[i] = p.ID
	}
	if err := s.contestRepo.CreateWithProblems(ctx, contest, problemIDs); err != nil {
		return nil, common.Errorf("creating interview contest: %w", err)
	}

	attached, err := s.contestRepo.ListProblems(ctx, contest.ID)
	if err != nil {
		return nil, common.Errorf("problems for contest %s: %w", contest.ID, err)
	}

	log.Printf("Interview contest %s created for user %s (round %s, %d problems).",
		contest.ID, userID, req.RoundID, len(attached))
	return &InterviewSession{
		ContestID:          contest.ID,
		InterviewSessionID: contest.InterviewSessionID,
		IsNew:              true,
		EndTime:            contest.EndTime,
		Problems:           attached,
	}, nil
}

type ContestView struct {
	Contest  *model.Contest         `json:"contest"`
	Problems []model.ContestProblem `json:"problems"`
	IsOpen   bool                   `json:"is_open"`
}

// Get returns the contest with its problems and the advisory window state.
// The authoritative window check still happens at submit time.
func (s *ContestService) Get(ctx context.Context, contestID string) (*ContestView, error) {
	contest, err := s.contestRepo.FindByID(ctx, contestID)
	if err != nil {
		return nil, common.Errorf("contest %s: %w", contestID, err)
	}
	problems, err := s.contestRepo.ListProblems(ctx, contestID)
	if err != nil {
		return nil, common.Errorf("problems for contest %s: %w", contestID, err)
	}
	return &ContestView{Contest: contest, Problems: problems, IsOpen: contest.IsOpen(time.Now())}, nil
}

// RecordSolve is the client's accepted-notification path. The reconcile
// transition normally counts the solve already; this only picks up accepted
// submissions whose counted flag is still unset, so duplicate notifications
// (two browser tabs, repeated polls) cannot double-count.
func (s *ContestService) RecordSolve(ctx context.Context, userID, contestID, problemID string) (int, error) {
	if contestID == "" || problemID == "" {
		return 0, common.Errorf("contestId and problemId are required: %w", common.ErrValidation)
	}

	ids, err := s.submissionRepo.ListAcceptedUncounted(ctx, userID, contestID, problemID)
	if err != nil {
		return 0, common.Errorf("listing uncounted solves: %w", err)
	}

	counted := 0
	for _, id := range ids {
		ok, err := s.submissionRepo.MarkContestCounted(ctx, id)
		if err != nil {
			return counted, common.Errorf("marking submission %s counted: %w", id, err)
		}
		if !ok {
			continue // lost the race to another notification
		}
		if err := s.contestRepo.IncrementSolved(ctx, contestID, problemID); err != nil {
			return counted, common.Errorf("incrementing solved counter: %w", err)
		}
		counted++
	}
	return counted, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, common.ErrNotFound)
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
