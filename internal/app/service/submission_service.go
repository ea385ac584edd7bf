package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"codecourt/internal/common"
	"codecourt/internal/domain/model"
	"codecourt/internal/domain/repository"
	"codecourt/internal/platform/judge"
)

// JudgeClient is the slice of the judge adapter the orchestrator needs.
type JudgeClient interface {
	SubmitBatch(ctx context.Context, req judge.BatchRequest) ([]string, error)
	PollOne(ctx context.Context, token string) (judge.TokenResult, error)
}

// SubmissionService owns the submission lifecycle: it accepts a candidate's
// code, fans it out as one judge batch per hidden testcase, and reconciles
// asynchronous per-token results into a frozen verdict. Submission and
// testcase rows are written by this service only.
type SubmissionService struct {
	submissionRepo repository.SubmissionRepository
	problemRepo    repository.ProblemRepository
	contestRepo    repository.ContestRepository
	judgeClient    JudgeClient
	rdb            *redis.Client
	lockTTL        time.Duration
}

func NewSubmissionService(
	subRepo repository.SubmissionRepository,
	probRepo repository.ProblemRepository,
	contestRepo repository.ContestRepository,
	judgeClient JudgeClient,
	rdb *redis.Client,
	lockTTL time.Duration,
) *SubmissionService {
	if lockTTL <= 0 {
		lockTTL = 10 * time.Second
	}
	return &SubmissionService{
		submissionRepo: subRepo,
		problemRepo:    probRepo,
		contestRepo:    contestRepo,
		judgeClient:    judgeClient,
		rdb:            rdb,
		lockTTL:        lockTTL,
	}
}

type SubmitRequest struct {
	Code            string  `json:"code"`
	LanguageID      string  `json:"languageId"`
	ProblemID       string  `json:"problemId"`
	ActiveContestID *string `json:"activeContestId,omitempty"`
}

// Submit runs the all-or-nothing submit step: validate, gate on the contest
// window, splice the code, hand the batch to the judge, then persist the
// PENDING submission with one testcase row per tracking token. The judge
// call comes before any write, so a judge failure leaves no partial state.
func (s *SubmissionService) Submit(ctx context.Context, userID string, req SubmitRequest) (*model.Submission, error) {
	if req.Code == "" || req.ProblemID == "" {
		return nil, common.Errorf("code and problemId are required: %w", common.ErrValidation)
	}
	language, ok := model.LanguageByKey(req.LanguageID)
	if !ok {
		return nil, common.Errorf("unsupported language %q: %w", req.LanguageID, common.ErrValidation)
	}

	problem, err := s.problemRepo.FindByID(ctx, req.ProblemID)
	if err != nil {
		return nil, common.Errorf("problem %s: %w", req.ProblemID, err)
	}
	if len(problem.InputTestCases) == 0 || len(problem.InputTestCases) != len(problem.OutputTestCases) {
		return nil, common.Errorf("problem %s has malformed hidden testcases: %w", problem.ID, common.ErrInternalServer)
	}

	var activeContestID *string
	if req.ActiveContestID != nil && *req.ActiveContestID != "" {
		contest, err := s.contestRepo.FindByID(ctx, *req.ActiveContestID)
		if err != nil {
			return nil, common.Errorf("contest %s: %w", *req.ActiveContestID, err)
		}
		if !contest.IsOpen(time.Now()) {
			return nil, common.Errorf("contest %s ended: %w", contest.ID, common.ErrSubmissionWindowClosed)
		}
		activeContestID = &contest.ID
	}

	defaultCode, err := s.problemRepo.GetDefaultCode(ctx, problem.ID, language.InternalID)
	if err != nil {
		return nil, common.Errorf("default code for problem %s lang %s: %w", problem.ID, language.Key, err)
	}
	fullCode, err := SpliceUserCode(defaultCode.FullBoilerplate, req.Code)
	if err != nil {
		return nil, err
	}

	tokens, err := s.judgeClient.SubmitBatch(ctx, judge.BatchRequest{
		JudgeLanguageID: language.JudgeID,
		SourceCode:      fullCode,
		Stdins:          problem.InputTestCases,
		ExpectedOutputs: problem.OutputTestCases,
	})
	if err != nil {
		return nil, common.Errorf("submitting batch to judge: %w", err)
	}

	submission := &model.Submission{
		ID:              uuid.NewString(),
		UserID:          userID,
		ProblemID:       problem.ID,
		LanguageID:      language.InternalID,
		Code:            req.Code,
		FullCode:        fullCode,
		Status:          model.SubmissionPending,
		ActiveContestID: activeContestID,
	}

	testCases := make([]model.TestCase, len(tokens))
	for i, token := range tokens {
		testCases[i] = model.TestCase{
			ID:              uuid.NewString(),
			SubmissionID:    submission.ID,
			Index:           i,
			Status:          model.TestCasePending,
			JudgeTrackingID: token,
		}
	}

	if err := s.submissionRepo.CreateWithTestCases(ctx, submission, testCases); err != nil {
		return nil, common.Errorf("persisting submission: %w", err)
	}

	log.Printf("Submission %s created with %d testcases (problem %s, lang %s).",
		submission.ID, len(testCases), problem.ID, language.Key)
	return submission, nil
}

// Reconcile folds the judge's per-token results into the testcase rows and,
// once every row is terminal, freezes the submission verdict. It is safe
// under concurrent callers: a redis lock keeps them from polling the judge
// in parallel, and every write underneath is an idempotent guarded update.
// Judge lookup errors are transient — the rows stay PENDING and the next
// poll retries.
func (s *SubmissionService) Reconcile(ctx context.Context, submissionID string) (*model.Submission, []model.TestCase, error) {
	submission, err := s.submissionRepo.GetByID(ctx, submissionID)
	if err != nil {
		return nil, nil, common.Errorf("submission %s: %w", submissionID, err)
	}

	if submission.Status.Terminal() {
		testCases, err := s.submissionRepo.ListTestCases(ctx, submissionID)
		if err != nil {
			return nil, nil, common.Errorf("testcases for %s: %w", submissionID, err)
		}
		return submission, testCases, nil
	}

	acquired, release := s.acquireReconcileLock(ctx, submissionID)
	if acquired {
		defer release()
		s.refreshPendingTestCases(ctx, submissionID)
	}

	testCases, err := s.submissionRepo.ListTestCases(ctx, submissionID)
	if err != nil {
		return nil, nil, common.Errorf("testcases for %s: %w", submissionID, err)
	}

	verdict, done := model.VerdictFor(testCases)
	if done {
		transitioned, err := s.submissionRepo.FinalizeVerdict(ctx, submissionID, verdict)
		if err != nil {
			return nil, nil, common.Errorf("finalizing verdict for %s: %w", submissionID, err)
		}
		if transitioned {
			submission.Status = verdict
			log.Printf("Submission %s reached verdict %s.", submissionID, verdict)
			if verdict == model.SubmissionAccepted && submission.ActiveContestID != nil {
				s.recordContestSolve(ctx, submission)
			}
		} else {
			// Another reconciler won the transition; re-read the frozen row.
			submission, err = s.submissionRepo.GetByID(ctx, submissionID)
			if err != nil {
				return nil, nil, common.Errorf("submission %s: %w", submissionID, err)
			}
		}
	}

	return submission, testCases, nil
}

// refreshPendingTestCases polls the judge for every still-pending token
// concurrently and applies the results. Per-token failures are absorbed.
func (s *SubmissionService) refreshPendingTestCases(ctx context.Context, submissionID string) {
	testCases, err := s.submissionRepo.ListTestCases(ctx, submissionID)
	if err != nil {
		log.Printf("WARN: reconcile %s: listing testcases: %v", submissionID, err)
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, tc := range testCases {
		if tc.Status.Terminal() {
			continue
		}
		tc := tc
		g.Go(func() error {
			result, err := s.judgeClient.PollOne(gctx, tc.JudgeTrackingID)
			if err != nil {
				log.Printf("WARN: reconcile %s: polling token %s: %v", submissionID, tc.JudgeTrackingID, err)
				return nil // transient, retried on the next poll
			}
			if !result.Status.Terminal() {
				return nil
			}
			if err := s.submissionRepo.UpdateTestCaseStatus(gctx, submissionID, tc.Index, result.Status, result.Stdout, result.TimeMs, result.MemoryKb); err != nil {
				log.Printf("WARN: reconcile %s: updating testcase %d: %v", submissionID, tc.Index, err)
			}
			return nil
		})
	}
	g.Wait()
}

// recordContestSolve bumps the contest's solved counter exactly once per
// accepted submission. The counted flag is the idempotency gate; failures
// after the flag flip are logged, not surfaced, and the increment endpoint
// offers a retry path.
func (s *SubmissionService) recordContestSolve(ctx context.Context, submission *model.Submission) {
	counted, err := s.submissionRepo.MarkContestCounted(ctx, submission.ID)
	if err != nil {
		log.Printf("WARN: submission %s: marking contest counted: %v", submission.ID, err)
		return
	}
	if !counted {
		return
	}
	if err := s.contestRepo.IncrementSolved(ctx, *submission.ActiveContestID, submission.ProblemID); err != nil {
		log.Printf("WARN: submission %s: incrementing solved for contest %s: %v",
			submission.ID, *submission.ActiveContestID, err)
	}
}

var releaseLockScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0`)

func (s *SubmissionService) acquireReconcileLock(ctx context.Context, submissionID string) (bool, func()) {
	key := "reconcile:lock:" + submissionID
	value := uuid.NewString()
	ok, err := s.rdb.SetNX(ctx, key, value, s.lockTTL).Result()
	if err != nil {
		log.Printf("WARN: reconcile %s: lock acquisition: %v", submissionID, err)
		return false, func() {}
	}
	if !ok {
		return false, func() {}
	}
	return true, func() {
		if err := releaseLockScript.Run(ctx, s.rdb, []string{key}, value).Err(); err != nil && !errors.Is(err, redis.Nil) {
			log.Printf("WARN: reconcile %s: lock release: %v", submissionID, err)
		}
	}
}

// Status reads the current status, reconciling first. Satisfies the
// verdict poller's StatusReader.
func (s *SubmissionService) Status(ctx context.Context, submissionID string) (model.SubmissionStatus, error) {
	submission, _, err := s.Reconcile(ctx, submissionID)
	if err != nil {
		return model.SubmissionPending, err
	}
	return submission.Status, nil
}

// GetForUser is the poll read behind GET /submissions: owner-scoped (a
// missing or foreign submission is simply not found) and reconciled so the
// caller observes fresh state.
func (s *SubmissionService) GetForUser(ctx context.Context, userID, submissionID string) (*model.Submission, []model.TestCase, error) {
	submission, err := s.submissionRepo.GetByIDForUser(ctx, submissionID, userID)
	if err != nil {
		return nil, nil, common.Errorf("submission %s: %w", submissionID, err)
	}

	reconciled, testCases, err := s.Reconcile(ctx, submission.ID)
	if err != nil {
		return nil, nil, err
	}
	return reconciled, testCases, nil
}

// ApplyCallback handles the judge's push notification for one token. It is
// best-effort and at-least-once: the row update is idempotent and polling
// remains the authoritative path.
func (s *SubmissionService) ApplyCallback(ctx context.Context, token string, result judge.TokenResult) error {
	testCase, err := s.submissionRepo.FindTestCaseByToken(ctx, token)
	if err != nil {
		return common.Errorf("callback token %s: %w", token, err)
	}

	if result.Status.Terminal() {
		if err := s.submissionRepo.UpdateTestCaseStatus(ctx, testCase.SubmissionID, testCase.Index, result.Status, result.Stdout, result.TimeMs, result.MemoryKb); err != nil {
			return common.Errorf("callback token %s: updating testcase: %w", token, err)
		}
	}

	if _, _, err := s.Reconcile(ctx, testCase.SubmissionID); err != nil {
		// The next client poll retries; callbacks never fail a submission.
		log.Printf("WARN: callback token %s: reconcile: %v", token, err)
	}
	return nil
}

// History lists a user's past submissions for one problem, newest first.
func (s *SubmissionService) History(ctx context.Context, userID, problemID string, limit int) ([]model.Submission, error) {
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	return s.submissionRepo.ListForUserProblem(ctx, userID, problemID, limit)
}
