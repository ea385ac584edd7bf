package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"codecourt/internal/common"
	"codecourt/internal/domain/model"
	"codecourt/internal/platform/judge"
)

// ---- fakes ----

type fakeSubmissionRepo struct {
	mu          sync.Mutex
	submissions map[string]*model.Submission
	testCases   map[string][]model.TestCase
	createErr   error
}

func newFakeSubmissionRepo() *fakeSubmissionRepo {
	return &fakeSubmissionRepo{
		submissions: make(map[string]*model.Submission),
		testCases:   make(map[string][]model.TestCase),
	}
}

func (r *fakeSubmissionRepo) CreateWithTestCases(_ context.Context, sub *model.Submission, testCases []model.TestCase) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	cp := *sub
	r.submissions[sub.ID] = &cp
	r.testCases[sub.ID] = append([]model.TestCase(nil), testCases...)
	return nil
}

func (r *fakeSubmissionRepo) GetByID(_ context.Context, id string) (*model.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.submissions[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *sub
	return &cp, nil
}

func (r *fakeSubmissionRepo) GetByIDForUser(_ context.Context, id, userID string) (*model.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.submissions[id]
	if !ok || sub.UserID != userID {
		return nil, common.ErrNotFound
	}
	cp := *sub
	return &cp, nil
}

func (r *fakeSubmissionRepo) ListTestCases(_ context.Context, submissionID string) ([]model.TestCase, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.TestCase(nil), r.testCases[submissionID]...), nil
}

func (r *fakeSubmissionRepo) FindTestCaseByToken(_ context.Context, token string) (*model.TestCase, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, tcs := range r.testCases {
		for _, tc := range tcs {
			if tc.JudgeTrackingID == token {
				cp := tc
				return &cp, nil
			}
		}
	}
	return nil, common.ErrNotFound
}

func (r *fakeSubmissionRepo) UpdateTestCaseStatus(_ context.Context, submissionID string, index int, status model.TestCaseStatus, stdout *string, timeMs, memoryKb *int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	tcs := r.testCases[submissionID]
	for i := range tcs {
		if tcs[i].Index == index && tcs[i].Status == model.TestCasePending {
			tcs[i].Status = status
			tcs[i].Stdout = stdout
			tcs[i].TimeMs = timeMs
			tcs[i].MemoryKb = memoryKb
		}
	}
	return nil
}

func (r *fakeSubmissionRepo) FinalizeVerdict(_ context.Context, id string, verdict model.SubmissionStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.submissions[id]
	if !ok || sub.Status != model.SubmissionPending {
		return false, nil
	}
	sub.Status = verdict
	return true, nil
}

func (r *fakeSubmissionRepo) MarkContestCounted(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.submissions[id]
	if !ok || sub.ContestCounted {
		return false, nil
	}
	sub.ContestCounted = true
	return true, nil
}

func (r *fakeSubmissionRepo) ListForUserProblem(_ context.Context, userID, problemID string, limit int) ([]model.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Submission
	for _, sub := range r.submissions {
		if sub.UserID == userID && sub.ProblemID == problemID && len(out) < limit {
			out = append(out, *sub)
		}
	}
	return out, nil
}

func (r *fakeSubmissionRepo) ListAcceptedUncounted(_ context.Context, userID, contestID, problemID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []string
	for _, sub := range r.submissions {
		if sub.UserID == userID && sub.ProblemID == problemID &&
			sub.ActiveContestID != nil && *sub.ActiveContestID == contestID &&
			sub.Status == model.SubmissionAccepted && !sub.ContestCounted {
			ids = append(ids, sub.ID)
		}
	}
	return ids, nil
}

type fakeProblemRepo struct {
	problems     map[string]*model.Problem
	defaultCodes map[string]*model.DefaultCode // "problemID/languageID"
}

func newFakeProblemRepo() *fakeProblemRepo {
	return &fakeProblemRepo{
		problems:     make(map[string]*model.Problem),
		defaultCodes: make(map[string]*model.DefaultCode),
	}
}

func (r *fakeProblemRepo) add(p *model.Problem, codes ...model.DefaultCode) {
	r.problems[p.ID] = p
	for i := range codes {
		codes[i].ProblemID = p.ID
		key := fmt.Sprintf("%s/%d", p.ID, codes[i].LanguageID)
		r.defaultCodes[key] = &codes[i]
	}
}

func (r *fakeProblemRepo) FindByID(_ context.Context, id string) (*model.Problem, error) {
	p, ok := r.problems[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return p, nil
}

func (r *fakeProblemRepo) FindBySlug(_ context.Context, slug string) (*model.Problem, error) {
	for _, p := range r.problems {
		if p.Slug == slug {
			return p, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *fakeProblemRepo) FindBySlugs(_ context.Context, slugs []string) ([]model.Problem, error) {
	var out []model.Problem
	for _, s := range slugs {
		if p, err := r.FindBySlug(context.Background(), s); err == nil {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *fakeProblemRepo) List(_ context.Context, limit, offset int) ([]model.Problem, error) {
	var out []model.Problem
	for _, p := range r.problems {
		out = append(out, *p)
	}
	return out, nil
}

func (r *fakeProblemRepo) GetDefaultCode(_ context.Context, problemID string, languageID int) (*model.DefaultCode, error) {
	dc, ok := r.defaultCodes[fmt.Sprintf("%s/%d", problemID, languageID)]
	if !ok {
		return nil, common.ErrNotFound
	}
	return dc, nil
}

func (r *fakeProblemRepo) Upsert(_ context.Context, problem *model.Problem, boilerplates []model.DefaultCode) error {
	r.add(problem, boilerplates...)
	return nil
}

type fakeContestRepo struct {
	mu       sync.Mutex
	contests map[string]*model.Contest
	problems map[string][]model.ContestProblem
	solved   map[string]int // "contestID/problemID"
}

func newFakeContestRepo() *fakeContestRepo {
	return &fakeContestRepo{
		contests: make(map[string]*model.Contest),
		problems: make(map[string][]model.ContestProblem),
		solved:   make(map[string]int),
	}
}

func (r *fakeContestRepo) FindByID(_ context.Context, id string) (*model.Contest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.contests[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return c, nil
}

func (r *fakeContestRepo) FindActiveInterviewForUser(_ context.Context, userID string, now time.Time) (*model.Contest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *model.Contest
	for _, c := range r.contests {
		if c.UserID == nil || *c.UserID != userID || !strings.HasPrefix(c.Title, "Interview: ") || !c.EndTime.After(now) {
			continue
		}
		if latest == nil || c.CreatedAt.After(latest.CreatedAt) {
			latest = c
		}
	}
	if latest == nil {
		return nil, common.ErrNotFound
	}
	return latest, nil
}

func (r *fakeContestRepo) CreateWithProblems(_ context.Context, contest *model.Contest, problemIDs []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *contest
	r.contests[contest.ID] = &cp
	for i, pid := range problemIDs {
		r.problems[contest.ID] = append(r.problems[contest.ID], model.ContestProblem{
			ContestID: contest.ID,
			ProblemID: pid,
			Index:     i + 1,
			Solved:    0,
		})
	}
	return nil
}

func (r *fakeContestRepo) ListProblems(_ context.Context, contestID string) ([]model.ContestProblem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := append([]model.ContestProblem(nil), r.problems[contestID]...)
	for i := range out {
		out[i].Solved = r.solved[contestID+"/"+out[i].ProblemID]
	}
	return out, nil
}

func (r *fakeContestRepo) IncrementSolved(_ context.Context, contestID, problemID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.solved[contestID+"/"+problemID]++
	return nil
}

func (r *fakeContestRepo) solvedCount(contestID, problemID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.solved[contestID+"/"+problemID]
}

type fakeJudge struct {
	mu          sync.Mutex
	submitErr   error
	batches     []judge.BatchRequest
	nextToken   int
	pollResults map[string]judge.TokenResult
	pollErrs    map[string]error
}

func newFakeJudge() *fakeJudge {
	return &fakeJudge{
		pollResults: make(map[string]judge.TokenResult),
		pollErrs:    make(map[string]error),
	}
}

func (j *fakeJudge) SubmitBatch(_ context.Context, req judge.BatchRequest) ([]string, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.submitErr != nil {
		return nil, j.submitErr
	}
	j.batches = append(j.batches, req)
	tokens := make([]string, len(req.Stdins))
	for i := range tokens {
		tokens[i] = fmt.Sprintf("token-%d", j.nextToken)
		j.nextToken++
	}
	return tokens, nil
}

func (j *fakeJudge) PollOne(_ context.Context, token string) (judge.TokenResult, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err, ok := j.pollErrs[token]; ok {
		return judge.TokenResult{}, err
	}
	if res, ok := j.pollResults[token]; ok {
		return res, nil
	}
	return judge.TokenResult{Status: model.TestCasePending}, nil
}

func (j *fakeJudge) setAllAccepted(tokens []string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	stdout := "ok"
	ms := 12
	kb := 1024
	for _, tok := range tokens {
		j.pollResults[tok] = judge.TokenResult{Status: model.TestCaseAccepted, Stdout: &stdout, TimeMs: &ms, MemoryKb: &kb}
	}
}

// ---- harness ----

type submissionTestEnv struct {
	svc         *SubmissionService
	subRepo     *fakeSubmissionRepo
	probRepo    *fakeProblemRepo
	contestRepo *fakeContestRepo
	judge       *fakeJudge
}

func newSubmissionTestEnv(t *testing.T) *submissionTestEnv {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	env := &submissionTestEnv{
		subRepo:     newFakeSubmissionRepo(),
		probRepo:    newFakeProblemRepo(),
		contestRepo: newFakeContestRepo(),
		judge:       newFakeJudge(),
	}
	env.svc = NewSubmissionService(env.subRepo, env.probRepo, env.contestRepo, env.judge, rdb, 10*time.Second)

	env.probRepo.add(
		&model.Problem{
			ID:              "prob-two-sum",
			Slug:            "two-sum",
			Title:           "Two Sum",
			Description:     "Find indices of two numbers adding to target.",
			InputTestCases:  []string{"4\n2 7 11 15\n9", "3\n3 2 4\n6", "2\n3 3\n6"},
			OutputTestCases: []string{"0 1", "1 2", "0 1"},
		},
		model.DefaultCode{
			LanguageID:         3,
			FullBoilerplate:    "import sys\n##USER_CODE_HERE##\nprint(solve(sys.stdin.read()))\n",
			PartialBoilerplate: "def solve(data):\n    pass\n",
		},
	)
	return env
}

func (env *submissionTestEnv) submit(t *testing.T, userID string, contestID *string) *model.Submission {
	t.Helper()
	sub, err := env.svc.Submit(context.Background(), userID, SubmitRequest{
		Code:            "def solve(data):\n    return '0 1'",
		LanguageID:      "python",
		ProblemID:       "prob-two-sum",
		ActiveContestID: contestID,
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	return sub
}

func (env *submissionTestEnv) tokens(t *testing.T, submissionID string) []string {
	t.Helper()
	tcs, err := env.subRepo.ListTestCases(context.Background(), submissionID)
	if err != nil {
		t.Fatalf("ListTestCases: %v", err)
	}
	out := make([]string, len(tcs))
	for i, tc := range tcs {
		out[i] = tc.JudgeTrackingID
	}
	return out
}

// ---- tests ----

func TestSubmitCreatesPendingSubmissionWithTestCases(t *testing.T) {
	env := newSubmissionTestEnv(t)

	sub := env.submit(t, "user-1", nil)
	if sub.Status != model.SubmissionPending {
		t.Errorf("status = %s, want PENDING", sub.Status)
	}
	if !strings.Contains(sub.FullCode, "return '0 1'") {
		t.Error("full code does not contain the spliced user code")
	}
	if strings.Contains(sub.FullCode, model.BoilerplateMarker) {
		t.Error("marker survived in full code")
	}

	tcs, _ := env.subRepo.ListTestCases(context.Background(), sub.ID)
	if len(tcs) != 3 {
		t.Fatalf("got %d testcases, want one per hidden input", len(tcs))
	}
	for i, tc := range tcs {
		if tc.Index != i {
			t.Errorf("testcase %d has index %d", i, tc.Index)
		}
		if tc.Status != model.TestCasePending {
			t.Errorf("testcase %d status = %s, want PENDING", i, tc.Status)
		}
		if tc.JudgeTrackingID != fmt.Sprintf("token-%d", i) {
			t.Errorf("testcase %d token = %s: tokens must follow stdin order", i, tc.JudgeTrackingID)
		}
	}

	if len(env.judge.batches) != 1 {
		t.Fatalf("judge received %d batches, want 1", len(env.judge.batches))
	}
	batch := env.judge.batches[0]
	if batch.JudgeLanguageID != 71 {
		t.Errorf("judge language id = %d, want 71 (python)", batch.JudgeLanguageID)
	}
	if len(batch.Stdins) != 3 || batch.Stdins[0] != "4\n2 7 11 15\n9" {
		t.Errorf("batch stdins = %v: must carry the hidden inputs in order", batch.Stdins)
	}
}

func TestSubmitValidation(t *testing.T) {
	env := newSubmissionTestEnv(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		req     SubmitRequest
		wantErr error
	}{
		{"empty code", SubmitRequest{LanguageID: "python", ProblemID: "prob-two-sum"}, common.ErrValidation},
		{"missing problem id", SubmitRequest{Code: "x", LanguageID: "python"}, common.ErrValidation},
		{"unknown language", SubmitRequest{Code: "x", LanguageID: "rust", ProblemID: "prob-two-sum"}, common.ErrValidation},
		{"unknown problem", SubmitRequest{Code: "x", LanguageID: "python", ProblemID: "nope"}, common.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := env.svc.Submit(ctx, "user-1", tt.req); !errors.Is(err, tt.wantErr) {
				t.Errorf("Submit() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
	if len(env.subRepo.submissions) != 0 {
		t.Error("rejected submits must not persist anything")
	}
}

func TestSubmitJudgeFailurePersistsNothing(t *testing.T) {
	env := newSubmissionTestEnv(t)
	env.judge.submitErr = common.ErrJudgeUnavailable

	_, err := env.svc.Submit(context.Background(), "user-1", SubmitRequest{
		Code: "x", LanguageID: "python", ProblemID: "prob-two-sum",
	})
	if !errors.Is(err, common.ErrJudgeUnavailable) {
		t.Fatalf("Submit() error = %v, want ErrJudgeUnavailable", err)
	}
	if len(env.subRepo.submissions) != 0 || len(env.subRepo.testCases) != 0 {
		t.Error("a failed batch submit must leave no submission state behind")
	}
}

func TestSubmitContestWindowGate(t *testing.T) {
	env := newSubmissionTestEnv(t)
	owner := "user-1"

	closed := &model.Contest{ID: "contest-closed", Title: "Interview: Assessment Round",
		EndTime: time.Now().Add(-time.Minute), UserID: &owner}
	open := &model.Contest{ID: "contest-open", Title: "Interview: Assessment Round",
		EndTime: time.Now().Add(time.Hour), UserID: &owner}
	env.contestRepo.contests[closed.ID] = closed
	env.contestRepo.contests[open.ID] = open

	_, err := env.svc.Submit(context.Background(), owner, SubmitRequest{
		Code: "x", LanguageID: "python", ProblemID: "prob-two-sum", ActiveContestID: &closed.ID,
	})
	if !errors.Is(err, common.ErrSubmissionWindowClosed) {
		t.Fatalf("closed contest: error = %v, want ErrSubmissionWindowClosed", err)
	}
	if len(env.judge.batches) != 0 {
		t.Error("closed-window submit must not reach the judge")
	}

	sub := env.submit(t, owner, &open.ID)
	if sub.ActiveContestID == nil || *sub.ActiveContestID != open.ID {
		t.Errorf("open contest: ActiveContestID = %v, want %s", sub.ActiveContestID, open.ID)
	}
}

func TestReconcileAllAcceptedFreezesVerdict(t *testing.T) {
	env := newSubmissionTestEnv(t)
	sub := env.submit(t, "user-1", nil)
	env.judge.setAllAccepted(env.tokens(t, sub.ID))

	got, tcs, err := env.svc.Reconcile(context.Background(), sub.ID)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if got.Status != model.SubmissionAccepted {
		t.Errorf("status = %s, want ACCEPTED", got.Status)
	}
	for _, tc := range tcs {
		if tc.Status != model.TestCaseAccepted {
			t.Errorf("testcase %d status = %s, want AC", tc.Index, tc.Status)
		}
		if tc.TimeMs == nil || tc.Stdout == nil {
			t.Errorf("testcase %d is missing the judge's measurements", tc.Index)
		}
	}
}

func TestReconcileOneFailureFailsSubmission(t *testing.T) {
	env := newSubmissionTestEnv(t)
	sub := env.submit(t, "user-1", nil)
	tokens := env.tokens(t, sub.ID)
	env.judge.setAllAccepted(tokens)
	env.judge.pollResults[tokens[1]] = judge.TokenResult{Status: model.TestCaseFailed}

	got, _, err := env.svc.Reconcile(context.Background(), sub.ID)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if got.Status != model.SubmissionFailed {
		t.Errorf("status = %s, want FAILED", got.Status)
	}
}

func TestReconcilePartialResultsStayPending(t *testing.T) {
	env := newSubmissionTestEnv(t)
	sub := env.submit(t, "user-1", nil)
	tokens := env.tokens(t, sub.ID)
	// Only the first token is done; the judge still reports the rest in queue.
	env.judge.pollResults[tokens[0]] = judge.TokenResult{Status: model.TestCaseAccepted}

	got, tcs, err := env.svc.Reconcile(context.Background(), sub.ID)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if got.Status != model.SubmissionPending {
		t.Errorf("status = %s, want PENDING while results are partial", got.Status)
	}
	if tcs[0].Status != model.TestCaseAccepted {
		t.Errorf("finished testcase status = %s, want AC", tcs[0].Status)
	}
	if tcs[1].Status != model.TestCasePending || tcs[2].Status != model.TestCasePending {
		t.Error("unfinished testcases must stay PENDING")
	}
}

func TestReconcileTransientPollErrorStaysPending(t *testing.T) {
	env := newSubmissionTestEnv(t)
	sub := env.submit(t, "user-1", nil)
	tokens := env.tokens(t, sub.ID)
	env.judge.setAllAccepted(tokens)
	env.judge.pollErrs[tokens[2]] = common.ErrJudgeUnavailable

	got, _, err := env.svc.Reconcile(context.Background(), sub.ID)
	if err != nil {
		t.Fatalf("Reconcile must absorb per-token poll errors, got %v", err)
	}
	if got.Status != model.SubmissionPending {
		t.Errorf("status = %s, want PENDING after a transient poll failure", got.Status)
	}

	// The judge recovers; the next reconcile completes the verdict.
	delete(env.judge.pollErrs, tokens[2])
	got, _, err = env.svc.Reconcile(context.Background(), sub.ID)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if got.Status != model.SubmissionAccepted {
		t.Errorf("status = %s, want ACCEPTED after retry", got.Status)
	}
}

func TestReconcileIsIdempotentAfterVerdict(t *testing.T) {
	env := newSubmissionTestEnv(t)
	sub := env.submit(t, "user-1", nil)
	env.judge.setAllAccepted(env.tokens(t, sub.ID))

	first, _, err := env.svc.Reconcile(context.Background(), sub.ID)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}

	// Late conflicting results must not flip a frozen verdict.
	for _, tok := range env.tokens(t, sub.ID) {
		env.judge.pollResults[tok] = judge.TokenResult{Status: model.TestCaseFailed}
	}
	second, _, err := env.svc.Reconcile(context.Background(), sub.ID)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if first.Status != model.SubmissionAccepted || second.Status != model.SubmissionAccepted {
		t.Errorf("verdict flapped: first %s, second %s", first.Status, second.Status)
	}
}

func TestReconcileCountsContestSolveOnce(t *testing.T) {
	env := newSubmissionTestEnv(t)
	owner := "user-1"
	contest := &model.Contest{ID: "contest-1", Title: "Interview: Assessment Round",
		EndTime: time.Now().Add(time.Hour), UserID: &owner}
	env.contestRepo.contests[contest.ID] = contest

	sub := env.submit(t, owner, &contest.ID)
	env.judge.setAllAccepted(env.tokens(t, sub.ID))

	for i := 0; i < 3; i++ {
		if _, _, err := env.svc.Reconcile(context.Background(), sub.ID); err != nil {
			t.Fatalf("Reconcile #%d: %v", i+1, err)
		}
	}
	if got := env.contestRepo.solvedCount(contest.ID, "prob-two-sum"); got != 1 {
		t.Errorf("solved counter = %d, want exactly 1", got)
	}
}

func TestReconcileFailedSubmissionDoesNotCount(t *testing.T) {
	env := newSubmissionTestEnv(t)
	owner := "user-1"
	contest := &model.Contest{ID: "contest-1", Title: "Interview: Assessment Round",
		EndTime: time.Now().Add(time.Hour), UserID: &owner}
	env.contestRepo.contests[contest.ID] = contest

	sub := env.submit(t, owner, &contest.ID)
	tokens := env.tokens(t, sub.ID)
	env.judge.setAllAccepted(tokens)
	env.judge.pollResults[tokens[0]] = judge.TokenResult{Status: model.TestCaseTimeLimit}

	if _, _, err := env.svc.Reconcile(context.Background(), sub.ID); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if got := env.contestRepo.solvedCount(contest.ID, "prob-two-sum"); got != 0 {
		t.Errorf("solved counter = %d, want 0 for a failed submission", got)
	}
}

func TestGetForUserIsOwnerScoped(t *testing.T) {
	env := newSubmissionTestEnv(t)
	sub := env.submit(t, "user-1", nil)

	if _, _, err := env.svc.GetForUser(context.Background(), "user-2", sub.ID); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("foreign user read: error = %v, want ErrNotFound", err)
	}
	if _, _, err := env.svc.GetForUser(context.Background(), "user-1", sub.ID); err != nil {
		t.Errorf("owner read: %v", err)
	}
}

func TestApplyCallbackDrivesVerdict(t *testing.T) {
	env := newSubmissionTestEnv(t)
	sub := env.submit(t, "user-1", nil)
	tokens := env.tokens(t, sub.ID)
	env.judge.setAllAccepted(tokens)

	stdout := "0 1"
	if err := env.svc.ApplyCallback(context.Background(), tokens[0], judge.TokenResult{
		Status: model.TestCaseAccepted, Stdout: &stdout,
	}); err != nil {
		t.Fatalf("ApplyCallback: %v", err)
	}

	got, err := env.subRepo.GetByID(context.Background(), sub.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	// The callback's reconcile also polled the remaining tokens.
	if got.Status != model.SubmissionAccepted {
		t.Errorf("status = %s, want ACCEPTED after callback-triggered reconcile", got.Status)
	}
}

func TestApplyCallbackUnknownTokenIsNotFound(t *testing.T) {
	env := newSubmissionTestEnv(t)
	err := env.svc.ApplyCallback(context.Background(), "no-such-token", judge.TokenResult{Status: model.TestCaseAccepted})
	if !errors.Is(err, common.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestStatusReportsTerminalVerdict(t *testing.T) {
	env := newSubmissionTestEnv(t)
	sub := env.submit(t, "user-1", nil)

	status, err := env.svc.Status(context.Background(), sub.ID)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status != model.SubmissionPending {
		t.Errorf("status = %s, want PENDING before results", status)
	}

	env.judge.setAllAccepted(env.tokens(t, sub.ID))
	status, err = env.svc.Status(context.Background(), sub.ID)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status != model.SubmissionAccepted {
		t.Errorf("status = %s, want ACCEPTED", status)
	}
}
