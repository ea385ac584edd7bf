package model

import "time"

type SubmissionStatus string

const (
	SubmissionPending  SubmissionStatus = "PENDING"
	SubmissionAccepted SubmissionStatus = "ACCEPTED"
	SubmissionFailed   SubmissionStatus = "FAILED"
)

// Terminal reports whether the submission has reached a final verdict.
// PENDING -> {ACCEPTED|FAILED} is the only legal transition; a terminal
// status is never left.
func (s SubmissionStatus) Terminal() bool {
	return s == SubmissionAccepted || s == SubmissionFailed
}

type TestCaseStatus string

const (
	TestCasePending          TestCaseStatus = "PENDING"
	TestCaseAccepted         TestCaseStatus = "AC"
	TestCaseFailed           TestCaseStatus = "FAIL"
	TestCaseTimeLimit        TestCaseStatus = "TLE"
	TestCaseCompilationError TestCaseStatus = "COMPILATION_ERROR"
	TestCaseRejected         TestCaseStatus = "REJECTED"
)

func (s TestCaseStatus) Terminal() bool {
	return s != TestCasePending
}

type Submission struct {
	ID              string           `json:"id"`
	UserID          string           `json:"user_id"`
	ProblemID       string           `json:"problem_id"`
	LanguageID      int              `json:"language_id"`
	Code            string           `json:"code"`
	FullCode        string           `json:"full_code,omitempty"`
	Status          SubmissionStatus `json:"status"`
	ActiveContestID *string          `json:"active_contest_id,omitempty"`
	ContestCounted  bool             `json:"-"`
	SubmittedAt     time.Time        `json:"submitted_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// TestCase is one (hidden input, expected output) execution of a submission.
// Index matches the position in the problem's hidden testcase arrays; the
// tracking id is the external judge's token for this item.
type TestCase struct {
	ID              string         `json:"id"`
	SubmissionID    string         `json:"submission_id"`
	Index           int            `json:"index"`
	Status          TestCaseStatus `json:"status"`
	JudgeTrackingID string         `json:"judge_tracking_id"`
	Stdout          *string        `json:"stdout,omitempty"`
	TimeMs          *int           `json:"time_ms,omitempty"`
	MemoryKb        *int           `json:"memory_kb,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// VerdictFor reduces a complete set of testcase results to a submission
// verdict. It returns ok=false while any testcase is still pending; the
// reduction is order-insensitive, only completeness matters.
func VerdictFor(testCases []TestCase) (SubmissionStatus, bool) {
	allAccepted := true
	for _, tc := range testCases {
		if !tc.Status.Terminal() {
			return SubmissionPending, false
		}
		if tc.Status != TestCaseAccepted {
			allAccepted = false
		}
	}
	if len(testCases) == 0 {
		return SubmissionPending, false
	}
	if allAccepted {
		return SubmissionAccepted, true
	}
	return SubmissionFailed, true
}
