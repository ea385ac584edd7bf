package model

import "time"

type Contest struct {
	ID                 string    `json:"id"`
	Title              string    `json:"title"`
	Description        string    `json:"description"`
	StartTime          time.Time `json:"start_time"`
	EndTime            time.Time `json:"end_time"`
	Hidden             bool      `json:"hidden"`
	Leaderboard        bool      `json:"leaderboard"`
	UserID             *string   `json:"user_id,omitempty"` // owner, for interview-generated contests
	InterviewSessionID *string   `json:"interview_session_id,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
}

// IsOpen is the contest timer gate: submissions are accepted strictly before
// endTime. The server-side check at submit time is authoritative; any
// UI-side countdown is advisory only.
func (c *Contest) IsOpen(now time.Time) bool {
	return now.Before(c.EndTime)
}

// ContestProblem joins a contest to a problem. Solved counts distinct
// accepted submissions of the problem inside the contest.
type ContestProblem struct {
	ContestID string `json:"contest_id"`
	ProblemID string `json:"problem_id"`
	Index     int    `json:"index"`
	Solved    int    `json:"solved"`

	// Populated on reads that join the problem row.
	ProblemTitle *string `json:"problem_title,omitempty"`
	ProblemSlug  *string `json:"problem_slug,omitempty"`
}
