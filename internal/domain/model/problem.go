package model

import "time"

// BoilerplateMarker is the substitutable position in a full boilerplate where
// the user's code is spliced before the batch goes to the judge. It must
// occur exactly once per DefaultCode row.
const BoilerplateMarker = "##USER_CODE_HERE##"

type Problem struct {
	ID          string    `json:"id"`
	Slug        string    `json:"slug"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Examples    []Example `json:"examples,omitempty"`
	Constraints []string  `json:"constraints,omitempty"`

	// Hidden testcases: InputTestCases[i] pairs with OutputTestCases[i].
	// Never exposed on public reads.
	InputTestCases  []string `json:"-"`
	OutputTestCases []string `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Example struct {
	Input       string `json:"input"`
	Output      string `json:"output"`
	Explanation string `json:"explanation,omitempty"`
}

// DefaultCode holds the per-language boilerplates for a problem: the full
// template sent to the judge (with the marker) and the partial starting
// point shown to the candidate.
type DefaultCode struct {
	ProblemID          string    `json:"problem_id"`
	LanguageID         int       `json:"language_id"`
	FullBoilerplate    string    `json:"full_boilerplate"`
	PartialBoilerplate string    `json:"partial_boilerplate"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}
