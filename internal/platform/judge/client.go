// Package judge adapts internal submission batches to the external Judge0
// HTTP API. Execution is asynchronous on the judge side: SubmitBatch returns
// one tracking token per stdin item and results are fetched later per token
// (or pushed to the registered callback URL, best-effort).
package judge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"

	"codecourt/internal/common"
	"codecourt/internal/domain/model"
)

type Client struct {
	baseURL     string
	callbackURL string
	httpClient  *http.Client
}

func NewClient(baseURL, callbackURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: baseURL, callbackURL: callbackURL, httpClient: httpClient}
}

// BatchRequest is one submission fanned out over the problem's hidden
// testcases. SourceCode must already contain the user's code spliced into
// the full boilerplate.
type BatchRequest struct {
	JudgeLanguageID int
	SourceCode      string
	Stdins          []string
	ExpectedOutputs []string
}

type batchItem struct {
	LanguageID     int    `json:"language_id"`
	SourceCode     string `json:"source_code"`
	Stdin          string `json:"stdin"`
	ExpectedOutput string `json:"expected_output"`
	CallbackURL    string `json:"callback_url,omitempty"`
}

type batchBody struct {
	Submissions []batchItem `json:"submissions"`
}

type tokenEntry struct {
	Token string `json:"token"`
}

// SubmitBatch sends the whole batch in one request and returns the judge's
// tracking tokens in stdin order. Any transport or decoding failure wraps
// common.ErrJudgeUnavailable so the caller can abort without persisting.
func (c *Client) SubmitBatch(ctx context.Context, req BatchRequest) ([]string, error) {
	if len(req.Stdins) == 0 || len(req.Stdins) != len(req.ExpectedOutputs) {
		return nil, fmt.Errorf("batch needs matching stdin/expected lists (%d/%d): %w",
			len(req.Stdins), len(req.ExpectedOutputs), common.ErrBadRequest)
	}

	body := batchBody{Submissions: make([]batchItem, 0, len(req.Stdins))}
	for i, stdin := range req.Stdins {
		body.Submissions = append(body.Submissions, batchItem{
			LanguageID:     req.JudgeLanguageID,
			SourceCode:     req.SourceCode,
			Stdin:          stdin,
			ExpectedOutput: req.ExpectedOutputs[i],
			CallbackURL:    c.callbackURL,
		})
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal batch: %w", err)
	}

	endpoint := c.baseURL + "/submissions/batch?base64_encoded=false"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build batch request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("judge batch submit: %v: %w", err, common.ErrJudgeUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("judge batch submit: status %d: %w", resp.StatusCode, common.ErrJudgeUnavailable)
	}

	var entries []tokenEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("judge batch submit: decode: %v: %w", err, common.ErrJudgeUnavailable)
	}
	if len(entries) != len(req.Stdins) {
		return nil, fmt.Errorf("judge batch submit: got %d tokens for %d items: %w",
			len(entries), len(req.Stdins), common.ErrJudgeUnavailable)
	}

	tokens := make([]string, len(entries))
	for i, e := range entries {
		if e.Token == "" {
			return nil, fmt.Errorf("judge batch submit: empty token at %d: %w", i, common.ErrJudgeUnavailable)
		}
		tokens[i] = e.Token
	}
	return tokens, nil
}

// TokenResult is the judged state of one batch item.
type TokenResult struct {
	Status   model.TestCaseStatus
	Stdout   *string
	TimeMs   *int
	MemoryKb *int
}

type pollBody struct {
	Status struct {
		ID          int    `json:"id"`
		Description string `json:"description"`
	} `json:"status"`
	Stdout *string `json:"stdout"`
	Time   *string `json:"time"`   // seconds, e.g. "0.002"
	Memory *int    `json:"memory"` // kilobytes
}

// PollOne looks up the current status of a single tracking token.
func (c *Client) PollOne(ctx context.Context, token string) (TokenResult, error) {
	endpoint := c.baseURL + "/submissions/" + url.PathEscape(token) +
		"?base64_encoded=false&fields=status,stdout,time,memory"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return TokenResult{}, fmt.Errorf("build poll request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return TokenResult{}, fmt.Errorf("judge poll %s: %v: %w", token, err, common.ErrJudgeUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return TokenResult{}, fmt.Errorf("judge poll %s: %w", token, common.ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return TokenResult{}, fmt.Errorf("judge poll %s: status %d: %w", token, resp.StatusCode, common.ErrJudgeUnavailable)
	}

	var body pollBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return TokenResult{}, fmt.Errorf("judge poll %s: decode: %v: %w", token, err, common.ErrJudgeUnavailable)
	}

	result := TokenResult{
		Status:   StatusFromJudgeID(body.Status.ID),
		Stdout:   body.Stdout,
		MemoryKb: body.Memory,
	}
	if body.Time != nil {
		if seconds, err := strconv.ParseFloat(*body.Time, 64); err == nil {
			ms := int(math.Round(seconds * 1000))
			result.TimeMs = &ms
		}
	}
	return result, nil
}

// StatusFromJudgeID maps Judge0 status ids to internal testcase statuses.
// 1 In Queue, 2 Processing, 3 Accepted, 4 Wrong Answer, 5 Time Limit
// Exceeded, 6 Compilation Error, 7-12 runtime errors, 13 Internal Error,
// 14 Exec Format Error.
func StatusFromJudgeID(id int) model.TestCaseStatus {
	switch {
	case id == 1 || id == 2:
		return model.TestCasePending
	case id == 3:
		return model.TestCaseAccepted
	case id == 4:
		return model.TestCaseFailed
	case id == 5:
		return model.TestCaseTimeLimit
	case id == 6:
		return model.TestCaseCompilationError
	case id >= 7 && id <= 12:
		return model.TestCaseFailed
	default:
		return model.TestCaseRejected
	}
}
