// Package monitor is a thin client for the external face-analysis service.
// The service does the detection work; this side only registers faces,
// forwards webcam frames and consumes the structured results for display
// and flagging.
package monitor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"codecourt/internal/common"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: baseURL, httpClient: httpClient}
}

type GazeInfo struct {
	LeftEar  float64 `json:"left_ear"`
	RightEar float64 `json:"right_ear"`
	GazeX    float64 `json:"gaze_x"`
	GazeY    float64 `json:"gaze_y"`
}

type FaceDetail struct {
	FaceID     int       `json:"face_id"`
	Confidence float64   `json:"confidence"`
	Emotion    string    `json:"emotion,omitempty"`
	Verified   *bool     `json:"verified,omitempty"`
	GazeInfo   *GazeInfo `json:"gaze_info,omitempty"`
}

// DetectionResult is the per-frame analysis returned by detect-cheating.
type DetectionResult struct {
	SessionID           string       `json:"session_id"`
	Timestamp           string       `json:"timestamp"`
	FacesDetected       int          `json:"faces_detected"`
	MultipleFaces       bool         `json:"multiple_faces"`
	FaceDetails         []FaceDetail `json:"face_details,omitempty"`
	IsSamePerson        *bool        `json:"is_same_person,omitempty"`
	LookingAway         *bool        `json:"looking_away,omitempty"`
	SuspicionLevel      string       `json:"suspicion_level"`
	CheatingProbability float64      `json:"cheating_probability"`
	Warnings            []string     `json:"warnings,omitempty"`
	AttentionScore      float64      `json:"attention_score"`
}

type sessionResponse struct {
	SessionID string `json:"session_id"`
}

func (c *Client) RegisterFace(ctx context.Context, userID string, image []byte) error {
	_, err := c.postFrame(ctx, "/register-face/", userID, "", image, nil)
	return err
}

func (c *Client) StartExamSession(ctx context.Context, userID string, image []byte) (string, error) {
	var resp sessionResponse
	if _, err := c.postFrame(ctx, "/start-exam-session/", userID, "", image, &resp); err != nil {
		return "", err
	}
	return resp.SessionID, nil
}

func (c *Client) DetectCheating(ctx context.Context, sessionID string, frame []byte) (*DetectionResult, error) {
	result := &DetectionResult{}
	if _, err := c.postFrame(ctx, "/detect-cheating/", "", sessionID, frame, result); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) EndSession(ctx context.Context, sessionID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/end-session/"+sessionID, nil)
	if err != nil {
		return fmt.Errorf("build end-session request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("monitor end-session: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("monitor end-session: status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) postFrame(ctx context.Context, path, userID, sessionID string, image []byte, out interface{}) (int, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if userID != "" {
		if err := mw.WriteField("user_id", userID); err != nil {
			return 0, fmt.Errorf("write user_id field: %w", err)
		}
	}
	if sessionID != "" {
		if err := mw.WriteField("session_id", sessionID); err != nil {
			return 0, fmt.Errorf("write session_id field: %w", err)
		}
	}
	fw, err := mw.CreateFormFile("image", "frame.jpg")
	if err != nil {
		return 0, fmt.Errorf("create image part: %w", err)
	}
	if _, err := fw.Write(image); err != nil {
		return 0, fmt.Errorf("write image part: %w", err)
	}
	if err := mw.Close(); err != nil {
		return 0, fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return 0, fmt.Errorf("build monitor request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("monitor %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return resp.StatusCode, fmt.Errorf("monitor %s: %w", path, common.ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return resp.StatusCode, fmt.Errorf("monitor %s: status %d: %s", path, resp.StatusCode, body)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("monitor %s: decode: %w", path, err)
		}
	}
	return resp.StatusCode, nil
}
