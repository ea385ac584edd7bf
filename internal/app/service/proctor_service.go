package service

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"codecourt/internal/common"
	"codecourt/internal/platform/monitor"
)

// MonitorClient is the slice of the face-analysis adapter the proctor
// service needs.
type MonitorClient interface {
	RegisterFace(ctx context.Context, userID string, image []byte) error
	StartExamSession(ctx context.Context, userID string, image []byte) (string, error)
	DetectCheating(ctx context.Context, sessionID string, frame []byte) (*monitor.DetectionResult, error)
	EndSession(ctx context.Context, sessionID string) error
}

// CheatCallback is invoked when a frame's cheating probability crosses the
// configured threshold.
type CheatCallback func(result *monitor.DetectionResult)

// ProctorService relays webcam frames to the external face-analysis service
// and records threshold crossings. All analysis happens on the external
// side; this is a display/flagging client only.
type ProctorService struct {
	client    MonitorClient
	rdb       *redis.Client
	threshold float64
	flagTTL   time.Duration
	onCheat   CheatCallback
}

func NewProctorService(client MonitorClient, rdb *redis.Client, threshold float64, flagTTL time.Duration, onCheat CheatCallback) *ProctorService {
	if threshold <= 0 {
		threshold = 0.7
	}
	if flagTTL <= 0 {
		flagTTL = time.Hour
	}
	return &ProctorService{client: client, rdb: rdb, threshold: threshold, flagTTL: flagTTL, onCheat: onCheat}
}

func (s *ProctorService) RegisterFace(ctx context.Context, userID string, image []byte) error {
	if len(image) == 0 {
		return common.Errorf("image is required: %w", common.ErrValidation)
	}
	return s.client.RegisterFace(ctx, userID, image)
}

func (s *ProctorService) StartSession(ctx context.Context, userID string, image []byte) (string, error) {
	if len(image) == 0 {
		return "", common.Errorf("image is required: %w", common.ErrValidation)
	}
	return s.client.StartExamSession(ctx, userID, image)
}

// AnalyzeFrame forwards a frame and applies the threshold. A flagged frame
// is recorded in redis so later reads (end-of-interview report) can see the
// session was flagged even if no one was watching the live feed.
func (s *ProctorService) AnalyzeFrame(ctx context.Context, sessionID string, frame []byte) (*monitor.DetectionResult, error) {
	if len(frame) == 0 {
		return nil, common.Errorf("frame is required: %w", common.ErrValidation)
	}

	result, err := s.client.DetectCheating(ctx, sessionID, frame)
	if err != nil {
		return nil, common.Errorf("analyzing frame for session %s: %w", sessionID, err)
	}

	if result.CheatingProbability > s.threshold {
		s.flagSession(ctx, sessionID, result)
		if s.onCheat != nil {
			s.onCheat(result)
		}
	}
	return result, nil
}

func (s *ProctorService) EndSession(ctx context.Context, sessionID string) error {
	return s.client.EndSession(ctx, sessionID)
}

// SessionFlag is the stored record of the worst flagged frame in a session.
type SessionFlag struct {
	SessionID           string  `json:"session_id"`
	SuspicionLevel      string  `json:"suspicion_level"`
	CheatingProbability float64 `json:"cheating_probability"`
	Timestamp           string  `json:"timestamp"`
}

func (s *ProctorService) flagSession(ctx context.Context, sessionID string, result *monitor.DetectionResult) {
	flag := SessionFlag{
		SessionID:           sessionID,
		SuspicionLevel:      result.SuspicionLevel,
		CheatingProbability: result.CheatingProbability,
		Timestamp:           result.Timestamp,
	}

	key := "proctor:flag:" + sessionID
	if existing, err := s.GetFlag(ctx, sessionID); err == nil && existing.CheatingProbability >= flag.CheatingProbability {
		return // keep the worst frame
	}

	payload, err := json.Marshal(flag)
	if err != nil {
		log.Printf("WARN: proctor: marshal flag for %s: %v", sessionID, err)
		return
	}
	if err := s.rdb.Set(ctx, key, payload, s.flagTTL).Err(); err != nil {
		log.Printf("WARN: proctor: storing flag for %s: %v", sessionID, err)
	}
	log.Printf("Proctor flag raised for session %s (probability %.2f, level %s).",
		sessionID, result.CheatingProbability, result.SuspicionLevel)
}

func (s *ProctorService) GetFlag(ctx context.Context, sessionID string) (*SessionFlag, error) {
	payload, err := s.rdb.Get(ctx, "proctor:flag:"+sessionID).Result()
	if err == redis.Nil {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, common.Errorf("reading flag for %s: %w", sessionID, err)
	}
	flag := &SessionFlag{}
	if err := json.Unmarshal([]byte(payload), flag); err != nil {
		return nil, common.Errorf("decoding flag for %s: %w", sessionID, err)
	}
	return flag, nil
}
