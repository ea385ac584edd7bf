package service

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/redis/go-redis/v9"

	"codecourt/internal/common"
	"codecourt/internal/domain/model"
	"codecourt/internal/domain/repository"
)

// ProblemService reads problem content and the per-language starting code.
// Problems and boilerplates are owned by content tooling; this side reads
// them and caches the hot default-code lookups in redis.
type ProblemService struct {
	problemRepo repository.ProblemRepository
	rdb         *redis.Client
	cacheTTL    time.Duration
}

func NewProblemService(problemRepo repository.ProblemRepository, rdb *redis.Client, cacheTTL time.Duration) *ProblemService {
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Minute
	}
	return &ProblemService{problemRepo: problemRepo, rdb: rdb, cacheTTL: cacheTTL}
}

func (s *ProblemService) List(ctx context.Context, limit, offset int) ([]model.Problem, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.problemRepo.List(ctx, limit, offset)
}

func (s *ProblemService) GetBySlug(ctx context.Context, problemSlug string) (*model.Problem, error) {
	problem, err := s.problemRepo.FindBySlug(ctx, problemSlug)
	if err != nil {
		return nil, common.Errorf("problem %s: %w", problemSlug, err)
	}
	return problem, nil
}

// GetDefaultCode returns the partial boilerplate shown to the candidate.
// Results are cached: the rows are written only by content tooling, so a
// short TTL is enough to keep them fresh.
func (s *ProblemService) GetDefaultCode(ctx context.Context, problemID, languageKey string) (string, error) {
	language, ok := model.LanguageByKey(languageKey)
	if !ok {
		return "", common.Errorf("unsupported language %q: %w", languageKey, common.ErrValidation)
	}

	cacheKey := "defaultcode:" + problemID + ":" + language.Key
	if cached, err := s.rdb.Get(ctx, cacheKey).Result(); err == nil {
		return cached, nil
	}

	defaultCode, err := s.problemRepo.GetDefaultCode(ctx, problemID, language.InternalID)
	if err != nil {
		return "", common.Errorf("default code for %s/%s: %w", problemID, language.Key, err)
	}

	if err := s.rdb.Set(ctx, cacheKey, defaultCode.PartialBoilerplate, s.cacheTTL).Err(); err != nil {
		log.Printf("WARN: caching default code %s: %v", cacheKey, err)
	}
	return defaultCode.PartialBoilerplate, nil
}

type UpsertProblemRequest struct {
	Title           string                   `json:"title"`
	Description     string                   `json:"description"`
	Examples        []model.Example          `json:"examples"`
	Constraints     []string                 `json:"constraints"`
	InputTestCases  []string                 `json:"input_test_cases"`
	OutputTestCases []string                 `json:"output_test_cases"`
	Boilerplates    []UpsertBoilerplateEntry `json:"boilerplates"`
}

type UpsertBoilerplateEntry struct {
	LanguageKey        string `json:"language_key"`
	FullBoilerplate    string `json:"full_boilerplate"`
	PartialBoilerplate string `json:"partial_boilerplate"`
}

// Upsert ingests generated problem content. Hidden testcases stay parallel
// arrays, and every full boilerplate must carry the splice marker exactly
// once so judging can't fail later on corrupt content.
func (s *ProblemService) Upsert(ctx context.Context, req UpsertProblemRequest) (*model.Problem, error) {
	if req.Title == "" || req.Description == "" {
		return nil, common.Errorf("title and description are required: %w", common.ErrValidation)
	}
	if len(req.InputTestCases) == 0 || len(req.InputTestCases) != len(req.OutputTestCases) {
		return nil, common.Errorf("input/output testcase lists must match and be non-empty: %w", common.ErrValidation)
	}

	boilerplates := make([]model.DefaultCode, 0, len(req.Boilerplates))
	for _, bp := range req.Boilerplates {
		language, ok := model.LanguageByKey(bp.LanguageKey)
		if !ok {
			return nil, common.Errorf("unsupported language %q: %w", bp.LanguageKey, common.ErrValidation)
		}
		if _, err := SpliceUserCode(bp.FullBoilerplate, ""); err != nil {
			return nil, common.Errorf("boilerplate for %s: %w", language.Key, common.ErrValidation)
		}
		boilerplates = append(boilerplates, model.DefaultCode{
			LanguageID:         language.InternalID,
			FullBoilerplate:    bp.FullBoilerplate,
			PartialBoilerplate: bp.PartialBoilerplate,
		})
	}

	problem := &model.Problem{
		ID:              uuid.NewString(),
		Slug:            slug.Make(req.Title),
		Title:           req.Title,
		Description:     req.Description,
		Examples:        req.Examples,
		Constraints:     req.Constraints,
		InputTestCases:  req.InputTestCases,
		OutputTestCases: req.OutputTestCases,
	}

	if err := s.problemRepo.Upsert(ctx, problem, boilerplates); err != nil {
		return nil, common.Errorf("upserting problem %s: %w", problem.Slug, err)
	}

	// Default-code cache entries for this problem may now be stale.
	for _, language := range model.Languages() {
		if err := s.rdb.Del(ctx, "defaultcode:"+problem.ID+":"+language.Key).Err(); err != nil {
			log.Printf("WARN: invalidating default code cache for %s/%s: %v", problem.ID, language.Key, err)
		}
	}

	log.Printf("Problem %s (%s) upserted with %d hidden testcases.", problem.Slug, problem.ID, len(req.InputTestCases))
	return problem, nil
}
