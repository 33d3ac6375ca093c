package services

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"projecthub/recommender/internal/config"
	"projecthub/recommender/internal/models"
	"projecthub/recommender/internal/repositories"
)

// RecommendOptions tune one generation. Zero values take the documented
// defaults (limit 10, minimum similarity 0.3, no filters).
type RecommendOptions struct {
	Limit                  int
	MinSimilarityScore     *float64
	IncludeSpecializations []string
	ExcludeSpecializations []string
	MaxDifficulty          models.DifficultyLevel
	ForceRefresh           bool
}

// RecommendationService is the top-level entry point. Its contract: a call
// for an existing student always produces a result. Any failure inside the
// AI path (circuit open, rate limited, over budget, provider down) degrades
// to the rule-based scorer instead of surfacing to the caller.
type RecommendationService interface {
	GenerateRecommendations(ctx context.Context, studentID uuid.UUID, opts *RecommendOptions) (*models.RecommendationResult, error)
}

type recommendationService struct {
	studentRepo repositories.StudentRepository
	projectRepo repositories.ProjectRepository
	recRepo     repositories.RecommendationRepository
	cache       RecommendationCache
	scorer      FallbackScorer
	router      ModelRouter
	vectorStore ProjectVectorStore
	recCfg      config.RecommenderConfig
	cacheCfg    config.CacheConfig
}

func NewRecommendationService(
	studentRepo repositories.StudentRepository,
	projectRepo repositories.ProjectRepository,
	recRepo repositories.RecommendationRepository,
	cache RecommendationCache,
	scorer FallbackScorer,
	router ModelRouter,
	vectorStore ProjectVectorStore,
	recCfg config.RecommenderConfig,
	cacheCfg config.CacheConfig,
) RecommendationService {
	return &recommendationService{
		studentRepo: studentRepo,
		projectRepo: projectRepo,
		recRepo:     recRepo,
		cache:       cache,
		scorer:      scorer,
		router:      router,
		vectorStore: vectorStore,
		recCfg:      recCfg,
		cacheCfg:    cacheCfg,
	}
}

// GenerateRecommendations implements RecommendationService.
func (s *recommendationService) GenerateRecommendations(ctx context.Context, studentID uuid.UUID, opts *RecommendOptions) (*models.RecommendationResult, error) {
	if opts == nil {
		opts = &RecommendOptions{}
	}

	if opts.ForceRefresh {
		if err := s.cache.InvalidateAll(ctx, studentID); err != nil {
			log.Printf("⚠️  Failed to invalidate cache for %s: %v\n", studentID, err)
		}
	} else {
		cached, err := s.cache.Get(ctx, studentID)
		if err != nil {
			log.Printf("⚠️  Cache read failed for %s: %v\n", studentID, err)
		}
		if cached != nil {
			cached.FromCache = true
			return cached, nil
		}
	}

	profile, err := s.studentRepo.FindProfile(studentID)
	if err != nil {
		return nil, err
	}

	filter := repositories.ProjectFilter{
		IncludeSpecializations: opts.IncludeSpecializations,
		ExcludeSpecializations: opts.ExcludeSpecializations,
		MaxDifficulty:          opts.MaxDifficulty,
	}
	candidates, err := s.projectRepo.FindApprovedProjects(filter)
	if err != nil {
		return nil, fmt.Errorf("failed to load candidate projects: %w", err)
	}

	var result *models.RecommendationResult
	if s.recCfg.AIEnabled {
		result, err = s.generateAIRecommendations(ctx, profile, candidates, filter, opts)
		if err != nil {
			log.Printf("⚠️  AI recommendation path failed for %s, falling back: %v\n", studentID, err)
			result = nil
		}
	}

	if result == nil {
		result = s.scorer.Score(profile, candidates, FallbackOptions{
			Limit:              s.effectiveLimit(opts),
			MinSimilarityScore: s.effectiveMinScore(opts),
		})
	}

	ttl := s.cacheCfg.AITTL
	if result.Method == models.MethodRuleBasedFallback {
		// Fallback results carry less confidence, so they expire sooner.
		ttl = s.cacheCfg.FallbackTTL
	}
	result.ExpiresAt = result.GeneratedAt.Add(ttl)

	if err := s.recRepo.Create(result); err != nil {
		log.Printf("⚠️  Failed to persist recommendation for %s: %v\n", studentID, err)
	}
	if err := s.cache.Set(ctx, studentID, result, ttl); err != nil {
		log.Printf("⚠️  Failed to cache recommendation for %s: %v\n", studentID, err)
	}

	return result, nil
}

// generateAIRecommendations runs the embedding + similarity path through the
// model router. Every error is returned to the orchestrator for fallback;
// nothing here is user-fatal.
func (s *recommendationService) generateAIRecommendations(
	ctx context.Context,
	profile *models.StudentProfile,
	candidates []models.Project,
	filter repositories.ProjectFilter,
	opts *RecommendOptions,
) (*models.RecommendationResult, error) {
	start := time.Now()

	if len(candidates) == 0 {
		return &models.RecommendationResult{
			StudentID:       profile.ID,
			Recommendations: models.RecommendationList{},
			Method:          models.MethodAIEmbedding,
			Status:          models.RecommendationActive,
			Reasoning:       noCandidatesReasoning,
			GeneratedAt:     start,
			Metadata: models.ResultMetadata{
				ProcessingTimeMs: time.Since(start).Milliseconds(),
				ProjectsAnalyzed: 0,
				Fallback:         false,
			},
		}, nil
	}

	profileEmbeddings, err := s.router.RouteEmbedding(ctx, []string{profileText(profile)}, profile.ID.String())
	if err != nil {
		return nil, fmt.Errorf("profile embedding failed: %w", err)
	}
	profileVector := profileEmbeddings[0]

	candidateByID := make(map[uuid.UUID]*models.Project, len(candidates))
	for i := range candidates {
		candidateByID[candidates[i].ID] = &candidates[i]
	}

	limit := s.effectiveLimit(opts)
	minScore := *s.effectiveMinScore(opts)
	scoreByID := make(map[uuid.UUID]float64)

	matches, err := s.vectorStore.SearchSimilar(ctx, profileVector, filter, uint64(len(candidates)))
	if err != nil {
		log.Printf("⚠️  Vector search failed, scoring candidates directly: %v\n", err)
	}
	for _, match := range matches {
		if _, ok := candidateByID[match.ProjectID]; ok {
			scoreByID[match.ProjectID] = clamp01(float64(match.Score))
		}
	}

	// Projects missing from the index (or all of them, when the search
	// found nothing) are scored by embedding them directly.
	var unscored []*models.Project
	for i := range candidates {
		if _, ok := scoreByID[candidates[i].ID]; !ok {
			unscored = append(unscored, &candidates[i])
		}
	}
	if len(unscored) > 0 {
		texts := make([]string, len(unscored))
		for i, p := range unscored {
			texts[i] = projectText(p)
		}
		embeddings, err := s.router.RouteEmbedding(ctx, texts, profile.ID.String())
		if err != nil {
			return nil, fmt.Errorf("candidate embedding failed: %w", err)
		}
		for i, p := range unscored {
			scoreByID[p.ID] = clamp01(CosineSimilarity(profileVector, embeddings[i]))
		}
	}

	var recs models.RecommendationList
	for i := range candidates {
		project := &candidates[i]
		score := scoreByID[project.ID]
		if score < minScore {
			continue
		}

		matchedSkills := matchSkills(profile.Skills, project.TechnologyStack)
		matchedInterests := matchInterests(profile.Interests, project)

		recs = append(recs, models.ProjectRecommendation{
			ProjectID:         project.ID,
			Title:             project.Title,
			Abstract:          project.Abstract,
			Specialization:    project.Specialization,
			DifficultyLevel:   project.DifficultyLevel,
			SimilarityScore:   score,
			MatchingSkills:    matchedSkills,
			MatchingInterests: matchedInterests,
			Reasoning:         aiReasoning(score, matchedSkills, matchedInterests),
			Supervisor: models.SupervisorSummary{
				ID:             project.Supervisor.ID,
				Name:           project.Supervisor.Name,
				Specialization: project.Supervisor.Specialization,
			},
		})
	}

	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].SimilarityScore > recs[j].SimilarityScore
	})
	if len(recs) > limit {
		recs = recs[:limit]
	}

	var total float64
	for _, rec := range recs {
		total += rec.SimilarityScore
	}

	result := &models.RecommendationResult{
		StudentID:       profile.ID,
		Recommendations: recs,
		Method:          models.MethodAIEmbedding,
		Status:          models.RecommendationActive,
		GeneratedAt:     start,
		Metadata: models.ResultMetadata{
			ProcessingTimeMs: time.Since(start).Milliseconds(),
			ProjectsAnalyzed: len(candidates),
			Fallback:         false,
		},
	}
	if len(recs) > 0 {
		result.AverageSimilarityScore = total / float64(len(recs))
	} else {
		result.Recommendations = models.RecommendationList{}
		result.Reasoning = noCandidatesReasoning
	}

	// A short LLM summary over the top picks. Purely cosmetic: a failure
	// here never fails the AI path.
	if len(recs) > 0 {
		if summary, err := s.generateSummary(ctx, profile, recs); err != nil {
			log.Printf("⚠️  Reasoning summary failed for %s: %v\n", profile.ID, err)
		} else {
			result.Reasoning = summary
		}
	}

	return result, nil
}

func (s *recommendationService) generateSummary(ctx context.Context, profile *models.StudentProfile, recs models.RecommendationList) (string, error) {
	titles := make([]string, 0, 3)
	for i, rec := range recs {
		if i == 3 {
			break
		}
		titles = append(titles, rec.Title)
	}

	prompt := fmt.Sprintf(
		`You are advising a final-year student choosing a project.
Student skills: %s. Interests: %s.
Top recommended projects: %s.
In 2-3 sentences, explain why these projects suit this student. Return only the text.`,
		strings.Join(profile.Skills, ", "),
		strings.Join(profile.Interests, ", "),
		strings.Join(titles, "; "),
	)

	selection, err := s.router.SelectOptimalModel(ctx, prompt, nil, &RouteOptions{
		RequiredCapabilities: []models.ModelCapability{models.CapabilityChat},
	})
	if err != nil {
		return "", err
	}

	resp, err := s.router.RouteChat(ctx, &ChatRequest{
		Messages:    []ChatMessage{{Role: "user", Content: prompt}},
		Temperature: 0.5,
		MaxTokens:   256,
	}, selection, profile.ID.String())
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(resp.Content), nil
}

func (s *recommendationService) effectiveLimit(opts *RecommendOptions) int {
	if opts.Limit > 0 {
		return opts.Limit
	}
	if s.recCfg.DefaultLimit > 0 {
		return s.recCfg.DefaultLimit
	}
	return defaultFallbackLimit
}

func (s *recommendationService) effectiveMinScore(opts *RecommendOptions) *float64 {
	if opts.MinSimilarityScore != nil {
		return opts.MinSimilarityScore
	}
	minScore := s.recCfg.MinSimilarityScore
	return &minScore
}

func profileText(profile *models.StudentProfile) string {
	var b strings.Builder
	b.WriteString("Skills: ")
	b.WriteString(strings.Join(profile.Skills, ", "))
	b.WriteString(". Interests: ")
	b.WriteString(strings.Join(profile.Interests, ", "))
	b.WriteString(". Preferred specializations: ")
	b.WriteString(strings.Join(profile.PreferredSpecializations, ", "))
	b.WriteString(".")
	return b.String()
}

func projectText(project *models.Project) string {
	parts := []string{
		project.Title,
		project.Abstract,
		project.Specialization,
		strings.Join(project.TechnologyStack, ", "),
		strings.Join(project.Tags, ", "),
	}
	return strings.Join(parts, ". ")
}

func aiReasoning(score float64, matchedSkills, matchedInterests []string) string {
	parts := []string{
		fmt.Sprintf("Your profile is %.0f%% semantically similar to this project.", score*100),
	}
	if len(matchedSkills) > 0 {
		parts = append(parts, fmt.Sprintf("It uses technologies you know (%s).", strings.Join(matchedSkills, ", ")))
	}
	if len(matchedInterests) > 0 {
		parts = append(parts, fmt.Sprintf("It touches your interests (%s).", strings.Join(matchedInterests, ", ")))
	}
	return strings.Join(parts, " ")
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
