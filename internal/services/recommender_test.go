package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"projecthub/recommender/internal/config"
	"projecthub/recommender/internal/models"
)

func testRecommenderConfig() config.RecommenderConfig {
	return config.RecommenderConfig{
		AIEnabled:          true,
		DefaultLimit:       10,
		MinSimilarityScore: 0.3,
	}
}

func testCacheConfig() config.CacheConfig {
	return config.CacheConfig{AITTL: 24 * time.Hour, FallbackTTL: 4 * time.Hour}
}

func newTestRecommender(
	profile *models.StudentProfile,
	projects []models.Project,
	router ModelRouter,
	vectorStore ProjectVectorStore,
) (RecommendationService, *fakeRecRepo, RecommendationCache) {
	recRepo := &fakeRecRepo{}
	cache := NewMemoryRecommendationCache()
	svc := NewRecommendationService(
		&fakeStudentRepo{profiles: map[uuid.UUID]*models.StudentProfile{profile.ID: profile}},
		&fakeProjectRepo{projects: projects},
		recRepo,
		cache,
		NewFallbackScorer(),
		router,
		vectorStore,
		testRecommenderConfig(),
		testCacheConfig(),
	)
	return svc, recRepo, cache
}

func TestGenerateRecommendations_AIPath(t *testing.T) {
	profile := testProfile()
	alpha := testProject("Alpha Web Platform", "Software Engineering", []string{"React"})
	beta := testProject("Beta Firmware", "Embedded Systems", []string{"C"})

	router := &fakeRouter{
		embedFn: func(text string) []float32 {
			if strings.Contains(text, "Beta") {
				return []float32{0, 1, 0}
			}
			return []float32{1, 0, 0}
		},
	}

	svc, recRepo, _ := newTestRecommender(profile, []models.Project{alpha, beta}, router, &fakeVectorStore{})

	result, err := svc.GenerateRecommendations(context.Background(), profile.ID, nil)
	require.NoError(t, err)

	assert.Equal(t, models.MethodAIEmbedding, result.Method)
	assert.False(t, result.Metadata.Fallback)
	assert.False(t, result.FromCache)
	assert.Equal(t, 2, result.Metadata.ProjectsAnalyzed)

	// Beta is orthogonal to the profile, so only Alpha clears the minimum.
	require.Len(t, result.Recommendations, 1)
	assert.Equal(t, "Alpha Web Platform", result.Recommendations[0].Title)
	assert.InDelta(t, 1.0, result.Recommendations[0].SimilarityScore, 1e-6)

	// LLM summary landed on the result.
	assert.NotEmpty(t, result.Reasoning)

	require.Len(t, recRepo.createdResults(), 1)
}

func TestGenerateRecommendations_DegradesToFallback(t *testing.T) {
	profile := testProfile()
	project := testProject("Web Platform", "Software Engineering", []string{"React", "Node.js"})

	router := &fakeRouter{embedErr: errors.New("embedding service down")}
	svc, recRepo, _ := newTestRecommender(profile, []models.Project{project}, router, &fakeVectorStore{})

	result, err := svc.GenerateRecommendations(context.Background(), profile.ID, nil)
	require.NoError(t, err)

	assert.Equal(t, models.MethodRuleBasedFallback, result.Method)
	assert.True(t, result.Metadata.Fallback)
	require.Len(t, result.Recommendations, 1)
	assert.Contains(t, result.Recommendations[0].Reasoning, fallbackDisclosureNote)

	// Fallback results expire on the shorter TTL.
	gap := result.ExpiresAt.Sub(result.GeneratedAt)
	assert.Equal(t, 4*time.Hour, gap)

	require.Len(t, recRepo.createdResults(), 1)
}

func TestGenerateRecommendations_SecondCallHitsCache(t *testing.T) {
	profile := testProfile()
	project := testProject("Web Platform", "Software Engineering", []string{"React"})

	router := &fakeRouter{}
	svc, recRepo, _ := newTestRecommender(profile, []models.Project{project}, router, &fakeVectorStore{})

	first, err := svc.GenerateRecommendations(context.Background(), profile.ID, nil)
	require.NoError(t, err)
	assert.False(t, first.FromCache)

	embedCallsAfterFirst := router.embedCalls

	second, err := svc.GenerateRecommendations(context.Background(), profile.ID, nil)
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, first.Recommendations, second.Recommendations)

	// Nothing new generated or persisted.
	assert.Equal(t, embedCallsAfterFirst, router.embedCalls)
	assert.Len(t, recRepo.createdResults(), 1)
}

func TestGenerateRecommendations_ForceRefreshSkipsCache(t *testing.T) {
	profile := testProfile()
	project := testProject("Web Platform", "Software Engineering", []string{"React"})

	router := &fakeRouter{}
	svc, recRepo, _ := newTestRecommender(profile, []models.Project{project}, router, &fakeVectorStore{})

	_, err := svc.GenerateRecommendations(context.Background(), profile.ID, nil)
	require.NoError(t, err)

	result, err := svc.GenerateRecommendations(context.Background(), profile.ID, &RecommendOptions{ForceRefresh: true})
	require.NoError(t, err)
	assert.False(t, result.FromCache)
	assert.Len(t, recRepo.createdResults(), 2)
}

func TestGenerateRecommendations_MinScoreOptionFiltersAIPath(t *testing.T) {
	profile := testProfile()
	alpha := testProject("Alpha Web Platform", "Software Engineering", []string{"React"})
	beta := testProject("Beta Firmware", "Embedded Systems", []string{"C"})

	// Beta lands at cosine ~0.707 against the profile vector; Alpha at 1.0.
	router := &fakeRouter{
		embedFn: func(text string) []float32 {
			if strings.Contains(text, "Beta") {
				return []float32{1, 1, 0}
			}
			return []float32{1, 0, 0}
		},
	}

	svc, _, _ := newTestRecommender(profile, []models.Project{alpha, beta}, router, &fakeVectorStore{})

	minScore := 0.8
	result, err := svc.GenerateRecommendations(context.Background(), profile.ID, &RecommendOptions{
		MinSimilarityScore: &minScore,
	})
	require.NoError(t, err)

	assert.Equal(t, models.MethodAIEmbedding, result.Method)
	require.Len(t, result.Recommendations, 1)
	assert.Equal(t, "Alpha Web Platform", result.Recommendations[0].Title)
}

func TestGenerateRecommendations_UnknownStudent(t *testing.T) {
	profile := testProfile()
	svc, _, _ := newTestRecommender(profile, nil, &fakeRouter{}, &fakeVectorStore{})

	_, err := svc.GenerateRecommendations(context.Background(), uuid.New(), nil)
	assert.ErrorIs(t, err, models.ErrStudentNotFound)
}

func TestGenerateRecommendations_VectorSearchFailureIsNonFatal(t *testing.T) {
	profile := testProfile()
	project := testProject("Web Platform", "Software Engineering", []string{"React"})

	router := &fakeRouter{}
	store := &fakeVectorStore{searchErr: errors.New("qdrant unreachable")}
	svc, _, _ := newTestRecommender(profile, []models.Project{project}, router, store)

	result, err := svc.GenerateRecommendations(context.Background(), profile.ID, nil)
	require.NoError(t, err)

	// Candidates were scored by direct embedding instead.
	assert.Equal(t, models.MethodAIEmbedding, result.Method)
	require.Len(t, result.Recommendations, 1)
}

func TestGenerateRecommendations_UsesVectorSearchScores(t *testing.T) {
	profile := testProfile()
	project := testProject("Web Platform", "Software Engineering", []string{"React"})

	router := &fakeRouter{}
	store := &fakeVectorStore{matches: []ProjectMatch{{ProjectID: project.ID, Score: 0.62}}}
	svc, _, _ := newTestRecommender(profile, []models.Project{project}, router, store)

	result, err := svc.GenerateRecommendations(context.Background(), profile.ID, nil)
	require.NoError(t, err)

	require.Len(t, result.Recommendations, 1)
	assert.InDelta(t, 0.62, result.Recommendations[0].SimilarityScore, 1e-6)

	// One embedding call for the profile; no direct candidate embedding.
	assert.Equal(t, 1, router.embedCalls)
}

func TestGenerateRecommendations_SummaryFailureIsNonFatal(t *testing.T) {
	profile := testProfile()
	project := testProject("Web Platform", "Software Engineering", []string{"React"})

	router := &fakeRouter{chatErr: models.ErrCircuitOpen}
	svc, _, _ := newTestRecommender(profile, []models.Project{project}, router, &fakeVectorStore{})

	result, err := svc.GenerateRecommendations(context.Background(), profile.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, models.MethodAIEmbedding, result.Method)
	require.Len(t, result.Recommendations, 1)
}

func TestGenerateRecommendations_NoCandidates(t *testing.T) {
	profile := testProfile()
	svc, _, _ := newTestRecommender(profile, nil, &fakeRouter{}, &fakeVectorStore{})

	result, err := svc.GenerateRecommendations(context.Background(), profile.ID, nil)
	require.NoError(t, err)
	assert.Empty(t, result.Recommendations)
	assert.Equal(t, noCandidatesReasoning, result.Reasoning)
}
