package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"projecthub/recommender/internal/models"
)

func cachedResult(studentID uuid.UUID, ttl time.Duration) *models.RecommendationResult {
	now := time.Now()
	return &models.RecommendationResult{
		ID:        uuid.New(),
		StudentID: studentID,
		Recommendations: models.RecommendationList{
			{ProjectID: uuid.New(), Title: "Cached Project", SimilarityScore: 0.8},
		},
		AverageSimilarityScore: 0.8,
		Method:                 models.MethodAIEmbedding,
		Status:                 models.RecommendationActive,
		GeneratedAt:            now,
		ExpiresAt:              now.Add(ttl),
	}
}

func TestMemoryCache_SetAndGet(t *testing.T) {
	cache := NewMemoryRecommendationCache()
	ctx := context.Background()
	studentID := uuid.New()

	require.NoError(t, cache.Set(ctx, studentID, cachedResult(studentID, time.Hour), time.Hour))

	got, err := cache.Get(ctx, studentID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, studentID, got.StudentID)
	assert.Len(t, got.Recommendations, 1)
}

func TestMemoryCache_MissReturnsNil(t *testing.T) {
	cache := NewMemoryRecommendationCache()

	got, err := cache.Get(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemoryCache_ExpiredEntryIsAMiss(t *testing.T) {
	cache := NewMemoryRecommendationCache()
	ctx := context.Background()
	studentID := uuid.New()

	// The result itself is already past its expiry.
	result := cachedResult(studentID, -time.Minute)
	require.NoError(t, cache.Set(ctx, studentID, result, time.Hour))

	got, err := cache.Get(ctx, studentID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemoryCache_Invalidate(t *testing.T) {
	cache := NewMemoryRecommendationCache()
	ctx := context.Background()
	studentID := uuid.New()

	require.NoError(t, cache.Set(ctx, studentID, cachedResult(studentID, time.Hour), time.Hour))
	require.NoError(t, cache.Invalidate(ctx, studentID))

	got, err := cache.Get(ctx, studentID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemoryCache_ReadsAreIndependentCopies(t *testing.T) {
	cache := NewMemoryRecommendationCache()
	ctx := context.Background()
	studentID := uuid.New()

	require.NoError(t, cache.Set(ctx, studentID, cachedResult(studentID, time.Hour), time.Hour))

	first, err := cache.Get(ctx, studentID)
	require.NoError(t, err)
	first.Recommendations[0].Title = "Mutated"
	first.FromCache = true

	second, err := cache.Get(ctx, studentID)
	require.NoError(t, err)
	assert.Equal(t, "Cached Project", second.Recommendations[0].Title)
	assert.False(t, second.FromCache)
}

func TestMemoryCache_LastWriteWins(t *testing.T) {
	cache := NewMemoryRecommendationCache()
	ctx := context.Background()
	studentID := uuid.New()

	first := cachedResult(studentID, time.Hour)
	second := cachedResult(studentID, time.Hour)
	second.Recommendations[0].Title = "Second Write"

	require.NoError(t, cache.Set(ctx, studentID, first, time.Hour))
	require.NoError(t, cache.Set(ctx, studentID, second, time.Hour))

	got, err := cache.Get(ctx, studentID)
	require.NoError(t, err)
	assert.Equal(t, "Second Write", got.Recommendations[0].Title)
}
