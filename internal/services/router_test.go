package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"projecthub/recommender/internal/config"
	"projecthub/recommender/internal/models"
)

// fakeProvider fails a fixed number of times, then answers.
type fakeProvider struct {
	failures  int
	err       error
	calls     int
	lastModel string
}

func (p *fakeProvider) Complete(_ context.Context, req *ChatRequest) (*ChatResponse, error) {
	p.calls++
	p.lastModel = req.Model
	if p.calls <= p.failures {
		return nil, p.err
	}
	return &ChatResponse{
		ID:      "resp-1",
		Model:   req.Model,
		Content: "hello",
		Usage:   ChatUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}, nil
}

type fakeEmbedder struct {
	vector []float32
	err    error
	calls  int
}

func (e *fakeEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = e.vector
	}
	return out, nil
}

func (e *fakeEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func newTestRouter(providers map[string]ChatProvider, limiter RateLimiter) ModelRouter {
	if limiter == nil {
		limiter = NewMemoryRateLimiter(
			config.RateLimitConfig{UserPerMinute: 100, GlobalPerMinute: 1000},
			config.BudgetConfig{MonthlyLimit: 100, WarningThreshold: 0.8},
		)
	}
	return NewModelRouter(
		providers,
		&fakeEmbedder{vector: []float32{1, 0, 0}},
		limiter,
		NewBreakerRegistry(config.BreakerConfig{
			FailureThreshold: 5,
			RecoveryTimeout:  time.Minute,
			MonitoringPeriod: time.Minute,
			HalfOpenMaxCalls: 1,
		}),
		config.BudgetConfig{MonthlyLimit: 100, WarningThreshold: 0.8},
		3,
		time.Millisecond,
	)
}

func TestSelectOptimalModel_CapabilityFilter(t *testing.T) {
	router := newTestRouter(nil, nil)

	selection, err := router.SelectOptimalModel(context.Background(), "describe this diagram", nil, &RouteOptions{
		RequiredCapabilities: []models.ModelCapability{models.CapabilityVision},
	})
	require.NoError(t, err)
	assert.True(t, selection.Model.HasCapability(models.CapabilityVision))
	assert.Greater(t, selection.EstimatedCost, 0.0)
	assert.Greater(t, selection.EstimatedLatencyMs, int64(0))
}

func TestSelectOptimalModel_NoCandidateModels(t *testing.T) {
	router := newTestRouter(nil, nil)

	for _, m := range DefaultModelCatalog() {
		require.NoError(t, router.UpdateModelAvailability(m.ModelID, false))
	}

	_, err := router.SelectOptimalModel(context.Background(), "hi", nil, nil)
	assert.ErrorIs(t, err, models.ErrModelUnavailable)
}

func TestSelectOptimalModel_MaxCostFallsBackToCheapest(t *testing.T) {
	router := newTestRouter(nil, nil)

	// No model fits a near-zero budget, so the cheapest wins regardless.
	selection, err := router.SelectOptimalModel(context.Background(), "hi", nil, &RouteOptions{
		MaxCost: 1e-12,
	})
	require.NoError(t, err)
	assert.Equal(t, "gemini-1.5-flash", selection.Model.ModelID)
}

func TestSelectOptimalModel_QualityPriority(t *testing.T) {
	router := newTestRouter(nil, nil)

	selection, err := router.SelectOptimalModel(context.Background(), "hi", nil, &RouteOptions{
		PrioritizeQuality: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", selection.Model.ModelID)
}

func TestSelectOptimalModel_BudgetPressureOverridesToCheapest(t *testing.T) {
	limiter := NewMemoryRateLimiter(
		config.RateLimitConfig{UserPerMinute: 100, GlobalPerMinute: 1000},
		config.BudgetConfig{MonthlyLimit: 100, WarningThreshold: 0.8},
	)
	require.NoError(t, limiter.RecordUsage(context.Background(), "student-1", 0, 90))

	router := newTestRouter(nil, limiter)

	selection, err := router.SelectOptimalModel(context.Background(), "hi", nil, &RouteOptions{
		PrioritizeQuality: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "gemini-1.5-flash", selection.Model.ModelID)
}

func TestRouteChat_SuccessRecordsUsage(t *testing.T) {
	provider := &fakeProvider{}
	limiter := NewMemoryRateLimiter(
		config.RateLimitConfig{UserPerMinute: 100, GlobalPerMinute: 1000},
		config.BudgetConfig{MonthlyLimit: 100, WarningThreshold: 0.8},
	)
	router := newTestRouter(map[string]ChatProvider{"openai": provider}, limiter)

	selection := &ModelSelection{Model: DefaultModelCatalog()[0]}
	resp, err := router.RouteChat(context.Background(), &ChatRequest{
		Messages: []ChatMessage{{Role: "user", Content: "hi"}},
	}, selection, "student-1")

	require.NoError(t, err)
	assert.Equal(t, "hello", resp.Content)
	assert.Equal(t, "gpt-4o", provider.lastModel)

	status, err := limiter.BudgetStatus(context.Background())
	require.NoError(t, err)
	assert.Greater(t, status.CurrentSpend, 0.0)
}

func TestRouteChat_RetriesTransientFailures(t *testing.T) {
	provider := &fakeProvider{failures: 2, err: errors.New("connection reset")}
	router := newTestRouter(map[string]ChatProvider{"openai": provider}, nil)

	selection := &ModelSelection{Model: DefaultModelCatalog()[0]}
	resp, err := router.RouteChat(context.Background(), &ChatRequest{
		Messages: []ChatMessage{{Role: "user", Content: "hi"}},
	}, selection, "student-1")

	require.NoError(t, err)
	assert.Equal(t, "hello", resp.Content)
	assert.Equal(t, 3, provider.calls)
}

func TestRouteChat_ExhaustsRetries(t *testing.T) {
	provider := &fakeProvider{failures: 10, err: errors.New("connection reset")}
	router := newTestRouter(map[string]ChatProvider{"openai": provider}, nil)

	selection := &ModelSelection{Model: DefaultModelCatalog()[0]}
	_, err := router.RouteChat(context.Background(), &ChatRequest{
		Messages: []ChatMessage{{Role: "user", Content: "hi"}},
	}, selection, "student-1")

	require.Error(t, err)
	assert.Equal(t, 3, provider.calls)
}

func TestRouteChat_MissingAPIKeyIsNotRetried(t *testing.T) {
	provider := &fakeProvider{failures: 10, err: models.ErrMissingAPIKey}
	router := newTestRouter(map[string]ChatProvider{"openai": provider}, nil)

	selection := &ModelSelection{Model: DefaultModelCatalog()[0]}
	_, err := router.RouteChat(context.Background(), &ChatRequest{
		Messages: []ChatMessage{{Role: "user", Content: "hi"}},
	}, selection, "student-1")

	assert.ErrorIs(t, err, models.ErrMissingAPIKey)
	assert.Equal(t, 1, provider.calls)
}

func TestRouteChat_RateLimitDenialIsTerminal(t *testing.T) {
	provider := &fakeProvider{}
	limiter := NewMemoryRateLimiter(
		config.RateLimitConfig{UserPerMinute: 0, GlobalPerMinute: 1000},
		config.BudgetConfig{MonthlyLimit: 100, WarningThreshold: 0.8},
	)
	router := newTestRouter(map[string]ChatProvider{"openai": provider}, limiter)

	selection := &ModelSelection{Model: DefaultModelCatalog()[0]}
	_, err := router.RouteChat(context.Background(), &ChatRequest{
		Messages: []ChatMessage{{Role: "user", Content: "hi"}},
	}, selection, "student-1")

	assert.ErrorIs(t, err, models.ErrRateLimitExceeded)
	assert.Equal(t, 0, provider.calls)
}

func TestHandleModelFailure_ExcludesFailedModel(t *testing.T) {
	openai := &fakeProvider{}
	gemini := &fakeProvider{}
	router := newTestRouter(map[string]ChatProvider{"openai": openai, "gemini": gemini}, nil)

	resp, err := router.HandleModelFailure(context.Background(), "gpt-4o", &ChatRequest{
		Messages: []ChatMessage{{Role: "user", Content: "hi"}},
	}, "student-1")

	require.NoError(t, err)
	assert.NotEqual(t, "gpt-4o", resp.Model)
}

func TestRouteEmbedding_GuardedByLimiter(t *testing.T) {
	limiter := NewMemoryRateLimiter(
		config.RateLimitConfig{UserPerMinute: 0, GlobalPerMinute: 1000},
		config.BudgetConfig{MonthlyLimit: 100, WarningThreshold: 0.8},
	)
	router := newTestRouter(nil, limiter)

	_, err := router.RouteEmbedding(context.Background(), []string{"text"}, "student-1")
	assert.ErrorIs(t, err, models.ErrRateLimitExceeded)
}

func TestHealthCheck_FalseOnMissingKey(t *testing.T) {
	provider := &fakeProvider{failures: 10, err: models.ErrMissingAPIKey}
	router := newTestRouter(map[string]ChatProvider{"openai": provider, "gemini": provider}, nil)

	assert.False(t, router.HealthCheck(context.Background()))
}

func TestHealthCheck_TrueOnWorkingProvider(t *testing.T) {
	provider := &fakeProvider{}
	router := newTestRouter(map[string]ChatProvider{"openai": provider, "gemini": provider}, nil)

	assert.True(t, router.HealthCheck(context.Background()))
}

func TestUpdateModelAvailability_UnknownModel(t *testing.T) {
	router := newTestRouter(nil, nil)

	err := router.UpdateModelAvailability("no-such-model", false)
	assert.Error(t, err)
}

func TestGetAvailableModels_ReflectsAvailability(t *testing.T) {
	router := newTestRouter(nil, nil)
	require.Len(t, router.GetAvailableModels(), 4)

	require.NoError(t, router.UpdateModelAvailability("gpt-4o", false))
	available := router.GetAvailableModels()
	assert.Len(t, available, 3)
	for _, m := range available {
		assert.NotEqual(t, "gpt-4o", m.ModelID)
	}
}

func TestGetBudgetStatus_RecommendsCheapestMeetingQualityFloor(t *testing.T) {
	limiter := NewMemoryRateLimiter(
		config.RateLimitConfig{UserPerMinute: 100, GlobalPerMinute: 1000},
		config.BudgetConfig{MonthlyLimit: 100, WarningThreshold: 0.8},
	)
	require.NoError(t, limiter.RecordUsage(context.Background(), "student-1", 0, 90))

	router := newTestRouter(nil, limiter)

	status, err := router.GetBudgetStatus(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 0.9, status.BudgetUtilization, 1e-9)
	// gemini-1.5-flash sits exactly on the quality floor and is cheapest.
	assert.Equal(t, "gemini-1.5-flash", status.RecommendedModel)
}
