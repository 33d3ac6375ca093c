package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"projecthub/recommender/internal/config"
	"projecthub/recommender/internal/models"
)

// RouteOptions tune one model selection. Zero values mean "no constraint".
type RouteOptions struct {
	RequiredCapabilities []models.ModelCapability
	MaxCost              float64
	PrioritizeSpeed      bool
	PrioritizeQuality    bool
}

// ModelSelection is the router's choice plus its cost/latency estimates for
// the query it was made for.
type ModelSelection struct {
	Model              models.ModelDescriptor `json:"model"`
	EstimatedCost      float64                `json:"estimated_cost"`
	EstimatedLatencyMs int64                  `json:"estimated_latency_ms"`
}

// qualityFloor is the minimum quality a model must keep to be recommended
// once budget utilization passes the warning threshold.
const qualityFloor = 0.7

// ModelRouter picks a backend model for a query and performs the guarded
// call: rate limiter first, then the per-model circuit breaker, then bounded
// retries. It never substitutes the rule-based fallback; failed calls are
// returned to the caller.
type ModelRouter interface {
	SelectOptimalModel(ctx context.Context, query string, conversation []ChatMessage, opts *RouteOptions) (*ModelSelection, error)
	RouteChat(ctx context.Context, req *ChatRequest, selection *ModelSelection, userID string) (*ChatResponse, error)
	RouteEmbedding(ctx context.Context, texts []string, userID string) ([][]float32, error)
	HandleModelFailure(ctx context.Context, failedModelID string, req *ChatRequest, userID string) (*ChatResponse, error)
	HealthCheck(ctx context.Context) bool
	GetAvailableModels() []models.ModelDescriptor
	UpdateModelAvailability(modelID string, available bool) error
	GetBudgetStatus(ctx context.Context) (*models.BudgetStatus, error)
}

type modelRouter struct {
	providers map[string]ChatProvider
	embedder  EmbeddingService
	limiter   RateLimiter
	breakers  BreakerRegistry
	budgetCfg config.BudgetConfig

	retryMaxAttempts int
	retryDelay       time.Duration

	mu      sync.RWMutex
	catalog []models.ModelDescriptor
}

func NewModelRouter(
	providers map[string]ChatProvider,
	embedder EmbeddingService,
	limiter RateLimiter,
	breakers BreakerRegistry,
	budgetCfg config.BudgetConfig,
	retryMaxAttempts int,
	retryDelay time.Duration,
) ModelRouter {
	if retryMaxAttempts < 1 {
		retryMaxAttempts = 1
	}
	return &modelRouter{
		providers:        providers,
		embedder:         embedder,
		limiter:          limiter,
		breakers:         breakers,
		budgetCfg:        budgetCfg,
		retryMaxAttempts: retryMaxAttempts,
		retryDelay:       retryDelay,
		catalog:          DefaultModelCatalog(),
	}
}

// SelectOptimalModel implements ModelRouter.
func (r *modelRouter) SelectOptimalModel(ctx context.Context, query string, conversation []ChatMessage, opts *RouteOptions) (*ModelSelection, error) {
	if opts == nil {
		opts = &RouteOptions{}
	}

	estimatedTokens := estimateTokens(query, conversation)

	candidates := r.snapshotCatalog(func(m models.ModelDescriptor) bool {
		if !m.IsAvailable {
			return false
		}
		for _, c := range opts.RequiredCapabilities {
			if !m.HasCapability(c) {
				return false
			}
		}
		return true
	})
	if len(candidates) == 0 {
		return nil, models.ErrModelUnavailable
	}

	affordable := candidates
	if opts.MaxCost > 0 {
		affordable = nil
		for _, m := range candidates {
			if m.CostPerToken*float64(estimatedTokens) <= opts.MaxCost {
				affordable = append(affordable, m)
			}
		}
		// Nothing fits the budget: take the single cheapest model
		// regardless of quality rather than failing the request.
		if len(affordable) == 0 {
			affordable = []models.ModelDescriptor{cheapest(candidates)}
		}
	}

	best := pickByScore(affordable, opts)

	// Near the spend ceiling the choice is overridden with the cheapest
	// candidate, whatever the quality weighting said.
	status, err := r.limiter.BudgetStatus(ctx)
	if err != nil {
		log.Printf("⚠️  Budget status unavailable, keeping scored selection: %v\n", err)
	} else if status.BudgetUtilization > r.budgetCfg.WarningThreshold {
		best = cheapest(candidates)
	}

	return &ModelSelection{
		Model:              best,
		EstimatedCost:      best.CostPerToken * float64(estimatedTokens),
		EstimatedLatencyMs: best.BaseLatencyMs,
	}, nil
}

// RouteChat implements ModelRouter. The rate limiter runs before any
// provider contact; a denial is terminal for the call. Provider errors are
// retried with a fixed delay up to the configured attempt count, except for
// permanent configuration errors and short-circuited calls.
func (r *modelRouter) RouteChat(ctx context.Context, req *ChatRequest, selection *ModelSelection, userID string) (*ChatResponse, error) {
	if err := r.limiter.Allow(ctx, userID); err != nil {
		return nil, err
	}

	provider, ok := r.providers[selection.Model.Provider]
	if !ok {
		return nil, fmt.Errorf("no provider registered for %q: %w", selection.Model.Provider, models.ErrModelUnavailable)
	}

	req.Model = selection.Model.ModelID

	var lastErr error
	for attempt := 1; attempt <= r.retryMaxAttempts; attempt++ {
		start := time.Now()
		result, err := r.breakers.Execute(selection.Model.ModelID, func() (interface{}, error) {
			return provider.Complete(ctx, req)
		})
		if err == nil {
			resp := result.(*ChatResponse)
			cost := resp.Cost
			if cost == 0 {
				cost = selection.Model.CostPerToken * float64(resp.Usage.TotalTokens)
			}
			if recordErr := r.limiter.RecordUsage(ctx, userID, resp.Usage.TotalTokens, cost); recordErr != nil {
				log.Printf("⚠️  Failed to record usage for %s: %v\n", userID, recordErr)
			}
			log.Printf("🤖 Routed chat to %s in %s (%d tokens)\n",
				selection.Model.ModelID, time.Since(start), resp.Usage.TotalTokens)
			return resp, nil
		}

		lastErr = err

		if errors.Is(err, models.ErrMissingAPIKey) || errors.Is(err, models.ErrCircuitOpen) {
			return nil, err
		}

		if attempt < r.retryMaxAttempts {
			log.Printf("⚠️  Attempt %d on %s failed: %v. Retrying...\n", attempt, selection.Model.ModelID, err)
			select {
			case <-time.After(r.retryDelay):
			case <-ctx.Done():
				return nil, fmt.Errorf("context cancelled: %w", ctx.Err())
			}
		}
	}

	return nil, fmt.Errorf("failed after %d attempts on %s: %w", r.retryMaxAttempts, selection.Model.ModelID, lastErr)
}

// RouteEmbedding implements ModelRouter. Embedding calls share the quota but
// carry no spend; the local embedding service is free.
func (r *modelRouter) RouteEmbedding(ctx context.Context, texts []string, userID string) ([][]float32, error) {
	if err := r.limiter.Allow(ctx, userID); err != nil {
		return nil, err
	}

	result, err := r.breakers.Execute("embedding-service", func() (interface{}, error) {
		return r.embedder.EmbedTexts(ctx, texts)
	})
	if err != nil {
		return nil, err
	}

	return result.([][]float32), nil
}

// HandleModelFailure implements ModelRouter: select an alternative model
// (excluding the failed one) and re-route exactly once.
func (r *modelRouter) HandleModelFailure(ctx context.Context, failedModelID string, req *ChatRequest, userID string) (*ChatResponse, error) {
	candidates := r.snapshotCatalog(func(m models.ModelDescriptor) bool {
		return m.IsAvailable && m.ModelID != failedModelID
	})
	if len(candidates) == 0 {
		return nil, models.ErrModelUnavailable
	}

	alternative := pickByScore(candidates, &RouteOptions{})
	log.Printf("🔀 Failing over from %s to %s\n", failedModelID, alternative.ModelID)

	selection := &ModelSelection{
		Model:              alternative,
		EstimatedCost:      alternative.CostPerToken * float64(estimateTokens("", req.Messages)),
		EstimatedLatencyMs: alternative.BaseLatencyMs,
	}
	return r.RouteChat(ctx, req, selection, userID)
}

// HealthCheck implements ModelRouter. It performs one minimal real call and
// reports false, never an error, on missing configuration or network failure.
func (r *modelRouter) HealthCheck(ctx context.Context) bool {
	selection, err := r.SelectOptimalModel(ctx, "ping", nil, &RouteOptions{PrioritizeSpeed: true})
	if err != nil {
		return false
	}

	provider, ok := r.providers[selection.Model.Provider]
	if !ok {
		return false
	}

	_, err = provider.Complete(ctx, &ChatRequest{
		Model:     selection.Model.ModelID,
		Messages:  []ChatMessage{{Role: "user", Content: "ping"}},
		MaxTokens: 1,
	})
	return err == nil
}

// GetAvailableModels implements ModelRouter.
func (r *modelRouter) GetAvailableModels() []models.ModelDescriptor {
	return r.snapshotCatalog(func(m models.ModelDescriptor) bool { return m.IsAvailable })
}

// UpdateModelAvailability implements ModelRouter.
func (r *modelRouter) UpdateModelAvailability(modelID string, available bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.catalog {
		if r.catalog[i].ModelID == modelID {
			r.catalog[i].IsAvailable = available
			log.Printf("🔧 Model %s availability set to %t\n", modelID, available)
			return nil
		}
	}
	return fmt.Errorf("model %q not in catalog", modelID)
}

// GetBudgetStatus implements ModelRouter. Past the warning threshold the
// status names the cheapest available model that still meets the quality
// floor.
func (r *modelRouter) GetBudgetStatus(ctx context.Context) (*models.BudgetStatus, error) {
	status, err := r.limiter.BudgetStatus(ctx)
	if err != nil {
		return nil, err
	}

	if status.BudgetUtilization > r.budgetCfg.WarningThreshold {
		candidates := r.snapshotCatalog(func(m models.ModelDescriptor) bool {
			return m.IsAvailable && m.QualityScore >= qualityFloor
		})
		if len(candidates) == 0 {
			candidates = r.snapshotCatalog(func(m models.ModelDescriptor) bool { return m.IsAvailable })
		}
		if len(candidates) > 0 {
			status.RecommendedModel = cheapest(candidates).ModelID
		}
	}

	return status, nil
}

func (r *modelRouter) snapshotCatalog(keep func(models.ModelDescriptor) bool) []models.ModelDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []models.ModelDescriptor
	for _, m := range r.catalog {
		if keep(m) {
			out = append(out, m)
		}
	}
	return out
}

// estimateTokens is the usual chars/4 heuristic with headroom for the
// completion.
func estimateTokens(query string, conversation []ChatMessage) int {
	chars := len(query)
	for _, msg := range conversation {
		chars += len(msg.Content)
	}
	tokens := chars/4 + 256
	return tokens
}

func cheapest(candidates []models.ModelDescriptor) models.ModelDescriptor {
	best := candidates[0]
	for _, m := range candidates[1:] {
		if m.CostPerToken < best.CostPerToken {
			best = m
		}
	}
	return best
}

// pickByScore ranks candidates by a weighted blend of inverse cost, inverse
// latency and quality. Speed or quality priority shifts the weights.
func pickByScore(candidates []models.ModelDescriptor, opts *RouteOptions) models.ModelDescriptor {
	wCost, wLatency, wQuality := 0.35, 0.25, 0.40
	if opts.PrioritizeSpeed {
		wCost, wLatency, wQuality = 0.25, 0.55, 0.20
	}
	if opts.PrioritizeQuality {
		wCost, wLatency, wQuality = 0.10, 0.05, 0.85
	}

	minCost, minLatency := candidates[0].CostPerToken, candidates[0].BaseLatencyMs
	for _, m := range candidates[1:] {
		if m.CostPerToken < minCost {
			minCost = m.CostPerToken
		}
		if m.BaseLatencyMs < minLatency {
			minLatency = m.BaseLatencyMs
		}
	}

	best := candidates[0]
	bestScore := -1.0
	for _, m := range candidates {
		costScore := 1.0
		if m.CostPerToken > 0 {
			costScore = minCost / m.CostPerToken
		}
		latencyScore := 1.0
		if m.BaseLatencyMs > 0 {
			latencyScore = float64(minLatency) / float64(m.BaseLatencyMs)
		}

		score := wCost*costScore + wLatency*latencyScore + wQuality*m.QualityScore
		if score > bestScore {
			bestScore = score
			best = m
		}
	}
	return best
}
