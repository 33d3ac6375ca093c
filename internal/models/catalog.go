package models

// ModelCapability tags what a catalog model can do.
type ModelCapability string

const (
	CapabilityChat      ModelCapability = "chat"
	CapabilityCode      ModelCapability = "code"
	CapabilityVision    ModelCapability = "vision"
	CapabilityEmbedding ModelCapability = "embedding"
)

// ModelDescriptor is a static catalog entry for one AI backend model.
// IsAvailable is the only mutable field; it is toggled when a backend is
// marked down.
type ModelDescriptor struct {
	ModelID       string            `json:"model_id"`
	Provider      string            `json:"provider"`
	CostPerToken  float64           `json:"cost_per_token"`
	BaseLatencyMs int64             `json:"base_latency_ms"`
	QualityScore  float64           `json:"quality_score"`
	Capabilities  []ModelCapability `json:"capabilities"`
	IsAvailable   bool              `json:"is_available"`
}

// HasCapability reports whether the model carries the given capability.
func (m ModelDescriptor) HasCapability(c ModelCapability) bool {
	for _, cap := range m.Capabilities {
		if cap == c {
			return true
		}
	}
	return false
}

// BudgetStatus is derived from the spend counters on demand; it is never
// persisted per request.
type BudgetStatus struct {
	CurrentSpend      float64 `json:"current_spend"`
	MonthlyLimit      float64 `json:"monthly_limit"`
	RemainingBudget   float64 `json:"remaining_budget"`
	BudgetUtilization float64 `json:"budget_utilization"`
	RecommendedModel  string  `json:"recommended_model,omitempty"`
}
