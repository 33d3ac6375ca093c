package services

import "projecthub/recommender/internal/models"

// DefaultModelCatalog is the static catalog the router starts from. Only
// IsAvailable changes at runtime; everything else is fixed pricing and
// benchmark data per backend.
func DefaultModelCatalog() []models.ModelDescriptor {
	return []models.ModelDescriptor{
		{
			ModelID:       "gpt-4o",
			Provider:      "openai",
			CostPerToken:  0.0000125,
			BaseLatencyMs: 1200,
			QualityScore:  0.95,
			Capabilities:  []models.ModelCapability{models.CapabilityChat, models.CapabilityCode, models.CapabilityVision},
			IsAvailable:   true,
		},
		{
			ModelID:       "gpt-4o-mini",
			Provider:      "openai",
			CostPerToken:  0.0000006,
			BaseLatencyMs: 600,
			QualityScore:  0.78,
			Capabilities:  []models.ModelCapability{models.CapabilityChat, models.CapabilityCode},
			IsAvailable:   true,
		},
		{
			ModelID:       "gemini-2.5-flash",
			Provider:      "gemini",
			CostPerToken:  0.0000003,
			BaseLatencyMs: 500,
			QualityScore:  0.80,
			Capabilities:  []models.ModelCapability{models.CapabilityChat, models.CapabilityCode, models.CapabilityVision},
			IsAvailable:   true,
		},
		{
			ModelID:       "gemini-1.5-flash",
			Provider:      "gemini",
			CostPerToken:  0.00000015,
			BaseLatencyMs: 450,
			QualityScore:  0.70,
			Capabilities:  []models.ModelCapability{models.CapabilityChat},
			IsAvailable:   true,
		},
	}
}
