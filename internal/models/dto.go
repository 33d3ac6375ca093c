package models

type RecommendRequest struct {
	Limit                  int      `json:"limit" validate:"omitempty,min=1,max=50"`
	MinSimilarityScore     *float64 `json:"min_similarity_score" validate:"omitempty,min=0,max=1"`
	IncludeSpecializations []string `json:"include_specializations"`
	ExcludeSpecializations []string `json:"exclude_specializations"`
	MaxDifficulty          string   `json:"max_difficulty" validate:"omitempty,oneof=beginner intermediate advanced expert"`
	ForceRefresh           bool     `json:"force_refresh"`
}

type FeedbackRequest struct {
	RecommendationID string  `json:"recommendation_id" validate:"required,uuid"`
	StudentID        string  `json:"student_id" validate:"required,uuid"`
	ProjectID        string  `json:"project_id" validate:"required,uuid"`
	Type             string  `json:"type" validate:"required,oneof=viewed bookmarked dismissed rated"`
	Rating           *int    `json:"rating" validate:"omitempty,min=1,max=5"`
	Comment          *string `json:"comment"`
}

type ModelAvailabilityRequest struct {
	IsAvailable *bool `json:"is_available" validate:"required"`
}

type RefreshStatsResponse struct {
	RefreshRunning         bool  `json:"refresh_running"`
	WarmupRunning          bool  `json:"warmup_running"`
	CleanupRunning         bool  `json:"cleanup_running"`
	StaleStudents          int64 `json:"stale_students"`
	ActiveRecommendations  int64 `json:"active_recommendations"`
	ExpiredRecommendations int64 `json:"expired_recommendations"`
}
