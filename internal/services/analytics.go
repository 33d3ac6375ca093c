package services

import (
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"projecthub/recommender/internal/models"
	"projecthub/recommender/internal/repositories"
)

// Quality score weights. Each term is clamped to [0,1] before weighting.
const (
	similarityScoreWeight = 0.25
	feedbackRateWeight    = 0.20
	engagementRateWeight  = 0.25
	ratingWeight          = 0.20
	dismissalPenaltyRate  = 0.10
)

// QualityReport is the aggregated view of recommendation quality over a time
// window. Monitoring only; nothing in the request path reads it.
type QualityReport struct {
	WindowStart           time.Time `json:"window_start"`
	WindowEnd             time.Time `json:"window_end"`
	RecommendationsIssued int64     `json:"recommendations_issued"`
	AverageSimilarity     float64   `json:"average_similarity"`
	FeedbackRate          float64   `json:"feedback_rate"`
	EngagementRate        float64   `json:"engagement_rate"`
	ViewRate              float64   `json:"view_rate"`
	BookmarkRate          float64   `json:"bookmark_rate"`
	DismissalRate         float64   `json:"dismissal_rate"`
	AverageRating         float64   `json:"average_rating"`
	QualityScore          float64   `json:"quality_score"`
}

// QualityAnalytics ingests recommendation feedback and aggregates it into a
// weighted quality score.
type QualityAnalytics interface {
	RecordFeedback(req *models.FeedbackRequest) (*models.RecommendationFeedback, error)
	Report(from, to time.Time) (*QualityReport, error)
}

type qualityAnalytics struct {
	feedbackRepo repositories.FeedbackRepository
	activityRepo repositories.ActivityRepository
}

func NewQualityAnalytics(feedbackRepo repositories.FeedbackRepository, activityRepo repositories.ActivityRepository) QualityAnalytics {
	return &qualityAnalytics{feedbackRepo: feedbackRepo, activityRepo: activityRepo}
}

// RecordFeedback implements QualityAnalytics. The request is assumed to have
// passed DTO validation; id parsing and the rating/type pairing are enforced
// here because they guard data integrity, not transport shape.
func (a *qualityAnalytics) RecordFeedback(req *models.FeedbackRequest) (*models.RecommendationFeedback, error) {
	recommendationID, err := uuid.Parse(req.RecommendationID)
	if err != nil {
		return nil, fmt.Errorf("invalid recommendation id: %w", err)
	}
	studentID, err := uuid.Parse(req.StudentID)
	if err != nil {
		return nil, fmt.Errorf("invalid student id: %w", err)
	}
	projectID, err := uuid.Parse(req.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("invalid project id: %w", err)
	}

	feedbackType := models.FeedbackType(req.Type)
	if feedbackType == models.FeedbackRated {
		if req.Rating == nil {
			return nil, fmt.Errorf("rating is required for rated feedback")
		}
		if *req.Rating < 1 || *req.Rating > 5 {
			return nil, fmt.Errorf("rating must be between 1 and 5")
		}
	}

	feedback := &models.RecommendationFeedback{
		RecommendationID: recommendationID,
		StudentID:        studentID,
		ProjectID:        projectID,
		Type:             feedbackType,
		Rating:           req.Rating,
		Comment:          req.Comment,
	}

	if err := a.feedbackRepo.Create(feedback); err != nil {
		return nil, err
	}

	// A view also lands in the activity trail that drives cache warm-up.
	if feedbackType == models.FeedbackViewed {
		view := &models.ProjectView{
			StudentID: studentID,
			ProjectID: projectID,
			ViewedAt:  time.Now(),
		}
		if err := a.activityRepo.RecordView(view); err != nil {
			log.Printf("⚠️  Failed to record project view for %s: %v\n", studentID, err)
		}
	}

	return feedback, nil
}

// Report implements QualityAnalytics.
func (a *qualityAnalytics) Report(from, to time.Time) (*QualityReport, error) {
	agg, err := a.feedbackRepo.AggregateWindow(from, to)
	if err != nil {
		return nil, err
	}

	report := &QualityReport{
		WindowStart:           from,
		WindowEnd:             to,
		RecommendationsIssued: agg.RecommendationsIssued,
		AverageSimilarity:     agg.AverageSimilarity,
	}

	if agg.RecommendationsIssued > 0 {
		issued := float64(agg.RecommendationsIssued)
		report.FeedbackRate = float64(agg.FeedbackEvents) / issued
		report.EngagementRate = float64(agg.Views+agg.Bookmarks+agg.Ratings) / issued
		report.ViewRate = float64(agg.Views) / issued
		report.BookmarkRate = float64(agg.Bookmarks) / issued
		report.DismissalRate = float64(agg.Dismissals) / issued
	}
	if agg.Ratings > 0 {
		report.AverageRating = float64(agg.RatingSum) / float64(agg.Ratings)
	}

	report.QualityScore = weightedQualityScore(report)
	return report, nil
}

// weightedQualityScore folds the window metrics into one number. Ratings are
// on a 1..5 scale and normalized to [0,1] before weighting; dismissals
// subtract rather than add.
func weightedQualityScore(r *QualityReport) float64 {
	score := similarityScoreWeight*clamp01(r.AverageSimilarity) +
		feedbackRateWeight*clamp01(r.FeedbackRate) +
		engagementRateWeight*clamp01(r.EngagementRate)

	if r.AverageRating > 0 {
		score += ratingWeight * clamp01((r.AverageRating-1)/4)
	}

	score -= dismissalPenaltyRate * clamp01(r.DismissalRate)

	return clamp01(score)
}
