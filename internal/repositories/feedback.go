package repositories

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"projecthub/recommender/internal/models"
)

// FeedbackAggregate holds the raw counters the quality analytics service
// turns into a weighted score.
type FeedbackAggregate struct {
	RecommendationsIssued int64
	AverageSimilarity     float64
	FeedbackEvents        int64
	Views                 int64
	Bookmarks             int64
	Dismissals            int64
	Ratings               int64
	RatingSum             int64
}

type FeedbackRepository interface {
	Create(feedback *models.RecommendationFeedback) error
	AggregateWindow(from, to time.Time) (*FeedbackAggregate, error)
}

type feedbackRepository struct {
	db *gorm.DB
}

func NewFeedbackRepository(db *gorm.DB) FeedbackRepository {
	return &feedbackRepository{db: db}
}

// Create implements FeedbackRepository.
func (r *feedbackRepository) Create(feedback *models.RecommendationFeedback) error {
	if err := r.db.Create(feedback).Error; err != nil {
		return fmt.Errorf("failed to create feedback: %w", err)
	}
	return nil
}

// AggregateWindow implements FeedbackRepository.
func (r *feedbackRepository) AggregateWindow(from, to time.Time) (*FeedbackAggregate, error) {
	agg := &FeedbackAggregate{}

	err := r.db.Model(&models.RecommendationResult{}).
		Where("generated_at BETWEEN ? AND ?", from, to).
		Count(&agg.RecommendationsIssued).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count recommendations in window: %w", err)
	}

	if agg.RecommendationsIssued > 0 {
		row := r.db.Model(&models.RecommendationResult{}).
			Where("generated_at BETWEEN ? AND ?", from, to).
			Select("COALESCE(AVG(average_similarity_score), 0)").
			Row()
		if err := row.Scan(&agg.AverageSimilarity); err != nil {
			return nil, fmt.Errorf("failed to average similarity in window: %w", err)
		}
	}

	type typeCount struct {
		Type  models.FeedbackType
		Count int64
	}
	var counts []typeCount
	err = r.db.Model(&models.RecommendationFeedback{}).
		Where("created_at BETWEEN ? AND ?", from, to).
		Select("type, COUNT(*) as count").
		Group("type").
		Scan(&counts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count feedback in window: %w", err)
	}

	for _, c := range counts {
		agg.FeedbackEvents += c.Count
		switch c.Type {
		case models.FeedbackViewed:
			agg.Views = c.Count
		case models.FeedbackBookmarked:
			agg.Bookmarks = c.Count
		case models.FeedbackDismissed:
			agg.Dismissals = c.Count
		case models.FeedbackRated:
			agg.Ratings = c.Count
		}
	}

	if agg.Ratings > 0 {
		row := r.db.Model(&models.RecommendationFeedback{}).
			Where("created_at BETWEEN ? AND ? AND type = ?", from, to, models.FeedbackRated).
			Select("COALESCE(SUM(rating), 0)").
			Row()
		if err := row.Scan(&agg.RatingSum); err != nil {
			return nil, fmt.Errorf("failed to sum ratings in window: %w", err)
		}
	}

	return agg, nil
}
