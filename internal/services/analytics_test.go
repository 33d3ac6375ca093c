package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"projecthub/recommender/internal/models"
	"projecthub/recommender/internal/repositories"
)

func validFeedbackRequest(feedbackType string) *models.FeedbackRequest {
	return &models.FeedbackRequest{
		RecommendationID: uuid.NewString(),
		StudentID:        uuid.NewString(),
		ProjectID:        uuid.NewString(),
		Type:             feedbackType,
	}
}

func TestRecordFeedback_PersistsFeedback(t *testing.T) {
	feedbackRepo := &fakeFeedbackRepo{}
	activityRepo := &fakeActivityRepo{}
	analytics := NewQualityAnalytics(feedbackRepo, activityRepo)

	rating := 4
	req := validFeedbackRequest("rated")
	req.Rating = &rating

	feedback, err := analytics.RecordFeedback(req)
	require.NoError(t, err)
	assert.Equal(t, models.FeedbackRated, feedback.Type)
	assert.Equal(t, 4, *feedback.Rating)
	require.Len(t, feedbackRepo.created, 1)

	// Ratings are not views; the activity trail stays untouched.
	assert.Empty(t, activityRepo.views)
}

func TestRecordFeedback_ViewFeedsActivityTrail(t *testing.T) {
	feedbackRepo := &fakeFeedbackRepo{}
	activityRepo := &fakeActivityRepo{}
	analytics := NewQualityAnalytics(feedbackRepo, activityRepo)

	req := validFeedbackRequest("viewed")
	feedback, err := analytics.RecordFeedback(req)
	require.NoError(t, err)

	require.Len(t, activityRepo.views, 1)
	assert.Equal(t, feedback.StudentID, activityRepo.views[0].StudentID)
	assert.Equal(t, feedback.ProjectID, activityRepo.views[0].ProjectID)
}

func TestRecordFeedback_RatedRequiresRating(t *testing.T) {
	analytics := NewQualityAnalytics(&fakeFeedbackRepo{}, &fakeActivityRepo{})

	_, err := analytics.RecordFeedback(validFeedbackRequest("rated"))
	assert.Error(t, err)

	bad := 6
	req := validFeedbackRequest("rated")
	req.Rating = &bad
	_, err = analytics.RecordFeedback(req)
	assert.Error(t, err)
}

func TestRecordFeedback_RejectsBadIDs(t *testing.T) {
	analytics := NewQualityAnalytics(&fakeFeedbackRepo{}, &fakeActivityRepo{})

	req := validFeedbackRequest("viewed")
	req.StudentID = "not-a-uuid"
	_, err := analytics.RecordFeedback(req)
	assert.Error(t, err)
}

func TestQualityReport_ComputesRatesAndScore(t *testing.T) {
	agg := &repositories.FeedbackAggregate{
		RecommendationsIssued: 100,
		AverageSimilarity:     0.6,
		FeedbackEvents:        50,
		Views:                 30,
		Bookmarks:             10,
		Dismissals:            5,
		Ratings:               5,
		RatingSum:             20, // average rating 4.0
	}
	analytics := NewQualityAnalytics(&fakeFeedbackRepo{agg: agg}, &fakeActivityRepo{})

	to := time.Now()
	report, err := analytics.Report(to.AddDate(0, 0, -7), to)
	require.NoError(t, err)

	assert.Equal(t, int64(100), report.RecommendationsIssued)
	assert.InDelta(t, 0.5, report.FeedbackRate, 1e-9)
	assert.InDelta(t, 0.45, report.EngagementRate, 1e-9)
	assert.InDelta(t, 0.3, report.ViewRate, 1e-9)
	assert.InDelta(t, 0.1, report.BookmarkRate, 1e-9)
	assert.InDelta(t, 0.05, report.DismissalRate, 1e-9)
	assert.InDelta(t, 4.0, report.AverageRating, 1e-9)

	// similarity .25*.6 + feedback .20*.5 + engagement .25*.45
	// + rating .20*(3/4) - dismissal .10*.05
	expected := 0.25*0.6 + 0.20*0.5 + 0.25*0.45 + 0.20*0.75 - 0.10*0.05
	assert.InDelta(t, expected, report.QualityScore, 1e-9)
}

func TestQualityReport_EmptyWindow(t *testing.T) {
	analytics := NewQualityAnalytics(&fakeFeedbackRepo{agg: &repositories.FeedbackAggregate{}}, &fakeActivityRepo{})

	to := time.Now()
	report, err := analytics.Report(to.AddDate(0, 0, -7), to)
	require.NoError(t, err)

	assert.Equal(t, 0.0, report.FeedbackRate)
	assert.Equal(t, 0.0, report.AverageRating)
	assert.Equal(t, 0.0, report.QualityScore)
}

func TestQualityReport_ScoreStaysWithinBounds(t *testing.T) {
	// Extreme engagement past 1.0 per recommendation must still clamp.
	agg := &repositories.FeedbackAggregate{
		RecommendationsIssued: 10,
		AverageSimilarity:     1.0,
		FeedbackEvents:        100,
		Views:                 50,
		Bookmarks:             50,
		Ratings:               10,
		RatingSum:             50,
	}
	analytics := NewQualityAnalytics(&fakeFeedbackRepo{agg: agg}, &fakeActivityRepo{})

	to := time.Now()
	report, err := analytics.Report(to.AddDate(0, 0, -1), to)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, report.QualityScore, 0.0)
	assert.LessOrEqual(t, report.QualityScore, 1.0)
}
