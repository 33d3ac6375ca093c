package models

import (
	"time"

	"github.com/google/uuid"
)

type FeedbackType string

const (
	FeedbackViewed     FeedbackType = "viewed"
	FeedbackBookmarked FeedbackType = "bookmarked"
	FeedbackDismissed  FeedbackType = "dismissed"
	FeedbackRated      FeedbackType = "rated"
)

type RecommendationFeedback struct {
	ID               uuid.UUID    `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	RecommendationID uuid.UUID    `gorm:"type:uuid;not null;index" json:"recommendation_id"`
	StudentID        uuid.UUID    `gorm:"type:uuid;not null;index" json:"student_id"`
	ProjectID        uuid.UUID    `gorm:"type:uuid;not null" json:"project_id"`
	Type             FeedbackType `gorm:"type:text;not null" json:"type"`
	Rating           *int         `gorm:"type:smallint" json:"rating,omitempty"`
	Comment          *string      `gorm:"type:text" json:"comment,omitempty"`
	CreatedAt        time.Time    `gorm:"default:CURRENT_TIMESTAMP;index" json:"created_at"`
}

func (RecommendationFeedback) TableName() string {
	return "recommendation_feedback"
}

// ProjectView is the activity trail used by the warm-up job to find
// recently active students.
type ProjectView struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	StudentID uuid.UUID `gorm:"type:uuid;not null;index" json:"student_id"`
	ProjectID uuid.UUID `gorm:"type:uuid;not null" json:"project_id"`
	ViewedAt  time.Time `gorm:"type:timestamp;default:now();index" json:"viewed_at"`
}

func (ProjectView) TableName() string {
	return "project_views"
}
