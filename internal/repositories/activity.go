package repositories

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"projecthub/recommender/internal/models"
)

type ActivityRepository interface {
	RecordView(view *models.ProjectView) error
	FindActiveStudentIDs(since time.Time) ([]uuid.UUID, error)
}

type activityRepository struct {
	db *gorm.DB
}

func NewActivityRepository(db *gorm.DB) ActivityRepository {
	return &activityRepository{db: db}
}

// RecordView implements ActivityRepository.
func (r *activityRepository) RecordView(view *models.ProjectView) error {
	if err := r.db.Create(view).Error; err != nil {
		return fmt.Errorf("failed to record project view: %w", err)
	}
	return nil
}

// FindActiveStudentIDs returns distinct students with at least one project
// view since the given time. The warm-up job uses this as its "active
// student" query.
func (r *activityRepository) FindActiveStudentIDs(since time.Time) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.Model(&models.ProjectView{}).
		Where("viewed_at >= ?", since).
		Distinct("student_id").
		Pluck("student_id", &ids).Error

	if err != nil {
		return nil, fmt.Errorf("failed to find active students: %w", err)
	}

	return ids, nil
}
