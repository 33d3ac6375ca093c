package repositories

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"projecthub/recommender/internal/models"
)

type RecommendationRepository interface {
	Create(result *models.RecommendationResult) error
	FindActiveByStudent(studentID uuid.UUID) (*models.RecommendationResult, error)
	FindStaleStudentIDs(olderThan time.Time) ([]uuid.UUID, error)
	MarkExpired(now time.Time) (int64, error)
	CountByStatus(status models.RecommendationStatus) (int64, error)
}

type recommendationRepository struct {
	db *gorm.DB
}

func NewRecommendationRepository(db *gorm.DB) RecommendationRepository {
	return &recommendationRepository{db: db}
}

// Create implements RecommendationRepository.
func (r *recommendationRepository) Create(result *models.RecommendationResult) error {
	if err := r.db.Create(result).Error; err != nil {
		return fmt.Errorf("failed to create recommendation result: %w", err)
	}
	return nil
}

// FindActiveByStudent returns the newest active, unexpired result for the
// student, or nil when there is none.
func (r *recommendationRepository) FindActiveByStudent(studentID uuid.UUID) (*models.RecommendationResult, error) {
	var result models.RecommendationResult
	err := r.db.
		Where("student_id = ? AND status = ? AND expires_at > ?",
			studentID, models.RecommendationActive, time.Now()).
		Order("generated_at DESC").
		First(&result).Error

	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find active recommendation: %w", err)
	}

	return &result, nil
}

// FindStaleStudentIDs returns distinct student ids whose newest active
// result has not been regenerated since olderThan.
func (r *recommendationRepository) FindStaleStudentIDs(olderThan time.Time) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.Model(&models.RecommendationResult{}).
		Where("status = ? AND updated_at < ?", models.RecommendationActive, olderThan).
		Distinct("student_id").
		Pluck("student_id", &ids).Error

	if err != nil {
		return nil, fmt.Errorf("failed to find stale students: %w", err)
	}

	return ids, nil
}

// MarkExpired flips every active record past its expiry to expired. This is
// a pure state transition; records are never deleted here.
func (r *recommendationRepository) MarkExpired(now time.Time) (int64, error) {
	result := r.db.Model(&models.RecommendationResult{}).
		Where("status = ? AND expires_at < ?", models.RecommendationActive, now).
		Updates(map[string]interface{}{
			"status":     models.RecommendationExpired,
			"updated_at": now,
		})

	if result.Error != nil {
		return 0, fmt.Errorf("failed to mark expired recommendations: %w", result.Error)
	}

	return result.RowsAffected, nil
}

// CountByStatus implements RecommendationRepository.
func (r *recommendationRepository) CountByStatus(status models.RecommendationStatus) (int64, error) {
	var count int64
	err := r.db.Model(&models.RecommendationResult{}).
		Where("status = ?", status).
		Count(&count).Error

	if err != nil {
		return 0, fmt.Errorf("failed to count recommendations: %w", err)
	}

	return count, nil
}
