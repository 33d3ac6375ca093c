package repositories

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"projecthub/recommender/internal/models"
)

type StudentRepository interface {
	FindProfile(id uuid.UUID) (*models.StudentProfile, error)
}

type studentRepository struct {
	db *gorm.DB
}

func NewStudentRepository(db *gorm.DB) StudentRepository {
	return &studentRepository{db: db}
}

// FindProfile implements StudentRepository.
func (r *studentRepository) FindProfile(id uuid.UUID) (*models.StudentProfile, error) {
	var profile models.StudentProfile
	if err := r.db.Where("id = ?", id).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrStudentNotFound
		}
		return nil, fmt.Errorf("failed to find student profile: %w", err)
	}

	return &profile, nil
}
