package repositories

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"projecthub/recommender/internal/models"
)

// ProjectFilter narrows the candidate set at the data-access boundary,
// before any scoring happens.
type ProjectFilter struct {
	IncludeSpecializations []string
	ExcludeSpecializations []string
	MaxDifficulty          models.DifficultyLevel
}

type ProjectRepository interface {
	FindApprovedProjects(filter ProjectFilter) ([]models.Project, error)
	FindByID(id uuid.UUID) (*models.Project, error)
}

type projectRepository struct {
	db *gorm.DB
}

func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &projectRepository{db: db}
}

// FindApprovedProjects implements ProjectRepository.
func (r *projectRepository) FindApprovedProjects(filter ProjectFilter) ([]models.Project, error) {
	query := r.db.
		Preload("Supervisor").
		Where("approval_status = ?", models.ApprovalApproved)

	if len(filter.IncludeSpecializations) > 0 {
		query = query.Where("specialization IN ?", filter.IncludeSpecializations)
	}
	if len(filter.ExcludeSpecializations) > 0 {
		query = query.Where("specialization NOT IN ?", filter.ExcludeSpecializations)
	}
	if filter.MaxDifficulty != "" {
		var allowed []models.DifficultyLevel
		for _, level := range []models.DifficultyLevel{
			models.DifficultyBeginner,
			models.DifficultyIntermediate,
			models.DifficultyAdvanced,
			models.DifficultyExpert,
		} {
			if level.AtOrBelow(filter.MaxDifficulty) {
				allowed = append(allowed, level)
			}
		}
		query = query.Where("difficulty_level IN ?", allowed)
	}

	var projects []models.Project
	if err := query.Order("created_at ASC").Find(&projects).Error; err != nil {
		return nil, fmt.Errorf("failed to find approved projects: %w", err)
	}

	return projects, nil
}

// FindByID implements ProjectRepository.
func (r *projectRepository) FindByID(id uuid.UUID) (*models.Project, error) {
	var project models.Project
	if err := r.db.Preload("Supervisor").Where("id = ?", id).First(&project).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to find project: %w", err)
	}

	return &project, nil
}
