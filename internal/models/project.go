package models

import (
	"time"

	"github.com/google/uuid"
)

type DifficultyLevel string

const (
	DifficultyBeginner     DifficultyLevel = "beginner"
	DifficultyIntermediate DifficultyLevel = "intermediate"
	DifficultyAdvanced     DifficultyLevel = "advanced"
	DifficultyExpert       DifficultyLevel = "expert"
)

var difficultyRank = map[DifficultyLevel]int{
	DifficultyBeginner:     1,
	DifficultyIntermediate: 2,
	DifficultyAdvanced:     3,
	DifficultyExpert:       4,
}

// Rank returns the position of the level on the ordered scale, or 0 for
// unknown values so they never satisfy a difficulty ceiling.
func (d DifficultyLevel) Rank() int {
	return difficultyRank[d]
}

// AtOrBelow reports whether d is at or below max on the ordered scale.
func (d DifficultyLevel) AtOrBelow(max DifficultyLevel) bool {
	return d.Rank() > 0 && max.Rank() > 0 && d.Rank() <= max.Rank()
}

type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

type Supervisor struct {
	ID             uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Name           string    `gorm:"type:text" json:"name"`
	Specialization string    `gorm:"type:text" json:"specialization"`
	CreatedAt      time.Time `gorm:"type:timestamp;default:now()" json:"created_at"`
}

func (Supervisor) TableName() string {
	return "supervisors"
}

type Project struct {
	ID              uuid.UUID       `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Title           string          `gorm:"type:text;not null" json:"title"`
	Abstract        string          `gorm:"type:text" json:"abstract"`
	Specialization  string          `gorm:"type:text;index" json:"specialization"`
	DifficultyLevel DifficultyLevel `gorm:"type:text" json:"difficulty_level"`
	TechnologyStack StringList      `gorm:"type:jsonb;default:'[]'" json:"technology_stack"`
	Tags            StringList      `gorm:"type:jsonb;default:'[]'" json:"tags"`
	SupervisorID    uuid.UUID       `gorm:"type:uuid;not null" json:"supervisor_id"`
	ApprovalStatus  ApprovalStatus  `gorm:"type:text;not null;default:'pending';index" json:"approval_status"`
	CreatedAt       time.Time       `gorm:"type:timestamp;default:now()" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"type:timestamp;default:now()" json:"updated_at"`

	// Relations
	Supervisor Supervisor `gorm:"foreignKey:SupervisorID" json:"-"`
}

func (Project) TableName() string {
	return "projects"
}
