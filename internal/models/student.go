package models

import (
	"time"

	"github.com/google/uuid"
)

type StudentProfile struct {
	ID                       uuid.UUID        `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Name                     string           `gorm:"type:text" json:"name"`
	Skills                   StringList       `gorm:"type:jsonb;default:'[]'" json:"skills"`
	Interests                StringList       `gorm:"type:jsonb;default:'[]'" json:"interests"`
	PreferredSpecializations StringList       `gorm:"type:jsonb;default:'[]'" json:"preferred_specializations"`
	PreferredDifficulty      *DifficultyLevel `gorm:"type:text" json:"preferred_difficulty,omitempty"`
	CreatedAt                time.Time        `gorm:"type:timestamp;default:now()" json:"created_at"`
	UpdatedAt                time.Time        `gorm:"type:timestamp;default:now()" json:"updated_at"`
}

func (StudentProfile) TableName() string {
	return "student_profiles"
}
